package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/matevzj/knjiznica/internal/model"
)

// BooksXLSX writes the catalog as a spreadsheet.
func BooksXLSX(w io.Writer, books []model.Book) error {
	return writeXLSX(w, "Books", bookHeaders, len(books), func(i int) []string {
		return bookRow(books[i])
	})
}

// MembersXLSX writes the member list as a spreadsheet.
func MembersXLSX(w io.Writer, members []model.Member) error {
	return writeXLSX(w, "Members", memberHeaders, len(members), func(i int) []string {
		return memberRow(members[i])
	})
}

// LoansXLSX writes the loan ledger as a spreadsheet.
func LoansXLSX(w io.Writer, loans []model.Loan) error {
	return writeXLSX(w, "Loans", loanHeaders, len(loans), func(i int) []string {
		return loanRow(loans[i])
	})
}

// writeXLSX builds a single-sheet workbook with a bold header row and sized
// columns.
func writeXLSX(w io.Writer, sheet string, headers []string, n int, row func(int) []string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return fmt.Errorf("last column: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	for i := 0; i < n; i++ {
		for col, v := range row(i) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("writing row %d: %w", i+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
