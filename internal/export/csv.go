// Package export renders catalog, member, and loan listings as downloadable
// tabular files. It only serializes what the store queries return; no
// lending rules live here.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/matevzj/knjiznica/internal/model"
)

const dateLayout = "2006-01-02"

var (
	bookHeaders = []string{"ID", "Title", "Author", "ISBN", "Category",
		"Total Copies", "Available Copies", "Publication Year", "Publisher"}
	memberHeaders = []string{"ID", "Name", "Email", "Phone", "Address",
		"Membership Date", "Books Borrowed", "Status"}
	loanHeaders = []string{"ID", "Book Title", "Member Name", "Borrow Date",
		"Due Date", "Return Date", "Status", "Fine Amount"}
)

// BooksCSV writes the catalog as CSV.
func BooksCSV(w io.Writer, books []model.Book) error {
	return writeCSV(w, bookHeaders, len(books), func(i int) []string {
		return bookRow(books[i])
	})
}

// MembersCSV writes the member list as CSV.
func MembersCSV(w io.Writer, members []model.Member) error {
	return writeCSV(w, memberHeaders, len(members), func(i int) []string {
		return memberRow(members[i])
	})
}

// LoansCSV writes the loan ledger as CSV.
func LoansCSV(w io.Writer, loans []model.Loan) error {
	return writeCSV(w, loanHeaders, len(loans), func(i int) []string {
		return loanRow(loans[i])
	})
}

func writeCSV(w io.Writer, headers []string, n int, row func(int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func bookRow(b model.Book) []string {
	year := ""
	if b.PublicationYear != 0 {
		year = strconv.Itoa(b.PublicationYear)
	}
	return []string{
		strconv.FormatInt(b.ID, 10), b.Title, b.Author, b.ISBN, b.Category,
		strconv.Itoa(b.TotalCopies), strconv.Itoa(b.AvailableCopies),
		year, b.Publisher,
	}
}

func memberRow(m model.Member) []string {
	status := "Active"
	if !m.IsActive {
		status = "Inactive"
	}
	return []string{
		strconv.FormatInt(m.ID, 10), m.Name, m.Email, m.Phone, m.Address,
		m.MembershipDate.Format(dateLayout), strconv.Itoa(m.BooksBorrowed), status,
	}
}

func loanRow(l model.Loan) []string {
	returned := "Not Returned"
	if l.ReturnDate != nil {
		returned = l.ReturnDate.Format(dateLayout)
	}
	return []string{
		strconv.FormatInt(l.ID, 10), l.BookTitle, l.MemberName,
		l.BorrowDate.Format(dateLayout), l.DueDate.Format(dateLayout),
		returned, l.Status, strconv.FormatFloat(l.FineAmount, 'f', 2, 64),
	}
}
