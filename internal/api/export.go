package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/matevzj/knjiznica/internal/export"
	"github.com/matevzj/knjiznica/internal/store"
)

// ExportHandler serves catalog, member, and loan downloads.
type ExportHandler struct {
	DB *sql.DB
}

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

func setDownloadHeaders(w http.ResponseWriter, name, format string) {
	switch format {
	case formatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case formatXLSX:
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	}
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s-%s.%s", name, time.Now().Format("2006-01-02"), format))
}

// Books handles GET /api/export/books/{format}.
func (h *ExportHandler) Books(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	if format != formatCSV && format != formatXLSX {
		jsonError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	books, err := store.ListBooks(r.Context(), h.DB, "")
	if err != nil {
		storeError(w, err, "failed to export books")
		return
	}

	setDownloadHeaders(w, "books", format)
	if format == formatCSV {
		err = export.BooksCSV(w, books)
	} else {
		err = export.BooksXLSX(w, books)
	}
	if err != nil {
		// Headers are already out; just log.
		slog.Error("writing books export", "format", format, "error", err)
	}
}

// Members handles GET /api/export/members/{format}.
func (h *ExportHandler) Members(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	if format != formatCSV && format != formatXLSX {
		jsonError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	members, err := store.ListMembers(r.Context(), h.DB, "")
	if err != nil {
		storeError(w, err, "failed to export members")
		return
	}

	setDownloadHeaders(w, "members", format)
	if format == formatCSV {
		err = export.MembersCSV(w, members)
	} else {
		err = export.MembersXLSX(w, members)
	}
	if err != nil {
		slog.Error("writing members export", "format", format, "error", err)
	}
}

// Loans handles GET /api/export/loans/{format}.
func (h *ExportHandler) Loans(w http.ResponseWriter, r *http.Request) {
	format := r.PathValue("format")
	if format != formatCSV && format != formatXLSX {
		jsonError(w, http.StatusBadRequest, "format must be csv or xlsx")
		return
	}

	loans, err := store.ListLoans(r.Context(), h.DB, 0, 0, "")
	if err != nil {
		storeError(w, err, "failed to export loans")
		return
	}
	annotateOverdue(loans, time.Now())

	setDownloadHeaders(w, "loans", format)
	if format == formatCSV {
		err = export.LoansCSV(w, loans)
	} else {
		err = export.LoansXLSX(w, loans)
	}
	if err != nil {
		slog.Error("writing loans export", "format", format, "error", err)
	}
}
