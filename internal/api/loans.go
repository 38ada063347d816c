package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/matevzj/knjiznica/internal/model"
	"github.com/matevzj/knjiznica/internal/store"
)

// LoansHandler handles lending endpoints.
type LoansHandler struct {
	DB *sql.DB
}

type borrowRequest struct {
	MemberID int64 `json:"member_id"`
	BookID   int64 `json:"book_id"`
}

type returnRequest struct {
	LoanID int64 `json:"loan_id"`
}

// annotateOverdue relabels active past-due loans for display. The stored
// status is untouched.
func annotateOverdue(loans []model.Loan, asOf time.Time) {
	for i := range loans {
		loans[i].Status = loans[i].DisplayStatus(asOf)
	}
}

// Borrow handles POST /api/loans/borrow.
func (h *LoansHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MemberID <= 0 || req.BookID <= 0 {
		jsonError(w, http.StatusBadRequest, "member_id and book_id required")
		return
	}

	loan, err := store.BorrowBook(r.Context(), h.DB, req.MemberID, req.BookID, time.Now())
	if err != nil {
		storeError(w, err, "failed to borrow book")
		return
	}

	jsonResponse(w, http.StatusCreated, loan)
}

// Return handles POST /api/loans/return.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.LoanID <= 0 {
		jsonError(w, http.StatusBadRequest, "loan_id required")
		return
	}

	loan, err := store.ReturnBook(r.Context(), h.DB, req.LoanID, time.Now())
	if err != nil {
		storeError(w, err, "failed to return book")
		return
	}

	jsonResponse(w, http.StatusOK, loan)
}

// List handles GET /api/loans.
func (h *LoansHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var memberID, bookID int64
	var err error
	if s := q.Get("member_id"); s != "" {
		if memberID, err = strconv.ParseInt(s, 10, 64); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid member_id")
			return
		}
	}
	if s := q.Get("book_id"); s != "" {
		if bookID, err = strconv.ParseInt(s, 10, 64); err != nil {
			jsonError(w, http.StatusBadRequest, "invalid book_id")
			return
		}
	}

	now := time.Now()
	status := q.Get("status")

	// Overdue is computed, not stored, so the filter needs its own query.
	if status == model.LoanStatusOverdue {
		loans, err := store.ListOverdueLoans(r.Context(), h.DB, now)
		if err != nil {
			storeError(w, err, "failed to list loans")
			return
		}
		loans = filterLoans(loans, memberID, bookID)
		annotateOverdue(loans, now)
		jsonResponse(w, http.StatusOK, loans)
		return
	}

	if status != "" && status != model.LoanStatusBorrowed && status != model.LoanStatusReturned {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	loans, err := store.ListLoans(r.Context(), h.DB, memberID, bookID, status)
	if err != nil {
		storeError(w, err, "failed to list loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	annotateOverdue(loans, now)
	jsonResponse(w, http.StatusOK, loans)
}

func filterLoans(loans []model.Loan, memberID, bookID int64) []model.Loan {
	filtered := []model.Loan{}
	for _, l := range loans {
		if memberID > 0 && l.MemberID != memberID {
			continue
		}
		if bookID > 0 && l.BookID != bookID {
			continue
		}
		filtered = append(filtered, l)
	}
	return filtered
}

// Get handles GET /api/loans/{id}.
func (h *LoansHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid loan id")
		return
	}

	loan, err := store.GetLoan(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get loan")
		return
	}
	if loan == nil {
		jsonError(w, http.StatusNotFound, "loan not found")
		return
	}

	loan.Status = loan.DisplayStatus(time.Now())
	jsonResponse(w, http.StatusOK, loan)
}

// Overdue handles GET /api/loans/overdue.
func (h *LoansHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	loans, err := store.ListOverdueLoans(r.Context(), h.DB, now)
	if err != nil {
		storeError(w, err, "failed to list overdue loans")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	annotateOverdue(loans, now)
	jsonResponse(w, http.StatusOK, loans)
}
