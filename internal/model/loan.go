package model

import "time"

// Loan represents one borrowing of one book by one member. Book and member
// references are fixed at creation; the only transition is
// borrowed -> returned, which also sets the return date and fine.
type Loan struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	MemberID   int64      `json:"member_id"`
	BorrowDate time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `json:"status"`
	FineAmount float64    `json:"fine_amount"`

	// Joined fields (not always populated).
	BookTitle  string `json:"book_title,omitempty"`
	MemberName string `json:"member_name,omitempty"`
}

// Loan statuses. Only borrowed and returned are ever stored; overdue is a
// label computed at read time from the due date.
const (
	LoanStatusBorrowed = "borrowed"
	LoanStatusReturned = "returned"
	LoanStatusOverdue  = "overdue"
)

// Lending policy.
const (
	// LoanPeriodDays is the fixed borrowing period.
	LoanPeriodDays = 14
	// FinePerDay is charged per whole calendar day past the due date,
	// uncapped.
	FinePerDay = 5.0
)

// IsOverdue reports whether the loan is active and past due as of the given
// time. The stored status never changes because of this.
func (l *Loan) IsOverdue(asOf time.Time) bool {
	return l.Status == LoanStatusBorrowed && l.DueDate.Before(asOf)
}

// DisplayStatus returns the status with overdue-ness applied as of the
// given time.
func (l *Loan) DisplayStatus(asOf time.Time) string {
	if l.IsOverdue(asOf) {
		return LoanStatusOverdue
	}
	return l.Status
}

// DaysLate returns the number of whole calendar days the given return time
// is past the due date, or 0 if on time. Both timestamps are truncated to
// their calendar date first, so returning any time on the due date is not
// late.
func (l *Loan) DaysLate(returnedAt time.Time) int {
	due := truncateToDate(l.DueDate)
	ret := truncateToDate(returnedAt)
	if !ret.After(due) {
		return 0
	}
	return int(ret.Sub(due).Hours() / 24)
}

// Fine returns the fine owed for returning at the given time.
func (l *Loan) Fine(returnedAt time.Time) float64 {
	return float64(l.DaysLate(returnedAt)) * FinePerDay
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
