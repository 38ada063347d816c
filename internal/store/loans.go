package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/matevzj/knjiznica/internal/model"
)

// BorrowBook lends one copy of a book to a member, creating the loan record
// and updating the copy and loan counters in a single transaction. On any
// rule violation nothing is changed.
//
// The first statement is the conditional copy decrement, so concurrent
// borrows of the same book serialize on the database write lock and the
// last copy can only be taken once.
func BorrowBook(ctx context.Context, db *sql.DB, memberID, bookID int64, now time.Time) (*model.Loan, error) {
	// Whole seconds keep stored timestamps lexically comparable.
	now = now.UTC().Truncate(time.Second)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies - 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL AND available_copies > 0`, bookID)
	if err != nil {
		return nil, fmt.Errorf("taking copy: %w", err)
	}
	copyTaken, _ := result.RowsAffected()

	// Diagnose in rule order: member first, then book.
	var active bool
	var borrowed int
	err = tx.QueryRowContext(ctx,
		`SELECT is_active, books_borrowed FROM members WHERE id = ? AND deleted_at IS NULL`,
		memberID,
	).Scan(&active, &borrowed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: member %d", ErrNotFound, memberID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}
	if !active {
		return nil, fmt.Errorf("%w: member %d is not active", ErrPolicyViolation, memberID)
	}

	if copyTaken == 0 {
		var exists int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM books WHERE id = ? AND deleted_at IS NULL`, bookID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: book %d", ErrNotFound, bookID)
		}
		if err != nil {
			return nil, fmt.Errorf("getting book: %w", err)
		}
		return nil, fmt.Errorf("%w: no copies of book %d available", ErrPolicyViolation, bookID)
	}

	if borrowed >= model.MaxActiveLoans {
		return nil, fmt.Errorf("%w: member %d has reached the limit of %d active loans",
			ErrPolicyViolation, memberID, model.MaxActiveLoans)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE members SET books_borrowed = books_borrowed + 1 WHERE id = ?`, memberID,
	); err != nil {
		return nil, fmt.Errorf("updating member loan count: %w", err)
	}

	due := now.AddDate(0, 0, model.LoanPeriodDays)
	result, err = tx.ExecContext(ctx,
		`INSERT INTO loans (book_id, member_id, borrow_date, due_date, status)
		 VALUES (?, ?, ?, ?, ?)`,
		bookID, memberID, now, due, model.LoanStatusBorrowed,
	)
	if err != nil {
		return nil, fmt.Errorf("recording loan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing borrow: %w", err)
	}

	loanID, _ := result.LastInsertId()
	return GetLoan(ctx, db, loanID)
}

// ReturnBook closes a loan: sets the return date and fine, puts the copy
// back on the shelf, and decrements the member's loan count, all in a
// single transaction. Returning an already-returned loan is an error, not
// a no-op.
func ReturnBook(ctx context.Context, db *sql.DB, loanID int64, now time.Time) (*model.Loan, error) {
	now = now.UTC().Truncate(time.Second)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loan := &model.Loan{}
	err = tx.QueryRowContext(ctx,
		`SELECT id, book_id, member_id, borrow_date, due_date, status
		 FROM loans WHERE id = ?`, loanID,
	).Scan(&loan.ID, &loan.BookID, &loan.MemberID, &loan.BorrowDate, &loan.DueDate, &loan.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: loan %d", ErrNotFound, loanID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	if loan.Status != model.LoanStatusBorrowed {
		return nil, fmt.Errorf("%w: loan %d is already returned", ErrPolicyViolation, loanID)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE loans SET return_date = ?, status = ?, fine_amount = ?
		 WHERE id = ? AND status = ?`,
		now, model.LoanStatusReturned, loan.Fine(now), loanID, model.LoanStatusBorrowed,
	)
	if err != nil {
		return nil, fmt.Errorf("closing loan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: loan %d is already returned", ErrPolicyViolation, loanID)
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE books SET available_copies = available_copies + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND available_copies < total_copies`, loan.BookID)
	if err != nil {
		return nil, fmt.Errorf("returning copy: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: all copies of book %d are already on the shelf",
			ErrInvalidState, loan.BookID)
	}

	// Floors at zero by matching nothing.
	if _, err := tx.ExecContext(ctx,
		`UPDATE members SET books_borrowed = books_borrowed - 1
		 WHERE id = ? AND books_borrowed > 0`, loan.MemberID,
	); err != nil {
		return nil, fmt.Errorf("updating member loan count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}

	return GetLoan(ctx, db, loanID)
}

const loanColumns = `l.id, l.book_id, l.member_id, l.borrow_date, l.due_date,
	        l.return_date, l.status, l.fine_amount,
	        b.title AS book_title, m.name AS member_name`

const loanJoins = ` FROM loans l
	 JOIN books b ON b.id = l.book_id
	 JOIN members m ON m.id = l.member_id`

// GetLoan returns a loan by ID.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	l := &model.Loan{}
	err := db.QueryRowContext(ctx,
		`SELECT `+loanColumns+loanJoins+` WHERE l.id = ?`, id,
	).Scan(&l.ID, &l.BookID, &l.MemberID, &l.BorrowDate, &l.DueDate,
		&l.ReturnDate, &l.Status, &l.FineAmount, &l.BookTitle, &l.MemberName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return l, nil
}

// ListLoans returns loans, optionally filtered by member, book, and status.
func ListLoans(ctx context.Context, db *sql.DB, memberID, bookID int64, status string) ([]model.Loan, error) {
	query := `SELECT ` + loanColumns + loanJoins + ` WHERE 1=1`
	var args []any

	if memberID > 0 {
		query += ` AND l.member_id = ?`
		args = append(args, memberID)
	}
	if bookID > 0 {
		query += ` AND l.book_id = ?`
		args = append(args, bookID)
	}
	if status != "" {
		query += ` AND l.status = ?`
		args = append(args, status)
	}

	query += ` ORDER BY l.borrow_date DESC, l.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loans: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// ListOverdueLoans returns active loans whose due date has passed as of the
// given time. Pure read: no stored status changes.
func ListOverdueLoans(ctx context.Context, db *sql.DB, asOf time.Time) ([]model.Loan, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+loanColumns+loanJoins+`
		 WHERE l.status = ? AND l.due_date < ?
		 ORDER BY l.due_date`,
		model.LoanStatusBorrowed, asOf.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing overdue loans: %w", err)
	}
	defer rows.Close()

	return scanLoans(rows)
}

// GetMemberStats aggregates a member's loan history as of the given time.
// Everything except the running loan counter is derived by querying loans.
func GetMemberStats(ctx context.Context, db *sql.DB, memberID int64, asOf time.Time) (*model.MemberStats, error) {
	member, err := GetMember(ctx, db, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil || member.DeletedAt != nil {
		return nil, fmt.Errorf("%w: member %d", ErrNotFound, memberID)
	}

	stats := &model.MemberStats{
		MemberID:    member.ID,
		Name:        member.Name,
		MemberSince: member.MembershipDate,
		IsActive:    member.IsActive,
	}

	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(CASE WHEN status = ? THEN 1 END),
		        COUNT(CASE WHEN status = ? THEN 1 END),
		        COUNT(CASE WHEN status = ? AND due_date < ? THEN 1 END)
		 FROM loans WHERE member_id = ?`,
		model.LoanStatusReturned, model.LoanStatusBorrowed,
		model.LoanStatusBorrowed, asOf.UTC(), memberID,
	).Scan(&stats.TotalBorrowed, &stats.Returned, &stats.CurrentlyBorrowed, &stats.Overdue)
	if err != nil {
		return nil, fmt.Errorf("aggregating member loans: %w", err)
	}

	return stats, nil
}

func scanLoans(rows *sql.Rows) ([]model.Loan, error) {
	var loans []model.Loan
	for rows.Next() {
		var l model.Loan
		if err := rows.Scan(&l.ID, &l.BookID, &l.MemberID, &l.BorrowDate, &l.DueDate,
			&l.ReturnDate, &l.Status, &l.FineAmount, &l.BookTitle, &l.MemberName); err != nil {
			return nil, fmt.Errorf("scanning loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}
