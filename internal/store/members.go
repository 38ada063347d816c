package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matevzj/knjiznica/internal/model"
)

const memberColumns = `id, name, email, phone, address, membership_date,
	 is_active, books_borrowed, deleted_at`

// Member status filters accepted by ListMembers.
const (
	MemberStatusActive   = "active"
	MemberStatusInactive = "inactive"
)

// CreateMember registers a new member. The membership date is set at
// creation and never changes; new members are active with no loans.
func CreateMember(ctx context.Context, db *sql.DB, m model.Member) (*model.Member, error) {
	var existing int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM members WHERE email = ? AND deleted_at IS NULL`, m.Email,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: member with email %s already exists", ErrDuplicateKey, m.Email)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO members (name, email, phone, address) VALUES (?, ?, ?, ?)`,
		m.Name, m.Email, nullString(m.Phone), nullString(m.Address),
	)
	if err != nil {
		return nil, fmt.Errorf("creating member: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting member id: %w", err)
	}

	return GetMember(ctx, db, id)
}

// GetMember returns a member by ID.
func GetMember(ctx context.Context, db *sql.DB, id int64) (*model.Member, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	return scanMemberRow(row)
}

// GetMemberByEmail returns a non-deleted member by email.
func GetMemberByEmail(ctx context.Context, db *sql.DB, email string) (*model.Member, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE email = ? AND deleted_at IS NULL`, email)
	return scanMemberRow(row)
}

// ListMembers returns all non-deleted members, optionally filtered by
// status ("active" or "inactive").
func ListMembers(ctx context.Context, db *sql.DB, status string) ([]model.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE deleted_at IS NULL`
	var args []any

	switch status {
	case "":
	case MemberStatusActive:
		query += ` AND is_active = 1`
	case MemberStatusInactive:
		query += ` AND is_active = 0`
	default:
		return nil, fmt.Errorf("unknown member status filter: %q", status)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// SearchMembers returns members whose name contains the given term
// (case-insensitive).
func SearchMembers(ctx context.Context, db *sql.DB, name string) ([]model.Member, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members
		 WHERE deleted_at IS NULL AND name LIKE ? ORDER BY name`,
		"%"+name+"%")
	if err != nil {
		return nil, fmt.Errorf("searching members: %w", err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

// UpdateMember updates a member's contact details. The membership date and
// loan counter are not touched.
func UpdateMember(ctx context.Context, db *sql.DB, id int64, m model.Member) (*model.Member, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM members WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: member %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}

	var other int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM members WHERE email = ? AND id != ? AND deleted_at IS NULL`,
		m.Email, id,
	).Scan(&other)
	if err == nil {
		return nil, fmt.Errorf("%w: member with email %s already exists", ErrDuplicateKey, m.Email)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE members SET name = ?, email = ?, phone = ?, address = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		m.Name, m.Email, nullString(m.Phone), nullString(m.Address), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing member update: %w", err)
	}

	return GetMember(ctx, db, id)
}

// SetMemberActive activates or deactivates a member. Existing loans are
// unaffected; an inactive member can still return books.
func SetMemberActive(ctx context.Context, db *sql.DB, id int64, active bool) (*model.Member, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE members SET is_active = ? WHERE id = ? AND deleted_at IS NULL`,
		active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating member status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: member %d", ErrNotFound, id)
	}
	return GetMember(ctx, db, id)
}

// DeleteMember soft-deletes a member. Fails while the member has books out.
func DeleteMember(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var borrowed int
	err = tx.QueryRowContext(ctx,
		`SELECT books_borrowed FROM members WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&borrowed)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: member %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("getting member: %w", err)
	}
	if borrowed > 0 {
		return fmt.Errorf("%w: member has %d books out", ErrConflict, borrowed)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE members SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing member deletion: %w", err)
	}
	return nil
}

func scanMember(s rowScanner) (*model.Member, error) {
	m := &model.Member{}
	var phone, address sql.NullString
	err := s.Scan(&m.ID, &m.Name, &m.Email, &phone, &address,
		&m.MembershipDate, &m.IsActive, &m.BooksBorrowed, &m.DeletedAt)
	if err != nil {
		return nil, err
	}
	m.Phone = phone.String
	m.Address = address.String
	return m, nil
}

func scanMemberRow(row *sql.Row) (*model.Member, error) {
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting member: %w", err)
	}
	return m, nil
}

func scanMembers(rows *sql.Rows) ([]model.Member, error) {
	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}
