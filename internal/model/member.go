package model

import "time"

// Member represents a registered library member. BooksBorrowed is the
// running count of currently active loans and always matches the number of
// this member's loans with status "borrowed".
type Member struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone,omitempty"`
	Address        string     `json:"address,omitempty"`
	MembershipDate time.Time  `json:"membership_date"`
	IsActive       bool       `json:"is_active"`
	BooksBorrowed  int        `json:"books_borrowed"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// MaxActiveLoans is the hard cap on simultaneous active loans per member.
// Changing it is a lending-policy decision, not configuration.
const MaxActiveLoans = 5

// CanBorrow reports whether the member may take out another loan.
func (m *Member) CanBorrow() bool {
	return m.IsActive && m.BooksBorrowed < MaxActiveLoans
}

// MemberStats is a read-only aggregation over a member's loans.
type MemberStats struct {
	MemberID          int64     `json:"member_id"`
	Name              string    `json:"name"`
	MemberSince       time.Time `json:"member_since"`
	IsActive          bool      `json:"is_active"`
	TotalBorrowed     int       `json:"total_borrowed"`
	CurrentlyBorrowed int       `json:"currently_borrowed"`
	Returned          int       `json:"returned"`
	Overdue           int       `json:"overdue"`
}
