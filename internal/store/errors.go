// Package store implements all database access and the lending business
// rules. Every mutating operation either fully applies or leaves the
// database untouched.
package store

import "errors"

// Sentinel errors returned by store operations. Callers match them with
// errors.Is; the wrapped message names the violated rule.
var (
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned on a unique-constraint violation
	// (ISBN, email).
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrPolicyViolation is returned when a lending rule rejects the
	// operation: inactive member, no available copies, loan limit reached,
	// loan already returned.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrInvalidState is returned when the requested mutation would break
	// an invariant, such as pushing available copies negative.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict is returned when a deletion is blocked by dependent
	// records.
	ErrConflict = errors.New("conflict")
)
