package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS books (
    id               INTEGER PRIMARY KEY,
    title            TEXT NOT NULL,
    author           TEXT NOT NULL,
    isbn             TEXT NOT NULL,
    category         TEXT NOT NULL,
    total_copies     INTEGER NOT NULL CHECK (total_copies >= 1),
    available_copies INTEGER NOT NULL CHECK (available_copies >= 0 AND available_copies <= total_copies),
    publication_year INTEGER,
    publisher        TEXT,
    description      TEXT,
    cover            BLOB,
    cover_mime       TEXT,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_books_isbn_active
    ON books(isbn) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS members (
    id              INTEGER PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL,
    phone           TEXT,
    address         TEXT,
    membership_date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    is_active       INTEGER NOT NULL DEFAULT 1,
    books_borrowed  INTEGER NOT NULL DEFAULT 0 CHECK (books_borrowed >= 0),
    deleted_at      DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_members_email_active
    ON members(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS loans (
    id          INTEGER PRIMARY KEY,
    book_id     INTEGER NOT NULL REFERENCES books(id),
    member_id   INTEGER NOT NULL REFERENCES members(id),
    borrow_date DATETIME NOT NULL,
    due_date    DATETIME NOT NULL,
    return_date DATETIME,
    status      TEXT NOT NULL DEFAULT 'borrowed' CHECK (status IN ('borrowed', 'returned')),
    fine_amount REAL NOT NULL DEFAULT 0 CHECK (fine_amount >= 0)
);

CREATE INDEX IF NOT EXISTS idx_loans_member ON loans(member_id);
CREATE INDEX IF NOT EXISTS idx_loans_book ON loans(book_id);
CREATE INDEX IF NOT EXISTS idx_loans_status_due ON loans(status, due_date);
`

// migrations is a list of SQL statements applied in order after schema
// creation. Each migration must be idempotent. Append new migrations at
// the end.
var migrations = []string{
	// Migration 1: partial unique indexes on isbn/email covering only
	// non-deleted rows, so a removed book's ISBN or a removed member's
	// email can be registered again.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_books_isbn_active
	     ON books(isbn) WHERE deleted_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_members_email_active
	     ON members(email) WHERE deleted_at IS NULL`,
}

// Migrate creates the schema if missing and runs the migration list.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
