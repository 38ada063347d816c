package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/matevzj/knjiznica/internal/model"
)

const bookColumns = `id, title, author, isbn, category, total_copies, available_copies,
	 publication_year, publisher, description, cover_mime, created_at, updated_at, deleted_at`

// CreateBook adds a book to the catalog. All copies start available.
func CreateBook(ctx context.Context, db *sql.DB, b model.Book) (*model.Book, error) {
	if b.TotalCopies < 1 {
		return nil, fmt.Errorf("%w: total copies must be at least 1", ErrInvalidState)
	}

	var existing int64
	err := db.QueryRowContext(ctx,
		`SELECT id FROM books WHERE isbn = ? AND deleted_at IS NULL`, b.ISBN,
	).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("%w: book with ISBN %s already exists", ErrDuplicateKey, b.ISBN)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking ISBN: %w", err)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO books (title, author, isbn, category, total_copies, available_copies,
		                    publication_year, publisher, description)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Title, b.Author, b.ISBN, b.Category, b.TotalCopies, b.TotalCopies,
		nullInt(b.PublicationYear), nullString(b.Publisher), nullString(b.Description),
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, db, id)
}

// GetBook returns a book by ID.
func GetBook(ctx context.Context, db *sql.DB, id int64) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
	return scanBookRow(row)
}

// GetBookByISBN returns a non-deleted book by ISBN.
func GetBookByISBN(ctx context.Context, db *sql.DB, isbn string) (*model.Book, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = ? AND deleted_at IS NULL`, isbn)
	return scanBookRow(row)
}

// ListBooks returns all non-deleted books, optionally filtered by category.
func ListBooks(ctx context.Context, db *sql.DB, category string) ([]model.Book, error) {
	var rows *sql.Rows
	var err error

	if category != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+bookColumns+` FROM books
			 WHERE deleted_at IS NULL AND category = ? COLLATE NOCASE ORDER BY title`, category)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+bookColumns+` FROM books WHERE deleted_at IS NULL ORDER BY title`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// ListAvailableBooks returns books with at least one copy on the shelf.
func ListAvailableBooks(ctx context.Context, db *sql.DB) ([]model.Book, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE deleted_at IS NULL AND available_copies > 0 ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("listing available books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// SearchBooks returns books whose title or author contains the given terms
// (case-insensitive). Empty terms match everything.
func SearchBooks(ctx context.Context, db *sql.DB, title, author string) ([]model.Book, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE deleted_at IS NULL AND title LIKE ? AND author LIKE ?
		 ORDER BY title`,
		"%"+title+"%", "%"+author+"%")
	if err != nil {
		return nil, fmt.Errorf("searching books: %w", err)
	}
	defer rows.Close()

	return scanBooks(rows)
}

// ListCategories returns the distinct categories in the catalog.
func ListCategories(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT DISTINCT category FROM books WHERE deleted_at IS NULL ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateBook updates a book's details. Available copies are re-derived by
// applying the change in total copies, so outstanding loans stay accounted
// for; if the new total would push available copies negative the update is
// rejected.
func UpdateBook(ctx context.Context, db *sql.DB, id int64, b model.Book) (*model.Book, error) {
	if b.TotalCopies < 1 {
		return nil, fmt.Errorf("%w: total copies must be at least 1", ErrInvalidState)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var oldTotal, oldAvailable int
	err = tx.QueryRowContext(ctx,
		`SELECT total_copies, available_copies FROM books
		 WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&oldTotal, &oldAvailable)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}

	var other int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM books WHERE isbn = ? AND id != ? AND deleted_at IS NULL`,
		b.ISBN, id,
	).Scan(&other)
	if err == nil {
		return nil, fmt.Errorf("%w: book with ISBN %s already exists", ErrDuplicateKey, b.ISBN)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking ISBN: %w", err)
	}

	newAvailable := oldAvailable + (b.TotalCopies - oldTotal)
	if newAvailable < 0 {
		return nil, fmt.Errorf("%w: %d copies are on loan, total cannot drop below that",
			ErrInvalidState, oldTotal-oldAvailable)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET title = ?, author = ?, isbn = ?, category = ?,
		        total_copies = ?, available_copies = ?, publication_year = ?,
		        publisher = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		b.Title, b.Author, b.ISBN, b.Category, b.TotalCopies, newAvailable,
		nullInt(b.PublicationYear), nullString(b.Publisher), nullString(b.Description), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing book update: %w", err)
	}

	return GetBook(ctx, db, id)
}

// DeleteBook soft-deletes a book. Fails while any copy is out on loan.
func DeleteBook(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM books WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("getting book: %w", err)
	}

	var active int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE book_id = ? AND status = ?`,
		id, model.LoanStatusBorrowed,
	).Scan(&active)
	if err != nil {
		return fmt.Errorf("checking active loans: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: book has %d active loans", ErrConflict, active)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting book: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing book deletion: %w", err)
	}
	return nil
}

// SetBookCover stores a book's cover image.
func SetBookCover(ctx context.Context, db *sql.DB, id int64, cover []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET cover = ?, cover_mime = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		cover, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting book cover: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: book %d", ErrNotFound, id)
	}
	return nil
}

// GetBookCover returns a book's cover image data and MIME type.
func GetBookCover(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var cover []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT cover, cover_mime FROM books WHERE id = ?`, id,
	).Scan(&cover, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting book cover: %w", err)
	}
	return cover, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(s rowScanner) (*model.Book, error) {
	b := &model.Book{}
	var year sql.NullInt64
	var publisher, description, coverMime sql.NullString
	err := s.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category,
		&b.TotalCopies, &b.AvailableCopies, &year, &publisher, &description,
		&coverMime, &b.CreatedAt, &b.UpdatedAt, &b.DeletedAt)
	if err != nil {
		return nil, err
	}
	b.PublicationYear = int(year.Int64)
	b.Publisher = publisher.String
	b.Description = description.String
	b.CoverMime = coverMime.String
	return b, nil
}

func scanBookRow(row *sql.Row) (*model.Book, error) {
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return b, nil
}

func scanBooks(rows *sql.Rows) ([]model.Book, error) {
	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
