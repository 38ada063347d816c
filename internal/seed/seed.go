// Package seed loads a fixed starter catalog and member list on first run.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/matevzj/knjiznica/internal/model"
	"github.com/matevzj/knjiznica/internal/store"
)

var catalog = []model.Book{
	{Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "9780743273565",
		Category: "Fiction", TotalCopies: 5, PublicationYear: 1925, Publisher: "Scribner",
		Description: "A classic American novel set in the Jazz Age"},
	{Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "9780061120084",
		Category: "Fiction", TotalCopies: 4, PublicationYear: 1960, Publisher: "J.B. Lippincott & Co.",
		Description: "A gripping tale of racial injustice and childhood innocence"},
	{Title: "1984", Author: "George Orwell", ISBN: "9780451524935",
		Category: "Science Fiction", TotalCopies: 6, PublicationYear: 1949, Publisher: "Secker & Warburg",
		Description: "A dystopian social science fiction novel"},
	{Title: "Pride and Prejudice", Author: "Jane Austen", ISBN: "9780141439518",
		Category: "Romance", TotalCopies: 3, PublicationYear: 1813, Publisher: "T. Egerton",
		Description: "A romantic novel of manners"},
	{Title: "The Catcher in the Rye", Author: "J.D. Salinger", ISBN: "9780316769174",
		Category: "Fiction", TotalCopies: 4, PublicationYear: 1951, Publisher: "Little, Brown and Company",
		Description: "A story about teenage rebellion"},
	{Title: "Harry Potter and the Sorcerer's Stone", Author: "J.K. Rowling", ISBN: "9780439708180",
		Category: "Fantasy", TotalCopies: 8, PublicationYear: 1997, Publisher: "Scholastic",
		Description: "The first book in the Harry Potter series"},
	{Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "9780547928227",
		Category: "Fantasy", TotalCopies: 5, PublicationYear: 1937, Publisher: "George Allen & Unwin",
		Description: "A fantasy novel and children's book"},
	{Title: "Brave New World", Author: "Aldous Huxley", ISBN: "9780060850524",
		Category: "Science Fiction", TotalCopies: 4, PublicationYear: 1932, Publisher: "Chatto & Windus",
		Description: "A dystopian novel set in a futuristic World State"},
	{Title: "The Lord of the Rings", Author: "J.R.R. Tolkien", ISBN: "9780544003415",
		Category: "Fantasy", TotalCopies: 6, PublicationYear: 1954, Publisher: "George Allen & Unwin",
		Description: "An epic high-fantasy novel"},
	{Title: "Animal Farm", Author: "George Orwell", ISBN: "9780451526342",
		Category: "Fiction", TotalCopies: 5, PublicationYear: 1945, Publisher: "Secker & Warburg",
		Description: "An allegorical novella about Soviet Russia"},
}

var members = []model.Member{
	{Name: "John Doe", Email: "john.doe@email.com", Phone: "1234567890",
		Address: "123 Main St, City, State 12345"},
	{Name: "Jane Smith", Email: "jane.smith@email.com", Phone: "0987654321",
		Address: "456 Oak Ave, City, State 12345"},
	{Name: "Mike Johnson", Email: "mike.johnson@email.com", Phone: "1112223333",
		Address: "789 Pine Rd, City, State 12345"},
	{Name: "Sarah Williams", Email: "sarah.williams@email.com", Phone: "4445556666",
		Address: "321 Elm St, City, State 12345"},
	{Name: "David Brown", Email: "david.brown@email.com", Phone: "7778889999",
		Address: "654 Maple Dr, City, State 12345"},
}

// Run loads the starter data unless the catalog already has any books
// (including removed ones), in which case it does nothing.
func Run(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return fmt.Errorf("checking catalog: %w", err)
	}
	if count > 0 {
		slog.Info("catalog already populated, skipping seed")
		return nil
	}

	for _, b := range catalog {
		if _, err := store.CreateBook(ctx, db, b); err != nil {
			return fmt.Errorf("seeding book %q: %w", b.Title, err)
		}
	}
	for _, m := range members {
		if _, err := store.CreateMember(ctx, db, m); err != nil {
			return fmt.Errorf("seeding member %q: %w", m.Name, err)
		}
	}

	slog.Info("seed data loaded", "books", len(catalog), "members", len(members))
	return nil
}
