package seed

import (
	"context"
	"testing"

	"github.com/matevzj/knjiznica/internal/db"
	"github.com/matevzj/knjiznica/internal/store"
)

func TestRunLoadsOnce(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := Run(ctx, database); err != nil {
		t.Fatalf("Run: %v", err)
	}

	books, err := store.ListBooks(ctx, database, "")
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != len(catalog) {
		t.Errorf("expected %d books, got %d", len(catalog), len(books))
	}

	members, err := store.ListMembers(ctx, database, "")
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 5 {
		t.Errorf("expected 5 members, got %d", len(members))
	}

	// A second run must be a no-op, not a duplicate-key failure.
	if err := Run(ctx, database); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	books, _ = store.ListBooks(ctx, database, "")
	if len(books) != len(catalog) {
		t.Errorf("second run changed the catalog: %d books", len(books))
	}
}

func TestRunSkipsNonEmptyCatalog(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := store.CreateBook(ctx, database, catalog[0]); err != nil {
		t.Fatalf("CreateBook: %v", err)
	}

	if err := Run(ctx, database); err != nil {
		t.Fatalf("Run: %v", err)
	}

	books, _ := store.ListBooks(ctx, database, "")
	if len(books) != 1 {
		t.Errorf("seed should have been skipped, got %d books", len(books))
	}
}
