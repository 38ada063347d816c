// Package api exposes the library over JSON HTTP endpoints.
package api

import (
	"database/sql"
	"net/http"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB) http.Handler {
	mux := http.NewServeMux()

	booksHandler := &BooksHandler{DB: db}
	membersHandler := &MembersHandler{DB: db}
	loansHandler := &LoansHandler{DB: db}
	exportHandler := &ExportHandler{DB: db}

	// Catalog.
	mux.HandleFunc("GET /api/books", booksHandler.List)
	mux.HandleFunc("GET /api/books/available", booksHandler.ListAvailable)
	mux.HandleFunc("GET /api/books/search", booksHandler.Search)
	mux.HandleFunc("GET /api/books/categories", booksHandler.Categories)
	mux.HandleFunc("GET /api/books/isbn/{isbn}", booksHandler.GetByISBN)
	mux.HandleFunc("POST /api/books", booksHandler.Create)
	mux.HandleFunc("GET /api/books/{id}", booksHandler.Get)
	mux.HandleFunc("PUT /api/books/{id}", booksHandler.Update)
	mux.HandleFunc("DELETE /api/books/{id}", booksHandler.Delete)
	mux.HandleFunc("PUT /api/books/{id}/cover", booksHandler.UploadCover)
	mux.HandleFunc("GET /api/books/{id}/cover", booksHandler.GetCover)
	mux.HandleFunc("GET /api/books/{id}/history", booksHandler.GetHistory)

	// Membership.
	mux.HandleFunc("GET /api/members", membersHandler.List)
	mux.HandleFunc("GET /api/members/search", membersHandler.Search)
	mux.HandleFunc("GET /api/members/email/{email}", membersHandler.GetByEmail)
	mux.HandleFunc("POST /api/members", membersHandler.Create)
	mux.HandleFunc("GET /api/members/{id}", membersHandler.Get)
	mux.HandleFunc("PUT /api/members/{id}", membersHandler.Update)
	mux.HandleFunc("DELETE /api/members/{id}", membersHandler.Delete)
	mux.HandleFunc("PATCH /api/members/{id}/activate", membersHandler.Activate)
	mux.HandleFunc("PATCH /api/members/{id}/deactivate", membersHandler.Deactivate)
	mux.HandleFunc("GET /api/members/{id}/loans", membersHandler.GetLoans)
	mux.HandleFunc("GET /api/members/{id}/stats", membersHandler.GetStats)

	// Lending.
	mux.HandleFunc("POST /api/loans/borrow", loansHandler.Borrow)
	mux.HandleFunc("POST /api/loans/return", loansHandler.Return)
	mux.HandleFunc("GET /api/loans", loansHandler.List)
	mux.HandleFunc("GET /api/loans/overdue", loansHandler.Overdue)
	mux.HandleFunc("GET /api/loans/{id}", loansHandler.Get)

	// Downloads.
	mux.HandleFunc("GET /api/export/books/{format}", exportHandler.Books)
	mux.HandleFunc("GET /api/export/members/{format}", exportHandler.Members)
	mux.HandleFunc("GET /api/export/loans/{format}", exportHandler.Loans)

	return mux
}
