package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/matevzj/knjiznica/internal/imaging"
	"github.com/matevzj/knjiznica/internal/model"
	"github.com/matevzj/knjiznica/internal/store"
)

// BooksHandler handles catalog endpoints.
type BooksHandler struct {
	DB *sql.DB
}

type bookRequest struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Category        string `json:"category"`
	TotalCopies     int    `json:"total_copies"`
	PublicationYear int    `json:"publication_year"`
	Publisher       string `json:"publisher"`
	Description     string `json:"description"`
}

func (req *bookRequest) validate() string {
	switch {
	case req.Title == "":
		return "title required"
	case req.Author == "":
		return "author required"
	case req.ISBN == "":
		return "isbn required"
	case req.Category == "":
		return "category required"
	case req.TotalCopies < 1:
		return "total_copies must be at least 1"
	}
	return ""
}

func (req *bookRequest) toModel() model.Book {
	return model.Book{
		Title:           req.Title,
		Author:          req.Author,
		ISBN:            req.ISBN,
		Category:        req.Category,
		TotalCopies:     req.TotalCopies,
		PublicationYear: req.PublicationYear,
		Publisher:       req.Publisher,
		Description:     req.Description,
	}
}

// List handles GET /api/books.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	books, err := store.ListBooks(r.Context(), h.DB, category)
	if err != nil {
		storeError(w, err, "failed to list books")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// ListAvailable handles GET /api/books/available.
func (h *BooksHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	books, err := store.ListAvailableBooks(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list available books")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// Search handles GET /api/books/search.
func (h *BooksHandler) Search(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	author := r.URL.Query().Get("author")
	books, err := store.SearchBooks(r.Context(), h.DB, title, author)
	if err != nil {
		storeError(w, err, "failed to search books")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// Categories handles GET /api/books/categories.
func (h *BooksHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		storeError(w, err, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	book, err := store.CreateBook(r.Context(), h.DB, req.toModel())
	if err != nil {
		storeError(w, err, "failed to create book")
		return
	}

	jsonResponse(w, http.StatusCreated, book)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// GetByISBN handles GET /api/books/isbn/{isbn}.
func (h *BooksHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := store.GetBookByISBN(r.Context(), h.DB, r.PathValue("isbn"))
	if err != nil {
		storeError(w, err, "failed to get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// Update handles PUT /api/books/{id}.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		jsonError(w, http.StatusBadRequest, msg)
		return
	}

	book, err := store.UpdateBook(r.Context(), h.DB, id, req.toModel())
	if err != nil {
		storeError(w, err, "failed to update book")
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	if err := store.DeleteBook(r.Context(), h.DB, id); err != nil {
		storeError(w, err, "failed to delete book")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "book deleted"})
}

// UploadCover handles PUT /api/books/{id}/cover.
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	// Limit to 5 MB.
	r.Body = http.MaxBytesReader(w, r.Body, 5<<20)

	if err := r.ParseMultipartForm(5 << 20); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("cover")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "cover file required")
		return
	}
	defer file.Close()

	cover, err := imaging.Process(file)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetBookCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		storeError(w, err, "failed to save cover")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "cover uploaded"})
}

// GetCover handles GET /api/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	data, mime, err := store.GetBookCover(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get cover")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}

// GetHistory handles GET /api/books/{id}/history.
func (h *BooksHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err, "failed to get book")
		return
	}
	if book == nil {
		jsonError(w, http.StatusNotFound, "book not found")
		return
	}

	loans, err := store.ListLoans(r.Context(), h.DB, 0, id, "")
	if err != nil {
		storeError(w, err, "failed to get book history")
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	annotateOverdue(loans, time.Now())
	jsonResponse(w, http.StatusOK, loans)
}
