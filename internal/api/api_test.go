package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/matevzj/knjiznica/internal/db"
	"github.com/matevzj/knjiznica/internal/model"
	"github.com/matevzj/knjiznica/internal/store"
)

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	server := httptest.NewServer(NewRouter(database))
	t.Cleanup(server.Close)
	return server, database
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func createTestBook(t *testing.T, server *httptest.Server, isbn string, copies int) model.Book {
	t.Helper()
	resp := doJSON(t, "POST", server.URL+"/api/books", map[string]any{
		"title":        "Test Book " + isbn,
		"author":       "Test Author",
		"isbn":         isbn,
		"category":     "Fiction",
		"total_copies": copies,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("creating book: expected 201, got %d", resp.StatusCode)
	}
	return decodeBody[model.Book](t, resp)
}

func createTestMember(t *testing.T, server *httptest.Server, email string) model.Member {
	t.Helper()
	resp := doJSON(t, "POST", server.URL+"/api/members", map[string]string{
		"name":  "Test Member",
		"email": email,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("creating member: expected 201, got %d", resp.StatusCode)
	}
	return decodeBody[model.Member](t, resp)
}

func TestBooksAPIFlow(t *testing.T) {
	server, _ := setupTestServer(t)

	book := createTestBook(t, server, "9780000000001", 3)
	if book.AvailableCopies != 3 {
		t.Errorf("expected 3 available copies, got %d", book.AvailableCopies)
	}

	// Duplicate ISBN is a conflict.
	resp := doJSON(t, "POST", server.URL+"/api/books", map[string]any{
		"title": "Again", "author": "A", "isbn": "9780000000001",
		"category": "Fiction", "total_copies": 1,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate ISBN, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Lookup by ISBN.
	resp = doJSON(t, "GET", server.URL+"/api/books/isbn/9780000000001", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	found := decodeBody[model.Book](t, resp)
	if found.ID != book.ID {
		t.Errorf("ISBN lookup returned book %d, want %d", found.ID, book.ID)
	}

	// Update.
	resp = doJSON(t, "PUT", fmt.Sprintf("%s/api/books/%d", server.URL, book.ID), map[string]any{
		"title": "Renamed", "author": "Test Author", "isbn": "9780000000001",
		"category": "Fiction", "total_copies": 5,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	updated := decodeBody[model.Book](t, resp)
	if updated.Title != "Renamed" || updated.AvailableCopies != 5 {
		t.Errorf("unexpected updated book: %+v", updated)
	}

	// Delete, then 404.
	resp = doJSON(t, "DELETE", fmt.Sprintf("%s/api/books/%d", server.URL, book.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "PUT", fmt.Sprintf("%s/api/books/%d", server.URL, book.ID), map[string]any{
		"title": "Ghost", "author": "A", "isbn": "9780000000001",
		"category": "Fiction", "total_copies": 1,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 updating deleted book, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestBookValidation(t *testing.T) {
	server, _ := setupTestServer(t)

	resp := doJSON(t, "POST", server.URL+"/api/books", map[string]any{
		"title": "No Author", "isbn": "1", "category": "Fiction", "total_copies": 1,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing author, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "POST", server.URL+"/api/books", map[string]any{
		"title": "T", "author": "A", "isbn": "1", "category": "Fiction", "total_copies": 0,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for zero copies, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMembersAPIFlow(t *testing.T) {
	server, _ := setupTestServer(t)

	member := createTestMember(t, server, "flow@example.com")
	if !member.IsActive || member.BooksBorrowed != 0 {
		t.Errorf("unexpected new member: %+v", member)
	}

	// Duplicate email is a conflict.
	resp := doJSON(t, "POST", server.URL+"/api/members", map[string]string{
		"name": "Other", "email": "flow@example.com",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate email, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Lookup by email.
	resp = doJSON(t, "GET", server.URL+"/api/members/email/flow@example.com", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	found := decodeBody[model.Member](t, resp)
	if found.ID != member.ID {
		t.Errorf("email lookup returned member %d, want %d", found.ID, member.ID)
	}

	// Deactivate, filter, reactivate.
	resp = doJSON(t, "PATCH", fmt.Sprintf("%s/api/members/%d/deactivate", server.URL, member.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	deactivated := decodeBody[model.Member](t, resp)
	if deactivated.IsActive {
		t.Error("member still active after deactivate")
	}

	resp = doJSON(t, "GET", server.URL+"/api/members?status=inactive", nil)
	inactive := decodeBody[[]model.Member](t, resp)
	if len(inactive) != 1 {
		t.Errorf("expected 1 inactive member, got %d", len(inactive))
	}

	resp = doJSON(t, "PATCH", fmt.Sprintf("%s/api/members/%d/activate", server.URL, member.ID), nil)
	reactivated := decodeBody[model.Member](t, resp)
	if !reactivated.IsActive {
		t.Error("member still inactive after activate")
	}
}

func TestLendingAPIFlow(t *testing.T) {
	server, _ := setupTestServer(t)

	book := createTestBook(t, server, "9780000000002", 1)
	member := createTestMember(t, server, "lend@example.com")

	// Borrow.
	resp := doJSON(t, "POST", server.URL+"/api/loans/borrow", map[string]int64{
		"member_id": member.ID, "book_id": book.ID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	loan := decodeBody[model.Loan](t, resp)
	if loan.Status != model.LoanStatusBorrowed {
		t.Errorf("expected borrowed loan, got %q", loan.Status)
	}
	if got := loan.DueDate.Sub(loan.BorrowDate).Hours() / 24; got != model.LoanPeriodDays {
		t.Errorf("expected %d day period, got %.1f", model.LoanPeriodDays, got)
	}

	// The only copy is out.
	resp = doJSON(t, "GET", fmt.Sprintf("%s/api/books/%d", server.URL, book.ID), nil)
	fetched := decodeBody[model.Book](t, resp)
	if fetched.AvailableCopies != 0 {
		t.Errorf("expected 0 available copies, got %d", fetched.AvailableCopies)
	}

	// A second borrow of the same book fails the availability rule.
	other := createTestMember(t, server, "other@example.com")
	resp = doJSON(t, "POST", server.URL+"/api/loans/borrow", map[string]int64{
		"member_id": other.ID, "book_id": book.ID,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for unavailable book, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Deleting the book while on loan is a conflict.
	resp = doJSON(t, "DELETE", fmt.Sprintf("%s/api/books/%d", server.URL, book.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 deleting loaned book, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Member loans show the active loan.
	resp = doJSON(t, "GET", fmt.Sprintf("%s/api/members/%d/loans", server.URL, member.ID), nil)
	loans := decodeBody[[]model.Loan](t, resp)
	if len(loans) != 1 || loans[0].ID != loan.ID {
		t.Fatalf("unexpected member loans: %+v", loans)
	}
	if loans[0].BookTitle == "" || loans[0].MemberName == "" {
		t.Error("expected joined book title and member name")
	}

	// Return.
	resp = doJSON(t, "POST", server.URL+"/api/loans/return", map[string]int64{"loan_id": loan.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	returned := decodeBody[model.Loan](t, resp)
	if returned.Status != model.LoanStatusReturned || returned.ReturnDate == nil {
		t.Errorf("unexpected returned loan: %+v", returned)
	}
	if returned.FineAmount != 0 {
		t.Errorf("on-time return should carry no fine, got %.2f", returned.FineAmount)
	}

	// A second return is rejected.
	resp = doJSON(t, "POST", server.URL+"/api/loans/return", map[string]int64{"loan_id": loan.ID})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for double return, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Stats reflect the round trip.
	resp = doJSON(t, "GET", fmt.Sprintf("%s/api/members/%d/stats", server.URL, member.ID), nil)
	stats := decodeBody[model.MemberStats](t, resp)
	if stats.TotalBorrowed != 1 || stats.Returned != 1 || stats.CurrentlyBorrowed != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestBorrowRejectionsOverAPI(t *testing.T) {
	server, _ := setupTestServer(t)

	book := createTestBook(t, server, "9780000000003", 5)
	member := createTestMember(t, server, "reject@example.com")

	// Unknown member.
	resp := doJSON(t, "POST", server.URL+"/api/loans/borrow", map[string]int64{
		"member_id": 9999, "book_id": book.ID,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown member, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown book.
	resp = doJSON(t, "POST", server.URL+"/api/loans/borrow", map[string]int64{
		"member_id": member.ID, "book_id": 9999,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown book, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Inactive member.
	resp = doJSON(t, "PATCH", fmt.Sprintf("%s/api/members/%d/deactivate", server.URL, member.ID), nil)
	resp.Body.Close()
	resp = doJSON(t, "POST", server.URL+"/api/loans/borrow", map[string]int64{
		"member_id": member.ID, "book_id": book.ID,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for inactive member, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing IDs.
	resp = doJSON(t, "POST", server.URL+"/api/loans/borrow", map[string]int64{"book_id": book.ID})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing member_id, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOverdueEndpoint(t *testing.T) {
	server, database := setupTestServer(t)
	ctx := context.Background()

	book := createTestBook(t, server, "9780000000004", 1)
	member := createTestMember(t, server, "overdue@example.com")

	// Backdate a borrow well past the due date.
	past := time.Now().AddDate(0, 0, -30)
	if _, err := store.BorrowBook(ctx, database, member.ID, book.ID, past); err != nil {
		t.Fatalf("BorrowBook: %v", err)
	}

	resp := doJSON(t, "GET", server.URL+"/api/loans/overdue", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	overdue := decodeBody[[]model.Loan](t, resp)
	if len(overdue) != 1 {
		t.Fatalf("expected 1 overdue loan, got %d", len(overdue))
	}
	if overdue[0].Status != model.LoanStatusOverdue {
		t.Errorf("expected overdue label, got %q", overdue[0].Status)
	}

	// The same loan appears under the computed status filter.
	resp = doJSON(t, "GET", server.URL+"/api/loans?status=overdue", nil)
	filtered := decodeBody[[]model.Loan](t, resp)
	if len(filtered) != 1 || filtered[0].ID != overdue[0].ID {
		t.Errorf("unexpected filtered loans: %+v", filtered)
	}

	// Stored status is still borrowed.
	stored, err := store.GetLoan(ctx, database, overdue[0].ID)
	if err != nil {
		t.Fatalf("GetLoan: %v", err)
	}
	if stored.Status != model.LoanStatusBorrowed {
		t.Errorf("stored status changed to %q", stored.Status)
	}
}

func TestCoverUploadRoundTrip(t *testing.T) {
	server, _ := setupTestServer(t)
	book := createTestBook(t, server, "9780000000005", 1)

	// Encode a small PNG and send it as multipart.
	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 4), B: 120, A: 255})
		}
	}
	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, img); err != nil {
		t.Fatalf("encoding PNG: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("cover", "cover.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write(imgBuf.Bytes())
	mw.Close()

	url := fmt.Sprintf("%s/api/books/%d/cover", server.URL, book.ID)
	req, _ := http.NewRequest("PUT", url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("uploading cover: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Stored covers are normalized to JPEG.
	resp = doJSON(t, "GET", url, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", ct)
	}
}

func TestExportEndpoints(t *testing.T) {
	server, _ := setupTestServer(t)
	createTestBook(t, server, "9780000000006", 2)

	resp := doJSON(t, "GET", server.URL+"/api/export/books/csv", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", server.URL+"/api/export/loans/xlsx", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", server.URL+"/api/export/books/pdf", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
