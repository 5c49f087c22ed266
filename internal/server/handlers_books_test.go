package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"skywardportal/pkg/domain"
)

func uploadBooks(t *testing.T, s *Server, token, title string, names ...string) []domain.Book {
	t.Helper()
	body, contentType := multipartUpload(t, map[string]string{
		"title":       title,
		"description": "<p>desc</p>",
	}, "files", names...)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/books", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Items []domain.Book `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp.Items
}

func TestAdminBookUploadAndPublicCatalog(t *testing.T) {
	s := newTestServer()
	admin := signup(t, s, "admin@example.com")

	books := uploadBooks(t, s, admin.Token, "Night Flight", "a.pdf", "b.pdf")
	if len(books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(books))
	}
	if books[0].Title != "Night Flight (1)" || books[1].Title != "Night Flight (2)" {
		t.Fatalf("titles = %q, %q", books[0].Title, books[1].Title)
	}
	if !books[0].IsPrimary || books[1].IsPrimary {
		t.Fatalf("only the first upload into an empty catalog is primary")
	}
	if books[0].Description != "desc" {
		t.Fatalf("description must be stripped, got %q", books[0].Description)
	}

	// Catalog preview is public and carries no file paths.
	rec := doJSON(s, http.MethodGet, "/api/books", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("catalog status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "books/") {
		t.Fatalf("catalog must not leak storage keys: %s", rec.Body.String())
	}

	// Non-admin cannot upload.
	reader := signup(t, s, "reader@example.com")
	body, contentType := multipartUpload(t, map[string]string{"title": "Nope"}, "files", "c.pdf")
	req := httptest.NewRequest(http.MethodPost, "/api/admin/books", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+reader.Token)
	rec2 := httptest.NewRecorder()
	s.Router().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusForbidden {
		t.Fatalf("non-admin upload status = %d", rec2.Code)
	}
}

func TestAdminBookEditPrimaryDelete(t *testing.T) {
	s := newTestServer()
	admin := signup(t, s, "admin@example.com")
	books := uploadBooks(t, s, admin.Token, "First", "a.pdf")
	more := uploadBooks(t, s, admin.Token, "Second", "b.pdf")

	title := "Renamed"
	rec := doJSON(s, http.MethodPatch, "/api/admin/books/"+books[0].ID, admin.Token, updateBookRequest{Title: &title})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated domain.Book
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode book: %v", err)
	}
	if updated.Title != "Renamed" {
		t.Fatalf("title = %q", updated.Title)
	}

	rec = doJSON(s, http.MethodPost, "/api/admin/books/"+more[0].ID+"/primary", admin.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("set primary status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(s, http.MethodDelete, "/api/admin/books/"+books[0].ID, admin.Token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(s, http.MethodDelete, "/api/admin/books/nope", admin.Token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete unknown status = %d", rec.Code)
	}
}

func TestPrimaryContentGatingOverHTTP(t *testing.T) {
	s := newTestServer()
	admin := signup(t, s, "admin@example.com")
	uploadBooks(t, s, admin.Token, "The Book", "book.pdf")

	reader := signup(t, s, "reader@example.com")

	// No lead yet: forbidden.
	rec := doJSON(s, http.MethodGet, "/api/books/primary/content", reader.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("no-lead content status = %d", rec.Code)
	}

	lead := captureLead(t, s, reader.Token)
	rec = doJSON(s, http.MethodGet, "/api/books/primary/content", reader.Token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pending content status = %d", rec.Code)
	}

	adminApprove(t, s, admin.Token, lead.Lead.ID)
	rec = doJSON(s, http.MethodGet, "/api/books/primary/content", reader.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approved content status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp primaryContentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode content response: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "https://objects.test/books/") {
		t.Fatalf("unexpected content url: %q", resp.URL)
	}
}
