package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func uploadFiles(names ...string) []UploadFile {
	files := make([]UploadFile, 0, len(names))
	for _, name := range names {
		content := []byte("%PDF-1.4 stub " + name)
		files = append(files, UploadFile{
			Name:    name,
			Size:    int64(len(content)),
			Content: bytes.NewReader(content),
		})
	}
	return files
}

func TestUploadSingleBook(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, objects, _ := newTestApp(clock)

	books, err := a.UploadBooks(context.Background(), "admin-1", "Night Flight", "<p>A <b>guide</b></p>", uploadFiles("book.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("expected 1 book, got %d", len(books))
	}
	book := books[0]
	if book.Title != "Night Flight" {
		t.Fatalf("single upload keeps the title verbatim, got %q", book.Title)
	}
	if book.Description != "A guide" {
		t.Fatalf("description must be stripped of markup, got %q", book.Description)
	}
	if !book.IsPrimary {
		t.Fatalf("first book into an empty catalog must be primary")
	}
	if book.DisplayOrder != 0 {
		t.Fatalf("display order = %d, want 0", book.DisplayOrder)
	}
	if book.ContentType != "application/pdf" {
		t.Fatalf("content type = %q", book.ContentType)
	}
	if !strings.HasPrefix(book.FilePath, "books/admin-1/") {
		t.Fatalf("unexpected storage key: %q", book.FilePath)
	}
	keys := objects.keys()
	if len(keys) != 1 || keys[0] != book.FilePath {
		t.Fatalf("object not stored under the book's path: %v", keys)
	}
}

func TestUploadMultipleBooks(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, _, _ := newTestApp(clock)

	if _, err := a.UploadBooks(context.Background(), "admin-1", "Existing", "", uploadFiles("first.pdf")); err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	books, err := a.UploadBooks(context.Background(), "admin-1", "Series", "", uploadFiles("a.pdf", "b.pdf", "c.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("expected 3 books, got %d", len(books))
	}
	for i, book := range books {
		want := fmt.Sprintf("Series (%d)", i+1)
		if book.Title != want {
			t.Fatalf("title[%d] = %q, want %q", i, book.Title, want)
		}
		if book.IsPrimary {
			t.Fatalf("uploads into a non-empty catalog never become primary")
		}
		if book.DisplayOrder != 1+i {
			t.Fatalf("display order[%d] = %d, want %d", i, book.DisplayOrder, 1+i)
		}
	}

	all, err := a.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 books, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].DisplayOrder > all[i].DisplayOrder {
			t.Fatalf("catalog must be ordered by display_order")
		}
	}
}

func TestUploadValidation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, _, _ := newTestApp(clock)

	if _, err := a.UploadBooks(context.Background(), "admin-1", "  ", "", uploadFiles("a.pdf")); err == nil {
		t.Fatalf("expected error for empty title")
	}
	if _, err := a.UploadBooks(context.Background(), "admin-1", "Title", "", nil); err == nil {
		t.Fatalf("expected error for missing files")
	}
}

func TestUploadStopsOnStorageFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, objects, _ := newTestApp(clock)
	objects.failPut = true

	books, err := a.UploadBooks(context.Background(), "admin-1", "Title", "", uploadFiles("a.pdf"))
	if err == nil {
		t.Fatalf("expected storage error to surface")
	}
	if len(books) != 0 {
		t.Fatalf("no row may be created for an unstored file")
	}
	all, err := a.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("catalog must stay empty, got %d rows", len(all))
	}
}

func TestSetPrimaryBook(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, st, _, _ := newTestApp(clock)

	first, err := a.UploadBooks(context.Background(), "admin-1", "First", "", uploadFiles("a.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	second, err := a.UploadBooks(context.Background(), "admin-1", "Second", "", uploadFiles("b.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	promoted, err := a.SetPrimaryBook(second[0].ID)
	if err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if !promoted.IsPrimary {
		t.Fatalf("promoted book must be primary")
	}
	old, _, err := st.GetBook(first[0].ID)
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if old.IsPrimary {
		t.Fatalf("previous primary must be cleared")
	}
	primary, ok, err := st.GetPrimaryBook()
	if err != nil || !ok {
		t.Fatalf("primary lookup: ok=%v err=%v", ok, err)
	}
	if primary.ID != second[0].ID {
		t.Fatalf("primary = %q, want %q", primary.ID, second[0].ID)
	}

	if _, err := a.SetPrimaryBook("nope"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestUpdateBook(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, _, _ := newTestApp(clock)

	books, err := a.UploadBooks(context.Background(), "admin-1", "Draft", "", uploadFiles("a.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	title := "Final"
	desc := "<i>polished</i>"
	order := 7
	updated, err := a.UpdateBook(books[0].ID, UpdateBookParams{Title: &title, Description: &desc, DisplayOrder: &order})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Final" || updated.Description != "polished" || updated.DisplayOrder != 7 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	empty := " "
	if _, err := a.UpdateBook(books[0].ID, UpdateBookParams{Title: &empty}); err == nil {
		t.Fatalf("expected error for blank title")
	}
	if _, err := a.UpdateBook("nope", UpdateBookParams{}); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestDeleteBook(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, objects, _ := newTestApp(clock)

	books, err := a.UploadBooks(context.Background(), "admin-1", "Doomed", "", uploadFiles("a.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := a.DeleteBook(context.Background(), books[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if keys := objects.keys(); len(keys) != 0 {
		t.Fatalf("object must be removed: %v", keys)
	}
	all, err := a.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("row must be removed, got %d", len(all))
	}

	if err := a.DeleteBook(context.Background(), "nope"); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}

func TestDeleteBookKeepsRowOnStorageFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, objects, _ := newTestApp(clock)

	books, err := a.UploadBooks(context.Background(), "admin-1", "Sticky", "", uploadFiles("a.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	objects.failRemove = true
	if err := a.DeleteBook(context.Background(), books[0].ID); err == nil {
		t.Fatalf("expected storage error to surface")
	}
	all, err := a.ListBooks()
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("row must survive a failed file removal, got %d", len(all))
	}
}

func TestPrimaryBookContentGating(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)}
	a, _, _, _ := newTestApp(clock)

	if _, _, err := a.PrimaryBookContent(context.Background(), "user-1"); !errors.Is(err, ErrContentForbidden) {
		t.Fatalf("no lead must be forbidden, got %v", err)
	}

	lead, err := a.CaptureLead(context.Background(), "Aziz Aziz", 25, "user-1")
	if err != nil {
		t.Fatalf("capture lead: %v", err)
	}
	if _, _, err := a.PrimaryBookContent(context.Background(), "user-1"); !errors.Is(err, ErrContentForbidden) {
		t.Fatalf("pending lead must be forbidden, got %v", err)
	}

	if _, err := a.ApproveLead(context.Background(), lead.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, _, err := a.PrimaryBookContent(context.Background(), "user-1"); !errors.Is(err, ErrNoPrimaryBook) {
		t.Fatalf("expected ErrNoPrimaryBook with empty catalog, got %v", err)
	}

	books, err := a.UploadBooks(context.Background(), "admin-1", "The Book", "", uploadFiles("book.pdf"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	book, url, err := a.PrimaryBookContent(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("primary content: %v", err)
	}
	if book.ID != books[0].ID {
		t.Fatalf("unexpected book: %q", book.ID)
	}
	if !strings.Contains(url, books[0].FilePath) {
		t.Fatalf("url must point at the stored object: %q", url)
	}

	// Expired access is forbidden again.
	clock.Advance(181 * 24 * time.Hour)
	if _, _, err := a.PrimaryBookContent(context.Background(), "user-1"); !errors.Is(err, ErrContentForbidden) {
		t.Fatalf("expired access must be forbidden, got %v", err)
	}
}
