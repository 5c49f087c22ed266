package app

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"

	"skywardportal/internal/util"
	"skywardportal/pkg/domain"
)

// UploadContent is what the multipart layer hands over per file. multipart
// file handles satisfy all three interfaces, which lets the PDF parser read
// the file before it is rewound and streamed to object storage.
type UploadContent interface {
	io.Reader
	io.ReaderAt
	io.Seeker
}

// UploadFile is one file in a multi-file upload.
type UploadFile struct {
	Name    string
	Size    int64
	Content UploadContent
}

// UploadBooks stores each file and creates its catalog row. With one file the
// title is used verbatim; with several, files get "Title (1)", "Title (2)" and
// so on. The first file of an upload into an empty catalog becomes primary.
func (a *App) UploadBooks(ctx context.Context, actorID, title, description string, files []UploadFile) ([]domain.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("book title is required")
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("at least one file is required")
	}
	description = util.StripHTML(description)

	prevCount, err := a.store.BookCount()
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}
	catalogWasEmpty := prevCount == 0

	uploaded := make([]domain.Book, 0, len(files))
	now := a.now().UTC()
	for i, f := range files {
		bookTitle := title
		if len(files) > 1 {
			bookTitle = fmt.Sprintf("%s (%d)", title, i+1)
		}
		key := fmt.Sprintf("books/%s/%d_%s", actorID, now.Unix(), sanitizeObjectName(f.Name))
		contentType := contentTypeFor(f.Name)

		pageCount := 0
		if contentType == "application/pdf" {
			pageCount = pdfPageCount(f.Content, f.Size)
			if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
				return uploaded, fmt.Errorf("rewind %s: %w", f.Name, err)
			}
		}

		if err := a.objects.Put(ctx, key, f.Content, f.Size, contentType); err != nil {
			return uploaded, fmt.Errorf("store %s: %w", f.Name, err)
		}
		book := domain.Book{
			ID:           uuid.NewString(),
			Title:        bookTitle,
			Description:  description,
			FilePath:     key,
			FileName:     f.Name,
			FileSize:     f.Size,
			IsPrimary:    catalogWasEmpty && i == 0,
			DisplayOrder: prevCount + i,
			PageCount:    pageCount,
			ContentType:  contentType,
			CreatedBy:    actorID,
			CreatedAt:    now,
		}
		if err := a.store.SaveBook(book); err != nil {
			return uploaded, fmt.Errorf("save book %s: %w", f.Name, err)
		}
		uploaded = append(uploaded, book)
	}
	return uploaded, nil
}

// pdfPageCount is best effort: an unparseable file just gets no page count.
// The parser panics on some malformed files, hence the recover.
func pdfPageCount(r io.ReaderAt, size int64) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return 0
	}
	return reader.NumPage()
}

func contentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".epub":
		return "application/epub+zip"
	default:
		return "application/octet-stream"
	}
}

// ListBooks returns the catalog in display order.
func (a *App) ListBooks() ([]domain.Book, error) {
	return a.store.ListBooks()
}

// UpdateBookParams carries optional edits; nil fields are left unchanged.
type UpdateBookParams struct {
	Title        *string
	Description  *string
	DisplayOrder *int
}

// UpdateBook edits catalog metadata. The file itself is immutable; replacing
// content means uploading a new book.
func (a *App) UpdateBook(id string, params UpdateBookParams) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return domain.Book{}, fmt.Errorf("book title is required")
		}
		book.Title = title
	}
	if params.Description != nil {
		book.Description = util.StripHTML(*params.Description)
	}
	if params.DisplayOrder != nil {
		book.DisplayOrder = *params.DisplayOrder
	}
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// SetPrimaryBook makes the given book the one served on the dashboard. The
// clear-then-set pair is two store calls; a crash in between can briefly
// leave no primary, which the read path treats as "no primary configured".
func (a *App) SetPrimaryBook(id string) (domain.Book, error) {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	if err := a.store.ClearPrimaryFlags(); err != nil {
		return domain.Book{}, fmt.Errorf("clear primary flags: %w", err)
	}
	book.IsPrimary = true
	if err := a.store.SaveBook(book); err != nil {
		return domain.Book{}, fmt.Errorf("save book: %w", err)
	}
	return book, nil
}

// DeleteBook removes the stored file first and only then the row. If storage
// refuses, the row stays so the admin can retry instead of leaking the file.
func (a *App) DeleteBook(ctx context.Context, id string) error {
	book, ok, err := a.store.GetBook(id)
	if err != nil {
		return fmt.Errorf("get book: %w", err)
	}
	if !ok {
		return ErrBookNotFound
	}
	if err := a.objects.Remove(ctx, book.FilePath); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	if err := a.store.DeleteBook(id); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// PrimaryBookContent returns a presigned download URL for the primary book,
// gated on the caller's access decision.
func (a *App) PrimaryBookContent(ctx context.Context, userID string) (domain.Book, string, error) {
	report, err := a.BuildAccessReport(userID)
	if err != nil {
		return domain.Book{}, "", err
	}
	if !report.CanReadFull {
		return domain.Book{}, "", ErrContentForbidden
	}
	book, ok, err := a.store.GetPrimaryBook()
	if err != nil {
		return domain.Book{}, "", fmt.Errorf("get primary book: %w", err)
	}
	if !ok {
		return domain.Book{}, "", ErrNoPrimaryBook
	}
	url, err := a.objects.PresignGet(ctx, book.FilePath, a.presignExpiry)
	if err != nil {
		return domain.Book{}, "", fmt.Errorf("presign book: %w", err)
	}
	return book, url, nil
}
