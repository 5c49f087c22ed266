package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"skywardportal/internal/app"
	"skywardportal/pkg/domain"
)

const maxBookUpload = 256 * 1024 * 1024

// handleCatalog is the public preview: catalog metadata without file access.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.app.ListBooks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

type primaryContentResponse struct {
	Book domain.Book `json:"book"`
	URL  string      `json:"url"`
}

func (s *Server) handlePrimaryContent(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	book, url, err := s.app.PrimaryBookContent(r.Context(), userID)
	if err != nil {
		s.audit(r, "book_content", "denied", "user_id", userID, "error", err.Error())
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.audit(r, "book_content", "success", "user_id", userID, "book_id", book.ID)
	writeJSON(w, http.StatusOK, primaryContentResponse{Book: book, URL: url})
}

// admin book handlers

func (s *Server) handleAdminBooks(w http.ResponseWriter, r *http.Request, adminID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(maxBookUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	title := r.FormValue("title")
	description := r.FormValue("description")
	headers := r.MultipartForm.File["files"]
	files := make([]app.UploadFile, 0, len(headers))
	opened := make([]io.Closer, 0, len(headers))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file "+header.Filename)
			return
		}
		opened = append(opened, f)
		files = append(files, app.UploadFile{
			Name:    header.Filename,
			Size:    header.Size,
			Content: f,
		})
	}
	books, err := s.app.UploadBooks(r.Context(), adminID, title, description, files)
	if err != nil {
		s.audit(r, "book_upload", "failure", "admin_id", adminID, "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.audit(r, "book_upload", "success", "admin_id", adminID, "count", len(books))
	writeJSON(w, http.StatusCreated, map[string]any{
		"items": books,
		"count": len(books),
	})
}

type updateBookRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	DisplayOrder *int    `json:"displayOrder"`
}

func (s *Server) handleAdminBookByID(w http.ResponseWriter, r *http.Request, adminID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/books/")
	bookID, action, _ := strings.Cut(rest, "/")
	if bookID == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodPatch:
		var req updateBookRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		book, err := s.app.UpdateBook(bookID, app.UpdateBookParams{
			Title:        req.Title,
			Description:  req.Description,
			DisplayOrder: req.DisplayOrder,
		})
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, app.ErrBookNotFound) {
				status = http.StatusNotFound
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, book)

	case action == "" && r.Method == http.MethodDelete:
		if err := s.app.DeleteBook(r.Context(), bookID); err != nil {
			s.audit(r, "book_delete", "failure", "admin_id", adminID, "book_id", bookID, "error", err.Error())
			writeError(w, statusForError(err), err.Error())
			return
		}
		s.audit(r, "book_delete", "success", "admin_id", adminID, "book_id", bookID)
		w.WriteHeader(http.StatusNoContent)

	case action == "primary" && r.Method == http.MethodPost:
		book, err := s.app.SetPrimaryBook(bookID)
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
		s.audit(r, "book_primary", "success", "admin_id", adminID, "book_id", bookID)
		writeJSON(w, http.StatusOK, book)

	default:
		methodNotAllowed(w)
	}
}
