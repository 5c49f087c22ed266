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

const maxCVUpload = 6 * 1024 * 1024 // request cap; the app enforces the 5MB file rule

type captureLeadRequest struct {
	FullName string `json:"fullName"`
	Age      int    `json:"age"`
}

type captureLeadResponse struct {
	Lead       domain.Lead `json:"lead"`
	HandoffURL string      `json:"handoffUrl"`
}

// handleCaptureLead is public: the purchase form posts here before the
// visitor has an account. A valid bearer token, when present, links the lead
// to the caller so the dashboard can evaluate it later.
func (s *Server) handleCaptureLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.leadLimiter, "too many submissions") {
		return
	}
	var req captureLeadRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	userID, _ := s.authorize(r)
	lead, err := s.app.CaptureLead(r.Context(), req.FullName, req.Age, userID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.audit(r, "lead_capture", "success", "lead_id", lead.ID)
	writeJSON(w, http.StatusCreated, captureLeadResponse{
		Lead:       lead,
		HandoffURL: s.app.HandoffLink(lead),
	})
}

func (s *Server) handleAccessReport(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	report, err := s.app.BuildAccessReport(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleLeadByID serves /api/leads/{id}/cv for the lead's owner.
func (s *Server) handleLeadByID(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/leads/")
	leadID, action, _ := strings.Cut(rest, "/")
	if leadID == "" || action != "cv" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(maxCVUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("cv")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cv file is required")
		return
	}
	defer file.Close()

	lead, err := s.app.SubmitCV(r.Context(), userID, leadID, header.Filename, file, header.Size)
	if err != nil {
		s.audit(r, "cv_submit", "failure", "lead_id", leadID, "error", err.Error())
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.audit(r, "cv_submit", "success", "lead_id", leadID)
	writeJSON(w, http.StatusOK, lead)
}

// admin lead handlers

func (s *Server) handleAdminLeads(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	status := domain.LeadStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	leads, err := s.app.ListLeads(status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": leads,
		"count": len(leads),
	})
}

func (s *Server) handleAdminLeadByID(w http.ResponseWriter, r *http.Request, adminID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/leads/")
	leadID, action, _ := strings.Cut(rest, "/")
	if leadID == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var (
		lead domain.Lead
		err  error
	)
	switch action {
	case "approve":
		lead, err = s.app.ApproveLead(r.Context(), leadID)
	case "block":
		lead, err = s.app.BlockLead(r.Context(), leadID)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.audit(r, "lead_"+action, "failure", "lead_id", leadID, "admin_id", adminID)
		writeError(w, statusForError(err), err.Error())
		return
	}
	s.audit(r, "lead_"+action, "success", "lead_id", leadID, "admin_id", adminID)
	writeJSON(w, http.StatusOK, lead)
}

// statusForError maps app sentinels onto HTTP status codes; anything
// unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrLeadNotFound),
		errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrNoPrimaryBook):
		return http.StatusNotFound
	case errors.Is(err, app.ErrNotLeadOwner),
		errors.Is(err, app.ErrContentForbidden),
		errors.Is(err, app.ErrCVWindowClosed):
		return http.StatusForbidden
	case errors.Is(err, app.ErrCVAlreadySent),
		errors.Is(err, app.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, app.ErrCVNotPDF),
		errors.Is(err, app.ErrCVTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
