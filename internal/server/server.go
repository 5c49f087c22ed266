// Package server exposes the portal HTTP API: public lead capture and catalog
// preview, authenticated dashboard and CV endpoints, and the admin surface
// for moderating leads and managing books.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"skywardportal/internal/app"
	"skywardportal/internal/util"
	"skywardportal/pkg/store"
)

// Limiter is the rate-limit gate applied to abuse-prone endpoints. The
// Redis-backed fixed-window limiter satisfies it in production.
type Limiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App           *app.App
	Sessions      store.SessionStore
	RefreshTokens store.RefreshTokenStore
	RefreshTTL    time.Duration

	AuthLimiter Limiter
	LeadLimiter Limiter

	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints for the portal.
type Server struct {
	app           *app.App
	sessions      store.SessionStore
	refreshTokens store.RefreshTokenStore
	refreshTTL    time.Duration

	authLimiter Limiter
	leadLimiter Limiter

	trustedProxies *util.TrustedProxies
	mux            *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	s := &Server{
		app:            cfg.App,
		sessions:       cfg.Sessions,
		refreshTokens:  cfg.RefreshTokens,
		refreshTTL:     cfg.RefreshTTL,
		authLimiter:    cfg.AuthLimiter,
		leadLimiter:    cfg.LeadLimiter,
		trustedProxies: cfg.TrustedProxies,
		mux:            http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/refresh", s.handleRefresh)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// public portal
	s.mux.HandleFunc("/api/leads", s.handleCaptureLead)
	s.mux.HandleFunc("/api/books", s.handleCatalog)

	// signed-in portal
	s.mux.Handle("/api/dashboard/access", s.authenticated(s.handleAccessReport))
	s.mux.Handle("/api/books/primary/content", s.authenticated(s.handlePrimaryContent))
	s.mux.Handle("/api/leads/", s.authenticated(s.handleLeadByID))

	// admin
	s.mux.Handle("/api/admin/leads", s.adminOnly(s.handleAdminLeads))
	s.mux.Handle("/api/admin/leads/", s.adminOnly(s.handleAdminLeadByID))
	s.mux.Handle("/api/admin/books", s.adminOnly(s.handleAdminBooks))
	s.mux.Handle("/api/admin/books/", s.adminOnly(s.handleAdminBookByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, userID)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, userID string) {
		isAdmin, err := s.app.IsAdmin(userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !isAdmin {
			s.audit(r, "admin_access", "denied", "user_id", userID)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, userID)
	})
}

func (s *Server) authorize(r *http.Request) (string, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return "", false
	}
	userID, ok, err := s.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return "", false
	}
	return userID, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter Limiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
