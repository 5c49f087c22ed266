package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"skywardportal/internal/app"
	"skywardportal/pkg/store"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type authResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	Account      app.Account `json:"account"`
}

func (s *Server) issueTokens(userID string) (string, string, error) {
	token, err := s.sessions.NewSession(userID)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.refreshTokens.NewToken(userID, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	return token, refresh, nil
}

func (s *Server) authPayload(w http.ResponseWriter, r *http.Request, status int, userID string) {
	token, refresh, err := s.issueTokens(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	account, err := s.app.GetAccount(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, authResponse{Token: token, RefreshToken: refresh, Account: account})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many signup attempts") {
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.SignUp(req.Email, req.Password, req.FullName)
	if err != nil {
		s.audit(r, "signup", "failure", "error", err.Error())
		status := http.StatusBadRequest
		if errors.Is(err, app.ErrEmailTaken) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	s.audit(r, "signup", "success", "user_id", user.ID)
	s.authPayload(w, r, http.StatusCreated, user.ID)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many login attempts") {
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "failure", "email", req.Email)
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	s.authPayload(w, r, http.StatusOK, user.ID)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many refresh attempts") {
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}
	userID, newRefresh, err := s.refreshTokens.RotateToken(req.RefreshToken, s.refreshTTL)
	if err != nil {
		outcome := "failure"
		if errors.Is(err, store.ErrRefreshTokenReplay) {
			outcome = "replay"
		}
		s.audit(r, "refresh", outcome)
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	token, err := s.sessions.NewSession(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	account, err := s.app.GetAccount(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, RefreshToken: newRefresh, Account: account})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.sessions.DeleteSession(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	var req refreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err == nil && req.RefreshToken != "" {
		_ = s.refreshTokens.DeleteToken(req.RefreshToken)
	}
	s.audit(r, "logout", "success")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	account, err := s.app.GetAccount(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, account)
}
