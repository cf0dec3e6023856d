package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/measureiq/internal/auth"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenBody struct {
	Token string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, "registration failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenBody{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.metrics.ObserveAuthFailure("bad_credentials")
	}
	if err != nil {
		s.fail(w, r, err, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenBody{Token: token})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, map[string]string{"id": user.UserID, "email": user.Email})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.fail(w, r, err, "password reset failed")
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.fail(w, r, err, "password reset failed")
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}
