package web

import (
	"net/http"
	"strings"

	"github.com/vbonduro/measureiq/internal/auth"
)

type userHandler func(w http.ResponseWriter, r *http.Request, user *auth.Claims)

// requireUser admits requests carrying a valid bearer token. Expired or
// invalid tokens are rejected outright; clients must sign in again.
func (s *Server) requireUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			s.metrics.ObserveAuthFailure("missing_token")
			writeError(w, http.StatusUnauthorized, "no token")
			return
		}
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			s.metrics.ObserveAuthFailure("invalid_token")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, err := s.auth.Authenticate(strings.TrimSpace(token))
		if err != nil {
			s.metrics.ObserveAuthFailure("invalid_token")
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r, claims)
	})
}
