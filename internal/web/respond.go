package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/docstore"
	"github.com/vbonduro/measureiq/internal/room"
	"github.com/vbonduro/measureiq/internal/service"
	"github.com/vbonduro/measureiq/internal/workspace"
)

const maxBodySize = 5 << 20 // 5 MB

type errorBody struct {
	Error string `json:"error"`
}

var okBody = map[string]bool{"ok": true}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

// statusFor maps package sentinels onto HTTP statuses. Anything unknown is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workspace.ErrRoomNotFound),
		errors.Is(err, workspace.ErrNoActiveRoom),
		errors.Is(err, room.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrRoomNameRequired),
		errors.Is(err, service.ErrCustomerNameRequired),
		errors.Is(err, room.ErrLineNotRemovable),
		errors.Is(err, room.ErrLineNotEditable),
		errors.Is(err, docstore.ErrInvalidDocument),
		errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidResetToken):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Internal errors are logged and replaced
// by msg so storage details do not leak to clients.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, msg)
		return
	}
	writeError(w, status, err.Error())
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
