package web

import (
	"net/http"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/room"
	"github.com/vbonduro/measureiq/internal/workspace"
)

// state returns the user's workspace, seeding a new one from their saved
// prices and profile.
func (s *Server) state(r *http.Request, userID string) *workspace.State {
	return s.workspaces.Get(userID, func() workspace.Settings {
		doc := s.accounts.Document(r.Context(), userID)
		return workspace.Settings{
			Catalog: s.catalog,
			Prices:  doc.Prices(),
			Profile: doc.Profile(),
			VATRate: s.vatRate,
		}
	})
}

// enqueueAutosave files the workspace under its customer name in the
// background and reports whether a save was queued. Unnamed workspaces are
// not saved.
func (s *Server) enqueueAutosave(userID string, st *workspace.State) bool {
	if s.autosave == nil {
		return false
	}
	return s.autosave.Enqueue(userID, st.Record(s.now()))
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, s.state(r, user.UserID).Snapshot())
}

func (s *Server) handleNewCustomer(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	st := s.state(r, user.UserID)
	st.NewCustomer()
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) handleLoadCustomer(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rec, ok := s.accounts.FindCustomer(r.Context(), user.UserID, req.Name)
	if !ok {
		writeError(w, http.StatusNotFound, "customer not found")
		return
	}
	st := s.state(r, user.UserID)
	st.LoadCustomer(rec)
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	var req workspace.CustomerDetails
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := s.state(r, user.UserID)
	st.UpdateCustomer(req)
	writeJSON(w, http.StatusOK, st.Snapshot())
}

type roomNameBody struct {
	Name string `json:"name"`
}

func (s *Server) handleAddRoom(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	var req roomNameBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rm, err := s.state(r, user.UserID).AddRoom(req.Name, s.now())
	if err != nil {
		s.fail(w, r, err, "failed to add room")
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

func (s *Server) handleRenameRoom(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var req roomNameBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := s.state(r, user.UserID)
	rm, err := st.RenameRoom(id, req.Name)
	if err != nil {
		s.fail(w, r, err, "failed to rename room")
		return
	}
	s.enqueueAutosave(user.UserID, st)
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	st := s.state(r, user.UserID)
	if err := st.DeleteRoom(id); err != nil {
		s.fail(w, r, err, "failed to delete room")
		return
	}
	s.enqueueAutosave(user.UserID, st)
	writeJSON(w, http.StatusOK, st.Snapshot())
}

func (s *Server) handleSelectRoom(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	rm, err := s.state(r, user.UserID).SelectRoom(id)
	if err != nil {
		s.fail(w, r, err, "failed to select room")
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

// geometryResponse acknowledges a calculation. AutosaveQueued means a save
// was handed to the autosaver, not that it has been written.
type geometryResponse struct {
	Calculated     bool        `json:"calculated"`
	AutosaveQueued bool        `json:"autosaveQueued"`
	Result         room.Result `json:"result"`
	Room           domain.Room `json:"room"`
}

// handleGeometry recalculates a room from typed dimensions. Dimensions may
// be numbers or numeric strings; incomplete input leaves the room as it was
// and reports calculated=false.
func (s *Server) handleGeometry(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var req struct {
		Length domain.Number `json:"length"`
		Width  domain.Number `json:"width"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := s.state(r, user.UserID)
	res, ok, err := st.UpdateGeometry(id, room.NewGeometry(req.Length.Float(), req.Width.Float()))
	if err != nil {
		s.fail(w, r, err, "failed to calculate room")
		return
	}
	rm, err := st.SelectRoom(id)
	if err != nil {
		s.fail(w, r, err, "failed to calculate room")
		return
	}
	queued := false
	if ok {
		queued = s.enqueueAutosave(user.UserID, st)
	}
	writeJSON(w, http.StatusOK, geometryResponse{Calculated: ok, AutosaveQueued: queued, Result: res, Room: rm})
}

func (s *Server) handleAddLine(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var req struct {
		Label     string          `json:"label"`
		Unit      domain.UnitKind `json:"unit"`
		UnitPrice domain.Number   `json:"unitPrice"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := s.state(r, user.UserID)
	line, err := st.AddLine(id, req.Label, req.Unit, req.UnitPrice.Float())
	if err != nil {
		s.fail(w, r, err, "failed to add line")
		return
	}
	s.enqueueAutosave(user.UserID, st)
	writeJSON(w, http.StatusCreated, line)
}

func (s *Server) handleEditLine(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	var req workspace.LineEdit
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st := s.state(r, user.UserID)
	rm, err := st.EditLine(id, r.PathValue("lineID"), req)
	if err != nil {
		s.fail(w, r, err, "failed to update line")
		return
	}
	s.enqueueAutosave(user.UserID, st)
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleRemoveLine(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	st := s.state(r, user.UserID)
	rm, err := st.RemoveLine(id, r.PathValue("lineID"))
	if err != nil {
		s.fail(w, r, err, "failed to remove line")
		return
	}
	s.enqueueAutosave(user.UserID, st)
	writeJSON(w, http.StatusOK, rm)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, s.state(r, user.UserID).Summary())
}
