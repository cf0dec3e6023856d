package web

import (
	"io"
	"net/http"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/catalog"
	"github.com/vbonduro/measureiq/internal/document"
	"github.com/vbonduro/measureiq/internal/domain"
)

// handleLoad returns the stored document exactly as saved.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	doc, err := s.accounts.Raw(r.Context(), user.UserID)
	if err != nil {
		s.fail(w, r, err, "failed to load")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

// handleSave replaces the stored document wholesale. A live workspace picks
// up the saved prices and profile.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if err := s.accounts.ReplaceRaw(r.Context(), user.UserID, body); err != nil {
		s.fail(w, r, err, "failed to save")
		return
	}
	if st, ok := s.workspaces.Lookup(user.UserID); ok {
		if doc, err := document.Decode(body); err == nil {
			st.SetPrices(doc.Prices())
			st.SetProfile(doc.Profile())
		}
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	entries := s.catalog
	if entries == nil {
		entries = []domain.AccessoryCatalogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"systemAccessories": entries})
}

type pricesBody struct {
	Prices     map[string]domain.Number `json:"prices"`
	Categories []catalog.CategoryGroup  `json:"categories"`
}

func (s *Server) pricesView(prices map[string]domain.Number) pricesBody {
	groups := catalog.GroupByCategory(catalog.BuildDefinitions(s.catalog, prices))
	if groups == nil {
		groups = []catalog.CategoryGroup{}
	}
	return pricesBody{Prices: prices, Categories: groups}
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, s.pricesView(s.accounts.AccessoryPrices(r.Context(), user.UserID)))
}

func (s *Server) handlePutPrices(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	var prices map[string]domain.Number
	if err := decodeJSON(w, r, &prices); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.accounts.SaveAccessoryPrices(r.Context(), user.UserID, prices); err != nil {
		s.fail(w, r, err, "failed to save prices")
		return
	}
	saved := s.accounts.AccessoryPrices(r.Context(), user.UserID)
	if st, ok := s.workspaces.Lookup(user.UserID); ok {
		st.SetPrices(saved)
		s.enqueueAutosave(user.UserID, st)
	}
	writeJSON(w, http.StatusOK, s.pricesView(saved))
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, s.accounts.BusinessProfile(r.Context(), user.UserID))
}

func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	p := document.DefaultProfile()
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.accounts.SaveBusinessProfile(r.Context(), user.UserID, p); err != nil {
		s.fail(w, r, err, "failed to save business profile")
		return
	}
	if st, ok := s.workspaces.Lookup(user.UserID); ok {
		st.SetProfile(p)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, s.accounts.ListCustomers(r.Context(), user.UserID))
}

// handleSaveCustomer is the explicit save of the current workspace. Unlike
// autosave, failures reach the client.
func (s *Server) handleSaveCustomer(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	st := s.state(r, user.UserID)
	rec := st.Record(s.now())
	if err := s.accounts.SaveCustomer(r.Context(), user.UserID, rec); err != nil {
		s.fail(w, r, err, "failed to save customer")
		return
	}
	s.logger.Info("customer saved", "user_id", user.UserID, "customer", rec.Name, "rooms", len(rec.Rooms))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "customer": rec.Name, "timestamp": rec.Timestamp})
}

// handleDeleteCustomer removes a saved customer. When that customer is open
// in the workspace, the workspace is cleared.
func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	name := r.PathValue("name")
	if err := s.accounts.DeleteCustomer(r.Context(), user.UserID, name); err != nil {
		s.fail(w, r, err, "failed to delete customer")
		return
	}
	if st, ok := s.workspaces.Lookup(user.UserID); ok && st.CustomerName() == name {
		st.NewCustomer()
	}
	writeJSON(w, http.StatusOK, okBody)
}
