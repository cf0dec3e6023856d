package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/db"
	"github.com/vbonduro/measureiq/internal/docstore"
	"github.com/vbonduro/measureiq/internal/docstore/memory"
	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/metrics"
	"github.com/vbonduro/measureiq/internal/service"
	"github.com/vbonduro/measureiq/internal/store"
	"github.com/vbonduro/measureiq/internal/web"
)

var testCatalog = []domain.AccessoryCatalogEntry{
	{ID: "trim", Name: "Door trim", Unit: domain.UnitLm, Category: "Finishing"},
	{ID: "underlay", Name: "Underlay", Unit: domain.UnitSqm, Category: "Prep"},
}

// outbox records reset mails instead of sending them.
type outbox struct {
	mu   sync.Mutex
	msgs []auth.Message
}

func (o *outbox) Send(_ context.Context, msg auth.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

// newTestServer wires a real web.Server over in-memory SQLite users and an
// in-memory document store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database, err := db.OpenForTesting()
	if err != nil {
		t.Fatalf("OpenForTesting: %v", err)
	}
	logger := slog.Default()
	m := metrics.New()

	authSvc := auth.NewService(
		store.NewUserStore(database),
		auth.NewTokens("integration-secret", time.Hour),
		&outbox{},
		auth.Config{ResetTokenTTL: 30 * time.Minute, FrontendBaseURL: "http://localhost"},
		logger,
	)
	accounts := service.NewAccountService(docstore.Instrument(memory.New(), "memory", m), logger)
	autosaver := service.NewAutosaver(accounts, m, logger)

	srv := httptest.NewServer(web.NewServer(web.Options{
		Auth:     authSvc,
		Accounts: accounts,
		Autosave: autosaver,
		Catalog:  testCatalog,
		VATRate:  0.20,
		Metrics:  m,
		Logger:   logger,
	}))
	t.Cleanup(func() {
		srv.Close()
		autosaver.Close()
		_ = database.Close()
	})
	return srv
}

// call sends a JSON request and returns the status and body.
func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

func register(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	status, body := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "pw"})
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[map[string]string](t, body)["token"]
}

func TestIntegration_HealthAndMetrics(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	status, body := call(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	status, body = call(t, srv, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "measureiq_http_requests_total")
}

func TestIntegration_SecurityHeaders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestIntegration_Auth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	token := register(t, srv, "ann@example.com")

	status, _ := call(t, srv, http.MethodPost, "/api/auth/register", "", map[string]string{"email": "ann@example.com", "password": "x"})
	assert.Equal(t, http.StatusConflict, status)

	status, body := call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.JSONEq(t, `{"error":"invalid login"}`, string(body))

	status, body = call(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[map[string]string](t, body)["token"])

	status, _ = call(t, srv, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = call(t, srv, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = call(t, srv, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ann@example.com", decode[map[string]string](t, body)["email"])

	status, body = call(t, srv, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	status, _ = call(t, srv, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"token": "nope", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIntegration_LoadSaveIsWholeDocument(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	token := register(t, srv, "ann@example.com")

	status, body := call(t, srv, http.MethodGet, "/api/load", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{}`, string(body))

	status, _ = call(t, srv, http.MethodPost, "/api/save", token, `{"theme":"dark","accessoryPrices":{"trim":3}}`)
	require.Equal(t, http.StatusOK, status)

	_, body = call(t, srv, http.MethodGet, "/api/load", token, nil)
	assert.JSONEq(t, `{"theme":"dark","accessoryPrices":{"trim":3}}`, string(body))

	status, _ = call(t, srv, http.MethodPost, "/api/save", token, `[1,2,3]`)
	assert.Equal(t, http.StatusBadRequest, status)

	other := register(t, srv, "bob@example.com")
	_, body = call(t, srv, http.MethodGet, "/api/load", other, nil)
	assert.JSONEq(t, `{}`, string(body))
}

func TestIntegration_PricesAndProfile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	token := register(t, srv, "ann@example.com")

	status, body := call(t, srv, http.MethodPut, "/api/accessory-prices", token, map[string]any{"trim": "2.50", "underlay": -4})
	require.Equal(t, http.StatusOK, status, string(body))
	prices := decode[struct {
		Prices     map[string]float64 `json:"prices"`
		Categories []struct {
			Category string `json:"category"`
		} `json:"categories"`
	}](t, body)
	assert.InDelta(t, 2.5, prices.Prices["trim"], 1e-9)
	assert.InDelta(t, 0, prices.Prices["underlay"], 1e-9)
	require.Len(t, prices.Categories, 2)
	assert.Equal(t, "Finishing", prices.Categories[0].Category)

	status, _ = call(t, srv, http.MethodPut, "/api/business-profile", token, map[string]any{
		"businessName":           "Acme Floors",
		"showAccessoriesOnQuote": true,
	})
	require.Equal(t, http.StatusOK, status)

	_, body = call(t, srv, http.MethodGet, "/api/business-profile", token, nil)
	profile := decode[domain.BusinessProfile](t, body)
	assert.Equal(t, "Acme Floors", profile.BusinessName)
	assert.True(t, profile.ShowLineItemsOnQuote)

	_, body = call(t, srv, http.MethodGet, "/api/catalog", "", nil)
	assert.Contains(t, string(body), `"systemAccessories"`)
}

// roomPath builds a workspace room path.
func roomPath(id int64, rest string) string {
	return "/api/workspace/rooms/" + strconv.FormatInt(id, 10) + rest
}

func TestIntegration_QuoteFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	token := register(t, srv, "ann@example.com")

	status, _ := call(t, srv, http.MethodPut, "/api/accessory-prices", token, map[string]any{"trim": 2.5})
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, srv, http.MethodPatch, "/api/workspace/customer", token, map[string]any{"name": "Smith", "jobRef": "J-42"})
	require.Equal(t, http.StatusOK, status)

	status, body := call(t, srv, http.MethodPost, "/api/workspace/rooms", token, map[string]string{"name": "Lounge"})
	require.Equal(t, http.StatusCreated, status, string(body))
	rm := decode[domain.Room](t, body)
	require.Len(t, rm.Data.Lines, 3)

	status, _ = call(t, srv, http.MethodPatch, roomPath(rm.ID, "/lines/flooring"), token, map[string]any{"unitPrice": 15})
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, srv, http.MethodPatch, roomPath(rm.ID, "/lines/acc_trim"), token, map[string]any{"selected": true, "qty": 10})
	require.Equal(t, http.StatusOK, status)

	status, body = call(t, srv, http.MethodPut, roomPath(rm.ID, "/geometry"), token, map[string]any{"length": "4", "width": 5})
	require.Equal(t, http.StatusOK, status, string(body))
	geo := decode[struct {
		Calculated     bool `json:"calculated"`
		AutosaveQueued bool `json:"autosaveQueued"`
		Result         struct {
			RoomArea  float64 `json:"roomArea"`
			LineTotal float64 `json:"lineTotal"`
		} `json:"result"`
	}](t, body)
	assert.True(t, geo.Calculated)
	assert.True(t, geo.AutosaveQueued)
	assert.InDelta(t, 20, geo.Result.RoomArea, 1e-9)
	assert.InDelta(t, 325, geo.Result.LineTotal, 1e-9)

	_, body = call(t, srv, http.MethodGet, "/api/workspace/quote", token, nil)
	q := decode[struct {
		CustomerName string  `json:"customerName"`
		QuoteNumber  string  `json:"quoteNumber"`
		TotalExVAT   float64 `json:"totalExVat"`
		VAT          float64 `json:"vat"`
		GrandTotal   float64 `json:"grandTotal"`
	}](t, body)
	assert.Equal(t, "Smith", q.CustomerName)
	assert.True(t, strings.HasPrefix(q.QuoteNumber, "Q-"))
	assert.InDelta(t, 325, q.TotalExVAT, 1e-9)
	assert.InDelta(t, 65, q.VAT, 1e-9)
	assert.InDelta(t, 390, q.GrandTotal, 1e-9)

	status, body = call(t, srv, http.MethodGet, "/api/workspace/quote.html", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Smith")
	assert.Contains(t, string(body), "£390.00")

	status, body = call(t, srv, http.MethodGet, "/api/workspace/quote.pdf", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	status, body = call(t, srv, http.MethodGet, "/api/workspace/quote.xlsx", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))

	_, body = call(t, srv, http.MethodGet, "/api/workspace/summary", token, nil)
	assert.Contains(t, string(body), `"grandTotalExVat":325`)

	// the geometry edit autosaved the customer
	require.Eventually(t, func() bool {
		_, body := call(t, srv, http.MethodGet, "/api/customers", token, nil)
		return strings.Contains(string(body), `"name":"Smith"`)
	}, 2*time.Second, 20*time.Millisecond)

	status, body = call(t, srv, http.MethodPost, "/api/customers", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	_, body = call(t, srv, http.MethodGet, "/api/customers", token, nil)
	customers := decode[[]domain.CustomerRecord](t, body)
	require.Len(t, customers, 1)
	assert.Equal(t, "J-42", customers[0].JobRef)
	require.Len(t, customers[0].Rooms, 1)
	assert.InDelta(t, 325, customers[0].Rooms[0].Data.LineTotal.Float(), 1e-9)
}

func TestIntegration_LoadAndDeleteCustomer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	token := register(t, srv, "ann@example.com")

	call(t, srv, http.MethodPatch, "/api/workspace/customer", token, map[string]any{"name": "Jones"})
	_, body := call(t, srv, http.MethodPost, "/api/workspace/rooms", token, map[string]string{"name": "Hall"})
	rm := decode[domain.Room](t, body)
	status, _ := call(t, srv, http.MethodPost, "/api/customers", token, nil)
	require.Equal(t, http.StatusOK, status)

	_, body = call(t, srv, http.MethodPost, "/api/workspace/customer/new", token, nil)
	assert.Equal(t, "", decode[map[string]any](t, body)["customerName"])

	status, _ = call(t, srv, http.MethodPost, "/api/workspace/customer/load", token, map[string]string{"name": "jones"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, srv, http.MethodPost, "/api/workspace/customer/load", token, map[string]string{"name": "Jones"})
	require.Equal(t, http.StatusOK, status)
	snap := decode[struct {
		CustomerName string  `json:"customerName"`
		ActiveRoomID float64 `json:"activeRoomId"`
	}](t, body)
	assert.Equal(t, "Jones", snap.CustomerName)
	assert.Equal(t, float64(rm.ID), snap.ActiveRoomID)

	status, _ = call(t, srv, http.MethodDelete, "/api/customers/Jones", token, nil)
	require.Equal(t, http.StatusOK, status)
	_, body = call(t, srv, http.MethodGet, "/api/workspace", token, nil)
	assert.Equal(t, "", decode[map[string]any](t, body)["customerName"])
	_, body = call(t, srv, http.MethodGet, "/api/customers", token, nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestIntegration_WorkspaceErrors(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv := newTestServer(t)
	token := register(t, srv, "ann@example.com")

	status, _ := call(t, srv, http.MethodPost, "/api/customers", token, nil)
	assert.Equal(t, http.StatusBadRequest, status, "saving needs a customer name")

	status, _ = call(t, srv, http.MethodPost, "/api/workspace/rooms", token, map[string]string{"name": " "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, http.MethodPut, roomPath(12345, "/geometry"), token, map[string]any{"length": 1, "width": 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = call(t, srv, http.MethodPatch, "/api/workspace/rooms/abc", token, map[string]string{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, status)

	_, body := call(t, srv, http.MethodPost, "/api/workspace/rooms", token, map[string]string{"name": "Lounge"})
	rm := decode[domain.Room](t, body)

	status, body = call(t, srv, http.MethodPut, roomPath(rm.ID, "/geometry"), token, map[string]any{"length": "4", "width": ""})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"calculated":false`)

	// nothing is queued for a workspace without a customer name
	status, body = call(t, srv, http.MethodPut, roomPath(rm.ID, "/geometry"), token, map[string]any{"length": 2, "width": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"calculated":true`)
	assert.Contains(t, string(body), `"autosaveQueued":false`)

	status, _ = call(t, srv, http.MethodDelete, roomPath(rm.ID, "/lines/flooring"), token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, http.MethodPatch, roomPath(rm.ID, "/lines/missing"), token, map[string]any{"qty": 1})
	assert.Equal(t, http.StatusNotFound, status)

	status, body = call(t, srv, http.MethodPost, roomPath(rm.ID, "/lines"), token, map[string]any{"label": "Uplift", "unit": "each", "unitPrice": 40})
	require.Equal(t, http.StatusCreated, status)
	line := decode[domain.Line](t, body)
	status, _ = call(t, srv, http.MethodDelete, roomPath(rm.ID, "/lines/"+line.ID), token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, srv, http.MethodDelete, roomPath(rm.ID, ""), token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, srv, http.MethodPost, roomPath(rm.ID, "/select"), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}
