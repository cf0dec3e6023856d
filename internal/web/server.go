package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/metrics"
	"github.com/vbonduro/measureiq/internal/service"
	"github.com/vbonduro/measureiq/internal/workspace"
)

type Options struct {
	Auth     *auth.Service
	Accounts *service.AccountService
	Autosave *service.Autosaver
	Catalog  []domain.AccessoryCatalogEntry
	VATRate  float64
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

type Server struct {
	auth       *auth.Service
	accounts   *service.AccountService
	autosave   *service.Autosaver
	workspaces *workspace.Registry
	catalog    []domain.AccessoryCatalogEntry
	vatRate    float64
	metrics    *metrics.Metrics
	mux        *http.ServeMux
	logger     *slog.Logger
	now        func() time.Time
	httpSrv    *http.Server
}

func NewServer(opts Options) *Server {
	s := &Server{
		auth:       opts.Auth,
		accounts:   opts.Accounts,
		autosave:   opts.Autosave,
		workspaces: workspace.NewRegistry(),
		catalog:    opts.Catalog,
		vatRate:    opts.VATRate,
		metrics:    opts.Metrics,
		mux:        http.NewServeMux(),
		logger:     opts.Logger,
		now:        time.Now,
	}
	s.httpSrv = &http.Server{
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/forgot-password", s.handleForgotPassword)
	s.mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword)
	s.mux.Handle("GET /api/me", s.requireUser(s.handleMe))

	s.mux.Handle("GET /api/load", s.requireUser(s.handleLoad))
	s.mux.Handle("POST /api/save", s.requireUser(s.handleSave))
	s.mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	s.mux.Handle("GET /api/accessory-prices", s.requireUser(s.handleGetPrices))
	s.mux.Handle("PUT /api/accessory-prices", s.requireUser(s.handlePutPrices))
	s.mux.Handle("GET /api/business-profile", s.requireUser(s.handleGetProfile))
	s.mux.Handle("PUT /api/business-profile", s.requireUser(s.handlePutProfile))
	s.mux.Handle("GET /api/customers", s.requireUser(s.handleListCustomers))
	s.mux.Handle("POST /api/customers", s.requireUser(s.handleSaveCustomer))
	s.mux.Handle("DELETE /api/customers/{name}", s.requireUser(s.handleDeleteCustomer))

	s.mux.Handle("GET /api/workspace", s.requireUser(s.handleWorkspace))
	s.mux.Handle("POST /api/workspace/customer/new", s.requireUser(s.handleNewCustomer))
	s.mux.Handle("POST /api/workspace/customer/load", s.requireUser(s.handleLoadCustomer))
	s.mux.Handle("PATCH /api/workspace/customer", s.requireUser(s.handleUpdateCustomer))
	s.mux.Handle("POST /api/workspace/rooms", s.requireUser(s.handleAddRoom))
	s.mux.Handle("PATCH /api/workspace/rooms/{id}", s.requireUser(s.handleRenameRoom))
	s.mux.Handle("DELETE /api/workspace/rooms/{id}", s.requireUser(s.handleDeleteRoom))
	s.mux.Handle("POST /api/workspace/rooms/{id}/select", s.requireUser(s.handleSelectRoom))
	s.mux.Handle("PUT /api/workspace/rooms/{id}/geometry", s.requireUser(s.handleGeometry))
	s.mux.Handle("POST /api/workspace/rooms/{id}/lines", s.requireUser(s.handleAddLine))
	s.mux.Handle("PATCH /api/workspace/rooms/{id}/lines/{lineID}", s.requireUser(s.handleEditLine))
	s.mux.Handle("DELETE /api/workspace/rooms/{id}/lines/{lineID}", s.requireUser(s.handleRemoveLine))
	s.mux.Handle("GET /api/workspace/summary", s.requireUser(s.handleSummary))
	s.mux.Handle("GET /api/workspace/quote", s.requireUser(s.handleQuoteJSON))
	s.mux.Handle("GET /api/workspace/quote.html", s.requireUser(s.handleQuoteHTML))
	s.mux.Handle("GET /api/workspace/quote.xlsx", s.requireUser(s.handleQuoteXLSX))
	s.mux.Handle("GET /api/workspace/quote.pdf", s.requireUser(s.handleQuotePDF))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger logs each request once and records it by route pattern so
// path parameters do not explode metric cardinality.
func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(r.Method, route, rec.status, elapsed)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("starting server", "addr", ln.Addr().String())
	return s.httpSrv.Serve(ln)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}
