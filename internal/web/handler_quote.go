package web

import (
	"fmt"
	"net/http"

	"github.com/vbonduro/measureiq/internal/auth"
	"github.com/vbonduro/measureiq/internal/quote"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

func (s *Server) quoteView(r *http.Request, user *auth.Claims) quote.View {
	return s.state(r, user.UserID).Quote(s.now())
}

func (s *Server) handleQuoteJSON(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	writeJSON(w, http.StatusOK, s.quoteView(r, user))
}

func (s *Server) handleQuoteHTML(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	html, err := quote.RenderHTML(s.quoteView(r, user))
	if err != nil {
		s.fail(w, r, err, "failed to render quote")
		return
	}
	s.metrics.ObserveQuoteExport("html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleQuoteXLSX(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	v := s.quoteView(r, user)
	b, err := quote.ExportXLSX(v)
	if err != nil {
		s.fail(w, r, err, "failed to export quote")
		return
	}
	writeAttachment(w, b, xlsxContentType, v.QuoteNumber+".xlsx")
	s.metrics.ObserveQuoteExport("xlsx")
}

func (s *Server) handleQuotePDF(w http.ResponseWriter, r *http.Request, user *auth.Claims) {
	v := s.quoteView(r, user)
	b, err := quote.ExportPDF(v)
	if err != nil {
		s.fail(w, r, err, "failed to export quote")
		return
	}
	writeAttachment(w, b, pdfContentType, v.QuoteNumber+".pdf")
	s.metrics.ObserveQuoteExport("pdf")
}

func writeAttachment(w http.ResponseWriter, b []byte, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(b)
}
