// Package quote aggregates priced rooms into a customer quote with VAT and
// renders it for screen, spreadsheet and PDF.
package quote

import (
	"strings"
	"time"

	"github.com/vbonduro/measureiq/internal/domain"
)

// DefaultVATRate is the fixed UK standard rate.
const DefaultVATRate = 0.20

const (
	defaultCustomerName = "Customer"
	dateLayout          = "02/01/2006"
)

type Options struct {
	ShowLineItems bool
	Notes         string
	CustomerName  string
	JobRef        string
	QuoteNumber   string
	Date          time.Time
}

type LineRow struct {
	LineID    string          `json:"lineId"`
	Label     string          `json:"label"`
	Qty       float64         `json:"qty"`
	Unit      domain.UnitKind `json:"unit"`
	UnitPrice float64         `json:"unitPrice"`
	Total     float64         `json:"total"`
	Flooring  bool            `json:"flooring"`
}

type RoomRow struct {
	RoomID int64     `json:"roomId"`
	Name   string    `json:"name"`
	Area   float64   `json:"area"`
	Total  float64   `json:"total"`
	Lines  []LineRow `json:"lines,omitempty"`
}

// View is everything a presentation layer needs to show a quote.
type View struct {
	Business      domain.BusinessProfile `json:"business"`
	CustomerName  string                 `json:"customerName"`
	JobRef        string                 `json:"jobRef,omitempty"`
	QuoteNumber   string                 `json:"quoteNumber,omitempty"`
	Date          string                 `json:"date"`
	Rooms         []RoomRow              `json:"rooms"`
	TotalExVAT    float64                `json:"totalExVat"`
	VATRate       float64                `json:"vatRate"`
	VAT           float64                `json:"vat"`
	GrandTotal    float64                `json:"grandTotal"`
	ShowLineItems bool                   `json:"showLineItems"`
	Notes         string                 `json:"notes,omitempty"`
}

// HasRooms reports whether any room contributed to the quote.
func (v View) HasRooms() bool {
	return len(v.Rooms) > 0
}

// Build sums every room that has a room total into an ex-VAT project total
// and applies vatRate. Amounts are not rounded; rounding is left to display.
// It has no side effects and may be called on every edit.
func Build(rooms []domain.Room, profile domain.BusinessProfile, vatRate float64, opts Options) View {
	name := strings.TrimSpace(opts.CustomerName)
	if name == "" {
		name = defaultCustomerName
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	v := View{
		Business:      profile,
		CustomerName:  name,
		JobRef:        strings.TrimSpace(opts.JobRef),
		QuoteNumber:   opts.QuoteNumber,
		Date:          date.Format(dateLayout),
		Rooms:         []RoomRow{},
		VATRate:       vatRate,
		ShowLineItems: opts.ShowLineItems,
		Notes:         opts.Notes,
	}

	for i := range rooms {
		r := &rooms[i]
		total := r.Data.LineTotal.Safe().Float()
		if total == 0 {
			continue
		}
		row := RoomRow{
			RoomID: r.ID,
			Name:   r.Name,
			Area:   r.Data.RoomArea.Safe().Float(),
			Total:  total,
		}
		if opts.ShowLineItems {
			row.Lines = lineRows(r)
		}
		v.Rooms = append(v.Rooms, row)
		v.TotalExVAT += total
	}

	v.VAT = v.TotalExVAT * vatRate
	v.GrandTotal = v.TotalExVAT + v.VAT
	return v
}

// lineRows lists the selected lines that carry a cost. The flooring line is
// always listed; renderers hide it when it has no cost.
func lineRows(r *domain.Room) []LineRow {
	var rows []LineRow
	for _, l := range r.Data.Lines {
		flooring := l.IsFlooring()
		if !flooring && (!bool(l.Selected) || l.Total <= 0) {
			continue
		}
		rows = append(rows, LineRow{
			LineID:    l.ID,
			Label:     l.Label,
			Qty:       l.Qty.Safe().Float(),
			Unit:      l.Unit,
			UnitPrice: l.UnitPrice.Safe().Float(),
			Total:     l.Total.Safe().Float(),
			Flooring:  flooring,
		})
	}
	return rows
}

// SummaryView is the internal per-room totals table.
type SummaryView struct {
	Rooms           []RoomRow `json:"rooms"`
	GrandTotalExVAT float64   `json:"grandTotalExVat"`
}

// Summary lists rooms with a room total and their ex-VAT sum.
func Summary(rooms []domain.Room) SummaryView {
	s := SummaryView{Rooms: []RoomRow{}}
	for _, r := range rooms {
		total := r.Data.LineTotal.Safe().Float()
		if total == 0 {
			continue
		}
		s.Rooms = append(s.Rooms, RoomRow{
			RoomID: r.ID,
			Name:   r.Name,
			Area:   r.Data.RoomArea.Safe().Float(),
			Total:  total,
		})
		s.GrandTotalExVAT += total
	}
	return s
}
