package room

import (
	"math"
	"strconv"
	"strings"

	"github.com/vbonduro/measureiq/internal/domain"
)

// Geometry is a room's floor dimensions in metres. HasGeometry is false
// unless both sides are positive and finite.
type Geometry struct {
	Length      float64
	Width       float64
	HasGeometry bool
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func NewGeometry(length, width float64) Geometry {
	if !positiveFinite(length) || !positiveFinite(width) {
		return Geometry{}
	}
	return Geometry{Length: length, Width: width, HasGeometry: true}
}

// ParseGeometry reads dimensions as typed into a form. Blank or
// non-numeric input yields a geometry without HasGeometry.
func ParseGeometry(length, width string) Geometry {
	l, err := strconv.ParseFloat(strings.TrimSpace(length), 64)
	if err != nil {
		return Geometry{}
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(width), 64)
	if err != nil {
		return Geometry{}
	}
	return NewGeometry(l, w)
}

// GeometryOf returns the dimensions last stored on the room.
func GeometryOf(room *domain.Room) Geometry {
	return NewGeometry(room.Data.Length.Float(), room.Data.Width.Float())
}

func (g Geometry) Area() float64 {
	if !g.HasGeometry {
		return 0
	}
	return g.Length * g.Width
}

// BreakdownLine is one contributing line of a room summary.
type BreakdownLine struct {
	LineID    string          `json:"lineId"`
	Label     string          `json:"label"`
	Unit      domain.UnitKind `json:"unit"`
	Qty       float64         `json:"qty"`
	UnitPrice float64         `json:"unitPrice"`
	Cost      float64         `json:"cost"`
}

type Result struct {
	RoomName  string          `json:"roomName"`
	RoomArea  float64         `json:"roomArea"`
	LineTotal float64         `json:"lineTotal"`
	Lines     []BreakdownLine `json:"lines"`
	HTML      string          `json:"html"`
}

// Calculate recomputes the room from geometry. Auto sqm lines take the room
// area as their quantity, the flooring line is forced on, and every selected
// line is priced into the room total. Without geometry it returns false and
// leaves the room untouched.
func Calculate(room *domain.Room, g Geometry) (Result, bool) {
	if !g.HasGeometry {
		return Result{}, false
	}

	area := g.Area()
	res := Result{RoomName: room.Name, RoomArea: area, Lines: []BreakdownLine{}}

	for i := range room.Data.Lines {
		l := &room.Data.Lines[i]
		if l.Unit.AutoFillsArea() && bool(l.AutoQty) {
			l.Qty = domain.Number(area)
		}
		if l.IsFlooring() {
			l.Selected = true
		}
		l.Qty = l.Qty.Safe()
		l.UnitPrice = l.UnitPrice.Safe()

		if !l.Selected {
			l.Total = 0
			continue
		}
		cost := l.Qty.Float() * l.UnitPrice.Float()
		l.Total = domain.Number(cost).Safe()
		res.LineTotal += l.Total.Float()

		if l.Qty > 0 {
			res.Lines = append(res.Lines, BreakdownLine{
				LineID:    l.ID,
				Label:     l.Label,
				Unit:      l.Unit,
				Qty:       l.Qty.Float(),
				UnitPrice: l.UnitPrice.Float(),
				Cost:      l.Total.Float(),
			})
		}
	}

	res.HTML = renderResult(res)

	room.Data.Length = domain.Number(g.Length)
	room.Data.Width = domain.Number(g.Width)
	room.Data.RoomArea = domain.Number(area)
	room.Data.LineTotal = domain.Number(res.LineTotal)
	room.Data.ResultHTML = res.HTML
	return res, true
}

// Recalculate reruns Calculate with the room's stored dimensions.
func Recalculate(room *domain.Room) (Result, bool) {
	return Calculate(room, GeometryOf(room))
}
