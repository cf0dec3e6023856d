package room

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/measureiq/internal/domain"
)

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		name string
		l, w float64
		ok   bool
	}{
		{"positive", 4, 5, true},
		{"zero length", 0, 5, false},
		{"negative width", 4, -1, false},
		{"nan", math.NaN(), 5, false},
		{"inf", 4, math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGeometry(tt.l, tt.w)
			assert.Equal(t, tt.ok, g.HasGeometry)
			if tt.ok {
				assert.Equal(t, tt.l*tt.w, g.Area())
			} else {
				assert.Zero(t, g.Area())
			}
		})
	}
}

func TestParseGeometry(t *testing.T) {
	assert.True(t, ParseGeometry("4", " 5.5 ").HasGeometry)
	assert.False(t, ParseGeometry("", "5").HasGeometry)
	assert.False(t, ParseGeometry("4", "abc").HasGeometry)
	assert.InDelta(t, 22.0, ParseGeometry("4", "5.5").Area(), 1e-9)
}

func TestCalculateScenario(t *testing.T) {
	defs := []domain.AccessoryDefinition{
		{AccessoryCatalogEntry: domain.AccessoryCatalogEntry{ID: "trim", Name: "Edge trim", Unit: domain.UnitLm}, Price: 2.5},
	}
	r := &domain.Room{ID: 1, Name: "Lounge"}
	Normalise(r, defs)
	require.NoError(t, SetSelected(r, AccessoryLineID("trim"), true, defs))
	require.NoError(t, SetQuantity(r, AccessoryLineID("trim"), 10))
	require.NoError(t, SetUnitPrice(r, domain.FlooringLineID, 15))

	res, ok := Calculate(r, NewGeometry(4, 5))
	require.True(t, ok)

	assert.Equal(t, 20.0, res.RoomArea)
	assert.Equal(t, domain.Number(25), r.Line(AccessoryLineID("trim")).Total)
	assert.Equal(t, domain.Number(20), r.Line(domain.FlooringLineID).Qty)
	assert.Equal(t, domain.Number(300), r.Line(domain.FlooringLineID).Total)
	assert.Equal(t, 325.0, res.LineTotal)

	assert.Equal(t, domain.Number(4), r.Data.Length)
	assert.Equal(t, domain.Number(5), r.Data.Width)
	assert.Equal(t, domain.Number(20), r.Data.RoomArea)
	assert.Equal(t, domain.Number(325), r.Data.LineTotal)
	assert.Equal(t, res.HTML, r.Data.ResultHTML)
	assert.Contains(t, res.HTML, "Lounge Summary")
	assert.Contains(t, res.HTML, "Edge trim: £25.00 (10.00 m @ £2.50)")
	assert.Contains(t, res.HTML, "Room total (ex VAT): £325.00")
}

func TestCalculateWithoutGeometryLeavesRoomUntouched(t *testing.T) {
	r := &domain.Room{Name: "Hall"}
	Normalise(r, nil)
	require.NoError(t, SetUnitPrice(r, domain.FlooringLineID, 10))
	_, ok := Calculate(r, NewGeometry(2, 3))
	require.True(t, ok)
	before := *r
	beforeLines := append([]domain.Line(nil), r.Data.Lines...)

	res, ok := Calculate(r, ParseGeometry("", "3"))
	assert.False(t, ok)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, before.Data.LineTotal, r.Data.LineTotal)
	assert.Equal(t, before.Data.RoomArea, r.Data.RoomArea)
	assert.Equal(t, before.Data.ResultHTML, r.Data.ResultHTML)
	assert.Equal(t, beforeLines, r.Data.Lines)
}

func TestCalculateAutoQtyFollowsArea(t *testing.T) {
	defs := testDefs()
	r := &domain.Room{}
	Normalise(r, defs)

	for _, dims := range [][2]float64{{3, 4}, {2.5, 6.1}, {10, 0.5}} {
		_, ok := Calculate(r, NewGeometry(dims[0], dims[1]))
		require.True(t, ok)
		area := dims[0] * dims[1]
		assert.Equal(t, domain.Number(area), r.Data.RoomArea)
		for _, l := range r.Data.Lines {
			if l.Unit == domain.UnitSqm && l.AutoQty {
				assert.Equal(t, domain.Number(area), l.Qty, l.ID)
			}
		}
	}
}

func TestCalculateManualQtySurvivesGeometryChanges(t *testing.T) {
	r := &domain.Room{}
	Normalise(r, testDefs())
	_, _ = Calculate(r, NewGeometry(4, 5))

	require.NoError(t, SetQuantity(r, domain.FlooringLineID, 22))
	for _, dims := range [][2]float64{{6, 6}, {1, 2}} {
		_, ok := Calculate(r, NewGeometry(dims[0], dims[1]))
		require.True(t, ok)
		f := r.Line(domain.FlooringLineID)
		assert.False(t, bool(f.AutoQty))
		assert.Equal(t, domain.Number(22), f.Qty)
	}
}

func TestCalculateForcesFlooringSelected(t *testing.T) {
	r := &domain.Room{}
	Normalise(r, nil)
	r.Data.Lines[0].Selected = false
	r.Data.Lines[0].UnitPrice = 10

	res, ok := Calculate(r, NewGeometry(2, 2))
	require.True(t, ok)
	assert.True(t, bool(r.Line(domain.FlooringLineID).Selected))
	assert.Equal(t, 40.0, res.LineTotal)
}

func TestCalculateTotalsOnlySelectedLines(t *testing.T) {
	defs := testDefs()
	r := &domain.Room{}
	Normalise(r, defs)
	require.NoError(t, SetUnitPrice(r, domain.FlooringLineID, 12))
	require.NoError(t, SetQuantity(r, AccessoryLineID("trim"), 8))
	require.NoError(t, SetSelected(r, AccessoryLineID("doorbars"), true, defs))
	AddCustomLine(r, "Disposal", domain.UnitEach, 30)

	res, ok := Calculate(r, NewGeometry(3, 3))
	require.True(t, ok)

	var sum float64
	for _, l := range r.Data.Lines {
		if l.Selected {
			assert.Equal(t, l.Qty*l.UnitPrice, l.Total, l.ID)
			sum += l.Total.Float()
		} else {
			assert.Zero(t, l.Total, l.ID)
		}
	}
	assert.Equal(t, sum, res.LineTotal)
	assert.Zero(t, r.Line(AccessoryLineID("trim")).Total)
}

func TestCalculateNoItemsSelected(t *testing.T) {
	r := &domain.Room{Name: "Box room"}
	Normalise(r, nil)
	r.Data.Lines[0].AutoQty = false

	res, ok := Calculate(r, NewGeometry(1, 1))
	require.True(t, ok)
	assert.Empty(t, res.Lines)
	assert.Contains(t, res.HTML, "No items selected")
}

func TestCalculateEscapesRoomName(t *testing.T) {
	r := &domain.Room{Name: "<b>Kid's room</b>"}
	Normalise(r, nil)
	res, ok := Calculate(r, NewGeometry(1, 1))
	require.True(t, ok)
	assert.NotContains(t, res.HTML, "<b>Kid")
	assert.Contains(t, res.HTML, "&lt;b&gt;")
}

func TestRecalculateUsesStoredGeometry(t *testing.T) {
	r := &domain.Room{}
	Normalise(r, nil)
	_, ok := Recalculate(r)
	assert.False(t, ok)

	_, _ = Calculate(r, NewGeometry(2, 5))
	require.NoError(t, SetUnitPrice(r, domain.FlooringLineID, 3))
	res, ok := Recalculate(r)
	require.True(t, ok)
	assert.Equal(t, 30.0, res.LineTotal)
}
