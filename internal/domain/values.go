package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnitKind is how a line is measured. Only sqm is bound to room area.
type UnitKind string

const (
	UnitSqm  UnitKind = "sqm"
	UnitLm   UnitKind = "lm"
	UnitEach UnitKind = "each"
	UnitBox  UnitKind = "box"
)

// AutoFillsArea reports whether lines of this unit take the room area as
// their quantity while in auto mode.
func (u UnitKind) AutoFillsArea() bool {
	switch u {
	case UnitSqm:
		return true
	case UnitLm, UnitEach, UnitBox:
		return false
	default:
		return false
	}
}

// Label is the pricing-column label, e.g. "per m²".
func (u UnitKind) Label() string {
	switch u {
	case UnitSqm:
		return "per m²"
	case UnitLm:
		return "per m"
	default:
		return "per item"
	}
}

// Display is the quantity suffix, e.g. "m²".
func (u UnitKind) Display() string {
	switch u {
	case UnitSqm:
		return "m²"
	case UnitLm:
		return "m"
	default:
		return "item(s)"
	}
}

// LineSource records where a line came from.
type LineSource string

const (
	SourceSystem    LineSource = "system"
	SourceAccessory LineSource = "accessory"
	SourceCustom    LineSource = "custom"
)

// Removable reports whether a user may delete lines of this source.
func (s LineSource) Removable() bool {
	switch s {
	case SourceCustom:
		return true
	case SourceSystem, SourceAccessory:
		return false
	default:
		return false
	}
}

// LabelEditable reports whether a user may rename lines of this source.
func (s LineSource) LabelEditable() bool {
	return s == SourceCustom
}

// Number is a decimal read leniently from JSON: numeric strings are parsed
// and anything unparseable becomes 0.
type Number float64

// Safe returns n, or 0 when n is NaN, infinite or negative.
func (n Number) Safe() Number {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return n
}

func (n Number) Float() float64 {
	return float64(n)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	*n = 0
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case float64:
		*n = Number(x)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			*n = Number(f)
		}
	case bool:
		if x {
			*n = 1
		}
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return json.Marshal(f)
}

// Flag is a bool read from JSON with the truthiness rules of the browser
// client that wrote older documents.
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*f = false
		return nil
	}
	switch x := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(x)
	case float64:
		*f = Flag(x != 0 && !math.IsNaN(x))
	case string:
		*f = x != ""
	default:
		*f = true
	}
	return nil
}
