package domain

import (
	"encoding/json"
	"time"
)

// FlooringLineID is the fixed id of the one system line every room carries.
const FlooringLineID = "flooring"

// DefaultCategory is used for catalog entries that do not name a category.
const DefaultCategory = "Other"

type AccessoryCatalogEntry struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Unit       UnitKind `json:"unit"`
	Category   string   `json:"category"`
	DefaultQty Number   `json:"defaultQty,omitempty"`
}

// AccessoryDefinition is a catalog entry priced for one user. It is derived
// from the catalog and the user's price map and never persisted itself.
type AccessoryDefinition struct {
	AccessoryCatalogEntry
	Price float64 `json:"price"`
}

// Line is one billable row within a room.
type Line struct {
	ID              string     `json:"id"`
	Label           string     `json:"label"`
	Unit            UnitKind   `json:"unit"`
	Source          LineSource `json:"source"`
	SourceID        string     `json:"sourceId,omitempty"`
	Selected        Flag       `json:"selected"`
	Qty             Number     `json:"qty"`
	AutoQty         Flag       `json:"autoQty"`
	UnitPrice       Number     `json:"unitPrice"`
	PriceOverridden Flag       `json:"priceOverridden,omitempty"`
	Total           Number     `json:"total"`
}

// IsFlooring reports whether l is the room's flooring line.
func (l *Line) IsFlooring() bool {
	return l.ID == FlooringLineID
}

// LegacySelection is the per-accessory map entry written by older clients
// before rooms carried a line list.
type LegacySelection struct {
	Selected  Flag   `json:"selected"`
	Qty       Number `json:"qty"`
	UnitPrice Number `json:"unitPrice"`
}

type RoomData struct {
	Length      Number                     `json:"length,omitempty"`
	Width       Number                     `json:"width,omitempty"`
	RoomArea    Number                     `json:"roomArea,omitempty"`
	LineTotal   Number                     `json:"lineTotal,omitempty"`
	Lines       []Line                     `json:"lines"`
	ResultHTML  string                     `json:"resultHtml,omitempty"`
	Accessories map[string]LegacySelection `json:"accessories,omitempty"`
}

// Room is identified by its creation time in epoch milliseconds.
type Room struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Collapsed Flag     `json:"collapsed,omitempty"`
	Data      RoomData `json:"data"`
}

// Line returns the line with the given id, or nil.
func (r *Room) Line(id string) *Line {
	for i := range r.Data.Lines {
		if r.Data.Lines[i].ID == id {
			return &r.Data.Lines[i]
		}
	}
	return nil
}

// CustomerRecord is the unit of save/load. Name is the identity key and is
// matched exactly.
type CustomerRecord struct {
	Name      string `json:"name"`
	JobRef    string `json:"jobRef"`
	Rooms     []Room `json:"rooms"`
	Timestamp int64  `json:"timestamp"`
}

type BusinessProfile struct {
	BusinessName         string `json:"businessName"`
	ContactName          string `json:"contactName"`
	Address1             string `json:"address1"`
	Address2             string `json:"address2"`
	Town                 string `json:"town"`
	Postcode             string `json:"postcode"`
	Phone                string `json:"phone"`
	Email                string `json:"email"`
	Website              string `json:"website"`
	VATNumber            string `json:"vatNumber"`
	ShowLineItemsOnQuote bool   `json:"showLineItemsOnQuote"`
	DefaultNotes         string `json:"defaultNotes"`
}

// UnmarshalJSON accepts the older showAccessoriesOnQuote key as an alias for
// showLineItemsOnQuote.
func (p *BusinessProfile) UnmarshalJSON(b []byte) error {
	type plain BusinessProfile
	aux := struct {
		*plain
		ShowLineItems   *Flag `json:"showLineItemsOnQuote"`
		ShowAccessories *Flag `json:"showAccessoriesOnQuote"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	switch {
	case aux.ShowLineItems != nil:
		p.ShowLineItemsOnQuote = bool(*aux.ShowLineItems)
	case aux.ShowAccessories != nil:
		p.ShowLineItemsOnQuote = bool(*aux.ShowAccessories)
	}
	return nil
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
