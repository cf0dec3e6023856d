// Package workspace holds one user's in-progress quoting session: the
// customer being quoted, their rooms, the active room, and the pricing
// context every edit is recalculated against.
package workspace

import (
	"errors"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/vbonduro/measureiq/internal/catalog"
	"github.com/vbonduro/measureiq/internal/domain"
	"github.com/vbonduro/measureiq/internal/quote"
	"github.com/vbonduro/measureiq/internal/room"
)

var (
	ErrNoActiveRoom     = errors.New("no room selected")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomNameRequired = errors.New("room name is required")
)

// State is safe for concurrent use. Rooms handed out by its methods are
// copies.
type State struct {
	mu sync.Mutex

	rooms        []domain.Room
	activeID     int64
	customerName string
	jobRef       string
	notes        string

	entries       []domain.AccessoryCatalogEntry
	prices        map[string]domain.Number
	defs          []domain.AccessoryDefinition
	profile       domain.BusinessProfile
	vatRate       float64
	showLineItems bool

	numbers quote.Numberer
}

// Settings is the pricing context a State starts with.
type Settings struct {
	Catalog []domain.AccessoryCatalogEntry
	Prices  map[string]domain.Number
	Profile domain.BusinessProfile
	VATRate float64
}

func New(s Settings) *State {
	if s.VATRate <= 0 {
		s.VATRate = quote.DefaultVATRate
	}
	st := &State{
		entries:       s.Catalog,
		prices:        s.Prices,
		profile:       s.Profile,
		vatRate:       s.VATRate,
		showLineItems: s.Profile.ShowLineItemsOnQuote,
	}
	st.defs = catalog.BuildDefinitions(st.entries, st.prices)
	return st
}

// Snapshot is the client-facing view of a State.
type Snapshot struct {
	CustomerName  string                       `json:"customerName"`
	JobRef        string                       `json:"jobRef"`
	ActiveRoomID  int64                        `json:"activeRoomId"`
	Rooms         []domain.Room                `json:"rooms"`
	Definitions   []domain.AccessoryDefinition `json:"definitions"`
	VATRate       float64                      `json:"vatRate"`
	Notes         string                       `json:"notes"`
	ShowLineItems bool                         `json:"showLineItems"`
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		CustomerName:  s.customerName,
		JobRef:        s.jobRef,
		ActiveRoomID:  s.activeID,
		Rooms:         cloneRooms(s.rooms),
		Definitions:   append([]domain.AccessoryDefinition{}, s.defs...),
		VATRate:       s.vatRate,
		Notes:         s.notes,
		ShowLineItems: s.showLineItems,
	}
}

// CustomerName reports the name autosaves are filed under.
func (s *State) CustomerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customerName
}

func (s *State) find(id int64) *domain.Room {
	for i := range s.rooms {
		if s.rooms[i].ID == id {
			return &s.rooms[i]
		}
	}
	return nil
}

// AddRoom creates a room, seeds its lines, and makes it active. Its id is
// the creation time in epoch milliseconds, bumped if already taken.
func (s *State) AddRoom(name string, now time.Time) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, ErrRoomNameRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := now.UnixMilli()
	for s.find(id) != nil {
		id++
	}
	r := domain.Room{ID: id, Name: name}
	room.Normalise(&r, s.defs)
	s.rooms = append(s.rooms, r)
	s.activeID = id
	return cloneRoom(r), nil
}

func (s *State) RenameRoom(id int64, name string) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Room{}, ErrRoomNameRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(id)
	if r == nil {
		return domain.Room{}, ErrRoomNotFound
	}
	r.Name = name
	room.Recalculate(r)
	return cloneRoom(*r), nil
}

// DeleteRoom removes a room. When it was active, the first remaining room
// becomes active.
func (s *State) DeleteRoom(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.rooms {
		if s.rooms[i].ID != id {
			continue
		}
		s.rooms = append(s.rooms[:i], s.rooms[i+1:]...)
		if s.activeID == id {
			s.activeID = 0
			if len(s.rooms) > 0 {
				s.activeID = s.rooms[0].ID
			}
		}
		return nil
	}
	return ErrRoomNotFound
}

func (s *State) SelectRoom(id int64) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(id)
	if r == nil {
		return domain.Room{}, ErrRoomNotFound
	}
	s.activeID = id
	room.Normalise(r, s.defs)
	return cloneRoom(*r), nil
}

func (s *State) ActiveRoom() (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(s.activeID)
	if r == nil {
		return domain.Room{}, ErrNoActiveRoom
	}
	return cloneRoom(*r), nil
}

// UpdateGeometry recalculates a room from new dimensions. The bool is false
// when the dimensions are incomplete, in which case the room is unchanged.
func (s *State) UpdateGeometry(id int64, g room.Geometry) (room.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(id)
	if r == nil {
		return room.Result{}, false, ErrRoomNotFound
	}
	room.Normalise(r, s.defs)
	res, ok := room.Calculate(r, g)
	return res, ok, nil
}

// LineEdit carries the fields of a line the user changed. Nil fields are
// left alone. Changes apply in field order, so a Qty and an AutoQty of true
// in one edit end with auto mode on.
type LineEdit struct {
	Label     *string  `json:"label,omitempty"`
	Qty       *float64 `json:"qty,omitempty"`
	AutoQty   *bool    `json:"autoQty,omitempty"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
	Selected  *bool    `json:"selected,omitempty"`
}

// EditLine applies e to one line and recalculates the room.
func (s *State) EditLine(roomID int64, lineID string, e LineEdit) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(roomID)
	if r == nil {
		return domain.Room{}, ErrRoomNotFound
	}
	room.Normalise(r, s.defs)

	if e.Label != nil {
		if err := room.RenameLine(r, lineID, *e.Label); err != nil {
			return domain.Room{}, err
		}
	}
	if e.Qty != nil {
		if err := room.SetQuantity(r, lineID, *e.Qty); err != nil {
			return domain.Room{}, err
		}
	}
	if e.AutoQty != nil {
		if err := room.SetAutoQuantity(r, lineID, *e.AutoQty); err != nil {
			return domain.Room{}, err
		}
	}
	if e.UnitPrice != nil {
		if err := room.SetUnitPrice(r, lineID, *e.UnitPrice); err != nil {
			return domain.Room{}, err
		}
	}
	if e.Selected != nil {
		if err := room.SetSelected(r, lineID, *e.Selected, s.defs); err != nil {
			return domain.Room{}, err
		}
	}
	room.Recalculate(r)
	return cloneRoom(*r), nil
}

func (s *State) AddLine(roomID int64, label string, unit domain.UnitKind, price float64) (domain.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(roomID)
	if r == nil {
		return domain.Line{}, ErrRoomNotFound
	}
	room.Normalise(r, s.defs)
	id := room.AddCustomLine(r, label, unit, price).ID
	room.Recalculate(r)
	return *r.Line(id), nil
}

func (s *State) RemoveLine(roomID int64, lineID string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.find(roomID)
	if r == nil {
		return domain.Room{}, ErrRoomNotFound
	}
	if err := room.RemoveLine(r, lineID); err != nil {
		return domain.Room{}, err
	}
	room.Recalculate(r)
	return cloneRoom(*r), nil
}

// SetCatalog replaces the catalog and reconciles every room against it.
func (s *State) SetCatalog(entries []domain.AccessoryCatalogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.refreshDefinitions()
}

// SetPrices replaces the user's accessory prices. Accessory lines pick up the
// new price unless the user overrode it on that line.
func (s *State) SetPrices(prices map[string]domain.Number) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = prices
	s.refreshDefinitions()
}

func (s *State) refreshDefinitions() {
	s.defs = catalog.BuildDefinitions(s.entries, s.prices)
	for i := range s.rooms {
		r := &s.rooms[i]
		room.Normalise(r, s.defs)
		room.ApplyDefinitionPrices(r, s.defs)
		room.Recalculate(r)
	}
}

func (s *State) Definitions() []domain.AccessoryDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AccessoryDefinition{}, s.defs...)
}

// SetProfile replaces the business profile and resets the line item toggle
// to the profile's preference.
func (s *State) SetProfile(p domain.BusinessProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.showLineItems = p.ShowLineItemsOnQuote
}

// QuoteSettings are the per-quote choices made on the quote tab.
type QuoteSettings struct {
	Notes         *string `json:"notes,omitempty"`
	ShowLineItems *bool   `json:"showLineItems,omitempty"`
}

// CustomerDetails updates the customer fields. Nil fields are left alone.
type CustomerDetails struct {
	Name   *string `json:"name,omitempty"`
	JobRef *string `json:"jobRef,omitempty"`
	QuoteSettings
}

func (s *State) UpdateCustomer(d CustomerDetails) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Name != nil {
		s.customerName = strings.TrimSpace(*d.Name)
	}
	if d.JobRef != nil {
		s.jobRef = strings.TrimSpace(*d.JobRef)
	}
	if d.Notes != nil {
		s.notes = *d.Notes
	}
	if d.ShowLineItems != nil {
		s.showLineItems = *d.ShowLineItems
	}
}

// LoadCustomer replaces the session with a saved customer. The first room
// becomes active and a new quote number will be issued.
func (s *State) LoadCustomer(c domain.CustomerRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customerName = c.Name
	s.jobRef = c.JobRef
	s.notes = ""
	s.rooms = cloneRooms(c.Rooms)
	for i := range s.rooms {
		room.Normalise(&s.rooms[i], s.defs)
		room.Recalculate(&s.rooms[i])
	}
	s.activeID = 0
	if len(s.rooms) > 0 {
		s.activeID = s.rooms[0].ID
	}
	s.numbers.Reset()
}

// NewCustomer clears the session.
func (s *State) NewCustomer() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customerName = ""
	s.jobRef = ""
	s.notes = ""
	s.rooms = nil
	s.activeID = 0
	s.showLineItems = s.profile.ShowLineItemsOnQuote
	s.numbers.Reset()
}

// Record returns the session as a customer record stamped with now.
func (s *State) Record(now time.Time) domain.CustomerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CustomerRecord{
		Name:      s.customerName,
		JobRef:    s.jobRef,
		Rooms:     cloneRooms(s.rooms),
		Timestamp: now.UnixMilli(),
	}
}

// Quote builds the customer quote. Blank notes fall back to the profile's
// default notes.
func (s *State) Quote(now time.Time) quote.View {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes := s.notes
	if strings.TrimSpace(notes) == "" {
		notes = s.profile.DefaultNotes
	}
	return quote.Build(s.rooms, s.profile, s.vatRate, quote.Options{
		ShowLineItems: s.showLineItems,
		Notes:         notes,
		CustomerName:  s.customerName,
		JobRef:        s.jobRef,
		QuoteNumber:   s.numbers.Current(now),
		Date:          now,
	})
}

func (s *State) Summary() quote.SummaryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return quote.Summary(s.rooms)
}

func cloneRooms(rooms []domain.Room) []domain.Room {
	out := make([]domain.Room, len(rooms))
	for i := range rooms {
		out[i] = cloneRoom(rooms[i])
	}
	return out
}

func cloneRoom(r domain.Room) domain.Room {
	if r.Data.Lines != nil {
		r.Data.Lines = append([]domain.Line{}, r.Data.Lines...)
	}
	r.Data.Accessories = maps.Clone(r.Data.Accessories)
	return r
}
