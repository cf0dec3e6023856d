// Package room owns a room's billable lines: reconciling them against the
// accessory definitions, applying user edits, and recalculating totals.
package room

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vbonduro/measureiq/internal/domain"
)

var (
	ErrLineNotFound     = errors.New("line not found")
	ErrLineNotRemovable = errors.New("only custom lines can be removed")
	ErrLineNotEditable  = errors.New("only custom lines can be renamed")
)

const (
	flooringLabel      = "Flooring"
	defaultCustomLabel = "Custom item"
	accessoryIDPrefix  = "acc_"
)

// AccessoryLineID is the line id used for the accessory with the given id.
func AccessoryLineID(accessoryID string) string {
	return accessoryIDPrefix + accessoryID
}

func newFlooringLine() domain.Line {
	return domain.Line{
		ID:       domain.FlooringLineID,
		Label:    flooringLabel,
		Unit:     domain.UnitSqm,
		Source:   domain.SourceSystem,
		Selected: true,
		AutoQty:  true,
	}
}

func newAccessoryLine(def domain.AccessoryDefinition) domain.Line {
	return domain.Line{
		ID:        AccessoryLineID(def.ID),
		Label:     def.Name,
		Unit:      def.Unit,
		Source:    domain.SourceAccessory,
		SourceID:  def.ID,
		AutoQty:   domain.Flag(def.Unit.AutoFillsArea()),
		UnitPrice: domain.Number(def.Price).Safe(),
	}
}

// Normalise makes room hold exactly one flooring line and one line per
// accessory definition, then sanitises every line's numbers. Lines are never
// removed, so accessories dropped from the catalog keep their lines.
// Calling it again on the same room changes nothing.
func Normalise(room *domain.Room, defs []domain.AccessoryDefinition) {
	d := &room.Data
	if d.Lines == nil {
		d.Lines = []domain.Line{}
	}

	if room.Line(domain.FlooringLineID) == nil {
		d.Lines = append([]domain.Line{newFlooringLine()}, d.Lines...)
	}

	for _, def := range defs {
		if findAccessoryLine(d.Lines, def.ID) >= 0 {
			continue
		}
		line := newAccessoryLine(def)
		if legacy, ok := d.Accessories[def.ID]; ok {
			line.Selected = legacy.Selected
			line.Qty = legacy.Qty
			line.AutoQty = false
			// keep the price the room was quoted at
			if p := legacy.UnitPrice.Safe(); p > 0 {
				line.UnitPrice = p
				line.PriceOverridden = domain.Flag(p.Float() != def.Price)
			}
			delete(d.Accessories, def.ID)
		}
		d.Lines = insertBeforeCustom(d.Lines, line)
	}
	if len(d.Accessories) == 0 {
		d.Accessories = nil
	}

	for i := range d.Lines {
		l := &d.Lines[i]
		l.Qty = l.Qty.Safe()
		l.UnitPrice = l.UnitPrice.Safe()
		l.Total = l.Total.Safe()
	}
}

func findAccessoryLine(lines []domain.Line, accessoryID string) int {
	for i := range lines {
		if lines[i].Source == domain.SourceAccessory && lines[i].SourceID == accessoryID {
			return i
		}
	}
	return -1
}

// insertBeforeCustom keeps custom lines after every system and accessory line.
func insertBeforeCustom(lines []domain.Line, line domain.Line) []domain.Line {
	at := len(lines)
	for i := range lines {
		if lines[i].Source == domain.SourceCustom {
			at = i
			break
		}
	}
	lines = append(lines, domain.Line{})
	copy(lines[at+1:], lines[at:])
	lines[at] = line
	return lines
}

// ApplyDefinitionPrices copies the current definition price onto every
// accessory line whose price the user has not overridden.
func ApplyDefinitionPrices(room *domain.Room, defs []domain.AccessoryDefinition) {
	prices := make(map[string]float64, len(defs))
	for _, def := range defs {
		prices[def.ID] = def.Price
	}
	for i := range room.Data.Lines {
		l := &room.Data.Lines[i]
		if l.Source != domain.SourceAccessory || l.PriceOverridden {
			continue
		}
		if p, ok := prices[l.SourceID]; ok {
			l.UnitPrice = domain.Number(p).Safe()
		}
	}
}

func lookup(room *domain.Room, lineID string) (*domain.Line, error) {
	l := room.Line(lineID)
	if l == nil {
		return nil, ErrLineNotFound
	}
	return l, nil
}

// SetQuantity records a quantity typed by the user. It detaches the line from
// the room area until SetAutoQuantity turns auto mode back on.
func SetQuantity(room *domain.Room, lineID string, qty float64) error {
	l, err := lookup(room, lineID)
	if err != nil {
		return err
	}
	l.Qty = domain.Number(qty).Safe()
	l.AutoQty = false
	return nil
}

// SetAutoQuantity switches a line's quantity binding to the room area on or
// off. When turned on and the room has an area, the quantity follows it now.
func SetAutoQuantity(room *domain.Room, lineID string, auto bool) error {
	l, err := lookup(room, lineID)
	if err != nil {
		return err
	}
	l.AutoQty = domain.Flag(auto)
	if auto && l.Unit.AutoFillsArea() && room.Data.RoomArea > 0 {
		l.Qty = room.Data.RoomArea
	}
	return nil
}

// SetUnitPrice records a price typed by the user. Accessory lines are marked
// overridden so later catalog price saves leave them alone.
func SetUnitPrice(room *domain.Room, lineID string, price float64) error {
	l, err := lookup(room, lineID)
	if err != nil {
		return err
	}
	l.UnitPrice = domain.Number(price).Safe()
	if l.Source == domain.SourceAccessory {
		l.PriceOverridden = true
	}
	return nil
}

// SetSelected toggles whether a line is billed. The flooring line cannot be
// deselected. Selecting a line with no quantity seeds one from the room area
// for auto sqm lines, or from the catalog default quantity.
func SetSelected(room *domain.Room, lineID string, selected bool, defs []domain.AccessoryDefinition) error {
	l, err := lookup(room, lineID)
	if err != nil {
		return err
	}
	if l.IsFlooring() {
		l.Selected = true
		return nil
	}
	l.Selected = domain.Flag(selected)
	if !selected || l.Qty > 0 {
		return nil
	}

	switch {
	case l.Unit.AutoFillsArea() && bool(l.AutoQty) && room.Data.RoomArea > 0:
		l.Qty = room.Data.RoomArea
	case l.Source == domain.SourceAccessory:
		for _, def := range defs {
			if def.ID == l.SourceID && def.DefaultQty > 0 {
				l.Qty = def.DefaultQty
				break
			}
		}
	}
	return nil
}

// AddCustomLine appends a free-text line after all existing lines.
func AddCustomLine(room *domain.Room, label string, unit domain.UnitKind, price float64) *domain.Line {
	label = strings.TrimSpace(label)
	if label == "" {
		label = defaultCustomLabel
	}
	if unit == "" {
		unit = domain.UnitEach
	}
	line := domain.Line{
		ID:        uuid.NewString(),
		Label:     label,
		Unit:      unit,
		Source:    domain.SourceCustom,
		Selected:  true,
		AutoQty:   domain.Flag(unit.AutoFillsArea()),
		UnitPrice: domain.Number(price).Safe(),
	}
	if line.AutoQty && room.Data.RoomArea > 0 {
		line.Qty = room.Data.RoomArea
	}
	room.Data.Lines = append(room.Data.Lines, line)
	return &room.Data.Lines[len(room.Data.Lines)-1]
}

// RemoveLine deletes a custom line.
func RemoveLine(room *domain.Room, lineID string) error {
	for i := range room.Data.Lines {
		if room.Data.Lines[i].ID != lineID {
			continue
		}
		if !room.Data.Lines[i].Source.Removable() {
			return ErrLineNotRemovable
		}
		room.Data.Lines = append(room.Data.Lines[:i], room.Data.Lines[i+1:]...)
		return nil
	}
	return ErrLineNotFound
}

// RenameLine changes the label of a custom line.
func RenameLine(room *domain.Room, lineID, label string) error {
	l, err := lookup(room, lineID)
	if err != nil {
		return err
	}
	if !l.Source.LabelEditable() {
		return ErrLineNotEditable
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = defaultCustomLabel
	}
	l.Label = label
	return nil
}
