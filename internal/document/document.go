// Package document reads and writes the per-user JSON document kept in the
// document store. Only three top-level keys are interpreted; anything else a
// client stored is carried through untouched.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/vbonduro/measureiq/internal/domain"
)

const (
	KeyBusinessProfile = "businessProfile"
	KeyAccessoryPrices = "accessoryPrices"
	KeyCustomers       = "customers"
)

// Empty is the stored form of a user with no saved data.
var Empty = []byte("{}")

// Document is a decoded user document. A nil field means the key is absent
// or held a value of the wrong type; Encode then leaves the stored value as
// it was.
type Document struct {
	BusinessProfile *domain.BusinessProfile
	AccessoryPrices map[string]domain.Number
	Customers       []domain.CustomerRecord

	unreadable []unreadableCustomer
	raw        map[string]json.RawMessage
}

// unreadableCustomer is a stored customer entry that did not decode. Encode
// writes it back as stored unless a customer of the same name replaced it.
type unreadableCustomer struct {
	name string
	raw  json.RawMessage
}

// New returns an empty document.
func New() *Document {
	return &Document{raw: map[string]json.RawMessage{}}
}

// Decode parses a stored document. Empty input and JSON null decode to an
// empty document; a top-level value that is not an object is an error.
func Decode(b []byte) (*Document, error) {
	d := New()
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return d, nil
	}
	if err := json.Unmarshal(b, &d.raw); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if d.raw == nil {
		d.raw = map[string]json.RawMessage{}
	}

	if v, ok := d.raw[KeyBusinessProfile]; ok && isObject(v) {
		// saved keys are laid over the defaults
		p := DefaultProfile()
		if json.Unmarshal(v, &p) == nil {
			d.BusinessProfile = &p
		}
	}
	if v, ok := d.raw[KeyAccessoryPrices]; ok && isObject(v) {
		var prices map[string]domain.Number
		if json.Unmarshal(v, &prices) == nil {
			d.AccessoryPrices = prices
		}
	}
	if v, ok := d.raw[KeyCustomers]; ok && isArray(v) {
		d.Customers, d.unreadable = decodeCustomers(v)
	}
	return d, nil
}

// decodeCustomers splits the stored list into records that decode and
// entries kept verbatim.
func decodeCustomers(v json.RawMessage) ([]domain.CustomerRecord, []unreadableCustomer) {
	var items []json.RawMessage
	if json.Unmarshal(v, &items) != nil {
		return nil, nil
	}
	out := make([]domain.CustomerRecord, 0, len(items))
	var bad []unreadableCustomer
	for _, item := range items {
		var c domain.CustomerRecord
		if isObject(item) && json.Unmarshal(item, &c) == nil {
			out = append(out, c)
			continue
		}
		var named struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(item, &named)
		bad = append(bad, unreadableCustomer{name: named.Name, raw: item})
	}
	return out, bad
}

// DropUnreadableCustomer forgets stored entries under name that could not
// be decoded, so deleting a customer removes them too.
func (d *Document) DropUnreadableCustomer(name string) {
	d.unreadable = slices.DeleteFunc(d.unreadable, func(u unreadableCustomer) bool {
		return u.name != "" && u.name == name
	})
}

func (d *Document) encodeCustomers() ([]json.RawMessage, error) {
	names := make(map[string]bool, len(d.Customers))
	list := make([]json.RawMessage, 0, len(d.Customers)+len(d.unreadable))
	for _, c := range d.Customers {
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("failed to encode customer %q: %w", c.Name, err)
		}
		names[c.Name] = true
		list = append(list, b)
	}
	for _, u := range d.unreadable {
		if u.name != "" && names[u.name] {
			continue
		}
		list = append(list, u.raw)
	}
	return list, nil
}

// Encode serialises the document, keeping unrecognised keys.
func (d *Document) Encode() ([]byte, error) {
	out := maps.Clone(d.raw)
	if out == nil {
		out = map[string]json.RawMessage{}
	}
	if d.BusinessProfile != nil {
		if err := put(out, KeyBusinessProfile, d.BusinessProfile); err != nil {
			return nil, err
		}
	}
	if d.AccessoryPrices != nil {
		if err := put(out, KeyAccessoryPrices, d.AccessoryPrices); err != nil {
			return nil, err
		}
	}
	if d.Customers != nil {
		list, err := d.encodeCustomers()
		if err != nil {
			return nil, err
		}
		if err := put(out, KeyCustomers, list); err != nil {
			return nil, err
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return b, nil
}

func put(m map[string]json.RawMessage, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	m[key] = b
	return nil
}

// Profile returns the saved business profile, or the defaults.
func (d *Document) Profile() domain.BusinessProfile {
	if d.BusinessProfile == nil {
		return DefaultProfile()
	}
	return *d.BusinessProfile
}

// Prices returns the accessory price map, never nil.
func (d *Document) Prices() map[string]domain.Number {
	if d.AccessoryPrices == nil {
		return map[string]domain.Number{}
	}
	return d.AccessoryPrices
}

// DefaultProfile is the profile of a user who never saved one.
func DefaultProfile() domain.BusinessProfile {
	return domain.BusinessProfile{}
}

func isObject(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '{'
}

func isArray(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '['
}
