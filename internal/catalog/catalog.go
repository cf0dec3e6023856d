// Package catalog loads the system accessory catalog and prices it for a user.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/vbonduro/measureiq/internal/domain"
)

//go:embed accessories.json
var defaultCatalog []byte

type catalogFile struct {
	SystemAccessories []domain.AccessoryCatalogEntry `json:"systemAccessories"`
}

// Load parses a catalog document of the form {"systemAccessories": [...]}.
// Entries without an id are dropped; a missing category becomes "Other".
func Load(r io.Reader) ([]domain.AccessoryCatalogEntry, error) {
	var f catalogFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	entries := make([]domain.AccessoryCatalogEntry, 0, len(f.SystemAccessories))
	for _, e := range f.SystemAccessories {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			continue
		}
		if e.Category == "" {
			e.Category = domain.DefaultCategory
		}
		e.DefaultQty = e.DefaultQty.Safe()
		entries = append(entries, e)
	}
	return entries, nil
}

// LoadFile reads a catalog from disk.
func LoadFile(path string) ([]domain.AccessoryCatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Default returns the catalog compiled into the binary.
func Default() ([]domain.AccessoryCatalogEntry, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// BuildDefinitions prices every catalog entry from the user's price map.
// Missing, negative or non-finite prices become 0. Catalog order is kept.
func BuildDefinitions(entries []domain.AccessoryCatalogEntry, prices map[string]domain.Number) []domain.AccessoryDefinition {
	defs := make([]domain.AccessoryDefinition, 0, len(entries))
	for _, e := range entries {
		if e.Category == "" {
			e.Category = domain.DefaultCategory
		}
		defs = append(defs, domain.AccessoryDefinition{
			AccessoryCatalogEntry: e,
			Price:                 prices[e.ID].Safe().Float(),
		})
	}
	return defs
}

// CategoryGroup is one section of the pricing table.
type CategoryGroup struct {
	Category    string                       `json:"category"`
	Definitions []domain.AccessoryDefinition `json:"definitions"`
}

// GroupByCategory orders categories alphabetically with "Other" last.
// Definitions keep catalog order within their category.
func GroupByCategory(defs []domain.AccessoryDefinition) []CategoryGroup {
	index := make(map[string]int)
	var groups []CategoryGroup
	for _, d := range defs {
		cat := d.Category
		if cat == "" {
			cat = domain.DefaultCategory
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Category: cat})
		}
		groups[i].Definitions = append(groups[i].Definitions, d)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Category, groups[j].Category
		if a == domain.DefaultCategory {
			return false
		}
		if b == domain.DefaultCategory {
			return true
		}
		return a < b
	})
	return groups
}
