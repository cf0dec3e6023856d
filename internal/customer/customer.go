// Package customer manipulates the saved customer list. A customer is
// identified by the exact name it was saved under.
package customer

import (
	"slices"
	"strings"

	"github.com/vbonduro/measureiq/internal/domain"
)

// Upsert replaces the entry whose name matches record.Name exactly, or
// appends record when there is none. The input slice is not modified.
func Upsert(list []domain.CustomerRecord, record domain.CustomerRecord) []domain.CustomerRecord {
	out := slices.Clone(list)
	for i := range out {
		if out[i].Name == record.Name {
			out[i] = record
			return out
		}
	}
	return append(out, record)
}

// Delete removes every entry saved under name.
func Delete(list []domain.CustomerRecord, name string) []domain.CustomerRecord {
	return slices.DeleteFunc(slices.Clone(list), func(c domain.CustomerRecord) bool {
		return c.Name == name
	})
}

// Find returns the first entry saved under name.
func Find(list []domain.CustomerRecord, name string) (domain.CustomerRecord, bool) {
	for _, c := range list {
		if c.Name == name {
			return c, true
		}
	}
	return domain.CustomerRecord{}, false
}

// SortedByRecent returns a copy ordered by most recent save first.
func SortedByRecent(list []domain.CustomerRecord) []domain.CustomerRecord {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b domain.CustomerRecord) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		default:
			return 0
		}
	})
	return out
}

// ValidName reports whether name can identify a saved customer.
func ValidName(name string) bool {
	return strings.TrimSpace(name) != ""
}
