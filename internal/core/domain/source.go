package domain

import (
	"fmt"
	"time"
)

// EntityKind identifies a source table tracked by its own watermark.
type EntityKind string

// Entity kinds in extraction order.
const (
	KindPerson EntityKind = "person"
	KindGenre  EntityKind = "genre"
	KindMovie  EntityKind = "movie"
)

// AllKinds returns every entity kind in extraction order.
func AllKinds() []EntityKind {
	return []EntityKind{KindPerson, KindGenre, KindMovie}
}

// IsValid reports whether k is a known entity kind.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindPerson, KindGenre, KindMovie:
		return true
	}
	return false
}

func (k EntityKind) String() string { return string(k) }

// ParseEntityKind converts s into an EntityKind.
func ParseEntityKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown entity kind %q", ErrInvalidInput, s)
	}
	return k, nil
}

// MinTimestamp is the watermark of a kind that has never been synced.
var MinTimestamp = time.Time{}

// Watermarks maps each entity kind to the updated_at of the last row processed.
type Watermarks map[EntityKind]time.Time

// Get returns the watermark for kind and whether it was present.
func (w Watermarks) Get(kind EntityKind) (time.Time, bool) {
	ts, ok := w[kind]
	return ts, ok
}

// Clone returns an independent copy.
func (w Watermarks) Clone() Watermarks {
	out := make(Watermarks, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Missing returns the kinds from AllKinds that have no watermark.
func (w Watermarks) Missing() []EntityKind {
	var missing []EntityKind
	for _, k := range AllKinds() {
		if _, ok := w[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
