package ngram

import (
	"fmt"
	"maps"
	"slices"
)

// Model is the frequency table of one depth level: every key is the
// concatenation of exactly Level grapheme clusters and maps to the number of
// times that window occurred in the corpus.
type Model struct {
	Level  int
	Counts map[string]uint64
}

// NewModel returns an empty model for the given level.
func NewModel(level int) *Model {
	return &Model{Level: level, Counts: make(map[string]uint64)}
}

// Add increments the count of key by n.
func (m *Model) Add(key string, n uint64) {
	if n == 0 {
		return
	}
	m.Counts[key] += n
}

// Merge adds every count of other into m. Merging is commutative and
// associative, so the final model does not depend on the order in which
// partial models arrive.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return nil
	}
	if other.Level != m.Level {
		return fmt.Errorf("cannot merge level %d model into level %d model", other.Level, m.Level)
	}
	if m.Counts == nil {
		m.Counts = make(map[string]uint64, len(other.Counts))
	}
	for key, n := range other.Counts {
		m.Counts[key] += n
	}
	return nil
}

// Merge reduces models of the same level into a new model.
func Merge(level int, models ...*Model) (*Model, error) {
	merged := NewModel(level)
	for _, m := range models {
		if err := merged.Merge(m); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// Len returns the number of distinct keys.
func (m *Model) Len() int { return len(m.Counts) }

// Total returns the sum of all counts.
func (m *Model) Total() uint64 {
	var total uint64
	for _, n := range m.Counts {
		total += n
	}
	return total
}

// Keys returns the model keys in ascending order.
func (m *Model) Keys() []string {
	return slices.Sorted(maps.Keys(m.Counts))
}

// Equal reports whether both models have the same level and identical counts.
func (m *Model) Equal(other *Model) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.Level == other.Level && maps.Equal(m.Counts, other.Counts)
}

// Validate checks the model invariants: every key is Level grapheme clusters
// long and every count is positive.
func (m *Model) Validate() error {
	if m.Level < 1 {
		return fmt.Errorf("%w: level %d", ErrInvalidLevel, m.Level)
	}
	for key, n := range m.Counts {
		if n == 0 {
			return fmt.Errorf("%w: key %q has zero count", ErrMalformedModel, key)
		}
		if got := UnitCount(key); got != m.Level {
			return fmt.Errorf("%w: key %q has %d units, want %d", ErrMalformedModel, key, got, m.Level)
		}
	}
	return nil
}

// Count slides a window of level units over doc one unit at a time and counts
// every window. A document shorter than level yields an empty model.
func Count(doc Document, level int) *Model {
	m := NewModel(level)
	if level < 1 || len(doc) < level {
		return m
	}
	for i := 0; i+level <= len(doc); i++ {
		m.Counts[Join(doc[i:i+level])]++
	}
	return m
}
