package ngram

import (
	"slices"
	"sort"
	"strings"
)

type indexEntry struct {
	key   string
	units []string
	count uint64
}

// Index is a read-only, key-ordered view of a Model that answers prefix
// queries by binary search followed by a scan of the contiguous run of keys
// sharing the prefix.
type Index struct {
	level   int
	entries []indexEntry
	cum     []uint64 // cum[i] is the sum of counts of entries[0..i]
}

// NewIndex sorts the keys of m and segments each into grapheme clusters.
func NewIndex(m *Model) *Index {
	ix := &Index{
		level:   m.Level,
		entries: make([]indexEntry, 0, len(m.Counts)),
		cum:     make([]uint64, 0, len(m.Counts)),
	}
	for key, n := range m.Counts {
		ix.entries = append(ix.entries, indexEntry{key: key, units: Segment(key), count: n})
	}
	slices.SortFunc(ix.entries, func(a, b indexEntry) int {
		return strings.Compare(a.key, b.key)
	})
	var total uint64
	for _, e := range ix.entries {
		total += e.count
		ix.cum = append(ix.cum, total)
	}
	return ix
}

// Level returns the depth level of the indexed model.
func (ix *Index) Level() int { return ix.level }

// Len returns the number of indexed keys.
func (ix *Index) Len() int { return len(ix.entries) }

// Total returns the sum of all counts.
func (ix *Index) Total() uint64 {
	if len(ix.cum) == 0 {
		return 0
	}
	return ix.cum[len(ix.cum)-1]
}

// WithPrefix returns, in ascending order, every key whose first units equal
// prefix.
func (ix *Index) WithPrefix(prefix []string) []string {
	var keys []string
	for _, i := range ix.prefixRange(prefix) {
		keys = append(keys, ix.entries[i].key)
	}
	return keys
}

// prefixRange locates the first key not less than the joined prefix and
// walks forward while keys still start with it. A key can start with the
// joined bytes without starting with the same clusters (a combining mark
// may fuse with the last prefix cluster), so each candidate is also checked
// unit by unit.
func (ix *Index) prefixRange(prefix []string) []int {
	p := Join(prefix)
	lo := sort.Search(len(ix.entries), func(i int) bool {
		return ix.entries[i].key >= p
	})
	var matches []int
	for i := lo; i < len(ix.entries) && strings.HasPrefix(ix.entries[i].key, p); i++ {
		if hasUnitPrefix(ix.entries[i].units, prefix) {
			matches = append(matches, i)
		}
	}
	return matches
}

func hasUnitPrefix(units, prefix []string) bool {
	if len(prefix) > len(units) {
		return false
	}
	for i, u := range prefix {
		if units[i] != u {
			return false
		}
	}
	return true
}
