package ngram

import (
	"math/rand/v2"
	"sort"
)

// Sampler draws keys from an Index with probability proportional to their
// counts. A Sampler is not safe for concurrent use.
type Sampler struct {
	index *Index
	rng   *rand.Rand
}

// NewSampler returns a sampler over ix. If rng is nil a randomly seeded
// source is used.
func NewSampler(ix *Index, rng *rand.Rand) *Sampler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{index: ix, rng: rng}
}

// Draw picks one key among those starting with prefix and returns its units.
// An empty prefix draws from the whole table. If no key matches, Draw
// returns a *LookupError. The returned slice is shared with the index and
// must not be modified.
func (s *Sampler) Draw(prefix []string) ([]string, error) {
	ix := s.index
	if len(prefix) == 0 {
		total := ix.Total()
		if total == 0 {
			return nil, &LookupError{Level: ix.level}
		}
		r := s.rng.Uint64N(total)
		i := sort.Search(len(ix.cum), func(i int) bool { return ix.cum[i] > r })
		return ix.entries[i].units, nil
	}

	matches := ix.prefixRange(prefix)
	if len(matches) == 0 {
		return nil, &LookupError{Level: ix.level, Prefix: Join(prefix)}
	}
	var total uint64
	for _, i := range matches {
		total += ix.entries[i].count
	}
	r := s.rng.Uint64N(total)
	for _, i := range matches {
		if r < ix.entries[i].count {
			return ix.entries[i].units, nil
		}
		r -= ix.entries[i].count
	}
	// unreachable: r < total
	return ix.entries[matches[len(matches)-1]].units, nil
}

// Next draws a key starting with prefix and returns only its last unit, the
// symbol that continues the text.
func (s *Sampler) Next(prefix []string) (string, error) {
	units, err := s.Draw(prefix)
	if err != nil {
		return "", err
	}
	return units[len(units)-1], nil
}
