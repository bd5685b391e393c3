package ngram

import (
	"context"

	"github.com/rivo/uniseg"
)

// ModelStats holds aggregated statistics for a single level's model.
type ModelStats struct {
	Level          int    // The depth level
	Keys           int    // The number of distinct n-grams
	TotalFrequency uint64 // The sum of all counts; the number of counted windows
	StartingKeys   int    // The number of keys a generation run can start with
}

// ComputeStats summarizes m. At level 1 every key is a possible start; above
// it only keys beginning with boundary are.
func ComputeStats(m *Model, boundary string) ModelStats {
	stats := ModelStats{
		Level:          m.Level,
		Keys:           m.Len(),
		TotalFrequency: m.Total(),
	}
	if m.Level == 1 {
		stats.StartingKeys = stats.Keys
		return stats
	}
	for key := range m.Counts {
		first, _, _, _ := uniseg.FirstGraphemeClusterInString(key, -1)
		if first == boundary {
			stats.StartingKeys++
		}
	}
	return stats
}

// StoreStats loads every level held by store and returns their statistics
// in level order.
func StoreStats(ctx context.Context, store Store, boundary string) ([]ModelStats, error) {
	levels, err := store.Levels(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]ModelStats, 0, len(levels))
	for _, level := range levels {
		m, err := store.Load(ctx, level)
		if err != nil {
			return nil, err
		}
		stats = append(stats, ComputeStats(m, boundary))
	}
	return stats, nil
}
