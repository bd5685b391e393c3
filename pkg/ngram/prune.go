package ngram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Prune removes every key whose count is less than or equal to minFreq and
// returns how many keys were removed. Pruning can leave contexts without a
// continuation, which generation reports as ErrLookupExhausted.
func (m *Model) Prune(minFreq uint64) int {
	removed := 0
	for key, n := range m.Counts {
		if n <= minFreq {
			delete(m.Counts, key)
			removed++
		}
	}
	return removed
}

// PruneModel prunes the stored model of one level and saves it back.
func PruneModel(ctx context.Context, store Store, level int, minFreq uint64, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m, err := store.Load(ctx, level)
	if err != nil {
		return 0, err
	}
	removed := m.Prune(minFreq)
	if removed == 0 {
		logger.InfoContext(ctx, "Nothing to prune",
			slog.Int("level", level),
			slog.Uint64("min_frequency", minFreq),
		)
		return 0, nil
	}
	if err = store.Save(ctx, m); err != nil {
		return 0, fmt.Errorf("could not save pruned level %d: %w", level, err)
	}
	logger.InfoContext(ctx, "Model pruned",
		slog.Int("level", level),
		slog.Uint64("min_frequency", minFreq),
		slog.Int("keys_removed", removed),
		slog.Int("keys_left", m.Len()),
	)
	return removed, nil
}
