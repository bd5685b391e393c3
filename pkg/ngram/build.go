package ngram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth is the highest depth level built by default.
const DefaultMaxDepth = 20

// Builder constructs and persists the models of every depth level from a
// corpus. Levels are built concurrently and, within a level, documents are
// counted by a bounded pool of workers. The first failure cancels all
// outstanding work; Build still waits for running units before returning it.
type Builder struct {
	corpus       Corpus
	store        Store
	maxDepth     int
	workers      int
	levelWorkers int
	logger       *slog.Logger
}

// BuildOption configures a Builder.
type BuildOption func(*Builder)

// WithMaxDepth sets the highest level to build. Default: 20
func WithMaxDepth(n int) BuildOption {
	return func(b *Builder) { b.maxDepth = n }
}

// WithWorkers sets how many documents of one level are counted at once.
// Values below 1 select GOMAXPROCS.
func WithWorkers(n int) BuildOption {
	return func(b *Builder) { b.workers = n }
}

// WithLevelWorkers sets how many levels are built at once. Values below 1
// build every level at once.
func WithLevelWorkers(n int) BuildOption {
	return func(b *Builder) { b.levelWorkers = n }
}

// NewBuilder returns a builder reading from corpus and writing to store.
func NewBuilder(corpus Corpus, store Store, opts ...BuildOption) *Builder {
	b := &Builder{
		corpus:   corpus,
		store:    store,
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b
}

// SetLogger sets the logger for the Builder. By default, all logs are discarded.
func (b *Builder) SetLogger(logger *slog.Logger) {
	if logger != nil {
		b.logger = logger
	}
}

// Build counts, merges and saves the model of every level from 1 to the
// configured maximum depth.
func (b *Builder) Build(ctx context.Context) error {
	if b.maxDepth < 1 {
		return fmt.Errorf("%w: max depth %d", ErrInvalidLevel, b.maxDepth)
	}
	names, err := b.corpus.Documents(ctx)
	if err != nil {
		return err
	}
	start := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	if b.levelWorkers > 0 {
		eg.SetLimit(b.levelWorkers)
	}
	for level := 1; level <= b.maxDepth; level++ {
		eg.Go(func() error {
			m, err := b.BuildLevel(ctx, level, names)
			if err != nil {
				return fmt.Errorf("level %d: %w", level, err)
			}
			if err = b.store.Save(ctx, m); err != nil {
				return fmt.Errorf("level %d: %w", level, err)
			}
			b.logger.InfoContext(ctx, "Level model saved",
				slog.Int("level", level),
				slog.Int("keys", m.Len()),
				slog.Uint64("total_frequency", m.Total()),
			)
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return err
	}

	b.logger.InfoContext(ctx, "Build completed",
		slog.Int("levels", b.maxDepth),
		slog.Int("documents", len(names)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// BuildLevel counts every named document at one level and merges the local
// models. Each counting unit works on a private model and hands it over once
// through a channel; a single consumer folds the results in arrival order.
func (b *Builder) BuildLevel(ctx context.Context, level int, names []string) (*Model, error) {
	if level < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(b.workers)

	results := make(chan *Model)
	merged := NewModel(level)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for local := range results {
			// levels always agree, Merge cannot fail here
			_ = merged.Merge(local)
		}
	}()

	for _, name := range names {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := b.corpus.Load(ctx, name)
			if err != nil {
				return fmt.Errorf("document %s: %w", name, err)
			}
			select {
			case results <- Count(doc, level):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	err := eg.Wait()
	close(results)
	<-done
	if err != nil {
		return nil, err
	}

	b.logger.DebugContext(ctx, "Level counted",
		slog.Int("level", level),
		slog.Int("documents", len(names)),
		slog.Int("keys", merged.Len()),
	)
	return merged, nil
}
