package ngram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
)

const (
	// DefaultIterations is the number of draws made by a generation run.
	DefaultIterations = 2000
	// DefaultBoundary is the separator unit that seeds generation at depth 2
	// and above.
	DefaultBoundary = " "
)

// generateOptions holds the parameters of a generation run.
type generateOptions struct {
	iterations int
	boundary   string
	rng        *rand.Rand
}

// GenerateOption configures a generation run.
type GenerateOption func(*generateOptions)

// WithIterations sets the number of draws after seeding. Generation always
// stops after exactly this many draws; it never stops on content.
func WithIterations(n int) GenerateOption {
	return func(o *generateOptions) { o.iterations = n }
}

// WithBoundary sets the unit that seeds the output before the first draw.
// It must be a single grapheme cluster. Default: " "
func WithBoundary(b string) GenerateOption {
	return func(o *generateOptions) { o.boundary = b }
}

// WithRand sets the random source, mainly for reproducible output.
func WithRand(rng *rand.Rand) GenerateOption {
	return func(o *generateOptions) { o.rng = rng }
}

// Engine generates text from a single model. The model is indexed once, so
// an Engine can serve many sequential runs.
type Engine struct {
	index  *Index
	logger *slog.Logger
}

// NewEngine indexes m for generation.
func NewEngine(m *Model) *Engine {
	return &Engine{
		index:  NewIndex(m),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the Engine. By default, all logs are discarded.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Level returns the depth level of the engine's model.
func (e *Engine) Level() int { return e.index.level }

// Generate runs the sampling loop and returns the generated text.
//
// At level 1 every iteration draws a whole key from the full table, without
// any conditioning on earlier output. At higher levels the output is seeded
// with the boundary unit, the first draw returns a full key starting with the
// boundary, and each following iteration appends the last unit of a key that
// starts with the last level-1 units of the output.
//
// If a context has no continuation in the model, the text generated so far is
// returned together with a *LookupError.
func (e *Engine) Generate(ctx context.Context, opts ...GenerateOption) (string, error) {
	options := &generateOptions{
		iterations: DefaultIterations,
		boundary:   DefaultBoundary,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.iterations < 0 {
		return "", fmt.Errorf("iterations must not be negative, got %d", options.iterations)
	}
	if UnitCount(options.boundary) != 1 {
		return "", fmt.Errorf("boundary %q must be a single grapheme cluster", options.boundary)
	}

	sampler := NewSampler(e.index, options.rng)
	level := e.index.level

	var buffer []string
	if level == 1 {
		buffer = make([]string, 0, options.iterations)
		for i := 0; i < options.iterations; i++ {
			if err := ctx.Err(); err != nil {
				return Join(buffer), err
			}
			units, err := sampler.Draw(nil)
			if err != nil {
				return Join(buffer), err
			}
			buffer = append(buffer, units...)
		}
		e.logGenerated(ctx, len(buffer))
		return Join(buffer), nil
	}

	buffer = make([]string, 0, 1+level+options.iterations)
	buffer = append(buffer, options.boundary)
	first, err := sampler.Draw(buffer)
	if err != nil {
		return Join(buffer), err
	}
	buffer = append(buffer, first...)

	for i := 0; i < options.iterations; i++ {
		if err = ctx.Err(); err != nil {
			return Join(buffer), err
		}
		var next string
		next, err = sampler.Next(buffer[len(buffer)-(level-1):])
		if err != nil {
			e.logger.DebugContext(ctx, "Generation hit a dead end",
				slog.Int("level", level),
				slog.Int("iteration", i),
				slog.Int("generated_length", len(buffer)),
			)
			return Join(buffer), err
		}
		buffer = append(buffer, next)
	}
	e.logGenerated(ctx, len(buffer))
	return Join(buffer), nil
}

func (e *Engine) logGenerated(ctx context.Context, units int) {
	e.logger.DebugContext(ctx, "Generation terminated by reaching the iteration budget",
		slog.Int("level", e.index.level),
		slog.Int("generated_length", units),
	)
}

// Generate is a convenience wrapper that indexes m and runs one generation.
func Generate(ctx context.Context, m *Model, opts ...GenerateOption) (string, error) {
	return NewEngine(m).Generate(ctx, opts...)
}
