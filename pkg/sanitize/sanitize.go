package sanitize

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

// DefaultWhitelist is the Russian alphabet plus the space and newline.
const DefaultWhitelist = "абвгдеёжзийклмнопрстуфхцчшщъыьэюя \n"

// Sanitizer cleans raw text. Its behavior can be customized with functional
// options.
type Sanitizer struct {
	whitelist map[rune]struct{}
	workers   int
	logger    *slog.Logger
}

// Option is a function that configures a Sanitizer.
type Option func(*Sanitizer)

// WithWhitelist sets the runes kept by Clean. Default: DefaultWhitelist
func WithWhitelist(chars string) Option {
	return func(s *Sanitizer) {
		s.whitelist = make(map[rune]struct{}, len(chars))
		for _, r := range chars {
			s.whitelist[r] = struct{}{}
		}
	}
}

// WithWorkers sets how many files Dir processes at once. Values below 1
// process every file at once.
func WithWorkers(n int) Option {
	return func(s *Sanitizer) { s.workers = n }
}

// New creates a sanitizer with default settings, which can be overridden by
// providing one or more Option functions.
func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	WithWhitelist(DefaultWhitelist)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger sets the logger. By default, all logs are discarded.
func (s *Sanitizer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Clean lowercases text and drops every rune outside the whitelist. Of the
// kept runes, hyphens and newlines separate words like spaces do, and runs of
// separators collapse into one space. The result has no leading or trailing
// space. Filtering comes first, so a hyphen or tab outside the whitelist
// joins its neighbours: "кто-то" becomes "ктото".
func (s *Sanitizer) Clean(text string) string {
	text = strings.ToLower(norm.NFC.String(text))
	mapped := strings.Map(func(r rune) rune {
		if _, ok := s.whitelist[r]; !ok {
			return -1
		}
		if r == '-' || r == '\n' {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.FieldsFunc(mapped, func(r rune) bool { return r == ' ' }), " ")
}

// Dir cleans every regular file of src and writes the result under the same
// name in dst. Files are processed concurrently; the first failure cancels
// the remaining files.
func (s *Sanitizer) Dir(ctx context.Context, src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("could not list source directory: %w", err)
	}
	if err = os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	eg, ctx := errgroup.WithContext(ctx)
	if s.workers > 0 {
		eg.SetLimit(s.workers)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(filepath.Join(src, name))
			if err != nil {
				return fmt.Errorf("could not read %s: %w", name, err)
			}
			cleaned := s.Clean(string(raw))
			if err = atomic.WriteFile(filepath.Join(dst, name), strings.NewReader(cleaned)); err != nil {
				return fmt.Errorf("could not write %s: %w", name, err)
			}
			s.logger.DebugContext(ctx, "Document sanitized",
				slog.String("document", name),
				slog.Int("raw_bytes", len(raw)),
				slog.Int("clean_bytes", len(cleaned)),
			)
			return nil
		})
	}
	return eg.Wait()
}
