package ngram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// FileStore keeps every level in its own JSON artifact inside a directory.
// Artifacts are replaced atomically, so a reader never sees a partial file.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *FileStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Path returns the artifact path of a level.
func (s *FileStore) Path(level int) string {
	return filepath.Join(s.dir, ArtifactName(level))
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, m *Model) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("could not create model directory: %w", err)
	}
	var buf bytes.Buffer
	if err := EncodeModel(&buf, m); err != nil {
		return err
	}
	path := s.Path(m.Level)
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("could not write model artifact: %w", err)
	}
	s.logger.DebugContext(ctx, "Model artifact written",
		slog.Int("level", m.Level),
		slog.String("artifact", path),
		slog.Int("bytes", buf.Len()),
	)
	return nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, level int) (*Model, error) {
	f, err := os.Open(s.Path(level))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: level %d: %w", ErrModelNotFound, level, err)
		}
		return nil, fmt.Errorf("could not open model artifact: %w", err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	return DecodeModel(f, level)
}

// Levels implements Store.
func (s *FileStore) Levels(_ context.Context) ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var levels []int
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name, ok := strings.CutPrefix(e.Name(), "level_")
		if !ok {
			continue
		}
		name, ok = strings.CutSuffix(name, ".json")
		if !ok {
			continue
		}
		level, err := strconv.Atoi(name)
		if err != nil || level < 1 || ArtifactName(level) != e.Name() {
			continue
		}
		levels = append(levels, level)
	}
	slices.Sort(levels)
	return levels, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}
