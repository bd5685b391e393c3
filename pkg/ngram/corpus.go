package ngram

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// Corpus enumerates sanitized documents and loads them by name. Load may be
// called concurrently and more than once per document.
type Corpus interface {
	Documents(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (Document, error)
}

// DirCorpus reads every regular file of a directory as one document.
type DirCorpus struct {
	dir string
}

// NewDirCorpus returns a corpus over the files of dir.
func NewDirCorpus(dir string) *DirCorpus {
	return &DirCorpus{dir: dir}
}

// Documents implements Corpus. Names are returned in lexical order.
func (c *DirCorpus) Documents(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("could not list corpus directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Load implements Corpus.
func (c *DirCorpus) Load(_ context.Context, name string) (Document, error) {
	data, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		return nil, fmt.Errorf("could not read document: %w", err)
	}
	return Segment(string(data)), nil
}

// MemoryCorpus is a corpus of in-memory texts keyed by document name.
type MemoryCorpus map[string]string

// Documents implements Corpus.
func (c MemoryCorpus) Documents(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// Load implements Corpus.
func (c MemoryCorpus) Load(_ context.Context, name string) (Document, error) {
	text, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("document %q: %w", name, os.ErrNotExist)
	}
	return Segment(text), nil
}
