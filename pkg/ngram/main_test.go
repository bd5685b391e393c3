package ngram

import (
	"context"
	"database/sql"
	"maps"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// testCorpus is a small corpus with repeated words so that every level up to
// a few units deep has branching contexts.
var testCorpus = MemoryCorpus{
	"a.txt": "the cat sat on the mat",
	"b.txt": "the rat sat on the cat",
	"c.txt": "a cat and a rat",
	"d.txt": "on",
}

// setupTestDB creates a new SQLite database in a temp dir and a SQLStore on it.
// It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *SQLStore) {
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	require.NoError(t, err, "failed to open database")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, SetupSchema(db), "failed to set up schema")

	store, err := NewSQLStore(db)
	require.NoError(t, err, "NewSQLStore()")
	t.Cleanup(store.Close)

	return db, store
}

// seededRand returns a deterministic random source.
func seededRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// modelOf builds a model from literal counts.
func modelOf(level int, counts map[string]uint64) *Model {
	return &Model{Level: level, Counts: maps.Clone(counts)}
}

// sequentialModel counts and merges a corpus on one goroutine.
func sequentialModel(t testing.TB, corpus Corpus, level int) *Model {
	ctx := context.Background()
	names, err := corpus.Documents(ctx)
	require.NoError(t, err)
	merged := NewModel(level)
	for _, name := range names {
		doc, err := corpus.Load(ctx, name)
		require.NoError(t, err)
		require.NoError(t, merged.Merge(Count(doc, level)))
	}
	return merged
}

// memStore is an in-memory Store used to observe what a Builder saves.
type memStore struct {
	mu     sync.Mutex
	models map[int]*Model
	saves  int
}

func newMemStore() *memStore {
	return &memStore{models: make(map[int]*Model)}
}

func (s *memStore) Save(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.Level] = modelOf(m.Level, m.Counts)
	s.saves++
	return nil
}

func (s *memStore) Load(_ context.Context, level int) (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.models[level]
	if !ok {
		return nil, ErrModelNotFound
	}
	return modelOf(m.Level, m.Counts), nil
}

func (s *memStore) Levels(_ context.Context) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Sorted(maps.Keys(s.models)), nil
}
