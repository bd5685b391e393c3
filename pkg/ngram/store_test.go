package ngram

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "models"))

	for level := 1; level <= 3; level++ {
		want := sequentialModel(t, testCorpus, level)
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx, level)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "level %d did not round-trip", level)
	}

	levels, err := store.Levels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, levels)
	assert.Equal(t, "level_2.json", filepath.Base(store.Path(2)))
}

func TestFileStoreSpecialKeys(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	want := modelOf(2, map[string]uint64{`"\`: 3, "<>": 1, "\n ": 2, "жё": 7})

	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, want.Counts, got.Counts)
}

func TestFileStoreErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	_, err := store.Load(ctx, 4)
	assert.ErrorIs(t, err, ErrModelNotFound)

	require.NoError(t, os.WriteFile(store.Path(1), []byte(`{"a": 1,`), 0o644))
	_, err = store.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrMalformedModel)
	var serErr *SerializationError
	require.True(t, errors.As(err, &serErr))
	assert.Equal(t, "level_1.json", serErr.Artifact)

	require.NoError(t, os.WriteFile(store.Path(2), []byte(`{"abc": 1}`), 0o644))
	_, err = store.Load(ctx, 2)
	assert.ErrorIs(t, err, ErrMalformedModel, "keys must match the artifact level")

	require.NoError(t, os.WriteFile(store.Path(3), []byte(`{"abc": -1}`), 0o644))
	_, err = store.Load(ctx, 3)
	assert.ErrorIs(t, err, ErrMalformedModel, "counts must be positive integers")

	require.NoError(t, os.WriteFile(store.Path(4), []byte(`null`), 0o644))
	_, err = store.Load(ctx, 4)
	assert.ErrorIs(t, err, ErrMalformedModel, "a null artifact is not an empty model")

	require.NoError(t, os.WriteFile(store.Path(5), []byte(`{"abcde": 1} trailing garbage`), 0o644))
	_, err = store.Load(ctx, 5)
	assert.ErrorIs(t, err, ErrMalformedModel, "data after the object is rejected")

	require.NoError(t, os.WriteFile(store.Path(6), []byte("{\"abcdef\": 1}\n"), 0o644))
	m, err := store.Load(ctx, 6)
	require.NoError(t, err, "a trailing newline is not data")
	assert.Equal(t, uint64(1), m.Counts["abcdef"])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level_01.json"), []byte(`{"a": 1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "level_+7.json"), []byte(`{"a": 1}`), 0o644))
	levels, err := store.Levels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, levels, "only canonical level artifacts are listed")

	levels, err = NewFileStore(filepath.Join(dir, "absent")).Levels(ctx)
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestSQLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, store := setupTestDB(t)

	for level := 1; level <= 3; level++ {
		want := sequentialModel(t, testCorpus, level)
		require.NoError(t, store.Save(ctx, want))

		got, err := store.Load(ctx, level)
		require.NoError(t, err)
		assert.True(t, want.Equal(got), "level %d did not round-trip", level)
	}

	// Saving again replaces the level instead of adding to it.
	replacement := modelOf(2, map[string]uint64{"zz": 9})
	require.NoError(t, store.Save(ctx, replacement))
	got, err := store.Load(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, replacement.Counts, got.Counts)

	var rows int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ngram_counts WHERE level = 2").Scan(&rows))
	assert.Equal(t, 1, rows)

	levels, err := store.Levels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, levels)

	empty := NewModel(5)
	require.NoError(t, store.Save(ctx, empty))
	got, err = store.Load(ctx, 5)
	require.NoError(t, err, "an empty level is still a stored level")
	assert.Zero(t, got.Len())

	_, err = store.Load(ctx, 6)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestSQLStoreConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	_, store := setupTestDB(t)

	require.NoError(t, NewBuilder(testCorpus, store, WithMaxDepth(8)).Build(ctx))
	for level := 1; level <= 8; level++ {
		got, err := store.Load(ctx, level)
		require.NoError(t, err)
		assert.True(t, sequentialModel(t, testCorpus, level).Equal(got), "level %d", level)
	}
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	fileStore := NewFileStore(t.TempDir())
	_, sqlStore := setupTestDB(t)

	want := sequentialModel(t, testCorpus, 3)
	require.NoError(t, fileStore.Save(ctx, want))

	// 1. Export from the file store
	var buf bytes.Buffer
	require.NoError(t, ExportModel(ctx, fileStore, 3, &buf))
	exported := buf.Bytes()

	// 2. Import into an empty SQL store creates the level
	got, err := ImportModel(ctx, sqlStore, bytes.NewReader(exported))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Level, "level is inferred from the key length")
	assert.True(t, want.Equal(got))

	// 3. A second import merges counts
	got, err = ImportModel(ctx, sqlStore, bytes.NewReader(exported))
	require.NoError(t, err)
	doubled, err := Merge(3, want, want)
	require.NoError(t, err)
	assert.True(t, doubled.Equal(got))

	stored, err := sqlStore.Load(ctx, 3)
	require.NoError(t, err)
	assert.True(t, doubled.Equal(stored))
}

func TestImportMalformed(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	testCases := map[string]string{
		"mixed key lengths": `{"ab": 1, "abc": 2}`,
		"empty model":       `{}`,
		"not an object":     `[1, 2]`,
		"null":              `null`,
		"two objects":       `{"ab": 1} {"cd": 1}`,
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ImportModel(ctx, store, strings.NewReader(body))
			assert.ErrorIs(t, err, ErrMalformedModel)
		})
	}
	assert.Zero(t, store.saves)
}

func TestStoreStats(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	require.NoError(t, store.Save(ctx, Count(Segment("xy xy"), 1)))
	require.NoError(t, store.Save(ctx, Count(Segment("xy xy"), 2)))

	stats, err := StoreStats(ctx, store, DefaultBoundary)
	require.NoError(t, err)
	assert.Equal(t, []ModelStats{
		{Level: 1, Keys: 3, TotalFrequency: 5, StartingKeys: 3},
		{Level: 2, Keys: 3, TotalFrequency: 4, StartingKeys: 1},
	}, stats)
}
