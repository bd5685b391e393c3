package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CTAG07/Babbler/pkg/ngram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testText = "Мама мыла раму.\nМама мыла раму!"

// setupTestConfig writes a config rooted in a temp dir, with one raw text,
// and returns the config and its path.
func setupTestConfig(t *testing.T, store string) (*Config, string) {
	root := t.TempDir()
	config := DefaultConfig()
	config.TextsDir = filepath.Join(root, "texts")
	config.PreparedDir = filepath.Join(root, "prep_texts")
	config.ModelsDir = filepath.Join(root, "models")
	config.DatabasePath = filepath.Join(root, "db", "babbler.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	config.Store = store
	config.MaxDepth = 4
	config.Iterations = 200
	config.LogLevel = "error"

	require.NoError(t, os.MkdirAll(config.TextsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(config.TextsDir, "mama.txt"), []byte(testText), 0o644))

	data, err := json.Marshal(config)
	require.NoError(t, err)
	path := filepath.Join(root, "config.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return config, path
}

// execute runs the root command and returns its stdout.
func execute(t *testing.T, devMode bool, args ...string) (string, error) {
	cmd := newRootCmd(devMode)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildAndGenerate(t *testing.T) {
	config, path := setupTestConfig(t, storeFile)

	out, err := execute(t, false, "--config", path, "--build", "--seed", "7", "3")
	require.NoError(t, err)

	prepared, err := os.ReadFile(filepath.Join(config.PreparedDir, "mama.txt"))
	require.NoError(t, err)
	assert.Equal(t, "мама мыла раму мама мыла раму", string(prepared))
	for level := 1; level <= config.MaxDepth; level++ {
		assert.FileExists(t, filepath.Join(config.ModelsDir, ngram.ArtifactName(level)))
	}

	require.True(t, strings.HasPrefix(out, "  "), "output starts with the seed and the boundary of the first key")
	assert.Equal(t, 1+3+config.Iterations, ngram.UnitCount(out))
	assert.Empty(t, strings.Trim(out, "мамылру "), "only corpus symbols are generated")

	again, err := execute(t, false, "--config", path, "--seed", "7", "3")
	require.NoError(t, err)
	assert.Equal(t, out, again, "a fixed seed reproduces the output from the stored model")
}

func TestDevModeBuildsWithoutLevel(t *testing.T) {
	config, path := setupTestConfig(t, storeFile)

	out, err := execute(t, true, "--config", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.FileExists(t, filepath.Join(config.ModelsDir, ngram.ArtifactName(config.MaxDepth)))
}

func TestDevModeBuildsAndGenerates(t *testing.T) {
	_, path := setupTestConfig(t, storeFile)

	out, err := execute(t, true, "--config", path, "1")
	require.NoError(t, err)
	assert.Equal(t, 200, ngram.UnitCount(out))
}

func TestArgumentErrors(t *testing.T) {
	config, path := setupTestConfig(t, storeFile)

	testCases := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "missing level", args: []string{"--config", path}},
		{name: "not a number", args: []string{"--config", path, "deep"}},
		{name: "zero", args: []string{"--config", path, "0"}, wantErr: ngram.ErrInvalidLevel},
		{name: "above max depth", args: []string{"--config", path, "5"}, wantErr: ngram.ErrInvalidLevel},
		{name: "negative", args: []string{"--config", path, "--", "-2"}, wantErr: ngram.ErrInvalidLevel},
		{name: "too many levels", args: []string{"--config", path, "1", "2"}},
		{name: "unknown flag", args: []string{"--config", path, "--bogus", "1"}},
		{name: "bad seed", args: []string{"--config", path, "--seed", "x", "1"}},
		{name: "stats with argument", args: []string{"--config", path, "stats", "1"}},
		{name: "export without level", args: []string{"--config", path, "export"}},
		{name: "export bad level", args: []string{"--config", path, "export", "9"}, wantErr: ngram.ErrInvalidLevel},
		{name: "import without files", args: []string{"--config", path, "import"}},
		{name: "prune unknown flag", args: []string{"--config", path, "prune", "2", "--min", "1"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, false, tc.args...)
			var cfgErr *configError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			msg := diagnose(err)
			assert.Contains(t, msg, "Проблема с параметрами запуска")
			assert.Contains(t, msg, "Problem with launch parameters")
		})
	}
	assert.NoDirExists(t, config.ModelsDir, "no model I/O happens on argument errors")
}

func TestGenerateWithoutModel(t *testing.T) {
	_, path := setupTestConfig(t, storeFile)

	_, err := execute(t, false, "--config", path, "2")
	require.ErrorIs(t, err, ngram.ErrModelNotFound)
	assert.Contains(t, diagnose(err), "No model found for this level")
}

func TestSQLiteStoreCommands(t *testing.T) {
	config, path := setupTestConfig(t, storeSQLite)

	_, err := execute(t, true, "--config", path)
	require.NoError(t, err)

	out, err := execute(t, false, "--config", path, "stats")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1+config.MaxDepth, "a header and one line per level")
	assert.Contains(t, lines[0], "starters")

	exported, err := execute(t, false, "--config", path, "export", "2")
	require.NoError(t, err)
	var counts map[string]uint64
	require.NoError(t, json.Unmarshal([]byte(exported), &counts))
	assert.Equal(t, uint64(4), counts["ма"], "ма occurs twice in each мама")

	artifact := filepath.Join(t.TempDir(), "level_2.json")
	require.NoError(t, os.WriteFile(artifact, []byte(exported), 0o644))
	_, err = execute(t, false, "--config", path, "import", artifact)
	require.NoError(t, err)

	exported, err = execute(t, false, "--config", path, "export", "2")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(exported), &counts))
	assert.Equal(t, uint64(8), counts["ма"], "import adds to the stored counts")
}

func TestPruneCommand(t *testing.T) {
	_, path := setupTestConfig(t, storeFile)
	_, err := execute(t, true, "--config", path)
	require.NoError(t, err)

	out, err := execute(t, false, "--config", path, "prune", "4", "--min-freq", "1")
	require.NoError(t, err)
	assert.NotEqual(t, "removed 0 keys from level 4\n", out, "the tail of the corpus occurs once")

	exported, err := execute(t, false, "--config", path, "export", "4")
	require.NoError(t, err)
	var counts map[string]uint64
	require.NoError(t, json.Unmarshal([]byte(exported), &counts))
	for key, n := range counts {
		assert.Greater(t, n, uint64(1), "key %q", key)
	}
}
