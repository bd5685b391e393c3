package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CTAG07/Babbler/pkg/ngram"
	"github.com/CTAG07/Babbler/pkg/sanitize"
	"github.com/natefinch/atomic"
)

const (
	storeFile   = "file"
	storeSQLite = "sqlite"
)

// Config holds every setting of a babbler run.
type Config struct {
	LogLevel     string `json:"log_level"`
	TextsDir     string `json:"texts_dir"`
	PreparedDir  string `json:"prepared_dir"`
	ModelsDir    string `json:"models_dir"`
	Store        string `json:"store"`
	DatabasePath string `json:"database_path"`
	MaxDepth     int    `json:"max_depth"`
	Iterations   int    `json:"iterations"`
	Workers      int    `json:"workers"`
	LevelWorkers int    `json:"level_workers"`
	Boundary     string `json:"boundary"`
	Whitelist    string `json:"whitelist"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		TextsDir:     "texts",
		PreparedDir:  "prep_texts",
		ModelsDir:    "models",
		Store:        storeFile,
		DatabasePath: "models/babbler.db?_journal_mode=WAL&_busy_timeout=5000",
		MaxDepth:     ngram.DefaultMaxDepth,
		Iterations:   ngram.DefaultIterations,
		Workers:      0,
		LevelWorkers: 0,
		Boundary:     ngram.DefaultBoundary,
		Whitelist:    sanitize.DefaultWhitelist,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The run can still proceed with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, config); err != nil {
		return nil, &configError{
			ru:  "Не удалось разобрать файл конфигурации.",
			en:  "Couldn't parse the config file.",
			err: err,
		}
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings no run can work with.
func (c *Config) Validate() error {
	if c.MaxDepth < 1 {
		return &configError{
			ru:  "Максимальная глубина должна быть не меньше 1.",
			en:  "Max depth must be at least 1.",
			err: fmt.Errorf("max_depth = %d", c.MaxDepth),
		}
	}
	if c.Iterations < 0 {
		return &configError{
			ru:  "Число итераций не может быть отрицательным.",
			en:  "Iterations can't be negative.",
			err: fmt.Errorf("iterations = %d", c.Iterations),
		}
	}
	if c.Store != storeFile && c.Store != storeSQLite {
		return &configError{
			ru:  "Неизвестное хранилище моделей.",
			en:  "Unknown model store.",
			err: fmt.Errorf("store = %q, want %q or %q", c.Store, storeFile, storeSQLite),
		}
	}
	if ngram.UnitCount(c.Boundary) != 1 {
		return &configError{
			ru:  "Разделитель должен быть одним символом.",
			en:  "The boundary must be a single character.",
			err: fmt.Errorf("boundary = %q", c.Boundary),
		}
	}
	return nil
}
