package ngram

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
)

// SetupSchema initializes the tables used by SQLStore. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaLevels = `
CREATE TABLE IF NOT EXISTS ngram_levels (
    level INTEGER PRIMARY KEY
);
`
		schemaCounts = `
CREATE TABLE IF NOT EXISTS ngram_counts (
    level     INTEGER NOT NULL,
    gram      TEXT NOT NULL,
    frequency INTEGER NOT NULL,
    PRIMARY KEY (level, gram)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaLevels); err != nil {
		return fmt.Errorf("could not create levels schema: %w", err)
	}
	if _, err = tx.Exec(schemaCounts); err != nil {
		return fmt.Errorf("could not create counts schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// SQLStore keeps all levels in a single SQL database, one row per key. It
// holds prepared statements for the read path; writes run in a transaction
// per level and are serialized, since SQLite allows a single writer.
type SQLStore struct {
	db            *sql.DB
	writeMu       sync.Mutex
	stmtHasLevel  *sql.Stmt
	stmtGetCounts *sql.Stmt
	stmtGetLevels *sql.Stmt
	logger        *slog.Logger
}

// NewSQLStore prepares the statements used by the store. SetupSchema must
// have been called on db beforehand.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	stmtHasLevel, err := db.Prepare(`SELECT COUNT(*) FROM ngram_levels WHERE level = ?;`)
	if err != nil {
		return nil, err
	}

	stmtGetCounts, err := db.Prepare(`SELECT gram, frequency FROM ngram_counts WHERE level = ? ORDER BY gram;`)
	if err != nil {
		return nil, err
	}

	stmtGetLevels, err := db.Prepare(`SELECT level FROM ngram_levels ORDER BY level;`)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		db:            db,
		stmtHasLevel:  stmtHasLevel,
		stmtGetCounts: stmtGetCounts,
		stmtGetLevels: stmtGetLevels,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the prepared statements. The database itself is left open.
func (s *SQLStore) Close() {
	_ = s.stmtHasLevel.Close()
	_ = s.stmtGetCounts.Close()
	_ = s.stmtGetLevels.Close()
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *SQLStore) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Save implements Store. The level's previous rows are replaced in a single
// transaction.
func (s *SQLStore) Save(ctx context.Context, m *Model) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM ngram_counts WHERE level = ?", m.Level); err != nil {
		return fmt.Errorf("failed to clear level %d: %w", m.Level, err)
	}
	if _, err = tx.ExecContext(ctx, "INSERT OR IGNORE INTO ngram_levels (level) VALUES (?)", m.Level); err != nil {
		return fmt.Errorf("failed to register level %d: %w", m.Level, err)
	}

	stmtInsert, err := tx.PrepareContext(ctx, `INSERT INTO ngram_counts (level, gram, frequency) VALUES (?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare count insert statement: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmtInsert)

	for _, key := range m.Keys() {
		n := m.Counts[key]
		if n > math.MaxInt64 {
			return &SerializationError{Artifact: ArtifactName(m.Level), Err: fmt.Errorf("count of %q overflows int64", key)}
		}
		if _, err = stmtInsert.ExecContext(ctx, m.Level, key, int64(n)); err != nil {
			return fmt.Errorf("failed to insert %q for level %d: %w", key, m.Level, err)
		}
	}

	s.logger.DebugContext(ctx, "Model rows written",
		slog.Int("level", m.Level),
		slog.Int("keys", m.Len()),
	)

	return tx.Commit()
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context, level int) (*Model, error) {
	var present int
	if err := s.stmtHasLevel.QueryRowContext(ctx, level).Scan(&present); err != nil {
		return nil, fmt.Errorf("could not look up level %d: %w", level, err)
	}
	if present == 0 {
		return nil, fmt.Errorf("%w: level %d", ErrModelNotFound, level)
	}

	rows, err := s.stmtGetCounts.QueryContext(ctx, level)
	if err != nil {
		return nil, fmt.Errorf("could not query level %d: %w", level, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	m := NewModel(level)
	for rows.Next() {
		var gram string
		var freq int64
		if err = rows.Scan(&gram, &freq); err != nil {
			return nil, &SerializationError{Artifact: ArtifactName(level), Err: err}
		}
		if freq < 1 {
			return nil, &SerializationError{Artifact: ArtifactName(level), Err: fmt.Errorf("key %q has count %d", gram, freq)}
		}
		m.Counts[gram] = uint64(freq)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if err = m.Validate(); err != nil {
		return nil, &SerializationError{Artifact: ArtifactName(level), Err: err}
	}
	return m, nil
}

// Levels implements Store.
func (s *SQLStore) Levels(ctx context.Context) ([]int, error) {
	rows, err := s.stmtGetLevels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var levels []int
	for rows.Next() {
		var level int
		if err = rows.Scan(&level); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}
