package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory cache.
const MemoryPath = ":memory:"

// migrations[i] brings a database from user_version i to i+1.
var migrations = []func(*sql.DB) error{
	migrateGraphHashIndex,
	migrateLatestIndex,
}

// currentSchemaVersion is the user_version of a fully migrated cache.
var currentSchemaVersion = len(migrations)

// Store is the SQLite kernel cache.
type Store struct {
	db     *sql.DB
	memory bool
}

// Stats summarizes the contents of a cache.
type Stats struct {
	Sessions int
	Kernels  int
	Nodes    int // sum of node_count over all kernels
}

// Open creates or opens a kernel cache at path. MemoryPath opens a cache
// that lives as long as the Store.
//
// File caches use WAL journaling, NORMAL synchronous mode, a 5 second busy
// timeout and foreign key enforcement. Opening an existing cache migrates
// it to the current schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database exists per connection, and
	// SQLite takes a single writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	memory := path == MemoryPath
	if err := applyPragmas(db, memory); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db, memory: memory}, nil
}

// Close closes the database connection. Closing an in-memory cache
// discards it.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InMemory reports whether the cache was opened with MemoryPath.
func (s *Store) InMemory() bool {
	return s.memory
}

// Stats counts the sessions, kernels and stored graph nodes in the cache.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sessions),
			COUNT(*),
			COALESCE(SUM(node_count), 0)
		FROM kernels
	`).Scan(&st.Sessions, &st.Kernels, &st.Nodes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return st, nil
}

func applyPragmas(db *sql.DB, memory bool) error {
	journal := "PRAGMA journal_mode = WAL"
	if memory {
		journal = "PRAGMA journal_mode = MEMORY"
	}
	pragmas := []string{
		journal,
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates missing tables and runs pending migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	for v := version; v < currentSchemaVersion; v++ {
		if err := migrations[v](db); err != nil {
			return fmt.Errorf("migrate to v%d: %w", v+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// migrateGraphHashIndex indexes kernels by graph hash, so definitions that
// compile to the same graph can be found together.
func migrateGraphHashIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_kernels_graph_hash ON kernels(graph_hash)`)
	return err
}

// migrateLatestIndex serves LatestKernel's newest-row-per-name lookup.
func migrateLatestIndex(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_kernels_name_latest ON kernels(name, id DESC)`)
	return err
}
