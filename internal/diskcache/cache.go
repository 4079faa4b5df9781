// Package diskcache persists parsed plugin headers across process runs,
// keyed on a plugin's name, size and modification time, so that
// repeated scans of an unchanged data directory can skip re-parsing file
// bodies. It is a standalone store: the scanner and the in-memory
// plugin.Cache (spec §4.1) neither read from nor write to it.
package diskcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loot-sort/loot/internal/plugin"
)

// Common errors returned by the cache.
var (
	ErrNotFound = errors.New("cache entry not found")
	ErrStale    = errors.New("cache entry is stale")
)

// Config holds configuration for the cache.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string
}

// Cache provides SQLite-backed persistence for parsed plugin headers.
type Cache struct {
	db *sql.DB
}

// New creates a new cache with the given configuration, creating the
// backing file and schema if necessary.
func New(cfg Config) (*Cache, error) {
	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Cache{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS plugin_headers (
			cache_key TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mtime INTEGER NOT NULL,
			header TEXT NOT NULL,
			cached_at INTEGER NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Key builds the lookup key from a plugin's logical (case-folded) name,
// its size and modification time. A changed size or mtime is treated as
// a different key entirely, so a stale entry never collides with a
// fresh one.
func Key(name string, size int64, mtime time.Time) string {
	return fmt.Sprintf("%s:%d:%d", plugin.FoldName(name), size, mtime.UnixNano())
}

// Get retrieves a previously cached header for the exact (name, size,
// mtime) triple. Any size/mtime mismatch against what's on disk is the
// caller's responsibility to detect by constructing the key with Key;
// a miss under a different key surfaces as ErrNotFound.
func (c *Cache) Get(ctx context.Context, name string, size int64, mtime time.Time) (*plugin.PluginHeader, error) {
	key := Key(name, size, mtime)

	var data string
	err := c.db.QueryRowContext(ctx, `
		SELECT header FROM plugin_headers WHERE cache_key = ?
	`, key).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query plugin header cache: %w", err)
	}

	var header plugin.PluginHeader
	if err := json.Unmarshal([]byte(data), &header); err != nil {
		return nil, fmt.Errorf("unmarshal cached header: %w", err)
	}

	return &header, nil
}

// Put stores header under the key derived from (name, size, mtime),
// replacing any prior entry.
func (c *Cache) Put(ctx context.Context, name string, size int64, mtime time.Time, header *plugin.PluginHeader) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal plugin header: %w", err)
	}

	key := Key(name, size, mtime)
	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO plugin_headers (cache_key, size, mtime, header, cached_at)
		VALUES (?, ?, ?, ?, ?)
	`, key, size, mtime.UnixNano(), string(data), time.Now().UnixMilli())

	if err != nil {
		return fmt.Errorf("insert plugin header cache entry: %w", err)
	}

	return nil
}

// Prune removes every entry for name whose key doesn't match the given
// current (size, mtime), so a resized/touched plugin doesn't
// accumulate dead rows across runs.
func (c *Cache) Prune(ctx context.Context, name string, currentSize int64, currentMtime time.Time) error {
	currentKey := Key(name, currentSize, currentMtime)
	prefix := plugin.FoldName(name) + ":"
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM plugin_headers WHERE cache_key LIKE ? AND cache_key != ?
	`, prefix+"%", currentKey)
	return err
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
