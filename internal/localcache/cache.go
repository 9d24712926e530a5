package localcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrUnavailable is returned once the underlying medium has been marked
// unusable for the rest of the session.
var ErrUnavailable = errors.New("local cache unavailable")

// probeKey is written and deleted once at startup to detect media that
// reject writes outright.
const probeKey = "__probe__"

// Key prefixes. Progress payloads are namespaced per user so switching
// users can never read another user's record.
const (
	progressPrefix = "progress_"
	usersKey       = "users"
	currentUserKey = "current_user"
)

// ProgressKey returns the cache key for a user's aggregate.
func ProgressKey(userID string) string { return progressPrefix + userID }

// UsersKey returns the cache key of the locally known user registry.
func UsersKey() string { return usersKey }

// CurrentUserKey returns the cache key recording the selected user.
func CurrentUserKey() string { return currentUserKey }

// Cache is a namespaced key/value store backed by a SQLite file.
//
// Availability is probed once at open time by writing and deleting a
// sentinel key; a medium that fails the probe is treated as unusable for the
// session. Each call additionally catches its own errors and flips the flag
// reactively, covering media that become unavailable after a clean probe.
type Cache struct {
	db  *sqlx.DB
	log *zap.Logger

	mu        sync.Mutex
	available bool
}

// Open creates (or reuses) the cache database at path and probes the medium.
// Open only fails for programmer-level mistakes such as an empty path; a
// medium that rejects the probe yields a cache that reports unavailable
// rather than an error, because an unusable local tier is a supported
// degraded mode.
func Open(path string, log *zap.Logger) (*Cache, error) {
	if path == "" {
		return nil, errors.New("localcache: empty path")
	}

	c := &Cache{log: log}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Warn("local cache directory not writable", zap.Error(err))
		return c, nil
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		log.Warn("local cache could not be opened", zap.Error(err))
		return c, nil
	}

	// SQLite does not support multiple writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			cache_key  TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`); err != nil {
		log.Warn("local cache schema bootstrap failed", zap.Error(err))
		_ = db.Close()
		return c, nil
	}

	c.db = db
	c.available = true
	c.probe()
	return c, nil
}

// probe performs a throwaway write/delete cycle against the medium.
func (c *Cache) probe() {
	if err := c.Put(probeKey, []byte("1")); err != nil {
		c.markUnavailable("probe write", err)
		return
	}
	if err := c.Delete(probeKey); err != nil {
		c.markUnavailable("probe delete", err)
	}
}

// Available reports whether the medium is still usable this session.
func (c *Cache) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

func (c *Cache) markUnavailable(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available {
		c.log.Warn("local cache disabled for this session",
			zap.String("op", op), zap.Error(err))
	}
	c.available = false
}

// Get reads the payload stored under key. The second return value is false
// when the key is absent.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	if !c.Available() {
		return nil, false, ErrUnavailable
	}

	var payload []byte
	err := c.db.Get(&payload, "SELECT payload FROM kv WHERE cache_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		c.markUnavailable("get", err)
		return nil, false, fmt.Errorf("localcache get %q: %w", key, err)
	}
	return payload, true, nil
}

// Put stores payload under key, replacing any previous value.
func (c *Cache) Put(key string, payload []byte) error {
	if !c.Available() {
		return ErrUnavailable
	}

	_, err := c.db.Exec(`
		INSERT INTO kv (cache_key, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, key, payload, time.Now().UTC())
	if err != nil {
		c.markUnavailable("put", err)
		return fmt.Errorf("localcache put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(key string) error {
	if !c.Available() {
		return ErrUnavailable
	}

	if _, err := c.db.Exec("DELETE FROM kv WHERE cache_key = ?", key); err != nil {
		c.markUnavailable("delete", err)
		return fmt.Errorf("localcache delete %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
