// Package cache is a small TTL key/value store on a local SQLite file. The
// forum keeps per-user unread notification counts in it.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go-forum-app/internal/config"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	value BLOB,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_expires_at ON cache (expires_at);
`

// Cache provides a SQLite-based caching mechanism.
type Cache struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

// New opens the SQLite database at cfg.FilePath and ensures the cache table
// exists. cfg.TTL is used by SetInt; it defaults to five minutes.
func New(cfg config.CacheConfig) (*Cache, error) {
	db, err := sqlx.Connect("sqlite", cfg.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite cache: %w", err)
	}
	// One connection: an in-memory database would otherwise be per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode on sqlite cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get retrieves an item. A missing or expired item is a miss: nil, nil.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	var item struct {
		Value     []byte `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err := c.db.GetContext(ctx, &item, `SELECT value, expires_at FROM cache WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item from cache: %w", err)
	}

	if c.now().UnixNano() > item.ExpiresAt {
		_ = c.Delete(ctx, key)
		return nil, nil
	}
	return item.Value, nil
}

// Set stores an item for ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := c.now().Add(ttl).UnixNano()
	query := `INSERT OR REPLACE INTO cache (key, value, expires_at) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to set item in cache: %w", err)
	}
	return nil
}

// Delete removes an item from the cache.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete item from cache: %w", err)
	}
	return nil
}

// GetInt reads an integer item. ok is false on a miss.
func (c *Cache) GetInt(ctx context.Context, key string) (n int, ok bool, err error) {
	raw, err := c.Get(ctx, key)
	if err != nil || raw == nil {
		return 0, false, err
	}
	n, err = strconv.Atoi(string(raw))
	if err != nil {
		// Not ours; drop it and report a miss.
		_ = c.Delete(ctx, key)
		return 0, false, nil
	}
	return n, true, nil
}

// SetInt stores an integer item with the cache's default TTL.
func (c *Cache) SetInt(ctx context.Context, key string, n int) error {
	return c.Set(ctx, key, []byte(strconv.Itoa(n)), c.ttl)
}

// PurgeExpired removes every expired item and returns how many were removed.
func (c *Cache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cache WHERE expires_at < ?`, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired cache items: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// UnreadKey is the cache key of a user's unread notification count.
func UnreadKey(userID int64) string {
	return "unread:" + strconv.FormatInt(userID, 10)
}
