package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/funvibe/fastrule/internal/config"
	"github.com/funvibe/fastrule/internal/program"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Lookup when no program is cached under a key.
var ErrNotFound = errors.New("program not cached")

var log = commonlog.GetLogger(config.LogCache)

// Cache stores compiled dispatch programs in a sqlite database, keyed by a
// hash of the clause file they were compiled from.
type Cache struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Entry is one cached program with its metadata.
type Entry struct {
	Key     string
	ID      string
	Created time.Time
	Program *program.Program
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS programs (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		created INTEGER NOT NULL,
		program BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened program cache %s", path)
	return &Cache{db: db, path: path}, nil
}

// OpenDefault opens the cache named by the FASTRULE_CACHE environment
// variable, falling back to ~/.fastrule/cache.db.
func OpenDefault() (*Cache, error) {
	path := os.Getenv(config.CacheEnvVar)
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		path = filepath.Join(home, ".fastrule", "cache.db")
	}
	return Open(path)
}

// Path returns the database file path.
func (c *Cache) Path() string { return c.path }

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Key computes the cache key of a clause file's content. Whitespace-only
// edits at line ends map to the same key.
func Key(data []byte) string {
	h := sha256.New()
	h.Write(config.Fingerprint(data))
	h.Write([]byte("\x00"))
	h.Write([]byte{config.ProgramVersion})
	return hex.EncodeToString(h.Sum(nil))[:16] // First 16 hex chars = 64 bits
}

// Lookup returns the program cached under key, or ErrNotFound.
func (c *Cache) Lookup(key string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		id      string
		created int64
		blob    []byte
	)
	err := c.db.QueryRow("SELECT id, created, program FROM programs WHERE key = ?", key).Scan(&id, &created, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying program: %w", err)
	}

	p, err := program.UnmarshalProgram(blob)
	if err != nil {
		// A row we cannot decode is as good as missing.
		log.Warningf("dropping corrupt cache entry %s: %s", key, err)
		if _, derr := c.db.Exec("DELETE FROM programs WHERE key = ?", key); derr != nil {
			log.Errorf("deleting cache entry %s: %s", key, derr)
		}
		return nil, ErrNotFound
	}

	return &Entry{Key: key, ID: id, Created: time.Unix(created, 0), Program: p}, nil
}

// Store caches p under key, replacing any previous entry.
func (c *Cache) Store(key string, p *program.Program) (*Entry, error) {
	blob, err := p.MarshalCBOR()
	if err != nil {
		return nil, fmt.Errorf("encoding program: %w", err)
	}

	entry := &Entry{Key: key, ID: uuid.NewString(), Created: time.Now(), Program: p}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO programs (key, id, created, program) VALUES (?, ?, ?, ?)",
		key, entry.ID, entry.Created.Unix(), blob,
	)
	if err != nil {
		return nil, fmt.Errorf("saving program: %w", err)
	}

	log.Debugf("cached program %s as %s", key, entry.ID)
	return entry, nil
}

// Len returns the number of cached programs.
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM programs").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting programs: %w", err)
	}
	return n, nil
}

// Clean removes all cached programs.
func (c *Cache) Clean() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.Exec("DELETE FROM programs"); err != nil {
		return fmt.Errorf("cleaning cache: %w", err)
	}
	return nil
}

// Compiled returns the program cached for data, calling compile and
// storing its result on a miss. The boolean reports a cache hit.
func (c *Cache) Compiled(data []byte, compile func() (*program.Program, error)) (*program.Program, bool, error) {
	key := Key(data)

	entry, err := c.Lookup(key)
	if err == nil {
		log.Infof("using cached program %s", key)
		return entry.Program, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	log.Infof("cache miss for %s, compiling", key)
	p, err := compile()
	if err != nil {
		return nil, false, err
	}

	if _, err := c.Store(key, p); err != nil {
		// Fall back to the fresh program
		log.Warningf("failed to cache program: %s", err)
	}
	return p, false, nil
}
