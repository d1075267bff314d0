package cache

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/always-cache/filehttp/pkg/message"
	serializer "github.com/always-cache/filehttp/pkg/response-serializer"
	_ "github.com/glebarez/go-sqlite"
)

// CacheProvider is an interface for a cache provider.
// It stores and retrieves responses by resource key.
// Entries are immutable: the first Put for a key wins and later ones are
// ignored. Nothing is ever evicted except through Purge.
//
// Implementations must be thread-safe!
type CacheProvider interface {
	// Get returns the cached response for the given key, if it exists.
	// It also returns a boolean indicating whether retrieval was successful.
	Get(key string) (*message.Response, bool, error)
	// Put stores the given response in the cache under the given key,
	// unless the key is already present.
	Put(key string, res *message.Response) error
	// Has checks if the specified key exists in the cache.
	Has(key string) bool
	// Purge removes the cache entry for the given key.
	// It is a utility method that is not used by the client.
	Purge(key string)
	// Close releases the provider's resources.
	Close() error
}

type MemCache struct {
	mutex *sync.RWMutex
	db    map[string]*message.Response
}

func NewMemCache() MemCache {
	return MemCache{
		mutex: &sync.RWMutex{},
		db:    make(map[string]*message.Response),
	}
}

func (m MemCache) Get(key string) (*message.Response, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	res, ok := m.db[key]
	return res, ok, nil
}

func (m MemCache) Put(key string, res *message.Response) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.db[key]; !ok {
		m.db[key] = res
	}
	return nil
}

func (m MemCache) Has(key string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.db[key]
	return ok
}

func (m MemCache) Purge(key string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.db, key)
}

func (m MemCache) Close() error {
	return nil
}

type SQLiteCache struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteCache creates a new cache with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteCache(filename string) (SQLiteCache, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteCache{}, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		stored_at INTEGER,
		bytes BLOB
	)`)
	if err != nil {
		db.Close()
		return SQLiteCache{}, err
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return SQLiteCache{}, err
	}
	return SQLiteCache{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteCache) Get(key string) (*message.Response, bool, error) {
	var bytes []byte
	err := s.db.QueryRow("SELECT bytes FROM cache WHERE key = ?", key).Scan(&bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stored, err := serializer.BytesToStoredResponse(bytes)
	if err != nil {
		return nil, false, err
	}
	return stored.Response, true, nil
}

func (s SQLiteCache) Put(key string, res *message.Response) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	now := time.Now()
	bytes := serializer.StoredResponseToBytes(serializer.StoredResponse{
		Response: res,
		StoredAt: now,
	})
	_, err := s.db.Exec("INSERT OR IGNORE INTO cache (key, stored_at, bytes) VALUES (?, ?, ?)",
		key, now.Unix(), bytes)
	return err
}

func (s SQLiteCache) Purge(key string) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, _ = s.db.Exec("DELETE FROM cache WHERE key = ?", key)
}

func (s SQLiteCache) Has(key string) bool {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM cache WHERE key = ?", key).Scan(&one)
	return err == nil
}

func (s SQLiteCache) Close() error {
	return s.db.Close()
}
