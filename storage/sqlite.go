package storage

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	filehttp "github.com/always-cache/filehttp"
	_ "github.com/glebarez/go-sqlite"
)

// SQLiteStore keeps files as blobs in a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens the store with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) (SQLiteStore, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteStore{}, err
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		modified INTEGER,
		data BLOB
	)`)
	if err != nil {
		db.Close()
		return SQLiteStore{}, err
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return SQLiteStore{}, err
	}
	return SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteStore) Read(path string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow("SELECT data FROM files WHERE path = ?", clean(path)).Scan(&data)
	if err != nil {
		return nil, &filehttp.StorageError{
			Op:       "read",
			Path:     path,
			NotFound: errors.Is(err, sql.ErrNoRows),
			Err:      err,
		}
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s SQLiteStore) Write(path string, data []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.Exec("INSERT OR REPLACE INTO files (path, modified, data) VALUES (?, ?, ?)",
		clean(path), time.Now().Unix(), data)
	if err != nil {
		return &filehttp.StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (s SQLiteStore) Close() error {
	return s.db.Close()
}
