// Package cache persists raw tracer output between runs. Debugging walks
// the same transaction over and over; caching skips the
// debug_traceTransaction round trip on everything but the first run.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"golang.org/x/crypto/blake2b"
)

// Store wraps LevelDB for raw trace persistence.
// Thread-safe: LevelDB handles its own synchronization.
type Store struct {
	db *leveldb.DB
}

// NewStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewStore(path string) (*Store, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		memStorage := leveldbstorage.NewMemStorage()
		db, err = leveldb.Open(memStorage, nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// NewMemoryStore creates an in-memory Store for testing.
func NewMemoryStore() (*Store, error) {
	return NewStore("")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// traceKey derives a fixed-size key from the endpoint and transaction.
// The endpoint is part of the key: different nodes can disagree on a
// trace, and a stale mix would be miserable to debug.
func traceKey(endpoint string, txHash common.Hash) []byte {
	h := blake2b.Sum256(append([]byte("trace|"+endpoint+"|"), txHash.Bytes()...))
	return h[:]
}

// GetTrace retrieves a cached trace. Returns (nil, false, nil) if not found.
func (s *Store) GetTrace(endpoint string, txHash common.Hash) (json.RawMessage, bool, error) {
	data, err := s.db.Get(traceKey(endpoint, txHash), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("Get %s: %w", txHash.Hex(), err)
	}
	return data, true, nil
}

func (s *Store) PutTrace(endpoint string, txHash common.Hash, raw json.RawMessage) error {
	return s.db.Put(traceKey(endpoint, txHash), raw, nil)
}

func (s *Store) DeleteTrace(endpoint string, txHash common.Hash) error {
	return s.db.Delete(traceKey(endpoint, txHash), nil)
}
