// Package memory implements the beacon chain Database interface on top of
// an in-memory key/value store, for tests and ephemeral nodes.
package memory

import (
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Store keeps every bucket in one memorydb, prefixing keys with the bucket name.
type Store struct {
	db *memorydb.Database
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{db: memorydb.New()}
}

// Close releases the underlying memory database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key in bucket.
func (s *Store) Get(bucket []byte, key []byte) ([]byte, error) {
	k := bucketKey(bucket, key)
	has, err := s.db.Has(k)
	if err != nil || !has {
		return nil, err
	}
	return s.db.Get(k)
}

// Has checks whether bucket holds a value for key.
func (s *Store) Has(bucket []byte, key []byte) (bool, error) {
	return s.db.Has(bucketKey(bucket, key))
}

// Put stores value under key in bucket.
func (s *Store) Put(bucket []byte, key []byte, value []byte) error {
	return s.db.Put(bucketKey(bucket, key), value)
}

// Delete removes key from bucket.
func (s *Store) Delete(bucket []byte, key []byte) error {
	return s.db.Delete(bucketKey(bucket, key))
}

// bucketKey is the bucket name length, the bucket name and the key.
func bucketKey(bucket []byte, key []byte) []byte {
	k := make([]byte, 0, 1+len(bucket)+len(key))
	k = append(k, byte(len(bucket)))
	k = append(k, bucket...)
	return append(k, key...)
}
