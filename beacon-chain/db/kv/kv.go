// Package kv defines a bolt-db, key-value store implementation
// of the Database interface defined by a beacon node.
package kv

import (
	"os"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	prombolt "github.com/prysmaticlabs/prombbolt"
	bolt "go.etcd.io/bbolt"
)

const databaseFileName = "beaconchain.db"

// Store defines an implementation of the Database interface
// using BoltDB as the underlying persistent kv-store.
type Store struct {
	db           *bolt.DB
	databasePath string
	collector    prometheus.Collector
}

// NewKVStore initializes a new boltDB key-value store at the directory
// path specified and stores an open connection db object as a property
// of the Store struct. Buckets are created on first write.
func NewKVStore(dirPath string) (*Store, error) {
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return nil, err
	}
	datafile := path.Join(dirPath, databaseFileName)
	boltDB, err := bolt.Open(datafile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}

	kv := &Store{
		db:           boltDB,
		databasePath: dirPath,
		collector:    createBoltCollector(boltDB),
	}
	if err := prometheus.Register(kv.collector); err != nil {
		// Another store in this process already exports bolt metrics.
		kv.collector = nil
	}
	return kv, nil
}

// Close closes the underlying BoltDB database.
func (k *Store) Close() error {
	if k.collector != nil {
		prometheus.Unregister(k.collector)
	}
	return k.db.Close()
}

// DatabasePath at which this database writes files.
func (k *Store) DatabasePath() string {
	return k.databasePath
}

// Get returns a copy of the value stored under key in bucket.
func (k *Store) Get(bucket []byte, key []byte) ([]byte, error) {
	var value []byte
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get(key); v != nil {
			value = make([]byte, len(v))
			copy(value, v)
		}
		return nil
	})
	return value, err
}

// Has checks whether bucket holds a value for key.
func (k *Store) Has(bucket []byte, key []byte) (bool, error) {
	var exists bool
	err := k.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		exists = b != nil && b.Get(key) != nil
		return nil
	})
	return exists, err
}

// Put stores value under key in bucket.
func (k *Store) Put(bucket []byte, key []byte, value []byte) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}
		return b.Put(key, value)
	})
}

// Delete removes key from bucket.
func (k *Store) Delete(bucket []byte, key []byte) error {
	return k.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete(key)
	})
}

// createBoltCollector returns a prometheus collector specifically configured for boltdb.
func createBoltCollector(db *bolt.DB) prometheus.Collector {
	return prombolt.New("boltDB", db)
}
