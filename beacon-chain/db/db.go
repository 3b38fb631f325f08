// Package db defines the stores of the beacon chain: blocks, proof-of-work
// chain references and validator keys, over a persistent or an in-memory
// key/value database.
package db

import (
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/iface"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/kv"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/memory"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// Config specifies where the chain store keeps its data.
type Config struct {
	DataDir  string
	InMemory bool
}

// NewDB initializes a new bolt database in dirPath.
func NewDB(dirPath string) (iface.Database, error) {
	return kv.NewKVStore(dirPath)
}

// NewInMemoryDB initializes a new in-memory database.
func NewInMemoryDB() iface.Database {
	return memory.NewStore()
}

// ChainStore holds the store handles the beacon chain writes to. All of
// them share one database.
type ChainStore struct {
	Block     *BlockStore
	PoWChain  *PoWChainStore
	Validator *ValidatorStore
	db        iface.Database
}

// NewChainStore creates the store handles on top of database.
func NewChainStore(database iface.Database) (*ChainStore, error) {
	if database == nil {
		return nil, errors.New("nil database")
	}
	return &ChainStore{
		Block:     &BlockStore{db: database},
		PoWChain:  &PoWChainStore{db: database},
		Validator: &ValidatorStore{db: database},
		db:        database,
	}, nil
}

// Open opens the database described by cfg and creates the store handles on top of it.
func Open(cfg *Config) (*ChainStore, error) {
	if cfg.InMemory {
		log.Info("Using in-memory chain store")
		return NewChainStore(NewInMemoryDB())
	}
	database, err := NewDB(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open database in %s", cfg.DataDir)
	}
	log.WithField("path", cfg.DataDir).Info("Opened persistent chain store")
	return NewChainStore(database)
}

// Close closes the underlying database.
func (s *ChainStore) Close() error {
	return s.db.Close()
}
