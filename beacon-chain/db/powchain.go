package db

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/iface"
)

// PoWChainStore records the proof-of-work chain blocks referenced by the
// beacon chain.
type PoWChainStore struct {
	db iface.Database
}

// SaveBlockHash records a proof-of-work chain block hash.
func (s *PoWChainStore) SaveBlockHash(hash common.Hash) error {
	return s.db.Put(powChainBucket, hash.Bytes(), []byte{1})
}

// HasBlockHash checks whether a proof-of-work chain block hash was recorded.
func (s *PoWChainStore) HasBlockHash(hash common.Hash) (bool, error) {
	return s.db.Has(powChainBucket, hash.Bytes())
}
