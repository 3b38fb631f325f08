package db

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/iface"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
)

// BlockStore stores beacon blocks by hash.
type BlockStore struct {
	db iface.Database
}

// SaveBlock stores the block under its hash and returns the hash.
func (s *BlockStore) SaveBlock(block *types.Block) (common.Hash, error) {
	hash, err := block.Hash()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "could not hash block")
	}
	enc, err := block.Marshal()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "could not encode block")
	}
	if err := s.db.Put(blockBucket, hash.Bytes(), enc); err != nil {
		return common.Hash{}, errors.Wrapf(err, "could not save block %#x", hash)
	}
	return hash, nil
}

// Block returns the block stored under hash, or nil if there is none.
func (s *BlockStore) Block(hash common.Hash) (*types.Block, error) {
	enc, err := s.db.Get(blockBucket, hash.Bytes())
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, nil
	}
	return types.DecodeBlock(enc)
}

// HasBlock checks whether a block is stored under hash.
func (s *BlockStore) HasBlock(hash common.Hash) (bool, error) {
	return s.db.Has(blockBucket, hash.Bytes())
}
