package forkchoice

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
)

// BlockGetter retrieves blocks by hash. It returns a nil block without
// error when the hash is unknown.
type BlockGetter interface {
	Block(hash common.Hash) (*types.Block, error)
}
