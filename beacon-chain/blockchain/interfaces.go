package blockchain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
)

// StateTransitioner applies a block to the states of its parent. The states
// handed in are copies owned by the transition.
type StateTransitioner interface {
	ApplyBlock(aState *types.ActiveState, cState *types.CrystallizedState, block *types.Block) (*types.ActiveState, *types.CrystallizedState, error)
}

// ForkChoice picks the canonical head among the fork heads and returns its index.
type ForkChoice interface {
	SelectCanonical(heads []common.Hash) (int, error)
}
