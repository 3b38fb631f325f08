// Package forkchoice implements the default rule selecting the canonical
// head among the fork heads of the beacon chain.
package forkchoice

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

// DefaultSlotCacheSize is the number of block slots NaiveForkChoice keeps in memory.
const DefaultSlotCacheSize = 1024

var (
	// ErrNoHeads is returned when there is no head to choose from.
	ErrNoHeads = errors.New("no fork heads to choose from")
	// ErrUnknownHead is returned when a fork head is not in the block store.
	ErrUnknownHead = errors.New("fork head not found in block store")
)

// NaiveForkChoice picks the head with the highest block slot. Ties go to
// the head appearing first. The zero hash stands for the genesis block at
// slot 0.
type NaiveForkChoice struct {
	blocks    BlockGetter
	slotCache *lru.Cache
}

// NewNaiveForkChoice creates a fork choice reading block slots from blocks.
func NewNaiveForkChoice(blocks BlockGetter, cacheSize int) (*NaiveForkChoice, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultSlotCacheSize
	}
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "could not create slot cache")
	}
	return &NaiveForkChoice{blocks: blocks, slotCache: c}, nil
}

// SelectCanonical returns the index of the canonical head.
func (f *NaiveForkChoice) SelectCanonical(heads []common.Hash) (int, error) {
	if len(heads) == 0 {
		return 0, ErrNoHeads
	}
	best := 0
	var bestSlot uint64
	for i, head := range heads {
		slot, err := f.slot(head)
		if err != nil {
			return 0, err
		}
		if i == 0 || slot > bestSlot {
			best, bestSlot = i, slot
		}
	}
	return best, nil
}

func (f *NaiveForkChoice) slot(hash common.Hash) (uint64, error) {
	if hash == (common.Hash{}) {
		return 0, nil
	}
	if v, ok := f.slotCache.Get(hash); ok {
		return v.(uint64), nil
	}
	block, err := f.blocks.Block(hash)
	if err != nil {
		return 0, errors.Wrapf(err, "could not retrieve block %#x", hash)
	}
	if block == nil {
		return 0, errors.Wrapf(ErrUnknownHead, "%#x", hash)
	}
	f.slotCache.Add(hash, block.Slot())
	return block.Slot(), nil
}
