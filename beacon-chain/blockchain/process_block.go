package blockchain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/casper"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/sirupsen/logrus"
)

// ProcessBlock applies a block on top of its parent's states and adds it to
// the chain. The block must extend a known block with a higher slot. If the
// parent is a fork head the block becomes the new head of that fork,
// otherwise it starts a new fork. Committee maps are only built for
// crystallized states the chain has not seen yet. Nothing is added to the
// chain if any step fails.
func (c *BeaconChain) ProcessBlock(block *types.Block, transition StateTransitioner) (common.Hash, error) {
	hash, err := c.processBlock(block, transition)
	if err != nil {
		rejectedBlocksCount.Inc()
		return common.Hash{}, err
	}
	processedBlocksCount.Inc()
	return hash, nil
}

func (c *BeaconChain) processBlock(block *types.Block, transition StateTransitioner) (common.Hash, error) {
	if block == nil || block.Data() == nil {
		return common.Hash{}, newChainError(ErrStateTransition, errors.New("nil block"))
	}
	hash, err := block.Hash()
	if err != nil {
		return common.Hash{}, newChainError(ErrStateTransition, errors.Wrap(err, "could not hash block"))
	}
	parentHash := block.ParentHash()

	aState, cState, err := c.parentStates(hash, parentHash, block.Slot())
	if err != nil {
		return common.Hash{}, err
	}

	newActive, newCrystallized, err := transition.ApplyBlock(aState, cState, block)
	if err != nil {
		return common.Hash{}, newChainError(ErrStateTransition, err)
	}
	if newActive == nil || newCrystallized == nil {
		return common.Hash{}, newChainError(ErrStateTransition, errors.New("state transition returned nil state"))
	}
	activeKey, crystallizedKey, err := c.stateKeys(newActive, newCrystallized)
	if err != nil {
		return common.Hash{}, newChainError(ErrStateTransition, err)
	}

	maps, err := c.committees.GetOrBuild(crystallizedKey, func() (*types.CommitteeMaps, error) {
		return casper.GenerateAttesterAndProposerMaps(
			newCrystallized.ShardAndCommitteesForSlots(),
			newCrystallized.LastStateRecalculationSlot(),
		)
	})
	if err != nil {
		return common.Hash{}, newChainError(ErrUnableToGenerateMaps, err)
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	// The chain may have changed while the transition ran.
	if _, ok := c.forks.blocks[hash]; ok {
		return common.Hash{}, newChainError(ErrKnownBlock, errors.Errorf("%#x", hash))
	}
	if _, ok := c.forks.blocks[parentHash]; !ok {
		return common.Hash{}, newChainError(ErrUnknownParent, errors.Errorf("%#x", parentHash))
	}
	// Only blocks that passed every check reach the store.
	if ref := block.PowChainRef(); ref != (common.Hash{}) {
		if err := c.store.PoWChain.SaveBlockHash(ref); err != nil {
			return common.Hash{}, newChainError(ErrStoreFailure, err)
		}
	}
	if _, err := c.store.Block.SaveBlock(block); err != nil {
		return common.Hash{}, newChainError(ErrStoreFailure, err)
	}
	rec := &forkRecord{
		slot:            block.Slot(),
		parent:          parentHash,
		activeKey:       activeKey,
		crystallizedKey: crystallizedKey,
	}
	if err := c.forks.insert(hash, rec, newActive, newCrystallized, maps); err != nil {
		return common.Hash{}, newChainError(ErrUnableToGenerateMaps, err)
	}
	if finalized := newCrystallized.LastFinalizedSlot(); finalized > c.lastFinalizedSlot {
		c.lastFinalizedSlot = finalized
		lastFinalizedSlotGauge.Set(float64(finalized))
	}
	forkHeadsGauge.Set(float64(len(c.forks.heads)))

	log.WithFields(logrus.Fields{
		"slot":   block.Slot(),
		"hash":   hash.Hex(),
		"parent": parentHash.Hex(),
		"forks":  len(c.forks.heads),
	}).Debug("Processed beacon block")
	return hash, nil
}

// parentStates checks that the block extends a known block and returns
// copies of the parent's states.
func (c *BeaconChain) parentStates(hash common.Hash, parentHash common.Hash, slot uint64) (*types.ActiveState, *types.CrystallizedState, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	if _, ok := c.forks.blocks[hash]; ok {
		return nil, nil, newChainError(ErrKnownBlock, errors.Errorf("%#x", hash))
	}
	parent, ok := c.forks.blocks[parentHash]
	if !ok {
		return nil, nil, newChainError(ErrUnknownParent, errors.Errorf("%#x", parentHash))
	}
	if slot <= parent.slot {
		return nil, nil, newChainError(ErrInvalidBlockSlot, errors.Errorf("block slot %d, parent slot %d", slot, parent.slot))
	}
	aState, cState, _, ok := c.forks.states(parentHash)
	if !ok {
		return nil, nil, newChainError(ErrUnknownParent, errors.Errorf("no states for %#x", parentHash))
	}
	return aState.Copy(), cState.Copy(), nil
}

// stateKeys returns the keys the states are stored under: their hashes,
// or the zero hash for states identical to the genesis states.
func (c *BeaconChain) stateKeys(aState *types.ActiveState, cState *types.CrystallizedState) (common.Hash, common.Hash, error) {
	activeKey, err := aState.Hash()
	if err != nil {
		return common.Hash{}, common.Hash{}, errors.Wrap(err, "could not hash active state")
	}
	if activeKey == c.genesisActiveHash {
		activeKey = common.Hash{}
	}
	crystallizedKey, err := cState.Hash()
	if err != nil {
		return common.Hash{}, common.Hash{}, errors.Wrap(err, "could not hash crystallized state")
	}
	if crystallizedKey == c.genesisCrystallizedHash {
		crystallizedKey = common.Hash{}
	}
	return activeKey, crystallizedKey, nil
}
