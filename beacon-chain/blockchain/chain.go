// Package blockchain holds every live fork of the beacon chain: the fork
// heads, the canonical head and the states and committee maps of each
// processed block.
package blockchain

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/cache"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/casper"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/genesis"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/params"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/sirupsen/logrus"
)

// BeaconChain represents the core PoS blockchain object containing the
// states of every fork.
type BeaconChain struct {
	lock              sync.RWMutex
	forks             *forkStore
	lastFinalizedSlot uint64
	committees        *cache.CommitteeMapCache
	store             *db.ChainStore
	config            *params.ChainConfig
	assigner          casper.CommitteeAssigner

	// Content hashes of the genesis states, stored under the zero hash.
	genesisActiveHash       common.Hash
	genesisCrystallizedHash common.Hash
}

// NewBeaconChain derives the genesis states from cfg and returns a chain
// whose only fork head is the genesis block, keyed by the zero hash. Either
// the chain is fully initialized or an error is returned.
func NewBeaconChain(store *db.ChainStore, cfg *params.ChainConfig, opts ...Option) (*BeaconChain, error) {
	if cfg == nil || len(cfg.InitialValidators) == 0 {
		return nil, newChainError(ErrInsufficientValidators, nil)
	}
	if store == nil {
		return nil, newChainError(ErrStoreFailure, errors.New("nil chain store"))
	}

	c := &BeaconChain{
		store:    store,
		config:   cfg.Copy(),
		assigner: casper.ShardAndCommitteesForCycle,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, newChainError(ErrInvalidGenesis, errors.Wrap(err, "could not apply option"))
		}
	}

	aState, cState, err := genesis.StatesWithAssigner(c.config, c.assigner)
	if err != nil {
		return nil, newChainError(ErrInvalidGenesis, err)
	}
	maps, err := casper.GenerateAttesterAndProposerMaps(cState.ShardAndCommitteesForSlots(), 0)
	if err != nil {
		return nil, newChainError(ErrUnableToGenerateMaps, err)
	}
	c.genesisActiveHash, err = aState.Hash()
	if err != nil {
		return nil, newChainError(ErrInvalidGenesis, errors.Wrap(err, "could not hash genesis active state"))
	}
	c.genesisCrystallizedHash, err = cState.Hash()
	if err != nil {
		return nil, newChainError(ErrInvalidGenesis, errors.Wrap(err, "could not hash genesis crystallized state"))
	}

	c.committees = cache.NewCommitteeMapCache()
	c.forks = newForkStore(c.committees)
	if err := c.forks.insertGenesis(aState, cState, maps); err != nil {
		return nil, newChainError(ErrUnableToGenerateMaps, err)
	}
	forkHeadsGauge.Set(1)
	lastFinalizedSlotGauge.Set(0)

	log.WithFields(logrus.Fields{
		"validators":       cState.ValidatorsLength(),
		"cycleLength":      c.config.CycleLength,
		"shardCount":       c.config.ShardCount,
		"crystallizedHash": c.genesisCrystallizedHash.Hex(),
	}).Info("Initialized beacon chain from genesis")
	return c, nil
}

// CanonicalBlockHash returns the hash of the canonical fork head.
func (c *BeaconChain) CanonicalBlockHash() common.Hash {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.forks.heads[c.forks.canonical]
}

// CanonicalHeadIndex returns the index of the canonical head in HeadBlockHashes.
func (c *BeaconChain) CanonicalHeadIndex() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.forks.canonical
}

// HeadBlockHashes returns a copy of the fork heads.
func (c *BeaconChain) HeadBlockHashes() []common.Hash {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return append([]common.Hash(nil), c.forks.heads...)
}

// ForkCount returns the number of fork heads.
func (c *BeaconChain) ForkCount() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return len(c.forks.heads)
}

// LastFinalizedSlot returns the last slot finalized on any fork.
func (c *BeaconChain) LastFinalizedSlot() uint64 {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.lastFinalizedSlot
}

// ActiveState returns a copy of the active state stored under the state hash.
func (c *BeaconChain) ActiveState(hash common.Hash) (*types.ActiveState, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	a, ok := c.forks.activeStates[hash]
	if !ok {
		return nil, false
	}
	return a.Copy(), true
}

// CrystallizedState returns a copy of the crystallized state stored under the state hash.
func (c *BeaconChain) CrystallizedState(hash common.Hash) (*types.CrystallizedState, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	cs, ok := c.forks.crystallizedStates[hash]
	if !ok {
		return nil, false
	}
	return cs.Copy(), true
}

// CommitteeMaps returns the attester and proposer maps of the crystallized
// state hash. The maps are shared and must not be modified.
func (c *BeaconChain) CommitteeMaps(hash common.Hash) (*types.CommitteeMaps, bool) {
	return c.committees.CommitteeMaps(hash)
}

// BlockStates returns copies of the states of a processed block along with
// its committee maps.
func (c *BeaconChain) BlockStates(blockHash common.Hash) (*types.ActiveState, *types.CrystallizedState, *types.CommitteeMaps, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	a, cs, maps, ok := c.forks.states(blockHash)
	if !ok {
		return nil, nil, nil, false
	}
	return a.Copy(), cs.Copy(), maps, true
}

// HasBlock checks whether a block is part of a fork.
func (c *BeaconChain) HasBlock(blockHash common.Hash) bool {
	c.lock.RLock()
	defer c.lock.RUnlock()
	_, ok := c.forks.blocks[blockHash]
	return ok
}

// Config returns a copy of the chain config.
func (c *BeaconChain) Config() *params.ChainConfig {
	return c.config.Copy()
}

// CommitteeAssigner returns the assigner the chain shuffles committees with.
func (c *BeaconChain) CommitteeAssigner() casper.CommitteeAssigner {
	return c.assigner
}

// Store returns the chain store handles.
func (c *BeaconChain) Store() *db.ChainStore {
	return c.store
}

// UpdateCanonicalHead asks the fork choice for the canonical head and
// records its index.
func (c *BeaconChain) UpdateCanonicalHead(fc ForkChoice) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	heads := append([]common.Hash(nil), c.forks.heads...)
	index, err := fc.SelectCanonical(heads)
	if err != nil {
		return newChainError(ErrForkChoice, err)
	}
	if index < 0 || index >= len(heads) {
		return newChainError(ErrInvalidHeadIndex, errors.Errorf("index %d with %d heads", index, len(heads)))
	}
	if index != c.forks.canonical {
		log.WithFields(logrus.Fields{
			"previous": c.forks.heads[c.forks.canonical].Hex(),
			"head":     heads[index].Hex(),
		}).Info("Canonical head changed")
	}
	c.forks.canonical = index
	return nil
}

// UpdateFinalizedSlot records a newly finalized slot.
func (c *BeaconChain) UpdateFinalizedSlot(slot uint64) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if slot < c.lastFinalizedSlot {
		return newChainError(ErrFinalizedSlotRegression, errors.Errorf("%d < %d", slot, c.lastFinalizedSlot))
	}
	c.lastFinalizedSlot = slot
	lastFinalizedSlotGauge.Set(float64(slot))
	return nil
}

// RemoveFork removes a block and its states from the chain. If the block is
// a fork head, its parent becomes the head of the fork again when it has no
// other children.
func (c *BeaconChain) RemoveFork(blockHash common.Hash) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if blockHash == (common.Hash{}) {
		return newChainError(ErrCannotRemoveGenesis, nil)
	}
	if _, ok := c.forks.blocks[blockHash]; !ok {
		return newChainError(ErrUnknownBlock, errors.Errorf("%#x", blockHash))
	}
	if c.forks.heads[c.forks.canonical] == blockHash {
		return newChainError(ErrCannotRemoveCanonical, errors.Errorf("%#x", blockHash))
	}
	c.forks.remove(blockHash, true)
	prunedBlocksCount.Inc()
	forkHeadsGauge.Set(float64(len(c.forks.heads)))
	return nil
}

// PruneFinalized removes every block below the last finalized slot except
// the genesis block and the canonical head, and returns how many were
// removed. Heads among them are dropped without replacement.
func (c *BeaconChain) PruneFinalized() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	canonicalHash := c.forks.heads[c.forks.canonical]
	var stale []common.Hash
	for hash, rec := range c.forks.blocks {
		if hash == (common.Hash{}) || hash == canonicalHash {
			continue
		}
		if rec.slot < c.lastFinalizedSlot {
			stale = append(stale, hash)
		}
	}
	for _, hash := range stale {
		c.forks.remove(hash, false)
	}
	dropped := c.committees.DropUnreferenced()

	if len(stale) > 0 {
		prunedBlocksCount.Add(float64(len(stale)))
		forkHeadsGauge.Set(float64(len(c.forks.heads)))
		log.WithFields(logrus.Fields{
			"blocks":         len(stale),
			"committeeMaps":  dropped,
			"finalizedSlot":  c.lastFinalizedSlot,
			"remainingHeads": len(c.forks.heads),
		}).Debug("Pruned finalized forks")
	}
	return len(stale)
}
