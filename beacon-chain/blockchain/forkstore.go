package blockchain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/cache"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
)

// forkRecord links a processed block to the keys of its states.
type forkRecord struct {
	slot            uint64
	parent          common.Hash
	activeKey       common.Hash
	crystallizedKey common.Hash
}

// forkStore keeps the fork heads, the canonical index and the state and
// committee entries of every known block together. Every change goes
// through insert or remove so a head never lacks its states.
// It is not safe for concurrent use, BeaconChain guards it.
type forkStore struct {
	heads              []common.Hash
	canonical          int
	blocks             map[common.Hash]*forkRecord
	activeStates       map[common.Hash]*types.ActiveState
	crystallizedStates map[common.Hash]*types.CrystallizedState
	activeRefs         map[common.Hash]int
	crystallizedRefs   map[common.Hash]int
	committees         *cache.CommitteeMapCache
}

func newForkStore(committees *cache.CommitteeMapCache) *forkStore {
	return &forkStore{
		blocks:             make(map[common.Hash]*forkRecord),
		activeStates:       make(map[common.Hash]*types.ActiveState),
		crystallizedStates: make(map[common.Hash]*types.CrystallizedState),
		activeRefs:         make(map[common.Hash]int),
		crystallizedRefs:   make(map[common.Hash]int),
		committees:         committees,
	}
}

// insertGenesis populates the store with the genesis entries under the zero hash.
func (s *forkStore) insertGenesis(aState *types.ActiveState, cState *types.CrystallizedState, maps *types.CommitteeMaps) error {
	genesis := common.Hash{}
	if _, err := s.committees.Acquire(genesis, maps); err != nil {
		return err
	}
	s.blocks[genesis] = &forkRecord{}
	s.activeStates[genesis] = aState
	s.activeRefs[genesis] = 1
	s.crystallizedStates[genesis] = cState
	s.crystallizedRefs[genesis] = 1
	s.heads = []common.Hash{genesis}
	s.canonical = 0
	return nil
}

// insert adds a block with its states and committee maps. A state already
// stored under the same key is kept and shared. If the parent is a head,
// the block replaces it, otherwise the block starts a new fork.
func (s *forkStore) insert(hash common.Hash, rec *forkRecord, aState *types.ActiveState, cState *types.CrystallizedState, maps *types.CommitteeMaps) error {
	if _, err := s.committees.Acquire(rec.crystallizedKey, maps); err != nil {
		return err
	}
	if _, ok := s.activeStates[rec.activeKey]; !ok {
		s.activeStates[rec.activeKey] = aState
	}
	s.activeRefs[rec.activeKey]++
	if _, ok := s.crystallizedStates[rec.crystallizedKey]; !ok {
		s.crystallizedStates[rec.crystallizedKey] = cState
	}
	s.crystallizedRefs[rec.crystallizedKey]++
	s.blocks[hash] = rec

	for i, head := range s.heads {
		if head == rec.parent {
			s.heads[i] = hash
			return nil
		}
	}
	s.heads = append(s.heads, hash)
	return nil
}

// remove drops a block and releases its states and committee maps. A
// removed head is replaced by its parent when the parent is known and has
// no other children. The canonical head must not be removed.
func (s *forkStore) remove(hash common.Hash, promoteParent bool) {
	rec, ok := s.blocks[hash]
	if !ok {
		return
	}
	delete(s.blocks, hash)
	s.release(rec)

	canonicalHash := s.heads[s.canonical]
	heads := make([]common.Hash, 0, len(s.heads))
	for _, head := range s.heads {
		if head != hash {
			heads = append(heads, head)
			continue
		}
		if promoteParent && s.isLeaf(rec.parent) && !containsHash(s.heads, rec.parent) {
			heads = append(heads, rec.parent)
		}
	}
	s.setHeads(heads, canonicalHash)
}

func (s *forkStore) release(rec *forkRecord) {
	s.activeRefs[rec.activeKey]--
	if s.activeRefs[rec.activeKey] <= 0 {
		delete(s.activeRefs, rec.activeKey)
		delete(s.activeStates, rec.activeKey)
	}
	s.crystallizedRefs[rec.crystallizedKey]--
	if s.crystallizedRefs[rec.crystallizedKey] <= 0 {
		delete(s.crystallizedRefs, rec.crystallizedKey)
		delete(s.crystallizedStates, rec.crystallizedKey)
	}
	s.committees.Release(rec.crystallizedKey)
}

// isLeaf reports whether hash is a known block without known children.
func (s *forkStore) isLeaf(hash common.Hash) bool {
	if _, ok := s.blocks[hash]; !ok {
		return false
	}
	for child, rec := range s.blocks {
		if rec.parent == hash && child != hash {
			return false
		}
	}
	return true
}

// setHeads replaces the fork heads and moves the canonical index to canonicalHash.
func (s *forkStore) setHeads(heads []common.Hash, canonicalHash common.Hash) {
	s.heads = heads
	for i, head := range heads {
		if head == canonicalHash {
			s.canonical = i
			return
		}
	}
	s.canonical = 0
}

// states returns the stored states and committee maps of a block.
func (s *forkStore) states(hash common.Hash) (*types.ActiveState, *types.CrystallizedState, *types.CommitteeMaps, bool) {
	rec, ok := s.blocks[hash]
	if !ok {
		return nil, nil, nil, false
	}
	maps, ok := s.committees.CommitteeMaps(rec.crystallizedKey)
	if !ok {
		return nil, nil, nil, false
	}
	return s.activeStates[rec.activeKey], s.crystallizedStates[rec.crystallizedKey], maps, true
}

func containsHash(hashes []common.Hash, hash common.Hash) bool {
	for _, h := range hashes {
		if h == hash {
			return true
		}
	}
	return false
}
