package blockchain

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/casper"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/memory"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/forkchoice"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/assert"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/require"
	"github.com/prysmaticlabs/go-bitfield"
)

type transitionFunc func(a *types.ActiveState, c *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error)

func (f transitionFunc) ApplyBlock(a *types.ActiveState, c *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
	return f(a, c, b)
}

// recordRandao only touches the active state.
var recordRandao = transitionFunc(func(a *types.ActiveState, c *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
	a.Data().RandaoMix = b.RandaoReveal()
	return a, c, nil
})

// justifySlot changes the crystallized state the same way for every block of a slot.
var justifySlot = transitionFunc(func(a *types.ActiveState, c *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
	a.Data().RandaoMix = b.RandaoReveal()
	c.Data().LastJustifiedSlot = b.Slot()
	return a, c, nil
})

// finalizeParent finalizes the slot before the block.
var finalizeParent = transitionFunc(func(a *types.ActiveState, c *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
	a.Data().RandaoMix = b.RandaoReveal()
	c.Data().LastFinalizedSlot = b.Slot() - 1
	return a, c, nil
})

func newBlock(slot uint64, parent common.Hash, reveal byte) *types.Block {
	return types.NewBlock(&types.BeaconBlockData{
		Slot:           slot,
		AncestorHashes: []common.Hash{parent},
		RandaoReveal:   common.Hash{reveal},
	})
}

type fixedForkChoice struct {
	index int
	err   error
}

func (f *fixedForkChoice) SelectCanonical([]common.Hash) (int, error) {
	return f.index, f.err
}

type failingPutDB struct {
	*memory.Store
}

func (f *failingPutDB) Put([]byte, []byte, []byte) error {
	return errors.New("disk full")
}

func TestProcessBlock_ExtendsHead(t *testing.T) {
	chain := newTestChain(t)

	hash, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)
	assert.DeepEqual(t, []common.Hash{hash}, chain.HeadBlockHashes())
	assert.Equal(t, hash, chain.CanonicalBlockHash())
	assert.Equal(t, true, chain.HasBlock(hash))

	stored, err := chain.Store().Block.Block(hash)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint64(1), stored.Slot())

	a, c, _, ok := chain.BlockStates(hash)
	require.Equal(t, true, ok)
	assert.Equal(t, common.Hash{'a'}, a.RandaoMix())
	genesisCrystallized, _ := chain.CrystallizedState(common.Hash{})
	assert.DeepEqual(t, genesisCrystallized, c)

	// The parent states are untouched by the transition.
	genesisActive, _ := chain.ActiveState(common.Hash{})
	assert.Equal(t, common.Hash{}, genesisActive.RandaoMix())

	child, err := chain.ProcessBlock(newBlock(2, hash, 'b'), recordRandao)
	require.NoError(t, err)
	assert.DeepEqual(t, []common.Hash{child}, chain.HeadBlockHashes())
	assertCanonicalInRange(t, chain)
}

func TestProcessBlock_NewFork(t *testing.T) {
	chain := newTestChain(t)
	first, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)
	second, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'b'), recordRandao)
	require.NoError(t, err)

	assert.DeepEqual(t, []common.Hash{first, second}, chain.HeadBlockHashes())
	assert.Equal(t, 0, chain.CanonicalHeadIndex())
	assert.Equal(t, 2, chain.ForkCount())
	assertCanonicalInRange(t, chain)
}

func TestProcessBlock_SharesCommitteeMaps(t *testing.T) {
	chain := newTestChain(t)
	genesisMaps, ok := chain.CommitteeMaps(common.Hash{})
	require.Equal(t, true, ok)

	// Unchanged crystallized state reuses the genesis maps.
	a, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)
	_, _, maps, ok := chain.BlockStates(a)
	require.Equal(t, true, ok)
	if maps != genesisMaps {
		t.Error("Expected block with the genesis crystallized state to share the genesis committee maps")
	}

	// Two forks reaching the same crystallized state share one map pair.
	b, err := chain.ProcessBlock(newBlock(2, common.Hash{}, 'b'), justifySlot)
	require.NoError(t, err)
	c, err := chain.ProcessBlock(newBlock(2, a, 'c'), justifySlot)
	require.NoError(t, err)

	_, bState, bMaps, ok := chain.BlockStates(b)
	require.Equal(t, true, ok)
	_, cState, cMaps, ok := chain.BlockStates(c)
	require.Equal(t, true, ok)
	if bMaps != cMaps {
		t.Error("Expected identical crystallized states to share committee maps")
	}
	if bMaps == genesisMaps {
		t.Error("Expected a new crystallized state to get its own committee maps entry")
	}
	assert.DeepEqual(t, bMaps, genesisMaps, "same committee table should yield equal maps")

	key, err := bState.Hash()
	require.NoError(t, err)
	cKey, err := cState.Hash()
	require.NoError(t, err)
	assert.Equal(t, key, cKey)
	cached, ok := chain.CommitteeMaps(key)
	require.Equal(t, true, ok)
	if cached != bMaps {
		t.Error("Expected committee maps to be cached under the crystallized state hash")
	}
	assert.Equal(t, 2, chain.committees.References(key))
	assert.Equal(t, 2, chain.committees.Len())
}

func TestProcessBlock_Rejections(t *testing.T) {
	chain := newTestChain(t)
	known, err := chain.ProcessBlock(newBlock(2, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)

	_, err = chain.ProcessBlock(newBlock(2, common.Hash{}, 'a'), recordRandao)
	assert.ErrorIs(t, err, ErrKnownBlock)

	_, err = chain.ProcessBlock(newBlock(3, common.Hash{'?'}, 'b'), recordRandao)
	assert.ErrorIs(t, err, ErrUnknownParent)

	_, err = chain.ProcessBlock(newBlock(2, known, 'c'), recordRandao)
	assert.ErrorIs(t, err, ErrInvalidBlockSlot)
	_, err = chain.ProcessBlock(newBlock(0, common.Hash{}, 'd'), recordRandao)
	assert.ErrorIs(t, err, ErrInvalidBlockSlot)

	failing := transitionFunc(func(*types.ActiveState, *types.CrystallizedState, *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
		return nil, nil, errors.New("bad attestation")
	})
	_, err = chain.ProcessBlock(newBlock(3, known, 'e'), failing)
	assert.ErrorIs(t, err, ErrStateTransition)
	assert.ErrorContains(t, "bad attestation", err)

	nilStates := transitionFunc(func(*types.ActiveState, *types.CrystallizedState, *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
		return nil, nil, nil
	})
	_, err = chain.ProcessBlock(newBlock(3, known, 'f'), nilStates)
	assert.ErrorIs(t, err, ErrStateTransition)

	_, err = chain.ProcessBlock(nil, recordRandao)
	assert.ErrorIs(t, err, ErrStateTransition)

	assert.DeepEqual(t, []common.Hash{known}, chain.HeadBlockHashes())
}

func TestProcessBlock_MapFailureAddsNothing(t *testing.T) {
	chain := newTestChain(t)
	emptyCommittee := transitionFunc(func(a *types.ActiveState, c *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
		c.Data().ShardAndCommitteesForSlots[0].ArrayShardAndCommittee[0].Committee = nil
		return a, c, nil
	})

	block := newBlock(1, common.Hash{}, 'a')
	_, err := chain.ProcessBlock(block, emptyCommittee)
	require.ErrorIs(t, err, ErrUnableToGenerateMaps)
	assert.ErrorIs(t, err, casper.ErrEmptyCommittee)

	hash, err := block.Hash()
	require.NoError(t, err)
	assert.Equal(t, false, chain.HasBlock(hash))
	has, err := chain.Store().Block.HasBlock(hash)
	require.NoError(t, err)
	assert.Equal(t, false, has)
	assert.DeepEqual(t, []common.Hash{{}}, chain.HeadBlockHashes())
	assert.Equal(t, 1, chain.committees.Len())

	// The genesis table is untouched.
	maps, ok := chain.CommitteeMaps(common.Hash{})
	require.Equal(t, true, ok)
	_, ok = maps.Proposer(0)
	assert.Equal(t, true, ok)
}

func TestProcessBlock_StoreFailureAddsNothing(t *testing.T) {
	store, err := db.NewChainStore(&failingPutDB{Store: memory.NewStore()})
	require.NoError(t, err)
	chain, err := NewBeaconChain(store, testConfig(8))
	require.NoError(t, err)

	block := newBlock(1, common.Hash{}, 'a')
	_, err = chain.ProcessBlock(block, recordRandao)
	require.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorContains(t, "disk full", err)

	hash, err := block.Hash()
	require.NoError(t, err)
	assert.Equal(t, false, chain.HasBlock(hash))
	assert.DeepEqual(t, []common.Hash{{}}, chain.HeadBlockHashes())
}

func TestProcessBlock_ParentRemovedDuringTransition(t *testing.T) {
	chain := newTestChain(t)
	a, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)
	_, err = chain.ProcessBlock(newBlock(2, common.Hash{}, 'b'), recordRandao)
	require.NoError(t, err)
	require.NoError(t, chain.UpdateCanonicalHead(&fixedForkChoice{index: 1}))

	removeParent := transitionFunc(func(aState *types.ActiveState, cState *types.CrystallizedState, b *types.Block) (*types.ActiveState, *types.CrystallizedState, error) {
		require.NoError(t, chain.RemoveFork(b.ParentHash()))
		return recordRandao(aState, cState, b)
	})
	block := newBlock(3, a, 'c')
	block.Data().PowChainReference = common.Hash{'p', 'o', 'w'}
	_, err = chain.ProcessBlock(block, removeParent)
	require.ErrorIs(t, err, ErrUnknownParent)

	hash, err := block.Hash()
	require.NoError(t, err)
	assert.Equal(t, false, chain.HasBlock(hash))
	has, err := chain.Store().Block.HasBlock(hash)
	require.NoError(t, err)
	assert.Equal(t, false, has, "rejected block was persisted")
	has, err = chain.Store().PoWChain.HasBlockHash(common.Hash{'p', 'o', 'w'})
	require.NoError(t, err)
	assert.Equal(t, false, has, "rejected PoW chain reference was persisted")
}

func TestProcessBlock_RecordsPoWChainReference(t *testing.T) {
	chain := newTestChain(t)
	block := newBlock(1, common.Hash{}, 'a')
	block.Data().PowChainReference = common.Hash{'p', 'o', 'w'}
	_, err := chain.ProcessBlock(block, recordRandao)
	require.NoError(t, err)

	has, err := chain.Store().PoWChain.HasBlockHash(common.Hash{'p', 'o', 'w'})
	require.NoError(t, err)
	assert.Equal(t, true, has)
}

func TestProcessBlock_FinalizedSlotNeverDecreases(t *testing.T) {
	chain := newTestChain(t)
	a, err := chain.ProcessBlock(newBlock(5, common.Hash{}, 'a'), finalizeParent)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), chain.LastFinalizedSlot())

	// A fork with a lower finalized slot leaves the chain's finalized slot alone.
	_, err = chain.ProcessBlock(newBlock(3, common.Hash{}, 'b'), finalizeParent)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), chain.LastFinalizedSlot())

	_, err = chain.ProcessBlock(newBlock(8, a, 'c'), finalizeParent)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), chain.LastFinalizedSlot())
}

func TestUpdateCanonicalHead(t *testing.T) {
	chain := newTestChain(t)
	low, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)
	high, err := chain.ProcessBlock(newBlock(4, common.Hash{}, 'b'), recordRandao)
	require.NoError(t, err)
	assert.Equal(t, low, chain.CanonicalBlockHash())

	fc, err := forkchoice.NewNaiveForkChoice(chain.Store().Block, 16)
	require.NoError(t, err)
	require.NoError(t, chain.UpdateCanonicalHead(fc))
	assert.Equal(t, high, chain.CanonicalBlockHash())
	assert.Equal(t, 1, chain.CanonicalHeadIndex())

	err = chain.UpdateCanonicalHead(&fixedForkChoice{index: 2})
	assert.ErrorIs(t, err, ErrInvalidHeadIndex)
	err = chain.UpdateCanonicalHead(&fixedForkChoice{index: -1})
	assert.ErrorIs(t, err, ErrInvalidHeadIndex)
	err = chain.UpdateCanonicalHead(&fixedForkChoice{err: errors.New("no votes")})
	assert.ErrorIs(t, err, ErrForkChoice)
	assert.Equal(t, high, chain.CanonicalBlockHash())
	assertCanonicalInRange(t, chain)
}

func TestRemoveFork(t *testing.T) {
	chain := newTestChain(t)
	a, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), recordRandao)
	require.NoError(t, err)
	b, err := chain.ProcessBlock(newBlock(2, common.Hash{}, 'b'), justifySlot)
	require.NoError(t, err)
	c, err := chain.ProcessBlock(newBlock(3, b, 'c'), recordRandao)
	require.NoError(t, err)
	require.DeepEqual(t, []common.Hash{a, c}, chain.HeadBlockHashes())

	assert.ErrorIs(t, chain.RemoveFork(common.Hash{}), ErrCannotRemoveGenesis)
	assert.ErrorIs(t, chain.RemoveFork(common.Hash{'?'}), ErrUnknownBlock)
	assert.ErrorIs(t, chain.RemoveFork(a), ErrCannotRemoveCanonical)

	cActive, cCrystallized, _, ok := chain.BlockStates(c)
	require.Equal(t, true, ok)
	cActiveKey, err := cActive.Hash()
	require.NoError(t, err)
	key, err := cCrystallized.Hash()
	require.NoError(t, err)
	require.Equal(t, 2, chain.committees.References(key))

	// b has no children left and heads its fork again.
	require.NoError(t, chain.RemoveFork(c))
	assert.Equal(t, false, chain.HasBlock(c))
	assert.DeepEqual(t, []common.Hash{a, b}, chain.HeadBlockHashes())
	assert.Equal(t, a, chain.CanonicalBlockHash())
	_, ok = chain.ActiveState(cActiveKey)
	assert.Equal(t, false, ok, "active state of a removed block should be released")
	_, ok = chain.CommitteeMaps(key)
	assert.Equal(t, true, ok, "committee maps shared with b should be kept")
	assert.Equal(t, 1, chain.committees.References(key))

	require.NoError(t, chain.UpdateCanonicalHead(&fixedForkChoice{index: 1}))
	require.NoError(t, chain.RemoveFork(a))
	// The genesis block still has a child, so it does not become a head.
	assert.DeepEqual(t, []common.Hash{b}, chain.HeadBlockHashes())
	assert.Equal(t, b, chain.CanonicalBlockHash())
	_, ok = chain.CommitteeMaps(common.Hash{})
	assert.Equal(t, true, ok)
	assert.ErrorIs(t, chain.RemoveFork(b), ErrCannotRemoveCanonical)
	assertCanonicalInRange(t, chain)
}

func TestPruneFinalized(t *testing.T) {
	chain := newTestChain(t)
	stale, err := chain.ProcessBlock(newBlock(1, common.Hash{}, 'a'), justifySlot)
	require.NoError(t, err)
	b, err := chain.ProcessBlock(newBlock(2, common.Hash{}, 'b'), recordRandao)
	require.NoError(t, err)
	c, err := chain.ProcessBlock(newBlock(6, b, 'c'), finalizeParent)
	require.NoError(t, err)
	require.DeepEqual(t, []common.Hash{stale, c}, chain.HeadBlockHashes())
	require.NoError(t, chain.UpdateCanonicalHead(&fixedForkChoice{index: 1}))
	assert.Equal(t, uint64(5), chain.LastFinalizedSlot())

	_, staleCrystallized, _, ok := chain.BlockStates(stale)
	require.Equal(t, true, ok)
	staleKey, err := staleCrystallized.Hash()
	require.NoError(t, err)

	assert.Equal(t, 2, chain.PruneFinalized())
	assert.Equal(t, false, chain.HasBlock(stale))
	assert.Equal(t, false, chain.HasBlock(b))
	assert.Equal(t, true, chain.HasBlock(c))
	assert.Equal(t, true, chain.HasBlock(common.Hash{}))
	assert.DeepEqual(t, []common.Hash{c}, chain.HeadBlockHashes())
	assert.Equal(t, c, chain.CanonicalBlockHash())
	_, ok = chain.CommitteeMaps(staleKey)
	assert.Equal(t, false, ok, "committee maps of pruned forks should be dropped")
	_, ok = chain.CommitteeMaps(common.Hash{})
	assert.Equal(t, true, ok, "genesis committee maps are never pruned")

	assert.Equal(t, 0, chain.PruneFinalized())
}

func TestProcessBlock_Concurrent(t *testing.T) {
	chain := newTestChain(t)
	const blocks = 32
	var wg sync.WaitGroup
	errs := make([]error, blocks)
	for i := 0; i < blocks; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = chain.ProcessBlock(newBlock(1, common.Hash{}, byte(i)), justifySlot)
		}(i)
	}
	for i := 0; i < blocks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, head := range chain.HeadBlockHashes() {
				if _, _, _, ok := chain.BlockStates(head); !ok {
					t.Errorf("fork head %#x has no states", head)
				}
			}
			_ = chain.CanonicalBlockHash()
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, blocks, chain.ForkCount())
	// Every block reached the same crystallized state.
	assert.Equal(t, 2, chain.committees.Len())
	assertCanonicalInRange(t, chain)
}

func TestProcessBlock_DefaultStateTransition(t *testing.T) {
	chain := newTestChain(t)
	cfg := chain.Config()
	transition := casper.NewStateTransition(cfg, nil)

	_, genesisCrystallized, _, ok := chain.BlockStates(common.Hash{})
	require.Equal(t, true, ok)
	row, err := genesisCrystallized.ShardAndCommitteesForSlot(0)
	require.NoError(t, err)
	sc := row.ArrayShardAndCommittee[0]
	bits := bitfield.NewBitlist(uint64(len(sc.Committee)))
	bits.SetBitAt(0, true)

	first := newBlock(1, common.Hash{}, 'a')
	first.Data().Attestations = []*types.AttestationRecord{{Slot: 0, Shard: sc.Shard, AttesterBitfield: bits}}
	parent, err := chain.ProcessBlock(first, transition)
	require.NoError(t, err)
	_, _, maps, ok := chain.BlockStates(parent)
	require.Equal(t, true, ok)
	genesisMaps, _ := chain.CommitteeMaps(common.Hash{})
	if maps != genesisMaps {
		t.Error("Expected blocks within the first cycle to keep the genesis committee maps")
	}

	// Crossing the cycle boundary rotates the committee table.
	next, err := chain.ProcessBlock(newBlock(cfg.CycleLength, parent, 'b'), transition)
	require.NoError(t, err)
	_, cState, nextMaps, ok := chain.BlockStates(next)
	require.Equal(t, true, ok)
	assert.Equal(t, cfg.CycleLength, cState.LastStateRecalculationSlot())
	if nextMaps == genesisMaps {
		t.Error("Expected a new crystallized state to build new committee maps")
	}
	_, ok = nextMaps.Proposer(3*cfg.CycleLength - 1)
	assert.Equal(t, true, ok)
	_, ok = nextMaps.Proposer(0)
	assert.Equal(t, false, ok)
}
