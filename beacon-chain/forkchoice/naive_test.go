package forkchoice

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/assert"
	"github.com/prysmaticlabs/geth-sharding/shared/testutil/require"
)

type mockBlocks struct {
	blocks map[common.Hash]*types.Block
	reads  int
	err    error
}

func (m *mockBlocks) Block(hash common.Hash) (*types.Block, error) {
	m.reads++
	if m.err != nil {
		return nil, m.err
	}
	return m.blocks[hash], nil
}

func (m *mockBlocks) add(t *testing.T, slot uint64, parent common.Hash) common.Hash {
	block := types.NewBlock(&types.BeaconBlockData{Slot: slot, AncestorHashes: []common.Hash{parent}})
	hash, err := block.Hash()
	require.NoError(t, err)
	m.blocks[hash] = block
	return hash
}

func TestNaiveForkChoice_HighestSlotWins(t *testing.T) {
	blocks := &mockBlocks{blocks: make(map[common.Hash]*types.Block)}
	a := blocks.add(t, 3, common.Hash{})
	b := blocks.add(t, 5, common.Hash{})
	c := blocks.add(t, 5, a)

	fc, err := NewNaiveForkChoice(blocks, 0)
	require.NoError(t, err)

	index, err := fc.SelectCanonical([]common.Hash{{}, a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 2, index, "ties should go to the first head")

	index, err = fc.SelectCanonical([]common.Hash{{}})
	require.NoError(t, err)
	assert.Equal(t, 0, index)
}

func TestNaiveForkChoice_CachesSlots(t *testing.T) {
	blocks := &mockBlocks{blocks: make(map[common.Hash]*types.Block)}
	a := blocks.add(t, 1, common.Hash{})
	fc, err := NewNaiveForkChoice(blocks, 4)
	require.NoError(t, err)

	_, err = fc.SelectCanonical([]common.Hash{a})
	require.NoError(t, err)
	_, err = fc.SelectCanonical([]common.Hash{a})
	require.NoError(t, err)
	assert.Equal(t, 1, blocks.reads)
}

func TestNaiveForkChoice_Errors(t *testing.T) {
	blocks := &mockBlocks{blocks: make(map[common.Hash]*types.Block)}
	fc, err := NewNaiveForkChoice(blocks, 4)
	require.NoError(t, err)

	_, err = fc.SelectCanonical(nil)
	assert.ErrorIs(t, err, ErrNoHeads)

	_, err = fc.SelectCanonical([]common.Hash{{'x'}})
	assert.ErrorIs(t, err, ErrUnknownHead)

	blocks.err = errors.New("disk on fire")
	_, err = fc.SelectCanonical([]common.Hash{{'y'}})
	assert.ErrorContains(t, "disk on fire", err)
}
