package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/mohae/deepcopy"
)

// CrystallizedStateData holds the protocol fields of a crystallized state.
type CrystallizedStateData struct {
	ValidatorSetChangeSlot     uint64
	Validators                 []*ValidatorRecord
	Crosslinks                 []*CrosslinkRecord
	LastStateRecalculationSlot uint64
	LastFinalizedSlot          uint64
	LastJustifiedSlot          uint64
	JustifiedStreak            uint64
	ShardAndCommitteesForSlots []*ShardAndCommitteeArray
	DepositsPenalizedInPeriod  []uint64
	ValidatorSetDeltaHashChain common.Hash
	PreForkVersion             uint64
	PostForkVersion            uint64
	ForkSlotNumber             uint64
}

// CrystallizedState contains fields of every cycle state,
// it changes at cycle transitions.
type CrystallizedState struct {
	data *CrystallizedStateData
}

// NewCrystallizedState creates a new crystallized state with a explicitly set data field.
func NewCrystallizedState(data *CrystallizedStateData) *CrystallizedState {
	return &CrystallizedState{data: data}
}

// Data returns the underlying data within a state primitive.
func (c *CrystallizedState) Data() *CrystallizedStateData {
	return c.data
}

// Marshal encodes crystallized state object into the wire format.
func (c *CrystallizedState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(c.data)
}

// Hash serializes the crystallized state object then uses
// blake2b to hash the serialized object.
func (c *CrystallizedState) Hash() (common.Hash, error) {
	return hashEncoded(c.data)
}

// Copy returns a deep copy of the current crystallized state.
func (c *CrystallizedState) Copy() *CrystallizedState {
	return &CrystallizedState{data: deepcopy.Copy(c.data).(*CrystallizedStateData)}
}

// ValidatorSetChangeSlot returns the slot of the last validator set change.
func (c *CrystallizedState) ValidatorSetChangeSlot() uint64 {
	return c.data.ValidatorSetChangeSlot
}

// Validators returns list of validators.
func (c *CrystallizedState) Validators() []*ValidatorRecord {
	return c.data.Validators
}

// ValidatorsLength returns the number of total validators.
func (c *CrystallizedState) ValidatorsLength() int {
	return len(c.data.Validators)
}

// Crosslinks returns records about the most recent cross link of each shard.
func (c *CrystallizedState) Crosslinks() []*CrosslinkRecord {
	return c.data.Crosslinks
}

// LastStateRecalculationSlot returns when the crystallized state was last recalculated.
func (c *CrystallizedState) LastStateRecalculationSlot() uint64 {
	return c.data.LastStateRecalculationSlot
}

// LastFinalizedSlot returns the last finalized slot of the beacon chain.
func (c *CrystallizedState) LastFinalizedSlot() uint64 {
	return c.data.LastFinalizedSlot
}

// LastJustifiedSlot return the last justified slot of the beacon chain.
func (c *CrystallizedState) LastJustifiedSlot() uint64 {
	return c.data.LastJustifiedSlot
}

// JustifiedStreak returns number of consecutive justified slots ending at head.
func (c *CrystallizedState) JustifiedStreak() uint64 {
	return c.data.JustifiedStreak
}

// ShardAndCommitteesForSlots returns the shard committee table of the
// current and the next cycle.
func (c *CrystallizedState) ShardAndCommitteesForSlots() []*ShardAndCommitteeArray {
	return c.data.ShardAndCommitteesForSlots
}

// DepositsPenalizedInPeriod returns the deposits penalized per withdrawal period.
func (c *CrystallizedState) DepositsPenalizedInPeriod() []uint64 {
	return c.data.DepositsPenalizedInPeriod
}

// ValidatorSetDeltaHashChain returns the hash chain of validator set changes.
func (c *CrystallizedState) ValidatorSetDeltaHashChain() common.Hash {
	return c.data.ValidatorSetDeltaHashChain
}

// PreForkVersion returns the fork version before ForkSlotNumber.
func (c *CrystallizedState) PreForkVersion() uint64 {
	return c.data.PreForkVersion
}

// PostForkVersion returns the fork version from ForkSlotNumber onwards.
func (c *CrystallizedState) PostForkVersion() uint64 {
	return c.data.PostForkVersion
}

// ForkSlotNumber returns the slot at which the post fork version applies.
func (c *CrystallizedState) ForkSlotNumber() uint64 {
	return c.data.ForkSlotNumber
}

// TotalDeposits returns the combined balance of the active validators.
func (c *CrystallizedState) TotalDeposits() uint64 {
	var total uint64
	for _, v := range c.data.Validators {
		if v.IsActive() {
			total += v.Balance
		}
	}
	return total
}

// IsCycleTransition checks if a new cycle has been reached. At that point,
// a new crystallized state and active state transition will occur.
func (c *CrystallizedState) IsCycleTransition(slot uint64, cycleLength uint64) bool {
	return slot >= c.LastStateRecalculationSlot()+cycleLength
}

// ShardAndCommitteesForSlot returns the shard committees of a slot. The slot
// has to lie within the two cycles starting at the last state recalculation.
func (c *CrystallizedState) ShardAndCommitteesForSlot(slot uint64) (*ShardAndCommitteeArray, error) {
	start := c.LastStateRecalculationSlot()
	table := c.ShardAndCommitteesForSlots()
	if slot < start || slot-start >= uint64(len(table)) {
		return nil, fmt.Errorf("slot %d is outside of the committee table range [%d, %d)", slot, start, start+uint64(len(table)))
	}
	return table[slot-start], nil
}
