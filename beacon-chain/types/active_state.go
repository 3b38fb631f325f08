package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/mohae/deepcopy"
)

// ActiveStateData holds the protocol fields of an active state.
type ActiveStateData struct {
	PendingAttestations []*AttestationRecord
	PendingSpecials     []*SpecialRecord
	RecentBlockHashes   []common.Hash
	RandaoMix           common.Hash
}

// ActiveState contains fields of current state of beacon chain,
// it changes every block.
type ActiveState struct {
	data *ActiveStateData
}

// NewActiveState creates a new active state with a explicitly set data field.
func NewActiveState(data *ActiveStateData) *ActiveState {
	return &ActiveState{data: data}
}

// Data returns the underlying data within a state primitive.
func (a *ActiveState) Data() *ActiveStateData {
	return a.data
}

// Marshal encodes active state object into the wire format.
func (a *ActiveState) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(a.data)
}

// Hash serializes the active state object then uses
// blake2b to hash the serialized object.
func (a *ActiveState) Hash() (common.Hash, error) {
	return hashEncoded(a.data)
}

// Copy returns a deep copy of the current active state.
func (a *ActiveState) Copy() *ActiveState {
	return &ActiveState{data: deepcopy.Copy(a.data).(*ActiveStateData)}
}

// PendingAttestations returns attestations that have not yet been processed.
func (a *ActiveState) PendingAttestations() []*AttestationRecord {
	return a.data.PendingAttestations
}

// PendingSpecials returns special records that have not yet been processed.
func (a *ActiveState) PendingSpecials() []*SpecialRecord {
	return a.data.PendingSpecials
}

// RecentBlockHashes returns the most recent 2*CycleLength block hashes.
func (a *ActiveState) RecentBlockHashes() []common.Hash {
	return a.data.RecentBlockHashes
}

// RandaoMix tracks the current RANDAO state.
func (a *ActiveState) RandaoMix() common.Hash {
	return a.data.RandaoMix
}
