package types

import (
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
)

var (
	// ErrUnknownCommittee is returned when no committee is assigned to a slot and shard.
	ErrUnknownCommittee = errors.New("no committee assigned to slot and shard")
	// ErrBitfieldLength is returned when an attester bitfield does not match its committee size.
	ErrBitfieldLength = errors.New("attester bitfield length does not match committee size")
)

// AttesterKey identifies the committee of a shard at a slot.
type AttesterKey struct {
	Slot  uint64
	Shard uint64
}

// AttesterMap maps a (slot, shard) pair to the ordered committee expected to attest.
type AttesterMap map[AttesterKey][]uint64

// ProposerMap maps a slot to the validator index expected to propose.
type ProposerMap map[uint64]uint64

// CommitteeMaps is the attester and proposer lookup derived from a
// crystallized state's shard committee table. It is never mutated once
// built, so a single instance is shared by every fork with the same
// crystallized state.
type CommitteeMaps struct {
	attesters AttesterMap
	proposers ProposerMap
}

// NewCommitteeMaps wraps freshly built attester and proposer maps. The
// caller must not retain or mutate the maps afterwards.
func NewCommitteeMaps(attesters AttesterMap, proposers ProposerMap) *CommitteeMaps {
	return &CommitteeMaps{attesters: attesters, proposers: proposers}
}

// Attesters returns a copy of the committee assigned to the shard at the slot.
func (c *CommitteeMaps) Attesters(slot uint64, shard uint64) ([]uint64, bool) {
	committee, ok := c.attesters[AttesterKey{Slot: slot, Shard: shard}]
	if !ok {
		return nil, false
	}
	return append([]uint64(nil), committee...), true
}

// Proposer returns the validator index expected to propose at the slot.
func (c *CommitteeMaps) Proposer(slot uint64) (uint64, bool) {
	p, ok := c.proposers[slot]
	return p, ok
}

// AttesterKeys returns the number of (slot, shard) committees.
func (c *CommitteeMaps) AttesterKeys() int {
	return len(c.attesters)
}

// ProposerSlots returns the number of slots with a proposer.
func (c *CommitteeMaps) ProposerSlots() int {
	return len(c.proposers)
}

// Participants resolves the set bits of an attester bitfield to validator
// indices, in committee order.
func (c *CommitteeMaps) Participants(slot uint64, shard uint64, bits bitfield.Bitlist) ([]uint64, error) {
	committee, ok := c.attesters[AttesterKey{Slot: slot, Shard: shard}]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCommittee, "slot %d shard %d", slot, shard)
	}
	if bits.Len() != uint64(len(committee)) {
		return nil, errors.Wrapf(ErrBitfieldLength, "got %d bits for committee of %d", bits.Len(), len(committee))
	}
	participants := make([]uint64, 0, bits.Count())
	for i, index := range committee {
		if bits.BitAt(uint64(i)) {
			participants = append(participants, index)
		}
	}
	return participants, nil
}
