package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/prysmaticlabs/go-bitfield"
)

// AttestationRecord is an aggregated vote of a shard committee for a slot.
// Bit i of AttesterBitfield refers to the i-th validator of the committee
// assigned to (Slot, Shard).
type AttestationRecord struct {
	Slot                uint64
	Shard               uint64
	ObliqueParentHashes []common.Hash
	ShardBlockHash      common.Hash
	AttesterBitfield    bitfield.Bitlist
	JustifiedSlot       uint64
	JustifiedBlockHash  common.Hash
	AggregateSig        []byte
}

// SpecialRecord carries special objects such as logouts and randao changes.
type SpecialRecord struct {
	Kind uint64
	Data []byte
}

// CrosslinkRecord tracks the most recent crosslink of a shard.
type CrosslinkRecord struct {
	RecentlyChanged bool
	Slot            uint64
	ShardBlockHash  common.Hash
}

// ShardAndCommittee defines the validator indices assigned to a shard.
type ShardAndCommittee struct {
	Shard     uint64
	Committee []uint64
}

// ShardAndCommitteeArray is the ordered list of shard committees of a slot.
// The first entry is the committee the slot proposer is drawn from.
type ShardAndCommitteeArray struct {
	ArrayShardAndCommittee []*ShardAndCommittee
}
