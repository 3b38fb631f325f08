package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// BeaconBlockData holds the protocol fields of a beacon block.
type BeaconBlockData struct {
	Slot                  uint64
	RandaoReveal          common.Hash
	PowChainReference     common.Hash
	AncestorHashes        []common.Hash
	ActiveStateRoot       common.Hash
	CrystallizedStateRoot common.Hash
	Specials              []*SpecialRecord
	Attestations          []*AttestationRecord
}

// Block defines a beacon chain core primitive.
type Block struct {
	data *BeaconBlockData
}

// NewBlock explicitly sets the data field of a block.
func NewBlock(data *BeaconBlockData) *Block {
	if data == nil {
		data = &BeaconBlockData{}
	}
	return &Block{data: data}
}

// DecodeBlock decodes the wire format of a block.
func DecodeBlock(enc []byte) (*Block, error) {
	data := &BeaconBlockData{}
	if err := rlp.DecodeBytes(enc, data); err != nil {
		return nil, errors.Wrap(err, "could not decode block")
	}
	return &Block{data: data}, nil
}

// Data returns the underlying data within a block primitive.
func (b *Block) Data() *BeaconBlockData {
	return b.data
}

// Marshal encodes block object into the wire format.
func (b *Block) Marshal() ([]byte, error) {
	return rlp.EncodeToBytes(b.data)
}

// Hash generates the blake2b hash of the block.
func (b *Block) Hash() (common.Hash, error) {
	return hashEncoded(b.data)
}

// Slot returns the slot of the block.
func (b *Block) Slot() uint64 {
	return b.data.Slot
}

// ParentHash corresponding to parent beacon block, the first ancestor hash.
func (b *Block) ParentHash() common.Hash {
	if len(b.data.AncestorHashes) == 0 {
		return common.Hash{}
	}
	return b.data.AncestorHashes[0]
}

// AncestorHashes returns the skip list of ancestor hashes, parent first.
func (b *Block) AncestorHashes() []common.Hash {
	return b.data.AncestorHashes
}

// RandaoReveal returns the blake2b randao hash.
func (b *Block) RandaoReveal() common.Hash {
	return b.data.RandaoReveal
}

// PowChainRef returns a keccak256 hash corresponding to a PoW chain block.
func (b *Block) PowChainRef() common.Hash {
	return b.data.PowChainReference
}

// ActiveStateRoot returns the active state hash.
func (b *Block) ActiveStateRoot() common.Hash {
	return b.data.ActiveStateRoot
}

// CrystallizedStateRoot returns the crystallized state hash.
func (b *Block) CrystallizedStateRoot() common.Hash {
	return b.data.CrystallizedStateRoot
}

// Attestations returns an array of attestations in the block.
func (b *Block) Attestations() []*AttestationRecord {
	return b.data.Attestations
}

// Specials returns the special records included in the block.
func (b *Block) Specials() []*SpecialRecord {
	return b.data.Specials
}
