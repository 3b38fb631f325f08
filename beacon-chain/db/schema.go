package db

import (
	"encoding/binary"
)

// The Schema will define how to store and retrieve data from the db.
// Blocks are stored in the block bucket keyed by their hash, proof-of-work
// chain block hashes in the powchain bucket keyed by the hash itself, and
// validator public keys in the validator bucket keyed by the big endian
// validator index.
var (
	// blockBucket contains blocks by hash.
	blockBucket = []byte("block-bucket")

	// powChainBucket contains the proof-of-work chain block hashes referenced by beacon blocks.
	powChainBucket = []byte("powchain-bucket")

	// validatorBucket contains validator public keys by validator index.
	validatorBucket = []byte("validator-bucket")
)

// encodeValidatorIndex encodes a validator index as big endian uint64.
func encodeValidatorIndex(index uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, index)
	return enc
}
