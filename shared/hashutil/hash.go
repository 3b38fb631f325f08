// Package hashutil includes all hash-function related helpers for the beacon chain.
package hashutil

import (
	"golang.org/x/crypto/blake2b"
)

// Hash defines a function that returns the
// blake2b hash of the data passed in, truncated to 32 bytes.
func Hash(data []byte) [32]byte {
	var hash [32]byte
	h := blake2b.Sum512(data)
	copy(hash[:], h[:32])
	return hash
}

// RepeatHash applies the blake2b hash function repeatedly
// numTimes on a [32]byte array.
func RepeatHash(data [32]byte, numTimes uint64) [32]byte {
	for i := uint64(0); i < numTimes; i++ {
		data = Hash(data[:])
	}
	return data
}
