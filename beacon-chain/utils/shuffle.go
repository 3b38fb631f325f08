// Package utils defines utility functions for the beacon-chain.
package utils

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/shared/hashutil"
)

// randBytes is the number of bytes of entropy consumed per swap.
const randBytes = 3

// upperBound is the exclusive maximum of a randBytes big-endian integer.
const upperBound = 1 << (randBytes * 8)

// ErrListTooLarge is returned when a list cannot be shuffled without modulo bias.
var ErrListTooLarge = errors.New("input list exceeded upper bound and reached modulo bias")

// ShuffleIndices returns a list of pseudorandomly sampled
// indices. This is used to shuffle validators on ETH2.0 beacon chain.
// The input list is not modified.
func ShuffleIndices(seed common.Hash, indicesList []uint64) ([]uint64, error) {
	listSize := len(indicesList)
	if listSize >= upperBound {
		return nil, ErrListTooLarge
	}
	shuffled := make([]uint64, listSize)
	copy(shuffled, indicesList)

	source := hashutil.Hash(seed[:])
	i := 0
	// Shuffle stops at the second to last index.
	for i < listSize-1 {
		// Iterate through the source bytes in chunks of size randBytes.
		for j := 0; j+randBytes <= len(source) && i < listSize-1; j += randBytes {
			remaining := listSize - i
			randValue := int(source[j])<<16 | int(source[j+1])<<8 | int(source[j+2])
			// Values at or above sampleMax would cause modulo bias.
			sampleMax := upperBound - upperBound%remaining
			if randValue < sampleMax {
				replacement := i + randValue%remaining
				shuffled[i], shuffled[replacement] = shuffled[replacement], shuffled[i]
				i++
			}
		}
		source = hashutil.Hash(source[:])
	}
	return shuffled, nil
}

// SplitIndices splits a list into n pieces. Sizes of the pieces differ by
// at most one and their concatenation is the input list.
func SplitIndices(l []uint64, n uint64) [][]uint64 {
	var divided [][]uint64
	var lSize = uint64(len(l))
	for i := uint64(0); i < n; i++ {
		start := lSize * i / n
		end := lSize * (i + 1) / n
		divided = append(divided, l[start:end])
	}
	return divided
}
