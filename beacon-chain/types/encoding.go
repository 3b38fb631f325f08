package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/prysmaticlabs/geth-sharding/shared/hashutil"
)

// hashEncoded serializes the object with RLP then uses
// blake2b to hash the serialized bytes.
func hashEncoded(v interface{}) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(hashutil.Hash(enc)), nil
}
