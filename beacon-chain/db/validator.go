package db

import (
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db/iface"
)

// ValidatorStore stores validator public keys by validator index.
type ValidatorStore struct {
	db iface.Database
}

// SavePublicKey stores the public key of the validator at index.
func (s *ValidatorStore) SavePublicKey(index uint64, pubKey []byte) error {
	if len(pubKey) == 0 {
		return errors.Errorf("empty public key for validator %d", index)
	}
	return s.db.Put(validatorBucket, encodeValidatorIndex(index), pubKey)
}

// PublicKey returns the public key of the validator at index, or nil if none was saved.
func (s *ValidatorStore) PublicKey(index uint64) ([]byte, error) {
	return s.db.Get(validatorBucket, encodeValidatorIndex(index))
}
