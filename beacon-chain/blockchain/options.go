package blockchain

import (
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/casper"
)

// Option configures a beacon chain at construction.
type Option func(c *BeaconChain) error

// WithCommitteeAssigner sets the committee assigner used to shuffle the
// genesis validators into committees.
func WithCommitteeAssigner(assigner casper.CommitteeAssigner) Option {
	return func(c *BeaconChain) error {
		if assigner == nil {
			return errors.New("nil committee assigner")
		}
		c.assigner = assigner
		return nil
	}
}
