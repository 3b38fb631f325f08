// Package genesis derives the initial active and crystallized states of the
// beacon chain from a chain config.
package genesis

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/mohae/deepcopy"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/casper"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/params"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "genesis")

// ErrInvalidGenesis is returned when a config cannot produce a consistent genesis state.
var ErrInvalidGenesis = errors.New("invalid genesis configuration")

// States returns the genesis states of the config, assigning committees with
// casper.ShardAndCommitteesForCycle.
func States(cfg *params.ChainConfig) (*types.ActiveState, *types.CrystallizedState, error) {
	return StatesWithAssigner(cfg, casper.ShardAndCommitteesForCycle)
}

// StatesWithAssigner returns the genesis states of the config with the
// committees of the first two cycles produced by assigner. The result only
// depends on its inputs.
func StatesWithAssigner(cfg *params.ChainConfig, assigner casper.CommitteeAssigner) (*types.ActiveState, *types.CrystallizedState, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidGenesis, err.Error())
	}

	validators := make([]*types.ValidatorRecord, 0, len(cfg.InitialValidators))
	for _, reg := range cfg.InitialValidators {
		validators = append(validators, &types.ValidatorRecord{
			PublicKey:         append([]byte(nil), reg.PublicKey...),
			WithdrawalShard:   reg.WithdrawalShard,
			WithdrawalAddress: reg.WithdrawalAddress,
			RandaoCommitment:  reg.RandaoCommitment,
			Balance:           cfg.DepositSizeGwei,
			Status:            types.Active,
		})
	}

	committees, err := assigner(common.Hash{}, validators, 0, cfg)
	if err != nil {
		return nil, nil, errors.Wrapf(ErrInvalidGenesis, "could not assign genesis committees: %v", err)
	}
	if uint64(len(committees)) != cfg.CycleLength {
		return nil, nil, errors.Wrapf(ErrInvalidGenesis, "committee assigner returned %d slots for a cycle of %d", len(committees), cfg.CycleLength)
	}
	// Starting with 2 cycles with the same committees.
	next := deepcopy.Copy(committees).([]*types.ShardAndCommitteeArray)
	table := append(committees, next...)

	crosslinks := make([]*types.CrosslinkRecord, cfg.ShardCount)
	for i := range crosslinks {
		crosslinks[i] = &types.CrosslinkRecord{}
	}

	cState := types.NewCrystallizedState(&types.CrystallizedStateData{
		Validators:                 validators,
		Crosslinks:                 crosslinks,
		ShardAndCommitteesForSlots: table,
		DepositsPenalizedInPeriod:  []uint64{},
		PreForkVersion:             cfg.InitialForkVersion,
		PostForkVersion:            cfg.InitialForkVersion,
	})
	aState := types.NewActiveState(&types.ActiveStateData{
		PendingAttestations: []*types.AttestationRecord{},
		PendingSpecials:     []*types.SpecialRecord{},
		RecentBlockHashes:   make([]common.Hash, 2*cfg.CycleLength),
	})

	log.WithFields(logrus.Fields{
		"validators": len(validators),
		"slots":      len(table),
		"shards":     cfg.ShardCount,
	}).Debug("Derived genesis states")
	return aState, cState, nil
}

func validateConfig(cfg *params.ChainConfig) error {
	if cfg == nil {
		return errors.New("nil chain config")
	}
	if cfg.CycleLength == 0 {
		return errors.New("cycle length must be greater than zero")
	}
	if cfg.ShardCount == 0 {
		return errors.New("shard count must be greater than zero")
	}
	if cfg.MinCommitteeSize == 0 {
		return errors.New("min committee size must be greater than zero")
	}
	n := uint64(len(cfg.InitialValidators))
	if n > cfg.MaxValidators {
		return errors.Errorf("%d initial validators exceed the max of %d", n, cfg.MaxValidators)
	}
	if n < cfg.CycleLength {
		return errors.Errorf("%d initial validators cannot fill a cycle of %d slots", n, cfg.CycleLength)
	}
	if err := casper.CheckShardCapacity(n, cfg); err != nil {
		return err
	}
	for i, reg := range cfg.InitialValidators {
		if reg == nil {
			return errors.Errorf("initial validator %d is nil", i)
		}
	}
	return nil
}
