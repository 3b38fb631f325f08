// Package casper contains the committee assignment logic of the beacon
// chain: shuffling validators into shard committees and deriving the
// attester and proposer lookups from a committee table.
package casper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/params"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/utils"
)

var (
	// ErrInvalidCycleLength is returned when the cycle length is zero.
	ErrInvalidCycleLength = errors.New("cycle length must be greater than zero")
	// ErrTooFewValidators is returned when there are fewer active validators than slots in a cycle.
	ErrTooFewValidators = errors.New("not enough active validators to fill every slot of a cycle")
	// ErrTooFewShards is returned when there are no shards to assign committees to.
	ErrTooFewShards = errors.New("shard count must be greater than zero")
	// ErrTooManyValidators is returned when the validator set exceeds the max validators.
	ErrTooManyValidators = errors.New("validator count exceeds max validators")
	// ErrInvalidCommitteeSize is returned when the min committee size is zero.
	ErrInvalidCommitteeSize = errors.New("min committee size must be greater than zero")
	// ErrShardCountTooSmall is returned when a slot needs more committees than there are shards.
	ErrShardCountTooSmall = errors.New("shard count cannot hold the committees of a slot")
)

// CommitteeAssigner produces the shard committee table of one cycle. The
// returned table has one ShardAndCommitteeArray per slot of the cycle.
type CommitteeAssigner func(seed common.Hash, validators []*types.ValidatorRecord, crosslinkingStartShard uint64, cfg *params.ChainConfig) ([]*types.ShardAndCommitteeArray, error)

// ActiveValidatorIndices filters out active validators based on validator status
// and returns their indices in a list.
func ActiveValidatorIndices(validators []*types.ValidatorRecord) []uint64 {
	var indices []uint64
	for i, v := range validators {
		if v.IsActive() {
			indices = append(indices, uint64(i))
		}
	}
	return indices
}

// ShardAndCommitteesForCycle shuffles the active validators with the seed
// and splits them into the committees of every slot of a cycle. Shards are
// assigned round robin starting at crosslinkingStartShard.
func ShardAndCommitteesForCycle(seed common.Hash, validators []*types.ValidatorRecord, crosslinkingStartShard uint64, cfg *params.ChainConfig) ([]*types.ShardAndCommitteeArray, error) {
	if cfg.CycleLength == 0 {
		return nil, ErrInvalidCycleLength
	}
	if cfg.ShardCount == 0 {
		return nil, ErrTooFewShards
	}
	if cfg.MinCommitteeSize == 0 {
		return nil, ErrInvalidCommitteeSize
	}
	if uint64(len(validators)) > cfg.MaxValidators {
		return nil, errors.Wrapf(ErrTooManyValidators, "%d > %d", len(validators), cfg.MaxValidators)
	}
	indices := ActiveValidatorIndices(validators)
	if uint64(len(indices)) < cfg.CycleLength {
		return nil, errors.Wrapf(ErrTooFewValidators, "%d active validators for a cycle of %d slots", len(indices), cfg.CycleLength)
	}
	if err := CheckShardCapacity(uint64(len(indices)), cfg); err != nil {
		return nil, err
	}
	shuffled, err := utils.ShuffleIndices(seed, indices)
	if err != nil {
		return nil, errors.Wrap(err, "could not shuffle validator indices")
	}
	return splitBySlotShard(shuffled, crosslinkingStartShard, cfg), nil
}

// splitBySlotShard splits a validator list into cycle length slots and every
// slot into its committees. Each committee is tagged with its shard.
func splitBySlotShard(shuffledValidators []uint64, crosslinkStartShard uint64, cfg *params.ChainConfig) []*types.ShardAndCommitteeArray {
	committeesPerSlot, slotsPerCommittee := getCommitteeParams(uint64(len(shuffledValidators)), cfg)

	committeeBySlotAndShard := make([]*types.ShardAndCommitteeArray, 0, cfg.CycleLength)
	validatorsBySlot := utils.SplitIndices(shuffledValidators, cfg.CycleLength)
	for i, validatorsForSlot := range validatorsBySlot {
		shardCommittees := []*types.ShardAndCommittee{}
		validatorsByShard := utils.SplitIndices(validatorsForSlot, committeesPerSlot)
		shardStart := crosslinkStartShard + uint64(i)*committeesPerSlot/slotsPerCommittee

		for j, validatorsForShard := range validatorsByShard {
			shardID := (shardStart + uint64(j)) % cfg.ShardCount
			shardCommittees = append(shardCommittees, &types.ShardAndCommittee{
				Shard:     shardID,
				Committee: validatorsForShard,
			})
		}
		committeeBySlotAndShard = append(committeeBySlotAndShard, &types.ShardAndCommitteeArray{
			ArrayShardAndCommittee: shardCommittees,
		})
	}
	return committeeBySlotAndShard
}

// CheckShardCapacity returns ErrShardCountTooSmall when numValidators
// would be split into more committees per slot than cfg has shards. Two
// committees of the same slot would otherwise share a shard.
func CheckShardCapacity(numValidators uint64, cfg *params.ChainConfig) error {
	if cfg.CycleLength == 0 {
		return ErrInvalidCycleLength
	}
	if cfg.ShardCount == 0 {
		return ErrTooFewShards
	}
	if cfg.MinCommitteeSize == 0 {
		return ErrInvalidCommitteeSize
	}
	if wanted := committeesWanted(numValidators, cfg); wanted > cfg.ShardCount {
		return errors.Wrapf(ErrShardCountTooSmall, "%d validators need %d committees per slot, %d shards", numValidators, wanted, cfg.ShardCount)
	}
	return nil
}

// committeesWanted is the number of committees per slot a validator set is
// split into before it is limited by the shard count.
func committeesWanted(numValidators uint64, cfg *params.ChainConfig) uint64 {
	if numValidators < cfg.CycleLength*cfg.MinCommitteeSize {
		return 1
	}
	committees := numValidators/cfg.CycleLength/(cfg.MinCommitteeSize*2) + 1
	if maxCommittees := cfg.ShardCount / cfg.CycleLength; maxCommittees > 0 && committees > maxCommittees {
		committees = maxCommittees
	}
	return committees
}

// getCommitteeParams returns the number of committees per slot and the
// number of slots a shard is crosslinked over. With a large validator set
// every slot gets several committees, with a small one a shard is spread
// across multiple slots. A slot never gets more committees than there are
// shards.
func getCommitteeParams(numValidators uint64, cfg *params.ChainConfig) (committeesPerSlot, slotsPerCommittee uint64) {
	if numValidators >= cfg.CycleLength*cfg.MinCommitteeSize {
		committeesPerSlot = committeesWanted(numValidators, cfg)
		if committeesPerSlot > cfg.ShardCount {
			committeesPerSlot = cfg.ShardCount
		}
		return committeesPerSlot, 1
	}

	committeesPerSlot = 1
	slotsPerCommittee = 1
	for numValidators*slotsPerCommittee < cfg.CycleLength*cfg.MinCommitteeSize && slotsPerCommittee < cfg.CycleLength {
		slotsPerCommittee *= 2
	}
	return committeesPerSlot, slotsPerCommittee
}
