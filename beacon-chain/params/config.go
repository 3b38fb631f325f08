// Package params defines the chain configuration consumed by the beacon chain core.
package params

import (
	"encoding/binary"
	"time"

	"github.com/mohae/deepcopy"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/prysmaticlabs/geth-sharding/shared/hashutil"
)

// ChainConfig contains the parameters a beacon chain is started with. It is
// consumed once, when the chain aggregate is constructed.
type ChainConfig struct {
	ConfigName         string                         // ConfigName identifies the preset or file the config was built from.
	CycleLength        uint64                         // CycleLength is one beacon chain cycle length in slots.
	ShardCount         uint64                         // ShardCount is the fixed number of shards.
	MinCommitteeSize   uint64                         // MinCommitteeSize is the minimal number of validators in a committee.
	DepositSizeGwei    uint64                         // DepositSizeGwei is how much a validator has deposited, in gwei.
	MaxValidators      uint64                         // MaxValidators is the max number of validators the shuffling supports.
	SlotDuration       uint64                         // SlotDuration is how many seconds are in a single slot.
	InitialForkVersion uint64                         // InitialForkVersion is the fork version of the genesis state.
	GenesisTime        time.Time                      // GenesisTime used by the protocol.
	InitialValidators  []*types.ValidatorRegistration // InitialValidators are inducted into the genesis validator set.
}

// StandardConfig returns the default beacon chain parameters with an empty
// initial validator set.
func StandardConfig() *ChainConfig {
	return &ChainConfig{
		ConfigName:         "standard",
		CycleLength:        64,
		ShardCount:         1024,
		MinCommitteeSize:   128,
		DepositSizeGwei:    32 * 1e9,
		MaxValidators:      1<<24 - 1,
		SlotDuration:       8,
		InitialForkVersion: 0,
		GenesisTime:        time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

// DemoConfig returns parameters small enough for local runs and tests.
func DemoConfig() *ChainConfig {
	cfg := StandardConfig()
	cfg.ConfigName = "demo"
	cfg.CycleLength = 4
	cfg.ShardCount = 4
	cfg.MinCommitteeSize = 2
	cfg.SlotDuration = 2
	return cfg
}

// Copy returns a deep copy of the config.
func (c *ChainConfig) Copy() *ChainConfig {
	return deepcopy.Copy(c).(*ChainConfig)
}

// DemoValidators generates n deterministic validator registrations for
// local chains.
func DemoValidators(n int, shardCount uint64) []*types.ValidatorRegistration {
	validators := make([]*types.ValidatorRegistration, 0, n)
	for i := 0; i < n; i++ {
		seed := make([]byte, 8)
		binary.LittleEndian.PutUint64(seed, uint64(i))
		key := hashutil.Hash(seed)
		var shard uint64
		if shardCount > 0 {
			shard = uint64(i) % shardCount
		}
		validators = append(validators, &types.ValidatorRegistration{
			PublicKey:        key[:],
			WithdrawalShard:  shard,
			RandaoCommitment: hashutil.Hash(key[:]),
		})
	}
	return validators
}
