package params

import (
	"io/ioutil"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// yamlChainConfig mirrors ChainConfig with the yaml field names of a chain
// config file. Hex encoded values are decoded after unmarshaling.
type yamlChainConfig struct {
	ConfigName         string                  `yaml:"CONFIG_NAME"`
	Preset             string                  `yaml:"PRESET_BASE"`
	CycleLength        *uint64                 `yaml:"CYCLE_LENGTH"`
	ShardCount         *uint64                 `yaml:"SHARD_COUNT"`
	MinCommitteeSize   *uint64                 `yaml:"MIN_COMMITTEE_SIZE"`
	DepositSizeGwei    *uint64                 `yaml:"DEPOSIT_SIZE_GWEI"`
	MaxValidators      *uint64                 `yaml:"MAX_VALIDATORS"`
	SlotDuration       *uint64                 `yaml:"SLOT_DURATION"`
	InitialForkVersion *uint64                 `yaml:"INITIAL_FORK_VERSION"`
	GenesisTime        *uint64                 `yaml:"GENESIS_TIME"`
	InitialValidators  []yamlValidatorRegistry `yaml:"INITIAL_VALIDATORS"`
}

type yamlValidatorRegistry struct {
	PublicKey         string `yaml:"pubkey"`
	WithdrawalShard   uint64 `yaml:"withdrawal_shard"`
	WithdrawalAddress string `yaml:"withdrawal_address"`
	RandaoCommitment  string `yaml:"randao_commitment"`
	ProofOfPossession string `yaml:"proof_of_possession"`
}

// LoadChainConfigFile reads a yaml chain config file. Values missing from the
// file are taken from the preset named by PRESET_BASE (standard by default).
func LoadChainConfigFile(chainConfigFileName string) (*ChainConfig, error) {
	yamlFile, err := ioutil.ReadFile(chainConfigFileName) // #nosec G304
	if err != nil {
		return nil, errors.Wrap(err, "failed to read chain config file")
	}
	return UnmarshalChainConfig(yamlFile)
}

// UnmarshalChainConfig parses the yaml encoding of a chain config.
func UnmarshalChainConfig(enc []byte) (*ChainConfig, error) {
	raw := &yamlChainConfig{}
	if err := yaml.UnmarshalStrict(enc, raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse chain config yaml")
	}

	var conf *ChainConfig
	switch raw.Preset {
	case "", "standard":
		conf = StandardConfig()
	case "demo":
		conf = DemoConfig()
	default:
		return nil, errors.Errorf("unknown preset %q", raw.Preset)
	}
	if raw.ConfigName != "" {
		conf.ConfigName = raw.ConfigName
	}
	setIfPresent(&conf.CycleLength, raw.CycleLength)
	setIfPresent(&conf.ShardCount, raw.ShardCount)
	setIfPresent(&conf.MinCommitteeSize, raw.MinCommitteeSize)
	setIfPresent(&conf.DepositSizeGwei, raw.DepositSizeGwei)
	setIfPresent(&conf.MaxValidators, raw.MaxValidators)
	setIfPresent(&conf.SlotDuration, raw.SlotDuration)
	setIfPresent(&conf.InitialForkVersion, raw.InitialForkVersion)
	if raw.GenesisTime != nil {
		conf.GenesisTime = time.Unix(int64(*raw.GenesisTime), 0).UTC()
	}

	for i, v := range raw.InitialValidators {
		registration, err := v.registration()
		if err != nil {
			return nil, errors.Wrapf(err, "invalid initial validator %d", i)
		}
		conf.InitialValidators = append(conf.InitialValidators, registration)
	}
	log.WithField("validators", len(conf.InitialValidators)).Debugf("Config file values: %+v", conf)
	return conf, nil
}

func setIfPresent(field *uint64, value *uint64) {
	if value != nil {
		*field = *value
	}
}

func (v yamlValidatorRegistry) registration() (*types.ValidatorRegistration, error) {
	pubkey, err := hexutil.Decode(v.PublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "pubkey")
	}
	r := &types.ValidatorRegistration{
		PublicKey:       pubkey,
		WithdrawalShard: v.WithdrawalShard,
	}
	if v.WithdrawalAddress != "" {
		if !common.IsHexAddress(v.WithdrawalAddress) {
			return nil, errors.Errorf("withdrawal_address %q is not a hex address", v.WithdrawalAddress)
		}
		r.WithdrawalAddress = common.HexToAddress(v.WithdrawalAddress)
	}
	if v.RandaoCommitment != "" {
		commitment, err := hexutil.Decode(v.RandaoCommitment)
		if err != nil {
			return nil, errors.Wrap(err, "randao_commitment")
		}
		if len(commitment) != common.HashLength {
			return nil, errors.Errorf("randao_commitment has %d bytes, want %d", len(commitment), common.HashLength)
		}
		r.RandaoCommitment = common.BytesToHash(commitment)
	}
	if v.ProofOfPossession != "" {
		proof, err := hexutil.Decode(v.ProofOfPossession)
		if err != nil {
			return nil, errors.Wrap(err, "proof_of_possession")
		}
		r.ProofOfPossession = proof
	}
	return r, nil
}
