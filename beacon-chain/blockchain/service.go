package blockchain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/casper"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/db"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/forkchoice"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/params"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/utils"
	"github.com/sirupsen/logrus"
)

// errServiceNotStarted is returned when the chain is used before Start succeeded.
var errServiceNotStarted = errors.New("blockchain service not started")

// Config options for the blockchain service.
type Config struct {
	ChainConfig *params.ChainConfig
	DB          *db.Config
	Options     []Option
}

// ChainService represents a service that handles the internal
// logic of managing the full PoS beacon chain.
type ChainService struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *Config
	lock       sync.RWMutex
	store      *db.ChainStore
	chain      *BeaconChain
	forkChoice ForkChoice
	transition StateTransitioner
	startErr   error
}

// NewChainService instantiates a new service instance that will
// be registered into a running beacon node.
func NewChainService(ctx context.Context, cfg *Config) (*ChainService, error) {
	if cfg == nil || cfg.ChainConfig == nil {
		return nil, errors.New("missing chain config")
	}
	if cfg.DB == nil {
		cfg.DB = &db.Config{InMemory: true}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &ChainService{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		startErr: errServiceNotStarted,
	}, nil
}

// Start opens the chain store, initializes the beacon chain from genesis
// and records the genesis validator keys.
func (s *ChainService) Start() {
	log.Info("Starting blockchain service")
	if err := s.start(); err != nil {
		log.WithError(err).Error("Unable to setup blockchain")
		s.lock.Lock()
		s.startErr = err
		s.lock.Unlock()
	}
}

func (s *ChainService) start() error {
	store, err := db.Open(s.cfg.DB)
	if err != nil {
		return newChainError(ErrStoreFailure, err)
	}
	chain, err := NewBeaconChain(store, s.cfg.ChainConfig, s.cfg.Options...)
	if err != nil {
		return s.closeAfter(store, err)
	}
	_, cState, _, _ := chain.BlockStates(common.Hash{})
	for i, v := range cState.Validators() {
		if err := store.Validator.SavePublicKey(uint64(i), v.PublicKey); err != nil {
			return s.closeAfter(store, newChainError(ErrStoreFailure, err))
		}
	}
	fc, err := forkchoice.NewNaiveForkChoice(store.Block, forkchoice.DefaultSlotCacheSize)
	if err != nil {
		return s.closeAfter(store, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.store = store
	s.chain = chain
	s.forkChoice = fc
	s.transition = casper.NewStateTransition(chain.Config(), chain.CommitteeAssigner())
	s.startErr = nil

	cfg := chain.Config()
	log.WithFields(logrus.Fields{
		"genesisTime": cfg.GenesisTime,
		"currentSlot": utils.CurrentSlot(cfg.GenesisTime, cfg.SlotDuration, time.Now()),
		"validators":  cState.ValidatorsLength(),
	}).Info("Blockchain service started")
	return nil
}

func (s *ChainService) closeAfter(store *db.ChainStore, err error) error {
	if closeErr := store.Close(); closeErr != nil {
		log.WithError(closeErr).Error("Could not close chain store")
	}
	return err
}

// Stop the blockchain service and close the chain store.
func (s *ChainService) Stop() error {
	defer s.cancel()
	log.Info("Stopping blockchain service")
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	s.chain = nil
	s.startErr = errServiceNotStarted
	return err
}

// Status returns an error if the service failed to start or was stopped.
func (s *ChainService) Status() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.startErr
}

// Chain returns the beacon chain, or nil if the service is not running.
func (s *ChainService) Chain() *BeaconChain {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.chain
}

// ReceiveBlock processes a block with the default state transition, then
// updates the canonical head and prunes forks behind the finalized slot.
func (s *ChainService) ReceiveBlock(block *types.Block) (common.Hash, error) {
	s.lock.RLock()
	chain, fc, transition := s.chain, s.forkChoice, s.transition
	s.lock.RUnlock()
	if chain == nil {
		return common.Hash{}, errServiceNotStarted
	}
	if err := s.ctx.Err(); err != nil {
		return common.Hash{}, err
	}

	hash, err := chain.ProcessBlock(block, transition)
	if err != nil {
		return common.Hash{}, err
	}
	if err := chain.UpdateCanonicalHead(fc); err != nil {
		return hash, err
	}
	chain.PruneFinalized()
	return hash, nil
}
