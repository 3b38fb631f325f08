package casper

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/params"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
	"github.com/prysmaticlabs/geth-sharding/shared/hashutil"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "casper")

// ErrInvalidAttestation is returned when a block carries an attestation that
// does not match any committee of the crystallized state.
var ErrInvalidAttestation = errors.New("invalid attestation")

// StateTransition is the default block processor of the beacon node. It
// records the attestations of every block and, once a cycle has passed,
// justifies and finalizes slots by the deposits that voted for them and
// rotates the committee table.
type StateTransition struct {
	cfg      *params.ChainConfig
	assigner CommitteeAssigner
}

// NewStateTransition creates a state transition for the chain config. A nil
// assigner falls back to ShardAndCommitteesForCycle.
func NewStateTransition(cfg *params.ChainConfig, assigner CommitteeAssigner) *StateTransition {
	if assigner == nil {
		assigner = ShardAndCommitteesForCycle
	}
	return &StateTransition{cfg: cfg, assigner: assigner}
}

// ApplyBlock applies a block on top of the given states. The states are
// modified in place and returned, callers pass copies they own.
func (s *StateTransition) ApplyBlock(
	aState *types.ActiveState,
	cState *types.CrystallizedState,
	block *types.Block,
) (*types.ActiveState, *types.CrystallizedState, error) {
	for _, att := range block.Attestations() {
		if err := verifyAttestationCommittee(cState, att); err != nil {
			return nil, nil, err
		}
	}

	a := aState.Data()
	a.PendingAttestations = append(a.PendingAttestations, block.Attestations()...)
	a.PendingSpecials = append(a.PendingSpecials, block.Specials()...)
	a.RecentBlockHashes = shiftRecentBlockHashes(a.RecentBlockHashes, block.ParentHash())
	reveal := block.RandaoReveal()
	a.RandaoMix = hashutil.Hash(append(a.RandaoMix.Bytes(), reveal[:]...))

	for cState.IsCycleTransition(block.Slot(), s.cfg.CycleLength) {
		if err := s.cycleTransition(a, cState); err != nil {
			return nil, nil, errors.Wrapf(err, "could not process cycle transition at slot %d", block.Slot())
		}
	}
	return aState, cState, nil
}

func (s *StateTransition) cycleTransition(a *types.ActiveStateData, cState *types.CrystallizedState) error {
	c := cState.Data()
	cycleLength := s.cfg.CycleLength
	if uint64(len(c.ShardAndCommitteesForSlots)) != 2*cycleLength {
		return errors.Errorf("committee table has %d slots, want %d", len(c.ShardAndCommitteesForSlots), 2*cycleLength)
	}

	start := c.LastStateRecalculationSlot
	maps, err := GenerateAttesterAndProposerMaps(c.ShardAndCommitteesForSlots, start)
	if err != nil {
		return err
	}
	totalDeposits := cState.TotalDeposits()
	for slot := start; slot < start+cycleLength; slot++ {
		voteBalance, err := slotVoteBalance(maps, c.Validators, a.PendingAttestations, slot)
		if err != nil {
			return err
		}
		c.LastJustifiedSlot, c.LastFinalizedSlot, c.JustifiedStreak = FinalizeAndJustifySlots(
			slot, c.LastJustifiedSlot, c.LastFinalizedSlot, c.JustifiedStreak, voteBalance, totalDeposits, cycleLength)
	}

	lastRow := c.ShardAndCommitteesForSlots[len(c.ShardAndCommitteesForSlots)-1].ArrayShardAndCommittee
	nextStartShard := (lastRow[len(lastRow)-1].Shard + 1) % s.cfg.ShardCount
	nextCycle, err := s.assigner(a.RandaoMix, c.Validators, nextStartShard, s.cfg)
	if err != nil {
		return errors.Wrap(err, "could not assign committees for the next cycle")
	}
	table := make([]*types.ShardAndCommitteeArray, 0, 2*cycleLength)
	table = append(table, c.ShardAndCommitteesForSlots[cycleLength:]...)
	c.ShardAndCommitteesForSlots = append(table, nextCycle...)
	c.LastStateRecalculationSlot = start + cycleLength

	var pending []*types.AttestationRecord
	for _, att := range a.PendingAttestations {
		if att.Slot >= c.LastStateRecalculationSlot {
			pending = append(pending, att)
		}
	}
	a.PendingAttestations = pending
	a.PendingSpecials = nil

	log.WithFields(logrus.Fields{
		"recalculationSlot": c.LastStateRecalculationSlot,
		"justifiedSlot":     c.LastJustifiedSlot,
		"finalizedSlot":     c.LastFinalizedSlot,
	}).Debug("Processed cycle transition")
	return nil
}

// FinalizeAndJustifySlots justifies a slot that received two thirds of the
// total deposits and finalizes the slot a cycle behind once the justified
// streak is longer than a cycle.
func FinalizeAndJustifySlots(
	slot uint64, justifiedSlot uint64, finalizedSlot uint64,
	justifiedStreak uint64, blockVoteBalance uint64, totalDeposits uint64, cycleLength uint64) (uint64, uint64, uint64) {
	if totalDeposits > 0 && 3*blockVoteBalance >= 2*totalDeposits {
		if slot > justifiedSlot {
			justifiedSlot = slot
		}
		justifiedStreak++
	} else {
		justifiedStreak = 0
	}

	if slot > cycleLength && justifiedStreak >= cycleLength+1 {
		newFinalizedSlot := slot - cycleLength - 1
		if newFinalizedSlot > finalizedSlot {
			finalizedSlot = newFinalizedSlot
		}
	}
	return justifiedSlot, finalizedSlot, justifiedStreak
}

// slotVoteBalance sums the balances of the distinct validators attesting to the slot.
func slotVoteBalance(maps *types.CommitteeMaps, validators []*types.ValidatorRecord, attestations []*types.AttestationRecord, slot uint64) (uint64, error) {
	voted := make(map[uint64]bool)
	var balance uint64
	for _, att := range attestations {
		if att.Slot != slot {
			continue
		}
		participants, err := maps.Participants(att.Slot, att.Shard, att.AttesterBitfield)
		if err != nil {
			return 0, errors.Wrap(ErrInvalidAttestation, err.Error())
		}
		for _, index := range participants {
			if voted[index] || index >= uint64(len(validators)) {
				continue
			}
			voted[index] = true
			balance += validators[index].Balance
		}
	}
	return balance, nil
}

func verifyAttestationCommittee(cState *types.CrystallizedState, att *types.AttestationRecord) error {
	row, err := cState.ShardAndCommitteesForSlot(att.Slot)
	if err != nil {
		return errors.Wrap(ErrInvalidAttestation, err.Error())
	}
	for _, sc := range row.ArrayShardAndCommittee {
		if sc.Shard != att.Shard {
			continue
		}
		if att.AttesterBitfield.Len() != uint64(len(sc.Committee)) {
			return errors.Wrapf(ErrInvalidAttestation, "attester bitfield of %d bits for committee of %d", att.AttesterBitfield.Len(), len(sc.Committee))
		}
		return nil
	}
	return errors.Wrapf(ErrInvalidAttestation, "no committee for shard %d at slot %d", att.Shard, att.Slot)
}

// shiftRecentBlockHashes drops the oldest recent block hash and appends the parent hash.
func shiftRecentBlockHashes(hashes []common.Hash, parent common.Hash) []common.Hash {
	if len(hashes) == 0 {
		return hashes
	}
	shifted := make([]common.Hash, 0, len(hashes))
	shifted = append(shifted, hashes[1:]...)
	return append(shifted, parent)
}
