package casper

import (
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/geth-sharding/beacon-chain/types"
)

var (
	// ErrEmptyAssignmentTable is returned when the committee table has no slots.
	ErrEmptyAssignmentTable = errors.New("shard and committee table is empty")
	// ErrMisalignedStartSlot is returned when the table does not cover two
	// whole cycles starting at a cycle boundary.
	ErrMisalignedStartSlot = errors.New("start slot is not aligned with the committee table")
	// ErrNoShardAndCommitteeForSlot is returned when a slot has no committees.
	ErrNoShardAndCommitteeForSlot = errors.New("no shard and committee for slot")
	// ErrSlotOverflow is returned when a slot number does not fit in a uint64.
	ErrSlotOverflow = errors.New("slot number overflows")
	// ErrDuplicateShard is returned when a slot has two committees for one shard.
	ErrDuplicateShard = errors.New("shard assigned twice in one slot")
	// ErrEmptyCommittee is returned when a committee has no validators.
	ErrEmptyCommittee = errors.New("committee has no validators")
)

// IsTableShapeError reports whether the map builder rejected the layout of
// the committee table, as opposed to the validators within it.
func IsTableShapeError(err error) bool {
	return errors.Is(err, ErrEmptyAssignmentTable) ||
		errors.Is(err, ErrMisalignedStartSlot) ||
		errors.Is(err, ErrNoShardAndCommitteeForSlot) ||
		errors.Is(err, ErrSlotOverflow) ||
		errors.Is(err, ErrDuplicateShard)
}

// GenerateAttesterAndProposerMaps derives the attester and proposer lookups of
// a committee table whose first row is startSlot. Every (slot, shard) pair is
// mapped to its committee, and the proposer of a slot is picked from the
// first committee of the slot by slot number modulo the committee size.
func GenerateAttesterAndProposerMaps(table []*types.ShardAndCommitteeArray, startSlot uint64) (*types.CommitteeMaps, error) {
	if len(table) == 0 {
		return nil, ErrEmptyAssignmentTable
	}
	cycleLength := uint64(len(table)) / 2
	if len(table)%2 != 0 || startSlot%cycleLength != 0 {
		return nil, errors.Wrapf(ErrMisalignedStartSlot, "start slot %d with a table of %d slots", startSlot, len(table))
	}

	attesters := make(types.AttesterMap)
	proposers := make(types.ProposerMap, len(table))
	for i, row := range table {
		slot := startSlot + uint64(i)
		if slot < startSlot {
			return nil, errors.Wrapf(ErrSlotOverflow, "row %d after start slot %d", i, startSlot)
		}
		if row == nil || len(row.ArrayShardAndCommittee) == 0 {
			return nil, errors.Wrapf(ErrNoShardAndCommitteeForSlot, "slot %d", slot)
		}
		for _, sc := range row.ArrayShardAndCommittee {
			if sc == nil || len(sc.Committee) == 0 {
				var shard uint64
				if sc != nil {
					shard = sc.Shard
				}
				return nil, errors.Wrapf(ErrEmptyCommittee, "slot %d shard %d", slot, shard)
			}
			key := types.AttesterKey{Slot: slot, Shard: sc.Shard}
			if _, ok := attesters[key]; ok {
				return nil, errors.Wrapf(ErrDuplicateShard, "slot %d shard %d", slot, sc.Shard)
			}
			attesters[key] = append([]uint64(nil), sc.Committee...)
		}
		proposerCommittee := row.ArrayShardAndCommittee[0].Committee
		proposers[slot] = proposerCommittee[slot%uint64(len(proposerCommittee))]
	}
	return types.NewCommitteeMaps(attesters, proposers), nil
}
