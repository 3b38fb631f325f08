package types

import (
	"github.com/ethereum/go-ethereum/common"
)

// ValidatorStatus defines the lifecycle stage of a validator record.
type ValidatorStatus uint64

// Validator statuses, values follow the beacon chain registry encoding.
const (
	PendingActivation ValidatorStatus = 0
	Active            ValidatorStatus = 1
	PendingExit       ValidatorStatus = 2
	PendingWithdraw   ValidatorStatus = 3
	Withdrawn         ValidatorStatus = 4
	Penalized         ValidatorStatus = 127
)

// ValidatorRegistration is the deposit data a validator submits to join the
// validator set. Genesis configurations carry a list of these.
type ValidatorRegistration struct {
	PublicKey         []byte
	WithdrawalShard   uint64
	WithdrawalAddress common.Address
	RandaoCommitment  common.Hash
	ProofOfPossession []byte
}

// ValidatorRecord is the crystallized state entry of a single validator.
type ValidatorRecord struct {
	PublicKey         []byte
	WithdrawalShard   uint64
	WithdrawalAddress common.Address
	RandaoCommitment  common.Hash
	RandaoLastChange  uint64
	Balance           uint64
	Status            ValidatorStatus
	ExitSlot          uint64
}

// IsActive returns true if the validator takes part in committees.
func (v *ValidatorRecord) IsActive() bool {
	return v.Status == Active
}
