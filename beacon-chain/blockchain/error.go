package blockchain

import "github.com/pkg/errors"

var (
	// ErrInsufficientValidators is returned when the initial validator set is empty.
	ErrInsufficientValidators = errors.New("insufficient initial validators")
	// ErrInvalidGenesis is returned when the genesis states cannot be derived from the config.
	ErrInvalidGenesis = errors.New("invalid genesis")
	// ErrUnableToGenerateMaps is returned when the attester and proposer maps cannot be built.
	ErrUnableToGenerateMaps = errors.New("unable to generate attester and proposer maps")
	// ErrStoreFailure is returned when a store handle is missing or fails.
	ErrStoreFailure = errors.New("store failure")

	// ErrUnknownParent is returned when a block's parent is not part of any fork.
	ErrUnknownParent = errors.New("unknown parent block")
	// ErrKnownBlock is returned when a block was already processed.
	ErrKnownBlock = errors.New("block already processed")
	// ErrInvalidBlockSlot is returned when a block does not come after its parent.
	ErrInvalidBlockSlot = errors.New("block slot must be greater than its parent's")
	// ErrStateTransition is returned when the state transition rejects a block.
	ErrStateTransition = errors.New("state transition failed")
	// ErrForkChoice is returned when the fork choice rule fails.
	ErrForkChoice = errors.New("fork choice failed")
	// ErrInvalidHeadIndex is returned when the fork choice picks a head that does not exist.
	ErrInvalidHeadIndex = errors.New("canonical head index out of range")
	// ErrFinalizedSlotRegression is returned when the finalized slot would decrease.
	ErrFinalizedSlotRegression = errors.New("finalized slot cannot decrease")
	// ErrUnknownBlock is returned when a block is not part of any fork.
	ErrUnknownBlock = errors.New("unknown block")
	// ErrCannotRemoveGenesis is returned when removing the genesis entry.
	ErrCannotRemoveGenesis = errors.New("cannot remove genesis")
	// ErrCannotRemoveCanonical is returned when removing the canonical head.
	ErrCannotRemoveCanonical = errors.New("cannot remove canonical head")
)

// chainError carries the kind of a failure at the chain boundary together
// with its cause. It matches its kind with errors.Is and unwraps to the cause.
type chainError struct {
	kind  error
	cause error
}

func newChainError(kind error, cause error) error {
	return &chainError{kind: kind, cause: cause}
}

func (e *chainError) Error() string {
	if e.cause == nil {
		return e.kind.Error()
	}
	return e.kind.Error() + ": " + e.cause.Error()
}

// Unwrap returns the underlying cause.
func (e *chainError) Unwrap() error {
	return e.cause
}

// Is matches the kind of the error.
func (e *chainError) Is(target error) bool {
	return target == e.kind
}

// Kind returns the chain error kind of err, or nil if err did not come from
// the beacon chain.
func Kind(err error) error {
	var ce *chainError
	if errors.As(err, &ce) {
		return ce.kind
	}
	return nil
}
