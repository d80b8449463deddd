package mosaic

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument reports a malformed or missing input. It is raised
	// before any network call and is never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAmount is an ErrInvalidArgument for token amounts that are
	// nil, zero or negative.
	ErrInvalidAmount = fmt.Errorf("[%w]: invalid amount", ErrInvalidArgument)

	// ErrContractNotFound reports a construction-time failure to resolve the
	// target contract. Fatal to the instance being constructed.
	ErrContractNotFound = errors.New("contract not found")

	// ErrTransactionReverted reports a transaction that was mined but
	// rejected by the contract. The caller decides whether to re-fetch state
	// and retry.
	ErrTransactionReverted = errors.New("transaction reverted")

	// ErrMessageNotProgressable reports a message whose current status does
	// not allow progression. Raised before the progression transaction is
	// submitted.
	ErrMessageNotProgressable = errors.New("message not progressable")

	// ErrAnchorWaitTimeout reports that the counter-chain anchor did not
	// commit the required state root within the polling budget. Recoverable
	// by re-invoking the wait with a fresh timeout.
	ErrAnchorWaitTimeout = errors.New("anchor wait timed out")

	// ErrStaleCommitment reports a state-root commitment at a block height
	// not strictly greater than the currently anchored height.
	ErrStaleCommitment = errors.New("stale state-root commitment")

	// ErrEntropyUnavailable reports that the secure random source failed
	// while generating a hash lock.
	ErrEntropyUnavailable = errors.New("entropy unavailable")

	// ErrNotApproved reports a stake or bounty amount that has not yet been
	// approved for transfer. The caller must approve explicitly; the library
	// never spends on its own authority.
	ErrNotApproved = errors.New("amount not approved")
)

// InvalidArgumentf builds an ErrInvalidArgument naming the rejected field and
// the value that failed validation, so misuse is diagnosable from the message
// alone.
func InvalidArgumentf(field string, value interface{}) error {
	return fmt.Errorf("%w: invalid %s: %v", ErrInvalidArgument, field, value)
}

// InvalidAmountf builds an ErrInvalidAmount naming the rejected field.
func InvalidAmountf(field string, value interface{}) error {
	return fmt.Errorf("%w: %s is %v, must be greater than zero", ErrInvalidAmount, field, value)
}
