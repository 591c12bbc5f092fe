package settlement

import (
	"errors"
	"fmt"

	"github.com/xraph/settlement/transfer"
	"github.com/xraph/settlement/types"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("settlement: not found")
	ErrAlreadyExists = errors.New("settlement: already exists")
	ErrInvalidInput  = errors.New("settlement: invalid input")
	ErrUnauthorized  = errors.New("settlement: unauthorized")
	ErrReservedParty = errors.New("settlement: party is a reserved program identity")

	// Invoice errors
	ErrInvoiceNotFound             = errors.New("settlement: invoice not found")
	ErrInvoiceExists               = errors.New("settlement: invoice number already used by creator")
	ErrInvoiceNumberTooLong        = errors.New("settlement: invoice number too long")
	ErrMemoTooLong                 = errors.New("settlement: memo too long")
	ErrTooManyMilestones           = errors.New("settlement: too many milestones")
	ErrMilestoneDescriptionTooLong = errors.New("settlement: milestone description too long")
	ErrReferenceTooLong            = errors.New("settlement: payment reference too long")
	ErrInvalidInvoiceStatus        = errors.New("settlement: invalid invoice status for operation")
	ErrInvoiceTooNew               = errors.New("settlement: invoice too new for lottery")

	// Escrow errors
	ErrEscrowNotFound        = errors.New("settlement: escrow not found")
	ErrEscrowExists          = errors.New("settlement: escrow already exists")
	ErrInsufficientFunding   = errors.New("settlement: funding below invoice amount")
	ErrNoMilestones          = errors.New("settlement: invoice has no milestones")
	ErrEscrowNotFunded       = errors.New("settlement: escrow not funded")
	ErrAllMilestonesComplete = errors.New("settlement: all milestones already released")

	// Lottery errors
	ErrPoolNotFound          = errors.New("settlement: lottery pool not found")
	ErrPoolExists            = errors.New("settlement: lottery pool already exists for asset")
	ErrPoolPaused            = errors.New("settlement: lottery pool is paused")
	ErrHouseEdgeTooHigh      = errors.New("settlement: house edge too high")
	ErrReserveTooHigh        = errors.New("settlement: pool reserve too high")
	ErrMaxWinTooHigh         = errors.New("settlement: max win percentage too high")
	ErrInvalidAmount         = errors.New("settlement: amount must be positive")
	ErrInvoiceExceedsMaxWin  = errors.New("settlement: invoice exceeds pool max win")
	ErrEntryNotFound         = errors.New("settlement: lottery entry not found")
	ErrEntryExists           = errors.New("settlement: lottery entry already exists")
	ErrLotteryAlreadySettled = errors.New("settlement: lottery already settled")

	// Profile errors
	ErrProfileNotFound     = errors.New("settlement: profile not found")
	ErrProfileExists       = errors.New("settlement: profile already exists")
	ErrNameTooLong         = errors.New("settlement: name too long")
	ErrEmailTooLong        = errors.New("settlement: email too long")
	ErrBusinessNameTooLong = errors.New("settlement: business name too long")

	// Arithmetic errors
	ErrArithmeticOverflow = types.ErrOverflow

	// Transfer errors, raised by the value-transfer ledger
	ErrInsufficientFunds    = transfer.ErrInsufficientFunds
	ErrTransferUnauthorized = transfer.ErrUnauthorized
	ErrAssetMismatch        = transfer.ErrAssetMismatch
	ErrInvalidTransfer      = transfer.ErrInvalidTransfer

	// Store errors
	ErrStoreNotReady     = errors.New("settlement: store not ready")
	ErrStoreClosed       = errors.New("settlement: store is closed")
	ErrTransactionFailed = errors.New("settlement: transaction failed")
	ErrMigrationFailed   = errors.New("settlement: migration failed")
	ErrLockUnavailable   = errors.New("settlement: could not acquire lock")
	ErrCommitInDoubt     = errors.New("settlement: transfers applied but store commit failed")
)

// ValidationError represents a validation failure with details. Err is the
// sentinel the failure corresponds to.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("settlement: validation failed for %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// checkParty rejects an unset party and any party in a program namespace.
func checkParty(field string, p types.Party) error {
	if p.IsZero() {
		return invalid(field, ErrInvalidInput, "required")
	}
	if p.IsProgram() {
		return fmt.Errorf("%w: %s %q", ErrReservedParty, field, p)
	}
	return nil
}

func invalid(field string, sentinel error, format string, args ...any) error {
	return ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvoiceNotFound) ||
		errors.Is(err, ErrEscrowNotFound) ||
		errors.Is(err, ErrPoolNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrProfileNotFound)
}

// IsValidation returns true if the error rejects malformed input.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvoiceNumberTooLong) ||
		errors.Is(err, ErrMemoTooLong) ||
		errors.Is(err, ErrTooManyMilestones) ||
		errors.Is(err, ErrMilestoneDescriptionTooLong) ||
		errors.Is(err, ErrReferenceTooLong) ||
		errors.Is(err, ErrHouseEdgeTooHigh) ||
		errors.Is(err, ErrReserveTooHigh) ||
		errors.Is(err, ErrMaxWinTooHigh) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNameTooLong) ||
		errors.Is(err, ErrEmailTooLong) ||
		errors.Is(err, ErrBusinessNameTooLong) ||
		errors.Is(err, ErrInvalidTransfer) ||
		errors.Is(err, ErrAssetMismatch)
}

// IsPrecondition returns true if the error rejects an operation because of
// the current state of a record.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvoiceExists) ||
		errors.Is(err, ErrInvalidInvoiceStatus) ||
		errors.Is(err, ErrInvoiceTooNew) ||
		errors.Is(err, ErrEscrowExists) ||
		errors.Is(err, ErrInsufficientFunding) ||
		errors.Is(err, ErrNoMilestones) ||
		errors.Is(err, ErrEscrowNotFunded) ||
		errors.Is(err, ErrAllMilestonesComplete) ||
		errors.Is(err, ErrPoolExists) ||
		errors.Is(err, ErrPoolPaused) ||
		errors.Is(err, ErrInvoiceExceedsMaxWin) ||
		errors.Is(err, ErrEntryExists) ||
		errors.Is(err, ErrLotteryAlreadySettled) ||
		errors.Is(err, ErrProfileExists)
}

// IsFatal returns true if the operation failed in a way neither the caller
// nor a retry can correct: an arithmetic overflow, or a commit that failed
// after funds had already moved.
func IsFatal(err error) bool {
	return errors.Is(err, ErrArithmeticOverflow) ||
		errors.Is(err, ErrCommitInDoubt)
}

// IsUnauthorized returns true if the caller may not perform the operation.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrReservedParty) ||
		errors.Is(err, ErrTransferUnauthorized)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
// An in-doubt commit is never retryable.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrCommitInDoubt) {
		return false
	}
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrLockUnavailable)
}
