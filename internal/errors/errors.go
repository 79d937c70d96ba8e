// Package errors defines the error taxonomy used throughout the pool engine.
//
// Every failure surfaced by the program is a *ProgramError carrying a stable code
// and a Kind. The kind lets callers tell a malformed call (Structural), a call made
// against a pool in the wrong state (Lifecycle), a pool/data integrity problem
// (Arithmetic) and a caller-actionable price bound violation (Slippage) apart.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a ProgramError.
type Kind int

const (
	// KindStructural covers bad account lists, missing signatures and malformed payloads.
	KindStructural Kind = iota
	// KindLifecycle covers operations attempted in a pool state that forbids them.
	KindLifecycle
	// KindArithmetic covers overflow, underflow and zero-balance conditions.
	KindArithmetic
	// KindSlippage marks a computed amount that violates a caller-supplied bound.
	KindSlippage
	// KindRuntime covers failures reported by the host ledger or the token service.
	KindRuntime
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural"
	case KindLifecycle:
		return "lifecycle"
	case KindArithmetic:
		return "arithmetic"
	case KindSlippage:
		return "slippage"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Error codes.
const (
	ErrCodeNotEnoughAccountKeys      = "NOT_ENOUGH_ACCOUNT_KEYS"
	ErrCodeMissingRequiredSignature  = "MISSING_REQUIRED_SIGNATURE"
	ErrCodeInvalidInstructionData    = "INVALID_INSTRUCTION_DATA"
	ErrCodeInvalidAccountData        = "INVALID_ACCOUNT_DATA"
	ErrCodeInvalidAccountOwner       = "INVALID_ACCOUNT_OWNER"
	ErrCodeIncorrectProgramID        = "INCORRECT_PROGRAM_ID"
	ErrCodeInvalidSeeds              = "INVALID_SEEDS"
	ErrCodeAccountAlreadyInitialized = "ACCOUNT_ALREADY_INITIALIZED"
	ErrCodeInvalidArgument           = "INVALID_ARGUMENT"
	ErrCodeExpired                   = "EXPIRED"
	ErrCodeInvalidPoolState          = "INVALID_POOL_STATE"
	ErrCodeOverflow                  = "OVERFLOW"
	ErrCodeUnderflow                 = "UNDERFLOW"
	ErrCodeZeroBalance               = "ZERO_BALANCE"
	ErrCodeInvalidData               = "INVALID_DATA"
	ErrCodeSlippageExceeded          = "SLIPPAGE_EXCEEDED"
	ErrCodeAccountNotWritable        = "ACCOUNT_NOT_WRITABLE"
	ErrCodeAccountAlreadyInUse       = "ACCOUNT_ALREADY_IN_USE"
	ErrCodeInsufficientFunds         = "INSUFFICIENT_FUNDS"
	ErrCodeOwnerMismatch             = "OWNER_MISMATCH"
	ErrCodeMintMismatch              = "MINT_MISMATCH"
	ErrCodeUninitializedAccount      = "UNINITIALIZED_ACCOUNT"
	ErrCodeCustom                    = "CUSTOM"
)

// ProgramError represents an error raised while executing an instruction.
type ProgramError struct {
	// Code is a unique error code for this error type.
	Code string

	// Kind classifies the error for callers.
	Kind Kind

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *ProgramError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProgramError) Unwrap() error {
	return e.Cause
}

// Is reports whether the error matches the target.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap returns a copy of e with cause attached. The receiver is left untouched so
// that package-level sentinels stay shareable.
func (e *ProgramError) Wrap(cause error) *ProgramError {
	c := *e
	c.Cause = cause
	return &c
}

// Withf returns a copy of e with a more specific message.
func (e *ProgramError) Withf(format string, args ...any) *ProgramError {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// WireCode maps the error onto the numeric program error returned to the caller.
// All arithmetic failures collapse onto a single invalid-data code; slippage is
// custom error 1.
func (e *ProgramError) WireCode() uint64 {
	switch e.Kind {
	case KindSlippage:
		return 1
	case KindArithmetic, KindLifecycle:
		return wireInvalidAccountData
	}
	if code, ok := wireCodes[e.Code]; ok {
		return code
	}
	return 0
}

// NewError creates a new ProgramError.
func NewError(kind Kind, code, message string) *ProgramError {
	return &ProgramError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Pre-defined errors.
var (
	// ErrNotEnoughAccountKeys is returned when the account list does not match the expected arity.
	ErrNotEnoughAccountKeys = NewError(KindStructural, ErrCodeNotEnoughAccountKeys, "account list does not match instruction arity")

	// ErrMissingRequiredSignature is returned when a required signer did not sign.
	ErrMissingRequiredSignature = NewError(KindStructural, ErrCodeMissingRequiredSignature, "missing required signature")

	// ErrInvalidInstructionData is returned for short, malformed or zero-valued payloads.
	ErrInvalidInstructionData = NewError(KindStructural, ErrCodeInvalidInstructionData, "invalid instruction data")

	// ErrInvalidAccountData is returned when an account's contents are not what the instruction expects.
	ErrInvalidAccountData = NewError(KindStructural, ErrCodeInvalidAccountData, "invalid account data")

	// ErrInvalidAccountOwner is returned when an account is owned by an unexpected program or identity.
	ErrInvalidAccountOwner = NewError(KindStructural, ErrCodeInvalidAccountOwner, "invalid account owner")

	// ErrIncorrectProgramID is returned when a program account is not the expected program.
	ErrIncorrectProgramID = NewError(KindStructural, ErrCodeIncorrectProgramID, "incorrect program id")

	// ErrInvalidSeeds is returned when an address cannot be re-derived from its seeds.
	ErrInvalidSeeds = NewError(KindStructural, ErrCodeInvalidSeeds, "address does not match derived seeds")

	// ErrAccountAlreadyInitialized is returned when creating a pool that already exists.
	ErrAccountAlreadyInitialized = NewError(KindStructural, ErrCodeAccountAlreadyInitialized, "account already initialized")

	// ErrInvalidArgument is returned when an argument is rejected after computation.
	ErrInvalidArgument = NewError(KindStructural, ErrCodeInvalidArgument, "invalid argument")

	// ErrExpired is returned when a request's expiration is earlier than the ledger clock.
	ErrExpired = NewError(KindStructural, ErrCodeExpired, "request expired")

	// ErrInvalidPoolState is returned when the pool lifecycle state forbids the operation.
	ErrInvalidPoolState = NewError(KindLifecycle, ErrCodeInvalidPoolState, "operation not allowed in current pool state")

	// ErrOverflow is returned when a checked arithmetic step overflows.
	ErrOverflow = NewError(KindArithmetic, ErrCodeOverflow, "arithmetic overflow")

	// ErrUnderflow is returned when a checked subtraction would go negative.
	ErrUnderflow = NewError(KindArithmetic, ErrCodeUnderflow, "arithmetic underflow")

	// ErrZeroBalance is returned when a computation needs a non-zero reserve or supply.
	ErrZeroBalance = NewError(KindArithmetic, ErrCodeZeroBalance, "zero balance")

	// ErrInvalidData is the caller-facing form of every arithmetic failure.
	ErrInvalidData = NewError(KindArithmetic, ErrCodeInvalidData, "invalid data")

	// ErrSlippageExceeded is returned when a computed amount violates the caller's bound.
	ErrSlippageExceeded = NewError(KindSlippage, ErrCodeSlippageExceeded, "slippage exceeded")

	// ErrAccountNotWritable is returned when writing to an account not marked writable.
	ErrAccountNotWritable = NewError(KindRuntime, ErrCodeAccountNotWritable, "account not writable")

	// ErrAccountAlreadyInUse is returned when creating an account that already exists.
	ErrAccountAlreadyInUse = NewError(KindRuntime, ErrCodeAccountAlreadyInUse, "account already in use")

	// ErrInsufficientFunds is returned when a balance cannot cover a debit.
	ErrInsufficientFunds = NewError(KindRuntime, ErrCodeInsufficientFunds, "insufficient funds")

	// ErrOwnerMismatch is returned when an authority does not own a token account or mint.
	ErrOwnerMismatch = NewError(KindRuntime, ErrCodeOwnerMismatch, "owner does not match")

	// ErrMintMismatch is returned when token accounts belong to different mints.
	ErrMintMismatch = NewError(KindRuntime, ErrCodeMintMismatch, "account not associated with this mint")

	// ErrUninitializedAccount is returned when a token account or mint is not initialized.
	ErrUninitializedAccount = NewError(KindRuntime, ErrCodeUninitializedAccount, "account not initialized")
)

// Custom creates a custom error with the given message.
func Custom(message string) *ProgramError {
	return NewError(KindRuntime, ErrCodeCustom, message)
}

// InvalidData hides an arithmetic cause behind the generic caller-facing code.
func InvalidData(cause error) *ProgramError {
	return ErrInvalidData.Wrap(cause)
}

// KindOf returns the kind of the first ProgramError in err's chain.
func KindOf(err error) (Kind, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}

// IsSlippage reports whether err is a slippage bound violation.
func IsSlippage(err error) bool {
	return errors.Is(err, ErrSlippageExceeded)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
