package errors

import "fmt"

// Builtin program error codes occupy the upper 32 bits; custom codes the lower.
const (
	wireInvalidArgument           uint64 = 2 << 32
	wireInvalidInstructionData    uint64 = 3 << 32
	wireInvalidAccountData        uint64 = 4 << 32
	wireInsufficientFunds         uint64 = 6 << 32
	wireIncorrectProgramID        uint64 = 7 << 32
	wireMissingRequiredSignature  uint64 = 8 << 32
	wireAccountAlreadyInitialized uint64 = 9 << 32
	wireUninitializedAccount      uint64 = 10 << 32
	wireNotEnoughAccountKeys      uint64 = 11 << 32
	wireInvalidSeeds              uint64 = 14 << 32
	wireIllegalOwner              uint64 = 18 << 32
)

var wireCodes = map[string]uint64{
	ErrCodeNotEnoughAccountKeys:      wireNotEnoughAccountKeys,
	ErrCodeMissingRequiredSignature:  wireMissingRequiredSignature,
	ErrCodeInvalidInstructionData:    wireInvalidInstructionData,
	ErrCodeInvalidAccountData:        wireInvalidAccountData,
	ErrCodeInvalidAccountOwner:       wireIllegalOwner,
	ErrCodeIncorrectProgramID:        wireIncorrectProgramID,
	ErrCodeInvalidSeeds:              wireInvalidSeeds,
	ErrCodeAccountAlreadyInitialized: wireAccountAlreadyInitialized,
	ErrCodeInvalidArgument:           wireInvalidArgument,
	ErrCodeExpired:                   wireInvalidArgument,
	ErrCodeInsufficientFunds:         wireInsufficientFunds,
	ErrCodeUninitializedAccount:      wireUninitializedAccount,
	ErrCodeAccountNotWritable:        wireInvalidArgument,
	ErrCodeAccountAlreadyInUse:       wireAccountAlreadyInitialized,
	ErrCodeOwnerMismatch:             wireIllegalOwner,
	ErrCodeMintMismatch:              wireInvalidAccountData,
}

var wireMessages = map[uint64]string{
	wireInvalidArgument:           "invalid program argument",
	wireInvalidInstructionData:    "invalid instruction data",
	wireInvalidAccountData:        "invalid account data for instruction",
	wireInsufficientFunds:         "insufficient funds for instruction",
	wireIncorrectProgramID:        "incorrect program id for instruction",
	wireMissingRequiredSignature:  "missing required signature for instruction",
	wireAccountAlreadyInitialized: "instruction requires an uninitialized account",
	wireUninitializedAccount:      "instruction requires an initialized account",
	wireNotEnoughAccountKeys:      "insufficient account keys for instruction",
	wireInvalidSeeds:              "provided seeds do not result in a valid address",
	wireIllegalOwner:              "provided owner is not allowed",
}

// Message renders err as the runtime reports a failed instruction: from the
// wire code alone, without the cause chain. Errors raised outside the program
// keep their own text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var pe *ProgramError
	if !As(err, &pe) {
		return err.Error()
	}
	code := pe.WireCode()
	if code < 1<<32 {
		return fmt.Sprintf("custom program error: %#x", code)
	}
	if msg, ok := wireMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("program error: %#x", code)
}
