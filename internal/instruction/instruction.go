// Package instruction decodes and builds pool program instructions.
//
// The package includes the following main components:
//   - Tag and the per-operation argument types with their little-endian wire codecs.
//   - Decoder: validates an account list and payload against the ledger and the
//     pool record, producing typed, checked requests for the processors.
//   - Builders: client-side constructors producing ready-to-execute instructions.
//
// Every payload starts with a one-byte tag. Payloads shorter than their layout are
// rejected; amount-like fields must be non-zero.
package instruction

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// Tag identifies a pool operation.
type Tag uint8

const (
	TagInitialize Tag = iota
	TagDeposit
	TagWithdraw
	TagSwap
)

// String returns the string representation of the Tag.
func (t Tag) String() string {
	switch t {
	case TagInitialize:
		return "initialize"
	case TagDeposit:
		return "deposit"
	case TagWithdraw:
		return "withdraw"
	case TagSwap:
		return "swap"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// MarshalText encodes the tag by name.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseTag maps a tag name back to its Tag.
func ParseTag(name string) (Tag, error) {
	for _, t := range []Tag{TagInitialize, TagDeposit, TagWithdraw, TagSwap} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown instruction %q", name)
}

// Payload sizes, excluding the tag byte.
const (
	InitializeArgsLen              = 76
	InitializeArgsWithAuthorityLen = InitializeArgsLen + solana.PublicKeyLength
	LiquidityArgsLen               = 32
	SwapArgsLen                    = 25
)

// InitializeArgs is the payload of an Initialize instruction.
type InitializeArgs struct {
	Seed        uint64           `json:"seed"`
	FeeBps      uint16           `json:"fee_bps"`
	MintX       solana.PublicKey `json:"mint_x"`
	MintY       solana.PublicKey `json:"mint_y"`
	CustodyBump uint8            `json:"custody_bump"`
	ShareBump   uint8            `json:"share_bump"`
	Authority   solana.PublicKey `json:"authority"`
}

// LiquidityArgs is the payload of a Deposit or Withdraw instruction. For a deposit
// the bounds are maxima, for a withdrawal minima.
type LiquidityArgs struct {
	Amount     uint64 `json:"amount"`
	BoundX     uint64 `json:"bound_x"`
	BoundY     uint64 `json:"bound_y"`
	Expiration int64  `json:"expiration"`
}

// SwapArgs is the payload of a Swap instruction. IsX selects x as the input asset.
type SwapArgs struct {
	IsX        bool   `json:"is_x"`
	Amount     uint64 `json:"amount"`
	MinOut     uint64 `json:"min_out"`
	Expiration int64  `json:"expiration"`
}

// DecodedInstruction is a payload decoded without touching the ledger.
type DecodedInstruction struct {
	Tag  Tag `json:"tag"`
	Args any `json:"args"`
}

// Decode splits data into its tag and typed arguments.
func Decode(data []byte) (*DecodedInstruction, error) {
	if len(data) == 0 {
		return nil, errors.ErrInvalidInstructionData.Withf("empty instruction data")
	}
	tag, payload := Tag(data[0]), data[1:]

	var (
		args any
		err  error
	)
	switch tag {
	case TagInitialize:
		args, err = DecodeInitializeArgs(payload)
	case TagDeposit, TagWithdraw:
		args, err = DecodeLiquidityArgs(payload)
	case TagSwap:
		args, err = DecodeSwapArgs(payload)
	default:
		return nil, errors.ErrInvalidInstructionData.Withf("unknown instruction tag %d", data[0])
	}
	if err != nil {
		return nil, err
	}
	return &DecodedInstruction{Tag: tag, Args: args}, nil
}

// DecodeInitializeArgs decodes an Initialize payload. The authority is optional.
func DecodeInitializeArgs(payload []byte) (*InitializeArgs, error) {
	if len(payload) < InitializeArgsLen {
		return nil, shortPayload(TagInitialize, len(payload), InitializeArgsLen)
	}
	dec := bin.NewBorshDecoder(payload)

	var (
		a   InitializeArgs
		err error
	)
	if a.Seed, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.FeeBps, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.MintX, err = readKey(dec); err != nil {
		return nil, malformed(err)
	}
	if a.MintY, err = readKey(dec); err != nil {
		return nil, malformed(err)
	}
	if a.CustodyBump, err = dec.ReadUint8(); err != nil {
		return nil, malformed(err)
	}
	if a.ShareBump, err = dec.ReadUint8(); err != nil {
		return nil, malformed(err)
	}
	if len(payload) >= InitializeArgsWithAuthorityLen {
		if a.Authority, err = readKey(dec); err != nil {
			return nil, malformed(err)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the Initialize arguments.
func (a *InitializeArgs) Validate() error {
	if a.FeeBps >= pool.MaxFeeBps {
		return errors.ErrInvalidInstructionData.Withf("fee %d bps must be below %d", a.FeeBps, pool.MaxFeeBps)
	}
	if a.MintX.Equals(a.MintY) {
		return errors.ErrInvalidInstructionData.Withf("pool assets must differ")
	}
	return nil
}

// MarshalBinary encodes the payload, tag included.
func (a *InitializeArgs) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(uint8(TagInitialize)); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a.Seed, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint16(a.FeeBps, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(a.MintX[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(a.MintY[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(a.CustodyBump); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(a.ShareBump); err != nil {
		return nil, err
	}
	if !a.Authority.IsZero() {
		if err := enc.WriteBytes(a.Authority[:], false); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeLiquidityArgs decodes a Deposit or Withdraw payload.
func DecodeLiquidityArgs(payload []byte) (*LiquidityArgs, error) {
	if len(payload) < LiquidityArgsLen {
		return nil, shortPayload(TagDeposit, len(payload), LiquidityArgsLen)
	}
	dec := bin.NewBorshDecoder(payload)

	var (
		a   LiquidityArgs
		err error
	)
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.BoundX, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.BoundY, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.Expiration, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, malformed(err)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the liquidity arguments.
func (a *LiquidityArgs) Validate() error {
	if a.Amount == 0 || a.BoundX == 0 || a.BoundY == 0 {
		return errors.ErrInvalidInstructionData.Withf("amount and bounds must be non-zero")
	}
	return nil
}

// MarshalBinary encodes the payload behind tag, which must be TagDeposit or TagWithdraw.
func (a *LiquidityArgs) MarshalBinary(tag Tag) ([]byte, error) {
	if tag != TagDeposit && tag != TagWithdraw {
		return nil, fmt.Errorf("liquidity payload cannot carry tag %s", tag)
	}
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(uint8(tag)); err != nil {
		return nil, err
	}
	for _, v := range []uint64{a.Amount, a.BoundX, a.BoundY} {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteInt64(a.Expiration, bin.LE); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSwapArgs decodes a Swap payload.
func DecodeSwapArgs(payload []byte) (*SwapArgs, error) {
	if len(payload) < SwapArgsLen {
		return nil, shortPayload(TagSwap, len(payload), SwapArgsLen)
	}
	dec := bin.NewBorshDecoder(payload)

	var a SwapArgs
	direction, err := dec.ReadUint8()
	if err != nil {
		return nil, malformed(err)
	}
	switch direction {
	case 0:
		a.IsX = false
	case 1:
		a.IsX = true
	default:
		return nil, errors.ErrInvalidInstructionData.Withf("swap direction byte %d", direction)
	}
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.MinOut, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, malformed(err)
	}
	if a.Expiration, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, malformed(err)
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Validate checks the swap arguments.
func (a *SwapArgs) Validate() error {
	if a.Amount == 0 || a.MinOut == 0 {
		return errors.ErrInvalidInstructionData.Withf("swap amount and minimum output must be non-zero")
	}
	return nil
}

// MarshalBinary encodes the payload, tag included.
func (a *SwapArgs) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(uint8(TagSwap)); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(a.IsX); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a.Amount, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a.MinOut, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteInt64(a.Expiration, bin.LE); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Instruction wraps encoded data and metas into an instruction for programID.
func Instruction(programID solana.PublicKey, data []byte, metas ...types.AccountMeta) types.Instruction {
	return types.Instruction{ProgramID: programID, Accounts: metas, Data: data}
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func shortPayload(tag Tag, got, want int) error {
	return errors.ErrInvalidInstructionData.Withf("%s payload is %d bytes, want at least %d", tag, got, want)
}

func malformed(err error) error {
	return errors.ErrInvalidInstructionData.Wrap(err)
}
