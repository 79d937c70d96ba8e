// Package pool defines the persistent pool configuration record and the
// program-derived custody identity that controls a pool's accounts.
//
// A Record holds configuration only. Reserve balances and share supply are always
// read live from the vault and share mint accounts.
package pool

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
)

// RecordLen is the encoded size of a Record.
const RecordLen = 108

// ShareDecimals is the decimal precision of every pool share mint.
const ShareDecimals uint8 = 6

// MaxFeeBps is the exclusive upper bound of a pool fee.
const MaxFeeBps uint16 = 10_000

// State is the lifecycle state of a pool.
type State uint8

const (
	StateUninitialized State = iota
	StateInitialized
	StateDisabled
	StateWithdrawOnly
)

// Valid reports whether s is a defined state.
func (s State) Valid() bool {
	return s <= StateWithdrawOnly
}

// String returns the string representation of the State.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateDisabled:
		return "disabled"
	case StateWithdrawOnly:
		return "withdraw_only"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// ParseState returns the State named name.
func ParseState(name string) (State, error) {
	for s := StateUninitialized; s.Valid(); s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown pool state %q", name)
}

// AllowsDeposit reports whether deposits are accepted in s.
func (s State) AllowsDeposit() bool { return s == StateInitialized }

// AllowsSwap reports whether swaps are accepted in s.
func (s State) AllowsSwap() bool { return s == StateInitialized }

// AllowsWithdraw reports whether withdrawals are accepted in s.
func (s State) AllowsWithdraw() bool { return s != StateDisabled }

// Record is the on-ledger configuration of one pool.
type Record struct {
	State       State            `json:"state"`
	Seed        uint64           `json:"seed"`
	Authority   solana.PublicKey `json:"authority"`
	MintX       solana.PublicKey `json:"mint_x"`
	MintY       solana.PublicKey `json:"mint_y"`
	FeeBps      uint16           `json:"fee_bps"`
	CustodyBump uint8            `json:"custody_bump"`
}

// HasAuthority reports whether an administrative authority is set.
func (r *Record) HasAuthority() bool {
	return !r.Authority.IsZero()
}

// SetState updates the lifecycle state.
func (r *Record) SetState(s State) error {
	if !s.Valid() {
		return errors.ErrInvalidAccountData.Withf("invalid pool state %d", uint8(s))
	}
	r.State = s
	return nil
}

// SetFee updates the trading fee.
func (r *Record) SetFee(feeBps uint16) error {
	if feeBps >= MaxFeeBps {
		return errors.ErrInvalidInstructionData.Withf("fee %d bps must be below %d", feeBps, MaxFeeBps)
	}
	r.FeeBps = feeBps
	return nil
}

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if !r.State.Valid() {
		return errors.ErrInvalidAccountData.Withf("invalid pool state %d", uint8(r.State))
	}
	if r.FeeBps >= MaxFeeBps {
		return errors.ErrInvalidAccountData.Withf("invalid pool fee %d", r.FeeBps)
	}
	return nil
}

// MarshalBinary encodes the record into its fixed 108-byte layout.
func (r *Record) MarshalBinary() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	buf := bytes.NewBuffer(make([]byte, 0, RecordLen))
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteUint8(uint8(r.State)); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(r.Seed, bin.LE); err != nil {
		return nil, err
	}
	for _, key := range []solana.PublicKey{r.Authority, r.MintX, r.MintY} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteUint16(r.FeeBps, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(r.CustodyBump); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalRecord decodes a record from exactly RecordLen bytes.
func UnmarshalRecord(data []byte) (*Record, error) {
	if len(data) != RecordLen {
		return nil, errors.ErrInvalidAccountData.Withf("pool record is %d bytes, want %d", len(data), RecordLen)
	}
	dec := bin.NewBorshDecoder(data)

	var r Record
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, errors.ErrInvalidAccountData.Wrap(err)
	}
	r.State = State(state)
	if r.Seed, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, errors.ErrInvalidAccountData.Wrap(err)
	}
	for _, dst := range []*solana.PublicKey{&r.Authority, &r.MintX, &r.MintY} {
		b, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, errors.ErrInvalidAccountData.Wrap(err)
		}
		*dst = solana.PublicKeyFromBytes(b)
	}
	if r.FeeBps, err = dec.ReadUint16(bin.LE); err != nil {
		return nil, errors.ErrInvalidAccountData.Wrap(err)
	}
	if r.CustodyBump, err = dec.ReadUint8(); err != nil {
		return nil, errors.ErrInvalidAccountData.Wrap(err)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}
