// Package view provides strict fixed-offset codecs for the token ledger's account layouts.
//
// Mints and token accounts are decoded field by field with explicit little-endian
// widths and exact-length validation. Nothing is reinterpreted through pointer casts.
package view

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidBuffer      = errors.New("invalid buffer size")
	ErrInvalidAccountData = errors.New("invalid account data")
)

// Layout sizes.
const (
	MintLen         = 82
	TokenAccountLen = 165
)

// Fixed offsets read directly by the pool processors.
const (
	MintSupplyOffset      = 36
	MintDecimalsOffset    = 44
	MintInitializedOffset = 45

	TokenAccountMintOffset   = 0
	TokenAccountOwnerOffset  = 32
	TokenAccountAmountOffset = 64
	TokenAccountStateOffset  = 108
)

// AccountState is the lifecycle state of a token account.
type AccountState uint8

const (
	AccountStateUninitialized AccountState = iota
	AccountStateInitialized
	AccountStateFrozen
)

// String returns the string representation of the AccountState.
func (s AccountState) String() string {
	switch s {
	case AccountStateUninitialized:
		return "uninitialized"
	case AccountStateInitialized:
		return "initialized"
	case AccountStateFrozen:
		return "frozen"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Mint is the decoded form of an 82-byte mint account.
type Mint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        uint8
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

// TokenAccount is the decoded form of a 165-byte token account.
type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           AccountState
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

// IsInitialized reports whether the account has been initialized.
func (a *TokenAccount) IsInitialized() bool {
	return a.State != AccountStateUninitialized
}

// DecodeMint decodes an exact-length mint buffer.
func DecodeMint(data []byte) (*Mint, error) {
	if len(data) != MintLen {
		return nil, fmt.Errorf("%w: mint is %d bytes, want %d", ErrInvalidBuffer, len(data), MintLen)
	}
	dec := bin.NewBorshDecoder(data)

	var (
		m   Mint
		err error
	)
	if m.MintAuthority, err = readOptionKey(dec); err != nil {
		return nil, err
	}
	if m.Supply, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if m.Decimals, err = dec.ReadUint8(); err != nil {
		return nil, err
	}
	if m.IsInitialized, err = readBool(dec); err != nil {
		return nil, err
	}
	if m.FreezeAuthority, err = readOptionKey(dec); err != nil {
		return nil, err
	}
	return &m, nil
}

// Encode returns the 82-byte layout of m.
func (m *Mint) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := writeOptionKey(enc, m.MintAuthority); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(m.Supply, bin.LE); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(m.Decimals); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(m.IsInitialized); err != nil {
		return nil, err
	}
	if err := writeOptionKey(enc, m.FreezeAuthority); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTokenAccount decodes an exact-length token account buffer.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountLen {
		return nil, fmt.Errorf("%w: token account is %d bytes, want %d", ErrInvalidBuffer, len(data), TokenAccountLen)
	}
	dec := bin.NewBorshDecoder(data)

	var (
		a   TokenAccount
		err error
	)
	if a.Mint, err = readKey(dec); err != nil {
		return nil, err
	}
	if a.Owner, err = readKey(dec); err != nil {
		return nil, err
	}
	if a.Amount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if a.Delegate, err = readOptionKey(dec); err != nil {
		return nil, err
	}
	state, err := dec.ReadUint8()
	if err != nil {
		return nil, err
	}
	if state > uint8(AccountStateFrozen) {
		return nil, fmt.Errorf("%w: account state %d", ErrInvalidAccountData, state)
	}
	a.State = AccountState(state)
	if a.IsNative, err = readOptionU64(dec); err != nil {
		return nil, err
	}
	if a.DelegatedAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, err
	}
	if a.CloseAuthority, err = readOptionKey(dec); err != nil {
		return nil, err
	}
	return &a, nil
}

// Encode returns the 165-byte layout of a.
func (a *TokenAccount) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(a.Mint[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteBytes(a.Owner[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a.Amount, bin.LE); err != nil {
		return nil, err
	}
	if err := writeOptionKey(enc, a.Delegate); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(uint8(a.State)); err != nil {
		return nil, err
	}
	if err := writeOptionU64(enc, a.IsNative); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(a.DelegatedAmount, bin.LE); err != nil {
		return nil, err
	}
	if err := writeOptionKey(enc, a.CloseAuthority); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TokenAccountAmount reads the balance of a token account at its fixed offset.
func TokenAccountAmount(data []byte) (uint64, error) {
	if len(data) != TokenAccountLen {
		return 0, ErrInvalidBuffer
	}
	return bin.LE.Uint64(data[TokenAccountAmountOffset:]), nil
}

// TokenAccountMint reads the mint of a token account at its fixed offset.
func TokenAccountMint(data []byte) (solana.PublicKey, error) {
	if len(data) != TokenAccountLen {
		return solana.PublicKey{}, ErrInvalidBuffer
	}
	return solana.PublicKeyFromBytes(data[TokenAccountMintOffset : TokenAccountMintOffset+32]), nil
}

// TokenAccountOwner reads the owner of a token account at its fixed offset.
func TokenAccountOwner(data []byte) (solana.PublicKey, error) {
	if len(data) != TokenAccountLen {
		return solana.PublicKey{}, ErrInvalidBuffer
	}
	return solana.PublicKeyFromBytes(data[TokenAccountOwnerOffset : TokenAccountOwnerOffset+32]), nil
}

// MintSupply reads the supply of a mint at its fixed offset.
func MintSupply(data []byte) (uint64, error) {
	if len(data) != MintLen {
		return 0, ErrInvalidBuffer
	}
	return bin.LE.Uint64(data[MintSupplyOffset:]), nil
}

// MintDecimals reads the decimals of a mint at its fixed offset.
func MintDecimals(data []byte) (uint8, error) {
	if len(data) != MintLen {
		return 0, ErrInvalidBuffer
	}
	return data[MintDecimalsOffset], nil
}

func readKey(dec *bin.Decoder) (solana.PublicKey, error) {
	b, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func readBool(dec *bin.Decoder) (bool, error) {
	b, err := dec.ReadUint8()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: bool byte %d", ErrInvalidAccountData, b)
	}
}

// COption fields use a four-byte tag followed by a fixed-width body that is
// present even when the tag is zero.
func readOptionTag(dec *bin.Decoder) (bool, error) {
	tag, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return false, err
	}
	switch tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: option tag %d", ErrInvalidAccountData, tag)
	}
}

func readOptionKey(dec *bin.Decoder) (*solana.PublicKey, error) {
	some, err := readOptionTag(dec)
	if err != nil {
		return nil, err
	}
	key, err := readKey(dec)
	if err != nil {
		return nil, err
	}
	if !some {
		return nil, nil
	}
	return &key, nil
}

func readOptionU64(dec *bin.Decoder) (*uint64, error) {
	some, err := readOptionTag(dec)
	if err != nil {
		return nil, err
	}
	v, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return nil, err
	}
	if !some {
		return nil, nil
	}
	return &v, nil
}

func writeOptionKey(enc *bin.Encoder, key *solana.PublicKey) error {
	var body solana.PublicKey
	tag := uint32(0)
	if key != nil {
		tag, body = 1, *key
	}
	if err := enc.WriteUint32(tag, bin.LE); err != nil {
		return err
	}
	return enc.WriteBytes(body[:], false)
}

func writeOptionU64(enc *bin.Encoder, v *uint64) error {
	var body uint64
	tag := uint32(0)
	if v != nil {
		tag, body = 1, *v
	}
	if err := enc.WriteUint32(tag, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint64(body, bin.LE)
}
