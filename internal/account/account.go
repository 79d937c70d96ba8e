// Package account decodes raw ledger accounts into the typed records the pool
// program works with.
//
// Decoders are matched by owning program: pool config records belong to the
// pool program, mints and token accounts to the token program. A decoder that
// does not recognise an account returns nil, which lets several decoders be
// tried in turn through a CompositeAccountDecoder.
package account

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/types"
	"github.com/lugondev/go-cpamm/pkg/view"
)

// Kind names the record type held by a decoded account.
type Kind string

const (
	KindPool         Kind = "pool"
	KindMint         Kind = "mint"
	KindTokenAccount Kind = "token_account"
)

// DecodedAccount represents an account together with its decoded data.
//
// Type parameter T is the data type produced by the decoder.
type DecodedAccount[T any] struct {
	// Kind is the record type of Data.
	Kind Kind `json:"kind"`

	// Lamports is the number of lamports in the account.
	Lamports uint64 `json:"lamports"`

	// Data is the decoded data specific to the account.
	Data T `json:"data"`

	// Owner is the program owning the account.
	Owner types.Pubkey `json:"owner"`

	// Executable indicates whether the account is executable.
	Executable bool `json:"executable"`
}

// AccountDecoder decodes raw accounts into structured data.
type AccountDecoder[T any] interface {
	// DecodeAccount returns nil if the account cannot be decoded by this decoder.
	DecodeAccount(account *types.Account) *DecodedAccount[T]
}

// AccountDecoderFunc is a function type that implements AccountDecoder.
type AccountDecoderFunc[T any] func(account *types.Account) *DecodedAccount[T]

// DecodeAccount implements AccountDecoder interface.
func (f AccountDecoderFunc[T]) DecodeAccount(account *types.Account) *DecodedAccount[T] {
	return f(account)
}

// ProgramAccountDecoder decodes accounts owned by one program.
type ProgramAccountDecoder[T any] struct {
	// ProgramID is the expected owner of accounts this decoder handles.
	ProgramID types.Pubkey

	// Kind is reported on every decoded account.
	Kind Kind

	// DecodeFunc decodes the account data.
	DecodeFunc func(data []byte) (T, error)
}

// NewProgramAccountDecoder creates a new ProgramAccountDecoder.
func NewProgramAccountDecoder[T any](
	programID types.Pubkey,
	kind Kind,
	decodeFunc func(data []byte) (T, error),
) *ProgramAccountDecoder[T] {
	return &ProgramAccountDecoder[T]{
		ProgramID:  programID,
		Kind:       kind,
		DecodeFunc: decodeFunc,
	}
}

// DecodeAccount implements AccountDecoder interface.
func (d *ProgramAccountDecoder[T]) DecodeAccount(account *types.Account) *DecodedAccount[T] {
	if account == nil || !account.Owner.Equals(d.ProgramID) {
		return nil
	}

	data, err := d.DecodeFunc(account.Data)
	if err != nil {
		return nil
	}

	return &DecodedAccount[T]{
		Kind:       d.Kind,
		Lamports:   account.Lamports,
		Data:       data,
		Owner:      account.Owner,
		Executable: account.Executable,
	}
}

// CompositeAccountDecoder tries multiple decoders in sequence and returns the
// result of the first one that succeeds.
type CompositeAccountDecoder[T any] struct {
	decoders []AccountDecoder[T]
}

// NewCompositeAccountDecoder creates a new CompositeAccountDecoder.
func NewCompositeAccountDecoder[T any](decoders ...AccountDecoder[T]) *CompositeAccountDecoder[T] {
	return &CompositeAccountDecoder[T]{
		decoders: decoders,
	}
}

// AddDecoder adds a decoder to the composite.
func (c *CompositeAccountDecoder[T]) AddDecoder(decoder AccountDecoder[T]) {
	c.decoders = append(c.decoders, decoder)
}

// DecodeAccount implements AccountDecoder interface.
func (c *CompositeAccountDecoder[T]) DecodeAccount(account *types.Account) *DecodedAccount[T] {
	for _, decoder := range c.decoders {
		if result := decoder.DecodeAccount(account); result != nil {
			return result
		}
	}
	return nil
}

// NewPoolDecoder decodes pool config records owned by programID.
func NewPoolDecoder(programID solana.PublicKey) *ProgramAccountDecoder[*pool.Record] {
	return NewProgramAccountDecoder(programID, KindPool, pool.UnmarshalRecord)
}

// NewMintDecoder decodes token mints.
func NewMintDecoder() *ProgramAccountDecoder[*view.Mint] {
	return NewProgramAccountDecoder(token.ProgramID, KindMint, view.DecodeMint)
}

// NewTokenAccountDecoder decodes token accounts.
func NewTokenAccountDecoder() *ProgramAccountDecoder[*view.TokenAccount] {
	return NewProgramAccountDecoder(token.ProgramID, KindTokenAccount, view.DecodeTokenAccount)
}

// erase adapts a typed decoder to one producing untyped data.
func erase[T any](d AccountDecoder[T]) AccountDecoder[any] {
	return AccountDecoderFunc[any](func(account *types.Account) *DecodedAccount[any] {
		decoded := d.DecodeAccount(account)
		if decoded == nil {
			return nil
		}
		return &DecodedAccount[any]{
			Kind:       decoded.Kind,
			Lamports:   decoded.Lamports,
			Data:       decoded.Data,
			Owner:      decoded.Owner,
			Executable: decoded.Executable,
		}
	})
}

// NewDecoder returns a decoder recognising every record type of the pool
// program at programID.
func NewDecoder(programID solana.PublicKey) *CompositeAccountDecoder[any] {
	return NewCompositeAccountDecoder(
		erase[*pool.Record](NewPoolDecoder(programID)),
		erase[*view.Mint](NewMintDecoder()),
		erase[*view.TokenAccount](NewTokenAccountDecoder()),
	)
}
