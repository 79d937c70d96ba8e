// Package types provides the base ledger types shared by the pool engine, the host
// ledger and the client-side instruction builders. It wraps solana-go types so that
// addresses and metas stay wire-compatible with the Solana account model.
package types

import (
	"github.com/gagliardetto/solana-go"
)

// Pubkey is a ledger address (32 bytes).
type Pubkey = solana.PublicKey

// Account is the state stored at one address. Only the owner may change Data
// or debit Lamports.
type Account struct {
	Lamports   uint64 `json:"lamports"`
	Data       []byte `json:"data"`
	Owner      Pubkey `json:"owner"`
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rent_epoch"`
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// AccountMeta is one entry of an instruction's account list with the
// privileges the caller grants it.
type AccountMeta struct {
	Pubkey     Pubkey `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

// NewAccountMeta creates an AccountMeta.
func NewAccountMeta(pubkey Pubkey, writable, signer bool) AccountMeta {
	return AccountMeta{Pubkey: pubkey, IsSigner: signer, IsWritable: writable}
}

// Instruction is a single program call: the target program, its account list
// in the order the program expects, and the tagged payload.
type Instruction struct {
	ProgramID Pubkey        `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// LamportsPerSOL is the number of lamports per SOL.
const LamportsPerSOL uint64 = 1_000_000_000

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) float64 {
	return float64(lamports) / float64(LamportsPerSOL)
}
