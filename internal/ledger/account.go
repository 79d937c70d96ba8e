package ledger

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
)

// Signer is a capability that can authorise an action inside a transaction.
// Ordinary accounts authorise by having signed the instruction; program-derived
// identities authorise by proving their seeds.
type Signer interface {
	// Key returns the address being authorised.
	Key() solana.PublicKey

	// Authorize fails unless the capability is valid inside tx.
	Authorize(tx *Tx) error
}

// AccountInfo is an instruction account bound to a transaction.
type AccountInfo struct {
	Pubkey     solana.PublicKey
	IsSigner   bool
	IsWritable bool

	tx *Tx
}

var _ Signer = (*AccountInfo)(nil)

// Key implements Signer.
func (a *AccountInfo) Key() solana.PublicKey {
	return a.Pubkey
}

// Authorize implements Signer.
func (a *AccountInfo) Authorize(*Tx) error {
	if !a.IsSigner {
		return errors.ErrMissingRequiredSignature.Withf("%s did not sign", a.Pubkey)
	}
	return nil
}

// Exists reports whether the account holds lamports or data.
func (a *AccountInfo) Exists() bool {
	acct, ok := a.tx.account(a.Pubkey)
	return ok && (acct.Lamports > 0 || len(acct.Data) > 0)
}

// Owner returns the owning program; absent accounts are system-owned.
func (a *AccountInfo) Owner() solana.PublicKey {
	if acct, ok := a.tx.account(a.Pubkey); ok {
		return acct.Owner
	}
	return solana.SystemProgramID
}

// Lamports returns the account balance in lamports.
func (a *AccountInfo) Lamports() uint64 {
	if acct, ok := a.tx.account(a.Pubkey); ok {
		return acct.Lamports
	}
	return 0
}

// Executable reports whether the account is a program.
func (a *AccountInfo) Executable() bool {
	if acct, ok := a.tx.account(a.Pubkey); ok {
		return acct.Executable
	}
	return false
}

// Data returns a copy of the account data.
func (a *AccountInfo) Data() []byte {
	if acct, ok := a.tx.account(a.Pubkey); ok {
		return append([]byte(nil), acct.Data...)
	}
	return nil
}

// SetData replaces the account data. Only the owning program may write, and
// only through a writable meta; the length is fixed at creation.
func (a *AccountInfo) SetData(data []byte) error {
	if !a.IsWritable {
		return errors.ErrAccountNotWritable.Withf("%s is not writable", a.Pubkey)
	}
	if owner := a.Owner(); !owner.Equals(a.tx.Program()) {
		return errors.ErrInvalidAccountOwner.Withf("%s is owned by %s, not %s", a.Pubkey, owner, a.tx.Program())
	}
	acct := a.tx.mutable(a.Pubkey)
	if len(data) != len(acct.Data) {
		return errors.ErrInvalidAccountData.Withf("%s data is %d bytes, got %d", a.Pubkey, len(acct.Data), len(data))
	}
	copy(acct.Data, data)
	return nil
}
