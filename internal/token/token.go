// Package token implements the asset-custody service: an SPL-token compatible
// state machine for mints and token accounts living on the host ledger.
//
// Every operation runs as an invocation of solana.TokenProgramID, so accounts it
// writes must be owned by the token program. Authorities are checked through
// ledger.Signer, which lets the pool program sign with its custody identity.
package token

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/pkg/view"
)

// ProgramID is the address of the token program.
var ProgramID = solana.TokenProgramID

// CreateMint allocates a mint account and initializes it.
func CreateMint(tx *ledger.Tx, payer, mint *ledger.AccountInfo, signer ledger.Signer, decimals uint8, authority solana.PublicKey) error {
	if err := tx.CreateAccount(payer, mint, signer, view.MintLen, ProgramID); err != nil {
		return err
	}
	return InitializeMint(tx, mint, decimals, authority)
}

// CreateAccount allocates a token account for mint owned by owner and initializes it.
func CreateAccount(tx *ledger.Tx, payer, account *ledger.AccountInfo, mint *ledger.AccountInfo, owner solana.PublicKey) error {
	if err := tx.CreateAccount(payer, account, account, view.TokenAccountLen, ProgramID); err != nil {
		return err
	}
	return InitializeAccount(tx, account, mint, owner)
}

// InitializeMint sets up a freshly allocated mint.
func InitializeMint(tx *ledger.Tx, mint *ledger.AccountInfo, decimals uint8, authority solana.PublicKey) error {
	return tx.Invoke(ProgramID, func() error {
		tx.Log("Instruction: InitializeMint")
		if err := requireOwned(mint); err != nil {
			return err
		}
		current, err := loadMint(mint, false)
		if err != nil {
			return err
		}
		if current.IsInitialized {
			return errors.ErrAccountAlreadyInitialized.Withf("mint %s already initialized", mint.Pubkey)
		}
		m := &view.Mint{
			MintAuthority: &authority,
			Decimals:      decimals,
			IsInitialized: true,
		}
		return storeMint(mint, m)
	})
}

// InitializeAccount sets up a freshly allocated token account for mint.
func InitializeAccount(tx *ledger.Tx, account, mint *ledger.AccountInfo, owner solana.PublicKey) error {
	return tx.Invoke(ProgramID, func() error {
		tx.Log("Instruction: InitializeAccount")
		if err := requireOwned(account); err != nil {
			return err
		}
		if _, err := loadMint(mint, true); err != nil {
			return err
		}
		current, err := loadAccount(account, false)
		if err != nil {
			return err
		}
		if current.IsInitialized() {
			return errors.ErrAccountAlreadyInitialized.Withf("token account %s already initialized", account.Pubkey)
		}
		a := &view.TokenAccount{
			Mint:  mint.Pubkey,
			Owner: owner,
			State: view.AccountStateInitialized,
		}
		return storeAccount(account, a)
	})
}

// Transfer moves amount from source to destination. authority must own source.
func Transfer(tx *ledger.Tx, source, destination *ledger.AccountInfo, authority ledger.Signer, amount uint64) error {
	return tx.Invoke(ProgramID, func() error {
		tx.Log("Instruction: Transfer")
		src, err := loadAccount(source, true)
		if err != nil {
			return err
		}
		dst, err := loadAccount(destination, true)
		if err != nil {
			return err
		}
		if !src.Mint.Equals(dst.Mint) {
			return errors.ErrMintMismatch.Withf("%s holds %s, %s holds %s", source.Pubkey, src.Mint, destination.Pubkey, dst.Mint)
		}
		if err := checkOwner(tx, src.Owner, authority); err != nil {
			return err
		}
		if src.Amount < amount {
			return errors.ErrInsufficientFunds.Withf("%s holds %d, needs %d", source.Pubkey, src.Amount, amount)
		}
		if source.Pubkey.Equals(destination.Pubkey) {
			return nil
		}
		if dst.Amount > ^uint64(0)-amount {
			return errors.ErrOverflow
		}
		src.Amount -= amount
		dst.Amount += amount
		if err := storeAccount(source, src); err != nil {
			return err
		}
		return storeAccount(destination, dst)
	})
}

// MintTo issues amount new units of mint into destination.
func MintTo(tx *ledger.Tx, mint, destination *ledger.AccountInfo, authority ledger.Signer, amount uint64) error {
	return tx.Invoke(ProgramID, func() error {
		tx.Log("Instruction: MintTo")
		m, err := loadMint(mint, true)
		if err != nil {
			return err
		}
		dst, err := loadAccount(destination, true)
		if err != nil {
			return err
		}
		if !dst.Mint.Equals(mint.Pubkey) {
			return errors.ErrMintMismatch.Withf("%s is not an account of %s", destination.Pubkey, mint.Pubkey)
		}
		if m.MintAuthority == nil {
			return errors.ErrOwnerMismatch.Withf("mint %s has a fixed supply", mint.Pubkey)
		}
		if err := checkOwner(tx, *m.MintAuthority, authority); err != nil {
			return err
		}
		if m.Supply > ^uint64(0)-amount || dst.Amount > ^uint64(0)-amount {
			return errors.ErrOverflow
		}
		m.Supply += amount
		dst.Amount += amount
		if err := storeMint(mint, m); err != nil {
			return err
		}
		return storeAccount(destination, dst)
	})
}

// Burn destroys amount units held by source. authority must own source.
func Burn(tx *ledger.Tx, source, mint *ledger.AccountInfo, authority ledger.Signer, amount uint64) error {
	return tx.Invoke(ProgramID, func() error {
		tx.Log("Instruction: Burn")
		src, err := loadAccount(source, true)
		if err != nil {
			return err
		}
		m, err := loadMint(mint, true)
		if err != nil {
			return err
		}
		if !src.Mint.Equals(mint.Pubkey) {
			return errors.ErrMintMismatch.Withf("%s is not an account of %s", source.Pubkey, mint.Pubkey)
		}
		if err := checkOwner(tx, src.Owner, authority); err != nil {
			return err
		}
		if src.Amount < amount {
			return errors.ErrInsufficientFunds.Withf("%s holds %d, needs %d", source.Pubkey, src.Amount, amount)
		}
		if m.Supply < amount {
			return errors.ErrUnderflow
		}
		src.Amount -= amount
		m.Supply -= amount
		if err := storeAccount(source, src); err != nil {
			return err
		}
		return storeMint(mint, m)
	})
}

func requireOwned(info *ledger.AccountInfo) error {
	if !info.Owner().Equals(ProgramID) {
		return errors.ErrInvalidAccountOwner.Withf("%s is not owned by the token program", info.Pubkey)
	}
	return nil
}

func checkOwner(tx *ledger.Tx, expected solana.PublicKey, authority ledger.Signer) error {
	if !authority.Key().Equals(expected) {
		return errors.ErrOwnerMismatch.Withf("%s is not the authority %s", authority.Key(), expected)
	}
	return authority.Authorize(tx)
}

func loadMint(info *ledger.AccountInfo, initialized bool) (*view.Mint, error) {
	if err := requireOwned(info); err != nil {
		return nil, err
	}
	m, err := view.DecodeMint(info.Data())
	if err != nil {
		return nil, errors.ErrInvalidAccountData.Wrap(err)
	}
	if initialized && !m.IsInitialized {
		return nil, errors.ErrUninitializedAccount.Withf("mint %s is not initialized", info.Pubkey)
	}
	return m, nil
}

func loadAccount(info *ledger.AccountInfo, initialized bool) (*view.TokenAccount, error) {
	if err := requireOwned(info); err != nil {
		return nil, err
	}
	a, err := view.DecodeTokenAccount(info.Data())
	if err != nil {
		return nil, errors.ErrInvalidAccountData.Wrap(err)
	}
	if initialized {
		if !a.IsInitialized() {
			return nil, errors.ErrUninitializedAccount.Withf("token account %s is not initialized", info.Pubkey)
		}
		if a.State == view.AccountStateFrozen {
			return nil, errors.Custom("account is frozen").Withf("token account %s is frozen", info.Pubkey)
		}
	}
	return a, nil
}

func storeMint(info *ledger.AccountInfo, m *view.Mint) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	return info.SetData(data)
}

func storeAccount(info *ledger.AccountInfo, a *view.TokenAccount) error {
	data, err := a.Encode()
	if err != nil {
		return err
	}
	return info.SetData(data)
}
