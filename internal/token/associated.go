package token

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/pkg/view"
)

// AssociatedProgramID is the address of the associated token account program.
var AssociatedProgramID = solana.SPLAssociatedTokenAccountProgramID

// AssociatedAddress returns the canonical token account of wallet for mint.
func AssociatedAddress(wallet, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		return solana.PublicKey{}, errors.ErrInvalidSeeds.Wrap(err)
	}
	return addr, nil
}

// CreateAssociatedAccount creates and initializes the associated token account of
// wallet for mint. The wallet does not need to sign, so it may be a program-derived
// identity such as a pool's custody address.
func CreateAssociatedAccount(tx *ledger.Tx, payer, account *ledger.AccountInfo, wallet solana.PublicKey, mint *ledger.AccountInfo) error {
	return tx.Invoke(AssociatedProgramID, func() error {
		tx.Log("Create")
		addr, bump, err := solana.FindAssociatedTokenAddress(wallet, mint.Pubkey)
		if err != nil {
			return errors.ErrInvalidSeeds.Wrap(err)
		}
		if !addr.Equals(account.Pubkey) {
			return errors.ErrInvalidSeeds.Withf("%s is not the associated account of %s for %s", account.Pubkey, wallet, mint.Pubkey)
		}
		seeds := [][]byte{wallet[:], ProgramID[:], mint.Pubkey[:]}
		signer, err := ledger.NewDerivedSigner(AssociatedProgramID, seeds, bump)
		if err != nil {
			return err
		}
		if err := tx.CreateAccount(payer, account, signer, view.TokenAccountLen, ProgramID); err != nil {
			return err
		}
		return InitializeAccount(tx, account, mint, wallet)
	})
}
