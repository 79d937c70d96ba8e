package ledger

import (
	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/errors"
)

// Rent parameters.
const (
	AccountStorageOverhead uint64 = 128
	LamportsPerByteYear    uint64 = 3480
	ExemptionThreshold     uint64 = 2
)

// RentExemptMinimum returns the balance an account of space bytes needs to be rent exempt.
func RentExemptMinimum(space uint64) uint64 {
	return (AccountStorageOverhead + space) * LamportsPerByteYear * ExemptionThreshold
}

// CreateAccount allocates space bytes at account, funds it with the rent-exempt
// minimum from payer and assigns it to owner. The new address must be authorised
// by signer, which is either the account itself or a program-derived identity.
func (tx *Tx) CreateAccount(payer, account *AccountInfo, signer Signer, space uint64, owner solana.PublicKey) error {
	return tx.Invoke(solana.SystemProgramID, func() error {
		if err := payer.Authorize(tx); err != nil {
			return err
		}
		if !signer.Key().Equals(account.Pubkey) {
			return errors.ErrInvalidSeeds.Withf("signer %s does not match new account %s", signer.Key(), account.Pubkey)
		}
		if err := signer.Authorize(tx); err != nil {
			return err
		}
		if !payer.IsWritable || !account.IsWritable {
			return errors.ErrAccountNotWritable
		}
		if account.Exists() {
			return errors.ErrAccountAlreadyInUse.Withf("%s already in use", account.Pubkey)
		}

		rent := RentExemptMinimum(space)
		if payer.Lamports() < rent {
			return errors.ErrInsufficientFunds.Withf("payer %s needs %d lamports", payer.Pubkey, rent)
		}

		from := tx.mutable(payer.Pubkey)
		from.Lamports -= rent

		to := tx.mutable(account.Pubkey)
		to.Lamports = rent
		to.Data = make([]byte, space)
		to.Owner = owner
		return nil
	})
}
