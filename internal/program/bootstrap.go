package program

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// Bootstrap prepares ledger state that pool operations rely on but do not
// create themselves: mints, token accounts, balances and pool vaults. Each
// method runs in its own system transaction.
type Bootstrap struct {
	ledger *ledger.Ledger
	payer  solana.PublicKey
}

// NewBootstrap returns a Bootstrap paying rent from payer.
func NewBootstrap(l *ledger.Ledger, payer solana.PublicKey) *Bootstrap {
	return &Bootstrap{ledger: l, payer: payer}
}

// Payer returns the funding account.
func (b *Bootstrap) Payer() solana.PublicKey {
	return b.payer
}

func (b *Bootstrap) run(ctx context.Context, fn func(tx *ledger.Tx) error) error {
	return b.ledger.Execute(ctx, solana.SystemProgramID, fn)
}

// CreateMint creates a mint at mint with the payer as mint authority.
func (b *Bootstrap) CreateMint(ctx context.Context, mint solana.PublicKey, decimals uint8) error {
	return b.run(ctx, func(tx *ledger.Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(b.payer, true, true),
			types.NewAccountMeta(mint, true, true),
		})
		return token.CreateMint(tx, infos[0], infos[1], infos[1], decimals, b.payer)
	})
}

// CreateTokenAccount creates a token account at account holding mint for owner.
func (b *Bootstrap) CreateTokenAccount(ctx context.Context, account, mint, owner solana.PublicKey) error {
	return b.run(ctx, func(tx *ledger.Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(b.payer, true, true),
			types.NewAccountMeta(account, true, true),
			types.NewAccountMeta(mint, false, false),
		})
		return token.CreateAccount(tx, infos[0], infos[1], infos[2], owner)
	})
}

// MintTo mints amount of mint into account. The payer must be the mint authority.
func (b *Bootstrap) MintTo(ctx context.Context, mint, account solana.PublicKey, amount uint64) error {
	return b.run(ctx, func(tx *ledger.Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(b.payer, true, true),
			types.NewAccountMeta(mint, true, false),
			types.NewAccountMeta(account, true, false),
		})
		return token.MintTo(tx, infos[1], infos[2], infos[0], amount)
	})
}

// CreateVaults creates the pool's associated vault accounts for both assets.
func (b *Bootstrap) CreateVaults(ctx context.Context, addrs *instruction.PoolAddresses, mintX, mintY solana.PublicKey) error {
	return b.run(ctx, func(tx *ledger.Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(b.payer, true, true),
			types.NewAccountMeta(mintX, false, false),
			types.NewAccountMeta(mintY, false, false),
			types.NewAccountMeta(addrs.VaultX, true, false),
			types.NewAccountMeta(addrs.VaultY, true, false),
		})
		if err := token.CreateAssociatedAccount(tx, infos[0], infos[3], addrs.Config, infos[1]); err != nil {
			return err
		}
		return token.CreateAssociatedAccount(tx, infos[0], infos[4], addrs.Config, infos[2])
	})
}

// InitializePool creates the vaults and runs Initialize through e. The payer
// becomes the pool initializer.
func (b *Bootstrap) InitializePool(ctx context.Context, e *Executor, seed uint64, feeBps uint16, mintX, mintY, authority solana.PublicKey) (*instruction.PoolAddresses, *Result, error) {
	addrs, err := instruction.DerivePool(e.ProgramID(), seed, mintX, mintY)
	if err != nil {
		return nil, nil, err
	}
	if err := b.CreateVaults(ctx, addrs, mintX, mintY); err != nil {
		return nil, nil, err
	}

	ix, _, err := instruction.NewInitializeInstruction(e.ProgramID(), b.payer, seed, feeBps, mintX, mintY, authority)
	if err != nil {
		return nil, nil, err
	}
	result, err := e.Execute(ctx, ix)
	return addrs, result, err
}
