package storage

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/pkg/types"
)

// LedgerStore persists committed ledger state through an AccountRepository.
type LedgerStore struct {
	accounts AccountRepository
}

// NewLedgerStore creates a LedgerStore.
func NewLedgerStore(accounts AccountRepository) *LedgerStore {
	return &LedgerStore{accounts: accounts}
}

// SaveAccounts upserts live accounts and deletes removed ones.
func (s *LedgerStore) SaveAccounts(ctx context.Context, slot uint64, accounts map[solana.PublicKey]*types.Account) error {
	batch := make([]*AccountModel, 0, len(accounts))
	for key, account := range accounts {
		if account == nil {
			if err := s.accounts.Delete(ctx, key.String()); err != nil {
				return fmt.Errorf("delete account %s: %w", key, err)
			}
			continue
		}
		batch = append(batch, AccountToModel(key, account, slot))
	}
	if err := s.accounts.SaveBatch(ctx, batch); err != nil {
		return fmt.Errorf("save %d accounts: %w", len(batch), err)
	}
	return nil
}

// LoadAccounts returns every persisted account.
func (s *LedgerStore) LoadAccounts(ctx context.Context) (map[solana.PublicKey]*types.Account, error) {
	models, err := s.accounts.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	accounts := make(map[solana.PublicKey]*types.Account, len(models))
	for _, m := range models {
		key, account, err := m.ToAccount()
		if err != nil {
			return nil, err
		}
		accounts[key] = account
	}
	return accounts, nil
}
