package storage

import (
	"context"
)

// AccountRepository stores ledger account snapshots.
type AccountRepository interface {
	Save(ctx context.Context, account *AccountModel) error
	SaveBatch(ctx context.Context, accounts []*AccountModel) error
	FindByPubkey(ctx context.Context, pubkey string) (*AccountModel, error)
	FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*AccountModel, error)
	FindAll(ctx context.Context) ([]*AccountModel, error)
	Delete(ctx context.Context, pubkey string) error
}

// OperationRepository stores the journal of executed pool operations.
type OperationRepository interface {
	Save(ctx context.Context, op *OperationModel) error
	FindByID(ctx context.Context, id string) (*OperationModel, error)
	FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*OperationModel, error)
	FindRecent(ctx context.Context, limit int) ([]*OperationModel, error)
}

type Repository interface {
	Accounts() AccountRepository
	Operations() OperationRepository
	Close() error
	Ping(ctx context.Context) error
}
