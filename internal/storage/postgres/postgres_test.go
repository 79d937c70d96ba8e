package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lugondev/go-cpamm/internal/storage"
)

func openTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()
	dsn := os.Getenv("CPAMM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Requires PostgreSQL database (set CPAMM_TEST_POSTGRES_DSN)")
	}
	repo, err := Open(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestPostgresOperations(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	pool := uuid.NewString()
	op := &storage.OperationModel{
		ID: uuid.NewString(), ProgramID: "p", Tag: "swap", Pool: pool, User: "u",
		Success: true, AmountIn: 100, AmountOut: 90, CreatedAt: time.Now().UTC(),
	}
	if err := repo.Operations().Save(ctx, op); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := repo.Operations().FindByID(ctx, op.ID)
	if err != nil || got == nil || got.AmountOut != 90 {
		t.Fatalf("FindByID() = %+v, %v", got, err)
	}
	list, err := repo.Operations().FindByPool(ctx, pool, 10, 0)
	if err != nil || len(list) != 1 {
		t.Errorf("FindByPool() = %v, %v", list, err)
	}
}

func TestPostgresAccounts(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()
	key := uuid.NewString()
	account := &storage.AccountModel{ID: key, Pubkey: key, Lamports: 5, Data: []byte{1}, Owner: "o", UpdatedAt: now, CreatedAt: now}
	if err := repo.Accounts().SaveBatch(ctx, []*storage.AccountModel{account}); err != nil {
		t.Fatalf("SaveBatch() error: %v", err)
	}
	account.Lamports = 6
	if err := repo.Accounts().Save(ctx, account); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := repo.Accounts().FindByPubkey(ctx, key)
	if err != nil || got == nil || got.Lamports != 6 {
		t.Fatalf("FindByPubkey() = %+v, %v", got, err)
	}
	if err := repo.Accounts().Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if got, _ := repo.Accounts().FindByPubkey(ctx, key); got != nil {
		t.Error("account not deleted")
	}
}
