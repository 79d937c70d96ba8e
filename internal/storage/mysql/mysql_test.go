package mysql

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lugondev/go-cpamm/internal/config"
	"github.com/lugondev/go-cpamm/internal/storage"
)

func openTestRepository(t *testing.T) *MySQLRepository {
	t.Helper()
	dsn := os.Getenv("CPAMM_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("Requires MySQL database (set CPAMM_TEST_MYSQL_DSN, e.g. cpamm:cpamm@tcp(localhost:3306)/cpamm_test)")
	}
	repo, err := Open(context.Background(), dsn, &config.MySQLConfig{MaxOpenConns: 4, MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAccountRepository_SaveBatch(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	now := time.Now()
	owner := uuid.NewString()
	var accounts []*storage.AccountModel
	for i := 0; i < 3; i++ {
		key := uuid.NewString()
		accounts = append(accounts, &storage.AccountModel{
			ID: key, Pubkey: key, Lamports: uint64(i + 1), Data: []byte{byte(i)}, Owner: owner,
			UpdatedAt: now, CreatedAt: now,
		})
	}
	if err := repo.Accounts().SaveBatch(ctx, accounts); err != nil {
		t.Fatalf("SaveBatch() error: %v", err)
	}

	for _, account := range accounts {
		found, err := repo.Accounts().FindByPubkey(ctx, account.Pubkey)
		if err != nil {
			t.Fatalf("FindByPubkey(%s) error: %v", account.Pubkey, err)
		}
		if found == nil || found.Lamports != account.Lamports {
			t.Errorf("FindByPubkey(%s) = %+v", account.Pubkey, found)
		}
	}

	owned, err := repo.Accounts().FindByOwner(ctx, owner, 2, 0)
	if err != nil || len(owned) != 2 {
		t.Errorf("FindByOwner() = %d, %v", len(owned), err)
	}
}

func TestOperationRepository(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	pool := uuid.NewString()
	for i := 0; i < 2; i++ {
		op := &storage.OperationModel{
			ID: uuid.NewString(), ProgramID: "p", Tag: "deposit", Pool: pool, User: "u",
			Success: i == 0, ErrorCode: map[bool]string{true: "", false: "SlippageExceeded"}[i == 0],
			Shares: 10, CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := repo.Operations().Save(ctx, op); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	ops, err := repo.Operations().FindByPool(ctx, pool, 10, 0)
	if err != nil || len(ops) != 2 {
		t.Fatalf("FindByPool() = %v, %v", ops, err)
	}
	if ops[0].Success || ops[0].ErrorCode != "SlippageExceeded" {
		t.Errorf("newest operation = %+v", ops[0])
	}
}
