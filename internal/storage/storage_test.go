package storage

import (
	"context"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/config"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/pkg/types"
)

func TestAccountModelRoundTrip(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()
	account := &types.Account{Lamports: 7, Data: []byte{1, 2, 3}, Owner: owner, RentEpoch: 9}

	m := AccountToModel(key, account, 12)
	if m.Pubkey != key.String() || m.Slot != 12 {
		t.Fatalf("model = %+v", m)
	}
	gotKey, got, err := m.ToAccount()
	if err != nil {
		t.Fatalf("ToAccount() error: %v", err)
	}
	if gotKey != key || got.Owner != owner || got.Lamports != 7 || string(got.Data) != string(account.Data) {
		t.Errorf("ToAccount() = %s %+v", gotKey, got)
	}

	m.Owner = "bad"
	if _, _, err := m.ToAccount(); err == nil {
		t.Error("ToAccount() should reject a bad owner")
	}
}

func TestMemoryOperations(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	ops := repo.Operations()

	for i, pool := range []string{"a", "b", "a", "a"} {
		op := &OperationModel{ID: string(rune('0' + i)), Pool: pool, Tag: "swap", CreatedAt: time.Now()}
		if err := ops.Save(ctx, op); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	got, err := ops.FindByPool(ctx, "a", 2, 0)
	if err != nil {
		t.Fatalf("FindByPool() error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "3" || got[1].ID != "2" {
		t.Errorf("FindByPool() = %v", got)
	}
	if got, _ := ops.FindByPool(ctx, "a", 10, 5); got != nil {
		t.Errorf("offset past end = %v", got)
	}

	recent, _ := ops.FindRecent(ctx, 3)
	if len(recent) != 3 || recent[0].ID != "3" {
		t.Errorf("FindRecent() = %v", recent)
	}

	op, _ := ops.FindByID(ctx, "1")
	if op == nil || op.Pool != "b" {
		t.Errorf("FindByID() = %+v", op)
	}
	if op, _ := ops.FindByID(ctx, "missing"); op != nil {
		t.Errorf("FindByID(missing) = %+v", op)
	}
}

func TestMemoryAccounts(t *testing.T) {
	ctx := context.Background()
	accounts := NewMemoryRepository().Accounts()
	owner := solana.NewWallet().PublicKey()

	var keys []solana.PublicKey
	for i := 0; i < 3; i++ {
		key := solana.NewWallet().PublicKey()
		keys = append(keys, key)
		if err := accounts.Save(ctx, AccountToModel(key, &types.Account{Lamports: 1, Owner: owner}, 0)); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
	}

	owned, _ := accounts.FindByOwner(ctx, owner.String(), 2, 0)
	if len(owned) != 2 {
		t.Errorf("FindByOwner() returned %d", len(owned))
	}
	if err := accounts.Delete(ctx, keys[0].String()); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if m, _ := accounts.FindByPubkey(ctx, keys[0].String()); m != nil {
		t.Error("deleted account still found")
	}
	all, _ := accounts.FindAll(ctx)
	if len(all) != 2 {
		t.Errorf("FindAll() returned %d", len(all))
	}
}

func TestLedgerStoreRestoresLedger(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	store := NewLedgerStore(repo.Accounts())

	key := solana.NewWallet().PublicKey()
	l := ledger.New(ledger.WithStore(store), ledger.WithClock(ledger.Clock{Slot: 5}))
	if err := l.Airdrop(ctx, key, 1000); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}

	saved, _ := repo.Accounts().FindByPubkey(ctx, key.String())
	if saved == nil || saved.Lamports != 1000 || saved.Slot != 5 {
		t.Fatalf("saved = %+v", saved)
	}

	restored := ledger.New(ledger.WithStore(store))
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	acct, ok := restored.Account(key)
	if !ok || acct.Lamports != 1000 {
		t.Errorf("restored account = %+v", acct)
	}

	if err := store.SaveAccounts(ctx, 6, map[solana.PublicKey]*types.Account{key: nil}); err != nil {
		t.Fatalf("SaveAccounts(nil) error: %v", err)
	}
	if m, _ := repo.Accounts().FindByPubkey(ctx, key.String()); m != nil {
		t.Error("removed account should be deleted")
	}
}

func TestConnectionManager(t *testing.T) {
	if _, err := NewConnectionManager(&config.DatabaseConfig{}); err == nil {
		t.Error("disabled database should be rejected")
	}

	cm, err := NewConnectionManager(&config.DatabaseConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("NewConnectionManager() error: %v", err)
	}
	if _, err := cm.GetRepository(); err == nil {
		t.Error("GetRepository() before Connect should fail")
	}
	repo, err := cm.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if again, _ := cm.Connect(context.Background()); again != repo {
		t.Error("Connect() should reuse the repository")
	}
	if err := cm.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	cm, _ = NewConnectionManager(&config.DatabaseConfig{Enabled: true, Type: "oracle"})
	if _, err := cm.Connect(context.Background()); err == nil {
		t.Error("unsupported type should fail")
	}
}
