package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	cpammerrors "github.com/lugondev/go-cpamm/internal/errors"
	programlog "github.com/lugondev/go-cpamm/pkg/log"
	"github.com/lugondev/go-cpamm/pkg/types"
)

type memoryStore struct {
	accounts map[solana.PublicKey]*types.Account
	fail     error
	saves    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[solana.PublicKey]*types.Account)}
}

func (s *memoryStore) SaveAccounts(_ context.Context, _ uint64, accounts map[solana.PublicKey]*types.Account) error {
	if s.fail != nil {
		return s.fail
	}
	s.saves++
	for k, v := range accounts {
		if v == nil {
			delete(s.accounts, k)
			continue
		}
		s.accounts[k] = v.Clone()
	}
	return nil
}

func (s *memoryStore) LoadAccounts(context.Context) (map[solana.PublicKey]*types.Account, error) {
	out := make(map[solana.PublicKey]*types.Account, len(s.accounts))
	for k, v := range s.accounts {
		out[k] = v.Clone()
	}
	return out, nil
}

func TestRentExemptMinimum(t *testing.T) {
	if got := RentExemptMinimum(0); got != 128*3480*2 {
		t.Errorf("RentExemptMinimum(0) = %d", got)
	}
	if got := RentExemptMinimum(165); got != 2_039_280 {
		t.Errorf("RentExemptMinimum(165) = %d, want 2039280", got)
	}
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	l := New()
	payer := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	if err := l.Airdrop(ctx, payer, 1_000_000_000); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}

	create := func() error {
		return l.Execute(ctx, owner, func(tx *Tx) error {
			infos := tx.Resolve([]types.AccountMeta{
				types.NewAccountMeta(payer, true, true),
				types.NewAccountMeta(account, true, true),
			})
			return tx.CreateAccount(infos[0], infos[1], infos[1], 108, owner)
		})
	}

	if err := create(); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}
	acct, ok := l.Account(account)
	if !ok {
		t.Fatal("account not created")
	}
	if len(acct.Data) != 108 || !acct.Owner.Equals(owner) || acct.Lamports != RentExemptMinimum(108) {
		t.Errorf("unexpected account %+v", acct)
	}
	p, _ := l.Account(payer)
	if p.Lamports != 1_000_000_000-RentExemptMinimum(108) {
		t.Errorf("payer lamports = %d", p.Lamports)
	}

	if err := create(); !errors.Is(err, cpammerrors.ErrAccountAlreadyInUse) {
		t.Errorf("second CreateAccount() error = %v, want already in use", err)
	}
}

func TestCreateAccountRequiresSignatures(t *testing.T) {
	ctx := context.Background()
	l := New()
	payer := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()
	if err := l.Airdrop(ctx, payer, 1_000_000_000); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}

	err := l.Execute(ctx, solana.SystemProgramID, func(tx *Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(payer, true, true),
			types.NewAccountMeta(account, true, false),
		})
		return tx.CreateAccount(infos[0], infos[1], infos[1], 10, solana.SystemProgramID)
	})
	if !errors.Is(err, cpammerrors.ErrMissingRequiredSignature) {
		t.Errorf("CreateAccount() error = %v, want missing signature", err)
	}
	if _, ok := l.Account(account); ok {
		t.Error("account created without signature")
	}
}

func TestExecuteRollsBack(t *testing.T) {
	ctx := context.Background()
	l := New()
	payer := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()
	if err := l.Airdrop(ctx, payer, 1_000_000_000); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}

	boom := errors.New("boom")
	err := l.Execute(ctx, solana.SystemProgramID, func(tx *Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(payer, true, true),
			types.NewAccountMeta(account, true, true),
		})
		if err := tx.CreateAccount(infos[0], infos[1], infos[1], 64, solana.SystemProgramID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Execute() error = %v, want boom", err)
	}
	if _, ok := l.Account(account); ok {
		t.Error("created account survived rollback")
	}
	p, _ := l.Account(payer)
	if p.Lamports != 1_000_000_000 {
		t.Errorf("payer lamports = %d after rollback", p.Lamports)
	}
}

func TestExecutePersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	l := New(WithStore(store))
	key := solana.NewWallet().PublicKey()

	if err := l.Airdrop(ctx, key, 42); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}
	if store.saves != 1 || store.accounts[key].Lamports != 42 {
		t.Fatalf("store not updated: saves=%d", store.saves)
	}

	store.fail = errors.New("disk full")
	if err := l.Airdrop(ctx, key, 8); err == nil {
		t.Fatal("Airdrop() should fail when the store fails")
	}
	acct, _ := l.Account(key)
	if acct.Lamports != 42 {
		t.Errorf("lamports = %d after failed flush, want 42", acct.Lamports)
	}

	store.fail = nil
	restored := New(WithStore(store))
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	acct, ok := restored.Account(key)
	if !ok || acct.Lamports != 42 {
		t.Errorf("restored account = %+v", acct)
	}
}

func TestSetDataChecks(t *testing.T) {
	ctx := context.Background()
	l := New()
	program := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	account := solana.NewWallet().PublicKey()
	if err := l.Airdrop(ctx, payer, 1_000_000_000); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}
	err := l.Execute(ctx, program, func(tx *Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(payer, true, true),
			types.NewAccountMeta(account, true, true),
		})
		return tx.CreateAccount(infos[0], infos[1], infos[1], 4, program)
	})
	if err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	tests := []struct {
		name     string
		caller   solana.PublicKey
		writable bool
		data     []byte
		wantErr  error
	}{
		{"owner writes", program, true, []byte{1, 2, 3, 4}, nil},
		{"read-only meta", program, false, []byte{1, 2, 3, 4}, cpammerrors.ErrAccountNotWritable},
		{"foreign program", solana.TokenProgramID, true, []byte{1, 2, 3, 4}, cpammerrors.ErrInvalidAccountOwner},
		{"resize", program, true, []byte{1}, cpammerrors.ErrInvalidAccountData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Execute(ctx, tt.caller, func(tx *Tx) error {
				info := tx.Resolve([]types.AccountMeta{types.NewAccountMeta(account, tt.writable, false)})[0]
				return info.SetData(tt.data)
			})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("SetData() error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetData() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveMergesPrivileges(t *testing.T) {
	l := New()
	key := solana.NewWallet().PublicKey()
	_ = l.Execute(context.Background(), solana.SystemProgramID, func(tx *Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(key, false, true),
			types.NewAccountMeta(key, true, false),
		})
		for i, info := range infos {
			if !info.IsSigner || !info.IsWritable {
				t.Errorf("info %d privileges = signer %v writable %v", i, info.IsSigner, info.IsWritable)
			}
		}
		return nil
	})
}

func TestInvokeTracksPrograms(t *testing.T) {
	l := New()
	outer := solana.NewWallet().PublicKey()
	_ = l.Execute(context.Background(), outer, func(tx *Tx) error {
		if !tx.Invoker().Equals(outer) {
			t.Errorf("top-level invoker = %s", tx.Invoker())
		}
		return tx.Invoke(solana.TokenProgramID, func() error {
			if !tx.Program().Equals(solana.TokenProgramID) || !tx.Invoker().Equals(outer) {
				t.Errorf("inner program/invoker = %s/%s", tx.Program(), tx.Invoker())
			}
			return nil
		})
	})
}

func TestExecuteLoggedTranscript(t *testing.T) {
	l := New()
	outer := solana.NewWallet().PublicKey()
	parser := programlog.NewParser()

	lines, err := l.ExecuteLogged(context.Background(), outer, func(tx *Tx) error {
		tx.Log("Instruction: %s", "Test")
		if err := tx.Invoke(solana.TokenProgramID, func() error { return nil }); err != nil {
			return err
		}
		tx.EmitData([]byte{9})
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteLogged() error: %v", err)
	}
	want := []programlog.LogType{
		programlog.LogTypeInvoke, programlog.LogTypeLog, programlog.LogTypeInvoke,
		programlog.LogTypeSuccess, programlog.LogTypeData, programlog.LogTypeSuccess,
	}
	parsed := parser.ParseAll(lines)
	if len(parsed) != len(want) {
		t.Fatalf("lines = %v", lines)
	}
	for i, p := range parsed {
		if p.Type != want[i] {
			t.Errorf("line %d = %q, want %s", i, lines[i], want[i])
		}
	}
	if parsed[2].StackHeight != 2 || parsed[2].ProgramID != solana.TokenProgramID.String() {
		t.Errorf("inner invoke = %+v", parsed[2])
	}

	lines, err = l.ExecuteLogged(context.Background(), outer, func(tx *Tx) error {
		return tx.Invoke(solana.TokenProgramID, func() error { return errors.New("inner boom") })
	})
	if err == nil {
		t.Fatal("ExecuteLogged() should fail")
	}
	last := parser.Parse(lines[len(lines)-1])
	if last.Type != programlog.LogTypeFailed || last.ProgramID != outer.String() || last.Message != "inner boom" {
		t.Errorf("last line = %+v", last)
	}
}

func TestFailedLineHidesCause(t *testing.T) {
	l := New()
	program := solana.NewWallet().PublicKey()
	parser := programlog.NewParser()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"arithmetic", cpammerrors.InvalidData(cpammerrors.ErrZeroBalance), "invalid account data for instruction"},
		{"slippage", cpammerrors.ErrSlippageExceeded.Withf("swap yields 9, minimum 10"), "custom program error: 0x1"},
		{"structural", cpammerrors.ErrNotEnoughAccountKeys, "insufficient account keys for instruction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := l.ExecuteLogged(context.Background(), program, func(*Tx) error { return tt.err })
			if !errors.Is(err, tt.err) {
				t.Fatalf("ExecuteLogged() error = %v, want %v", err, tt.err)
			}
			last := parser.Parse(lines[len(lines)-1])
			if last.Type != programlog.LogTypeFailed || last.Message != tt.want {
				t.Errorf("last line = %q, want message %q", lines[len(lines)-1], tt.want)
			}
		})
	}
}

func TestExecuteHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().Execute(ctx, solana.SystemProgramID, func(*Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) || called {
		t.Errorf("Execute() = %v, called %v", err, called)
	}
}
