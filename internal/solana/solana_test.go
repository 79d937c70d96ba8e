package solana

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/types"
	"github.com/lugondev/go-cpamm/pkg/view"
)

type fakeRPC struct {
	accounts map[solana.PublicKey]*types.Account
	calls    int
	err      error
}

func (f *fakeRPC) GetBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetBalanceResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	var lamports uint64
	if acc, ok := f.accounts[account]; ok {
		lamports = acc.Lamports
	}
	return &rpc.GetBalanceResult{Value: lamports}, nil
}

func (f *fakeRPC) GetMultipleAccountsWithOpts(_ context.Context, keys []solana.PublicKey, _ *rpc.GetMultipleAccountsOpts) (*rpc.GetMultipleAccountsResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(keys))}
	for i, key := range keys {
		acc, ok := f.accounts[key]
		if !ok {
			continue
		}
		out.Value[i] = &rpc.Account{
			Lamports: acc.Lamports,
			Owner:    acc.Owner,
			Data:     rpc.DataBytesOrJSONFromBytes(acc.Data),
		}
	}
	return out, nil
}

func encode(t *testing.T, v interface{ Encode() ([]byte, error) }) []byte {
	t.Helper()
	data, err := v.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	return data
}

func TestFetchPool(t *testing.T) {
	programID := solana.NewWallet().PublicKey()
	mintX := solana.NewWallet().PublicKey()
	mintY := solana.NewWallet().PublicKey()
	addrs, err := instruction.DerivePool(programID, 4, mintX, mintY)
	if err != nil {
		t.Fatalf("DerivePool() error: %v", err)
	}

	record := &pool.Record{State: pool.StateInitialized, Seed: 4, MintX: mintX, MintY: mintY, FeeBps: 30, CustodyBump: addrs.CustodyBump}
	recordData, err := record.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary() error: %v", err)
	}

	f := &fakeRPC{accounts: map[solana.PublicKey]*types.Account{
		addrs.Config:    {Owner: programID, Data: recordData, Lamports: 1},
		addrs.VaultX:    {Owner: token.ProgramID, Data: encode(t, &view.TokenAccount{Mint: mintX, Owner: addrs.Config, Amount: 1_000, State: view.AccountStateInitialized})},
		addrs.VaultY:    {Owner: token.ProgramID, Data: encode(t, &view.TokenAccount{Mint: mintY, Owner: addrs.Config, Amount: 2_000, State: view.AccountStateInitialized})},
		addrs.ShareMint: {Owner: token.ProgramID, Data: encode(t, &view.Mint{MintAuthority: &addrs.Config, Supply: 2_000, Decimals: 6, IsInitialized: true})},
	}}

	state, err := NewClientWithRPC(f).FetchPool(context.Background(), programID, addrs.Config)
	if err != nil {
		t.Fatalf("FetchPool() error: %v", err)
	}
	if state.ReserveX != 1_000 || state.ReserveY != 2_000 || state.Supply != 2_000 {
		t.Errorf("state = %+v", state)
	}
	if state.Record.FeeBps != 30 || !state.Addresses.ShareMint.Equals(addrs.ShareMint) {
		t.Errorf("record = %+v addresses = %+v", state.Record, state.Addresses)
	}
	if f.calls != 2 {
		t.Errorf("rpc calls = %d, want 2", f.calls)
	}
}

func TestGetAccountMissing(t *testing.T) {
	c := NewClientWithRPC(&fakeRPC{accounts: map[solana.PublicKey]*types.Account{}})
	if _, err := c.GetAccount(context.Background(), solana.NewWallet().PublicKey()); err == nil {
		t.Error("GetAccount() should fail for a missing account")
	}

	boom := errors.New("boom")
	c = NewClientWithRPC(&fakeRPC{err: boom})
	if _, err := c.GetBalance(context.Background(), solana.NewWallet().PublicKey()); !errors.Is(err, boom) {
		t.Errorf("GetBalance() error = %v", err)
	}
}

func TestGetBalanceSOL(t *testing.T) {
	key := solana.NewWallet().PublicKey()
	c := NewClientWithRPC(&fakeRPC{accounts: map[solana.PublicKey]*types.Account{
		key: {Lamports: 2 * types.LamportsPerSOL},
	}})
	sol, err := c.GetBalanceSOL(context.Background(), key)
	if err != nil {
		t.Fatalf("GetBalanceSOL() error: %v", err)
	}
	if sol != 2 {
		t.Errorf("GetBalanceSOL() = %v, want 2", sol)
	}
}

func TestWalletFileRoundTrip(t *testing.T) {
	w := NewWallet()
	path := filepath.Join(t.TempDir(), "id.json")
	if err := w.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}
	loaded, err := WalletFromFile(path)
	if err != nil {
		t.Fatalf("WalletFromFile() error: %v", err)
	}
	if !loaded.PublicKey().Equals(w.PublicKey()) {
		t.Errorf("loaded %s, want %s", loaded, w)
	}

	fromKey, err := WalletFromBase58(w.PrivateKey().String())
	if err != nil {
		t.Fatalf("WalletFromBase58() error: %v", err)
	}
	if !fromKey.PublicKey().Equals(w.PublicKey()) {
		t.Errorf("WalletFromBase58() = %s", fromKey)
	}
	if _, err := WalletFromBase58("not-a-key"); err == nil {
		t.Error("WalletFromBase58() should reject garbage")
	}
}
