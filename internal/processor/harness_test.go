package processor

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/metrics"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/types"
	"github.com/lugondev/go-cpamm/pkg/view"
)

var testProgramID = solana.PublicKeyFromBytes([]byte{
	0x0f, 0x1e, 0x6b, 0x14, 0x21, 0xc0, 0x4a, 0x07, 0x04, 0x31, 0x26, 0x5c, 0x19, 0xc5, 0xbb, 0xee,
	0x19, 0x92, 0xba, 0xe8, 0xaf, 0xd1, 0xcd, 0x07, 0x8e, 0xf8, 0xaf, 0x70, 0x47, 0xdc, 0x11, 0xf7,
})

type countingMetrics struct {
	metrics.NoopMetrics
	counters map[string]uint64
}

func (c *countingMetrics) IncrementCounter(_ context.Context, name string, value uint64) error {
	c.counters[name] += value
	return nil
}

// user holds token accounts for both pool assets and the share mint.
type user struct {
	key    solana.PublicKey
	x, y   solana.PublicKey
	shares solana.PublicKey
}

type harness struct {
	t       testing.TB
	ledger  *ledger.Ledger
	payer   solana.PublicKey
	mintX   solana.PublicKey
	mintY   solana.PublicKey
	addrs   *instruction.PoolAddresses
	decoder *instruction.Decoder
	metrics *countingMetrics
	alice   *user

	// logs is the transcript of the last run.
	logs []string
}

func newHarness(t testing.TB, feeBps uint16) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		ledger:  ledger.New(),
		payer:   solana.NewWallet().PublicKey(),
		mintX:   solana.NewWallet().PublicKey(),
		mintY:   solana.NewWallet().PublicKey(),
		decoder: instruction.NewDecoder(testProgramID, true),
		metrics: &countingMetrics{counters: make(map[string]uint64)},
	}
	if err := h.ledger.Airdrop(context.Background(), h.payer, 100*types.LamportsPerSOL); err != nil {
		t.Fatalf("Airdrop() error: %v", err)
	}

	addrs, err := instruction.DerivePool(testProgramID, 1, h.mintX, h.mintY)
	if err != nil {
		t.Fatalf("DerivePool() error: %v", err)
	}
	h.addrs = addrs

	h.setup(func(tx *ledger.Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(h.payer, true, true),
			types.NewAccountMeta(h.mintX, true, true),
			types.NewAccountMeta(h.mintY, true, true),
			types.NewAccountMeta(addrs.VaultX, true, false),
			types.NewAccountMeta(addrs.VaultY, true, false),
		})
		if err := token.CreateMint(tx, infos[0], infos[1], infos[1], 6, h.payer); err != nil {
			return err
		}
		if err := token.CreateMint(tx, infos[0], infos[2], infos[2], 6, h.payer); err != nil {
			return err
		}
		if err := token.CreateAssociatedAccount(tx, infos[0], infos[3], addrs.Config, infos[1]); err != nil {
			return err
		}
		return token.CreateAssociatedAccount(tx, infos[0], infos[4], addrs.Config, infos[2])
	})

	ix, _, err := instruction.NewInitializeInstruction(testProgramID, h.payer, 1, feeBps, h.mintX, h.mintY, solana.PublicKey{})
	if err != nil {
		t.Fatalf("NewInitializeInstruction() error: %v", err)
	}
	if _, err := h.run(ix); err != nil {
		t.Fatalf("initialize error: %v", err)
	}

	h.alice = h.newUser(10_000_000, 10_000_000)
	return h
}

func (h *harness) setup(fn func(tx *ledger.Tx) error) {
	h.t.Helper()
	if err := h.ledger.Execute(context.Background(), solana.SystemProgramID, fn); err != nil {
		h.t.Fatalf("setup error: %v", err)
	}
}

// newUser creates a funded user with token accounts for both assets and shares.
func (h *harness) newUser(x, y uint64) *user {
	h.t.Helper()
	u := &user{
		key:    solana.NewWallet().PublicKey(),
		x:      solana.NewWallet().PublicKey(),
		y:      solana.NewWallet().PublicKey(),
		shares: solana.NewWallet().PublicKey(),
	}
	h.setup(func(tx *ledger.Tx) error {
		infos := tx.Resolve([]types.AccountMeta{
			types.NewAccountMeta(h.payer, true, true),
			types.NewAccountMeta(u.x, true, true),
			types.NewAccountMeta(u.y, true, true),
			types.NewAccountMeta(u.shares, true, true),
			types.NewAccountMeta(h.mintX, true, false),
			types.NewAccountMeta(h.mintY, true, false),
			types.NewAccountMeta(h.addrs.ShareMint, false, false),
		})
		if err := token.CreateAccount(tx, infos[0], infos[1], infos[4], u.key); err != nil {
			return err
		}
		if err := token.CreateAccount(tx, infos[0], infos[2], infos[5], u.key); err != nil {
			return err
		}
		if err := token.CreateAccount(tx, infos[0], infos[3], infos[6], u.key); err != nil {
			return err
		}
		if err := token.MintTo(tx, infos[4], infos[1], infos[0], x); err != nil {
			return err
		}
		return token.MintTo(tx, infos[5], infos[2], infos[0], y)
	})
	return u
}

// run decodes and processes ix in one transaction, the way the entrypoint does.
func (h *harness) run(ix types.Instruction) (Outcome, error) {
	var outcome Outcome
	ctx := context.Background()
	m := metrics.NewCollection(h.metrics)

	logs, err := h.ledger.ExecuteLogged(ctx, testProgramID, func(tx *ledger.Tx) error {
		accounts := tx.Resolve(ix.Accounts)
		payload := ix.Data[1:]
		switch tag := instruction.Tag(ix.Data[0]); tag {
		case instruction.TagInitialize:
			req, err := h.decoder.DecodeInitialize(accounts, payload)
			if err != nil {
				return err
			}
			call := NewCall(tx, req)
			if err := NewInitializeProcessor(nil).Process(ctx, call, m); err != nil {
				return err
			}
			outcome = call.Outcome
		case instruction.TagDeposit, instruction.TagWithdraw:
			req, err := h.decoder.DecodeLiquidity(tx, tag, accounts, payload)
			if err != nil {
				return err
			}
			call := NewCall(tx, req)
			var p Processor[*Call[*instruction.LiquidityRequest]] = NewDepositProcessor(nil)
			if tag == instruction.TagWithdraw {
				p = NewWithdrawProcessor(nil)
			}
			if err := p.Process(ctx, call, m); err != nil {
				return err
			}
			outcome = call.Outcome
		case instruction.TagSwap:
			req, err := h.decoder.DecodeSwap(tx, accounts, payload)
			if err != nil {
				return err
			}
			call := NewCall(tx, req)
			if err := NewSwapProcessor(nil).Process(ctx, call, m); err != nil {
				return err
			}
			outcome = call.Outcome
		}
		return nil
	})
	h.logs = logs
	return outcome, err
}

func (h *harness) deposit(u *user, shares, maxX, maxY uint64) (Outcome, error) {
	h.t.Helper()
	ix, err := instruction.NewDepositInstruction(testProgramID, u.key, h.addrs, u.x, u.y, u.shares,
		instruction.LiquidityArgs{Amount: shares, BoundX: maxX, BoundY: maxY})
	if err != nil {
		h.t.Fatalf("NewDepositInstruction() error: %v", err)
	}
	return h.run(ix)
}

func (h *harness) withdraw(u *user, shares, minX, minY uint64) (Outcome, error) {
	h.t.Helper()
	ix, err := instruction.NewWithdrawInstruction(testProgramID, u.key, h.addrs, u.x, u.y, u.shares,
		instruction.LiquidityArgs{Amount: shares, BoundX: minX, BoundY: minY})
	if err != nil {
		h.t.Fatalf("NewWithdrawInstruction() error: %v", err)
	}
	return h.run(ix)
}

func (h *harness) swap(u *user, isX bool, amount, minOut uint64) (Outcome, error) {
	h.t.Helper()
	ix, err := instruction.NewSwapInstruction(testProgramID, u.key, h.addrs, u.x, u.y,
		instruction.SwapArgs{IsX: isX, Amount: amount, MinOut: minOut})
	if err != nil {
		h.t.Fatalf("NewSwapInstruction() error: %v", err)
	}
	return h.run(ix)
}

func (h *harness) balance(key solana.PublicKey) uint64 {
	h.t.Helper()
	acct, ok := h.ledger.Account(key)
	if !ok {
		h.t.Fatalf("account %s missing", key)
	}
	amount, err := view.TokenAccountAmount(acct.Data)
	if err != nil {
		h.t.Fatalf("TokenAccountAmount() error: %v", err)
	}
	return amount
}

func (h *harness) supply() uint64 {
	h.t.Helper()
	acct, ok := h.ledger.Account(h.addrs.ShareMint)
	if !ok {
		h.t.Fatal("share mint missing")
	}
	supply, err := view.MintSupply(acct.Data)
	if err != nil {
		h.t.Fatalf("MintSupply() error: %v", err)
	}
	return supply
}

func (h *harness) reserves() (uint64, uint64) {
	h.t.Helper()
	return h.balance(h.addrs.VaultX), h.balance(h.addrs.VaultY)
}

func (h *harness) record() *pool.Record {
	h.t.Helper()
	acct, ok := h.ledger.Account(h.addrs.Config)
	if !ok {
		h.t.Fatal("config missing")
	}
	r, err := pool.UnmarshalRecord(acct.Data)
	if err != nil {
		h.t.Fatalf("UnmarshalRecord() error: %v", err)
	}
	return r
}

// setState rewrites the pool lifecycle state as the owning program.
func (h *harness) setState(s pool.State) {
	h.t.Helper()
	err := h.ledger.Execute(context.Background(), testProgramID, func(tx *ledger.Tx) error {
		config := tx.Resolve([]types.AccountMeta{types.NewAccountMeta(h.addrs.Config, true, false)})[0]
		r, err := pool.UnmarshalRecord(config.Data())
		if err != nil {
			return err
		}
		if err := r.SetState(s); err != nil {
			return err
		}
		data, err := r.MarshalBinary()
		if err != nil {
			return err
		}
		return config.SetData(data)
	})
	if err != nil {
		h.t.Fatalf("setState(%s) error: %v", s, err)
	}
}
