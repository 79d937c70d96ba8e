package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/common"
	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/processor"
	"github.com/lugondev/go-cpamm/internal/program"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// payerFunding is airdropped to the scenario payer before anything is created.
const payerFunding = 1_000 * types.LamportsPerSOL

// Runner executes scenarios through a program executor.
type Runner struct {
	common.LoggerMixin
	exec *program.Executor
}

// NewRunner creates a Runner on exec.
func NewRunner(exec *program.Executor, logger *slog.Logger) *Runner {
	r := &Runner{LoggerMixin: common.NewLoggerMixin(), exec: exec}
	r.SetLogger(logger)
	return r
}

// session is the address book of one run.
type session struct {
	boot  *program.Bootstrap
	mints map[string]solana.PublicKey
	users map[string]*participant
	pools map[string]*poolHandle
}

type participant struct {
	key      solana.PublicKey
	accounts map[solana.PublicKey]solana.PublicKey // mint -> token account
}

type poolHandle struct {
	def   Pool
	addrs *instruction.PoolAddresses
	mintX solana.PublicKey
	mintY solana.PublicKey
}

// Run executes s and reports every step. The returned error is reserved for
// failures to set the scenario up; unexpected step outcomes are recorded in the
// report.
func (r *Runner) Run(ctx context.Context, s *Scenario) (*Report, error) {
	l := r.exec.Ledger()
	payer := solana.NewWallet().PublicKey()
	if err := l.Airdrop(ctx, payer, payerFunding); err != nil {
		return nil, err
	}

	sess := &session{
		boot:  program.NewBootstrap(l, payer),
		mints: make(map[string]solana.PublicKey, len(s.Mints)),
		users: make(map[string]*participant, len(s.Users)),
		pools: make(map[string]*poolHandle, len(s.Pools)),
	}
	if err := r.setup(ctx, sess, s); err != nil {
		return nil, fmt.Errorf("scenario setup: %w", err)
	}

	report := &Report{Name: s.Name}
	for i, step := range s.Steps {
		result := r.step(ctx, sess, i+1, step)
		r.GetLogger().Debug("scenario step",
			"index", result.Index,
			"op", result.Op,
			"outcome", result.Outcome,
			"passed", result.Passed,
		)
		report.Steps = append(report.Steps, result)
	}

	if err := r.snapshot(sess, s, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) setup(ctx context.Context, sess *session, s *Scenario) error {
	for _, m := range s.Mints {
		key := solana.NewWallet().PublicKey()
		if err := sess.boot.CreateMint(ctx, key, m.Decimals); err != nil {
			return fmt.Errorf("mint %s: %w", m.Name, err)
		}
		sess.mints[m.Name] = key
	}

	for _, u := range s.Users {
		p := &participant{key: solana.NewWallet().PublicKey(), accounts: make(map[solana.PublicKey]solana.PublicKey)}
		names := make([]string, 0, len(u.Balances))
		for name := range u.Balances {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			mint := sess.mints[name]
			account, err := sess.tokenAccount(ctx, p, mint)
			if err != nil {
				return fmt.Errorf("user %s: %w", u.Name, err)
			}
			if amount := u.Balances[name]; amount > 0 {
				if err := sess.boot.MintTo(ctx, mint, account, amount); err != nil {
					return fmt.Errorf("user %s: %w", u.Name, err)
				}
			}
		}
		sess.users[u.Name] = p
	}

	for _, def := range s.Pools {
		mintX, mintY := sess.mints[def.MintX], sess.mints[def.MintY]
		addrs, err := instruction.DerivePool(r.exec.ProgramID(), def.Seed, mintX, mintY)
		if err != nil {
			return fmt.Errorf("pool %s: %w", def.Name, err)
		}
		sess.pools[def.Name] = &poolHandle{def: def, addrs: addrs, mintX: mintX, mintY: mintY}
	}
	return nil
}

// tokenAccount returns p's account for mint, creating it on first use.
func (sess *session) tokenAccount(ctx context.Context, p *participant, mint solana.PublicKey) (solana.PublicKey, error) {
	if account, ok := p.accounts[mint]; ok {
		return account, nil
	}
	account := solana.NewWallet().PublicKey()
	if err := sess.boot.CreateTokenAccount(ctx, account, mint, p.key); err != nil {
		return solana.PublicKey{}, err
	}
	p.accounts[mint] = account
	return account, nil
}

func (r *Runner) step(ctx context.Context, sess *session, index int, st Step) StepResult {
	result := StepResult{Index: index, Op: st.Op, Pool: st.Pool, User: st.User, Expect: st.Expect}

	outcome, err := r.apply(ctx, sess, st)
	if err != nil {
		result.Error = errors.Message(err)
	}
	result.Outcome = classify(err)
	result.Amounts = outcome
	result.Passed = result.Outcome == st.Expect

	if result.Passed && err == nil && st.Want != nil {
		if mismatch := st.Want.check(outcome); mismatch != "" {
			result.Passed = false
			result.Error = mismatch
		}
	}
	return result
}

func (r *Runner) apply(ctx context.Context, sess *session, st Step) (processor.Outcome, error) {
	l := r.exec.Ledger()
	if st.Op == OpClock {
		l.SetClock(ledger.Clock{Slot: st.Slot, UnixTimestamp: st.UnixTimestamp})
		return processor.Outcome{}, nil
	}

	h := sess.pools[st.Pool]
	switch st.Op {
	case OpInitialize:
		if _, ok := l.Account(h.addrs.VaultX); !ok {
			if err := sess.boot.CreateVaults(ctx, h.addrs, h.mintX, h.mintY); err != nil {
				return processor.Outcome{}, err
			}
		}
		ix, _, err := instruction.NewInitializeInstruction(r.exec.ProgramID(), sess.boot.Payer(), h.def.Seed, h.def.FeeBps, h.mintX, h.mintY, solana.PublicKey{})
		if err != nil {
			return processor.Outcome{}, err
		}
		return r.execute(ctx, ix)

	case OpSetState:
		state, err := pool.ParseState(st.State)
		if err != nil {
			return processor.Outcome{}, err
		}
		return processor.Outcome{Pool: h.addrs.Config}, setState(ctx, l, r.exec.ProgramID(), h.addrs.Config, state)
	}

	u := sess.users[st.User]
	userX, err := sess.tokenAccount(ctx, u, h.mintX)
	if err != nil {
		return processor.Outcome{}, err
	}
	userY, err := sess.tokenAccount(ctx, u, h.mintY)
	if err != nil {
		return processor.Outcome{}, err
	}

	var ix types.Instruction
	switch st.Op {
	case OpDeposit, OpWithdraw:
		userShares, err := sess.tokenAccount(ctx, u, h.addrs.ShareMint)
		if err != nil {
			return processor.Outcome{}, err
		}
		args := instruction.LiquidityArgs{Amount: st.Amount, BoundX: st.BoundX, BoundY: st.BoundY, Expiration: st.Expiration}
		if st.Op == OpDeposit {
			ix, err = instruction.NewDepositInstruction(r.exec.ProgramID(), u.key, h.addrs, userX, userY, userShares, args)
		} else {
			ix, err = instruction.NewWithdrawInstruction(r.exec.ProgramID(), u.key, h.addrs, userX, userY, userShares, args)
		}
		if err != nil {
			return processor.Outcome{}, err
		}
	case OpSwap:
		args := instruction.SwapArgs{IsX: st.Side == "x", Amount: st.Amount, MinOut: st.MinOut, Expiration: st.Expiration}
		if ix, err = instruction.NewSwapInstruction(r.exec.ProgramID(), u.key, h.addrs, userX, userY, args); err != nil {
			return processor.Outcome{}, err
		}
	}
	return r.execute(ctx, ix)
}

func (r *Runner) execute(ctx context.Context, ix types.Instruction) (processor.Outcome, error) {
	result, err := r.exec.Execute(ctx, ix)
	if result == nil {
		return processor.Outcome{}, err
	}
	return result.Amounts, err
}

// setState rewrites the lifecycle state of the pool at config as its owning program.
func setState(ctx context.Context, l *ledger.Ledger, programID, config solana.PublicKey, state pool.State) error {
	return l.Execute(ctx, programID, func(tx *ledger.Tx) error {
		info := tx.Resolve([]types.AccountMeta{types.NewAccountMeta(config, true, false)})[0]
		record, err := pool.UnmarshalRecord(info.Data())
		if err != nil {
			return err
		}
		if err := record.SetState(state); err != nil {
			return err
		}
		data, err := record.MarshalBinary()
		if err != nil {
			return err
		}
		return info.SetData(data)
	})
}

// classify maps an execution error onto an expectation name.
func classify(err error) string {
	if err == nil {
		return ExpectOK
	}
	if kind, ok := errors.KindOf(err); ok {
		return kind.String()
	}
	return "error"
}

func (w *Want) check(got processor.Outcome) string {
	fields := []struct {
		name string
		want *uint64
		got  uint64
	}{
		{"amount_x", w.AmountX, got.AmountX},
		{"amount_y", w.AmountY, got.AmountY},
		{"shares", w.Shares, got.Shares},
		{"amount_in", w.AmountIn, got.AmountIn},
		{"amount_out", w.AmountOut, got.AmountOut},
	}
	for _, f := range fields {
		if f.want != nil && *f.want != f.got {
			return fmt.Sprintf("%s = %d, want %d", f.name, f.got, *f.want)
		}
	}
	return ""
}
