package processor

import (
	"context"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/common"
	"github.com/lugondev/go-cpamm/internal/curve"
	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/metrics"
	"github.com/lugondev/go-cpamm/internal/pool"
	"github.com/lugondev/go-cpamm/internal/token"
	"github.com/lugondev/go-cpamm/pkg/view"
)

// Call binds a checked request to the transaction it executes in. Processors
// fill Outcome with what moved.
type Call[R any] struct {
	Tx      *ledger.Tx
	Request R
	Outcome Outcome
}

// NewCall creates a Call for req inside tx.
func NewCall[R any](tx *ledger.Tx, req R) *Call[R] {
	return &Call[R]{Tx: tx, Request: req}
}

// Outcome describes the token movements of one operation. Swaps also report
// their legs by role in AmountIn and AmountOut.
type Outcome struct {
	Pool      solana.PublicKey `json:"pool"`
	AmountX   uint64           `json:"amount_x,omitempty"`
	AmountY   uint64           `json:"amount_y,omitempty"`
	Shares    uint64           `json:"shares,omitempty"`
	AmountIn  uint64           `json:"amount_in,omitempty"`
	AmountOut uint64           `json:"amount_out,omitempty"`
}

// InitializeProcessor creates a pool: its config record and its share mint.
type InitializeProcessor struct {
	common.LoggerMixin
}

// NewInitializeProcessor creates an InitializeProcessor.
func NewInitializeProcessor(logger *slog.Logger) *InitializeProcessor {
	p := &InitializeProcessor{LoggerMixin: common.NewLoggerMixin()}
	p.SetLogger(logger)
	return p
}

// Process implements Processor.
func (p *InitializeProcessor) Process(ctx context.Context, call *Call[*instruction.InitializeRequest], m *metrics.Collection) error {
	tx, req := call.Tx, call.Request
	tx.Log("Instruction: Initialize")

	if req.Config.Exists() {
		return errors.ErrAccountAlreadyInitialized.Withf("pool config %s already exists", req.Config.Pubkey)
	}
	if err := tx.CreateAccount(req.Initializer, req.Config, req.Custody, pool.RecordLen, tx.Program()); err != nil {
		return err
	}

	record := &pool.Record{
		State:       pool.StateInitialized,
		Seed:        req.Args.Seed,
		Authority:   req.Args.Authority,
		MintX:       req.Args.MintX,
		MintY:       req.Args.MintY,
		FeeBps:      req.Args.FeeBps,
		CustodyBump: req.Args.CustodyBump,
	}
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}
	if err := req.Config.SetData(data); err != nil {
		return err
	}

	if err := token.CreateMint(tx, req.Initializer, req.ShareMint, req.ShareMintSigner, pool.ShareDecimals, req.Custody.Key()); err != nil {
		return err
	}

	call.Outcome = Outcome{Pool: req.Config.Pubkey}
	emit(tx, &InitializeEvent{Pool: req.Config.Pubkey, MintX: record.MintX, MintY: record.MintY, FeeBps: record.FeeBps})
	_ = m.IncrementCounter(ctx, metrics.MetricPoolsInitialized, 1)
	p.GetLogger().Info("pool initialized",
		"pool", req.Config.Pubkey.String(),
		"mint_x", record.MintX.String(),
		"mint_y", record.MintY.String(),
		"fee_bps", record.FeeBps,
	)
	return nil
}

// DepositProcessor adds liquidity and mints pool shares.
type DepositProcessor struct {
	common.LoggerMixin
}

// NewDepositProcessor creates a DepositProcessor.
func NewDepositProcessor(logger *slog.Logger) *DepositProcessor {
	p := &DepositProcessor{LoggerMixin: common.NewLoggerMixin()}
	p.SetLogger(logger)
	return p
}

// Process implements Processor.
func (p *DepositProcessor) Process(ctx context.Context, call *Call[*instruction.LiquidityRequest], m *metrics.Collection) error {
	tx, req := call.Tx, call.Request
	args := req.Args
	tx.Log("Instruction: Deposit")

	x, y, l, err := liveBalances(req.VaultX, req.VaultY, req.ShareMint)
	if err != nil {
		return err
	}

	var dx, dy uint64
	if l == 0 && x == 0 && y == 0 {
		shares, err := curve.InitialShares(args.BoundX, args.BoundY)
		if err != nil {
			return errors.InvalidData(err)
		}
		if args.Amount != shares {
			return errors.ErrInvalidInstructionData.Withf("first deposit must request %d shares, got %d", shares, args.Amount)
		}
		dx, dy = args.BoundX, args.BoundY
	} else {
		if dx, dy, err = curve.DepositAmounts(x, y, l, args.Amount); err != nil {
			return errors.InvalidData(err)
		}
		if dx > args.BoundX || dy > args.BoundY {
			_ = m.IncrementCounter(ctx, metrics.MetricSlippageRejections, 1)
			return errors.ErrSlippageExceeded.Withf("deposit needs (%d, %d), allowed (%d, %d)", dx, dy, args.BoundX, args.BoundY)
		}
	}

	if err := token.Transfer(tx, req.UserX, req.VaultX, req.User, dx); err != nil {
		return err
	}
	if err := token.Transfer(tx, req.UserY, req.VaultY, req.User, dy); err != nil {
		return err
	}
	if err := token.MintTo(tx, req.ShareMint, req.UserShares, req.Custody, args.Amount); err != nil {
		return err
	}

	call.Outcome = Outcome{Pool: req.Config.Pubkey, AmountX: dx, AmountY: dy, Shares: args.Amount}
	emit(tx, &LiquidityEvent{Pool: req.Config.Pubkey, User: req.User.Pubkey, Deposit: true, AmountX: dx, AmountY: dy, Shares: args.Amount})
	_ = m.IncrementCounter(ctx, metrics.MetricDepositsProcessed, 1)
	_ = m.IncrementCounter(ctx, metrics.MetricSharesMinted, args.Amount)
	p.GetLogger().Debug("deposit processed",
		"pool", req.Config.Pubkey.String(),
		"user", req.User.Pubkey.String(),
		"x", dx, "y", dy, "shares", args.Amount,
	)
	return nil
}

// WithdrawProcessor burns pool shares and returns the matching reserves.
type WithdrawProcessor struct {
	common.LoggerMixin
}

// NewWithdrawProcessor creates a WithdrawProcessor.
func NewWithdrawProcessor(logger *slog.Logger) *WithdrawProcessor {
	p := &WithdrawProcessor{LoggerMixin: common.NewLoggerMixin()}
	p.SetLogger(logger)
	return p
}

// Process implements Processor.
func (p *WithdrawProcessor) Process(ctx context.Context, call *Call[*instruction.LiquidityRequest], m *metrics.Collection) error {
	tx, req := call.Tx, call.Request
	args := req.Args
	tx.Log("Instruction: Withdraw")

	x, y, l, err := liveBalances(req.VaultX, req.VaultY, req.ShareMint)
	if err != nil {
		return err
	}

	var wx, wy uint64
	if args.Amount == l {
		wx, wy = x, y
	} else {
		if wx, wy, err = curve.WithdrawAmounts(x, y, l, args.Amount); err != nil {
			return errors.InvalidData(err)
		}
	}
	if wx < args.BoundX || wy < args.BoundY {
		_ = m.IncrementCounter(ctx, metrics.MetricSlippageRejections, 1)
		return errors.ErrSlippageExceeded.Withf("withdrawal yields (%d, %d), required (%d, %d)", wx, wy, args.BoundX, args.BoundY)
	}

	if err := token.Transfer(tx, req.VaultX, req.UserX, req.Custody, wx); err != nil {
		return err
	}
	if err := token.Transfer(tx, req.VaultY, req.UserY, req.Custody, wy); err != nil {
		return err
	}
	if err := token.Burn(tx, req.UserShares, req.ShareMint, req.User, args.Amount); err != nil {
		return err
	}

	call.Outcome = Outcome{Pool: req.Config.Pubkey, AmountX: wx, AmountY: wy, Shares: args.Amount}
	emit(tx, &LiquidityEvent{Pool: req.Config.Pubkey, User: req.User.Pubkey, AmountX: wx, AmountY: wy, Shares: args.Amount})
	_ = m.IncrementCounter(ctx, metrics.MetricWithdrawalsProcessed, 1)
	_ = m.IncrementCounter(ctx, metrics.MetricSharesBurned, args.Amount)
	p.GetLogger().Debug("withdrawal processed",
		"pool", req.Config.Pubkey.String(),
		"user", req.User.Pubkey.String(),
		"x", wx, "y", wy, "shares", args.Amount,
	)
	return nil
}

// SwapProcessor trades one pool asset for the other.
type SwapProcessor struct {
	common.LoggerMixin
}

// NewSwapProcessor creates a SwapProcessor.
func NewSwapProcessor(logger *slog.Logger) *SwapProcessor {
	p := &SwapProcessor{LoggerMixin: common.NewLoggerMixin()}
	p.SetLogger(logger)
	return p
}

// Process implements Processor.
func (p *SwapProcessor) Process(ctx context.Context, call *Call[*instruction.SwapRequest], m *metrics.Collection) error {
	tx, req := call.Tx, call.Request
	args := req.Args
	tx.Log("Instruction: Swap")

	userIn, userOut := req.UserY, req.UserX
	vaultIn, vaultOut := req.VaultY, req.VaultX
	if args.IsX {
		userIn, userOut = req.UserX, req.UserY
		vaultIn, vaultOut = req.VaultX, req.VaultY
	}

	reserveIn, err := view.TokenAccountAmount(vaultIn.Data())
	if err != nil {
		return errors.ErrInvalidAccountData.Wrap(err)
	}
	reserveOut, err := view.TokenAccountAmount(vaultOut.Data())
	if err != nil {
		return errors.ErrInvalidAccountData.Wrap(err)
	}

	out, err := curve.SwapOutput(reserveIn, reserveOut, args.Amount, req.Record.FeeBps)
	if err != nil {
		return errors.InvalidData(err)
	}
	if out < args.MinOut {
		_ = m.IncrementCounter(ctx, metrics.MetricSlippageRejections, 1)
		return errors.ErrSlippageExceeded.Withf("swap yields %d, minimum %d", out, args.MinOut)
	}
	if out == 0 {
		return errors.ErrInvalidArgument.Withf("swap of %d yields nothing", args.Amount)
	}

	if err := token.Transfer(tx, userIn, vaultIn, req.User, args.Amount); err != nil {
		return err
	}
	if err := token.Transfer(tx, vaultOut, userOut, req.Custody, out); err != nil {
		return err
	}

	call.Outcome = Outcome{Pool: req.Config.Pubkey, AmountIn: args.Amount, AmountOut: out}
	if args.IsX {
		call.Outcome.AmountX, call.Outcome.AmountY = args.Amount, out
	} else {
		call.Outcome.AmountX, call.Outcome.AmountY = out, args.Amount
	}
	emit(tx, &SwapEvent{Pool: req.Config.Pubkey, User: req.User.Pubkey, IsX: args.IsX, AmountIn: args.Amount, AmountOut: out})
	_ = m.IncrementCounter(ctx, metrics.MetricSwapsProcessed, 1)
	_ = m.IncrementCounter(ctx, metrics.MetricSwapVolumeIn, args.Amount)
	_ = m.IncrementCounter(ctx, metrics.MetricSwapVolumeOut, out)
	p.GetLogger().Debug("swap processed",
		"pool", req.Config.Pubkey.String(),
		"user", req.User.Pubkey.String(),
		"x_to_y", args.IsX, "in", args.Amount, "out", out,
	)
	return nil
}

// liveBalances reads the vault reserves and the outstanding share supply.
func liveBalances(vaultX, vaultY, shareMint *ledger.AccountInfo) (x, y, l uint64, err error) {
	if x, err = view.TokenAccountAmount(vaultX.Data()); err != nil {
		return 0, 0, 0, errors.ErrInvalidAccountData.Wrap(err)
	}
	if y, err = view.TokenAccountAmount(vaultY.Data()); err != nil {
		return 0, 0, 0, errors.ErrInvalidAccountData.Wrap(err)
	}
	if l, err = view.MintSupply(shareMint.Data()); err != nil {
		return 0, 0, 0, errors.ErrInvalidAccountData.Wrap(err)
	}
	return x, y, l, nil
}
