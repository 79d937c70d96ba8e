// Package program is the pool program entrypoint.
//
// An Executor receives raw instructions, checks they are addressed to the pool
// program and runs each one as a single ledger transaction: the payload tag
// selects a decoder and processor, and any failure rolls the transaction back
// so no partial effects remain. Every call, successful or not, produces a
// Result and, when a journal is configured, an operation record.
package program

import (
	"context"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/lugondev/go-cpamm/internal/common"
	"github.com/lugondev/go-cpamm/internal/errors"
	"github.com/lugondev/go-cpamm/internal/instruction"
	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/metrics"
	"github.com/lugondev/go-cpamm/internal/processor"
	"github.com/lugondev/go-cpamm/internal/storage"
	programlog "github.com/lugondev/go-cpamm/pkg/log"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// Result describes one executed call.
type Result struct {
	ID            uuid.UUID         `json:"id"`
	Tag           instruction.Tag   `json:"tag"`
	Pool          solana.PublicKey  `json:"pool"`
	User          solana.PublicKey  `json:"user"`
	Amounts       processor.Outcome `json:"amounts"`
	Slot          uint64            `json:"slot"`
	UnixTimestamp int64             `json:"unix_timestamp"`
	Logs          []string          `json:"logs,omitempty"`
	Events        []any             `json:"events,omitempty"`
	Error         string            `json:"error,omitempty"`
}

// operation is the dispatch unit handed to a tag handler.
type operation struct {
	tx       *ledger.Tx
	accounts []*ledger.AccountInfo
	payload  []byte
	outcome  processor.Outcome
}

// Executor dispatches pool instructions onto a ledger.
type Executor struct {
	common.LoggerMixin

	programID solana.PublicKey
	ledger    *ledger.Ledger
	decoder   *instruction.Decoder
	metrics   *metrics.Collection
	journal   storage.OperationRepository
	handlers  map[instruction.Tag]processor.Processor[*operation]
}

// Option configures an Executor.
type Option func(*Executor)

// WithMetrics records engine metrics into m.
func WithMetrics(m *metrics.Collection) Option {
	return func(e *Executor) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithJournal records every call in journal.
func WithJournal(journal storage.OperationRepository) Option {
	return func(e *Executor) {
		e.journal = journal
	}
}

// WithLogger sets the executor and processor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.SetLogger(logger)
	}
}

// WithEnforceExpiration toggles rejection of expired deposit, withdraw and swap
// requests. It is on by default.
func WithEnforceExpiration(enforce bool) Option {
	return func(e *Executor) {
		e.decoder.EnforceExpiration = enforce
	}
}

// New creates an Executor for the pool program at programID running on l.
func New(programID solana.PublicKey, l *ledger.Ledger, opts ...Option) *Executor {
	e := &Executor{
		LoggerMixin: common.NewLoggerMixin(),
		programID:   programID,
		ledger:      l,
		decoder:     instruction.NewDecoder(programID, true),
		metrics:     metrics.NewCollection(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.registerHandlers()
	return e
}

// ProgramID returns the pool program address.
func (e *Executor) ProgramID() solana.PublicKey {
	return e.programID
}

// Ledger returns the ledger the executor runs on.
func (e *Executor) Ledger() *ledger.Ledger {
	return e.ledger
}

func (e *Executor) registerHandlers() {
	logger := e.GetLogger()
	d := e.decoder

	e.handlers = map[instruction.Tag]processor.Processor[*operation]{
		instruction.TagInitialize: handle[*instruction.InitializeRequest](func(op *operation) (*instruction.InitializeRequest, error) {
			return d.DecodeInitialize(op.accounts, op.payload)
		}, processor.NewInitializeProcessor(logger)),
		instruction.TagDeposit: handle[*instruction.LiquidityRequest](func(op *operation) (*instruction.LiquidityRequest, error) {
			return d.DecodeLiquidity(op.tx, instruction.TagDeposit, op.accounts, op.payload)
		}, processor.NewDepositProcessor(logger)),
		instruction.TagWithdraw: handle[*instruction.LiquidityRequest](func(op *operation) (*instruction.LiquidityRequest, error) {
			return d.DecodeLiquidity(op.tx, instruction.TagWithdraw, op.accounts, op.payload)
		}, processor.NewWithdrawProcessor(logger)),
		instruction.TagSwap: handle[*instruction.SwapRequest](func(op *operation) (*instruction.SwapRequest, error) {
			return d.DecodeSwap(op.tx, op.accounts, op.payload)
		}, processor.NewSwapProcessor(logger)),
	}

	for tag, h := range e.handlers {
		e.handlers[tag] = processor.NewErrorHandlingProcessor(h, e.onError(tag))
	}
}

// handle binds a decoder to the processor consuming its requests.
func handle[R any](decode func(op *operation) (R, error), p processor.Processor[*processor.Call[R]]) processor.Processor[*operation] {
	return processor.ProcessorFunc[*operation](func(ctx context.Context, op *operation, m *metrics.Collection) error {
		req, err := decode(op)
		if err != nil {
			return err
		}
		call := processor.NewCall(op.tx, req)
		if err := p.Process(ctx, call, m); err != nil {
			return err
		}
		op.outcome = call.Outcome
		return nil
	})
}

func (e *Executor) onError(tag instruction.Tag) func(error) error {
	return func(err error) error {
		kind, _ := errors.KindOf(err)
		e.GetLogger().Debug("operation rejected",
			"tag", tag.String(),
			"kind", kind.String(),
			"error", err,
		)
		return err
	}
}

// Execute runs ix as one atomic transaction. The returned Result is non-nil
// even when the call fails, carrying the log transcript and the error text.
func (e *Executor) Execute(ctx context.Context, ix types.Instruction) (*Result, error) {
	start := time.Now()
	_ = e.metrics.IncrementCounter(ctx, metrics.MetricOperationsReceived, 1)

	result := &Result{ID: uuid.New()}
	if len(ix.Data) > 0 {
		result.Tag = instruction.Tag(ix.Data[0])
	}
	if len(ix.Accounts) > 0 {
		result.User = ix.Accounts[0].Pubkey
	}
	if idx, ok := instruction.ConfigIndex(result.Tag); ok && idx < len(ix.Accounts) {
		result.Pool = ix.Accounts[idx].Pubkey
	}

	err := e.dispatch(ctx, ix, result)

	clock := e.ledger.Clock()
	result.Slot, result.UnixTimestamp = clock.Slot, clock.UnixTimestamp
	_ = e.metrics.RecordHistogram(ctx, metrics.MetricOperationsProcessTimeSeconds, time.Since(start).Seconds())

	if err != nil {
		result.Error = errors.Message(err)
		_ = e.metrics.IncrementCounter(ctx, metrics.MetricOperationsFailed, 1)
	} else {
		_ = e.metrics.IncrementCounter(ctx, metrics.MetricOperationsProcessed, 1)
		e.GetLogger().Info("operation executed",
			"id", result.ID.String(),
			"tag", result.Tag.String(),
			"pool", result.Pool.String(),
		)
	}

	e.record(ctx, result, err)
	return result, err
}

func (e *Executor) dispatch(ctx context.Context, ix types.Instruction, result *Result) error {
	if !ix.ProgramID.Equals(e.programID) {
		return errors.ErrIncorrectProgramID.Withf("instruction addressed to %s, not %s", ix.ProgramID, e.programID)
	}
	if len(ix.Data) == 0 {
		return errors.ErrInvalidInstructionData.Withf("empty instruction data")
	}
	h, ok := e.handlers[result.Tag]
	if !ok {
		return errors.ErrInvalidInstructionData.Withf("unknown instruction tag %d", ix.Data[0])
	}

	logs, err := e.ledger.ExecuteLogged(ctx, e.programID, func(tx *ledger.Tx) error {
		op := &operation{
			tx:       tx,
			accounts: tx.Resolve(ix.Accounts),
			payload:  ix.Data[1:],
		}
		if err := h.Process(ctx, op, e.metrics); err != nil {
			return err
		}
		result.Amounts = op.outcome
		if !op.outcome.Pool.IsZero() {
			result.Pool = op.outcome.Pool
		}
		return nil
	})
	result.Logs = logs
	if err == nil {
		result.Events = e.events(logs)
	}
	return err
}

// events decodes the events emitted directly by the pool program.
func (e *Executor) events(logs []string) []any {
	parser := programlog.NewParser()
	var events []any
	for _, data := range parser.ExtractProgramData(parser.FilterByInstructionPath(logs, programlog.InstructionPath{0})) {
		ev, err := processor.DecodeEvent(data)
		if err != nil {
			e.GetLogger().Warn("undecodable program data", "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events
}

// record writes the journal entry for result. Journal failures are logged and
// counted but never fail the call, which has already committed.
func (e *Executor) record(ctx context.Context, result *Result, err error) {
	if e.journal == nil {
		return
	}

	op := &storage.OperationModel{
		ID:            result.ID.String(),
		ProgramID:     e.programID.String(),
		Tag:           result.Tag.String(),
		Pool:          result.Pool.String(),
		User:          result.User.String(),
		Success:       err == nil,
		AmountX:       result.Amounts.AmountX,
		AmountY:       result.Amounts.AmountY,
		Shares:        result.Amounts.Shares,
		AmountIn:      result.Amounts.AmountIn,
		AmountOut:     result.Amounts.AmountOut,
		Slot:          result.Slot,
		UnixTimestamp: result.UnixTimestamp,
		CreatedAt:     time.Now().UTC(),
	}
	if err != nil {
		op.ErrorCode = ErrorCode(err)
		op.ErrorMessage = errors.Message(err)
	}

	if jerr := e.journal.Save(ctx, op); jerr != nil {
		_ = e.metrics.IncrementCounter(ctx, metrics.MetricJournalWriteFailures, 1)
		e.GetLogger().Warn("journal write failed", "id", op.ID, "error", jerr)
	}
}

// ErrorCode returns the program error code of err, or "INTERNAL" for errors
// raised outside the program.
func ErrorCode(err error) string {
	var pe *errors.ProgramError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "INTERNAL"
}
