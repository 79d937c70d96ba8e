// Package ledger provides the in-memory host runtime that the pool program executes on.
//
// A Ledger stores accounts keyed by address and runs every program call as one
// exclusive, all-or-nothing transaction: each account touched by a call is
// snapshotted before its first mutation and restored if the call fails. Committed
// changes can be flushed to a Store for persistence.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-cpamm/internal/common"
	"github.com/lugondev/go-cpamm/internal/errors"
	programlog "github.com/lugondev/go-cpamm/pkg/log"
	"github.com/lugondev/go-cpamm/pkg/types"
)

// Store persists committed account state.
type Store interface {
	// SaveAccounts upserts the accounts committed at slot. A nil account means
	// it was removed.
	SaveAccounts(ctx context.Context, slot uint64, accounts map[solana.PublicKey]*types.Account) error

	// LoadAccounts returns every persisted account.
	LoadAccounts(ctx context.Context) (map[solana.PublicKey]*types.Account, error)
}

// Clock is the ledger's notion of time.
type Clock struct {
	Slot          uint64 `json:"slot"`
	UnixTimestamp int64  `json:"unix_timestamp"`
}

// Ledger is an in-memory account store with transactional execution.
type Ledger struct {
	common.LoggerMixin

	mu       sync.Mutex
	accounts map[solana.PublicKey]*types.Account
	clock    Clock
	store    Store
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore flushes committed transactions to store.
func WithStore(store Store) Option {
	return func(l *Ledger) {
		l.store = store
	}
}

// WithClock sets the initial clock.
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithLogger sets the ledger logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.SetLogger(logger)
	}
}

// New creates an empty Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		LoggerMixin: common.NewLoggerMixin(),
		accounts:    make(map[solana.PublicKey]*types.Account),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore replaces the in-memory state with the store's contents.
func (l *Ledger) Restore(ctx context.Context) error {
	if l.store == nil {
		return nil
	}
	accounts, err := l.store.LoadAccounts(ctx)
	if err != nil {
		return errors.Wrap(err, "load accounts")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts = make(map[solana.PublicKey]*types.Account, len(accounts))
	for key, acct := range accounts {
		if acct != nil {
			l.accounts[key] = acct.Clone()
		}
	}
	l.GetLogger().Debug("ledger restored", "accounts", len(l.accounts))
	return nil
}

// Account returns a copy of the account stored at key.
func (l *Ledger) Account(key solana.PublicKey) (*types.Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[key]
	if !ok {
		return nil, false
	}
	return acct.Clone(), true
}

// Len returns the number of accounts.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.accounts)
}

// Clock returns the current clock.
func (l *Ledger) Clock() Clock {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.clock
}

// SetClock moves the ledger clock.
func (l *Ledger) SetClock(clock Clock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clock = clock
}

// Airdrop credits lamports to key, creating a system-owned account if needed.
func (l *Ledger) Airdrop(ctx context.Context, key solana.PublicKey, lamports uint64) error {
	return l.Execute(ctx, solana.SystemProgramID, func(tx *Tx) error {
		acct := tx.mutable(key)
		if acct.Lamports > ^uint64(0)-lamports {
			return errors.ErrOverflow
		}
		acct.Lamports += lamports
		return nil
	})
}

// Execute runs fn as one atomic transaction on behalf of program. Calls are
// serialised. If fn returns an error or the commit cannot be persisted, every
// account touched by fn is restored.
func (l *Ledger) Execute(ctx context.Context, program solana.PublicKey, fn func(tx *Tx) error) error {
	_, err := l.ExecuteLogged(ctx, program, fn)
	return err
}

// ExecuteLogged is Execute that also returns the transaction's log transcript,
// which is complete whether or not fn succeeded.
func (l *Ledger) ExecuteLogged(ctx context.Context, program solana.PublicKey, fn func(tx *Tx) error) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &Tx{
		ctx:       ctx,
		ledger:    l,
		stack:     []solana.PublicKey{program},
		originals: make(map[solana.PublicKey]*types.Account),
	}
	tx.logs.Invoke(program.String(), 1)

	err := l.run(tx, fn)
	if err != nil {
		tx.logs.Failed(program.String(), errors.Message(err))
	} else {
		tx.logs.Success(program.String())
	}
	return tx.logs.Lines(), err
}

func (l *Ledger) run(tx *Tx, fn func(tx *Tx) error) error {
	ctx := tx.ctx
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}

	if l.store != nil && len(tx.originals) > 0 {
		dirty := make(map[solana.PublicKey]*types.Account, len(tx.originals))
		for key := range tx.originals {
			dirty[key] = l.accounts[key].Clone()
		}
		if err := l.store.SaveAccounts(ctx, l.clock.Slot, dirty); err != nil {
			tx.rollback()
			return fmt.Errorf("persist transaction: %w", err)
		}
	}
	return nil
}

// Tx is a single in-flight transaction.
type Tx struct {
	ctx       context.Context
	ledger    *Ledger
	stack     []solana.PublicKey
	originals map[solana.PublicKey]*types.Account
	logs      programlog.Transcript
}

// Context returns the transaction context.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Program returns the program currently executing.
func (tx *Tx) Program() solana.PublicKey {
	return tx.stack[len(tx.stack)-1]
}

// Invoker returns the program that issued the current invocation. At the top
// level it is the executing program itself.
func (tx *Tx) Invoker() solana.PublicKey {
	if len(tx.stack) < 2 {
		return tx.Program()
	}
	return tx.stack[len(tx.stack)-2]
}

// Clock returns the clock as seen by the transaction.
func (tx *Tx) Clock() Clock {
	return tx.ledger.clock
}

// Invoke runs fn as a cross-program call into program.
func (tx *Tx) Invoke(program solana.PublicKey, fn func() error) error {
	tx.stack = append(tx.stack, program)
	tx.logs.Invoke(program.String(), len(tx.stack))
	defer func() {
		tx.stack = tx.stack[:len(tx.stack)-1]
	}()
	if err := fn(); err != nil {
		tx.logs.Failed(program.String(), errors.Message(err))
		return err
	}
	tx.logs.Success(program.String())
	return nil
}

// Log records a message from the executing program.
func (tx *Tx) Log(format string, args ...any) {
	tx.logs.Log(format, args...)
}

// EmitData records a binary event from the executing program.
func (tx *Tx) EmitData(payload []byte) {
	tx.logs.Data(payload)
}

// Resolve binds instruction metas to the ledger. Duplicate metas share the
// union of their privileges.
func (tx *Tx) Resolve(metas []types.AccountMeta) []*AccountInfo {
	signer := make(map[solana.PublicKey]bool, len(metas))
	writable := make(map[solana.PublicKey]bool, len(metas))
	for _, m := range metas {
		signer[m.Pubkey] = signer[m.Pubkey] || m.IsSigner
		writable[m.Pubkey] = writable[m.Pubkey] || m.IsWritable
	}

	infos := make([]*AccountInfo, len(metas))
	for i, m := range metas {
		infos[i] = &AccountInfo{
			Pubkey:     m.Pubkey,
			IsSigner:   signer[m.Pubkey],
			IsWritable: writable[m.Pubkey],
			tx:         tx,
		}
	}
	return infos
}

func (tx *Tx) account(key solana.PublicKey) (*types.Account, bool) {
	acct, ok := tx.ledger.accounts[key]
	return acct, ok
}

// mutable returns the live account at key, snapshotting it first and creating
// an empty system-owned account if none exists.
func (tx *Tx) mutable(key solana.PublicKey) *types.Account {
	acct, ok := tx.ledger.accounts[key]
	if _, seen := tx.originals[key]; !seen {
		if ok {
			tx.originals[key] = acct.Clone()
		} else {
			tx.originals[key] = nil
		}
	}
	if !ok {
		acct = &types.Account{Owner: solana.SystemProgramID}
		tx.ledger.accounts[key] = acct
	}
	return acct
}

func (tx *Tx) rollback() {
	for key, orig := range tx.originals {
		if orig == nil {
			delete(tx.ledger.accounts, key)
			continue
		}
		tx.ledger.accounts[key] = orig
	}
	tx.ledger.GetLogger().Debug("transaction rolled back", "accounts", len(tx.originals))
	tx.originals = make(map[solana.PublicKey]*types.Account)
}
