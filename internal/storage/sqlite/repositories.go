package sqlite

import (
	"context"
	"database/sql"

	"github.com/lugondev/go-cpamm/internal/storage"
)

const accountColumns = `id, pubkey, lamports, data, owner, executable, rent_epoch, slot, updated_at, created_at`

const upsertAccount = `
	INSERT INTO accounts (` + accountColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (pubkey) DO UPDATE SET
		lamports = excluded.lamports,
		data = excluded.data,
		owner = excluded.owner,
		executable = excluded.executable,
		rent_epoch = excluded.rent_epoch,
		slot = excluded.slot,
		updated_at = excluded.updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

type sqliteAccountRepository struct {
	db *sql.DB
}

func scanAccount(row rowScanner) (*storage.AccountModel, error) {
	var account storage.AccountModel
	err := row.Scan(
		&account.ID, &account.Pubkey, &account.Lamports, &account.Data, &account.Owner,
		&account.Executable, &account.RentEpoch, &account.Slot, &account.UpdatedAt, &account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *sqliteAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	return r.SaveBatch(ctx, []*storage.AccountModel{account})
}

func (r *sqliteAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	helper := storage.NewSQLBatchHelper(r.db)
	return helper.BatchInsert(ctx, upsertAccount, len(accounts), func(stmt *sql.Stmt, i int) error {
		account := accounts[i]
		_, err := stmt.ExecContext(ctx,
			account.ID, account.Pubkey, int64(account.Lamports), account.Data, account.Owner,
			account.Executable, int64(account.RentEpoch), int64(account.Slot), account.UpdatedAt, account.CreatedAt,
		)
		return err
	})
}

func (r *sqliteAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE pubkey = ?`, pubkey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return account, err
}

func (r *sqliteAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner = ? ORDER BY pubkey LIMIT ? OFFSET ?`, owner, limit, offset)
}

func (r *sqliteAccountRepository) FindAll(ctx context.Context) ([]*storage.AccountModel, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts`)
}

func (r *sqliteAccountRepository) query(ctx context.Context, query string, args ...any) ([]*storage.AccountModel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*storage.AccountModel
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *sqliteAccountRepository) Delete(ctx context.Context, pubkey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE pubkey = ?`, pubkey)
	return err
}

const operationColumns = `id, program_id, tag, pool, user_key, success, error_code, error_message,
	amount_x, amount_y, shares, amount_in, amount_out, slot, unix_timestamp, created_at`

type sqliteOperationRepository struct {
	db *sql.DB
}

func scanOperation(row rowScanner) (*storage.OperationModel, error) {
	var op storage.OperationModel
	err := row.Scan(
		&op.ID, &op.ProgramID, &op.Tag, &op.Pool, &op.User, &op.Success, &op.ErrorCode, &op.ErrorMessage,
		&op.AmountX, &op.AmountY, &op.Shares, &op.AmountIn, &op.AmountOut, &op.Slot, &op.UnixTimestamp, &op.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *sqliteOperationRepository) Save(ctx context.Context, op *storage.OperationModel) error {
	query := `
		INSERT INTO operations (` + operationColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		op.ID, op.ProgramID, op.Tag, op.Pool, op.User, op.Success, op.ErrorCode, op.ErrorMessage,
		int64(op.AmountX), int64(op.AmountY), int64(op.Shares), int64(op.AmountIn), int64(op.AmountOut),
		int64(op.Slot), op.UnixTimestamp, op.CreatedAt,
	)
	return err
}

func (r *sqliteOperationRepository) FindByID(ctx context.Context, id string) (*storage.OperationModel, error) {
	op, err := scanOperation(r.db.QueryRowContext(ctx, `SELECT `+operationColumns+` FROM operations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return op, err
}

func (r *sqliteOperationRepository) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*storage.OperationModel, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(ctx, `SELECT `+operationColumns+` FROM operations WHERE pool = ? ORDER BY seq DESC LIMIT ? OFFSET ?`, pool, limit, offset)
}

func (r *sqliteOperationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.OperationModel, error) {
	if limit <= 0 {
		limit = -1
	}
	return r.query(ctx, `SELECT `+operationColumns+` FROM operations ORDER BY seq DESC LIMIT ?`, limit)
}

func (r *sqliteOperationRepository) query(ctx context.Context, query string, args ...any) ([]*storage.OperationModel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*storage.OperationModel
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}
