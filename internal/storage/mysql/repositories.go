package mysql

import (
	"context"
	"database/sql"

	"github.com/lugondev/go-cpamm/internal/storage"
)

const accountColumns = `id, pubkey, lamports, data, owner, executable, rent_epoch, slot, updated_at, created_at`

const upsertAccount = `
	INSERT INTO accounts (` + accountColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		lamports = VALUES(lamports),
		data = VALUES(data),
		owner = VALUES(owner),
		executable = VALUES(executable),
		rent_epoch = VALUES(rent_epoch),
		slot = VALUES(slot),
		updated_at = VALUES(updated_at)
`

type rowScanner interface {
	Scan(dest ...any) error
}

type mysqlAccountRepository struct {
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

func (r *mysqlAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	_, err := r.db.ExecContext(ctx, upsertAccount,
		account.ID, account.Pubkey, account.Lamports, account.Data, account.Owner,
		account.Executable, account.RentEpoch, account.Slot, account.UpdatedAt, account.CreatedAt,
	)
	return err
}

func (r *mysqlAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	helper := storage.NewSQLBatchHelper(r.db)
	return helper.BatchInsert(ctx, upsertAccount, len(accounts), func(stmt *sql.Stmt, i int) error {
		account := accounts[i]
		_, err := stmt.ExecContext(ctx,
			account.ID, account.Pubkey, account.Lamports, account.Data, account.Owner,
			account.Executable, account.RentEpoch, account.Slot, account.UpdatedAt, account.CreatedAt,
		)
		return err
	})
}

func (r *mysqlAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE pubkey = ?`, pubkey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return account, err
}

func (r *mysqlAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE owner = ? ORDER BY pubkey LIMIT ? OFFSET ?`, owner, limit, offset)
}

func (r *mysqlAccountRepository) FindAll(ctx context.Context) ([]*storage.AccountModel, error) {
	return r.query(ctx, `SELECT `+accountColumns+` FROM accounts`)
}

func (r *mysqlAccountRepository) query(ctx context.Context, query string, args ...any) ([]*storage.AccountModel, error) {
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

func (r *mysqlAccountRepository) Delete(ctx context.Context, pubkey string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE pubkey = ?`, pubkey)
	return err
}

const operationColumns = `id, program_id, tag, pool, user_key, success, error_code, COALESCE(error_message, ''),
	amount_x, amount_y, shares, amount_in, amount_out, slot, unix_timestamp, created_at`

type mysqlOperationRepository struct {
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

func (r *mysqlOperationRepository) Save(ctx context.Context, op *storage.OperationModel) error {
	query := `
		INSERT INTO operations (id, program_id, tag, pool, user_key, success, error_code, error_message,
			amount_x, amount_y, shares, amount_in, amount_out, slot, unix_timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		op.ID, op.ProgramID, op.Tag, op.Pool, op.User, op.Success, op.ErrorCode, op.ErrorMessage,
		op.AmountX, op.AmountY, op.Shares, op.AmountIn, op.AmountOut, op.Slot, op.UnixTimestamp, op.CreatedAt,
	)
	return err
}

func (r *mysqlOperationRepository) FindByID(ctx context.Context, id string) (*storage.OperationModel, error) {
	op, err := scanOperation(r.db.QueryRowContext(ctx, `SELECT `+operationColumns+` FROM operations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return op, err
}

func (r *mysqlOperationRepository) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*storage.OperationModel, error) {
	return r.query(ctx, `SELECT `+operationColumns+` FROM operations WHERE pool = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`, pool, limit, offset)
}

func (r *mysqlOperationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.OperationModel, error) {
	return r.query(ctx, `SELECT `+operationColumns+` FROM operations ORDER BY created_at DESC LIMIT ?`, limit)
}

func (r *mysqlOperationRepository) query(ctx context.Context, query string, args ...any) ([]*storage.OperationModel, error) {
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
