package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lugondev/go-cpamm/internal/storage"
)

const accountColumns = `id, pubkey, lamports, data, owner, executable, rent_epoch, slot, updated_at, created_at`

const upsertAccount = `
	INSERT INTO accounts (` + accountColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (pubkey) DO UPDATE SET
		lamports = $3, data = $4, owner = $5, executable = $6, rent_epoch = $7, slot = $8, updated_at = $9
`

type postgresAccountRepository struct {
	pool *pgxpool.Pool
}

func scanAccount(row pgx.Row) (*storage.AccountModel, error) {
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

func (r *postgresAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	_, err := r.pool.Exec(ctx, upsertAccount,
		account.ID, account.Pubkey, account.Lamports, account.Data, account.Owner,
		account.Executable, account.RentEpoch, account.Slot, account.UpdatedAt, account.CreatedAt,
	)
	return err
}

func (r *postgresAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	helper := storage.NewPostgresBatchHelper(r.pool)
	return helper.BatchInsert(ctx, len(accounts), func(batch *pgx.Batch, i int) {
		account := accounts[i]
		batch.Queue(upsertAccount,
			account.ID, account.Pubkey, account.Lamports, account.Data, account.Owner,
			account.Executable, account.RentEpoch, account.Slot, account.UpdatedAt, account.CreatedAt,
		)
	})
}

func (r *postgresAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	return QueryOne(r.pool, ctx, `SELECT `+accountColumns+` FROM accounts WHERE pubkey = $1`, scanAccount, pubkey)
}

func (r *postgresAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	return QueryMany(r.pool, ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner = $1 ORDER BY pubkey LIMIT $2 OFFSET $3`,
		scanAccount, owner, limit, offset)
}

func (r *postgresAccountRepository) FindAll(ctx context.Context) ([]*storage.AccountModel, error) {
	return QueryMany(r.pool, ctx, `SELECT `+accountColumns+` FROM accounts`, scanAccount)
}

func (r *postgresAccountRepository) Delete(ctx context.Context, pubkey string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE pubkey = $1`, pubkey)
	return err
}

const operationColumns = `id, program_id, tag, pool, user_key, success, COALESCE(error_code, ''), COALESCE(error_message, ''),
	amount_x, amount_y, shares, amount_in, amount_out, slot, unix_timestamp, created_at`

type postgresOperationRepository struct {
	pool *pgxpool.Pool
}

func scanOperation(row pgx.Row) (*storage.OperationModel, error) {
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

func (r *postgresOperationRepository) Save(ctx context.Context, op *storage.OperationModel) error {
	query := `
		INSERT INTO operations (id, program_id, tag, pool, user_key, success, error_code, error_message,
			amount_x, amount_y, shares, amount_in, amount_out, slot, unix_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.pool.Exec(ctx, query,
		op.ID, op.ProgramID, op.Tag, op.Pool, op.User, op.Success, op.ErrorCode, op.ErrorMessage,
		op.AmountX, op.AmountY, op.Shares, op.AmountIn, op.AmountOut, op.Slot, op.UnixTimestamp, op.CreatedAt,
	)
	return err
}

func (r *postgresOperationRepository) FindByID(ctx context.Context, id string) (*storage.OperationModel, error) {
	return QueryOne(r.pool, ctx, `SELECT `+operationColumns+` FROM operations WHERE id = $1`, scanOperation, id)
}

func (r *postgresOperationRepository) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*storage.OperationModel, error) {
	return QueryMany(r.pool, ctx,
		`SELECT `+operationColumns+` FROM operations WHERE pool = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		scanOperation, pool, limit, offset)
}

func (r *postgresOperationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.OperationModel, error) {
	return QueryMany(r.pool, ctx,
		`SELECT `+operationColumns+` FROM operations ORDER BY created_at DESC LIMIT $1`,
		scanOperation, limit)
}
