// Package sqlite stores ledger accounts and the operation journal in an
// embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/lugondev/go-cpamm/internal/config"
	"github.com/lugondev/go-cpamm/internal/storage"
)

func init() {
	storage.RegisterSQLiteFactory(func(ctx context.Context, cfg *config.SQLiteConfig) (storage.Repository, error) {
		return NewSQLiteRepository(ctx, cfg)
	})
}

type SQLiteRepository struct {
	db            *sql.DB
	accountRepo   storage.AccountRepository
	operationRepo storage.OperationRepository
}

func NewSQLiteRepository(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteRepository, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; also keeps a :memory: database on a single connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := &SQLiteRepository{
		db:            db,
		accountRepo:   &sqliteAccountRepository{db: db},
		operationRepo: &sqliteOperationRepository{db: db},
	}

	if err := NewMigrator(db).Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

func (r *SQLiteRepository) Operations() storage.OperationRepository {
	return r.operationRepo
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
