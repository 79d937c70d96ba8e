package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type Migration struct {
	Version     int
	Description string
	Up          []string
	Down        []string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger accounts",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				pubkey TEXT UNIQUE NOT NULL,
				lamports INTEGER NOT NULL,
				data BLOB,
				owner TEXT NOT NULL,
				executable INTEGER NOT NULL,
				rent_epoch INTEGER NOT NULL,
				slot INTEGER NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_accounts_owner ON accounts(owner)`,
		},
		Down: []string{`DROP TABLE IF EXISTS accounts`},
	},
	{
		Version:     2,
		Description: "Operation journal",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS operations (
				seq INTEGER PRIMARY KEY AUTOINCREMENT,
				id TEXT UNIQUE NOT NULL,
				program_id TEXT NOT NULL,
				tag TEXT NOT NULL,
				pool TEXT NOT NULL,
				user_key TEXT NOT NULL,
				success INTEGER NOT NULL,
				error_code TEXT NOT NULL DEFAULT '',
				error_message TEXT NOT NULL DEFAULT '',
				amount_x INTEGER NOT NULL,
				amount_y INTEGER NOT NULL,
				shares INTEGER NOT NULL,
				amount_in INTEGER NOT NULL,
				amount_out INTEGER NOT NULL,
				slot INTEGER NOT NULL,
				unix_timestamp INTEGER NOT NULL,
				created_at TIMESTAMP NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_operations_pool ON operations(pool, seq DESC)`,
		},
		Down: []string{`DROP TABLE IF EXISTS operations`},
	},
}

type Migrator struct {
	db *sql.DB
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

func (m *Migrator) Up(ctx context.Context) error {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to ensure migrations table: %w", err)
	}

	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}
		if err := m.apply(ctx, migration.Up, `INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			migration.Version, migration.Description); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}
	return nil
}

// Down reverts every applied migration above targetVersion.
func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= targetVersion {
			break
		}
		if migration.Version > current {
			continue
		}
		if err := m.apply(ctx, migration.Down, `DELETE FROM schema_migrations WHERE version = ?`, migration.Version); err != nil {
			return fmt.Errorf("failed to revert migration %d: %w", migration.Version, err)
		}
	}
	return nil
}

func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (m *Migrator) apply(ctx context.Context, statements []string, record string, args ...any) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}
