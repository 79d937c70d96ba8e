package mysql

import (
	"context"
	"database/sql"
	"fmt"
)

type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger accounts",
		Up: `
		CREATE TABLE IF NOT EXISTS accounts (
			id VARCHAR(64) PRIMARY KEY,
			pubkey VARCHAR(64) UNIQUE NOT NULL,
			lamports BIGINT UNSIGNED NOT NULL,
			data LONGBLOB,
			owner VARCHAR(64) NOT NULL,
			executable BOOLEAN NOT NULL,
			rent_epoch BIGINT UNSIGNED NOT NULL,
			slot BIGINT UNSIGNED NOT NULL,
			updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_accounts_owner (owner),
			INDEX idx_accounts_slot (slot DESC)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
		`,
		Down: `
		DROP TABLE IF EXISTS accounts;
		`,
	},
	{
		Version:     2,
		Description: "Operation journal",
		Up: `
		CREATE TABLE IF NOT EXISTS operations (
			id VARCHAR(64) PRIMARY KEY,
			program_id VARCHAR(64) NOT NULL,
			tag VARCHAR(32) NOT NULL,
			pool VARCHAR(64) NOT NULL,
			user_key VARCHAR(64) NOT NULL,
			success BOOLEAN NOT NULL,
			error_code VARCHAR(64) NOT NULL DEFAULT '',
			error_message TEXT,
			amount_x BIGINT UNSIGNED NOT NULL,
			amount_y BIGINT UNSIGNED NOT NULL,
			shares BIGINT UNSIGNED NOT NULL,
			amount_in BIGINT UNSIGNED NOT NULL,
			amount_out BIGINT UNSIGNED NOT NULL,
			slot BIGINT UNSIGNED NOT NULL,
			unix_timestamp BIGINT NOT NULL,
			created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			INDEX idx_operations_pool (pool, created_at DESC),
			INDEX idx_operations_created_at (created_at DESC)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
		`,
		Down: `
		DROP TABLE IF EXISTS operations;
		`,
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

	for _, migration := range migrations {
		applied, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check if migration %d is applied: %w", migration.Version, err)
		}

		if applied {
			continue
		}

		if err := m.applyMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}

	}

	return nil
}

func (m *Migrator) Down(ctx context.Context, targetVersion int) error {
	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= targetVersion {
			break
		}

		applied, err := m.isMigrationApplied(ctx, migration.Version)
		if err != nil {
			return fmt.Errorf("failed to check if migration %d is applied: %w", migration.Version, err)
		}

		if !applied {
			continue
		}

		if err := m.revertMigration(ctx, migration); err != nil {
			return fmt.Errorf("failed to revert migration %d: %w", migration.Version, err)
		}

	}

	return nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		description VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

func (m *Migrator) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	query := `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`
	var count int
	err := m.db.QueryRowContext(ctx, query, version).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *Migrator) applyMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return err
	}

	insertQuery := `INSERT INTO schema_migrations (version, description) VALUES (?, ?)`
	if _, err := tx.ExecContext(ctx, insertQuery, migration.Version, migration.Description); err != nil {
		return err
	}

	return tx.Commit()
}

func (m *Migrator) revertMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
		return err
	}

	deleteQuery := `DELETE FROM schema_migrations WHERE version = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, migration.Version); err != nil {
		return err
	}

	return tx.Commit()
}
