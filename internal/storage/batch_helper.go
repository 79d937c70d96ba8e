package storage

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBatchHelper provides reusable batch operations for MongoDB.
type MongoBatchHelper[T any] struct {
	collection *mongo.Collection
}

// NewMongoBatchHelper creates a new MongoDB batch helper.
func NewMongoBatchHelper[T any](collection *mongo.Collection) *MongoBatchHelper[T] {
	return &MongoBatchHelper[T]{
		collection: collection,
	}
}

// UpsertMany replaces or inserts every item in one bulk write. filter selects
// the document an item replaces.
func (h *MongoBatchHelper[T]) UpsertMany(ctx context.Context, items []T, filter func(T) bson.M) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter(item)).
			SetUpdate(bson.M{"$set": item}).
			SetUpsert(true))
	}

	_, err := h.collection.BulkWrite(ctx, models)
	return err
}

// PostgresBatchHelper provides reusable batch operations for PostgreSQL.
type PostgresBatchHelper struct {
	pool *pgxpool.Pool
}

// NewPostgresBatchHelper creates a new PostgreSQL batch helper.
func NewPostgresBatchHelper(pool *pgxpool.Pool) *PostgresBatchHelper {
	return &PostgresBatchHelper{
		pool: pool,
	}
}

// BatchInsert performs batch insert with the given query and item processor.
func (h *PostgresBatchHelper) BatchInsert(
	ctx context.Context,
	items int,
	queueFunc func(batch *pgx.Batch, index int),
) error {
	if items == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := 0; i < items; i++ {
		queueFunc(batch, i)
	}

	br := h.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < items; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return br.Close()
}

// SQLBatchHelper runs one prepared statement per item inside a single
// database/sql transaction. MySQL and SQLite share it.
type SQLBatchHelper struct {
	db *sql.DB
}

func NewSQLBatchHelper(db *sql.DB) *SQLBatchHelper {
	return &SQLBatchHelper{
		db: db,
	}
}

func (h *SQLBatchHelper) BatchInsert(
	ctx context.Context,
	query string,
	items int,
	prepareFunc func(stmt *sql.Stmt, index int) error,
) error {
	if items == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < items; i++ {
		if err := prepareFunc(stmt, i); err != nil {
			return err
		}
	}

	return tx.Commit()
}
