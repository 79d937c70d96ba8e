package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/lugondev/go-cpamm/internal/config"
	"github.com/lugondev/go-cpamm/internal/storage"
)

type MongoRepository struct {
	client        *mongo.Client
	database      *mongo.Database
	accounts      *mongo.Collection
	operations    *mongo.Collection
	accountRepo   storage.AccountRepository
	operationRepo storage.OperationRepository
}

func NewMongoRepository(ctx context.Context, cfg *config.MongoDBConfig) (*MongoRepository, error) {
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetConnectTimeout(time.Duration(cfg.ConnectTimeout) * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	repo := &MongoRepository{
		client:     client,
		database:   database,
		accounts:   database.Collection("accounts"),
		operations: database.Collection("operations"),
	}

	repo.accountRepo = &mongoAccountRepository{collection: repo.accounts}
	repo.operationRepo = &mongoOperationRepository{collection: repo.operations}

	if err := repo.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return repo, nil
}

func (r *MongoRepository) createIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{
			collection: r.accounts,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "pubkey", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "owner", Value: 1}}},
			},
		},
		{
			collection: r.operations,
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "pool", Value: 1}, {Key: "created_at", Value: -1}}},
				{Keys: bson.D{{Key: "created_at", Value: -1}}},
			},
		},
	}

	for _, idx := range indexes {
		if _, err := idx.collection.Indexes().CreateMany(ctx, idx.models); err != nil {
			return err
		}
	}

	return nil
}

func (r *MongoRepository) Accounts() storage.AccountRepository {
	return r.accountRepo
}

func (r *MongoRepository) Operations() storage.OperationRepository {
	return r.operationRepo
}

func (r *MongoRepository) Close() error {
	if r.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return r.client.Disconnect(ctx)
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}
