package storage

import (
	"context"
	"fmt"

	"github.com/lugondev/go-cpamm/internal/config"
)

var (
	mongoFactory    func(context.Context, *config.MongoDBConfig) (Repository, error)
	postgresFactory func(context.Context, *config.PostgresConfig) (Repository, error)
	mysqlFactory    func(context.Context, *config.MySQLConfig) (Repository, error)
	sqliteFactory   func(context.Context, *config.SQLiteConfig) (Repository, error)
)

func RegisterMongoFactory(factory func(context.Context, *config.MongoDBConfig) (Repository, error)) {
	mongoFactory = factory
}

func RegisterPostgresFactory(factory func(context.Context, *config.PostgresConfig) (Repository, error)) {
	postgresFactory = factory
}

func RegisterMySQLFactory(factory func(context.Context, *config.MySQLConfig) (Repository, error)) {
	mysqlFactory = factory
}

func RegisterSQLiteFactory(factory func(context.Context, *config.SQLiteConfig) (Repository, error)) {
	sqliteFactory = factory
}

func NewMongoRepositoryFromConfig(ctx context.Context, cfg *config.MongoDBConfig) (Repository, error) {
	if mongoFactory == nil {
		return nil, fmt.Errorf("mongo factory not registered - import _ \"github.com/lugondev/go-cpamm/internal/storage/mongo\"")
	}
	return mongoFactory(ctx, cfg)
}

func NewPostgresRepositoryFromConfig(ctx context.Context, cfg *config.PostgresConfig) (Repository, error) {
	if postgresFactory == nil {
		return nil, fmt.Errorf("postgres factory not registered - import _ \"github.com/lugondev/go-cpamm/internal/storage/postgres\"")
	}
	return postgresFactory(ctx, cfg)
}

func NewMySQLRepositoryFromConfig(ctx context.Context, cfg *config.MySQLConfig) (Repository, error) {
	if mysqlFactory == nil {
		return nil, fmt.Errorf("mysql factory not registered - import _ \"github.com/lugondev/go-cpamm/internal/storage/mysql\"")
	}
	return mysqlFactory(ctx, cfg)
}

func NewSQLiteRepositoryFromConfig(ctx context.Context, cfg *config.SQLiteConfig) (Repository, error) {
	if sqliteFactory == nil {
		return nil, fmt.Errorf("sqlite factory not registered - import _ \"github.com/lugondev/go-cpamm/internal/storage/sqlite\"")
	}
	return sqliteFactory(ctx, cfg)
}
