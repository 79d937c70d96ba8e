package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lugondev/go-cpamm/internal/ledger"
	"github.com/lugondev/go-cpamm/internal/metrics"
	"github.com/lugondev/go-cpamm/internal/program"
	"github.com/lugondev/go-cpamm/internal/storage"

	// Register the database backends with the storage factory.
	_ "github.com/lugondev/go-cpamm/internal/storage/mongo"
	_ "github.com/lugondev/go-cpamm/internal/storage/mysql"
	_ "github.com/lugondev/go-cpamm/internal/storage/postgres"
	_ "github.com/lugondev/go-cpamm/internal/storage/sqlite"
)

// engine is a ready-to-use pool program over a ledger, optionally persisted
// and journaled through the configured database.
type engine struct {
	ledger  *ledger.Ledger
	exec    *program.Executor
	repo    storage.Repository
	conn    *storage.ConnectionManager
	metrics *metrics.Collection
	server  *http.Server
}

// openRepository connects to the configured database.
func openRepository(ctx context.Context) (storage.Repository, *storage.ConnectionManager, error) {
	conn, err := storage.NewConnectionManager(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	repo, err := conn.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repo, conn, nil
}

// openEngine builds the executor. When the database is enabled the ledger is
// restored from it and every operation is journaled.
func openEngine(ctx context.Context) (*engine, error) {
	programID, err := cfg.Program.PublicKey()
	if err != nil {
		return nil, err
	}

	e := &engine{metrics: metrics.NewCollection()}
	if err := e.startMetrics(); err != nil {
		return nil, err
	}

	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	execOpts := []program.Option{
		program.WithLogger(logger),
		program.WithMetrics(e.metrics),
		program.WithEnforceExpiration(cfg.Program.EnforceExpiration),
	}
	if cfg.Database.Enabled {
		if e.repo, e.conn, err = openRepository(ctx); err != nil {
			e.Close(ctx)
			return nil, err
		}
		ledgerOpts = append(ledgerOpts, ledger.WithStore(storage.NewLedgerStore(e.repo.Accounts())))
		execOpts = append(execOpts, program.WithJournal(e.repo.Operations()))
	}

	e.ledger = ledger.New(ledgerOpts...)
	if err := e.ledger.Restore(ctx); err != nil {
		e.Close(ctx)
		return nil, err
	}
	e.exec = program.New(programID, e.ledger, execOpts...)

	if err := e.metrics.Initialize(ctx); err != nil {
		e.Close(ctx)
		return nil, err
	}
	return e, nil
}

func (e *engine) startMetrics() error {
	if !cfg.Metrics.Enabled {
		return nil
	}

	switch cfg.Metrics.Backend {
	case "prometheus":
		registry := prometheus.NewRegistry()
		e.metrics.Add(metrics.NewPrometheusMetrics(cfg.Metrics.Namespace, registry))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		e.server = &http.Server{
			Addr:              cfg.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "listen", cfg.Metrics.Listen, "error", err)
			}
		}()
		logger.Info("serving metrics", "listen", cfg.Metrics.Listen)
	default:
		e.metrics.Add(metrics.NewLogMetrics(logger))
	}
	return nil
}

// Close flushes metrics and releases the database and metrics server.
func (e *engine) Close(ctx context.Context) {
	if err := e.metrics.Flush(ctx); err != nil {
		logger.Warn("metrics flush failed", "error", err)
	}
	if err := e.metrics.Shutdown(ctx); err != nil {
		logger.Warn("metrics shutdown failed", "error", err)
	}
	if e.server != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := e.server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	if e.conn != nil {
		if err := e.conn.Close(); err != nil {
			logger.Warn("database close failed", "error", err)
		}
	}
}

// requireDatabase fails commands that only make sense with a database.
func requireDatabase() error {
	if !cfg.Database.Enabled {
		return fmt.Errorf("database is disabled; set database.enabled in the config or CPAMM_DATABASE_ENABLED=true")
	}
	return nil
}
