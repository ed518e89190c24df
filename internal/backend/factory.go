// Package backend selects and wires the persistence layer from config:
// durable SQLite with optional AMQP mirroring, or the in-memory store for
// scratch runs.
package backend

import (
	"fmt"
	"log/slog"

	"tillbook/internal/amqp"
	"tillbook/internal/config"
	"tillbook/internal/ledger"
	"tillbook/internal/memstore"
	"tillbook/internal/services"
	"tillbook/internal/storage"
)

type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

func (t Type) Valid() bool {
	return t == SQLite || t == Memory
}

// Result bundles the wired stores, the optional export publisher, and the
// teardown for whatever was opened.
type Result struct {
	Transactions   ledger.TransactionStore
	Closings       ledger.ClosingStore
	Reimbursements ledger.ReimbursementStore

	// Publisher is nil when AMQP is not configured; the services skip
	// mirror messages in that case.
	Publisher services.Publisher

	Cleanup func() error
}

// Create builds the backend named by cfg.DataBackend.
func Create(cfg *config.Config) (*Result, error) {
	t := Type(cfg.DataBackend)
	switch t {
	case SQLite:
		return createSQLite(cfg)
	case Memory:
		return createMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported data backend %q", cfg.DataBackend)
	}
}

func createSQLite(cfg *config.Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize sqlite repository: %w", err)
	}

	// AMQP is optional: without it rows stay pending until a worker with a
	// broker connection scans them.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("Failed to connect AMQP, continuing without export messages", "error", err)
			amqpClient = nil
		} else {
			slog.Info("Connected AMQP", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	res := &Result{
		Transactions:   repo,
		Closings:       repo.Closings(),
		Reimbursements: repo.Reimbursements(),
		Cleanup: func() error {
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					slog.Error("Failed to close AMQP client", "error", err)
				}
			}
			return repo.Close()
		},
	}
	if amqpClient != nil {
		res.Publisher = amqpClient
	}

	slog.Info("Initialized sqlite backend",
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)
	return res, nil
}

func createMemory() *Result {
	store := memstore.New()
	slog.Info("Initialized in-memory backend; data will not survive restart")
	return &Result{
		Transactions:   store,
		Closings:       store.Closings(),
		Reimbursements: store.Reimbursements(),
		Cleanup:        func() error { return nil },
	}
}
