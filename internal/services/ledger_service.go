package services

import (
	"context"
	"fmt"
	"log/slog"

	"tillbook/internal/core"
	"tillbook/internal/ledger"
)

// LedgerService owns single-row ledger operations: append, list, delete,
// transfers and period summaries.
type LedgerService struct {
	txs       ledger.TransactionStore
	catalog   *core.Catalog
	publisher Publisher
}

func NewLedgerService(txs ledger.TransactionStore, catalog *core.Catalog, publisher Publisher) *LedgerService {
	return &LedgerService{
		txs:       txs,
		catalog:   catalog,
		publisher: publisher,
	}
}

// Append persists one transaction and queues it for the spreadsheet mirror.
// Income rows get the catalog fee-rate adjustment applied here, so manual
// entries and checkout rows land with the same net semantics; rows that
// already carry an OriginalAmount were adjusted upstream and pass through.
func (s *LedgerService) Append(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Kind == core.KindIncome && tx.OriginalAmount.IsZero() {
		if net, adjusted := s.catalog.NetAmount(tx.Category, tx.Subcategory, tx.Amount); adjusted {
			tx.OriginalAmount = tx.Amount
			tx.Amount = net
		}
	}

	id, err := s.txs.Append(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	tx.ID = id

	if err := s.publishExport(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", id, "error", err)
		// Don't fail the request - the row is saved locally and the
		// pending-export scan will pick it up.
	}

	return tx, nil
}

// List returns the transactions inside the range, newest first.
func (s *LedgerService) List(ctx context.Context, r ledger.Range) ([]core.Transaction, error) {
	return s.txs.Query(ctx, r)
}

// Get retrieves one transaction by id.
func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.txs.Get(ctx, id)
}

// Delete removes a row locally and queues the mirror-row deletion. The row
// is read back first because the delete message must carry its data: by the
// time the worker runs, the local row is gone.
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	tx, err := s.txs.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction for delete: %w", err)
	}
	if err := s.txs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publishDelete(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - the row is deleted locally.
	}

	return nil
}

// RecordTransfer expands a fund movement into its row pair and appends both.
// The rows share a correlation id, so even if the caller later deletes one
// side the other remains attributable.
func (s *LedgerService) RecordTransfer(ctx context.Context, req core.TransferRequest) ([]core.Transaction, error) {
	rows, err := core.ResolveTransfer(req)
	if err != nil {
		return nil, err
	}

	stored := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := s.Append(ctx, row)
		if err != nil {
			if len(stored) > 0 {
				return stored, fmt.Errorf("transfer partially recorded (%d of %d rows): %w",
					len(stored), len(rows), err)
			}
			return nil, err
		}
		stored = append(stored, tx)
	}
	return stored, nil
}

// Summarize aggregates the range into period KPIs.
func (s *LedgerService) Summarize(ctx context.Context, r ledger.Range) (core.PeriodSummary, error) {
	rows, err := s.txs.Query(ctx, r)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("query transactions: %w", err)
	}
	return core.Summarize(rows), nil
}

func (s *LedgerService) publishExport(ctx context.Context, id int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping export message", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionExport(ctx, id)
}

func (s *LedgerService) publishDelete(ctx context.Context, tx core.Transaction) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Publisher not available, skipping delete message", "id", tx.ID)
		return nil
	}
	return s.publisher.PublishTransactionDelete(ctx, tx)
}
