// Package worker moves ledger data from SQLite to the spreadsheet mirror.
// It is driven by AMQP messages, with a periodic scan over pending rows as a
// backup for lost messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tillbook/internal/amqp"
	"tillbook/internal/core"
	"tillbook/internal/ledger"
	"tillbook/internal/sheets"
	"tillbook/internal/storage"
)

type ExportWorker struct {
	storage        *storage.SQLiteRepository
	transactions   sheets.TransactionMirror
	closings       sheets.ClosingMirror
	reimbursements sheets.ReimbursementMirror
	batchSize      int
}

func NewExportWorker(
	repo *storage.SQLiteRepository,
	transactions sheets.TransactionMirror,
	closings sheets.ClosingMirror,
	reimbursements sheets.ReimbursementMirror,
	batchSize int,
) *ExportWorker {
	return &ExportWorker{
		storage:        repo,
		transactions:   transactions,
		closings:       closings,
		reimbursements: reimbursements,
		batchSize:      batchSize,
	}
}

// Handlers returns the AMQP dispatch table for this worker.
func (w *ExportWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		TransactionExport: w.HandleTransactionExport,
		TransactionDelete: w.HandleTransactionDelete,
		RecordExport:      w.HandleRecordExport,
	}
}

// HandleTransactionExport mirrors one ledger row to the spreadsheet. The row
// is fetched fresh from storage so the mirror never lags a stale message
// body.
func (w *ExportWorker) HandleTransactionExport(ctx context.Context, msg *amqp.TransactionExportMessage) error {
	slog.InfoContext(ctx, "Processing transaction export message", "id", msg.ID)

	tx, err := w.storage.Get(ctx, msg.ID)
	if errors.Is(err, ledger.ErrNotFound) {
		// Deleted before the export ran; nothing to mirror.
		slog.WarnContext(ctx, "Transaction gone before export, skipping", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.exportTransaction(ctx, tx.ID, tx)
}

// HandleTransactionDelete removes a mirrored row. The local row is already
// gone, so the id from the message is all we have.
func (w *ExportWorker) HandleTransactionDelete(ctx context.Context, msg *amqp.TransactionDeleteMessage) error {
	slog.InfoContext(ctx, "Processing transaction delete message",
		"id", msg.ID,
		"date", msg.Date,
		"category", msg.Category)

	if w.transactions == nil {
		slog.WarnContext(ctx, "No transaction mirror configured, skipping delete", "id", msg.ID)
		return nil
	}

	if err := w.transactions.DeleteTransactionRow(ctx, msg.ID); err != nil {
		return fmt.Errorf("delete mirrored row: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored row deleted", "id", msg.ID)
	return nil
}

// HandleRecordExport mirrors a closing or reimbursement record by key.
func (w *ExportWorker) HandleRecordExport(ctx context.Context, msg *amqp.RecordExportMessage) error {
	slog.InfoContext(ctx, "Processing record export message",
		"collection", msg.Collection,
		"key", msg.Key)

	switch msg.Collection {
	case amqp.CollectionClosing:
		if w.closings == nil {
			slog.WarnContext(ctx, "No closing mirror configured, skipping", "key", msg.Key)
			return nil
		}
		c, ok, err := w.storage.Closings().Get(ctx, msg.Key)
		if err != nil {
			return fmt.Errorf("get closing from storage: %w", err)
		}
		if !ok {
			slog.WarnContext(ctx, "Closing gone before export, skipping", "month", msg.Key)
			return nil
		}
		if err := w.closings.UpsertClosing(ctx, c); err != nil {
			return fmt.Errorf("mirror closing: %w", err)
		}
		return nil

	case amqp.CollectionReimbursement:
		if w.reimbursements == nil {
			slog.WarnContext(ctx, "No reimbursement mirror configured, skipping", "key", msg.Key)
			return nil
		}
		rec, ok, err := w.storage.Reimbursements().Get(ctx, msg.Key)
		if err != nil {
			return fmt.Errorf("get reimbursement record from storage: %w", err)
		}
		if !ok {
			slog.WarnContext(ctx, "Reimbursement record gone before export, skipping", "period", msg.Key)
			return nil
		}
		if err := w.reimbursements.UpsertReimbursement(ctx, rec); err != nil {
			return fmt.Errorf("mirror reimbursement record: %w", err)
		}
		return nil

	default:
		// Unknown collections are poison; dropping beats an endless requeue.
		slog.WarnContext(ctx, "Unknown record collection, dropping", "collection", msg.Collection)
		return nil
	}
}

// ProcessPending exports rows still marked pending. This is the backup path
// for lost AMQP messages; the ticker in the worker main calls it.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExports(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		tx, err := w.storage.Get(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.exportTransaction(ctx, p.ID, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupCheck requeues errored rows and drains a larger pending batch once,
// recovering from worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	requeued, err := w.storage.RequeueExportErrors(ctx)
	if err != nil {
		return fmt.Errorf("requeue export errors: %w", err)
	}
	if requeued > 0 {
		slog.InfoContext(ctx, "Requeued errored exports", "count", requeued)
	}

	pending, err := w.storage.PendingExports(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending exports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		tx, err := w.storage.Get(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup export",
				"id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}
		if err := w.exportTransaction(ctx, p.ID, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, id int64, tx core.Transaction) error {
	if w.transactions == nil {
		slog.WarnContext(ctx, "No transaction mirror configured, skipping export", "id", id)
		return nil
	}

	ref, err := w.transactions.AppendTransaction(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	// The export itself worked; a failed state flip only means a redundant
	// re-export later.
	if err := w.storage.MarkExported(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction exported",
		"id", id,
		"sheet_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}
