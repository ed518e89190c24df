package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tillbook/internal/amqp"
	"tillbook/internal/core"
	"tillbook/internal/ledger"
)

// ReimbursementService keeps the per-period NHI claim records and
// reconciles them against the interim receipts recorded in the ledger.
type ReimbursementService struct {
	records   ledger.ReimbursementStore
	txs       ledger.TransactionStore
	publisher Publisher
}

func NewReimbursementService(records ledger.ReimbursementStore, txs ledger.TransactionStore, publisher Publisher) *ReimbursementService {
	return &ReimbursementService{
		records:   records,
		txs:       txs,
		publisher: publisher,
	}
}

// Upsert saves a claim record and queues it for the spreadsheet mirror.
// The returned record carries the assigned update timestamp.
func (s *ReimbursementService) Upsert(ctx context.Context, rec core.ReimbursementRecord) (core.ReimbursementRecord, error) {
	rec.UpdatedAt = time.Now().UTC()
	if err := s.records.Upsert(ctx, rec); err != nil {
		return core.ReimbursementRecord{}, fmt.Errorf("save reimbursement record: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRecordExport(ctx, amqp.CollectionReimbursement, rec.Period); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reimbursement export",
				"period", rec.Period, "error", err)
			// Don't fail the request - the record is saved locally.
		}
	}

	return rec, nil
}

// Get retrieves one claim record by period.
func (s *ReimbursementService) Get(ctx context.Context, period string) (core.ReimbursementRecord, bool, error) {
	return s.records.Get(ctx, period)
}

// Analyze derives the period figures for every claim record in [from, to]
// and cross-checks each against the ledger. Receipts are matched by their
// declared claim period, not their booking date, so the transaction scan is
// unbounded: an interim payment can land months after the period it settles.
func (s *ReimbursementService) Analyze(ctx context.Context, from, to string) ([]core.ReimbursementAnalysis, error) {
	if _, err := core.ParseMonth(from); err != nil {
		return nil, err
	}
	if _, err := core.ParseMonth(to); err != nil {
		return nil, err
	}

	recs, err := s.records.GetRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("get reimbursement records: %w", err)
	}
	if len(recs) == 0 {
		return nil, nil
	}

	actuals, err := s.ledgerActuals(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.ReimbursementAnalysis, 0, len(recs))
	for _, rec := range recs {
		out = append(out, core.AnalyzeReimbursement(rec, actuals[rec.Period]))
	}
	return out, nil
}

// AnalyzeOne derives the figures for a single period. ok is false when no
// claim record exists for it.
func (s *ReimbursementService) AnalyzeOne(ctx context.Context, period string) (core.ReimbursementAnalysis, bool, error) {
	rec, ok, err := s.records.Get(ctx, period)
	if err != nil {
		return core.ReimbursementAnalysis{}, false, fmt.Errorf("get reimbursement record: %w", err)
	}
	if !ok {
		return core.ReimbursementAnalysis{}, false, nil
	}
	actuals, err := s.ledgerActuals(ctx)
	if err != nil {
		return core.ReimbursementAnalysis{}, false, err
	}
	return core.AnalyzeReimbursement(rec, actuals[period]), true, nil
}

func (s *ReimbursementService) ledgerActuals(ctx context.Context) (map[string]core.Money, error) {
	rows, err := s.txs.Query(ctx, ledger.Range{})
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	return core.LedgerActualByPeriod(rows), nil
}
