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

// ClosingService runs the month-end reconciliation: preview the computed
// balances, save the checkpoint, and roll the counted balances forward as
// next month's opening rows.
type ClosingService struct {
	txs       ledger.TransactionStore
	closings  ledger.ClosingStore
	publisher Publisher
}

func NewClosingService(txs ledger.TransactionStore, closings ledger.ClosingStore, publisher Publisher) *ClosingService {
	return &ClosingService{
		txs:       txs,
		closings:  closings,
		publisher: publisher,
	}
}

type (
	// ClosingPreview pairs the computed balances with any checkpoint
	// already saved for the month.
	ClosingPreview struct {
		Computation core.ClosingComputation
		Existing    core.MonthlyClosing
		Exists      bool
	}

	// SaveClosingInput is the user-supplied side of a closing: the counted
	// balances and an optional note.
	SaveClosingInput struct {
		Month      string
		BankActual core.Money
		CashActual core.Money
		Note       string
	}

	// ClosingResult reports what a save produced: the stored checkpoint,
	// the counted-vs-computed variance, and the carry-forward rows written
	// into the following month.
	ClosingResult struct {
		Closing      core.MonthlyClosing
		Variance     core.ClosingVariance
		CarryForward []core.Transaction
	}
)

// Preview computes the month's expected balances without writing anything.
func (s *ClosingService) Preview(ctx context.Context, month string) (ClosingPreview, error) {
	rng, err := ledger.MonthRange(month)
	if err != nil {
		return ClosingPreview{}, err
	}
	rows, err := s.txs.Query(ctx, rng)
	if err != nil {
		return ClosingPreview{}, fmt.Errorf("query month transactions: %w", err)
	}

	preview := ClosingPreview{Computation: core.ComputeClosing(month, rows)}
	preview.Existing, preview.Exists, err = s.closings.Get(ctx, month)
	if err != nil {
		return ClosingPreview{}, fmt.Errorf("get existing closing: %w", err)
	}
	return preview, nil
}

// Save upserts the month's checkpoint and rewrites the carry-forward rows
// dated the first of the following month. The rewrite is delete-then-insert
// on that day's carry-forward rows, so re-closing a month after a correction
// converges instead of stacking duplicates. Variance never blocks the save;
// it is reported back for the human to judge.
func (s *ClosingService) Save(ctx context.Context, in SaveClosingInput) (ClosingResult, error) {
	rng, err := ledger.MonthRange(in.Month)
	if err != nil {
		return ClosingResult{}, err
	}
	rows, err := s.txs.Query(ctx, rng)
	if err != nil {
		return ClosingResult{}, fmt.Errorf("query month transactions: %w", err)
	}
	comp := core.ComputeClosing(in.Month, rows)

	closing := core.MonthlyClosing{
		Month:      in.Month,
		BankActual: in.BankActual,
		CashActual: in.CashActual,
		BankCalc:   comp.Bank.Expected,
		CashCalc:   comp.Cash.Expected,
		Note:       in.Note,
		ClosedAt:   time.Now().UTC(),
	}
	if err := s.closings.Upsert(ctx, closing); err != nil {
		return ClosingResult{}, fmt.Errorf("save closing: %w", err)
	}

	if err := s.removeCarryForward(ctx, in.Month); err != nil {
		return ClosingResult{}, err
	}

	cfRows, err := comp.CarryForwardRows(in.BankActual, in.CashActual)
	if err != nil {
		return ClosingResult{}, err
	}
	stored := make([]core.Transaction, 0, len(cfRows))
	for _, row := range cfRows {
		id, err := s.txs.Append(ctx, row)
		if err != nil {
			return ClosingResult{}, fmt.Errorf("write carry-forward row: %w", err)
		}
		row.ID = id
		stored = append(stored, row)
		if s.publisher != nil {
			if err := s.publisher.PublishTransactionExport(ctx, id); err != nil {
				slog.ErrorContext(ctx, "Failed to publish carry-forward export",
					"id", id, "error", err)
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRecordExport(ctx, amqp.CollectionClosing, in.Month); err != nil {
			slog.ErrorContext(ctx, "Failed to publish closing export",
				"month", in.Month, "error", err)
			// Don't fail the request - the checkpoint is saved locally.
		}
	}

	return ClosingResult{
		Closing:      closing,
		Variance:     comp.Variance(in.BankActual, in.CashActual),
		CarryForward: stored,
	}, nil
}

// removeCarryForward deletes the carry-forward rows a previous closing of
// this month wrote into the first day of the next month.
func (s *ClosingService) removeCarryForward(ctx context.Context, month string) error {
	next, err := core.NextMonth(month)
	if err != nil {
		return err
	}
	firstDay, err := core.ParseMonth(next)
	if err != nil {
		return err
	}

	rows, err := s.txs.Query(ctx, ledger.Range{Start: firstDay, End: firstDay})
	if err != nil {
		return fmt.Errorf("query carry-forward rows: %w", err)
	}
	for _, row := range rows {
		if !core.IsCarryForward(row) {
			continue
		}
		if err := s.txs.Delete(ctx, row.ID); err != nil {
			return fmt.Errorf("delete stale carry-forward row %d: %w", row.ID, err)
		}
		if s.publisher != nil {
			if err := s.publisher.PublishTransactionDelete(ctx, row); err != nil {
				slog.ErrorContext(ctx, "Failed to publish carry-forward delete",
					"id", row.ID, "error", err)
			}
		}
	}
	return nil
}

// ProfitReport is the month-over-month profit view plus the months whose
// missing closings left gaps in it.
type ProfitReport struct {
	Months        []core.MonthProfit
	MissingMonths []string
}

// MonthlyProfit derives capital-insulated profit for each month in
// [from, to]. A month only yields a row when both its own closing and the
// previous month's exist; absent closings are reported, not invented.
func (s *ClosingService) MonthlyProfit(ctx context.Context, from, to string) (ProfitReport, error) {
	baseline, err := core.PrevMonth(from)
	if err != nil {
		return ProfitReport{}, err
	}
	closings, err := s.closings.GetRange(ctx, baseline, to)
	if err != nil {
		return ProfitReport{}, fmt.Errorf("get closings: %w", err)
	}

	have := make(map[string]bool, len(closings))
	for _, c := range closings {
		have[c.Month] = true
	}
	wanted, err := core.MonthsBetween(baseline, to)
	if err != nil {
		return ProfitReport{}, err
	}
	var missing []string
	for _, m := range wanted {
		if !have[m] {
			missing = append(missing, m)
		}
	}

	start, _, err := core.MonthBounds(from)
	if err != nil {
		return ProfitReport{}, err
	}
	_, end, err := core.MonthBounds(to)
	if err != nil {
		return ProfitReport{}, err
	}
	rows, err := s.txs.Query(ctx, ledger.Range{Start: start, End: end})
	if err != nil {
		return ProfitReport{}, fmt.Errorf("query transactions: %w", err)
	}

	return ProfitReport{
		Months:        core.MonthlyProfits(closings, rows),
		MissingMonths: missing,
	}, nil
}
