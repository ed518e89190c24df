// Package ledger defines the ports the reconciliation engine consumes.
// Implementations live in internal/storage (SQLite) and internal/memstore.
package ledger

import (
	"context"
	"errors"

	"tillbook/internal/core"
)

// ErrNotFound is returned when a keyed row does not exist. Implementations
// wrap it with the triggering key.
var ErrNotFound = errors.New("record not found")

// Range bounds a transaction query by date. Zero bounds are open ends; the
// zero Range selects everything.
type Range struct {
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls inside the range.
func (r Range) Contains(d core.Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}

// MonthRange returns the Range covering a single month.
func MonthRange(month string) (Range, error) {
	start, end, err := core.MonthBounds(month)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

type (
	// TransactionStore is the unit of truth for all money movements.
	TransactionStore interface {
		// Append assigns the next id and persists the row.
		Append(ctx context.Context, tx core.Transaction) (int64, error)
		// Get retrieves a row by id. Missing ids return ErrNotFound.
		Get(ctx context.Context, id int64) (core.Transaction, error)
		// Query returns transactions in the range, newest first.
		Query(ctx context.Context, r Range) ([]core.Transaction, error)
		// Delete removes a row. Missing ids return ErrNotFound.
		Delete(ctx context.Context, id int64) error
	}

	// ClosingStore keeps the per-month closing checkpoints.
	ClosingStore interface {
		Upsert(ctx context.Context, c core.MonthlyClosing) error
		// Get reports ok=false when no closing exists for the month.
		Get(ctx context.Context, month string) (c core.MonthlyClosing, ok bool, err error)
		// GetRange returns closings between the month keys inclusive,
		// ascending by month.
		GetRange(ctx context.Context, from, to string) ([]core.MonthlyClosing, error)
	}

	// ReimbursementStore keeps the per-period NHI claim records.
	ReimbursementStore interface {
		Upsert(ctx context.Context, rec core.ReimbursementRecord) error
		Get(ctx context.Context, period string) (rec core.ReimbursementRecord, ok bool, err error)
		// GetRange returns records between the period keys inclusive,
		// ascending by period.
		GetRange(ctx context.Context, from, to string) ([]core.ReimbursementRecord, error)
	}
)
