package services

import (
	"context"
	"fmt"

	"tillbook/internal/core"
)

// CheckoutService turns a day's accumulated shift inputs into ledger rows.
// Preview is pure; Confirm writes through the ledger service so every row
// gets the same persistence and mirroring path as a manual entry.
type CheckoutService struct {
	ledger  *LedgerService
	catalog *core.Catalog
	// defaultFloat is the configured till float retained overnight when a
	// day does not name one explicitly.
	defaultFloat core.Money
}

func NewCheckoutService(ledger *LedgerService, catalog *core.Catalog, defaultFloat core.Money) *CheckoutService {
	return &CheckoutService{
		ledger:       ledger,
		catalog:      catalog,
		defaultFloat: defaultFloat,
	}
}

// applyDefaultFloat fills in the configured float for days that left
// NextFloat unset. An explicit value, including zero, wins.
func (s *CheckoutService) applyDefaultFloat(acc *core.DayAccumulator) {
	if acc.NextFloat == nil {
		f := s.defaultFloat
		acc.NextFloat = &f
	}
}

// Preview computes the settlement and the rows a confirmation would write,
// without touching the ledger.
func (s *CheckoutService) Preview(acc *core.DayAccumulator) (core.CheckoutPlan, error) {
	s.applyDefaultFloat(acc)
	return acc.Plan(s.catalog)
}

// Confirm plans the day and appends the rows in plan order. A negative
// derived cash-sales figure fails before anything is written. On success
// the accumulator is cleared for the next day; the returned plan carries
// the stored rows with their assigned ids.
func (s *CheckoutService) Confirm(ctx context.Context, acc *core.DayAccumulator) (core.CheckoutPlan, error) {
	s.applyDefaultFloat(acc)
	plan, err := acc.Plan(s.catalog)
	if err != nil {
		return core.CheckoutPlan{}, err
	}

	for i, row := range plan.Transactions {
		stored, err := s.ledger.Append(ctx, row)
		if err != nil {
			return plan, fmt.Errorf("confirm checkout for %s: row %d of %d: %w",
				acc.Date, i+1, len(plan.Transactions), err)
		}
		plan.Transactions[i] = stored
	}

	acc.Reset()
	return plan, nil
}
