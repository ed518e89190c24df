package services

import (
	"context"
	"errors"
	"testing"

	"tillbook/internal/core"
	"tillbook/internal/ledger"
	"tillbook/internal/memstore"
)

func newCheckoutService() (*CheckoutService, *memstore.Store, *capturePublisher) {
	return newCheckoutServiceWithFloat(core.Money{Cents: core.DefaultTillFloatCents})
}

func newCheckoutServiceWithFloat(float core.Money) (*CheckoutService, *memstore.Store, *capturePublisher) {
	store := memstore.New()
	pub := newCapturePublisher()
	catalog := core.DefaultCatalog()
	return NewCheckoutService(NewLedgerService(store, catalog, pub), catalog, float), store, pub
}

func sampleDay() *core.DayAccumulator {
	acc := &core.DayAccumulator{
		Date:            core.NewDate(2026, 3, 5),
		OpeningHold:     core.Money{Cents: 2685000},
		MorningHandover: core.Money{Cents: 3685000},
		EveningCount:    core.Money{Cents: 4185000},
	}
	acc.AddExpense(core.ShiftMorning, core.ShiftExpense{
		Category: core.CategoryUtilities, Amount: core.Money{Cents: 50000}, Note: "water bill",
	})
	acc.AddReceipt(core.ShiftMorning, core.ShiftReceipt{
		Category: core.CategorySales, Subcategory: core.SubLinePay,
		Account: core.AccountBank, Amount: core.Money{Cents: 100000},
	})
	acc.AddReceipt(core.ShiftEvening, core.ShiftReceipt{
		Category: core.CategorySales, Subcategory: core.SubCreditCard,
		Account: core.AccountBank, Amount: core.Money{Cents: 200000},
	})
	return acc
}

func TestPreviewDoesNotWrite(t *testing.T) {
	svc, store, pub := newCheckoutService()

	plan, err := svc.Preview(sampleDay())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if len(plan.Transactions) != 4 {
		t.Fatalf("got %d planned rows", len(plan.Transactions))
	}
	if !plan.Settlement.Consistent {
		t.Fatalf("settlement inconsistent: %v", plan.Settlement.Warnings)
	}

	rows, err := store.Query(context.Background(), ledger.Range{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 0 || len(pub.exports) != 0 {
		t.Fatalf("preview wrote rows=%d exports=%d", len(rows), len(pub.exports))
	}
}

func TestConfirmWritesPlanRows(t *testing.T) {
	svc, store, pub := newCheckoutService()
	ctx := context.Background()

	acc := sampleDay()
	plan, err := svc.Confirm(ctx, acc)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if got := plan.Settlement.CashSales.Cents; got != 1550000 {
		t.Fatalf("cash sales = %d, want 1550000", got)
	}
	if got := plan.Settlement.Withdrawal.Cents; got != 1500000 {
		t.Fatalf("withdrawal = %d, want 1500000", got)
	}

	rows, err := store.Query(ctx, ledger.Range{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("stored %d rows, want 4", len(rows))
	}
	if len(pub.exports) != 4 {
		t.Fatalf("published %d exports, want 4", len(pub.exports))
	}

	// LinePay group lands net with the gross preserved; the adjustment must
	// not apply a second time on append.
	var linePay core.Transaction
	for _, row := range rows {
		if row.Subcategory == core.SubLinePay {
			linePay = row
		}
	}
	if linePay.Amount.Cents != 97700 || linePay.OriginalAmount.Cents != 100000 {
		t.Fatalf("linepay row = %+v", linePay)
	}

	// Confirm clears the day for the next session.
	if len(acc.MorningExpenses) != 0 || len(acc.EveningReceipts) != 0 || !acc.EveningCount.IsZero() {
		t.Fatalf("accumulator not reset: %+v", acc)
	}

	for i, row := range plan.Transactions {
		if row.ID == 0 {
			t.Fatalf("plan row %d has no id", i)
		}
	}
}

func TestConfiguredFloatDrivesWithdrawal(t *testing.T) {
	// Same day, larger retained float: less leaves the drawer.
	svc, _, _ := newCheckoutServiceWithFloat(core.Money{Cents: 3000000})

	plan, err := svc.Preview(sampleDay())
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got := plan.Settlement.Withdrawal.Cents; got != 1185000 {
		t.Fatalf("withdrawal = %d, want 1185000", got)
	}
	// The float only moves the cash split, never the revenue.
	if got := plan.Settlement.CashSales.Cents; got != 1550000 {
		t.Fatalf("cash sales = %d, want 1550000", got)
	}
}

func TestExplicitFloatOverridesConfigured(t *testing.T) {
	svc, _, _ := newCheckoutServiceWithFloat(core.Money{Cents: 3000000})

	acc := sampleDay()
	acc.NextFloat = &core.Money{} // retain nothing, withdraw the full count
	plan, err := svc.Preview(acc)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got := plan.Settlement.Withdrawal.Cents; got != acc.EveningCount.Cents {
		t.Fatalf("withdrawal = %d, want %d", got, acc.EveningCount.Cents)
	}
}

func TestConfirmNegativeCashSalesWritesNothing(t *testing.T) {
	svc, store, pub := newCheckoutService()

	acc := &core.DayAccumulator{
		Date:         core.NewDate(2026, 3, 6),
		OpeningHold:  core.Money{Cents: 100000},
		EveningCount: core.Money{Cents: 50000},
	}
	_, err := svc.Confirm(context.Background(), acc)
	if !errors.Is(err, core.ErrNegativeCashSale) {
		t.Fatalf("err = %v, want ErrNegativeCashSale", err)
	}

	rows, _ := store.Query(context.Background(), ledger.Range{})
	if len(rows) != 0 || len(pub.exports) != 0 {
		t.Fatalf("partial write: rows=%d exports=%d", len(rows), len(pub.exports))
	}
	// Inputs survive for correction.
	if acc.EveningCount.IsZero() {
		t.Fatal("failed confirm must not reset the accumulator")
	}
}
