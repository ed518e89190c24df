package core

import (
	"errors"
	"strings"
	"testing"
)

// Figures follow the worked example from the till sheet: opening hold
// 26,850, morning count 30,000, 2,000 of cash expenses, 1,500 collected
// through Line Pay.
func exampleDay() *DayAccumulator {
	acc := &DayAccumulator{
		Date:            NewDate(2026, 5, 11),
		OpeningHold:     Money{Cents: 2685000},
		MorningHandover: Money{Cents: 3000000},
		EveningCount:    Money{Cents: 3100000},
	}
	_ = acc.AddExpense(ShiftMorning, ShiftExpense{
		Category: CategoryCostOfGoods, Subcategory: "RetailGoods",
		Amount: Money{Cents: 200000}, Note: "restock",
	})
	_ = acc.AddReceipt(ShiftMorning, ShiftReceipt{
		Category: CategorySales, Subcategory: SubLinePay,
		Amount: Money{Cents: 150000}, Account: AccountBank,
	})
	return acc
}

func TestImpliedRevenue(t *testing.T) {
	got := ImpliedRevenue(
		Money{Cents: 2685000}, // A
		Money{Cents: 3000000}, // handover
		Money{Cents: 200000},  // expenses
		Money{Cents: 150000},  // non-cash
	)
	if got.Cents != 665000 {
		t.Fatalf("implied revenue = %d, want 665000", got.Cents)
	}
}

func TestSettleWithdrawalSplit(t *testing.T) {
	acc := exampleDay()
	s := acc.Settle()

	// F=31000, default J=26850 -> K=4150 withdrawn.
	if s.Withdrawal.Cents != 415000 {
		t.Fatalf("withdrawal = %d, want 415000", s.Withdrawal.Cents)
	}

	// F=25000 against the same float means topping up 1850.
	acc.EveningCount = Money{Cents: 2500000}
	s = acc.Settle()
	if s.Withdrawal.Cents != -185000 {
		t.Fatalf("withdrawal = %d, want -185000", s.Withdrawal.Cents)
	}
}

func TestSettleFloatOverride(t *testing.T) {
	acc := exampleDay()

	// An explicit float replaces the default.
	acc.NextFloat = &Money{Cents: 3000000}
	if got := acc.Settle().Withdrawal.Cents; got != 100000 {
		t.Fatalf("withdrawal = %d, want 100000", got)
	}

	// Explicit zero is a choice, not "unset": everything is withdrawn.
	acc.NextFloat = &Money{}
	if got := acc.Settle().Withdrawal.Cents; got != acc.EveningCount.Cents {
		t.Fatalf("withdrawal = %d, want %d", got, acc.EveningCount.Cents)
	}
}

func TestSettleConsistency(t *testing.T) {
	acc := exampleDay()
	s := acc.Settle()
	if !s.Consistent {
		t.Fatalf("consistent inputs flagged: %v", s.Warnings)
	}
	if s.TotalRevenue.Cents != s.MorningRevenue.Add(s.EveningRevenue).Cents {
		t.Fatal("day total must equal sum of shift revenues")
	}

	// An injected count error must warn, never panic or error.
	acc.MorningHandover = acc.MorningHandover.Add(Money{Cents: 100})
	s = acc.Settle()
	if s.Consistent {
		t.Fatal("mismatch not detected")
	}
	if len(s.Warnings) == 0 {
		t.Fatal("mismatch must surface a warning")
	}
}

func TestPlanGroupsAndAdjusts(t *testing.T) {
	acc := exampleDay()
	// Second Line Pay receipt in the evening groups with the morning one.
	_ = acc.AddReceipt(ShiftEvening, ShiftReceipt{
		Category: CategorySales, Subcategory: SubLinePay,
		Amount: Money{Cents: 50000}, Account: AccountBank, Note: "evening batch",
	})
	// Same expense pair groups too.
	_ = acc.AddExpense(ShiftEvening, ShiftExpense{
		Category: CategoryCostOfGoods, Subcategory: "RetailGoods",
		Amount: Money{Cents: 30000}, Note: "bandages",
	})

	plan, err := acc.Plan(DefaultCatalog())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	var expense, linePay, cashSales *Transaction
	for i := range plan.Transactions {
		tx := &plan.Transactions[i]
		switch {
		case tx.Kind == KindExpense:
			expense = tx
		case tx.Subcategory == SubLinePay:
			linePay = tx
		case tx.Subcategory == SubCash:
			cashSales = tx
		}
	}

	if expense == nil || expense.Amount.Cents != 230000 {
		t.Fatalf("expense group: %+v", expense)
	}
	if expense.Account != AccountCash {
		t.Fatal("drawer expenses post to cash")
	}
	if !strings.HasPrefix(expense.Note, "[checkout]") || !strings.Contains(expense.Note, " | ") {
		t.Fatalf("expense note %q", expense.Note)
	}

	// 2000.00 gross at 0.977 nets 1954.00.
	if linePay == nil || linePay.Amount.Cents != 195400 {
		t.Fatalf("line pay group: %+v", linePay)
	}
	if linePay.OriginalAmount.Cents != 200000 {
		t.Fatalf("original amount = %d", linePay.OriginalAmount.Cents)
	}
	if linePay.Account != AccountBank {
		t.Fatal("line pay posts to bank")
	}

	// Cash sales = F + expenses - A.
	wantCash := acc.EveningCount.Add(Money{Cents: 230000}).Sub(acc.OpeningHold)
	if cashSales == nil || cashSales.Amount != wantCash {
		t.Fatalf("cash sales: %+v, want %d", cashSales, wantCash.Cents)
	}
}

func TestPlanNegativeCashSalesIsFatal(t *testing.T) {
	acc := &DayAccumulator{
		Date:         NewDate(2026, 5, 11),
		OpeningHold:  Money{Cents: 2685000},
		EveningCount: Money{Cents: 100000}, // far below the opening hold
	}
	_, err := acc.Plan(DefaultCatalog())
	if !errors.Is(err, ErrNegativeCashSale) {
		t.Fatalf("got %v, want ErrNegativeCashSale", err)
	}
}

func TestPlanInconsistentDayStillPlans(t *testing.T) {
	acc := exampleDay()
	acc.MorningHandover = acc.MorningHandover.Add(Money{Cents: 100})
	plan, err := acc.Plan(DefaultCatalog())
	if err != nil {
		t.Fatalf("mismatch must not abort planning: %v", err)
	}
	if len(plan.Settlement.Warnings) == 0 {
		t.Fatal("warning lost")
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc := exampleDay()
	acc.Reset()
	if len(acc.MorningExpenses) != 0 || len(acc.MorningReceipts) != 0 {
		t.Fatal("reset must clear accumulated items")
	}
	if !acc.OpeningHold.IsZero() {
		t.Fatal("reset must clear counts")
	}
	if acc.Date.IsZero() {
		t.Fatal("reset keeps the date")
	}
}

func TestAddValidation(t *testing.T) {
	acc := &DayAccumulator{Date: NewDate(2026, 5, 11)}
	if err := acc.AddExpense(ShiftMorning, ShiftExpense{Category: "X"}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v", err)
	}
	if err := acc.AddReceipt(ShiftEvening, ShiftReceipt{
		Category: CategorySales, Amount: Money{Cents: 1}, Account: "vault",
	}); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("got %v", err)
	}
	if err := acc.AddExpense("night", ShiftExpense{Category: "X", Amount: Money{Cents: 1}}); err == nil {
		t.Fatal("unknown shift must error")
	}
}
