package core

import "testing"

// Mirrors the carry-forward scenario: the prior month closed with 1,000 in
// the bank, the carry-forward row is dated the 1st, and the month sees 200
// of bank income and 50 of bank expense.
func TestComputeClosingFromCarryForward(t *testing.T) {
	txs := []Transaction{
		{
			Date: NewDate(2026, 3, 1), Kind: KindIncome,
			Category: CategoryOwnerCapital, Subcategory: SubCarryForward,
			Account: AccountBank, Amount: Money{Cents: 100000},
		},
		{
			Date: NewDate(2026, 3, 10), Kind: KindIncome,
			Category: CategorySales, Subcategory: SubBankTransfer,
			Account: AccountBank, Amount: Money{Cents: 20000},
		},
		{
			Date: NewDate(2026, 3, 20), Kind: KindExpense,
			Category: CategoryUtilities, Subcategory: "Water",
			Account: AccountBank, Amount: Money{Cents: 5000},
		},
		// Out of range; must be ignored.
		{
			Date: NewDate(2026, 4, 1), Kind: KindIncome,
			Category: CategorySales, Subcategory: SubCash,
			Account: AccountBank, Amount: Money{Cents: 999900},
		},
	}

	comp := ComputeClosing("2026-03", txs)
	if comp.Bank.Opening.Cents != 100000 {
		t.Fatalf("opening = %d", comp.Bank.Opening.Cents)
	}
	if comp.Bank.Income.Cents != 20000 || comp.Bank.Expense.Cents != 5000 {
		t.Fatalf("flows = %+v", comp.Bank)
	}
	if comp.Bank.Expected.Cents != 115000 {
		t.Fatalf("expected = %d, want 115000", comp.Bank.Expected.Cents)
	}
	if comp.Cash.Expected.Cents != 0 {
		t.Fatalf("cash untouched, got %d", comp.Cash.Expected.Cents)
	}
}

func TestComputeClosingTransfers(t *testing.T) {
	txs := []Transaction{
		{
			Date: NewDate(2026, 3, 5), Kind: KindTransfer,
			Category: CategoryTransferOut, Account: AccountCash,
			Amount: Money{Cents: 40000},
		},
		{
			Date: NewDate(2026, 3, 5), Kind: KindTransfer,
			Category: CategoryTransferIn, Account: AccountBank,
			Amount: Money{Cents: 40000},
		},
	}
	comp := ComputeClosing("2026-03", txs)
	if comp.Cash.Expected.Cents != -40000 {
		t.Fatalf("cash expected = %d", comp.Cash.Expected.Cents)
	}
	if comp.Bank.Expected.Cents != 40000 {
		t.Fatalf("bank expected = %d", comp.Bank.Expected.Cents)
	}
	// Transfers never reach income/expense sums.
	if comp.Bank.Income.Cents != 0 || comp.Cash.Expense.Cents != 0 {
		t.Fatal("transfer leaked into P&L fields")
	}
}

func TestVariance(t *testing.T) {
	comp := ComputeClosing("2026-03", []Transaction{{
		Date: NewDate(2026, 3, 1), Kind: KindIncome,
		Category: CategorySales, Subcategory: SubCash,
		Account: AccountCash, Amount: Money{Cents: 10000},
	}})
	v := comp.Variance(Money{}, Money{Cents: 9000})
	if v.Cash.Cents != -1000 {
		t.Fatalf("cash variance = %d", v.Cash.Cents)
	}
	if v.Bank.Cents != 0 {
		t.Fatalf("bank variance = %d", v.Bank.Cents)
	}
}

func TestCarryForwardRows(t *testing.T) {
	comp := ClosingComputation{Month: "2026-12"}
	rows, err := comp.CarryForwardRows(Money{Cents: 123400}, Money{})
	if err != nil {
		t.Fatalf("CarryForwardRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("zero balances must not emit rows; got %d", len(rows))
	}
	row := rows[0]
	if row.Date.String() != "2027-01-01" {
		t.Fatalf("dated %s", row.Date)
	}
	if !IsCarryForward(row) {
		t.Fatalf("row not recognized as carry-forward: %+v", row)
	}
	if row.Account != AccountBank || row.Amount.Cents != 123400 {
		t.Fatalf("row %+v", row)
	}
}
