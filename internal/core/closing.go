package core

type (
	// AccountFlow decomposes one account's month: the opening balance
	// reconstructed from capital rows, the in-month flows, and the expected
	// end-of-month balance.
	AccountFlow struct {
		Opening     Money // capital carry-forward + injections dated in-month
		Income      Money // income excluding owner capital
		Expense     Money
		TransferIn  Money
		TransferOut Money
		Expected    Money
	}

	// ClosingComputation is the system-computed side of a monthly closing.
	ClosingComputation struct {
		Month string
		Bank  AccountFlow
		Cash  AccountFlow
	}

	// ClosingVariance compares counted balances with the computation.
	ClosingVariance struct {
		Bank Money
		Cash Money
	}
)

// Net returns opening + income - expense + transfers in - transfers out.
func (f AccountFlow) net() Money {
	return f.Opening.Add(f.Income).Sub(f.Expense).Add(f.TransferIn).Sub(f.TransferOut)
}

// ComputeClosing scans a month's transactions and derives the expected
// balance per account. The opening balance is defined by the ledger itself:
// it is the sum of owner-capital income rows (carry-forward and injections)
// dated inside the month, never a stored running total.
func ComputeClosing(month string, txs []Transaction) ClosingComputation {
	comp := ClosingComputation{Month: month}
	for _, tx := range txs {
		if tx.Date.MonthKey() != month {
			continue
		}
		flow := &comp.Cash
		if tx.Account == AccountBank {
			flow = &comp.Bank
		}
		switch tx.Kind {
		case KindIncome:
			if tx.Category == CategoryOwnerCapital {
				flow.Opening = flow.Opening.Add(tx.Amount)
			} else {
				flow.Income = flow.Income.Add(tx.Amount)
			}
		case KindExpense:
			flow.Expense = flow.Expense.Add(tx.Amount)
		case KindTransfer:
			switch tx.Category {
			case CategoryTransferIn:
				flow.TransferIn = flow.TransferIn.Add(tx.Amount)
			case CategoryTransferOut:
				flow.TransferOut = flow.TransferOut.Add(tx.Amount)
			}
		}
	}
	comp.Bank.Expected = comp.Bank.net()
	comp.Cash.Expected = comp.Cash.net()
	return comp
}

// Variance returns counted actual minus expected per account. Zero is the
// success case; non-zero is surfaced but never blocks saving.
func (c ClosingComputation) Variance(bankActual, cashActual Money) ClosingVariance {
	return ClosingVariance{
		Bank: bankActual.Sub(c.Bank.Expected),
		Cash: cashActual.Sub(c.Cash.Expected),
	}
}

// CarryForwardRows synthesizes the opening-balance income rows for the month
// after c.Month, one per account with a non-zero counted balance. Next
// month's opening-balance scan finds these instead of reading the closing
// row.
func (c ClosingComputation) CarryForwardRows(bankActual, cashActual Money) ([]Transaction, error) {
	next, err := NextMonth(c.Month)
	if err != nil {
		return nil, err
	}
	firstDay, err := ParseMonth(next)
	if err != nil {
		return nil, err
	}
	note := "carry-forward of " + c.Month + " closing balance"
	var rows []Transaction
	if !bankActual.IsZero() {
		rows = append(rows, Transaction{
			Date:        firstDay,
			Kind:        KindIncome,
			Category:    CategoryOwnerCapital,
			Subcategory: SubCarryForward,
			Account:     AccountBank,
			Amount:      bankActual,
			Note:        note,
		})
	}
	if !cashActual.IsZero() {
		rows = append(rows, Transaction{
			Date:        firstDay,
			Kind:        KindIncome,
			Category:    CategoryOwnerCapital,
			Subcategory: SubCarryForward,
			Account:     AccountCash,
			Amount:      cashActual,
			Note:        note,
		})
	}
	return rows, nil
}

// IsCarryForward reports whether tx is a synthesized opening-balance row.
func IsCarryForward(tx Transaction) bool {
	return tx.Kind == KindIncome &&
		tx.Category == CategoryOwnerCapital &&
		tx.Subcategory == SubCarryForward
}
