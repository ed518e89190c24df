package core

import "sort"

type (
	// CategoryAmount is an amount aggregated under a category name.
	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// PeriodSummary is the profit-and-loss view of a date range. Owner
	// capital is excluded from income so injections never inflate profit;
	// transfers are excluded wholesale by kind.
	PeriodSummary struct {
		TotalIncome         Money
		TotalExpense        Money
		NetProfit           Money
		IncomeBySubcategory []CategoryAmount
		ExpenseByCategory   []CategoryAmount
	}

	// MonthProfit is one row of the capital-insulated month-over-month
	// profit report: the change in counted assets between consecutive
	// closings, corrected for owner cash movements.
	MonthProfit struct {
		Month            string
		OpeningTotal     Money // previous month's counted bank + cash
		ClosingTotal     Money // this month's counted bank + cash
		GrossChange      Money
		CapitalInjection Money // subtracted: not earned
		Withdrawals      Money // added back: earned, then taken out
		NetProfit        Money
	}
)

func sortedCategoryAmounts(m map[string]Money) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for name, amt := range m {
		out = append(out, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Summarize aggregates a range of transactions into period KPIs.
func Summarize(txs []Transaction) PeriodSummary {
	var s PeriodSummary
	incomeBySub := map[string]Money{}
	expenseByCat := map[string]Money{}
	for _, tx := range txs {
		switch tx.Kind {
		case KindIncome:
			if tx.Category == CategoryOwnerCapital {
				continue
			}
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			name := tx.Subcategory
			if name == "" {
				name = tx.Category
			}
			incomeBySub[name] = incomeBySub[name].Add(tx.Amount)
		case KindExpense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
			expenseByCat[tx.Category] = expenseByCat[tx.Category].Add(tx.Amount)
		case KindTransfer:
			// balance movement only, never P&L
		}
	}
	s.NetProfit = s.TotalIncome.Sub(s.TotalExpense)
	s.IncomeBySubcategory = sortedCategoryAmounts(incomeBySub)
	s.ExpenseByCategory = sortedCategoryAmounts(expenseByCat)
	return s
}

func (c MonthlyClosing) countedTotal() Money {
	return c.BankActual.Add(c.CashActual)
}

// MonthlyProfits builds the profit report from consecutive closings. The
// closings slice must be sorted ascending by month and include the baseline
// month immediately before the report range. Each row spans from the
// previous closing in the slice, so a gap month folds into the next row's
// change; callers surface gaps separately via MonthsBetween. Transactions
// supply the in-month capital injections and external withdrawals used to
// insulate the figures.
func MonthlyProfits(closings []MonthlyClosing, txs []Transaction) []MonthProfit {
	injections := map[string]Money{}
	withdrawals := map[string]Money{}
	for _, tx := range txs {
		month := tx.Date.MonthKey()
		if tx.Kind == KindIncome && tx.Category == CategoryOwnerCapital && tx.Subcategory == SubInjection {
			injections[month] = injections[month].Add(tx.Amount)
		}
		if IsWithdrawal(tx) {
			withdrawals[month] = withdrawals[month].Add(tx.Amount)
		}
	}

	var out []MonthProfit
	for i := 1; i < len(closings); i++ {
		prev, cur := closings[i-1], closings[i]
		row := MonthProfit{
			Month:            cur.Month,
			OpeningTotal:     prev.countedTotal(),
			ClosingTotal:     cur.countedTotal(),
			CapitalInjection: injections[cur.Month],
			Withdrawals:      withdrawals[cur.Month],
		}
		row.GrossChange = row.ClosingTotal.Sub(row.OpeningTotal)
		row.NetProfit = row.GrossChange.Sub(row.CapitalInjection).Add(row.Withdrawals)
		out = append(out, row)
	}
	return out
}
