package core

import (
	"fmt"
	"strings"
)

const (
	ShiftMorning Shift = "morning"
	ShiftEvening Shift = "evening"

	// DefaultTillFloatCents is the float historically retained in the drawer
	// overnight (26,850 in whole currency).
	DefaultTillFloatCents int64 = 26850 * 100

	checkoutNotePrefix = "[checkout]"
	cashSalesNote      = "[checkout] daily cash sales"
)

type (
	// Shift names one of the two work shifts of a business day.
	Shift string

	// ShiftExpense is an itemized cash expense paid out of the drawer during
	// a shift.
	ShiftExpense struct {
		Category    string
		Subcategory string
		Amount      Money
		Note        string
	}

	// ShiftReceipt is revenue collected through a non-cash channel during a
	// shift, tagged with the account it lands on.
	ShiftReceipt struct {
		Category    string
		Subcategory string
		Amount      Money
		Note        string
		Account     Account
	}

	// DayAccumulator collects one business day's checkout inputs. It is an
	// explicit per-session value: the engine never keeps ambient state
	// between days, and Confirm-style operations take the accumulator and
	// return it cleared.
	DayAccumulator struct {
		Date Date
		// OpeningHold is the cash carried over from the previous day (A).
		OpeningHold Money
		// MorningHandover is the cash counted at the morning shift boundary (B).
		MorningHandover Money
		// EveningCount is the cash physically present at end of day (F).
		EveningCount Money
		// NextFloat is the float retained for tomorrow (J). Nil means "use
		// the default"; an explicit zero retains nothing in the drawer.
		NextFloat *Money

		MorningExpenses []ShiftExpense
		EveningExpenses []ShiftExpense
		MorningReceipts []ShiftReceipt
		EveningReceipts []ShiftReceipt
	}

	// DaySettlement is the pure computation of a day's revenue and cash
	// split. It never touches the ledger; Plan turns it into ledger rows.
	DaySettlement struct {
		MorningRevenue Money
		EveningRevenue Money
		// Withdrawal is K = F - J. Negative means the drawer must be topped
		// up rather than skimmed.
		Withdrawal   Money
		TotalNonCash Money
		TotalExpense Money
		TotalRevenue Money
		CashSales    Money
		// Consistent is false when the day total disagrees with the sum of
		// the two shifts' implied revenues. A mismatch is surfaced, never
		// enforced: the human counting the till is the authority.
		Consistent bool
		Warnings   []string
	}

	// CheckoutPlan is the set of ledger rows a confirmed day produces,
	// together with the settlement they were derived from.
	CheckoutPlan struct {
		Settlement   DaySettlement
		Transactions []Transaction
	}
)

// AddExpense records an itemized cash expense on the given shift.
func (a *DayAccumulator) AddExpense(shift Shift, e ShiftExpense) error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	switch shift {
	case ShiftMorning:
		a.MorningExpenses = append(a.MorningExpenses, e)
	case ShiftEvening:
		a.EveningExpenses = append(a.EveningExpenses, e)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidShift, shift)
	}
	return nil
}

// AddReceipt records a non-cash receipt on the given shift.
func (a *DayAccumulator) AddReceipt(shift Shift, r ShiftReceipt) error {
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if !r.Account.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, r.Account)
	}
	switch shift {
	case ShiftMorning:
		a.MorningReceipts = append(a.MorningReceipts, r)
	case ShiftEvening:
		a.EveningReceipts = append(a.EveningReceipts, r)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidShift, shift)
	}
	return nil
}

// Reset clears all accumulated shift state for the next day.
func (a *DayAccumulator) Reset() {
	*a = DayAccumulator{Date: a.Date}
}

func sumExpenses(items []ShiftExpense) Money {
	var total Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

func sumReceipts(items []ShiftReceipt) Money {
	var total Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// ImpliedRevenue applies the shift equation: cash counted at shift end, plus
// cash that left the drawer as expenses, plus revenue collected off-drawer,
// minus the cash already present at shift start.
func ImpliedRevenue(openingHold, handover, expenses, nonCash Money) Money {
	return handover.Add(expenses).Add(nonCash).Sub(openingHold)
}

// Settle computes the day's settlement. Pure; safe to call for previews.
func (a *DayAccumulator) Settle() DaySettlement {
	nextFloat := Money{Cents: DefaultTillFloatCents}
	if a.NextFloat != nil {
		nextFloat = *a.NextFloat
	}

	morningExp := sumExpenses(a.MorningExpenses)
	eveningExp := sumExpenses(a.EveningExpenses)
	morningNC := sumReceipts(a.MorningReceipts)
	eveningNC := sumReceipts(a.EveningReceipts)

	s := DaySettlement{
		MorningRevenue: ImpliedRevenue(a.OpeningHold, a.MorningHandover, morningExp, morningNC),
		EveningRevenue: ImpliedRevenue(a.MorningHandover, a.EveningCount, eveningExp, eveningNC),
		Withdrawal:     a.EveningCount.Sub(nextFloat),
		TotalNonCash:   morningNC.Add(eveningNC),
		TotalExpense:   morningExp.Add(eveningExp),
	}

	// J + K + L + M - A, which algebraically equals F + L + M - A.
	s.TotalRevenue = a.EveningCount.Add(s.TotalNonCash).Add(s.TotalExpense).Sub(a.OpeningHold)
	s.CashSales = a.EveningCount.Add(s.TotalExpense).Sub(a.OpeningHold)

	shiftSum := s.MorningRevenue.Add(s.EveningRevenue)
	s.Consistent = shiftSum.Cents == s.TotalRevenue.Cents
	if !s.Consistent {
		s.Warnings = append(s.Warnings, fmt.Sprintf(
			"shift revenues sum to %d but day total is %d; check handover amounts",
			shiftSum.Cents, s.TotalRevenue.Cents))
	}
	return s
}

type groupKey struct {
	category    string
	subcategory string
	account     Account
}

type group struct {
	amount Money
	notes  []string
}

func checkoutNote(notes []string) string {
	joined := strings.Join(notes, " | ")
	if joined == "" {
		return checkoutNotePrefix
	}
	return checkoutNotePrefix + " " + joined
}

// Plan turns the accumulated day into the net new ledger rows: one expense
// row per (category, subcategory), one income row per (category,
// subcategory, account) with the catalog's fee adjustment applied to the
// group total, and a single cash-sales income row when positive. A negative
// derived cash-sales figure is a fatal input error and yields no rows at
// all, so no partial writes can follow from it.
func (a *DayAccumulator) Plan(catalog *Catalog) (CheckoutPlan, error) {
	if err := a.Date.Validate(); err != nil {
		return CheckoutPlan{}, err
	}
	settlement := a.Settle()
	if settlement.CashSales.Cents < 0 {
		return CheckoutPlan{}, fmt.Errorf("%w: %d cents on %s",
			ErrNegativeCashSale, settlement.CashSales.Cents, a.Date)
	}

	plan := CheckoutPlan{Settlement: settlement}

	// Expense groups, in first-seen order.
	var expOrder []groupKey
	expGroups := map[groupKey]*group{}
	for _, e := range append(append([]ShiftExpense(nil), a.MorningExpenses...), a.EveningExpenses...) {
		k := groupKey{category: e.Category, subcategory: e.Subcategory}
		g, ok := expGroups[k]
		if !ok {
			g = &group{}
			expGroups[k] = g
			expOrder = append(expOrder, k)
		}
		g.amount = g.amount.Add(e.Amount)
		if e.Note != "" {
			g.notes = append(g.notes, e.Note)
		}
	}
	for _, k := range expOrder {
		g := expGroups[k]
		plan.Transactions = append(plan.Transactions, Transaction{
			Date:        a.Date,
			Kind:        KindExpense,
			Category:    k.category,
			Subcategory: k.subcategory,
			Account:     AccountCash, // drawer expenses are paid in cash
			Amount:      g.amount,
			Note:        checkoutNote(g.notes),
		})
	}

	// Non-cash receipt groups, rate-adjusted on the group total.
	var incOrder []groupKey
	incGroups := map[groupKey]*group{}
	for _, r := range append(append([]ShiftReceipt(nil), a.MorningReceipts...), a.EveningReceipts...) {
		k := groupKey{category: r.Category, subcategory: r.Subcategory, account: r.Account}
		g, ok := incGroups[k]
		if !ok {
			g = &group{}
			incGroups[k] = g
			incOrder = append(incOrder, k)
		}
		g.amount = g.amount.Add(r.Amount)
		if r.Note != "" {
			g.notes = append(g.notes, r.Note)
		}
	}
	for _, k := range incOrder {
		g := incGroups[k]
		net, adjusted := catalog.NetAmount(k.category, k.subcategory, g.amount)
		tx := Transaction{
			Date:        a.Date,
			Kind:        KindIncome,
			Category:    k.category,
			Subcategory: k.subcategory,
			Account:     k.account,
			Amount:      net,
			Note:        checkoutNote(g.notes),
		}
		if adjusted {
			tx.OriginalAmount = g.amount
		}
		plan.Transactions = append(plan.Transactions, tx)
	}

	if settlement.CashSales.Cents > 0 {
		plan.Transactions = append(plan.Transactions, Transaction{
			Date:        a.Date,
			Kind:        KindIncome,
			Category:    CategorySales,
			Subcategory: SubCash,
			Account:     AccountCash,
			Amount:      settlement.CashSales,
			Note:        cashSalesNote,
		})
	}
	return plan, nil
}
