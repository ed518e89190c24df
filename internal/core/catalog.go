package core

import "sort"

// Category and subcategory names. These mirror the pharmacy's chart of
// accounts; the catalog below attaches fee-adjustment rates and account
// hints to them.
const (
	CategorySales        = "SalesIncome"
	CategoryNHI          = "NHIIncome"
	CategoryOwnerCapital = "OwnerCapital"

	SubLinePay      = "LinePay"
	SubCreditCard   = "CreditCard"
	SubCash         = "Cash"
	SubBankTransfer = "BankTransfer"

	SubNHIInterim1 = "NHIInterim1"
	SubNHIInterim2 = "NHIInterim2"
	SubNHISubsidy  = "NHISubsidy"

	SubInjection    = "Injection"
	SubCarryForward = "CarryForward"

	CategoryPayroll     = "Payroll"
	CategoryUtilities   = "Utilities"
	CategoryInsurance   = "Insurance"
	CategoryCostOfGoods = "CostOfGoods"
	CategoryTax         = "Tax"
	CategoryHousehold   = "Household"

	CategoryTransferOut = "TransferOut"
	CategoryTransferIn  = "TransferIn"
)

// Rule describes how a (category, subcategory) pair posts to the ledger.
// Rate scales the entered amount (payment-processor fees); AccountHint is
// the account the money normally lands on.
type Rule struct {
	Rate        float64
	AccountHint Account
}

// Adjusted reports whether applying this rule changes the posted amount.
func (r Rule) Adjusted() bool { return r.Rate != 1.0 }

// Catalog is the static taxonomy of income and expense categories. It is
// immutable after construction; unknown lookups fail closed to a no-op rate
// of 1.0.
type Catalog struct {
	income  map[string]map[string]Rule
	expense map[string][]string
}

// DefaultCatalog returns the pharmacy's taxonomy with the production rates.
func DefaultCatalog() *Catalog {
	return &Catalog{
		income: map[string]map[string]Rule{
			CategorySales: {
				SubLinePay:      {Rate: 0.977, AccountHint: AccountBank},
				SubCreditCard:   {Rate: 0.98, AccountHint: AccountBank},
				SubCash:         {Rate: 1.0, AccountHint: AccountCash},
				SubBankTransfer: {Rate: 1.0, AccountHint: AccountBank},
			},
			CategoryNHI: {
				SubNHIInterim1: {Rate: 1.0, AccountHint: AccountBank},
				SubNHIInterim2: {Rate: 1.0, AccountHint: AccountBank},
				SubNHISubsidy:  {Rate: 1.0, AccountHint: AccountBank},
			},
			CategoryOwnerCapital: {
				SubInjection:    {Rate: 1.0, AccountHint: AccountBank},
				SubCarryForward: {Rate: 1.0, AccountHint: AccountBank},
			},
		},
		expense: map[string][]string{
			CategoryPayroll:     {"Monthly", "Bonus", "LeavePayout"},
			CategoryUtilities:   {"Water", "Electricity", "Gas", "Telecom", "MatCleaning", "Misc"},
			CategoryInsurance:   {"LaborInsurance", "HealthInsurance", "Pension"},
			CategoryCostOfGoods: {"DispensedDrugs", "RetailGoods"},
			CategoryTax:         {"BusinessTax"},
			CategoryHousehold:   {"Housekeeping", "Groceries", "Eggs", "Parking", "Other"},
		},
	}
}

// Lookup returns the rule for an income (category, subcategory) pair. An
// unknown pair yields the identity rule so posting proceeds unadjusted.
func (c *Catalog) Lookup(category, subcategory string) Rule {
	if subs, ok := c.income[category]; ok {
		if rule, ok := subs[subcategory]; ok {
			return rule
		}
	}
	return Rule{Rate: 1.0}
}

// NetAmount applies the catalog's fee adjustment to an entered income
// amount. Only sales income carries non-identity rates; everything else
// posts as entered.
func (c *Catalog) NetAmount(category, subcategory string, amount Money) (net Money, adjusted bool) {
	rule := c.Lookup(category, subcategory)
	if !rule.Adjusted() {
		return amount, false
	}
	return amount.ApplyRate(rule.Rate), true
}

// IncomeCategories returns the income category names, sorted.
func (c *Catalog) IncomeCategories() []string {
	out := make([]string, 0, len(c.income))
	for k := range c.income {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IncomeSubcategories returns the subcategory names of an income category,
// sorted. Nil for unknown categories.
func (c *Catalog) IncomeSubcategories(category string) []string {
	subs, ok := c.income[category]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(subs))
	for k := range subs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExpenseCategories returns the expense category names, sorted.
func (c *Catalog) ExpenseCategories() []string {
	out := make([]string, 0, len(c.expense))
	for k := range c.expense {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ExpenseSubcategories returns the subcategory names of an expense category.
func (c *Catalog) ExpenseSubcategories(category string) []string {
	return append([]string(nil), c.expense[category]...)
}

// NonCashSubcategories lists the sales subcategories collected through
// non-cash channels during checkout.
func (c *Catalog) NonCashSubcategories() []string {
	return []string{SubLinePay, SubCreditCard, SubBankTransfer}
}
