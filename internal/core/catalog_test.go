package core

import "testing"

func TestNetAmountRates(t *testing.T) {
	cat := DefaultCatalog()
	cases := []struct {
		category    string
		subcategory string
		amount      int64
		wantNet     int64
		wantAdj     bool
	}{
		{CategorySales, SubLinePay, 100000, 97700, true},
		{CategorySales, SubCreditCard, 100000, 98000, true},
		{CategorySales, SubCash, 100000, 100000, false},
		{CategorySales, SubBankTransfer, 100000, 100000, false},
		{CategoryNHI, SubNHIInterim1, 100000, 100000, false},
		{CategoryOwnerCapital, SubInjection, 100000, 100000, false},
		// Unknown pairs fail closed to the identity rate.
		{CategorySales, "GiftCard", 100000, 100000, false},
		{"Donations", "", 100000, 100000, false},
	}
	for _, tc := range cases {
		net, adjusted := cat.NetAmount(tc.category, tc.subcategory, Money{Cents: tc.amount})
		if net.Cents != tc.wantNet || adjusted != tc.wantAdj {
			t.Fatalf("NetAmount(%s/%s, %d) = %d, %v; want %d, %v",
				tc.category, tc.subcategory, tc.amount, net.Cents, adjusted, tc.wantNet, tc.wantAdj)
		}
	}
}

func TestCatalogListings(t *testing.T) {
	cat := DefaultCatalog()
	if got := cat.IncomeCategories(); len(got) != 3 {
		t.Fatalf("income categories = %v", got)
	}
	if got := cat.IncomeSubcategories(CategorySales); len(got) != 4 {
		t.Fatalf("sales subcategories = %v", got)
	}
	if got := cat.IncomeSubcategories("Nope"); got != nil {
		t.Fatalf("unknown category should list nil, got %v", got)
	}
	if got := cat.ExpenseCategories(); len(got) != 6 {
		t.Fatalf("expense categories = %v", got)
	}
	if got := cat.ExpenseSubcategories(CategoryCostOfGoods); len(got) != 2 {
		t.Fatalf("cost of goods subcategories = %v", got)
	}
}

func TestAdjustedIffRateNotOne(t *testing.T) {
	cat := DefaultCatalog()
	for _, c := range cat.IncomeCategories() {
		for _, s := range cat.IncomeSubcategories(c) {
			rule := cat.Lookup(c, s)
			_, adjusted := cat.NetAmount(c, s, Money{Cents: 100000})
			if adjusted != (rule.Rate != 1.0) {
				t.Fatalf("%s/%s: adjusted=%v with rate %v", c, s, adjusted, rule.Rate)
			}
		}
	}
}
