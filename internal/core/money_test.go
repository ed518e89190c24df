package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12.345", 1234, true},
		{"12.346", 1235, true},
		{"1000", 100000, true},
		{"0", 0, false},
		{"", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseDecimalToCents(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseDecimalToCents(%q) expected error", tc.in)
		}
	}
}

func TestApplyRate(t *testing.T) {
	// 1000.00 at the Line Pay rate nets 977.00 exactly.
	if got := (Money{Cents: 100000}).ApplyRate(0.977); got.Cents != 97700 {
		t.Fatalf("got %d cents", got.Cents)
	}
	// Identity rate must not round-trip through float.
	m := Money{Cents: 33333}
	if got := m.ApplyRate(1.0); got != m {
		t.Fatalf("identity rate changed amount: %d", got.Cents)
	}
	// Half-up on the cent boundary: 999 * 0.977 = 976.023 -> 976.
	if got := (Money{Cents: 999}).ApplyRate(0.977); got.Cents != 976 {
		t.Fatalf("got %d cents", got.Cents)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a, b := Money{Cents: 500}, Money{Cents: 700}
	if a.Add(b).Cents != 1200 {
		t.Fatal("Add")
	}
	if a.Sub(b).Cents != -200 {
		t.Fatal("Sub may go negative")
	}
	if SumMoney([]Money{a, b, b}).Cents != 1900 {
		t.Fatal("SumMoney")
	}
}
