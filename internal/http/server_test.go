package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tillbook/internal/core"
	"tillbook/internal/ledger"
	"tillbook/internal/memstore"
	"tillbook/internal/services"
)

// queryAll is the unbounded range.
func queryAll() ledger.Range { return ledger.Range{} }

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	catalog := core.DefaultCatalog()
	ledgerSvc := services.NewLedgerService(store, catalog, nil)
	s := NewServer(":0", Services{
		Ledger:         ledgerSvc,
		Checkout:       services.NewCheckoutService(ledgerSvc, catalog, core.Money{Cents: core.DefaultTillFloatCents}),
		Closings:       services.NewClosingService(store, store.Closings(), nil),
		Reimbursements: services.NewReimbursementService(store.Reimbursements(), store, nil),
	})
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestCreateTransactionAppliesRate(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", `{
		"date": "2026-03-05",
		"kind": "income",
		"category": "SalesIncome",
		"subcategory": "LinePay",
		"account": "bank",
		"amount": "1000.00"
	}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	tx := decodeBody[transactionJSON](t, rec)
	if tx.AmountCents != 97700 || tx.Amount != "977.00" {
		t.Fatalf("amount = %+v", tx)
	}
	if tx.OriginalAmount != "1000.00" {
		t.Fatalf("original amount = %q", tx.OriginalAmount)
	}
	if tx.ID == 0 {
		t.Fatal("no id assigned")
	}
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"bad date", `{"date":"2026-13-40","kind":"expense","category":"Utilities","account":"bank","amount":"10.00"}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"date":"2026-03-05","kind":"expense","category":"Utilities","account":"bank","amount":"0"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"date":"2026-03-05","kind":"expense","category":"Utilities","account":"bank","amount":"-5.00"}`, http.StatusUnprocessableEntity},
		{"bad account", `{"date":"2026-03-05","kind":"expense","category":"Utilities","account":"wallet","amount":"10.00"}`, http.StatusUnprocessableEntity},
		{"empty category", `{"date":"2026-03-05","kind":"expense","category":"  ","account":"bank","amount":"10.00"}`, http.StatusUnprocessableEntity},
		{"transfer kind", `{"date":"2026-03-05","kind":"transfer","category":"TransferOut","account":"bank","amount":"10.00"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("status %d, want %d: %s", rec.Code, tc.code, rec.Body.String())
			}
		})
	}
}

func TestListAndDeleteTransaction(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", `{
		"date": "2026-03-05", "kind": "expense", "category": "Utilities",
		"account": "bank", "amount": "150.00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}
	created := decodeBody[transactionJSON](t, rec)

	rec = doJSON(t, s, http.MethodGet, "/api/transactions?start=2026-03-01&end=2026-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d", rec.Code)
	}
	rows := decodeBody[[]transactionJSON](t, rec)
	if len(rows) != 1 || rows[0].ID != created.ID {
		t.Fatalf("rows = %+v", rows)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/1", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/transactions/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestCreateTransferPair(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transfers", `{
		"date": "2026-03-10", "from": "cash", "to": "bank",
		"amount": "15000.00", "note": "evening deposit"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	rows := decodeBody[[]transactionJSON](t, rec)
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].TransferGroup == "" || rows[0].TransferGroup != rows[1].TransferGroup {
		t.Fatalf("correlation ids: %q vs %q", rows[0].TransferGroup, rows[1].TransferGroup)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/transfers", `{
		"date": "2026-03-10", "from": "cash", "to": "cash", "amount": "10.00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("same-account transfer: %d", rec.Code)
	}
}

func checkoutBody() string {
	return `{
		"date": "2026-03-05",
		"opening_hold": "26850.00",
		"morning_handover": "36850.00",
		"evening_count": "41850.00",
		"expenses": [
			{"shift": "morning", "category": "Utilities", "amount": "500.00", "note": "water bill"}
		],
		"receipts": [
			{"shift": "morning", "category": "SalesIncome", "subcategory": "LinePay", "account": "bank", "amount": "1000.00"},
			{"shift": "evening", "category": "SalesIncome", "subcategory": "CreditCard", "account": "bank", "amount": "2000.00"}
		]
	}`
}

func TestCheckoutPreviewAndConfirm(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	rec := doJSON(t, s, http.MethodPost, "/api/checkout/preview", checkoutBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	preview := decodeBody[checkoutResponse](t, rec)
	if preview.Settlement.CashSales.Cents != 1550000 {
		t.Fatalf("cash sales = %+v", preview.Settlement.CashSales)
	}
	if !preview.Settlement.Consistent {
		t.Fatalf("warnings: %v", preview.Settlement.Warnings)
	}
	if rows, _ := store.Query(ctx, queryAll()); len(rows) != 0 {
		t.Fatalf("preview wrote %d rows", len(rows))
	}

	rec = doJSON(t, s, http.MethodPost, "/api/checkout/confirm", checkoutBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}
	confirmed := decodeBody[checkoutResponse](t, rec)
	if len(confirmed.Transactions) != 4 {
		t.Fatalf("confirmed %d rows", len(confirmed.Transactions))
	}
	if rows, _ := store.Query(ctx, queryAll()); len(rows) != 4 {
		t.Fatalf("stored %d rows", len(rows))
	}
}

func TestCheckoutZeroFloatWithdrawsEverything(t *testing.T) {
	s, _ := newTestServer(t)

	// next_float "0" is explicit, unlike an omitted field which falls back
	// to the configured default.
	body := strings.Replace(checkoutBody(), `"date": "2026-03-05",`,
		`"date": "2026-03-05", "next_float": "0",`, 1)
	rec := doJSON(t, s, http.MethodPost, "/api/checkout/preview", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	preview := decodeBody[checkoutResponse](t, rec)
	if preview.Settlement.Withdrawal.Cents != 4185000 {
		t.Fatalf("withdrawal = %+v, want full evening count", preview.Settlement.Withdrawal)
	}
}

func TestCheckoutNegativeCashSales(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/checkout/confirm", `{
		"date": "2026-03-06",
		"opening_hold": "1000.00",
		"evening_count": "500.00"
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if rows, _ := store.Query(context.Background(), queryAll()); len(rows) != 0 {
		t.Fatalf("partial write: %d rows", len(rows))
	}
}

func TestClosingPreviewAndSave(t *testing.T) {
	s, _ := newTestServer(t)

	seed := []string{
		`{"date":"2026-03-01","kind":"income","category":"OwnerCapital","subcategory":"CarryForward","account":"cash","amount":"26850.00"}`,
		`{"date":"2026-03-05","kind":"income","category":"SalesIncome","subcategory":"Cash","account":"cash","amount":"5000.00"}`,
		`{"date":"2026-03-10","kind":"expense","category":"Utilities","account":"bank","amount":"1000.00"}`,
	}
	for _, body := range seed {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/closings/2026-03/preview", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("preview: %d %s", rec.Code, rec.Body.String())
	}
	preview := decodeBody[closingPreviewResponse](t, rec)
	if preview.Cash.Expected.Cents != 3185000 {
		t.Fatalf("cash expected = %+v", preview.Cash.Expected)
	}
	if preview.Existing != nil {
		t.Fatal("no closing saved yet")
	}

	rec = doJSON(t, s, http.MethodPost, "/api/closings/2026-03", `{
		"bank_actual": "2000.00", "cash_actual": "31850.00", "note": "march close"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save: %d %s", rec.Code, rec.Body.String())
	}
	saved := decodeBody[saveClosingResponse](t, rec)
	if saved.BankVariance.Cents != 300000 || saved.CashVariance.Cents != 0 {
		t.Fatalf("variance = %+v", saved)
	}
	if len(saved.CarryForward) != 2 {
		t.Fatalf("carry-forward = %+v", saved.CarryForward)
	}
	for _, row := range saved.CarryForward {
		if row.Date != "2026-04-01" {
			t.Fatalf("carry-forward dated %s", row.Date)
		}
	}

	rec = doJSON(t, s, http.MethodGet, "/api/closings/2026-03/preview", "")
	preview = decodeBody[closingPreviewResponse](t, rec)
	if preview.Existing == nil || preview.Existing.Note != "march close" {
		t.Fatalf("existing = %+v", preview.Existing)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/closings/not-a-month/preview", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad month: %d", rec.Code)
	}
}

func TestSummaryAndProfitReports(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	seed := []string{
		`{"date":"2026-03-05","kind":"income","category":"SalesIncome","subcategory":"Cash","account":"cash","amount":"5000.00"}`,
		`{"date":"2026-03-10","kind":"expense","category":"Utilities","account":"bank","amount":"1000.00"}`,
	}
	for _, body := range seed {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/reports/summary?start=2026-03-01&end=2026-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", rec.Code, rec.Body.String())
	}
	sum := decodeBody[summaryResponse](t, rec)
	if sum.NetProfit.Cents != 400000 {
		t.Fatalf("net profit = %+v", sum.NetProfit)
	}

	for _, c := range []core.MonthlyClosing{
		{Month: "2026-02", BankActual: core.Money{Cents: 100000}, CashActual: core.Money{Cents: 200000}},
		{Month: "2026-03", BankActual: core.Money{Cents: 150000}, CashActual: core.Money{Cents: 250000}},
	} {
		if err := store.Closings().Upsert(ctx, c); err != nil {
			t.Fatalf("upsert closing: %v", err)
		}
	}
	rec = doJSON(t, s, http.MethodGet, "/api/reports/profit?from=2026-03&to=2026-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("profit: %d %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[profitReportResponse](t, rec)
	if len(report.Months) != 1 || report.Months[0].GrossChange.Cents != 100000 {
		t.Fatalf("report = %+v", report)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reports/profit", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing params: %d", rec.Code)
	}
}

func TestReimbursementEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/reimbursements/2026-01", `{
		"total_fee": "100000.00",
		"deduction": "5000.00",
		"drug_fee": "20000.00",
		"chronic_count": 100,
		"general_count": 350
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	stored := decodeBody[reimbursementRecordJSON](t, rec)
	if stored.Period != "2026-01" || stored.TotalFee.Cents != 10000000 {
		t.Fatalf("stored = %+v", stored)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reimbursements/2026-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/reimbursements/2025-12", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing period: %d", rec.Code)
	}

	// Interim receipt booked in March against the January period.
	rec = doJSON(t, s, http.MethodPost, "/api/transactions", `{
		"date": "2026-03-15", "kind": "income", "category": "NHIIncome",
		"subcategory": "NHIInterim1", "account": "bank",
		"amount": "110000.00", "reimbursement_period": "2026-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("receipt: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reimbursements/analysis?from=2026-01&to=2026-01", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis: %d %s", rec.Code, rec.Body.String())
	}
	analyses := decodeBody[[]reimbursementAnalysisJSON](t, rec)
	if len(analyses) != 1 {
		t.Fatalf("analyses = %+v", analyses)
	}
	a := analyses[0]
	if a.PointValue != 0.95 {
		t.Fatalf("point value = %v", a.PointValue)
	}
	if a.Receivable.Cents != 11500000 || a.Variance.Cents != -500000 {
		t.Fatalf("analysis = %+v", a)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/reimbursements/analysis?from=bad&to=2026-01", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad period: %d", rec.Code)
	}
}
