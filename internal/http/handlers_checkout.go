package http

import (
	"net/http"
	"strings"

	"tillbook/internal/core"
)

type (
	checkoutExpenseJSON struct {
		Shift       string `json:"shift"`
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
		Amount      string `json:"amount"`
		Note        string `json:"note"`
	}

	checkoutReceiptJSON struct {
		Shift       string `json:"shift"`
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
		Account     string `json:"account"`
		Amount      string `json:"amount"`
		Note        string `json:"note"`
	}

	// checkoutRequest carries a whole business day. The API is stateless:
	// the client resubmits the full day for preview and for confirm.
	checkoutRequest struct {
		Date            string                `json:"date"`
		OpeningHold     string                `json:"opening_hold"`
		MorningHandover string                `json:"morning_handover"`
		EveningCount    string                `json:"evening_count"`
		NextFloat       string                `json:"next_float"`
		Expenses        []checkoutExpenseJSON `json:"expenses"`
		Receipts        []checkoutReceiptJSON `json:"receipts"`
	}

	settlementJSON struct {
		MorningRevenue moneyJSON `json:"morning_revenue"`
		EveningRevenue moneyJSON `json:"evening_revenue"`
		Withdrawal     moneyJSON `json:"withdrawal"`
		TotalNonCash   moneyJSON `json:"total_non_cash"`
		TotalExpense   moneyJSON `json:"total_expense"`
		TotalRevenue   moneyJSON `json:"total_revenue"`
		CashSales      moneyJSON `json:"cash_sales"`
		Consistent     bool      `json:"consistent"`
		Warnings       []string  `json:"warnings,omitempty"`
	}

	checkoutResponse struct {
		Settlement   settlementJSON    `json:"settlement"`
		Transactions []transactionJSON `json:"transactions"`
	}
)

func (s *Server) handleCheckoutPreview(w http.ResponseWriter, r *http.Request) {
	acc, err := accumulatorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.checkout.Preview(acc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutResponse(plan))
}

func (s *Server) handleCheckoutConfirm(w http.ResponseWriter, r *http.Request) {
	acc, err := accumulatorFromRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := s.checkout.Confirm(r.Context(), acc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, toCheckoutResponse(plan))
}

func accumulatorFromRequest(r *http.Request) (*core.DayAccumulator, error) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	acc := &core.DayAccumulator{Date: date}
	if acc.OpeningHold, err = parseBalance(req.OpeningHold); err != nil {
		return nil, err
	}
	if acc.MorningHandover, err = parseBalance(req.MorningHandover); err != nil {
		return nil, err
	}
	if acc.EveningCount, err = parseBalance(req.EveningCount); err != nil {
		return nil, err
	}
	// An omitted next_float falls back to the configured default; an
	// explicit value, "0" included, is kept as sent.
	if strings.TrimSpace(req.NextFloat) != "" {
		f, err := parseBalance(req.NextFloat)
		if err != nil {
			return nil, err
		}
		acc.NextFloat = &f
	}

	for _, e := range req.Expenses {
		amount, err := parseAmount(e.Amount)
		if err != nil {
			return nil, err
		}
		if err := acc.AddExpense(core.Shift(e.Shift), core.ShiftExpense{
			Category:    sanitizeInput(e.Category),
			Subcategory: sanitizeInput(e.Subcategory),
			Amount:      amount,
			Note:        sanitizeInput(e.Note),
		}); err != nil {
			return nil, err
		}
	}
	for _, rc := range req.Receipts {
		amount, err := parseAmount(rc.Amount)
		if err != nil {
			return nil, err
		}
		if err := acc.AddReceipt(core.Shift(rc.Shift), core.ShiftReceipt{
			Category:    sanitizeInput(rc.Category),
			Subcategory: sanitizeInput(rc.Subcategory),
			Account:     core.Account(rc.Account),
			Amount:      amount,
			Note:        sanitizeInput(rc.Note),
		}); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func toCheckoutResponse(plan core.CheckoutPlan) checkoutResponse {
	st := plan.Settlement
	return checkoutResponse{
		Settlement: settlementJSON{
			MorningRevenue: toMoneyJSON(st.MorningRevenue),
			EveningRevenue: toMoneyJSON(st.EveningRevenue),
			Withdrawal:     toMoneyJSON(st.Withdrawal),
			TotalNonCash:   toMoneyJSON(st.TotalNonCash),
			TotalExpense:   toMoneyJSON(st.TotalExpense),
			TotalRevenue:   toMoneyJSON(st.TotalRevenue),
			CashSales:      toMoneyJSON(st.CashSales),
			Consistent:     st.Consistent,
			Warnings:       st.Warnings,
		},
		Transactions: toTransactionListJSON(plan.Transactions),
	}
}
