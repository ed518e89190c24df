package http

import (
	"net/http"
	"strings"

	"tillbook/internal/core"
	"tillbook/internal/services"
)

type (
	accountFlowJSON struct {
		Opening     moneyJSON `json:"opening"`
		Income      moneyJSON `json:"income"`
		Expense     moneyJSON `json:"expense"`
		TransferIn  moneyJSON `json:"transfer_in"`
		TransferOut moneyJSON `json:"transfer_out"`
		Expected    moneyJSON `json:"expected"`
	}

	closingPreviewResponse struct {
		Month    string          `json:"month"`
		Bank     accountFlowJSON `json:"bank"`
		Cash     accountFlowJSON `json:"cash"`
		Existing *closingJSON    `json:"existing,omitempty"`
	}

	closingJSON struct {
		Month      string    `json:"month"`
		BankActual moneyJSON `json:"bank_actual"`
		CashActual moneyJSON `json:"cash_actual"`
		BankCalc   moneyJSON `json:"bank_calc"`
		CashCalc   moneyJSON `json:"cash_calc"`
		Note       string    `json:"note,omitempty"`
		ClosedAt   string    `json:"closed_at"`
	}

	saveClosingRequest struct {
		BankActual string `json:"bank_actual"`
		CashActual string `json:"cash_actual"`
		Note       string `json:"note"`
	}

	saveClosingResponse struct {
		Closing      closingJSON       `json:"closing"`
		BankVariance moneyJSON         `json:"bank_variance"`
		CashVariance moneyJSON         `json:"cash_variance"`
		CarryForward []transactionJSON `json:"carry_forward"`
	}

	monthProfitJSON struct {
		Month            string    `json:"month"`
		OpeningTotal     moneyJSON `json:"opening_total"`
		ClosingTotal     moneyJSON `json:"closing_total"`
		GrossChange      moneyJSON `json:"gross_change"`
		CapitalInjection moneyJSON `json:"capital_injection"`
		Withdrawals      moneyJSON `json:"withdrawals"`
		NetProfit        moneyJSON `json:"net_profit"`
	}

	profitReportResponse struct {
		Months        []monthProfitJSON `json:"months"`
		MissingMonths []string          `json:"missing_months,omitempty"`
	}
)

func toAccountFlowJSON(f core.AccountFlow) accountFlowJSON {
	return accountFlowJSON{
		Opening:     toMoneyJSON(f.Opening),
		Income:      toMoneyJSON(f.Income),
		Expense:     toMoneyJSON(f.Expense),
		TransferIn:  toMoneyJSON(f.TransferIn),
		TransferOut: toMoneyJSON(f.TransferOut),
		Expected:    toMoneyJSON(f.Expected),
	}
}

func toClosingJSON(c core.MonthlyClosing) closingJSON {
	return closingJSON{
		Month:      c.Month,
		BankActual: toMoneyJSON(c.BankActual),
		CashActual: toMoneyJSON(c.CashActual),
		BankCalc:   toMoneyJSON(c.BankCalc),
		CashCalc:   toMoneyJSON(c.CashCalc),
		Note:       c.Note,
		ClosedAt:   c.ClosedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func (s *Server) handleClosingPreview(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	preview, err := s.closings.Preview(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := closingPreviewResponse{
		Month: preview.Computation.Month,
		Bank:  toAccountFlowJSON(preview.Computation.Bank),
		Cash:  toAccountFlowJSON(preview.Computation.Cash),
	}
	if preview.Exists {
		existing := toClosingJSON(preview.Existing)
		resp.Existing = &existing
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveClosing(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")

	var req saveClosingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	bankActual, err := parseBalance(req.BankActual)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cashActual, err := parseBalance(req.CashActual)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.closings.Save(r.Context(), services.SaveClosingInput{
		Month:      month,
		BankActual: bankActual,
		CashActual: cashActual,
		Note:       sanitizeInput(req.Note),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports()

	writeJSON(w, http.StatusOK, saveClosingResponse{
		Closing:      toClosingJSON(result.Closing),
		BankVariance: toMoneyJSON(result.Variance.Bank),
		CashVariance: toMoneyJSON(result.Variance.Cash),
		CarryForward: toTransactionListJSON(result.CarryForward),
	})
}

func (s *Server) handleProfitReport(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeBadRequest(w, "from and to month keys are required")
		return
	}

	key := from + ":" + to
	report, ok := s.profitCache.Get(key)
	if !ok {
		var err error
		report, err = s.closings.MonthlyProfit(r.Context(), from, to)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.profitCache.Set(key, report)
	}

	resp := profitReportResponse{MissingMonths: report.MissingMonths}
	for _, m := range report.Months {
		resp.Months = append(resp.Months, monthProfitJSON{
			Month:            m.Month,
			OpeningTotal:     toMoneyJSON(m.OpeningTotal),
			ClosingTotal:     toMoneyJSON(m.ClosingTotal),
			GrossChange:      toMoneyJSON(m.GrossChange),
			CapitalInjection: toMoneyJSON(m.CapitalInjection),
			Withdrawals:      toMoneyJSON(m.Withdrawals),
			NetProfit:        toMoneyJSON(m.NetProfit),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
