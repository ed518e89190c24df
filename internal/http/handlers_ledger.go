package http

import (
	"net/http"
	"strconv"
	"strings"

	"tillbook/internal/core"
	"tillbook/internal/ledger"
)

type createTransactionRequest struct {
	Date                string `json:"date"`
	Kind                string `json:"kind"`
	Category            string `json:"category"`
	Subcategory         string `json:"subcategory"`
	Account             string `json:"account"`
	Amount              string `json:"amount"`
	Note                string `json:"note"`
	ReimbursementPeriod string `json:"reimbursement_period"`
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	kind := core.Kind(req.Kind)
	if kind == core.KindTransfer {
		// Transfers go through the resolver so the pair stays correlated.
		writeBadRequest(w, "use /api/transfers for fund movements")
		return
	}

	tx := core.Transaction{
		Date:                date,
		Kind:                kind,
		Category:            sanitizeInput(req.Category),
		Subcategory:         sanitizeInput(req.Subcategory),
		Account:             core.Account(req.Account),
		Amount:              amount,
		Note:                sanitizeInput(req.Note),
		ReimbursementPeriod: strings.TrimSpace(req.ReimbursementPeriod),
	}
	if err := tx.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	stored, err := s.ledger.Append(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, toTransactionJSON(stored))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.ledger.List(r.Context(), rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionListJSON(rows))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid transaction id")
		return
	}
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	Date     string `json:"date"`
	From     string `json:"from"`
	To       string `json:"to"`
	Withdraw bool   `json:"withdraw"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !req.Withdraw && req.From == req.To {
		writeBadRequest(w, "transfer source and destination must differ")
		return
	}

	rows, err := s.ledger.RecordTransfer(r.Context(), core.TransferRequest{
		From:     core.Account(req.From),
		To:       core.Account(req.To),
		Withdraw: req.Withdraw,
		Date:     date,
		Amount:   amount,
		Note:     sanitizeInput(req.Note),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, toTransactionListJSON(rows))
}

type summaryResponse struct {
	TotalIncome         moneyJSON            `json:"total_income"`
	TotalExpense        moneyJSON            `json:"total_expense"`
	NetProfit           moneyJSON            `json:"net_profit"`
	IncomeBySubcategory []categoryAmountJSON `json:"income_by_subcategory"`
	ExpenseByCategory   []categoryAmountJSON `json:"expense_by_category"`
}

type categoryAmountJSON struct {
	Name   string    `json:"name"`
	Amount moneyJSON `json:"amount"`
}

func (s *Server) handleSummaryReport(w http.ResponseWriter, r *http.Request) {
	rng, err := rangeFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := rng.Start.String() + ":" + rng.End.String()
	sum, ok := s.summaryCache.Get(key)
	if !ok {
		sum, err = s.ledger.Summarize(r.Context(), rng)
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Set(key, sum)
	}

	resp := summaryResponse{
		TotalIncome:  toMoneyJSON(sum.TotalIncome),
		TotalExpense: toMoneyJSON(sum.TotalExpense),
		NetProfit:    toMoneyJSON(sum.NetProfit),
	}
	for _, ca := range sum.IncomeBySubcategory {
		resp.IncomeBySubcategory = append(resp.IncomeBySubcategory,
			categoryAmountJSON{Name: ca.Name, Amount: toMoneyJSON(ca.Amount)})
	}
	for _, ca := range sum.ExpenseByCategory {
		resp.ExpenseByCategory = append(resp.ExpenseByCategory,
			categoryAmountJSON{Name: ca.Name, Amount: toMoneyJSON(ca.Amount)})
	}
	writeJSON(w, http.StatusOK, resp)
}

// rangeFromQuery reads optional start/end date bounds.
func rangeFromQuery(r *http.Request) (ledger.Range, error) {
	var rng ledger.Range
	if v := strings.TrimSpace(r.URL.Query().Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ledger.Range{}, err
		}
		rng.Start = d
	}
	if v := strings.TrimSpace(r.URL.Query().Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ledger.Range{}, err
		}
		rng.End = d
	}
	return rng, nil
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
