package http

import (
	"net/http"
	"strings"

	"tillbook/internal/core"
)

type (
	upsertReimbursementRequest struct {
		TotalFee     string `json:"total_fee"`
		Deduction    string `json:"deduction"`
		Rejection    string `json:"rejection"`
		DrugFee      string `json:"drug_fee"`
		ChronicCount int    `json:"chronic_count"`
		GeneralCount int    `json:"general_count"`
	}

	reimbursementRecordJSON struct {
		Period       string    `json:"period"`
		TotalFee     moneyJSON `json:"total_fee"`
		Deduction    moneyJSON `json:"deduction"`
		Rejection    moneyJSON `json:"rejection"`
		DrugFee      moneyJSON `json:"drug_fee"`
		ChronicCount int       `json:"chronic_count"`
		GeneralCount int       `json:"general_count"`
		UpdatedAt    string    `json:"updated_at"`
	}

	reimbursementAnalysisJSON struct {
		Period        string    `json:"period"`
		PointValue    float64   `json:"point_value"`
		Receivable    moneyJSON `json:"receivable"`
		ServiceFee    moneyJSON `json:"service_fee"`
		ChronicIncome moneyJSON `json:"chronic_income"`
		GeneralIncome moneyJSON `json:"general_income"`
		ChronicCount  int       `json:"chronic_count"`
		GeneralCount  int       `json:"general_count"`
		LedgerActual  moneyJSON `json:"ledger_actual"`
		Variance      moneyJSON `json:"variance"`
	}
)

func toReimbursementRecordJSON(rec core.ReimbursementRecord) reimbursementRecordJSON {
	return reimbursementRecordJSON{
		Period:       rec.Period,
		TotalFee:     toMoneyJSON(rec.TotalFee),
		Deduction:    toMoneyJSON(rec.Deduction),
		Rejection:    toMoneyJSON(rec.Rejection),
		DrugFee:      toMoneyJSON(rec.DrugFee),
		ChronicCount: rec.ChronicCount,
		GeneralCount: rec.GeneralCount,
		UpdatedAt:    rec.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func toReimbursementAnalysisJSON(a core.ReimbursementAnalysis) reimbursementAnalysisJSON {
	return reimbursementAnalysisJSON{
		Period:        a.Period,
		PointValue:    a.PointValue,
		Receivable:    toMoneyJSON(a.Receivable),
		ServiceFee:    toMoneyJSON(a.ServiceFee),
		ChronicIncome: toMoneyJSON(a.ChronicIncome),
		GeneralIncome: toMoneyJSON(a.GeneralIncome),
		ChronicCount:  a.ChronicCount,
		GeneralCount:  a.GeneralCount,
		LedgerActual:  toMoneyJSON(a.LedgerActual),
		Variance:      toMoneyJSON(a.Variance),
	}
}

func (s *Server) handleUpsertReimbursement(w http.ResponseWriter, r *http.Request) {
	period := r.PathValue("period")

	var req upsertReimbursementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec := core.ReimbursementRecord{
		Period:       period,
		ChronicCount: req.ChronicCount,
		GeneralCount: req.GeneralCount,
	}
	var err error
	if rec.TotalFee, err = parseBalance(req.TotalFee); err != nil {
		writeError(w, r, err)
		return
	}
	if rec.Deduction, err = parseBalance(req.Deduction); err != nil {
		writeError(w, r, err)
		return
	}
	if rec.Rejection, err = parseBalance(req.Rejection); err != nil {
		writeError(w, r, err)
		return
	}
	if rec.DrugFee, err = parseBalance(req.DrugFee); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rec.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	stored, err := s.reimbursements.Upsert(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReimbursementRecordJSON(stored))
}

func (s *Server) handleGetReimbursement(w http.ResponseWriter, r *http.Request) {
	period := r.PathValue("period")
	if _, err := core.ParseMonth(period); err != nil {
		writeError(w, r, err)
		return
	}

	rec, ok, err := s.reimbursements.Get(r.Context(), period)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no claim record for period " + period})
		return
	}
	writeJSON(w, http.StatusOK, toReimbursementRecordJSON(rec))
}

func (s *Server) handleReimbursementAnalysis(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeBadRequest(w, "from and to period keys are required")
		return
	}

	analyses, err := s.reimbursements.Analyze(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]reimbursementAnalysisJSON, 0, len(analyses))
	for _, a := range analyses {
		out = append(out, toReimbursementAnalysisJSON(a))
	}
	writeJSON(w, http.StatusOK, out)
}
