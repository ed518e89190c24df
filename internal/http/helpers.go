package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"tillbook/internal/core"
	"tillbook/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

var errMalformedBody = errors.New("invalid request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain sentinels to statuses: validation failures are the
// caller's fault, missing rows are 404, everything else is a 500 with the
// detail kept in the log rather than the response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errMalformedBody):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidAccount),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidShift),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrNegativeCashSale):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// parseAmount parses a positive decimal amount string.
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// parseBalance parses a counted-balance amount, where zero (or absent) is a
// legitimate value, unlike transaction amounts.
func parseBalance(s string) (core.Money, error) {
	t := strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if t == "" || strings.Trim(t, "0.") == "" && strings.Count(t, ".") <= 1 {
		return core.Money{}, nil
	}
	return parseAmount(t)
}

// formatAmount renders cents as a plain decimal string for responses.
func formatAmount(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100)
	if neg {
		return "-" + s
	}
	return s
}

type transactionJSON struct {
	ID                  int64  `json:"id"`
	Date                string `json:"date"`
	Kind                string `json:"kind"`
	Category            string `json:"category"`
	Subcategory         string `json:"subcategory,omitempty"`
	Account             string `json:"account"`
	Amount              string `json:"amount"`
	AmountCents         int64  `json:"amount_cents"`
	OriginalAmount      string `json:"original_amount,omitempty"`
	Note                string `json:"note,omitempty"`
	ReimbursementPeriod string `json:"reimbursement_period,omitempty"`
	TransferGroup       string `json:"transfer_group,omitempty"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	out := transactionJSON{
		ID:                  tx.ID,
		Date:                tx.Date.String(),
		Kind:                string(tx.Kind),
		Category:            tx.Category,
		Subcategory:         tx.Subcategory,
		Account:             string(tx.Account),
		Amount:              formatAmount(tx.Amount),
		AmountCents:         tx.Amount.Cents,
		Note:                tx.Note,
		ReimbursementPeriod: tx.ReimbursementPeriod,
		TransferGroup:       tx.TransferGroup,
	}
	if !tx.OriginalAmount.IsZero() {
		out.OriginalAmount = formatAmount(tx.OriginalAmount)
	}
	return out
}

func toTransactionListJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

type moneyJSON struct {
	Amount string `json:"amount"`
	Cents  int64  `json:"cents"`
}

func toMoneyJSON(m core.Money) moneyJSON {
	return moneyJSON{Amount: formatAmount(m), Cents: m.Cents}
}
