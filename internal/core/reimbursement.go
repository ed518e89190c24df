package core

import "math"

// ChronicPerScriptFeeCents is the fixed dispensing fee claimed per chronic
// prescription before point-value clawback (75 in whole currency).
const ChronicPerScriptFeeCents int64 = 75 * 100

// ReimbursementAnalysis is the derived view of one claim period: the
// effective point value, the receivable the insurer should pay, the fee
// split by prescription category, and the variance against what the ledger
// actually recorded.
type ReimbursementAnalysis struct {
	Period string
	// PointValue is 1 - deduction/totalFee; 0 when totalFee is zero rather
	// than a division fault.
	PointValue float64
	// Receivable = totalFee + drugFee - deduction - rejection.
	Receivable Money
	// ServiceFee = totalFee - deduction - rejection (drug cost excluded as
	// pass-through).
	ServiceFee Money
	// ChronicIncome = pointValue * per-script fee * chronic count.
	ChronicIncome Money
	// GeneralIncome is the service fee residual after chronic income.
	GeneralIncome Money
	ChronicCount  int
	GeneralCount  int
	// LedgerActual sums the NHI income rows tagged with this claim period.
	LedgerActual Money
	// Variance = actual - receivable. Informational only.
	Variance Money
}

// AnalyzeReimbursement derives the period figures from a claim record and
// the matching ledger total. Pure.
func AnalyzeReimbursement(rec ReimbursementRecord, ledgerActual Money) ReimbursementAnalysis {
	a := ReimbursementAnalysis{
		Period:       rec.Period,
		ChronicCount: rec.ChronicCount,
		GeneralCount: rec.GeneralCount,
		LedgerActual: ledgerActual,
	}
	if rec.TotalFee.Cents > 0 {
		a.PointValue = 1 - float64(rec.Deduction.Cents)/float64(rec.TotalFee.Cents)
	}
	a.Receivable = rec.TotalFee.Add(rec.DrugFee).Sub(rec.Deduction).Sub(rec.Rejection)
	a.ServiceFee = rec.TotalFee.Sub(rec.Deduction).Sub(rec.Rejection)
	a.ChronicIncome = Money{Cents: int64(math.Floor(
		a.PointValue*float64(ChronicPerScriptFeeCents)*float64(rec.ChronicCount) + 0.5))}
	a.GeneralIncome = a.ServiceFee.Sub(a.ChronicIncome)
	a.Variance = ledgerActual.Sub(a.Receivable)
	return a
}

// IsReimbursementReceipt reports whether tx is an NHI interim receipt that
// participates in claim-period reconciliation.
func IsReimbursementReceipt(tx Transaction) bool {
	if tx.Kind != KindIncome || tx.Category != CategoryNHI {
		return false
	}
	return tx.Subcategory == SubNHIInterim1 || tx.Subcategory == SubNHIInterim2
}

// LedgerActualByPeriod groups reimbursement receipts by their claim period.
func LedgerActualByPeriod(txs []Transaction) map[string]Money {
	out := map[string]Money{}
	for _, tx := range txs {
		if !IsReimbursementReceipt(tx) || tx.ReimbursementPeriod == "" {
			continue
		}
		out[tx.ReimbursementPeriod] = out[tx.ReimbursementPeriod].Add(tx.Amount)
	}
	return out
}
