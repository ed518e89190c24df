// Package memory is an in-memory spreadsheet mirror for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tillbook/internal/core"
	ports "tillbook/internal/sheets"
)

type Mirror struct {
	mu             sync.Mutex
	transactions   []core.Transaction
	closings       map[string]core.MonthlyClosing
	reimbursements map[string]core.ReimbursementRecord
}

var (
	_ ports.TransactionMirror   = (*Mirror)(nil)
	_ ports.ClosingMirror       = (*Mirror)(nil)
	_ ports.ReimbursementMirror = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{
		closings:       map[string]core.MonthlyClosing{},
		reimbursements: map[string]core.ReimbursementRecord{},
	}
}

func (m *Mirror) AppendTransaction(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions = append(m.transactions, tx)
	return fmt.Sprintf("memory:%d", len(m.transactions)), nil
}

func (m *Mirror) DeleteTransactionRow(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, tx := range m.transactions {
		if tx.ID == id {
			m.transactions = append(m.transactions[:i], m.transactions[i+1:]...)
			return nil
		}
	}
	// Missing rows are fine; the mirror is eventually consistent.
	return nil
}

func (m *Mirror) UpsertClosing(_ context.Context, c core.MonthlyClosing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closings[c.Month] = c
	return nil
}

func (m *Mirror) UpsertReimbursement(_ context.Context, rec core.ReimbursementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reimbursements[rec.Period] = rec
	return nil
}

// Transactions returns a copy of the mirrored rows, for tests.
func (m *Mirror) Transactions() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out
}

// Closing returns the mirrored closing for a month, for tests.
func (m *Mirror) Closing(month string) (core.MonthlyClosing, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.closings[month]
	return c, ok
}

// Reimbursement returns the mirrored record for a period, for tests.
func (m *Mirror) Reimbursement(period string) (core.ReimbursementRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.reimbursements[period]
	return rec, ok
}
