// Package memstore is an in-memory implementation of the ledger ports,
// used for tests and for running the server without a database file.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tillbook/internal/core"
	"tillbook/internal/ledger"
)

type Store struct {
	mu             sync.Mutex
	transactions   []core.Transaction
	closings       map[string]core.MonthlyClosing
	reimbursements map[string]core.ReimbursementRecord
}

func New() *Store {
	return &Store{
		closings:       map[string]core.MonthlyClosing{},
		reimbursements: map[string]core.ReimbursementRecord{},
	}
}

var _ ledger.TransactionStore = (*Store)(nil)

// Closings returns the closing-checkpoint view of the store.
func (s *Store) Closings() ledger.ClosingStore { return closingView{s} }

// Reimbursements returns the claim-record view of the store.
func (s *Store) Reimbursements() ledger.ReimbursementStore { return reimbursementView{s} }

// Append assigns max-existing+1 as the id, matching the durable store.
func (s *Store) Append(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var maxID int64
	for _, existing := range s.transactions {
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	tx.ID = maxID + 1
	s.transactions = append(s.transactions, tx)
	return tx.ID, nil
}

// Get retrieves a row by id.
func (s *Store) Get(_ context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
}

// Query returns matching transactions newest first, ties broken by id.
func (s *Store) Query(_ context.Context, r ledger.Range) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if r.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.transactions {
		if tx.ID == id {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
}

type closingView struct{ s *Store }

var _ ledger.ClosingStore = closingView{}

func (v closingView) Upsert(_ context.Context, c core.MonthlyClosing) error {
	if err := c.Validate(); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.closings[c.Month] = c
	return nil
}

func (v closingView) Get(_ context.Context, month string) (core.MonthlyClosing, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.closings[month]
	return c, ok, nil
}

func (v closingView) GetRange(_ context.Context, from, to string) ([]core.MonthlyClosing, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []core.MonthlyClosing
	for month, c := range v.s.closings {
		if month >= from && month <= to {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out, nil
}

type reimbursementView struct{ s *Store }

var _ ledger.ReimbursementStore = reimbursementView{}

func (v reimbursementView) Upsert(_ context.Context, rec core.ReimbursementRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.reimbursements[rec.Period] = rec
	return nil
}

func (v reimbursementView) Get(_ context.Context, period string) (core.ReimbursementRecord, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	rec, ok := v.s.reimbursements[period]
	return rec, ok, nil
}

func (v reimbursementView) GetRange(_ context.Context, from, to string) ([]core.ReimbursementRecord, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var out []core.ReimbursementRecord
	for period, rec := range v.s.reimbursements {
		if period >= from && period <= to {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out, nil
}
