// Package storage is the SQLite implementation of the ledger ports, plus the
// export-state bookkeeping the sheet mirror worker relies on.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tillbook/internal/core"
	"tillbook/internal/ledger"

	_ "modernc.org/sqlite"
)

// Export states of a transaction row. Rows start pending and are flipped by
// the worker once the sheet mirror confirms the write.
const (
	ExportPending = "pending"
	ExportDone    = "exported"
	ExportError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Closings returns the closing-checkpoint view of the repository.
func (r *SQLiteRepository) Closings() ledger.ClosingStore { return closingRepo{r} }

// Reimbursements returns the claim-record view of the repository.
func (r *SQLiteRepository) Reimbursements() ledger.ReimbursementStore { return reimbursementRepo{r} }

// Append implements ledger.TransactionStore. New rows always start in the
// pending export state.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (
			tx_date, kind, category, subcategory, account,
			amount_cents, original_cents, note,
			reimbursement_period, transfer_group
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.Date.String(), string(tx.Kind), tx.Category, tx.Subcategory,
		string(tx.Account), tx.Amount.Cents, tx.OriginalAmount.Cents,
		tx.Note, tx.ReimbursementPeriod, tx.TransferGroup,
	)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"date", tx.Date.String(),
		"kind", tx.Kind,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	return id, nil
}

const transactionColumns = `
	id, tx_date, kind, category, subcategory, account,
	amount_cents, original_cents, note, reimbursement_period, transfer_group`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx      core.Transaction
		rawDate string
	)
	err := row.Scan(
		&tx.ID, &rawDate, &tx.Kind, &tx.Category, &tx.Subcategory, &tx.Account,
		&tx.Amount.Cents, &tx.OriginalAmount.Cents, &tx.Note,
		&tx.ReimbursementPeriod, &tx.TransferGroup,
	)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date, err = core.ParseDate(rawDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date %q: %w", rawDate, err)
	}
	return tx, nil
}

// Query implements ledger.TransactionStore. Date-string comparison is safe
// because tx_date is stored as "YYYY-MM-DD".
func (r *SQLiteRepository) Query(ctx context.Context, rng ledger.Range) ([]core.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions`
	var (
		clauses []string
		args    []any
	)
	if !rng.Start.IsZero() {
		clauses = append(clauses, "tx_date >= ?")
		args = append(args, rng.Start.String())
	}
	if !rng.End.IsZero() {
		clauses = append(clauses, "tx_date <= ?")
		args = append(args, rng.End.String())
	}
	for i, c := range clauses {
		if i == 0 {
			q += " WHERE " + c
		} else {
			q += " AND " + c
		}
	}
	q += " ORDER BY tx_date DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Delete implements ledger.TransactionStore.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}

	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// Get retrieves a single row by id, regardless of export state.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// PendingExport is the minimal row data the export queue needs.
type PendingExport struct {
	ID        int64
	CreatedAt time.Time
}

// PendingExports returns transactions that still need to reach the sheet
// mirror, oldest first.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at FROM transactions
		WHERE export_state = ?
		ORDER BY created_at ASC
		LIMIT ?`, ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending exports: %w", err)
	}
	return out, nil
}

// MarkExported records that the sheet mirror confirmed the row.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = ? WHERE id = ?`, ExportDone, id); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// MarkExportError flags the row for the backup scan to retry.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = ? WHERE id = ?`, ExportError, id); err != nil {
		return fmt.Errorf("mark transaction export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

// RequeueExportErrors moves errored rows back to pending so the backup scan
// picks them up again.
func (r *SQLiteRepository) RequeueExportErrors(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = ? WHERE export_state = ?`,
		ExportPending, ExportError)
	if err != nil {
		return 0, fmt.Errorf("requeue export errors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type closingRepo struct{ r *SQLiteRepository }

func (c closingRepo) Upsert(ctx context.Context, mc core.MonthlyClosing) error {
	if err := mc.Validate(); err != nil {
		return err
	}
	closedAt := mc.ClosedAt
	if closedAt.IsZero() {
		closedAt = time.Now().UTC()
	}
	_, err := c.r.db.ExecContext(ctx, `
		INSERT INTO monthly_closings (
			month, bank_actual_cents, cash_actual_cents,
			bank_calc_cents, cash_calc_cents, note, closed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (month) DO UPDATE SET
			bank_actual_cents = excluded.bank_actual_cents,
			cash_actual_cents = excluded.cash_actual_cents,
			bank_calc_cents = excluded.bank_calc_cents,
			cash_calc_cents = excluded.cash_calc_cents,
			note = excluded.note,
			closed_at = excluded.closed_at`,
		mc.Month, mc.BankActual.Cents, mc.CashActual.Cents,
		mc.BankCalc.Cents, mc.CashCalc.Cents, mc.Note, closedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert monthly closing: %w", err)
	}

	slog.InfoContext(ctx, "Monthly closing saved",
		"month", mc.Month,
		"bank_actual_cents", mc.BankActual.Cents,
		"cash_actual_cents", mc.CashActual.Cents)
	return nil
}

func (c closingRepo) Get(ctx context.Context, month string) (core.MonthlyClosing, bool, error) {
	var mc core.MonthlyClosing
	err := c.r.db.QueryRowContext(ctx, `
		SELECT month, bank_actual_cents, cash_actual_cents,
		       bank_calc_cents, cash_calc_cents, note, closed_at
		FROM monthly_closings WHERE month = ?`, month).Scan(
		&mc.Month, &mc.BankActual.Cents, &mc.CashActual.Cents,
		&mc.BankCalc.Cents, &mc.CashCalc.Cents, &mc.Note, &mc.ClosedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyClosing{}, false, nil
	}
	if err != nil {
		return core.MonthlyClosing{}, false, fmt.Errorf("get monthly closing: %w", err)
	}
	return mc, true, nil
}

func (c closingRepo) GetRange(ctx context.Context, from, to string) ([]core.MonthlyClosing, error) {
	rows, err := c.r.db.QueryContext(ctx, `
		SELECT month, bank_actual_cents, cash_actual_cents,
		       bank_calc_cents, cash_calc_cents, note, closed_at
		FROM monthly_closings
		WHERE month >= ? AND month <= ?
		ORDER BY month ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query monthly closings: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyClosing
	for rows.Next() {
		var mc core.MonthlyClosing
		if err := rows.Scan(
			&mc.Month, &mc.BankActual.Cents, &mc.CashActual.Cents,
			&mc.BankCalc.Cents, &mc.CashCalc.Cents, &mc.Note, &mc.ClosedAt,
		); err != nil {
			return nil, fmt.Errorf("scan monthly closing: %w", err)
		}
		out = append(out, mc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monthly closings: %w", err)
	}
	return out, nil
}

type reimbursementRepo struct{ r *SQLiteRepository }

func (rr reimbursementRepo) Upsert(ctx context.Context, rec core.ReimbursementRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := rr.r.db.ExecContext(ctx, `
		INSERT INTO reimbursement_records (
			period, total_fee_cents, deduction_cents, rejection_cents,
			drug_fee_cents, chronic_count, general_count, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (period) DO UPDATE SET
			total_fee_cents = excluded.total_fee_cents,
			deduction_cents = excluded.deduction_cents,
			rejection_cents = excluded.rejection_cents,
			drug_fee_cents = excluded.drug_fee_cents,
			chronic_count = excluded.chronic_count,
			general_count = excluded.general_count,
			updated_at = excluded.updated_at`,
		rec.Period, rec.TotalFee.Cents, rec.Deduction.Cents, rec.Rejection.Cents,
		rec.DrugFee.Cents, rec.ChronicCount, rec.GeneralCount, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert reimbursement record: %w", err)
	}

	slog.InfoContext(ctx, "Reimbursement record saved",
		"period", rec.Period,
		"total_fee_cents", rec.TotalFee.Cents,
		"chronic_count", rec.ChronicCount)
	return nil
}

func (rr reimbursementRepo) Get(ctx context.Context, period string) (core.ReimbursementRecord, bool, error) {
	var rec core.ReimbursementRecord
	err := rr.r.db.QueryRowContext(ctx, `
		SELECT period, total_fee_cents, deduction_cents, rejection_cents,
		       drug_fee_cents, chronic_count, general_count, updated_at
		FROM reimbursement_records WHERE period = ?`, period).Scan(
		&rec.Period, &rec.TotalFee.Cents, &rec.Deduction.Cents, &rec.Rejection.Cents,
		&rec.DrugFee.Cents, &rec.ChronicCount, &rec.GeneralCount, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ReimbursementRecord{}, false, nil
	}
	if err != nil {
		return core.ReimbursementRecord{}, false, fmt.Errorf("get reimbursement record: %w", err)
	}
	return rec, true, nil
}

func (rr reimbursementRepo) GetRange(ctx context.Context, from, to string) ([]core.ReimbursementRecord, error) {
	rows, err := rr.r.db.QueryContext(ctx, `
		SELECT period, total_fee_cents, deduction_cents, rejection_cents,
		       drug_fee_cents, chronic_count, general_count, updated_at
		FROM reimbursement_records
		WHERE period >= ? AND period <= ?
		ORDER BY period ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query reimbursement records: %w", err)
	}
	defer rows.Close()

	var out []core.ReimbursementRecord
	for rows.Next() {
		var rec core.ReimbursementRecord
		if err := rows.Scan(
			&rec.Period, &rec.TotalFee.Cents, &rec.Deduction.Cents, &rec.Rejection.Cents,
			&rec.DrugFee.Cents, &rec.ChronicCount, &rec.GeneralCount, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reimbursement record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reimbursement records: %w", err)
	}
	return out, nil
}
