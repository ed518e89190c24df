package sheets

import (
	"context"

	"tillbook/internal/core"
)

// Ports for the spreadsheet mirror. The database remains the source of
// truth; these are one-way outbound writes driven by the export worker.
type (
	TransactionMirror interface {
		// AppendTransaction mirrors one ledger row and returns a reference to
		// where it landed.
		AppendTransaction(ctx context.Context, tx core.Transaction) (rowRef string, err error)
		// DeleteTransactionRow removes the mirrored row for a ledger id.
		// Missing rows are not an error; the mirror is eventually consistent.
		DeleteTransactionRow(ctx context.Context, id int64) error
	}

	ClosingMirror interface {
		UpsertClosing(ctx context.Context, c core.MonthlyClosing) error
	}

	ReimbursementMirror interface {
		UpsertReimbursement(ctx context.Context, rec core.ReimbursementRecord) error
	}
)
