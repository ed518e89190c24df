package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// WithdrawalTag marks a transfer-out row whose destination is outside the
// books. Profit analysis adds these back when insulating profit from owner
// cash movements.
const WithdrawalTag = "[withdrawal]"

// TransferRequest is a single user-intended fund movement. When Withdraw is
// true the destination is external and To is ignored. The caller validates
// that From and To are distinct accounts; the resolver assumes it.
type TransferRequest struct {
	From     Account
	To       Account
	Withdraw bool
	Date     Date
	Amount   Money
	Note     string
}

// ResolveTransfer expands a fund movement into its ledger rows: always a
// transfer-out on the source account, plus a matching transfer-in when the
// destination is internal. Both rows share a generated correlation id so the
// pair survives note edits and can be audited after a one-sided deletion.
func ResolveTransfer(req TransferRequest) ([]Transaction, error) {
	if err := req.Date.Validate(); err != nil {
		return nil, err
	}
	if !req.From.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, req.From)
	}
	if !req.Withdraw && !req.To.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccount, req.To)
	}
	if err := req.Amount.Validate(); err != nil {
		return nil, err
	}

	group := uuid.NewString()
	note := strings.TrimSpace(req.Note)

	outNote := note
	if req.Withdraw {
		outNote = strings.TrimSpace(note + " " + WithdrawalTag)
	} else {
		outNote = strings.TrimSpace(fmt.Sprintf("%s (to %s)", note, req.To))
	}

	rows := []Transaction{{
		Date:          req.Date,
		Kind:          KindTransfer,
		Category:      CategoryTransferOut,
		Account:       req.From,
		Amount:        req.Amount,
		Note:          outNote,
		TransferGroup: group,
	}}

	if !req.Withdraw {
		rows = append(rows, Transaction{
			Date:          req.Date,
			Kind:          KindTransfer,
			Category:      CategoryTransferIn,
			Account:       req.To,
			Amount:        req.Amount,
			Note:          strings.TrimSpace(fmt.Sprintf("%s (from %s)", note, req.From)),
			TransferGroup: group,
		})
	}
	return rows, nil
}

// IsWithdrawal reports whether tx is a transfer-out to an external
// destination.
func IsWithdrawal(tx Transaction) bool {
	return tx.Kind == KindTransfer &&
		tx.Category == CategoryTransferOut &&
		strings.Contains(tx.Note, WithdrawalTag)
}
