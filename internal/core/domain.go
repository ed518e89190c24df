package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindIncome   Kind = "income"
	KindExpense  Kind = "expense"
	KindTransfer Kind = "transfer"

	AccountCash Account = "cash"
	AccountBank Account = "bank"
)

type (
	// Kind is the closed set of transaction kinds. Aggregations switch on it
	// exhaustively; transfers are excluded from every income/expense sum by
	// construction.
	Kind string

	// Account is one of the two asset accounts the ledger tracks.
	Account string

	Date struct {
		time.Time
	}

	// Transaction is a single dated money movement. Rows are immutable once
	// appended except for deletion.
	Transaction struct {
		ID          int64
		Date        Date
		Kind        Kind
		Category    string
		Subcategory string
		Account     Account
		Amount      Money
		// OriginalAmount is the user-entered amount before a fee-rate
		// adjustment shrank Amount. Zero when no adjustment applied.
		OriginalAmount Money
		Note           string
		// ReimbursementPeriod links an NHI receipt to the claim month it was
		// declared against ("YYYY-MM"), which may differ from Date.
		ReimbursementPeriod string
		// TransferGroup is a correlation id shared by the two rows of a
		// transfer pair. Empty for non-transfers.
		TransferGroup string
	}

	// MonthlyClosing is the checkpoint row saved when a month's books are
	// closed. The ledger, not this row, remains the source of truth for
	// balances; see ComputeClosing.
	MonthlyClosing struct {
		Month      string // "YYYY-MM"
		BankActual Money
		CashActual Money
		BankCalc   Money
		CashCalc   Money
		Note       string
		ClosedAt   time.Time
	}

	// ReimbursementRecord holds one month's NHI claim figures as declared to
	// the insurer, keyed by claim period.
	ReimbursementRecord struct {
		Period       string // "YYYY-MM"
		TotalFee     Money  // gross dispensing fee claimed
		Deduction    Money  // point-value clawback
		Rejection    Money  // claims denied
		DrugFee      Money  // pass-through drug cost
		ChronicCount int
		GeneralCount int
		UpdatedAt    time.Time
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAccount   = errors.New("invalid account")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidShift     = errors.New("invalid shift")
	ErrInvalidMonth     = errors.New("invalid month key")
	ErrNegativeCashSale = errors.New("derived cash sales revenue is negative")
)

func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer:
		return true
	}
	return false
}

func (a Account) Valid() bool {
	switch a {
	case AccountCash, AccountBank:
		return true
	}
	return false
}

// NewDate creates a day-precision date in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the "YYYY-MM" key of the month containing d.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// ParseMonth validates a "YYYY-MM" month key and returns the first day of
// that month.
func ParseMonth(s string) (Date, error) {
	t, err := time.ParseInLocation("2006-01", s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Date{Time: t}, nil
}

// MonthBounds returns the first and last day of the month named by key.
func MonthBounds(key string) (start, end Date, err error) {
	start, err = ParseMonth(key)
	if err != nil {
		return Date{}, Date{}, err
	}
	end = Date{Time: start.AddDate(0, 1, -1)}
	return start, end, nil
}

// NextMonth returns the month key following key.
func NextMonth(key string) (string, error) {
	start, err := ParseMonth(key)
	if err != nil {
		return "", err
	}
	return start.AddDate(0, 1, 0).Format("2006-01"), nil
}

// PrevMonth returns the month key preceding key.
func PrevMonth(key string) (string, error) {
	start, err := ParseMonth(key)
	if err != nil {
		return "", err
	}
	return start.AddDate(0, -1, 0).Format("2006-01"), nil
}

// MonthsBetween enumerates month keys from "from" to "to" inclusive.
func MonthsBetween(from, to string) ([]string, error) {
	start, err := ParseMonth(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseMonth(to)
	if err != nil {
		return nil, err
	}
	var out []string
	for cur := start.Time; !cur.After(end.Time); cur = cur.AddDate(0, 1, 0) {
		out = append(out, cur.Format("2006-01"))
	}
	return out, nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if !t.Account.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccount, t.Account)
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.ReimbursementPeriod != "" {
		if _, err := ParseMonth(t.ReimbursementPeriod); err != nil {
			return err
		}
	}
	return nil
}

func (c MonthlyClosing) Validate() error {
	if _, err := ParseMonth(c.Month); err != nil {
		return err
	}
	return nil
}

func (r ReimbursementRecord) Validate() error {
	if _, err := ParseMonth(r.Period); err != nil {
		return err
	}
	for _, m := range []Money{r.TotalFee, r.Deduction, r.Rejection, r.DrugFee} {
		if m.Cents < 0 {
			return ErrInvalidAmount
		}
	}
	if r.ChronicCount < 0 || r.GeneralCount < 0 {
		return ErrInvalidAmount
	}
	return nil
}
