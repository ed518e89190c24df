package core

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveTransferInternal(t *testing.T) {
	rows, err := ResolveTransfer(TransferRequest{
		From:   AccountCash,
		To:     AccountBank,
		Date:   NewDate(2026, 4, 2),
		Amount: Money{Cents: 50000},
		Note:   "deposit run",
	})
	if err != nil {
		t.Fatalf("ResolveTransfer: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected a pair, got %d rows", len(rows))
	}

	out, in := rows[0], rows[1]
	if out.Kind != KindTransfer || in.Kind != KindTransfer {
		t.Fatal("both rows must be transfers")
	}
	if out.Category != CategoryTransferOut || in.Category != CategoryTransferIn {
		t.Fatalf("categories %s / %s", out.Category, in.Category)
	}
	if out.Account != AccountCash || in.Account != AccountBank {
		t.Fatalf("accounts %s / %s", out.Account, in.Account)
	}
	if out.Amount != in.Amount || out.Amount.Cents != 50000 {
		t.Fatalf("amounts %d / %d", out.Amount.Cents, in.Amount.Cents)
	}
	if !out.Date.Equal(in.Date.Time) {
		t.Fatal("dates must match")
	}
	if out.TransferGroup == "" || out.TransferGroup != in.TransferGroup {
		t.Fatalf("correlation ids %q / %q", out.TransferGroup, in.TransferGroup)
	}
	if IsWithdrawal(out) {
		t.Fatal("internal transfer must not read as a withdrawal")
	}
}

func TestResolveTransferWithdrawal(t *testing.T) {
	rows, err := ResolveTransfer(TransferRequest{
		From:     AccountCash,
		Withdraw: true,
		Date:     NewDate(2026, 4, 2),
		Amount:   Money{Cents: 50000},
	})
	if err != nil {
		t.Fatalf("ResolveTransfer: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("withdrawal must produce exactly one row, got %d", len(rows))
	}
	if !IsWithdrawal(rows[0]) {
		t.Fatalf("note %q should carry the withdrawal tag", rows[0].Note)
	}
	if !strings.Contains(rows[0].Note, WithdrawalTag) {
		t.Fatalf("note %q missing tag", rows[0].Note)
	}
}

func TestResolveTransferValidation(t *testing.T) {
	base := TransferRequest{
		From:   AccountCash,
		To:     AccountBank,
		Date:   NewDate(2026, 4, 2),
		Amount: Money{Cents: 100},
	}

	bad := base
	bad.Amount = Money{}
	if _, err := ResolveTransfer(bad); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("got %v", err)
	}

	bad = base
	bad.From = "vault"
	if _, err := ResolveTransfer(bad); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("got %v", err)
	}

	bad = base
	bad.Date = Date{}
	if _, err := ResolveTransfer(bad); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("got %v", err)
	}
}
