// Package core holds the domain model and the pure computation of the
// ledger and reconciliation engine. Nothing here performs I/O; stores and
// transports live behind the ports in internal/ledger.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is a monetary value in cents. All arithmetic is integral; floats
// appear only at rate application and display boundaries.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m - o. The result may be negative; callers that require a
// non-negative value must check.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// Dollars returns the value as a float64 for display only.
func (m Money) Dollars() float64 { return float64(m.Cents) / 100.0 }

// ApplyRate multiplies the amount by a fee-adjustment rate, rounding half-up
// on cents. A rate of 1.0 returns the amount unchanged.
func (m Money) ApplyRate(rate float64) Money {
	if rate == 1.0 {
		return m
	}
	return Money{Cents: int64(math.Floor(float64(m.Cents)*rate + 0.5))}
}

// ParseDecimalToCents converts a decimal amount string to cents with half-up
// rounding on the third decimal place. Both "12.34" and "12,34" separators
// are accepted. Negative and zero amounts are rejected; input validation of
// sign belongs here, not in the engines.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// SumMoney totals a slice of amounts.
func SumMoney(ms []Money) Money {
	var total Money
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}
