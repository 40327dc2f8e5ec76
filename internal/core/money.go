// Package core provides money parsing and handling utilities.
//
// Amounts are kept as arbitrary-precision decimals so that repeated
// additions never drift the way binary floating point does.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input to an exact decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: amounts are non-negative and the transaction type carries the
// direction of the money movement.
//
// Examples:
//   ParseAmount("12.34") -> 12.34, nil
//   ParseAmount("12,34") -> 12.34, nil
//   ParseAmount("0.001") -> 0.001, nil (no rounding)
//   ParseAmount("-1")    -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	// decimal accepts exponents; plain notation only.
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// MaxAmountScale and MaxAmountIntDigits bound what every supported store
// keeps exactly; the narrowest is MySQL's DECIMAL(65, 30).
const (
	MaxAmountScale     = 30
	MaxAmountIntDigits = 35
)

var maxAmount = decimal.New(1, MaxAmountIntDigits)

// FitsStorage reports whether d survives a store round trip unchanged.
// Trailing zeros beyond the scale do not count.
func FitsStorage(d decimal.Decimal) bool {
	if !d.Equal(d.Truncate(MaxAmountScale)) {
		return false
	}
	return d.Abs().LessThan(maxAmount)
}

// FormatAmount renders an amount with two fraction digits for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
