// Package money converts decimal currency amounts into the order store's
// minor-unit convention (integer cents). Every amount that reaches the
// store must pass through the same conversion so that line items and
// shipping totals round identically.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// MinorUnits converts a major-unit decimal amount into integer minor units
// using round-half-up: 19.995 becomes 2000, not 1999.
func MinorUnits(amount decimal.Decimal) int64 {
	// Round(0) on a non-negative value rounds half away from zero,
	// which is half-up for the amounts this service handles.
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits is the inverse conversion, used when reporting amounts
// back in major units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(hundred)
}
