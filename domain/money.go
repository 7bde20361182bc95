package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Money is an amount in the smallest subdivision of its currency.
type Money int64

// Currency describes how minor units map to decimal amounts.
type Currency struct {
	Code       string `json:"code"`
	MinorUnits int32  `json:"minorUnits"`
}

// DefaultCurrency is the West African CFA franc, which has no minor unit.
var DefaultCurrency = Currency{Code: "XOF", MinorUnits: 0}

// ErrSubMinorPrecision is returned when an amount cannot be expressed in whole minor units.
var ErrSubMinorPrecision = errors.New("amount has more precision than the currency allows")

// ToMinor converts a decimal amount into minor units.
func (c Currency) ToMinor(d decimal.Decimal) (Money, error) {
	shifted := d.Shift(c.MinorUnits)
	if !shifted.IsInteger() {
		return 0, ErrSubMinorPrecision
	}
	return Money(shifted.IntPart()), nil
}

// Decimal converts minor units back into a decimal amount for presentation.
func (c Currency) Decimal(m Money) decimal.Decimal {
	return decimal.New(int64(m), -c.MinorUnits)
}

// Format renders an amount with its currency code, e.g. "150000 XOF".
func (c Currency) Format(m Money) string {
	return c.Decimal(m).StringFixed(c.MinorUnits) + " " + c.Code
}
