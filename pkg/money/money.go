// Package money converts between local decimal amounts and the integer
// minor units payment processors expect.
//
// Invariants:
//   - Local amounts are decimals in the major unit of their currency (e.g. 12.50 USD).
//   - Minor units are integers in the smallest currency unit (e.g. 1250 cents).
//   - Currency codes are 3 uppercase letters; lookups are case-insensitive.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ToCurrency returns c with its ISO 4217 minor-unit exponent.
func (c Code) ToCurrency() Currency {
	if d, ok := minorDigits[c]; ok {
		return Currency{Code: c, Decimals: d}
	}
	return Currency{Code: c, Decimals: 2}
}

// IsValid checks if the currency code is valid
func (c Code) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return c[0] >= 'A' && c[0] <= 'Z' &&
		c[1] >= 'A' && c[1] <= 'Z' &&
		c[2] >= 'A' && c[2] <= 'Z'
}

// ParseCode normalizes and validates a currency code string.
func ParseCode(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

// Currency represents a monetary unit with its standard decimal places
type Currency struct {
	Code     Code // 3-letter ISO 4217 code (e.g., "USD")
	Decimals int  // ISO 4217 minor-unit exponent
}

// ToMinorUnits converts a major-unit amount into the smallest currency unit,
// rounding half away from zero to the currency's precision.
func ToMinorUnits(amount decimal.Decimal, currency string) (int64, error) {
	code, err := ParseCode(currency)
	if err != nil {
		return 0, err
	}
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	minor := amount.Shift(int32(code.ToCurrency().Decimals)).Round(0)
	if minor.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrAmountExceedsMaxSafeInt
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts an amount in the smallest currency unit back into
// a major-unit decimal.
func FromMinorUnits(minor int64, currency string) (decimal.Decimal, error) {
	code, err := ParseCode(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(minor, -int32(code.ToCurrency().Decimals)), nil
}
