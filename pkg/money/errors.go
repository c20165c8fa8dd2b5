package money

import "errors"

// Common money package errors
var (
	// ErrInvalidCurrency is returned when a currency code is not a 3-letter ISO 4217 code.
	ErrInvalidCurrency = errors.New("invalid currency code")

	// ErrNegativeAmount is returned when a negative amount is converted for transmission.
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrAmountExceedsMaxSafeInt is returned when an amount does not fit in int64 minor units.
	ErrAmountExceedsMaxSafeInt = errors.New("amount exceeds maximum safe integer value")
)
