// Package money provides functionality for handling monetary values.
//
// It is a value object that represents a monetary value in a specific currency.
// Invariants:
//   - Amount is always stored in the smallest currency unit (e.g., cents for EUR).
//   - Currency code must be valid ISO 4217 (3 uppercase letters).
//   - Amounts are integers end to end; no float arithmetic anywhere.
package money

import (
	"encoding/json"
	"fmt"
)

var (
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = fmt.Errorf("amount must be a positive integer of minor units")

	// ErrInvalidCurrency is returned for a malformed ISO 4217 code.
	ErrInvalidCurrency = fmt.Errorf("invalid currency code")
)

// Amount represents a monetary amount as an integer in the
// smallest currency unit (e.g., cents for EUR).
type Amount = int64

// Code represents a currency code (e.g., "USD", "EUR").
type Code string

// Common currency codes.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	JPY Code = "JPY"
)

// IsValid checks if the currency code is three uppercase ASCII letters.
func (c Code) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return c[0] >= 'A' && c[0] <= 'Z' &&
		c[1] >= 'A' && c[1] <= 'Z' &&
		c[2] >= 'A' && c[2] <= 'Z'
}

// String returns the string representation of the currency code.
func (c Code) String() string { return string(c) }

// Decimals returns the number of minor-unit digits for the code.
func (c Code) Decimals() int {
	if c == JPY {
		return 0
	}
	return 2
}

// Money represents a monetary value in a specific currency.
type Money struct {
	amount   Amount
	currency Code
}

// NewFromMinor creates a Money from an integer amount of minor units.
func NewFromMinor(amount Amount, currency Code) (Money, error) {
	if amount <= 0 {
		return Money{}, ErrInvalidAmount
	}
	if !currency.IsValid() {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return Money{amount: amount, currency: currency}, nil
}

// Amount returns the amount in minor units.
func (m Money) Amount() Amount { return m.amount }

// Currency returns the currency code.
func (m Money) Currency() Code { return m.currency }

// String renders the value for display, e.g. "50.00 EUR".
func (m Money) String() string {
	d := m.currency.Decimals()
	if d == 0 {
		return fmt.Sprintf("%d %s", m.amount, m.currency)
	}
	div := int64(1)
	for i := 0; i < d; i++ {
		div *= 10
	}
	return fmt.Sprintf("%d.%0*d %s", m.amount/div, d, m.amount%div, m.currency)
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"amount":   m.amount,
		"currency": m.currency,
	})
}
