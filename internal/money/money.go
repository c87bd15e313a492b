// Package money implements the immutable monetary value object used across
// the order, payment and inventory contexts.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

var (
	ErrCurrencyMismatch = apperr.New(apperr.CodeCurrencyMismatch, "currency mismatch")
	ErrNegativeAmount   = apperr.New(apperr.CodeValidation, "amount must not be negative")
)

// Money is an amount in a single currency. The zero value is "no money" and
// unusable; construct through New or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

func New(amount decimal.Decimal, currency string) (Money, error) {
	if currency == "" {
		return Money{}, apperr.New(apperr.CodeValidation, "currency is required")
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{amount: amount, currency: currency}, nil
}

// FromString parses a decimal string such as "19.99".
func FromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, apperr.Wrap(apperr.CodeValidation, fmt.Sprintf("malformed amount %q", amount), err)
	}
	return New(d, currency)
}

func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }

func (m Money) Add(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{amount: m.amount.Add(o.amount), currency: m.currency}, nil
}

// Mul scales the amount by a non-negative integer quantity.
func (m Money) Mul(qty int) (Money, error) {
	if qty < 0 {
		return Money{}, apperr.New(apperr.CodeValidation, "quantity must not be negative")
	}
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(qty))), currency: m.currency}, nil
}

func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

func (m Money) String() string {
	return m.amount.String() + " " + m.currency
}
