package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money pairs a decimal amount with a currency. The amount is rounded to
// the currency's precision at construction. Arithmetic requires matching
// currencies; cross-currency math goes through the exchange-rate
// calculator.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney constructs a money value rounded to the currency precision.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount.Round(currency.Precision), currency: currency}
}

// MoneyFromFloat is a convenience constructor for tests and boundaries
// where a float is all the caller has.
func MoneyFromFloat(amount float64, currency Currency) Money {
	return NewMoney(decimal.NewFromFloat(amount), currency)
}

// MustMoney parses "<amount> <code>", e.g. "1000.00 USD". Test helper.
func MustMoney(s string) Money {
	var amt, code string
	if _, err := fmt.Sscanf(s, "%s %s", &amt, &code); err != nil {
		panic(fmt.Errorf("parse money %q: %w", s, err))
	}
	d, err := decimal.NewFromString(amt)
	if err != nil {
		panic(fmt.Errorf("parse money %q: %w", s, err))
	}
	return NewMoney(d, CurrencyFromCode(code))
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency     { return m.currency }
func (m Money) Float64() float64       { f, _ := m.amount.Float64(); return f }
func (m Money) IsZero() bool           { return m.amount.IsZero() }
func (m Money) IsNegative() bool       { return m.amount.IsNegative() }

// Add returns m + other. The currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if !m.currency.Equal(other.currency) {
		return Money{}, fmt.Errorf("money add: currency mismatch %s vs %s", m.currency, other.currency)
	}
	return NewMoney(m.amount.Add(other.amount), m.currency), nil
}

// Sub returns m - other. The currencies must match.
func (m Money) Sub(other Money) (Money, error) {
	if !m.currency.Equal(other.currency) {
		return Money{}, fmt.Errorf("money sub: currency mismatch %s vs %s", m.currency, other.currency)
	}
	return NewMoney(m.amount.Sub(other.amount), m.currency), nil
}

// Equal reports whether amount and currency both match.
func (m Money) Equal(other Money) bool {
	return m.currency.Equal(other.currency) && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return m.amount.StringFixed(m.currency.Precision) + " " + m.currency.Code
}
