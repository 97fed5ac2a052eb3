package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a fixed-precision price value. The precision is declared at
// construction and is an invariant: a value with more decimal places than
// the declared precision is rejected rather than silently rounded.
type Price struct {
	value     decimal.Decimal
	precision int32
}

// NewPrice constructs a price, validating that the value fits the declared
// precision.
func NewPrice(value decimal.Decimal, precision int32) (Price, error) {
	if precision < 0 {
		return Price{}, fmt.Errorf("new price: negative precision %d", precision)
	}
	if !value.Equal(value.Round(precision)) {
		return Price{}, fmt.Errorf("new price: value %s exceeds precision %d", value, precision)
	}
	return Price{value: value, precision: precision}, nil
}

// PriceFromString parses a decimal string; the precision is taken from the
// number of decimal places in the string, so "1.1050" has precision 4.
func PriceFromString(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	prec := -d.Exponent()
	if prec < 0 {
		prec = 0
	}
	return Price{value: d, precision: prec}, nil
}

// MustPrice parses a decimal string and panics on failure. Test helper.
func MustPrice(s string) Price {
	p, err := PriceFromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Decimal() decimal.Decimal { return p.value }
func (p Price) Precision() int32         { return p.precision }
func (p Price) Float64() float64         { f, _ := p.value.Float64(); return f }
func (p Price) IsZero() bool             { return p.value.IsZero() }
func (p Price) IsPositive() bool         { return p.value.IsPositive() }

func (p Price) Equal(other Price) bool        { return p.value.Equal(other.value) }
func (p Price) LessThan(other Price) bool     { return p.value.LessThan(other.value) }
func (p Price) GreaterThan(other Price) bool  { return p.value.GreaterThan(other.value) }
func (p Price) Cmp(other Price) int           { return p.value.Cmp(other.value) }

func (p Price) String() string {
	return p.value.StringFixed(p.precision)
}

// Quantity is a non-negative fixed-precision size value.
type Quantity struct {
	value     decimal.Decimal
	precision int32
}

// NewQuantity constructs a quantity, validating precision and sign.
func NewQuantity(value decimal.Decimal, precision int32) (Quantity, error) {
	if precision < 0 {
		return Quantity{}, fmt.Errorf("new quantity: negative precision %d", precision)
	}
	if value.IsNegative() {
		return Quantity{}, fmt.Errorf("new quantity: negative value %s", value)
	}
	if !value.Equal(value.Round(precision)) {
		return Quantity{}, fmt.Errorf("new quantity: value %s exceeds precision %d", value, precision)
	}
	return Quantity{value: value, precision: precision}, nil
}

// QuantityFromString parses a decimal string; precision is inferred from
// the decimal places present.
func QuantityFromString(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	prec := -d.Exponent()
	if prec < 0 {
		prec = 0
	}
	return NewQuantity(d, prec)
}

// MustQuantity parses a decimal string and panics on failure. Test helper.
func MustQuantity(s string) Quantity {
	q, err := QuantityFromString(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Decimal() decimal.Decimal { return q.value }
func (q Quantity) Precision() int32         { return q.precision }
func (q Quantity) Float64() float64         { f, _ := q.value.Float64(); return f }
func (q Quantity) IsZero() bool             { return q.value.IsZero() }
func (q Quantity) IsPositive() bool         { return q.value.IsPositive() }

func (q Quantity) Equal(other Quantity) bool       { return q.value.Equal(other.value) }
func (q Quantity) LessThan(other Quantity) bool    { return q.value.LessThan(other.value) }
func (q Quantity) GreaterThan(other Quantity) bool { return q.value.GreaterThan(other.value) }

// Sub returns q - other clamped at zero. Used for remaining-quantity math
// where a venue over-reporting a fill must not produce a negative size.
func (q Quantity) Sub(other Quantity) Quantity {
	v := q.value.Sub(other.value)
	if v.IsNegative() {
		v = decimal.Zero
	}
	return Quantity{value: v, precision: q.precision}
}

// Add returns q + other at q's precision.
func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value.Add(other.value), precision: q.precision}
}

func (q Quantity) String() string {
	return q.value.StringFixed(q.precision)
}
