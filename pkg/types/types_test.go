package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseInstrumentID(t *testing.T) {
	t.Parallel()

	id, err := ParseInstrumentID("EUR/USD.SIM")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Symbol != "EUR/USD" || id.Venue != "SIM" {
		t.Errorf("got %q/%q, want EUR/USD/SIM", id.Symbol, id.Venue)
	}
	if id.String() != "EUR/USD.SIM" {
		t.Errorf("round-trip = %q", id.String())
	}
}

func TestParseInstrumentIDInvalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "EURUSD", ".SIM", "EURUSD."} {
		if _, err := ParseInstrumentID(s); err == nil {
			t.Errorf("ParseInstrumentID(%q) should fail", s)
		}
	}
}

func TestAccountIDIssuer(t *testing.T) {
	t.Parallel()

	if got := AccountID("SIM-000").Issuer(); got != "SIM" {
		t.Errorf("issuer = %q, want SIM", got)
	}
	if got := AccountID("BINANCE-5521-main").Issuer(); got != "BINANCE" {
		t.Errorf("issuer = %q, want BINANCE", got)
	}
}

func TestStrategyIDOrderIDTag(t *testing.T) {
	t.Parallel()

	if got := StrategyID("EMACross-001").OrderIDTag(); got != "001" {
		t.Errorf("tag = %q, want 001", got)
	}
	if got := StrategyID("untagged").OrderIDTag(); got != "" {
		t.Errorf("tag = %q, want empty", got)
	}
}

func TestPricePrecisionInvariant(t *testing.T) {
	t.Parallel()

	if _, err := NewPrice(decimal.RequireFromString("1.10501"), 4); err == nil {
		t.Error("price with 5dp should not fit precision 4")
	}
	p, err := NewPrice(decimal.RequireFromString("1.1050"), 4)
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if p.String() != "1.1050" {
		t.Errorf("string = %q", p.String())
	}
}

func TestPriceFromStringInfersPrecision(t *testing.T) {
	t.Parallel()

	p := MustPrice("1.12")
	if p.Precision() != 2 {
		t.Errorf("precision = %d, want 2", p.Precision())
	}
	if whole := MustPrice("42"); whole.Precision() != 0 {
		t.Errorf("whole precision = %d, want 0", whole.Precision())
	}
}

func TestQuantityRejectsNegative(t *testing.T) {
	t.Parallel()

	if _, err := NewQuantity(decimal.RequireFromString("-1"), 0); err == nil {
		t.Error("negative quantity should fail")
	}
}

func TestQuantitySubClampsAtZero(t *testing.T) {
	t.Parallel()

	q := MustQuantity("1.5").Sub(MustQuantity("2.0"))
	if !q.IsZero() {
		t.Errorf("clamped sub = %s, want 0", q)
	}
}

func TestMoneyArithmetic(t *testing.T) {
	t.Parallel()

	a := MoneyFromFloat(100.50, USD)
	b := MoneyFromFloat(0.25, USD)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if sum.String() != "100.75 USD" {
		t.Errorf("sum = %s", sum)
	}

	if _, err := a.Add(MoneyFromFloat(1, EUR)); err == nil {
		t.Error("cross-currency add should fail")
	}
}

func TestMoneyRoundsToCurrencyPrecision(t *testing.T) {
	t.Parallel()

	m := NewMoney(decimal.RequireFromString("10.005"), USD)
	if m.String() != "10.01 USD" {
		t.Errorf("rounded = %s", m)
	}
	j := NewMoney(decimal.RequireFromString("100.4"), JPY)
	if j.String() != "100 JPY" {
		t.Errorf("JPY rounded = %s", j)
	}
}

func TestCurrencyEqualityByCode(t *testing.T) {
	t.Parallel()

	other := Currency{Code: "USD", Precision: 4, Type: Crypto}
	if !USD.Equal(other) {
		t.Error("currencies with equal codes must be equal")
	}
}

func TestCurrencyFromCodeUnknown(t *testing.T) {
	t.Parallel()

	c := CurrencyFromCode("XYZ")
	if c.Code != "XYZ" || c.Precision != 8 || c.Type != Crypto {
		t.Errorf("unknown code = %+v", c)
	}
}

func TestAccountBalanceInvariant(t *testing.T) {
	t.Parallel()

	_, err := NewAccountBalance(USD,
		decimal.RequireFromString("100"),
		decimal.RequireFromString("60"),
		decimal.RequireFromString("30"))
	if err == nil {
		t.Error("total != free + locked should fail")
	}

	b, err := NewAccountBalance(USD,
		decimal.RequireFromString("100"),
		decimal.RequireFromString("70"),
		decimal.RequireFromString("30"))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if b.FreeMoney().String() != "70.00 USD" {
		t.Errorf("free = %s", b.FreeMoney())
	}
}

func TestAccountBalanceOverdraft(t *testing.T) {
	t.Parallel()

	b := AccountBalance{
		Currency: USD,
		Total:    decimal.RequireFromString("-50"),
		Free:     decimal.RequireFromString("-50"),
		Locked:   decimal.Zero,
	}
	if err := b.Validate(false); err == nil {
		t.Error("negative balance should fail without overdraft")
	}
	if err := b.Validate(true); err != nil {
		t.Errorf("overdraft-permitted balance should pass: %v", err)
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	t.Parallel()

	terminal := []OrderStatus{StatusFilled, StatusCanceled, StatusExpired, StatusRejected, StatusDenied, StatusInvalid}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []OrderStatus{StatusInitialized, StatusSubmitted, StatusAccepted, StatusPartiallyFilled} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestOrderSideOpposite(t *testing.T) {
	t.Parallel()

	if BUY.Opposite() != SELL || SELL.Opposite() != BUY {
		t.Error("opposite sides wrong")
	}
}
