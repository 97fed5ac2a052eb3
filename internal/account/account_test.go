package account

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecore/internal/model"
	"tradecore/pkg/types"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func balance(code string, total, free, locked string) types.AccountBalance {
	b, err := types.NewAccountBalance(
		types.CurrencyFromCode(code),
		decimal.RequireFromString(total),
		decimal.RequireFromString(free),
		decimal.RequireFromString(locked))
	if err != nil {
		panic(err)
	}
	return b
}

func initialState(balances ...types.AccountBalance) model.AccountState {
	return model.AccountState{
		ID:        uuid.New(),
		AccountID: "SIM-000",
		Balances:  balances,
		TsEvent:   t0,
	}
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	a, err := New(initialState(balance("USD", "100000", "100000", "0")), types.USD, false, testLogger())
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	return a
}

type stubPnL struct {
	pnls map[string]types.Money
	ok   bool
}

func (s stubPnL) VenueUnrealizedPnLs(types.Venue) (map[string]types.Money, bool) {
	return s.pnls, s.ok
}

func TestNewAccountRequiresBalances(t *testing.T) {
	t.Parallel()
	_, err := New(model.AccountState{ID: uuid.New(), AccountID: "SIM-000", TsEvent: t0}, types.USD, false, testLogger())
	if err == nil {
		t.Error("empty initial state should fail")
	}
}

func TestAccountVenueFromIssuer(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)
	if a.Venue() != "SIM" {
		t.Errorf("venue = %s, want SIM", a.Venue())
	}
}

func TestApplyMergesBalancesByCurrency(t *testing.T) {
	t.Parallel()
	a, err := New(initialState(
		balance("USD", "100000", "100000", "0"),
		balance("EUR", "50000", "50000", "0"),
	), types.Currency{}, false, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Event mentioning only USD must leave EUR untouched.
	if err := a.Apply(model.AccountState{
		ID:        uuid.New(),
		AccountID: "SIM-000",
		Balances:  []types.AccountBalance{balance("USD", "90000", "80000", "10000")},
		TsEvent:   t0.Add(time.Minute),
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	usd, ok, err := a.Balance(types.USD)
	if err != nil || !ok {
		t.Fatalf("usd balance: ok=%v err=%v", ok, err)
	}
	if usd.String() != "90000.00 USD" {
		t.Errorf("usd = %s", usd)
	}

	eur, ok, err := a.Balance(types.EUR)
	if err != nil || !ok {
		t.Fatalf("eur balance: ok=%v err=%v", ok, err)
	}
	if eur.String() != "50000.00 EUR" {
		t.Errorf("eur = %s, want unchanged 50000.00 EUR", eur)
	}

	if a.EventCount() != 2 {
		t.Errorf("events = %d, want 2", a.EventCount())
	}
}

func TestApplyRejectsWrongAccount(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)

	err := a.Apply(model.AccountState{
		ID:        uuid.New(),
		AccountID: "OTHER-1",
		Balances:  []types.AccountBalance{balance("USD", "1", "1", "0")},
		TsEvent:   t0,
	})
	if err == nil {
		t.Error("event for another account should fail")
	}
}

func TestApplyRejectsDuplicateEventID(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)

	id := uuid.New()
	ev := model.AccountState{
		ID:        id,
		AccountID: "SIM-000",
		Balances:  []types.AccountBalance{balance("USD", "1000", "1000", "0")},
		TsEvent:   t0,
	}
	if err := a.Apply(ev); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := a.Apply(ev); err == nil {
		t.Error("duplicate event id should fail")
	}
}

func TestBalanceDefaultCurrencyFallback(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)

	m, ok, err := a.Balance(types.Currency{})
	if err != nil || !ok {
		t.Fatalf("fallback balance: ok=%v err=%v", ok, err)
	}
	if m.String() != "100000.00 USD" {
		t.Errorf("balance = %s", m)
	}
}

func TestBalanceNoDefaultCurrencyFails(t *testing.T) {
	t.Parallel()
	a, err := New(initialState(balance("USD", "1000", "1000", "0")), types.Currency{}, false, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, _, err := a.Balance(types.Currency{}); err == nil {
		t.Error("no currency and no default should fail")
	}
}

func TestBalanceUnknownCurrency(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)

	_, ok, err := a.Balance(types.JPY)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if ok {
		t.Error("unknown currency should report no entry, not zero")
	}
}

func TestMarginUpdatesOverwrite(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)

	a.UpdateInitialMargin(types.MoneyFromFloat(3300, types.USD))
	a.UpdateInitialMargin(types.MoneyFromFloat(1200, types.USD))
	a.UpdateMaintMargin(types.MoneyFromFloat(800, types.USD))

	im, ok := a.InitialMargin(types.USD)
	if !ok || im.String() != "1200.00 USD" {
		t.Errorf("initial margin = %s ok=%v", im, ok)
	}
	mm, ok := a.MaintMargin(types.USD)
	if !ok || mm.String() != "800.00 USD" {
		t.Errorf("maint margin = %s ok=%v", mm, ok)
	}
}

func TestEquityRequiresPortfolio(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)

	if _, _, err := a.Equity(types.USD); err == nil {
		t.Error("equity without portfolio should fail")
	}
}

func TestEquityAddsUnrealizedPnL(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)
	a.RegisterPortfolio(stubPnL{
		pnls: map[string]types.Money{"USD": types.MoneyFromFloat(250, types.USD)},
		ok:   true,
	})

	eq, ok, err := a.Equity(types.USD)
	if err != nil || !ok {
		t.Fatalf("equity: ok=%v err=%v", ok, err)
	}
	if eq.String() != "100250.00 USD" {
		t.Errorf("equity = %s", eq)
	}
}

func TestEquityUnknownWhenPnLUnavailable(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)
	a.RegisterPortfolio(stubPnL{ok: false})

	_, ok, err := a.Equity(types.USD)
	if err != nil {
		t.Fatalf("equity: %v", err)
	}
	if ok {
		t.Error("equity with unavailable pnl should be unknown, not zero")
	}
}

func TestMarginAvailable(t *testing.T) {
	t.Parallel()
	a := newTestAccount(t)
	a.RegisterPortfolio(stubPnL{pnls: map[string]types.Money{}, ok: true})
	a.UpdateInitialMargin(types.MoneyFromFloat(3000, types.USD))
	a.UpdateMaintMargin(types.MoneyFromFloat(2000, types.USD))

	m, ok, err := a.MarginAvailable(types.USD)
	if err != nil || !ok {
		t.Fatalf("margin available: ok=%v err=%v", ok, err)
	}
	if m.String() != "95000.00 USD" {
		t.Errorf("margin available = %s", m)
	}
}

func TestOverdraftPermitted(t *testing.T) {
	t.Parallel()
	a, err := New(initialState(balance("USD", "1000", "1000", "0")), types.USD, true, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	neg := types.AccountBalance{
		Currency: types.USD,
		Total:    decimal.RequireFromString("-500"),
		Free:     decimal.RequireFromString("-500"),
		Locked:   decimal.Zero,
	}
	if err := a.Apply(model.AccountState{
		ID:        uuid.New(),
		AccountID: "SIM-000",
		Balances:  []types.AccountBalance{neg},
		TsEvent:   t0,
	}); err != nil {
		t.Errorf("overdraft-permitted apply failed: %v", err)
	}
}
