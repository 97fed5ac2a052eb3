// Package account maintains per-venue account state: current balances,
// starting balances, and the margins the portfolio posts against working
// orders and open positions.
//
// An account is created from its first AccountState event and mutated only
// by applying further events and by margin updates from the portfolio.
// The event log is append-only; the most recent event's balances always
// agree with the current balance map for the currencies it mentions.
package account

import (
	"fmt"
	"log/slog"
	"sync"

	"tradecore/internal/model"
	"tradecore/pkg/types"
)

// PnLProvider is the portfolio capability an account needs to answer
// equity queries. Set on registration; the account functions without it
// for every query that does not involve unrealized PnL.
type PnLProvider interface {
	// VenueUnrealizedPnLs returns unrealized PnL per currency code for
	// the venue, or false when the venue has no usable data.
	VenueUnrealizedPnLs(venue types.Venue) (map[string]types.Money, bool)
}

// Account holds one venue's balances and margins.
type Account struct {
	mu sync.RWMutex

	id              types.AccountID
	defaultCurrency types.Currency // zero when the venue reports multi-currency without a base
	allowOverdraft  bool

	starting     map[string]types.Money          // immutable after init
	balances     map[string]types.AccountBalance // keyed by currency code
	initMargins  map[string]types.Money
	maintMargins map[string]types.Money
	events       []model.AccountState

	portfolio PnLProvider // weak back-reference, set on registration
	logger    *slog.Logger
}

// New creates an account from its initial state event. The event must
// carry at least one balance.
func New(state model.AccountState, defaultCurrency types.Currency, allowOverdraft bool, logger *slog.Logger) (*Account, error) {
	if len(state.Balances) == 0 {
		return nil, fmt.Errorf("account %s: initial state has no balances", state.AccountID)
	}

	a := &Account{
		id:              state.AccountID,
		defaultCurrency: defaultCurrency,
		allowOverdraft:  allowOverdraft,
		starting:        make(map[string]types.Money),
		balances:        make(map[string]types.AccountBalance),
		initMargins:     make(map[string]types.Money),
		maintMargins:    make(map[string]types.Money),
		logger:          logger.With("component", "account", "account_id", string(state.AccountID)),
	}
	for _, b := range state.Balances {
		a.starting[b.Currency.Code] = b.TotalMoney()
	}
	if err := a.apply(state); err != nil {
		return nil, err
	}
	return a, nil
}

// ID returns the account identifier.
func (a *Account) ID() types.AccountID { return a.id }

// Venue returns the venue that issued the account.
func (a *Account) Venue() types.Venue { return a.id.Issuer() }

// DefaultCurrency returns the account base currency; the bool is false
// when the account has none.
func (a *Account) DefaultCurrency() (types.Currency, bool) {
	return a.defaultCurrency, !a.defaultCurrency.IsZero()
}

// RegisterPortfolio sets the back-reference used by equity queries.
func (a *Account) RegisterPortfolio(p PnLProvider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.portfolio = p
}

// Apply appends a state event and merges its balances. Balances for
// currencies absent from the event retain their prior values.
func (a *Account) Apply(state model.AccountState) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.apply(state)
}

func (a *Account) apply(state model.AccountState) error {
	if state.AccountID != a.id {
		return fmt.Errorf("account %s: event for %s", a.id, state.AccountID)
	}
	for _, prior := range a.events {
		if prior.ID == state.ID {
			return fmt.Errorf("account %s: duplicate event id %s", a.id, state.ID)
		}
	}
	for _, b := range state.Balances {
		if err := b.Validate(a.allowOverdraft); err != nil {
			return fmt.Errorf("account %s: %w", a.id, err)
		}
	}

	for _, b := range state.Balances {
		a.balances[b.Currency.Code] = b
	}
	a.events = append(a.events, state)
	return nil
}

// Events returns the applied event log in order.
func (a *Account) Events() []model.AccountState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.AccountState, len(a.events))
	copy(out, a.events)
	return out
}

// EventCount returns the length of the event log.
func (a *Account) EventCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.events)
}

// resolveCurrency applies the default-currency fallback. A zero currency
// argument selects the default; having neither is an error.
func (a *Account) resolveCurrency(c types.Currency) (types.Currency, error) {
	if !c.IsZero() {
		return c, nil
	}
	if a.defaultCurrency.IsZero() {
		return types.Currency{}, fmt.Errorf("account %s: no currency given and no default currency", a.id)
	}
	return a.defaultCurrency, nil
}

// Balance returns the total balance for a currency (default currency when
// zero). The bool is false when the account holds no such balance.
func (a *Account) Balance(c types.Currency) (types.Money, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cur, err := a.resolveCurrency(c)
	if err != nil {
		return types.Money{}, false, err
	}
	b, ok := a.balances[cur.Code]
	if !ok {
		return types.Money{}, false, nil
	}
	return b.TotalMoney(), true, nil
}

// BalanceFree returns the free part of a currency balance.
func (a *Account) BalanceFree(c types.Currency) (types.Money, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cur, err := a.resolveCurrency(c)
	if err != nil {
		return types.Money{}, false, err
	}
	b, ok := a.balances[cur.Code]
	if !ok {
		return types.Money{}, false, nil
	}
	return b.FreeMoney(), true, nil
}

// BalanceLocked returns the locked part of a currency balance.
func (a *Account) BalanceLocked(c types.Currency) (types.Money, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cur, err := a.resolveCurrency(c)
	if err != nil {
		return types.Money{}, false, err
	}
	b, ok := a.balances[cur.Code]
	if !ok {
		return types.Money{}, false, nil
	}
	return b.LockedMoney(), true, nil
}

// Balances returns the current balance map keyed by currency code.
func (a *Account) Balances() map[string]types.AccountBalance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]types.AccountBalance, len(a.balances))
	for k, v := range a.balances {
		out[k] = v
	}
	return out
}

// StartingBalance returns the balance recorded at account creation.
func (a *Account) StartingBalance(c types.Currency) (types.Money, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.starting[c.Code]
	return m, ok
}

// UpdateInitialMargin overwrites the initial margin entry for the money's
// currency.
func (a *Account) UpdateInitialMargin(m types.Money) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initMargins[m.Currency().Code] = m
}

// UpdateMaintMargin overwrites the maintenance margin entry for the
// money's currency.
func (a *Account) UpdateMaintMargin(m types.Money) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maintMargins[m.Currency().Code] = m
}

// InitialMargin returns the posted initial margin for a currency.
func (a *Account) InitialMargin(c types.Currency) (types.Money, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.initMargins[c.Code]
	return m, ok
}

// MaintMargin returns the posted maintenance margin for a currency.
func (a *Account) MaintMargin(c types.Currency) (types.Money, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.maintMargins[c.Code]
	return m, ok
}

// InitialMargins returns all posted initial margins keyed by currency code.
func (a *Account) InitialMargins() map[string]types.Money {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]types.Money, len(a.initMargins))
	for k, v := range a.initMargins {
		out[k] = v
	}
	return out
}

// MaintMargins returns all posted maintenance margins keyed by currency code.
func (a *Account) MaintMargins() map[string]types.Money {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]types.Money, len(a.maintMargins))
	for k, v := range a.maintMargins {
		out[k] = v
	}
	return out
}

// Equity returns balance + unrealized PnL for a currency. Requires a
// registered portfolio; returns ok=false when either component is absent.
func (a *Account) Equity(c types.Currency) (types.Money, bool, error) {
	a.mu.RLock()
	portfolio := a.portfolio
	a.mu.RUnlock()

	if portfolio == nil {
		return types.Money{}, false, fmt.Errorf("account %s: no portfolio registered", a.id)
	}

	balance, ok, err := a.Balance(c)
	if err != nil {
		return types.Money{}, false, err
	}
	if !ok {
		return types.Money{}, false, nil
	}

	pnls, ok := portfolio.VenueUnrealizedPnLs(a.Venue())
	if !ok {
		return types.Money{}, false, nil
	}
	pnl, ok := pnls[balance.Currency().Code]
	if !ok {
		// no exposure in this currency: equity is the bare balance
		return balance, true, nil
	}
	eq, err := balance.Add(pnl)
	if err != nil {
		return types.Money{}, false, err
	}
	return eq, true, nil
}

// MarginAvailable returns equity minus posted initial and maintenance
// margins for a currency.
func (a *Account) MarginAvailable(c types.Currency) (types.Money, bool, error) {
	eq, ok, err := a.Equity(c)
	if err != nil || !ok {
		return types.Money{}, ok, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	avail := eq.Amount()
	if m, ok := a.initMargins[eq.Currency().Code]; ok {
		avail = avail.Sub(m.Amount())
	}
	if m, ok := a.maintMargins[eq.Currency().Code]; ok {
		avail = avail.Sub(m.Amount())
	}
	return types.NewMoney(avail, eq.Currency()), true, nil
}
