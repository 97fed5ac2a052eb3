// Package portfolio maintains the aggregate trading state: registered
// accounts, working orders, open and closed positions, net positions per
// instrument, and margin and unrealized-PnL views derived from them.
//
// Every query is a derived view over the events applied so far. Unrealized
// PnL is cached per instrument and invalidated when that instrument's bid
// or ask changes. Missing external data (no instrument definition, no
// quote, no cross rate) degrades the affected contribution with an error
// log; queries answer "unknown" (ok=false) rather than zero when a hard
// prerequisite is missing. Zero and unknown are distinct.
package portfolio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"tradecore/internal/account"
	"tradecore/internal/model"
	"tradecore/pkg/types"
)

// InstrumentProvider supplies instrument definitions, normally the cache.
type InstrumentProvider interface {
	Instrument(id types.InstrumentID) (*model.Instrument, bool)
}

// Portfolio aggregates accounts, orders, and positions into consistent
// views.
type Portfolio struct {
	mu sync.RWMutex

	instruments InstrumentProvider
	logger      *slog.Logger

	accounts        map[types.Venue]*account.Account
	ordersWorking   map[types.Venue]map[types.ClientOrderID]*model.Order
	positionsOpen   map[types.Venue]map[types.PositionID]*model.Position
	positionsClosed map[types.Venue]map[types.PositionID]*model.Position

	quotes map[string]types.QuoteTick // latest quote per instrument id
	trades map[string]types.TradeTick // latest trade per instrument id

	pnlCache     map[string]types.Money     // unrealized pnl per instrument id
	netPositions map[string]decimal.Decimal // signed net quantity per instrument id

	pnlComputes int // recompute count, observed by cache-invalidation tests
}

// New creates an empty portfolio.
func New(instruments InstrumentProvider, logger *slog.Logger) *Portfolio {
	return &Portfolio{
		instruments:     instruments,
		logger:          logger.With("component", "portfolio"),
		accounts:        make(map[types.Venue]*account.Account),
		ordersWorking:   make(map[types.Venue]map[types.ClientOrderID]*model.Order),
		positionsOpen:   make(map[types.Venue]map[types.PositionID]*model.Position),
		positionsClosed: make(map[types.Venue]map[types.PositionID]*model.Position),
		quotes:          make(map[string]types.QuoteTick),
		trades:          make(map[string]types.TradeTick),
		pnlCache:        make(map[string]types.Money),
		netPositions:    make(map[string]decimal.Decimal),
	}
}

// ————————————————————————————————————————————————————————————————————————
// Registration and event application
// ————————————————————————————————————————————————————————————————————————

// RegisterAccount binds an account to its venue. A venue can hold at most
// one account; registering a different account for an occupied venue is a
// fatal invariant violation.
func (p *Portfolio) RegisterAccount(a *account.Account) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	venue := a.Venue()
	if existing, ok := p.accounts[venue]; ok && existing.ID() != a.ID() {
		return fmt.Errorf("register account: venue %s already has account %s", venue, existing.ID())
	}
	p.accounts[venue] = a
	a.RegisterPortfolio(p)
	p.logger.Info("account registered", "venue", string(venue), "account_id", string(a.ID()))
	return nil
}

// Account returns the account registered for a venue.
func (p *Portfolio) Account(venue types.Venue) (*account.Account, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.accounts[venue]
	return a, ok
}

// InitializeOrders replaces the working-order index with the given orders
// (keeping only passive working ones), then recomputes initial margin for
// every registered venue.
func (p *Portfolio) InitializeOrders(orders []*model.Order) {
	p.mu.Lock()
	p.ordersWorking = make(map[types.Venue]map[types.ClientOrderID]*model.Order)
	for _, o := range orders {
		if o.IsPassive() && o.IsWorking() {
			p.indexWorkingOrder(o)
		}
	}
	venues := p.accountVenues()
	p.mu.Unlock()

	for _, v := range venues {
		p.updateInitialMargin(v)
	}
}

// InitializePositions replaces the position indices and clears the PnL
// cache, then recomputes maintenance margin per venue and unrealized PnL
// per open instrument.
func (p *Portfolio) InitializePositions(positions []*model.Position) {
	p.mu.Lock()
	p.positionsOpen = make(map[types.Venue]map[types.PositionID]*model.Position)
	p.positionsClosed = make(map[types.Venue]map[types.PositionID]*model.Position)
	p.pnlCache = make(map[string]types.Money)
	p.netPositions = make(map[string]decimal.Decimal)

	openInstruments := make(map[types.InstrumentID]struct{})
	for _, pos := range positions {
		venue := pos.InstrumentID.Venue
		if pos.IsOpen() {
			p.indexOpen(venue, pos)
			openInstruments[pos.InstrumentID] = struct{}{}
		} else {
			p.indexClosed(venue, pos)
		}
	}
	for id := range openInstruments {
		p.recomputeNetPosition(id)
	}
	venues := p.accountVenues()
	p.mu.Unlock()

	for _, v := range venues {
		p.updateMaintMargin(v)
	}
	for id := range openInstruments {
		p.computeUnrealizedPnL(id)
	}
}

// UpdateTick stores the latest quote for the tick's instrument. When the
// bid or ask moved against the previous quote, the cached unrealized PnL
// for that instrument is invalidated.
func (p *Portfolio) UpdateTick(tick types.QuoteTick) {
	key := tick.InstrumentID.String()

	p.mu.Lock()
	defer p.mu.Unlock()

	prev, had := p.quotes[key]
	p.quotes[key] = tick
	if had && prev.Bid.Equal(tick.Bid) && prev.Ask.Equal(tick.Ask) {
		return // unchanged top of book keeps the cache valid
	}
	delete(p.pnlCache, key)
}

// UpdateTradeTick stores the latest trade, the fallback mark price when an
// instrument has no quote.
func (p *Portfolio) UpdateTradeTick(tick types.TradeTick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades[tick.InstrumentID.String()] = tick
}

// UpdateAccount applies a venue account-state event to the registered
// account.
func (p *Portfolio) UpdateAccount(state model.AccountState) error {
	p.mu.RLock()
	a, ok := p.accounts[state.AccountID.Issuer()]
	p.mu.RUnlock()

	if !ok {
		return fmt.Errorf("update account: no account for venue %s", state.AccountID.Issuer())
	}
	return a.Apply(state)
}

// UpdateOrder reindexes an order after a state change and recomputes the
// venue's initial margin.
func (p *Portfolio) UpdateOrder(o *model.Order) {
	venue := o.InstrumentID.Venue

	p.mu.Lock()
	if o.IsPassive() && o.IsWorking() {
		p.indexWorkingOrder(o)
	} else if byVenue, ok := p.ordersWorking[venue]; ok {
		delete(byVenue, o.ClientOrderID)
	}
	p.mu.Unlock()

	p.updateInitialMargin(venue)
}

// UpdatePosition dispatches a position event, maintains the open/closed
// indices and net position, then recomputes the venue's maintenance
// margin and the instrument's unrealized PnL.
func (p *Portfolio) UpdatePosition(event model.PositionEvent) {
	pos := event.GetPosition()
	venue := pos.InstrumentID.Venue

	p.mu.Lock()
	switch event.(type) {
	case model.PositionOpened:
		p.indexOpen(venue, pos)
	case model.PositionChanged:
		// quantity changed in place; nothing to reindex
	case model.PositionClosed:
		if byVenue, ok := p.positionsOpen[venue]; ok {
			delete(byVenue, pos.ID)
		}
		p.indexClosed(venue, pos)
	}
	p.recomputeNetPosition(pos.InstrumentID)
	p.mu.Unlock()

	p.updateMaintMargin(venue)
	p.computeUnrealizedPnL(pos.InstrumentID)
}

// Reset drops all aggregate state, including registered accounts.
func (p *Portfolio) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.accounts = make(map[types.Venue]*account.Account)
	p.ordersWorking = make(map[types.Venue]map[types.ClientOrderID]*model.Order)
	p.positionsOpen = make(map[types.Venue]map[types.PositionID]*model.Position)
	p.positionsClosed = make(map[types.Venue]map[types.PositionID]*model.Position)
	p.quotes = make(map[string]types.QuoteTick)
	p.trades = make(map[string]types.TradeTick)
	p.pnlCache = make(map[string]types.Money)
	p.netPositions = make(map[string]decimal.Decimal)
	p.logger.Info("portfolio reset")
}

func (p *Portfolio) indexWorkingOrder(o *model.Order) {
	venue := o.InstrumentID.Venue
	byVenue, ok := p.ordersWorking[venue]
	if !ok {
		byVenue = make(map[types.ClientOrderID]*model.Order)
		p.ordersWorking[venue] = byVenue
	}
	byVenue[o.ClientOrderID] = o
}

func (p *Portfolio) indexOpen(venue types.Venue, pos *model.Position) {
	byVenue, ok := p.positionsOpen[venue]
	if !ok {
		byVenue = make(map[types.PositionID]*model.Position)
		p.positionsOpen[venue] = byVenue
	}
	byVenue[pos.ID] = pos
	if byClosed, ok := p.positionsClosed[venue]; ok {
		delete(byClosed, pos.ID)
	}
}

func (p *Portfolio) indexClosed(venue types.Venue, pos *model.Position) {
	byVenue, ok := p.positionsClosed[venue]
	if !ok {
		byVenue = make(map[types.PositionID]*model.Position)
		p.positionsClosed[venue] = byVenue
	}
	byVenue[pos.ID] = pos
}

// recomputeNetPosition sums relative quantities over the open positions of
// one instrument. Caller holds p.mu.
func (p *Portfolio) recomputeNetPosition(id types.InstrumentID) {
	net := decimal.Zero
	for _, byVenue := range p.positionsOpen {
		for _, pos := range byVenue {
			if pos.InstrumentID == id {
				net = net.Add(pos.RelativeQty)
			}
		}
	}
	key := id.String()
	if net.IsZero() {
		delete(p.netPositions, key)
		return
	}
	p.netPositions[key] = net
}

func (p *Portfolio) accountVenues() []types.Venue {
	out := make([]types.Venue, 0, len(p.accounts))
	for v := range p.accounts {
		out = append(out, v)
	}
	return out
}
