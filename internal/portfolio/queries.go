package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"

	"tradecore/internal/account"
	"tradecore/internal/model"
	"tradecore/internal/xrate"
	"tradecore/pkg/types"
)

// ————————————————————————————————————————————————————————————————————————
// Flatness and exposure queries
// ————————————————————————————————————————————————————————————————————————

// NetPosition returns the signed net quantity for an instrument. Zero for
// unknown instruments.
func (p *Portfolio) NetPosition(id types.InstrumentID) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if net, ok := p.netPositions[id.String()]; ok {
		return net
	}
	return decimal.Zero
}

// IsNetLong reports positive net exposure on the instrument.
func (p *Portfolio) IsNetLong(id types.InstrumentID) bool {
	return p.NetPosition(id).IsPositive()
}

// IsNetShort reports negative net exposure on the instrument.
func (p *Portfolio) IsNetShort(id types.InstrumentID) bool {
	return p.NetPosition(id).IsNegative()
}

// IsFlat reports zero net exposure on the instrument.
func (p *Portfolio) IsFlat(id types.InstrumentID) bool {
	return p.NetPosition(id).IsZero()
}

// IsCompletelyFlat reports zero net exposure across every instrument.
func (p *Portfolio) IsCompletelyFlat() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, net := range p.netPositions {
		if !net.IsZero() {
			return false
		}
	}
	return true
}

// NetPositions returns a copy of the signed net quantities keyed by
// instrument id string.
func (p *Portfolio) NetPositions() map[string]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(p.netPositions))
	for k, v := range p.netPositions {
		out[k] = v
	}
	return out
}

// Accounts returns the registered accounts.
func (p *Portfolio) Accounts() []*account.Account {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*account.Account, 0, len(p.accounts))
	for _, a := range p.accounts {
		out = append(out, a)
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Margin and PnL query family
// ————————————————————————————————————————————————————————————————————————

// InitialMargins returns the posted initial margins per currency code for
// a venue; ok=false when the venue has no account.
func (p *Portfolio) InitialMargins(venue types.Venue) (map[string]types.Money, bool) {
	p.mu.RLock()
	a, ok := p.accounts[venue]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return a.InitialMargins(), true
}

// MaintMargins returns the posted maintenance margins per currency code
// for a venue; ok=false when the venue has no account.
func (p *Portfolio) MaintMargins(venue types.Venue) (map[string]types.Money, bool) {
	p.mu.RLock()
	a, ok := p.accounts[venue]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return a.MaintMargins(), true
}

// UnrealizedPnL returns the unrealized PnL for one instrument, from the
// cache when valid. ok=false when the venue has no account or a hard
// prerequisite (price, rate) is missing.
func (p *Portfolio) UnrealizedPnL(id types.InstrumentID) (types.Money, bool) {
	p.mu.RLock()
	cached, ok := p.pnlCache[id.String()]
	p.mu.RUnlock()
	if ok {
		return cached, true
	}
	return p.computeUnrealizedPnL(id)
}

// UnrealizedPnLs returns unrealized PnL per currency code over a venue's
// open instruments; ok=false when the venue has no account. Instruments
// with missing data are skipped.
func (p *Portfolio) UnrealizedPnLs(venue types.Venue) (map[string]types.Money, bool) {
	p.mu.RLock()
	_, hasAccount := p.accounts[venue]
	instruments := p.openInstruments(venue)
	p.mu.RUnlock()

	if !hasAccount {
		return nil, false
	}

	sums := make(map[string]decimal.Decimal)
	currencies := make(map[string]types.Currency)
	for _, id := range instruments {
		pnl, ok := p.UnrealizedPnL(id)
		if !ok {
			continue // logged by the computation
		}
		code := pnl.Currency().Code
		sums[code] = sums[code].Add(pnl.Amount())
		currencies[code] = pnl.Currency()
	}

	out := make(map[string]types.Money, len(sums))
	for code, amt := range sums {
		out[code] = types.NewMoney(amt, currencies[code])
	}
	return out, true
}

// VenueUnrealizedPnLs implements account.PnLProvider.
func (p *Portfolio) VenueUnrealizedPnLs(venue types.Venue) (map[string]types.Money, bool) {
	return p.UnrealizedPnLs(venue)
}

// MarketValues returns the signed market value of open positions per
// currency code for a venue (long positive, short negative), converted to
// the account's default currency when one is set; ok=false when the venue
// has no account.
func (p *Portfolio) MarketValues(venue types.Venue) (map[string]types.Money, bool) {
	return p.positionValues(venue, false)
}

// NetExposures returns the absolute market value of open positions per
// currency code for a venue, converted to the account's default currency
// when one is set; ok=false when the venue has no account.
func (p *Portfolio) NetExposures(venue types.Venue) (map[string]types.Money, bool) {
	return p.positionValues(venue, true)
}

func (p *Portfolio) positionValues(venue types.Venue, absolute bool) (map[string]types.Money, bool) {
	p.mu.RLock()
	a, hasAccount := p.accounts[venue]
	positions := p.openPositions(venue)
	p.mu.RUnlock()

	if !hasAccount {
		return nil, false
	}

	sums := make(map[string]decimal.Decimal)
	currencies := make(map[string]types.Currency)
	for _, pos := range positions {
		inst, ok := p.instruments.Instrument(pos.InstrumentID)
		if !ok {
			p.logger.Error("position value: no instrument", "instrument", pos.InstrumentID.String())
			continue
		}
		last, ok := p.lastPrice(pos)
		if !ok {
			p.logger.Error("position value: no price", "instrument", pos.InstrumentID.String())
			continue
		}
		mv, err := inst.MarketValue(pos.Quantity, last)
		if err != nil {
			p.logger.Error("position value: market value", "error", err)
			continue
		}

		value := mv.Amount()
		currency := mv.Currency()
		if defaultCcy, hasDefault := a.DefaultCurrency(); hasDefault {
			rate := p.calculateXRate(currency, defaultCcy, pos.EntrySide)
			if rate == 0 {
				p.logger.Error("position value: no rate",
					"from", currency.Code, "to", defaultCcy.Code)
				continue
			}
			value = value.Mul(decimal.NewFromFloat(rate))
			currency = defaultCcy
		}
		if absolute {
			value = value.Abs()
		} else if pos.IsShort() {
			value = value.Neg()
		}
		sums[currency.Code] = sums[currency.Code].Add(value)
		currencies[currency.Code] = currency
	}

	out := make(map[string]types.Money, len(sums))
	for code, amt := range sums {
		out[code] = types.NewMoney(amt, currencies[code])
	}
	return out, true
}

// ————————————————————————————————————————————————————————————————————————
// Internal computation
// ————————————————————————————————————————————————————————————————————————

// computeUnrealizedPnL recomputes and caches the unrealized PnL for an
// instrument. ok=false when the venue has no account or data is missing.
func (p *Portfolio) computeUnrealizedPnL(id types.InstrumentID) (types.Money, bool) {
	p.mu.Lock()
	p.pnlComputes++
	a, hasAccount := p.accounts[id.Venue]
	var positions []*model.Position
	if byVenue, ok := p.positionsOpen[id.Venue]; ok {
		for _, pos := range byVenue {
			if pos.InstrumentID == id {
				positions = append(positions, pos)
			}
		}
	}
	p.mu.Unlock()

	if !hasAccount {
		p.logger.Error("unrealized pnl: no account for venue", "venue", string(id.Venue))
		return types.Money{}, false
	}

	targetCcy, hasDefault := a.DefaultCurrency()
	total := decimal.Zero
	resultCcy := targetCcy

	for _, pos := range positions {
		last, ok := p.lastPrice(pos)
		if !ok {
			p.logger.Error("unrealized pnl: no price", "instrument", id.String())
			return types.Money{}, false
		}
		pnl, err := pos.UnrealizedPnL(last)
		if err != nil {
			p.logger.Error("unrealized pnl", "error", err)
			return types.Money{}, false
		}

		amount := pnl.Amount()
		if hasDefault {
			inst, ok := p.instruments.Instrument(id)
			if !ok {
				p.logger.Error("unrealized pnl: no instrument", "instrument", id.String())
				return types.Money{}, false
			}
			rate := p.calculateInstrumentXRate(inst, a, pos.EntrySide)
			if rate == 0 {
				p.logger.Error("unrealized pnl: no rate",
					"instrument", id.String(), "to", targetCcy.Code)
				return types.Money{}, false
			}
			amount = amount.Mul(decimal.NewFromFloat(rate))
		} else {
			resultCcy = pnl.Currency()
		}
		total = total.Add(amount)
	}

	if resultCcy.IsZero() {
		// no default currency and no open positions: nothing to denominate
		resultCcy = types.USD
	}
	result := types.NewMoney(total, resultCcy)

	p.mu.Lock()
	p.pnlCache[id.String()] = result
	p.mu.Unlock()
	return result, true
}

// lastPrice selects the mark price for a position: the liquidation side of
// the latest quote (bid for LONG, ask for SHORT), falling back to the
// latest trade price.
func (p *Portfolio) lastPrice(pos *model.Position) (types.Price, bool) {
	key := pos.InstrumentID.String()

	p.mu.RLock()
	quote, hasQuote := p.quotes[key]
	trade, hasTrade := p.trades[key]
	p.mu.RUnlock()

	if hasQuote {
		if pos.IsShort() {
			return quote.Ask, true
		}
		return quote.Bid, true
	}
	if hasTrade {
		return trade.Price, true
	}
	return types.Price{}, false
}

// calculateInstrumentXRate resolves the conversion rate from an
// instrument's cost currency to the account's default currency. Returns 1
// when the account has no default currency; 0 when the rate cannot be
// resolved.
func (p *Portfolio) calculateInstrumentXRate(inst *model.Instrument, a *account.Account, side types.OrderSide) float64 {
	defaultCcy, ok := a.DefaultCurrency()
	if !ok {
		return 1
	}
	cost := inst.QuoteCurrency
	if inst.IsInverse {
		cost = inst.SettlementCurrency
	}
	return p.calculateXRate(cost, defaultCcy, side)
}

// calculateXRate resolves from -> to through the quote graph built from
// the portfolio's latest ticks. A BUY exposure liquidates at the bid, a
// SELL at the ask.
func (p *Portfolio) calculateXRate(from, to types.Currency, side types.OrderSide) float64 {
	if from.Equal(to) {
		return 1
	}

	priceType := types.PriceBid
	if side == types.SELL {
		priceType = types.PriceAsk
	}

	bid, ask := p.buildQuoteMaps()
	rate, err := xrate.Rate(from, to, priceType, bid, ask)
	if err != nil {
		p.logger.Error("xrate", "error", err)
		return 0
	}
	return rate
}

// buildQuoteMaps projects the latest quote ticks whose symbols are pair
// codes ("LHS/RHS") into the bid/ask maps the rate calculator consumes.
func (p *Portfolio) buildQuoteMaps() (map[string]float64, map[string]float64) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bid := make(map[string]float64)
	ask := make(map[string]float64)
	for _, tick := range p.quotes {
		symbol := string(tick.InstrumentID.Symbol)
		if !strings.Contains(symbol, "/") {
			continue
		}
		bid[symbol] = tick.Bid.Float64()
		ask[symbol] = tick.Ask.Float64()
	}
	return bid, ask
}

// openInstruments lists the distinct instruments with open positions on a
// venue. Caller holds p.mu.
func (p *Portfolio) openInstruments(venue types.Venue) []types.InstrumentID {
	seen := make(map[types.InstrumentID]struct{})
	var out []types.InstrumentID
	for _, pos := range p.positionsOpen[venue] {
		if _, ok := seen[pos.InstrumentID]; !ok {
			seen[pos.InstrumentID] = struct{}{}
			out = append(out, pos.InstrumentID)
		}
	}
	return out
}

// openPositions lists a venue's open positions. Caller holds p.mu.
func (p *Portfolio) openPositions(venue types.Venue) []*model.Position {
	out := make([]*model.Position, 0, len(p.positionsOpen[venue]))
	for _, pos := range p.positionsOpen[venue] {
		out = append(out, pos)
	}
	return out
}
