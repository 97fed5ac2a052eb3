package portfolio

import (
	"github.com/shopspring/decimal"

	"tradecore/internal/model"
	"tradecore/pkg/types"
)

// updateInitialMargin recomputes the initial margin a venue's account
// posts against its working orders and pushes the per-currency totals
// into the account. Orders with missing instruments or rates are skipped
// with an error log.
func (p *Portfolio) updateInitialMargin(venue types.Venue) {
	p.mu.RLock()
	a, hasAccount := p.accounts[venue]
	orders := make([]*model.Order, 0, len(p.ordersWorking[venue]))
	for _, o := range p.ordersWorking[venue] {
		orders = append(orders, o)
	}
	p.mu.RUnlock()

	if !hasAccount {
		return
	}
	defaultCcy, hasDefault := a.DefaultCurrency()

	sums := make(map[string]decimal.Decimal)
	currencies := make(map[string]types.Currency)
	for _, o := range orders {
		inst, ok := p.instruments.Instrument(o.InstrumentID)
		if !ok {
			p.logger.Error("initial margin: no instrument", "instrument", o.InstrumentID.String())
			continue
		}
		if o.Price == nil {
			p.logger.Error("initial margin: order has no price", "order", string(o.ClientOrderID))
			continue
		}

		margin := inst.CalculateInitialMargin(o.Quantity, *o.Price)
		amount := margin.Amount()
		currency := margin.Currency()
		if hasDefault {
			rate := p.calculateXRate(currency, defaultCcy, o.Side)
			if rate == 0 {
				p.logger.Error("initial margin: no rate",
					"from", currency.Code, "to", defaultCcy.Code)
				continue
			}
			amount = amount.Mul(decimal.NewFromFloat(rate))
			currency = defaultCcy
		}
		sums[currency.Code] = sums[currency.Code].Add(amount)
		currencies[currency.Code] = currency
	}

	if len(sums) == 0 && hasDefault {
		// no working orders: release the posted margin
		a.UpdateInitialMargin(types.NewMoney(decimal.Zero, defaultCcy))
		return
	}
	for code, amt := range sums {
		a.UpdateInitialMargin(types.NewMoney(amt, currencies[code]))
	}
}

// updateMaintMargin recomputes the maintenance margin a venue's account
// posts against its open positions, marked at the last price, and pushes
// the per-currency totals into the account.
func (p *Portfolio) updateMaintMargin(venue types.Venue) {
	p.mu.RLock()
	a, hasAccount := p.accounts[venue]
	positions := p.openPositions(venue)
	p.mu.RUnlock()

	if !hasAccount {
		return
	}
	defaultCcy, hasDefault := a.DefaultCurrency()

	sums := make(map[string]decimal.Decimal)
	currencies := make(map[string]types.Currency)
	for _, pos := range positions {
		inst, ok := p.instruments.Instrument(pos.InstrumentID)
		if !ok {
			p.logger.Error("maint margin: no instrument", "instrument", pos.InstrumentID.String())
			continue
		}
		last, ok := p.lastPrice(pos)
		if !ok {
			p.logger.Error("maint margin: no price", "instrument", pos.InstrumentID.String())
			continue
		}

		margin := inst.CalculateMaintMargin(pos.Side(), pos.Quantity, last)
		amount := margin.Amount()
		currency := margin.Currency()
		if hasDefault {
			rate := p.calculateXRate(currency, defaultCcy, pos.EntrySide)
			if rate == 0 {
				p.logger.Error("maint margin: no rate",
					"from", currency.Code, "to", defaultCcy.Code)
				continue
			}
			amount = amount.Mul(decimal.NewFromFloat(rate))
			currency = defaultCcy
		}
		sums[currency.Code] = sums[currency.Code].Add(amount)
		currencies[currency.Code] = currency
	}

	if len(sums) == 0 && hasDefault {
		a.UpdateMaintMargin(types.NewMoney(decimal.Zero, defaultCcy))
		return
	}
	for code, amt := range sums {
		a.UpdateMaintMargin(types.NewMoney(amt, currencies[code]))
	}
}
