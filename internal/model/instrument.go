// Package model defines the traded-domain objects of the core: instruments,
// orders, positions, the events they emit, and the commands that move them.
//
// Orders carry an explicit state machine with absorbing terminal states.
// Events are flat structs sharing an embedded core, dispatched by type
// switch rather than inheritance. Positions and orders are owned by the
// cache; other components hold references only.
package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradecore/pkg/types"
)

// Instrument describes a tradable contract on a venue: its currencies,
// precisions, size bounds, fees, and margin rates. All accounting
// derivations (notional, market value, margins, commission) hang off the
// instrument so every caller applies the same inverse-contract and
// liquidity-side policies.
//
// A zero MinQuantity or MaxQuantity means the bound is not enforced.
type Instrument struct {
	ID                 types.InstrumentID
	AssetType          types.AssetType
	QuoteCurrency      types.Currency
	SettlementCurrency types.Currency // cost currency of fills and PnL
	IsInverse          bool

	PricePrecision int32
	SizePrecision  int32
	Multiplier     decimal.Decimal
	Leverage       decimal.Decimal
	MinQuantity    types.Quantity
	MaxQuantity    types.Quantity

	MakerFee        decimal.Decimal
	TakerFee        decimal.Decimal
	MarginInitRate  decimal.Decimal
	MarginMaintRate decimal.Decimal
}

// NotionalValue returns the contract notional for a quantity at a price.
// Inverse contracts are denominated in the base/settlement currency and
// the notional is price-independent: qty * multiplier.
func (i *Instrument) NotionalValue(qty types.Quantity, price types.Price) types.Money {
	if i.IsInverse {
		return types.NewMoney(qty.Decimal().Mul(i.Multiplier), i.SettlementCurrency)
	}
	return types.NewMoney(qty.Decimal().Mul(i.Multiplier).Mul(price.Decimal()), i.QuoteCurrency)
}

// MarketValue returns the current liquidation value of a quantity at a
// price. For inverse contracts this is qty * multiplier / price.
func (i *Instrument) MarketValue(qty types.Quantity, price types.Price) (types.Money, error) {
	if i.IsInverse {
		if price.IsZero() {
			return types.Money{}, fmt.Errorf("market value %s: zero price on inverse instrument", i.ID)
		}
		v := qty.Decimal().Mul(i.Multiplier).Div(price.Decimal())
		return types.NewMoney(v, i.SettlementCurrency), nil
	}
	v := qty.Decimal().Mul(i.Multiplier).Mul(price.Decimal())
	return types.NewMoney(v, i.QuoteCurrency), nil
}

// CalculateInitialMargin returns the margin locked for a working order of
// the given quantity at the given price.
func (i *Instrument) CalculateInitialMargin(qty types.Quantity, price types.Price) types.Money {
	notional := i.NotionalValue(qty, price)
	margin := notional.Amount().Mul(i.MarginInitRate)
	if !i.Leverage.IsZero() && !i.Leverage.Equal(decimal.NewFromInt(1)) {
		margin = margin.Div(i.Leverage)
	}
	return types.NewMoney(margin, notional.Currency())
}

// CalculateMaintMargin returns the margin held against an open position of
// the given side and quantity, marked at the last price.
func (i *Instrument) CalculateMaintMargin(side types.PositionSide, qty types.Quantity, last types.Price) types.Money {
	if side == types.Flat {
		return types.NewMoney(decimal.Zero, i.costCurrency())
	}
	notional := i.NotionalValue(qty, last)
	margin := notional.Amount().Mul(i.MarginMaintRate)
	if !i.Leverage.IsZero() && !i.Leverage.Equal(decimal.NewFromInt(1)) {
		margin = margin.Div(i.Leverage)
	}
	return types.NewMoney(margin, notional.Currency())
}

// CalculateCommission returns the fee charged for a fill of the given
// quantity at the given price. The liquidity side selects the maker or
// taker rate; NONE is invalid. Inverse contracts charge commission in the
// settlement currency, dividing by the fill price.
func (i *Instrument) CalculateCommission(qty types.Quantity, fillPx types.Price, liquidity types.LiquiditySide) (types.Money, error) {
	var rate decimal.Decimal
	switch liquidity {
	case types.LiquidityMaker:
		rate = i.MakerFee
	case types.LiquidityTaker:
		rate = i.TakerFee
	default:
		return types.Money{}, fmt.Errorf("commission %s: invalid liquidity side %s", i.ID, liquidity)
	}

	notional := qty.Decimal().Mul(i.Multiplier)
	if i.IsInverse {
		if fillPx.IsZero() {
			return types.Money{}, fmt.Errorf("commission %s: zero fill price on inverse instrument", i.ID)
		}
		fee := notional.Div(fillPx.Decimal()).Mul(rate)
		return types.NewMoney(fee, i.SettlementCurrency), nil
	}
	fee := notional.Mul(fillPx.Decimal()).Mul(rate)
	return types.NewMoney(fee, i.QuoteCurrency), nil
}

// MakePrice constructs a price at this instrument's price precision,
// rounding the raw value.
func (i *Instrument) MakePrice(value decimal.Decimal) types.Price {
	p, _ := types.NewPrice(value.Round(i.PricePrecision), i.PricePrecision)
	return p
}

// MakeQuantity constructs a quantity at this instrument's size precision,
// rounding the raw value.
func (i *Instrument) MakeQuantity(value decimal.Decimal) types.Quantity {
	q, _ := types.NewQuantity(value.Round(i.SizePrecision).Abs(), i.SizePrecision)
	return q
}

func (i *Instrument) costCurrency() types.Currency {
	if i.IsInverse {
		return i.SettlementCurrency
	}
	return i.QuoteCurrency
}
