package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradecore/pkg/types"
)

// Position is an exposure on one instrument, signed by entry side.
// RelativeQty is positive for long exposure and negative for short; the
// position is closed when it reaches zero.
//
// Positions are owned by the cache. The portfolio and strategies hold
// references only and never mutate them; mutation happens through fills
// applied by the execution layer.
type Position struct {
	ID           types.PositionID
	InstrumentID types.InstrumentID
	StrategyID   types.StrategyID
	EntrySide    types.OrderSide
	Quantity     types.Quantity  // absolute open quantity
	RelativeQty  decimal.Decimal // signed open quantity
	AvgOpen      decimal.Decimal // average open price
	RealizedPnL  types.Money

	Multiplier     decimal.Decimal
	IsInverse      bool
	CostCurrency   types.Currency
	SizePrecision  int32
	OpenedAt       time.Time
	ClosedAt       time.Time
}

// NewPosition opens a position from the first fill on an instrument.
func NewPosition(inst *Instrument, fill OrderFilled) *Position {
	rel := fill.LastQty.Decimal()
	if fill.Side == types.SELL {
		rel = rel.Neg()
	}
	cost := inst.QuoteCurrency
	if inst.IsInverse {
		cost = inst.SettlementCurrency
	}
	return &Position{
		ID:            fill.PositionID,
		InstrumentID:  fill.InstrumentID,
		StrategyID:    fill.StrategyID,
		EntrySide:     fill.Side,
		Quantity:      fill.LastQty,
		RelativeQty:   rel,
		AvgOpen:       fill.LastPx.Decimal(),
		RealizedPnL:   types.NewMoney(decimal.Zero, cost),
		Multiplier:    inst.Multiplier,
		IsInverse:     inst.IsInverse,
		CostCurrency:  cost,
		SizePrecision: inst.SizePrecision,
		OpenedAt:      fill.TsEvent,
	}
}

// Side derives the position side from the signed quantity.
func (p *Position) Side() types.PositionSide {
	switch {
	case p.RelativeQty.IsPositive():
		return types.Long
	case p.RelativeQty.IsNegative():
		return types.Short
	default:
		return types.Flat
	}
}

// IsOpen reports whether the position has non-zero exposure.
func (p *Position) IsOpen() bool { return !p.RelativeQty.IsZero() }

// IsClosed reports whether the position has been flattened.
func (p *Position) IsClosed() bool { return p.RelativeQty.IsZero() }

// IsLong reports positive exposure.
func (p *Position) IsLong() bool { return p.RelativeQty.IsPositive() }

// IsShort reports negative exposure.
func (p *Position) IsShort() bool { return p.RelativeQty.IsNegative() }

// UnrealizedPnL marks the open exposure against the last price, in the
// position's cost currency.
//
// Standard contracts: (last - avg_open) * relative_qty * multiplier.
// Inverse contracts:  relative_qty * multiplier * (1/avg_open - 1/last).
func (p *Position) UnrealizedPnL(last types.Price) (types.Money, error) {
	if p.IsClosed() {
		return types.NewMoney(decimal.Zero, p.CostCurrency), nil
	}
	if p.IsInverse {
		if p.AvgOpen.IsZero() || last.IsZero() {
			return types.Money{}, fmt.Errorf("position %s: zero price in inverse pnl", p.ID)
		}
		one := decimal.NewFromInt(1)
		pnl := p.RelativeQty.Mul(p.Multiplier).
			Mul(one.Div(p.AvgOpen).Sub(one.Div(last.Decimal())))
		return types.NewMoney(pnl, p.CostCurrency), nil
	}
	pnl := last.Decimal().Sub(p.AvgOpen).Mul(p.RelativeQty).Mul(p.Multiplier)
	return types.NewMoney(pnl, p.CostCurrency), nil
}

// ApplyFill nets a fill into the position, maintaining average open price
// and realized PnL. Fills in the entry direction extend the position at a
// new weighted average; opposing fills reduce it and realize PnL on the
// reduced quantity.
func (p *Position) ApplyFill(fill OrderFilled) error {
	if fill.InstrumentID != p.InstrumentID {
		return fmt.Errorf("position %s: fill for %s", p.ID, fill.InstrumentID)
	}

	qty := fill.LastQty.Decimal()
	px := fill.LastPx.Decimal()
	signed := qty
	if fill.Side == types.SELL {
		signed = signed.Neg()
	}

	sameDirection := (p.RelativeQty.IsPositive() && fill.Side == types.BUY) ||
		(p.RelativeQty.IsNegative() && fill.Side == types.SELL) ||
		p.RelativeQty.IsZero()

	if sameDirection {
		oldAbs := p.RelativeQty.Abs()
		newAbs := oldAbs.Add(qty)
		if !newAbs.IsZero() {
			p.AvgOpen = p.AvgOpen.Mul(oldAbs).Add(px.Mul(qty)).Div(newAbs)
		}
		p.RelativeQty = p.RelativeQty.Add(signed)
	} else {
		reduced := decimal.Min(p.RelativeQty.Abs(), qty)
		var perUnit decimal.Decimal
		if p.IsInverse {
			one := decimal.NewFromInt(1)
			perUnit = one.Div(p.AvgOpen).Sub(one.Div(px))
		} else {
			perUnit = px.Sub(p.AvgOpen)
		}
		if p.RelativeQty.IsNegative() {
			perUnit = perUnit.Neg()
		}
		realized := perUnit.Mul(reduced).Mul(p.Multiplier)
		p.RealizedPnL = types.NewMoney(p.RealizedPnL.Amount().Add(realized), p.CostCurrency)

		p.RelativeQty = p.RelativeQty.Add(signed)
		if (p.RelativeQty.IsPositive() && fill.Side == types.SELL) ||
			(p.RelativeQty.IsNegative() && fill.Side == types.BUY) {
			// flipped through flat: remainder opens at the fill price
			p.AvgOpen = px
			p.EntrySide = fill.Side
		}
	}

	p.Quantity, _ = types.NewQuantity(p.RelativeQty.Abs().Round(p.SizePrecision), p.SizePrecision)
	if p.RelativeQty.IsZero() {
		p.ClosedAt = fill.TsEvent
	} else {
		p.ClosedAt = time.Time{}
	}
	return nil
}

func (p *Position) String() string {
	return fmt.Sprintf("%s %s %s %s @ %s", p.ID, p.Side(), p.Quantity, p.InstrumentID, p.AvgOpen)
}
