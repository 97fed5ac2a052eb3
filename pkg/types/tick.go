package types

import "time"

// QuoteTick is a top-of-book quote update for one instrument.
// Published on "data.quotes.<venue>.<symbol>".
type QuoteTick struct {
	InstrumentID InstrumentID
	Bid          Price
	Ask          Price
	BidSize      Quantity
	AskSize      Quantity
	TsEvent      time.Time
}

// Mid returns the midpoint of bid and ask as a float. Quote-side
// selection for accounting uses Bid/Ask directly; Mid is for rate
// derivation and display.
func (t QuoteTick) Mid() float64 {
	return (t.Bid.Float64() + t.Ask.Float64()) / 2
}

// ExtractPrice returns the side of the quote selected by the price type.
func (t QuoteTick) ExtractPrice(pt PriceType) (Price, bool) {
	switch pt {
	case PriceBid:
		return t.Bid, true
	case PriceAsk:
		return t.Ask, true
	default:
		return Price{}, false
	}
}

// TradeTick is a single executed trade for one instrument.
// Published on "data.trades.<venue>.<symbol>".
type TradeTick struct {
	InstrumentID InstrumentID
	Price        Price
	Size         Quantity
	Aggressor    AggressorSide
	TradeID      string
	TsEvent      time.Time
}
