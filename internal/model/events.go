package model

import (
	"time"

	"github.com/google/uuid"

	"tradecore/pkg/types"
)

// Event is implemented by everything the core publishes or consumes as a
// fact: order lifecycle events, position events, and account state.
type Event interface {
	EventID() uuid.UUID
	EventTime() time.Time
}

// OrderEventCore carries the fields shared by every order event. Embedded
// by each variant; the variants themselves are dispatched by type switch.
type OrderEventCore struct {
	ID            uuid.UUID
	TraderID      types.TraderID
	StrategyID    types.StrategyID
	InstrumentID  types.InstrumentID
	ClientOrderID types.ClientOrderID
	TsEvent       time.Time
}

func (c OrderEventCore) EventID() uuid.UUID    { return c.ID }
func (c OrderEventCore) EventTime() time.Time  { return c.TsEvent }
func (c OrderEventCore) OrderID() types.ClientOrderID { return c.ClientOrderID }

// OrderEvent is the common interface over all order lifecycle events.
type OrderEvent interface {
	Event
	OrderID() types.ClientOrderID
}

// OrderInitialized is emitted when a strategy constructs an order, before
// it reaches the risk engine.
type OrderInitialized struct {
	OrderEventCore
	Side     types.OrderSide
	Type     types.OrderType
	Quantity types.Quantity
	Price    *types.Price
	Trigger  *types.Price
}

// OrderDenied is emitted by the risk engine when a command fails a
// pre-trade check. The order transitions INITIALIZED -> DENIED.
type OrderDenied struct {
	OrderEventCore
	Reason string
}

// OrderInvalid is emitted when an order fails structural validation that
// is not a business denial.
type OrderInvalid struct {
	OrderEventCore
	Reason string
}

// OrderSubmitted is emitted when the execution engine hands the order to
// the venue.
type OrderSubmitted struct {
	OrderEventCore
	AccountID types.AccountID
}

// OrderAccepted is emitted when the venue acknowledges the order.
type OrderAccepted struct {
	OrderEventCore
	VenueOrderID types.VenueOrderID
	AccountID    types.AccountID
}

// OrderRejected is emitted when the venue refuses the order.
type OrderRejected struct {
	OrderEventCore
	Reason string
}

// OrderCanceled is emitted when a working order is removed from the book.
type OrderCanceled struct {
	OrderEventCore
	VenueOrderID types.VenueOrderID
}

// OrderExpired is emitted when a working order lapses by time in force.
type OrderExpired struct {
	OrderEventCore
	VenueOrderID types.VenueOrderID
}

// OrderTriggered is emitted when a stop order's trigger price trades.
type OrderTriggered struct {
	OrderEventCore
	VenueOrderID types.VenueOrderID
}

// OrderUpdated is emitted when a venue applies an order modification.
type OrderUpdated struct {
	OrderEventCore
	VenueOrderID types.VenueOrderID
	Quantity     types.Quantity
	Price        *types.Price
	Trigger      *types.Price
}

// OrderFilled is emitted for every execution against the order. LastQty
// and LastPx describe this fill; the order accumulates them.
type OrderFilled struct {
	OrderEventCore
	VenueOrderID  types.VenueOrderID
	TradeID       string
	PositionID    types.PositionID
	Side          types.OrderSide
	LastQty       types.Quantity
	LastPx        types.Price
	Commission    types.Money
	LiquiditySide types.LiquiditySide
	AccountID     types.AccountID
}

// ————————————————————————————————————————————————————————————————————————
// Position events
// ————————————————————————————————————————————————————————————————————————

// PositionEvent is the common interface over position lifecycle events.
// Each variant carries a reference to the externally-owned position.
type PositionEvent interface {
	Event
	GetPosition() *Position
}

// PositionEventCore carries the fields shared by position events.
type PositionEventCore struct {
	ID         uuid.UUID
	TraderID   types.TraderID
	StrategyID types.StrategyID
	Position   *Position
	TsEvent    time.Time
}

func (c PositionEventCore) EventID() uuid.UUID     { return c.ID }
func (c PositionEventCore) EventTime() time.Time   { return c.TsEvent }
func (c PositionEventCore) GetPosition() *Position { return c.Position }

// PositionOpened is emitted when a fill opens a new position.
type PositionOpened struct{ PositionEventCore }

// PositionChanged is emitted when a fill alters an open position without
// closing it.
type PositionChanged struct{ PositionEventCore }

// PositionClosed is emitted when a position's quantity reaches zero.
type PositionClosed struct{ PositionEventCore }

// NewPositionEvent wraps a position in the event variant matching its
// current state transition.
func NewPositionEvent(opened, closed bool, traderID types.TraderID, strategyID types.StrategyID, p *Position, ts time.Time) PositionEvent {
	core := PositionEventCore{
		ID:         uuid.New(),
		TraderID:   traderID,
		StrategyID: strategyID,
		Position:   p,
		TsEvent:    ts,
	}
	switch {
	case opened:
		return PositionOpened{core}
	case closed:
		return PositionClosed{core}
	default:
		return PositionChanged{core}
	}
}

// ————————————————————————————————————————————————————————————————————————
// Account state
// ————————————————————————————————————————————————————————————————————————

// AccountState is a venue-reported snapshot of account balances.
// Balances list only the currencies the venue reported; currencies absent
// from the event retain their prior values when applied.
type AccountState struct {
	ID        uuid.UUID
	AccountID types.AccountID
	Balances  []types.AccountBalance
	Info      map[string]string
	Reported  bool
	TsEvent   time.Time
}

func (s AccountState) EventID() uuid.UUID   { return s.ID }
func (s AccountState) EventTime() time.Time { return s.TsEvent }
