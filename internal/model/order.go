package model

import (
	"fmt"
	"time"

	"tradecore/pkg/types"
)

// Order is a client order with an explicit lifecycle state machine.
//
// Transitions:
//
//	INITIALIZED -> DENIED | INVALID | SUBMITTED
//	SUBMITTED   -> ACCEPTED | REJECTED | CANCELED | PARTIALLY_FILLED | FILLED
//	ACCEPTED    -> TRIGGERED | PARTIALLY_FILLED | FILLED | CANCELED | EXPIRED
//	TRIGGERED   -> PARTIALLY_FILLED | FILLED | CANCELED | EXPIRED
//	PARTIALLY_FILLED -> PARTIALLY_FILLED | FILLED | CANCELED | EXPIRED
//
// Terminal states (FILLED, CANCELED, EXPIRED, REJECTED, DENIED, INVALID)
// are absorbing: applying any event to a completed order is an error.
type Order struct {
	ClientOrderID types.ClientOrderID
	VenueOrderID  types.VenueOrderID
	TraderID      types.TraderID
	StrategyID    types.StrategyID
	InstrumentID  types.InstrumentID
	Side          types.OrderSide
	Type          types.OrderType
	Quantity      types.Quantity
	FilledQty     types.Quantity
	Price         *types.Price // nil for market orders
	Trigger       *types.Price // stop trigger, nil unless a stop type
	Status        types.OrderStatus
	AccountID     types.AccountID
	InitTime      time.Time
	LastEventTime time.Time

	events []OrderEvent
}

// NewOrder constructs an order in the INITIALIZED state.
func NewOrder(
	clientOrderID types.ClientOrderID,
	traderID types.TraderID,
	strategyID types.StrategyID,
	instrumentID types.InstrumentID,
	side types.OrderSide,
	orderType types.OrderType,
	qty types.Quantity,
	price, trigger *types.Price,
	ts time.Time,
) *Order {
	return &Order{
		ClientOrderID: clientOrderID,
		TraderID:      traderID,
		StrategyID:    strategyID,
		InstrumentID:  instrumentID,
		Side:          side,
		Type:          orderType,
		Quantity:      qty,
		Price:         price,
		Trigger:       trigger,
		Status:        types.StatusInitialized,
		InitTime:      ts,
		LastEventTime: ts,
	}
}

// IsCompleted reports whether the order has reached a terminal state.
func (o *Order) IsCompleted() bool { return o.Status.IsTerminal() }

// IsWorking reports whether the order is live at the venue.
func (o *Order) IsWorking() bool {
	switch o.Status {
	case types.StatusAccepted, types.StatusTriggered, types.StatusPartiallyFilled:
		return true
	}
	return false
}

// IsPassive reports whether the order rests on the book (everything except
// market orders).
func (o *Order) IsPassive() bool { return o.Type != types.Market }

// IsInflight reports whether the order was submitted but not yet
// acknowledged.
func (o *Order) IsInflight() bool { return o.Status == types.StatusSubmitted }

// RemainingQty returns the unfilled quantity.
func (o *Order) RemainingQty() types.Quantity { return o.Quantity.Sub(o.FilledQty) }

// Events returns the applied event history in order.
func (o *Order) Events() []OrderEvent { return o.events }

// Apply advances the state machine with the given event. Invalid
// transitions return an error and leave the order unchanged.
func (o *Order) Apply(event OrderEvent) error {
	if event.OrderID() != o.ClientOrderID {
		return fmt.Errorf("order %s: event for %s", o.ClientOrderID, event.OrderID())
	}
	if o.IsCompleted() {
		return fmt.Errorf("order %s: event %T on terminal status %s", o.ClientOrderID, event, o.Status)
	}

	next, err := o.transition(event)
	if err != nil {
		return err
	}

	switch e := event.(type) {
	case OrderAccepted:
		o.VenueOrderID = e.VenueOrderID
		o.AccountID = e.AccountID
	case OrderSubmitted:
		o.AccountID = e.AccountID
	case OrderUpdated:
		o.Quantity = e.Quantity
		if e.Price != nil {
			o.Price = e.Price
		}
		if e.Trigger != nil {
			o.Trigger = e.Trigger
		}
		// an update does not change status
		next = o.Status
	case OrderFilled:
		if e.VenueOrderID != "" {
			o.VenueOrderID = e.VenueOrderID
		}
		o.FilledQty = o.FilledQty.Add(e.LastQty)
		if o.FilledQty.GreaterThan(o.Quantity) || o.FilledQty.Equal(o.Quantity) {
			next = types.StatusFilled
		} else {
			next = types.StatusPartiallyFilled
		}
	}

	o.Status = next
	o.LastEventTime = event.EventTime()
	o.events = append(o.events, event)
	return nil
}

func (o *Order) transition(event OrderEvent) (types.OrderStatus, error) {
	from := o.Status
	invalid := func() (types.OrderStatus, error) {
		return from, fmt.Errorf("order %s: invalid transition %s + %T", o.ClientOrderID, from, event)
	}

	switch event.(type) {
	case OrderDenied:
		if from != types.StatusInitialized {
			return invalid()
		}
		return types.StatusDenied, nil
	case OrderInvalid:
		if from != types.StatusInitialized {
			return invalid()
		}
		return types.StatusInvalid, nil
	case OrderSubmitted:
		if from != types.StatusInitialized {
			return invalid()
		}
		return types.StatusSubmitted, nil
	case OrderRejected:
		if from != types.StatusSubmitted {
			return invalid()
		}
		return types.StatusRejected, nil
	case OrderAccepted:
		if from != types.StatusSubmitted {
			return invalid()
		}
		return types.StatusAccepted, nil
	case OrderTriggered:
		if from != types.StatusAccepted {
			return invalid()
		}
		return types.StatusTriggered, nil
	case OrderUpdated:
		if !o.IsWorking() {
			return invalid()
		}
		return from, nil
	case OrderCanceled:
		if !o.IsWorking() && from != types.StatusSubmitted {
			return invalid()
		}
		return types.StatusCanceled, nil
	case OrderExpired:
		if !o.IsWorking() {
			return invalid()
		}
		return types.StatusExpired, nil
	case OrderFilled:
		if !o.IsWorking() && from != types.StatusSubmitted {
			return invalid()
		}
		return types.StatusPartiallyFilled, nil
	default:
		return invalid()
	}
}

func (o *Order) String() string {
	px := "MKT"
	if o.Price != nil {
		px = o.Price.String()
	}
	return fmt.Sprintf("%s %s %s %s %s @ %s [%s]",
		o.ClientOrderID, o.Side, o.Quantity, o.Type, o.InstrumentID, px, o.Status)
}
