// Package exec provides a simulated execution engine so the platform can
// run end-to-end without a venue connection.
//
// The engine binds the two endpoints the risk engine targets:
//
//   - "ExecEngine.execute": accepts risk-approved commands. Submits are
//     acknowledged immediately; market orders fill at the cached top of
//     book. Modifies and cancels apply to the working order.
//   - "ExecEngine.process": applies externally-generated order events
//     (including risk denials) to the cached order and republishes them
//     on the order-events topic.
//
// Fills flow into positions: the engine owns position creation and
// netting, emitting Opened/Changed/Closed events on the position-events
// topic. A real deployment replaces this package with venue adapters.
package exec

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"tradecore/internal/bus"
	"tradecore/internal/cache"
	"tradecore/internal/clock"
	"tradecore/internal/model"
	"tradecore/internal/risk"
	"tradecore/pkg/types"
)

// Engine is the simulated execution venue.
type Engine struct {
	bus       *bus.MessageBus
	cache     *cache.Cache
	clock     clock.Clock
	accountID types.AccountID
	logger    *slog.Logger

	mu       sync.Mutex
	venueSeq int
	posSeq   int
}

// NewEngine creates a simulated execution engine filling against the
// given account.
func NewEngine(messageBus *bus.MessageBus, objectCache *cache.Cache, accountID types.AccountID, clk clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		bus:       messageBus,
		cache:     objectCache,
		clock:     clk,
		accountID: accountID,
		logger:    logger.With("component", "exec"),
	}
}

// Start registers the execution endpoints.
func (e *Engine) Start() error {
	e.bus.RegisterEndpoint(risk.ExecEngineExecute, e.Execute)
	e.bus.RegisterEndpoint(risk.ExecEngineProcess, e.Process)
	e.logger.Info("simulated execution engine started", "account_id", string(e.accountID))
	return nil
}

// Stop removes the execution endpoints.
func (e *Engine) Stop() error {
	e.bus.DeregisterEndpoint(risk.ExecEngineExecute)
	e.bus.DeregisterEndpoint(risk.ExecEngineProcess)
	return nil
}

// Execute handles a risk-approved trading command.
func (e *Engine) Execute(msg any) {
	switch cmd := msg.(type) {
	case *model.SubmitOrder:
		e.submit(cmd.Order, cmd.PositionID)
	case *model.SubmitBracketOrder:
		e.submit(cmd.Entry, "")
		e.acceptWorking(cmd.StopLoss)
		if cmd.TakeProfit != nil {
			e.acceptWorking(cmd.TakeProfit)
		}
	case *model.ModifyOrder:
		e.modify(cmd)
	case *model.CancelOrder:
		e.cancel(cmd)
	default:
		e.logger.Error("unrecognized command", "type", fmt.Sprintf("%T", msg))
	}
}

// Process applies an order event to its cached order and republishes it.
func (e *Engine) Process(msg any) {
	event, ok := msg.(model.OrderEvent)
	if !ok {
		e.logger.Error("unrecognized event", "type", fmt.Sprintf("%T", msg))
		return
	}
	e.applyAndPublish(event)
}

func (e *Engine) submit(order *model.Order, positionID types.PositionID) {
	e.applyAndPublish(model.OrderSubmitted{
		OrderEventCore: e.core(order),
		AccountID:      e.accountID,
	})
	venueID := e.nextVenueOrderID()
	e.applyAndPublish(model.OrderAccepted{
		OrderEventCore: e.core(order),
		VenueOrderID:   venueID,
		AccountID:      e.accountID,
	})

	if order.Type != types.Market {
		return // resting order waits on the book
	}

	quote, ok := e.cache.QuoteTick(order.InstrumentID)
	if !ok {
		e.applyAndPublish(model.OrderCanceled{OrderEventCore: e.core(order), VenueOrderID: venueID})
		e.logger.Error("market order with no quote canceled", "order", string(order.ClientOrderID))
		return
	}
	px := quote.Ask
	if order.Side == types.SELL {
		px = quote.Bid
	}
	e.fill(order, venueID, positionID, px)
}

func (e *Engine) acceptWorking(order *model.Order) {
	e.applyAndPublish(model.OrderSubmitted{OrderEventCore: e.core(order), AccountID: e.accountID})
	e.applyAndPublish(model.OrderAccepted{
		OrderEventCore: e.core(order),
		VenueOrderID:   e.nextVenueOrderID(),
		AccountID:      e.accountID,
	})
}

func (e *Engine) modify(cmd *model.ModifyOrder) {
	order, ok := e.cache.Order(cmd.ClientOrderID)
	if !ok {
		e.logger.Error("modify: order not found", "order", string(cmd.ClientOrderID))
		return
	}
	qty := order.Quantity
	if cmd.Quantity != nil {
		qty = *cmd.Quantity
	}
	e.applyAndPublish(model.OrderUpdated{
		OrderEventCore: e.core(order),
		VenueOrderID:   order.VenueOrderID,
		Quantity:       qty,
		Price:          cmd.Price,
		Trigger:        cmd.Trigger,
	})
}

func (e *Engine) cancel(cmd *model.CancelOrder) {
	order, ok := e.cache.Order(cmd.ClientOrderID)
	if !ok {
		e.logger.Error("cancel: order not found", "order", string(cmd.ClientOrderID))
		return
	}
	e.applyAndPublish(model.OrderCanceled{
		OrderEventCore: e.core(order),
		VenueOrderID:   order.VenueOrderID,
	})
}

// fill executes the full remaining quantity at px and nets the fill into
// a position.
func (e *Engine) fill(order *model.Order, venueID types.VenueOrderID, positionID types.PositionID, px types.Price) {
	inst, ok := e.cache.Instrument(order.InstrumentID)
	if !ok {
		e.logger.Error("fill: no instrument", "instrument", order.InstrumentID.String())
		return
	}

	if positionID == "" {
		if linked, ok := e.cache.PositionIDForOrder(order.ClientOrderID); ok {
			positionID = linked
		} else {
			positionID = e.nextPositionID()
		}
	}

	commission, err := inst.CalculateCommission(order.RemainingQty(), px, types.LiquidityTaker)
	if err != nil {
		e.logger.Error("fill: commission", "error", err)
		return
	}

	fill := model.OrderFilled{
		OrderEventCore: e.core(order),
		VenueOrderID:   venueID,
		TradeID:        uuid.NewString(),
		PositionID:     positionID,
		Side:           order.Side,
		LastQty:        order.RemainingQty(),
		LastPx:         px,
		Commission:     commission,
		LiquiditySide:  types.LiquidityTaker,
		AccountID:      e.accountID,
	}
	e.applyAndPublish(fill)
	e.updatePosition(inst, fill)
}

// updatePosition nets a fill into its position and publishes the
// resulting position event.
func (e *Engine) updatePosition(inst *model.Instrument, fill model.OrderFilled) {
	var event model.PositionEvent
	ts := e.clock.Now()

	if pos, ok := e.cache.Position(fill.PositionID); ok {
		if err := pos.ApplyFill(fill); err != nil {
			e.logger.Error("position fill", "error", err)
			return
		}
		event = model.NewPositionEvent(false, pos.IsClosed(), fill.TraderID, fill.StrategyID, pos, ts)
	} else {
		pos := model.NewPosition(inst, fill)
		if err := e.cache.AddPosition(pos); err != nil {
			e.logger.Error("position add", "error", err)
			return
		}
		event = model.NewPositionEvent(true, false, fill.TraderID, fill.StrategyID, pos, ts)
	}

	e.bus.Publish(fmt.Sprintf("events.position.%s", fill.StrategyID), event)
}

// applyAndPublish advances the cached order's state machine and
// republishes the event on the order-events topic. An event that does not
// fit the order's current state is logged and still published; consumers
// decide how to degrade.
func (e *Engine) applyAndPublish(event model.OrderEvent) {
	order, ok := e.cache.Order(event.OrderID())
	if !ok {
		e.logger.Error("event for unknown order", "order", string(event.OrderID()))
		return
	}
	if err := order.Apply(event); err != nil {
		e.logger.Warn("event not applied", "error", err)
	}
	e.bus.Publish(fmt.Sprintf("events.order.%s", order.StrategyID), event)
}

func (e *Engine) core(order *model.Order) model.OrderEventCore {
	return model.OrderEventCore{
		ID:            uuid.New(),
		TraderID:      order.TraderID,
		StrategyID:    order.StrategyID,
		InstrumentID:  order.InstrumentID,
		ClientOrderID: order.ClientOrderID,
		TsEvent:       e.clock.Now(),
	}
}

func (e *Engine) nextVenueOrderID() types.VenueOrderID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.venueSeq++
	return types.VenueOrderID(fmt.Sprintf("V-%d", e.venueSeq))
}

func (e *Engine) nextPositionID() types.PositionID {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.posSeq++
	return types.PositionID(fmt.Sprintf("P-%d", e.posSeq))
}
