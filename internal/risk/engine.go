// Package risk gates every trading command through pre-trade checks
// before it reaches execution.
//
// The engine is a command state gateway registered at the
// "RiskEngine.execute" endpoint. SubmitOrder and SubmitBracketOrder run
// the full check sequence: duplicate id, position linkage, instrument
// existence, price/trigger/quantity precision, quantity bounds, notional
// limit, trading-state gate, then the order-rate throttler. Approved
// commands forward to "ExecEngine.execute" in submission order; failures
// emit OrderDenied through the execution engine's event endpoint so the
// INITIALIZED -> DENIED transition is observable.
//
// User-submitted orders never raise: they are either denied (an
// observable event) or forwarded.
package risk

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecore/internal/bus"
	"tradecore/internal/clock"
	"tradecore/internal/config"
	"tradecore/internal/model"
	"tradecore/pkg/types"
)

// Endpoint names the engine participates in.
const (
	ExecuteEndpoint   = "RiskEngine.execute"
	ExecEngineExecute = "ExecEngine.execute"
	ExecEngineProcess = "ExecEngine.process"
	StateChangedTopic = "events.risk"
)

// CacheView is the cache capability the engine consumes.
type CacheView interface {
	OrderExists(id types.ClientOrderID) bool
	AddOrder(order *model.Order, positionID types.PositionID) error
	PositionExists(id types.PositionID) bool
	Instrument(id types.InstrumentID) (*model.Instrument, bool)
	QuoteTick(id types.InstrumentID) (types.QuoteTick, bool)
	Order(id types.ClientOrderID) (*model.Order, bool)
}

// PortfolioView is the portfolio capability the engine consumes for the
// REDUCING trading-state gate.
type PortfolioView interface {
	IsNetLong(id types.InstrumentID) bool
	IsNetShort(id types.InstrumentID) bool
}

// TradingStateChanged is published on the risk events topic when the
// trading state transitions.
type TradingStateChanged struct {
	ID      uuid.UUID
	State   types.TradingState
	TsEvent int64
}

// Engine is the pre-trade risk gateway.
type Engine struct {
	traderID  types.TraderID
	cfg       config.RiskConfig
	bus       *bus.MessageBus
	cache     CacheView
	portfolio PortfolioView
	clock     clock.Clock
	throttler *Throttler
	logger    *slog.Logger

	mu          sync.RWMutex
	state       types.TradingState
	maxNotional map[string]decimal.Decimal // instrument id -> cap
}

// NewEngine creates a risk engine. It does not touch the bus until Start.
func NewEngine(
	traderID types.TraderID,
	cfg config.RiskConfig,
	messageBus *bus.MessageBus,
	cacheView CacheView,
	portfolioView PortfolioView,
	clk clock.Clock,
	logger *slog.Logger,
) *Engine {
	maxNotional := make(map[string]decimal.Decimal, len(cfg.MaxNotionalPerOrder))
	for id, limit := range cfg.MaxNotionalPerOrder {
		maxNotional[id] = decimal.NewFromFloat(limit)
	}

	e := &Engine{
		traderID:    traderID,
		cfg:         cfg,
		bus:         messageBus,
		cache:       cacheView,
		portfolio:   portfolioView,
		clock:       clk,
		logger:      logger.With("component", "risk"),
		state:       types.TradingActive,
		maxNotional: maxNotional,
	}
	e.throttler = NewThrottler(cfg.MaxOrderRate, cfg.MaxOrderRateInterval, logger)
	if cfg.Bypass {
		e.logger.Warn("risk checks BYPASSED; duplicate-id check still runs")
	}
	return e
}

// Start registers the execute endpoint on the bus.
func (e *Engine) Start() error {
	e.bus.RegisterEndpoint(ExecuteEndpoint, e.Execute)
	e.logger.Info("risk engine started", "trading_state", string(e.TradingState()))
	return nil
}

// Stop removes the execute endpoint.
func (e *Engine) Stop() error {
	e.bus.DeregisterEndpoint(ExecuteEndpoint)
	return nil
}

// TradingState returns the current risk posture.
func (e *Engine) TradingState() types.TradingState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// SetTradingState transitions the risk posture and publishes the change.
func (e *Engine) SetTradingState(state types.TradingState) {
	e.mu.Lock()
	prev := e.state
	e.state = state
	e.mu.Unlock()

	if prev != state {
		e.logger.Warn("trading state changed", "from", string(prev), "to", string(state))
		e.bus.Publish(StateChangedTopic, TradingStateChanged{
			ID:      uuid.New(),
			State:   state,
			TsEvent: e.clock.Now().UnixNano(),
		})
	}
}

// Execute dispatches a trading command. Registered at ExecuteEndpoint.
func (e *Engine) Execute(msg any) {
	switch cmd := msg.(type) {
	case *model.SubmitOrder:
		e.handleSubmitOrder(cmd)
	case *model.SubmitBracketOrder:
		e.handleSubmitBracket(cmd)
	case *model.ModifyOrder:
		e.handleModifyOrder(cmd)
	case *model.CancelOrder:
		e.handleCancelOrder(cmd)
	default:
		e.logger.Error("unrecognized command", "type", fmt.Sprintf("%T", msg))
	}
}

// ————————————————————————————————————————————————————————————————————————
// SubmitOrder
// ————————————————————————————————————————————————————————————————————————

func (e *Engine) handleSubmitOrder(cmd *model.SubmitOrder) {
	order := cmd.Order

	if e.cache.OrderExists(order.ClientOrderID) {
		e.denyOrder(order, fmt.Sprintf("Duplicate %s", order.ClientOrderID))
		return
	}
	if err := e.cache.AddOrder(order, cmd.PositionID); err != nil {
		e.denyOrder(order, err.Error())
		return
	}
	if cmd.PositionID != "" && !e.cache.PositionExists(cmd.PositionID) {
		e.denyOrder(order, fmt.Sprintf("Position %s not found", cmd.PositionID))
		return
	}

	if e.cfg.Bypass {
		e.bus.Send(ExecEngineExecute, cmd)
		return
	}

	inst, ok := e.cache.Instrument(order.InstrumentID)
	if !ok {
		e.denyOrder(order, fmt.Sprintf("Instrument %s not found", order.InstrumentID))
		return
	}
	if reason := e.checkOrder(inst, order); reason != "" {
		e.denyOrder(order, reason)
		return
	}
	if reason := e.executionGateway(order.Side, order.InstrumentID); reason != "" {
		e.denyOrder(order, reason)
		return
	}

	e.throttler.Send(cmd,
		func(msg any) { e.bus.Send(ExecEngineExecute, msg) },
		func(msg any) { e.denyNewOrder(order, "Exceeded MAX_ORDER_RATE") },
	)
}

// ————————————————————————————————————————————————————————————————————————
// SubmitBracketOrder
// ————————————————————————————————————————————————————————————————————————

func (e *Engine) handleSubmitBracket(cmd *model.SubmitBracketOrder) {
	legs := []*model.Order{cmd.Entry, cmd.StopLoss}
	if cmd.TakeProfit != nil {
		legs = append(legs, cmd.TakeProfit)
	}

	// duplicate anywhere denies the whole bracket
	for _, leg := range legs {
		if e.cache.OrderExists(leg.ClientOrderID) {
			e.denyBracket(legs, fmt.Sprintf("Duplicate %s", leg.ClientOrderID))
			return
		}
	}
	for _, leg := range legs {
		if err := e.cache.AddOrder(leg, ""); err != nil {
			e.denyBracket(legs, err.Error())
			return
		}
	}

	if e.cfg.Bypass {
		e.bus.Send(ExecEngineExecute, cmd)
		return
	}

	inst, ok := e.cache.Instrument(cmd.Entry.InstrumentID)
	if !ok {
		e.denyBracket(legs, fmt.Sprintf("Instrument %s not found", cmd.Entry.InstrumentID))
		return
	}
	for _, leg := range legs {
		if reason := e.checkOrder(inst, leg); reason != "" {
			e.denyBracket(legs, reason)
			return
		}
	}
	if reason := e.executionGateway(cmd.Entry.Side, cmd.Entry.InstrumentID); reason != "" {
		e.denyBracket(legs, reason)
		return
	}

	e.throttler.Send(cmd,
		func(msg any) { e.bus.Send(ExecEngineExecute, msg) },
		func(msg any) { e.denyBracket(legs, "Exceeded MAX_ORDER_RATE") },
	)
}

// ————————————————————————————————————————————————————————————————————————
// ModifyOrder / CancelOrder
// ————————————————————————————————————————————————————————————————————————

func (e *Engine) handleModifyOrder(cmd *model.ModifyOrder) {
	order, ok := e.cache.Order(cmd.ClientOrderID)
	if !ok {
		e.logger.Error("modify rejected: order not found", "order", string(cmd.ClientOrderID))
		return
	}
	if order.IsCompleted() {
		e.logger.Error("modify rejected: order already completed",
			"order", string(cmd.ClientOrderID), "status", string(order.Status))
		return
	}

	if !e.cfg.Bypass {
		inst, ok := e.cache.Instrument(cmd.InstrumentID)
		if !ok {
			e.logger.Error("modify rejected: instrument not found", "instrument", cmd.InstrumentID.String())
			return
		}
		if reason := e.checkModification(inst, cmd); reason != "" {
			e.logger.Error("modify rejected", "order", string(cmd.ClientOrderID), "reason", reason)
			return
		}
		if reason := e.modifyGateway(order, cmd); reason != "" {
			e.logger.Error("modify rejected", "order", string(cmd.ClientOrderID), "reason", reason)
			return
		}
	}

	e.bus.Send(ExecEngineExecute, cmd)
}

// handleCancelOrder forwards unless the order is already done. Cancels
// pass even in HALTED state: flattening must always remain possible.
func (e *Engine) handleCancelOrder(cmd *model.CancelOrder) {
	if order, ok := e.cache.Order(cmd.ClientOrderID); ok && order.IsCompleted() {
		e.logger.Error("cancel rejected: order already completed",
			"order", string(cmd.ClientOrderID), "status", string(order.Status))
		return
	}
	e.bus.Send(ExecEngineExecute, cmd)
}

// ————————————————————————————————————————————————————————————————————————
// Checks
// ————————————————————————————————————————————————————————————————————————

// checkOrder runs the pre-trade validations in order and returns the
// first failure reason, or "" when the order passes.
func (e *Engine) checkOrder(inst *model.Instrument, order *model.Order) string {
	if order.Price != nil {
		if order.Price.Precision() > inst.PricePrecision {
			return fmt.Sprintf("price %s exceeds precision %d", order.Price, inst.PricePrecision)
		}
		if !order.Price.IsPositive() && inst.AssetType != types.AssetOption {
			return fmt.Sprintf("price %s is not positive", order.Price)
		}
	}
	if order.Type == types.StopLimit || order.Type == types.StopMarket {
		if order.Trigger == nil {
			return "stop order has no trigger price"
		}
		if order.Trigger.Precision() > inst.PricePrecision {
			return fmt.Sprintf("trigger %s exceeds precision %d", order.Trigger, inst.PricePrecision)
		}
		if !order.Trigger.IsPositive() {
			return fmt.Sprintf("trigger %s is not positive", order.Trigger)
		}
	}
	if order.Quantity.Precision() > inst.SizePrecision {
		return fmt.Sprintf("quantity %s exceeds precision %d", order.Quantity, inst.SizePrecision)
	}
	if !inst.MinQuantity.IsZero() && order.Quantity.LessThan(inst.MinQuantity) {
		return fmt.Sprintf("quantity %s under minimum %s", order.Quantity, inst.MinQuantity)
	}
	if !inst.MaxQuantity.IsZero() && order.Quantity.GreaterThan(inst.MaxQuantity) {
		return fmt.Sprintf("quantity %s over maximum %s", order.Quantity, inst.MaxQuantity)
	}
	return e.checkNotional(inst, order)
}

func (e *Engine) checkNotional(inst *model.Instrument, order *model.Order) string {
	e.mu.RLock()
	limit, capped := e.maxNotional[order.InstrumentID.String()]
	e.mu.RUnlock()
	if !capped {
		return ""
	}

	price, reason := e.effectivePrice(order)
	if reason != "" {
		return reason
	}
	notional := inst.NotionalValue(order.Quantity, price)
	if notional.Amount().GreaterThan(limit) {
		return fmt.Sprintf("notional %s Exceeds MAX_NOTIONAL_PER_ORDER %s", notional, limit)
	}
	return ""
}

// effectivePrice resolves the price a notional check marks at. Market
// orders use the aggressing side of the latest quote; a missing quote is
// a denial.
func (e *Engine) effectivePrice(order *model.Order) (types.Price, string) {
	if order.Price != nil {
		return *order.Price, ""
	}
	if order.Trigger != nil {
		return *order.Trigger, ""
	}
	quote, ok := e.cache.QuoteTick(order.InstrumentID)
	if !ok {
		return types.Price{}, fmt.Sprintf("no quote for %s to check market order", order.InstrumentID)
	}
	if order.Side == types.BUY {
		return quote.Ask, ""
	}
	return quote.Bid, ""
}

// executionGateway applies the trading-state gate for new submissions.
func (e *Engine) executionGateway(side types.OrderSide, id types.InstrumentID) string {
	switch e.TradingState() {
	case types.TradingHalted:
		return "TradingState is HALTED"
	case types.TradingReducing:
		if side == types.BUY && e.portfolio.IsNetLong(id) {
			return fmt.Sprintf("BUY when TradingState is REDUCING and LONG %s", id)
		}
		if side == types.SELL && e.portfolio.IsNetShort(id) {
			return fmt.Sprintf("SELL when TradingState is REDUCING and SHORT %s", id)
		}
	}
	return ""
}

// checkModification validates the amended fields against the instrument.
func (e *Engine) checkModification(inst *model.Instrument, cmd *model.ModifyOrder) string {
	if cmd.Price != nil {
		if cmd.Price.Precision() > inst.PricePrecision {
			return fmt.Sprintf("price %s exceeds precision %d", cmd.Price, inst.PricePrecision)
		}
		if !cmd.Price.IsPositive() && inst.AssetType != types.AssetOption {
			return fmt.Sprintf("price %s is not positive", cmd.Price)
		}
	}
	if cmd.Trigger != nil {
		if cmd.Trigger.Precision() > inst.PricePrecision {
			return fmt.Sprintf("trigger %s exceeds precision %d", cmd.Trigger, inst.PricePrecision)
		}
		if !cmd.Trigger.IsPositive() {
			return fmt.Sprintf("trigger %s is not positive", cmd.Trigger)
		}
	}
	if cmd.Quantity != nil {
		if cmd.Quantity.Precision() > inst.SizePrecision {
			return fmt.Sprintf("quantity %s exceeds precision %d", cmd.Quantity, inst.SizePrecision)
		}
		if !inst.MinQuantity.IsZero() && cmd.Quantity.LessThan(inst.MinQuantity) {
			return fmt.Sprintf("quantity %s under minimum %s", cmd.Quantity, inst.MinQuantity)
		}
		if !inst.MaxQuantity.IsZero() && cmd.Quantity.GreaterThan(inst.MaxQuantity) {
			return fmt.Sprintf("quantity %s over maximum %s", cmd.Quantity, inst.MaxQuantity)
		}
	}
	return ""
}

// modifyGateway denies every modification while HALTED, and those that
// grow exposure in the exposed direction while REDUCING.
func (e *Engine) modifyGateway(order *model.Order, cmd *model.ModifyOrder) string {
	state := e.TradingState()
	if state == types.TradingHalted {
		return "TradingState is HALTED"
	}
	if state != types.TradingReducing || cmd.Quantity == nil {
		return ""
	}
	if !cmd.Quantity.GreaterThan(order.Quantity) {
		return ""
	}
	if order.Side == types.BUY && e.portfolio.IsNetLong(order.InstrumentID) {
		return fmt.Sprintf("quantity increase on BUY when REDUCING and LONG %s", order.InstrumentID)
	}
	if order.Side == types.SELL && e.portfolio.IsNetShort(order.InstrumentID) {
		return fmt.Sprintf("quantity increase on SELL when REDUCING and SHORT %s", order.InstrumentID)
	}
	return ""
}

// ————————————————————————————————————————————————————————————————————————
// Denials
// ————————————————————————————————————————————————————————————————————————

// denyOrder emits OrderDenied for an order already known to the cache.
func (e *Engine) denyOrder(order *model.Order, reason string) {
	e.deny(order, reason)
}

// denyNewOrder emits OrderDenied for an order that may not be cached yet
// (throttler drops), caching it first so the INITIALIZED -> DENIED
// transition is observable.
func (e *Engine) denyNewOrder(order *model.Order, reason string) {
	e.deny(order, reason)
}

func (e *Engine) denyBracket(legs []*model.Order, reason string) {
	for _, leg := range legs {
		e.deny(leg, reason)
	}
}

func (e *Engine) deny(order *model.Order, reason string) {
	if !e.cache.OrderExists(order.ClientOrderID) {
		if err := e.cache.AddOrder(order, ""); err != nil {
			e.logger.Error("deny: cache add failed", "order", string(order.ClientOrderID), "error", err)
		}
	}

	e.logger.Warn("order denied", "order", string(order.ClientOrderID), "reason", reason)
	event := model.OrderDenied{
		OrderEventCore: model.OrderEventCore{
			ID:            uuid.New(),
			TraderID:      e.traderID,
			StrategyID:    order.StrategyID,
			InstrumentID:  order.InstrumentID,
			ClientOrderID: order.ClientOrderID,
			TsEvent:       e.clock.Now(),
		},
		Reason: reason,
	}
	e.bus.Send(ExecEngineProcess, event)
}
