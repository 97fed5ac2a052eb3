package strategy

import (
	"fmt"

	"github.com/google/uuid"

	"tradecore/internal/model"
	"tradecore/internal/risk"
	"tradecore/pkg/types"
)

// Config tunes a strategy's identity and order management policy.
type Config struct {
	// OrderIDTag distinguishes this strategy's orders from its siblings.
	// When empty, the trader auto-assigns a zero-padded sequence tag.
	OrderIDTag string

	// OmsType selects HEDGING (many positions per instrument) or NETTING
	// (one deterministic position per instrument per strategy).
	OmsType types.OmsType
}

// Strategy is the trading component base: it owns order egress. Concrete
// strategies embed it, subscribe to data in OnStart, and call the
// Submit/Modify/Cancel family to trade.
//
// Every egress call constructs a typed command, publishes the order's
// initialization event on the order-events topic, then sends the command
// to the risk engine's execute endpoint. Calls before registration fail.
type Strategy struct {
	Actor

	name    string
	cfg     Config
	factory *OrderFactory
}

// NewStrategy creates an unregistered strategy. The component id becomes
// "<name>-<order_id_tag>" once the tag is final (the trader may assign
// one at registration).
func NewStrategy(name string, cfg Config) *Strategy {
	if cfg.OmsType == "" {
		cfg.OmsType = types.OmsHedging
	}
	s := &Strategy{name: name, cfg: cfg}
	s.Actor.id = types.ComponentID(name)
	s.Actor.state = types.StateReady
	if cfg.OrderIDTag != "" {
		s.Actor.id = types.ComponentID(fmt.Sprintf("%s-%s", name, cfg.OrderIDTag))
	}
	return s
}

// Name returns the strategy class name without the tag.
func (s *Strategy) Name() string { return s.name }

// OrderIDTag returns the assigned tag.
func (s *Strategy) OrderIDTag() string { return s.cfg.OrderIDTag }

// SetOrderIDTag finalizes the tag. Called by the trader before
// registration when the config left it empty.
func (s *Strategy) SetOrderIDTag(tag string) {
	s.cfg.OrderIDTag = tag
	s.Actor.id = types.ComponentID(fmt.Sprintf("%s-%s", s.name, tag))
}

// StrategyID returns "<name>-<order_id_tag>".
func (s *Strategy) StrategyID() types.StrategyID {
	return types.StrategyID(s.Actor.id)
}

// OmsType returns the order management policy.
func (s *Strategy) OmsType() types.OmsType { return s.cfg.OmsType }

// RegisterWithTrader wires the strategy and seeds its order factory from
// the cache.
func (s *Strategy) RegisterWithTrader(deps Deps) error {
	if err := s.Register(deps); err != nil {
		return err
	}
	s.factory = NewOrderFactory(deps.TraderID, s.cfg.OrderIDTag, deps.Cache.OrderCount())
	return nil
}

// ————————————————————————————————————————————————————————————————————————
// Order construction
// ————————————————————————————————————————————————————————————————————————

// NewMarketOrder builds a market order carrying this strategy's identity.
func (s *Strategy) NewMarketOrder(instrumentID types.InstrumentID, side types.OrderSide, qty types.Quantity) (*model.Order, error) {
	if err := s.requireRegistered(); err != nil {
		return nil, err
	}
	return model.NewOrder(
		s.factory.GenerateClientOrderID(),
		s.TraderID(), s.StrategyID(), instrumentID,
		side, types.Market, qty, nil, nil,
		s.Clock().Now(),
	), nil
}

// NewLimitOrder builds a limit order carrying this strategy's identity.
func (s *Strategy) NewLimitOrder(instrumentID types.InstrumentID, side types.OrderSide, qty types.Quantity, price types.Price) (*model.Order, error) {
	if err := s.requireRegistered(); err != nil {
		return nil, err
	}
	return model.NewOrder(
		s.factory.GenerateClientOrderID(),
		s.TraderID(), s.StrategyID(), instrumentID,
		side, types.Limit, qty, &price, nil,
		s.Clock().Now(),
	), nil
}

// NewStopLimitOrder builds a stop-limit order.
func (s *Strategy) NewStopLimitOrder(instrumentID types.InstrumentID, side types.OrderSide, qty types.Quantity, price, trigger types.Price) (*model.Order, error) {
	if err := s.requireRegistered(); err != nil {
		return nil, err
	}
	return model.NewOrder(
		s.factory.GenerateClientOrderID(),
		s.TraderID(), s.StrategyID(), instrumentID,
		side, types.StopLimit, qty, &price, &trigger,
		s.Clock().Now(),
	), nil
}

// ————————————————————————————————————————————————————————————————————————
// Egress
// ————————————————————————————————————————————————————————————————————————

// SubmitOrder publishes the order's initialization event and routes a
// SubmitOrder command to the risk engine. Under NETTING the position id
// is derived deterministically; under HEDGING pass "" to let the
// execution layer assign one.
func (s *Strategy) SubmitOrder(order *model.Order, positionID types.PositionID) error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	if s.cfg.OmsType == types.OmsNetting && positionID == "" {
		positionID = types.NettingPositionID(order.InstrumentID, s.StrategyID())
	}

	s.publishInit(order)
	s.Bus().Send(risk.ExecuteEndpoint, &model.SubmitOrder{
		CommandCore: model.NewCommandCore(s.TraderID(), s.Clock().Now()),
		StrategyID:  s.StrategyID(),
		Order:       order,
		PositionID:  positionID,
	})
	return nil
}

// SubmitBracketOrder routes an entry with linked stop-loss and optional
// take-profit through risk as one atomic command.
func (s *Strategy) SubmitBracketOrder(entry, stopLoss, takeProfit *model.Order) error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	if entry == nil || stopLoss == nil {
		return fmt.Errorf("strategy %s: bracket requires entry and stop-loss", s.ID())
	}

	s.publishInit(entry)
	s.publishInit(stopLoss)
	if takeProfit != nil {
		s.publishInit(takeProfit)
	}
	s.Bus().Send(risk.ExecuteEndpoint, &model.SubmitBracketOrder{
		CommandCore: model.NewCommandCore(s.TraderID(), s.Clock().Now()),
		StrategyID:  s.StrategyID(),
		Entry:       entry,
		StopLoss:    stopLoss,
		TakeProfit:  takeProfit,
	})
	return nil
}

// ModifyOrder routes an amendment for a working order. Nil fields are
// left unchanged.
func (s *Strategy) ModifyOrder(order *model.Order, qty *types.Quantity, price, trigger *types.Price) error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	s.Bus().Send(risk.ExecuteEndpoint, &model.ModifyOrder{
		CommandCore:   model.NewCommandCore(s.TraderID(), s.Clock().Now()),
		StrategyID:    s.StrategyID(),
		InstrumentID:  order.InstrumentID,
		ClientOrderID: order.ClientOrderID,
		VenueOrderID:  order.VenueOrderID,
		Quantity:      qty,
		Price:         price,
		Trigger:       trigger,
	})
	return nil
}

// CancelOrder routes a cancel for an order.
func (s *Strategy) CancelOrder(order *model.Order) error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	s.Bus().Send(risk.ExecuteEndpoint, &model.CancelOrder{
		CommandCore:   model.NewCommandCore(s.TraderID(), s.Clock().Now()),
		StrategyID:    s.StrategyID(),
		InstrumentID:  order.InstrumentID,
		ClientOrderID: order.ClientOrderID,
		VenueOrderID:  order.VenueOrderID,
	})
	return nil
}

// CancelAllOrders cancels every working order this strategy owns.
func (s *Strategy) CancelAllOrders() error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	for _, order := range s.Cache().WorkingOrdersForStrategy(s.StrategyID()) {
		if err := s.CancelOrder(order); err != nil {
			return err
		}
	}
	return nil
}

// FlattenPosition closes a position with an opposing market order.
func (s *Strategy) FlattenPosition(position *model.Position) error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	if position.IsClosed() {
		return fmt.Errorf("strategy %s: position %s already flat", s.ID(), position.ID)
	}

	side := types.SELL
	if position.IsShort() {
		side = types.BUY
	}
	order, err := s.NewMarketOrder(position.InstrumentID, side, position.Quantity)
	if err != nil {
		return err
	}
	return s.SubmitOrder(order, position.ID)
}

// FlattenAllPositions closes every open position this strategy owns.
func (s *Strategy) FlattenAllPositions() error {
	if err := s.requireRegistered(); err != nil {
		return err
	}
	for _, position := range s.Cache().OpenPositionsForStrategy(s.StrategyID()) {
		if err := s.FlattenPosition(position); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strategy) publishInit(order *model.Order) {
	event := model.OrderInitialized{
		OrderEventCore: model.OrderEventCore{
			ID:            uuid.New(),
			TraderID:      s.TraderID(),
			StrategyID:    s.StrategyID(),
			InstrumentID:  order.InstrumentID,
			ClientOrderID: order.ClientOrderID,
			TsEvent:       s.Clock().Now(),
		},
		Side:     order.Side,
		Type:     order.Type,
		Quantity: order.Quantity,
		Price:    order.Price,
		Trigger:  order.Trigger,
	}
	s.Bus().Publish(fmt.Sprintf("events.order.%s", s.StrategyID()), event)
}

func (s *Strategy) requireRegistered() error {
	if !s.IsRegistered() {
		return fmt.Errorf("strategy %s: not registered with a trader", s.Actor.id)
	}
	return nil
}
