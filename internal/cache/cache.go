// Package cache provides the in-memory object store shared by the core
// components.
//
// Orders and positions are owned here; the portfolio, risk engine, and
// strategies hold references obtained through the typed accessors. The
// cache also indexes instruments and the latest quote/trade tick per
// instrument. All operations are mutex-protected so a multithreaded host
// can bridge into the event loop safely.
//
// Persistence is out of scope: the cache is the key-value boundary the
// rest of the platform would back with a database adapter.
package cache

import (
	"fmt"
	"sync"

	"tradecore/internal/model"
	"tradecore/pkg/types"
)

// Cache is the central object store.
type Cache struct {
	mu sync.RWMutex

	orders          map[types.ClientOrderID]*model.Order
	orderPositions  map[types.ClientOrderID]types.PositionID
	ordersByStrat   map[types.StrategyID]map[types.ClientOrderID]struct{}
	positions       map[types.PositionID]*model.Position
	instruments     map[types.InstrumentID]*model.Instrument
	quotes          map[types.InstrumentID]types.QuoteTick
	trades          map[types.InstrumentID]types.TradeTick
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		orders:         make(map[types.ClientOrderID]*model.Order),
		orderPositions: make(map[types.ClientOrderID]types.PositionID),
		ordersByStrat:  make(map[types.StrategyID]map[types.ClientOrderID]struct{}),
		positions:      make(map[types.PositionID]*model.Position),
		instruments:    make(map[types.InstrumentID]*model.Instrument),
		quotes:         make(map[types.InstrumentID]types.QuoteTick),
		trades:         make(map[types.InstrumentID]types.TradeTick),
	}
}

// ————————————————————————————————————————————————————————————————————————
// Orders
// ————————————————————————————————————————————————————————————————————————

// AddOrder indexes an order, optionally linked to a position id.
// Duplicate client order ids are rejected.
func (c *Cache) AddOrder(order *model.Order, positionID types.PositionID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.orders[order.ClientOrderID]; ok {
		return fmt.Errorf("add order: duplicate %s", order.ClientOrderID)
	}
	c.orders[order.ClientOrderID] = order
	if positionID != "" {
		c.orderPositions[order.ClientOrderID] = positionID
	}
	byStrat, ok := c.ordersByStrat[order.StrategyID]
	if !ok {
		byStrat = make(map[types.ClientOrderID]struct{})
		c.ordersByStrat[order.StrategyID] = byStrat
	}
	byStrat[order.ClientOrderID] = struct{}{}
	return nil
}

// OrderExists reports whether a client order id is already indexed.
func (c *Cache) OrderExists(id types.ClientOrderID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.orders[id]
	return ok
}

// Order returns the order for a client order id.
func (c *Cache) Order(id types.ClientOrderID) (*model.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

// Orders returns all indexed orders.
func (c *Cache) Orders() []*model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Order, 0, len(c.orders))
	for _, o := range c.orders {
		out = append(out, o)
	}
	return out
}

// OrderCount returns the number of indexed orders. The order factory
// seeds its monotonic counter from this at strategy registration.
func (c *Cache) OrderCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.orders)
}

// PositionIDForOrder returns the position an order was linked to at
// submission, if any.
func (c *Cache) PositionIDForOrder(id types.ClientOrderID) (types.PositionID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pid, ok := c.orderPositions[id]
	return pid, ok
}

// WorkingOrdersForStrategy returns the strategy's orders that are live at
// the venue.
func (c *Cache) WorkingOrdersForStrategy(id types.StrategyID) []*model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.Order
	for oid := range c.ordersByStrat[id] {
		if o := c.orders[oid]; o != nil && o.IsWorking() {
			out = append(out, o)
		}
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Positions
// ————————————————————————————————————————————————————————————————————————

// AddPosition indexes a position. Duplicate ids are rejected.
func (c *Cache) AddPosition(p *model.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.positions[p.ID]; ok {
		return fmt.Errorf("add position: duplicate %s", p.ID)
	}
	c.positions[p.ID] = p
	return nil
}

// PositionExists reports whether a position id is indexed.
func (c *Cache) PositionExists(id types.PositionID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.positions[id]
	return ok
}

// Position returns the position for an id.
func (c *Cache) Position(id types.PositionID) (*model.Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

// Positions returns all indexed positions.
func (c *Cache) Positions() []*model.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Position, 0, len(c.positions))
	for _, p := range c.positions {
		out = append(out, p)
	}
	return out
}

// OpenPositionsForStrategy returns the strategy's open positions.
func (c *Cache) OpenPositionsForStrategy(id types.StrategyID) []*model.Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*model.Position
	for _, p := range c.positions {
		if p.StrategyID == id && p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Instruments and ticks
// ————————————————————————————————————————————————————————————————————————

// AddInstrument indexes an instrument definition, replacing any prior one.
func (c *Cache) AddInstrument(inst *model.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments[inst.ID] = inst
}

// Instrument returns the definition for an instrument id.
func (c *Cache) Instrument(id types.InstrumentID) (*model.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.instruments[id]
	return i, ok
}

// AddQuoteTick stores the latest quote for the tick's instrument.
func (c *Cache) AddQuoteTick(tick types.QuoteTick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[tick.InstrumentID] = tick
}

// QuoteTick returns the latest quote for an instrument.
func (c *Cache) QuoteTick(id types.InstrumentID) (types.QuoteTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.quotes[id]
	return t, ok
}

// AddTradeTick stores the latest trade for the tick's instrument.
func (c *Cache) AddTradeTick(tick types.TradeTick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades[tick.InstrumentID] = tick
}

// TradeTick returns the latest trade for an instrument.
func (c *Cache) TradeTick(id types.InstrumentID) (types.TradeTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trades[id]
	return t, ok
}

// Reset drops all orders, positions, and ticks but keeps instrument
// definitions, which are static venue data rather than trading state.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders = make(map[types.ClientOrderID]*model.Order)
	c.orderPositions = make(map[types.ClientOrderID]types.PositionID)
	c.ordersByStrat = make(map[types.StrategyID]map[types.ClientOrderID]struct{})
	c.positions = make(map[types.PositionID]*model.Position)
	c.quotes = make(map[types.InstrumentID]types.QuoteTick)
	c.trades = make(map[types.InstrumentID]types.TradeTick)
}
