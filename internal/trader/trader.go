// Package trader supervises the components of one trading instance.
//
// The trader registers actors, strategies, and execution algorithms,
// wiring each with the shared bus, cache, and portfolio plus a fresh
// per-component clock so time sources never share mutable state. It
// enforces unique component identifiers and unique strategy order-id
// tags, auto-assigning zero-padded sequence tags when a strategy's
// config leaves the tag empty.
//
// Lifecycle: Start, Stop, Reset, and Dispose iterate sub-components in
// addition order. Stop tolerates already-stopped components; Reset
// additionally resets the portfolio.
package trader

import (
	"fmt"
	"log/slog"
	"sync"

	"tradecore/internal/bus"
	"tradecore/internal/cache"
	"tradecore/internal/clock"
	"tradecore/internal/config"
	"tradecore/internal/portfolio"
	"tradecore/internal/strategy"
	"tradecore/pkg/types"
)

// Component is the lifecycle contract every supervised component meets.
type Component interface {
	ID() types.ComponentID
	State() types.ComponentState
	Start() error
	Stop() error
	Reset() error
	Dispose() error
}

// Trader owns and supervises the components it registers.
type Trader struct {
	mu sync.RWMutex

	id           types.TraderID
	cfg          config.TraderConfig
	bus          *bus.MessageBus
	cache        *cache.Cache
	portfolio    *portfolio.Portfolio
	clockFactory func() clock.Clock
	logger       *slog.Logger

	state      types.ComponentState
	components []Component // addition order
	byID       map[types.ComponentID]Component
	strategies []*strategy.Strategy
	tagSeq     int
}

// New creates a trader with no components.
func New(
	cfg config.TraderConfig,
	messageBus *bus.MessageBus,
	objectCache *cache.Cache,
	pf *portfolio.Portfolio,
	clockFactory func() clock.Clock,
	logger *slog.Logger,
) *Trader {
	return &Trader{
		id:           types.TraderID(cfg.ID),
		cfg:          cfg,
		bus:          messageBus,
		cache:        objectCache,
		portfolio:    pf,
		clockFactory: clockFactory,
		logger:       logger.With("component", "trader", "trader_id", cfg.ID),
		state:        types.StateReady,
		byID:         make(map[types.ComponentID]Component),
	}
}

// ID returns the trader identity.
func (t *Trader) ID() types.TraderID { return t.id }

// State returns the lifecycle state.
func (t *Trader) State() types.ComponentState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// ComponentIDs lists registered components in addition order.
func (t *Trader) ComponentIDs() []types.ComponentID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]types.ComponentID, len(t.components))
	for i, c := range t.components {
		out[i] = c.ID()
	}
	return out
}

// Strategies returns the registered strategies in addition order.
func (t *Trader) Strategies() []*strategy.Strategy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*strategy.Strategy, len(t.strategies))
	copy(out, t.strategies)
	return out
}

// ————————————————————————————————————————————————————————————————————————
// Registration
// ————————————————————————————————————————————————————————————————————————

// AddActor registers a data-consuming actor.
func (t *Trader) AddActor(a *strategy.Actor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAddable(a.ID()); err != nil {
		return err
	}
	if err := a.Register(t.deps()); err != nil {
		return err
	}
	t.attach(a)
	t.logger.Info("actor registered", "id", string(a.ID()))
	return nil
}

// AddStrategy registers a trading strategy, assigning an order-id tag
// when the config left it empty and enforcing tag uniqueness.
func (t *Trader) AddStrategy(s *strategy.Strategy) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == types.StateRunning && !t.cfg.AllowAddWhileRunning {
		return fmt.Errorf("trader %s: cannot add strategy while RUNNING", t.id)
	}

	if s.OrderIDTag() == "" {
		s.SetOrderIDTag(t.nextOrderIDTag())
	}
	for _, existing := range t.strategies {
		if existing.OrderIDTag() == s.OrderIDTag() {
			return fmt.Errorf("trader %s: duplicate order_id_tag %q", t.id, s.OrderIDTag())
		}
	}
	if _, ok := t.byID[s.ID()]; ok {
		return fmt.Errorf("trader %s: duplicate component id %s", t.id, s.ID())
	}

	if err := s.RegisterWithTrader(t.deps()); err != nil {
		return err
	}
	t.attach(s)
	t.strategies = append(t.strategies, s)
	t.logger.Info("strategy registered",
		"id", string(s.ID()), "oms_type", string(s.OmsType()))
	return nil
}

// AddExecAlgorithm registers an execution algorithm.
func (t *Trader) AddExecAlgorithm(e *strategy.ExecAlgorithm) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkAddable(e.ID()); err != nil {
		return err
	}
	if err := e.Register(t.deps()); err != nil {
		return err
	}
	t.attach(e)
	t.logger.Info("exec algorithm registered", "id", string(e.ID()))
	return nil
}

func (t *Trader) checkAddable(id types.ComponentID) error {
	if t.state == types.StateRunning && !t.cfg.AllowAddWhileRunning {
		return fmt.Errorf("trader %s: cannot add component while RUNNING", t.id)
	}
	if _, ok := t.byID[id]; ok {
		return fmt.Errorf("trader %s: duplicate component id %s", t.id, id)
	}
	return nil
}

// deps builds the injection set for one component, with its own clock.
func (t *Trader) deps() strategy.Deps {
	return strategy.Deps{
		TraderID:  t.id,
		Bus:       t.bus,
		Cache:     t.cache,
		Portfolio: t.portfolio,
		Clock:     t.clockFactory(),
		Logger:    t.logger,
	}
}

func (t *Trader) attach(c Component) {
	t.components = append(t.components, c)
	t.byID[c.ID()] = c
}

// nextOrderIDTag returns the next unused zero-padded sequence tag.
func (t *Trader) nextOrderIDTag() string {
	for {
		t.tagSeq++
		tag := fmt.Sprintf("%03d", t.tagSeq)
		taken := false
		for _, s := range t.strategies {
			if s.OrderIDTag() == tag {
				taken = true
				break
			}
		}
		if !taken {
			return tag
		}
	}
}

// ————————————————————————————————————————————————————————————————————————
// Lifecycle
// ————————————————————————————————————————————————————————————————————————

// Start starts every component in addition order.
func (t *Trader) Start() error {
	t.mu.Lock()
	if t.state == types.StateRunning {
		t.mu.Unlock()
		return fmt.Errorf("trader %s: already running", t.id)
	}
	components := append([]Component(nil), t.components...)
	t.state = types.StateRunning
	t.mu.Unlock()

	for _, c := range components {
		if err := c.Start(); err != nil {
			return fmt.Errorf("start %s: %w", c.ID(), err)
		}
	}
	t.logger.Info("trader started", "components", len(components))
	return nil
}

// Stop stops every component in addition order, tolerating components
// that are already stopped.
func (t *Trader) Stop() error {
	t.mu.Lock()
	components := append([]Component(nil), t.components...)
	t.state = types.StateStopped
	t.mu.Unlock()

	for _, c := range components {
		if c.State() != types.StateRunning {
			t.logger.Warn("component already stopped", "id", string(c.ID()))
			continue
		}
		if err := c.Stop(); err != nil {
			t.logger.Error("component stop failed", "id", string(c.ID()), "error", err)
		}
	}
	t.logger.Info("trader stopped")
	return nil
}

// Reset resets every component and the portfolio. The trader must not be
// running.
func (t *Trader) Reset() error {
	t.mu.Lock()
	if t.state == types.StateRunning {
		t.mu.Unlock()
		return fmt.Errorf("trader %s: reset while RUNNING", t.id)
	}
	components := append([]Component(nil), t.components...)
	t.state = types.StateReady
	t.mu.Unlock()

	for _, c := range components {
		if err := c.Reset(); err != nil {
			return fmt.Errorf("reset %s: %w", c.ID(), err)
		}
	}
	t.portfolio.Reset()
	t.logger.Info("trader reset")
	return nil
}

// Dispose releases every component. The trader cannot be reused after.
func (t *Trader) Dispose() error {
	t.mu.Lock()
	components := append([]Component(nil), t.components...)
	t.state = types.StateDisposed
	t.mu.Unlock()

	for _, c := range components {
		if err := c.Dispose(); err != nil {
			t.logger.Error("component dispose failed", "id", string(c.ID()), "error", err)
		}
	}
	t.logger.Info("trader disposed")
	return nil
}
