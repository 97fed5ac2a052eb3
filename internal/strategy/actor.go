// Package strategy provides the component base types a trader supervises:
// actors (data consumers), trading strategies (order egress), and
// execution algorithms.
//
// A component is inert until the trader registers it, injecting the
// trader identity, bus, cache, portfolio, and a fresh per-component
// clock. Lifecycle hooks (OnStart, OnStop, OnReset) are optional
// callbacks the embedding type sets before registration.
package strategy

import (
	"fmt"
	"log/slog"
	"sync"

	"tradecore/internal/bus"
	"tradecore/internal/cache"
	"tradecore/internal/clock"
	"tradecore/internal/portfolio"
	"tradecore/pkg/types"
)

// Deps is the wiring a trader injects at registration.
type Deps struct {
	TraderID  types.TraderID
	Bus       *bus.MessageBus
	Cache     *cache.Cache
	Portfolio *portfolio.Portfolio
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Actor is the base component: an identified, lifecycle-managed consumer
// of bus data. Strategies and execution algorithms embed it.
type Actor struct {
	mu sync.RWMutex

	id         types.ComponentID
	state      types.ComponentState
	registered bool
	deps       Deps
	logger     *slog.Logger

	// Optional lifecycle hooks, set before registration.
	OnStart func() error
	OnStop  func() error
	OnReset func() error
}

// NewActor creates an unregistered actor.
func NewActor(id types.ComponentID) *Actor {
	return &Actor{id: id, state: types.StateReady}
}

// ID returns the component identifier.
func (a *Actor) ID() types.ComponentID { return a.id }

// State returns the lifecycle state.
func (a *Actor) State() types.ComponentState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// IsRegistered reports whether a trader has wired this component.
func (a *Actor) IsRegistered() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.registered
}

// Register wires the component into a trader. Called by the trader; a
// component registers at most once.
func (a *Actor) Register(deps Deps) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.registered {
		return fmt.Errorf("component %s: already registered", a.id)
	}
	a.deps = deps
	a.logger = deps.Logger.With("component", string(a.id))
	a.registered = true
	return nil
}

// TraderID returns the owning trader's identity.
func (a *Actor) TraderID() types.TraderID { return a.deps.TraderID }

// Bus returns the injected message bus.
func (a *Actor) Bus() *bus.MessageBus { return a.deps.Bus }

// Cache returns the injected cache.
func (a *Actor) Cache() *cache.Cache { return a.deps.Cache }

// Portfolio returns the injected portfolio.
func (a *Actor) Portfolio() *portfolio.Portfolio { return a.deps.Portfolio }

// Clock returns this component's private clock.
func (a *Actor) Clock() clock.Clock { return a.deps.Clock }

// Logger returns the component logger.
func (a *Actor) Logger() *slog.Logger { return a.logger }

// Start transitions READY -> RUNNING, invoking the OnStart hook.
func (a *Actor) Start() error {
	a.mu.Lock()
	if !a.registered {
		a.mu.Unlock()
		return fmt.Errorf("component %s: start before registration", a.id)
	}
	if a.state == types.StateRunning {
		a.mu.Unlock()
		return fmt.Errorf("component %s: already running", a.id)
	}
	a.state = types.StateRunning
	hook := a.OnStart
	a.mu.Unlock()

	if hook != nil {
		return hook()
	}
	return nil
}

// Stop transitions RUNNING -> STOPPED. Stopping an already-stopped
// component is tolerated with a warning so supervisor shutdown can always
// complete.
func (a *Actor) Stop() error {
	a.mu.Lock()
	if a.state != types.StateRunning {
		state := a.state
		a.mu.Unlock()
		if a.logger != nil {
			a.logger.Warn("stop on non-running component", "state", string(state))
		}
		return nil
	}
	a.state = types.StateStopped
	hook := a.OnStop
	a.mu.Unlock()

	if hook != nil {
		return hook()
	}
	return nil
}

// Reset returns a stopped component to READY, invoking the OnReset hook.
func (a *Actor) Reset() error {
	a.mu.Lock()
	if a.state == types.StateRunning {
		a.mu.Unlock()
		return fmt.Errorf("component %s: reset while running", a.id)
	}
	a.state = types.StateReady
	hook := a.OnReset
	a.mu.Unlock()

	if hook != nil {
		return hook()
	}
	return nil
}

// Dispose marks the component unusable.
func (a *Actor) Dispose() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = types.StateDisposed
	return nil
}

// SubscribeQuotes subscribes a handler to a venue's quote stream.
func (a *Actor) SubscribeQuotes(venue types.Venue, handler func(types.QuoteTick)) {
	a.deps.Bus.Subscribe(fmt.Sprintf("data.quotes.%s.*", venue), func(msg any) {
		if tick, ok := msg.(types.QuoteTick); ok {
			handler(tick)
		}
	})
}

// SubscribeTrades subscribes a handler to a venue's trade stream.
func (a *Actor) SubscribeTrades(venue types.Venue, handler func(types.TradeTick)) {
	a.deps.Bus.Subscribe(fmt.Sprintf("data.trades.%s.*", venue), func(msg any) {
		if tick, ok := msg.(types.TradeTick); ok {
			handler(tick)
		}
	})
}

// ExecAlgorithm is an execution algorithm component: an actor registered
// under the trader's exec-algorithm group, slicing parent orders into
// child orders. Concrete algorithms embed it.
type ExecAlgorithm struct {
	Actor
}

// NewExecAlgorithm creates an unregistered execution algorithm.
func NewExecAlgorithm(id types.ComponentID) *ExecAlgorithm {
	return &ExecAlgorithm{Actor: Actor{id: id, state: types.StateReady}}
}
