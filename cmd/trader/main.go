// Trading platform core — routes trading intent through pre-trade risk
// controls and portfolio accounting over an in-process message bus.
//
// Architecture:
//
//	main.go              — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	trader/trader.go     — supervisor: registers strategies/actors, owns their lifecycle
//	risk/engine.go       — pre-trade gateway: duplicate-id, precision, notional, state, rate checks
//	portfolio/           — accounts, net positions, unrealized PnL, margin views
//	account/account.go   — per-venue balances, margins, append-only event log
//	xrate/calculator.go  — cross-currency rates through an inferred pair graph
//	xrate/feed.go        — REST polling feed seeding FX quotes
//	bus/bus.go           — pub/sub topics + point-to-point endpoints
//	cache/cache.go       — shared object store: orders, positions, instruments, ticks
//	exec/engine.go       — simulated execution venue (fills market orders at top of book)
//	api/                 — dashboard: health, snapshot, WebSocket stream
//
// Flow: Strategy -> SubmitOrder -> RiskEngine (validate, rate-limit) ->
// ExecEngine -> fills -> Portfolio -> Account margins. Tick stream ->
// Portfolio -> PnL cache invalidation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecore/internal/account"
	"tradecore/internal/api"
	"tradecore/internal/bus"
	"tradecore/internal/cache"
	"tradecore/internal/clock"
	"tradecore/internal/config"
	"tradecore/internal/exec"
	"tradecore/internal/model"
	"tradecore/internal/portfolio"
	"tradecore/internal/risk"
	"tradecore/internal/trader"
	"tradecore/internal/xrate"
	"tradecore/pkg/types"
)

const simAccountID = types.AccountID("SIM-000")

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("TRADER_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	// Shared infrastructure
	messageBus := bus.New(logger)
	objectCache := cache.New()
	pf := portfolio.New(objectCache, logger)
	wirePortfolio(messageBus, objectCache, pf, logger)

	// Simulated venue account and instruments
	if err := bootstrapSimVenue(objectCache, pf, logger); err != nil {
		logger.Error("failed to bootstrap venue", "error", err)
		os.Exit(1)
	}

	// Engines
	riskEngine := risk.NewEngine(types.TraderID(cfg.Trader.ID), cfg.Risk,
		messageBus, objectCache, pf, clock.NewWall(), logger)
	if err := riskEngine.Start(); err != nil {
		logger.Error("failed to start risk engine", "error", err)
		os.Exit(1)
	}
	execEngine := exec.NewEngine(messageBus, objectCache, simAccountID, clock.NewWall(), logger)
	if err := execEngine.Start(); err != nil {
		logger.Error("failed to start execution engine", "error", err)
		os.Exit(1)
	}

	// Supervisor
	tr := trader.New(cfg.Trader, messageBus, objectCache, pf,
		func() clock.Clock { return clock.NewWall() }, logger)
	if err := tr.Start(); err != nil {
		logger.Error("failed to start trader", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// FX rates feed
	if cfg.RatesFeed.Enabled {
		feed := xrate.NewFeed(cfg.RatesFeed, logger)
		go feed.Run(ctx)
		go func() {
			for tick := range feed.Ticks() {
				topic := fmt.Sprintf("data.quotes.%s.%s", tick.InstrumentID.Venue, tick.InstrumentID.Symbol)
				messageBus.Publish(topic, tick)
			}
		}()
		logger.Info("rates feed started", "url", cfg.RatesFeed.URL)
	}

	// Dashboard
	var apiServer *api.Server
	if cfg.Dashboard.Enabled {
		collector := api.NewCollector(tr, pf, riskEngine)
		apiServer = api.NewServer(cfg.Dashboard, collector, logger)
		go func() {
			if err := apiServer.Start(); err != nil {
				logger.Error("dashboard server failed", "error", err)
			}
		}()
		logger.Info("dashboard started", "url", fmt.Sprintf("http://localhost:%d", cfg.Dashboard.Port))
	}

	logger.Info("trading core started",
		"trader_id", cfg.Trader.ID,
		"risk_bypass", cfg.Risk.Bypass,
		"max_order_rate", cfg.Risk.MaxOrderRate,
	)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()
	if apiServer != nil {
		if err := apiServer.Stop(); err != nil {
			logger.Error("failed to stop dashboard", "error", err)
		}
	}
	if err := tr.Stop(); err != nil {
		logger.Error("failed to stop trader", "error", err)
	}
	_ = execEngine.Stop()
	_ = riskEngine.Stop()
	logger.Info("shutdown complete")
}

// wirePortfolio subscribes the portfolio to the data and event topics.
func wirePortfolio(b *bus.MessageBus, c *cache.Cache, pf *portfolio.Portfolio, logger *slog.Logger) {
	b.Subscribe("data.quotes.*", func(msg any) {
		if tick, ok := msg.(types.QuoteTick); ok {
			c.AddQuoteTick(tick)
			pf.UpdateTick(tick)
		}
	})
	b.Subscribe("data.trades.*", func(msg any) {
		if tick, ok := msg.(types.TradeTick); ok {
			c.AddTradeTick(tick)
			pf.UpdateTradeTick(tick)
		}
	})
	b.Subscribe("events.order.*", func(msg any) {
		event, ok := msg.(model.OrderEvent)
		if !ok {
			return
		}
		if order, ok := c.Order(event.OrderID()); ok {
			pf.UpdateOrder(order)
		}
	})
	b.Subscribe("events.position.*", func(msg any) {
		if event, ok := msg.(model.PositionEvent); ok {
			pf.UpdatePosition(event)
		}
	})
	b.Subscribe("events.account.*", func(msg any) {
		if state, ok := msg.(model.AccountState); ok {
			if err := pf.UpdateAccount(state); err != nil {
				logger.Error("account update failed", "error", err)
			}
		}
	})
}

// bootstrapSimVenue seeds the simulated venue: one USD account and the
// demo FX instruments the execution engine can fill.
func bootstrapSimVenue(c *cache.Cache, pf *portfolio.Portfolio, logger *slog.Logger) error {
	usd, err := types.NewAccountBalance(types.USD,
		decimal.NewFromInt(1_000_000), decimal.NewFromInt(1_000_000), decimal.Zero)
	if err != nil {
		return err
	}
	acct, err := account.New(model.AccountState{
		ID:        uuid.New(),
		AccountID: simAccountID,
		Balances:  []types.AccountBalance{usd},
		TsEvent:   time.Now().UTC(),
	}, types.USD, false, logger)
	if err != nil {
		return err
	}
	if err := pf.RegisterAccount(acct); err != nil {
		return err
	}

	for _, symbol := range []types.Symbol{"EUR/USD", "GBP/USD", "AUD/USD"} {
		c.AddInstrument(&model.Instrument{
			ID:                 types.NewInstrumentID(symbol, "SIM"),
			AssetType:          types.AssetSpot,
			QuoteCurrency:      types.USD,
			SettlementCurrency: types.USD,
			PricePrecision:     5,
			SizePrecision:      0,
			Multiplier:         decimal.NewFromInt(1),
			Leverage:           decimal.NewFromInt(1),
			MinQuantity:        types.MustQuantity("1000"),
			MaxQuantity:        types.MustQuantity("10000000"),
			MakerFee:           decimal.RequireFromString("0.0002"),
			TakerFee:           decimal.RequireFromString("0.0005"),
			MarginInitRate:     decimal.RequireFromString("0.03"),
			MarginMaintRate:    decimal.RequireFromString("0.02"),
		})
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
