// Package api runs the HTTP/WebSocket dashboard for a trader instance:
// a health endpoint, a portfolio snapshot endpoint, and a WebSocket
// stream that broadcasts snapshots on an interval.
package api

import (
	"time"

	"tradecore/internal/portfolio"
	"tradecore/internal/risk"
	"tradecore/internal/trader"
)

// VenueSnapshot is one venue's account view in a dashboard snapshot.
// Monetary values are strings to preserve decimal precision in JSON.
type VenueSnapshot struct {
	Venue          string            `json:"venue"`
	AccountID      string            `json:"account_id"`
	Balances       map[string]string `json:"balances"`
	InitialMargins map[string]string `json:"initial_margins"`
	MaintMargins   map[string]string `json:"maint_margins"`
	UnrealizedPnLs map[string]string `json:"unrealized_pnls"`
}

// Snapshot is the dashboard view of one trader instance.
type Snapshot struct {
	TraderID       string            `json:"trader_id"`
	TraderState    string            `json:"trader_state"`
	TradingState   string            `json:"trading_state"`
	Venues         []VenueSnapshot   `json:"venues"`
	NetPositions   map[string]string `json:"net_positions"`
	CompletelyFlat bool              `json:"completely_flat"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Collector assembles snapshots from the live components.
type Collector struct {
	trader    *trader.Trader
	portfolio *portfolio.Portfolio
	risk      *risk.Engine
}

// NewCollector wires a snapshot collector.
func NewCollector(tr *trader.Trader, pf *portfolio.Portfolio, re *risk.Engine) *Collector {
	return &Collector{trader: tr, portfolio: pf, risk: re}
}

// Snapshot captures the current state.
func (c *Collector) Snapshot() Snapshot {
	snap := Snapshot{
		TraderID:       string(c.trader.ID()),
		TraderState:    string(c.trader.State()),
		TradingState:   string(c.risk.TradingState()),
		NetPositions:   make(map[string]string),
		CompletelyFlat: c.portfolio.IsCompletelyFlat(),
		Timestamp:      time.Now().UTC(),
	}

	for id, net := range c.portfolio.NetPositions() {
		snap.NetPositions[id] = net.String()
	}

	for _, a := range c.portfolio.Accounts() {
		venue := a.Venue()
		vs := VenueSnapshot{
			Venue:          string(venue),
			AccountID:      string(a.ID()),
			Balances:       make(map[string]string),
			InitialMargins: make(map[string]string),
			MaintMargins:   make(map[string]string),
			UnrealizedPnLs: make(map[string]string),
		}
		for code, b := range a.Balances() {
			vs.Balances[code] = b.Total.StringFixed(b.Currency.Precision)
		}
		for code, m := range a.InitialMargins() {
			vs.InitialMargins[code] = m.Amount().StringFixed(m.Currency().Precision)
		}
		for code, m := range a.MaintMargins() {
			vs.MaintMargins[code] = m.Amount().StringFixed(m.Currency().Precision)
		}
		if pnls, ok := c.portfolio.UnrealizedPnLs(venue); ok {
			for code, m := range pnls {
				vs.UnrealizedPnLs[code] = m.Amount().StringFixed(m.Currency().Precision)
			}
		}
		snap.Venues = append(snap.Venues, vs)
	}
	return snap
}
