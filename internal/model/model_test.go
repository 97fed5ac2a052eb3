package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecore/pkg/types"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func eurusd() *Instrument {
	return &Instrument{
		ID:                 types.NewInstrumentID("EUR/USD", "SIM"),
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
	}
}

func xbtusd() *Instrument {
	return &Instrument{
		ID:                 types.NewInstrumentID("XBT/USD", "SIM"),
		AssetType:          types.AssetSwap,
		QuoteCurrency:      types.USD,
		SettlementCurrency: types.BTC,
		IsInverse:          true,
		PricePrecision:     1,
		SizePrecision:      0,
		Multiplier:         decimal.NewFromInt(1),
		Leverage:           decimal.NewFromInt(1),
		MakerFee:           decimal.RequireFromString("-0.00025"),
		TakerFee:           decimal.RequireFromString("0.00075"),
		MarginInitRate:     decimal.RequireFromString("0.01"),
		MarginMaintRate:    decimal.RequireFromString("0.0035"),
	}
}

func core(id types.ClientOrderID) OrderEventCore {
	return OrderEventCore{
		ID:            uuid.New(),
		TraderID:      "TRADER-001",
		StrategyID:    "S-001",
		InstrumentID:  types.NewInstrumentID("EUR/USD", "SIM"),
		ClientOrderID: id,
		TsEvent:       t0,
	}
}

func limitOrder(id types.ClientOrderID, side types.OrderSide, qty, price string) *Order {
	px := types.MustPrice(price)
	return NewOrder(id, "TRADER-001", "S-001",
		types.NewInstrumentID("EUR/USD", "SIM"),
		side, types.Limit, types.MustQuantity(qty), &px, nil, t0)
}

func fill(id types.ClientOrderID, side types.OrderSide, qty, px string) OrderFilled {
	return OrderFilled{
		OrderEventCore: core(id),
		VenueOrderID:   "V-1",
		TradeID:        "T-1",
		PositionID:     "P-1",
		Side:           side,
		LastQty:        types.MustQuantity(qty),
		LastPx:         types.MustPrice(px),
		Commission:     types.MoneyFromFloat(0, types.USD),
		LiquiditySide:  types.LiquidityTaker,
	}
}

// ————————————————————————————————————————————————————————————————————————
// Order state machine
// ————————————————————————————————————————————————————————————————————————

func TestOrderHappyPath(t *testing.T) {
	t.Parallel()
	o := limitOrder("O-1", types.BUY, "100000", "1.1000")

	if o.Status != types.StatusInitialized {
		t.Fatalf("initial status = %s", o.Status)
	}
	if err := o.Apply(OrderSubmitted{OrderEventCore: core("O-1"), AccountID: "SIM-000"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := o.Apply(OrderAccepted{OrderEventCore: core("O-1"), VenueOrderID: "V-9"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !o.IsWorking() {
		t.Error("accepted order should be working")
	}
	if err := o.Apply(fill("O-1", types.BUY, "40000", "1.1000")); err != nil {
		t.Fatalf("partial fill: %v", err)
	}
	if o.Status != types.StatusPartiallyFilled {
		t.Errorf("status = %s, want PARTIALLY_FILLED", o.Status)
	}
	if o.RemainingQty().String() != "60000" {
		t.Errorf("remaining = %s", o.RemainingQty())
	}
	if err := o.Apply(fill("O-1", types.BUY, "60000", "1.1001")); err != nil {
		t.Fatalf("final fill: %v", err)
	}
	if o.Status != types.StatusFilled {
		t.Errorf("status = %s, want FILLED", o.Status)
	}
}

func TestOrderDeniedFromInitialized(t *testing.T) {
	t.Parallel()
	o := limitOrder("O-1", types.BUY, "100000", "1.1000")

	if err := o.Apply(OrderDenied{OrderEventCore: core("O-1"), Reason: "Duplicate"}); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if o.Status != types.StatusDenied || !o.IsCompleted() {
		t.Errorf("status = %s", o.Status)
	}
}

func TestOrderTerminalIsAbsorbing(t *testing.T) {
	t.Parallel()
	o := limitOrder("O-1", types.BUY, "100000", "1.1000")
	if err := o.Apply(OrderDenied{OrderEventCore: core("O-1"), Reason: "x"}); err != nil {
		t.Fatalf("deny: %v", err)
	}

	if err := o.Apply(OrderSubmitted{OrderEventCore: core("O-1")}); err == nil {
		t.Error("event on terminal order should fail")
	}
	if o.Status != types.StatusDenied {
		t.Errorf("status mutated to %s", o.Status)
	}
}

func TestOrderInvalidTransitionRejected(t *testing.T) {
	t.Parallel()
	o := limitOrder("O-1", types.BUY, "100000", "1.1000")

	if err := o.Apply(OrderAccepted{OrderEventCore: core("O-1")}); err == nil {
		t.Error("INITIALIZED + accepted should fail")
	}
	if len(o.Events()) != 0 {
		t.Error("failed transition must not append to history")
	}
}

func TestOrderUpdatedAmendsFields(t *testing.T) {
	t.Parallel()
	o := limitOrder("O-1", types.SELL, "100000", "1.1000")
	_ = o.Apply(OrderSubmitted{OrderEventCore: core("O-1")})
	_ = o.Apply(OrderAccepted{OrderEventCore: core("O-1"), VenueOrderID: "V-1"})

	newPx := types.MustPrice("1.1020")
	if err := o.Apply(OrderUpdated{
		OrderEventCore: core("O-1"),
		Quantity:       types.MustQuantity("50000"),
		Price:          &newPx,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if o.Status != types.StatusAccepted {
		t.Errorf("update changed status to %s", o.Status)
	}
	if o.Quantity.String() != "50000" || !o.Price.Equal(newPx) {
		t.Errorf("amend not applied: qty=%s px=%s", o.Quantity, o.Price)
	}
}

func TestOrderEventIDMismatch(t *testing.T) {
	t.Parallel()
	o := limitOrder("O-1", types.BUY, "100000", "1.1000")
	if err := o.Apply(OrderSubmitted{OrderEventCore: core("O-2")}); err == nil {
		t.Error("event for another order should fail")
	}
}

// ————————————————————————————————————————————————————————————————————————
// Position accounting
// ————————————————————————————————————————————————————————————————————————

func TestPositionOpenAndUnrealizedPnL(t *testing.T) {
	t.Parallel()
	p := NewPosition(eurusd(), fill("O-1", types.BUY, "100000", "1.1000"))

	if p.Side() != types.Long || !p.IsOpen() {
		t.Fatalf("side = %s open = %v", p.Side(), p.IsOpen())
	}
	pnl, err := p.UnrealizedPnL(types.MustPrice("1.1050"))
	if err != nil {
		t.Fatalf("pnl: %v", err)
	}
	if pnl.String() != "500.00 USD" {
		t.Errorf("pnl = %s, want 500.00 USD", pnl)
	}
}

func TestPositionShortUnrealizedPnL(t *testing.T) {
	t.Parallel()
	p := NewPosition(eurusd(), fill("O-1", types.SELL, "100000", "1.1000"))

	pnl, err := p.UnrealizedPnL(types.MustPrice("1.0950"))
	if err != nil {
		t.Fatalf("pnl: %v", err)
	}
	if pnl.String() != "500.00 USD" {
		t.Errorf("short pnl = %s, want 500.00 USD", pnl)
	}
}

func TestPositionInverseUnrealizedPnL(t *testing.T) {
	t.Parallel()
	inst := xbtusd()
	f := fill("O-1", types.BUY, "100000", "50000.0")
	f.InstrumentID = inst.ID
	p := NewPosition(inst, f)

	pnl, err := p.UnrealizedPnL(types.MustPrice("52000.0"))
	if err != nil {
		t.Fatalf("pnl: %v", err)
	}
	// 100000 * (1/50000 - 1/52000) = 0.07692308 BTC
	if pnl.Currency() != types.BTC {
		t.Errorf("pnl currency = %s, want BTC", pnl.Currency())
	}
	if pnl.String() != "0.07692308 BTC" {
		t.Errorf("inverse pnl = %s", pnl)
	}
}

func TestPositionReduceRealizesPnL(t *testing.T) {
	t.Parallel()
	p := NewPosition(eurusd(), fill("O-1", types.BUY, "100000", "1.1000"))

	f := fill("O-2", types.SELL, "40000", "1.1050")
	if err := p.ApplyFill(f); err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if p.RealizedPnL.String() != "200.00 USD" {
		t.Errorf("realized = %s, want 200.00 USD", p.RealizedPnL)
	}
	if p.Quantity.String() != "60000" || p.Side() != types.Long {
		t.Errorf("after reduce: qty=%s side=%s", p.Quantity, p.Side())
	}
}

func TestPositionExtendReweightsAvgOpen(t *testing.T) {
	t.Parallel()
	p := NewPosition(eurusd(), fill("O-1", types.BUY, "100000", "1.1000"))

	if err := p.ApplyFill(fill("O-2", types.BUY, "100000", "1.1100")); err != nil {
		t.Fatalf("extend: %v", err)
	}
	if !p.AvgOpen.Equal(decimal.RequireFromString("1.105")) {
		t.Errorf("avg open = %s, want 1.105", p.AvgOpen)
	}
	if p.Quantity.String() != "200000" {
		t.Errorf("qty = %s", p.Quantity)
	}
}

func TestPositionCloseToFlat(t *testing.T) {
	t.Parallel()
	p := NewPosition(eurusd(), fill("O-1", types.BUY, "100000", "1.1000"))

	if err := p.ApplyFill(fill("O-2", types.SELL, "100000", "1.1100")); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !p.IsClosed() || p.Side() != types.Flat {
		t.Errorf("expected flat, got %s", p.Side())
	}
	if p.RealizedPnL.String() != "1000.00 USD" {
		t.Errorf("realized = %s", p.RealizedPnL)
	}
	pnl, _ := p.UnrealizedPnL(types.MustPrice("1.2000"))
	if !pnl.IsZero() {
		t.Errorf("closed position pnl = %s, want 0", pnl)
	}
}

func TestPositionFlipThroughFlat(t *testing.T) {
	t.Parallel()
	p := NewPosition(eurusd(), fill("O-1", types.BUY, "100000", "1.1000"))

	if err := p.ApplyFill(fill("O-2", types.SELL, "150000", "1.1100")); err != nil {
		t.Fatalf("flip: %v", err)
	}
	if p.Side() != types.Short || p.Quantity.String() != "50000" {
		t.Errorf("after flip: side=%s qty=%s", p.Side(), p.Quantity)
	}
	if !p.AvgOpen.Equal(decimal.RequireFromString("1.11")) {
		t.Errorf("flip avg open = %s, want 1.11", p.AvgOpen)
	}
	if p.EntrySide != types.SELL {
		t.Errorf("entry side = %s, want SELL", p.EntrySide)
	}
}

// ————————————————————————————————————————————————————————————————————————
// Instrument calculators
// ————————————————————————————————————————————————————————————————————————

func TestNotionalValue(t *testing.T) {
	t.Parallel()
	n := eurusd().NotionalValue(types.MustQuantity("100000"), types.MustPrice("1.1000"))
	if n.String() != "110000.00 USD" {
		t.Errorf("notional = %s", n)
	}
}

func TestNotionalValueInverse(t *testing.T) {
	t.Parallel()
	n := xbtusd().NotionalValue(types.MustQuantity("100000"), types.MustPrice("50000.0"))
	// price-independent for inverse contracts
	if n.Currency() != types.BTC {
		t.Errorf("currency = %s, want BTC", n.Currency())
	}
	if n.Amount().String() != "100000" {
		t.Errorf("notional = %s", n.Amount())
	}
}

func TestMarketValueInverse(t *testing.T) {
	t.Parallel()
	mv, err := xbtusd().MarketValue(types.MustQuantity("100000"), types.MustPrice("50000.0"))
	if err != nil {
		t.Fatalf("market value: %v", err)
	}
	if mv.String() != "2.00000000 BTC" {
		t.Errorf("market value = %s", mv)
	}
}

func TestInitialMargin(t *testing.T) {
	t.Parallel()
	m := eurusd().CalculateInitialMargin(types.MustQuantity("100000"), types.MustPrice("1.1000"))
	if m.String() != "3300.00 USD" {
		t.Errorf("initial margin = %s", m)
	}
}

func TestMaintMargin(t *testing.T) {
	t.Parallel()
	m := eurusd().CalculateMaintMargin(types.Long, types.MustQuantity("100000"), types.MustPrice("1.1000"))
	if m.String() != "2200.00 USD" {
		t.Errorf("maint margin = %s", m)
	}
	flat := eurusd().CalculateMaintMargin(types.Flat, types.MustQuantity("100000"), types.MustPrice("1.1000"))
	if !flat.IsZero() {
		t.Errorf("flat margin = %s, want 0", flat)
	}
}

func TestCommissionLiquiditySides(t *testing.T) {
	t.Parallel()
	inst := eurusd()
	qty := types.MustQuantity("100000")
	px := types.MustPrice("1.1000")

	taker, err := inst.CalculateCommission(qty, px, types.LiquidityTaker)
	if err != nil {
		t.Fatalf("taker: %v", err)
	}
	if taker.String() != "55.00 USD" {
		t.Errorf("taker fee = %s", taker)
	}

	maker, err := inst.CalculateCommission(qty, px, types.LiquidityMaker)
	if err != nil {
		t.Fatalf("maker: %v", err)
	}
	if maker.String() != "22.00 USD" {
		t.Errorf("maker fee = %s", maker)
	}

	if _, err := inst.CalculateCommission(qty, px, types.LiquidityNone); err == nil {
		t.Error("NONE liquidity side should fail")
	}
}

func TestCommissionInverseDividesByPrice(t *testing.T) {
	t.Parallel()
	c, err := xbtusd().CalculateCommission(types.MustQuantity("100000"), types.MustPrice("50000.0"), types.LiquidityTaker)
	if err != nil {
		t.Fatalf("commission: %v", err)
	}
	// 100000 / 50000 * 0.00075 = 0.0015 BTC
	if c.String() != "0.00150000 BTC" {
		t.Errorf("inverse commission = %s", c)
	}
}
