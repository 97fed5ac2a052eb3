// Package types defines the shared vocabulary of the trading core.
//
// Identifiers, enums, currencies, fixed-precision values, ticks, and
// account balances live here. The package has no dependencies on internal
// packages, so it can be imported by any layer.
package types

// ————————————————————————————————————————————————————————————————————————
// Core enums
// ————————————————————————————————————————————————————————————————————————

// OrderSide represents the direction of an order: BUY or SELL.
type OrderSide string

const (
	BUY  OrderSide = "BUY"
	SELL OrderSide = "SELL"
)

// Opposite returns the inverse side. Used when flattening positions.
func (s OrderSide) Opposite() OrderSide {
	if s == BUY {
		return SELL
	}
	return BUY
}

// OrderType enumerates the supported order kinds.
type OrderType string

const (
	Market     OrderType = "MARKET"
	Limit      OrderType = "LIMIT"
	StopMarket OrderType = "STOP_MARKET"
	StopLimit  OrderType = "STOP_LIMIT"
)

// OrderStatus is the order lifecycle state. Terminal states are absorbing:
// once an order reaches one, no further transition is valid.
type OrderStatus string

const (
	StatusInitialized     OrderStatus = "INITIALIZED"
	StatusDenied          OrderStatus = "DENIED"
	StatusInvalid         OrderStatus = "INVALID"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusAccepted        OrderStatus = "ACCEPTED"
	StatusTriggered       OrderStatus = "TRIGGERED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// IsTerminal reports whether the status is absorbing.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusExpired, StatusRejected, StatusDenied, StatusInvalid:
		return true
	}
	return false
}

// PositionSide is the net direction of a position.
type PositionSide string

const (
	Flat  PositionSide = "FLAT"
	Long  PositionSide = "LONG"
	Short PositionSide = "SHORT"
)

// LiquiditySide identifies the liquidity role of a fill, which selects the
// maker or taker fee rate.
type LiquiditySide string

const (
	LiquidityNone  LiquiditySide = "NONE"
	LiquidityMaker LiquiditySide = "MAKER"
	LiquidityTaker LiquiditySide = "TAKER"
)

// AggressorSide is the side of the aggressing party in a trade tick.
type AggressorSide string

const (
	AggressorBuy  AggressorSide = "BUY"
	AggressorSell AggressorSide = "SELL"
)

// PriceType selects which quote side a rate or check is derived from.
type PriceType string

const (
	PriceUndefined PriceType = "UNDEFINED"
	PriceBid       PriceType = "BID"
	PriceAsk       PriceType = "ASK"
	PriceMid       PriceType = "MID"
	PriceLast      PriceType = "LAST"
)

// TradingState is the coarse risk posture of the platform.
//
//   - ACTIVE:   all trading commands pass the state gate.
//   - REDUCING: commands that would increase exposure on an already
//     net-long or net-short instrument are denied.
//   - HALTED:   everything except CancelOrder is denied.
type TradingState string

const (
	TradingActive   TradingState = "ACTIVE"
	TradingReducing TradingState = "REDUCING"
	TradingHalted   TradingState = "HALTED"
)

// AssetType classifies an instrument's contract kind.
type AssetType string

const (
	AssetSpot    AssetType = "SPOT"
	AssetSwap    AssetType = "SWAP"
	AssetFuture  AssetType = "FUTURE"
	AssetOption  AssetType = "OPTION"
	AssetWarrant AssetType = "WARRANT"
)

// OmsType is the order-management policy of a strategy.
// NETTING enforces one position per instrument per strategy;
// HEDGING permits many.
type OmsType string

const (
	OmsHedging OmsType = "HEDGING"
	OmsNetting OmsType = "NETTING"
)

// CurrencyType distinguishes fiat from crypto currencies.
type CurrencyType string

const (
	Fiat   CurrencyType = "FIAT"
	Crypto CurrencyType = "CRYPTO"
)

// ComponentState is the lifecycle state of a supervised component.
type ComponentState string

const (
	StateReady    ComponentState = "READY"
	StateRunning  ComponentState = "RUNNING"
	StateStopped  ComponentState = "STOPPED"
	StateDisposed ComponentState = "DISPOSED"
)
