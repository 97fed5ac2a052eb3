package model

import (
	"time"

	"github.com/google/uuid"

	"tradecore/pkg/types"
)

// Command is implemented by every trading command routed through the risk
// engine's execute endpoint.
type Command interface {
	CommandID() uuid.UUID
	CommandTime() time.Time
}

// CommandCore carries the fields shared by all trading commands.
type CommandCore struct {
	ID       uuid.UUID
	TraderID types.TraderID
	TsInit   time.Time
}

func (c CommandCore) CommandID() uuid.UUID    { return c.ID }
func (c CommandCore) CommandTime() time.Time  { return c.TsInit }

// SubmitOrder routes a new order through pre-trade risk to execution.
// PositionID is optional; when set it must reference an existing position
// (used for closing and netting flows).
type SubmitOrder struct {
	CommandCore
	StrategyID types.StrategyID
	Order      *Order
	PositionID types.PositionID
}

// SubmitBracketOrder submits an entry with a linked stop-loss and optional
// take-profit. The bracket is risk-checked atomically: any failing leg
// denies the whole bracket.
type SubmitBracketOrder struct {
	CommandCore
	StrategyID types.StrategyID
	Entry      *Order
	StopLoss   *Order
	TakeProfit *Order // nil when the bracket has no take-profit
}

// ModifyOrder amends the price, trigger, and/or quantity of a working
// order. Nil fields are left unchanged.
type ModifyOrder struct {
	CommandCore
	StrategyID    types.StrategyID
	InstrumentID  types.InstrumentID
	ClientOrderID types.ClientOrderID
	VenueOrderID  types.VenueOrderID
	Quantity      *types.Quantity
	Price         *types.Price
	Trigger       *types.Price
}

// CancelOrder removes a working order. Forwarded even in HALTED state.
type CancelOrder struct {
	CommandCore
	StrategyID    types.StrategyID
	InstrumentID  types.InstrumentID
	ClientOrderID types.ClientOrderID
	VenueOrderID  types.VenueOrderID
}

// NewCommandCore stamps a fresh command identity.
func NewCommandCore(traderID types.TraderID, ts time.Time) CommandCore {
	return CommandCore{ID: uuid.New(), TraderID: traderID, TsInit: ts}
}
