package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccountBalance is the balance of one currency within an account,
// split into free and locked parts. Invariant: total = free + locked,
// and all parts are non-negative unless the venue permits overdraft.
type AccountBalance struct {
	Currency Currency
	Total    decimal.Decimal
	Free     decimal.Decimal
	Locked   decimal.Decimal
}

// NewAccountBalance constructs and validates a balance.
func NewAccountBalance(currency Currency, total, free, locked decimal.Decimal) (AccountBalance, error) {
	b := AccountBalance{Currency: currency, Total: total, Free: free, Locked: locked}
	if err := b.Validate(false); err != nil {
		return AccountBalance{}, err
	}
	return b, nil
}

// Validate checks the balance invariant. allowNegative relaxes the
// non-negativity checks for venues that permit overdraft.
func (b AccountBalance) Validate(allowNegative bool) error {
	if b.Currency.IsZero() {
		return fmt.Errorf("balance: missing currency")
	}
	if !b.Total.Equal(b.Free.Add(b.Locked)) {
		return fmt.Errorf("balance %s: total %s != free %s + locked %s",
			b.Currency, b.Total, b.Free, b.Locked)
	}
	if allowNegative {
		return nil
	}
	if b.Total.IsNegative() || b.Free.IsNegative() || b.Locked.IsNegative() {
		return fmt.Errorf("balance %s: negative component (total=%s free=%s locked=%s)",
			b.Currency, b.Total, b.Free, b.Locked)
	}
	return nil
}

// TotalMoney returns the total as Money in the balance currency.
func (b AccountBalance) TotalMoney() Money { return NewMoney(b.Total, b.Currency) }

// FreeMoney returns the free part as Money.
func (b AccountBalance) FreeMoney() Money { return NewMoney(b.Free, b.Currency) }

// LockedMoney returns the locked part as Money.
func (b AccountBalance) LockedMoney() Money { return NewMoney(b.Locked, b.Currency) }

func (b AccountBalance) String() string {
	return fmt.Sprintf("%s %s (free=%s locked=%s)",
		b.Total.StringFixed(b.Currency.Precision), b.Currency.Code,
		b.Free.StringFixed(b.Currency.Precision), b.Locked.StringFixed(b.Currency.Precision))
}
