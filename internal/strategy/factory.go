package strategy

import (
	"fmt"
	"strings"
	"sync"

	"tradecore/pkg/types"
)

// OrderFactory generates client order ids unique per trader and monotonic
// per strategy. The counter is seeded from the cache's order count at
// registration so ids stay monotonic across strategy restarts within a
// session.
type OrderFactory struct {
	mu         sync.Mutex
	traderTag  string
	orderIDTag string
	count      int
}

// NewOrderFactory creates a factory seeded at start.
func NewOrderFactory(traderID types.TraderID, orderIDTag string, start int) *OrderFactory {
	return &OrderFactory{
		traderTag:  tagOf(string(traderID)),
		orderIDTag: orderIDTag,
		count:      start,
	}
}

// GenerateClientOrderID returns the next id, formatted
// "O-<trader_tag>-<order_id_tag>-<n>".
func (f *OrderFactory) GenerateClientOrderID() types.ClientOrderID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return types.ClientOrderID(fmt.Sprintf("O-%s-%s-%d", f.traderTag, f.orderIDTag, f.count))
}

// Count returns how many ids have been generated, including the seed.
func (f *OrderFactory) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}

// tagOf extracts the suffix after the last hyphen, or the whole string.
func tagOf(s string) string {
	if i := strings.LastIndex(s, "-"); i >= 0 {
		return s[i+1:]
	}
	return s
}
