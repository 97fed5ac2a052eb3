package risk

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Throttler bounds the order submission rate with a token bucket: at most
// `limit` forwards per `interval`, refilled continuously.
//
// Send never blocks. Commands under the limit invoke onForward
// synchronously, preserving submission order; commands over the limit
// invoke onDrop synchronously so the caller can deny immediately.
type Throttler struct {
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewThrottler creates a throttler allowing limit events per interval.
func NewThrottler(limit int, interval time.Duration, logger *slog.Logger) *Throttler {
	refill := rate.Limit(float64(limit) / interval.Seconds())
	return &Throttler{
		limiter: rate.NewLimiter(refill, limit),
		logger:  logger.With("component", "throttler"),
	}
}

// Send routes msg to onForward when a token is available, onDrop otherwise.
func (t *Throttler) Send(msg any, onForward, onDrop func(msg any)) {
	if t.limiter.Allow() {
		onForward(msg)
		return
	}
	t.logger.Warn("order rate limit exceeded, dropping command")
	onDrop(msg)
}
