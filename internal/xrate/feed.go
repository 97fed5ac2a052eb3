package xrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"tradecore/internal/config"
	"tradecore/pkg/types"
)

// feedQuote is the JSON shape of one quoted pair from the rates source.
// Prices are strings to preserve decimal precision.
type feedQuote struct {
	Pair string `json:"pair"` // e.g. "EUR/USD"
	Bid  string `json:"bid"`
	Ask  string `json:"ask"`
}

type feedPayload struct {
	Quotes    []feedQuote `json:"quotes"`
	Timestamp string      `json:"timestamp"`
}

// Feed periodically polls a REST rates source and emits QuoteTicks for FX
// pairs. It exists so cross-currency conversion has rate data from
// startup rather than waiting for the venues' own quote streams. The
// trader routes emitted ticks onto the data topics like any other quote.
type Feed struct {
	httpClient *resty.Client
	cfg        config.RatesFeedConfig
	logger     *slog.Logger
	tickCh     chan types.QuoteTick
}

// NewFeed creates a rates feed.
func NewFeed(cfg config.RatesFeedConfig, logger *slog.Logger) *Feed {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Feed{
		httpClient: client,
		cfg:        cfg,
		logger:     logger.With("component", "rates-feed"),
		tickCh:     make(chan types.QuoteTick, 64),
	}
}

// Ticks returns the channel the trader reads emitted quotes from.
func (f *Feed) Ticks() <-chan types.QuoteTick {
	return f.tickCh
}

// Run starts the polling loop. Blocks until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) {
	// Immediate poll on startup so rates exist before the first decision
	f.poll(ctx)

	ticker := time.NewTicker(f.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.poll(ctx)
		}
	}
}

func (f *Feed) poll(ctx context.Context) {
	payload, err := f.fetch(ctx)
	if err != nil {
		f.logger.Error("rates poll failed", "error", err)
		return
	}

	ts := time.Now().UTC()
	emitted := 0
	for _, q := range payload.Quotes {
		tick, err := f.toTick(q, ts)
		if err != nil {
			f.logger.Error("bad rate quote", "pair", q.Pair, "error", err)
			continue
		}
		select {
		case f.tickCh <- tick:
			emitted++
		default:
			f.logger.Warn("rates channel full, dropping tick", "pair", q.Pair)
		}
	}
	f.logger.Debug("rates poll complete", "quotes", len(payload.Quotes), "emitted", emitted)
}

func (f *Feed) fetch(ctx context.Context) (*feedPayload, error) {
	resp, err := f.httpClient.R().SetContext(ctx).Get("")
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch rates: status %d", resp.StatusCode())
	}

	var payload feedPayload
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}
	return &payload, nil
}

func (f *Feed) toTick(q feedQuote, ts time.Time) (types.QuoteTick, error) {
	bid, err := types.PriceFromString(q.Bid)
	if err != nil {
		return types.QuoteTick{}, err
	}
	ask, err := types.PriceFromString(q.Ask)
	if err != nil {
		return types.QuoteTick{}, err
	}
	size, _ := types.QuantityFromString("1000000")
	return types.QuoteTick{
		InstrumentID: types.NewInstrumentID(types.Symbol(q.Pair), types.Venue(f.cfg.Venue)),
		Bid:          bid,
		Ask:          ask,
		BidSize:      size,
		AskSize:      size,
		TsEvent:      ts,
	}, nil
}
