package xrate

import (
	"math"
	"testing"

	"tradecore/pkg/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestRateSameCurrency(t *testing.T) {
	t.Parallel()

	r, err := Rate(types.USD, types.USD, types.PriceBid, map[string]float64{}, map[string]float64{})
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r != 1.0 {
		t.Errorf("rate(USD, USD) = %v, want 1", r)
	}
}

func TestRateDirect(t *testing.T) {
	t.Parallel()
	bid := map[string]float64{"EUR/USD": 1.2000}
	ask := map[string]float64{"EUR/USD": 1.2002}

	r, err := Rate(types.EUR, types.USD, types.PriceBid, bid, ask)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !almostEqual(r, 1.2000) {
		t.Errorf("direct bid rate = %v", r)
	}

	mid, err := Rate(types.EUR, types.USD, types.PriceMid, bid, ask)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !almostEqual(mid, 1.2001) {
		t.Errorf("mid rate = %v, want 1.2001", mid)
	}
}

func TestRateInverse(t *testing.T) {
	t.Parallel()
	quotes := map[string]float64{"AUD/USD": 0.80}

	r, err := Rate(types.USD, types.AUD, types.PriceBid, quotes, quotes)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !almostEqual(r, 1.25) {
		t.Errorf("rate(USD, AUD) = %v, want 1.25", r)
	}
}

func TestRateCommonPivot(t *testing.T) {
	t.Parallel()
	// Spec scenario: both pairs quoted against USD; EUR->AUD goes through
	// the shared pivot.
	quotes := map[string]float64{"AUD/USD": 0.80, "EUR/USD": 1.20}

	r, err := Rate(types.EUR, types.AUD, types.PriceBid, quotes, quotes)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if !almostEqual(r, 1.5) {
		t.Errorf("rate(EUR, AUD) = %v, want 1.5", r)
	}
}

func TestRateReciprocalProperty(t *testing.T) {
	t.Parallel()
	quotes := map[string]float64{"AUD/USD": 0.80, "EUR/USD": 1.20, "GBP/USD": 1.30}

	pairs := [][2]types.Currency{
		{types.EUR, types.AUD},
		{types.GBP, types.EUR},
		{types.USD, types.GBP},
	}
	for _, pr := range pairs {
		ab, err := Rate(pr[0], pr[1], types.PriceBid, quotes, quotes)
		if err != nil {
			t.Fatalf("rate: %v", err)
		}
		ba, err := Rate(pr[1], pr[0], types.PriceBid, quotes, quotes)
		if err != nil {
			t.Fatalf("rate: %v", err)
		}
		if ab == 0 || ba == 0 {
			t.Fatalf("rate %s/%s unresolved", pr[0], pr[1])
		}
		if !almostEqual(ab*ba, 1.0) {
			t.Errorf("rate(%s,%s) * rate(%s,%s) = %v, want 1", pr[0], pr[1], pr[1], pr[0], ab*ba)
		}
	}
}

func TestRateInsufficientData(t *testing.T) {
	t.Parallel()
	quotes := map[string]float64{"EUR/USD": 1.20}

	r, err := Rate(types.EUR, types.JPY, types.PriceBid, quotes, quotes)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r != 0 {
		t.Errorf("unresolvable rate = %v, want 0", r)
	}
}

func TestRateNoTransitiveClosure(t *testing.T) {
	t.Parallel()
	// CHF is three pivots away from AUD: AUD/NZD, NZD/USD, EUR/USD, EUR/CHF.
	// A single pivot pass cannot bridge it; the rate stays 0.
	quotes := map[string]float64{"AUD/NZD": 1.07, "NZD/USD": 0.60, "EUR/USD": 1.20, "EUR/CHF": 0.95}

	r, err := Rate(types.AUD, types.CHF, types.PriceBid, quotes, quotes)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if r != 0 {
		t.Errorf("three-pivot rate = %v, want 0 (one pivot pass only)", r)
	}
}

func TestRatePreconditions(t *testing.T) {
	t.Parallel()

	if _, err := Rate(types.EUR, types.USD, types.PriceLast, nil, nil); err == nil {
		t.Error("LAST price type should fail")
	}
	if _, err := Rate(types.EUR, types.USD, types.PriceUndefined, nil, nil); err == nil {
		t.Error("UNDEFINED price type should fail")
	}
	if _, err := Rate(types.EUR, types.USD, types.PriceBid,
		map[string]float64{"EUR/USD": 1.2}, map[string]float64{"EUR/GBP": 0.9}); err == nil {
		t.Error("mismatched key sets should fail")
	}
}
