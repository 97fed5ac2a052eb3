// Package xrate resolves cross-currency exchange rates from a set of
// quoted pairs, and feeds FX quotes into the platform from a REST source.
//
// The calculator infers a directed rate graph from pair codes like
// "EUR/USD" and closes it under inversion and a single common pivot. It
// deliberately does not compute a full transitive closure: a currency
// reachable only through two or more intermediate pivots resolves to 0
// (insufficient data).
package xrate

import (
	"fmt"
	"sort"
	"strings"

	"tradecore/pkg/types"
)

// Rate resolves the exchange rate from one currency to another.
//
// bidQuotes and askQuotes map pair codes ("LHS/RHS") to quoted rates and
// must share the same key set. priceType selects the side: BID, ASK, or
// MID ((bid+ask)/2). Returns 0 when the graph has insufficient data;
// precondition violations return an error.
func Rate(from, to types.Currency, priceType types.PriceType, bidQuotes, askQuotes map[string]float64) (float64, error) {
	if priceType == types.PriceUndefined || priceType == types.PriceLast {
		return 0, fmt.Errorf("xrate: invalid price type %s", priceType)
	}
	if len(bidQuotes) != len(askQuotes) {
		return 0, fmt.Errorf("xrate: bid and ask quotes have different pairs")
	}
	for k := range bidQuotes {
		if _, ok := askQuotes[k]; !ok {
			return 0, fmt.Errorf("xrate: pair %q missing from ask quotes", k)
		}
	}

	if from.Equal(to) {
		return 1.0, nil
	}

	// Select the effective quote per pair.
	quotes := make(map[string]float64, len(bidQuotes))
	for pair, bid := range bidQuotes {
		switch priceType {
		case types.PriceBid:
			quotes[pair] = bid
		case types.PriceAsk:
			quotes[pair] = askQuotes[pair]
		case types.PriceMid:
			quotes[pair] = (bid + askQuotes[pair]) / 2
		}
	}

	// Build the directed rate graph from the pair codes.
	rates := make(map[string]map[string]float64)
	set := func(a, b string, r float64) {
		m, ok := rates[a]
		if !ok {
			m = make(map[string]float64)
			rates[a] = m
		}
		m[b] = r
	}
	for pair, q := range quotes {
		lhs, rhs, ok := strings.Cut(pair, "/")
		if !ok || lhs == "" || rhs == "" {
			return 0, fmt.Errorf("xrate: malformed pair code %q", pair)
		}
		set(lhs, rhs, q)
		set(lhs, lhs, 1)
		set(rhs, rhs, 1)
	}

	codes := make([]string, 0, len(rates))
	for c := range rates {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	// Close under inversion.
	for _, a := range codes {
		for _, b := range codes {
			if r, ok := rates[a][b]; ok && r != 0 {
				if _, ok := rates[b][a]; !ok {
					set(b, a, 1/r)
				}
			}
		}
	}

	// Close under a single common pivot. Lookups go against a snapshot of
	// the post-inversion graph so the pass cannot cascade into a
	// transitive closure.
	snapshot := make(map[string]map[string]float64, len(rates))
	for a, m := range rates {
		cp := make(map[string]float64, len(m))
		for b, r := range m {
			cp[b] = r
		}
		snapshot[a] = cp
	}
	for _, a := range codes {
		for _, b := range codes {
			if a == b {
				continue
			}
			if _, ok := rates[a][b]; ok {
				continue
			}
			for _, c := range codes {
				if ac, ok1 := snapshot[a][c]; ok1 {
					if bc, ok2 := snapshot[b][c]; ok2 && bc != 0 {
						set(a, b, ac/bc)
						if _, ok := rates[b][a]; !ok && ac != 0 {
							set(b, a, bc/ac)
						}
						break
					}
				}
				if ca, ok1 := snapshot[c][a]; ok1 && ca != 0 {
					if cb, ok2 := snapshot[c][b]; ok2 {
						set(a, b, cb/ca)
						if _, ok := rates[b][a]; !ok && cb != 0 {
							set(b, a, ca/cb)
						}
						break
					}
				}
			}
		}
	}

	if r, ok := rates[from.Code][to.Code]; ok {
		return r, nil
	}
	return 0, nil
}
