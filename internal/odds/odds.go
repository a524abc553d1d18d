// Package odds converts raw American prices into comparable decimal odds.
package odds

import (
	"github.com/liamashdown/arbscan/internal/market"
)

// AmericanToDecimal converts an American price to a decimal payout multiplier.
// +150 -> 2.50, -200 -> 1.50
func AmericanToDecimal(american float64) float64 {
	if american >= 0 {
		return 1 + american/100
	}
	return 1 - 100/american
}

// NormalizeMarket returns one NormalizedQuote per row quoting m in full.
// Each result carries only the odds for m. Rows with a missing side are dropped.
func NormalizeMarket(quotes []market.RawQuote, m market.Market) []market.NormalizedQuote {
	var out []market.NormalizedQuote
	for _, q := range quotes {
		o, ok := convert(q.Prices(m))
		if !ok {
			continue
		}
		nq := identity(q)
		nq.Odds[m] = o
		out = append(out, nq)
	}
	return out
}

// Normalize builds the combined quote table: every market a row quotes in
// full sits side by side in its Odds map. Rows with no complete market are
// excluded. The input is not modified.
func Normalize(quotes []market.RawQuote) []market.NormalizedQuote {
	out := make([]market.NormalizedQuote, 0, len(quotes))
	for _, q := range quotes {
		nq := identity(q)
		for _, m := range market.All {
			if o, ok := convert(q.Prices(m)); ok {
				nq.Odds[m] = o
			}
		}
		if len(nq.Odds) == 0 {
			continue
		}
		out = append(out, nq)
	}
	return out
}

func convert(p market.PricePair) (market.Odds, bool) {
	if !p.Complete() {
		return market.Odds{}, false
	}
	return market.Odds{
		Win:  AmericanToDecimal(*p.Price1),
		Loss: AmericanToDecimal(*p.Price2),
	}, true
}

func identity(q market.RawQuote) market.NormalizedQuote {
	return market.NormalizedQuote{
		BookName: q.BookName,
		GameID:   q.GameID,
		Matchup:  q.Matchup,
		GameDate: q.GameDate,
		Odds:     make(map[market.Market]market.Odds, len(market.All)),
	}
}
