// Package arbitrage picks the best prices for a game's market, tests them for
// a risk-free two-way arbitrage and sizes the stakes.
package arbitrage

import (
	"math"

	"github.com/liamashdown/arbscan/internal/market"
)

// Leg is one side of an opportunity
type Leg struct {
	Book  string  `json:"book"`
	Odds  float64 `json:"odds"`
	Stake float64 `json:"stake"`
}

// Opportunity is a confirmed arbitrage for one game and market
type Opportunity struct {
	GameID            string        `json:"game_id"`
	Matchup           string        `json:"matchup"`
	GameDate          string        `json:"game_date"`
	Market            market.Market `json:"market"`
	Win               Leg           `json:"win"`
	Loss              Leg           `json:"loss"`
	ImpliedVolatility float64       `json:"implied_volatility"`
	ProfitMargin      float64       `json:"profit_margin_pct"`
	TargetPayout      float64       `json:"target_payout"`
}

// TotalStake is the money committed across both legs
func (o Opportunity) TotalStake() float64 {
	return o.Win.Stake + o.Loss.Stake
}

// SelectBest picks, independently, the quote with the highest win odds and the
// quote with the highest loss odds for m. Ties keep the earliest quote.
// ok is false when no quote carries m.
func SelectBest(quotes []market.NormalizedQuote, m market.Market) (win, loss market.NormalizedQuote, ok bool) {
	bestWin, bestLoss := -1, -1
	var winOdds, lossOdds float64
	for i, q := range quotes {
		o, has := q.OddsFor(m)
		if !has {
			continue
		}
		if bestWin < 0 || o.Win > winOdds {
			bestWin, winOdds = i, o.Win
		}
		if bestLoss < 0 || o.Loss > lossOdds {
			bestLoss, lossOdds = i, o.Loss
		}
	}
	if bestWin < 0 {
		return market.NormalizedQuote{}, market.NormalizedQuote{}, false
	}
	return quotes[bestWin], quotes[bestLoss], true
}

// ImpliedVolatility is the sum of the reciprocals of both sides' decimal odds
func ImpliedVolatility(winOdds, lossOdds float64) float64 {
	return 1/winOdds + 1/lossOdds
}

// ProfitMargin is the locked-in return, in percent, implied by iv
func ProfitMargin(iv float64) float64 {
	return (1 - iv) * 100
}

// usableOdds reports whether a decimal price can enter the IV sum
func usableOdds(o float64) bool {
	return o > 0 && !math.IsNaN(o) && !math.IsInf(o, 0)
}

// Verdict explains the outcome of a single arbitrage test
type Verdict string

const (
	VerdictArbitrage   Verdict = "arbitrage"
	VerdictNoQuotes    Verdict = "no_quotes"
	VerdictBadOdds     Verdict = "bad_odds"
	VerdictNoArbitrage Verdict = "no_arbitrage"
	VerdictSameBook    Verdict = "same_book"
)

// Tester decides whether a selected pair is a genuine opportunity.
// With RequireDistinctBooks both legs must come from different books.
type Tester struct {
	RequireDistinctBooks bool
}

// Check runs the test and returns the IV alongside the verdict
func (t Tester) Check(winBook string, winOdds float64, lossBook string, lossOdds float64) (float64, Verdict) {
	if !usableOdds(winOdds) || !usableOdds(lossOdds) {
		return 0, VerdictBadOdds
	}
	iv := ImpliedVolatility(winOdds, lossOdds)
	if !t.IsArbitrage(winBook, lossBook, iv) {
		if iv < 1 {
			return iv, VerdictSameBook
		}
		return iv, VerdictNoArbitrage
	}
	return iv, VerdictArbitrage
}

// IsArbitrage applies the strict IV < 1 rule, plus the book check when enabled
func (t Tester) IsArbitrage(winBook, lossBook string, iv float64) bool {
	if !(iv < 1) {
		return false
	}
	if t.RequireDistinctBooks && winBook == lossBook {
		return false
	}
	return true
}

// Engine runs selection, testing and allocation for one game's market
type Engine struct {
	Tester       Tester
	Strategy     Strategy
	TargetPayout float64
}

// Evaluate returns the opportunity for m among one game's quotes, or nil with
// the reason it was skipped. Allocation errors are returned as-is.
func (e Engine) Evaluate(quotes []market.NormalizedQuote, m market.Market) (*Opportunity, Verdict, error) {
	win, loss, ok := SelectBest(quotes, m)
	if !ok {
		return nil, VerdictNoQuotes, nil
	}
	winOdds := win.Odds[m].Win
	lossOdds := loss.Odds[m].Loss

	iv, verdict := e.Tester.Check(win.BookName, winOdds, loss.BookName, lossOdds)
	if verdict != VerdictArbitrage {
		return nil, verdict, nil
	}

	alloc, err := e.Strategy.Allocate(winOdds, lossOdds, e.TargetPayout)
	if err != nil {
		return nil, verdict, err
	}

	return &Opportunity{
		GameID:            win.GameID,
		Matchup:           win.Matchup,
		GameDate:          win.GameDate,
		Market:            m,
		Win:               Leg{Book: win.BookName, Odds: winOdds, Stake: alloc.Win},
		Loss:              Leg{Book: loss.BookName, Odds: lossOdds, Stake: alloc.Loss},
		ImpliedVolatility: iv,
		ProfitMargin:      ProfitMargin(iv),
		TargetPayout:      e.TargetPayout,
	}, verdict, nil
}
