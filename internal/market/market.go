package market

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the layout of RawQuote.GameDate
const DateLayout = "2006-01-02"

// Market identifies a two-way wager type quoted independently per book
type Market string

const (
	Moneyline Market = "moneyline"
	Spread    Market = "spread"
	OverUnder Market = "over_under"
)

// All lists the supported markets in scan order
var All = []Market{Moneyline, Spread, OverUnder}

// Column returns the feed column prefix for the market (e.g. "ml_price")
func (m Market) Column() string {
	switch m {
	case Moneyline:
		return "ml_price"
	case Spread:
		return "sp_price"
	case OverUnder:
		return "ou_price"
	}
	return ""
}

// PricePair holds the two American-odds prices of one market. A nil price is missing.
type PricePair struct {
	Price1 *float64 `json:"price1"`
	Price2 *float64 `json:"price2"`
}

// Complete reports whether both sides carry a usable price
func (p PricePair) Complete() bool {
	return present(p.Price1) && present(p.Price2)
}

func present(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// RawQuote is one feed row: a single book's prices for one game
type RawQuote struct {
	BookName  string    `json:"book_name"`
	GameID    string    `json:"game_id"`
	Matchup   string    `json:"matchup"`
	GameDate  string    `json:"game_date"`
	Moneyline PricePair `json:"moneyline"`
	Spread    PricePair `json:"spread"`
	OverUnder PricePair `json:"over_under"`
}

// Prices returns the price pair quoted for m
func (q RawQuote) Prices(m Market) PricePair {
	switch m {
	case Moneyline:
		return q.Moneyline
	case Spread:
		return q.Spread
	case OverUnder:
		return q.OverUnder
	}
	return PricePair{}
}

// Odds is a decimal-odds pair derived from a PricePair
type Odds struct {
	Win  float64 `json:"win_odds"`
	Loss float64 `json:"loss_odds"`
}

// NormalizedQuote carries decimal odds for every market the raw row quoted in full
type NormalizedQuote struct {
	BookName string          `json:"book_name"`
	GameID   string          `json:"game_id"`
	Matchup  string          `json:"matchup"`
	GameDate string          `json:"game_date"`
	Odds     map[Market]Odds `json:"odds"`
}

// OddsFor returns the odds for m and whether the quote carries that market
func (q NormalizedQuote) OddsFor(m Market) (Odds, bool) {
	o, ok := q.Odds[m]
	return o, ok
}

// ParseDate validates a YYYY-MM-DD date and returns it in canonical form
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t.Format(DateLayout), nil
}

// Price is a helper for building optional prices
func Price(v float64) *float64 {
	return &v
}
