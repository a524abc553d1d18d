package httpfeed

import (
	"github.com/liamashdown/arbscan/internal/feed"
	"github.com/liamashdown/arbscan/internal/market"
)

// QuoteRow is one row of the /quotes response. Prices are American odds;
// null or absent prices are missing.
type QuoteRow struct {
	BookName string   `json:"book_name"`
	GameID   string   `json:"game_id"`
	Matchup  string   `json:"matchup"`
	GameDate string   `json:"game_date"` // YYYY-MM-DD, datetime, or RFC3339
	MLPrice1 *float64 `json:"ml_price1"`
	MLPrice2 *float64 `json:"ml_price2"`
	SPPrice1 *float64 `json:"sp_price1"`
	SPPrice2 *float64 `json:"sp_price2"`
	OUPrice1 *float64 `json:"ou_price1"`
	OUPrice2 *float64 `json:"ou_price2"`
}

// RawQuote converts the row, normalizing its game date
func (r QuoteRow) RawQuote() (market.RawQuote, error) {
	date, err := feed.NormalizeDate(r.GameDate)
	if err != nil {
		return market.RawQuote{}, err
	}
	return market.RawQuote{
		BookName:  r.BookName,
		GameID:    r.GameID,
		Matchup:   r.Matchup,
		GameDate:  date,
		Moneyline: market.PricePair{Price1: r.MLPrice1, Price2: r.MLPrice2},
		Spread:    market.PricePair{Price1: r.SPPrice1, Price2: r.SPPrice2},
		OverUnder: market.PricePair{Price1: r.OUPrice1, Price2: r.OUPrice2},
	}, nil
}

// ErrorResponse is the body the feed returns on failures
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
