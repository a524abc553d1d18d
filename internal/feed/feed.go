// Package feed defines where raw quotes come from and provides a CSV reader.
package feed

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/liamashdown/arbscan/internal/market"
)

// Columns is the tabular layout every source exposes
var Columns = []string{
	"book_name", "game_id", "matchup", "game_date",
	"ml_price1", "ml_price2", "sp_price1", "sp_price2", "ou_price1", "ou_price2",
}

// DateRange bounds a load by game date, inclusive. Empty bounds are open.
type DateRange struct {
	Start string
	End   string
}

// Contains reports whether date falls inside the range
func (r DateRange) Contains(date string) bool {
	if r.Start != "" && date < r.Start {
		return false
	}
	if r.End != "" && date > r.End {
		return false
	}
	return true
}

// Day is the range covering a single date
func Day(date string) DateRange {
	return DateRange{Start: date, End: date}
}

// Source supplies raw quotes read-only
type Source interface {
	LoadQuotes(ctx context.Context, r DateRange) ([]market.RawQuote, error)
}

var dateLayouts = []string{
	market.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// NormalizeDate accepts the date shapes loaders emit and returns YYYY-MM-DD
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(market.DateLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognised game_date %q", s)
}

// ParsePrice parses an American price cell. Blank and NA-style cells are missing.
func ParsePrice(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null", "none":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", s, err)
	}
	return &v, nil
}
