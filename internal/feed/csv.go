package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/liamashdown/arbscan/internal/market"
	"github.com/liamashdown/arbscan/internal/metrics"
)

// CSVSource reads quotes from a CSV export of the feed. The file is re-read on
// every load so each scan sees the current contents.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source backed by the file at path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// LoadQuotes reads every row inside r
func (s *CSVSource) LoadQuotes(ctx context.Context, r DateRange) (quotes []market.RawQuote, err error) {
	start := time.Now()
	defer func() { metrics.RecordFeedRequest("csv", time.Since(start), err) }()

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	return ReadCSV(ctx, f, r)
}

// ReadCSV parses a header-led quote table. Extra columns are ignored.
func ReadCSV(ctx context.Context, in io.Reader, r DateRange) ([]market.RawQuote, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range Columns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var quotes []market.RawQuote
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		q, err := parseRecord(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !r.Contains(q.GameDate) {
			continue
		}
		quotes = append(quotes, q)
	}

	return quotes, nil
}

func parseRecord(record []string, index map[string]int) (market.RawQuote, error) {
	cell := func(col string) string {
		i := index[col]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	date, err := NormalizeDate(cell("game_date"))
	if err != nil {
		return market.RawQuote{}, err
	}

	q := market.RawQuote{
		BookName: strings.TrimSpace(cell("book_name")),
		GameID:   strings.TrimSpace(cell("game_id")),
		Matchup:  strings.TrimSpace(cell("matchup")),
		GameDate: date,
	}

	pairs := []*market.PricePair{&q.Moneyline, &q.Spread, &q.OverUnder}
	for i, m := range market.All {
		p1, err := ParsePrice(cell(m.Column() + "1"))
		if err != nil {
			return market.RawQuote{}, err
		}
		p2, err := ParsePrice(cell(m.Column() + "2"))
		if err != nil {
			return market.RawQuote{}, err
		}
		*pairs[i] = market.PricePair{Price1: p1, Price2: p2}
	}

	return q, nil
}
