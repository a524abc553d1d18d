package scanner

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/liamashdown/arbscan/internal/arbitrage"
	"github.com/liamashdown/arbscan/internal/feed"
	"github.com/liamashdown/arbscan/internal/market"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySource struct {
	mu     sync.Mutex
	quotes []market.RawQuote
	ranges []feed.DateRange
	err    error
}

func (m *memorySource) LoadQuotes(ctx context.Context, r feed.DateRange) ([]market.RawQuote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ranges = append(m.ranges, r)
	if m.err != nil {
		return nil, m.err
	}
	var out []market.RawQuote
	for _, q := range m.quotes {
		if r.Contains(q.GameDate) {
			out = append(out, q)
		}
	}
	return out, nil
}

func ml(book, game, date string, p1, p2 float64) market.RawQuote {
	return market.RawQuote{
		BookName:  book,
		GameID:    game,
		Matchup:   game + " matchup",
		GameDate:  date,
		Moneyline: market.PricePair{Price1: market.Price(p1), Price2: market.Price(p2)},
	}
}

func sp(book, game, date string, p1, p2 float64) market.RawQuote {
	return market.RawQuote{
		BookName: book,
		GameID:   game,
		Matchup:  game + " matchup",
		GameDate: date,
		Spread:   market.PricePair{Price1: market.Price(p1), Price2: market.Price(p2)},
	}
}

// fixture:
//
//	2023-10-24 g1 moneyline arbitrage across two books, g2 no arbitrage
//	2023-10-25 g3 no arbitrage
//	2023-10-26 g4 spread arbitrage at a single book
func fixture() []market.RawQuote {
	return []market.RawQuote{
		ml("bovada", "g1", "2023-10-24", 150, -200),
		ml("pinnacle", "g1", "2023-10-24", -110, 110),
		ml("bovada", "g2", "2023-10-24", 150, -200),
		ml("fanduel", "g2", "2023-10-24", -110, -200),
		ml("bovada", "g3", "2023-10-25", -120, 100),
		sp("draftkings", "g4", "2023-10-26", 105, 105),
		{BookName: "draftkings", GameID: "g4", GameDate: "2023-10-26"},
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newScanner(t *testing.T, src feed.Source, mutate func(*Options)) *Scanner {
	t.Helper()
	opts := Options{Strategy: "unbiased", TargetPayout: 100, Workers: 3}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(src, opts, quietLogger())
	require.NoError(t, err)
	return s
}

func TestRunSingleDate(t *testing.T) {
	src := &memorySource{quotes: fixture()}
	s := newScanner(t, src, nil)

	report, err := s.RunSingleDate(context.Background(), "2023-10-24")
	require.NoError(t, err)

	require.Len(t, report, 1)
	require.Contains(t, report, "g1")
	require.Len(t, report["g1"], 1)

	opp := report["g1"][market.Moneyline]
	assert.Equal(t, "bovada", opp.Win.Book)
	assert.Equal(t, "pinnacle", opp.Loss.Book)
	assert.InDelta(t, 2.5, opp.Win.Odds, 1e-9)
	assert.InDelta(t, 2.1, opp.Loss.Odds, 1e-9)
	assert.InDelta(t, 0.876190, opp.ImpliedVolatility, 1e-6)
	assert.Equal(t, 40.0, opp.Win.Stake)
	assert.Equal(t, 47.62, opp.Loss.Stake)
	assert.Equal(t, "2023-10-24", opp.GameDate)

	assert.Equal(t, []feed.DateRange{feed.Day("2023-10-24")}, src.ranges)
}

func TestRunSingleDateNoOpportunity(t *testing.T) {
	s := newScanner(t, &memorySource{quotes: fixture()}, nil)

	for _, date := range []string{"2023-10-25", "2023-12-01"} {
		report, err := s.RunSingleDate(context.Background(), date)
		assert.Nil(t, report)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoOpportunity))

		var noOpp *NoOpportunityError
		require.ErrorAs(t, err, &noOpp)
		assert.Equal(t, date, noOpp.Date)
	}
}

func TestRunSingleDateInvalidDate(t *testing.T) {
	src := &memorySource{quotes: fixture()}
	s := newScanner(t, src, nil)

	_, err := s.RunSingleDate(context.Background(), "24/10/2023")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoOpportunity))
	assert.Empty(t, src.ranges)
}

func TestRunSingleDateFeedError(t *testing.T) {
	feedErr := errors.New("feed offline")
	s := newScanner(t, &memorySource{err: feedErr}, nil)

	_, err := s.RunSingleDate(context.Background(), "2023-10-24")
	assert.ErrorIs(t, err, feedErr)
	assert.False(t, errors.Is(err, ErrNoOpportunity))
}

func TestSameBookHandling(t *testing.T) {
	src := &memorySource{quotes: fixture()}

	baseline := newScanner(t, src, nil)
	report, err := baseline.RunSingleDate(context.Background(), "2023-10-26")
	require.NoError(t, err)
	opp := report["g4"][market.Spread]
	assert.Equal(t, "draftkings", opp.Win.Book)
	assert.Equal(t, "draftkings", opp.Loss.Book)

	strict := newScanner(t, src, func(o *Options) { o.RequireDistinctBooks = true })
	_, err = strict.RunSingleDate(context.Background(), "2023-10-26")
	assert.ErrorIs(t, err, ErrNoOpportunity)
}

func TestRunDateRange(t *testing.T) {
	src := &memorySource{quotes: fixture()}
	s := newScanner(t, src, nil)

	result, err := s.RunDateRange(context.Background(), "2023-10-24", "2023-10-26")
	require.NoError(t, err)

	assert.Len(t, result, 2)
	assert.Contains(t, result, "2023-10-24")
	assert.Contains(t, result, "2023-10-26")
	assert.NotContains(t, result, "2023-10-25", "dates without opportunities are omitted")

	assert.Equal(t, []feed.DateRange{{Start: "2023-10-24", End: "2023-10-26"}}, src.ranges,
		"a range scan loads the feed once")
}

func TestRunDateRangeMatchesSingleDate(t *testing.T) {
	src := &memorySource{quotes: fixture()}
	s := newScanner(t, src, func(o *Options) { o.Workers = 1 })

	result, err := s.RunDateRange(context.Background(), "2023-10-01", "2023-10-31")
	require.NoError(t, err)

	for date, fromRange := range result {
		single, err := s.RunSingleDate(context.Background(), date)
		require.NoError(t, err)
		assert.Equal(t, single, fromRange, date)
	}
}

func TestRunDateRangeIsRepeatable(t *testing.T) {
	src := &memorySource{quotes: fixture()}
	s := newScanner(t, src, func(o *Options) { o.Workers = 8 })

	first, err := s.RunDateRange(context.Background(), "2023-10-24", "2023-10-26")
	require.NoError(t, err)
	second, err := s.RunDateRange(context.Background(), "2023-10-24", "2023-10-26")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRunDateRangeEmpty(t *testing.T) {
	s := newScanner(t, &memorySource{quotes: fixture()}, nil)

	result, err := s.RunDateRange(context.Background(), "2023-10-25", "2023-10-25")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestRunDateRangeRejectsInvertedRange(t *testing.T) {
	s := newScanner(t, &memorySource{quotes: fixture()}, nil)

	_, err := s.RunDateRange(context.Background(), "2023-10-26", "2023-10-24")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after end")
}

func TestBiasedStrategyFailsOnAllocation(t *testing.T) {
	s := newScanner(t, &memorySource{quotes: fixture()}, func(o *Options) { o.Strategy = "biased" })

	_, err := s.RunSingleDate(context.Background(), "2023-10-24")
	require.Error(t, err)
	var cfgErr *arbitrage.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, arbitrage.ErrStrategyUnavailable)

	_, err = s.RunDateRange(context.Background(), "2023-10-24", "2023-10-26")
	assert.ErrorIs(t, err, arbitrage.ErrStrategyUnavailable)

	// No allocation is attempted on a date without arbitrage
	_, err = s.RunSingleDate(context.Background(), "2023-10-25")
	assert.ErrorIs(t, err, ErrNoOpportunity)
}

func TestNewRejectsBadOptions(t *testing.T) {
	_, err := New(&memorySource{}, Options{Strategy: "kelly", TargetPayout: 100}, quietLogger())
	var cfgErr *arbitrage.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, arbitrage.ErrUnknownStrategy)

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"zero payout", Options{Strategy: "unbiased"}, "target payout"},
		{"negative payout", Options{Strategy: "unbiased", TargetPayout: -100}, "target payout"},
		{"infinite payout", Options{Strategy: "unbiased", TargetPayout: math.Inf(1)}, "target payout"},
		{"NaN payout", Options{Strategy: "unbiased", TargetPayout: math.NaN()}, "target payout"},
		{"negative bankroll", Options{Strategy: "unbiased", TargetPayout: 100, Bankroll: -1}, "bankroll"},
		{"infinite bankroll", Options{Strategy: "unbiased", TargetPayout: 100, Bankroll: math.Inf(1)}, "bankroll"},
		{"NaN bankroll", Options{Strategy: "unbiased", TargetPayout: 100, Bankroll: math.NaN()}, "bankroll"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(&memorySource{quotes: fixture()}, tt.opts, quietLogger())
			assert.Nil(t, s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReportCount(t *testing.T) {
	r := Report{
		"g1": {market.Moneyline: {}, market.Spread: {}},
		"g2": {market.OverUnder: {}},
	}
	assert.Equal(t, 3, r.Count())
}

func TestOpportunitiesOrdering(t *testing.T) {
	rr := RangeReport{
		"2023-10-26": {"g4": {market.Spread: {GameID: "g4", Market: market.Spread}}},
		"2023-10-24": {
			"g2": {market.OverUnder: {GameID: "g2", Market: market.OverUnder}},
			"g1": {
				market.Spread:    {GameID: "g1", Market: market.Spread},
				market.Moneyline: {GameID: "g1", Market: market.Moneyline},
			},
		},
	}

	var got []string
	for _, o := range rr.Opportunities() {
		got = append(got, o.GameID+"/"+string(o.Market))
	}
	assert.Equal(t, []string{"g1/moneyline", "g1/spread", "g2/over_under", "g4/spread"}, got)
}
