// Package scanner runs the arbitrage pipeline over every game on a date, or
// over each date of a range.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/liamashdown/arbscan/internal/arbitrage"
	"github.com/liamashdown/arbscan/internal/feed"
	"github.com/liamashdown/arbscan/internal/market"
	"github.com/liamashdown/arbscan/internal/metrics"
	"github.com/liamashdown/arbscan/internal/odds"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ErrNoOpportunity signals that a date produced no opportunity in any game or market
var ErrNoOpportunity = errors.New("no arbitrage opportunity")

// NoOpportunityError carries the date that came up empty
type NoOpportunityError struct {
	Date string
}

func (e *NoOpportunityError) Error() string {
	return fmt.Sprintf("%v on %s", ErrNoOpportunity, e.Date)
}

func (e *NoOpportunityError) Unwrap() error {
	return ErrNoOpportunity
}

// Report maps game ID -> market -> opportunity for one date
type Report map[string]map[market.Market]arbitrage.Opportunity

// Count returns the number of opportunities in the report
func (r Report) Count() int {
	n := 0
	for _, markets := range r {
		n += len(markets)
	}
	return n
}

// Opportunities flattens the report ordered by game ID then market
func (r Report) Opportunities() []arbitrage.Opportunity {
	games := make([]string, 0, len(r))
	for id := range r {
		games = append(games, id)
	}
	sort.Strings(games)

	var out []arbitrage.Opportunity
	for _, id := range games {
		for _, m := range market.All {
			if opp, ok := r[id][m]; ok {
				out = append(out, opp)
			}
		}
	}
	return out
}

// RangeReport maps game date -> Report. Dates without opportunities are absent.
type RangeReport map[string]Report

// Opportunities flattens the range report ordered by date
func (rr RangeReport) Opportunities() []arbitrage.Opportunity {
	dates := make([]string, 0, len(rr))
	for d := range rr {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	var out []arbitrage.Opportunity
	for _, d := range dates {
		out = append(out, rr[d].Opportunities()...)
	}
	return out
}

// Options configures a Scanner
type Options struct {
	Strategy             string
	TargetPayout         float64
	Bankroll             float64
	RequireDistinctBooks bool
	Workers              int
}

// Scanner orchestrates normalization, selection, testing and allocation
type Scanner struct {
	source  feed.Source
	engine  arbitrage.Engine
	workers int
	log     *logrus.Logger
}

// New creates a scanner reading from source. An unknown strategy name is a
// *arbitrage.ConfigurationError; the biased strategy is accepted here and
// fails on its first allocation.
func New(source feed.Source, opts Options, log *logrus.Logger) (*Scanner, error) {
	strategy, err := arbitrage.ParseStrategy(opts.Strategy)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(opts.TargetPayout) || math.IsInf(opts.TargetPayout, 0) || opts.TargetPayout <= 0 {
		return nil, fmt.Errorf("target payout must be a positive finite number, got %v", opts.TargetPayout)
	}
	if math.IsNaN(opts.Bankroll) || math.IsInf(opts.Bankroll, 0) || opts.Bankroll < 0 {
		return nil, fmt.Errorf("bankroll must be a non-negative finite number, got %v", opts.Bankroll)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	log.WithFields(logrus.Fields{
		"strategy":               strategy.String(),
		"target_payout":          opts.TargetPayout,
		"bankroll":               opts.Bankroll,
		"require_distinct_books": opts.RequireDistinctBooks,
		"workers":                workers,
	}).Info("Scanner configured")

	return &Scanner{
		source: source,
		engine: arbitrage.Engine{
			Tester:       arbitrage.Tester{RequireDistinctBooks: opts.RequireDistinctBooks},
			Strategy:     strategy,
			TargetPayout: opts.TargetPayout,
		},
		workers: workers,
		log:     log,
	}, nil
}

// RunSingleDate scans every game on date. A date with no opportunity returns
// a *NoOpportunityError; allocation errors are returned unchanged.
func (s *Scanner) RunSingleDate(ctx context.Context, date string) (report Report, err error) {
	start := time.Now()
	defer func() { metrics.RecordScan("single", scanStatus(err), time.Since(start)) }()

	date, err = market.ParseDate(date)
	if err != nil {
		return nil, err
	}

	quotes, err := s.source.LoadQuotes(ctx, feed.Day(date))
	if err != nil {
		return nil, fmt.Errorf("load quotes for %s: %w", date, err)
	}

	report, err = s.scanDate(odds.Normalize(quotes), date)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"date":          date,
		"games":         len(report),
		"opportunities": report.Count(),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Single-date scan complete")

	return report, nil
}

// RunDateRange scans each date in [startDate, endDate] that appears in the
// feed. All dates read one normalized snapshot and run concurrently. Dates
// with no opportunity are left out; any other error aborts the range.
func (s *Scanner) RunDateRange(ctx context.Context, startDate, endDate string) (result RangeReport, err error) {
	start := time.Now()
	defer func() {
		status := scanStatus(err)
		if err == nil && len(result) == 0 {
			status = "none"
		}
		metrics.RecordScan("range", status, time.Since(start))
	}()

	if startDate, err = market.ParseDate(startDate); err != nil {
		return nil, err
	}
	if endDate, err = market.ParseDate(endDate); err != nil {
		return nil, err
	}
	if startDate > endDate {
		return nil, fmt.Errorf("range start %s is after end %s", startDate, endDate)
	}

	quotes, err := s.source.LoadQuotes(ctx, feed.DateRange{Start: startDate, End: endDate})
	if err != nil {
		return nil, fmt.Errorf("load quotes for %s..%s: %w", startDate, endDate, err)
	}
	snapshot := odds.Normalize(quotes)
	dates := distinctDates(snapshot, feed.DateRange{Start: startDate, End: endDate})

	result = make(RangeReport)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, date := range dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.scanDate(snapshot, date)
			if errors.Is(err, ErrNoOpportunity) {
				s.log.WithField("date", date).Debug("No opportunity for date")
				return nil
			}
			if err != nil {
				return fmt.Errorf("scan %s: %w", date, err)
			}

			mu.Lock()
			result[date] = report
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"start":         startDate,
		"end":           endDate,
		"dates_scanned": len(dates),
		"dates_found":   len(result),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Info("Range scan complete")

	return result, nil
}

// scanDate evaluates every game and market on date. table is never modified.
func (s *Scanner) scanDate(table []market.NormalizedQuote, date string) (Report, error) {
	report := make(Report)
	for _, game := range groupGames(table, date) {
		for _, m := range market.All {
			opp, verdict, err := s.engine.Evaluate(game.quotes, m)
			if err != nil {
				return nil, err
			}
			if opp == nil {
				metrics.RecordSkippedMarket(string(verdict))
				s.log.WithFields(logrus.Fields{
					"date":    date,
					"game_id": game.id,
					"market":  m,
					"reason":  verdict,
				}).Debug("Market skipped")
				continue
			}

			metrics.RecordOpportunity(string(m), opp.ImpliedVolatility)
			if report[game.id] == nil {
				report[game.id] = make(map[market.Market]arbitrage.Opportunity)
			}
			report[game.id][m] = *opp
		}
	}

	if len(report) == 0 {
		return nil, &NoOpportunityError{Date: date}
	}
	return report, nil
}

type game struct {
	id     string
	quotes []market.NormalizedQuote
}

// groupGames collects the quotes for date by game, keeping feed order inside each game
func groupGames(table []market.NormalizedQuote, date string) []game {
	index := make(map[string]int)
	var games []game
	for _, q := range table {
		if q.GameDate != date {
			continue
		}
		i, ok := index[q.GameID]
		if !ok {
			i = len(games)
			index[q.GameID] = i
			games = append(games, game{id: q.GameID})
		}
		games[i].quotes = append(games[i].quotes, q)
	}
	return games
}

func distinctDates(table []market.NormalizedQuote, r feed.DateRange) []string {
	seen := make(map[string]struct{})
	var dates []string
	for _, q := range table {
		if !r.Contains(q.GameDate) {
			continue
		}
		if _, ok := seen[q.GameDate]; ok {
			continue
		}
		seen[q.GameDate] = struct{}{}
		dates = append(dates, q.GameDate)
	}
	sort.Strings(dates)
	return dates
}

func scanStatus(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, ErrNoOpportunity):
		return "none"
	}
	return "error"
}
