package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan metrics
	Scans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_scans_total",
			Help: "Total number of scans run",
		},
		[]string{"mode", "status"}, // single/range, found/none/error
	)

	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbscan_scan_duration_seconds",
			Help:    "Duration of scans including feed load",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"mode"},
	)

	// Opportunity metrics
	Opportunities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_opportunities_total",
			Help: "Total number of arbitrage opportunities found",
		},
		[]string{"market"}, // moneyline, spread, over_under
	)

	MarketsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_markets_skipped_total",
			Help: "Total number of game markets evaluated without an opportunity",
		},
		[]string{"reason"}, // no_quotes, bad_odds, no_arbitrage, same_book
	)

	// Values below 1 are opportunities; the low buckets show how thin the edge is
	ImpliedVolatility = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arbscan_implied_volatility",
			Help:    "Distribution of implied volatility for detected opportunities",
			Buckets: []float64{.9, .95, .97, .98, .99, .995, 1},
		},
	)

	// Feed metrics
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_feed_requests_total",
			Help: "Total number of quote feed loads",
		},
		[]string{"source", "status"}, // csv/mysql/http, success/error
	)

	FeedRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "arbscan_feed_request_duration_seconds",
			Help:    "Duration of quote feed loads",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	// Report metrics
	ReportsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_reports_sent_total",
			Help: "Total number of opportunity reports sent",
		},
		[]string{"status", "type"}, // success/error, discord/smtp/log
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbscan_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordScan records a finished scan
func RecordScan(mode, status string, duration time.Duration) {
	Scans.WithLabelValues(mode, status).Inc()
	ScanDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordOpportunity records a detected opportunity and its implied volatility
func RecordOpportunity(market string, iv float64) {
	Opportunities.WithLabelValues(market).Inc()
	ImpliedVolatility.Observe(iv)
}

// RecordSkippedMarket records a game market that produced no opportunity
func RecordSkippedMarket(reason string) {
	MarketsSkipped.WithLabelValues(reason).Inc()
}

// RecordFeedRequest records quote feed load metrics
func RecordFeedRequest(source string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	FeedRequests.WithLabelValues(source, status).Inc()
	FeedRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordReport records a report delivery attempt
func RecordReport(sendStatus, senderType string) {
	ReportsSent.WithLabelValues(sendStatus, senderType).Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
