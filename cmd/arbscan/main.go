package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/liamashdown/arbscan/internal/alerts"
	"github.com/liamashdown/arbscan/internal/arbitrage"
	"github.com/liamashdown/arbscan/internal/config"
	"github.com/liamashdown/arbscan/internal/feed"
	"github.com/liamashdown/arbscan/internal/feed/httpfeed"
	"github.com/liamashdown/arbscan/internal/market"
	"github.com/liamashdown/arbscan/internal/metrics"
	"github.com/liamashdown/arbscan/internal/scanner"
	"github.com/liamashdown/arbscan/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type options struct {
	date    string
	from    string
	to      string
	json    bool
	watch   bool
	migrate bool
	seed    string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("arbscan", flag.ContinueOnError)
	fs.StringVar(&opts.date, "date", "", "scan a single game date (YYYY-MM-DD)")
	fs.StringVar(&opts.from, "from", "", "range scan start date (YYYY-MM-DD, inclusive)")
	fs.StringVar(&opts.to, "to", "", "range scan end date (YYYY-MM-DD, inclusive)")
	fs.BoolVar(&opts.json, "json", false, "print the report as JSON on stdout instead of sending it")
	fs.BoolVar(&opts.watch, "watch", false, "rescan today's games every WATCH_INTERVAL_SEC and serve /health and /metrics")
	fs.BoolVar(&opts.migrate, "migrate", false, "create the quotes table in the feed database (mysql feed only)")
	fs.StringVar(&opts.seed, "seed", "", "import a CSV quote export into the feed database, then exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	ranged := opts.from != "" || opts.to != ""
	switch {
	case opts.seed != "":
	case ranged && (opts.from == "" || opts.to == ""):
		return opts, fmt.Errorf("-from and -to must be given together")
	case ranged && opts.date != "":
		return opts, fmt.Errorf("-date cannot be combined with -from/-to")
	case opts.watch && (ranged || opts.date != ""):
		return opts, fmt.Errorf("-watch always scans today; drop -date/-from/-to")
	case !opts.watch && !ranged && opts.date == "":
		return opts, fmt.Errorf("one of -date, -from/-to, -watch or -seed is required")
	}
	return opts, nil
}

func main() {
	// Initialize logger
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("Invalid arguments")
	}
	if opts.json {
		// Keep stdout for the report
		log.SetOutput(os.Stderr)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	log.WithFields(logrus.Fields{
		"environment":            cfg.Environment,
		"feed_source":            cfg.FeedSource,
		"strategy":               cfg.Strategy,
		"target_payout":          cfg.TargetPayout,
		"require_distinct_books": cfg.RequireDistinctBooks,
		"alert_mode":             cfg.AlertMode,
	}).Info("Configuration loaded")

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.seed != "" {
		if err := seedDatabase(ctx, cfg, opts.seed, log); err != nil {
			log.WithError(err).Fatal("Failed to seed feed database")
		}
		return
	}

	source, closeSource, err := buildSource(cfg, opts.migrate, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize quote feed")
	}
	defer closeSource()

	scan, err := scanner.New(source, scanner.Options{
		Strategy:             cfg.Strategy,
		TargetPayout:         cfg.TargetPayout,
		Bankroll:             cfg.Bankroll,
		RequireDistinctBooks: cfg.RequireDistinctBooks,
		Workers:              cfg.ScanWorkers,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize scanner")
	}

	sender := createAlertSender(cfg, log)
	out := &reporter{cfg: cfg, sender: sender, json: opts.json, stdout: os.Stdout, log: log}

	switch {
	case opts.watch:
		var ready atomic.Bool
		go startHTTPServer(cfg.HealthPort, &ready, log)
		watch(ctx, scan, out, time.Duration(cfg.WatchIntervalSec)*time.Second, &ready, log)

	case opts.date != "":
		report, err := scan.RunSingleDate(ctx, opts.date)
		if err != nil {
			exitOnScanError(err, log)
			return
		}
		if err := out.emit(ctx, report, report.Opportunities()); err != nil {
			log.WithError(err).Fatal("Failed to deliver report")
		}

	default:
		result, err := scan.RunDateRange(ctx, opts.from, opts.to)
		if err != nil {
			exitOnScanError(err, log)
			return
		}
		if err := out.emit(ctx, result, result.Opportunities()); err != nil {
			log.WithError(err).Fatal("Failed to deliver report")
		}
	}
}

// exitOnScanError logs a no-opportunity result and exits cleanly; anything else is fatal
func exitOnScanError(err error, log *logrus.Logger) {
	if errors.Is(err, scanner.ErrNoOpportunity) {
		log.WithError(err).Info("No arbitrage opportunities found")
		return
	}
	var cfgErr *arbitrage.ConfigurationError
	if errors.As(err, &cfgErr) {
		log.WithError(err).WithField("strategy", cfgErr.Strategy).Fatal("Allocation strategy misconfigured")
	}
	log.WithError(err).Fatal("Scan failed")
}

// watch rescans today's games until ctx is done. ready flips once the first pass finishes.
func watch(ctx context.Context, scan *scanner.Scanner, out *reporter, interval time.Duration, ready *atomic.Bool, log *logrus.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.WithField("interval", interval.String()).Info("Starting watch loop")

	runOnce := func() {
		today := time.Now().UTC().Format(market.DateLayout)
		report, err := scan.RunSingleDate(ctx, today)
		switch {
		case errors.Is(err, scanner.ErrNoOpportunity):
			log.WithField("date", today).Debug("No opportunities this pass")
			return
		case err != nil:
			log.WithError(err).Error("Error scanning today's games")
			return
		}
		if err := out.emit(ctx, report, report.Opportunities()); err != nil {
			log.WithError(err).Error("Failed to deliver report")
		}
	}

	// Scan immediately on startup
	runOnce()
	ready.Store(true)

	for {
		select {
		case <-ticker.C:
			runOnce()
		case <-ctx.Done():
			log.Info("Received shutdown signal")
			log.Info("Graceful shutdown complete")
			return
		}
	}
}

// reporter either prints the report as JSON or sends each opportunity
type reporter struct {
	cfg    *config.Config
	sender alerts.Sender
	json   bool
	stdout io.Writer
	log    *logrus.Logger
}

func (r *reporter) emit(ctx context.Context, report interface{}, opps []arbitrage.Opportunity) error {
	if r.json {
		enc := json.NewEncoder(r.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	sent, err := alerts.SendAll(ctx, r.sender, opps, r.cfg.Strategy, r.cfg.Environment)
	r.log.WithField("sent", sent).Info("Opportunity report delivered")
	return err
}

func buildSource(cfg *config.Config, migrate bool, log *logrus.Logger) (feed.Source, func(), error) {
	switch cfg.FeedSource {
	case config.FeedSourceMySQL:
		db, err := storage.New(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := db.AutoMigrate(); err != nil {
				db.Close()
				return nil, nil, fmt.Errorf("run database migrations: %w", err)
			}
			log.Info("Database migrations complete")
		}
		return db, func() { db.Close() }, nil

	case config.FeedSourceHTTP:
		log.WithField("base_url", cfg.FeedHTTPBaseURL).Info("HTTP feed client initialized")
		return httpfeed.NewClient(cfg), func() {}, nil

	default:
		log.WithField("path", cfg.FeedCSVPath).Info("CSV feed initialized")
		return feed.NewCSVSource(cfg.FeedCSVPath), func() {}, nil
	}
}

func seedDatabase(ctx context.Context, cfg *config.Config, path string, log *logrus.Logger) error {
	db, err := storage.New(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}

	quotes, err := feed.NewCSVSource(path).LoadQuotes(ctx, feed.DateRange{})
	if err != nil {
		return err
	}
	if err := db.InsertQuotes(ctx, quotes); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"path": path,
		"rows": len(quotes),
	}).Info("Feed database seeded")
	return nil
}

func createAlertSender(cfg *config.Config, log *logrus.Logger) alerts.Sender {
	var senders []alerts.Sender

	for _, mode := range cfg.AlertModes() {
		switch mode {
		case "log":
			senders = append(senders, alerts.NewLogSender(log))
		case "discord":
			senders = append(senders, alerts.NewDiscordSender(cfg.DiscordWebhookURLs, cfg.DiscordRPS))
		case "smtp":
			senders = append(senders, alerts.NewSMTPSender(
				cfg.SMTPHost,
				cfg.SMTPPort,
				cfg.SMTPUser,
				cfg.SMTPPassword,
				cfg.SMTPFrom,
				cfg.SMTPTo,
			))
		default:
			log.WithField("mode", mode).Warn("Unknown alert mode, skipping")
		}
	}

	switch len(senders) {
	case 0:
		log.Warn("No valid alert senders configured, using log")
		return alerts.NewLogSender(log)
	case 1:
		return senders[0]
	}
	return alerts.NewMultiSender(senders...)
}

func newMux(ready *atomic.Bool) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy"}`)
	})

	// Not ready until the first watch pass has loaded the feed
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			metrics.RecordHealthCheck(false)
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, `{"status":"starting"}`)
			return
		}
		metrics.RecordHealthCheck(true)
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ready"}`)
	})

	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func startHTTPServer(port int, ready *atomic.Bool, log *logrus.Logger) {
	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      newMux(ready),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.WithField("port", port).Info("Starting HTTP server (health + metrics)")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("HTTP server failed")
	}
}
