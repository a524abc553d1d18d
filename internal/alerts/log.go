package alerts

import (
	"context"

	"github.com/liamashdown/arbscan/internal/metrics"
	"github.com/sirupsen/logrus"
)

// LogSender writes opportunities to the logger
type LogSender struct {
	log *logrus.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send logs the opportunity
func (s *LogSender) Send(ctx context.Context, payload *OpportunityPayload) error {
	o := payload.Opportunity
	s.log.WithFields(logrus.Fields{
		"severity":           payload.Severity,
		"game_id":            o.GameID,
		"matchup":            o.Matchup,
		"game_date":          o.GameDate,
		"market":             o.Market,
		"win_book":           o.Win.Book,
		"win_odds":           o.Win.Odds,
		"win_stake":          o.Win.Stake,
		"loss_book":          o.Loss.Book,
		"loss_odds":          o.Loss.Odds,
		"loss_stake":         o.Loss.Stake,
		"implied_volatility": o.ImpliedVolatility,
		"profit_margin_pct":  o.ProfitMargin,
	}).Info("Arbitrage opportunity")
	metrics.RecordReport("success", "log")
	return nil
}
