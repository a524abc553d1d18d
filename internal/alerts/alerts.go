// Package alerts delivers opportunity reports to operators.
package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/liamashdown/arbscan/internal/arbitrage"
)

// Severity grades an opportunity by its locked-in margin
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityAlert Severity = "ALERT"
)

// Margin thresholds, in percent
const (
	warnMarginPct  = 0.5
	alertMarginPct = 2.0
)

// SeverityFor grades a profit margin in percent
func SeverityFor(marginPct float64) Severity {
	switch {
	case marginPct >= alertMarginPct:
		return SeverityAlert
	case marginPct >= warnMarginPct:
		return SeverityWarn
	}
	return SeverityInfo
}

// OpportunityPayload contains everything a sender renders for one opportunity
type OpportunityPayload struct {
	Severity    Severity
	Opportunity arbitrage.Opportunity
	Strategy    string
	Timestamp   time.Time
	Environment string
}

// NewPayload wraps an opportunity for delivery
func NewPayload(opp arbitrage.Opportunity, strategy, environment string) *OpportunityPayload {
	return &OpportunityPayload{
		Severity:    SeverityFor(opp.ProfitMargin),
		Opportunity: opp,
		Strategy:    strategy,
		Timestamp:   time.Now().UTC(),
		Environment: environment,
	}
}

// Title is the one-line summary shared by every sender
func (p *OpportunityPayload) Title() string {
	o := p.Opportunity
	return fmt.Sprintf("%s %s: %.2f%% margin", o.Matchup, o.Market, o.ProfitMargin)
}

// Sender defines the interface for report senders
type Sender interface {
	Send(ctx context.Context, payload *OpportunityPayload) error
}

// SendAll delivers one payload per opportunity and returns the number
// delivered. It stops at the first error or when ctx is done.
func SendAll(ctx context.Context, sender Sender, opps []arbitrage.Opportunity, strategy, environment string) (int, error) {
	sent := 0
	for _, opp := range opps {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := sender.Send(ctx, NewPayload(opp, strategy, environment)); err != nil {
			return sent, fmt.Errorf("send %s/%s: %w", opp.GameID, opp.Market, err)
		}
		sent++
	}
	return sent, nil
}

// truncate limits s to maxLen runes
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
