package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/liamashdown/arbscan/internal/metrics"
	"github.com/liamashdown/arbscan/internal/ratelimit"
)

// DiscordSender posts opportunities to one or more Discord webhooks.
// All webhooks share one limiter so a burst of opportunities stays under
// Discord's per-channel limits.
type DiscordSender struct {
	webhookURLs []string
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
}

// NewDiscordSender creates a sender pacing posts at rps
func NewDiscordSender(webhookURLs []string, rps float64) *DiscordSender {
	return &DiscordSender{
		webhookURLs: webhookURLs,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     ratelimit.New(rps),
	}
}

// Send posts the embed to every webhook
func (s *DiscordSender) Send(ctx context.Context, payload *OpportunityPayload) error {
	body, err := json.Marshal(map[string]interface{}{
		"embeds": []interface{}{s.buildEmbed(payload)},
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var errs []error
	for _, url := range s.webhookURLs {
		err := s.post(ctx, url, body)
		status := "success"
		if err != nil {
			status = "error"
			errs = append(errs, err)
		}
		metrics.RecordReport(status, "discord")
	}
	return errors.Join(errs...)
}

func (s *DiscordSender) post(ctx context.Context, url string, body []byte) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (s *DiscordSender) buildEmbed(payload *OpportunityPayload) map[string]interface{} {
	o := payload.Opportunity

	var color int
	switch payload.Severity {
	case SeverityAlert:
		color = 0x00C853 // Green
	case SeverityWarn:
		color = 0xFFA500 // Orange
	default:
		color = 0x0099FF // Blue
	}

	description := fmt.Sprintf("Stake **%.2f** to return **%.2f** either way\nImplied volatility **%.4f**",
		o.TotalStake(),
		o.TargetPayout,
		o.ImpliedVolatility,
	)

	fields := []map[string]interface{}{
		{
			"name":   "Game",
			"value":  truncate(fmt.Sprintf("%s (%s)", o.Matchup, o.GameDate), 100),
			"inline": true,
		},
		{
			"name":   "Market",
			"value":  string(o.Market),
			"inline": true,
		},
		{
			"name":   "Margin",
			"value":  fmt.Sprintf("**%.2f%%**", o.ProfitMargin),
			"inline": true,
		},
		{
			"name":   "Side 1",
			"value":  fmt.Sprintf("%s @ %.3f\nstake %.2f", o.Win.Book, o.Win.Odds, o.Win.Stake),
			"inline": true,
		},
		{
			"name":   "Side 2",
			"value":  fmt.Sprintf("%s @ %.3f\nstake %.2f", o.Loss.Book, o.Loss.Odds, o.Loss.Stake),
			"inline": true,
		},
	}

	footer := map[string]interface{}{
		"text": fmt.Sprintf("arbscan • %s • %s • %s", payload.Environment, payload.Strategy, payload.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC")),
	}

	return map[string]interface{}{
		"title":       fmt.Sprintf("[%s] %s", payload.Severity, truncate(payload.Title(), 240)),
		"description": description,
		"color":       color,
		"fields":      fields,
		"footer":      footer,
		"timestamp":   payload.Timestamp.Format(time.RFC3339),
	}
}
