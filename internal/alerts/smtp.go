package alerts

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/liamashdown/arbscan/internal/metrics"
)

// SMTPSender emails opportunities
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(host string, port int, user, password, from string, to []string) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

// Send emails the opportunity
func (s *SMTPSender) Send(ctx context.Context, payload *OpportunityPayload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if s.user != "" {
		auth = smtp.PlainAuth("", s.user, s.password, s.host)
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	err := s.sendMail(addr, auth, s.from, s.to, []byte(s.buildMessage(payload)))
	if err != nil {
		metrics.RecordReport("error", "smtp")
		return fmt.Errorf("send email: %w", err)
	}
	metrics.RecordReport("success", "smtp")
	return nil
}

func (s *SMTPSender) buildMessage(payload *OpportunityPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.to, ", "))
	fmt.Fprintf(&b, "Subject: [%s] Arbitrage: %s\r\n", payload.Severity, payload.Title())
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(buildEmailBody(payload))
	return b.String()
}

func buildEmailBody(payload *OpportunityPayload) string {
	o := payload.Opportunity
	var b strings.Builder

	fmt.Fprintf(&b, "ARBSCAN OPPORTUNITY - %s\n", payload.Severity)
	b.WriteString("═══════════════════════════════════════\n\n")
	b.WriteString("GAME\n")
	b.WriteString("─────────────────────────────────────\n")
	fmt.Fprintf(&b, "Matchup:        %s\n", o.Matchup)
	fmt.Fprintf(&b, "Game ID:        %s\n", o.GameID)
	fmt.Fprintf(&b, "Date:           %s\n", o.GameDate)
	fmt.Fprintf(&b, "Market:         %s\n\n", o.Market)
	b.WriteString("STAKES\n")
	b.WriteString("─────────────────────────────────────\n")
	fmt.Fprintf(&b, "Side 1:         %.2f at %s (odds %.3f)\n", o.Win.Stake, o.Win.Book, o.Win.Odds)
	fmt.Fprintf(&b, "Side 2:         %.2f at %s (odds %.3f)\n", o.Loss.Stake, o.Loss.Book, o.Loss.Odds)
	fmt.Fprintf(&b, "Total stake:    %.2f\n", o.TotalStake())
	fmt.Fprintf(&b, "Payout:         %.2f\n", o.TargetPayout)
	fmt.Fprintf(&b, "Implied vol:    %.4f\n", o.ImpliedVolatility)
	fmt.Fprintf(&b, "Margin:         %.2f%%\n\n", o.ProfitMargin)
	b.WriteString("═══════════════════════════════════════\n")
	fmt.Fprintf(&b, "Strategy: %s\n", payload.Strategy)
	fmt.Fprintf(&b, "Environment: %s\n", payload.Environment)
	fmt.Fprintf(&b, "Generated: %s\n", payload.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString("\nPrices move; confirm both legs before placing.\n")

	return b.String()
}
