// Package notify sends statement-close paydown reminders over SMTP.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/GregMSThompson/utilization-pilot/internal/utilization"
	"github.com/GregMSThompson/utilization-pilot/pkg/logger"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Sender handles sending emails via SMTP
type Sender struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, a smtp.Auth) error
}

func NewSender(cfg SMTPConfig) *Sender {
	return &Sender{
		cfg: cfg,
		send: func(e *email.Email, addr string, a smtp.Auth) error {
			return e.Send(addr, a)
		},
	}
}

// SendPaydownReminder mails the recommendations due before their statements close.
func (s *Sender) SendPaydownReminder(ctx context.Context, to, name string, recs []utilization.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = []string{to}
	e.Subject = reminderSubject(recs)
	e.Text = []byte(reminderBody(name, recs))

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		log.Error("failed to send reminder", "error", err)
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	log.Info("reminder sent", "subject", e.Subject, "cards", len(recs))
	return nil
}

func reminderSubject(recs []utilization.Recommendation) string {
	if len(recs) == 1 {
		return fmt.Sprintf("Pay down %s before its statement closes", recs[0].CardName)
	}
	return fmt.Sprintf("Pay down %d cards before their statements close", len(recs))
}

func reminderBody(name string, recs []utilization.Recommendation) string {
	var b strings.Builder
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	b.WriteString("These cards will report high utilization unless you make a payment before the statement closes:\n\n")
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s: pay $%.2f by %s (%d days) to go from %d%% to %d%%\n",
			r.CardName, r.Amount, r.CloseDate.Format("2006-01-02"), r.DaysUntilClose,
			r.CurrentUtilization, r.TargetUtilization)
	}
	b.WriteString("\nYou can change targets or turn off reminders in the app.\n")
	return b.String()
}
