package infra

import (
	"fmt"
	"net/smtp"
	"strings"

	"stationery/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer sends plain-text notifications through the configured SMTP relay.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	to       []string
}

// NewMailer returns nil unless both an SMTP host and a low-stock alert
// recipient are configured.
func NewMailer(cfg *config.Config) *Mailer {
	to := splitAddresses(cfg.LowStockAlertEmail)
	if cfg.SMTPHost == "" || len(to) == 0 {
		return nil
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		to:       to,
	}
}

// SendAlert mails subject and body to the alert recipients.
func (m *Mailer) SendAlert(subject, body string) error {
	e := email.NewEmail()
	e.From = m.user
	if e.From == "" {
		e.From = m.to[0]
	}
	e.To = m.to
	e.Subject = subject
	e.Text = []byte(body)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	if err := e.Send(m.addr, auth); err != nil {
		return fmt.Errorf("mailer: send to %s: %w", strings.Join(m.to, ","), err)
	}
	return nil
}

func splitAddresses(list string) []string {
	var out []string
	for _, a := range strings.Split(list, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}
