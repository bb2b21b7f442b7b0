package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/edures/resourcedesk-backend/pkg/config"
	"github.com/edures/resourcedesk-backend/pkg/logger"
)

// Mailer sends plain-text notification emails. Delivery is best effort: when
// no SMTP host is configured the mailer logs the message and reports success.
type Mailer struct {
	cfg  config.MailConfig
	logg *logger.Logger
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func New(cfg config.MailConfig, logg *logger.Logger) *Mailer {
	return &Mailer{
		cfg:  cfg,
		logg: logg,
		send: smtp.SendMail,
	}
}

// Send delivers a single message to one recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("recipient is required")
	}
	if !m.cfg.Enabled() {
		if m.logg != nil {
			fields := map[string]any{"to": to, "subject": subject}
			m.logg.Info(m.logg.WithFields(ctx, fields), "mail disabled, logging instead of sending")
		}
		return nil
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := buildMessage(m.cfg.FromAddress, to, subject, body)
	if err := m.send(addr, auth, m.cfg.FromAddress, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
