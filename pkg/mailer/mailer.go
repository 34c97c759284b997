package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/boldreach/logistics-backend/pkg/config"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/metrics"
)

// Mailer sends the transactional emails the platform needs.
type Mailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
	SendTempPassword(ctx context.Context, to, fullName, tempPassword string) error
}

// SMTPMailer delivers mail over a plain SMTP relay.
type SMTPMailer struct {
	cfg     config.SMTPConfig
	logg    *logger.Logger
	metrics *metrics.MailMetrics
	send    func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// New constructs an SMTP-backed mailer. When no host is configured the mailer
// logs instead of sending, which keeps local development working without a relay.
func New(cfg config.SMTPConfig, logg *logger.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:  cfg,
		logg: logg,
		send: smtp.SendMail,
	}
}

// WithMetrics attaches delivery metrics and returns the mailer.
func (m *SMTPMailer) WithMetrics(mm *metrics.MailMetrics) *SMTPMailer {
	m.metrics = mm
	return m
}

// SendPasswordReset emails a reset link to the recipient.
func (m *SMTPMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	subject := "Reset your password"
	body := fmt.Sprintf(
		"Hello,\r\n\r\nA password reset was requested for your account. Use the link below to choose a new password. The link expires in 1 hour.\r\n\r\n%s\r\n\r\nIf you did not request this, you can ignore this email.\r\n",
		resetURL,
	)
	return m.deliver(ctx, "password_reset", to, subject, body)
}

// SendTempPassword emails freshly provisioned credentials to a new user.
func (m *SMTPMailer) SendTempPassword(ctx context.Context, to, fullName, tempPassword string) error {
	subject := "Your account is ready"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nAn account has been created for you. Sign in with this temporary password and change it right away:\r\n\r\n%s\r\n",
		fullName, tempPassword,
	)
	return m.deliver(ctx, "temp_password", to, subject, body)
}

func (m *SMTPMailer) deliver(ctx context.Context, kind, to, subject, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return fmt.Errorf("recipient is required")
	}

	if m.cfg.Host == "" {
		if m.logg != nil {
			ctx = m.logg.WithFields(ctx, map[string]any{"to": to, "subject": subject})
			m.logg.Warn(ctx, "smtp host not configured, skipping email delivery")
		}
		return nil
	}

	msg := buildMessage(m.cfg.From, to, subject, body)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	start := time.Now()
	err := m.send(addr, auth, m.cfg.From, []string{to}, msg)
	m.metrics.ObserveDuration(kind, time.Since(start))
	if err != nil {
		m.metrics.IncFailure(kind)
		return fmt.Errorf("sending email: %w", err)
	}
	m.metrics.IncSuccess(kind)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
