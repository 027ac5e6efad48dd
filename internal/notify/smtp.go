package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/knadh/smtppool"
	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/content"
	"github.com/greatgiftheist/agent-hq/internal/model"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
	"github.com/greatgiftheist/agent-hq/pkg/metrics"
)

// SMTPConfig configures the mail pool.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	MaxConns int
	Timeout  time.Duration
}

type mailPool interface {
	Send(e smtppool.Email) error
	Close()
}

// Mailer emails a plain-text confirmation to participants who left an
// address.
type Mailer struct {
	pool   mailPool
	from   string
	pack   *content.Pack
	logger *logger.Logger
}

// NewMailer opens an SMTP connection pool.
func NewMailer(cfg SMTPConfig, pack *content.Pack, log *logger.Logger) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var auth smtp.Auth
	if cfg.Username != "" || cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.Host,
		Port:            cfg.Port,
		MaxConns:        cfg.MaxConns,
		IdleTimeout:     cfg.Timeout,
		PoolWaitTimeout: cfg.Timeout,
		TLSConfig:       &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		Auth:            auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp pool: %w", err)
	}
	return newMailer(pool, cfg.From, pack, log), nil
}

func newMailer(pool mailPool, from string, pack *content.Pack, log *logger.Logger) *Mailer {
	if pack == nil {
		pack = content.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Mailer{pool: pool, from: from, pack: pack, logger: log}
}

// NotifyConfirmation emails the participant. Profiles without an email are
// skipped.
func (m *Mailer) NotifyConfirmation(ctx context.Context, p model.Profile) error {
	to := strings.TrimSpace(p.ContactEmail)
	if to == "" {
		metrics.NotificationsTotal.WithLabelValues("smtp", "skipped").Inc()
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := m.pool.Send(smtppool.Email{
		From:    m.from,
		To:      []string{to},
		Subject: fmt.Sprintf("%s: dossier confirmed for Agent %s", m.pack.Event.Name, p.Codename),
		Text:    []byte(m.body(p)),
	})
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("smtp", "error").Inc()
		return fmt.Errorf("send confirmation to %s: %w", p.Codename, err)
	}

	metrics.NotificationsTotal.WithLabelValues("smtp", "success").Inc()
	m.logger.Info("confirmation email sent", zap.String("codename", p.Codename))
	return nil
}

func (m *Mailer) body(p model.Profile) string {
	status := strings.ReplaceAll(string(p.AttendanceStatus), "_", " ")
	return fmt.Sprintf("Agent %s (%s), HQ has you down as %s for %s on %s at %s.\n",
		p.Codename, p.RealName, status, m.pack.Event.Name, m.pack.Event.Date, m.pack.Event.Venue)
}

// Close releases the pool.
func (m *Mailer) Close() {
	m.pool.Close()
}
