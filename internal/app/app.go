// Package app assembles the onboarding engine and its collaborators from
// configuration. Both the API server and the HQ terminal start here.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/greatgiftheist/agent-hq/internal/codename"
	"github.com/greatgiftheist/agent-hq/internal/config"
	"github.com/greatgiftheist/agent-hq/internal/content"
	"github.com/greatgiftheist/agent-hq/internal/handler"
	"github.com/greatgiftheist/agent-hq/internal/llm"
	natsclient "github.com/greatgiftheist/agent-hq/internal/nats"
	"github.com/greatgiftheist/agent-hq/internal/notify"
	"github.com/greatgiftheist/agent-hq/internal/onboarding"
	"github.com/greatgiftheist/agent-hq/internal/session"
	"github.com/greatgiftheist/agent-hq/internal/store"
	"github.com/greatgiftheist/agent-hq/internal/store/jsonfile"
	"github.com/greatgiftheist/agent-hq/internal/store/sqlite"
	"github.com/greatgiftheist/agent-hq/pkg/logger"
)

// profileBackend is what either store backend provides.
type profileBackend interface {
	store.ProfileStore
	codename.Registry
	store.SessionLogWriter
	store.SessionLogReader
	store.ReservationReader
}

// App holds the wired components.
type App struct {
	Content  *content.Pack
	Profiles store.ProfileStore
	Logs     store.SessionLogReader
	Owners   store.ReservationReader
	Sessions session.Store
	Engine   *onboarding.Engine

	// Checks are readiness probes for the backends in use.
	Checks []handler.Check

	logger  *logger.Logger
	closers []func()
}

// Options toggles optional components.
type Options struct {
	// Sessions wires the session snapshot store; the terminal keeps its
	// single conversation in process and skips it.
	Sessions bool
}

// New builds an App from cfg. Optional backends (LLM, NATS, SMTP, Valkey)
// are wired only when configured.
func New(ctx context.Context, cfg *config.Config, opts Options, log *logger.Logger) (_ *App, err error) {
	if log == nil {
		log = logger.NewNop()
	}
	a := &App{logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.Content, err = loadContent(cfg.ContentFile)
	if err != nil {
		return nil, err
	}

	backend, err := a.openStore(cfg)
	if err != nil {
		return nil, err
	}
	a.Profiles = backend
	a.Logs = backend
	a.Owners = backend

	deps := onboarding.Dependencies{
		Store:      backend,
		Registry:   backend,
		SessionLog: backend,
	}

	if gen := a.newGenerator(cfg); gen != nil {
		deps.Generator = gen
		deps.Advisor = gen
	}

	var notifiers notify.Multi
	if cfg.NATSURL != "" {
		journal, err := a.connectJournal(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.SessionLog = journal
		a.Logs = journal
		notifiers = append(notifiers, journal)
	}
	if cfg.SMTPHost != "" {
		mailer, err := notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, a.Content, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create mailer: %w", err)
		}
		a.closers = append(a.closers, mailer.Close)
		notifiers = append(notifiers, mailer)
	}
	if len(notifiers) > 0 {
		deps.Notifier = notifiers
	}

	a.Engine, err = onboarding.NewEngine(onboarding.Config{
		PersonalityRounds: cfg.PersonalityRounds,
		Content:           a.Content,
		CallTimeout:       cfg.LLMTimeout,
		StoreTimeout:      cfg.StoreTimeout,
		SaveRetries:       cfg.SaveRetries,
	}, deps, log)
	if err != nil {
		return nil, err
	}

	if opts.Sessions {
		if err := a.openSessions(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func loadContent(path string) (*content.Pack, error) {
	if path == "" {
		return content.Default(), nil
	}
	pack, err := content.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load content: %w", err)
	}
	return pack, nil
}

func (a *App) openStore(cfg *config.Config) (profileBackend, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case config.StoreJSONFile:
		if err := ensureDir(cfg.JSONStorePath); err != nil {
			return nil, err
		}
		s, err := jsonfile.Open(cfg.JSONStorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open json store: %w", err)
		}
		a.logger.Info("profile store ready", zap.String("backend", config.StoreJSONFile), zap.String("path", cfg.JSONStorePath))
		return s, nil
	case config.StoreSQLite, "":
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := s.Close(); err != nil {
				a.logger.Warn("failed to close sqlite store", zap.Error(err))
			}
		})
		a.Checks = append(a.Checks, handler.Check{Name: "store", Ping: s.Ping})
		a.logger.Info("profile store ready", zap.String("backend", config.StoreSQLite), zap.String("path", cfg.SQLitePath))
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// newGenerator returns nil when no API key is configured; the engine then
// runs on canned questions and offline codenames.
func (a *App) newGenerator(cfg *config.Config) *llm.Generator {
	key := cfg.LLMAPIKey()
	if key == "" {
		a.logger.Info("no LLM API key configured, using offline content")
		return nil
	}
	client, err := llm.NewClient(llm.Provider(strings.ToLower(cfg.DefaultLLM)), key)
	if err != nil {
		a.logger.Warn("failed to create LLM client, using offline content", zap.Error(err))
		return nil
	}
	a.logger.Info("LLM client ready", zap.String("provider", client.Name()))
	return llm.NewGenerator(client, cfg.LLMModel, cfg.PersonalityRounds, a.logger)
}

func (a *App) connectJournal(ctx context.Context, cfg *config.Config) (*natsclient.Journal, error) {
	nc, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	a.closers = append(a.closers, nc.Close)
	a.Checks = append(a.Checks, handler.Check{Name: "nats", Ping: nc.Ping})

	journal := natsclient.NewJournal(nc.JetStream(), a.logger)
	if err := journal.EnsureStream(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure journal stream: %w", err)
	}
	return journal, nil
}

func (a *App) openSessions(ctx context.Context, cfg *config.Config) error {
	if cfg.ValkeyAddr == "" {
		a.Sessions = session.NewMemoryStore(cfg.SessionTTL)
		return nil
	}

	vs, err := session.NewValkeyStore(cfg.ValkeyAddr, cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("failed to connect to valkey: %w", err)
	}
	a.closers = append(a.closers, vs.Close)
	if err := vs.Ping(ctx); err != nil {
		return fmt.Errorf("valkey ping: %w", err)
	}
	a.Checks = append(a.Checks, handler.Check{Name: "valkey", Ping: vs.Ping})
	a.Sessions = vs
	return nil
}
