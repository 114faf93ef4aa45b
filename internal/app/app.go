// Package app is the composition root: it wires the store, adapters,
// services, and sync layer into one ready-to-use object.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m4rcusml/event-planner/config"
	"github.com/m4rcusml/event-planner/internal/adapters/auth"
	"github.com/m4rcusml/event-planner/internal/adapters/email"
	"github.com/m4rcusml/event-planner/internal/adapters/redisstore"
	"github.com/m4rcusml/event-planner/internal/adapters/session"
	"github.com/m4rcusml/event-planner/internal/connectivity"
	"github.com/m4rcusml/event-planner/internal/domain"
	"github.com/m4rcusml/event-planner/internal/metrics"
	"github.com/m4rcusml/event-planner/internal/repository/docstore"
	"github.com/m4rcusml/event-planner/internal/services"
	syncpkg "github.com/m4rcusml/event-planner/internal/sync"
)

// defaultOpTimeout bounds each repository operation.
const defaultOpTimeout = 15 * time.Second

// App bundles the wired sync core.
type App struct {
	Log           *slog.Logger
	Store         *redisstore.Store
	SessionCache  *session.Store
	Auth          *auth.TokenProvider
	Events        domain.EventService
	Session       *services.SessionService
	Subscriptions *syncpkg.Manager
	Coordinator   *syncpkg.Coordinator
	Monitor       *connectivity.Monitor
	Metrics       *metrics.Collector
}

// New wires an App from config. hooks carries the UI-facing callbacks for
// the optimistic coordinator.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, hooks syncpkg.ViewHooks) (*App, error) {
	store, err := redisstore.Open(ctx, cfg.RedisURL, log)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}

	cache, err := session.Open(cfg.SessionDBPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open session cache: %w", err)
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFrom,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	}, log)
	if err != nil {
		store.Close()
		cache.Close()
		return nil, fmt.Errorf("create mailer: %w", err)
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	provider := auth.NewTokenProvider(cfg.AuthTokenSecret)

	eventRepo := docstore.NewEventRepository(store)
	profileRepo := docstore.NewProfileRepository(store)
	emailSvc := services.NewEmailService(mailer, log)
	eventSvc := services.NewEventService(eventRepo, provider, emailSvc, log, collector, defaultOpTimeout)
	sessionSvc := services.NewSessionService(provider, profileRepo, cache, log)

	manager := syncpkg.NewManager(store, log, collector)
	monitor := connectivity.NewMonitor(store, log)

	if hooks.Refetch == nil {
		hooks.Refetch = manager.Resubscribe
	}
	coordinator := syncpkg.NewCoordinator(eventSvc, provider, monitor, hooks, log, collector)

	// Reconnect recovery: a connectivity gap tears down and recreates every
	// active subscription.
	monitor.AddListener(manager.ConnectivityListener(ctx))

	return &App{
		Log:           log,
		Store:         store,
		SessionCache:  cache,
		Auth:          provider,
		Events:        eventSvc,
		Session:       sessionSvc,
		Subscriptions: manager,
		Coordinator:   coordinator,
		Monitor:       monitor,
		Metrics:       collector,
	}, nil
}

// Start begins the session bootstrap and connectivity monitoring. signal is
// the platform reachability feed.
func (a *App) Start(ctx context.Context, signal <-chan bool) {
	a.Session.Start(ctx)
	a.Monitor.Start(ctx, signal)
}

// Close tears down subscriptions and releases resources.
func (a *App) Close() error {
	a.Subscriptions.UnsubscribeAll()
	a.Session.Stop()
	if err := a.SessionCache.Close(); err != nil {
		a.Log.Warn("close session cache failed", "error", err)
	}
	return a.Store.Close()
}
