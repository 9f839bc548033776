// Package app wires configuration into the running components shared by
// the API server and the command line client.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/capture"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/face"
	"github.com/saturnino-fabrica-de-software/facegate/internal/matcher"
	"github.com/saturnino-fabrica-de-software/facegate/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegate/internal/ratelimit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
	"github.com/saturnino-fabrica-de-software/facegate/internal/session"
	"github.com/saturnino-fabrica-de-software/facegate/internal/webhook"
	"github.com/saturnino-fabrica-de-software/facegate/internal/ws"
)

// App holds every long-lived component built from a Config
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Clock      clockwork.Clock
	Pool       *pgxpool.Pool
	Locator    provider.FaceLocator
	Extractor  provider.EmbeddingExtractor
	Gallery    *service.CachedGallery
	Enrollment *service.EnrollmentService
	Logins     *service.LoginRecorder
	Journal    *audit.FileJournal
	Webhooks   *webhook.Service
	Worker     *webhook.Worker
	Hub        *ws.Hub
	Sessions   *session.Manager
	// RateLimits is set when SHARED_RATE_LIMIT is on
	RateLimits *ratelimit.Store

	closers []func() error
}

// Options adjust what Build wires in
type Options struct {
	// Migrate applies pending migrations before the pool opens
	Migrate bool
	// Observer overrides the websocket hub as the session observer
	Observer session.Observer
}

// Build opens the database and builds every component. On error the
// pieces built so far are closed again.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Clock:  clockwork.NewRealClock(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	auditLogger := audit.NewSlogLogger(logger)

	// 1. Providers e câmera
	a.Locator, err = face.NewLocator(ctx, cfg, auditLogger)
	if err != nil {
		return nil, err
	}
	if c, ok := a.Locator.(io.Closer); ok {
		a.onClose(c.Close)
	}

	a.Extractor, err = face.NewExtractor(cfg)
	if err != nil {
		return nil, err
	}

	open, err := capture.NewOpener(capture.Config{
		Kind:   cfg.Camera,
		Device: cfg.CameraDevice,
		URL:    cfg.CameraURL,
		Width:  cfg.CameraWidth,
		Height: cfg.CameraHeight,
	}, a.Clock)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	// 2. Banco de dados
	if opts.Migrate {
		if err := database.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	a.Pool = pool
	a.onClose(func() error {
		pool.Close()
		return nil
	})

	if cfg.SharedRateLimit {
		a.RateLimits = ratelimit.NewStore(pool, logger)
	}

	// 3. Galeria e cadastro
	identities := repository.NewIdentityRepository(pool)
	embeddings := repository.NewEmbeddingRepository(pool)

	a.Gallery = service.NewCachedGallery(embeddings, cfg.GalleryTTL, a.Clock)
	a.Enrollment = service.NewEnrollmentService(identities, embeddings, a.Locator, a.Extractor, logger).
		WithMinImages(cfg.MinEnrollmentImages).
		WithGallery(a.Gallery).
		WithAuditLogger(auditLogger)

	// 4. Destinos do resultado
	a.Journal = audit.NewFileJournal(audit.DefaultJournalConfig(cfg.LoginLogPath))
	a.onClose(a.Journal.Close)
	a.Logins = service.NewLoginRecorder(repository.NewLoginRepository(pool), a.Journal, logger)

	sinks := []session.ResultSink{a.Logins}

	endpoint := webhook.Endpoint{URL: cfg.WebhookURL, Secret: cfg.WebhookSecret}
	if endpoint.Enabled() {
		a.Webhooks = webhook.NewService(pool, endpoint, logger)
		a.Worker = webhook.NewWorker(pool, a.Webhooks, a.Clock, logger).WithInterval(cfg.WebhookPoll)
		sinks = append(sinks, a.Webhooks)
	}

	// 5. Sessões
	observer := opts.Observer
	if observer == nil {
		a.Hub = ws.NewHub()
		observer = a.Hub
	}

	a.Sessions = session.NewManager(open, session.Config{
		Dwell:          cfg.Dwell,
		PollInterval:   cfg.PollInterval,
		RenderInterval: cfg.RenderInterval,
		Timeout:        cfg.SessionTimeout,
		Previews:       cfg.Previews,
	}, session.Deps{
		Locator:   a.Locator,
		Extractor: a.Extractor,
		Gallery:   a.Gallery,
		Matcher:   matcher.New(cfg.MatchThreshold, cfg.ConfidenceScale),
		Clock:     a.Clock,
		Logger:    logger,
		Observer:  observer,
		Sinks:     sinks,
	},
		session.WithMaxSessions(cfg.MaxSessions),
		session.WithAuditLogger(auditLogger),
	)

	return a, nil
}

// Start launches the background loops. They stop when ctx is done.
func (a *App) Start(ctx context.Context) {
	go a.Sessions.RunJanitor(ctx, a.Config.ResultTTL/2, a.Config.ResultTTL)

	if a.Worker != nil {
		go a.Worker.Run(ctx)
	}

	if a.RateLimits != nil {
		go a.RateLimits.RunCleanup(ctx, a.Clock, 10*time.Minute, time.Hour)
	}
}

// Shutdown cancels running sessions, waits for their sinks and then
// stops the webhook worker. Queued deliveries resume on the next start.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	if a.Sessions != nil {
		err = a.Sessions.Shutdown(ctx)
	}
	if a.Worker != nil {
		a.Worker.Stop()
	}
	return err
}

// Close releases everything Build opened, in reverse order
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}
