package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/Fahimkhan9/clubos/internal/clubos/http"
	"github.com/Fahimkhan9/clubos/internal/clubos/mail"
	"github.com/Fahimkhan9/clubos/internal/clubos/media"
	"github.com/Fahimkhan9/clubos/internal/clubos/service"
	"github.com/Fahimkhan9/clubos/internal/clubos/store"
	"github.com/Fahimkhan9/clubos/internal/clubos/store/drivers/sqlite"
	"github.com/Fahimkhan9/clubos/pkg/cryptox"
	"github.com/Fahimkhan9/clubos/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the clubos service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	mailer mail.Mailer
	media  media.Storage

	sessionService      *service.SessionService
	userService         *service.UserService
	clubService         *service.ClubService
	inviteService       *service.InviteService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "clubos",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if app.cfg.JWTSecret == "" {
		if app.cfg.Env != "dev" {
			return nil, errors.New("CLUBOS_JWT_SECRET is required outside dev")
		}
		// Ephemeral secret: every restart invalidates all sessions.
		app.cfg.JWTSecret = cryptox.MustGenerateToken(cryptox.TokenSize256)
		app.logger.Warn("CLUBOS_JWT_SECRET not set, using an ephemeral secret")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initCollaborators(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("clubos starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down clubos...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("clubos stopped")
	return nil
}

// initDatabase opens the sqlite store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initCollaborators wires the email and object storage providers, falling
// back to log-only stand-ins in dev when they are not configured.
func (app *Application) initCollaborators() error {
	if app.cfg.SMTPHost != "" {
		mailer, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     app.cfg.SMTPHost,
			Port:     app.cfg.SMTPPort,
			Username: app.cfg.SMTPUsername,
			Password: app.cfg.SMTPPassword,
			From:     app.cfg.SMTPFrom,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize mailer: %w", err)
		}
		app.mailer = mailer
	} else {
		if app.cfg.Env != "dev" {
			return errors.New("SMTP_HOST is required outside dev")
		}
		app.logger.Warn("SMTP_HOST not set, emails will only be logged")
		app.mailer = logMailer{logger: app.logger}
	}

	if app.cfg.CloudinaryURL != "" {
		storage, err := media.NewCloudinaryStorage(app.cfg.CloudinaryURL)
		if err != nil {
			return fmt.Errorf("failed to initialize media storage: %w", err)
		}
		app.media = storage
	} else {
		if app.cfg.Env != "dev" {
			return errors.New("CLOUDINARY_URL is required outside dev")
		}
		app.logger.Warn("CLOUDINARY_URL not set, uploads are disabled")
		app.media = disabledStorage{}
	}

	return nil
}

// initServices wires all business logic services.
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:     app.db,
		JWTSecret: []byte(app.cfg.JWTSecret),
		TTL:       app.cfg.SessionTTL,
	}
	app.userService = &service.UserService{
		Store:       app.db,
		Sessions:    app.sessionService,
		Mailer:      app.mailer,
		Media:       app.media,
		FrontendURL: app.cfg.FrontendURL,
	}
	app.clubService = &service.ClubService{
		Store: app.db,
		Media: app.media,
	}
	app.inviteService = &service.InviteService{
		Store:       app.db,
		Mailer:      app.mailer,
		FrontendURL: app.cfg.FrontendURL,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP wires the router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.cfg.Env != "dev", app.db, app.logger)

	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.ClubService = app.clubService
	router.InviteService = app.inviteService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// logMailer is the dev fallback when no SMTP relay is configured.
type logMailer struct {
	logger *slog.Logger
}

func (m logMailer) Send(_ context.Context, to, subject, _ string) error {
	m.logger.Info("mail suppressed (no SMTP configured)",
		slog.String("to", to),
		slog.String("subject", subject),
	)
	return nil
}

// disabledStorage is the dev fallback when no object store is configured.
type disabledStorage struct{}

func (disabledStorage) Upload(_ context.Context, _ io.Reader, _, _ string) (string, error) {
	return "", errors.New("media storage not configured")
}

func (disabledStorage) Delete(_ context.Context, _ string) error { return nil }
