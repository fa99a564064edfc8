package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"

	httpapi "github.com/nemunivers/identity/internal/identity/http"
	"github.com/nemunivers/identity/internal/identity/service"
	"github.com/nemunivers/identity/internal/identity/store"
	"github.com/nemunivers/identity/internal/identity/store/drivers/sqlite"
	"github.com/nemunivers/identity/pkg/mailx"
	"github.com/nemunivers/identity/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	mailSender mailx.Sender
	dispatcher *mailx.Dispatcher

	sessionService      *service.SessionService
	credentialService   *service.CredentialService
	registrationService *service.RegistrationService
	verificationService *service.VerificationService
	invitationService   *service.InvitationService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initMail(); err != nil {
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

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully stops the server, drains pending mail, and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.dispatcher.Shutdown(ctx); err != nil {
		app.logger.Error("mail dispatcher drain failed", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

// initDatabase opens the SQLite store and applies migrations.
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

// initMail selects the mail transport and wraps it in the async dispatcher.
func (app *Application) initMail() error {
	switch app.cfg.MailProvider {
	case "ses":
		if app.cfg.MailFrom == "" {
			return fmt.Errorf("IDENTITY_MAIL_FROM is required for the ses mail provider")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load AWS config: %w", err)
		}
		app.mailSender = mailx.NewSESSender(ses.NewFromConfig(awsCfg), app.cfg.MailFrom)
	case "console":
		app.mailSender = mailx.NewConsoleSender()
	default:
		return fmt.Errorf("unknown mail provider %q", app.cfg.MailProvider)
	}

	app.dispatcher = mailx.NewDispatcher(app.mailSender)
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	composer := &service.MailComposer{
		From:    app.cfg.MailFrom,
		BaseURL: app.cfg.BaseURL,
	}

	app.sessionService = &service.SessionService{
		Store:       app.db,
		DefaultDays: app.cfg.SessionDays,
	}
	app.credentialService = &service.CredentialService{
		Store:      app.db,
		BcryptCost: app.cfg.BcryptCost,
	}
	app.registrationService = &service.RegistrationService{
		Store:      app.db,
		Mail:       app.mailSender, // synchronous: failed mail aborts registration
		Composer:   composer,
		BcryptCost: app.cfg.BcryptCost,
	}
	app.verificationService = &service.VerificationService{
		Store:      app.db,
		Mail:       app.dispatcher,
		Composer:   composer,
		BcryptCost: app.cfg.BcryptCost,
	}
	app.invitationService = &service.InvitationService{
		Store:      app.db,
		Mail:       app.dispatcher,
		Composer:   composer,
		BcryptCost: app.cfg.BcryptCost,
	}
	app.userService = &service.UserService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.db, app.logger, BuildVersion, app.cfg.Env == "prod")

	router.Sessions = app.sessionService
	router.Credentials = app.credentialService
	router.Registration = app.registrationService
	router.Verifications = app.verificationService
	router.Invitations = app.invitationService
	router.Users = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
