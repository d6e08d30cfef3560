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

	"github.com/tovera/authcore/internal/auth/domain"
	httpapi "github.com/tovera/authcore/internal/auth/http"
	"github.com/tovera/authcore/internal/auth/service"
	"github.com/tovera/authcore/internal/auth/store"
	"github.com/tovera/authcore/internal/auth/store/drivers/sqlite"
	"github.com/tovera/authcore/pkg/cryptox"
	"github.com/tovera/authcore/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	// Services
	auditService        *service.AuditService
	lockoutService      *service.LockoutService
	policyService       *service.PolicyService
	credentialService   *service.CredentialService
	twoFactorService    *service.TwoFactorService
	loginService        *service.LoginService
	accountService      *service.AccountService
	adminService        *service.AdminService
	sessionService      *service.SessionService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authcore",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.seedAdmin(); err != nil {
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// seedAdmin creates the configured initial administrator on a fresh database.
// Self-registration only ever produces regular users, so the first admin has
// to come from here.
func (app *Application) seedAdmin() error {
	created, err := app.bootstrapService.EnsureAdmin(
		context.Background(),
		app.cfg.AdminUsername,
		app.cfg.AdminEmail,
		app.cfg.AdminPassword,
	)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}
	if created {
		app.logger.Info("initial administrator seeded", "username", app.cfg.AdminUsername)
	}
	return nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("authcore starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down authcore...")

	// Give outstanding requests a deadline for completion
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

	app.logger.Info("authcore stopped")
	return nil
}

// initDatabase initializes the database, applies migrations, and seeds the
// default security settings row if none exists yet.
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

	if err := db.Settings().SeedSettings(context.Background(), domain.DefaultSecuritySettings()); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to seed security settings: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.auditService = &service.AuditService{Store: app.db}
	app.lockoutService = &service.LockoutService{
		Store: app.db,
		Audit: app.auditService,
	}
	app.policyService = &service.PolicyService{Store: app.db}
	app.credentialService = &service.CredentialService{
		Store:   app.db,
		Lockout: app.lockoutService,
		Policy:  app.policyService,
	}
	app.twoFactorService = &service.TwoFactorService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
		Audit:  app.auditService,
	}
	app.loginService = &service.LoginService{
		Store:       app.db,
		Credentials: app.credentialService,
		TwoFactor:   app.twoFactorService,
		Audit:       app.auditService,
	}
	app.accountService = &service.AccountService{
		Store:  app.db,
		Policy: app.policyService,
		Audit:  app.auditService,
	}
	app.adminService = &service.AdminService{
		Store: app.db,
		Audit: app.auditService,
	}
	app.sessionService = &service.SessionService{
		Store: app.db,
		TTL:   app.cfg.SessionTTL,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Accounts: app.accountService,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	// Wire services to router
	router.AccountService = app.accountService
	router.LoginService = app.loginService
	router.TwoFactorService = app.twoFactorService
	router.AdminService = app.adminService
	router.SessionService = app.sessionService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
