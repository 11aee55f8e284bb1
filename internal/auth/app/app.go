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

	"github.com/opkit/authd/internal/auth/domain"
	httpapi "github.com/opkit/authd/internal/auth/http"
	"github.com/opkit/authd/internal/auth/provider"
	"github.com/opkit/authd/internal/auth/service"
	"github.com/opkit/authd/internal/auth/store"
	"github.com/opkit/authd/internal/auth/store/drivers/sqlite"
	"github.com/opkit/authd/pkg/cryptox"
	"github.com/opkit/authd/pkg/jwtx"
	"github.com/opkit/authd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	codec  *jwtx.Codec
	bus    *service.Bus
	mailer Mailer

	sessionService      *service.SessionService
	credentialService   *service.CredentialService
	accountService      *service.AccountService
	socialService       *service.SocialService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	codec, err := jwtx.NewCodec(jwtx.Config{
		AccessSecret:  []byte(cfg.AccessSecret),
		RefreshSecret: []byte(cfg.RefreshSecret),
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	app.codec = codec

	app.initServices()
	app.initSubscriptions()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("authd starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down authd...")

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

	app.logger.Info("authd stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
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

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.bus = service.NewBus()
	app.mailer = &LogMailer{Logger: app.logger}

	hasher := cryptox.NewPasswordHasher(app.cfg.Pepper)

	app.sessionService = &service.SessionService{
		Codec:       app.codec,
		Store:       app.db,
		MaxSessions: app.cfg.MaxSessionsPerUser,
	}
	app.credentialService = &service.CredentialService{
		Store:  app.db,
		Hasher: hasher,
	}
	app.accountService = &service.AccountService{
		Store:       app.db,
		Hasher:      hasher,
		Credentials: app.credentialService,
		Sessions:    app.sessionService,
		Bus:         app.bus,
	}
	app.socialService = &service.SocialService{
		Store:     app.db,
		Sessions:  app.sessionService,
		Resolvers: app.initResolvers(),
		Bus:       app.bus,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initResolvers registers a resolver for each provider that has credentials
// configured.
func (app *Application) initResolvers() provider.Registry {
	var resolvers []provider.Resolver

	if app.cfg.GoogleClientID != "" {
		resolvers = append(resolvers, &provider.Google{
			ClientID:     app.cfg.GoogleClientID,
			ClientSecret: app.cfg.GoogleClientSecret,
			RedirectURI:  app.cfg.GoogleRedirectURI,
		})
		app.logger.Info("google sign-in enabled")
	}
	if app.cfg.AppleClientID != "" {
		resolvers = append(resolvers, &provider.Apple{
			ClientID:     app.cfg.AppleClientID,
			ClientSecret: app.cfg.AppleClientSecret,
			RedirectURI:  app.cfg.AppleRedirectURI,
		})
		app.logger.Info("apple sign-in enabled")
	}

	return provider.NewRegistry(resolvers...)
}

// initSubscriptions wires the event handlers: a local registration triggers
// the verification mail.
func (app *Application) initSubscriptions() {
	app.bus.Subscribe(domain.EventUserRegistered, func(ctx context.Context, ev domain.Event) {
		reg, ok := ev.(domain.UserRegistered)
		if !ok || reg.Provider != domain.ProviderLocal {
			return
		}

		token, err := app.accountService.VerificationToken(reg.UserID, reg.Email)
		if err != nil {
			app.logger.Error("failed to mint verification token", "user_id", reg.UserID, "error", err)
			return
		}
		if err := app.mailer.SendVerificationEmail(ctx, reg.Email, token); err != nil {
			app.logger.Error("failed to send verification email", "user_id", reg.UserID, "error", err)
		}
	})
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.SessionService = app.sessionService
	router.AccountService = app.accountService
	router.SocialService = app.socialService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
