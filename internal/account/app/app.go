package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/access"
	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/email"
	httpapi "github.com/aussiebroadwan/accountd/internal/account/http"
	"github.com/aussiebroadwan/accountd/internal/account/service"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/internal/account/store/drivers/sqlite"
	"github.com/aussiebroadwan/accountd/pkg/cryptox"
	"github.com/aussiebroadwan/accountd/pkg/jwtx"
	"github.com/aussiebroadwan/accountd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the account service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	signer *jwtx.Signer
	engine *access.Engine

	authService         *service.AuthService
	userService         *service.UserService
	twofaService        *service.TwoFAService
	otpService          *service.OTPService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router

	stopHousekeeping context.CancelFunc
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "accountd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initSigner(); err != nil {
		return nil, err
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.engine = access.NewEngine(access.DefaultGrants())

	app.initServices()
	app.initHTTP()

	if err := app.seedAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	hkCtx, cancel := context.WithCancel(context.Background())
	app.stopHousekeeping = cancel
	go app.housekeepingService.Run(hkCtx)

	app.logger.Info("account service starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down account service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.stopHousekeeping != nil {
		app.stopHousekeeping()
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("account service stopped")
	return nil
}

// initSigner prepares the access token signer. Without a configured secret a
// random one is generated, which invalidates outstanding tokens on restart.
func (app *Application) initSigner() error {
	secret := []byte(app.cfg.TokenSecret)
	if len(secret) == 0 {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("failed to generate token secret: %w", err)
		}
		secret = []byte(base64.RawURLEncoding.EncodeToString(raw))
		app.logger.Warn("ACCOUNT_TOKEN_SECRET not set, using an ephemeral secret; tokens will not survive restarts")
	}

	app.signer = &jwtx.Signer{
		Secret: secret,
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.TokenTTL,
	}
	return nil
}

// initDatabase initializes the database and applies migrations.
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

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db}

	app.twofaService = &service.TwoFAService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}

	app.otpService = &service.OTPService{
		Store:   app.db,
		Sender:  app.newSender(),
		AppName: app.cfg.AppName,
		TTL:     app.cfg.OTPTTL,
	}

	app.authService = &service.AuthService{
		Store:  app.db,
		Signer: app.signer,
		TwoFA:  app.twofaService,
	}

	app.housekeepingService = &service.HousekeepingService{
		Store:    app.db,
		Logger:   app.logger,
		Interval: app.cfg.HousekeepingInterval,
	}
}

func (app *Application) newSender() email.Sender {
	if app.cfg.SMTPHost == "" {
		app.logger.Warn("SMTP_HOST not set, outgoing mail will be logged instead of delivered")
		return &email.LogSender{Logger: app.logger}
	}

	return &email.SMTPSender{
		Host:               app.cfg.SMTPHost,
		Port:               app.cfg.SMTPPort,
		From:               app.cfg.SMTPFrom,
		User:               app.cfg.SMTPUser,
		Pass:               app.cfg.SMTPPass,
		InsecureSkipVerify: app.cfg.SMTPInsecure,
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		&jwtx.Verifier{Secret: app.signer.Secret, Issuer: app.cfg.Issuer},
		app.engine,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.AuthService = app.authService
	router.UserService = app.userService
	router.TwoFAService = app.twofaService
	router.OTPService = app.otpService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// seedAdmin creates the first admin account on a fresh database when seed
// credentials are configured. Existing installs are never touched.
func (app *Application) seedAdmin(ctx context.Context) error {
	if app.cfg.AdminEmail == "" || app.cfg.AdminPassword == "" {
		return nil
	}

	empty, err := app.db.Users().IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for existing users: %w", err)
	}
	if !empty {
		return nil
	}

	admin, err := app.userService.Create(ctx, service.CreateUserParams{
		Email:    app.cfg.AdminEmail,
		Name:     "Administrator",
		Password: app.cfg.AdminPassword,
		Roles:    []string{domain.RoleAdmin},
	})
	if err != nil {
		return fmt.Errorf("failed to seed admin account: %w", err)
	}

	app.logger.Info("seeded initial admin account", "user_id", admin.ID)
	return nil
}
