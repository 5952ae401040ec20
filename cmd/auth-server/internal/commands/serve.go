package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	auth "github.com/goliatone/go-org-auth"
	"github.com/goliatone/go-org-auth/logging"
)

type ServeCmd struct {
	Listen      string `help:"HTTP listen address" default:"0.0.0.0:8000" env:"AUTH_LISTEN"`
	AutoMigrate bool   `help:"run database migrations on startup" default:"true" env:"AUTH_AUTO_MIGRATE"`

	SigningKey     string        `help:"HMAC secret used to sign tokens" required:"" env:"AUTH_SIGNING_KEY"`
	SigningMethod  string        `help:"HMAC signing algorithm" default:"HS256" enum:"HS256,HS384,HS512" env:"AUTH_SIGNING_METHOD"`
	AccessTokenTTL time.Duration `help:"bearer token lifetime" default:"168h" env:"AUTH_ACCESS_TOKEN_TTL"`
	APITokenTTL    time.Duration `help:"organization API key lifetime" default:"873600h" env:"AUTH_API_TOKEN_TTL"`
	PasswordCost   int           `help:"bcrypt cost" default:"12" env:"AUTH_PASSWORD_COST"`
	APIKeyHeader   string        `help:"header carrying organization API keys" default:"x-api-key" env:"AUTH_API_KEY_HEADER"`
	HashidUserIDs  bool          `help:"derive user ids from emails" default:"false" env:"AUTH_HASHID_USER_IDS"`

	Database DatabaseFlags `embed:"" prefix:"db-"`
}

func (s *ServeCmd) config() auth.BaseConfig {
	cfg := auth.DefaultConfig(s.SigningKey)
	cfg.SigningMethod = s.SigningMethod
	cfg.AccessTokenTTL = s.AccessTokenTTL
	cfg.APITokenTTL = s.APITokenTTL
	cfg.PasswordCost = s.PasswordCost
	cfg.APIKeyHeader = s.APIKeyHeader
	cfg.UseHashidUserIDs = s.HashidUserIDs
	return cfg
}

func (s *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(globals.Dev)

	cfg := s.config()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	db, err := s.Database.Open()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if s.AutoMigrate {
		if err := auth.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	service, err := auth.NewAuthService(cfg, repo)
	if err != nil {
		return err
	}
	service.WithLogger(logger).WithMetrics(auth.NewMetrics(registry))

	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		return fiber.New(fiber.Config{
			AppName:               "auth-server " + globals.Version,
			DisableStartupMessage: true,
			ErrorHandler:          auth.ErrorHandler(logger),
			ReadTimeout:           30 * time.Second,
			WriteTimeout:          30 * time.Second,
			IdleTimeout:           5 * time.Minute,
		})
	})

	app := srv.WrappedRouter()
	app.Use(logging.Requests(logger.Zerolog()))
	app.Get("/metrics", auth.MetricsHandler(registry))

	auth.RegisterAuthRoutes(srv.Router(), service,
		auth.WithControllerLogger(logger),
		auth.WithControllerDebug(globals.Dev),
	)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", s.Listen, "version", globals.Version)
		errCh <- app.Listen(s.Listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}
