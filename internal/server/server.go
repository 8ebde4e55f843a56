// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, mail transport and HTTP
// handlers into a running newsletter service.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/go-newsletter/internal/config"
	"codeberg.org/oliverandrich/go-newsletter/internal/database"
	"codeberg.org/oliverandrich/go-newsletter/internal/handlers"
	"codeberg.org/oliverandrich/go-newsletter/internal/i18n"
	"codeberg.org/oliverandrich/go-newsletter/internal/metrics"
	"codeberg.org/oliverandrich/go-newsletter/internal/repository"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/auth"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/email"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/newsletter"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/session"
	"codeberg.org/oliverandrich/go-newsletter/internal/services/subscription"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"mail_transport", cfg.Mail.Transport,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	sender, err := email.New(ctx, &cfg.Mail)
	if err != nil {
		return fmt.Errorf("failed to set up mail transport: %w", err)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	e, err := New(ctx, cfg, db, sender, m)
	if err != nil {
		return err
	}

	return startWithGracefulShutdown(ctx, e, cfg)
}

// New builds the Echo instance with middleware and routes. A nil m
// disables the metrics endpoint.
func New(ctx context.Context, cfg *config.Config, db *sqlx.DB, sender email.Sender, m *metrics.Metrics) (*echo.Echo, error) {
	repo := repository.New(db)

	authService := auth.NewService(repo)
	if cfg.Admin.Username != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	}

	sessions, err := session.NewManager(&cfg.Session, isSecure(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to set up sessions: %w", err)
	}

	h := handlers.New(handlers.Deps{
		Repo:          repo,
		Subscriptions: subscription.NewService(repo, sender, cfg.Server.BaseURL, m),
		Confirmer:     subscription.NewConfirmer(repo, m),
		Publisher:     newsletter.NewPublisher(newsletter.NewSource(repo), sender, m),
		Auth:          authService,
		Sessions:      sessions,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	setupMiddleware(e, cfg, sessions, repo)
	setupRoutes(e, h, m)

	return e, nil
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers, m *metrics.Metrics) {
	e.GET("/health", h.Health)
	e.GET("/", h.Home)

	e.POST("/subscriptions", h.Subscribe)
	e.GET("/confirm", h.Confirm)

	e.GET(handlers.LoginPath, h.LoginPage)
	e.POST(handlers.LoginPath, h.Login)
	e.POST("/admin/logout", h.Logout)
	e.GET(handlers.NewslettersPath, h.NewsletterForm, handlers.RequireAdminPage)
	e.POST(handlers.NewslettersPath, h.PublishNewsletter, handlers.RequireAdmin)

	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	setup, err := setupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if setup.Mode == TLSModeACME {
		addr = ":443"
	}

	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL, "tls", setup.Mode)
		var serveErr error
		if setup.Config == nil {
			serveErr = e.Start(addr)
		} else {
			serveErr = startTLSServer(ctx, e, addr, setup.Config)
		}
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()

	// ACME needs :80 for the HTTP-01 challenge and redirects everything else.
	var challengeServer *http.Server
	if setup.ChallengeHandler != nil {
		challengeServer = &http.Server{
			Addr:              ":80",
			Handler:           setup.ChallengeHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := challengeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if challengeServer != nil {
		if err := challengeServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown challenge server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

func startTLSServer(ctx context.Context, e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.TLSServer.Serve(e.TLSListener)
}
