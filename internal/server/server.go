// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the services into an Echo instance and runs it.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/scamsentinel/internal/config"
	"codeberg.org/oliverandrich/scamsentinel/internal/database"
	"codeberg.org/oliverandrich/scamsentinel/internal/handlers"
	"codeberg.org/oliverandrich/scamsentinel/internal/i18n"
	"codeberg.org/oliverandrich/scamsentinel/internal/metrics"
	"codeberg.org/oliverandrich/scamsentinel/internal/repository"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/auth"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/email"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/flash"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/media"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/news"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/reports"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/reputation"
	"codeberg.org/oliverandrich/scamsentinel/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// outboundTimeout bounds calls to VirusTotal and NewsAPI.
const outboundTimeout = 30 * time.Second

// App holds the wired services shared by middleware and routes.
type App struct {
	Config   *config.Config
	Repo     *repository.Repository
	Tokens   *token.Service
	Flash    *flash.Manager
	Handlers *handlers.Handlers
}

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	SetupLogger(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"database", cfg.Database.Driver,
		"media", cfg.Media.Driver,
	)

	// Database, migrations included
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(db); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	metrics.MustRegister()

	app, err := NewApp(ctx, cfg, db)
	if err != nil {
		return err
	}

	cleanupCtx, stopCleanup := context.WithCancel(ctx)
	defer stopCleanup()
	startCleanup(cleanupCtx, app.Repo, cleanupInterval)

	return startWithGracefulShutdown(NewEcho(app), cfg)
}

// NewApp creates the services for cfg.
func NewApp(ctx context.Context, cfg *config.Config, db *sqlx.DB) (*App, error) {
	repo := repository.New(db)
	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")

	mailer, err := email.NewService(&cfg.SMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to configure email: %w", err)
	}

	tokens, err := token.NewService(repo, &cfg.JWT, secure)
	if err != nil {
		return nil, err
	}

	flashes, err := flash.NewManager(&cfg.Session, secure)
	if err != nil {
		return nil, fmt.Errorf("failed to configure sessions: %w", err)
	}

	images, err := media.New(ctx, &cfg.Media)
	if err != nil {
		return nil, fmt.Errorf("failed to configure media storage: %w", err)
	}

	httpClient := &http.Client{Timeout: outboundTimeout}

	h := handlers.New(repo, handlers.Services{
		Auth:             auth.NewService(repo, &cfg.Registration, mailer),
		Tokens:           tokens,
		Flash:            flashes,
		Reports:          reports.NewService(repo, images, cfg.Media.MaxImages),
		Reputation:       reputation.New(&cfg.Reputation, httpClient),
		News:             news.New(&cfg.News, httpClient),
		Contact:          mailer,
		ContactRecipient: cfg.Contact.Recipient,
	})

	return &App{
		Config:   cfg,
		Repo:     repo,
		Tokens:   tokens,
		Flash:    flashes,
		Handlers: h,
	}, nil
}

// NewEcho builds the Echo instance with middleware and routes.
func NewEcho(app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = app.Handlers.ErrorHandler

	setupMiddleware(e, app)
	setupRoutes(e, app)
	return e
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
