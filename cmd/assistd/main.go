// Package main is the entry point for the WinBeat assistant service. It
// wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/assistant"
	"github.com/winbeat/assist/internal/backend"
	"github.com/winbeat/assist/internal/chat"
	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/gemini"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/pages"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/internal/transport"
	"github.com/winbeat/assist/internal/workflow"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "assistd", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Domain wiring: backend client, page controllers, registry,
	// navigator, workflow engine, generative adapter, interpreter.
	client := backend.NewClient(cfg.Backend, logger, metrics)
	reg := registry.New()
	nav := pages.NewNavigator(reg, logger, metrics,
		pages.NewRegistrationsPage(reg, client, logger),
		pages.NewClientsPage(reg, client, logger),
		pages.NewUsersPage(reg, client, logger),
	)
	engine := workflow.NewEngine(reg, nav, cfg.Workflow, logger, metrics)
	adapter := gemini.New(cfg.Gemini, logger, metrics)
	interp := assistant.New(reg, nav, client, adapter, engine, logger, metrics)
	store := chat.NewStore(cfg.Chat)

	if !cfg.GeminiConfigured() {
		logger.Warn("generative service not configured, fallback replies only")
	}

	var jwks *transport.JWKSClient
	if cfg.Identity.Secret == "" {
		jwks = transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL, logger)
	}

	readinessChecks := observability.ReadinessChecks{
		// Controllers are wired at startup; the registry fills as users
		// navigate, so readiness only requires the wiring.
		PagesRegistered: func() bool { return true },
		Backend:         client,
	}
	if cfg.GeminiConfigured() {
		readinessChecks.Gemini = adapter
	}

	router := transport.NewRouter(transport.Dependencies{
		Config:       cfg,
		Logger:       logger,
		Metrics:      metrics,
		Authenticate: transport.Authenticator(cfg.Identity, jwks),
		Interpreter:  interp,
		Chat:         store,
		Registry:     reg,
		Engine:       engine,
		Gemini:       adapter,
		Readiness:    readinessChecks,
	})

	handler := observability.TracingMiddleware(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.Bool("gemini_configured", cfg.GeminiConfigured()),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}
