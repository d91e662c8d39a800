package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/routegate/routegate/pkg/config"
	"github.com/routegate/routegate/pkg/domain"
	"github.com/routegate/routegate/pkg/gates"
	"github.com/routegate/routegate/pkg/logging"
	"github.com/routegate/routegate/pkg/nav"
	"github.com/routegate/routegate/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the navigation hook as an HTTP daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) error {
	provider, err := config.NewFileProvider(flagConfig, slog.Default())
	if err != nil {
		return fmt.Errorf("initialize config provider: %w", err)
	}
	defer func() {
		if err := provider.Close(); err != nil {
			slog.Error("failed to close config provider", "error", err)
		}
	}()

	snapshot := provider.Current()
	cfg := snapshot.Config

	logCfg := cfg.Logging
	if flagLogLevel != "" {
		logCfg.Level = flagLogLevel
	}
	if flagPretty {
		logCfg.Pretty = true
	}
	logger := logging.NewLogger(logCfg)
	slog.SetDefault(logger)

	logger.Info("starting routegate",
		"config", flagConfig,
		"listen", cfg.Server.Listen,
		"routes", len(cfg.Routes),
	)

	shutdownTelemetry, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Telemetry.Environment,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}

	routes := &nav.AtomicRoutes{}
	routes.Store(snapshot.Routes)
	go watchConfig(provider, routes, logger)

	upstream, err := upstreamHandler(cfg.Server.Upstream)
	if err != nil {
		return fmt.Errorf("configure upstream: %w", err)
	}

	metrics := nav.NewMetrics()
	mux := http.NewServeMux()
	_, err = nav.Install(nav.InstallOptions{
		Gates:   gates.Builtin(logger),
		Routes:  routes,
		Mux:     mux,
		Next:    upstream,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("install navigation hook: %w", err)
	}

	admin := http.NewServeMux()
	admin.Handle("/metrics", metrics.Handler())
	admin.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	admin.Handle("/", otelhttp.NewHandler(mux, "routegate.hook"))

	server := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           admin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}
	return nil
}

func watchConfig(provider *config.FileProvider, routes *nav.AtomicRoutes, logger *slog.Logger) {
	updates := provider.Subscribe()
	for snapshot := range updates {
		routes.Store(snapshot.Routes)
		logger.Info("route table updated",
			"generation", snapshot.Generation,
			"routes", len(snapshot.Config.Routes),
		)
	}
}

// upstreamHandler proxies to the configured upstream, or serves the built-in
// stub: remediation pages under /confirm/ and a plain acknowledgement elsewhere.
func upstreamHandler(upstream string) (http.Handler, error) {
	if upstream != "" {
		target, err := url.Parse(upstream)
		if err != nil {
			return nil, fmt.Errorf("parse upstream URL: %w", err)
		}
		return httputil.NewSingleHostReverseProxy(target), nil
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, domain.RemediationPrefix) {
			formID := strings.TrimPrefix(r.URL.Path, domain.RemediationPrefix)
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			fmt.Fprintf(w, "complete form %q to continue\n", formID)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}), nil
}
