// Package main is the entry point for memory-ledger.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/context0/memory-ledger/business/bootstrap"
	bootstrapApp "github.com/context0/memory-ledger/business/bootstrap/app"
	bootstrapDI "github.com/context0/memory-ledger/business/bootstrap/di"
	"github.com/context0/memory-ledger/business/ledger"
	"github.com/context0/memory-ledger/business/statecache"
	statecacheDI "github.com/context0/memory-ledger/business/statecache/di"
	"github.com/context0/memory-ledger/business/wallet"
	"github.com/context0/memory-ledger/internal/apm"
	"github.com/context0/memory-ledger/internal/apperror"
	"github.com/context0/memory-ledger/internal/config"
	"github.com/context0/memory-ledger/internal/health"
	"github.com/context0/memory-ledger/internal/logger"
	"github.com/context0/memory-ledger/internal/metrics"
	"github.com/context0/memory-ledger/internal/monolith"
	"github.com/context0/memory-ledger/pkg/ui"
	"github.com/context0/memory-ledger/pkg/ui/components"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	tuiMode := flag.Bool("tui", false, "Show bootstrap progress in a terminal UI")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("memory-ledger %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !*tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, *tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeConfigInvalid, "load config")
	}
	cfg.App.TUIMode = tuiMode

	log := newLogger(cfg, tuiMode)
	log.Info(ctx, "starting memory-ledger",
		"version", version,
		"environment", cfg.App.Environment,
	)

	stopTelemetry, err := startTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", cfg.Health.Port)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(shutdownCtx)
	}()

	mono := monolith.New(cfg, log)
	defer func() {
		if err := mono.Close(); err != nil {
			log.Warn(context.Background(), "shutdown incomplete", "error", err)
		}
	}()

	modules := []monolith.Module{
		&ledger.Module{},
		&wallet.Module{},
		&statecache.Module{},
		&bootstrap.Module{}, // runs the bootstrap, must be last
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	orch := bootstrapDI.GetOrchestrator(mono.Services())
	mono.OnClose(orch)
	registerHealthChecks(healthServer, mono, orch)

	start := func(observe bootstrapApp.Observer) error {
		if observe != nil {
			orch.Observe(observe)
		}
		if err := mono.StartModules(ctx, modules...); err != nil {
			return err
		}
		healthServer.SetReady(true)
		return nil
	}

	if tuiMode {
		return runTUI(ctx, orch, start)
	}
	return runCLI(ctx, orch, log, start)
}

func newLogger(cfg *config.Config, tuiMode bool) *logger.Logger {
	level := logger.ParseLevel(cfg.App.LogLevel)

	switch {
	case tuiMode:
		return logger.NewText(uiLogWriter{}, level, cfg.App.Name, apm.TraceID)
	case cfg.App.IsProduction():
		return logger.New(os.Stderr, level, cfg.App.Name, apm.TraceID)
	default:
		return logger.NewText(os.Stderr, level, cfg.App.Name, apm.TraceID)
	}
}

// uiLogWriter forwards each log record to the TUI log panel.
type uiLogWriter struct{}

func (uiLogWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	level := "info"
	if _, rest, ok := strings.Cut(line, "level="); ok {
		level, _, _ = strings.Cut(rest, " ")
	}
	ui.Send(ui.LogMsg{Level: strings.ToLower(level), Message: line})
	return len(p), nil
}

func startTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}
	tc := cfg.Telemetry

	headers, err := apm.ParseHeaders(tc.OTLPHeaders)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeConfigInvalid, "telemetry.otlp_headers")
	}

	var spanWriter io.Writer = os.Stdout
	if cfg.App.TUIMode {
		spanWriter = io.Discard
	}
	traceProvider, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: tc.ServiceName,
		Version:     version,
		Exporter:    apm.Exporter(tc.Exporter),
		Endpoint:    tc.OTLPEndpoint,
		Headers:     headers,
		Writer:      spanWriter,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	registry := prom.NewRegistry()
	opts := []metrics.OptionFn{metrics.WithServiceName(tc.ServiceName)}
	switch tc.MetricsExporter {
	case "prometheus":
		opts = append(opts, metrics.WithPrometheus(registry))
	case "otlp":
		opts = append(opts, metrics.WithOtelCollector(tc.OTLPEndpoint, headers, tc.OTLPInsecure))
	}
	meterProvider, err := metrics.NewMetricProvider(ctx, opts...)
	if err != nil {
		_ = traceProvider.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	var metricsServer *metrics.Server
	if tc.MetricsExporter == "prometheus" && tc.PrometheusPort > 0 {
		metricsServer = metrics.NewServer(tc.PrometheusPort, registry, log)
		metricsServer.Start()
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Stop(shutdownCtx)
		}
		_ = meterProvider.Shutdown(shutdownCtx)
		_ = traceProvider.Stop()
	}, nil
}

func registerHealthChecks(s *health.Server, mono *monolith.App, orch *bootstrapApp.Orchestrator) {
	s.RegisterCheck("ledger", func(ctx context.Context) (bool, string) {
		res := orch.Result()
		if res == nil {
			return false, "not bootstrapped"
		}
		id, err := res.Connection.Client().ChainID(ctx)
		if err != nil {
			return false, err.Error()
		}
		return true, fmt.Sprintf("%s chain %s", res.Connection.Tier(), id)
	})

	remote := statecacheDI.GetRemoteCache(mono.Services())
	s.RegisterOptionalCheck("remote_cache", func(context.Context) (bool, string) {
		st := remote.State()
		return remote.IsReady(), st.String()
	})
}

func runCLI(ctx context.Context, orch *bootstrapApp.Orchestrator, log *logger.Logger, start func(bootstrapApp.Observer) error) error {
	if err := start(nil); err != nil {
		return err
	}

	res := orch.Result()
	log.Info(ctx, "ready, waiting for shutdown",
		"tier", res.Connection.Tier(),
		"wallet", res.Wallet.Address().Hex(),
	)

	<-ctx.Done()
	log.Info(context.Background(), "shutting down")
	return nil
}

func runTUI(ctx context.Context, orch *bootstrapApp.Orchestrator, start func(bootstrapApp.Observer) error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := start(ui.Observer()); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}
		ui.Send(ui.ReadyMsg{Fields: summary(orch.Result())})

		<-ctx.Done()
		errCh <- nil
	}()

	go func() {
		<-ctx.Done()
		if ui.Program != nil {
			ui.Program.Quit()
		}
	}()

	if err := ui.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

func summary(res *bootstrapApp.Result) []components.Field {
	remote := "not configured"
	if res.RemoteCache != nil {
		remote = res.RemoteCache.State().String()
	}

	return []components.Field{
		{Label: "Environment", Value: res.Environment.String()},
		{Label: "Network", Value: res.Connection.Tier().String()},
		{Label: "Chain ID", Value: res.Connection.ChainID().String()},
		{Label: "Endpoint", Value: res.Connection.URL()},
		{Label: "Wallet", Value: fmt.Sprintf("%s (%s)", res.Wallet.Address().Hex(), res.Wallet.Provenance())},
		{Label: "State contract", Value: res.Cache.Source().Contract().Hex()},
		{Label: "Cache tiers", Value: fmt.Sprint(res.Cache.Kinds())},
		{Label: "Remote cache", Value: remote},
	}
}
