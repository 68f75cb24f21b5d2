// Command resonance is the main entry point for the Resonance card
// generation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/resonance/internal/availability"
	"github.com/MrWong99/resonance/internal/config"
	"github.com/MrWong99/resonance/internal/deck"
	"github.com/MrWong99/resonance/internal/devlog"
	"github.com/MrWong99/resonance/internal/health"
	"github.com/MrWong99/resonance/internal/httpapi"
	"github.com/MrWong99/resonance/internal/observe"
	"github.com/MrWong99/resonance/internal/offline"
	"github.com/MrWong99/resonance/internal/orchestrator"
	"github.com/MrWong99/resonance/internal/resilience"
	"github.com/MrWong99/resonance/internal/session"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "resonance: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "resonance: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("resonance starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "resonance",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.DefaultRegistry()

	chat, err := buildChatChain(ctx, reg, cfg.Providers.Chat)
	if err != nil {
		slog.Error("failed to build chat providers", "err", err)
		return 1
	}
	speech, err := buildSpeechChain(ctx, reg, cfg.Providers.Speech)
	if err != nil {
		slog.Error("failed to build speech providers", "err", err)
		return 1
	}

	// ── Diagnostic sinks ──────────────────────────────────────────────────────
	ring := devlog.NewRing(cfg.Diagnostics.RingSize)
	broadcaster := devlog.NewBroadcaster()
	sinks := []devlog.Sink{ring, broadcaster, &devlog.SlogSink{Logger: logger}}

	if dsn := cfg.Diagnostics.PostgresDSN; dsn != "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pool.Close()
		pg, err := devlog.NewPostgresSink(ctx, pool)
		if err != nil {
			slog.Error("failed to initialise postgres diagnostics", "err", err)
			return 1
		}
		sinks = append(sinks, pg)
		slog.Info("diagnostic entries persisted to postgres")
	}
	sink := devlog.Tee(sinks...)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	monitor := availability.NewMonitor(chat, speech, availability.Config{
		PrimaryModel:  cfg.Generation.PrimaryModel,
		FallbackModel: cfg.Generation.FallbackModel,
		SpeechModel:   cfg.Generation.SpeechModel,
	}, availability.WithDevLog(sink), availability.WithLogger(logger))

	catalog, err := deck.NewCatalog()
	if err != nil {
		slog.Error("failed to build deck catalog", "err", err)
		return 1
	}

	sessions := session.NewRegistry(chat, monitor,
		session.WithDevLog(sink), session.WithLogger(logger), session.WithMetrics(metrics))

	orch := orchestrator.New(catalog, sessions, speech, monitor, offline.NewSource(),
		orchestrator.WithTimeout(cfg.Generation.Timeout),
		orchestrator.WithDevLog(sink),
		orchestrator.WithLogger(logger),
		orchestrator.WithMetrics(metrics),
	)

	// ── HTTP surface ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()

	httpapi.New(orch, catalog, monitor,
		httpapi.WithStream(broadcaster),
		httpapi.WithRing(ring),
		httpapi.WithLogger(logger),
		httpapi.WithDefaultLanguage(cfg.Generation.Language),
	).Register(mux)

	health.New().
		AddCheck("models", func(context.Context) error { return monitor.Ready() }).
		Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	handler := observe.Middleware(metrics)(mux)

	// ── Background health checks ──────────────────────────────────────────────
	go monitor.Run(ctx, cfg.Generation.HealthInterval)

	// ── Serve ─────────────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready, press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("serve error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	sessions.ResetAll()
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildChatChain instantiates every configured chat backend and composes them
// into a fallback chain. The first entry is the primary; the rest are tried
// in order behind circuit breakers.
func buildChatChain(ctx context.Context, reg *config.Registry, entries []config.ProviderEntry) (*resilience.ChatChain, error) {
	if len(entries) == 0 {
		return nil, errors.New("no chat providers configured")
	}

	var chain *resilience.ChatChain
	for i, entry := range entries {
		p, err := reg.CreateChat(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("create chat provider %q: %w", entry.Name, err)
		}
		if i == 0 {
			chain = resilience.NewChatChain(entry.Name, p, resilience.BreakerConfig{})
		} else {
			chain.Add(entry.Name, p)
		}
		slog.Info("provider created", "kind", "chat", "name", entry.Name, "fallback", i > 0)
	}
	return chain, nil
}

// buildSpeechChain does the same for the speech backends.
func buildSpeechChain(ctx context.Context, reg *config.Registry, entries []config.ProviderEntry) (*resilience.SpeechChain, error) {
	if len(entries) == 0 {
		return nil, errors.New("no speech providers configured")
	}

	var chain *resilience.SpeechChain
	for i, entry := range entries {
		p, err := reg.CreateSpeech(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("create speech provider %q: %w", entry.Name, err)
		}
		if i == 0 {
			chain = resilience.NewSpeechChain(entry.Name, p, resilience.BreakerConfig{})
		} else {
			chain.Add(entry.Name, p)
		}
		slog.Info("provider created", "kind", "speech", "name", entry.Name, "fallback", i > 0)
	}
	return chain, nil
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
