// Command screener runs the token screener: it polls DexScreener for
// newly profiled tokens, filters and risk-checks them, stores live
// snapshots plus metric history, detects price pumps, and pushes
// Telegram alerts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dexradar/internal/config"
	"dexradar/internal/feed"
	"dexradar/internal/filter"
	"dexradar/internal/notify"
	"dexradar/internal/observability"
	"dexradar/internal/pipeline"
	"dexradar/internal/risk"
	"dexradar/internal/scheduler"
	"dexradar/internal/storage"
	chstore "dexradar/internal/storage/clickhouse"
	"dexradar/internal/storage/memory"
	"dexradar/internal/storage/migrations"
	pgstore "dexradar/internal/storage/postgres"
	"dexradar/internal/trend"
	"dexradar/internal/volume"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	history := flag.String("history", "", "Override observation backend: postgres or clickhouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")
	once := flag.Bool("once", false, "Run a single cycle and exit")
	flag.Parse()

	// Secrets come from the environment; .env is a convenience for
	// local runs and absent in production.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *history != "" {
		cfg.Storage.History = *history
	}

	logger := newLogger(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, observations, closeStores, err := buildStores(ctx, cfg, *useMemory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage setup failed")
	}
	defer closeStores()

	m := observability.NewMetrics("")

	dexFeed := feed.NewDexScreenerClient()

	var rugOpts []risk.RugCheckOption
	if cfg.RugCheck.BaseURL != "" {
		rugOpts = append(rugOpts, risk.WithRugCheckBaseURL(cfg.RugCheck.BaseURL))
	}
	rug := risk.NewRugCheckClient(rugOpts...)
	assessor := risk.NewAssessor(risk.AssessorOptions{
		Client:   rug,
		MaxScore: cfg.RugCheck.MaxRiskScore,
	})

	var verifier *volume.Verifier
	if vv := cfg.VolumeVerification; vv.UseInternalAlgorithm || vv.UsePocketUniverse {
		var checker volume.AuthenticityChecker
		if vv.UsePocketUniverse {
			checker = volume.NewPocketUniverseClient(volume.PocketUniverseOptions{
				APIURL:   vv.PocketUniverse.APIURL,
				APIToken: vv.PocketUniverse.APIToken,
				Logger:   logger.With().Str("component", "pocketuniverse").Logger(),
			})
		}
		verifier = volume.NewVerifier(volume.VerifierOptions{
			UseInternal:         vv.UseInternalAlgorithm,
			FakeVolumeThreshold: vv.FakeVolumeThreshold,
			Checker:             checker,
			Logger:              logger.With().Str("component", "volume").Logger(),
		})
	}

	var dispatcher *notify.Dispatcher
	var poller notify.Poller
	var commands scheduler.CommandReceiver
	if cfg.Telegram.Enabled {
		tg := notify.NewTelegramClient(notify.TelegramOptions{
			BotToken:   cfg.Telegram.BotToken,
			ChatID:     cfg.Telegram.ChatID,
			MaxRetries: cfg.Telegram.MaxRetries,
			Logger:     logger.With().Str("component", "telegram").Logger(),
		})
		dispatcher = notify.NewDispatcher(notify.DispatcherOptions{
			Notifier: tg,
			Logger:   logger.With().Str("component", "dispatcher").Logger(),
		})
		poller = tg
		commands = notify.NewCommandHandler(notify.CommandHandlerOptions{
			Store:    snapshots,
			Notifier: tg,
			Logger:   logger.With().Str("component", "commands").Logger(),
		})
	}

	pipe := pipeline.New(pipeline.Options{
		Feed:           dexFeed,
		IncludeBoosted: cfg.IncludeBoosted,
		Filter: filter.NewEvaluator(filter.Config{
			MinPriceUSD:     cfg.Filters.MinPriceUSD,
			MaxPriceUSD:     cfg.Filters.MaxPriceUSD,
			MinVolumeUSD:    cfg.Filters.MinVolumeUSD,
			MinLiquidityUSD: cfg.Filters.MinLiquidityUSD,
		}),
		Verifier:      verifier,
		Assessor:      assessor,
		Snapshots:     snapshots,
		Observations:  observations,
		Dispatcher:    dispatcher,
		CoinBlacklist: cfg.CoinBlacklist,
		Logger:        logger.With().Str("component", "pipeline").Logger(),
		Metrics:       m,
	})

	detector := trend.NewDetector(trend.Options{
		Observations:            observations,
		Snapshots:               snapshots,
		Lookback:                cfg.Trend.Lookback(),
		MinPriceIncreasePercent: cfg.Trend.PriceIncreaseThreshold,
		MinVolumeUSD:            cfg.Trend.MinVolumeUSD,
		Logger:                  logger.With().Str("component", "trend").Logger(),
	})

	if *once {
		runOnce(ctx, logger, pipe, detector, dispatcher)
		return
	}

	sched := scheduler.New(scheduler.Options{
		Pipeline:               pipe,
		Detector:               detector,
		Dispatcher:             dispatcher,
		Poller:                 poller,
		Commands:               commands,
		Interval:               cfg.Scheduler.Interval(),
		ErrorCooldown:          cfg.Scheduler.ErrorCooldown(),
		MaxConsecutiveFailures: cfg.Scheduler.MaxConsecutiveFailures,
		Logger:                 logger.With().Str("component", "scheduler").Logger(),
		Metrics:                m,
	})

	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, sched.Health(), logger)
	}

	// Handle shutdown signals; a second signal forces immediate exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go sched.CommandLoop(ctx)

	logger.Info().
		Str("interval", cfg.Scheduler.Interval().String()).
		Bool("telegram", cfg.Telegram.Enabled).
		Msg("screener started")
	sched.Run(ctx)

	close(done)
	logger.Info().Msg("shutdown complete")
}

// runOnce executes a single discovery plus detection pass, for cron
// setups and smoke tests.
func runOnce(ctx context.Context, logger zerolog.Logger, pipe *pipeline.Pipeline, detector *trend.Detector, dispatcher *notify.Dispatcher) {
	stats, err := pipe.Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("cycle failed")
	}
	logger.Info().
		Int("processed", stats.Processed).
		Int("stored", stats.Stored).
		Int("updated", stats.Updated).
		Int("filtered", stats.Filtered).
		Msg("cycle complete")

	signals, err := detector.Detect(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("pump detection failed")
	}
	for _, sig := range signals {
		logger.Info().
			Str("token", sig.TokenAddress).
			Float64("change_pct", sig.PriceChangePercent).
			Msg("pump detected")
		dispatcher.Pump(ctx, sig)
	}
}

// buildStores constructs the snapshot and observation stores per the
// configuration and returns a combined close func.
func buildStores(ctx context.Context, cfg *config.Config, useMemory bool, logger zerolog.Logger) (storage.SnapshotStore, storage.ObservationStore, func(), error) {
	if useMemory {
		return memory.NewSnapshotStore(), memory.NewObservationStore(), func() {}, nil
	}

	if cfg.Storage.PostgresDSN == "" {
		return nil, nil, nil, fmt.Errorf("postgres DSN required (or pass --use-memory)")
	}
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	snapshots := pgstore.NewSnapshotStore(pool)

	if cfg.Storage.History != "clickhouse" {
		return snapshots, pgstore.NewObservationStore(pool), pool.Close, nil
	}

	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
		conn.Close()
		pool.Close()
		return nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	closeAll := func() {
		if err := conn.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing clickhouse connection")
		}
		pool.Close()
	}
	return snapshots, chstore.NewObservationStore(conn), closeAll, nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// serveMetrics exposes /metrics and a JSON /health endpoint.
func serveMetrics(addr string, health *scheduler.Health, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		snap := health.Snapshot()
		body := map[string]any{
			"running":              snap.IsRunning,
			"consecutive_failures": snap.ConsecutiveFailures,
			"total_failures":       snap.TotalFailures,
		}
		if !snap.StartTime.IsZero() {
			body["start_time"] = snap.StartTime.Format(time.RFC3339)
		}
		if !snap.LastSuccessfulRun.IsZero() {
			body["last_successful_run"] = snap.LastSuccessfulRun.Format(time.RFC3339)
		}
		if snap.LastError != nil {
			body["last_error"] = snap.LastError.Error()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
