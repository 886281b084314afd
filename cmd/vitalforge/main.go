package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bearyjd/vitalforge/internal/adapter/garmin"
	adapthttp "github.com/bearyjd/vitalforge/internal/adapter/http"
	"github.com/bearyjd/vitalforge/internal/adapter/memory"
	"github.com/bearyjd/vitalforge/internal/adapter/postgres"
	"github.com/bearyjd/vitalforge/internal/app"
	"github.com/bearyjd/vitalforge/internal/config"
	"github.com/bearyjd/vitalforge/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config load failed")
	}

	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	var store interface {
		domain.MetricRepository
		domain.SyncRepository
	}
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("db open failed")
		}
		defer func() { _ = db.Close() }()
		store = db
	} else {
		log.Warn().Msg("no database_url configured, metrics are held in memory only")
		store = memory.New()
	}

	var provider domain.ProviderGateway
	client, err := garmin.New(garmin.Config{
		BaseURL:   cfg.Garmin.BaseURL,
		TokenPath: cfg.Garmin.TokenPath,
		RPS:       cfg.Garmin.RPS,
		Burst:     cfg.Garmin.Burst,
		Timeout:   cfg.Garmin.Timeout,
	}, log)
	if err != nil {
		// Serve trends and rules from stored data; syncs will report
		// auth_expired until a fresh token lands at the configured path.
		log.Warn().Err(err).Str("token_path", cfg.Garmin.TokenPath).
			Msg("provider unavailable, re-authentication required")
		provider = unavailableProvider{}
	} else {
		provider = client
	}

	trend := app.NewTrendService(store)
	syncSvc := app.NewSyncService(store, store, provider, app.SyncConfig{
		BackfillDays: cfg.BackfillDays,
		FetchTimeout: cfg.FetchTimeout,
		RetryBackoff: cfg.RetryBackoff,
	}, log)
	advisor := app.NewAdvisorService(trend, app.NewRuleEvaluator(), nil, cfg.AdvisorTTL, log)
	weight := app.NewWeightService(store, provider, log)

	scheduler := app.NewScheduler(syncSvc, cfg.SyncInterval, log)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: adapthttp.New(trend, advisor, syncSvc, weight, log).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}

// unavailableProvider stands in when no valid Garmin token is on disk.
type unavailableProvider struct{}

func (unavailableProvider) Fetch(context.Context, domain.MetricKind, domain.Date) (*domain.Sample, error) {
	return nil, domain.ErrAuthExpired
}

func (unavailableProvider) PushWeight(context.Context, float64, time.Time) error {
	return domain.ErrAuthExpired
}
