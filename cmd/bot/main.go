package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"VolSentinel/internal/config"
	"VolSentinel/internal/metrics"
	"VolSentinel/internal/notifier"
	"VolSentinel/internal/provider"
	"VolSentinel/internal/recorder"
	"VolSentinel/internal/scheduler"
	"VolSentinel/internal/server"
	"VolSentinel/internal/vbi"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	log.Info().Msg("VolSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	// Market-data provider
	deribit := provider.NewDeribitClient(cfg)
	log.Info().Str("provider", deribit.Name()).Str("base_url", cfg.Deribit.BaseURL).
		Strs("currencies", cfg.Deribit.Currencies).Msg("provider configured")

	// Event sink
	var rec recorder.Recorder
	switch {
	case cfg.Supabase.URL != "" && cfg.Supabase.Key != "":
		rec = recorder.NewSupabaseRecorder(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table)
		log.Info().Str("sink", "supabase").Msg("recorder configured")
	case cfg.Database.SQLitePath != "":
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	default:
		rec = recorder.NewNoopRecorder()
	}

	// Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Scorer with process-lifetime history
	hist := vbi.NewHistoryStore(cfg.VBI.PatternWindow)
	scorer := vbi.NewScorer(deribit, cfg.VBI, hist)

	m := metrics.New()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cycle orchestrator
	sched := scheduler.New(ctx, scorer, rec, tn, m, cfg.Deribit.Currencies, cfg.Schedule.DegradedAlertThreshold)
	if err := sched.Register(time.Duration(cfg.Schedule.CheckIntervalSec) * time.Second); err != nil {
		log.Fatal().Err(err).Msg("register cycle")
	}
	sched.Start()
	defer sched.Stop()

	// Liveness probe and metrics endpoint
	srv := server.New(cfg.Server.ListenAddr)
	srv.Start()

	// Telegram commands
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing cycle now")
		go sched.RunCycle()
	}

	log.Info().Msg("VolSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown")
	}
	log.Info().Msg("VolSentinel stopped")
}
