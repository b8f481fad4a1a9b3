package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/takumamiraidai/Lifetip-API/internal/audio"
	"github.com/takumamiraidai/Lifetip-API/internal/chat"
	"github.com/takumamiraidai/Lifetip-API/internal/config"
	"github.com/takumamiraidai/Lifetip-API/internal/httpapi"
	"github.com/takumamiraidai/Lifetip-API/internal/llm"
	"github.com/takumamiraidai/Lifetip-API/internal/observability"
	"github.com/takumamiraidai/Lifetip-API/internal/store"
	"github.com/takumamiraidai/Lifetip-API/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := observability.NewLogger("info", true)
		fallback.Fatal().Err(err).Msg("config error")
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogPretty)
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	st, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()

	artifacts, err := audio.NewStore(cfg.AudioDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("audio store init failed")
	}
	refs, err := audio.NewRefStore(cfg.VoiceRefDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("voice ref store init failed")
	}

	completer := llm.NewClient(cfg.ChatAPIURL, cfg.ChatModel, cfg.ChatTimeout, logger)

	breaker := voice.BreakerSettings{
		MaxFailures:  cfg.BreakerMaxFailures,
		ResetTimeout: cfg.BreakerResetTimeout,
	}
	voicevox := voice.NewVoiceVoxClient(cfg.VoiceVoxURL, cfg.VoiceVoxTimeout, breaker, logger)
	clone := voice.NewCloneClient(cfg.CloneAPIURL, cfg.CloneLanguage, cfg.CloneTimeout, breaker, logger)
	orchestrator := voice.NewOrchestrator(voicevox, clone, metrics, logger)

	turns := chat.NewService(st, completer, orchestrator, artifacts, metrics, logger, chat.Options{
		TurnDeadline:          cfg.TurnDeadline,
		DefaultAttemptTimeout: cfg.DefaultAttemptTimeout,
		CustomAttemptTimeout:  cfg.CloneTimeout,
		HistoryWindow:         cfg.HistoryWindow,
	})

	api := httpapi.New(st, turns, artifacts, refs, logger)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		logger.Info().Str("addr", cfg.BindAddr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logger.Info().Msg("shutdown complete")
}
