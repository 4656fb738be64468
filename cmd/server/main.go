package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	httpapi "audio-transcription-service/internal/http"

	"audio-transcription-service/internal/api/ws"
	"audio-transcription-service/internal/config"
	"audio-transcription-service/internal/decode"
	"audio-transcription-service/internal/engine"
	enginegoogle "audio-transcription-service/internal/engine/google"
	enginemock "audio-transcription-service/internal/engine/mock"
	enginewhisper "audio-transcription-service/internal/engine/whisper"
	"audio-transcription-service/internal/events"
	"audio-transcription-service/internal/observability"
	"audio-transcription-service/internal/observability/logging"
	"audio-transcription-service/internal/session"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})
	logger := logging.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The engine handle is process-wide: initialized once here, injected into
	// every session, never mutated afterwards. Missing model assets are fatal.
	eng := mustInitEngine(ctx, cfg)

	decoder := decode.New(decode.Config{
		MinBytes:      cfg.Decode.MinBytes,
		FFmpegPath:    cfg.Decode.FFmpegPath,
		FFmpegTimeout: cfg.Decode.FFmpegTimeout,
	})

	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	wsHandler := ws.NewHandler(eng, decoder, publisher, session.Config{
		MinChunkBytes: cfg.Session.MinChunkBytes,
	})
	router := httpapi.NewRouter(eng, decoder, wsHandler)

	obs := observability.NewServer(cfg.Observability.MetricsAddr)
	obs.Start()

	srv := &http.Server{
		Addr:        ":" + cfg.Service.Port,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Str("engine", eng.Name()).
			Msg("audio transcription service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("observability server shutdown")
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("service exited with error")
	}
	logger.Info().Msg("service stopped")
}

// mustInitEngine builds the configured transcription engine, exiting the
// process when initialization fails (missing/corrupt model assets, bad
// credentials).
func mustInitEngine(ctx context.Context, cfg *config.Config) engine.Engine {
	switch cfg.Engine.Provider {
	case "whisper":
		eng, err := enginewhisper.New(cfg.Engine.WhisperURL,
			enginewhisper.WithLanguage(cfg.Engine.Language))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize whisper engine")
		}
		return eng
	case "google":
		eng, err := enginegoogle.New(ctx, cfg.Engine.Language)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize google engine")
		}
		return eng
	case "mock":
		return enginemock.New()
	default:
		log.Fatal().Str("provider", cfg.Engine.Provider).Msg("unknown engine provider")
		return nil
	}
}
