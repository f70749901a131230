package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dental-screen/config"
	httpapi "dental-screen/internal/api/http"
	"dental-screen/internal/api/telegram"
	"dental-screen/internal/container"
	"dental-screen/internal/domain/port"
	"dental-screen/internal/infrastructure/cache"
	"dental-screen/internal/infrastructure/inference"
	"dental-screen/internal/infrastructure/storage"
	"dental-screen/internal/infrastructure/vision"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	detector, closeDetector, err := newDetector(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.DetectorBackend).Msg("failed to initialize detector")
	}
	defer closeDetector()

	var resultCache *cache.ResultCache
	if cfg.EnableResultCache {
		resultCache = cache.NewResultCache(true, cfg.CacheTTL, log.With().Str("component", "cache").Logger())
	}

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:     store,
		History:   store,
		Chats:     storage.NewMemoryChatRepository(),
		Detector:  detector,
		Annotator: vision.NewAnnotator(),
		Fetcher:   inference.NewFetcher(cfg.InferenceTimeout*2, cfg.MaxUploadBytes),
		Cache:     resultCache,
	}, container.Settings{
		JWTSecret:          cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		BcryptCost:         cfg.BcryptCost,
		DisplayOffsetHours: cfg.DisplayOffsetHours,
	}, log.Logger)

	origins := append(append([]string{}, httpapi.DefaultOrigins...), cfg.CORSAllowOrigins...)
	handler := httpapi.NewHandler(appContainer, httpapi.Options{
		Version:           cfg.AppVersion,
		DefaultConfidence: cfg.DefaultConfidence,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedOrigins:    origins,
	}, log.With().Str("component", "http").Logger())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + cfg.InferenceTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Strs("origins", origins).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.TelegramToken != "" {
		tg, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize telegram bot")
		}
		log.Info().Str("username", tg.Self.UserName).Msg("authorized on account")

		bot := telegram.NewBot(tg, appContainer, cfg.DefaultConfidence, log.With().Str("component", "telegram").Logger())
		g.Go(func() error {
			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			updates := tg.GetUpdatesChan(u)
			go func() {
				<-ctx.Done()
				tg.StopReceivingUpdates()
			}()
			return bot.Run(ctx, updates)
		})
	} else {
		log.Info().Msg("TELEGRAM_TOKEN is not set, telegram front-end disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// newDetector выбирает бэкенд детектора по DETECTOR_BACKEND
func newDetector(ctx context.Context, cfg *config.Config) (port.Detector, func(), error) {
	logger := log.With().Str("component", "detector").Str("backend", cfg.DetectorBackend).Logger()

	switch cfg.DetectorBackend {
	case "ws":
		d := inference.NewStreamDetector(cfg.DetectorWSHost, cfg.ModelName, cfg.InferenceTimeout, logger)
		return d, func() { d.Close() }, nil

	case "onnx":
		d, err := vision.NewONNXDetector(cfg.ModelPath, cfg.ModelName, logger)
		if err != nil {
			return nil, nil, err
		}
		return d, func() { d.Close() }, nil

	default:
		d := inference.NewRemoteDetector(cfg.InferenceURL, cfg.ModelName, cfg.InferenceTimeout, logger)
		// Сервис модели может подняться позже, поэтому только предупреждаем.
		if err := d.CheckHealth(ctx); err != nil {
			logger.Warn().Err(err).Str("url", cfg.InferenceURL).Msg("inference service not available")
		}
		return d, func() {}, nil
	}
}
