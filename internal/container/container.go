package container

import (
	"time"

	"github.com/rs/zerolog"

	app "dental-screen/internal/application"
	"dental-screen/internal/domain/port"
	"dental-screen/internal/domain/xray"
	"dental-screen/internal/infrastructure/cache"
)

// Deps внешние зависимости, которые собираются в cmd/main.go
type Deps struct {
	Users     port.UserRepository
	History   port.HistoryRepository
	Chats     port.ChatRepository
	Detector  port.Detector
	Annotator port.Annotator
	Fetcher   port.ImageFetcher
	Cache     *cache.ResultCache // nil: кэш выключен
}

// Settings параметры сервисов из конфигурации
type Settings struct {
	JWTSecret          string
	TokenTTL           time.Duration
	BcryptCost         int
	DisplayOffsetHours int
}

type Container struct {
	AccountService  *app.AccountService
	AnalysisService *app.AnalysisService
	HistoryService  *app.HistoryService
	ChatService     *app.ChatService
	Fetcher         port.ImageFetcher
	Cache           *cache.ResultCache
}

func New(deps Deps, settings Settings, logger zerolog.Logger) *Container {
	var resultCache port.ResultCache
	if deps.Cache != nil {
		resultCache = deps.Cache
	}

	classifier := xray.NewClassifier(logger.With().Str("component", "admission").Logger())

	return &Container{
		AccountService: app.NewAccountService(
			deps.Users, settings.JWTSecret, settings.TokenTTL, settings.BcryptCost,
			logger.With().Str("component", "accounts").Logger(),
		),
		AnalysisService: app.NewAnalysisService(
			classifier, deps.Detector, deps.Annotator, resultCache, deps.History,
			logger.With().Str("component", "analysis").Logger(),
		),
		HistoryService: app.NewHistoryService(
			deps.History, settings.DisplayOffsetHours,
			logger.With().Str("component", "history").Logger(),
		),
		ChatService: app.NewChatService(deps.Chats),
		Fetcher:     deps.Fetcher,
		Cache:       deps.Cache,
	}
}
