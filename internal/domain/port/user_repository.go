package port

import (
	"context"
	"errors"

	"dental-screen/internal/domain/entity"
)

// ErrAlreadyExists запись с таким уникальным ключом уже есть
var ErrAlreadyExists = errors.New("already exists")

// UserRepository интерфейс хранилища учётных записей
type UserRepository interface {
	// CreateUser сохраняет пользователя и заполняет ID.
	// Повторный email даёт ошибку, оборачивающую ErrAlreadyExists.
	CreateUser(ctx context.Context, user *entity.User) error

	// UserByEmail возвращает nil, nil если пользователь не найден
	UserByEmail(ctx context.Context, email string) (*entity.User, error)

	// UserByID возвращает nil, nil если пользователь не найден
	UserByID(ctx context.Context, id int64) (*entity.User, error)
}

// HistoryRepository интерфейс хранилища сохранённых анализов
type HistoryRepository interface {
	// SaveAnalysis назначает записи следующий PerUserIndex и сохраняет её
	SaveAnalysis(ctx context.Context, rec *entity.HistoryRecord) error

	// ListAnalyses возвращает анализы пользователя, новые первыми
	ListAnalyses(ctx context.Context, userID int64) ([]entity.HistoryRecord, error)

	// DeleteAnalysis возвращает false, если записи нет или она чужая
	DeleteAnalysis(ctx context.Context, userID, id int64) (bool, error)
}

// ChatRepository интерфейс хранилища сессий бота
type ChatRepository interface {
	// Get возвращает сессию по ID, создаёт новую если не найдена
	Get(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error)

	// Save сохраняет состояние сессии
	Save(ctx context.Context, session *entity.ChatSession) error

	// UpdateState обновляет состояние сессии
	UpdateState(ctx context.Context, userID int64, state entity.ChatState) error

	// SwapState атомарно записывает state и возвращает прежнее состояние.
	// Сессия создаётся, если её ещё нет.
	SwapState(ctx context.Context, userID, chatID int64, state entity.ChatState) (entity.ChatState, error)
}

// ResultCache кэш результатов анализа одинаковых снимков
type ResultCache interface {
	// Do возвращает сохранённый результат или вычисляет его через fn.
	// Одновременные запросы с одним ключом выполняют fn один раз.
	Do(key string, fn func() (*entity.AnalysisResult, error)) (*entity.AnalysisResult, bool, error)
}
