package storage

import (
	"context"
	"sync"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// MemoryChatRepository in-memory хранилище сессий бота
type MemoryChatRepository struct {
	mu       sync.RWMutex
	sessions map[int64]*entity.ChatSession
}

// NewMemoryChatRepository создаёт новое in-memory хранилище
func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		sessions: make(map[int64]*entity.ChatSession),
	}
}

// Get возвращает копию сессии, создаёт новую если не найдена
func (r *MemoryChatRepository) Get(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[userID]
	if !exists {
		session = entity.NewChatSession(userID, chatID)
		r.sessions[userID] = session
	}
	// Чат мог смениться: пользователь написал боту из группы.
	session.ChatID = chatID

	copied := *session
	return &copied, nil
}

// Save сохраняет состояние сессии
func (r *MemoryChatRepository) Save(ctx context.Context, session *entity.ChatSession) error {
	copied := *session

	r.mu.Lock()
	r.sessions[session.UserID] = &copied
	r.mu.Unlock()

	return nil
}

// UpdateState обновляет состояние сессии
func (r *MemoryChatRepository) UpdateState(ctx context.Context, userID int64, state entity.ChatState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, exists := r.sessions[userID]; exists {
		session.SetState(state)
	}

	return nil
}

// SwapState меняет состояние под одной блокировкой с чтением прежнего
func (r *MemoryChatRepository) SwapState(ctx context.Context, userID, chatID int64, state entity.ChatState) (entity.ChatState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[userID]
	if !exists {
		session = entity.NewChatSession(userID, chatID)
		r.sessions[userID] = session
	}
	session.ChatID = chatID

	prev := session.State
	session.SetState(state)
	return prev, nil
}

// Проверка реализации интерфейса
var _ port.ChatRepository = (*MemoryChatRepository)(nil)
