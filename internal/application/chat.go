package app

import (
	"context"
	"errors"

	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/port"
)

// ErrBusy предыдущий снимок пользователя ещё в обработке
var ErrBusy = errors.New("chat is busy processing another image")

// ChatService ведёт состояние диалога с ботом
type ChatService struct {
	repo port.ChatRepository
}

func NewChatService(repo port.ChatRepository) *ChatService {
	return &ChatService{repo: repo}
}

func (s *ChatService) Get(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error) {
	return s.repo.Get(ctx, userID, chatID)
}

// SetState создаёт сессию при необходимости и переводит её в state
func (s *ChatService) SetState(ctx context.Context, userID, chatID int64, state entity.ChatState) (*entity.ChatSession, error) {
	session, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateState(ctx, userID, state); err != nil {
		return nil, err
	}
	session.SetState(state)

	return session, nil
}

// BeginCheck переводит пользователя в ожидание снимка
func (s *ChatService) BeginCheck(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error) {
	return s.SetState(ctx, userID, chatID, entity.StateAwaitingXray)
}

// BeginProcessing отмечает, что снимок принят в обработку. Если предыдущий
// снимок ещё обрабатывается, возвращает ErrBusy и состояние не трогает.
func (s *ChatService) BeginProcessing(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error) {
	prev, err := s.repo.SwapState(ctx, userID, chatID, entity.StateProcessing)
	if err != nil {
		return nil, err
	}
	if prev == entity.StateProcessing {
		return nil, ErrBusy
	}

	session := entity.NewChatSession(userID, chatID)
	session.SetState(entity.StateProcessing)
	return session, nil
}

func (s *ChatService) Cancel(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error) {
	return s.SetState(ctx, userID, chatID, entity.StateMainMenu)
}

// Reset начинает диалог заново
func (s *ChatService) Reset(ctx context.Context, userID, chatID int64) (*entity.ChatSession, error) {
	session := entity.NewChatSession(userID, chatID)
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
