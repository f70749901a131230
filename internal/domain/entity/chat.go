package entity

// ChatState состояние пользователя в диалоге с ботом
type ChatState string

const (
	StateMainMenu     ChatState = "main_menu"     // В главном меню
	StateAwaitingXray ChatState = "awaiting_xray" // Ожидание снимка
	StateProcessing   ChatState = "processing"    // Обработка снимка
)

// ChatSession представляет собеседника бота
type ChatSession struct {
	UserID int64     // Telegram User ID
	ChatID int64     // Telegram Chat ID
	State  ChatState // Текущее состояние диалога
}

// NewChatSession создаёт сессию с начальным состоянием
func NewChatSession(userID, chatID int64) *ChatSession {
	return &ChatSession{
		UserID: userID,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние диалога
func (s *ChatSession) SetState(state ChatState) {
	s.State = state
}
