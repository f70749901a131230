// Package telegram принимает снимки через Telegram и отвечает отчётом анализа.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	app "dental-screen/internal/application"
	"dental-screen/internal/container"
	"dental-screen/internal/domain/entity"
	"dental-screen/internal/domain/fdi"
	"dental-screen/internal/domain/port"
	"dental-screen/internal/domain/xray"
	"dental-screen/internal/infrastructure/inference"
)

// maxFileBytes предел Bot API для getFile
const maxFileBytes = 20 << 20

// BotAPI часть tgbotapi.BotAPI, которой пользуется бот
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot представляет Telegram-бота
type Bot struct {
	tg         BotAPI
	chats      *app.ChatService
	analysis   *app.AnalysisService
	files      port.ImageFetcher
	confidence float64
	logger     zerolog.Logger
}

// NewBot создаёт бота поверх сервисов приложения
func NewBot(tg BotAPI, c *container.Container, confidence float64, logger zerolog.Logger) *Bot {
	return &Bot{
		tg:         tg,
		chats:      c.ChatService,
		analysis:   c.AnalysisService,
		files:      inference.NewFetcher(30*time.Second, maxFileBytes),
		confidence: confidence,
		logger:     logger,
	}
}

// Run обрабатывает обновления до закрытия канала или отмены контекста.
// Каждое обновление обрабатывается в своей горутине.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("stopping bot update loop")
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.logger.Warn().Msg("updates channel closed")
				return nil
			}
			wg.Add(1)
			go func(u tgbotapi.Update) {
				defer wg.Done()
				b.HandleUpdate(ctx, u)
			}(update)
		}
	}
}

// HandleUpdate обрабатывает одно входящее обновление
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	session, err := b.chats.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("user_id", msg.From.ID).Msg("failed to get chat session")
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		// Последний размер самый крупный.
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleXray(ctx, msg, session, photo.FileID, "photo.jpg")
	case msg.Document != nil:
		b.handleXray(ctx, msg, session, msg.Document.FileID, msg.Document.FileName)
	default:
		b.sendMessage(msg.Chat.ID, msgSendXray)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.logStateError(b.chats.Reset(ctx, userID, chatID))
		b.sendMessage(chatID, formatReplyText(msgStart))

	case "help":
		b.sendMessage(chatID, formatReplyText(msgHelp))

	case "check":
		b.logStateError(b.chats.BeginCheck(ctx, userID, chatID))
		b.sendMessage(chatID, msgAwaitingXray)

	case "cancel":
		b.logStateError(b.chats.Cancel(ctx, userID, chatID))
		b.sendMessage(chatID, msgCancelled)

	case "fdi":
		b.handleFDI(chatID, strings.TrimSpace(msg.CommandArguments()))

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleFDI(chatID int64, arg string) {
	if arg == "" {
		b.sendMessage(chatID, msgFDIUsage)
		return
	}

	code, err := strconv.Atoi(arg)
	if err != nil {
		b.sendMessage(chatID, fdi.ErrInvalidCode.Error())
		return
	}

	tooth, err := fdi.Lookup(code)
	if err != nil {
		b.sendMessage(chatID, fdi.ErrInvalidCode.Error())
		return
	}
	b.sendMessage(chatID, toothText(tooth))
}

// handleXray скачивает снимок и отправляет отчёт вместе с размеченным изображением
func (b *Bot) handleXray(ctx context.Context, msg *tgbotapi.Message, session *entity.ChatSession, fileID, filename string) {
	chatID := msg.Chat.ID
	_, err := b.chats.BeginProcessing(ctx, session.UserID, chatID)
	if errors.Is(err, app.ErrBusy) {
		b.sendMessage(chatID, msgBusy)
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to save chat state")
		b.sendMessage(chatID, msgProcessingError)
		return
	}
	defer func() {
		b.logStateError(b.chats.Cancel(ctx, session.UserID, chatID))
	}()

	b.sendMessage(chatID, msgProcessing)

	data, err := b.downloadFile(ctx, fileID)
	if errors.Is(err, inference.ErrTooLarge) {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("file exceeds download limit")
		b.sendMessage(chatID, msgFileTooLarge)
		return
	}
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to download file")
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	out, err := b.analysis.Analyze(ctx, app.AnalysisRequest{
		Data:        data,
		Filename:    filename,
		Confidence:  b.confidence,
		ReturnImage: true,
	})

	var rej *xray.Rejected
	switch {
	case errors.As(err, &rej):
		b.sendMessage(chatID, fmt.Sprintf(msgRejected, rej.Reason))
		return
	case errors.Is(err, app.ErrDetector):
		b.sendMessage(chatID, msgDetectorDown)
		return
	case err != nil:
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("analysis failed")
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	b.sendMessage(chatID, out.Result.ReportText)

	if len(out.Annotated) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "analisis.png", Bytes: out.Annotated})
		photo.Caption = fmt.Sprintf(msgCaption, out.Result.Summary.Total, out.Model)
		if _, err := b.tg.Send(photo); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send photo")
		}
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.tg.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	data, err := b.files.Fetch(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	return data, nil
}

func (b *Bot) logStateError(_ *entity.ChatSession, err error) {
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to save chat state")
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}
