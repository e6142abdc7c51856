// Package telegram adapts the quiz service to the Telegram Bot API: long
// polling for inbound updates, text and inline-keyboard messages outbound.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telequiz/internal/domain"
)

// Handler is the inbound half of the transport boundary, served by the app
// layer. Every method is one user-triggered event.
type Handler interface {
	Start(ctx context.Context, userID string) error
	IssueQuiz(ctx context.Context, userID string) error
	HandleAnswer(ctx context.Context, userID, payload string) error
	UserScore(ctx context.Context, userID string) error
	TopScores(ctx context.Context, userID string) error
}

const pollTimeout = 60 // seconds, long-poll hold on getUpdates

// Bot wraps the Telegram API client. It is the app layer's Sender and the
// process's inbound event loop.
type Bot struct {
	api *tgbotapi.BotAPI
	log *slog.Logger
}

func NewBot(token string, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	log.Info("authorized on telegram", "account", api.Self.UserName)
	return &Bot{api: api, log: log}, nil
}

// Run long-polls for updates until ctx is canceled. Each update is handled
// in its own goroutine so one user's slow ledger call does not stall the
// poll loop; per-event errors are logged, never fatal.
func (b *Bot) Run(ctx context.Context, handler Handler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, handler, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, handler Handler, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		b.handleCommand(ctx, handler, update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		b.handleCallback(ctx, handler, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, handler Handler, msg *tgbotapi.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)

	var err error
	switch msg.Command() {
	case "start":
		err = handler.Start(ctx, userID)
	case "quiz":
		err = handler.IssueQuiz(ctx, userID)
	case "score":
		err = handler.UserScore(ctx, userID)
	case "top":
		err = handler.TopScores(ctx, userID)
	default:
		return
	}
	if err != nil {
		b.log.Warn("command failed", "command", msg.Command(), "user", userID, "err", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, handler Handler, callback *tgbotapi.CallbackQuery) {
	// Acknowledge the press first so the client stops its spinner even when
	// scoring fails later.
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("callback ack failed", "err", err)
	}

	userID := strconv.FormatInt(callback.From.ID, 10)
	if err := handler.HandleAnswer(ctx, userID, callback.Data); err != nil {
		b.log.Warn("answer handling failed", "user", userID, "err", err)
	}
}

// SendText delivers a plain text message.
func (b *Bot) SendText(ctx context.Context, userID, text string) error {
	chatID, err := chatID(userID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send text to %s: %w", userID, err)
	}
	return nil
}

// SendChoice delivers a question with one inline button per option.
func (b *Bot) SendChoice(ctx context.Context, userID string, quizMsg domain.QuizMessage) error {
	chatID, err := chatID(userID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(quizMsg.Options))
	for _, option := range quizMsg.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(option.Label, option.Payload),
		))
	}

	msg := tgbotapi.NewMessage(chatID, quizMsg.Text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send question to %s: %w", userID, err)
	}
	return nil
}

func chatID(userID string) (int64, error) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("user id %q is not a telegram chat id", userID)
	}
	return id, nil
}
