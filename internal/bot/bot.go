// Package bot runs the Telegram frontend for field staff and
// investors. Every flow mirrors the REST API's permission checks, so
// a user who cannot do something over HTTP cannot do it here either.
package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vendnet/vendops/internal/app"
	"github.com/vendnet/vendops/internal/app/domain/user"
	"github.com/vendnet/vendops/internal/app/metrics"
	"github.com/vendnet/vendops/internal/app/storage"
	"github.com/vendnet/vendops/pkg/logger"
)

// handlerTimeout bounds how long one update may hold a worker.
const handlerTimeout = 15 * time.Second

// Bot wires the Telegram API to the application services.
type Bot struct {
	api   *tgbotapi.BotAPI
	app   *app.Application
	users storage.UserStore
	state StateStore
	log   *logger.Logger
}

// New constructs a bot. A nil state store falls back to memory.
func New(token string, application *app.Application, users storage.UserStore, state StateStore, debug bool, log *logger.Logger) (*Bot, error) {
	if log == nil {
		log = logger.NewDefault("bot")
	}
	if state == nil {
		state = NewMemoryStateStore()
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}
	api.Debug = debug
	log.WithField("username", api.Self.UserName).Info("telegram bot authorised")
	return &Bot{api: api, app: application, users: users, state: state, log: log}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	switch {
	case update.CallbackQuery != nil:
		metrics.RecordBotUpdate("callback")
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		metrics.RecordBotUpdate("message")
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	u, err := b.users.GetUserByTelegramID(ctx, msg.From.ID)
	if err != nil {
		b.reply(msg.Chat.ID, "Your Telegram account is not linked. Ask an administrator to add your Telegram ID to your profile.")
		return
	}
	if !u.Active {
		b.reply(msg.Chat.ID, "Your account is deactivated.")
		return
	}

	if msg.IsCommand() {
		_ = b.state.Delete(ctx, msg.Chat.ID)
		switch msg.Command() {
		case "start", "menu":
			b.sendMenu(msg.Chat.ID, u)
		case "cancel":
			b.reply(msg.Chat.ID, "Cancelled.")
			b.sendMenu(msg.Chat.ID, u)
		default:
			b.reply(msg.Chat.ID, "Unknown command. Use /menu.")
		}
		return
	}

	// Free text only matters inside a flow.
	st, ok, err := b.state.Get(ctx, msg.Chat.ID)
	if err != nil {
		b.log.WithField("error", err.Error()).Error("conversation state read failed")
		b.reply(msg.Chat.ID, "Something went wrong, try /menu.")
		return
	}
	if !ok {
		b.sendMenu(msg.Chat.ID, u)
		return
	}
	b.continueFlow(ctx, msg, u, st)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Always answer so the client stops its spinner.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.WithField("error", err.Error()).Warn("callback ack failed")
	}
	if cb.Message == nil {
		return
	}
	u, err := b.users.GetUserByTelegramID(ctx, cb.From.ID)
	if err != nil || !u.Active {
		b.reply(cb.Message.Chat.ID, "Your Telegram account is not linked.")
		return
	}
	b.routeAction(ctx, cb.Message.Chat.ID, u, cb.Data)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithField("error", err.Error()).Warn("telegram send failed")
	}
}

func (b *Bot) replyMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithField("error", err.Error()).Warn("telegram send failed")
	}
}

func greeting(u user.User) string {
	return fmt.Sprintf("Hello, %s.", u.DisplayName())
}
