// Package telegram реализует бота администратора: уведомления о заявках и решения по ним.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/notify"
	"github.com/queueless/booking/internal/render"
)

type Reservations interface {
	UpdateStatus(ctx context.Context, actor *model.User, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
	Pending(ctx context.Context, actor *model.User) ([]*model.Appointment, error)
}

type Slots interface {
	Week(ctx context.Context, date time.Time) (time.Time, []*model.Slot, error)
}

type Options struct {
	Token     string
	ChatID    int64
	Labels    []string
	ClosedDay time.Weekday
	Location  *time.Location
}

// AdminBot работает только с одним чатом администратора
type AdminBot struct {
	bot          *bot.Bot
	reservations Reservations
	slots        Slots
	opts         Options
	logger       *zap.Logger
}

func NewAdminBot(opts Options, reservations Reservations, slots Slots, logger *zap.Logger) (*AdminBot, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	a := &AdminBot{
		reservations: reservations,
		slots:        slots,
		opts:         opts,
		logger:       logger,
	}

	b, err := bot.New(opts.Token, bot.WithDefaultHandler(a.handleDefault))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	a.bot = b

	a.registerHandlers()
	return a, nil
}

// registerHandlers регистрирует все обработчики команд
func (a *AdminBot) registerHandlers() {
	a.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, a.handleStart, a.adminOnly)
	a.bot.RegisterHandler(bot.HandlerTypeMessageText, "/pending", bot.MatchTypeExact, a.handlePending, a.adminOnly)
	a.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypeExact, a.handleWeek, a.adminOnly)

	// Обработчик нажатий на inline кнопки
	a.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, a.handleCallback, a.adminOnly)
}

// Start запускает long polling, блокируется до отмены ctx
func (a *AdminBot) Start(ctx context.Context) {
	a.setCommands(ctx)

	a.logger.Info("Starting admin bot", zap.Int64("chat_id", a.opts.ChatID))
	a.bot.Start(ctx)
}

// setCommands устанавливает список команд в меню бота
func (a *AdminBot) setCommands(ctx context.Context) {
	_, err := a.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "🚀 What this bot does"},
			{Command: "pending", Description: "⏳ Requests waiting for a decision"},
			{Command: "week", Description: "🗓 Slots of the current week"},
		},
	})
	if err != nil {
		a.logger.Warn("Failed to set bot commands", zap.Error(err))
	}
}

// Notify реализует notify.Notifier: заявки приходят с кнопками, алерты текстом
func (a *AdminBot) Notify(ctx context.Context, event notify.Event) error {
	text, withKeyboard := formatEvent(event)
	if text == "" {
		return nil
	}

	params := &bot.SendMessageParams{
		ChatID:    a.opts.ChatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if withKeyboard {
		params.ReplyMarkup = decisionKeyboard(event.Appointment.ID).Build()
	}

	if _, err := a.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// adminOnly пропускает только апдейты из чата администратора
func (a *AdminBot) adminOnly(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		chatID, ok := updateChatID(update)
		if !ok || chatID != a.opts.ChatID {
			a.logger.Debug("Ignoring update from foreign chat", zap.Int64("chat_id", chatID))
			return
		}
		next(ctx, b, update)
	}
}

func updateChatID(update *models.Update) (int64, bool) {
	switch {
	case update.Message != nil:
		return update.Message.Chat.ID, true
	case update.CallbackQuery != nil && update.CallbackQuery.Message.Message != nil:
		return update.CallbackQuery.Message.Message.Chat.ID, true
	}
	return 0, false
}

func (a *AdminBot) handleDefault(context.Context, *bot.Bot, *models.Update) {}

func (a *AdminBot) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	a.sendMessage(ctx, b, update.Message.Chat.ID,
		"👋 QueueLess admin bot\n\n"+
			"New appointment requests arrive here with Approve/Reject buttons.\n\n"+
			"/pending - requests waiting for a decision\n"+
			"/week - slots of the current week")
}

func (a *AdminBot) handlePending(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID

	appts, err := a.reservations.Pending(ctx, model.SystemAdmin())
	if err != nil {
		a.logger.Error("Failed to list pending appointments", zap.Error(err))
		a.sendMessage(ctx, b, chatID, "❌ Failed to load pending requests.")
		return
	}
	if len(appts) == 0 {
		a.sendMessage(ctx, b, chatID, "✨ No pending requests.")
		return
	}

	for _, appt := range appts {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        formatAppointment(appt),
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: decisionKeyboard(appt.ID).Build(),
		})
		if err != nil {
			a.logger.Error("Failed to send pending appointment", zap.Stringer("appointment_id", appt.ID), zap.Error(err))
		}
	}
}

func (a *AdminBot) handleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := update.Message.Chat.ID
	today := model.NormalizeDate(time.Now().In(a.opts.Location))

	start, slots, err := a.slots.Week(ctx, today)
	if err != nil {
		a.logger.Error("Failed to load week slots", zap.Error(err))
		a.sendMessage(ctx, b, chatID, "❌ Failed to load slots.")
		return
	}

	image, err := render.WeekImage(render.Week{
		Start:     start,
		Labels:    a.opts.Labels,
		Slots:     slots,
		ClosedDay: a.opts.ClosedDay,
		Today:     today,
	})
	if err != nil {
		a.logger.Error("Failed to render week image", zap.Error(err))
		a.sendMessage(ctx, b, chatID, "❌ Failed to render the week.")
		return
	}

	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  chatID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
		Caption: "🗓 Week of " + model.DateKey(start),
	})
	if err != nil {
		a.logger.Error("Failed to send week image", zap.Error(err))
	}
}

func (a *AdminBot) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery

	status, id, err := parseCallback(callback.Data)
	if err != nil {
		a.logger.Warn("Unknown callback", zap.String("data", callback.Data), zap.Error(err))
		a.answerCallback(ctx, b, callback.ID, "Unknown action", true)
		return
	}

	appt, err := a.reservations.UpdateStatus(ctx, model.SystemAdmin(), id, status)
	if err != nil {
		a.logger.Warn("Failed to apply decision",
			zap.Stringer("appointment_id", id),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		a.answerCallback(ctx, b, callback.ID, decisionError(err), true)
		return
	}

	a.answerCallback(ctx, b, callback.ID, "Done: "+string(appt.Status), false)

	if msg := callback.Message.Message; msg != nil {
		// убираем кнопки, чтобы решение нельзя было принять повторно
		_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ID,
			Text:      formatAppointment(appt),
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			a.logger.Debug("Failed to edit decision message", zap.Error(err))
		}
	}
}

func decisionError(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "Appointment no longer exists"
	case errors.Is(err, model.ErrInvalidTransition):
		return "Appointment was already decided"
	default:
		return "Something went wrong, try again later"
	}
}

func (a *AdminBot) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		a.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

// sendMessage отправляет сообщение и логирует если не удалось
func (a *AdminBot) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		a.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}
