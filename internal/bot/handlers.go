package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourname/debtbook-bot/internal/balance"
	"github.com/yourname/debtbook-bot/internal/config"
	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/observability"
	"github.com/yourname/debtbook-bot/internal/port"
	"github.com/yourname/debtbook-bot/internal/service"
)

// Sender is the part of *tgbotapi.BotAPI the handler uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Handler struct {
	api     Sender
	botName string
	cfg     config.Config
	log     *zap.Logger
	metrics *observability.Metrics

	store    port.Store
	balances *balance.Calculator
	debts    *service.Debts
	payments *service.Payments
	invites  *service.Invites

	now func() time.Time
}

type Deps struct {
	Store    port.Store
	Balances *balance.Calculator
	Debts    *service.Debts
	Payments *service.Payments
	Invites  *service.Invites
	Metrics  *observability.Metrics
	Log      *zap.Logger
}

func NewHandler(api Sender, botName string, cfg config.Config, d Deps) *Handler {
	return &Handler{
		api:      api,
		botName:  botName,
		cfg:      cfg,
		log:      d.Log,
		metrics:  d.Metrics,
		store:    d.Store,
		balances: d.Balances,
		debts:    d.Debts,
		payments: d.Payments,
		invites:  d.Invites,
		now:      time.Now,
	}
}

// today is the current calendar date in the configured timezone.
func (h *Handler) today() time.Time {
	return h.now().In(h.cfg.Location())
}

func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		h.HandleCallback(ctx, upd.CallbackQuery)
		return
	}
	if upd.InlineQuery != nil {
		h.HandleInlineQuery(ctx, upd.InlineQuery)
		return
	}

	if upd.Message == nil {
		return
	}

	msg := upd.Message
	// private chats only
	if !msg.Chat.IsPrivate() || msg.From == nil {
		return
	}

	userID, err := h.registerUser(ctx, msg.From)
	if err != nil {
		h.log.Error("upsert user", zap.Int64("tg_user_id", msg.From.ID), zap.Error(err))
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" || !msg.IsCommand() {
		h.reply(msg.Chat.ID, "Не понял. Список команд: /help")
		return
	}

	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	start := time.Now()
	known, failed := h.dispatch(ctx, msg.Chat.ID, userID, cmd, args)
	if h.metrics != nil {
		label := cmd
		if !known {
			label = unknownCommand
		}
		h.metrics.ObserveCommand(label, time.Since(start), failed)
	}
}

// unknownCommand is the metrics label for every command not in dispatch,
// so user input never becomes a label value.
const unknownCommand = "unknown"

// dispatch runs a command and reports whether it was recognized and
// whether it failed.
func (h *Handler) dispatch(ctx context.Context, chatID, userID int64, cmd, args string) (known, failed bool) {
	var err error
	switch cmd {
	case "start":
		err = h.handleStart(ctx, chatID, userID, args)
	case "help":
		h.reply(chatID, helpText)
	case "new":
		err = h.handleNew(ctx, chatID, userID, args)
	case "debts":
		err = h.handleDebts(ctx, chatID, userID)
	case "debt":
		err = h.handleDebt(ctx, chatID, userID, args)
	case "terms":
		err = h.handleTerms(ctx, chatID, userID, args)
	case "pay":
		err = h.handlePay(ctx, chatID, userID, args)
	case "payments":
		err = h.handlePayments(ctx, chatID, userID, args)
	case "delpay":
		err = h.handleDeletePayment(ctx, chatID, userID, args)
	case "close":
		err = h.handleClose(ctx, chatID, userID, args)
	case "invite":
		err = h.handleInvite(ctx, chatID, userID, args)
	default:
		h.reply(chatID, "Неизвестная команда. Список команд: /help")
		return false, false
	}
	if err != nil {
		h.replyError(chatID, cmd, userID, err)
		return true, true
	}
	return true, false
}

func (h *Handler) registerUser(ctx context.Context, from *tgbotapi.User) (int64, error) {
	return h.store.UpsertTelegramUser(ctx, from.ID, optional(from.UserName), optional(from.FirstName), optional(from.LastName))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// usageError is shown to the user as-is.
type usageError string

func (e usageError) Error() string { return string(e) }

func (h *Handler) replyError(chatID int64, cmd string, userID int64, err error) {
	text := errorText(err)
	if text == "" {
		h.log.Error("command failed",
			zap.String("command", cmd),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		text = "Что-то пошло не так, попробуй позже"
	}
	h.reply(chatID, "❌ "+text)
}

// errorText maps known errors to user messages; "" means internal.
func errorText(err error) string {
	var (
		usage    usageError
		verr     *domain.ErrValidation
		ferr     *domain.ErrForbidden
		conflict *domain.ErrConflict
	)
	switch {
	case errors.As(err, &usage):
		return string(usage)
	case errors.Is(err, domain.ErrDebtNotFound):
		return "Долг не найден"
	case errors.Is(err, domain.ErrPaymentNotFound):
		return "Платёж не найден"
	case errors.Is(err, domain.ErrInviteNotFound):
		return "Приглашение не найдено"
	case errors.Is(err, domain.ErrDebtClosed):
		return "Долг закрыт, изменения невозможны"
	case errors.As(err, &verr):
		return validationText(verr)
	case errors.As(err, &ferr):
		return "Нет прав на это действие"
	case errors.As(err, &conflict):
		if t, ok := conflictTexts[conflict.Message]; ok {
			return t
		}
		return conflict.Message
	}
	return ""
}

var conflictTexts = map[string]string{
	"invite already used":               "Приглашение уже использовано",
	"already the creditor of this debt": "Ты уже кредитор этого долга",
	"payment already deleted":           "Платёж уже удалён",
}

func validationText(e *domain.ErrValidation) string {
	switch e.Field {
	case "principal_amount":
		return "Сумма долга должна быть больше нуля"
	case "monthly_payment":
		return "Ежемесячный платёж должен быть больше нуля"
	case "due_day":
		return "День платежа должен быть от 1 до 31"
	case "amount":
		return "Сумма платежа должна быть больше нуля"
	case "currency":
		return "Не указана валюта"
	}
	return e.Error()
}

func (h *Handler) reply(chatID int64, text string) {
	h.send(tgbotapi.NewMessage(chatID, text), chatID)
}

func (h *Handler) replyHTML(chatID int64, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if kb != nil {
		msg.ReplyMarkup = *kb
	}
	h.send(msg, chatID)
}

func (h *Handler) sendDM(telegramID int64, text string) error {
	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := h.api.Send(msg)
	return err
}

func (h *Handler) send(c tgbotapi.Chattable, chatID int64) {
	if _, err := h.api.Send(c); err != nil {
		h.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

const helpText = `Команды:
/new <сумма> [<платёж> <день>] [название] — новый долг (ты должник)
/terms <id> <платёж> <день> — условия; "-" оставляет значение как есть
/debts — мои долги
/debt <id> — карточка долга и план погашения
/pay <id> <сумма> [дд.мм.гггг] — записать платёж
/payments <id> — платежи по долгу
/delpay <id платежа> — удалить платёж
/close <id> [примечание] — закрыть долг
/invite <id> — ссылка для кредитора`
