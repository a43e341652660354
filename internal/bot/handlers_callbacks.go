package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourname/debtbook-bot/internal/domain"
)

// Callback data: "debt:<id>", "payments:<id>", "close:<id>",
// "close:confirm:<id>", "invite:<id>", "debts".
func (h *Handler) HandleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil {
		return
	}

	userID, err := h.registerUser(ctx, q.From)
	if err != nil {
		h.log.Error("upsert user", zap.Int64("tg_user_id", q.From.ID), zap.Error(err))
		return
	}

	alert := ""
	defer func() {
		cb := tgbotapi.NewCallback(q.ID, alert)
		cb.ShowAlert = alert != ""
		_, _ = h.api.Request(cb)
	}()

	chatID, msgID := q.Message.Chat.ID, q.Message.MessageID
	action, id, err := parseCallback(q.Data)
	if err != nil {
		return
	}

	switch action {
	case "debts":
		debts, e := h.debts.UserDebts(ctx, userID)
		if e != nil {
			err = e
			break
		}
		var b strings.Builder
		b.WriteString("<b>📋 Мои долги:</b>\n\n")
		for i, d := range debts {
			b.WriteString(FormatDebtListItem(d, i+1, d.DebtorUserID == userID))
		}
		h.edit(chatID, msgID, b.String(), debtListKeyboard(debts))

	case "debt":
		text, kb, e := h.debtCard(ctx, id, userID)
		if e != nil {
			err = e
			break
		}
		h.edit(chatID, msgID, text, kb)

	case "payments":
		text, e := h.paymentsText(ctx, id, userID)
		if e != nil {
			err = e
			break
		}
		kb := backKeyboard(id)
		h.edit(chatID, msgID, text, &kb)

	case "close":
		kb := closeConfirmKeyboard(id)
		h.edit(chatID, msgID, fmt.Sprintf("⚠️ Закрыть долг #%d?\n\nПосле закрытия его нельзя будет изменять.", id), &kb)

	case "close:confirm":
		err = h.closeDebt(ctx, chatID, userID, id, nil)

	case "invite":
		err = h.handleInvite(ctx, chatID, userID, strconv.FormatInt(id, 10))
	}

	if err != nil {
		alert = errorText(err)
		if alert == "" {
			h.log.Error("callback failed", zap.String("data", q.Data), zap.Int64("user_id", userID), zap.Error(err))
			alert = "Что-то пошло не так"
		}
	}
}

func parseCallback(data string) (action string, id int64, err error) {
	if data == "debts" {
		return data, 0, nil
	}
	i := strings.LastIndex(data, ":")
	if i <= 0 {
		return "", 0, fmt.Errorf("bad callback %q", data)
	}
	id, err = strconv.ParseInt(data[i+1:], 10, 64)
	if err != nil || id <= 0 {
		return "", 0, fmt.Errorf("bad callback id %q", data)
	}
	return data[:i], id, nil
}

func (h *Handler) edit(chatID int64, msgID int, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	h.send(edit, chatID)
}

// debtCard renders the debt with balance and plan, trimmed to the message
// limit.
func (h *Handler) debtCard(ctx context.Context, debtID, userID int64) (string, *tgbotapi.InlineKeyboardMarkup, error) {
	det, err := h.debts.Details(ctx, debtID, userID, h.today())
	if err != nil {
		return "", nil, err
	}
	if h.metrics != nil {
		h.metrics.ObservePlan(len(det.Plan))
	}

	info := FormatDebtInfo(det.Debt, &det.Balance)
	available := telegramMessageLimit - runeLen(info) - safetyMargin - 1
	text := info + "\n" + FormatPaymentPlan(det.Plan, det.Debt.Currency, available)

	kb := debtKeyboard(det.Debt, det.IsDebtor)
	return text, &kb, nil
}

func debtListKeyboard(debts []domain.Debt) *tgbotapi.InlineKeyboardMarkup {
	if len(debts) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(debts))
	for _, d := range debts {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📄 "+debtTitle(d), fmt.Sprintf("debt:%d", d.ID)),
		))
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func debtKeyboard(d domain.Debt, isDebtor bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 Платежи", fmt.Sprintf("payments:%d", d.ID)),
		),
	}
	if isDebtor && !d.IsClosed() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤝 Пригласить кредитора", fmt.Sprintf("invite:%d", d.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🔒 Закрыть", fmt.Sprintf("close:%d", d.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ К списку", "debts"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func backKeyboard(debtID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("debt:%d", debtID)),
	))
}

func closeConfirmKeyboard(debtID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Да, закрыть", fmt.Sprintf("close:confirm:%d", debtID)),
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", fmt.Sprintf("debt:%d", debtID)),
	))
}
