package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (h *Handler) handleStart(ctx context.Context, chatID, userID int64, args string) error {
	if args == "" {
		h.reply(chatID, "Привет! Я веду учёт долгов и строю план погашения.\n\n"+helpText)
		return nil
	}

	token, err := uuid.Parse(args)
	if err != nil {
		return usageError("Ссылка-приглашение повреждена")
	}
	d, err := h.invites.AcceptInvite(ctx, token, userID)
	if err != nil {
		return err
	}

	h.replyHTML(chatID, fmt.Sprintf("✅ Ты добавлен кредитором долга <b>%s</b>\nПосмотреть: /debt %d", html.EscapeString(debtTitle(d)), d.ID), nil)

	debtor, err := h.store.GetUser(ctx, d.DebtorUserID)
	if err != nil {
		h.log.Warn("debtor lookup", zap.Int64("user_id", d.DebtorUserID), zap.Error(err))
		return nil
	}
	if err := h.sendDM(debtor.TelegramID, fmt.Sprintf("🤝 Кредитор принял приглашение по долгу <b>%s</b>", html.EscapeString(debtTitle(d)))); err != nil {
		h.log.Warn("notify debtor", zap.Int64("user_id", d.DebtorUserID), zap.Error(err))
	}
	return nil
}

func (h *Handler) handleNew(ctx context.Context, chatID, userID int64, args string) error {
	in, err := ParseNewDebt(args)
	if err != nil {
		return usageError("Используй: /new <сумма> [<платёж> <день>] [название]\nПример: /new 150000 10000 15 Ремонт")
	}
	in.DebtorUserID = userID
	if in.Currency == "" {
		in.Currency = h.cfg.DefaultCurrency
	}

	d, err := h.debts.CreateDebt(ctx, in)
	if err != nil {
		return err
	}

	h.log.Info("debt created", zap.Int64("debt_id", d.ID), zap.Int64("user_id", userID))
	if d.MonthlyPayment != nil && d.DueDay != nil {
		h.replyHTML(chatID, fmt.Sprintf("✅ Долг #%d создан: %s\nПригласить кредитора: /invite %d",
			d.ID, FormatMoney(d.PrincipalAmount, d.Currency), d.ID), nil)
		return h.handleDebt(ctx, chatID, userID, fmt.Sprint(d.ID))
	}
	h.replyHTML(chatID, fmt.Sprintf(
		"✅ Долг #%d создан: %s\n\nЗадай условия, чтобы увидеть план:\n/terms %d <платёж> <день>\nПригласить кредитора: /invite %d",
		d.ID, FormatMoney(d.PrincipalAmount, d.Currency), d.ID, d.ID,
	), nil)
	return nil
}

func (h *Handler) handleDebts(ctx context.Context, chatID, userID int64) error {
	debts, err := h.debts.UserDebts(ctx, userID)
	if err != nil {
		return err
	}
	if len(debts) == 0 {
		h.reply(chatID, "У тебя пока нет долгов.\nСоздать: /new <сумма> [название]")
		return nil
	}

	var b strings.Builder
	b.WriteString("<b>📋 Мои долги:</b>\n\n")
	for i, d := range debts {
		b.WriteString(FormatDebtListItem(d, i+1, d.DebtorUserID == userID))
	}
	h.replyHTML(chatID, b.String(), debtListKeyboard(debts))
	return nil
}

func (h *Handler) handleDebt(ctx context.Context, chatID, userID int64, args string) error {
	id, err := parseID(args, "/debt <id>")
	if err != nil {
		return err
	}
	text, kb, err := h.debtCard(ctx, id, userID)
	if err != nil {
		return err
	}
	h.replyHTML(chatID, text, kb)
	return nil
}

func (h *Handler) handleTerms(ctx context.Context, chatID, userID int64, args string) error {
	const usage = "Используй: /terms <id> <платёж> <день>\n\"-\" оставляет значение без изменений.\nПример: /terms 3 10000 15 или /terms 3 - 20"
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return usageError(usage)
	}
	id, err := parseID(fields[0], "/terms <id> <платёж> <день>")
	if err != nil {
		return err
	}
	monthly, day, err := ParseTerms(fields[1], fields[2])
	if err != nil {
		return usageError(usage)
	}

	if _, err := h.debts.UpdateTerms(ctx, id, userID, monthly, day); err != nil {
		return err
	}
	return h.handleDebt(ctx, chatID, userID, fields[0])
}

func (h *Handler) handlePay(ctx context.Context, chatID, userID int64, args string) error {
	const usage = "Используй: /pay <id> <сумма> [дд.мм.гггг]\nПример: /pay 3 10000"
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return usageError(usage)
	}
	id, err := parseID(fields[0], "/pay <id> <сумма>")
	if err != nil {
		return err
	}
	amount, _, err := ParseAmount(fields[1])
	if err != nil {
		return usageError(usage)
	}
	paidOn := h.today()
	if len(fields) == 3 {
		if paidOn, err = ParseDate(fields[2]); err != nil {
			return usageError("Не понял дату. Формат: дд.мм.гггг или гггг-мм-дд")
		}
	}

	p, err := h.payments.AddPayment(ctx, id, userID, amount, paidOn)
	if err != nil {
		return err
	}
	bal, err := h.balances.CalculateBalance(ctx, id)
	if err != nil {
		return err
	}
	d, err := h.debts.Debt(ctx, id, userID)
	if err != nil {
		return err
	}

	h.replyHTML(chatID, fmt.Sprintf("✅ Платёж #%d записан: %s от %s\n%s",
		p.ID, FormatMoney(p.Amount, d.Currency), FormatDate(p.PaymentDate), FormatBalance(bal, d.Currency)), nil)

	h.notifyCreditor(ctx, d.CreditorUserID, fmt.Sprintf("💸 Должник внёс платёж по долгу <b>%s</b>: %s",
		html.EscapeString(debtTitle(d)), FormatMoney(p.Amount, d.Currency)))
	return nil
}

func (h *Handler) handlePayments(ctx context.Context, chatID, userID int64, args string) error {
	id, err := parseID(args, "/payments <id>")
	if err != nil {
		return err
	}
	text, err := h.paymentsText(ctx, id, userID)
	if err != nil {
		return err
	}
	h.replyHTML(chatID, text, nil)
	return nil
}

func (h *Handler) paymentsText(ctx context.Context, debtID, userID int64) (string, error) {
	d, err := h.debts.Debt(ctx, debtID, userID)
	if err != nil {
		return "", err
	}
	list, err := h.payments.Payments(ctx, debtID, userID, false)
	if err != nil {
		return "", err
	}
	return FormatPayments(d, list), nil
}

func (h *Handler) handleDeletePayment(ctx context.Context, chatID, userID int64, args string) error {
	id, err := parseID(args, "/delpay <id платежа>")
	if err != nil {
		return err
	}
	p, err := h.payments.DeletePayment(ctx, id, userID)
	if err != nil {
		return err
	}
	bal, err := h.balances.CalculateBalance(ctx, p.DebtID)
	if err != nil {
		return err
	}
	d, err := h.debts.Debt(ctx, p.DebtID, userID)
	if err != nil {
		return err
	}
	h.replyHTML(chatID, fmt.Sprintf("🗑 Платёж #%d удалён\n%s", p.ID, FormatBalance(bal, d.Currency)), nil)
	return nil
}

func (h *Handler) handleClose(ctx context.Context, chatID, userID int64, args string) error {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return usageError("Используй: /close <id> [примечание]")
	}
	id, err := parseID(fields[0], "/close <id> [примечание]")
	if err != nil {
		return err
	}
	var note *string
	if len(fields) > 1 {
		n := strings.Join(fields[1:], " ")
		note = &n
	}
	return h.closeDebt(ctx, chatID, userID, id, note)
}

func (h *Handler) closeDebt(ctx context.Context, chatID, userID, debtID int64, note *string) error {
	d, err := h.debts.CloseDebt(ctx, debtID, userID, note)
	if err != nil {
		return err
	}
	h.log.Info("debt closed", zap.Int64("debt_id", d.ID), zap.Int64("user_id", userID))
	h.reply(chatID, fmt.Sprintf("✅ Долг #%d закрыт", d.ID))
	h.notifyCreditor(ctx, d.CreditorUserID, fmt.Sprintf("🔒 Долг <b>%s</b> закрыт должником", html.EscapeString(debtTitle(d))))
	return nil
}

func (h *Handler) handleInvite(ctx context.Context, chatID, userID int64, args string) error {
	id, err := parseID(args, "/invite <id>")
	if err != nil {
		return err
	}
	inv, err := h.invites.CreateInvite(ctx, id, userID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("https://t.me/%s?start=%s", h.botName, inv.Token)
	h.reply(chatID, "Отправь эту ссылку кредитору, она одноразовая:\n"+link)
	return nil
}

func (h *Handler) notifyCreditor(ctx context.Context, creditorID *int64, text string) {
	if creditorID == nil {
		return
	}
	u, err := h.store.GetUser(ctx, *creditorID)
	if err != nil {
		h.log.Warn("creditor lookup", zap.Int64("user_id", *creditorID), zap.Error(err))
		return
	}
	if err := h.sendDM(u.TelegramID, text); err != nil {
		h.log.Warn("notify creditor", zap.Int64("user_id", *creditorID), zap.Error(err))
	}
}
