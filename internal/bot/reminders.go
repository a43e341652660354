package bot

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
)

type reminderKey struct {
	debtID int64
	due    time.Time
	offset int
}

// reminderFor returns the next due date and how many days remain until it
// when that count is one of offsets. Debts without terms, closed debts and
// settled balances never get a reminder.
func reminderFor(d domain.Debt, bal decimal.Decimal, today time.Time, offsets []int) (time.Time, int, bool) {
	if d.IsClosed() || d.DueDay == nil || d.MonthlyPayment == nil || !bal.IsPositive() {
		return time.Time{}, 0, false
	}
	due := planner.NextDueDate(today, *d.DueDay)
	y, m, dd := today.Date()
	days := int(due.Sub(time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	for _, off := range offsets {
		if off == days {
			return due, days, true
		}
	}
	return time.Time{}, 0, false
}

func reminderText(d domain.Debt, bal decimal.Decimal, due time.Time, days int) string {
	amount := *d.MonthlyPayment
	if bal.LessThan(amount) {
		amount = bal
	}
	when := "Сегодня"
	if days > 0 {
		when = fmt.Sprintf("Через %d дн.", days)
	}
	return fmt.Sprintf("⏰ %s платёж по долгу <b>%s</b>\n%s до %s\n%s",
		when, html.EscapeString(debtTitle(d)), FormatMoney(amount, d.Currency), FormatDate(due), FormatBalance(bal, d.Currency))
}

// RunReminderWorker DMs debtors ahead of their due dates until ctx is done.
// It checks once at start and then on every tick. Each (debt, due date,
// offset) is sent at most once per process.
func (h *Handler) RunReminderWorker(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	sent := make(map[reminderKey]struct{})
	h.remindOnce(ctx, sent)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.remindOnce(ctx, sent)
		}
	}
}

// pruneSent forgets reminders for due dates before today's calendar date.
func pruneSent(sent map[reminderKey]struct{}, today time.Time) {
	y, m, d := today.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for k := range sent {
		if k.due.Before(cutoff) {
			delete(sent, k)
		}
	}
}

func (h *Handler) remindOnce(ctx context.Context, sent map[reminderKey]struct{}) {
	debts, err := h.store.ListActiveDebtsWithTerms(ctx)
	if err != nil {
		h.log.Error("list debts for reminders", zap.Error(err))
		return
	}
	today := h.today()
	pruneSent(sent, today)

	for _, d := range debts {
		bal, err := h.balances.CalculateBalance(ctx, d.ID)
		if err != nil {
			h.log.Warn("reminder balance", zap.Int64("debt_id", d.ID), zap.Error(err))
			continue
		}
		due, days, ok := reminderFor(d, bal, today, h.cfg.RemindDaysBefore)
		if !ok {
			continue
		}
		key := reminderKey{debtID: d.ID, due: due, offset: days}
		if _, done := sent[key]; done {
			continue
		}

		debtor, err := h.store.GetUser(ctx, d.DebtorUserID)
		if err != nil {
			h.log.Warn("reminder debtor", zap.Int64("debt_id", d.ID), zap.Error(err))
			continue
		}
		if err := h.sendDM(debtor.TelegramID, reminderText(d, bal, due, days)); err != nil {
			h.log.Warn("send reminder", zap.Int64("debt_id", d.ID), zap.Error(err))
			continue
		}
		sent[key] = struct{}{}
		if h.metrics != nil {
			h.metrics.ReminderSent()
		}
		h.log.Debug("reminder sent", zap.Int64("debt_id", d.ID), zap.Time("due", due), zap.Int("days", days))
	}
}
