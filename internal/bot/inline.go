package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
)

// HandleInlineQuery answers "@bot 150000 10000 15" with a projected plan
// that can be shared into any chat. Nothing is stored.
func (h *Handler) HandleInlineQuery(_ context.Context, q *tgbotapi.InlineQuery) {
	if q.Query == "" {
		return
	}

	pq, err := ParsePlanQuery(q.Query)
	if err != nil {
		return
	}
	cur := pq.Currency
	if cur == "" {
		cur = h.cfg.DefaultCurrency
	}

	d := domain.Debt{
		PrincipalAmount: pq.Balance,
		Currency:        cur,
		MonthlyPayment:  &pq.Monthly,
		DueDay:          &pq.DueDay,
		Status:          domain.DebtActive,
	}
	plan := planner.Project(d, pq.Balance, h.today())
	if h.metrics != nil {
		h.metrics.ObservePlan(len(plan))
	}
	sum := planner.Summarize(plan)

	header := fmt.Sprintf("🧮 Расчёт: %s по %s, %d-го числа\n\n",
		FormatMoney(pq.Balance, cur), FormatMoney(pq.Monthly, cur), pq.DueDay)
	body := FormatPaymentPlan(plan, cur, telegramMessageLimit-runeLen(header)-safetyMargin)

	article := tgbotapi.NewInlineQueryResultArticleHTML(
		fmt.Sprintf("plan_%s_%s_%d", pq.Balance, pq.Monthly, pq.DueDay),
		"🧮 План погашения",
		header+body,
	)
	article.Description = planDescription(sum)

	cfg := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       []interface{}{article},
		IsPersonal:    true,
		CacheTime:     0,
	}
	if _, err := h.api.Request(cfg); err != nil {
		h.log.Warn("answer inline query", zap.Error(err))
	}
}

func planDescription(s planner.Summary) string {
	switch {
	case s.Count == 0:
		return "Платежей нет"
	case s.Truncated:
		return fmt.Sprintf("%d+ платежей, не погашается за %d месяцев", s.Count, planner.MaxPlanItems)
	default:
		return fmt.Sprintf("%d %s, последний %s", s.Count, pluralPayments(s.Count), FormatDate(s.LastDate))
	}
}
