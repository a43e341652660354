package bot

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
)

const (
	telegramMessageLimit = 4096
	safetyMargin         = 100

	planShowFirst = 5
	planShowLast  = 1
)

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// FormatMoney renders 150000.5 as "150,000.50 RUB".
func FormatMoney(v decimal.Decimal, cur string) string {
	s := v.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if v.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	if cur != "" {
		b.WriteByte(' ')
		b.WriteString(cur)
	}
	return b.String()
}

func FormatDate(t time.Time) string { return t.Format("02.01.2006") }

func FormatBalance(bal decimal.Decimal, cur string) string {
	if bal.IsNegative() {
		return "Переплата: " + FormatMoney(bal.Abs(), cur)
	}
	return "Остаток: " + FormatMoney(bal, cur)
}

func debtTitle(d domain.Debt) string {
	if d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("Долг #%d", d.ID)
}

func statusText(d domain.Debt) string {
	if d.IsClosed() {
		return "🔒 Закрыт"
	}
	return "🟢 Активен"
}

// FormatDebtInfo is the card header. bal may be nil when unknown.
func FormatDebtInfo(d domain.Debt, bal *decimal.Decimal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(debtTitle(d)))
	fmt.Fprintf(&b, "ID: %d | %s\n", d.ID, statusText(d))
	fmt.Fprintf(&b, "Сумма долга: %s\n", FormatMoney(d.PrincipalAmount, d.Currency))
	if bal != nil {
		b.WriteString(FormatBalance(*bal, d.Currency) + "\n")
	}
	if d.MonthlyPayment != nil {
		fmt.Fprintf(&b, "Ежемесячный платёж: %s\n", FormatMoney(*d.MonthlyPayment, d.Currency))
	}
	if d.DueDay != nil {
		fmt.Fprintf(&b, "День платежа: %d\n", *d.DueDay)
	}
	if d.CreditorUserID == nil && !d.IsClosed() {
		b.WriteString("Кредитор ещё не подключён\n")
	}
	if d.CloseNote != nil && *d.CloseNote != "" {
		fmt.Fprintf(&b, "\nПримечание: %s\n", html.EscapeString(*d.CloseNote))
	}
	return b.String()
}

func FormatDebtListItem(d domain.Debt, index int, isDebtor bool) string {
	role := "кредитор"
	if isDebtor {
		role = "должник"
	}
	return fmt.Sprintf("%d. <b>%s</b> (ты %s)\n   ID: %d | %s | %s\n",
		index, html.EscapeString(debtTitle(d)), role, d.ID, statusText(d), FormatMoney(d.PrincipalAmount, d.Currency))
}

func FormatPayments(d domain.Debt, list []domain.Payment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>💸 Платежи по долгу %s</b>\n\n", html.EscapeString(debtTitle(d)))
	if len(list) == 0 {
		b.WriteString("Платежей пока нет.")
		return b.String()
	}
	for _, p := range list {
		fmt.Fprintf(&b, "#%d  %s — %s\n", p.ID, FormatDate(p.PaymentDate), FormatMoney(p.Amount, d.Currency))
	}
	b.WriteString("\nУдалить ошибочный: /delpay <id платежа>")
	return b.String()
}

const planHeader = "<b>План погашения:</b>\n\n"

func formatPlanItem(it planner.PlanItem, n int, cur string) string {
	mark := ""
	if it.IsFinal {
		mark = " (финальный)"
	}
	return fmt.Sprintf("%d. %s — %s%s\n", n, FormatDate(it.Date), FormatMoney(it.Amount, cur), mark)
}

// FormatPaymentPlan renders the plan within maxLen runes (maxLen <= 0 means
// unlimited). A plan that does not fit shows the first five items, the
// skipped count and the last item; if even that is too long it shows as
// many leading items as fit. Plans of six items or fewer are never cut.
func FormatPaymentPlan(plan []planner.PlanItem, cur string, maxLen int) string {
	if len(plan) == 0 {
		return "План погашения не задан или долг погашен."
	}

	lines := make([]string, len(plan))
	for i, it := range plan {
		lines[i] = formatPlanItem(it, i+1, cur)
	}
	full := planHeader + strings.Join(lines, "")
	if maxLen <= 0 || runeLen(full) <= maxLen || len(plan) <= planShowFirst+planShowLast {
		return full
	}

	skipped := len(plan) - planShowFirst - planShowLast
	short := planHeader +
		strings.Join(lines[:planShowFirst], "") +
		fmt.Sprintf("... (пропущено %d %s) ...\n", skipped, pluralPayments(skipped)) +
		strings.Join(lines[len(lines)-planShowLast:], "")
	if runeLen(short) <= maxLen {
		return short
	}

	var b strings.Builder
	b.WriteString(planHeader)
	n := runeLen(planHeader)
	for _, l := range lines {
		if n+runeLen(l) > maxLen {
			break
		}
		b.WriteString(l)
		n += runeLen(l)
	}
	return b.String()
}

// pluralPayments picks the Russian plural form of "платёж" for n.
func pluralPayments(n int) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return "платежей"
	}
	switch n % 10 {
	case 1:
		return "платёж"
	case 2, 3, 4:
		return "платежа"
	}
	return "платежей"
}
