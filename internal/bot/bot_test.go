package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		cur     string
		wantErr bool
	}{
		{in: "150000", want: "150000"},
		{in: "1500,50", want: "1500.5"},
		{in: "0.10", want: "0.1"},
		{in: "300$", want: "300", cur: "USD"},
		{in: "99.9руб", want: "99.9", cur: "RUB"},
		{in: "12EUR", want: "12", cur: "EUR"},
		{in: "1.234", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, cur, err := ParseAmount(c.in)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(dec(c.want)) {
				t.Errorf("amount = %s, want %s", got, c.want)
			}
			if cur != c.cur {
				t.Errorf("currency = %q, want %q", cur, c.cur)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "15.03.2024", want: day(2024, 3, 15)},
		{in: "1/2/2025", want: day(2025, 2, 1)},
		{in: "2024-02-29", want: day(2024, 2, 29)},
		{in: "31.02.2024", wantErr: true},
		{in: "2023-02-29", wantErr: true},
		{in: "15.03.24", wantErr: true},
		{in: "tomorrow", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseDate(c.in)
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(c.want) {
				t.Errorf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestParseDueDay(t *testing.T) {
	for _, s := range []string{"0", "32", "x", ""} {
		if _, err := ParseDueDay(s); err == nil {
			t.Errorf("ParseDueDay(%q) should fail", s)
		}
	}
	if d, err := ParseDueDay(" 31 "); err != nil || d != 31 {
		t.Errorf("ParseDueDay(31) = %d, %v", d, err)
	}
}

func TestParseID(t *testing.T) {
	if id, err := parseID("42", "/debt <id>"); err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}
	_, err := parseID("0", "/debt <id>")
	if got := errorText(err); got != "Используй: /debt <id>" {
		t.Errorf("usage text = %q", got)
	}
}

func TestParsePlanQuery(t *testing.T) {
	q, err := ParsePlanQuery("2500 1000 15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Balance.Equal(dec("2500")) || !q.Monthly.Equal(dec("1000")) || q.DueDay != 15 || q.Currency != "" {
		t.Errorf("got %+v", q)
	}

	for _, in := range []string{"2500 1000", "0 1000 15", "2500 0 15", "2500 1000 40", "a b c"} {
		if _, err := ParsePlanQuery(in); err == nil {
			t.Errorf("ParsePlanQuery(%q) should fail", in)
		}
	}
}

func TestParseNewDebt(t *testing.T) {
	cases := []struct {
		in       string
		amount   string
		currency string
		monthly  string
		dueDay   int
		name     string
	}{
		{in: "150000", amount: "150000"},
		{in: "150000 Ремонт кухни", amount: "150000", name: "Ремонт кухни"},
		{in: "150000 10000 15", amount: "150000", monthly: "10000", dueDay: 15},
		{in: "150000 10000 15 Ремонт", amount: "150000", monthly: "10000", dueDay: 15, name: "Ремонт"},
		{in: "300$ 50 1", amount: "300", currency: "USD", monthly: "50", dueDay: 1},
		// 40 is not a due day, so both tokens stay in the name
		{in: "1000 100 40 дней", amount: "1000", name: "100 40 дней"},
		{in: "1000 2 машины", amount: "1000", name: "2 машины"},
	}
	for _, c := range cases {
		got, err := ParseNewDebt(c.in)
		if err != nil {
			t.Errorf("ParseNewDebt(%q): %v", c.in, err)
			continue
		}
		if !got.Principal.Equal(dec(c.amount)) || got.Currency != c.currency || got.Name != c.name {
			t.Errorf("ParseNewDebt(%q) = %+v", c.in, got)
		}
		if c.monthly == "" {
			if got.Monthly != nil || got.DueDay != nil {
				t.Errorf("ParseNewDebt(%q) should have no terms", c.in)
			}
			continue
		}
		if got.Monthly == nil || !got.Monthly.Equal(dec(c.monthly)) || got.DueDay == nil || *got.DueDay != c.dueDay {
			t.Errorf("ParseNewDebt(%q) terms = %v, %v", c.in, got.Monthly, got.DueDay)
		}
	}

	for _, in := range []string{"", "abc", "1,234,5"} {
		if _, err := ParseNewDebt(in); err == nil {
			t.Errorf("ParseNewDebt(%q) should fail", in)
		}
	}
}

func TestParseTerms(t *testing.T) {
	m, d, err := ParseTerms("10000", "15")
	if err != nil || m == nil || !m.Equal(dec("10000")) || d == nil || *d != 15 {
		t.Fatalf("ParseTerms(10000, 15) = %v, %v, %v", m, d, err)
	}

	m, d, err = ParseTerms("-", "20")
	if err != nil || m != nil || d == nil || *d != 20 {
		t.Errorf("ParseTerms(-, 20) = %v, %v, %v", m, d, err)
	}
	m, d, err = ParseTerms("5000", "-")
	if err != nil || m == nil || d != nil {
		t.Errorf("ParseTerms(5000, -) = %v, %v, %v", m, d, err)
	}

	for _, in := range [][2]string{{"-", "-"}, {"abc", "15"}, {"1000", "32"}} {
		if _, _, err := ParseTerms(in[0], in[1]); err == nil {
			t.Errorf("ParseTerms(%q, %q) should fail", in[0], in[1])
		}
	}
}

func TestParseCallback(t *testing.T) {
	cases := []struct {
		in     string
		action string
		id     int64
		ok     bool
	}{
		{in: "debt:7", action: "debt", id: 7, ok: true},
		{in: "close:confirm:12", action: "close:confirm", id: 12, ok: true},
		{in: "debts", action: "debts", ok: true},
		{in: "debt:", ok: false},
		{in: "debt:-1", ok: false},
		{in: "garbage", ok: false},
	}
	for _, c := range cases {
		action, id, err := parseCallback(c.in)
		if (err == nil) != c.ok {
			t.Errorf("parseCallback(%q) err = %v", c.in, err)
			continue
		}
		if c.ok && (action != c.action || id != c.id) {
			t.Errorf("parseCallback(%q) = %q, %d", c.in, action, id)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":          "0.00 RUB",
		"999.5":      "999.50 RUB",
		"1000":       "1,000.00 RUB",
		"150000.05":  "150,000.05 RUB",
		"1234567.89": "1,234,567.89 RUB",
		"-2500":      "-2,500.00 RUB",
	}
	for in, want := range cases {
		if got := FormatMoney(dec(in), "RUB"); got != want {
			t.Errorf("FormatMoney(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatBalance_Overpaid(t *testing.T) {
	if got := FormatBalance(dec("-10"), "RUB"); got != "Переплата: 10.00 RUB" {
		t.Errorf("got %q", got)
	}
}

func longPlan(n int) []planner.PlanItem {
	plan := make([]planner.PlanItem, n)
	for i := range plan {
		plan[i] = planner.PlanItem{Date: day(2024, 1, 15).AddDate(0, i, 0), Amount: dec("1000")}
	}
	plan[n-1].IsFinal = true
	return plan
}

func TestFormatPaymentPlan_Empty(t *testing.T) {
	if got := FormatPaymentPlan(nil, "RUB", 100); !strings.Contains(got, "не задан") {
		t.Errorf("got %q", got)
	}
}

func TestFormatPaymentPlan_FitsWhole(t *testing.T) {
	got := FormatPaymentPlan(longPlan(3), "RUB", 0)
	if strings.Count(got, "\n") != 2+3 {
		t.Errorf("expected header and 3 lines, got %q", got)
	}
	if !strings.Contains(got, "3. 15.03.2024 — 1,000.00 RUB (финальный)") {
		t.Errorf("final line missing: %q", got)
	}
}

func TestFormatPaymentPlan_SkipsMiddle(t *testing.T) {
	plan := longPlan(100)
	got := FormatPaymentPlan(plan, "RUB", 500)

	if runeLen(got) > 500 {
		t.Fatalf("len = %d", runeLen(got))
	}
	if !strings.Contains(got, "5. 15.05.2024") || strings.Contains(got, "6. 15.06.2024") {
		t.Errorf("first five expected: %q", got)
	}
	if !strings.Contains(got, "пропущено 94 платежа") {
		t.Errorf("skip marker missing: %q", got)
	}
	if !strings.Contains(got, "100. "+FormatDate(plan[99].Date)) {
		t.Errorf("last item missing: %q", got)
	}
}

func TestFormatPaymentPlan_FallsBackToLeadingLines(t *testing.T) {
	got := FormatPaymentPlan(longPlan(100), "RUB", 150)
	if runeLen(got) > 150 {
		t.Fatalf("len = %d", runeLen(got))
	}
	if strings.Contains(got, "пропущено") {
		t.Errorf("fallback should not contain the skip marker: %q", got)
	}
	if !strings.Contains(got, "1. 15.01.2024") {
		t.Errorf("first line missing: %q", got)
	}
}

func TestFormatPaymentPlan_ShortPlanNeverCut(t *testing.T) {
	got := FormatPaymentPlan(longPlan(6), "RUB", 10)
	if !strings.Contains(got, "6. ") {
		t.Errorf("short plan must be shown whole: %q", got)
	}
}

func TestFormatPaymentPlan_MaxPlanFitsTelegram(t *testing.T) {
	plan := longPlan(planner.MaxPlanItems)
	info := FormatDebtInfo(domain.Debt{ID: 1, Name: strings.Repeat("я", 200), PrincipalAmount: dec("100000"), Currency: "RUB"}, nil)
	avail := telegramMessageLimit - runeLen(info) - safetyMargin - 1
	if n := runeLen(info + "\n" + FormatPaymentPlan(plan, "RUB", avail)); n > telegramMessageLimit {
		t.Errorf("message is %d runes", n)
	}
}

func TestPluralPayments(t *testing.T) {
	cases := map[int]string{1: "платёж", 2: "платежа", 5: "платежей", 11: "платежей", 21: "платёж", 94: "платежа", 112: "платежей"}
	for n, want := range cases {
		if got := pluralPayments(n); got != want {
			t.Errorf("pluralPayments(%d) = %q, want %q", n, got, want)
		}
	}
}

func termsDebt(monthly string, dueDay int) domain.Debt {
	m := dec(monthly)
	return domain.Debt{ID: 9, Name: "Ремонт", Currency: "RUB", MonthlyPayment: &m, DueDay: &dueDay, Status: domain.DebtActive}
}

func TestReminderFor(t *testing.T) {
	offsets := []int{3, 1, 0}
	d := termsDebt("1000", 15)

	cases := []struct {
		today time.Time
		due   time.Time
		days  int
		ok    bool
	}{
		{today: day(2024, 3, 12), due: day(2024, 3, 15), days: 3, ok: true},
		{today: day(2024, 3, 14), due: day(2024, 3, 15), days: 1, ok: true},
		{today: day(2024, 3, 15), due: day(2024, 3, 15), days: 0, ok: true},
		{today: day(2024, 3, 13), ok: false},
		{today: day(2024, 3, 16), ok: false},
		{today: day(2023, 12, 31), ok: false},
	}
	for _, c := range cases {
		t.Run(c.today.Format("2006-01-02"), func(t *testing.T) {
			due, days, ok := reminderFor(d, dec("2500"), c.today, offsets)
			if ok != c.ok {
				t.Fatalf("ok = %v, want %v", ok, c.ok)
			}
			if ok && (!due.Equal(c.due) || days != c.days) {
				t.Errorf("got %v/%d, want %v/%d", due, days, c.due, c.days)
			}
		})
	}
}

func TestReminderFor_YearRollover(t *testing.T) {
	d := termsDebt("1000", 1)
	due, days, ok := reminderFor(d, dec("10"), day(2024, 12, 31), []int{1})
	if !ok || days != 1 || !due.Equal(day(2025, 1, 1)) {
		t.Errorf("got %v/%d/%v", due, days, ok)
	}
}

func TestReminderFor_LocalDate(t *testing.T) {
	msk := time.FixedZone("MSK", 3*60*60)
	d := termsDebt("1000", 15)
	// 14 March 22:30 UTC is already the 15th in Moscow.
	today := time.Date(2024, 3, 14, 22, 30, 0, 0, time.UTC).In(msk)
	_, days, ok := reminderFor(d, dec("10"), today, []int{0})
	if !ok || days != 0 {
		t.Errorf("got %d/%v", days, ok)
	}
}

func TestReminderFor_Skips(t *testing.T) {
	today := day(2024, 3, 15)
	closed := termsDebt("1000", 15)
	closed.Status = domain.DebtClosed
	noTerms := domain.Debt{ID: 1, Status: domain.DebtActive}

	for name, c := range map[string]struct {
		d   domain.Debt
		bal string
	}{
		"closed":   {closed, "100"},
		"no terms": {noTerms, "100"},
		"settled":  {termsDebt("1000", 15), "0"},
		"overpaid": {termsDebt("1000", 15), "-5"},
	} {
		if _, _, ok := reminderFor(c.d, dec(c.bal), today, []int{0}); ok {
			t.Errorf("%s: expected no reminder", name)
		}
	}
}

func TestReminderText_CapsAtBalance(t *testing.T) {
	got := reminderText(termsDebt("1000", 15), dec("250"), day(2024, 3, 15), 0)
	if !strings.Contains(got, "Сегодня") || !strings.Contains(got, "250.00 RUB до 15.03.2024") {
		t.Errorf("got %q", got)
	}
}

func TestErrorText(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.NotFound("debt", 1), "Долг не найден"},
		{fmt.Errorf("wrap: %w", domain.NotFound("payment", 2)), "Платёж не найден"},
		{domain.ErrDebtClosed, "Долг закрыт, изменения невозможны"},
		{&domain.ErrValidation{Field: "due_day", Message: "must be between 1 and 31"}, "День платежа должен быть от 1 до 31"},
		{&domain.ErrForbidden{Action: "close debt"}, "Нет прав на это действие"},
		{&domain.ErrConflict{Message: "invite already used"}, "Приглашение уже использовано"},
		{usageError("Используй: /pay"), "Используй: /pay"},
		{fmt.Errorf("connection reset"), ""},
	}
	for _, c := range cases {
		if got := errorText(c.err); got != c.want {
			t.Errorf("errorText(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
