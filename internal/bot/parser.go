package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/service"
)

var (
	reAmount  = regexp.MustCompile(`(?i)^([0-9]+(?:[.,][0-9]{1,2})?)([$€£₽]|usd|eur|gbp|rub|руб\.?|р)?$`)
	reDateDMY = regexp.MustCompile(`^(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{4})$`)
	reDateISO = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

var errBadAmount = errors.New("bad amount")

// ParseAmount reads "1500", "1500,50" or "300$". Currency is "" when the
// amount carries no suffix. At most two fraction digits are accepted.
func ParseAmount(s string) (decimal.Decimal, string, error) {
	m := reAmount.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return decimal.Decimal{}, "", errBadAmount
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return decimal.Decimal{}, "", errBadAmount
	}
	return v, normalizeCurrency(strings.ToLower(m[2])), nil
}

func normalizeCurrency(cur string) string {
	switch cur {
	case "":
		return ""
	case "$", "usd":
		return "USD"
	case "€", "eur":
		return "EUR"
	case "£", "gbp":
		return "GBP"
	case "₽", "р", "руб", "руб.", "rub":
		return "RUB"
	default:
		return strings.ToUpper(cur)
	}
}

// ParseDate accepts dd.mm.yyyy (also with - or /) and yyyy-mm-dd. The
// result is midnight UTC of that calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var y, m, d int
	if p := reDateDMY.FindStringSubmatch(s); p != nil {
		d, _ = strconv.Atoi(p[1])
		m, _ = strconv.Atoi(p[2])
		y, _ = strconv.Atoi(p[3])
	} else if p := reDateISO.FindStringSubmatch(s); p != nil {
		y, _ = strconv.Atoi(p[1])
		m, _ = strconv.Atoi(p[2])
		d, _ = strconv.Atoi(p[3])
	} else {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31.02 into March
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return t, nil
}

func ParseDueDay(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 31 {
		return 0, fmt.Errorf("due day %d out of range", n)
	}
	return n, nil
}

func parseID(s, usage string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError("Используй: " + usage)
	}
	return id, nil
}

// keepValue in /terms leaves the current term unchanged.
const keepValue = "-"

// ParseTerms reads the monthly payment and due day of /terms. "-" yields
// nil for that term; at least one term must be given.
func ParseTerms(monthlyArg, dayArg string) (*decimal.Decimal, *int, error) {
	var (
		monthly *decimal.Decimal
		day     *int
	)
	if monthlyArg != keepValue {
		m, _, err := ParseAmount(monthlyArg)
		if err != nil {
			return nil, nil, err
		}
		monthly = &m
	}
	if dayArg != keepValue {
		d, err := ParseDueDay(dayArg)
		if err != nil {
			return nil, nil, err
		}
		day = &d
	}
	if monthly == nil && day == nil {
		return nil, nil, errors.New("nothing to change")
	}
	return monthly, day, nil
}

// ParseNewDebt reads "/new <amount> [<monthly> <day>] [name...]". The two
// tokens after the amount are taken as terms only when both parse.
func ParseNewDebt(args string) (service.CreateDebtInput, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return service.CreateDebtInput{}, errBadAmount
	}
	amount, cur, err := ParseAmount(fields[0])
	if err != nil {
		return service.CreateDebtInput{}, err
	}
	in := service.CreateDebtInput{Principal: amount, Currency: cur}

	rest := fields[1:]
	if len(rest) >= 2 {
		monthly, _, mErr := ParseAmount(rest[0])
		day, dErr := ParseDueDay(rest[1])
		if mErr == nil && dErr == nil {
			in.Monthly, in.DueDay = &monthly, &day
			rest = rest[2:]
		}
	}
	in.Name = strings.Join(rest, " ")
	return in, nil
}

// PlanQuery is the inline-mode calculator input "<balance> <monthly> <day>".
type PlanQuery struct {
	Balance decimal.Decimal
	Monthly decimal.Decimal
	DueDay  int
	// Currency comes from the balance suffix, if any.
	Currency string
}

func ParsePlanQuery(q string) (PlanQuery, error) {
	fields := strings.Fields(q)
	if len(fields) != 3 {
		return PlanQuery{}, errors.New("want <balance> <monthly> <day>")
	}
	bal, cur, err := ParseAmount(fields[0])
	if err != nil {
		return PlanQuery{}, err
	}
	monthly, _, err := ParseAmount(fields[1])
	if err != nil {
		return PlanQuery{}, err
	}
	if !bal.IsPositive() || !monthly.IsPositive() {
		return PlanQuery{}, errBadAmount
	}
	day, err := ParseDueDay(fields[2])
	if err != nil {
		return PlanQuery{}, err
	}
	return PlanQuery{Balance: bal, Monthly: monthly, DueDay: day, Currency: cur}, nil
}
