// Package planner projects the forward repayment schedule of a debt from
// its terms and current balance.
package planner

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
)

// MaxPlanItems bounds every projection. A tiny installment against a large
// balance would otherwise yield an unbounded plan; plans that hit the cap
// are reported as truncated by Summarize.
const MaxPlanItems = 100

var errNoBalanceSource = errors.New("planner: no balance given and no balance source configured")

type PlanItem struct {
	Date    time.Time
	Amount  decimal.Decimal
	IsFinal bool // settling installment
}

// BalanceSource resolves the current balance when the caller has none.
type BalanceSource interface {
	CalculateBalance(ctx context.Context, debtID int64) (decimal.Decimal, error)
}

type Planner struct {
	balances BalanceSource
}

// New returns a Planner. balances may be nil when callers always pass a
// balance.
func New(balances BalanceSource) *Planner {
	return &Planner{balances: balances}
}

// DueDateInMonth returns dueDay in the given month, clamped to the month's
// last day (31 in April is the 30th, 30 in February the 28th or 29th).
func DueDateInMonth(year int, month time.Month, dueDay int) time.Time {
	lastDay := daysIn(year, month)
	day := dueDay
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextDueDate returns the due date of ref's month when ref is on or before
// it, otherwise the due date of the following month.
func NextDueDate(ref time.Time, dueDay int) time.Time {
	today := dateOf(ref)
	due := DueDateInMonth(today.Year(), today.Month(), dueDay)
	if !today.After(due) {
		return due
	}
	return nextMonthDue(today, dueDay)
}

// nextMonthDue steps one calendar month from prev and re-clamps the nominal
// due day, so a 31st schedule goes Jan 31, Feb 28, Mar 31.
func nextMonthDue(prev time.Time, dueDay int) time.Time {
	year, month := prev.Year(), prev.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	return DueDateInMonth(year, month, dueDay)
}

// CalculatePaymentPlan projects the installments left on debt as of asOf.
// When currentBalance is nil it is looked up by debt.ID; only that lookup
// can fail. Debts without terms, closed debts and settled balances give an
// empty plan.
func (p *Planner) CalculatePaymentPlan(ctx context.Context, debt domain.Debt, currentBalance *decimal.Decimal, asOf time.Time) ([]PlanItem, error) {
	if debt.MonthlyPayment == nil || debt.DueDay == nil || debt.IsClosed() {
		return nil, nil
	}

	var bal decimal.Decimal
	if currentBalance != nil {
		bal = *currentBalance
	} else {
		if p.balances == nil {
			return nil, errNoBalanceSource
		}
		b, err := p.balances.CalculateBalance(ctx, debt.ID)
		if err != nil {
			return nil, err
		}
		bal = b
	}

	return Project(debt, bal, asOf), nil
}

// Project is the lookup-free form of CalculatePaymentPlan.
func Project(debt domain.Debt, bal decimal.Decimal, asOf time.Time) []PlanItem {
	if debt.MonthlyPayment == nil || debt.DueDay == nil || debt.IsClosed() {
		return nil
	}
	if !bal.IsPositive() {
		return nil
	}
	return generate(bal, *debt.MonthlyPayment, *debt.DueDay, asOf)
}

func generate(remaining, monthly decimal.Decimal, dueDay int, asOf time.Time) []PlanItem {
	var plan []PlanItem
	for i := 0; i < MaxPlanItems; i++ {
		if !remaining.IsPositive() {
			break
		}

		var date time.Time
		if len(plan) == 0 {
			date = NextDueDate(asOf, dueDay)
		} else {
			date = nextMonthDue(plan[len(plan)-1].Date, dueDay)
		}

		if remaining.LessThanOrEqual(monthly) {
			plan = append(plan, PlanItem{Date: date, Amount: remaining, IsFinal: true})
			break
		}
		plan = append(plan, PlanItem{Date: date, Amount: monthly})
		remaining = remaining.Sub(monthly)
	}
	return plan
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dateOf drops the clock, keeping the calendar date in t's own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
