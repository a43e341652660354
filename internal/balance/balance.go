// Package balance reduces a debt's principal and its live payments to the
// outstanding amount.
package balance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
)

// Of returns principal minus the sum of non-deleted payments. The result is
// signed: zero or negative means paid off or overpaid.
func Of(principal decimal.Decimal, payments []domain.Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.IsDeleted() {
			continue
		}
		paid = paid.Add(p.Amount)
	}
	return principal.Sub(paid)
}

// Sum adds up amounts exactly.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Store is what the calculator reads.
type Store interface {
	GetDebt(ctx context.Context, debtID int64) (domain.Debt, error)
	ActivePaymentAmounts(ctx context.Context, debtID int64) ([]decimal.Decimal, error)
}

type Calculator struct {
	store Store
}

func NewCalculator(s Store) *Calculator { return &Calculator{store: s} }

// CalculateBalance recomputes the balance from the current payment set. A
// missing debt yields an error matching domain.ErrDebtNotFound.
func (c *Calculator) CalculateBalance(ctx context.Context, debtID int64) (decimal.Decimal, error) {
	debt, err := c.store.GetDebt(ctx, debtID)
	if err != nil {
		return decimal.Zero, err
	}
	amounts, err := c.store.ActivePaymentAmounts(ctx, debtID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payments of debt %d: %w", debtID, err)
	}
	return debt.PrincipalAmount.Sub(Sum(amounts)), nil
}
