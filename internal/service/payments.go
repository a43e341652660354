package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/balance"
	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/port"
)

type Payments struct {
	store    port.Store
	balances *balance.Calculator
	now      func() time.Time
}

func NewPayments(store port.Store, balances *balance.Calculator, now func() time.Time) *Payments {
	if now == nil {
		now = time.Now
	}
	return &Payments{store: store, balances: balances, now: now}
}

// AddPayment records a payment by the debtor against an active debt.
func (s *Payments) AddPayment(ctx context.Context, debtID, userID int64, amount decimal.Decimal, paidOn time.Time) (domain.Payment, error) {
	if !amount.IsPositive() {
		return domain.Payment{}, &domain.ErrValidation{Field: "amount", Message: "must be greater than zero"}
	}

	var created domain.Payment
	err := s.store.InTx(ctx, func(tx port.Store) error {
		if _, err := debtorDebt(ctx, tx, debtID, userID, "add payment"); err != nil {
			return err
		}
		p, err := tx.CreatePayment(ctx, debtID, amount, paidOn)
		if err != nil {
			return err
		}
		created = p
		return audit(ctx, tx, entityPayment, p.ID, domain.AuditCreate, userID, nil, paymentSnapshot(p))
	})
	return created, err
}

// DeletePayment soft-deletes; the payment drops out of the balance.
func (s *Payments) DeletePayment(ctx context.Context, paymentID, userID int64) (domain.Payment, error) {
	var deleted domain.Payment
	err := s.store.InTx(ctx, func(tx port.Store) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if p.IsDeleted() {
			return &domain.ErrConflict{Message: "payment already deleted"}
		}
		if _, err := debtorDebt(ctx, tx, p.DebtID, userID, "delete payment"); err != nil {
			return err
		}
		d, err := tx.SoftDeletePayment(ctx, paymentID, s.now().UTC())
		if err != nil {
			return err
		}
		deleted = d
		return audit(ctx, tx, entityPayment, paymentID, domain.AuditDelete, userID, paymentSnapshot(p), paymentSnapshot(d))
	})
	return deleted, err
}

// Payments lists a debt's payments for either party.
func (s *Payments) Payments(ctx context.Context, debtID, userID int64, includeDeleted bool) ([]domain.Payment, error) {
	d, err := s.store.GetDebt(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if !d.HasParty(userID) {
		return nil, &domain.ErrForbidden{Action: "view payments"}
	}
	return s.store.ListPayments(ctx, debtID, includeDeleted)
}

func (s *Payments) CalculateBalance(ctx context.Context, debtID int64) (decimal.Decimal, error) {
	return s.balances.CalculateBalance(ctx, debtID)
}
