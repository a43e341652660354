package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/balance"
	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/planner"
	"github.com/yourname/debtbook-bot/internal/port"
)

type CreateDebtInput struct {
	DebtorUserID int64
	Name         string
	Principal    decimal.Decimal
	Currency     string
	Monthly      *decimal.Decimal
	DueDay       *int
}

// DebtDetails is what the debt card shows.
type DebtDetails struct {
	Debt     domain.Debt
	Balance  decimal.Decimal
	Plan     []planner.PlanItem
	IsDebtor bool
}

type Debts struct {
	store    port.Store
	balances *balance.Calculator
	planner  *planner.Planner
	now      func() time.Time
}

func NewDebts(store port.Store, balances *balance.Calculator, p *planner.Planner, now func() time.Time) *Debts {
	if now == nil {
		now = time.Now
	}
	return &Debts{store: store, balances: balances, planner: p, now: now}
}

func validateTerms(monthly *decimal.Decimal, dueDay *int) error {
	if monthly != nil && !monthly.IsPositive() {
		return &domain.ErrValidation{Field: "monthly_payment", Message: "must be greater than zero"}
	}
	if dueDay != nil && (*dueDay < 1 || *dueDay > 31) {
		return &domain.ErrValidation{Field: "due_day", Message: "must be between 1 and 31"}
	}
	return nil
}

func (s *Debts) CreateDebt(ctx context.Context, in CreateDebtInput) (domain.Debt, error) {
	if !in.Principal.IsPositive() {
		return domain.Debt{}, &domain.ErrValidation{Field: "principal_amount", Message: "must be greater than zero"}
	}
	if err := validateTerms(in.Monthly, in.DueDay); err != nil {
		return domain.Debt{}, err
	}
	if in.Currency == "" {
		return domain.Debt{}, &domain.ErrValidation{Field: "currency", Message: "is required"}
	}

	var created domain.Debt
	err := s.store.InTx(ctx, func(tx port.Store) error {
		d, err := tx.CreateDebt(ctx, domain.Debt{
			DebtorUserID:    in.DebtorUserID,
			Name:            strings.TrimSpace(in.Name),
			PrincipalAmount: in.Principal,
			Currency:        strings.ToUpper(in.Currency),
			MonthlyPayment:  in.Monthly,
			DueDay:          in.DueDay,
			Status:          domain.DebtActive,
		})
		if err != nil {
			return fmt.Errorf("insert debt: %w", err)
		}
		created = d
		return audit(ctx, tx, entityDebt, d.ID, domain.AuditCreate, in.DebtorUserID, nil, debtSnapshot(d))
	})
	return created, err
}

// UserDebts returns debts where userID is debtor or creditor, each once.
func (s *Debts) UserDebts(ctx context.Context, userID int64) ([]domain.Debt, error) {
	owed, err := s.store.ListDebtsByDebtor(ctx, userID)
	if err != nil {
		return nil, err
	}
	lent, err := s.store.ListDebtsByCreditor(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(owed)+len(lent))
	out := make([]domain.Debt, 0, len(owed)+len(lent))
	for _, d := range append(owed, lent...) {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

// Debt returns the debt if userID is one of its parties.
func (s *Debts) Debt(ctx context.Context, debtID, userID int64) (domain.Debt, error) {
	d, err := s.store.GetDebt(ctx, debtID)
	if err != nil {
		return domain.Debt{}, err
	}
	if !d.HasParty(userID) {
		return domain.Debt{}, &domain.ErrForbidden{Action: "view debt"}
	}
	return d, nil
}

// debtorDebt loads an active debt that userID may modify.
func debtorDebt(ctx context.Context, s port.DebtStore, debtID, userID int64, action string) (domain.Debt, error) {
	d, err := s.GetDebt(ctx, debtID)
	if err != nil {
		return domain.Debt{}, err
	}
	if !d.HasParty(userID) {
		return domain.Debt{}, &domain.ErrForbidden{Action: action}
	}
	if d.IsClosed() {
		return domain.Debt{}, domain.ErrDebtClosed
	}
	if d.DebtorUserID != userID {
		return domain.Debt{}, &domain.ErrForbidden{Action: action + " (debtor only)"}
	}
	return d, nil
}

func (s *Debts) UpdateTerms(ctx context.Context, debtID, userID int64, monthly *decimal.Decimal, dueDay *int) (domain.Debt, error) {
	if err := validateTerms(monthly, dueDay); err != nil {
		return domain.Debt{}, err
	}

	var updated domain.Debt
	err := s.store.InTx(ctx, func(tx port.Store) error {
		before, err := debtorDebt(ctx, tx, debtID, userID, "update terms")
		if err != nil {
			return err
		}
		after, err := tx.UpdateDebtTerms(ctx, debtID, monthly, dueDay)
		if err != nil {
			return err
		}
		updated = after
		return audit(ctx, tx, entityDebt, debtID, domain.AuditUpdate, userID, debtSnapshot(before), debtSnapshot(after))
	})
	return updated, err
}

func (s *Debts) CloseDebt(ctx context.Context, debtID, userID int64, note *string) (domain.Debt, error) {
	var closed domain.Debt
	err := s.store.InTx(ctx, func(tx port.Store) error {
		before, err := debtorDebt(ctx, tx, debtID, userID, "close debt")
		if err != nil {
			return err
		}
		after, err := tx.CloseDebt(ctx, debtID, note, s.now().UTC())
		if err != nil {
			return err
		}
		closed = after
		return audit(ctx, tx, entityDebt, debtID, domain.AuditClose, userID, debtSnapshot(before), debtSnapshot(after))
	})
	return closed, err
}

// Details loads the debt with its balance and the plan projected from
// asOf.
func (s *Debts) Details(ctx context.Context, debtID, userID int64, asOf time.Time) (DebtDetails, error) {
	d, err := s.Debt(ctx, debtID, userID)
	if err != nil {
		return DebtDetails{}, err
	}
	bal, err := s.balances.CalculateBalance(ctx, debtID)
	if err != nil {
		return DebtDetails{}, err
	}
	plan, err := s.planner.CalculatePaymentPlan(ctx, d, &bal, asOf)
	if err != nil {
		return DebtDetails{}, err
	}
	return DebtDetails{
		Debt:     d,
		Balance:  bal,
		Plan:     plan,
		IsDebtor: d.DebtorUserID == userID,
	}, nil
}
