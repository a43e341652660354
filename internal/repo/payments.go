package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
)

const paymentColumns = `
	id, debt_id, amount::text, payment_date, deleted_at, created_at, updated_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var (
		p      domain.Payment
		amount string
	)
	if err := row.Scan(&p.ID, &p.DebtID, &amount, &p.PaymentDate, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Payment{}, err
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		return domain.Payment{}, err
	}
	p.Amount = a
	return p, nil
}

func (s *Store) CreatePayment(ctx context.Context, debtID int64, amount decimal.Decimal, paidOn time.Time) (domain.Payment, error) {
	return scanPayment(s.db.QueryRow(ctx, `
		INSERT INTO payments(debt_id, amount, payment_date)
		VALUES($1,$2,$3)
		RETURNING`+paymentColumns,
		debtID, amount.String(), paidOn.Format("2006-01-02"),
	))
}

func (s *Store) GetPayment(ctx context.Context, paymentID int64) (domain.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx, `SELECT`+paymentColumns+` FROM payments WHERE id=$1`, paymentID))
	if err != nil {
		return domain.Payment{}, notFound(err, "payment", paymentID)
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context, debtID int64, includeDeleted bool) ([]domain.Payment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE debt_id=$1
		  AND ($2 OR deleted_at IS NULL)
		ORDER BY payment_date DESC, id DESC
	`, debtID, includeDeleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Payment, 0, 32)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SoftDeletePayment stamps deleted_at; an already deleted payment reports
// not found.
func (s *Store) SoftDeletePayment(ctx context.Context, paymentID int64, at time.Time) (domain.Payment, error) {
	p, err := scanPayment(s.db.QueryRow(ctx, `
		UPDATE payments
		SET deleted_at=$2, updated_at=$2
		WHERE id=$1 AND deleted_at IS NULL
		RETURNING`+paymentColumns,
		paymentID, at,
	))
	if err != nil {
		return domain.Payment{}, notFound(err, "payment", paymentID)
	}
	return p, nil
}

// ActivePaymentAmounts returns the live amounts; the sum is done in Go
// with decimal arithmetic.
func (s *Store) ActivePaymentAmounts(ctx context.Context, debtID int64) ([]decimal.Decimal, error) {
	rows, err := s.db.Query(ctx, `
		SELECT amount::text
		FROM payments
		WHERE debt_id=$1 AND deleted_at IS NULL
	`, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		a, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
