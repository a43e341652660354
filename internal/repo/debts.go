package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
)

const debtColumns = `
	id, debtor_user_id, creditor_user_id, name, principal_amount::text,
	currency, monthly_payment::text, due_day, status, closed_at,
	close_note, created_at, updated_at`

func scanDebt(row pgx.Row) (domain.Debt, error) {
	var (
		d         domain.Debt
		principal string
		monthly   *string
		status    string
	)
	if err := row.Scan(
		&d.ID,
		&d.DebtorUserID,
		&d.CreditorUserID,
		&d.Name,
		&principal,
		&d.Currency,
		&monthly,
		&d.DueDay,
		&status,
		&d.ClosedAt,
		&d.CloseNote,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return domain.Debt{}, err
	}
	p, err := decimal.NewFromString(principal)
	if err != nil {
		return domain.Debt{}, err
	}
	d.PrincipalAmount = p
	if d.MonthlyPayment, err = parseNumeric(monthly); err != nil {
		return domain.Debt{}, err
	}
	d.Status = domain.DebtStatus(status)
	return d, nil
}

func (s *Store) collectDebts(ctx context.Context, sql string, args ...any) ([]domain.Debt, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Debt, 0, 16)
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) CreateDebt(ctx context.Context, d domain.Debt) (domain.Debt, error) {
	return scanDebt(s.db.QueryRow(ctx, `
		INSERT INTO debts(
			debtor_user_id, creditor_user_id, name, principal_amount, currency,
			monthly_payment, due_day, status
		)
		VALUES($1,$2,$3,$4,$5,$6,$7,'active')
		RETURNING`+debtColumns,
		d.DebtorUserID,
		d.CreditorUserID,
		d.Name,
		d.PrincipalAmount.String(),
		d.Currency,
		numericArg(d.MonthlyPayment),
		d.DueDay,
	))
}

func (s *Store) GetDebt(ctx context.Context, debtID int64) (domain.Debt, error) {
	d, err := scanDebt(s.db.QueryRow(ctx, `SELECT`+debtColumns+` FROM debts WHERE id=$1`, debtID))
	if err != nil {
		return domain.Debt{}, notFound(err, "debt", debtID)
	}
	return d, nil
}

func (s *Store) ListDebtsByDebtor(ctx context.Context, userID int64) ([]domain.Debt, error) {
	return s.collectDebts(ctx, `
		SELECT`+debtColumns+`
		FROM debts
		WHERE debtor_user_id=$1
		ORDER BY created_at DESC
	`, userID)
}

func (s *Store) ListDebtsByCreditor(ctx context.Context, userID int64) ([]domain.Debt, error) {
	return s.collectDebts(ctx, `
		SELECT`+debtColumns+`
		FROM debts
		WHERE creditor_user_id=$1
		ORDER BY created_at DESC
	`, userID)
}

// ListActiveDebtsWithTerms feeds the reminder worker.
func (s *Store) ListActiveDebtsWithTerms(ctx context.Context) ([]domain.Debt, error) {
	return s.collectDebts(ctx, `
		SELECT`+debtColumns+`
		FROM debts
		WHERE status='active'
		  AND monthly_payment IS NOT NULL
		  AND due_day IS NOT NULL
		ORDER BY id
	`)
}

// UpdateDebtTerms changes only the non-nil terms.
func (s *Store) UpdateDebtTerms(ctx context.Context, debtID int64, monthly *decimal.Decimal, dueDay *int) (domain.Debt, error) {
	d, err := scanDebt(s.db.QueryRow(ctx, `
		UPDATE debts
		SET monthly_payment = COALESCE($2::numeric, monthly_payment),
		    due_day = COALESCE($3::int, due_day),
		    updated_at = now()
		WHERE id=$1
		RETURNING`+debtColumns,
		debtID, numericArg(monthly), dueDay,
	))
	if err != nil {
		return domain.Debt{}, notFound(err, "debt", debtID)
	}
	return d, nil
}

func (s *Store) SetCreditor(ctx context.Context, debtID, creditorUserID int64) (domain.Debt, error) {
	d, err := scanDebt(s.db.QueryRow(ctx, `
		UPDATE debts
		SET creditor_user_id=$2, updated_at=now()
		WHERE id=$1
		RETURNING`+debtColumns,
		debtID, creditorUserID,
	))
	if err != nil {
		return domain.Debt{}, notFound(err, "debt", debtID)
	}
	return d, nil
}

// CloseDebt only touches active debts; closing twice reports not found.
func (s *Store) CloseDebt(ctx context.Context, debtID int64, note *string, at time.Time) (domain.Debt, error) {
	d, err := scanDebt(s.db.QueryRow(ctx, `
		UPDATE debts
		SET status='closed', closed_at=$2, close_note=$3, updated_at=$2
		WHERE id=$1 AND status='active'
		RETURNING`+debtColumns,
		debtID, at, note,
	))
	if err != nil {
		return domain.Debt{}, notFound(err, "debt", debtID)
	}
	return d, nil
}
