package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/port"
)

const (
	entityDebt    = "debt"
	entityPayment = "payment"
	entityInvite  = "invite"
)

// audit writes through the store it is given so entries share the caller's
// transaction.
func audit(ctx context.Context, s port.AuditStore, entity string, id int64, action domain.AuditAction, actor int64, before, after map[string]any) error {
	return s.InsertAudit(ctx, domain.AuditEntry{
		EntityType:  entity,
		EntityID:    id,
		Action:      action,
		ActorUserID: actor,
		Before:      before,
		After:       after,
	})
}

func debtSnapshot(d domain.Debt) map[string]any {
	return map[string]any{
		"id":               d.ID,
		"debtor_user_id":   d.DebtorUserID,
		"creditor_user_id": d.CreditorUserID,
		"name":             d.Name,
		"principal_amount": d.PrincipalAmount.String(),
		"currency":         d.Currency,
		"monthly_payment":  decimalOrNil(d.MonthlyPayment),
		"due_day":          d.DueDay,
		"status":           string(d.Status),
		"closed_at":        timeOrNil(d.ClosedAt),
		"close_note":       d.CloseNote,
	}
}

func paymentSnapshot(p domain.Payment) map[string]any {
	return map[string]any{
		"id":           p.ID,
		"debt_id":      p.DebtID,
		"amount":       p.Amount.String(),
		"payment_date": p.PaymentDate.Format("2006-01-02"),
		"deleted_at":   timeOrNil(p.DeletedAt),
	}
}

func inviteSnapshot(i domain.Invite) map[string]any {
	return map[string]any{
		"id":         i.ID,
		"debt_id":    i.DebtID,
		"token":      i.Token.String(),
		"expires_at": i.ExpiresAt.Format(time.RFC3339),
		"used_at":    timeOrNil(i.UsedAt),
	}
}

func decimalOrNil(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
