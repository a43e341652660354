package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
)

// UserStore handles Telegram user registration.
type UserStore interface {
	UpsertTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName *string) (int64, error)
	GetUser(ctx context.Context, userID int64) (domain.User, error)
}

// DebtStore handles debt rows. Lookups of missing debts return an error
// matching domain.ErrDebtNotFound.
type DebtStore interface {
	CreateDebt(ctx context.Context, d domain.Debt) (domain.Debt, error)
	GetDebt(ctx context.Context, debtID int64) (domain.Debt, error)
	ListDebtsByDebtor(ctx context.Context, userID int64) ([]domain.Debt, error)
	ListDebtsByCreditor(ctx context.Context, userID int64) ([]domain.Debt, error)
	ListActiveDebtsWithTerms(ctx context.Context) ([]domain.Debt, error)
	UpdateDebtTerms(ctx context.Context, debtID int64, monthly *decimal.Decimal, dueDay *int) (domain.Debt, error)
	SetCreditor(ctx context.Context, debtID, creditorUserID int64) (domain.Debt, error)
	CloseDebt(ctx context.Context, debtID int64, note *string, at time.Time) (domain.Debt, error)
}

// PaymentStore handles payments. Deletion is soft.
type PaymentStore interface {
	CreatePayment(ctx context.Context, debtID int64, amount decimal.Decimal, paidOn time.Time) (domain.Payment, error)
	GetPayment(ctx context.Context, paymentID int64) (domain.Payment, error)
	ListPayments(ctx context.Context, debtID int64, includeDeleted bool) ([]domain.Payment, error)
	SoftDeletePayment(ctx context.Context, paymentID int64, at time.Time) (domain.Payment, error)
	ActivePaymentAmounts(ctx context.Context, debtID int64) ([]decimal.Decimal, error)
}

// InviteStore handles creditor invite tokens.
type InviteStore interface {
	CreateInvite(ctx context.Context, debtID int64, token uuid.UUID, expiresAt time.Time) (domain.Invite, error)
	GetInviteByToken(ctx context.Context, token uuid.UUID) (domain.Invite, error)
	MarkInviteUsed(ctx context.Context, inviteID, userID int64, at time.Time) (domain.Invite, error)
}

// AuditStore appends to the audit trail.
type AuditStore interface {
	InsertAudit(ctx context.Context, e domain.AuditEntry) error
}

// Store aggregates every store. InTx runs fn against a Store bound to a
// single transaction; fn's error rolls it back.
type Store interface {
	UserStore
	DebtStore
	PaymentStore
	InviteStore
	AuditStore

	InTx(ctx context.Context, fn func(tx Store) error) error
}
