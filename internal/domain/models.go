package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DebtStatus string

const (
	DebtActive DebtStatus = "active"
	DebtClosed DebtStatus = "closed"
)

type User struct {
	ID         int64
	TelegramID int64
	Username   *string
	FirstName  *string
	LastName   *string
	CreatedAt  time.Time
}

// DisplayName returns the best human-readable name for the user.
func (u User) DisplayName() string {
	name := ""
	if u.FirstName != nil {
		name = *u.FirstName
	}
	if u.LastName != nil && *u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += *u.LastName
	}
	if name == "" && u.Username != nil && *u.Username != "" {
		name = "@" + *u.Username
	}
	return name
}

// Debt is owed by DebtorUserID. CreditorUserID stays nil until an invite
// is accepted.
type Debt struct {
	ID              int64
	DebtorUserID    int64
	CreditorUserID  *int64
	Name            string
	PrincipalAmount decimal.Decimal
	Currency        string
	MonthlyPayment  *decimal.Decimal
	DueDay          *int
	Status          DebtStatus
	ClosedAt        *time.Time
	CloseNote       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (d Debt) IsClosed() bool { return d.Status == DebtClosed }

// HasParty reports whether userID is the debtor or the creditor.
func (d Debt) HasParty(userID int64) bool {
	if d.DebtorUserID == userID {
		return true
	}
	return d.CreditorUserID != nil && *d.CreditorUserID == userID
}

type Payment struct {
	ID          int64
	DebtID      int64
	Amount      decimal.Decimal
	PaymentDate time.Time // date-only semantics
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Payment) IsDeleted() bool { return p.DeletedAt != nil }

type Invite struct {
	ID           int64
	DebtID       int64
	Token        uuid.UUID
	ExpiresAt    time.Time
	UsedAt       *time.Time
	UsedByUserID *int64
	CreatedAt    time.Time
}

func (i Invite) IsUsed() bool { return i.UsedAt != nil }

type AuditAction string

const (
	AuditCreate AuditAction = "create"
	AuditUpdate AuditAction = "update"
	AuditDelete AuditAction = "delete"
	AuditClose  AuditAction = "close"
)

type AuditEntry struct {
	ID          int64
	EntityType  string
	EntityID    int64
	Action      AuditAction
	ActorUserID int64
	Before      map[string]any
	After       map[string]any
	CreatedAt   time.Time
}
