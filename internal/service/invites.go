package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/port"
)

// Invites links a creditor to a debt through a one-time token. Expiry is
// stored but not enforced.
type Invites struct {
	store port.Store
	ttl   time.Duration
	now   func() time.Time
	token func() uuid.UUID
}

func NewInvites(store port.Store, ttl time.Duration, now func() time.Time) *Invites {
	if now == nil {
		now = time.Now
	}
	return &Invites{store: store, ttl: ttl, now: now, token: uuid.New}
}

func (s *Invites) CreateInvite(ctx context.Context, debtID, userID int64) (domain.Invite, error) {
	var created domain.Invite
	err := s.store.InTx(ctx, func(tx port.Store) error {
		d, err := tx.GetDebt(ctx, debtID)
		if err != nil {
			return err
		}
		if d.DebtorUserID != userID {
			return &domain.ErrForbidden{Action: "create invite (debtor only)"}
		}
		inv, err := tx.CreateInvite(ctx, debtID, s.token(), s.now().UTC().Add(s.ttl))
		if err != nil {
			return err
		}
		created = inv
		return audit(ctx, tx, entityInvite, inv.ID, domain.AuditCreate, userID, nil, inviteSnapshot(inv))
	})
	return created, err
}

// AcceptInvite makes userID the creditor of the invite's debt.
func (s *Invites) AcceptInvite(ctx context.Context, token uuid.UUID, userID int64) (domain.Debt, error) {
	var linked domain.Debt
	err := s.store.InTx(ctx, func(tx port.Store) error {
		inv, err := tx.GetInviteByToken(ctx, token)
		if err != nil {
			return err
		}
		if inv.IsUsed() {
			return &domain.ErrConflict{Message: "invite already used"}
		}
		d, err := tx.GetDebt(ctx, inv.DebtID)
		if err != nil {
			return err
		}
		if d.DebtorUserID == userID {
			return &domain.ErrForbidden{Action: "become creditor of own debt"}
		}
		if d.CreditorUserID != nil && *d.CreditorUserID == userID {
			return &domain.ErrConflict{Message: "already the creditor of this debt"}
		}

		updated, err := tx.SetCreditor(ctx, d.ID, userID)
		if err != nil {
			return err
		}
		usedInv, err := tx.MarkInviteUsed(ctx, inv.ID, userID, s.now().UTC())
		if err != nil {
			return err
		}
		linked = updated

		if err := audit(ctx, tx, entityDebt, d.ID, domain.AuditUpdate, userID,
			map[string]any{"debt_id": d.ID, "creditor_user_id": d.CreditorUserID},
			map[string]any{"debt_id": updated.ID, "creditor_user_id": updated.CreditorUserID},
		); err != nil {
			return err
		}
		return audit(ctx, tx, entityInvite, inv.ID, domain.AuditUpdate, userID, inviteSnapshot(inv), inviteSnapshot(usedInv))
	})
	return linked, err
}
