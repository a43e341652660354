package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourname/debtbook-bot/internal/domain"
)

const inviteColumns = `
	id, debt_id, token::text, expires_at, used_at, used_by_user_id, created_at`

func scanInvite(row pgx.Row) (domain.Invite, error) {
	var (
		i     domain.Invite
		token string
	)
	if err := row.Scan(&i.ID, &i.DebtID, &token, &i.ExpiresAt, &i.UsedAt, &i.UsedByUserID, &i.CreatedAt); err != nil {
		return domain.Invite{}, err
	}
	t, err := uuid.Parse(token)
	if err != nil {
		return domain.Invite{}, err
	}
	i.Token = t
	return i, nil
}

func (s *Store) CreateInvite(ctx context.Context, debtID int64, token uuid.UUID, expiresAt time.Time) (domain.Invite, error) {
	return scanInvite(s.db.QueryRow(ctx, `
		INSERT INTO invites(debt_id, token, expires_at)
		VALUES($1,$2,$3)
		RETURNING`+inviteColumns,
		debtID, token.String(), expiresAt,
	))
}

func (s *Store) GetInviteByToken(ctx context.Context, token uuid.UUID) (domain.Invite, error) {
	i, err := scanInvite(s.db.QueryRow(ctx, `SELECT`+inviteColumns+` FROM invites WHERE token=$1`, token.String()))
	if err != nil {
		return domain.Invite{}, notFound(err, "invite", token)
	}
	return i, nil
}

func (s *Store) MarkInviteUsed(ctx context.Context, inviteID, userID int64, at time.Time) (domain.Invite, error) {
	i, err := scanInvite(s.db.QueryRow(ctx, `
		UPDATE invites
		SET used_at=$2, used_by_user_id=$3
		WHERE id=$1 AND used_at IS NULL
		RETURNING`+inviteColumns,
		inviteID, at, userID,
	))
	if err != nil {
		return domain.Invite{}, notFound(err, "invite", inviteID)
	}
	return i, nil
}
