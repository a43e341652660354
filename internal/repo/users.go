package repo

import (
	"context"

	"github.com/yourname/debtbook-bot/internal/domain"
)

func (s *Store) UpsertTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName *string) (int64, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO users(tg_user_id, username, first_name, last_name)
		VALUES($1,$2,$3,$4)
		ON CONFLICT (tg_user_id) DO UPDATE
		SET username=EXCLUDED.username,
			first_name=EXCLUDED.first_name,
			last_name=EXCLUDED.last_name
		RETURNING id
	`, telegramID, username, firstName, lastName).Scan(&id)
	return id, err
}

func (s *Store) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(ctx, `
		SELECT id, tg_user_id, username, first_name, last_name, created_at
		FROM users WHERE id=$1
	`, userID).Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.CreatedAt)
	if err != nil {
		return domain.User{}, notFound(err, "user", userID)
	}
	return u, nil
}
