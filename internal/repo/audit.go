package repo

import (
	"context"
	"encoding/json"

	"github.com/yourname/debtbook-bot/internal/domain"
)

func (s *Store) InsertAudit(ctx context.Context, e domain.AuditEntry) error {
	before, err := jsonOrNil(e.Before)
	if err != nil {
		return err
	}
	after, err := jsonOrNil(e.After)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO audit_log(entity_type, entity_id, action, actor_user_id, before_data, after_data)
		VALUES($1,$2,$3,$4,$5,$6)
	`, e.EntityType, e.EntityID, string(e.Action), e.ActorUserID, before, after)
	return err
}

func jsonOrNil(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
