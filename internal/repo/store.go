package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/yourname/debtbook-bot/internal/domain"
	"github.com/yourname/debtbook-bot/internal/port"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL implementation of port.Store.
type Store struct {
	pool *pgxpool.Pool // nil inside a transaction
	db   querier
}

func NewStore(p *pgxpool.Pool) *Store { return &Store{pool: p, db: p} }

var _ port.Store = (*Store)(nil)

// InTx nests by reusing the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx port.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&Store{db: tx})
	})
}

func notFound(err error, resource string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(resource, id)
	}
	return err
}

// Numerics travel as text to keep them exact on both sides.
func numericArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNumeric(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q: %w", *s, err)
	}
	return &d, nil
}
