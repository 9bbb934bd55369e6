package nonce

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// NonceDao is a data access object that maps directly to the 'wallet_nonces' table in PostgreSQL.
type NonceDao struct {
	bun.BaseModel `bun:"table:wallet_nonces,alias:wn"`
	Identity      string    `bun:"identity,pk,type:varchar(64)"`
	NonceValue    string    `bun:"nonce_value,notnull,type:text"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
}

// PgStore is the Postgres-backed nonce store. The primary key on identity
// keeps at most one live nonce per wallet, and consumption is a single
// conditional DELETE so concurrent verifiers race to one winner.
type PgStore struct {
	db *bun.DB
}

// NewPgStore creates a new postgres implementation of the nonce store
func NewPgStore(db *bun.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Issue(ctx context.Context, identity string, ttl time.Duration) (*Challenge, error) {
	value, err := newValue()
	if err != nil {
		return nil, err
	}

	dao := &NonceDao{
		Identity:   identity,
		NonceValue: value,
		ExpiresAt:  time.Now().Add(ttl),
	}

	_, err = s.db.NewInsert().
		Model(dao).
		On("CONFLICT (identity) DO UPDATE").
		Set("nonce_value = EXCLUDED.nonce_value").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to issue nonce: %w", err)
	}

	return &Challenge{Nonce: value, Message: Message(value)}, nil
}

func (s *PgStore) Consume(ctx context.Context, identity string) (string, error) {
	dao := new(NonceDao)
	_, err := s.db.NewDelete().
		Model(dao).
		Where("identity = ?", identity).
		Where("expires_at > ?", time.Now()).
		Returning("nonce_value").
		Exec(ctx, dao)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNonceInvalid
		}
		return "", fmt.Errorf("failed to consume nonce: %w", err)
	}
	if dao.NonceValue == "" {
		return "", ErrNonceInvalid
	}
	return dao.NonceValue, nil
}
