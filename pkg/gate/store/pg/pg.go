// Package pg is the Postgres implementation of the gate stores.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tokengate/middleware/pkg/gate"
	"github.com/tokengate/middleware/pkg/gate/store"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the gate config and state stores
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

func (s *pgStore) GetConfig(ctx context.Context) (*gate.Config, error) {
	dao := new(ConfigDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", configRowID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No row yet means the gate has never been configured: disabled.
			return &gate.Config{}, nil
		}
		return nil, fmt.Errorf("failed to get gate config: %w", err)
	}
	return toConfig(dao)
}

func (s *pgStore) SaveConfig(ctx context.Context, cfg *gate.Config) error {
	dao := toConfigDao(cfg)
	dao.UpdatedAt = time.Now()

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("mint = EXCLUDED.mint").
		Set("min_amount = EXCLUDED.min_amount").
		Set("min_usd = EXCLUDED.min_usd").
		Set("tolerance = EXCLUDED.tolerance").
		Set("price_mode = EXCLUDED.price_mode").
		Set("coin_id = EXCLUDED.coin_id").
		Set("platform = EXCLUDED.platform").
		Set("token_address = EXCLUDED.token_address").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save gate config: %w", err)
	}
	return nil
}

func (s *pgStore) GetState(ctx context.Context, identity string) (*gate.State, error) {
	dao := new(StateDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("identity = ?", identity).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get gate state: %w", err)
	}
	return toState(dao)
}

func (s *pgStore) UpsertState(ctx context.Context, state *gate.State) error {
	dao := toStateDao(state)
	dao.UpdatedAt = time.Now()

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (identity) DO UPDATE").
		Set("last_status = EXCLUDED.last_status").
		Set("last_usd_value = EXCLUDED.last_usd_value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert gate state: %w", err)
	}
	return nil
}
