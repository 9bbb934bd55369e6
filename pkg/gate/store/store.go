// Package store defines persistence interfaces for gate configuration and
// per-wallet hysteresis state. Implementations: Postgres (pg) and in-memory.
package store

import (
	"context"
	"errors"

	"github.com/tokengate/middleware/pkg/gate"
)

// ErrStateNotFound is returned when a wallet has no hysteresis state yet.
var ErrStateNotFound = errors.New("gate state not found")

// ConfigStore persists the singleton gate configuration.
// Get on an empty store returns a disabled zero config, not an error.
type ConfigStore interface {
	GetConfig(ctx context.Context) (*gate.Config, error)
	SaveConfig(ctx context.Context, cfg *gate.Config) error
}

// StateStore persists per-wallet hysteresis state.
type StateStore interface {
	GetState(ctx context.Context, identity string) (*gate.State, error)
	UpsertState(ctx context.Context, state *gate.State) error
}
