package store

import (
	"context"
	"sync"

	"github.com/tokengate/middleware/pkg/gate"
)

// Memory is an in-process ConfigStore and StateStore, used in tests and
// single-node development setups.
type Memory struct {
	mu     sync.RWMutex
	config *gate.Config
	states map[string]gate.State
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		states: make(map[string]gate.State),
	}
}

func (m *Memory) GetConfig(_ context.Context) (*gate.Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return &gate.Config{}, nil
	}
	cfg := *m.config
	return &cfg, nil
}

func (m *Memory) SaveConfig(_ context.Context, cfg *gate.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *cfg
	m.config = &clone
	return nil
}

func (m *Memory) GetState(_ context.Context, identity string) (*gate.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[identity]
	if !ok {
		return nil, ErrStateNotFound
	}
	return &state, nil
}

func (m *Memory) UpsertState(_ context.Context, state *gate.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Identity] = *state
	return nil
}
