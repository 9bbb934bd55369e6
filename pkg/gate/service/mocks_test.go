package service

// TODO: remove the mock impl and use mockery to generate mock

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tokengate/middleware/pkg/gate"
	"github.com/tokengate/middleware/pkg/gate/store"
	"github.com/tokengate/middleware/pkg/price"
)

// MockConfigStore is a mock implementation of store.ConfigStore
type MockConfigStore struct {
	GetConfigFunc  func(ctx context.Context) (*gate.Config, error)
	SaveConfigFunc func(ctx context.Context, cfg *gate.Config) error
}

func (m *MockConfigStore) GetConfig(ctx context.Context) (*gate.Config, error) {
	if m.GetConfigFunc != nil {
		return m.GetConfigFunc(ctx)
	}
	return &gate.Config{}, nil
}

func (m *MockConfigStore) SaveConfig(ctx context.Context, cfg *gate.Config) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, cfg)
	}
	return nil
}

// MockStateStore is a mock implementation of store.StateStore
type MockStateStore struct {
	GetStateFunc    func(ctx context.Context, identity string) (*gate.State, error)
	UpsertStateFunc func(ctx context.Context, state *gate.State) error
}

func (m *MockStateStore) GetState(ctx context.Context, identity string) (*gate.State, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, identity)
	}
	return nil, store.ErrStateNotFound
}

func (m *MockStateStore) UpsertState(ctx context.Context, state *gate.State) error {
	if m.UpsertStateFunc != nil {
		return m.UpsertStateFunc(ctx, state)
	}
	return nil
}

// MockBalanceOracle is a mock implementation of BalanceOracle
type MockBalanceOracle struct {
	TokenAmountFunc func(ctx context.Context, owner, mint string) (decimal.Decimal, error)
}

func (m *MockBalanceOracle) TokenAmount(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	if m.TokenAmountFunc != nil {
		return m.TokenAmountFunc(ctx, owner, mint)
	}
	return decimal.Zero, nil
}

// MockPriceOracle is a mock implementation of PriceOracle
type MockPriceOracle struct {
	UsdPriceFunc func(ctx context.Context, src price.Source) (decimal.Decimal, error)
}

func (m *MockPriceOracle) UsdPrice(ctx context.Context, src price.Source) (decimal.Decimal, error) {
	if m.UsdPriceFunc != nil {
		return m.UsdPriceFunc(ctx, src)
	}
	return decimal.Zero, nil
}
