package pg

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	"github.com/tokengate/middleware/pkg/gate"
)

// configRowID pins the gate configuration to a single row.
const configRowID = 1

// ConfigDao is a data access object that maps directly to the 'gate_config' table in PostgreSQL.
type ConfigDao struct {
	bun.BaseModel `bun:"table:gate_config,alias:gc"`
	ID            int64     `bun:"id,pk"`
	Enabled       bool      `bun:"enabled,notnull,default:false"`
	Mint          string    `bun:"mint,notnull,default:'',type:varchar(64)"`
	MinAmount     *string   `bun:"min_amount,nullzero,type:numeric(38,18)"`
	MinUSD        *string   `bun:"min_usd,nullzero,type:numeric(38,18)"`
	Tolerance     string    `bun:"tolerance,notnull,default:'0',type:numeric(10,6)"`
	PriceMode     string    `bun:"price_mode,notnull,default:'coin_id',type:varchar(16)"`
	CoinID        string    `bun:"coin_id,notnull,default:'',type:varchar(128)"`
	Platform      string    `bun:"platform,notnull,default:'',type:varchar(64)"`
	TokenAddress  string    `bun:"token_address,notnull,default:'',type:varchar(64)"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,nullzero,default:current_timestamp"`
}

// StateDao is a data access object that maps directly to the 'gate_state' table in PostgreSQL.
type StateDao struct {
	bun.BaseModel `bun:"table:gate_state,alias:gs"`
	Identity      string    `bun:"identity,pk,type:varchar(64)"`
	LastStatus    bool      `bun:"last_status,notnull,default:false"`
	LastUSDValue  string    `bun:"last_usd_value,notnull,default:'0',type:numeric(38,18)"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,nullzero,default:current_timestamp"`
}

func toConfigDao(cfg *gate.Config) *ConfigDao {
	dao := &ConfigDao{
		ID:           configRowID,
		Enabled:      cfg.Enabled,
		Mint:         cfg.Mint,
		Tolerance:    cfg.Tolerance.String(),
		PriceMode:    string(cfg.PriceMode),
		CoinID:       cfg.CoinID,
		Platform:     cfg.Platform,
		TokenAddress: cfg.TokenAddress,
		UpdatedAt:    cfg.UpdatedAt,
	}
	if cfg.MinAmount != nil {
		s := cfg.MinAmount.String()
		dao.MinAmount = &s
	}
	if cfg.MinUSD != nil {
		s := cfg.MinUSD.String()
		dao.MinUSD = &s
	}
	return dao
}

func toConfig(dao *ConfigDao) (*gate.Config, error) {
	tolerance, err := decimal.NewFromString(dao.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("invalid tolerance %q: %w", dao.Tolerance, err)
	}
	cfg := &gate.Config{
		Enabled:      dao.Enabled,
		Mint:         dao.Mint,
		Tolerance:    tolerance,
		PriceMode:    gate.PriceMode(dao.PriceMode),
		CoinID:       dao.CoinID,
		Platform:     dao.Platform,
		TokenAddress: dao.TokenAddress,
		UpdatedAt:    dao.UpdatedAt,
	}
	if dao.MinAmount != nil {
		min, err := decimal.NewFromString(*dao.MinAmount)
		if err != nil {
			return nil, fmt.Errorf("invalid min_amount %q: %w", *dao.MinAmount, err)
		}
		cfg.MinAmount = &min
	}
	if dao.MinUSD != nil {
		min, err := decimal.NewFromString(*dao.MinUSD)
		if err != nil {
			return nil, fmt.Errorf("invalid min_usd %q: %w", *dao.MinUSD, err)
		}
		cfg.MinUSD = &min
	}
	return cfg, nil
}

func toStateDao(state *gate.State) *StateDao {
	return &StateDao{
		Identity:     state.Identity,
		LastStatus:   state.LastStatus,
		LastUSDValue: state.LastUSDValue.String(),
		UpdatedAt:    state.UpdatedAt,
	}
}

func toState(dao *StateDao) (*gate.State, error) {
	usd, err := decimal.NewFromString(dao.LastUSDValue)
	if err != nil {
		return nil, fmt.Errorf("invalid last_usd_value %q: %w", dao.LastUSDValue, err)
	}
	return &gate.State{
		Identity:     dao.Identity,
		LastStatus:   dao.LastStatus,
		LastUSDValue: usd,
		UpdatedAt:    dao.UpdatedAt,
	}, nil
}
