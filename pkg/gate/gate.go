// Package gate defines the domain model for the token-holdings access gate:
// the admin-controlled policy, the per-wallet hysteresis state and the
// decision produced by one evaluation.
package gate

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PriceMode selects how a USD unit price is resolved for the gated token.
type PriceMode string

const (
	// PriceModeCoinID resolves the price by CoinGecko coin identifier (e.g. "solana").
	PriceModeCoinID PriceMode = "coin_id"
	// PriceModeOnchain resolves the price by on-chain contract address on a platform.
	PriceModeOnchain PriceMode = "onchain"
)

// ErrConfigConflict is returned when a config update sets both the token-amount
// and the USD threshold, or enables the gate with neither.
var ErrConfigConflict = errors.New("gate thresholds are mutually exclusive")

// Config is the singleton gate policy record.
// Exactly one of MinAmount / MinUSD may be set; the typed view of the
// either/or pair is Mode().
type Config struct {
	Enabled      bool
	Mint         string
	MinAmount    *decimal.Decimal
	MinUSD       *decimal.Decimal
	Tolerance    decimal.Decimal // hysteresis band as a fraction, e.g. 0.02
	PriceMode    PriceMode
	CoinID       string
	Platform     string
	TokenAddress string
	UpdatedAt    time.Time
}

// Mode is the tagged-union view of a Config: the gate is disabled, thresholds
// on raw token amount, or thresholds on live USD value.
type Mode interface {
	isMode()
}

// Disabled means the gate always passes.
type Disabled struct{}

// AmountThreshold gates on raw token balance. Stateless; no hysteresis.
type AmountThreshold struct {
	Min decimal.Decimal
}

// UsdThreshold gates on balance x unit price with hysteresis banding.
type UsdThreshold struct {
	MinUSD    decimal.Decimal
	Tolerance decimal.Decimal
}

// Misconfigured means the gate is enabled but cannot be evaluated; Reason
// carries the operator-facing explanation.
type Misconfigured struct {
	Reason string
}

func (Disabled) isMode()        {}
func (AmountThreshold) isMode() {}
func (UsdThreshold) isMode()    {}
func (Misconfigured) isMode()   {}

// UnlockThreshold is the USD value a previously failing wallet must reach to
// start passing: MinUSD x (1 + Tolerance).
func (t UsdThreshold) UnlockThreshold() decimal.Decimal {
	return t.MinUSD.Mul(decimal.NewFromInt(1).Add(t.Tolerance))
}

// LockThreshold is the USD value a previously passing wallet must hold to keep
// passing: MinUSD x (1 - Tolerance). The asymmetry damps flapping around the
// nominal minimum.
func (t UsdThreshold) LockThreshold() decimal.Decimal {
	return t.MinUSD.Mul(decimal.NewFromInt(1).Sub(t.Tolerance))
}

// Mode derives the typed gate mode from the stored record.
func (c *Config) Mode() Mode {
	if c == nil || !c.Enabled {
		return Disabled{}
	}
	if c.Mint == "" {
		return Misconfigured{Reason: ReasonMintNotConfigured}
	}
	switch {
	case c.MinAmount != nil:
		return AmountThreshold{Min: *c.MinAmount}
	case c.MinUSD != nil:
		return UsdThreshold{MinUSD: *c.MinUSD, Tolerance: c.Tolerance}
	default:
		return Misconfigured{Reason: ReasonThresholdsNotConfigured}
	}
}

// Validate enforces the mutual-exclusion invariant at the update boundary.
// Both thresholds set is always a conflict; an enabled gate with neither
// threshold is one too. A disabled gate may carry no thresholds.
func (c *Config) Validate() error {
	if c.MinAmount != nil && c.MinUSD != nil {
		return ErrConfigConflict
	}
	if c.Enabled && c.MinAmount == nil && c.MinUSD == nil {
		return ErrConfigConflict
	}
	return nil
}

// State is the per-wallet hysteresis memory. Created lazily on the first
// USD-mode evaluation, overwritten after every one, never deleted.
type State struct {
	Identity     string
	LastStatus   bool
	LastUSDValue decimal.Decimal
	UpdatedAt    time.Time
}

// Decision reason strings. Operators rely on these to tell misconfiguration
// apart from a wallet that simply does not qualify.
const (
	ReasonOK                      = "OK"
	ReasonMintNotConfigured       = "Gate mint not configured"
	ReasonThresholdsNotConfigured = "Gate thresholds not configured"
	ReasonInsufficientAmount      = "Insufficient token amount"
	ReasonInsufficientUSD         = "Insufficient USD value"
)

// Decision is the outcome of one gate evaluation. USDValue and PriceUSD are
// only populated in USD mode.
type Decision struct {
	Allowed  bool             `json:"allowed"`
	Reason   string           `json:"reason"`
	Balance  decimal.Decimal  `json:"balance"`
	USDValue *decimal.Decimal `json:"usd_value,omitempty"`
	PriceUSD *decimal.Decimal `json:"price_usd,omitempty"`
}

// Preview is the public, identity-free view of the gate requirements.
// PriceUSD and RequiredTokens are best-effort: nil when the price oracle is
// unavailable.
type Preview struct {
	Enabled        bool             `json:"enabled"`
	Mint           string           `json:"mint,omitempty"`
	MinAmount      *decimal.Decimal `json:"min_amount,omitempty"`
	MinUSD         *decimal.Decimal `json:"min_usd,omitempty"`
	Tolerance      decimal.Decimal  `json:"tolerance"`
	PriceUSD       *decimal.Decimal `json:"price_usd,omitempty"`
	RequiredTokens *decimal.Decimal `json:"required_tokens,omitempty"`
	RequiredUSD    *decimal.Decimal `json:"required_usd,omitempty"`
}
