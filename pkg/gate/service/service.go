package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tokengate/middleware/internal/metrics"
	apperrors "github.com/tokengate/middleware/pkg/app/errors"
	"github.com/tokengate/middleware/pkg/gate"
	"github.com/tokengate/middleware/pkg/gate/store"
	"github.com/tokengate/middleware/pkg/price"
)

// BalanceOracle is the narrow balance interface the engine depends on.
//
// An error means the balance is unknown, not zero; the engine surfaces it as a
// transient failure rather than a denial.
type BalanceOracle interface {
	TokenAmount(ctx context.Context, owner, mint string) (decimal.Decimal, error)
}

// PriceOracle resolves USD unit prices for the configured token.
type PriceOracle interface {
	UsdPrice(ctx context.Context, src price.Source) (decimal.Decimal, error)
}

// Service defines the gate decision engine.
type Service interface {
	// Evaluate produces the allow/deny verdict for one wallet.
	Evaluate(ctx context.Context, identity string) (*gate.Decision, error)
	// Preview returns the public gate requirements without any wallet check.
	Preview(ctx context.Context) (*gate.Preview, error)
	// Config returns the current gate configuration.
	Config(ctx context.Context) (*gate.Config, error)
	// UpdateConfig validates and stores a new gate configuration.
	UpdateConfig(ctx context.Context, cfg *gate.Config) (*gate.Config, error)
}

type gateService struct {
	configs  store.ConfigStore
	states   store.StateStore
	balances BalanceOracle
	prices   PriceOracle
	logger   *zap.Logger
}

// NewService creates the gate decision engine
func NewService(
	configs store.ConfigStore,
	states store.StateStore,
	balances BalanceOracle,
	prices PriceOracle,
	logger *zap.Logger,
) Service {
	return &gateService{
		configs:  configs,
		states:   states,
		balances: balances,
		prices:   prices,
		logger:   logger,
	}
}

func (s *gateService) Evaluate(ctx context.Context, identity string) (*gate.Decision, error) {
	start := time.Now()

	cfg, err := s.configs.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate config: %w", err)
	}

	mode := cfg.Mode()
	defer func() {
		metrics.GateEvaluationDuration.WithLabelValues(modeLabel(mode)).Observe(time.Since(start).Seconds())
	}()

	switch m := mode.(type) {
	case gate.Disabled:
		return s.record(mode, &gate.Decision{
			Allowed: true,
			Reason:  gate.ReasonOK,
			Balance: decimal.Zero,
		}), nil

	case gate.Misconfigured:
		// An operator problem, not a wallet problem: deny with a reason that
		// distinguishes it from "does not qualify".
		return s.record(mode, &gate.Decision{
			Allowed: false,
			Reason:  m.Reason,
			Balance: decimal.Zero,
		}), nil
	}

	balance, err := s.balances.TokenAmount(ctx, identity, cfg.Mint)
	if err != nil {
		return nil, apperrors.DependencyFailureError(err, "token balance unavailable")
	}

	switch m := mode.(type) {
	case gate.AmountThreshold:
		// Stateless compare every time; no hysteresis in amount mode.
		decision := &gate.Decision{
			Allowed: balance.GreaterThanOrEqual(m.Min),
			Reason:  gate.ReasonOK,
			Balance: balance,
		}
		if !decision.Allowed {
			decision.Reason = gate.ReasonInsufficientAmount
		}
		return s.record(mode, decision), nil

	case gate.UsdThreshold:
		return s.evaluateUSD(ctx, identity, cfg, m, balance)

	default:
		return nil, fmt.Errorf("unhandled gate mode %T", mode)
	}
}

// evaluateUSD applies the hysteresis banding: a previously passing wallet only
// needs the lower lock threshold, a previously failing (or unknown) wallet
// must clear the higher unlock threshold.
func (s *gateService) evaluateUSD(
	ctx context.Context,
	identity string,
	cfg *gate.Config,
	threshold gate.UsdThreshold,
	balance decimal.Decimal,
) (*gate.Decision, error) {
	unitPrice, err := s.prices.UsdPrice(ctx, priceSource(cfg))
	if err != nil {
		return nil, apperrors.DependencyFailureError(err, "token price unavailable")
	}

	usdValue := balance.Mul(unitPrice)

	lastStatus := false
	if prev, err := s.states.GetState(ctx, identity); err == nil {
		lastStatus = prev.LastStatus
	} else if !errors.Is(err, store.ErrStateNotFound) {
		return nil, fmt.Errorf("failed to load gate state: %w", err)
	}

	var allowed bool
	if lastStatus {
		allowed = usdValue.GreaterThanOrEqual(threshold.LockThreshold())
	} else {
		allowed = usdValue.GreaterThanOrEqual(threshold.UnlockThreshold())
	}

	// Last write wins on concurrent evaluations for the same wallet; the
	// hysteresis memory is a damping signal, not a strict consistency target.
	if err := s.states.UpsertState(ctx, &gate.State{
		Identity:     identity,
		LastStatus:   allowed,
		LastUSDValue: usdValue,
		UpdatedAt:    time.Now(),
	}); err != nil {
		s.logger.Warn("failed to persist gate state",
			zap.String("identity", identity),
			zap.Error(err))
	}

	decision := &gate.Decision{
		Allowed:  allowed,
		Reason:   gate.ReasonOK,
		Balance:  balance,
		USDValue: &usdValue,
		PriceUSD: &unitPrice,
	}
	if !allowed {
		decision.Reason = gate.ReasonInsufficientUSD
	}
	return s.record(threshold, decision), nil
}

func (s *gateService) Preview(ctx context.Context) (*gate.Preview, error) {
	cfg, err := s.configs.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate config: %w", err)
	}

	preview := &gate.Preview{
		Enabled:   cfg.Enabled,
		Mint:      cfg.Mint,
		MinAmount: cfg.MinAmount,
		MinUSD:    cfg.MinUSD,
		Tolerance: cfg.Tolerance,
	}

	switch {
	case cfg.MinAmount != nil:
		preview.RequiredTokens = cfg.MinAmount
	case cfg.MinUSD != nil:
		preview.RequiredUSD = cfg.MinUSD
		// Best effort only: the preview is informational and must not fail
		// when the price oracle is down.
		unitPrice, err := s.prices.UsdPrice(ctx, priceSource(cfg))
		if err != nil {
			s.logger.Debug("preview price unavailable", zap.Error(err))
			break
		}
		required := cfg.MinUSD.Div(unitPrice)
		preview.PriceUSD = &unitPrice
		preview.RequiredTokens = &required
	}
	return preview, nil
}

func (s *gateService) Config(ctx context.Context) (*gate.Config, error) {
	return s.configs.GetConfig(ctx)
}

func (s *gateService) UpdateConfig(ctx context.Context, cfg *gate.Config) (*gate.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ConflictError(err, "exactly one of min_amount and min_usd must be set")
	}
	if err := s.configs.SaveConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to save gate config: %w", err)
	}
	return s.configs.GetConfig(ctx)
}

// priceSource maps the stored configuration to a price lookup, falling back
// to the gated mint as token address when none is configured.
func priceSource(cfg *gate.Config) price.Source {
	if cfg.PriceMode == gate.PriceModeOnchain {
		tokenAddress := cfg.TokenAddress
		if tokenAddress == "" {
			tokenAddress = cfg.Mint
		}
		return price.Source{
			Mode:         price.ModeOnchain,
			Platform:     cfg.Platform,
			TokenAddress: tokenAddress,
		}
	}
	return price.Source{
		Mode:   price.ModeCoinID,
		CoinID: cfg.CoinID,
	}
}

func (s *gateService) record(mode gate.Mode, decision *gate.Decision) *gate.Decision {
	result := "deny"
	if decision.Allowed {
		result = "allow"
	}
	metrics.GateEvaluationsTotal.WithLabelValues(modeLabel(mode), result).Inc()
	return decision
}

func modeLabel(mode gate.Mode) string {
	switch mode.(type) {
	case gate.Disabled:
		return "disabled"
	case gate.AmountThreshold:
		return "amount"
	case gate.UsdThreshold:
		return "usd"
	case gate.Misconfigured:
		return "misconfigured"
	default:
		return "unknown"
	}
}
