package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tokengate/middleware/pkg/gate"
)

const serviceName = "GateService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the gate Service.
// It logs method entry/exit, duration, errors and decision outcomes.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) Evaluate(ctx context.Context, identity string) (decision *gate.Decision, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("Evaluate failed",
				zap.String("service", serviceName),
				zap.String("method", "Evaluate"),
				zap.String("identity", identity),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("Evaluate completed",
			zap.String("service", serviceName),
			zap.String("method", "Evaluate"),
			zap.String("identity", identity),
			zap.Bool("allowed", decision.Allowed),
			zap.String("reason", decision.Reason),
			zap.String("balance", decision.Balance.String()),
			zap.Duration("duration", duration),
		)
	}()

	return ls.svc.Evaluate(ctx, identity)
}

func (ls *logService) Preview(ctx context.Context) (*gate.Preview, error) {
	return ls.svc.Preview(ctx)
}

func (ls *logService) Config(ctx context.Context) (*gate.Config, error) {
	return ls.svc.Config(ctx)
}

func (ls *logService) UpdateConfig(ctx context.Context, cfg *gate.Config) (updated *gate.Config, err error) {
	start := time.Now()

	defer func() {
		duration := time.Since(start)

		if err != nil {
			ls.logger.Error("UpdateConfig failed",
				zap.String("service", serviceName),
				zap.String("method", "UpdateConfig"),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
			return
		}
		ls.logger.Info("UpdateConfig completed",
			zap.String("service", serviceName),
			zap.String("method", "UpdateConfig"),
			zap.Bool("enabled", updated.Enabled),
			zap.String("mint", updated.Mint),
			zap.Duration("duration", duration),
		)
	}()

	return ls.svc.UpdateConfig(ctx, cfg)
}
