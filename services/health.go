package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultHealthInterval = 5 * time.Minute

// HealthMonitor re-checks gateway health on a fixed interval, independent of
// live traffic, so a degraded gateway can come back into rotation without
// waiting for a failed live attempt.
type HealthMonitor struct {
	orchestrator *PaymentOrchestrator
	interval     time.Duration
	logger       *zap.Logger
}

func NewHealthMonitor(orchestrator *PaymentOrchestrator, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthMonitor{
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
	}
}

// Run blocks until the context is cancelled, probing all gateways once per
// tick. Callers start it in its own goroutine.
func (m *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Gateway health monitor started",
		zap.Duration("interval", m.interval),
	)

	// Probe once at startup so the first selection has real data.
	m.orchestrator.PerformHealthCheck(ctx)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Gateway health monitor stopped")
			return
		case <-ticker.C:
			m.orchestrator.PerformHealthCheck(ctx)
		}
	}
}
