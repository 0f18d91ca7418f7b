package ports

import "context"

// HealthChecker checks external dependency health.
//
//go:generate mockgen -destination=mocks/mock_health.go -package=mocks tuition-ledger/internal/core/ports HealthChecker
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}
