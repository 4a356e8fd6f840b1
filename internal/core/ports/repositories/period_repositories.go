package repositories

import (
	"context"
	"time"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// PeriodReader defines read operations for billing period data
type PeriodReader interface {
	// FindPeriodByName retrieves a period by its YYYY-MM name.
	FindPeriodByName(ctx context.Context, name string) (*domain.Period, error)

	// FindPeriodByID retrieves a period by its unique identifier.
	FindPeriodByID(ctx context.Context, periodID string) (*domain.Period, error)

	// ListPeriods retrieves all periods ordered by name descending, optionally filtered by status.
	ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.Period, error)

	// GetPeriodStats computes charge counts and cost totals for a period.
	GetPeriodStats(ctx context.Context, periodID string) (*domain.PeriodStats, error)
}

// PeriodWriter defines write operations for billing period data
type PeriodWriter interface {
	// GetOrCreatePeriod returns the period with the given name, creating it
	// in the open state when it does not exist yet.
	GetOrCreatePeriod(ctx context.Context, name string, openedAt time.Time) (*domain.Period, error)

	// ClosePeriod conditionally moves an open period to closed. It returns
	// false when the period was not in the open state.
	ClosePeriod(ctx context.Context, periodID string, closedBy string, closedAt time.Time) (bool, error)

	// ReopenPeriod conditionally moves a closed period back to open. It
	// returns false when the period was not in the closed state.
	ReopenPeriod(ctx context.Context, periodID string, reopenedBy string, reason string, reopenedAt time.Time) (bool, error)

	// FinalizePeriod conditionally moves a closed period to finalized. It
	// returns false when the period was not in the closed state.
	FinalizePeriod(ctx context.Context, periodID string, finalizedBy string, notes string, finalizedAt time.Time) (bool, error)
}

// PeriodRepositoryFacade combines all period-related repository interfaces
type PeriodRepositoryFacade interface {
	PeriodReader
	PeriodWriter
}
