package services

import (
	"context"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// PeriodReaderSvc defines read operations for billing periods
type PeriodReaderSvc interface {
	// GetPeriod retrieves a period by its YYYY-MM name.
	GetPeriod(ctx context.Context, name string) (*domain.Period, error)

	// ListPeriods retrieves all periods, optionally filtered by status.
	ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.Period, error)

	// GetPeriodStats computes charge counts and cost totals for a period.
	GetPeriodStats(ctx context.Context, name string) (*domain.PeriodStats, error)
}

// PeriodWriterSvc defines lifecycle operations for billing periods
type PeriodWriterSvc interface {
	// OpenPeriod returns the named period, creating it in the open state if
	// needed. Opening an already open period is a no-op.
	OpenPeriod(ctx context.Context, name string, actor string) (*domain.Period, error)

	// ClosePeriod moves an open period to closed.
	ClosePeriod(ctx context.Context, name string, actor string) (*domain.Period, error)

	// ReopenPeriod moves a closed period back to open, recording the reason.
	ReopenPeriod(ctx context.Context, name string, reason string, actor string) (*domain.Period, error)

	// FinalizePeriod permanently finalizes a closed period.
	FinalizePeriod(ctx context.Context, name string, notes string, actor string) (*domain.Period, error)
}

// PeriodSvcFacade combines all period-related service interfaces
type PeriodSvcFacade interface {
	PeriodReaderSvc
	PeriodWriterSvc
}
