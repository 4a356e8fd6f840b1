package services

import (
	"context"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	"github.com/rcdops/chargeback_backend/internal/dto"
)

// AggregationSvcFacade rolls up billable charges per stakeholder.
type AggregationSvcFacade interface {
	// AggregatePeriod groups billable charges by (stakeholder, project) and
	// sums their costs. Flagged and rejected charges are excluded.
	AggregatePeriod(ctx context.Context, periodName string, params dto.AggregateParams) ([]domain.Aggregate, error)

	// ListCharges lists charges in a period matching the filter.
	ListCharges(ctx context.Context, periodName string, filter dto.AggregateParams, includeFlagged bool) ([]domain.Charge, error)
}
