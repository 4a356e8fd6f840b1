package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
)

// aggregationService rolls billable charges up per stakeholder and project.
type aggregationService struct {
	BaseService
	periodRepo portsrepo.PeriodRepositoryFacade
	chargeRepo portsrepo.ChargeRepositoryFacade
}

// NewAggregationService creates a new AggregationService.
func NewAggregationService(periodRepo portsrepo.PeriodRepositoryFacade, chargeRepo portsrepo.ChargeRepositoryFacade) portssvc.AggregationSvcFacade {
	return &aggregationService{
		periodRepo: periodRepo,
		chargeRepo: chargeRepo,
	}
}

// Ensure aggregationService implements the portssvc.AggregationSvcFacade interface
var _ portssvc.AggregationSvcFacade = (*aggregationService)(nil)

type bucketKey struct {
	stakeholder string
	project     string
}

func (s *aggregationService) AggregatePeriod(ctx context.Context, periodName string, params dto.AggregateParams) ([]domain.Aggregate, error) {
	charges, err := s.ListCharges(ctx, periodName, params, false)
	if err != nil {
		return nil, err
	}

	period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
	if err != nil {
		return nil, err
	}

	buckets := map[bucketKey]*domain.Aggregate{}
	sourceSets := map[bucketKey]map[string]bool{}
	for _, charge := range charges {
		key := bucketKey{stakeholder: charge.StakeholderEmail, project: charge.ProjectID}
		agg, ok := buckets[key]
		if !ok {
			agg = &domain.Aggregate{
				PeriodID:         period.PeriodID,
				StakeholderEmail: charge.StakeholderEmail,
				ProjectID:        charge.ProjectID,
				FundOrg:          charge.FundOrg,
				ServiceBreakdown: map[string]decimal.Decimal{},
			}
			buckets[key] = agg
			sourceSets[key] = map[string]bool{}
		}

		agg.ChargeCount++
		agg.BilledCost = agg.BilledCost.Add(charge.BilledCost)

		// When no list cost was reported, the billed cost stands in for it
		// so discounts stay at zero instead of going negative.
		listCost := charge.BilledCost
		if charge.ListCost.Valid {
			listCost = charge.ListCost.Decimal
		}
		agg.ListCost = agg.ListCost.Add(listCost)
		agg.DiscountAmount = agg.DiscountAmount.Add(listCost.Sub(charge.BilledCost))

		effective := charge.BilledCost
		if charge.EffectiveCost.Valid {
			effective = charge.EffectiveCost.Decimal
		}
		agg.EffectiveCost = agg.EffectiveCost.Add(effective)

		if charge.ServiceName != "" {
			agg.ServiceBreakdown[charge.ServiceName] = agg.ServiceBreakdown[charge.ServiceName].Add(charge.BilledCost)
		}
		sourceSets[key][charge.SourceName] = true
	}

	aggregates := make([]domain.Aggregate, 0, len(buckets))
	for key, agg := range buckets {
		for src := range sourceSets[key] {
			agg.Sources = append(agg.Sources, src)
		}
		sort.Strings(agg.Sources)
		if agg.ListCost.IsPositive() {
			agg.DiscountPercent = agg.DiscountAmount.Div(agg.ListCost).Mul(decimal.NewFromInt(100))
		}
		aggregates = append(aggregates, *agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		if aggregates[i].StakeholderEmail != aggregates[j].StakeholderEmail {
			return aggregates[i].StakeholderEmail < aggregates[j].StakeholderEmail
		}
		return aggregates[i].ProjectID < aggregates[j].ProjectID
	})
	return aggregates, nil
}

func (s *aggregationService) ListCharges(ctx context.Context, periodName string, filter dto.AggregateParams, includeFlagged bool) ([]domain.Charge, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
	if err != nil {
		return nil, err
	}
	return s.chargeRepo.FindChargesForPeriod(ctx, period.PeriodID, portsrepo.ChargeFilter{
		SourceName:       filter.SourceName,
		StakeholderEmail: filter.StakeholderEmail,
		ProjectID:        filter.ProjectID,
		IncludeFlagged:   includeFlagged,
	})
}
