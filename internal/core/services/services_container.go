package services

import (
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(billing *config.BillingRuntime, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	container.Period = NewPeriodService(repos.PeriodRepository)
	container.Ingest = NewIngestService(repos, billing)
	container.Review = NewReviewService(repos.PeriodRepository, repos.ChargeRepository)
	container.Aggregation = NewAggregationService(repos.PeriodRepository, repos.ChargeRepository)
	container.Journal = NewJournalService(repos, container.Aggregation, billing)

	return container
}

// Helper to check interface implementations at compile time
var (
	_ portssvc.PeriodSvcFacade      = (*periodService)(nil)
	_ portssvc.IngestSvcFacade      = (*ingestService)(nil)
	_ portssvc.ReviewSvcFacade      = (*reviewService)(nil)
	_ portssvc.AggregationSvcFacade = (*aggregationService)(nil)
	_ portssvc.JournalSvcFacade     = (*journalService)(nil)
)
