package repositories

// RepositoryProvider aggregates all repository facades for injection into
// the service layer.
type RepositoryProvider struct {
	PeriodRepository PeriodRepositoryFacade
	ChargeRepository ChargeRepositoryFacade
	SourceRepository SourceRepository
	AuditRepository  AuditLogRepository
}
