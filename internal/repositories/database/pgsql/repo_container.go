package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	periodRepo := newPgxPeriodRepository(dbPool)
	chargeRepo := newPgxChargeRepository(dbPool)
	sourceRepo := newPgxSourceRepository(dbPool)
	auditRepo := newPgxAuditRepository(dbPool)

	return portsrepo.RepositoryProvider{
		PeriodRepository: periodRepo,
		ChargeRepository: chargeRepo,
		SourceRepository: sourceRepo,
		AuditRepository:  auditRepo,
	}
}
