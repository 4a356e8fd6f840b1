package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/platform/config"
	"github.com/rcdops/chargeback_backend/internal/utils/accounting"
)

var (
	ErrJournalImbalance   = errors.New("generated journal does not balance")
	ErrInvalidJournalMode = errors.New("unknown journal mode")
)

// journalService produces billing output from a period's billable charges.
type journalService struct {
	BaseService
	periodRepo     portsrepo.PeriodRepositoryFacade
	chargeRepo     portsrepo.ChargeRepositoryFacade
	auditRepo      portsrepo.AuditLogRepository
	aggregationSvc portssvc.AggregationSvcFacade
	billing        *config.BillingRuntime
	now            func() time.Time
}

// NewJournalService creates a new JournalService.
func NewJournalService(repos portsrepo.RepositoryProvider, aggregationSvc portssvc.AggregationSvcFacade, billing *config.BillingRuntime) portssvc.JournalSvcFacade {
	return &journalService{
		periodRepo:     repos.PeriodRepository,
		chargeRepo:     repos.ChargeRepository,
		auditRepo:      repos.AuditRepository,
		aggregationSvc: aggregationSvc,
		billing:        billing,
		now:            time.Now,
	}
}

// Ensure journalService implements the portssvc.JournalSvcFacade interface
var _ portssvc.JournalSvcFacade = (*journalService)(nil)

func (s *journalService) GenerateJournal(ctx context.Context, periodName string, mode string, actor string) (*dto.JournalResult, error) {
	if !dto.ValidJournalMode(mode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJournalMode, mode)
	}

	period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
	if err != nil {
		return nil, err
	}

	result := &dto.JournalResult{PeriodName: periodName, Mode: mode}
	var totalDebit, totalCredit decimal.Decimal

	switch mode {
	case dto.JournalModeDetail:
		charges, err := s.chargeRepo.FindChargesForPeriod(ctx, period.PeriodID, portsrepo.ChargeFilter{})
		if err != nil {
			return nil, err
		}
		for i := range charges {
			result.Charges = append(result.Charges, dto.ToChargeResponse(&charges[i]))
			totalDebit = totalDebit.Add(charges[i].BilledCost)
		}
		totalCredit = totalDebit
		result.EntryCount = len(result.Charges)

	case dto.JournalModeSummary:
		aggregates, err := s.aggregationSvc.AggregatePeriod(ctx, periodName, dto.AggregateParams{})
		if err != nil {
			return nil, err
		}
		for _, agg := range aggregates {
			result.Aggregates = append(result.Aggregates, dto.ToAggregateResponse(agg))
			totalDebit = totalDebit.Add(agg.BilledCost)
		}
		totalCredit = totalDebit
		result.EntryCount = len(result.Aggregates)

	case dto.JournalModeGL, dto.JournalModeTemplate:
		entries, err := s.buildGLEntries(ctx, period)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			result.Entries = append(result.Entries, dto.ToJournalEntryResponse(e))
			switch e.Side {
			case domain.EntryDebit:
				totalDebit = totalDebit.Add(e.Amount)
			case domain.EntryCredit:
				totalCredit = totalCredit.Add(e.Amount)
			}
		}
		result.EntryCount = len(result.Entries)
	}

	result.TotalDebit = totalDebit.String()
	result.TotalCredit = totalCredit.String()

	exportLog := domain.JournalExportLog{
		ExportID:   uuid.NewString(),
		PeriodID:   period.PeriodID,
		Mode:       mode,
		EntryCount: result.EntryCount,
		TotalDebit: totalDebit,
		Actor:      actor,
		ExportedAt: s.now().UTC(),
	}
	if err := s.auditRepo.LogJournalExport(ctx, exportLog); err != nil {
		s.LogError(ctx, err, "Failed to write journal export log", slog.String("period", periodName))
	}

	s.LogInfo(ctx, "Journal generated",
		slog.String("period", periodName),
		slog.String("mode", mode),
		slog.Int("entries", result.EntryCount),
		slog.String("total_debit", result.TotalDebit),
		slog.String("actor", actor))
	return result, nil
}

// buildGLEntries produces the balanced debit/credit line set for a period
// and refuses to return anything that fails the balance check.
func (s *journalService) buildGLEntries(ctx context.Context, period *domain.Period) ([]domain.JournalEntry, error) {
	charges, err := s.chargeRepo.FindChargesForPeriod(ctx, period.PeriodID, portsrepo.ChargeFilter{})
	if err != nil {
		return nil, err
	}

	lines := make([]accounting.ChargeLine, 0, len(charges))
	for _, charge := range charges {
		lines = append(lines, accounting.ChargeLine{
			PeriodName:  period.Name,
			SourceName:  charge.SourceName,
			FundOrg:     charge.FundOrg,
			AccountCode: charge.AccountCode,
			Amount:      charge.BilledCost,
		})
	}

	entries := accounting.BuildEntries(lines, s.billing.Accounting)
	if err := accounting.CheckBalance(entries); err != nil {
		s.LogError(ctx, err, "Journal balance check failed", slog.String("period", period.Name))
		return nil, fmt.Errorf("%w: period %s: %v", ErrJournalImbalance, period.Name, err)
	}
	return entries, nil
}

func (s *journalService) ListJournalExports(ctx context.Context, periodName string) ([]domain.JournalExportLog, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
	if err != nil {
		return nil, err
	}
	return s.auditRepo.ListJournalExports(ctx, period.PeriodID)
}
