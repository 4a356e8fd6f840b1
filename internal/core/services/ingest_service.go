package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/platform/config"
	"github.com/rcdops/chargeback_backend/internal/utils/flagging"
	"github.com/rcdops/chargeback_backend/internal/utils/focus"
)

// ingestService turns FOCUS exports into reviewed, upserted charges.
type ingestService struct {
	BaseService
	periodRepo portsrepo.PeriodRepositoryFacade
	chargeRepo portsrepo.ChargeRepositoryFacade
	sourceRepo portsrepo.SourceRepository
	auditRepo  portsrepo.AuditLogRepository
	billing    *config.BillingRuntime
	now        func() time.Time
}

// NewIngestService creates a new IngestService.
func NewIngestService(repos portsrepo.RepositoryProvider, billing *config.BillingRuntime) portssvc.IngestSvcFacade {
	return &ingestService{
		periodRepo: repos.PeriodRepository,
		chargeRepo: repos.ChargeRepository,
		sourceRepo: repos.SourceRepository,
		auditRepo:  repos.AuditRepository,
		billing:    billing,
		now:        time.Now,
	}
}

// Ensure ingestService implements the portssvc.IngestSvcFacade interface
var _ portssvc.IngestSvcFacade = (*ingestService)(nil)

func (s *ingestService) IngestCSV(ctx context.Context, r io.Reader, params dto.IngestParams) (*dto.IngestResult, error) {
	if params.ExpectedPeriod != "" && !ValidPeriodName(params.ExpectedPeriod) {
		return nil, fmt.Errorf("%w: expected period must be YYYY-MM, got %q", apperrors.ErrValidation, params.ExpectedPeriod)
	}

	rows, parseErrs, err := focus.Parse(r, s.billing.TagMapping)
	if err != nil {
		// The stream itself is unusable, e.g. a required column is missing.
		return nil, fmt.Errorf("%w: failed to parse input for source %s: %s", apperrors.ErrValidation, params.SourceName, err.Error())
	}

	result := &dto.IngestResult{
		SourceName: params.SourceName,
		DryRun:     params.DryRun,
		RowCount:   len(rows) + len(parseErrs),
	}
	for _, pe := range parseErrs {
		result.LineErrors = append(result.LineErrors, dto.LineError{Line: pe.Line, Field: pe.Field, Error: pe.Err.Error()})
	}

	byPeriod := map[string][]focus.Row{}
	for _, row := range rows {
		byPeriod[row.PeriodName] = append(byPeriod[row.PeriodName], row)
	}
	periodNames := make([]string, 0, len(byPeriod))
	for name := range byPeriod {
		periodNames = append(periodNames, name)
	}
	sort.Strings(periodNames)

	var touched []string
	for _, periodName := range periodNames {
		periodResult := s.ingestPeriodBatch(ctx, periodName, byPeriod[periodName], params)
		result.Periods = append(result.Periods, periodResult)
		result.Inserted += periodResult.Inserted
		result.Updated += periodResult.Updated
		result.Skipped += periodResult.Skipped
		result.Flagged += periodResult.Flagged
		if periodResult.PeriodID != "" && !periodResult.Rejected {
			touched = append(touched, periodResult.PeriodID)
		}
	}

	now := s.now().UTC()
	if !params.DryRun {
		displayName := s.billing.Sources[params.SourceName].DisplayName
		if _, err := s.sourceRepo.GetOrCreateSource(ctx, params.SourceName, displayName); err != nil {
			s.LogError(ctx, err, "Failed to record source", slog.String("source", params.SourceName))
		} else if err := s.sourceRepo.UpdateSourceSync(ctx, params.SourceName, params.Actor, now); err != nil {
			s.LogError(ctx, err, "Failed to update source sync", slog.String("source", params.SourceName))
		}
	}

	logEntry := domain.ImportLog{
		ImportID:   uuid.NewString(),
		SourceName: params.SourceName,
		FileName:   params.FileName,
		PeriodIDs:  touched,
		RowCount:   result.RowCount,
		Inserted:   result.Inserted,
		Updated:    result.Updated,
		Skipped:    result.Skipped,
		Flagged:    result.Flagged,
		ErrorCount: len(result.LineErrors),
		DryRun:     params.DryRun,
		Actor:      params.Actor,
		ImportedAt: now,
	}
	if err := s.auditRepo.LogImport(ctx, logEntry); err != nil {
		s.LogError(ctx, err, "Failed to write import log", slog.String("source", params.SourceName))
	}

	s.LogInfo(ctx, "Import completed",
		slog.String("source", params.SourceName),
		slog.Bool("dry_run", params.DryRun),
		slog.Int("rows", result.RowCount),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("flagged", result.Flagged),
		slog.Int("errors", len(result.LineErrors)),
	)
	return result, nil
}

// ingestPeriodBatch upserts the rows that belong to one billing period. The
// whole batch is refused when the period is finalized.
func (s *ingestService) ingestPeriodBatch(ctx context.Context, periodName string, rows []focus.Row, params dto.IngestParams) dto.PeriodIngestResult {
	periodResult := dto.PeriodIngestResult{PeriodName: periodName}

	period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
	if err != nil && !notFound(err) {
		periodResult.Rejected = true
		periodResult.RejectReason = err.Error()
		return periodResult
	}
	if period == nil {
		if params.DryRun {
			// Nothing to create during a dry run; the batch is evaluated
			// against a would-be open period.
		} else {
			period, err = s.periodRepo.GetOrCreatePeriod(ctx, periodName, s.now().UTC())
			if err != nil {
				periodResult.Rejected = true
				periodResult.RejectReason = err.Error()
				return periodResult
			}
		}
	}
	if period != nil {
		periodResult.PeriodID = period.PeriodID
		if !period.IsMutable() {
			periodResult.Rejected = true
			periodResult.RejectReason = fmt.Sprintf("period %s is finalized", periodName)
			s.LogWarn(ctx, "Refusing import into finalized period",
				slog.String("period", periodName), slog.String("source", params.SourceName))
			return periodResult
		}
	}

	now := s.now().UTC()
	charges := make([]domain.Charge, 0, len(rows))
	for _, row := range rows {
		charge := s.buildCharge(row, params, now)
		if period != nil {
			charge.PeriodID = period.PeriodID
		}
		if charge.Flagged {
			periodResult.Flagged++
		}
		charges = append(charges, charge)
	}

	if params.DryRun || period == nil {
		return periodResult
	}

	counts, err := s.chargeRepo.UpsertCharges(ctx, period.PeriodID, charges)
	if err != nil {
		periodResult.Rejected = true
		periodResult.RejectReason = err.Error()
		s.LogError(ctx, err, "Failed to upsert charges", slog.String("period", periodName))
		return periodResult
	}
	periodResult.Inserted = counts.Inserted
	periodResult.Updated = counts.Updated
	periodResult.Skipped = counts.Skipped
	return periodResult
}

func (s *ingestService) buildCharge(row focus.Row, params dto.IngestParams, now time.Time) domain.Charge {
	verdict := flagging.Evaluate(flagging.Input{
		ExpectedPeriod:   params.ExpectedPeriod,
		PeriodName:       row.PeriodName,
		StakeholderEmail: row.StakeholderEmail,
		ProjectID:        row.ProjectID,
		FundOrg:          row.FundOrg,
		ResourceName:     row.ResourceName,
		ServiceName:      row.ServiceName,
	}, s.billing.Flagging)

	return domain.Charge{
		ChargeID:          uuid.NewString(),
		SourceName:        params.SourceName,
		ResourceKey:       row.ResourceKey,
		ResourceID:        row.ResourceID,
		ResourceName:      row.ResourceName,
		ServiceName:       row.ServiceName,
		ChargePeriodStart: row.ChargePeriodStart,
		ChargePeriodEnd:   row.ChargePeriodEnd,
		ListCost:          row.ListCost,
		ContractedCost:    row.ContractedCost,
		BilledCost:        row.BilledCost,
		EffectiveCost:     row.EffectiveCost,
		StakeholderEmail:  row.StakeholderEmail,
		ProjectID:         row.ProjectID,
		FundOrg:           row.FundOrg,
		AccountCode:       row.AccountCode,
		Reference1:        row.Reference1,
		Reference2:        row.Reference2,
		RawTags:           row.RawTags,
		Flagged:           verdict.Flagged,
		FlagReason:        verdict.Reason,
		FlagDetail:        verdict.Detail,
		ImportedAt:        now,
	}
}

func (s *ingestService) ListImports(ctx context.Context, sourceName string, limit int) ([]domain.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.auditRepo.ListImports(ctx, sourceName, limit)
}

func (s *ingestService) ListSources(ctx context.Context) ([]domain.Source, error) {
	return s.sourceRepo.ListSources(ctx)
}
