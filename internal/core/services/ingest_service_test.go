package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	"github.com/rcdops/chargeback_backend/internal/core/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/platform/config"
)

const ingestHeader = "BillingPeriodStart,ChargePeriodStart,ListCost,BilledCost,ResourceId,ResourceName,ServiceName,Tags\n"

func testBilling(t *testing.T) *config.BillingRuntime {
	t.Helper()
	rt, err := config.BillingConfig{
		Journal: config.JournalConfig{DefaultAccount: "7000"},
	}.Compile()
	require.NoError(t, err)
	return rt
}

func taggedRow(period, resource, tags string) string {
	return period + "-01," + period + "-01,12.00,10.00," + resource + ",vm,Compute,\"" + strings.ReplaceAll(tags, `"`, `""`) + "\"\n"
}

func TestIngestCSV_UpsertsAndFlags(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	period := openPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, period.PeriodID, mock.MatchedBy(func(charges []domain.Charge) bool {
		if len(charges) != 2 {
			return false
		}
		// One clean charge, one with no attribution at all.
		return !charges[0].Flagged && charges[1].Flagged && charges[1].FlagReason == domain.FlagMissingPIEmail
	})).Return(domain.UpsertCounts{Inserted: 2}, nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.MatchedBy(func(l domain.ImportLog) bool {
		return l.SourceName == "aws" && l.Inserted == 2 && l.Flagged == 1 && !l.DryRun
	})).Return(nil)

	csv := ingestHeader +
		taggedRow("2025-06", "res-1", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"BIOLOGY-GRANTS-2025"}`) +
		taggedRow("2025-06", "res-2", `{}`)

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv), dto.IngestParams{SourceName: "aws", Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Flagged)
	assert.Empty(t, result.LineErrors)
	chargeRepo.AssertExpectations(t)
	auditRepo.AssertExpectations(t)
}

func TestIngestCSV_ExpectedPeriodMismatchFlags(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	period := openPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, period.PeriodID, mock.MatchedBy(func(charges []domain.Charge) bool {
		return len(charges) == 1 && charges[0].Flagged && charges[0].FlagReason == domain.FlagPeriodMismatch
	})).Return(domain.UpsertCounts{Inserted: 1}, nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.Anything).Return(nil)

	csv := ingestHeader + taggedRow("2025-06", "res-1", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"CHEM-OPS"}`)

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv),
		dto.IngestParams{SourceName: "aws", ExpectedPeriod: "2025-07", Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Flagged)
	chargeRepo.AssertExpectations(t)
}

func TestIngestCSV_ArrearsUsageNotFlagged(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	period := openPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, period.PeriodID, mock.MatchedBy(func(charges []domain.Charge) bool {
		return len(charges) == 1 && !charges[0].Flagged
	})).Return(domain.UpsertCounts{Inserted: 1}, nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.Anything).Return(nil)

	// May usage billed in the June period is normal and stays clean.
	csv := ingestHeader +
		"2025-06-01,2025-05-20,12.00,10.00,res-1,vm,Compute,\"{\"\"pi_email\"\":\"\"pi@uni.edu\"\",\"\"project\"\":\"\"P-100\"\",\"\"fund_org\"\":\"\"CHEM-OPS\"\"}\"\n"

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv),
		dto.IngestParams{SourceName: "aws", ExpectedPeriod: "2025-06", Actor: "alice"})
	require.NoError(t, err)
	assert.Zero(t, result.Flagged)
	chargeRepo.AssertExpectations(t)
}

func TestIngestCSV_MalformedExpectedPeriodFails(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	_, err := svc.IngestCSV(context.Background(), strings.NewReader(ingestHeader),
		dto.IngestParams{SourceName: "aws", ExpectedPeriod: "2025-13"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	periodRepo.AssertNotCalled(t, "FindPeriodByName", mock.Anything, mock.Anything)
}

func TestIngestCSV_CreatesMissingPeriod(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	created := openPeriod("2025-07")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-07").Return(nil, apperrors.ErrNotFound)
	periodRepo.On("GetOrCreatePeriod", mock.Anything, "2025-07", mock.AnythingOfType("time.Time")).Return(created, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, created.PeriodID, mock.Anything).Return(domain.UpsertCounts{Inserted: 1}, nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.Anything).Return(nil)

	csv := ingestHeader + taggedRow("2025-07", "res-1", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"CHEM-OPS"}`)

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv), dto.IngestParams{SourceName: "aws", Actor: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	periodRepo.AssertExpectations(t)
}

func TestIngestCSV_FinalizedPeriodRejectsWholeBatch(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(finalizedPeriod("2025-06"), nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.Anything).Return(nil)

	csv := ingestHeader + taggedRow("2025-06", "res-1", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"CHEM-OPS"}`)

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv), dto.IngestParams{SourceName: "aws", Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, result.Periods, 1)
	assert.True(t, result.Periods[0].Rejected)
	assert.Contains(t, result.Periods[0].RejectReason, "finalized")
	assert.Zero(t, result.Inserted)
	chargeRepo.AssertNotCalled(t, "UpsertCharges", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestCSV_DryRunSkipsWrites(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(openPeriod("2025-06"), nil)
	auditRepo.On("LogImport", mock.Anything, mock.MatchedBy(func(l domain.ImportLog) bool {
		return l.DryRun
	})).Return(nil)

	csv := ingestHeader + taggedRow("2025-06", "res-1", `{}`)

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv), dto.IngestParams{SourceName: "aws", DryRun: true, Actor: "alice"})
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Flagged)
	assert.Zero(t, result.Inserted)
	chargeRepo.AssertNotCalled(t, "UpsertCharges", mock.Anything, mock.Anything, mock.Anything)
	sourceRepo.AssertNotCalled(t, "UpdateSourceSync", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestCSV_BadLinesReportedGoodLinesKept(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	period := openPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, period.PeriodID, mock.MatchedBy(func(charges []domain.Charge) bool {
		return len(charges) == 1
	})).Return(domain.UpsertCounts{Inserted: 1}, nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.MatchedBy(func(l domain.ImportLog) bool {
		return l.ErrorCount == 1 && l.RowCount == 2
	})).Return(nil)

	csv := ingestHeader +
		taggedRow("2025-06", "res-1", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"CHEM-OPS"}`) +
		"2025-06-01,2025-06-01,12.00,not-a-number,res-2,vm,Compute,\n"

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv), dto.IngestParams{SourceName: "aws", Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, result.LineErrors, 1)
	assert.Equal(t, 3, result.LineErrors[0].Line)
	assert.Equal(t, 1, result.Inserted)
}

func TestIngestCSV_SplitsBatchesAcrossPeriods(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	june := openPeriod("2025-06")
	july := openPeriod("2025-07")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(june, nil)
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-07").Return(july, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, june.PeriodID, mock.Anything).Return(domain.UpsertCounts{Inserted: 1}, nil)
	chargeRepo.On("UpsertCharges", mock.Anything, july.PeriodID, mock.Anything).Return(domain.UpsertCounts{Inserted: 1}, nil)
	sourceRepo.On("GetOrCreateSource", mock.Anything, "aws", "").Return(&domain.Source{Name: "aws"}, nil)
	sourceRepo.On("UpdateSourceSync", mock.Anything, "aws", "alice", mock.AnythingOfType("time.Time")).Return(nil)
	auditRepo.On("LogImport", mock.Anything, mock.Anything).Return(nil)

	csv := ingestHeader +
		taggedRow("2025-06", "res-1", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"CHEM-OPS"}`) +
		taggedRow("2025-07", "res-2", `{"pi_email":"pi@uni.edu","project":"P-100","fund_org":"CHEM-OPS"}`)

	result, err := svc.IngestCSV(context.Background(), strings.NewReader(csv), dto.IngestParams{SourceName: "aws", Actor: "alice"})
	require.NoError(t, err)
	require.Len(t, result.Periods, 2)
	assert.Equal(t, "2025-06", result.Periods[0].PeriodName)
	assert.Equal(t, "2025-07", result.Periods[1].PeriodName)
	assert.Equal(t, 2, result.Inserted)
	chargeRepo.AssertExpectations(t)
}

func TestIngestCSV_UnusableStreamFails(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	sourceRepo := new(MockSourceRepository)
	auditRepo := new(MockAuditRepository)
	svc := services.NewIngestService(newRepoProvider(periodRepo, chargeRepo, sourceRepo, auditRepo), testBilling(t))

	_, err := svc.IngestCSV(context.Background(), strings.NewReader("ResourceId,BilledCost\nres-1,5\n"), dto.IngestParams{SourceName: "aws"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
