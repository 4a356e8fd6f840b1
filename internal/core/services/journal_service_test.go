package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
	"github.com/rcdops/chargeback_backend/internal/core/services"
	"github.com/rcdops/chargeback_backend/internal/dto"
	"github.com/rcdops/chargeback_backend/internal/platform/config"
)

func glBilling(t *testing.T) *config.BillingRuntime {
	t.Helper()
	rt, err := config.BillingConfig{
		Journal: config.JournalConfig{
			FundOrgRegex:      `^(?P<orgn>[^-]+)-(?P<fund>.+)$`,
			DefaultAccount:    "7000",
			DebitDescription:  "Research computing {source} {period}",
			CreditDescription: "Recovery {source} {period}",
		},
		Sources: map[string]config.SourceConfig{
			"aws": {AccountCode: "7100", CreditFundOrg: "ITS-RECOVERY"},
		},
	}.Compile()
	require.NoError(t, err)
	return rt
}

func newJournalService(t *testing.T, periodRepo *MockPeriodRepository, chargeRepo *MockChargeRepository, auditRepo *MockAuditRepository) portssvc.JournalSvcFacade {
	t.Helper()
	repos := newRepoProvider(periodRepo, chargeRepo, new(MockSourceRepository), auditRepo)
	aggSvc := services.NewAggregationService(periodRepo, chargeRepo)
	return services.NewJournalService(repos, aggSvc, glBilling(t))
}

func TestGenerateJournal_GLModeBalances(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	auditRepo := new(MockAuditRepository)
	svc := newJournalService(t, periodRepo, chargeRepo, auditRepo)

	period := closedPeriod("2025-06")
	charges := []domain.Charge{
		{SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", BilledCost: dec("100.00")},
		{SourceName: "aws", FundOrg: "CHEM-OPS-2025", BilledCost: dec("50.00")},
		{SourceName: "onprem", FundOrg: "BIOLOGY-GRANTS-2025", BilledCost: dec("25.00")},
	}
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("FindChargesForPeriod", mock.Anything, period.PeriodID, mock.Anything).Return(charges, nil)
	auditRepo.On("LogJournalExport", mock.Anything, mock.MatchedBy(func(l domain.JournalExportLog) bool {
		return l.Mode == dto.JournalModeGL && l.EntryCount == 5 && l.Actor == "alice"
	})).Return(nil)

	result, err := svc.GenerateJournal(context.Background(), "2025-06", dto.JournalModeGL, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, result.EntryCount)
	assert.Equal(t, result.TotalDebit, result.TotalCredit)
	assert.Equal(t, "175", result.TotalDebit)

	// Debits come first, sorted by source then fund/org.
	assert.Equal(t, "debit", result.Entries[0].Side)
	assert.Equal(t, "BIOLOGY", result.Entries[0].Orgn)
	assert.Equal(t, "GRANTS-2025", result.Entries[0].Fund)

	// The aws credit lands on its configured recovery fund/org; the onprem
	// credit is still emitted with an empty one so the journal balances.
	credits := result.Entries[3:]
	assert.Equal(t, "credit", credits[0].Side)
	assert.Equal(t, "ITS-RECOVERY", credits[0].FundOrg)
	assert.Equal(t, "credit", credits[1].Side)
	assert.Empty(t, credits[1].FundOrg)
	auditRepo.AssertExpectations(t)
}

func TestGenerateJournal_DetailMode(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	auditRepo := new(MockAuditRepository)
	svc := newJournalService(t, periodRepo, chargeRepo, auditRepo)

	period := closedPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("FindChargesForPeriod", mock.Anything, period.PeriodID, mock.Anything).Return([]domain.Charge{
		{SourceName: "aws", BilledCost: dec("10.00")},
		{SourceName: "aws", BilledCost: dec("15.00")},
	}, nil)
	auditRepo.On("LogJournalExport", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.GenerateJournal(context.Background(), "2025-06", dto.JournalModeDetail, "alice")
	require.NoError(t, err)
	assert.Len(t, result.Charges, 2)
	assert.Empty(t, result.Entries)
	assert.Equal(t, "25", result.TotalDebit)
}

func TestGenerateJournal_SummaryMode(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	auditRepo := new(MockAuditRepository)
	svc := newJournalService(t, periodRepo, chargeRepo, auditRepo)

	period := closedPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("FindChargesForPeriod", mock.Anything, period.PeriodID, mock.Anything).Return([]domain.Charge{
		billableCharge("pi@uni.edu", "P-1", "aws", "Compute", "40.00"),
		billableCharge("pi@uni.edu", "P-2", "aws", "Compute", "60.00"),
	}, nil)
	auditRepo.On("LogJournalExport", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.GenerateJournal(context.Background(), "2025-06", dto.JournalModeSummary, "alice")
	require.NoError(t, err)
	assert.Len(t, result.Aggregates, 2)
	assert.Equal(t, "100", result.TotalDebit)
}

func TestGenerateJournal_TemplateModeSharesGLEntries(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	auditRepo := new(MockAuditRepository)
	svc := newJournalService(t, periodRepo, chargeRepo, auditRepo)

	period := closedPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	chargeRepo.On("FindChargesForPeriod", mock.Anything, period.PeriodID, mock.Anything).Return([]domain.Charge{
		{SourceName: "aws", FundOrg: "BIOLOGY-GRANTS-2025", BilledCost: dec("10.00")},
	}, nil)
	auditRepo.On("LogJournalExport", mock.Anything, mock.Anything).Return(nil)

	result, err := svc.GenerateJournal(context.Background(), "2025-06", dto.JournalModeTemplate, "alice")
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, result.TotalDebit, result.TotalCredit)
}

func TestGenerateJournal_UnknownModeRejected(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	auditRepo := new(MockAuditRepository)
	svc := newJournalService(t, periodRepo, chargeRepo, auditRepo)

	_, err := svc.GenerateJournal(context.Background(), "2025-06", "yaml", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrInvalidJournalMode)
	periodRepo.AssertNotCalled(t, "FindPeriodByName", mock.Anything, mock.Anything)
}

func TestListJournalExports(t *testing.T) {
	periodRepo := new(MockPeriodRepository)
	chargeRepo := new(MockChargeRepository)
	auditRepo := new(MockAuditRepository)
	svc := newJournalService(t, periodRepo, chargeRepo, auditRepo)

	period := closedPeriod("2025-06")
	periodRepo.On("FindPeriodByName", mock.Anything, "2025-06").Return(period, nil)
	auditRepo.On("ListJournalExports", mock.Anything, period.PeriodID).Return([]domain.JournalExportLog{
		{Mode: dto.JournalModeGL, EntryCount: 4},
	}, nil)

	exports, err := svc.ListJournalExports(context.Background(), "2025-06")
	require.NoError(t, err)
	assert.Len(t, exports, 1)
}
