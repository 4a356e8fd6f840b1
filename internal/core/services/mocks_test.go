package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
)

// --- Mock PeriodRepository ---
type MockPeriodRepository struct {
	mock.Mock
}

// Ensure MockPeriodRepository implements portsrepo.PeriodRepositoryFacade
var _ portsrepo.PeriodRepositoryFacade = (*MockPeriodRepository)(nil)

func (m *MockPeriodRepository) FindPeriodByName(ctx context.Context, name string) (*domain.Period, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Period), args.Error(1)
}

func (m *MockPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.Period, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Period), args.Error(1)
}

func (m *MockPeriodRepository) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.Period, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Period), args.Error(1)
}

func (m *MockPeriodRepository) GetPeriodStats(ctx context.Context, periodID string) (*domain.PeriodStats, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PeriodStats), args.Error(1)
}

func (m *MockPeriodRepository) GetOrCreatePeriod(ctx context.Context, name string, openedAt time.Time) (*domain.Period, error) {
	args := m.Called(ctx, name, openedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Period), args.Error(1)
}

func (m *MockPeriodRepository) ClosePeriod(ctx context.Context, periodID string, closedBy string, closedAt time.Time) (bool, error) {
	args := m.Called(ctx, periodID, closedBy, closedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPeriodRepository) ReopenPeriod(ctx context.Context, periodID string, reopenedBy string, reason string, reopenedAt time.Time) (bool, error) {
	args := m.Called(ctx, periodID, reopenedBy, reason, reopenedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPeriodRepository) FinalizePeriod(ctx context.Context, periodID string, finalizedBy string, notes string, finalizedAt time.Time) (bool, error) {
	args := m.Called(ctx, periodID, finalizedBy, notes, finalizedAt)
	return args.Bool(0), args.Error(1)
}

// --- Mock ChargeRepository ---
type MockChargeRepository struct {
	mock.Mock
}

// Ensure MockChargeRepository implements portsrepo.ChargeRepositoryFacade
var _ portsrepo.ChargeRepositoryFacade = (*MockChargeRepository)(nil)

func (m *MockChargeRepository) FindChargeByID(ctx context.Context, chargeID string) (*domain.Charge, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindChargesForPeriod(ctx context.Context, periodID string, filter portsrepo.ChargeFilter) ([]domain.Charge, error) {
	args := m.Called(ctx, periodID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindFlaggedCharges(ctx context.Context, periodID string, reason *domain.FlagReason) ([]domain.Charge, error) {
	args := m.Called(ctx, periodID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Charge), args.Error(1)
}

func (m *MockChargeRepository) UpsertCharges(ctx context.Context, periodID string, charges []domain.Charge) (domain.UpsertCounts, error) {
	args := m.Called(ctx, periodID, charges)
	return args.Get(0).(domain.UpsertCounts), args.Error(1)
}

func (m *MockChargeRepository) ApproveCharge(ctx context.Context, chargeID string, action domain.ReviewAction) error {
	args := m.Called(ctx, chargeID, action)
	return args.Error(0)
}

func (m *MockChargeRepository) ApproveAllForPeriod(ctx context.Context, periodID string, action domain.ReviewAction) (int, error) {
	args := m.Called(ctx, periodID, action)
	return args.Int(0), args.Error(1)
}

func (m *MockChargeRepository) RejectCharge(ctx context.Context, chargeID string, action domain.ReviewAction) error {
	args := m.Called(ctx, chargeID, action)
	return args.Error(0)
}

func (m *MockChargeRepository) ListReviewActions(ctx context.Context, periodID string) ([]domain.ReviewAction, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ReviewAction), args.Error(1)
}

// --- Mock SourceRepository ---
type MockSourceRepository struct {
	mock.Mock
}

var _ portsrepo.SourceRepository = (*MockSourceRepository)(nil)

func (m *MockSourceRepository) GetOrCreateSource(ctx context.Context, name string, displayName string) (*domain.Source, error) {
	args := m.Called(ctx, name, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Source), args.Error(1)
}

func (m *MockSourceRepository) UpdateSourceSync(ctx context.Context, name string, syncedBy string, syncedAt time.Time) error {
	args := m.Called(ctx, name, syncedBy, syncedAt)
	return args.Error(0)
}

func (m *MockSourceRepository) ListSources(ctx context.Context) ([]domain.Source, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Source), args.Error(1)
}

// --- Mock AuditLogRepository ---
type MockAuditRepository struct {
	mock.Mock
}

var _ portsrepo.AuditLogRepository = (*MockAuditRepository)(nil)

func (m *MockAuditRepository) LogImport(ctx context.Context, entry domain.ImportLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListImports(ctx context.Context, sourceName string, limit int) ([]domain.ImportLog, error) {
	args := m.Called(ctx, sourceName, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ImportLog), args.Error(1)
}

func (m *MockAuditRepository) LogJournalExport(ctx context.Context, entry domain.JournalExportLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListJournalExports(ctx context.Context, periodID string) ([]domain.JournalExportLog, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.JournalExportLog), args.Error(1)
}

// newRepoProvider bundles the mocks the way the service constructors expect.
func newRepoProvider(periodRepo *MockPeriodRepository, chargeRepo *MockChargeRepository, sourceRepo *MockSourceRepository, auditRepo *MockAuditRepository) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		PeriodRepository: periodRepo,
		ChargeRepository: chargeRepo,
		SourceRepository: sourceRepo,
		AuditRepository:  auditRepo,
	}
}
