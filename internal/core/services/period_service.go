package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
)

var (
	ErrPeriodFinalized         = errors.New("billing period is finalized and cannot be modified")
	ErrInvalidPeriodTransition = errors.New("invalid billing period state transition")
	ErrInvalidPeriodName       = errors.New("billing period name must be YYYY-MM")
	ErrReopenReasonRequired    = errors.New("a reason is required to reopen a billing period")
)

var periodNameRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// periodService manages the billing period lifecycle.
type periodService struct {
	BaseService
	periodRepo portsrepo.PeriodRepositoryFacade
	now        func() time.Time
}

// NewPeriodService creates a new PeriodService.
func NewPeriodService(periodRepo portsrepo.PeriodRepositoryFacade) portssvc.PeriodSvcFacade {
	return &periodService{
		periodRepo: periodRepo,
		now:        time.Now,
	}
}

// Ensure periodService implements the portssvc.PeriodSvcFacade interface
var _ portssvc.PeriodSvcFacade = (*periodService)(nil)

// ValidPeriodName reports whether name is a well-formed YYYY-MM period name.
func ValidPeriodName(name string) bool {
	return periodNameRe.MatchString(name)
}

func (s *periodService) OpenPeriod(ctx context.Context, name string, actor string) (*domain.Period, error) {
	if !ValidPeriodName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriodName, name)
	}

	period, err := s.periodRepo.GetOrCreatePeriod(ctx, name, s.now().UTC())
	if err != nil {
		s.LogError(ctx, err, "Failed to open billing period", slog.String("period", name))
		return nil, fmt.Errorf("failed to open period %s: %w", name, err)
	}

	switch period.Status {
	case domain.PeriodOpen:
		// Opening an open (or freshly created) period is idempotent.
		return period, nil
	case domain.PeriodFinalized:
		return nil, fmt.Errorf("%w: period %s", ErrPeriodFinalized, name)
	default:
		return nil, fmt.Errorf("%w: cannot open period %s in state %s", ErrInvalidPeriodTransition, name, period.Status)
	}
}

func (s *periodService) GetPeriod(ctx context.Context, name string) (*domain.Period, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (s *periodService) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.Period, error) {
	return s.periodRepo.ListPeriods(ctx, status)
}

func (s *periodService) GetPeriodStats(ctx context.Context, name string) (*domain.PeriodStats, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.periodRepo.GetPeriodStats(ctx, period.PeriodID)
}

func (s *periodService) ClosePeriod(ctx context.Context, name string, actor string) (*domain.Period, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if period.Status == domain.PeriodFinalized {
		return nil, fmt.Errorf("%w: period %s", ErrPeriodFinalized, name)
	}

	ok, err := s.periodRepo.ClosePeriod(ctx, period.PeriodID, actor, s.now().UTC())
	if err != nil {
		s.LogError(ctx, err, "Failed to close billing period", slog.String("period", name))
		return nil, fmt.Errorf("failed to close period %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot close period %s in state %s, expected %s",
			ErrInvalidPeriodTransition, name, period.Status, domain.PeriodOpen)
	}

	s.LogInfo(ctx, "Billing period closed", slog.String("period", name), slog.String("actor", actor))
	return s.periodRepo.FindPeriodByID(ctx, period.PeriodID)
}

func (s *periodService) ReopenPeriod(ctx context.Context, name string, reason string, actor string) (*domain.Period, error) {
	if reason == "" {
		return nil, ErrReopenReasonRequired
	}

	period, err := s.periodRepo.FindPeriodByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if period.Status == domain.PeriodFinalized {
		return nil, fmt.Errorf("%w: period %s", ErrPeriodFinalized, name)
	}

	ok, err := s.periodRepo.ReopenPeriod(ctx, period.PeriodID, actor, reason, s.now().UTC())
	if err != nil {
		s.LogError(ctx, err, "Failed to reopen billing period", slog.String("period", name))
		return nil, fmt.Errorf("failed to reopen period %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot reopen period %s in state %s, expected %s",
			ErrInvalidPeriodTransition, name, period.Status, domain.PeriodClosed)
	}

	s.LogInfo(ctx, "Billing period reopened", slog.String("period", name), slog.String("actor", actor), slog.String("reason", reason))
	return s.periodRepo.FindPeriodByID(ctx, period.PeriodID)
}

func (s *periodService) FinalizePeriod(ctx context.Context, name string, notes string, actor string) (*domain.Period, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, name)
	if err != nil {
		return nil, err
	}

	switch period.Status {
	case domain.PeriodFinalized:
		return nil, fmt.Errorf("%w: period %s", ErrPeriodFinalized, name)
	case domain.PeriodOpen:
		// Finalization requires an explicit close first so reviewers get a
		// stable snapshot to sign off on.
		return nil, fmt.Errorf("%w: cannot finalize period %s in state %s, expected %s",
			ErrInvalidPeriodTransition, name, period.Status, domain.PeriodClosed)
	}

	ok, err := s.periodRepo.FinalizePeriod(ctx, period.PeriodID, actor, notes, s.now().UTC())
	if err != nil {
		s.LogError(ctx, err, "Failed to finalize billing period", slog.String("period", name))
		return nil, fmt.Errorf("failed to finalize period %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot finalize period %s in state %s, expected %s",
			ErrInvalidPeriodTransition, name, period.Status, domain.PeriodClosed)
	}

	s.LogInfo(ctx, "Billing period finalized", slog.String("period", name), slog.String("actor", actor))
	return s.periodRepo.FindPeriodByID(ctx, period.PeriodID)
}

// requireMutablePeriod loads a period by name and rejects finalized ones.
// Shared by services that write charges into a period.
func requireMutablePeriod(ctx context.Context, repo portsrepo.PeriodReader, name string) (*domain.Period, error) {
	period, err := repo.FindPeriodByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if !period.IsMutable() {
		return nil, fmt.Errorf("%w: period %s", ErrPeriodFinalized, name)
	}
	return period, nil
}

// notFound reports whether err is the repository's missing-row error.
func notFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
