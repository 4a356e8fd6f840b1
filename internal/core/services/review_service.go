package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
	portssvc "github.com/rcdops/chargeback_backend/internal/core/ports/services"
)

var (
	ErrChargeRejected    = errors.New("charge has been rejected and cannot be changed")
	ErrInvalidFlagReason = errors.New("unknown flag reason")
)

// reviewService resolves flagged charges.
type reviewService struct {
	BaseService
	periodRepo portsrepo.PeriodRepositoryFacade
	chargeRepo portsrepo.ChargeRepositoryFacade
	now        func() time.Time
}

// NewReviewService creates a new ReviewService.
func NewReviewService(periodRepo portsrepo.PeriodRepositoryFacade, chargeRepo portsrepo.ChargeRepositoryFacade) portssvc.ReviewSvcFacade {
	return &reviewService{
		periodRepo: periodRepo,
		chargeRepo: chargeRepo,
		now:        time.Now,
	}
}

// Ensure reviewService implements the portssvc.ReviewSvcFacade interface
var _ portssvc.ReviewSvcFacade = (*reviewService)(nil)

// ListFlagged lists charges awaiting review. An empty period name lists
// flagged charges across every period.
func (s *reviewService) ListFlagged(ctx context.Context, periodName string, reason *domain.FlagReason) ([]domain.Charge, error) {
	if reason != nil && !domain.IsValidFlagReason(string(*reason)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFlagReason, *reason)
	}
	periodID := ""
	if periodName != "" {
		period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
		if err != nil {
			return nil, err
		}
		periodID = period.PeriodID
	}
	return s.chargeRepo.FindFlaggedCharges(ctx, periodID, reason)
}

func (s *reviewService) ListReviewActions(ctx context.Context, periodName string) ([]domain.ReviewAction, error) {
	period, err := s.periodRepo.FindPeriodByName(ctx, periodName)
	if err != nil {
		return nil, err
	}
	return s.chargeRepo.ListReviewActions(ctx, period.PeriodID)
}

func (s *reviewService) ApproveCharge(ctx context.Context, chargeID string, notes string, actor string) (*domain.Charge, error) {
	charge, err := s.loadMutableCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if !charge.Flagged {
		// Already billable, nothing to record.
		return charge, nil
	}

	action := domain.ReviewAction{
		ActionID: uuid.NewString(),
		ChargeID: charge.ChargeID,
		PeriodID: charge.PeriodID,
		Decision: domain.ReviewApproved,
		Reason:   string(charge.FlagReason),
		Notes:    notes,
		Actor:    actor,
		ActedAt:  s.now().UTC(),
	}
	if err := s.chargeRepo.ApproveCharge(ctx, charge.ChargeID, action); err != nil {
		s.LogError(ctx, err, "Failed to approve charge", slog.String("charge_id", chargeID))
		return nil, fmt.Errorf("failed to approve charge %s: %w", chargeID, err)
	}

	s.LogInfo(ctx, "Charge approved",
		slog.String("charge_id", chargeID),
		slog.String("reason", string(charge.FlagReason)),
		slog.String("actor", actor))
	return s.chargeRepo.FindChargeByID(ctx, chargeID)
}

func (s *reviewService) ApproveAll(ctx context.Context, periodName string, notes string, actor string) (int, error) {
	period, err := requireMutablePeriod(ctx, s.periodRepo, periodName)
	if err != nil {
		return 0, err
	}

	action := domain.ReviewAction{
		PeriodID: period.PeriodID,
		Decision: domain.ReviewApproved,
		Notes:    notes,
		Actor:    actor,
		ActedAt:  s.now().UTC(),
	}
	approved, err := s.chargeRepo.ApproveAllForPeriod(ctx, period.PeriodID, action)
	if err != nil {
		s.LogError(ctx, err, "Failed to bulk approve charges", slog.String("period", periodName))
		return 0, fmt.Errorf("failed to approve charges for period %s: %w", periodName, err)
	}

	s.LogInfo(ctx, "All flagged charges approved",
		slog.String("period", periodName),
		slog.Int("approved", approved),
		slog.String("actor", actor))
	return approved, nil
}

func (s *reviewService) RejectCharge(ctx context.Context, chargeID string, notes string, actor string) (*domain.Charge, error) {
	charge, err := s.loadMutableCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	action := domain.ReviewAction{
		ActionID: uuid.NewString(),
		ChargeID: charge.ChargeID,
		PeriodID: charge.PeriodID,
		Decision: domain.ReviewRejected,
		Reason:   string(charge.FlagReason),
		Notes:    notes,
		Actor:    actor,
		ActedAt:  s.now().UTC(),
	}
	if err := s.chargeRepo.RejectCharge(ctx, charge.ChargeID, action); err != nil {
		s.LogError(ctx, err, "Failed to reject charge", slog.String("charge_id", chargeID))
		return nil, fmt.Errorf("failed to reject charge %s: %w", chargeID, err)
	}

	s.LogInfo(ctx, "Charge rejected",
		slog.String("charge_id", chargeID),
		slog.String("actor", actor))
	return s.chargeRepo.FindChargeByID(ctx, chargeID)
}

// loadMutableCharge fetches a charge and verifies both the charge and its
// period still accept review decisions.
func (s *reviewService) loadMutableCharge(ctx context.Context, chargeID string) (*domain.Charge, error) {
	charge, err := s.chargeRepo.FindChargeByID(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if charge.Rejected {
		return nil, fmt.Errorf("%w: charge %s", ErrChargeRejected, chargeID)
	}

	period, err := s.periodRepo.FindPeriodByID(ctx, charge.PeriodID)
	if err != nil {
		return nil, err
	}
	if !period.IsMutable() {
		return nil, fmt.Errorf("%w: period %s", ErrPeriodFinalized, period.Name)
	}
	return charge, nil
}
