package services

import (
	"context"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// ReviewReaderSvc defines read operations for the review queue
type ReviewReaderSvc interface {
	// ListFlagged lists charges awaiting review, optionally restricted to
	// one flag reason. An empty period name spans all periods.
	ListFlagged(ctx context.Context, periodName string, reason *domain.FlagReason) ([]domain.Charge, error)

	// ListReviewActions lists the review audit trail for a period.
	ListReviewActions(ctx context.Context, periodName string) ([]domain.ReviewAction, error)
}

// ReviewWriterSvc defines review decisions
type ReviewWriterSvc interface {
	// ApproveCharge clears the flag on a charge so it becomes billable.
	// Approving an unflagged charge is a no-op.
	ApproveCharge(ctx context.Context, chargeID string, notes string, actor string) (*domain.Charge, error)

	// ApproveAll clears every outstanding flag in a period and returns the
	// number of charges approved.
	ApproveAll(ctx context.Context, periodName string, notes string, actor string) (int, error)

	// RejectCharge permanently excludes a charge from billing.
	RejectCharge(ctx context.Context, chargeID string, notes string, actor string) (*domain.Charge, error)
}

// ReviewSvcFacade combines all review-related service interfaces
type ReviewSvcFacade interface {
	ReviewReaderSvc
	ReviewWriterSvc
}
