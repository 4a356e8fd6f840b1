package repositories

import (
	"context"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// ChargeFilter narrows charge listings.
type ChargeFilter struct {
	SourceName       string
	StakeholderEmail string
	ProjectID        string
	IncludeFlagged   bool
	FlagReason       *domain.FlagReason
}

// ChargeReader defines read operations for charge data
type ChargeReader interface {
	// FindChargeByID retrieves a single charge.
	FindChargeByID(ctx context.Context, chargeID string) (*domain.Charge, error)

	// FindChargesForPeriod lists charges in a period matching the filter.
	// Rejected charges are never returned.
	FindChargesForPeriod(ctx context.Context, periodID string, filter ChargeFilter) ([]domain.Charge, error)

	// FindFlaggedCharges lists charges awaiting review, optionally
	// restricted to one flag reason. An empty periodID spans all periods.
	FindFlaggedCharges(ctx context.Context, periodID string, reason *domain.FlagReason) ([]domain.Charge, error)
}

// ChargeWriter defines write operations for charge data
type ChargeWriter interface {
	// UpsertCharges inserts or updates the batch by its natural key within
	// a single transaction and reports how each row landed.
	UpsertCharges(ctx context.Context, periodID string, charges []domain.Charge) (domain.UpsertCounts, error)

	// ApproveCharge clears the flag on a charge and records the review
	// action in the same transaction.
	ApproveCharge(ctx context.Context, chargeID string, action domain.ReviewAction) error

	// ApproveAllForPeriod clears every outstanding flag in a period and
	// records one review action per charge, all in one transaction. It
	// returns the number of charges approved.
	ApproveAllForPeriod(ctx context.Context, periodID string, action domain.ReviewAction) (int, error)

	// RejectCharge permanently excludes a charge from billing and records
	// the review action in the same transaction.
	RejectCharge(ctx context.Context, chargeID string, action domain.ReviewAction) error
}

// ReviewLogReader defines read access to the review audit trail
type ReviewLogReader interface {
	// ListReviewActions lists review actions for a period, newest first.
	ListReviewActions(ctx context.Context, periodID string) ([]domain.ReviewAction, error)
}

// ChargeRepositoryFacade combines all charge-related repository interfaces
type ChargeRepositoryFacade interface {
	ChargeReader
	ChargeWriter
	ReviewLogReader
}
