package dto

import (
	"time"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// OpenPeriodRequest creates (or returns) a billing period.
type OpenPeriodRequest struct {
	Name string `json:"name" binding:"required,period"`
}

// ClosePeriodRequest closes an open period.
type ClosePeriodRequest struct {
	Notes string `json:"notes"`
}

// ReopenPeriodRequest reopens a closed period. A reason is mandatory for
// the audit trail.
type ReopenPeriodRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// FinalizePeriodRequest permanently finalizes a closed period.
type FinalizePeriodRequest struct {
	Notes string `json:"notes"`
}

// PeriodResponse is the API shape of a billing period.
type PeriodResponse struct {
	PeriodID     string     `json:"periodID"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	OpenedAt     time.Time  `json:"openedAt"`
	ClosedAt     *time.Time `json:"closedAt,omitempty"`
	ClosedBy     string     `json:"closedBy,omitempty"`
	FinalizedAt  *time.Time `json:"finalizedAt,omitempty"`
	FinalizedBy  string     `json:"finalizedBy,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	ReopenedAt   *time.Time `json:"reopenedAt,omitempty"`
	ReopenedBy   string     `json:"reopenedBy,omitempty"`
	ReopenReason string     `json:"reopenReason,omitempty"`
}

// ToPeriodResponse maps a domain period to its API shape.
func ToPeriodResponse(p *domain.Period) PeriodResponse {
	return PeriodResponse{
		PeriodID:     p.PeriodID,
		Name:         p.Name,
		Status:       string(p.Status),
		OpenedAt:     p.OpenedAt,
		ClosedAt:     p.ClosedAt,
		ClosedBy:     p.ClosedBy,
		FinalizedAt:  p.FinalizedAt,
		FinalizedBy:  p.FinalizedBy,
		Notes:        p.FinalizationNotes,
		ReopenedAt:   p.ReopenedAt,
		ReopenedBy:   p.ReopenedBy,
		ReopenReason: p.ReopenReason,
	}
}

// PeriodStatsResponse summarizes a period's contents.
type PeriodStatsResponse struct {
	ChargeCount      int    `json:"chargeCount"`
	TotalBilledCost  string `json:"totalBilledCost"`
	StakeholderCount int    `json:"stakeholderCount"`
	ProjectCount     int    `json:"projectCount"`
	FlaggedCount     int    `json:"flaggedCount"`
	FlaggedCost      string `json:"flaggedCost"`
}

// ToPeriodStatsResponse maps period stats to their API shape.
func ToPeriodStatsResponse(s *domain.PeriodStats) PeriodStatsResponse {
	return PeriodStatsResponse{
		ChargeCount:      s.ChargeCount,
		TotalBilledCost:  s.TotalBilledCost.String(),
		StakeholderCount: s.StakeholderCount,
		ProjectCount:     s.ProjectCount,
		FlaggedCount:     s.FlaggedCount,
		FlaggedCost:      s.FlaggedCost.String(),
	}
}

// ListPeriodsResponse wraps a period listing.
type ListPeriodsResponse struct {
	Periods []PeriodResponse `json:"periods"`
}
