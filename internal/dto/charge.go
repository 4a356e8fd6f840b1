package dto

import (
	"encoding/json"
	"time"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// ApproveChargeRequest clears a review flag.
type ApproveChargeRequest struct {
	Notes string `json:"notes"`
}

// RejectChargeRequest permanently excludes a charge from billing.
type RejectChargeRequest struct {
	Notes string `json:"notes"`
}

// ChargeResponse is the API shape of a charge.
type ChargeResponse struct {
	ChargeID          string          `json:"chargeID"`
	PeriodID          string          `json:"periodID"`
	SourceName        string          `json:"sourceName"`
	ResourceID        string          `json:"resourceID,omitempty"`
	ResourceName      string          `json:"resourceName,omitempty"`
	ServiceName       string          `json:"serviceName,omitempty"`
	ChargePeriodStart time.Time       `json:"chargePeriodStart"`
	ChargePeriodEnd   *time.Time      `json:"chargePeriodEnd,omitempty"`
	ListCost          *string         `json:"listCost,omitempty"`
	ContractedCost    *string         `json:"contractedCost,omitempty"`
	BilledCost        string          `json:"billedCost"`
	EffectiveCost     *string         `json:"effectiveCost,omitempty"`
	StakeholderEmail  string          `json:"stakeholderEmail,omitempty"`
	ProjectID         string          `json:"projectID,omitempty"`
	FundOrg           string          `json:"fundOrg,omitempty"`
	Reference1        string          `json:"reference1,omitempty"`
	Reference2        string          `json:"reference2,omitempty"`
	Tags              json.RawMessage `json:"tags,omitempty"`
	Flagged           bool            `json:"flagged"`
	FlagReason        string          `json:"flagReason,omitempty"`
	FlagDetail        string          `json:"flagDetail,omitempty"`
	Rejected          bool            `json:"rejected"`
	ReviewedAt        *time.Time      `json:"reviewedAt,omitempty"`
	ReviewedBy        string          `json:"reviewedBy,omitempty"`
	ImportedAt        time.Time       `json:"importedAt"`
}

// ToChargeResponse maps a domain charge to its API shape.
func ToChargeResponse(c *domain.Charge) ChargeResponse {
	resp := ChargeResponse{
		ChargeID:          c.ChargeID,
		PeriodID:          c.PeriodID,
		SourceName:        c.SourceName,
		ResourceID:        c.ResourceID,
		ResourceName:      c.ResourceName,
		ServiceName:       c.ServiceName,
		ChargePeriodStart: c.ChargePeriodStart,
		ChargePeriodEnd:   c.ChargePeriodEnd,
		BilledCost:        c.BilledCost.String(),
		StakeholderEmail:  c.StakeholderEmail,
		ProjectID:         c.ProjectID,
		FundOrg:           c.FundOrg,
		Reference1:        c.Reference1,
		Reference2:        c.Reference2,
		Tags:              c.RawTags,
		Flagged:           c.Flagged,
		FlagReason:        string(c.FlagReason),
		FlagDetail:        c.FlagDetail,
		Rejected:          c.Rejected,
		ReviewedAt:        c.ReviewedAt,
		ReviewedBy:        c.ReviewedBy,
		ImportedAt:        c.ImportedAt,
	}
	if c.ListCost.Valid {
		s := c.ListCost.Decimal.String()
		resp.ListCost = &s
	}
	if c.ContractedCost.Valid {
		s := c.ContractedCost.Decimal.String()
		resp.ContractedCost = &s
	}
	if c.EffectiveCost.Valid {
		s := c.EffectiveCost.Decimal.String()
		resp.EffectiveCost = &s
	}
	return resp
}

// ListChargesResponse wraps a charge listing.
type ListChargesResponse struct {
	Charges []ChargeResponse `json:"charges"`
}

// ReviewActionResponse is the API shape of a review audit record.
type ReviewActionResponse struct {
	ActionID string    `json:"actionID"`
	ChargeID string    `json:"chargeID"`
	Decision string    `json:"decision"`
	Reason   string    `json:"reason,omitempty"`
	Notes    string    `json:"notes,omitempty"`
	Actor    string    `json:"actor"`
	ActedAt  time.Time `json:"actedAt"`
}

// ToReviewActionResponse maps a review action to its API shape.
func ToReviewActionResponse(a domain.ReviewAction) ReviewActionResponse {
	return ReviewActionResponse{
		ActionID: a.ActionID,
		ChargeID: a.ChargeID,
		Decision: string(a.Decision),
		Reason:   a.Reason,
		Notes:    a.Notes,
		Actor:    a.Actor,
		ActedAt:  a.ActedAt,
	}
}
