package dto

import "github.com/rcdops/chargeback_backend/internal/core/domain"

// AggregateParams filters an aggregation run.
type AggregateParams struct {
	StakeholderEmail string `form:"stakeholder"`
	ProjectID        string `form:"project"`
	SourceName       string `form:"source"`
}

// AggregateResponse is one (stakeholder, project) cost bucket.
type AggregateResponse struct {
	StakeholderEmail string            `json:"stakeholderEmail"`
	ProjectID        string            `json:"projectID,omitempty"`
	FundOrg          string            `json:"fundOrg,omitempty"`
	ChargeCount      int               `json:"chargeCount"`
	ListCost         string            `json:"listCost"`
	BilledCost       string            `json:"billedCost"`
	EffectiveCost    string            `json:"effectiveCost"`
	DiscountAmount   string            `json:"discountAmount"`
	DiscountPercent  string            `json:"discountPercent"`
	ServiceBreakdown map[string]string `json:"serviceBreakdown,omitempty"`
	Sources          []string          `json:"sources,omitempty"`
}

// ToAggregateResponse maps a cost bucket to its API shape.
func ToAggregateResponse(a domain.Aggregate) AggregateResponse {
	breakdown := make(map[string]string, len(a.ServiceBreakdown))
	for svc, amount := range a.ServiceBreakdown {
		breakdown[svc] = amount.String()
	}
	return AggregateResponse{
		StakeholderEmail: a.StakeholderEmail,
		ProjectID:        a.ProjectID,
		FundOrg:          a.FundOrg,
		ChargeCount:      a.ChargeCount,
		ListCost:         a.ListCost.String(),
		BilledCost:       a.BilledCost.String(),
		EffectiveCost:    a.EffectiveCost.String(),
		DiscountAmount:   a.DiscountAmount.String(),
		DiscountPercent:  a.DiscountPercent.String(),
		ServiceBreakdown: breakdown,
		Sources:          a.Sources,
	}
}

// ListAggregatesResponse wraps an aggregation result.
type ListAggregatesResponse struct {
	PeriodName string              `json:"periodName"`
	Aggregates []AggregateResponse `json:"aggregates"`
}
