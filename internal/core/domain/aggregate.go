package domain

import "github.com/shopspring/decimal"

// Aggregate is the rolled-up cost for one (stakeholder, project) within a
// billing period. Only billable charges contribute; flagged and rejected
// rows are excluded until resolved.
type Aggregate struct {
	PeriodID         string `json:"periodID"`
	StakeholderEmail string `json:"stakeholderEmail"`
	ProjectID        string `json:"projectID"`
	FundOrg          string `json:"fundOrg"`

	ChargeCount    int             `json:"chargeCount"`
	ListCost       decimal.Decimal `json:"listCost"`
	BilledCost     decimal.Decimal `json:"billedCost"`
	EffectiveCost  decimal.Decimal `json:"effectiveCost"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	// DiscountPercent is discount over list, as a percentage. Zero when the
	// list total is zero.
	DiscountPercent decimal.Decimal `json:"discountPercent"`

	// ServiceBreakdown maps service name to its billed cost share.
	ServiceBreakdown map[string]decimal.Decimal `json:"serviceBreakdown"`
	// Sources lists the distinct source names contributing to this bucket.
	Sources []string `json:"sources"`
}
