package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// FlagReason identifies why a charge was withheld for human review. The set
// of reasons is a closed taxonomy; statement and audit consumers depend on
// the exact strings.
type FlagReason string

const (
	FlagPeriodMismatch   FlagReason = "period_mismatch"
	FlagMissingPIEmail   FlagReason = "missing_pi_email"
	FlagMissingProjectID FlagReason = "missing_project_id"
	FlagMissingFundOrg   FlagReason = "missing_fund_org"
	FlagInvalidFundOrg   FlagReason = "invalid_fund_org"
	FlagPatternMatch     FlagReason = "pattern_match"
)

// FlagReasons lists the taxonomy in evaluation precedence order.
var FlagReasons = []FlagReason{
	FlagPeriodMismatch,
	FlagMissingPIEmail,
	FlagMissingProjectID,
	FlagMissingFundOrg,
	FlagInvalidFundOrg,
	FlagPatternMatch,
}

// IsValidFlagReason reports whether s is one of the known flag reasons.
func IsValidFlagReason(s string) bool {
	for _, r := range FlagReasons {
		if string(r) == s {
			return true
		}
	}
	return false
}

// Charge is one priced line item attributed to a stakeholder within a
// billing period. The natural key (SourceName, ResourceKey,
// ChargePeriodStart) drives idempotent upsert: re-importing the same line
// updates in place and never duplicates.
type Charge struct {
	ChargeID string `json:"chargeID"` // Primary Key (UUID)
	PeriodID string `json:"periodID"` // FK -> periods, derived from BillingPeriodStart

	SourceName   string `json:"sourceName"`
	ResourceKey  string `json:"resourceKey"` // ResourceId, or a line fingerprint when the source supplies none
	ResourceID   string `json:"resourceID"`
	ResourceName string `json:"resourceName"`
	ServiceName  string `json:"serviceName"`

	ChargePeriodStart time.Time  `json:"chargePeriodStart"`
	ChargePeriodEnd   *time.Time `json:"chargePeriodEnd"`

	ListCost       decimal.NullDecimal `json:"listCost"`
	ContractedCost decimal.NullDecimal `json:"contractedCost"`
	BilledCost     decimal.Decimal     `json:"billedCost"`
	EffectiveCost  decimal.NullDecimal `json:"effectiveCost"`

	StakeholderEmail string `json:"stakeholderEmail"`
	ProjectID        string `json:"projectID"`
	FundOrg          string `json:"fundOrg"`
	AccountCode      string `json:"accountCode"`
	Reference1       string `json:"reference1"`
	Reference2       string `json:"reference2"`

	// RawTags preserves the source tag payload verbatim for audit, even
	// after the mapped fields above have been projected out of it.
	RawTags json.RawMessage `json:"rawTags"`

	Flagged    bool       `json:"flagged"`
	FlagReason FlagReason `json:"flagReason"` // empty when not flagged
	FlagDetail string     `json:"flagDetail"` // e.g. the matched pattern for pattern_match

	// Rejected marks a charge permanently excluded from billing by a
	// reviewer. The row is kept for audit but never aggregated again.
	Rejected bool `json:"rejected"`

	ReviewedAt *time.Time `json:"reviewedAt"`
	ReviewedBy string     `json:"reviewedBy"`
	ImportedAt time.Time  `json:"importedAt"`
}

// Billable reports whether the charge participates in aggregation and
// journal generation.
func (c *Charge) Billable() bool {
	return !c.Flagged && !c.Rejected
}

// DiscountAmount returns list minus billed cost, zero when no list cost was
// reported.
func (c *Charge) DiscountAmount() decimal.Decimal {
	if !c.ListCost.Valid {
		return decimal.Zero
	}
	return c.ListCost.Decimal.Sub(c.BilledCost)
}

// UpsertCounts reports the outcome of a batched charge upsert.
type UpsertCounts struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
