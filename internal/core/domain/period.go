package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodStatus indicates the lifecycle state of a billing period.
type PeriodStatus string

const (
	PeriodOpen      PeriodStatus = "OPEN"
	PeriodClosed    PeriodStatus = "CLOSED"
	PeriodFinalized PeriodStatus = "FINALIZED"
)

// IsValid reports whether s is a known period status.
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodOpen, PeriodClosed, PeriodFinalized:
		return true
	}
	return false
}

// Period represents one calendar-month billing cycle and its lifecycle state.
// A finalized period is immutable forever: no transition out of FINALIZED
// exists and no charge linked to it may be added, modified or removed.
type Period struct {
	PeriodID          string       `json:"periodID"`  // Primary Key (UUID)
	Name              string       `json:"name"`      // Calendar month, e.g. "2025-01"
	Status            PeriodStatus `json:"status"`    // OPEN -> CLOSED -> FINALIZED; CLOSED -> OPEN on reopen
	OpenedAt          time.Time    `json:"openedAt"`
	ClosedAt          *time.Time   `json:"closedAt"`
	ClosedBy          string       `json:"closedBy"`
	FinalizedAt       *time.Time   `json:"finalizedAt"`
	FinalizedBy       string       `json:"finalizedBy"`
	FinalizationNotes string       `json:"finalizationNotes"`
	ReopenedAt        *time.Time   `json:"reopenedAt"`
	ReopenedBy        string       `json:"reopenedBy"`
	ReopenReason      string       `json:"reopenReason"`
}

// IsMutable reports whether charges and review decisions in this period may
// still change.
func (p *Period) IsMutable() bool {
	return p.Status != PeriodFinalized
}

// PeriodStats holds aggregate counters for a period, used on listing surfaces.
type PeriodStats struct {
	ChargeCount      int             `json:"chargeCount"`
	TotalBilledCost  decimal.Decimal `json:"totalBilledCost"`
	StakeholderCount int             `json:"stakeholderCount"`
	ProjectCount     int             `json:"projectCount"`
	FlaggedCount     int             `json:"flaggedCount"`
	FlaggedCost      decimal.Decimal `json:"flaggedCost"`
}
