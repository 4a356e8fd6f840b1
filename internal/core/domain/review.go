package domain

import "time"

// ReviewDecision is the outcome a reviewer recorded for a flagged charge.
type ReviewDecision string

const (
	ReviewApproved ReviewDecision = "approved"
	ReviewRejected ReviewDecision = "rejected"
)

// ReviewAction is an immutable audit record of a single review decision.
// Actions are appended, never updated; the charge row carries the current
// state while this log carries the history.
type ReviewAction struct {
	ActionID string         `json:"actionID"` // Primary Key (UUID)
	ChargeID string         `json:"chargeID"` // FK -> charges
	PeriodID string         `json:"periodID"`
	Decision ReviewDecision `json:"decision"`
	Reason   string         `json:"reason"` // flag reason at the time of the decision
	Notes    string         `json:"notes"`
	Actor    string         `json:"actor"`
	ActedAt  time.Time      `json:"actedAt"`
}
