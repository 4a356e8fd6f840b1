package dto

import (
	"time"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// Journal generation modes.
const (
	JournalModeDetail   = "detail"
	JournalModeSummary  = "summary"
	JournalModeGL       = "gl"
	JournalModeTemplate = "template"
)

// ValidJournalMode reports whether mode is one of the supported modes.
func ValidJournalMode(mode string) bool {
	switch mode {
	case JournalModeDetail, JournalModeSummary, JournalModeGL, JournalModeTemplate:
		return true
	}
	return false
}

// JournalEntryResponse is one generated journal line.
type JournalEntryResponse struct {
	Side        string            `json:"side"`
	SourceName  string            `json:"sourceName"`
	FundOrg     string            `json:"fundOrg,omitempty"`
	Fund        string            `json:"fund,omitempty"`
	Orgn        string            `json:"orgn,omitempty"`
	Account     string            `json:"account"`
	Amount      string            `json:"amount"`
	Description string            `json:"description"`
	ReferenceID string            `json:"referenceID"`
	Components  map[string]string `json:"components,omitempty"`
}

// ToJournalEntryResponse maps a journal line to its API shape.
func ToJournalEntryResponse(e domain.JournalEntry) JournalEntryResponse {
	return JournalEntryResponse{
		Side:        string(e.Side),
		SourceName:  e.SourceName,
		FundOrg:     e.FundOrg,
		Fund:        e.Fund,
		Orgn:        e.Orgn,
		Account:     e.Account,
		Amount:      e.Amount.String(),
		Description: e.Description,
		ReferenceID: e.ReferenceID,
		Components:  e.Components,
	}
}

// JournalResult is the full outcome of a journal generation run.
type JournalResult struct {
	PeriodName  string                 `json:"periodName"`
	Mode        string                 `json:"mode"`
	EntryCount  int                    `json:"entryCount"`
	TotalDebit  string                 `json:"totalDebit"`
	TotalCredit string                 `json:"totalCredit"`
	Entries     []JournalEntryResponse `json:"entries"`
	// Detail and summary modes populate these instead of Entries.
	Charges    []ChargeResponse    `json:"charges,omitempty"`
	Aggregates []AggregateResponse `json:"aggregates,omitempty"`
}

// JournalExportLogResponse is the API shape of a journal export record.
type JournalExportLogResponse struct {
	ExportID   string    `json:"exportID"`
	Mode       string    `json:"mode"`
	EntryCount int       `json:"entryCount"`
	TotalDebit string    `json:"totalDebit"`
	Actor      string    `json:"actor"`
	ExportedAt time.Time `json:"exportedAt"`
}

// ToJournalExportLogResponse maps an export record to its API shape.
func ToJournalExportLogResponse(l domain.JournalExportLog) JournalExportLogResponse {
	return JournalExportLogResponse{
		ExportID:   l.ExportID,
		Mode:       l.Mode,
		EntryCount: l.EntryCount,
		TotalDebit: l.TotalDebit.String(),
		Actor:      l.Actor,
		ExportedAt: l.ExportedAt,
	}
}
