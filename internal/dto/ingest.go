package dto

import (
	"time"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// IngestParams describes one ingestion run.
type IngestParams struct {
	SourceName string `json:"sourceName" binding:"required"`
	FileName   string `json:"fileName"`
	// ExpectedPeriod is the optional target period; rows that derive a
	// different period are flagged as period_mismatch.
	ExpectedPeriod string `json:"expectedPeriod"`
	DryRun         bool   `json:"dryRun"`
	Actor          string `json:"-"`
}

// LineError reports one rejected input line.
type LineError struct {
	Line  int    `json:"line"`
	Field string `json:"field,omitempty"`
	Error string `json:"error"`
}

// PeriodIngestResult is the outcome for one billing period touched by a run.
type PeriodIngestResult struct {
	PeriodName string `json:"periodName"`
	PeriodID   string `json:"periodID,omitempty"`
	Inserted   int    `json:"inserted"`
	Updated    int    `json:"updated"`
	Skipped    int    `json:"skipped"`
	Flagged    int    `json:"flagged"`
	// Rejected is set when the whole period batch was refused, e.g. the
	// period is finalized.
	Rejected     bool   `json:"rejected"`
	RejectReason string `json:"rejectReason,omitempty"`
}

// IngestResult is the full outcome of an ingestion run.
type IngestResult struct {
	SourceName string               `json:"sourceName"`
	DryRun     bool                 `json:"dryRun"`
	RowCount   int                  `json:"rowCount"`
	Inserted   int                  `json:"inserted"`
	Updated    int                  `json:"updated"`
	Skipped    int                  `json:"skipped"`
	Flagged    int                  `json:"flagged"`
	Periods    []PeriodIngestResult `json:"periods"`
	LineErrors []LineError          `json:"lineErrors,omitempty"`
}

// ImportLogResponse is the API shape of an import run record.
type ImportLogResponse struct {
	ImportID   string    `json:"importID"`
	SourceName string    `json:"sourceName"`
	FileName   string    `json:"fileName,omitempty"`
	RowCount   int       `json:"rowCount"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Flagged    int       `json:"flagged"`
	ErrorCount int       `json:"errorCount"`
	DryRun     bool      `json:"dryRun"`
	Actor      string    `json:"actor"`
	ImportedAt time.Time `json:"importedAt"`
}

// ToImportLogResponse maps an import log entry to its API shape.
func ToImportLogResponse(l domain.ImportLog) ImportLogResponse {
	return ImportLogResponse{
		ImportID:   l.ImportID,
		SourceName: l.SourceName,
		FileName:   l.FileName,
		RowCount:   l.RowCount,
		Inserted:   l.Inserted,
		Updated:    l.Updated,
		Skipped:    l.Skipped,
		Flagged:    l.Flagged,
		ErrorCount: l.ErrorCount,
		DryRun:     l.DryRun,
		Actor:      l.Actor,
		ImportedAt: l.ImportedAt,
	}
}

// SourceResponse is the API shape of a cost source.
type SourceResponse struct {
	SourceID    string     `json:"sourceID"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName,omitempty"`
	LastSyncAt  *time.Time `json:"lastSyncAt,omitempty"`
	LastSyncBy  string     `json:"lastSyncBy,omitempty"`
}

// ToSourceResponse maps a source to its API shape.
func ToSourceResponse(s domain.Source) SourceResponse {
	return SourceResponse{
		SourceID:    s.SourceID,
		Name:        s.Name,
		DisplayName: s.DisplayName,
		LastSyncAt:  s.LastSyncAt,
		LastSyncBy:  s.LastSyncBy,
	}
}
