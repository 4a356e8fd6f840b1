package domain

import "time"

// ImportLog records one ingestion run for audit, including partial-failure
// counts. Rows are append-only.
type ImportLog struct {
	ImportID   string    `json:"importID"` // Primary Key (UUID)
	SourceName string    `json:"sourceName"`
	FileName   string    `json:"fileName"`
	PeriodIDs  []string  `json:"periodIDs"` // periods touched by this run
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
