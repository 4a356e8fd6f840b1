package domain

import "time"

// Source is a cost provider feeding FOCUS data into the system, e.g. a
// cloud account export or an on-prem cluster usage report. Rows are created
// lazily the first time a source name appears in an import.
type Source struct {
	SourceID    string     `json:"sourceID"` // Primary Key (UUID)
	Name        string     `json:"name"`     // unique
	DisplayName string     `json:"displayName"`
	LastSyncAt  *time.Time `json:"lastSyncAt"`
	LastSyncBy  string     `json:"lastSyncBy"`
	CreatedAt   time.Time  `json:"createdAt"`
}
