package repositories

import (
	"context"
	"time"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
)

// SourceRepository manages cost source records
type SourceRepository interface {
	// GetOrCreateSource returns the source with the given name, creating it
	// on first sight.
	GetOrCreateSource(ctx context.Context, name string, displayName string) (*domain.Source, error)

	// UpdateSourceSync records the latest successful import for a source.
	UpdateSourceSync(ctx context.Context, name string, syncedBy string, syncedAt time.Time) error

	// ListSources lists all known sources ordered by name.
	ListSources(ctx context.Context) ([]domain.Source, error)
}

// AuditLogRepository records import and export runs
type AuditLogRepository interface {
	// LogImport appends one import run record.
	LogImport(ctx context.Context, entry domain.ImportLog) error

	// ListImports lists import runs, newest first, optionally filtered by source.
	ListImports(ctx context.Context, sourceName string, limit int) ([]domain.ImportLog, error)

	// LogJournalExport appends one journal generation record.
	LogJournalExport(ctx context.Context, entry domain.JournalExportLog) error

	// ListJournalExports lists journal generation runs for a period, newest first.
	ListJournalExports(ctx context.Context, periodID string) ([]domain.JournalExportLog, error)
}
