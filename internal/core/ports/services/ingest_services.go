package services

import (
	"context"
	"io"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	"github.com/rcdops/chargeback_backend/internal/dto"
)

// IngestSvcFacade ingests FOCUS cost exports and exposes the import audit
// trail.
type IngestSvcFacade interface {
	// IngestCSV parses a FOCUS CSV stream, flags charges per the review
	// rules, and upserts them into their billing periods. Batches targeting
	// finalized periods are refused as a whole; individual bad lines are
	// reported in the result.
	IngestCSV(ctx context.Context, r io.Reader, params dto.IngestParams) (*dto.IngestResult, error)

	// ListImports lists import runs, newest first, optionally filtered by
	// source name.
	ListImports(ctx context.Context, sourceName string, limit int) ([]domain.ImportLog, error)

	// ListSources lists all known cost sources.
	ListSources(ctx context.Context) ([]domain.Source, error)
}
