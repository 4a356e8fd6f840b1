package services

import (
	"context"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	"github.com/rcdops/chargeback_backend/internal/dto"
)

// JournalSvcFacade generates journal output from a period's billable
// charges.
type JournalSvcFacade interface {
	// GenerateJournal produces journal output for the period in the given
	// mode (detail, summary, gl or template). GL output is verified to
	// balance before it is returned, and every run is logged.
	GenerateJournal(ctx context.Context, periodName string, mode string, actor string) (*dto.JournalResult, error)

	// ListJournalExports lists journal generation runs for a period.
	ListJournalExports(ctx context.Context, periodName string) ([]domain.JournalExportLog, error)
}
