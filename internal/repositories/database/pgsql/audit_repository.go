package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
)

type PgxAuditRepository struct {
	BaseRepository
}

// newPgxAuditRepository creates a new repository for import and export audit logs.
func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditLogRepository {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAuditRepository implements portsrepo.AuditLogRepository
var _ portsrepo.AuditLogRepository = (*PgxAuditRepository)(nil)

// LogImport appends one import run record.
func (r *PgxAuditRepository) LogImport(ctx context.Context, entry domain.ImportLog) error {
	query := `
		INSERT INTO imports (
			import_id, source_name, file_name, period_ids, row_count,
			inserted, updated, skipped, flagged, error_count, dry_run, actor, imported_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.Pool.Exec(ctx, query,
		entry.ImportID, entry.SourceName, entry.FileName, entry.PeriodIDs, entry.RowCount,
		entry.Inserted, entry.Updated, entry.Skipped, entry.Flagged, entry.ErrorCount,
		entry.DryRun, entry.Actor, entry.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log import run: %w", err)
	}
	return nil
}

// ListImports lists import runs, newest first, optionally filtered by source.
func (r *PgxAuditRepository) ListImports(ctx context.Context, sourceName string, limit int) ([]domain.ImportLog, error) {
	query := `
		SELECT import_id, source_name, file_name, period_ids, row_count,
		       inserted, updated, skipped, flagged, error_count, dry_run, actor, imported_at
		FROM imports
	`
	args := []any{}
	if sourceName != "" {
		args = append(args, sourceName)
		query += ` WHERE source_name = $1`
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY imported_at DESC LIMIT $%d;`, len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	entries := []domain.ImportLog{}
	for rows.Next() {
		var e domain.ImportLog
		err := rows.Scan(
			&e.ImportID, &e.SourceName, &e.FileName, &e.PeriodIDs, &e.RowCount,
			&e.Inserted, &e.Updated, &e.Skipped, &e.Flagged, &e.ErrorCount,
			&e.DryRun, &e.Actor, &e.ImportedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read import runs: %w", err)
	}
	return entries, nil
}

// LogJournalExport appends one journal generation record.
func (r *PgxAuditRepository) LogJournalExport(ctx context.Context, entry domain.JournalExportLog) error {
	query := `
		INSERT INTO journal_exports (export_id, period_id, mode, entry_count, total_debit, actor, exported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		entry.ExportID, entry.PeriodID, entry.Mode, entry.EntryCount,
		entry.TotalDebit, entry.Actor, entry.ExportedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log journal export: %w", err)
	}
	return nil
}

// ListJournalExports lists journal generation runs for a period, newest first.
func (r *PgxAuditRepository) ListJournalExports(ctx context.Context, periodID string) ([]domain.JournalExportLog, error) {
	query := `
		SELECT export_id, period_id, mode, entry_count, total_debit, actor, exported_at
		FROM journal_exports
		WHERE period_id = $1
		ORDER BY exported_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal exports: %w", err)
	}
	defer rows.Close()

	entries := []domain.JournalExportLog{}
	for rows.Next() {
		var e domain.JournalExportLog
		err := rows.Scan(&e.ExportID, &e.PeriodID, &e.Mode, &e.EntryCount, &e.TotalDebit, &e.Actor, &e.ExportedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal export: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal exports: %w", err)
	}
	return entries, nil
}
