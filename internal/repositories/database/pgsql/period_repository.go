package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
)

type PgxPeriodRepository struct {
	BaseRepository
}

// newPgxPeriodRepository creates a new repository for billing period data.
func newPgxPeriodRepository(pool *pgxpool.Pool) portsrepo.PeriodRepositoryFacade {
	return &PgxPeriodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxPeriodRepository implements portsrepo.PeriodRepositoryFacade
var _ portsrepo.PeriodRepositoryFacade = (*PgxPeriodRepository)(nil)

const periodColumns = `
	period_id, name, status, opened_at, closed_at, closed_by,
	finalized_at, finalized_by, finalization_notes,
	reopened_at, reopened_by, reopen_reason
`

func scanPeriod(row pgx.Row) (*domain.Period, error) {
	var p domain.Period
	var closedBy, finalizedBy, notes, reopenedBy, reopenReason *string
	err := row.Scan(
		&p.PeriodID,
		&p.Name,
		&p.Status,
		&p.OpenedAt,
		&p.ClosedAt,
		&closedBy,
		&p.FinalizedAt,
		&finalizedBy,
		&notes,
		&p.ReopenedAt,
		&reopenedBy,
		&reopenReason,
	)
	if err != nil {
		return nil, err
	}
	if closedBy != nil {
		p.ClosedBy = *closedBy
	}
	if finalizedBy != nil {
		p.FinalizedBy = *finalizedBy
	}
	if notes != nil {
		p.FinalizationNotes = *notes
	}
	if reopenedBy != nil {
		p.ReopenedBy = *reopenedBy
	}
	if reopenReason != nil {
		p.ReopenReason = *reopenReason
	}
	return &p, nil
}

// GetOrCreatePeriod returns the named period, creating it open when absent.
func (r *PgxPeriodRepository) GetOrCreatePeriod(ctx context.Context, name string, openedAt time.Time) (*domain.Period, error) {
	insert := `
		INSERT INTO billing_periods (period_id, name, status, opened_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO NOTHING;
	`
	if _, err := r.Pool.Exec(ctx, insert, uuid.NewString(), name, domain.PeriodOpen, openedAt); err != nil {
		return nil, fmt.Errorf("failed to create period %s: %w", name, err)
	}
	return r.FindPeriodByName(ctx, name)
}

// FindPeriodByName retrieves a period by its YYYY-MM name.
func (r *PgxPeriodRepository) FindPeriodByName(ctx context.Context, name string) (*domain.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM billing_periods WHERE name = $1;`
	period, err := scanPeriod(r.Pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find period by name %s: %w", name, err)
	}
	return period, nil
}

// FindPeriodByID retrieves a period by its unique identifier.
func (r *PgxPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM billing_periods WHERE period_id = $1;`
	period, err := scanPeriod(r.Pool.QueryRow(ctx, query, periodID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find period %s: %w", periodID, err)
	}
	return period, nil
}

// ListPeriods retrieves all periods ordered by name descending.
func (r *PgxPeriodRepository) ListPeriods(ctx context.Context, status *domain.PeriodStatus) ([]domain.Period, error) {
	query := `SELECT ` + periodColumns + ` FROM billing_periods`
	args := []any{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY name DESC;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()

	periods := []domain.Period{}
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan period: %w", err)
		}
		periods = append(periods, *period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read periods: %w", err)
	}
	return periods, nil
}

// ClosePeriod conditionally moves an open period to closed.
func (r *PgxPeriodRepository) ClosePeriod(ctx context.Context, periodID string, closedBy string, closedAt time.Time) (bool, error) {
	query := `
		UPDATE billing_periods
		SET status = $1, closed_at = $2, closed_by = $3
		WHERE period_id = $4 AND status = $5;
	`
	tag, err := r.Pool.Exec(ctx, query, domain.PeriodClosed, closedAt, closedBy, periodID, domain.PeriodOpen)
	if err != nil {
		return false, fmt.Errorf("failed to close period %s: %w", periodID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReopenPeriod conditionally moves a closed period back to open.
func (r *PgxPeriodRepository) ReopenPeriod(ctx context.Context, periodID string, reopenedBy string, reason string, reopenedAt time.Time) (bool, error) {
	query := `
		UPDATE billing_periods
		SET status = $1, reopened_at = $2, reopened_by = $3, reopen_reason = $4,
		    closed_at = NULL, closed_by = NULL
		WHERE period_id = $5 AND status = $6;
	`
	tag, err := r.Pool.Exec(ctx, query, domain.PeriodOpen, reopenedAt, reopenedBy, reason, periodID, domain.PeriodClosed)
	if err != nil {
		return false, fmt.Errorf("failed to reopen period %s: %w", periodID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// FinalizePeriod conditionally moves a closed period to finalized.
func (r *PgxPeriodRepository) FinalizePeriod(ctx context.Context, periodID string, finalizedBy string, notes string, finalizedAt time.Time) (bool, error) {
	query := `
		UPDATE billing_periods
		SET status = $1, finalized_at = $2, finalized_by = $3, finalization_notes = $4
		WHERE period_id = $5 AND status = $6;
	`
	tag, err := r.Pool.Exec(ctx, query, domain.PeriodFinalized, finalizedAt, finalizedBy, notes, periodID, domain.PeriodClosed)
	if err != nil {
		return false, fmt.Errorf("failed to finalize period %s: %w", periodID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetPeriodStats computes charge counts and cost totals for a period.
// Rejected charges are excluded from every figure.
func (r *PgxPeriodRepository) GetPeriodStats(ctx context.Context, periodID string) (*domain.PeriodStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(billed_cost), 0),
			COUNT(DISTINCT stakeholder_email) FILTER (WHERE stakeholder_email <> ''),
			COUNT(DISTINCT project_id) FILTER (WHERE project_id <> ''),
			COUNT(*) FILTER (WHERE flagged),
			COALESCE(SUM(billed_cost) FILTER (WHERE flagged), 0)
		FROM charges
		WHERE period_id = $1 AND NOT rejected;
	`
	var stats domain.PeriodStats
	err := r.Pool.QueryRow(ctx, query, periodID).Scan(
		&stats.ChargeCount,
		&stats.TotalBilledCost,
		&stats.StakeholderCount,
		&stats.ProjectCount,
		&stats.FlaggedCount,
		&stats.FlaggedCost,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute period stats for %s: %w", periodID, err)
	}
	return &stats, nil
}
