package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
)

type PgxSourceRepository struct {
	BaseRepository
}

// newPgxSourceRepository creates a new repository for cost source records.
func newPgxSourceRepository(pool *pgxpool.Pool) portsrepo.SourceRepository {
	return &PgxSourceRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxSourceRepository implements portsrepo.SourceRepository
var _ portsrepo.SourceRepository = (*PgxSourceRepository)(nil)

const sourceColumns = `source_id, name, display_name, last_sync_at, last_sync_by, created_at`

func scanSource(row pgx.Row) (*domain.Source, error) {
	var s domain.Source
	var lastSyncBy *string
	err := row.Scan(&s.SourceID, &s.Name, &s.DisplayName, &s.LastSyncAt, &lastSyncBy, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if lastSyncBy != nil {
		s.LastSyncBy = *lastSyncBy
	}
	return &s, nil
}

// GetOrCreateSource returns the source with the given name, creating it on
// first sight. Creation is race-safe, concurrent imports converge on the
// same row.
func (r *PgxSourceRepository) GetOrCreateSource(ctx context.Context, name string, displayName string) (*domain.Source, error) {
	insert := `
		INSERT INTO sources (source_id, name, display_name, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO NOTHING;
	`
	if _, err := r.Pool.Exec(ctx, insert, uuid.NewString(), name, displayName); err != nil {
		return nil, fmt.Errorf("failed to create source %s: %w", name, err)
	}

	query := `SELECT ` + sourceColumns + ` FROM sources WHERE name = $1;`
	source, err := scanSource(r.Pool.QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("failed to find source %s: %w", name, err)
	}
	return source, nil
}

// UpdateSourceSync records the latest successful import for a source.
func (r *PgxSourceRepository) UpdateSourceSync(ctx context.Context, name string, syncedBy string, syncedAt time.Time) error {
	query := `UPDATE sources SET last_sync_at = $1, last_sync_by = $2 WHERE name = $3;`
	if _, err := r.Pool.Exec(ctx, query, syncedAt, syncedBy, name); err != nil {
		return fmt.Errorf("failed to update sync state for source %s: %w", name, err)
	}
	return nil
}

// ListSources lists all known sources ordered by name.
func (r *PgxSourceRepository) ListSources(ctx context.Context) ([]domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources ORDER BY name;`
	rows, err := r.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer rows.Close()

	sources := []domain.Source{}
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, *source)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sources: %w", err)
	}
	return sources, nil
}
