package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rcdops/chargeback_backend/internal/apperrors"
	"github.com/rcdops/chargeback_backend/internal/core/domain"
	portsrepo "github.com/rcdops/chargeback_backend/internal/core/ports/repositories"
)

type PgxChargeRepository struct {
	BaseRepository
}

// newPgxChargeRepository creates a new repository for charge and review data.
func newPgxChargeRepository(pool *pgxpool.Pool) portsrepo.ChargeRepositoryFacade {
	return &PgxChargeRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxChargeRepository implements portsrepo.ChargeRepositoryFacade
var _ portsrepo.ChargeRepositoryFacade = (*PgxChargeRepository)(nil)

const chargeColumns = `
	charge_id, period_id, source_name, resource_key, resource_id, resource_name, service_name,
	charge_period_start, charge_period_end,
	list_cost, contracted_cost, billed_cost, effective_cost,
	stakeholder_email, project_id, fund_org, account_code, reference_1, reference_2, raw_tags,
	flagged, flag_reason, flag_detail, rejected, reviewed_at, reviewed_by, imported_at
`

func scanCharge(row pgx.Row) (*domain.Charge, error) {
	var c domain.Charge
	var reviewedBy *string
	err := row.Scan(
		&c.ChargeID,
		&c.PeriodID,
		&c.SourceName,
		&c.ResourceKey,
		&c.ResourceID,
		&c.ResourceName,
		&c.ServiceName,
		&c.ChargePeriodStart,
		&c.ChargePeriodEnd,
		&c.ListCost,
		&c.ContractedCost,
		&c.BilledCost,
		&c.EffectiveCost,
		&c.StakeholderEmail,
		&c.ProjectID,
		&c.FundOrg,
		&c.AccountCode,
		&c.Reference1,
		&c.Reference2,
		&c.RawTags,
		&c.Flagged,
		&c.FlagReason,
		&c.FlagDetail,
		&c.Rejected,
		&c.ReviewedAt,
		&reviewedBy,
		&c.ImportedAt,
	)
	if err != nil {
		return nil, err
	}
	if reviewedBy != nil {
		c.ReviewedBy = *reviewedBy
	}
	return &c, nil
}

// UpsertCharges inserts or updates a batch of charges by the natural key
// (period, source, resource key, charge period start) within a single
// transaction. Rows whose data and flag outcome are unchanged are skipped.
// Flag state is recomputed on every import, so a previously approved charge
// that still trips a rule comes back for review. Rejection is permanent and
// never touched here.
func (r *PgxChargeRepository) UpsertCharges(ctx context.Context, periodID string, charges []domain.Charge) (domain.UpsertCounts, error) {
	var counts domain.UpsertCounts
	if len(charges) == 0 {
		return counts, nil
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return counts, err
	}
	defer r.Rollback(ctx, tx)

	query := `
		INSERT INTO charges (
			charge_id, period_id, source_name, resource_key, resource_id, resource_name, service_name,
			charge_period_start, charge_period_end,
			list_cost, contracted_cost, billed_cost, effective_cost,
			stakeholder_email, project_id, fund_org, account_code, reference_1, reference_2, raw_tags,
			flagged, flag_reason, flag_detail, imported_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (period_id, source_name, resource_key, charge_period_start) DO UPDATE SET
			resource_id = EXCLUDED.resource_id,
			resource_name = EXCLUDED.resource_name,
			service_name = EXCLUDED.service_name,
			charge_period_end = EXCLUDED.charge_period_end,
			list_cost = EXCLUDED.list_cost,
			contracted_cost = EXCLUDED.contracted_cost,
			billed_cost = EXCLUDED.billed_cost,
			effective_cost = EXCLUDED.effective_cost,
			stakeholder_email = EXCLUDED.stakeholder_email,
			project_id = EXCLUDED.project_id,
			fund_org = EXCLUDED.fund_org,
			account_code = EXCLUDED.account_code,
			reference_1 = EXCLUDED.reference_1,
			reference_2 = EXCLUDED.reference_2,
			raw_tags = EXCLUDED.raw_tags,
			flagged = EXCLUDED.flagged,
			flag_reason = EXCLUDED.flag_reason,
			flag_detail = EXCLUDED.flag_detail,
			reviewed_at = NULL,
			reviewed_by = NULL,
			imported_at = EXCLUDED.imported_at
		WHERE charges.billed_cost IS DISTINCT FROM EXCLUDED.billed_cost
		   OR charges.list_cost IS DISTINCT FROM EXCLUDED.list_cost
		   OR charges.effective_cost IS DISTINCT FROM EXCLUDED.effective_cost
		   OR charges.raw_tags IS DISTINCT FROM EXCLUDED.raw_tags
		   OR charges.stakeholder_email IS DISTINCT FROM EXCLUDED.stakeholder_email
		   OR charges.fund_org IS DISTINCT FROM EXCLUDED.fund_org
		   OR charges.flagged IS DISTINCT FROM EXCLUDED.flagged
		   OR charges.flag_reason IS DISTINCT FROM EXCLUDED.flag_reason
		RETURNING (xmax = 0) AS inserted;
	`

	batch := &pgx.Batch{}
	for _, c := range charges {
		batch.Queue(query,
			c.ChargeID,
			periodID,
			c.SourceName,
			c.ResourceKey,
			c.ResourceID,
			c.ResourceName,
			c.ServiceName,
			c.ChargePeriodStart,
			c.ChargePeriodEnd,
			c.ListCost,
			c.ContractedCost,
			c.BilledCost,
			c.EffectiveCost,
			c.StakeholderEmail,
			c.ProjectID,
			c.FundOrg,
			c.AccountCode,
			c.Reference1,
			c.Reference2,
			c.RawTags,
			c.Flagged,
			c.FlagReason,
			c.FlagDetail,
			c.ImportedAt,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range charges {
		var inserted bool
		err := results.QueryRow().Scan(&inserted)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// Conflict hit but nothing changed, the WHERE filtered it out.
			counts.Skipped++
		case err != nil:
			_ = results.Close()
			return domain.UpsertCounts{}, fmt.Errorf("failed to upsert charge: %w", err)
		case inserted:
			counts.Inserted++
		default:
			counts.Updated++
		}
	}
	if err := results.Close(); err != nil {
		return domain.UpsertCounts{}, fmt.Errorf("failed to finish charge batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.UpsertCounts{}, fmt.Errorf("failed to commit charge batch: %w", err)
	}
	return counts, nil
}

// FindChargeByID retrieves a single charge.
func (r *PgxChargeRepository) FindChargeByID(ctx context.Context, chargeID string) (*domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE charge_id = $1;`
	charge, err := scanCharge(r.Pool.QueryRow(ctx, query, chargeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find charge %s: %w", chargeID, err)
	}
	return charge, nil
}

// FindChargesForPeriod lists charges in a period. Rejected charges are
// never returned; flagged ones only when the filter asks for them.
func (r *PgxChargeRepository) FindChargesForPeriod(ctx context.Context, periodID string, filter portsrepo.ChargeFilter) ([]domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE period_id = $1 AND NOT rejected`
	args := []any{periodID}

	if !filter.IncludeFlagged {
		query += ` AND NOT flagged`
	}
	if filter.SourceName != "" {
		args = append(args, filter.SourceName)
		query += fmt.Sprintf(` AND source_name = $%d`, len(args))
	}
	if filter.StakeholderEmail != "" {
		args = append(args, filter.StakeholderEmail)
		query += fmt.Sprintf(` AND stakeholder_email = $%d`, len(args))
	}
	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(` AND project_id = $%d`, len(args))
	}
	if filter.FlagReason != nil {
		args = append(args, *filter.FlagReason)
		query += fmt.Sprintf(` AND flag_reason = $%d`, len(args))
	}
	query += ` ORDER BY source_name, charge_period_start, resource_key;`

	return r.queryCharges(ctx, query, args...)
}

// FindFlaggedCharges lists charges awaiting review. An empty periodID
// spans all periods.
func (r *PgxChargeRepository) FindFlaggedCharges(ctx context.Context, periodID string, reason *domain.FlagReason) ([]domain.Charge, error) {
	query := `SELECT ` + chargeColumns + ` FROM charges WHERE flagged AND NOT rejected`
	var args []any
	if periodID != "" {
		args = append(args, periodID)
		query += fmt.Sprintf(` AND period_id = $%d`, len(args))
	}
	if reason != nil {
		args = append(args, *reason)
		query += fmt.Sprintf(` AND flag_reason = $%d`, len(args))
	}
	query += ` ORDER BY flag_reason, source_name, resource_key;`

	return r.queryCharges(ctx, query, args...)
}

func (r *PgxChargeRepository) queryCharges(ctx context.Context, query string, args ...any) ([]domain.Charge, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query charges: %w", err)
	}
	defer rows.Close()

	charges := []domain.Charge{}
	for rows.Next() {
		charge, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		charges = append(charges, *charge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read charges: %w", err)
	}
	return charges, nil
}

const insertReviewAction = `
	INSERT INTO review_actions (action_id, charge_id, period_id, decision, reason, notes, actor, acted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`

// ApproveCharge clears the flag on a charge and records the review action
// in the same transaction.
func (r *PgxChargeRepository) ApproveCharge(ctx context.Context, chargeID string, action domain.ReviewAction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	update := `
		UPDATE charges
		SET flagged = FALSE, reviewed_at = $1, reviewed_by = $2
		WHERE charge_id = $3 AND NOT rejected;
	`
	tag, err := tx.Exec(ctx, update, action.ActedAt, action.Actor, chargeID)
	if err != nil {
		return fmt.Errorf("failed to approve charge %s: %w", chargeID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, insertReviewAction,
		action.ActionID, chargeID, action.PeriodID, action.Decision,
		action.Reason, action.Notes, action.Actor, action.ActedAt,
	); err != nil {
		return fmt.Errorf("failed to record approval for charge %s: %w", chargeID, err)
	}

	return tx.Commit(ctx)
}

// ApproveAllForPeriod clears every outstanding flag in a period, recording
// one review action per charge, all in one transaction.
func (r *PgxChargeRepository) ApproveAllForPeriod(ctx context.Context, periodID string, action domain.ReviewAction) (int, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	update := `
		UPDATE charges
		SET flagged = FALSE, reviewed_at = $1, reviewed_by = $2
		WHERE period_id = $3 AND flagged AND NOT rejected
		RETURNING charge_id, flag_reason;
	`
	rows, err := tx.Query(ctx, update, action.ActedAt, action.Actor, periodID)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk approve charges for period %s: %w", periodID, err)
	}

	type approval struct {
		chargeID string
		reason   string
	}
	approvals := []approval{}
	for rows.Next() {
		var a approval
		if err := rows.Scan(&a.chargeID, &a.reason); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan approved charge: %w", err)
		}
		approvals = append(approvals, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read approved charges: %w", err)
	}

	batch := &pgx.Batch{}
	for _, a := range approvals {
		batch.Queue(insertReviewAction,
			uuid.NewString(), a.chargeID, periodID, action.Decision,
			a.reason, action.Notes, action.Actor, action.ActedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("failed to record bulk approvals for period %s: %w", periodID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit bulk approval: %w", err)
	}
	return len(approvals), nil
}

// RejectCharge permanently excludes a charge from billing and records the
// review action in the same transaction. The flag reason is kept for audit.
func (r *PgxChargeRepository) RejectCharge(ctx context.Context, chargeID string, action domain.ReviewAction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	update := `
		UPDATE charges
		SET rejected = TRUE, flagged = FALSE, reviewed_at = $1, reviewed_by = $2
		WHERE charge_id = $3 AND NOT rejected;
	`
	tag, err := tx.Exec(ctx, update, action.ActedAt, action.Actor, chargeID)
	if err != nil {
		return fmt.Errorf("failed to reject charge %s: %w", chargeID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if _, err := tx.Exec(ctx, insertReviewAction,
		action.ActionID, chargeID, action.PeriodID, action.Decision,
		action.Reason, action.Notes, action.Actor, action.ActedAt,
	); err != nil {
		return fmt.Errorf("failed to record rejection for charge %s: %w", chargeID, err)
	}

	return tx.Commit(ctx)
}

// ListReviewActions lists review actions for a period, newest first.
func (r *PgxChargeRepository) ListReviewActions(ctx context.Context, periodID string) ([]domain.ReviewAction, error) {
	query := `
		SELECT action_id, charge_id, period_id, decision, reason, notes, actor, acted_at
		FROM review_actions
		WHERE period_id = $1
		ORDER BY acted_at DESC, action_id;
	`
	rows, err := r.Pool.Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to query review actions: %w", err)
	}
	defer rows.Close()

	actions := []domain.ReviewAction{}
	for rows.Next() {
		var a domain.ReviewAction
		if err := rows.Scan(&a.ActionID, &a.ChargeID, &a.PeriodID, &a.Decision, &a.Reason, &a.Notes, &a.Actor, &a.ActedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review action: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read review actions: %w", err)
	}
	return actions, nil
}
