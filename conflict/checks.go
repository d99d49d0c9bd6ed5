package conflict

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const checkColumns = `
	id, matter_id::text, requested_by::text, status::text, result::text,
	names_checked_count, started_at, completed_at, processing_time_ms, created_at
`

// GetCheck loads one check with its checked/excluded attorney sets.
func (e *Engine) GetCheck(ctx context.Context, checkID string) (Check, error) {
	query := `SELECT ` + checkColumns + ` FROM conflict_checks WHERE id = $1`

	check, err := scanCheck(e.pool.QueryRow(ctx, query, checkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Check{}, ErrCheckNotFound
		}
		return Check{}, fmt.Errorf("conflict: get check: %w", err)
	}

	if err := e.loadAttorneySets(ctx, &check); err != nil {
		return Check{}, err
	}
	return check, nil
}

// LatestCompleted resolves the matter's most recently completed check by
// completion timestamp, the only row consulted for gating decisions.
func (e *Engine) LatestCompleted(ctx context.Context, matterID string) (Check, error) {
	query := `
		SELECT ` + checkColumns + `
		FROM conflict_checks
		WHERE matter_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1
	`

	check, err := scanCheck(e.pool.QueryRow(ctx, query, matterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Check{}, ErrCheckNotFound
		}
		return Check{}, fmt.Errorf("conflict: latest completed check: %w", err)
	}

	if err := e.loadAttorneySets(ctx, &check); err != nil {
		return Check{}, err
	}
	return check, nil
}

// ChecksForMatter returns the matter's full check history, newest first.
// Prior runs are retained indefinitely for audit.
func (e *Engine) ChecksForMatter(ctx context.Context, matterID string) ([]Check, error) {
	query := `
		SELECT ` + checkColumns + `
		FROM conflict_checks
		WHERE matter_id = $1
		ORDER BY created_at DESC
	`

	rows, err := e.pool.Query(ctx, query, matterID)
	if err != nil {
		return nil, fmt.Errorf("conflict: checks for matter: %w", err)
	}
	defer rows.Close()

	checks := make([]Check, 0, 4)
	for rows.Next() {
		check, err := scanCheck(rows)
		if err != nil {
			return nil, fmt.Errorf("conflict: scan check: %w", err)
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflict: iterate checks: %w", err)
	}
	return checks, nil
}

// ListDetails returns the matched-conflict rows recorded by one check.
func (e *Engine) ListDetails(ctx context.Context, checkID string) ([]Detail, error) {
	const query = `
		SELECT id, check_id, attorney_id::text, conflicting_name_hash,
		       conflict_type, description, client_record_id::text, created_at
		FROM conflict_details
		WHERE check_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := e.pool.Query(ctx, query, checkID)
	if err != nil {
		return nil, fmt.Errorf("conflict: list details: %w", err)
	}
	defer rows.Close()

	details := make([]Detail, 0, 4)
	for rows.Next() {
		var d Detail
		if err := rows.Scan(&d.ID, &d.CheckID, &d.AttorneyID, &d.NameHash, &d.ConflictType, &d.Description, &d.ClientRecordID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("conflict: scan detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflict: iterate details: %w", err)
	}
	return details, nil
}

func (e *Engine) loadAttorneySets(ctx context.Context, check *Check) error {
	rows, err := e.pool.Query(ctx, `SELECT attorney_id::text, excluded FROM conflict_check_attorneys WHERE check_id = $1`, check.ID)
	if err != nil {
		return fmt.Errorf("conflict: attorney sets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       string
			excluded bool
		)
		if err := rows.Scan(&id, &excluded); err != nil {
			return fmt.Errorf("conflict: scan attorney set: %w", err)
		}
		check.CheckedAttorneys = append(check.CheckedAttorneys, id)
		if excluded {
			check.ExcludedAttorneys = append(check.ExcludedAttorneys, id)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("conflict: iterate attorney sets: %w", err)
	}
	return nil
}

func scanCheck(row pgx.Row) (Check, error) {
	var (
		check  Check
		result *string
	)
	err := row.Scan(
		&check.ID,
		&check.MatterID,
		&check.RequestedBy,
		&check.Status,
		&result,
		&check.NamesCheckedCount,
		&check.StartedAt,
		&check.CompletedAt,
		&check.ProcessingTimeMS,
		&check.CreatedAt,
	)
	if err != nil {
		return Check{}, err
	}
	if result != nil {
		r := CheckResult(*result)
		check.Result = &r
	}
	return check, nil
}
