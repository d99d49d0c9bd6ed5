package conflict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexconnect/attorney"
	"lexconnect/matter"
)

var (
	// ErrMatterNotFound signals the check targeted a matter that does not exist.
	ErrMatterNotFound = errors.New("conflict: matter not found")
	// ErrCheckNotFound signals the requested check does not exist.
	ErrCheckNotFound = errors.New("conflict: check not found")
	// ErrCheckFailed signals the algorithm failed mid-run. The check row is
	// marked failed and no matter fields were touched; re-running is safe.
	ErrCheckFailed = errors.New("conflict: check failed")
)

// CheckFailedError wraps the cause of a failed run together with the id of
// the check row that records the failure.
type CheckFailedError struct {
	CheckID string
	Err     error
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("conflict: check %s failed: %v", e.CheckID, e.Err)
}

func (e *CheckFailedError) Unwrap() error { return e.Err }

func (e *CheckFailedError) Is(target error) bool { return target == ErrCheckFailed }

// Directory resolves the attorney candidate pool; satisfied by
// *attorney.Repository.
type Directory interface {
	CandidatePool(ctx context.Context, q attorney.Querier, filter attorney.PoolFilter) ([]attorney.Profile, error)
}

// StatusMachine advances a matter inside the engine's transaction;
// satisfied by *matter.StatusService.
type StatusMachine interface {
	TransitionTx(ctx context.Context, tx pgx.Tx, params matter.TransitionParams) (matter.Matter, error)
}

// Engine runs conflict checks: it intersects a matter's party digests with
// each candidate attorney's ledger and records an auditable verdict.
type Engine struct {
	pool      *pgxpool.Pool
	directory Directory
	status    StatusMachine
	now       func() time.Time
	idGen     func() string
}

func NewEngine(pool *pgxpool.Pool, directory Directory, status StatusMachine) *Engine {
	return &Engine{
		pool:      pool,
		directory: directory,
		status:    status,
		now:       time.Now,
		idGen:     func() string { return uuid.NewString() },
	}
}

// WithClock overrides the engine clock, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// PerformCheckParams identifies one check request. RequestedBy is nil for
// anonymous checks.
type PerformCheckParams struct {
	MatterID    string
	RequestedBy *string
}

// PerformCheck executes one conflict check run. Every call creates a new
// check row; prior runs are never reused or rewritten. The row is created
// in its own committed transaction so that a failed run leaves a visible
// failed record; the algorithm and all of its side effects (details,
// checked/excluded sets, the matter's gating fields, the status advance)
// then commit atomically or not at all.
func (e *Engine) PerformCheck(ctx context.Context, params PerformCheckParams) (Check, error) {
	if params.MatterID == "" {
		return Check{}, fmt.Errorf("conflict: matter id required")
	}

	started := e.now().UTC()
	checkID := e.idGen()

	const createSQL = `
		INSERT INTO conflict_checks (id, matter_id, requested_by, status, started_at)
		VALUES ($1, $2, $3::uuid, 'in_progress', $4)
	`
	if _, err := e.pool.Exec(ctx, createSQL, checkID, params.MatterID, params.RequestedBy, started); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Check{}, ErrMatterNotFound
		}
		return Check{}, fmt.Errorf("conflict: create check: %w", err)
	}

	check, err := e.runCheck(ctx, checkID, params, started)
	if err != nil {
		e.markFailed(ctx, checkID)
		return Check{}, &CheckFailedError{CheckID: checkID, Err: err}
	}
	return check, nil
}

// runCheck performs steps 2-6 of the algorithm inside one transaction.
func (e *Engine) runCheck(ctx context.Context, checkID string, params PerformCheckParams, started time.Time) (Check, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return Check{}, fmt.Errorf("begin check tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the matter so concurrent runs serialize their gate-field writes:
	// whichever commits last owns the matter's conflict_check_* values.
	var (
		status         matter.Status
		practiceAreaID *string
		jurisdictionID *string
	)
	const matterSQL = `
		SELECT status::text, practice_area_id::text, jurisdiction_id::text
		FROM matters
		WHERE id = $1
		FOR UPDATE
	`
	if err := tx.QueryRow(ctx, matterSQL, params.MatterID).Scan(&status, &practiceAreaID, &jurisdictionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Check{}, ErrMatterNotFound
		}
		return Check{}, fmt.Errorf("lock matter: %w", err)
	}

	digests, err := partyDigests(ctx, tx, params.MatterID)
	if err != nil {
		return Check{}, err
	}

	check := Check{
		ID:          checkID,
		MatterID:    params.MatterID,
		RequestedBy: params.RequestedBy,
		StartedAt:   &started,
	}

	var (
		pool     []attorney.Profile
		excluded = map[string]bool{}
	)

	if len(digests) > 0 {
		pool, err = e.directory.CandidatePool(ctx, tx, attorney.PoolFilter{
			PracticeAreaID: practiceAreaID,
			JurisdictionID: jurisdictionID,
		})
		if err != nil {
			return Check{}, err
		}

		for _, candidate := range pool {
			matches, err := matchingRecords(ctx, tx, candidate.UserID, digests)
			if err != nil {
				return Check{}, err
			}
			if len(matches) == 0 {
				continue
			}
			excluded[candidate.UserID] = true
			for _, rec := range matches {
				if err := insertDetail(ctx, tx, checkID, candidate.UserID, rec); err != nil {
					return Check{}, err
				}
			}
		}

		for _, candidate := range pool {
			const joinSQL = `
				INSERT INTO conflict_check_attorneys (check_id, attorney_id, excluded)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.Exec(ctx, joinSQL, checkID, candidate.UserID, excluded[candidate.UserID]); err != nil {
				return Check{}, fmt.Errorf("record checked attorney: %w", err)
			}
		}
	}

	result := Classify(len(pool), len(excluded))
	completed := e.now().UTC()
	elapsed := int(completed.Sub(started).Milliseconds())

	const completeSQL = `
		UPDATE conflict_checks
		SET status = 'completed',
		    result = $1::check_result,
		    names_checked_count = $2,
		    completed_at = $3,
		    processing_time_ms = $4
		WHERE id = $5
	`
	if _, err := tx.Exec(ctx, completeSQL, result, len(digests), completed, elapsed, checkID); err != nil {
		return Check{}, fmt.Errorf("complete check: %w", err)
	}

	// Matter side effects are an explicit, sequenced step: gate fields
	// first, then the status advance that reads them.
	passed := result != ResultConflict
	const gateSQL = `
		UPDATE matters
		SET conflict_check_completed = true,
		    conflict_check_passed = $1,
		    conflict_check_date = $2,
		    updated_at = $2
		WHERE id = $3
	`
	if _, err := tx.Exec(ctx, gateSQL, passed, completed, params.MatterID); err != nil {
		return Check{}, fmt.Errorf("update matter gate: %w", err)
	}

	if status == matter.StatusPending {
		if _, err := e.status.TransitionTx(ctx, tx, matter.TransitionParams{
			MatterID: params.MatterID,
			Target:   matter.StatusConflictCheck,
			ActorID:  params.RequestedBy,
			Notes:    "conflict check in progress",
		}); err != nil {
			return Check{}, err
		}
		status = matter.StatusConflictCheck
	}
	if status == matter.StatusConflictCheck {
		if _, err := e.status.TransitionTx(ctx, tx, matter.TransitionParams{
			MatterID: params.MatterID,
			Target:   matter.StatusMatching,
			ActorID:  params.RequestedBy,
			Notes:    fmt.Sprintf("conflict check completed: %s", result),
		}); err != nil {
			return Check{}, err
		}
	}
	// Matters already past conflict screening keep their status; re-checks
	// refresh only the gate fields.

	if err := tx.Commit(ctx); err != nil {
		return Check{}, fmt.Errorf("commit check: %w", err)
	}

	check.Status = CheckCompleted
	check.Result = &result
	check.NamesCheckedCount = len(digests)
	check.CompletedAt = &completed
	check.ProcessingTimeMS = &elapsed
	for _, candidate := range pool {
		check.CheckedAttorneys = append(check.CheckedAttorneys, candidate.UserID)
		if excluded[candidate.UserID] {
			check.ExcludedAttorneys = append(check.ExcludedAttorneys, candidate.UserID)
		}
	}
	return check, nil
}

// markFailed stamps the check row after a rolled-back run. Best effort: the
// run's error is what propagates to the caller.
func (e *Engine) markFailed(ctx context.Context, checkID string) {
	const failSQL = `
		UPDATE conflict_checks
		SET status = 'failed', completed_at = $1
		WHERE id = $2 AND status = 'in_progress'
	`
	_, _ = e.pool.Exec(ctx, failSQL, e.now().UTC(), checkID)
}

// AvailableAttorneys returns the candidate pool minus the exclusions of the
// matter's most recently completed check. No completed check means no
// attorneys: absence of a check is never treated as a pass.
func (e *Engine) AvailableAttorneys(ctx context.Context, matterID string) ([]attorney.Profile, error) {
	var (
		practiceAreaID *string
		jurisdictionID *string
	)
	if err := e.pool.QueryRow(ctx, `SELECT practice_area_id::text, jurisdiction_id::text FROM matters WHERE id = $1`, matterID).
		Scan(&practiceAreaID, &jurisdictionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatterNotFound
		}
		return nil, fmt.Errorf("conflict: load matter: %w", err)
	}

	const latestSQL = `
		SELECT id
		FROM conflict_checks
		WHERE matter_id = $1 AND status = 'completed'
		ORDER BY completed_at DESC
		LIMIT 1
	`
	var checkID string
	if err := e.pool.QueryRow(ctx, latestSQL, matterID).Scan(&checkID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []attorney.Profile{}, nil
		}
		return nil, fmt.Errorf("conflict: latest check: %w", err)
	}

	excludedRows, err := e.pool.Query(ctx, `SELECT attorney_id::text FROM conflict_check_attorneys WHERE check_id = $1 AND excluded`, checkID)
	if err != nil {
		return nil, fmt.Errorf("conflict: excluded set: %w", err)
	}
	defer excludedRows.Close()

	excluded := map[string]bool{}
	for excludedRows.Next() {
		var id string
		if err := excludedRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("conflict: scan excluded: %w", err)
		}
		excluded[id] = true
	}
	if err := excludedRows.Err(); err != nil {
		return nil, fmt.Errorf("conflict: iterate excluded: %w", err)
	}

	pool, err := e.directory.CandidatePool(ctx, nil, attorney.PoolFilter{
		PracticeAreaID: practiceAreaID,
		JurisdictionID: jurisdictionID,
	})
	if err != nil {
		return nil, err
	}

	available := make([]attorney.Profile, 0, len(pool))
	for _, p := range pool {
		if !excluded[p.UserID] {
			available = append(available, p)
		}
	}
	return available, nil
}

func partyDigests(ctx context.Context, tx pgx.Tx, matterID string) ([]string, error) {
	rows, err := tx.Query(ctx, `SELECT DISTINCT name_hash FROM matter_parties WHERE matter_id = $1`, matterID)
	if err != nil {
		return nil, fmt.Errorf("party digests: %w", err)
	}
	defer rows.Close()

	digests := make([]string, 0, 8)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scan party digest: %w", err)
		}
		digests = append(digests, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate party digests: %w", err)
	}
	return digests, nil
}

// matchingRecords intersects one attorney's own ledger with the matter's
// digest set. Ledgers are never compared across attorneys.
func matchingRecords(ctx context.Context, tx pgx.Tx, attorneyID string, digests []string) ([]LedgerRecord, error) {
	const query = `
		SELECT ` + ledgerColumns + `
		FROM attorney_client_records
		WHERE attorney_id = $1 AND name_hash = ANY($2::text[])
		ORDER BY created_at ASC
	`

	rows, err := tx.Query(ctx, query, attorneyID, digests)
	if err != nil {
		return nil, fmt.Errorf("match ledger: %w", err)
	}
	defer rows.Close()

	records := make([]LedgerRecord, 0, 2)
	for rows.Next() {
		var rec LedgerRecord
		if err := rows.Scan(&rec.ID, &rec.AttorneyID, &rec.NameHash, &rec.RelationshipType, &rec.MatterID, &rec.StartDate, &rec.EndDate, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger match: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger matches: %w", err)
	}
	return records, nil
}

func insertDetail(ctx context.Context, tx pgx.Tx, checkID, attorneyID string, rec LedgerRecord) error {
	const query = `
		INSERT INTO conflict_details (check_id, attorney_id, conflicting_name_hash, conflict_type, description, client_record_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	description := fmt.Sprintf("conflict with %s", rec.RelationshipType.Label())
	if _, err := tx.Exec(ctx, query, checkID, attorneyID, rec.NameHash, string(rec.RelationshipType), description, rec.ID); err != nil {
		return fmt.Errorf("insert conflict detail: %w", err)
	}
	return nil
}
