package matter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInvalidTransition signals the requested status change is not an
	// edge in the lifecycle graph. Use errors.Is; the concrete error is a
	// *TransitionError carrying the valid targets.
	ErrInvalidTransition = errors.New("matter: invalid status transition")
	// ErrConflictCheckRequired signals a move into matching was requested
	// before any conflict check completed.
	ErrConflictCheckRequired = errors.New("matter: conflict check must complete before matching")
)

// TransitionError reports a rejected transition together with the targets
// that are valid from the matter's current status, so callers can act on
// the rejection.
type TransitionError struct {
	From    Status
	Target  Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("matter: invalid status transition %s -> %s (%s is terminal)", e.From, e.Target, e.From)
	}
	return fmt.Sprintf("matter: invalid status transition %s -> %s (valid targets: %v)", e.From, e.Target, e.Allowed)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// StatusService owns the matter lifecycle: it validates transitions against
// the graph, stamps state-specific timestamps, and appends the immutable
// history entry, all inside one transaction per call.
type StatusService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStatusService(pool *pgxpool.Pool) *StatusService {
	return &StatusService{pool: pool, now: time.Now}
}

// WithClock overrides the service clock, for tests.
func (s *StatusService) WithClock(now func() time.Time) *StatusService {
	s.now = now
	return s
}

// TransitionParams identifies one requested status change. ActorID is nil
// for anonymous flows and is recorded as such in history.
type TransitionParams struct {
	MatterID string
	Target   Status
	ActorID  *string
	Notes    string
}

// Transition applies one status change in its own transaction. Concurrent
// calls against the same matter serialize on the row lock; the loser
// re-reads the already-moved status and fails the graph check.
func (s *StatusService) Transition(ctx context.Context, params TransitionParams) (Matter, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Matter{}, fmt.Errorf("matter: begin transition tx: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := s.TransitionTx(ctx, tx, params)
	if err != nil {
		return Matter{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Matter{}, fmt.Errorf("matter: commit transition: %w", err)
	}
	return m, nil
}

// TransitionTx applies one status change inside the caller's transaction.
// The conflict engine composes it with its own writes so the check verdict
// and the status advance commit atomically.
func (s *StatusService) TransitionTx(ctx context.Context, tx pgx.Tx, params TransitionParams) (Matter, error) {
	if !ValidStatus(params.Target) {
		return Matter{}, fmt.Errorf("matter: unknown status %q", params.Target)
	}

	var (
		current        Status
		checkCompleted bool
	)
	if err := tx.QueryRow(ctx, `SELECT status::text, conflict_check_completed FROM matters WHERE id = $1 FOR UPDATE`, params.MatterID).
		Scan(&current, &checkCompleted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Matter{}, ErrNotFound
		}
		return Matter{}, fmt.Errorf("matter: fetch current status: %w", err)
	}

	if !CanTransition(current, params.Target) {
		return Matter{}, &TransitionError{From: current, Target: params.Target, Allowed: AllowedTargets(current)}
	}
	if params.Target == StatusMatching && !checkCompleted {
		return Matter{}, ErrConflictCheckRequired
	}

	now := s.now().UTC()
	updateSQL := `
		UPDATE matters
		SET status = $1::matter_status,
		    updated_at = $2,
		    submitted_at = CASE WHEN $1 = 'pending' THEN COALESCE(submitted_at, $2) ELSE submitted_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN COALESCE(completed_at, $2) ELSE completed_at END
		WHERE id = $3
		RETURNING ` + matterColumns

	m, err := scanMatter(tx.QueryRow(ctx, updateSQL, params.Target, now, params.MatterID))
	if err != nil {
		return Matter{}, fmt.Errorf("matter: update status: %w", err)
	}

	if err := insertHistory(ctx, tx, params.MatterID, current, params.Target, params.ActorID, params.Notes, now); err != nil {
		return Matter{}, err
	}

	return m, nil
}

// Submit is the restricted draft -> pending path used by intake. Zero
// parties is permitted: anonymous/public intake may name no counterparties.
func (s *StatusService) Submit(ctx context.Context, matterID string, actorID *string) (Matter, error) {
	return s.Transition(ctx, TransitionParams{
		MatterID: matterID,
		Target:   StatusPending,
		ActorID:  actorID,
		Notes:    "submitted for review",
	})
}

func insertHistory(ctx context.Context, tx pgx.Tx, matterID string, from, to Status, actorID *string, notes string, at time.Time) error {
	const q = `
		INSERT INTO matter_status_history (matter_id, from_status, to_status, actor_id, notes, created_at)
		VALUES ($1, $2::matter_status, $3::matter_status, $4::uuid, $5, $6)
	`
	if _, err := tx.Exec(ctx, q, matterID, from, to, actorID, notes, at); err != nil {
		return fmt.Errorf("matter: insert history: %w", err)
	}
	return nil
}
