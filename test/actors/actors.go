package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexconnect/attorney"
	"lexconnect/conflict"
	"lexconnect/matter"
)

// partyNames is shared by submitters and ledger writers so checks actually
// collide on digests.
var partyNames = []string{
	"Acme Holdings", "Beta Logistics LLC", "Carol Meyer", "Delta Partners",
	"Evergreen Trust", "Frank Osei", "Grove Medical Group", "Harbor Lane Realty",
}

// retryable reports errors the actors ride out: canceled work and backends
// the chaos killer terminated mid-query.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57P01 admin shutdown, 57014 query canceled
		return pgErr.Code == "57P01" || pgErr.Code == "57014"
	}
	return pgconn.SafeToRetry(err)
}

// Submitter creates draft matters with a random set of parties and submits
// them, feeding fresh work into the pipeline.
func Submitter(ctx context.Context, pool *pgxpool.Pool, practiceAreaID string, stop <-chan struct{}) error {
	repo := matter.NewRepository(pool)
	status := matter.NewStatusService(pool)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		m, err := repo.Create(ctx, matter.CreateParams{
			Title:          fmt.Sprintf("Stress matter %d", rand.Int63()),
			PracticeAreaID: &practiceAreaID,
		})
		if err != nil {
			if retryable(err) {
				continue
			}
			return fmt.Errorf("submitter create: %w", err)
		}
		for i := 0; i < 1+rand.Intn(3); i++ {
			name := partyNames[rand.Intn(len(partyNames))]
			if _, err := repo.AddParty(ctx, matter.AddPartyParams{MatterID: m.ID, Name: name}); err != nil && !retryable(err) {
				return fmt.Errorf("submitter add party: %w", err)
			}
		}
		if _, err := status.Submit(ctx, m.ID, nil); err != nil && !retryable(err) && !errors.Is(err, matter.ErrInvalidTransition) {
			return fmt.Errorf("submitter submit: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Checker hammers the conflict engine against one shared matter. Concurrent
// runs each get their own check row; failed runs are expected under chaos.
func Checker(ctx context.Context, pool *pgxpool.Pool, matterID string, stop <-chan struct{}) error {
	status := matter.NewStatusService(pool)
	engine := conflict.NewEngine(pool, attorney.NewRepository(pool), status)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := engine.PerformCheck(ctx, conflict.PerformCheckParams{MatterID: matterID}); err != nil {
			switch {
			case retryable(err):
			case errors.Is(err, conflict.ErrCheckFailed):
				// chaos killed the run mid-transaction; a failed row remains
			default:
				return fmt.Errorf("checker: %w", err)
			}
		}
		time.Sleep(time.Duration(30+rand.Intn(60)) * time.Millisecond)
	}
}

// LedgerWriter keeps inserting client records for one attorney from the
// shared name pool, so re-checks see a moving exclusion set. Duplicate
// (attorney, digest) pairs are the common case and must stay silent.
func LedgerWriter(ctx context.Context, pool *pgxpool.Pool, attorneyID string, stop <-chan struct{}) error {
	ledger := conflict.NewLedger(pool)
	relationships := []conflict.RelationshipType{
		conflict.RelationshipCurrentClient,
		conflict.RelationshipPastClient,
		conflict.RelationshipAdverseParty,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, _, err := ledger.AddRecord(ctx, conflict.AddRecordParams{
			AttorneyID:       attorneyID,
			Name:             partyNames[rand.Intn(len(partyNames))],
			RelationshipType: relationships[rand.Intn(len(relationships))],
		})
		if err != nil && !retryable(err) {
			return fmt.Errorf("ledger writer: %w", err)
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// Transitioner fires random transitions at one matter. Most are rejected by
// the graph; every accepted one must leave a history row behind.
func Transitioner(ctx context.Context, pool *pgxpool.Pool, matterID string, stop <-chan struct{}) error {
	status := matter.NewStatusService(pool)
	targets := []matter.Status{
		matter.StatusPending, matter.StatusConflictCheck, matter.StatusMatching,
		matter.StatusInProgress, matter.StatusOnHold, matter.StatusCompleted,
		matter.StatusClosed,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := status.Transition(ctx, matter.TransitionParams{
			MatterID: matterID,
			Target:   targets[rand.Intn(len(targets))],
			Notes:    "stress transition",
		})
		if err != nil {
			switch {
			case retryable(err):
			case errors.Is(err, matter.ErrInvalidTransition):
			case errors.Is(err, matter.ErrConflictCheckRequired):
			default:
				return fmt.Errorf("transitioner: %w", err)
			}
		}
		time.Sleep(time.Duration(40+rand.Intn(80)) * time.Millisecond)
	}
}

// Assigner races to attach an attorney to the shared matter; only one
// matching -> open transition can win.
func Assigner(ctx context.Context, pool *pgxpool.Pool, matterID, attorneyID string, stop <-chan struct{}) error {
	service := matter.NewService(pool, nil, nil)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := service.AssignAttorney(ctx, matter.AssignAttorneyParams{
			MatterID:   matterID,
			AttorneyID: attorneyID,
		})
		if err != nil {
			switch {
			case retryable(err):
			case errors.Is(err, matter.ErrInvalidTransition):
			case errors.Is(err, matter.ErrNotFound):
			case errors.Is(err, matter.ErrAttorneyNotEligible):
			default:
				return fmt.Errorf("assigner: %w", err)
			}
		}
		time.Sleep(time.Duration(100+rand.Intn(150)) * time.Millisecond)
	}
}
