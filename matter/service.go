package matter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrAttorneyNotEligible signals an assignment to an attorney who is not
	// verified or not accepting new clients.
	ErrAttorneyNotEligible = errors.New("matter: attorney not verified or not accepting clients")
)

// Service exposes intake and assignment operations on matters. Status
// changes go through the StatusService so every path shares the same graph
// validation and history writes.
type Service struct {
	pool   *pgxpool.Pool
	repo   *Repository
	status *StatusService
}

func NewService(pool *pgxpool.Pool, repo *Repository, status *StatusService) *Service {
	if repo == nil {
		repo = NewRepository(pool)
	}
	if status == nil {
		status = NewStatusService(pool)
	}
	return &Service{pool: pool, repo: repo, status: status}
}

// Create opens a draft matter. ClientID may be nil for anonymous intake.
func (s *Service) Create(ctx context.Context, params CreateParams) (Matter, error) {
	return s.repo.Create(ctx, params)
}

// Get returns the matter by id.
func (s *Service) Get(ctx context.Context, id string) (Matter, error) {
	return s.repo.Get(ctx, id)
}

// AddParty registers a party for conflict screening.
func (s *Service) AddParty(ctx context.Context, params AddPartyParams) (Party, error) {
	return s.repo.AddParty(ctx, params)
}

// ListParties returns the matter's registered parties.
func (s *Service) ListParties(ctx context.Context, matterID string) ([]Party, error) {
	return s.repo.ListParties(ctx, matterID)
}

// PartyDigests returns the distinct digests the conflict engine screens.
func (s *Service) PartyDigests(ctx context.Context, matterID string) ([]string, error) {
	return s.repo.PartyDigests(ctx, matterID)
}

// History returns the matter's transition audit trail.
func (s *Service) History(ctx context.Context, matterID string) ([]StatusHistory, error) {
	return s.repo.History(ctx, matterID)
}

// Submit moves a draft matter into review.
func (s *Service) Submit(ctx context.Context, matterID string, actorID *string) (Matter, error) {
	return s.status.Submit(ctx, matterID, actorID)
}

// Transition applies an arbitrary requested status change.
func (s *Service) Transition(ctx context.Context, params TransitionParams) (Matter, error) {
	return s.status.Transition(ctx, params)
}

// AssignAttorneyParams identifies one assignment request.
type AssignAttorneyParams struct {
	MatterID   string
	AttorneyID string
	ActorID    *string
}

// AssignAttorney attaches a verified, accepting attorney to a matter in
// matching and opens it. The eligibility read, the matching -> open
// transition, and the assignment fields commit as one transaction.
func (s *Service) AssignAttorney(ctx context.Context, params AssignAttorneyParams) (Matter, error) {
	if params.AttorneyID == "" {
		return Matter{}, fmt.Errorf("matter: attorney id required")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Matter{}, fmt.Errorf("matter: begin assignment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		attorneyName string
		verified     bool
		accepting    bool
		active       bool
	)
	const attorneySQL = `
		SELECT u.full_name, p.verified, p.accepting, u.is_active
		FROM attorney_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`
	if err := tx.QueryRow(ctx, attorneySQL, params.AttorneyID).Scan(&attorneyName, &verified, &accepting, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Matter{}, ErrNotFound
		}
		return Matter{}, fmt.Errorf("matter: load attorney: %w", err)
	}
	if !verified || !accepting || !active {
		return Matter{}, ErrAttorneyNotEligible
	}

	if _, err := s.status.TransitionTx(ctx, tx, TransitionParams{
		MatterID: params.MatterID,
		Target:   StatusOpen,
		ActorID:  params.ActorID,
		Notes:    fmt.Sprintf("assigned to %s", attorneyName),
	}); err != nil {
		return Matter{}, err
	}

	assignSQL := `
		UPDATE matters
		SET attorney_id = $1, assigned_at = now(), updated_at = now()
		WHERE id = $2
		RETURNING ` + matterColumns

	m, err := scanMatter(tx.QueryRow(ctx, assignSQL, params.AttorneyID, params.MatterID))
	if err != nil {
		return Matter{}, fmt.Errorf("matter: assign attorney: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Matter{}, fmt.Errorf("matter: commit assignment: %w", err)
	}
	return m, nil
}
