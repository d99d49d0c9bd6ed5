package matter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexconnect/identity"
)

var (
	// ErrNotFound signals the requested matter does not exist.
	ErrNotFound = errors.New("matter: not found")
	// ErrEmptyPartyName signals a party was supplied without a usable name.
	ErrEmptyPartyName = errors.New("matter: party name required")
	// ErrNotDeletable signals a delete was attempted outside draft/cancelled.
	ErrNotDeletable = errors.New("matter: only draft or cancelled matters can be deleted")
)

// Repository handles persistence for matters, their parties, and their
// status history.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed matter repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const matterColumns = `
	id, client_id::text, attorney_id::text, title, description,
	practice_area_id::text, jurisdiction_id::text, status::text,
	conflict_check_completed, conflict_check_passed, conflict_check_date,
	created_at, updated_at, submitted_at, assigned_at, completed_at
`

// CreateParams enumerates intake fields. ClientID is nil for anonymous
// intake.
type CreateParams struct {
	ClientID       *string
	Title          string
	Description    string
	PracticeAreaID *string
	JurisdictionID *string
}

// Create inserts a new matter in draft status.
func (r *Repository) Create(ctx context.Context, params CreateParams) (Matter, error) {
	if strings.TrimSpace(params.Title) == "" {
		return Matter{}, fmt.Errorf("matter: title required")
	}

	query := `
		INSERT INTO matters (client_id, title, description, practice_area_id, jurisdiction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + matterColumns

	m, err := scanMatter(r.pool.QueryRow(ctx, query,
		params.ClientID,
		strings.TrimSpace(params.Title),
		params.Description,
		params.PracticeAreaID,
		params.JurisdictionID,
	))
	if err != nil {
		return Matter{}, fmt.Errorf("matter: create: %w", err)
	}
	return m, nil
}

// Get fetches a matter by id.
func (r *Repository) Get(ctx context.Context, id string) (Matter, error) {
	query := `SELECT ` + matterColumns + ` FROM matters WHERE id = $1`

	m, err := scanMatter(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Matter{}, ErrNotFound
		}
		return Matter{}, fmt.Errorf("matter: get: %w", err)
	}
	return m, nil
}

// Delete removes a matter that never left intake. Matters past draft or
// cancelled are retained for audit and cannot be hard-deleted.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM matters WHERE id = $1 AND status IN ('draft', 'cancelled')`, id)
	if err != nil {
		return fmt.Errorf("matter: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM matters WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("matter: delete check: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrNotDeletable
	}
	return nil
}

// AddPartyParams enumerates the fields for registering a party.
type AddPartyParams struct {
	MatterID  string
	Name      string
	PartyType PartyType
	Role      PartyRole
}

// AddParty registers a named party on a matter, deriving the name digest at
// insert time so ledger comparisons never see plaintext-only rows.
func (r *Repository) AddParty(ctx context.Context, params AddPartyParams) (Party, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return Party{}, ErrEmptyPartyName
	}
	if params.PartyType == "" {
		params.PartyType = PartyIndividual
	}
	if params.Role == "" {
		params.Role = PartyOpposing
	}

	const query = `
		INSERT INTO matter_parties (matter_id, name, party_type, role, name_hash)
		VALUES ($1, $2, $3::party_type, $4::party_role, $5)
		RETURNING id, matter_id, name, party_type::text, role::text, name_hash, created_at
	`

	var p Party
	err := r.pool.QueryRow(ctx, query,
		params.MatterID,
		name,
		params.PartyType,
		params.Role,
		identity.Digest(name),
	).Scan(&p.ID, &p.MatterID, &p.Name, &p.PartyType, &p.Role, &p.NameHash, &p.CreatedAt)
	if err != nil {
		return Party{}, fmt.Errorf("matter: add party: %w", err)
	}
	return p, nil
}

// ListParties returns all parties registered on a matter.
func (r *Repository) ListParties(ctx context.Context, matterID string) ([]Party, error) {
	const query = `
		SELECT id, matter_id, name, party_type::text, role::text, name_hash, created_at
		FROM matter_parties
		WHERE matter_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, matterID)
	if err != nil {
		return nil, fmt.Errorf("matter: list parties: %w", err)
	}
	defer rows.Close()

	parties := make([]Party, 0, 8)
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.MatterID, &p.Name, &p.PartyType, &p.Role, &p.NameHash, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("matter: scan party: %w", err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("matter: iterate parties: %w", err)
	}
	return parties, nil
}

// PartyDigests returns the distinct name digests of a matter's parties, the
// set the conflict engine screens against.
func (r *Repository) PartyDigests(ctx context.Context, matterID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT name_hash FROM matter_parties WHERE matter_id = $1`, matterID)
	if err != nil {
		return nil, fmt.Errorf("matter: party digests: %w", err)
	}
	defer rows.Close()

	digests := make([]string, 0, 8)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("matter: scan party digest: %w", err)
		}
		digests = append(digests, hash)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("matter: iterate party digests: %w", err)
	}
	return digests, nil
}

// History returns the matter's transition history oldest first.
func (r *Repository) History(ctx context.Context, matterID string) ([]StatusHistory, error) {
	const query = `
		SELECT id, matter_id, from_status::text, to_status::text, actor_id::text, notes, created_at
		FROM matter_status_history
		WHERE matter_id = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, matterID)
	if err != nil {
		return nil, fmt.Errorf("matter: history: %w", err)
	}
	defer rows.Close()

	entries := make([]StatusHistory, 0, 8)
	for rows.Next() {
		var h StatusHistory
		if err := rows.Scan(&h.ID, &h.MatterID, &h.FromStatus, &h.ToStatus, &h.ActorID, &h.Notes, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("matter: scan history: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("matter: iterate history: %w", err)
	}
	return entries, nil
}

func scanMatter(row pgx.Row) (Matter, error) {
	var m Matter
	err := row.Scan(
		&m.ID,
		&m.ClientID,
		&m.AttorneyID,
		&m.Title,
		&m.Description,
		&m.PracticeAreaID,
		&m.JurisdictionID,
		&m.Status,
		&m.ConflictCheckCompleted,
		&m.ConflictCheckPassed,
		&m.ConflictCheckDate,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.SubmittedAt,
		&m.AssignedAt,
		&m.CompletedAt,
	)
	if err != nil {
		return Matter{}, err
	}
	return m, nil
}
