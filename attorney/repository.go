package attorney

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals the requested attorney does not exist.
var ErrNotFound = errors.New("attorney: not found")

// Querier is the subset of pgx querying shared by *pgxpool.Pool and pgx.Tx.
// The conflict engine resolves candidate pools inside its own transaction,
// so pool queries must run against whichever executor the caller holds.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides read access to the attorney directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const profileColumns = `
	u.id, u.full_name, u.email, p.bar_number, p.bar_state,
	p.verified, p.accepting, u.is_active, p.created_at
`

// GetByID fetches an attorney profile by its user id.
func (r *Repository) GetByID(ctx context.Context, id string) (Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM attorney_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`

	profile, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("attorney: query by id: %w", err)
	}

	return profile, nil
}

// List fetches up to limit attorney profiles ordered by name.
func (r *Repository) List(ctx context.Context, limit int) ([]Profile, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	query := `
		SELECT ` + profileColumns + `
		FROM attorney_profiles p
		JOIN users u ON u.id = p.user_id
		ORDER BY u.full_name ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("attorney: list: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows, limit)
}

// CandidatePool returns the attorneys eligible for conflict screening:
// verified, accepting new clients, with an active user account, optionally
// narrowed by practice area and jurisdiction. It accepts a Querier so the
// engine can resolve the pool inside its transaction.
func (r *Repository) CandidatePool(ctx context.Context, q Querier, filter PoolFilter) ([]Profile, error) {
	if q == nil {
		q = r.pool
	}

	query := `
		SELECT ` + profileColumns + `
		FROM attorney_profiles p
		JOIN users u ON u.id = p.user_id
		WHERE p.verified AND p.accepting AND u.is_active
	`
	args := []any{}
	if filter.PracticeAreaID != nil {
		args = append(args, *filter.PracticeAreaID)
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM attorney_practice_areas apa
			WHERE apa.attorney_id = p.user_id AND apa.practice_area_id = $%d
		)`, len(args))
	}
	if filter.JurisdictionID != nil {
		args = append(args, *filter.JurisdictionID)
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM attorney_jurisdictions aj
			WHERE aj.attorney_id = p.user_id AND aj.jurisdiction_id = $%d
		)`, len(args))
	}
	query += ` ORDER BY u.full_name ASC`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attorney: candidate pool: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows, 16)
}

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.UserID,
		&p.FullName,
		&p.Email,
		&p.BarNumber,
		&p.BarState,
		&p.Verified,
		&p.Accepting,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	return p, nil
}

func collectProfiles(rows pgx.Rows, hint int) ([]Profile, error) {
	profiles := make([]Profile, 0, hint)
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.UserID, &p.FullName, &p.Email, &p.BarNumber, &p.BarState, &p.Verified, &p.Accepting, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("attorney: scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("attorney: iterate profiles: %w", err)
	}
	return profiles, nil
}
