package conflict

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
	// ErrRecordNotFound signals the requested ledger record does not exist.
	ErrRecordNotFound = errors.New("conflict: ledger record not found")
	// ErrEmptyName signals a ledger write was attempted without a name.
	ErrEmptyName = errors.New("conflict: name required")
	// ErrInvalidRelationship signals an unknown relationship type.
	ErrInvalidRelationship = errors.New("conflict: invalid relationship type")
)

const ledgerColumns = `
	id, attorney_id::text, name_hash, relationship_type::text,
	matter_id::text, start_date, end_date, created_at
`

// Ledger persists attorney client records. Writes are idempotent on the
// (attorney, digest) key: re-adding a name an attorney already recorded is
// a no-op, never a duplicate.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a PostgreSQL-backed conflict ledger.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// AddRecordParams enumerates the fields for a single ledger write.
type AddRecordParams struct {
	AttorneyID       string
	Name             string
	RelationshipType RelationshipType
	MatterID         *string
}

// AddRecord digests the name and upserts the ledger row. The bool reports
// whether a new record was created; false means the pair already existed
// and the stored record is returned unchanged.
func (l *Ledger) AddRecord(ctx context.Context, params AddRecordParams) (LedgerRecord, bool, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return LedgerRecord{}, false, ErrEmptyName
	}
	if params.RelationshipType == "" {
		params.RelationshipType = RelationshipCurrentClient
	}
	if !ValidRelationship(params.RelationshipType) {
		return LedgerRecord{}, false, ErrInvalidRelationship
	}

	hash := identity.Digest(name)

	insertSQL := `
		INSERT INTO attorney_client_records (attorney_id, name_hash, relationship_type, matter_id, start_date)
		VALUES ($1, $2, $3::relationship_type, $4, now()::date)
		ON CONFLICT (attorney_id, name_hash) DO NOTHING
		RETURNING ` + ledgerColumns

	rec, err := scanLedgerRecord(l.pool.QueryRow(ctx, insertSQL, params.AttorneyID, hash, params.RelationshipType, params.MatterID))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return LedgerRecord{}, false, fmt.Errorf("conflict: add record: %w", err)
	}

	// Conflict on the unique key: fetch the existing row.
	selectSQL := `
		SELECT ` + ledgerColumns + `
		FROM attorney_client_records
		WHERE attorney_id = $1 AND name_hash = $2
	`
	rec, err = scanLedgerRecord(l.pool.QueryRow(ctx, selectSQL, params.AttorneyID, hash))
	if err != nil {
		return LedgerRecord{}, false, fmt.Errorf("conflict: fetch existing record: %w", err)
	}
	return rec, false, nil
}

// BulkImport digests all names and inserts them for the attorney, silently
// skipping blanks and pairs already present. Returns the number of rows
// actually inserted.
func (l *Ledger) BulkImport(ctx context.Context, attorneyID string, names []string, relationshipType RelationshipType) (int, error) {
	if relationshipType == "" {
		relationshipType = RelationshipCurrentClient
	}
	if !ValidRelationship(relationshipType) {
		return 0, ErrInvalidRelationship
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("conflict: begin import tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertSQL = `
		INSERT INTO attorney_client_records (attorney_id, name_hash, relationship_type)
		VALUES ($1, $2, $3::relationship_type)
		ON CONFLICT (attorney_id, name_hash) DO NOTHING
	`

	inserted := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		tag, err := tx.Exec(ctx, insertSQL, attorneyID, identity.Digest(name), relationshipType)
		if err != nil {
			return 0, fmt.Errorf("conflict: import record: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("conflict: commit import: %w", err)
	}
	return inserted, nil
}

// ListRecords returns the attorney's ledger newest first.
func (l *Ledger) ListRecords(ctx context.Context, attorneyID string) ([]LedgerRecord, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM attorney_client_records
		WHERE attorney_id = $1
		ORDER BY created_at DESC
	`

	rows, err := l.pool.Query(ctx, query, attorneyID)
	if err != nil {
		return nil, fmt.Errorf("conflict: list records: %w", err)
	}
	defer rows.Close()

	records := make([]LedgerRecord, 0, 16)
	for rows.Next() {
		var rec LedgerRecord
		if err := rows.Scan(&rec.ID, &rec.AttorneyID, &rec.NameHash, &rec.RelationshipType, &rec.MatterID, &rec.StartDate, &rec.EndDate, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("conflict: scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("conflict: iterate records: %w", err)
	}
	return records, nil
}

// DeleteRecord removes a ledger row owned by the attorney. Detail rows from
// past checks keep their nullable back-reference and are not touched.
func (l *Ledger) DeleteRecord(ctx context.Context, attorneyID, recordID string) error {
	tag, err := l.pool.Exec(ctx, `DELETE FROM attorney_client_records WHERE id = $1 AND attorney_id = $2`, recordID, attorneyID)
	if err != nil {
		return fmt.Errorf("conflict: delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func scanLedgerRecord(row pgx.Row) (LedgerRecord, error) {
	var rec LedgerRecord
	err := row.Scan(
		&rec.ID,
		&rec.AttorneyID,
		&rec.NameHash,
		&rec.RelationshipType,
		&rec.MatterID,
		&rec.StartDate,
		&rec.EndDate,
		&rec.CreatedAt,
	)
	if err != nil {
		return LedgerRecord{}, err
	}
	return rec, nil
}
