package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_gate_fields_consistent",
			SQL: `SELECT id, status FROM matters
                  WHERE (conflict_check_passed AND NOT conflict_check_completed)
                     OR (conflict_check_completed AND conflict_check_date IS NULL)`,
		},
		{
			Name: "O2_post_matching_requires_check",
			SQL: `SELECT id, status FROM matters
                  WHERE status IN ('matching','open','in_progress','hold','completed','closed')
                    AND NOT conflict_check_completed`,
		},
		{
			Name: "O3_completed_checks_have_verdict",
			SQL: `SELECT id, status FROM conflict_checks
                  WHERE status = 'completed'
                    AND (result IS NULL OR completed_at IS NULL OR processing_time_ms IS NULL)`,
		},
		{
			Name: "O4_detail_implies_exclusion",
			SQL: `SELECT d.id FROM conflict_details d
                  WHERE NOT EXISTS (
                      SELECT 1 FROM conflict_check_attorneys cca
                      WHERE cca.check_id = d.check_id
                        AND cca.attorney_id = d.attorney_id
                        AND cca.excluded)`,
		},
		{
			Name: "O5_exclusion_implies_detail",
			SQL: `SELECT cca.check_id, cca.attorney_id FROM conflict_check_attorneys cca
                  JOIN conflict_checks c ON c.id = cca.check_id
                  WHERE cca.excluded AND c.status = 'completed'
                    AND NOT EXISTS (
                        SELECT 1 FROM conflict_details d
                        WHERE d.check_id = cca.check_id AND d.attorney_id = cca.attorney_id)`,
		},
		{
			Name: "O6_verdict_matches_counts",
			SQL: `WITH counts AS (
                      SELECT c.id, c.result::text AS result,
                             COUNT(*) AS checked,
                             COUNT(*) FILTER (WHERE cca.excluded) AS excluded
                      FROM conflict_checks c
                      JOIN conflict_check_attorneys cca ON cca.check_id = c.id
                      WHERE c.status = 'completed'
                      GROUP BY c.id, c.result)
                  SELECT * FROM counts
                  WHERE result <> CASE
                      WHEN excluded = 0 THEN 'clear'
                      WHEN excluded = checked THEN 'conflict'
                      ELSE 'potential' END`,
		},
		{
			Name: "O7_history_edges_valid",
			SQL: `SELECT h.id, h.from_status, h.to_status FROM matter_status_history h
                  WHERE (h.from_status::text, h.to_status::text) NOT IN (
                      ('draft','pending'), ('draft','cancelled'),
                      ('pending','conflict_check'), ('pending','cancelled'),
                      ('conflict_check','matching'), ('conflict_check','cancelled'),
                      ('matching','open'), ('matching','cancelled'),
                      ('open','in_progress'), ('open','hold'), ('open','cancelled'),
                      ('in_progress','hold'), ('in_progress','completed'), ('in_progress','cancelled'),
                      ('hold','in_progress'), ('hold','cancelled'),
                      ('completed','closed'))`,
		},
		{
			Name: "O8_party_digest_correct",
			SQL: `SELECT id, name FROM matter_parties
                  WHERE name_hash <> encode(digest(lower(btrim(name)), 'sha256'), 'hex')`,
		},
		{
			Name: "O9_ledger_digest_unique_per_attorney",
			SQL: `SELECT attorney_id, name_hash, COUNT(*) FROM attorney_client_records
                  GROUP BY attorney_id, name_hash HAVING COUNT(*) > 1`,
		},
		{
			Name: "O10_no_stale_running_checks",
			SQL: `SELECT id FROM conflict_checks
                  WHERE status IN ('pending','in_progress')
                    AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
