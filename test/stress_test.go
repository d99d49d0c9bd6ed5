package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"lexconnect/test/actors"
	"lexconnect/test/chaos"
	"lexconnect/test/infra"
	"lexconnect/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestConflictPipelineConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	// migrations
	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	// seed minimal data
	seedData := mustSeed(t, ctx, pool)

	// run actors
	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// submitters feeding new matters, checkers hammering the shared one
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.Submitter(ctx2, pool, seedData.practiceAreaID, stop)
		})
		g.Go(func() error { return actors.Checker(ctx2, pool, seedData.matterID, stop) })
	}

	// one ledger writer per seeded attorney keeps the exclusion set moving
	for _, attorneyID := range seedData.attorneyIDs {
		id := attorneyID
		g.Go(func() error { return actors.LedgerWriter(ctx2, pool, id, stop) })
	}
	// transitioner firing random edges at the shared matter
	g.Go(func() error { return actors.Transitioner(ctx2, pool, seedData.matterID, stop) })
	// assigner racing to open the matter
	g.Go(func() error {
		return actors.Assigner(ctx2, pool, seedData.matterID, seedData.attorneyIDs[0], stop)
	})
	// chaos: kill random backend
	go chaos.TerminateRandomBackend(ctx2, pool, "", stop)

	// schedule oracle checks until duration reached
	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	clientID       string
	practiceAreaID string
	attorneyIDs    []string
	matterID       string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool) seedIDs {
	t.Helper()
	var s seedIDs
	// client
	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, role) VALUES ($1, 'Stress Client', 'client') RETURNING id`,
		fmt.Sprintf("client%d@example.com", rand.Int63())).Scan(&s.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	// practice area scoping the candidate pool to this run
	if err := pool.QueryRow(ctx, `INSERT INTO practice_areas (name) VALUES ($1) RETURNING id`,
		fmt.Sprintf("stress-area-%d", rand.Int63())).Scan(&s.practiceAreaID); err != nil {
		t.Fatalf("seed practice area: %v", err)
	}
	// verified accepting attorneys licensed for the area
	for i := 0; i < 3; i++ {
		var id string
		if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, role) VALUES ($1, $2, 'attorney') RETURNING id`,
			fmt.Sprintf("attorney%d_%d@example.com", i, rand.Int63()), fmt.Sprintf("Stress Attorney %d", i)).Scan(&id); err != nil {
			t.Fatalf("seed attorney %d: %v", i, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO attorney_profiles (user_id, bar_number, bar_state, verified, accepting)
                                     VALUES ($1, $2, 'NY', true, true)`, id, fmt.Sprintf("STRESS-%d-%d", rand.Int63(), i)); err != nil {
			t.Fatalf("seed attorney profile %d: %v", i, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO attorney_practice_areas (attorney_id, practice_area_id) VALUES ($1, $2)`,
			id, s.practiceAreaID); err != nil {
			t.Fatalf("seed attorney area %d: %v", i, err)
		}
		s.attorneyIDs = append(s.attorneyIDs, id)
	}
	// the shared matter everything contends on, submitted with two parties
	if err := pool.QueryRow(ctx, `INSERT INTO matters (client_id, title, practice_area_id, status)
                                  VALUES ($1, 'Shared stress matter', $2, 'draft') RETURNING id`,
		s.clientID, s.practiceAreaID).Scan(&s.matterID); err != nil {
		t.Fatalf("seed matter: %v", err)
	}
	for _, name := range []string{"Acme Holdings", "Carol Meyer"} {
		if _, err := pool.Exec(ctx, `INSERT INTO matter_parties (matter_id, name, name_hash)
                                     VALUES ($1, $2, encode(digest(lower(btrim($2::text)), 'sha256'), 'hex'))`,
			s.matterID, name); err != nil {
			t.Fatalf("seed party %q: %v", name, err)
		}
	}
	if _, err := pool.Exec(ctx, `UPDATE matters SET status = 'pending', submitted_at = now() WHERE id = $1`, s.matterID); err != nil {
		t.Fatalf("submit seed matter: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO matter_status_history (matter_id, from_status, to_status, notes)
                                 VALUES ($1, 'draft', 'pending', 'submitted for review')`, s.matterID); err != nil {
		t.Fatalf("seed history: %v", err)
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"matters", `SELECT id, status, conflict_check_completed, conflict_check_passed FROM matters ORDER BY updated_at DESC LIMIT 50`},
		{"matter_status_history", `SELECT id, matter_id, from_status, to_status, created_at FROM matter_status_history ORDER BY id DESC LIMIT 50`},
		{"conflict_checks", `SELECT id, matter_id, status, result, names_checked_count, completed_at FROM conflict_checks ORDER BY created_at DESC LIMIT 50`},
		{"conflict_check_attorneys", `SELECT check_id, attorney_id, excluded FROM conflict_check_attorneys LIMIT 50`},
		{"attorney_client_records", `SELECT id, attorney_id, name_hash, relationship_type FROM attorney_client_records ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			// compact print
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
