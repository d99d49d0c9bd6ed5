package conflict

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexconnect/attorney"
	"lexconnect/identity"
	"lexconnect/matter"
)

// fixture owns one matter plus a practice area scoped to a single test, so
// candidate pools do not bleed between tests sharing the database.
type fixture struct {
	pool         *pgxpool.Pool
	practiceArea string
	clientID     string
	attorneyIDs  []string
}

func TestPerformCheckIntegration(t *testing.T) {
	pool := engineIntegrationPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fx := newFixture(t, ctx, pool, 3)

	repo := matter.NewRepository(pool)
	status := matter.NewStatusService(pool)
	ledger := NewLedger(pool)
	engine := NewEngine(pool, attorney.NewRepository(pool), status)

	// Attorney 0 represents the opposing party already.
	rec, created, err := ledger.AddRecord(ctx, AddRecordParams{
		AttorneyID:       fx.attorneyIDs[0],
		Name:             "Opposing Corp",
		RelationshipType: RelationshipAdverseParty,
	})
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
	if !created {
		t.Fatal("expected a fresh ledger record")
	}
	if rec.NameHash != identity.Digest("Opposing Corp") {
		t.Fatalf("ledger digest %s does not match Digest(name)", rec.NameHash)
	}

	// The same pair again is a no-op, not an error.
	again, created, err := ledger.AddRecord(ctx, AddRecordParams{
		AttorneyID:       fx.attorneyIDs[0],
		Name:             "opposing corp",
		RelationshipType: RelationshipAdverseParty,
	})
	if err != nil {
		t.Fatalf("re-add record: %v", err)
	}
	if created || again.ID != rec.ID {
		t.Fatalf("expected existing record back, got created=%v id=%s", created, again.ID)
	}

	m := fx.newMatter(t, ctx, repo, status, "Opposing Corp", "Jane Witness")

	check, err := engine.PerformCheck(ctx, PerformCheckParams{MatterID: m.ID})
	if err != nil {
		t.Fatalf("perform check: %v", err)
	}
	if check.Status != CheckCompleted {
		t.Fatalf("expected completed check, got %s", check.Status)
	}
	if check.Result == nil || *check.Result != ResultPotential {
		t.Fatalf("expected potential result, got %v", check.Result)
	}
	if check.NamesCheckedCount != 2 {
		t.Fatalf("expected 2 names checked, got %d", check.NamesCheckedCount)
	}
	if len(check.CheckedAttorneys) != 3 {
		t.Fatalf("expected 3 checked attorneys, got %d", len(check.CheckedAttorneys))
	}
	if len(check.ExcludedAttorneys) != 1 || check.ExcludedAttorneys[0] != fx.attorneyIDs[0] {
		t.Fatalf("expected attorney %s excluded, got %v", fx.attorneyIDs[0], check.ExcludedAttorneys)
	}
	if check.CompletedAt == nil || check.ProcessingTimeMS == nil {
		t.Fatal("expected completion timestamps on the check")
	}

	details, err := engine.ListDetails(ctx, check.ID)
	if err != nil {
		t.Fatalf("list details: %v", err)
	}
	if len(details) != 1 {
		t.Fatalf("expected 1 detail row, got %d", len(details))
	}
	d := details[0]
	if d.AttorneyID != fx.attorneyIDs[0] || d.NameHash != identity.Digest("Opposing Corp") {
		t.Fatalf("unexpected detail row: %+v", d)
	}
	if d.ConflictType != RelationshipAdverseParty {
		t.Fatalf("expected adverse conflict type, got %s", d.ConflictType)
	}
	if d.ClientRecordID == nil || *d.ClientRecordID != rec.ID {
		t.Fatalf("expected detail back-reference to ledger record %s", rec.ID)
	}

	after, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get matter after check: %v", err)
	}
	if after.Status != matter.StatusMatching {
		t.Fatalf("expected matter in matching, got %s", after.Status)
	}
	if !after.ConflictCheckCompleted || !after.ConflictCheckPassed || after.ConflictCheckDate == nil {
		t.Fatalf("matter gate fields not set: %+v", after)
	}

	history, err := repo.History(ctx, m.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(history))
	}
	if history[1].ToStatus != matter.StatusConflictCheck || history[2].ToStatus != matter.StatusMatching {
		t.Fatalf("unexpected history sequence: %+v", history)
	}

	available, err := engine.AvailableAttorneys(ctx, m.ID)
	if err != nil {
		t.Fatalf("available attorneys: %v", err)
	}
	if len(available) != 2 {
		t.Fatalf("expected 2 available attorneys, got %d", len(available))
	}
	for _, p := range available {
		if p.UserID == fx.attorneyIDs[0] {
			t.Fatalf("excluded attorney %s is still available", p.UserID)
		}
	}

	// A later ledger write followed by a re-check supersedes the verdict.
	if _, _, err := ledger.AddRecord(ctx, AddRecordParams{
		AttorneyID:       fx.attorneyIDs[1],
		Name:             "Jane Witness",
		RelationshipType: RelationshipPastClient,
	}); err != nil {
		t.Fatalf("second ledger record: %v", err)
	}

	recheck, err := engine.PerformCheck(ctx, PerformCheckParams{MatterID: m.ID})
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if len(recheck.ExcludedAttorneys) != 2 {
		t.Fatalf("expected 2 excluded attorneys on re-check, got %v", recheck.ExcludedAttorneys)
	}

	latest, err := engine.LatestCompleted(ctx, m.ID)
	if err != nil {
		t.Fatalf("latest completed: %v", err)
	}
	if latest.ID != recheck.ID {
		t.Fatalf("latest completed check is %s, want %s", latest.ID, recheck.ID)
	}

	available, err = engine.AvailableAttorneys(ctx, m.ID)
	if err != nil {
		t.Fatalf("available attorneys after re-check: %v", err)
	}
	if len(available) != 1 || available[0].UserID != fx.attorneyIDs[2] {
		t.Fatalf("expected only attorney %s available, got %v", fx.attorneyIDs[2], available)
	}

	checks, err := engine.ChecksForMatter(ctx, m.ID)
	if err != nil {
		t.Fatalf("checks for matter: %v", err)
	}
	if len(checks) != 2 {
		t.Fatalf("expected 2 check rows, got %d", len(checks))
	}
}

func TestPerformCheckNoPartiesIntegration(t *testing.T) {
	pool := engineIntegrationPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fx := newFixture(t, ctx, pool, 1)

	repo := matter.NewRepository(pool)
	status := matter.NewStatusService(pool)
	engine := NewEngine(pool, attorney.NewRepository(pool), status)

	m := fx.newMatter(t, ctx, repo, status)

	check, err := engine.PerformCheck(ctx, PerformCheckParams{MatterID: m.ID})
	if err != nil {
		t.Fatalf("perform check: %v", err)
	}
	if check.Result == nil || *check.Result != ResultClear {
		t.Fatalf("expected clear result with no parties, got %v", check.Result)
	}
	if check.NamesCheckedCount != 0 || len(check.CheckedAttorneys) != 0 {
		t.Fatalf("expected empty counts, got names=%d attorneys=%d", check.NamesCheckedCount, len(check.CheckedAttorneys))
	}

	after, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get matter: %v", err)
	}
	if after.Status != matter.StatusMatching || !after.ConflictCheckPassed {
		t.Fatalf("expected auto-cleared matter in matching, got %+v", after)
	}
}

type failingStatusMachine struct{}

func (failingStatusMachine) TransitionTx(context.Context, pgx.Tx, matter.TransitionParams) (matter.Matter, error) {
	return matter.Matter{}, errors.New("status backend down")
}

func TestPerformCheckFailureIntegration(t *testing.T) {
	pool := engineIntegrationPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fx := newFixture(t, ctx, pool, 1)

	repo := matter.NewRepository(pool)
	status := matter.NewStatusService(pool)
	engine := NewEngine(pool, attorney.NewRepository(pool), failingStatusMachine{})

	m := fx.newMatter(t, ctx, repo, status, "Opposing Corp")

	_, err := engine.PerformCheck(ctx, PerformCheckParams{MatterID: m.ID})
	if !errors.Is(err, ErrCheckFailed) {
		t.Fatalf("expected ErrCheckFailed, got %v", err)
	}
	var failedErr *CheckFailedError
	if !errors.As(err, &failedErr) || failedErr.CheckID == "" {
		t.Fatalf("expected CheckFailedError with a check id, got %v", err)
	}

	// The failed run leaves a visible failed row but no matter side effects.
	check, err := engine.GetCheck(ctx, failedErr.CheckID)
	if err != nil {
		t.Fatalf("get failed check: %v", err)
	}
	if check.Status != CheckFailed || check.CompletedAt == nil {
		t.Fatalf("expected failed check with completed_at, got %+v", check)
	}
	if check.Result != nil {
		t.Fatalf("failed check must carry no verdict, got %v", *check.Result)
	}

	after, err := repo.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get matter: %v", err)
	}
	if after.Status != matter.StatusPending || after.ConflictCheckCompleted {
		t.Fatalf("failed check touched the matter: %+v", after)
	}

	available, err := engine.AvailableAttorneys(ctx, m.ID)
	if err != nil {
		t.Fatalf("available attorneys: %v", err)
	}
	if len(available) != 0 {
		t.Fatalf("no completed check must mean no available attorneys, got %d", len(available))
	}
}

func TestPerformCheckUnknownMatterIntegration(t *testing.T) {
	pool := engineIntegrationPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	engine := NewEngine(pool, attorney.NewRepository(pool), matter.NewStatusService(pool))

	_, err := engine.PerformCheck(ctx, PerformCheckParams{MatterID: "00000000-0000-0000-0000-000000000000"})
	if !errors.Is(err, ErrMatterNotFound) {
		t.Fatalf("expected ErrMatterNotFound, got %v", err)
	}
}

// newFixture seeds a client, a dedicated practice area and n verified,
// accepting attorneys licensed for it.
func newFixture(t *testing.T, ctx context.Context, pool *pgxpool.Pool, n int) *fixture {
	t.Helper()

	fx := &fixture{pool: pool}
	nonce := time.Now().UnixNano()

	if err := pool.QueryRow(ctx, `INSERT INTO practice_areas (name) VALUES ($1) RETURNING id`,
		fmt.Sprintf("test-area-%d", nonce)).Scan(&fx.practiceArea); err != nil {
		t.Fatalf("seed practice area: %v", err)
	}

	if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, role) VALUES ($1, 'Check Client', 'client') RETURNING id`,
		fmt.Sprintf("client+%d@example.com", nonce)).Scan(&fx.clientID); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	for i := 0; i < n; i++ {
		var id string
		if err := pool.QueryRow(ctx, `INSERT INTO users (email, full_name, role) VALUES ($1, $2, 'attorney') RETURNING id`,
			fmt.Sprintf("attorney%d+%d@example.com", i, nonce), fmt.Sprintf("Attorney %d", i)).Scan(&id); err != nil {
			t.Fatalf("seed attorney user %d: %v", i, err)
		}
		if _, err := pool.Exec(ctx, `
			INSERT INTO attorney_profiles (user_id, bar_number, bar_state, verified, accepting)
			VALUES ($1, $2, 'CA', true, true)`, id, fmt.Sprintf("BAR-%d-%d", nonce, i)); err != nil {
			t.Fatalf("seed attorney profile %d: %v", i, err)
		}
		if _, err := pool.Exec(ctx, `INSERT INTO attorney_practice_areas (attorney_id, practice_area_id) VALUES ($1, $2)`,
			id, fx.practiceArea); err != nil {
			t.Fatalf("seed attorney practice area %d: %v", i, err)
		}
		fx.attorneyIDs = append(fx.attorneyIDs, id)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM matters WHERE client_id = $1`, fx.clientID)
		for _, id := range fx.attorneyIDs {
			pool.Exec(ctx2, `DELETE FROM attorney_client_records WHERE attorney_id = $1`, id)
			pool.Exec(ctx2, `DELETE FROM users WHERE id = $1`, id)
		}
		pool.Exec(ctx2, `DELETE FROM users WHERE id = $1`, fx.clientID)
		pool.Exec(ctx2, `DELETE FROM practice_areas WHERE id = $1`, fx.practiceArea)
	})

	return fx
}

// newMatter creates a matter scoped to the fixture's practice area, attaches
// the given opposing parties and submits it.
func (fx *fixture) newMatter(t *testing.T, ctx context.Context, repo *matter.Repository, status *matter.StatusService, parties ...string) matter.Matter {
	t.Helper()

	m, err := repo.Create(ctx, matter.CreateParams{
		ClientID:       &fx.clientID,
		Title:          "Check fixture matter",
		PracticeAreaID: &fx.practiceArea,
	})
	if err != nil {
		t.Fatalf("create matter: %v", err)
	}
	for _, name := range parties {
		role := matter.PartyOpposing
		if name == "Jane Witness" {
			role = matter.PartyWitness
		}
		if _, err := repo.AddParty(ctx, matter.AddPartyParams{MatterID: m.ID, Name: name, Role: role}); err != nil {
			t.Fatalf("add party %q: %v", name, err)
		}
	}
	if _, err := status.Submit(ctx, m.ID, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return m
}

func engineIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, tbl := range []string{"conflict_checks", "conflict_details", "attorney_client_records", "attorney_profiles"} {
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, tbl).Scan(&exists); err != nil || !exists {
			t.Skipf("table %s does not exist; ensure migrations are applied", tbl)
		}
	}
	return pool
}
