package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := InitSchema(db); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return db
}

func testRun() *domain.SolveRun {
	run := domain.NewSolveRun("instance-a")
	run.CapacityMode = "fixed-capacity"
	run.ContinuousAssignment = false
	run.Periods = 2
	run.ScenarioIDs = []string{"1", "2"}
	run.TimeLimitSeconds = 60
	run.Status = "optimal"
	run.Objective = 577
	run.BestBound = 577
	run.GapPercent = 0
	run.RunTimeSeconds = 0.123
	run.CostInstallation = 500
	run.CostOperating = 50
	run.CostFromFacilities = 27
	run.CostFromDepot = 0
	run.Variables = map[string]float64{
		"Y_if1_qbase":     1,
		"X_if1_kz1_t0_n1": 1,
		"W_kz1_t0_n1":     0,
	}
	return run
}

func TestSaveAndGetRun(t *testing.T) {
	repo := NewSqliteRunRepository(openTestDB(t))
	ctx := context.Background()

	run := testRun()
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}

	if got.InstanceID != "instance-a" || got.CapacityMode != "fixed-capacity" {
		t.Fatalf("unexpected run header: %+v", got)
	}
	if got.Objective != 577 || got.CostInstallation != 500 {
		t.Fatalf("unexpected run figures: objective=%v installation=%v", got.Objective, got.CostInstallation)
	}
	if len(got.ScenarioIDs) != 2 || got.ScenarioIDs[1] != "2" {
		t.Fatalf("unexpected scenario ids: %v", got.ScenarioIDs)
	}
	if len(got.Variables) != 3 || got.Variables["Y_if1_qbase"] != 1 {
		t.Fatalf("unexpected variables: %v", got.Variables)
	}
	if !got.CreatedAt.Equal(run.CreatedAt.Truncate(0)) {
		t.Fatalf("created_at mismatch: %v vs %v", got.CreatedAt, run.CreatedAt)
	}
}

func TestGetRunNotFound(t *testing.T) {
	repo := NewSqliteRunRepository(openTestDB(t))

	_, err := repo.GetRun(context.Background(), "nope")
	if !errors.Is(err, ports.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := NewSqliteRunRepository(openTestDB(t))
	ctx := context.Background()

	older := testRun()
	older.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := testRun()
	newer.CreatedAt = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := repo.SaveRun(ctx, older); err != nil {
		t.Fatalf("save older run: %v", err)
	}
	if err := repo.SaveRun(ctx, newer); err != nil {
		t.Fatalf("save newer run: %v", err)
	}

	runs, err := repo.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != newer.ID {
		t.Fatalf("expected newest run first, got %s", runs[0].ID)
	}
	// Listings omit the variable maps.
	if runs[0].Variables != nil {
		t.Fatalf("expected no variables in listing, got %v", runs[0].Variables)
	}
}
