package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

// SQLite-backed implementation of the RunStore port.
type SqliteRunRepository struct{ DB *sql.DB }

func NewSqliteRunRepository(db *sql.DB) *SqliteRunRepository {
	return &SqliteRunRepository{DB: db}
}

func (s *SqliteRunRepository) SaveRun(ctx context.Context, run *domain.SolveRun) error {
	if s.DB == nil {
		return errors.New("sqlite run repository: DB is nil")
	}

	scenarioIDs, err := json.Marshal(run.ScenarioIDs)
	if err != nil {
		return fmt.Errorf("save run: marshal scenario ids: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertRunQuery := `
	INSERT INTO runs (
		run_id, instance_id, capacity_mode, continuous_assignment, periods,
		scenario_ids, time_limit_seconds, status, objective, best_bound,
		gap_percent, run_time_seconds, cost_installation, cost_operating,
		cost_from_facilities, cost_from_depot, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, insertRunQuery,
		run.ID, run.InstanceID, run.CapacityMode, run.ContinuousAssignment, run.Periods,
		string(scenarioIDs), run.TimeLimitSeconds, run.Status, run.Objective, run.BestBound,
		run.GapPercent, run.RunTimeSeconds, run.CostInstallation, run.CostOperating,
		run.CostFromFacilities, run.CostFromDepot, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save run: insert run %s: %w", run.ID, err)
	}

	insertVarQuery := `
	INSERT INTO run_variables (run_id, name, value)
	VALUES (?, ?, ?);
	`
	stmt, err := tx.PrepareContext(ctx, insertVarQuery)
	if err != nil {
		return fmt.Errorf("save run: prepare variable insert: %w", err)
	}
	defer stmt.Close()

	for name, value := range run.Variables {
		if _, err := stmt.ExecContext(ctx, run.ID, name, value); err != nil {
			return fmt.Errorf("save run: insert variable %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit tx: %w", err)
	}

	return nil
}

func (s *SqliteRunRepository) GetRun(ctx context.Context, id string) (*domain.SolveRun, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}

	query := `
	SELECT
		run_id, instance_id, capacity_mode, continuous_assignment, periods,
		scenario_ids, time_limit_seconds, status, objective, best_bound,
		gap_percent, run_time_seconds, cost_installation, cost_operating,
		cost_from_facilities, cost_from_depot, created_at
	FROM runs
	WHERE run_id = ?;
	`
	run, err := scanRun(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get run %q: %w", id, ports.ErrRunNotFound)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	varQuery := `
	SELECT name, value
	FROM run_variables
	WHERE run_id = ?;
	`
	rows, err := s.DB.QueryContext(ctx, varQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get run: query variables: %w", err)
	}
	defer rows.Close()

	run.Variables = make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("get run: scan variable: %w", err)
		}
		run.Variables[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: variable iteration: %w", err)
	}

	return run, nil
}

// ListRuns returns run records newest first, without their variable maps.
func (s *SqliteRunRepository) ListRuns(ctx context.Context) ([]*domain.SolveRun, error) {
	if s.DB == nil {
		return nil, errors.New("sqlite run repository: DB is nil")
	}

	query := `
	SELECT
		run_id, instance_id, capacity_mode, continuous_assignment, periods,
		scenario_ids, time_limit_seconds, status, objective, best_bound,
		gap_percent, run_time_seconds, cost_installation, cost_operating,
		cost_from_facilities, cost_from_depot, created_at
	FROM runs
	ORDER BY created_at DESC;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.SolveRun, 0, 16)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.SolveRun, error) {
	var run domain.SolveRun
	var scenarioIDs, createdAt string

	err := row.Scan(
		&run.ID, &run.InstanceID, &run.CapacityMode, &run.ContinuousAssignment, &run.Periods,
		&scenarioIDs, &run.TimeLimitSeconds, &run.Status, &run.Objective, &run.BestBound,
		&run.GapPercent, &run.RunTimeSeconds, &run.CostInstallation, &run.CostOperating,
		&run.CostFromFacilities, &run.CostFromDepot, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(scenarioIDs), &run.ScenarioIDs); err != nil {
		return nil, fmt.Errorf("scan run %s: parse scenario ids: %w", run.ID, err)
	}
	if run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("scan run %s: parse created_at: %w", run.ID, err)
	}
	return &run, nil
}
