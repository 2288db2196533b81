package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

// Postgres-backed implementation of the RunStore port. Schema mirrors the
// SQLite variant; created_at uses timestamptz instead of text.
type PostgresRunRepository struct{ DB *sql.DB }

func NewPostgresRunRepository(db *sql.DB) *PostgresRunRepository {
	return &PostgresRunRepository{DB: db}
}

// InitPostgresSchema creates the runs tables when absent.
func InitPostgresSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init postgres schema: DB is nil")
	}

	statements := []string{
		`
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			instance_id TEXT NOT NULL,
			capacity_mode TEXT NOT NULL,
			continuous_assignment BOOLEAN NOT NULL,
			periods INTEGER NOT NULL,
			scenario_ids TEXT NOT NULL,
			time_limit_seconds DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			objective DOUBLE PRECISION NOT NULL,
			best_bound DOUBLE PRECISION NOT NULL,
			gap_percent DOUBLE PRECISION NOT NULL,
			run_time_seconds DOUBLE PRECISION NOT NULL,
			cost_installation DOUBLE PRECISION NOT NULL,
			cost_operating DOUBLE PRECISION NOT NULL,
			cost_from_facilities DOUBLE PRECISION NOT NULL,
			cost_from_depot DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		`,
		`
		CREATE TABLE IF NOT EXISTS run_variables (
			run_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, name)
		);
		`,
		`
		CREATE INDEX IF NOT EXISTS idx_runs_instance_created
		ON runs(instance_id, created_at);
		`,
	}
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init postgres schema: exec statement #%d: %w", i+1, err)
		}
	}
	return nil
}

func (p *PostgresRunRepository) SaveRun(ctx context.Context, run *domain.SolveRun) error {
	if p.DB == nil {
		return errors.New("postgres run repository: DB is nil")
	}

	scenarioIDs, err := json.Marshal(run.ScenarioIDs)
	if err != nil {
		return fmt.Errorf("save run: marshal scenario ids: %w", err)
	}

	tx, err := p.DB.BeginTx(ctx, nil)
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
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err = tx.ExecContext(ctx, insertRunQuery,
		run.ID, run.InstanceID, run.CapacityMode, run.ContinuousAssignment, run.Periods,
		string(scenarioIDs), run.TimeLimitSeconds, run.Status, run.Objective, run.BestBound,
		run.GapPercent, run.RunTimeSeconds, run.CostInstallation, run.CostOperating,
		run.CostFromFacilities, run.CostFromDepot, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: insert run %s: %w", run.ID, err)
	}

	insertVarQuery := `
	INSERT INTO run_variables (run_id, name, value)
	VALUES ($1, $2, $3);
	`
	for name, value := range run.Variables {
		if _, err := tx.ExecContext(ctx, insertVarQuery, run.ID, name, value); err != nil {
			return fmt.Errorf("save run: insert variable %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit tx: %w", err)
	}

	return nil
}

func (p *PostgresRunRepository) GetRun(ctx context.Context, id string) (*domain.SolveRun, error) {
	if p.DB == nil {
		return nil, errors.New("postgres run repository: DB is nil")
	}

	query := `
	SELECT
		run_id, instance_id, capacity_mode, continuous_assignment, periods,
		scenario_ids, time_limit_seconds, status, objective, best_bound,
		gap_percent, run_time_seconds, cost_installation, cost_operating,
		cost_from_facilities, cost_from_depot, created_at
	FROM runs
	WHERE run_id = $1;
	`
	run, err := scanPostgresRun(p.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get run %q: %w", id, ports.ErrRunNotFound)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	varQuery := `
	SELECT name, value
	FROM run_variables
	WHERE run_id = $1;
	`
	rows, err := p.DB.QueryContext(ctx, varQuery, id)
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

func (p *PostgresRunRepository) ListRuns(ctx context.Context) ([]*domain.SolveRun, error) {
	if p.DB == nil {
		return nil, errors.New("postgres run repository: DB is nil")
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
	rows, err := p.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list runs: query runs table: %w", err)
	}
	defer rows.Close()

	runs := make([]*domain.SolveRun, 0, 16)
	for rows.Next() {
		run, err := scanPostgresRun(rows)
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

func scanPostgresRun(row rowScanner) (*domain.SolveRun, error) {
	var run domain.SolveRun
	var scenarioIDs string

	err := row.Scan(
		&run.ID, &run.InstanceID, &run.CapacityMode, &run.ContinuousAssignment, &run.Periods,
		&scenarioIDs, &run.TimeLimitSeconds, &run.Status, &run.Objective, &run.BestBound,
		&run.GapPercent, &run.RunTimeSeconds, &run.CostInstallation, &run.CostOperating,
		&run.CostFromFacilities, &run.CostFromDepot, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(scenarioIDs), &run.ScenarioIDs); err != nil {
		return nil, fmt.Errorf("scan run %s: parse scenario ids: %w", run.ID, err)
	}
	return &run, nil
}
