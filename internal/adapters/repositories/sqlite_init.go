package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRunsQuery := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		instance_id TEXT NOT NULL,
		capacity_mode TEXT NOT NULL,
		continuous_assignment INTEGER NOT NULL,
		periods INTEGER NOT NULL,
		scenario_ids TEXT NOT NULL,
		time_limit_seconds REAL NOT NULL,
		status TEXT NOT NULL,
		objective REAL NOT NULL,
		best_bound REAL NOT NULL,
		gap_percent REAL NOT NULL,
		run_time_seconds REAL NOT NULL,
		cost_installation REAL NOT NULL,
		cost_operating REAL NOT NULL,
		cost_from_facilities REAL NOT NULL,
		cost_from_depot REAL NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	createRunVariablesQuery := `
	CREATE TABLE IF NOT EXISTS run_variables (
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value REAL NOT NULL,
		PRIMARY KEY (run_id, name)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_runs_instance_created
	ON runs(instance_id, created_at);
	`

	statements := []string{
		createRunsQuery,
		createRunVariablesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
