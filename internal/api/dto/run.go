package dto

import "time"

type SolveRequest struct {
	InstanceID           string  `json:"instance_id"`
	CapacityMode         string  `json:"capacity_mode"`
	ContinuousAssignment bool    `json:"continuous_assignment"`
	Periods              int     `json:"periods"`
	ScenarioCount        int     `json:"scenario_count"`
	Evaluation           bool    `json:"evaluation"`
	SamplingID           int     `json:"sampling_id"`
	TimeLimitSeconds     float64 `json:"time_limit_seconds"`

	// Matrix runs all four mode/assignment configurations in one request.
	Matrix bool `json:"matrix"`
}

type RunResponse struct {
	RunID                string   `json:"run_id"`
	InstanceID           string   `json:"instance_id"`
	CapacityMode         string   `json:"capacity_mode"`
	ContinuousAssignment bool     `json:"continuous_assignment"`
	Periods              int      `json:"periods"`
	ScenarioIDs          []string `json:"scenario_ids"`
	TimeLimitSeconds     float64  `json:"time_limit_seconds"`

	Status         string  `json:"status"`
	Objective      float64 `json:"objective"`
	BestBound      float64 `json:"best_bound"`
	GapPercent     float64 `json:"gap_percent"`
	RunTimeSeconds float64 `json:"run_time_seconds"`

	CostInstallation   float64 `json:"cost_installation"`
	CostOperating      float64 `json:"cost_operating"`
	CostFromFacilities float64 `json:"cost_from_facilities"`
	CostFromDepot      float64 `json:"cost_from_depot"`

	// Populated on single-run fetches, omitted from listings.
	Variables map[string]float64 `json:"variables,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type ListRunResponse struct {
	Runs []RunResponse `json:"runs"`
}
