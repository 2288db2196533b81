// Package export writes solved runs to JSON files for offline analysis.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"network-design-service/internal/domain"
)

type runDocument struct {
	RunID                string   `json:"run_id"`
	InstanceID           string   `json:"instance_id"`
	CapacityMode         string   `json:"capacity_mode"`
	ContinuousAssignment bool     `json:"continuous_assignment"`
	Periods              int      `json:"periods"`
	ScenarioIDs          []string `json:"scenario_ids"`

	Status           string  `json:"status"`
	ActualRunTime    float64 `json:"actual_run_time"`
	OptimalityGap    float64 `json:"optimality_gap"`
	ObjectiveValue   float64 `json:"objective_value"`
	BestBoundValue   float64 `json:"best_bound_value"`
	CostInstallation float64 `json:"cost_installation"`
	CostOperating    float64 `json:"cost_operating"`
	CostFacilities   float64 `json:"cost_from_facilities"`
	CostDepot        float64 `json:"cost_from_depot"`

	// Decision variables grouped by family.
	Y map[string]float64 `json:"Y"`
	Z map[string]float64 `json:"Z,omitempty"`
	X map[string]float64 `json:"X"`
	W map[string]float64 `json:"W"`
}

// JSONWriter writes one file per run into a results directory.
type JSONWriter struct {
	dir string
}

func NewJSONWriter(dir string) *JSONWriter {
	return &JSONWriter{dir: dir}
}

// WriteRun persists the run document and returns the file path.
func (w *JSONWriter) WriteRun(run *domain.SolveRun) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("write run: create results dir: %w", err)
	}

	doc := runDocument{
		RunID:                run.ID,
		InstanceID:           run.InstanceID,
		CapacityMode:         run.CapacityMode,
		ContinuousAssignment: run.ContinuousAssignment,
		Periods:              run.Periods,
		ScenarioIDs:          run.ScenarioIDs,
		Status:               run.Status,
		ActualRunTime:        run.RunTimeSeconds,
		OptimalityGap:        run.GapPercent,
		ObjectiveValue:       run.Objective,
		BestBoundValue:       run.BestBound,
		CostInstallation:     run.CostInstallation,
		CostOperating:        run.CostOperating,
		CostFacilities:       run.CostFromFacilities,
		CostDepot:            run.CostFromDepot,
		Y:                    map[string]float64{},
		X:                    map[string]float64{},
		W:                    map[string]float64{},
	}
	for name, value := range run.Variables {
		switch {
		case strings.HasPrefix(name, "Y_"):
			doc.Y[name] = value
		case strings.HasPrefix(name, "Z_"):
			if doc.Z == nil {
				doc.Z = map[string]float64{}
			}
			doc.Z[name] = value
		case strings.HasPrefix(name, "X_"):
			doc.X[name] = value
		case strings.HasPrefix(name, "W_"):
			doc.W[name] = value
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("write run: marshal: %w", err)
	}

	assignment := "binary"
	if run.ContinuousAssignment {
		assignment = "continuous"
	}
	path := filepath.Join(w.dir, fmt.Sprintf("run_%s_%s_%s.json", run.CapacityMode, assignment, run.ID))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}
	return path, nil
}
