package domain

import (
	"time"

	"github.com/google/uuid"
)

// SolveRun is the persisted outcome of one build+solve cycle: the solver
// report, objective component breakdown, and the flat variable-name -> value
// mapping required by the result-sink contract.
type SolveRun struct {
	ID         string
	InstanceID string

	CapacityMode         string
	ContinuousAssignment bool
	Periods              int
	ScenarioIDs          []string
	TimeLimitSeconds     float64

	Status         string
	Objective      float64
	BestBound      float64
	GapPercent     float64
	RunTimeSeconds float64

	CostInstallation   float64
	CostOperating      float64
	CostFromFacilities float64
	CostFromDepot      float64

	Variables map[string]float64

	CreatedAt time.Time
}

func NewSolveRun(instanceID string) *SolveRun {
	return &SolveRun{
		ID:         uuid.NewString(),
		InstanceID: instanceID,
		CreatedAt:  time.Now().UTC(),
	}
}
