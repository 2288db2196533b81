package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"network-design-service/internal/domain"
	"network-design-service/internal/platform/obs"
	"network-design-service/internal/ports"
)

// SolveRequest describes one build+solve cycle.
type SolveRequest struct {
	InstanceID           string
	CapacityMode         string
	ContinuousAssignment bool
	Periods              int

	// Sample definition: how many scenarios, whether to use the held-out
	// evaluation sample, and which persisted sampling to prefer.
	ScenarioCount int
	Evaluation    bool
	SamplingID    int

	TimeLimitSeconds float64
}

// NetworkDesigner orchestrates the full pipeline: load inputs, realize the
// scenario sample, run the continuous approximation, assemble and solve the
// location model, and persist the run.
type NetworkDesigner struct {
	facilityLoader ports.FacilityLoader
	vehicleLoader  ports.VehicleLoader
	scenarioLoader ports.ScenarioLoader
	distances      ports.DistanceLookup
	newSolver      func() ports.MILPSolver
	runs           ports.RunStore
}

func NewNetworkDesigner(
	facilityLoader ports.FacilityLoader,
	vehicleLoader ports.VehicleLoader,
	scenarioLoader ports.ScenarioLoader,
	distances ports.DistanceLookup,
	newSolver func() ports.MILPSolver,
	runs ports.RunStore,
) *NetworkDesigner {
	return &NetworkDesigner{
		facilityLoader: facilityLoader,
		vehicleLoader:  vehicleLoader,
		scenarioLoader: scenarioLoader,
		distances:      distances,
		newSolver:      newSolver,
		runs:           runs,
	}
}

// Solve executes one cycle and returns the persisted run record.
func (d *NetworkDesigner) Solve(ctx context.Context, req SolveRequest) (run *domain.SolveRun, err error) {
	defer obs.Time(ctx, "solveRun")(&err)

	if req.Periods <= 0 {
		return nil, fmt.Errorf("solve: non-positive period count %d", req.Periods)
	}
	if req.ScenarioCount <= 0 {
		return nil, fmt.Errorf("solve: non-positive scenario count %d", req.ScenarioCount)
	}

	facilities, err := d.facilityLoader.LoadFacilities(ctx)
	if err != nil {
		return nil, fmt.Errorf("solve: load facilities: %w", err)
	}
	vehicles, err := d.vehicleLoader.LoadVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("solve: load vehicles: %w", err)
	}

	ids, err := d.scenarioLoader.SampleIDs(ctx, req.ScenarioCount, req.Evaluation, req.SamplingID)
	if err != nil {
		return nil, fmt.Errorf("solve: resolve scenario sample: %w", err)
	}
	scenarios := make(map[string]*domain.Scenario, len(ids))
	for _, id := range ids {
		s, err := d.scenarioLoader.LoadScenario(ctx, id, req.Periods)
		if err != nil {
			return nil, fmt.Errorf("solve: load scenario %s: %w", id, err)
		}
		scenarios[id] = s
	}

	engine, err := NewCAEngine(facilities, vehicles, d.distances)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	if err := engine.Run(ctx, scenarios); err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	satellites := make(map[string]*domain.Facility, len(facilities))
	for id, f := range facilities {
		if !f.IsDepot {
			satellites[id] = f
		}
	}

	model, err := NewSAAModel(d.newSolver(), satellites, scenarios, req.Periods,
		req.CapacityMode, req.ContinuousAssignment)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	if err := model.Build(); err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	if req.TimeLimitSeconds > 0 {
		if err := model.SetParams(map[string]float64{"TimeLimit": req.TimeLimitSeconds}); err != nil {
			return nil, fmt.Errorf("solve: %w", err)
		}
	}

	report, err := model.Solve(ctx)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	run = domain.NewSolveRun(req.InstanceID)
	run.CapacityMode = req.CapacityMode
	run.ContinuousAssignment = req.ContinuousAssignment
	run.Periods = req.Periods
	run.ScenarioIDs = ids
	run.TimeLimitSeconds = req.TimeLimitSeconds
	run.Status = report.Status
	run.Objective = report.Objective
	run.BestBound = report.BestBound
	run.GapPercent = report.GapPercent
	run.RunTimeSeconds = report.RunTimeSeconds
	run.CostInstallation = report.CostInstallation
	run.CostOperating = report.CostOperating
	run.CostFromFacilities = report.CostFromFacilities
	run.CostFromDepot = report.CostFromDepot
	run.Variables = report.Variables

	if err := d.runs.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("solve: save run: %w", err)
	}

	log.Info().
		Str("run_id", run.ID).
		Str("mode", run.CapacityMode).
		Str("status", run.Status).
		Float64("objective", run.Objective).
		Float64("gap_pct", run.GapPercent).
		Msg("solve run finished")
	return run, nil
}

// SolveMatrix runs the four standard configurations (both capacity modes
// crossed with binary and continuous assignment). A failing configuration is
// logged and skipped; the other configurations still run.
func (d *NetworkDesigner) SolveMatrix(ctx context.Context, base SolveRequest) ([]*domain.SolveRun, error) {
	configs := []struct {
		mode       string
		continuous bool
	}{
		{ModeFixedCapacity, false},
		{ModeFixedCapacity, true},
		{ModeFlexCapacity, false},
		{ModeFlexCapacity, true},
	}

	var runs []*domain.SolveRun
	var errs []error
	for _, cfg := range configs {
		req := base
		req.CapacityMode = cfg.mode
		req.ContinuousAssignment = cfg.continuous

		run, err := d.Solve(ctx, req)
		if err != nil {
			log.Error().Err(err).
				Str("mode", cfg.mode).
				Bool("continuous_assignment", cfg.continuous).
				Msg("configuration failed")
			errs = append(errs, fmt.Errorf("%s/continuous=%t: %w", cfg.mode, cfg.continuous, err))
			continue
		}
		runs = append(runs, run)
	}
	return runs, errors.Join(errs...)
}
