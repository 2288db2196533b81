package services

import (
	"context"
	"testing"

	"network-design-service/internal/adapters/solver"
	"network-design-service/internal/domain"
)

// One satellite with a null tier and a 100-capacity tier, one zone that is
// cheap to serve from the satellite (cost 27 after integer rounding) and
// expensive from the depot (3148). Installing the satellite should win.
func testModelScenario(t *testing.T) (*domain.Scenario, map[string]*domain.Facility) {
	t.Helper()

	z := domain.NewDeliveryZone("z1", domain.GeoPoint{AreaKm2: 1}, 0.57)
	if err := z.SetScenarioData([]float64{50}, []float64{1}, []float64{10}); err != nil {
		t.Fatalf("attach zone data: %v", err)
	}
	s := domain.NewScenario("1", map[string]*domain.DeliveryZone{"z1": z}, 1)

	if err := s.SetFacilityTables(
		map[domain.FacilityZonePeriod]float64{{Facility: "f1", Zone: "z1", Period: 0}: 27.38},
		map[domain.FacilityZonePeriod]float64{{Facility: "f1", Zone: "z1", Period: 0}: 0.23},
	); err != nil {
		t.Fatalf("attach facility tables: %v", err)
	}
	if err := s.SetDepotTables(
		map[domain.ZonePeriod]float64{{Zone: "z1", Period: 0}: 3147.88},
		map[domain.ZonePeriod]float64{{Zone: "z1", Period: 0}: 1.14},
	); err != nil {
		t.Fatalf("attach depot tables: %v", err)
	}

	facilities := map[string]*domain.Facility{
		"f1": {
			ID:               "f1",
			Capacity:         map[string]float64{"none": 0, "base": 100},
			CostInstallation: map[string]float64{"none": 0, "base": 500},
			CostOperation:    map[string][]float64{"none": {0}, "base": {50}},
		},
	}
	return s, facilities
}

func TestFixedCapacityModelInstallsSatellite(t *testing.T) {
	scenario, facilities := testModelScenario(t)

	model, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, ModeFixedCapacity, false)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if err := model.Build(); err != nil {
		t.Fatalf("build model: %v", err)
	}

	report, err := model.Solve(context.Background())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	if report.Status != "optimal" {
		t.Fatalf("expected optimal status, got %q", report.Status)
	}
	// Install 500 + operating 50 (fixed mode pays the installed tier) + 27.
	if report.Objective != 577 {
		t.Fatalf("expected objective 577, got %v", report.Objective)
	}
	if report.CostInstallation != 500 {
		t.Fatalf("expected installation cost 500, got %v", report.CostInstallation)
	}
	if report.CostOperating != 50 {
		t.Fatalf("expected operating cost 50, got %v", report.CostOperating)
	}
	if report.CostFromFacilities != 27 {
		t.Fatalf("expected facility serving cost 27, got %v", report.CostFromFacilities)
	}
	if report.CostFromDepot != 0 {
		t.Fatalf("expected zero depot serving cost, got %v", report.CostFromDepot)
	}

	if got := report.Variables["Y_if1_qbase"]; got != 1 {
		t.Fatalf("expected Y_if1_qbase = 1, got %v", got)
	}
	if got := report.Variables["X_if1_kz1_t0_n1"]; got != 1 {
		t.Fatalf("expected X_if1_kz1_t0_n1 = 1, got %v", got)
	}
	if got := report.Variables["W_kz1_t0_n1"]; got != 0 {
		t.Fatalf("expected W_kz1_t0_n1 = 0, got %v", got)
	}
}

func TestFlexCapacityModelActivatesTier(t *testing.T) {
	scenario, facilities := testModelScenario(t)

	model, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, ModeFlexCapacity, false)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if err := model.Build(); err != nil {
		t.Fatalf("build model: %v", err)
	}

	report, err := model.Solve(context.Background())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	if report.Objective != 577 {
		t.Fatalf("expected objective 577, got %v", report.Objective)
	}
	if got := report.Variables["Z_if1_qbase_t0_n1"]; got != 1 {
		t.Fatalf("expected operating tier base, got Z = %v", got)
	}
	if got := report.Variables["Y_if1_qbase"]; got != 1 {
		t.Fatalf("expected Y_if1_qbase = 1, got %v", got)
	}
}

func TestModelPrefersDepotWhenInstallationTooDear(t *testing.T) {
	scenario, facilities := testModelScenario(t)
	facilities["f1"].CostInstallation["base"] = 10000

	model, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, ModeFixedCapacity, false)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if err := model.Build(); err != nil {
		t.Fatalf("build model: %v", err)
	}

	report, err := model.Solve(context.Background())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}

	// Null tier + depot service: 0 + 3148.
	if report.Objective != 3148 {
		t.Fatalf("expected objective 3148, got %v", report.Objective)
	}
	if got := report.Variables["Y_if1_qnone"]; got != 1 {
		t.Fatalf("expected null tier chosen, got Y_if1_qnone = %v", got)
	}
	if got := report.Variables["W_kz1_t0_n1"]; got != 1 {
		t.Fatalf("expected depot service, got W = %v", got)
	}
}

func TestModelBuildOnce(t *testing.T) {
	scenario, facilities := testModelScenario(t)
	model, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, ModeFixedCapacity, false)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if err := model.Build(); err != nil {
		t.Fatalf("build model: %v", err)
	}
	if err := model.Build(); err == nil {
		t.Fatalf("expected error on second build")
	}
}

func TestModelRejectsUnknownMode(t *testing.T) {
	scenario, facilities := testModelScenario(t)
	if _, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, "elastic", false); err == nil {
		t.Fatalf("expected error for unknown capacity mode")
	}
}

func TestModelRejectsDepotFacility(t *testing.T) {
	scenario, facilities := testModelScenario(t)
	facilities["f1"].IsDepot = true
	if _, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, ModeFixedCapacity, false); err == nil {
		t.Fatalf("expected error for depot-flagged facility")
	}
}

func TestModelFailsOnMissingServingCost(t *testing.T) {
	z := domain.NewDeliveryZone("z1", domain.GeoPoint{AreaKm2: 1}, 0.57)
	if err := z.SetScenarioData([]float64{50}, []float64{1}, []float64{10}); err != nil {
		t.Fatalf("attach zone data: %v", err)
	}
	s := domain.NewScenario("1", map[string]*domain.DeliveryZone{"z1": z}, 1)
	// Tables never attached: demand is positive, so building must fail.

	facilities := map[string]*domain.Facility{
		"f1": {
			ID:               "f1",
			Capacity:         map[string]float64{"base": 100},
			CostInstallation: map[string]float64{"base": 500},
		},
	}
	model, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": s}, 1, ModeFixedCapacity, false)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if err := model.Build(); err == nil {
		t.Fatalf("expected build error for missing serving cost")
	}
}

func TestModelParamForwarding(t *testing.T) {
	scenario, facilities := testModelScenario(t)
	model, err := NewSAAModel(solver.New(), facilities,
		map[string]*domain.Scenario{"1": scenario}, 1, ModeFixedCapacity, false)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}

	if err := model.SetParams(map[string]float64{"TimeLimit": 60}); err != nil {
		t.Fatalf("set TimeLimit: %v", err)
	}
	if err := model.SetParams(map[string]float64{"MIPFocus": 1}); err == nil {
		t.Fatalf("expected error for unsupported parameter")
	}
}
