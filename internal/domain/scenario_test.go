package domain

import "testing"

func TestZoneScenarioDataWriteOnce(t *testing.T) {
	z := NewDeliveryZone("z1", GeoPoint{AreaKm2: 1}, 0)

	if z.Available() {
		t.Fatalf("zone available before data attached")
	}
	if z.K != DefaultCircuitFactor {
		t.Fatalf("expected default circuit factor %v, got %v", DefaultCircuitFactor, z.K)
	}

	if err := z.SetScenarioData([]float64{10}, []float64{1}, []float64{5}); err != nil {
		t.Fatalf("attach scenario data: %v", err)
	}
	if !z.Available() {
		t.Fatalf("zone not available after data attached")
	}
	if got := z.Demand(0); got != 10 {
		t.Fatalf("expected demand 10, got %v", got)
	}
	if got := z.Demand(5); got != 0 {
		t.Fatalf("expected zero demand beyond series, got %v", got)
	}

	if err := z.SetScenarioData([]float64{1}, []float64{1}, []float64{1}); err == nil {
		t.Fatalf("expected error on second data attach")
	}
}

func TestZoneScenarioDataLengthMismatch(t *testing.T) {
	z := NewDeliveryZone("z1", GeoPoint{}, 0.57)
	if err := z.SetScenarioData([]float64{1, 2}, []float64{1}, []float64{1, 2}); err == nil {
		t.Fatalf("expected error on series length mismatch")
	}
}

func TestScenarioTablesWriteOnce(t *testing.T) {
	s := NewScenario("1", nil, 1)

	costs := map[FacilityZonePeriod]float64{{Facility: "f1", Zone: "z1", Period: 0}: 27.38}
	fleet := map[FacilityZonePeriod]float64{{Facility: "f1", Zone: "z1", Period: 0}: 0.23}
	if err := s.SetFacilityTables(costs, fleet); err != nil {
		t.Fatalf("attach facility tables: %v", err)
	}
	if err := s.SetFacilityTables(costs, fleet); err == nil {
		t.Fatalf("expected error on second facility table attach")
	}

	if got, ok := s.ServingCost(FacilityZonePeriod{Facility: "f1", Zone: "z1", Period: 0}); !ok || got != 27.38 {
		t.Fatalf("expected serving cost 27.38, got %v ok=%t", got, ok)
	}
	if _, ok := s.ServingCost(FacilityZonePeriod{Facility: "f2", Zone: "z1", Period: 0}); ok {
		t.Fatalf("expected missing entry for unknown facility")
	}

	depotCosts := map[ZonePeriod]float64{{Zone: "z1", Period: 0}: 3147.88}
	depotFleet := map[ZonePeriod]float64{{Zone: "z1", Period: 0}: 1.14}
	if err := s.SetDepotTables(depotCosts, depotFleet); err != nil {
		t.Fatalf("attach depot tables: %v", err)
	}
	if err := s.SetDepotTables(depotCosts, depotFleet); err == nil {
		t.Fatalf("expected error on second depot table attach")
	}
}
