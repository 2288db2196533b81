package scenarios

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"network-design-service/internal/domain"
)

type stubZones struct{}

func (stubZones) LoadZones(ctx context.Context) (map[string]*domain.DeliveryZone, error) {
	return map[string]*domain.DeliveryZone{
		"z1": domain.NewDeliveryZone("z1", domain.GeoPoint{AreaKm2: 1}, 0.57),
		"z2": domain.NewDeliveryZone("z2", domain.GeoPoint{AreaKm2: 2}, 0.57),
	}, nil
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenario_1.json", `{
		"zones": {
			"z1": {"demand": [50, 0], "drop": [1, 0], "stop": [10, 0]},
			"z9": {"demand": [5], "drop": [1], "stop": [2]}
		}
	}`)

	l := NewJSONLoader(dir, stubZones{})
	s, err := l.LoadScenario(context.Background(), "1", 2)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	if s.ID != "1" || s.Periods != 2 {
		t.Fatalf("unexpected scenario header: id=%q periods=%d", s.ID, s.Periods)
	}
	// z9 is unknown and skipped, z2 has no realization.
	if len(s.Zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(s.Zones))
	}
	z1 := s.Zones["z1"]
	if z1 == nil || !z1.Available() {
		t.Fatalf("z1 missing or unavailable")
	}
	if got := z1.Demand(0); got != 50 {
		t.Fatalf("expected demand 50, got %v", got)
	}
	if z1.Location.AreaKm2 != 1 {
		t.Fatalf("static geometry not carried over: area=%v", z1.Location.AreaKm2)
	}
}

func TestLoadScenarioFreshCopies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenario_1.json", `{"zones": {"z1": {"demand": [50], "drop": [1], "stop": [10]}}}`)
	writeFile(t, dir, "scenario_2.json", `{"zones": {"z1": {"demand": [80], "drop": [2], "stop": [20]}}}`)

	l := NewJSONLoader(dir, stubZones{})
	s1, err := l.LoadScenario(context.Background(), "1", 1)
	if err != nil {
		t.Fatalf("load scenario 1: %v", err)
	}
	s2, err := l.LoadScenario(context.Background(), "2", 1)
	if err != nil {
		t.Fatalf("load scenario 2: %v", err)
	}

	if s1.Zones["z1"].Demand(0) != 50 || s2.Zones["z1"].Demand(0) != 80 {
		t.Fatalf("realizations bleed across scenarios: %v / %v",
			s1.Zones["z1"].Demand(0), s2.Zones["z1"].Demand(0))
	}
}

func TestLoadScenarioShortSeries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scenario_1.json", `{"zones": {"z1": {"demand": [50], "drop": [1], "stop": [10]}}}`)

	l := NewJSONLoader(dir, stubZones{})
	if _, err := l.LoadScenario(context.Background(), "1", 3); err == nil {
		t.Fatalf("expected error for series shorter than period count")
	}
}

func TestSampleIDsDefault(t *testing.T) {
	l := NewJSONLoader(t.TempDir(), stubZones{})
	ids, err := l.SampleIDs(context.Background(), 3, false, 0)
	if err != nil {
		t.Fatalf("sample ids: %v", err)
	}
	if len(ids) != 3 || ids[0] != "1" || ids[2] != "3" {
		t.Fatalf("expected default ids 1..3, got %v", ids)
	}
}

func TestSampleIDsFromSamplingFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "sampling_7.json", `["12", "4", "9"]`)

	l := NewJSONLoader(dir, stubZones{})
	ids, err := l.SampleIDs(context.Background(), 2, false, 7)
	if err != nil {
		t.Fatalf("sample ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "12" || ids[1] != "4" {
		t.Fatalf("expected first 2 persisted ids, got %v", ids)
	}

	if _, err := l.SampleIDs(context.Background(), 5, false, 7); err == nil {
		t.Fatalf("expected error when sample is too small")
	}
}

func TestSampleIDsEvaluation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "evaluation.json", `["101", "102"]`)

	l := NewJSONLoader(dir, stubZones{})
	ids, err := l.SampleIDs(context.Background(), 1, true, 0)
	if err != nil {
		t.Fatalf("sample ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "101" {
		t.Fatalf("expected full evaluation sample, got %v", ids)
	}

	if _, err := NewJSONLoader(t.TempDir(), stubZones{}).SampleIDs(context.Background(), 1, true, 0); err == nil {
		t.Fatalf("expected error when evaluation sample is missing")
	}
}
