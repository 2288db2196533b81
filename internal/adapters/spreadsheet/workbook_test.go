package spreadsheet

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"network-design-service/internal/domain"
)

func writeTestWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheets := map[string][][]any{
		sheetFacilities: {
			{"id", "lon", "lat", "is_depot", "capacity", "cost_installation", "cost_operation", "cost_sourcing"},
			{"f1", -122.4, 37.7, "false",
				`{"none":0,"base":100}`, `{"none":0,"base":500}`, `{"none":[0],"base":[50]}`, 0.1},
			{"d1", -122.5, 37.8, "true",
				`{"none":0}`, `{"none":0}`, `{"none":[0]}`, 0},
		},
		sheetZones: {
			{"id", "lon", "lat", "area_km2", "k", "speed_intra_stop"},
			{"z1", -122.41, 37.71, 1.5, 0.57, `{"van":30}`},
			{"z2", -122.42, 37.72, 2.0, 0.62},
		},
		sheetVehicles: {
			{"id", "type", "capacity", "cost_fixed", "cost_hour", "cost_km", "cost_item",
				"time_prep", "time_loading_per_item", "time_set_up", "time_service",
				"speed_line_haul", "speed_inter_stop", "t_max", "k"},
			{"van", "zone", 115, 67, 53.9, 0.37, 0.5,
				0.0833, 0.0011, 0.0333, 0.0167, 50, 35, 12, 0.57},
			{"truck", "line-haul", 460, 268, 50, 8.7, 0.5,
				0.1667, 0.0008, 0.0333, 0.0333, 35, 20, 12, 1},
		},
		sheetDistances: {
			{"", "z1", "z2"},
			{"f1", 5.0, 6.5},
			{"d1", 20.0, 21.5},
		},
		sheetDepotDist: {
			{"facility", "km"},
			{"f1", 7.0},
			{"d1", 0.0},
		},
	}

	for name, rows := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("create sheet %s: %v", name, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("write row %d of %s: %v", i+1, name, err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "instance.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestLoadFacilities(t *testing.T) {
	w := NewWorkbook(writeTestWorkbook(t))

	facilities, err := w.LoadFacilities(context.Background())
	if err != nil {
		t.Fatalf("load facilities: %v", err)
	}
	if len(facilities) != 2 {
		t.Fatalf("expected 2 facilities, got %d", len(facilities))
	}

	f1 := facilities["f1"]
	if f1 == nil {
		t.Fatalf("missing facility f1")
	}
	if f1.IsDepot {
		t.Fatalf("f1 must not be depot-flagged")
	}
	if got := f1.Capacity["base"]; got != 100 {
		t.Fatalf("expected base capacity 100, got %v", got)
	}
	if got := f1.CostInstallation["base"]; got != 500 {
		t.Fatalf("expected base installation 500, got %v", got)
	}
	if got := f1.OperatingCost("base", 0); got != 50 {
		t.Fatalf("expected base operating cost 50, got %v", got)
	}
	if !facilities["d1"].IsDepot {
		t.Fatalf("d1 must be depot-flagged")
	}
}

func TestLoadZones(t *testing.T) {
	w := NewWorkbook(writeTestWorkbook(t))

	zones, err := w.LoadZones(context.Background())
	if err != nil {
		t.Fatalf("load zones: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}

	z1 := zones["z1"]
	if z1.Location.AreaKm2 != 1.5 || z1.K != 0.57 {
		t.Fatalf("unexpected z1 geometry: area=%v k=%v", z1.Location.AreaKm2, z1.K)
	}
	if z1.Available() {
		t.Fatalf("loaded zone must not have demand data attached")
	}
	if got := z1.Location.SpeedIntraStop["van"]; got != 30 {
		t.Fatalf("expected van intra-stop speed 30, got %v", got)
	}
	if zones["z2"].Location.SpeedIntraStop != nil {
		t.Fatalf("expected no speed map for z2")
	}
}

func TestLoadVehicles(t *testing.T) {
	w := NewWorkbook(writeTestWorkbook(t))

	vehicles, err := w.LoadVehicles(context.Background())
	if err != nil {
		t.Fatalf("load vehicles: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(vehicles))
	}

	van := vehicles["van"]
	if van.Type != domain.VehicleTypeZone || van.Capacity != 115 || van.CostHour != 53.9 {
		t.Fatalf("unexpected van: type=%q capacity=%v cost_hour=%v", van.Type, van.Capacity, van.CostHour)
	}
	if !vehicles["truck"].IsLineHaul() {
		t.Fatalf("truck must be line-haul")
	}
}

func TestLoadVehiclesFallsBackToDefaults(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	path := filepath.Join(t.TempDir(), "no-vehicles.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	vehicles, err := NewWorkbook(path).LoadVehicles(context.Background())
	if err != nil {
		t.Fatalf("load vehicles: %v", err)
	}
	if len(vehicles) != 2 {
		t.Fatalf("expected built-in vehicle pair, got %d", len(vehicles))
	}
	if vehicles["van"] == nil || vehicles["van"].Type != domain.VehicleTypeZone {
		t.Fatalf("expected built-in zone van, got %+v", vehicles["van"])
	}
	if vehicles["truck"] == nil || !vehicles["truck"].IsLineHaul() {
		t.Fatalf("expected built-in line-haul truck, got %+v", vehicles["truck"])
	}
}

func TestLoadDistances(t *testing.T) {
	w := NewWorkbook(writeTestWorkbook(t))

	lookup, err := w.LoadDistances()
	if err != nil {
		t.Fatalf("load distances: %v", err)
	}

	if d, err := lookup.ZoneDistanceKm("f1", "z2"); err != nil || d != 6.5 {
		t.Fatalf("expected f1->z2 = 6.5, got %v err=%v", d, err)
	}
	if d, err := lookup.DepotDistanceKm("f1"); err != nil || d != 7 {
		t.Fatalf("expected depot distance 7 for f1, got %v err=%v", d, err)
	}
	if _, err := lookup.ZoneDistanceKm("f1", "z9"); err == nil {
		t.Fatalf("expected error for unknown zone")
	}
}

func TestLoadMissingWorkbook(t *testing.T) {
	w := NewWorkbook(filepath.Join(t.TempDir(), "missing.xlsx"))
	if _, err := w.LoadFacilities(context.Background()); err == nil {
		t.Fatalf("expected error for missing workbook")
	}
}
