// Package spreadsheet loads problem instances from a single xlsx workbook.
// Expected sheets: facilities, zones, vehicles, distances, depot_distances.
package spreadsheet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"network-design-service/internal/adapters/distance"
	"network-design-service/internal/domain"
)

const (
	sheetFacilities = "facilities"
	sheetZones      = "zones"
	sheetVehicles   = "vehicles"
	sheetDistances  = "distances"
	sheetDepotDist  = "depot_distances"
)

// Workbook reads one instance workbook. Each Load call opens and closes the
// file; instances are small and loaded once per run.
type Workbook struct {
	path string
}

func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

func (w *Workbook) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", w.path, err)
	}
	return f, nil
}

// LoadFacilities reads the facilities sheet. Header row: id, lon, lat,
// is_depot, capacity, cost_installation, cost_operation, cost_sourcing.
// The three map-valued columns hold JSON objects keyed by tier label.
func (w *Workbook) LoadFacilities(ctx context.Context) (map[string]*domain.Facility, error) {
	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetFacilities)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetFacilities, err)
	}

	out := make(map[string]*domain.Facility)
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		if len(row) < 8 {
			return nil, fmt.Errorf("sheet %s row %d: want 8 columns, got %d", sheetFacilities, i+1, len(row))
		}
		id := strings.TrimSpace(row[0])
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("sheet %s row %d: duplicate facility %q", sheetFacilities, i+1, id)
		}

		lon, err := cellFloat(sheetFacilities, i, "lon", row[1])
		if err != nil {
			return nil, err
		}
		lat, err := cellFloat(sheetFacilities, i, "lat", row[2])
		if err != nil {
			return nil, err
		}
		isDepot, err := cellBool(sheetFacilities, i, "is_depot", row[3])
		if err != nil {
			return nil, err
		}

		fac := &domain.Facility{
			ID:       id,
			Location: domain.GeoPoint{Lon: lon, Lat: lat},
			IsDepot:  isDepot,
		}
		if err := json.Unmarshal([]byte(row[4]), &fac.Capacity); err != nil {
			return nil, fmt.Errorf("sheet %s row %d: capacity: %w", sheetFacilities, i+1, err)
		}
		if err := json.Unmarshal([]byte(row[5]), &fac.CostInstallation); err != nil {
			return nil, fmt.Errorf("sheet %s row %d: cost_installation: %w", sheetFacilities, i+1, err)
		}
		if err := json.Unmarshal([]byte(row[6]), &fac.CostOperation); err != nil {
			return nil, fmt.Errorf("sheet %s row %d: cost_operation: %w", sheetFacilities, i+1, err)
		}
		if fac.CostSourcing, err = cellFloat(sheetFacilities, i, "cost_sourcing", row[7]); err != nil {
			return nil, err
		}
		out[id] = fac
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sheet %s: no facilities", sheetFacilities)
	}
	return out, nil
}

// LoadZones reads the zones sheet. Header row: id, lon, lat, area_km2, k,
// plus an optional speed_intra_stop column holding a JSON object keyed by
// vehicle id. Zones come back without demand data; a scenario realization
// attaches it.
func (w *Workbook) LoadZones(ctx context.Context) (map[string]*domain.DeliveryZone, error) {
	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetZones)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetZones, err)
	}

	out := make(map[string]*domain.DeliveryZone)
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("sheet %s row %d: want 5 columns, got %d", sheetZones, i+1, len(row))
		}
		id := strings.TrimSpace(row[0])
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("sheet %s row %d: duplicate zone %q", sheetZones, i+1, id)
		}

		lon, err := cellFloat(sheetZones, i, "lon", row[1])
		if err != nil {
			return nil, err
		}
		lat, err := cellFloat(sheetZones, i, "lat", row[2])
		if err != nil {
			return nil, err
		}
		area, err := cellFloat(sheetZones, i, "area_km2", row[3])
		if err != nil {
			return nil, err
		}
		k, err := cellFloat(sheetZones, i, "k", row[4])
		if err != nil {
			return nil, err
		}

		loc := domain.GeoPoint{Lon: lon, Lat: lat, AreaKm2: area}
		if len(row) > 5 && strings.TrimSpace(row[5]) != "" {
			if err := json.Unmarshal([]byte(row[5]), &loc.SpeedIntraStop); err != nil {
				return nil, fmt.Errorf("sheet %s row %d: speed_intra_stop: %w", sheetZones, i+1, err)
			}
		}
		out[id] = domain.NewDeliveryZone(id, loc, k)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sheet %s: no zones", sheetZones)
	}
	return out, nil
}

var vehicleColumns = []string{
	"id", "type", "capacity", "cost_fixed", "cost_hour", "cost_km", "cost_item",
	"time_prep", "time_loading_per_item", "time_set_up", "time_service",
	"speed_line_haul", "speed_inter_stop", "t_max", "k",
}

// LoadVehicles reads the vehicles sheet; see vehicleColumns for the header.
// A workbook without a vehicles sheet gets the built-in van/truck pair.
func (w *Workbook) LoadVehicles(ctx context.Context) (map[string]*domain.Vehicle, error) {
	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetVehicles)
	if err != nil {
		var noSheet excelize.ErrSheetNotExist
		if errors.As(err, &noSheet) {
			return domain.DefaultVehicles(), nil
		}
		return nil, fmt.Errorf("read sheet %s: %w", sheetVehicles, err)
	}

	out := make(map[string]*domain.Vehicle)
	for i, row := range rows {
		if i == 0 || isBlank(row) {
			continue
		}
		if len(row) < len(vehicleColumns) {
			return nil, fmt.Errorf("sheet %s row %d: want %d columns, got %d",
				sheetVehicles, i+1, len(vehicleColumns), len(row))
		}
		id := strings.TrimSpace(row[0])
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("sheet %s row %d: duplicate vehicle %q", sheetVehicles, i+1, id)
		}

		vt := strings.TrimSpace(row[1])
		if vt != domain.VehicleTypeLineHaul && vt != domain.VehicleTypeZone {
			return nil, fmt.Errorf("sheet %s row %d: unknown vehicle type %q", sheetVehicles, i+1, vt)
		}

		nums := make([]float64, len(vehicleColumns)-2)
		for c := 2; c < len(vehicleColumns); c++ {
			v, err := cellFloat(sheetVehicles, i, vehicleColumns[c], row[c])
			if err != nil {
				return nil, err
			}
			nums[c-2] = v
		}

		veh := &domain.Vehicle{
			ID:                 id,
			Type:               vt,
			Capacity:           nums[0],
			CostFixed:          nums[1],
			CostHour:           nums[2],
			CostKm:             nums[3],
			CostItem:           nums[4],
			TimePrep:           nums[5],
			TimeLoadingPerItem: nums[6],
			TimeSetUp:          nums[7],
			TimeService:        nums[8],
			SpeedLineHaul:      nums[9],
			SpeedInterStop:     nums[10],
			TMax:               nums[11],
			K:                  nums[12],
		}
		if err := veh.Validate(); err != nil {
			return nil, fmt.Errorf("sheet %s row %d: %w", sheetVehicles, i+1, err)
		}
		out[id] = veh
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("sheet %s: no vehicles", sheetVehicles)
	}
	return out, nil
}

// LoadDistances builds a MatrixLookup from the two distance sheets. The
// distances sheet is a matrix: first row lists zone ids, first column lists
// facility ids. The depot_distances sheet has rows of (facility id, km).
func (w *Workbook) LoadDistances() (*distance.MatrixLookup, error) {
	f, err := w.open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := f.GetRows(sheetDistances)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetDistances, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s: empty matrix", sheetDistances)
	}

	zoneIDs := rows[0][1:]
	var pairs []distance.ZonePair
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		facilityID := strings.TrimSpace(row[0])
		if len(row)-1 < len(zoneIDs) {
			return nil, fmt.Errorf("sheet %s row %d: want %d distances, got %d",
				sheetDistances, i+2, len(zoneIDs), len(row)-1)
		}
		for c, zoneID := range zoneIDs {
			km, err := cellFloat(sheetDistances, i+1, strings.TrimSpace(zoneID), row[c+1])
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, distance.ZonePair{
				Facility: facilityID,
				Zone:     strings.TrimSpace(zoneID),
				Km:       km,
			})
		}
	}

	depotRows, err := f.GetRows(sheetDepotDist)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetDepotDist, err)
	}
	depotKm := make(map[string]float64)
	for i, row := range depotRows {
		if i == 0 || isBlank(row) {
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("sheet %s row %d: want 2 columns, got %d", sheetDepotDist, i+1, len(row))
		}
		km, err := cellFloat(sheetDepotDist, i, "km", row[1])
		if err != nil {
			return nil, err
		}
		depotKm[strings.TrimSpace(row[0])] = km
	}

	return distance.NewMatrixLookup(pairs, depotKm), nil
}

func cellFloat(sheet string, rowIdx int, column, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("sheet %s row %d: column %s: parse %q: %w", sheet, rowIdx+1, column, raw, err)
	}
	return v, nil
}

func cellBool(sheet string, rowIdx int, column, raw string) (bool, error) {
	v, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return false, fmt.Errorf("sheet %s row %d: column %s: parse %q: %w", sheet, rowIdx+1, column, raw, err)
	}
	return v, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
