package domain

import "fmt"

// DefaultCircuitFactor calibrates the continuous-approximation tour-length
// estimate (Daganzo's k constant).
const DefaultCircuitFactor = 0.57

// Vehicle type tags. The line-haul type shuttles between the depot and a
// satellite facility and never performs intra-zone tours.
const (
	VehicleTypeLineHaul = "line-haul"
	VehicleTypeZone     = "zone"
)

// Represents a vehicle class used either for last-mile zone service or for
// depot-to-facility line-haul replenishment. All times are in hours, speeds
// in km/h, capacity in items.
type Vehicle struct {
	ID   string
	Type string

	Capacity  float64
	CostFixed float64

	// Tour preparation: fixed dispatch time plus per-item loading time.
	TimePrep           float64
	TimeLoadingPerItem float64

	// Intra-stop: per-customer set-up time plus per-item service time.
	TimeSetUp   float64
	TimeService float64

	SpeedLineHaul  float64
	SpeedInterStop float64

	// Maximum route duration.
	TMax float64

	CostHour float64
	CostKm   float64
	CostItem float64

	// Circuit factor for the tour-length approximation.
	K float64
}

func (v Vehicle) IsLineHaul() bool { return v.Type == VehicleTypeLineHaul }

func (v Vehicle) Validate() error {
	if v.Capacity <= 0 {
		return fmt.Errorf("vehicle %q: capacity must be positive, got %v", v.ID, v.Capacity)
	}
	if v.TMax <= 0 {
		return fmt.Errorf("vehicle %q: t_max must be positive, got %v", v.ID, v.TMax)
	}
	return nil
}

// DefaultVehicles returns the built-in zone van and line-haul truck used when
// no vehicle sheet is supplied.
func DefaultVehicles() map[string]*Vehicle {
	return map[string]*Vehicle{
		"van": {
			ID:                 "van",
			Type:               VehicleTypeZone,
			Capacity:           115,
			CostFixed:          67,
			TimePrep:           5.0 / 60,
			TimeLoadingPerItem: 0.067 / 60,
			TimeSetUp:          2.0 / 60,
			TimeService:        1.0 / 60,
			SpeedLineHaul:      50,
			SpeedInterStop:     35,
			TMax:               12,
			CostHour:           53.9,
			CostKm:             0.37,
			CostItem:           0.5,
			K:                  DefaultCircuitFactor,
		},
		"truck": {
			ID:                 "truck",
			Type:               VehicleTypeLineHaul,
			Capacity:           460,
			CostFixed:          268,
			TimePrep:           10.0 / 60,
			TimeLoadingPerItem: 0.05 / 60,
			TimeSetUp:          2.0 / 60,
			TimeService:        2.0 / 60,
			SpeedLineHaul:      35,
			SpeedInterStop:     20,
			TMax:               12,
			CostHour:           50,
			CostKm:             8.7,
			CostItem:           0.5,
			K:                  1,
		},
	}
}
