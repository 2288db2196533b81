package domain

import "fmt"

// Represents a candidate distribution facility. A facility is installed at
// exactly one capacity tier; the depot-flagged facility is the line-haul
// origin and serves zones directly instead of being installed.
//
// Constructed once from input data and immutable thereafter; computed CA
// annotations live on Scenario, not here.
type Facility struct {
	ID       string
	Location GeoPoint

	// Capacity tier label -> capacity (fleet-size units).
	Capacity map[string]float64

	// Tier label -> one-off installation cost.
	CostInstallation map[string]float64

	// Tier label -> per-period operating cost.
	CostOperation map[string][]float64

	CostSourcing float64
	IsDepot      bool
}

func (f *Facility) Validate(periods int) error {
	if len(f.Capacity) == 0 {
		return fmt.Errorf("facility %q: no capacity tiers", f.ID)
	}
	for q := range f.Capacity {
		if _, ok := f.CostInstallation[q]; !ok {
			return fmt.Errorf("facility %q: tier %q has no installation cost", f.ID, q)
		}
		if ops, ok := f.CostOperation[q]; ok && len(ops) < periods {
			return fmt.Errorf("facility %q: tier %q has %d operating costs, need %d periods",
				f.ID, q, len(ops), periods)
		}
	}
	return nil
}

// MaxCapacity returns the largest tier capacity.
func (f *Facility) MaxCapacity() float64 {
	max := 0.0
	for _, c := range f.Capacity {
		if c > max {
			max = c
		}
	}
	return max
}

// OperatingCost returns the operating cost of a tier in a period, zero when
// the tier has no operating schedule.
func (f *Facility) OperatingCost(tier string, period int) float64 {
	ops, ok := f.CostOperation[tier]
	if !ok || period >= len(ops) {
		return 0
	}
	return ops[period]
}
