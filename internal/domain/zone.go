package domain

import "fmt"

// Represents a geographic delivery zone (a demand pixel). A zone carries
// static geography plus, once a demand realization has been attached,
// per-period demand (items), drop (items per customer) and stop (customer
// count) series. A zone without attached data is unavailable and excluded
// from scenario processing.
type DeliveryZone struct {
	ID       string
	Location GeoPoint

	// Circuit factor for the intra-zone tour-length approximation.
	K float64

	DemandByPeriod []float64
	DropByPeriod   []float64
	StopByPeriod   []float64

	available bool
}

func NewDeliveryZone(id string, location GeoPoint, k float64) *DeliveryZone {
	if k == 0 {
		k = DefaultCircuitFactor
	}
	return &DeliveryZone{ID: id, Location: location, K: k}
}

// SetScenarioData attaches one demand realization and marks the zone
// available. Write-once: a second call is rejected.
func (z *DeliveryZone) SetScenarioData(demand, drop, stop []float64) error {
	if z.available {
		return fmt.Errorf("zone %q: scenario data already attached", z.ID)
	}
	if len(demand) != len(drop) || len(demand) != len(stop) {
		return fmt.Errorf("zone %q: demand/drop/stop series length mismatch (%d/%d/%d)",
			z.ID, len(demand), len(drop), len(stop))
	}
	z.DemandByPeriod = demand
	z.DropByPeriod = drop
	z.StopByPeriod = stop
	z.available = true
	return nil
}

func (z *DeliveryZone) Available() bool { return z.available }

// Demand returns the demand (items) in a period, zero beyond the series.
func (z *DeliveryZone) Demand(period int) float64 {
	if period < 0 || period >= len(z.DemandByPeriod) {
		return 0
	}
	return z.DemandByPeriod[period]
}

func (z *DeliveryZone) Drop(period int) float64 {
	if period < 0 || period >= len(z.DropByPeriod) {
		return 0
	}
	return z.DropByPeriod[period]
}

func (z *DeliveryZone) Stop(period int) float64 {
	if period < 0 || period >= len(z.StopByPeriod) {
		return 0
	}
	return z.StopByPeriod[period]
}
