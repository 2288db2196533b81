package domain

import "fmt"

// Composite keys for the CA cost/fleet tables. Named fields fix the tuple
// order (facility, zone, period) once and for all; a swapped index cannot
// type-check silently.
type FacilityZonePeriod struct {
	Facility string
	Zone     string
	Period   int
}

type ZonePeriod struct {
	Zone   string
	Period int
}

// Represents one demand realization: the available delivery zones with their
// per-period series, plus the CA-computed serving cost and fleet-size tables.
// The tables are attached write-once by the CA engine; reads happen only
// after the engine has run.
type Scenario struct {
	ID      string
	Zones   map[string]*DeliveryZone
	Periods int

	facilityCosts map[FacilityZonePeriod]float64
	facilityFleet map[FacilityZonePeriod]float64
	depotCosts    map[ZonePeriod]float64
	depotFleet    map[ZonePeriod]float64
}

func NewScenario(id string, zones map[string]*DeliveryZone, periods int) *Scenario {
	return &Scenario{ID: id, Zones: zones, Periods: periods}
}

func (s *Scenario) String() string {
	return fmt.Sprintf("Scenario %s with %d zones and %d periods", s.ID, len(s.Zones), s.Periods)
}

// SetFacilityTables attaches the satellite-echelon cost and fleet tables.
// Write-once.
func (s *Scenario) SetFacilityTables(costs, fleet map[FacilityZonePeriod]float64) error {
	if s.facilityCosts != nil {
		return fmt.Errorf("scenario %s: facility tables already attached", s.ID)
	}
	s.facilityCosts = costs
	s.facilityFleet = fleet
	return nil
}

// SetDepotTables attaches the depot-echelon cost and fleet tables. Write-once.
func (s *Scenario) SetDepotTables(costs, fleet map[ZonePeriod]float64) error {
	if s.depotCosts != nil {
		return fmt.Errorf("scenario %s: depot tables already attached", s.ID)
	}
	s.depotCosts = costs
	s.depotFleet = fleet
	return nil
}

// ServingCost returns the total serving cost for a facility/zone/period, with
// ok=false when the CA engine produced no entry (zero demand in that period).
func (s *Scenario) ServingCost(key FacilityZonePeriod) (float64, bool) {
	c, ok := s.facilityCosts[key]
	return c, ok
}

// FleetSize returns the required fleet size for a facility/zone/period.
func (s *Scenario) FleetSize(key FacilityZonePeriod) (float64, bool) {
	n, ok := s.facilityFleet[key]
	return n, ok
}

// DepotServingCost returns the direct-from-depot serving cost for a
// zone/period.
func (s *Scenario) DepotServingCost(key ZonePeriod) (float64, bool) {
	c, ok := s.depotCosts[key]
	return c, ok
}

func (s *Scenario) DepotFleetSize(key ZonePeriod) (float64, bool) {
	n, ok := s.depotFleet[key]
	return n, ok
}
