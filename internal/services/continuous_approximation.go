package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"network-design-service/internal/domain"
	"network-design-service/internal/ports"
)

// TupleKey addresses one CA computation within a scenario.
type TupleKey struct {
	Facility string
	Zone     string
	Vehicle  string
	Period   int
}

// TourMetrics holds every intermediate and final figure of the continuous
// approximation for one tuple (Daganzo/Newell-style, per Snoeck & Winkenbach
// 2020). Monetary figures are unrounded here; the cost table rounds.
type TourMetrics struct {
	TMax                      float64
	EffectiveCapacity         float64
	IntraTourTimePerCustomer  float64
	TourTimePerCustomer       float64
	AverageTourTime           float64
	AverageFullyLoadedTours   float64
	AverageCustomersPerTour   float64
	AverageTours              float64
	AverageFleetSize          float64
	CostTourPreparation       float64
	CostLineHaul              float64
	CostIntraStop             float64
	CostFixed                 float64
	CostVariable              float64
	CostTotal                 float64
	DistanceToCentroidKm      float64
	LineHaulDistanceKm        float64
	FirstEchelonVehicles      float64
}

// scenarioTables accumulates the per-tuple outputs of one scenario's primary
// pass. The injection pass mutates costs in place and must run exactly once,
// strictly after the primary pass has completed.
type scenarioTables struct {
	costs    map[TupleKey]float64
	fleet    map[TupleKey]float64
	params   map[TupleKey]TourMetrics
	injected bool
}

// CAEngine converts geographic and demand inputs into closed-form estimates
// of routing cost and fleet size for every (facility, zone, vehicle, period)
// tuple of every scenario, and writes the aggregated echelon tables back onto
// the Scenario objects.
type CAEngine struct {
	facilities map[string]*domain.Facility
	vehicles   map[string]*domain.Vehicle
	distances  ports.DistanceLookup
}

func NewCAEngine(
	facilities map[string]*domain.Facility,
	vehicles map[string]*domain.Vehicle,
	distances ports.DistanceLookup,
) (*CAEngine, error) {
	if len(facilities) == 0 {
		return nil, errors.New("ca engine: no facilities")
	}
	hasDepot := false
	for _, f := range facilities {
		if f.IsDepot {
			hasDepot = true
		}
	}
	if !hasDepot {
		return nil, errors.New("ca engine: no depot-flagged facility")
	}
	hasZoneVehicle := false
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("ca engine: %w", err)
		}
		if !v.IsLineHaul() {
			hasZoneVehicle = true
		}
	}
	if !hasZoneVehicle {
		return nil, errors.New("ca engine: no zone-serving vehicle type")
	}
	return &CAEngine{facilities: facilities, vehicles: vehicles, distances: distances}, nil
}

// Run executes the two-stage pipeline over all scenarios: the primary
// per-tuple pass (parallel across scenarios), a barrier, the first-echelon
// injection pass, and finally the echelon aggregation onto each Scenario.
func (e *CAEngine) Run(ctx context.Context, scenarios map[string]*domain.Scenario) error {
	results := make(map[string]*scenarioTables, len(scenarios))
	for id := range scenarios {
		results[id] = &scenarioTables{
			costs:  make(map[TupleKey]float64),
			fleet:  make(map[TupleKey]float64),
			params: make(map[TupleKey]TourMetrics),
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for id, scenario := range scenarios {
		g.Go(func() error {
			if err := e.primaryPass(ctx, scenario, results[id]); err != nil {
				return fmt.Errorf("ca engine: scenario %s: %w", id, err)
			}
			return nil
		})
	}
	// Barrier: every primary-pass write must be visible before injection.
	if err := g.Wait(); err != nil {
		return err
	}

	for id, scenario := range scenarios {
		if err := e.injectFirstEchelon(scenario, results[id]); err != nil {
			return fmt.Errorf("ca engine: scenario %s: %w", id, err)
		}
		if err := e.attachTables(scenario, results[id]); err != nil {
			return fmt.Errorf("ca engine: scenario %s: %w", id, err)
		}
		log.Info().
			Str("scenario", id).
			Int("tuples", len(results[id].costs)).
			Msg("continuous approximation complete")
	}
	return nil
}

// primaryPass computes metrics for every tuple with positive demand. Tuples
// with non-positive demand are skipped here; that iteration guard is what
// keeps degenerate drop/density values out of the formulas.
func (e *CAEngine) primaryPass(ctx context.Context, scenario *domain.Scenario, out *scenarioTables) error {
	for zoneID, zone := range scenario.Zones {
		if !zone.Available() {
			continue
		}
		area := zone.Location.AreaKm2
		for t := 0; t < scenario.Periods; t++ {
			demand := zone.Demand(t)
			if demand <= 0 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			drop := zone.Drop(t)
			if area <= 0 {
				return fmt.Errorf("zone %q: non-positive area %v", zoneID, area)
			}
			density := zone.Stop(t) / area
			for facilityID := range e.facilities {
				for vehicleID, vehicle := range e.vehicles {
					distance, err := e.tupleDistance(facilityID, zoneID, vehicle)
					if err != nil {
						return err
					}
					m, err := computeTupleMetrics(zone, vehicle, distance, area, density, drop)
					if err != nil {
						return fmt.Errorf("zone %q period %d facility %q vehicle %q: %w",
							zoneID, t, facilityID, vehicleID, err)
					}
					key := TupleKey{Facility: facilityID, Zone: zoneID, Vehicle: vehicleID, Period: t}
					out.costs[key] = round2(m.CostTotal)
					out.fleet[key] = round2(m.AverageFleetSize)
					out.params[key] = m
				}
			}
		}
	}
	return nil
}

// tupleDistance resolves the distance the tuple's trips cover: facility-depot
// for the line-haul type, facility-zone otherwise. A missing entry is fatal.
func (e *CAEngine) tupleDistance(facilityID, zoneID string, vehicle *domain.Vehicle) (float64, error) {
	if vehicle.IsLineHaul() {
		d, err := e.distances.DepotDistanceKm(facilityID)
		if err != nil {
			return 0, fmt.Errorf("depot distance: %w", err)
		}
		return d, nil
	}
	d, err := e.distances.ZoneDistanceKm(facilityID, zoneID)
	if err != nil {
		return 0, fmt.Errorf("zone distance: %w", err)
	}
	return d, nil
}

// computeTupleMetrics evaluates the closed-form spatial approximation for one
// tuple. Callers guarantee demand > 0; non-positive drop or density reaching
// this point is an upstream invariant violation and fails loudly.
func computeTupleMetrics(
	zone *domain.DeliveryZone,
	vehicle *domain.Vehicle,
	distanceKm, areaKm2, density, drop float64,
) (TourMetrics, error) {
	if drop <= 0 {
		return TourMetrics{}, fmt.Errorf("degenerate input: drop %v", drop)
	}
	if density <= 0 {
		return TourMetrics{}, fmt.Errorf("degenerate input: density %v", density)
	}

	// Customers servable per full vehicle load.
	effectiveCapacity := vehicle.Capacity / drop

	intraTourTime := vehicle.K * zone.K / (math.Sqrt(density) * vehicle.SpeedInterStop)
	tourTimePerCustomer := vehicle.TimeSetUp + vehicle.TimeService*drop + intraTourTime
	averageTourTime := effectiveCapacity * tourTimePerCustomer

	// The line-haul type only shuttles depot<->facility: no intra-route time.
	tourTimeComponent := averageTourTime
	if vehicle.IsLineHaul() {
		tourTimeComponent = 0
	}

	fullyLoadedTours := vehicle.TMax / (tourTimeComponent +
		vehicle.TimePrep +
		vehicle.TimeLoadingPerItem*effectiveCapacity*drop +
		2*distanceKm*vehicle.K/vehicle.SpeedLineHaul)

	customersPerTour := effectiveCapacity * math.Min(1, fullyLoadedTours)
	averageTours := math.Max(1, fullyLoadedTours)

	denom := fullyLoadedTours * effectiveCapacity
	if denom <= 1e-12 {
		return TourMetrics{}, fmt.Errorf("degenerate fleet-size denominator %v", denom)
	}
	fleetSize := areaKm2 * density / denom

	costPrep := vehicle.CostHour * (vehicle.TimePrep +
		vehicle.TimeLoadingPerItem*customersPerTour*drop)

	costLineHaul := vehicle.CostHour*(2*distanceKm*vehicle.K/vehicle.SpeedLineHaul) +
		vehicle.CostKm*(2*distanceKm*vehicle.K)

	costIntraStop := 0.0
	if !vehicle.IsLineHaul() {
		costIntraStop = vehicle.CostHour*tourTimePerCustomer*customersPerTour +
			vehicle.CostKm*(vehicle.K*zone.K*customersPerTour/math.Sqrt(density))
	}

	costFixed := fleetSize * vehicle.CostFixed
	costVariable := fleetSize * averageTours * (costPrep + costLineHaul + costIntraStop)

	return TourMetrics{
		TMax:                     vehicle.TMax,
		EffectiveCapacity:        effectiveCapacity,
		IntraTourTimePerCustomer: intraTourTime,
		TourTimePerCustomer:      tourTimePerCustomer,
		AverageTourTime:          averageTourTime,
		AverageFullyLoadedTours:  fullyLoadedTours,
		AverageCustomersPerTour:  customersPerTour,
		AverageTours:             averageTours,
		AverageFleetSize:         fleetSize,
		CostTourPreparation:      costPrep,
		CostLineHaul:             costLineHaul,
		CostIntraStop:            costIntraStop,
		CostFixed:                costFixed,
		CostVariable:             costVariable,
		CostTotal:                costFixed + costVariable,
		DistanceToCentroidKm:     distanceKm,
	}, nil
}

// injectFirstEchelon adds, for every non-depot facility, the line-haul cost
// into every other vehicle type's entry for the same (facility, zone,
// period): a ground vehicle trip has to be fed by a depot replenishment trip
// first. Re-invocation would double-count line-haul cost and is rejected.
func (e *CAEngine) injectFirstEchelon(scenario *domain.Scenario, tables *scenarioTables) error {
	if tables.injected {
		return errors.New("first-echelon injection already applied")
	}
	tables.injected = true

	lineHaulIDs := make([]string, 0, 1)
	for id, v := range e.vehicles {
		if v.IsLineHaul() {
			lineHaulIDs = append(lineHaulIDs, id)
		}
	}
	if len(lineHaulIDs) == 0 {
		return nil
	}

	for zoneID, zone := range scenario.Zones {
		if !zone.Available() {
			continue
		}
		for t := 0; t < scenario.Periods; t++ {
			if zone.Demand(t) <= 0 {
				continue
			}
			for facilityID, facility := range e.facilities {
				if facility.IsDepot {
					continue
				}
				for _, lh := range lineHaulIDs {
					lhKey := TupleKey{Facility: facilityID, Zone: zoneID, Vehicle: lh, Period: t}
					lhCost, ok := tables.costs[lhKey]
					if !ok {
						return fmt.Errorf("missing line-haul entry for facility %q zone %q period %d",
							facilityID, zoneID, t)
					}
					lhFleet := tables.fleet[lhKey]
					lhParams := tables.params[lhKey]
					for vehicleID, vehicle := range e.vehicles {
						if vehicle.IsLineHaul() {
							continue
						}
						key := TupleKey{Facility: facilityID, Zone: zoneID, Vehicle: vehicleID, Period: t}
						tables.costs[key] = round2(tables.costs[key] + lhCost)
						tables.fleet[key] = round2(tables.fleet[key] + lhFleet)
						p := tables.params[key]
						p.LineHaulDistanceKm = lhParams.DistanceToCentroidKm
						p.FirstEchelonVehicles = lhParams.AverageFleetSize
						tables.params[key] = p
					}
				}
			}
		}
	}
	return nil
}

// attachTables aggregates the per-vehicle tuples into the two echelon tables
// the model builder consumes, picking the cheapest zone-serving vehicle type
// per key (ties broken by vehicle id for determinism).
func (e *CAEngine) attachTables(scenario *domain.Scenario, tables *scenarioTables) error {
	facilityCosts := make(map[domain.FacilityZonePeriod]float64)
	facilityFleet := make(map[domain.FacilityZonePeriod]float64)
	depotCosts := make(map[domain.ZonePeriod]float64)
	depotFleet := make(map[domain.ZonePeriod]float64)
	chosen := make(map[domain.FacilityZonePeriod]string)
	chosenDepot := make(map[domain.ZonePeriod]string)

	for key, cost := range tables.costs {
		vehicle := e.vehicles[key.Vehicle]
		if vehicle.IsLineHaul() {
			continue
		}
		facility := e.facilities[key.Facility]
		if facility.IsDepot {
			zp := domain.ZonePeriod{Zone: key.Zone, Period: key.Period}
			prev, ok := depotCosts[zp]
			if !ok || cost < prev || (cost == prev && key.Vehicle < chosenDepot[zp]) {
				depotCosts[zp] = cost
				depotFleet[zp] = tables.fleet[key]
				chosenDepot[zp] = key.Vehicle
			}
			continue
		}
		fzp := domain.FacilityZonePeriod{Facility: key.Facility, Zone: key.Zone, Period: key.Period}
		prev, ok := facilityCosts[fzp]
		if !ok || cost < prev || (cost == prev && key.Vehicle < chosen[fzp]) {
			facilityCosts[fzp] = cost
			facilityFleet[fzp] = tables.fleet[key]
			chosen[fzp] = key.Vehicle
		}
	}

	if err := scenario.SetFacilityTables(facilityCosts, facilityFleet); err != nil {
		return err
	}
	return scenario.SetDepotTables(depotCosts, depotFleet)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
