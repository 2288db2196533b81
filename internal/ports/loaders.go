package ports

import (
	"context"

	"network-design-service/internal/domain"
)

// Port: boundaries for loading the static problem entities, keyed by id.
// Missing source files are fatal; the loaders never fabricate entities.

type FacilityLoader interface {
	LoadFacilities(ctx context.Context) (map[string]*domain.Facility, error)
}

type ZoneLoader interface {
	// Return zones without demand data attached (unavailable until a
	// scenario realization is applied).
	LoadZones(ctx context.Context) (map[string]*domain.DeliveryZone, error)
}

type VehicleLoader interface {
	LoadVehicles(ctx context.Context) (map[string]*domain.Vehicle, error)
}

// Port: produces, per scenario id, the available zones under that demand
// realization. Unknown zone identifiers in the source are logged and skipped,
// not fatal.
type ScenarioLoader interface {
	LoadScenario(ctx context.Context, scenarioID string, periods int) (*domain.Scenario, error)

	// SampleIDs resolves which scenario ids make up the SAA sample: an
	// explicit persisted sample when one exists, the 1..n default otherwise.
	SampleIDs(ctx context.Context, n int, evaluation bool, samplingID int) ([]string, error)
}
