package ports

// Contract for retrieving precomputed distances, in kilometers.
//
// Absence of a required key is fatal to the caller: implementations return a
// descriptive error naming the missing pair and never substitute a default.
type DistanceLookup interface {
	// Distance between a facility and a delivery zone.
	ZoneDistanceKm(facilityID, zoneID string) (float64, error)

	// Distance between a facility and the central depot.
	DepotDistanceKm(facilityID string) (float64, error)
}
