package distance

import (
	"fmt"
	"math"

	"network-design-service/internal/domain"
)

type ZonePair struct {
	Facility, Zone string
	Km             float64
}

// MatrixLookup serves precomputed facility-zone and facility-depot distances
// from memory. Missing pairs are errors, never defaults.
type MatrixLookup struct {
	zones map[string]float64
	depot map[string]float64
}

func NewMatrixLookup(pairs []ZonePair, depotKm map[string]float64) *MatrixLookup {
	zones := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		zones[p.Facility+"|"+p.Zone] = p.Km
	}
	return &MatrixLookup{zones: zones, depot: depotKm}
}

func (l *MatrixLookup) ZoneDistanceKm(facilityID, zoneID string) (float64, error) {
	d, ok := l.zones[facilityID+"|"+zoneID]
	if !ok {
		return 0, fmt.Errorf("missing distance %q -> %q", facilityID, zoneID)
	}
	return d, nil
}

func (l *MatrixLookup) DepotDistanceKm(facilityID string) (float64, error) {
	d, ok := l.depot[facilityID]
	if !ok {
		return 0, fmt.Errorf("missing depot distance for %q", facilityID)
	}
	return d, nil
}

// GeodesicLookup derives distances from coordinates with the haversine
// formula, for instances that ship locations but no distance matrix.
type GeodesicLookup struct {
	facilities map[string]domain.GeoPoint
	zones      map[string]domain.GeoPoint
	depot      domain.GeoPoint
}

func NewGeodesicLookup(
	facilities map[string]*domain.Facility,
	zones map[string]*domain.DeliveryZone,
	depot domain.GeoPoint,
) *GeodesicLookup {
	l := &GeodesicLookup{
		facilities: make(map[string]domain.GeoPoint, len(facilities)),
		zones:      make(map[string]domain.GeoPoint, len(zones)),
		depot:      depot,
	}
	for id, f := range facilities {
		l.facilities[id] = f.Location
	}
	for id, z := range zones {
		l.zones[id] = z.Location
	}
	return l
}

func (l *GeodesicLookup) ZoneDistanceKm(facilityID, zoneID string) (float64, error) {
	f, ok := l.facilities[facilityID]
	if !ok {
		return 0, fmt.Errorf("unknown facility %q", facilityID)
	}
	z, ok := l.zones[zoneID]
	if !ok {
		return 0, fmt.Errorf("unknown zone %q", zoneID)
	}
	return haversineKm(f, z), nil
}

func (l *GeodesicLookup) DepotDistanceKm(facilityID string) (float64, error) {
	f, ok := l.facilities[facilityID]
	if !ok {
		return 0, fmt.Errorf("unknown facility %q", facilityID)
	}
	return haversineKm(f, l.depot), nil
}

const earthRadiusKm = 6371.0

func haversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
