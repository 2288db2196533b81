package domain

// Immutable geographic point (longitude, latitude) with optional surface
// area and per-vehicle intra-stop speeds for delivery zones.
type GeoPoint struct {
	Lon     float64
	Lat     float64
	AreaKm2 float64

	// Intra-stop travel speed (km/h) keyed by vehicle id. Loaded as data;
	// the CA formulas use the vehicle's own inter-stop speed.
	SpeedIntraStop map[string]float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (g GeoPoint) CoordsToList() []float64 { return []float64{g.Lon, g.Lat} }
