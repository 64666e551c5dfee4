package pricing

import (
	"math"

	"github.com/aquafindr/aquafindr-backend/pkg/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers.
func HaversineKm(a, b types.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceKm computes the vendor-to-site distance when both coordinates are
// known. The boolean is false when either side is missing, which callers
// treat as "no surcharge, not rankable by distance".
func DistanceKm(vendor, site *types.GeoPoint) (float64, bool) {
	if vendor == nil || site == nil || vendor.IsZero() || site.IsZero() {
		return 0, false
	}
	return HaversineKm(*vendor, *site), true
}
