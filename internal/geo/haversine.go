// Package geo holds the great-circle math used by the proximity queries.
package geo

import (
	"math"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// lat/lon points using the spherical law of cosines:
//
//	d = R * acos(cos φ1 · cos φ2 · cos(λ2−λ1) + sin φ1 · sin φ2)
//
// The acos argument is clamped to [-1, 1]: floating-point drift on
// identical or antipodal points can push it fractionally outside the
// domain, which would produce NaN.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180

	arg := math.Cos(p1)*math.Cos(p2)*math.Cos(dl) + math.Sin(p1)*math.Sin(p2)
	if arg > 1 {
		arg = 1
	} else if arg < -1 {
		arg = -1
	}

	return EarthRadiusKm * math.Acos(arg)
}

// BoundingBox returns a lat/lon box that contains every point within
// radiusKm of the center. Used as a cheap SQL prefilter before the exact
// haversine check; it over-selects near the poles, which is fine.
//
// When the box crosses the antimeridian the longitudes wrap instead of
// clamping: minLon > maxLon then denotes the union [minLon,180] ∪
// [-180,maxLon], and callers must match either range.
func BoundingBox(lat, lon, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radiusKm / EarthRadiusKm * 180 / math.Pi

	minLat = math.Max(lat-dLat, -90)
	maxLat = math.Min(lat+dLat, 90)

	// Longitude degrees shrink with cos(lat); guard the degenerate pole case.
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 1e-9 {
		return minLat, maxLat, -180, 180
	}

	dLon := dLat / cosLat
	if dLon >= 180 {
		return minLat, maxLat, -180, 180
	}

	minLon = lon - dLon
	maxLon = lon + dLon
	if minLon < -180 {
		minLon += 360
	}
	if maxLon > 180 {
		maxLon -= 360
	}

	return minLat, maxLat, minLon, maxLon
}
