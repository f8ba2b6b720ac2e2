package track

import (
	"math"

	"github.com/satview/satview/internal/transform"
)

// EarthRadiusKm is the mean Earth radius used for footprint geometry.
const EarthRadiusKm = 6378.137

const (
	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// CoverageCircle returns the horizon-limited ground footprint of a satellite
// whose sub-point is at (latDeg, lonDeg) and whose altitude is altKm, as a
// closed polygon of points+1 vertices (the last vertex repeats the first).
//
// The angular radius of the footprint is d = arccos(R/(R+alt)); each vertex
// is the spherical destination point at distance d and bearing 2πi/points
// from the sub-point. When the circle extends past a pole, a vertex at
// exactly ±90° is spliced in on both sides of the extreme vertex so the
// polygon renders as a proper polar cap instead of self-intersecting.
//
// Invalid input (NaN coordinates, negative altitude, fewer than 3 points)
// returns an empty slice; callers treat that as nothing to draw.
func CoverageCircle(latDeg, lonDeg, altKm float64, points int) []LatLon {
	if math.IsNaN(latDeg) || math.IsNaN(lonDeg) || math.IsNaN(altKm) ||
		altKm < 0 || points < 3 {
		return nil
	}

	d := math.Acos(EarthRadiusKm / (EarthRadiusKm + altKm))
	lat0 := latDeg * deg2rad
	lon0 := lonDeg * deg2rad

	sinLat0 := math.Sin(lat0)
	cosLat0 := math.Cos(lat0)
	sinD := math.Sin(d)
	cosD := math.Cos(d)

	verts := make([]LatLon, 0, points+1)
	for i := 0; i <= points; i++ {
		theta := 2 * math.Pi * float64(i) / float64(points)

		lat := math.Asin(sinLat0*cosD + cosLat0*sinD*math.Cos(theta))
		lon := lon0 + math.Atan2(
			math.Sin(theta)*sinD*cosLat0,
			cosD-sinLat0*math.Sin(lat),
		)

		verts = append(verts, LatLon{
			Lat: lat * rad2deg,
			Lon: transform.NormalizeLonDeg(lon * rad2deg),
		})
	}

	// Pole caps. A footprint cannot reach both poles at realistic altitudes,
	// but the corrections are independent so both are checked.
	if d > math.Pi/2-lat0 {
		verts = splicePole(verts, 90)
	}
	if d > math.Pi/2+lat0 {
		verts = splicePole(verts, -90)
	}

	return verts
}

// splicePole inserts a vertex at poleLat immediately before and after the
// vertex closest to that pole, pinning the polygon boundary through the pole.
func splicePole(verts []LatLon, poleLat float64) []LatLon {
	idx := 0
	for i, v := range verts {
		if poleLat > 0 && v.Lat > verts[idx].Lat {
			idx = i
		}
		if poleLat < 0 && v.Lat < verts[idx].Lat {
			idx = i
		}
	}

	pole := LatLon{Lat: poleLat, Lon: verts[idx].Lon}
	out := make([]LatLon, 0, len(verts)+2)
	out = append(out, verts[:idx]...)
	out = append(out, pole, verts[idx], pole)
	out = append(out, verts[idx+1:]...)
	return out
}
