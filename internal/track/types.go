// Package track implements the sky-geometry core behind the tracking
// dashboard: sub-satellite positions, coverage footprints, ground-track
// paths, observer visibility, geostationary classification and the day/night
// terminator.
//
// Everything here is a pure computation over its inputs; callers re-invoke on
// their own tick (typically once per second) and no state is kept between
// calls. Functions that consume live catalog data fail soft: bad or stale
// elements produce a zero/empty result and a warning through the Tracker's
// logger, never an error the render loop has to handle. The one exception is
// IsGeostationary, which reports malformed input as a hard error because it
// is only called with already-validated element sets.
package track

// LatLon is a single path or polygon vertex in degrees. Longitude is
// normalized to [-180, 180) everywhere except the terminator, which
// deliberately unwraps longitudes for smooth rendering across the
// antimeridian.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// SubPoint is the instantaneous sub-satellite point plus inertial speed.
// The zero value is the fail-soft result for bad input or failed propagation.
type SubPoint struct {
	LatDeg   float64 `json:"lat"`
	LonDeg   float64 `json:"lon"`
	AltKm    float64 `json:"alt_km"`
	SpeedKmS float64 `json:"speed_km_s"`
}

// Observer is a ground station position. AltM is metres above the WGS-84
// ellipsoid and defaults to zero.
type Observer struct {
	LatDeg float64 `json:"lat"`
	LonDeg float64 `json:"lon"`
	AltM   float64 `json:"alt_m"`
}

// Segment is a contiguous ground-track arc that does not cross the ±180°
// meridian, so a renderer can draw it as a single polyline.
type Segment []LatLon

// GroundTrack holds the sampled path around an instant, split into the
// window before it and the window after it.
type GroundTrack struct {
	Past   []Segment `json:"past"`
	Future []Segment `json:"future"`
}
