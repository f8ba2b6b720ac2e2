package track

import (
	"math"
	"time"

	"github.com/satview/satview/internal/propagation"
	"github.com/satview/satview/internal/transform"
)

// DefaultTrackStep is the ground-track sampling interval when the caller
// passes a non-positive step.
const DefaultTrackStep = time.Minute

// GroundTrackAt samples the satellite's ground track over [at-duration, at]
// and [at, at+duration] at the given step, both windows inclusive of their
// endpoints. Each window is split into segments at antimeridian crossings so
// a renderer never draws a spurious line across the whole map.
//
// Fail-soft contract: if the TLE pair cannot be initialized, both windows
// come back empty and a warning is logged. Individual samples that fail to
// propagate are skipped.
func (t *Tracker) GroundTrackAt(line1, line2 string, at time.Time, duration, step time.Duration) GroundTrack {
	if step <= 0 {
		step = DefaultTrackStep
	}
	if line1 == "" || line2 == "" || at.IsZero() || duration <= 0 {
		return GroundTrack{}
	}

	prop, err := propagation.NewSGP4Propagator(line1, line2, 0)
	if err != nil {
		t.logger.Warn("ground track unavailable", "norad_id", noradOf(line1), "error", err)
		return GroundTrack{}
	}

	past := samplePath(prop, at.Add(-duration), at, step)
	future := samplePath(prop, at, at.Add(duration), step)

	return GroundTrack{
		Past:   SplitAtAntimeridian(past),
		Future: SplitAtAntimeridian(future),
	}
}

// samplePath propagates at fixed steps from `from` to `to` and returns the
// sub-points with longitudes normalized to [-180, 180). The far endpoint is
// always sampled, even when step does not divide the window. Samples that
// fail to propagate are dropped.
func samplePath(prop *propagation.SGP4Propagator, from, to time.Time, step time.Duration) []LatLon {
	n := int(to.Sub(from)/step) + 2
	points := make([]LatLon, 0, n)

	sample := func(ts time.Time) {
		sv, err := prop.PropagateAt(ts)
		if err != nil {
			return
		}
		ecef := transform.TEMEToECEF(sv, ts)
		geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)
		points = append(points, LatLon{
			Lat: geo.LatDeg,
			Lon: transform.NormalizeLonDeg(geo.LonDeg),
		})
	}

	for ts := from; ts.Before(to); ts = ts.Add(step) {
		sample(ts)
	}
	sample(to)

	return points
}

// SplitAtAntimeridian walks an ordered point sequence and starts a new
// segment whenever consecutive longitudes differ by more than 180°, the
// signature of a ±180° wrap rather than real motion. Concatenating the
// returned segments in order reproduces the input exactly.
func SplitAtAntimeridian(points []LatLon) []Segment {
	if len(points) == 0 {
		return nil
	}

	var segments []Segment
	current := Segment{points[0]}

	for i := 1; i < len(points); i++ {
		if math.Abs(points[i].Lon-points[i-1].Lon) > 180 {
			segments = append(segments, current)
			current = Segment{points[i]}
			continue
		}
		current = append(current, points[i])
	}

	return append(segments, current)
}
