package track

import (
	"time"

	"github.com/satview/satview/internal/propagation"
	"github.com/satview/satview/internal/transform"
)

// LookAnglesAt computes azimuth, elevation and range from a ground observer
// to the satellite at an instant. The boolean reports whether the result is
// usable; it is false for missing input, an out-of-range observer latitude,
// or a failed propagation (each logged).
//
// The observer's longitude is normalized into [-180, 180) before use;
// azimuth comes back in [0, 360).
func (t *Tracker) LookAnglesAt(line1, line2 string, obs Observer, at time.Time) (transform.LookAngles, bool) {
	if line1 == "" || line2 == "" || at.IsZero() {
		return transform.LookAngles{}, false
	}
	if obs.LatDeg < -90 || obs.LatDeg > 90 {
		t.logger.Warn("look angles unavailable",
			"norad_id", noradOf(line1),
			"error", "observer latitude out of range",
			"observer_lat", obs.LatDeg,
		)
		return transform.LookAngles{}, false
	}

	prop, err := propagation.NewSGP4Propagator(line1, line2, 0)
	if err != nil {
		t.logger.Warn("look angles unavailable", "norad_id", noradOf(line1), "error", err)
		return transform.LookAngles{}, false
	}

	sv, err := prop.PropagateAt(at)
	if err != nil {
		t.logger.Warn("look angles unavailable", "norad_id", noradOf(line1), "error", err)
		return transform.LookAngles{}, false
	}

	ecef := transform.TEMEToECEF(sv, at)
	obsPos := transform.NewObserverPosition(obs.LatDeg, transform.NormalizeLonDeg(obs.LonDeg), obs.AltM)

	return transform.ECEFToLookAngles(obsPos, ecef.X, ecef.Y, ecef.Z), true
}

// Visible reports whether the satellite is at or above minElevDeg elevation
// as seen from the observer at the given instant. Any failure — missing
// input, bad observer, failed propagation — yields false, never an error.
func (t *Tracker) Visible(line1, line2 string, at time.Time, obs Observer, minElevDeg float64) bool {
	la, ok := t.LookAnglesAt(line1, line2, obs, at)
	if !ok {
		return false
	}
	return la.ElevationDeg >= minElevDeg
}
