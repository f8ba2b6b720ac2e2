package track

import (
	"log/slog"
	"strings"
	"time"

	"github.com/satview/satview/internal/propagation"
	"github.com/satview/satview/internal/transform"
)

// Tracker bundles the fail-soft geometry functions with the logger that
// carries their warning side channel. The zero-cost alternative of returning
// errors was rejected deliberately: these functions run inside a per-second
// render loop fed by third-party element data, and one decayed satellite
// must not interrupt rendering of the rest. See the package comment.
type Tracker struct {
	logger *slog.Logger
}

// New creates a Tracker. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{logger: logger}
}

// noradOf extracts the catalog number from TLE line 1 for log messages.
// Best effort only; returns "?" when the line is too short.
func noradOf(line1 string) string {
	line1 = strings.TrimSpace(line1)
	if len(line1) < 7 {
		return "?"
	}
	return strings.TrimSpace(line1[2:7])
}

// PositionAt returns the sub-satellite point and inertial speed for a TLE
// pair at an instant.
//
// Fail-soft contract: missing input or a failed propagation yields the zero
// SubPoint, so a caller drawing many satellites can always index the result.
// Failures are reported through the logger, not the return value.
func (t *Tracker) PositionAt(line1, line2 string, at time.Time) SubPoint {
	if line1 == "" || line2 == "" || at.IsZero() {
		return SubPoint{}
	}

	prop, err := propagation.NewSGP4Propagator(line1, line2, 0)
	if err != nil {
		t.logger.Warn("position unavailable", "norad_id", noradOf(line1), "error", err)
		return SubPoint{}
	}

	sv, err := prop.PropagateAt(at)
	if err != nil {
		t.logger.Warn("position unavailable", "norad_id", noradOf(line1), "error", err)
		return SubPoint{}
	}

	ecef := transform.TEMEToECEF(sv, at)
	geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)

	return SubPoint{
		LatDeg:   geo.LatDeg,
		LonDeg:   geo.LonDeg,
		AltKm:    geo.AltKm,
		SpeedKmS: sv.Speed(),
	}
}
