package track

import (
	"fmt"
	"strconv"
	"strings"
)

// Geostationary thresholds. All three must hold: a GEO bird sits at one
// revolution per sidereal day in a near-circular, near-equatorial orbit.
const (
	geoMeanMotionMin = 0.995 // rev/day
	geoMeanMotionMax = 1.005 // rev/day
	geoMaxInclDeg    = 3.0
	geoMaxEcc        = 0.01
)

// IsGeostationary classifies a TLE pair by mean motion, inclination and
// eccentricity parsed from the fixed columns of line 2.
//
// Unlike the rest of this package this fails hard: it is called with element
// sets that upstream code has already validated, so a missing or malformed
// line 2 is a programming error, not a data-quality event.
func IsGeostationary(line1, line2 string) (bool, error) {
	if line1 == "" || line2 == "" {
		return false, fmt.Errorf("geostationary check requires both TLE lines")
	}
	if len(line2) < 63 {
		return false, fmt.Errorf("TLE line 2 too short: %d columns, need 63", len(line2))
	}
	if line2[0] != '2' {
		return false, fmt.Errorf("TLE line 2 must start with '2', got %q", line2[0])
	}

	// Standard fixed-width layout: inclination cols 9-16, eccentricity
	// cols 27-33 (implied leading decimal point), mean motion cols 53-63.
	incl, err := strconv.ParseFloat(strings.TrimSpace(line2[8:16]), 64)
	if err != nil {
		return false, fmt.Errorf("parsing inclination: %w", err)
	}
	ecc, err := strconv.ParseFloat("."+strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return false, fmt.Errorf("parsing eccentricity: %w", err)
	}
	meanMotion, err := strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	if err != nil {
		return false, fmt.Errorf("parsing mean motion: %w", err)
	}

	return meanMotion >= geoMeanMotionMin && meanMotion <= geoMeanMotionMax &&
		incl <= geoMaxInclDeg &&
		ecc <= geoMaxEcc, nil
}
