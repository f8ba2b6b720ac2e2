package track

import (
	"testing"
	"time"

	"github.com/satview/satview/internal/transform"
)

// TestLookAnglesAtOverhead places the observer directly under the satellite's
// sub-point and expects a near-zenith elevation with slant range close to the
// satellite altitude.
func TestLookAnglesAtOverhead(t *testing.T) {
	tr := quietTracker()
	at := issEpoch.Add(10 * time.Minute)

	sp := tr.PositionAt(issLine1, issLine2, at)
	if sp.AltKm == 0 {
		t.Fatal("propagation failed for reference TLE")
	}

	obs := Observer{LatDeg: sp.LatDeg, LonDeg: sp.LonDeg, AltM: 0}
	la, ok := tr.LookAnglesAt(issLine1, issLine2, obs, at)
	if !ok {
		t.Fatal("look angles unavailable for observer at sub-point")
	}

	if la.ElevationDeg < 80 {
		t.Errorf("elevation = %.2f°, want near zenith (> 80°)", la.ElevationDeg)
	}
	if la.RangeKm < sp.AltKm-20 || la.RangeKm > sp.AltKm+20 {
		t.Errorf("range = %.1f km, want within 20 km of altitude %.1f km", la.RangeKm, sp.AltKm)
	}
	if la.AzimuthDeg < 0 || la.AzimuthDeg >= 360 {
		t.Errorf("azimuth = %.2f°, want [0, 360)", la.AzimuthDeg)
	}
}

// TestLookAnglesAtBelowHorizon puts the observer at the antipode of the
// sub-point: the satellite must sit far below the horizon.
func TestLookAnglesAtBelowHorizon(t *testing.T) {
	tr := quietTracker()
	at := issEpoch.Add(10 * time.Minute)

	sp := tr.PositionAt(issLine1, issLine2, at)
	if sp.AltKm == 0 {
		t.Fatal("propagation failed for reference TLE")
	}

	obs := Observer{
		LatDeg: -sp.LatDeg,
		LonDeg: transform.NormalizeLonDeg(sp.LonDeg + 180),
	}
	la, ok := tr.LookAnglesAt(issLine1, issLine2, obs, at)
	if !ok {
		t.Fatal("look angles unavailable for antipodal observer")
	}
	if la.ElevationDeg > -45 {
		t.Errorf("elevation = %.2f°, want well below horizon", la.ElevationDeg)
	}
}

func TestLookAnglesAtRejectsInput(t *testing.T) {
	tr := quietTracker()
	obs := Observer{LatDeg: 48.85, LonDeg: 2.35}

	tests := []struct {
		name         string
		line1, line2 string
		obs          Observer
		at           time.Time
	}{
		{"empty line1", "", issLine2, obs, issEpoch},
		{"empty line2", issLine1, "", obs, issEpoch},
		{"zero instant", issLine1, issLine2, obs, time.Time{}},
		{"latitude above 90", issLine1, issLine2, Observer{LatDeg: 91}, issEpoch},
		{"latitude below -90", issLine1, issLine2, Observer{LatDeg: -90.1}, issEpoch},
		{"malformed TLE", "1 25544", issLine2, obs, issEpoch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			la, ok := tr.LookAnglesAt(tt.line1, tt.line2, tt.obs, tt.at)
			if ok {
				t.Fatal("got ok = true, want false")
			}
			if la != (transform.LookAngles{}) {
				t.Errorf("got %+v, want zero value", la)
			}
		})
	}
}

// TestLookAnglesAtUnnormalizedLongitude: an observer longitude outside
// [-180, 180) refers to the same meridian after normalization and must give
// the same answer.
func TestLookAnglesAtUnnormalizedLongitude(t *testing.T) {
	tr := quietTracker()
	at := issEpoch.Add(5 * time.Minute)

	a, okA := tr.LookAnglesAt(issLine1, issLine2, Observer{LatDeg: 10, LonDeg: -150}, at)
	b, okB := tr.LookAnglesAt(issLine1, issLine2, Observer{LatDeg: 10, LonDeg: 210}, at)
	if !okA || !okB {
		t.Fatal("look angles unavailable")
	}
	if a != b {
		t.Errorf("lon -150 gave %+v, lon 210 gave %+v", a, b)
	}
}

func TestVisible(t *testing.T) {
	tr := quietTracker()
	at := issEpoch.Add(10 * time.Minute)

	sp := tr.PositionAt(issLine1, issLine2, at)
	if sp.AltKm == 0 {
		t.Fatal("propagation failed for reference TLE")
	}

	under := Observer{LatDeg: sp.LatDeg, LonDeg: sp.LonDeg}
	antipode := Observer{LatDeg: -sp.LatDeg, LonDeg: transform.NormalizeLonDeg(sp.LonDeg + 180)}

	if !tr.Visible(issLine1, issLine2, at, under, 10) {
		t.Error("satellite overhead reported not visible at 10° threshold")
	}
	if tr.Visible(issLine1, issLine2, at, antipode, 10) {
		t.Error("satellite at antipode reported visible")
	}
	if tr.Visible("", issLine2, at, under, 10) {
		t.Error("missing TLE reported visible")
	}
}
