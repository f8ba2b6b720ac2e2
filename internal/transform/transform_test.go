package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// TestJulianDate verifies the Julian Date calculation against known values.
func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{
			name:     "J2000.0 epoch",
			time:     time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			expected: 2451545.0,
		},
		{
			name:     "Unix epoch",
			time:     time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
			expected: 2440587.5,
		},
		{
			// Vallado Example 3-15: April 6, 2004, 07:51:28.386 UTC
			name:     "Vallado example date",
			time:     time.Date(2004, 4, 6, 7, 51, 28, 386009000, time.UTC),
			expected: 2453101.827411875,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			if diff := math.Abs(got - tt.expected); diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestGMST validates the GMST calculation against the go-satellite library's
// GSTimeFromDate, which uses the same IAU-82 model.
func TestGMST(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
	}{
		{name: "J2000.0 epoch", time: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)},
		{name: "Vallado example date", time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC)},
		{name: "recent date", time: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			our := GMST(tt.time)
			ref := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)
			// 1e-8 radians is about 0.06 arcsec.
			if diff := math.Abs(our - ref); diff > 1e-8 {
				t.Errorf("GMST(%v) = %.12f rad, go-satellite = %.12f rad (diff=%.2e)", tt.time, our, ref, diff)
			}
		})
	}
}

// TestTEMEToECEF validates the TEME→ECEF rotation against go-satellite's
// ECIToECEF using the same GMST. Both use a GMST-only rotation, so they
// should agree to floating point precision.
func TestTEMEToECEF(t *testing.T) {
	tests := []struct {
		name string
		sv   StateVector
		time time.Time
	}{
		{
			// Vallado "Fundamentals of Astrodynamics" Example 3-15
			name: "Vallado example 3-15",
			sv: StateVector{
				X: 5094.18016, Y: 6127.64465, Z: 6380.34453,
				VX: -4.746131487, VY: 0.786598499, VZ: 5.531931288,
			},
			time: time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC),
		},
		{
			name: "LEO equatorial",
			sv:   StateVector{X: 6778.0, VY: 7.5},
			time: time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC),
		},
		{
			name: "LEO polar",
			sv:   StateVector{Z: 6978.0, VX: 7.4},
			time: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gmst := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)

			our := TEMEToECEFWithGMST(tt.sv, gmst)
			ref := satellite.ECIToECEF(satellite.Vector3{X: tt.sv.X, Y: tt.sv.Y, Z: tt.sv.Z}, gmst)

			const tol = 1e-3 // km: 1 metre
			if math.Abs(our.X-ref.X) > tol || math.Abs(our.Y-ref.Y) > tol || math.Abs(our.Z-ref.Z) > tol {
				t.Errorf("position mismatch:\n  ours: [%.6f, %.6f, %.6f]\n  ref:  [%.6f, %.6f, %.6f]",
					our.X, our.Y, our.Z, ref.X, ref.Y, ref.Z)
			}
		})
	}
}

// TestTEMEToECEFVelocity verifies the Earth-rotation velocity correction.
func TestTEMEToECEFVelocity(t *testing.T) {
	// Prograde equatorial satellite at longitude 0°, GMST = 0 so TEME and
	// ECEF axes align.
	sv := StateVector{X: 6778.0, VY: 7.5}
	ecef := TEMEToECEFWithGMST(sv, 0)

	if math.Abs(ecef.X-6778.0) > 1e-9 {
		t.Errorf("X position: got %.6f, want 6778.0", ecef.X)
	}

	// ω·R = 7.292115e-5 · 6778 ≈ 0.4943 km/s eastward, subtracted from the
	// inertial velocity.
	expectedVY := 7.5 - OmegaEarth*6778.0
	if math.Abs(ecef.VY-expectedVY) > 1e-9 {
		t.Errorf("VY: got %.6f km/s, want %.6f km/s", ecef.VY, expectedVY)
	}
}

// TestNormalizeLonDeg checks range and idempotence of longitude wrapping.
func TestNormalizeLonDeg(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{179.5, 179.5},
		{180, -180},
		{-180, -180},
		{181, -179},
		{-181, 179},
		{360, 0},
		{540, -180},
		{-540, -180},
		{720.25, 0.25},
	}

	for _, tt := range tests {
		got := NormalizeLonDeg(tt.in)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeLonDeg(%v) = %v, want %v", tt.in, got, tt.want)
		}
		if got < -180 || got >= 180 {
			t.Errorf("NormalizeLonDeg(%v) = %v, outside [-180, 180)", tt.in, got)
		}
		// Idempotence.
		if again := NormalizeLonDeg(got); math.Abs(again-got) > 1e-12 {
			t.Errorf("NormalizeLonDeg not idempotent for %v: %v then %v", tt.in, got, again)
		}
	}
}

func TestNormalizeAzDeg(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{359.9, 359.9},
		{360, 0},
		{-90, 270},
		{-720, 0},
		{725, 5},
	}
	for _, tt := range tests {
		if got := NormalizeAzDeg(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeAzDeg(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestECEFGeodeticRoundTrip converts observer geodetic coordinates to ECEF
// and back, expecting the originals within tight tolerance.
func TestECEFGeodeticRoundTrip(t *testing.T) {
	tests := []struct {
		name           string
		lat, lon, altM float64
	}{
		{"equator sea level", 0, 0, 0},
		{"mid latitude", 47.6062, -122.3321, 56},
		{"high latitude", 78.2232, 15.6267, 10},
		{"southern hemisphere", -33.8688, 151.2093, 25},
		{"antimeridian side", 51.0, 179.9, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := NewObserverPosition(tt.lat, tt.lon, tt.altM)
			geo := ECEFToGeodetic(obs.ECEFx, obs.ECEFy, obs.ECEFz)

			if math.Abs(geo.LatDeg-tt.lat) > 1e-6 {
				t.Errorf("lat: got %.8f, want %.8f", geo.LatDeg, tt.lat)
			}
			if math.Abs(geo.LonDeg-tt.lon) > 1e-6 {
				t.Errorf("lon: got %.8f, want %.8f", geo.LonDeg, tt.lon)
			}
			if math.Abs(geo.AltKm-tt.altM/1000.0) > 1e-5 {
				t.Errorf("alt: got %.8f km, want %.8f km", geo.AltKm, tt.altM/1000.0)
			}
		})
	}
}

// TestECEFToLookAnglesOverhead puts a satellite directly above the observer
// and expects elevation ≈ 90°.
func TestECEFToLookAnglesOverhead(t *testing.T) {
	obs := NewObserverPosition(45.0, 10.0, 0)

	// Scale the observer's ECEF vector outward by 500 km along the zenith
	// direction (geodetic zenith differs slightly from the radial direction,
	// so allow a modest tolerance).
	r := math.Sqrt(obs.ECEFx*obs.ECEFx + obs.ECEFy*obs.ECEFy + obs.ECEFz*obs.ECEFz)
	scale := (r + 500.0) / r
	la := ECEFToLookAngles(obs, obs.ECEFx*scale, obs.ECEFy*scale, obs.ECEFz*scale)

	if la.ElevationDeg < 89.0 {
		t.Errorf("elevation: got %.3f, want ≈ 90", la.ElevationDeg)
	}
	if la.RangeKm < 495 || la.RangeKm > 505 {
		t.Errorf("range: got %.1f km, want ≈ 500 km", la.RangeKm)
	}
}

// TestECEFToLookAnglesAzimuth places a satellite due north and due east of
// an equatorial observer and checks azimuth quadrants.
func TestECEFToLookAnglesAzimuth(t *testing.T) {
	obs := NewObserverPosition(0, 0, 0)

	// Due north: displace toward +Z.
	north := ECEFToLookAngles(obs, obs.ECEFx, obs.ECEFy, obs.ECEFz+1000.0)
	if math.Abs(north.AzimuthDeg-0) > 1.0 && math.Abs(north.AzimuthDeg-360) > 1.0 {
		t.Errorf("north azimuth: got %.2f, want ≈ 0", north.AzimuthDeg)
	}

	// Due east: displace toward +Y.
	east := ECEFToLookAngles(obs, obs.ECEFx, obs.ECEFy+1000.0, obs.ECEFz)
	if math.Abs(east.AzimuthDeg-90) > 1.0 {
		t.Errorf("east azimuth: got %.2f, want ≈ 90", east.AzimuthDeg)
	}
}
