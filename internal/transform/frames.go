// Package transform provides the coordinate-frame conversions behind the
// sky-geometry core: TEME→ECEF, ECEF→geodetic, geodetic→ECEF and SEZ
// topocentric look angles.
//
// SGP4 outputs position/velocity in TEME (True Equator Mean Equinox); map
// renderers and ground observers live in ECEF/geodetic coordinates. The
// TEME→ECEF rotation here uses GMST only (TEME → PEF ≈ ECEF), ignoring polar
// motion and the equation of equinoxes. That introduces tens of metres of
// error at most, well below the width of a rendered ground-track line.
//
// All distances are kilometres and all speeds km/s unless a name says
// otherwise.
package transform

import "math"

// StateVector is a satellite position and velocity in the TEME frame.
type StateVector struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// Speed returns the inertial speed, the Euclidean norm of the velocity.
// This is not ground speed; for display purposes the distinction does not
// matter and no frame correction is applied.
func (s StateVector) Speed() float64 {
	return math.Sqrt(s.VX*s.VX + s.VY*s.VY + s.VZ*s.VZ)
}

// ECEFState is a satellite position and velocity in the ECEF frame.
type ECEFState struct {
	X, Y, Z    float64 // km
	VX, VY, VZ float64 // km/s
}

// TEMEToECEFWithGMST rotates a TEME state into ECEF using a precomputed GMST
// angle (radians). Compute GMST once per instant when transforming many
// satellites to the same time.
//
// Position: r_ECEF = R3(θ) · r_TEME.
// Velocity: v_ECEF = R3(θ) · v_TEME − ω × r_ECEF, ω = [0, 0, ω_earth].
func TEMEToECEFWithGMST(sv StateVector, gmst float64) ECEFState {
	cosG := math.Cos(gmst)
	sinG := math.Sin(gmst)

	x := sv.X*cosG + sv.Y*sinG
	y := -sv.X*sinG + sv.Y*cosG
	z := sv.Z

	vxRot := sv.VX*cosG + sv.VY*sinG
	vyRot := -sv.VX*sinG + sv.VY*cosG

	return ECEFState{
		X: x, Y: y, Z: z,
		VX: vxRot + OmegaEarth*y,
		VY: vyRot - OmegaEarth*x,
		VZ: sv.VZ,
	}
}

// NormalizeLonDeg wraps a longitude in degrees into [-180, 180).
// Idempotent: values already in range pass through unchanged.
func NormalizeLonDeg(lon float64) float64 {
	lon = math.Mod(lon+180.0, 360.0)
	if lon < 0 {
		lon += 360.0
	}
	return lon - 180.0
}

// NormalizeAzDeg wraps an azimuth in degrees into [0, 360) by repeated ±360
// adjustment. Equivalent to a modulo but safe for any finite input sign.
func NormalizeAzDeg(az float64) float64 {
	for az < 0 {
		az += 360.0
	}
	for az >= 360.0 {
		az -= 360.0
	}
	return az
}
