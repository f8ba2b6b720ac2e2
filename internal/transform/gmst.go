package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 epoch (2000 January 1, 12:00:00 TT).
const j2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a time.Time (UTC) to Julian Date using the standard
// astronomical algorithm.
func JulianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Jan/Feb count as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	return jd + (h+min/60.0+s/3600.0)/24.0
}

// GMST returns Greenwich Mean Sidereal Time in radians for a UTC time.
// IAU-82 model, Vallado Eq 3-47:
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)·T + 0.093104·T² − 6.2e-6·T³
//
// with T in Julian centuries of UT1 from J2000.0 and the result in seconds of
// time, here normalized to [0, 2π).
func GMST(t time.Time) float64 {
	jd := JulianDate(t.UTC())
	tut1 := (jd - j2000) / 36525.0

	// 876600h = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tut1 +
		0.093104*tut1*tut1 -
		6.2e-6*tut1*tut1*tut1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// TEMEToECEF rotates a TEME state into ECEF at the given UTC time.
func TEMEToECEF(sv StateVector, t time.Time) ECEFState {
	return TEMEToECEFWithGMST(sv, GMST(t))
}
