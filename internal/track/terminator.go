package track

import (
	"math"
	"time"

	"github.com/satview/satview/internal/transform"
)

// Terminator sampling: one vertex per 1/5 degree of longitude across 1080°
// of unwrapped longitude, centred on the prime meridian. The overshoot past
// ±180° lets a renderer draw the night polygon smoothly across the
// antimeridian at any map centre.
const (
	terminatorStepDeg = 0.2
	terminatorSpanDeg = 1080.0
)

// Terminator returns the day/night boundary at the given instant as an
// ordered vertex list. The first and last vertices sit at exactly ±90°
// latitude — at the north pole when the Sun's declination is negative
// (northern winter), at the south pole otherwise — so the curve closes into
// a polygon bounding the night side.
//
// The solar position uses a low-precision ephemeris (USNO approximation):
// good to a small fraction of a degree, which is far finer than a rendered
// terminator line.
func Terminator(at time.Time) []LatLon {
	jd := transform.JulianDate(at.UTC())
	d := jd - 2451545.0 // days from J2000.0
	cent := d / 36525.0

	// Greenwich mean sidereal time, USNO low-precision form (hours).
	gmstHours := math.Mod(18.697374558+24.06570982441908*d, 24)
	if gmstHours < 0 {
		gmstHours += 24
	}
	gmstDeg := gmstHours * 15

	// Sun's ecliptic longitude from mean longitude and mean anomaly.
	meanLon := wrap360(280.460 + 0.9856474*d)
	meanAnom := wrap360(357.528+0.9856003*d) * deg2rad
	eclipticLon := (meanLon + 1.915*math.Sin(meanAnom) + 0.020*math.Sin(2*meanAnom)) * deg2rad

	// Mean obliquity of the ecliptic, polynomial in centuries since J2000.
	obliquity := (23.43929111 - 0.0130042*cent - 1.64e-7*cent*cent + 5.04e-7*cent*cent*cent) * deg2rad

	// Equatorial coordinates. atan2 keeps right ascension in the same
	// quadrant as the ecliptic longitude.
	ra := math.Atan2(math.Cos(obliquity)*math.Sin(eclipticLon), math.Cos(eclipticLon))
	dec := math.Asin(math.Sin(obliquity) * math.Sin(eclipticLon))
	raDeg := ra * rad2deg

	// Pole that bounds the night side: north when the Sun is south of the
	// equator, south otherwise.
	poleLat := 90.0
	if dec > 0 {
		poleLat = -90.0
	}

	half := terminatorSpanDeg / 2
	n := int(terminatorSpanDeg/terminatorStepDeg) + 1
	points := make([]LatLon, 0, n+2)

	points = append(points, LatLon{Lat: poleLat, Lon: -half})

	tanDec := math.Tan(dec)
	lastLon := -half
	for i := 0; i < n; i++ {
		lon := -half + float64(i)*terminatorStepDeg
		haDeg := gmstDeg + lon - raDeg
		lat := math.Atan(-math.Cos(haDeg*deg2rad)/tanDec) * rad2deg
		points = append(points, LatLon{Lat: lat, Lon: lon})
		lastLon = lon
	}

	return append(points, LatLon{Lat: poleLat, Lon: lastLon})
}

// wrap360 normalizes an angle in degrees into [0, 360).
func wrap360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
