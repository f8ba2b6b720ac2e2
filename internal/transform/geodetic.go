package transform

import "math"

// WGS-84 ellipsoid parameters, kilometres.
const (
	wgs84A  = 6378.137              // semi-major axis
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// GeodeticPoint is a geodetic position: latitude/longitude in degrees,
// altitude in kilometres above the WGS-84 ellipsoid.
type GeodeticPoint struct {
	LatDeg, LonDeg, AltKm float64
}

// ObserverPosition holds a ground observer's location in both geodetic and
// ECEF frames. The ECEF coordinates are precomputed once so they can be
// reused across many satellite lookups.
type ObserverPosition struct {
	LatRad, LonRad, AltKm float64 // geodetic (radians, km above ellipsoid)
	ECEFx, ECEFy, ECEFz   float64 // precomputed ECEF (km)
}

// LookAngles holds azimuth, elevation, and range from observer to satellite.
type LookAngles struct {
	AzimuthDeg   float64 // 0 = North, clockwise, [0, 360)
	ElevationDeg float64 // 0 = horizon, 90 = zenith
	RangeKm      float64
}

// NewObserverPosition creates an ObserverPosition from geodetic coordinates.
// Latitude and longitude are degrees; altitude is metres above the WGS-84
// ellipsoid, matching how ground-station altitudes are usually quoted.
func NewObserverPosition(latDeg, lonDeg, altM float64) ObserverPosition {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	altKm := altM / 1000.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return ObserverPosition{
		LatRad: lat,
		LonRad: lon,
		AltKm:  altKm,
		ECEFx:  (n + altKm) * cosLat * math.Cos(lon),
		ECEFy:  (n + altKm) * cosLat * math.Sin(lon),
		ECEFz:  (n*(1-wgs84E2) + altKm) * sinLat,
	}
}

// ECEFToGeodetic converts ECEF coordinates (km) to geodetic coordinates using
// the iterative Bowring method. Converges in 2-3 iterations for Earth orbits.
// The returned longitude is normalized to [-180, 180).
func ECEFToGeodetic(x, y, z float64) GeodeticPoint {
	lon := math.Atan2(y, x)
	p := math.Sqrt(x*x + y*y)

	lat := math.Atan2(z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(z+wgs84E2*n*sinLat, p)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return GeodeticPoint{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: NormalizeLonDeg(lon * 180.0 / math.Pi),
		AltKm:  alt,
	}
}

// ECEFToLookAngles computes azimuth, elevation, and range from an observer to
// a satellite position given in ECEF km.
//
// Uses the SEZ (South-East-Zenith) topocentric rotation per Vallado §4.4.
// Azimuth: 0 = North, measured clockwise. Elevation: 0 = horizon, 90 = zenith.
func ECEFToLookAngles(obs ObserverPosition, satX, satY, satZ float64) LookAngles {
	rx := satX - obs.ECEFx
	ry := satY - obs.ECEFy
	rz := satZ - obs.ECEFz

	sinLat := math.Sin(obs.LatRad)
	cosLat := math.Cos(obs.LatRad)
	sinLon := math.Sin(obs.LonRad)
	cosLon := math.Cos(obs.LonRad)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rangeKm := math.Sqrt(south*south + east*east + zenith*zenith)

	el := math.Asin(zenith / rangeKm)

	// North = -South in SEZ, so az = atan2(east, -south).
	az := math.Atan2(east, -south)

	return LookAngles{
		AzimuthDeg:   NormalizeAzDeg(az * 180.0 / math.Pi),
		ElevationDeg: el * 180.0 / math.Pi,
		RangeKm:      rangeKm,
	}
}
