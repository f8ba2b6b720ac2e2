package propagation

import "time"

// SubPoint holds one satellite's geodetic sub-satellite point at a snapshot
// time, plus its inertial speed. This is what map widgets plot each tick.
type SubPoint struct {
	NORADID  int     `json:"id"`
	Name     string  `json:"name,omitempty"`
	LatDeg   float64 `json:"lat"`
	LonDeg   float64 `json:"lon"`
	AltKm    float64 `json:"alt_km"`
	SpeedKmS float64 `json:"speed_km_s"`
}

// Snapshot holds the sub-points of all satellites at a single instant.
type Snapshot struct {
	Timestamp  time.Time
	Satellites []SubPoint
}

// PropConfig holds propagation configuration.
type PropConfig struct {
	Workers int           // Worker pool size (default: runtime.NumCPU())
	Step    time.Duration // Snapshot interval (default: 1s)
	Horizon time.Duration // Snapshot window length (default: 60s)
}
