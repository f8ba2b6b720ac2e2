package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/satview/satview/internal/passes"
	"github.com/satview/satview/internal/tle"
	"github.com/satview/satview/internal/track"
	"github.com/satview/satview/internal/transform"
)

const (
	defaultTrackWindowMin = 90
	defaultTrackStepMin   = 1
	defaultCoveragePoints = 64
	defaultPassHours      = 24.0
	maxPassHours          = 72.0
	defaultPassMinElev    = 10.0
	defaultMaxPasses      = 10
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// timeParam parses the optional ?t=RFC3339 query parameter, defaulting to now.
func timeParam(r *http.Request) (time.Time, error) {
	v := r.URL.Query().Get("t")
	if v == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid t parameter: %w", err)
	}
	return t.UTC(), nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return f, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %w", name, err)
	}
	return n, nil
}

// observerParams parses lat/lon/alt_m. Latitude and longitude are required.
func observerParams(r *http.Request) (track.Observer, error) {
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lon") == "" {
		return track.Observer{}, fmt.Errorf("lat and lon parameters are required")
	}
	lat, err := floatParam(r, "lat", 0)
	if err != nil {
		return track.Observer{}, err
	}
	lon, err := floatParam(r, "lon", 0)
	if err != nil {
		return track.Observer{}, err
	}
	altM, err := floatParam(r, "alt_m", 0)
	if err != nil {
		return track.Observer{}, err
	}
	if lat < -90 || lat > 90 {
		return track.Observer{}, fmt.Errorf("lat must be in [-90, 90]")
	}
	return track.Observer{LatDeg: lat, LonDeg: lon, AltM: altM}, nil
}

// satelliteEntry resolves the {id} path segment against the current dataset.
func (s *Server) satelliteEntry(w http.ResponseWriter, r *http.Request) (tle.TLEEntry, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid satellite id")
		return tle.TLEEntry{}, false
	}
	entry, ok := s.store.Find(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("satellite %d not in catalog", id))
		return tle.TLEEntry{}, false
	}
	return entry, true
}

// segmentsJSON encodes a ground-track window. A single segment is flattened
// to a plain point array so simple consumers never see the nested form.
type segmentsJSON []track.Segment

func (sj segmentsJSON) MarshalJSON() ([]byte, error) {
	switch len(sj) {
	case 0:
		return []byte("[]"), nil
	case 1:
		return json.Marshal(sj[0])
	default:
		return json.Marshal([]track.Segment(sj))
	}
}

// GET /api/v1/positions
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	snap := s.cache.GetLatest()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no position snapshot available yet")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GET /api/v1/satellites/{id}/position
func (s *Server) handleSatellitePosition(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.satelliteEntry(w, r)
	if !ok {
		return
	}
	at, err := timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sp := s.tracker.PositionAt(entry.Line1, entry.Line2, at)
	if sp == (track.SubPoint{}) {
		writeError(w, http.StatusInternalServerError, "propagation failed")
		return
	}

	geo, err := track.IsGeostationary(entry.Line1, entry.Line2)
	if err != nil {
		geo = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"norad_id":      entry.NORADID,
		"name":          entry.Name,
		"t":             at.Format(time.RFC3339),
		"position":      sp,
		"geostationary": geo,
	})
}

// GET /api/v1/satellites/{id}/track?window=90&step=1
func (s *Server) handleSatelliteTrack(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.satelliteEntry(w, r)
	if !ok {
		return
	}
	at, err := timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	windowMin, err := intParam(r, "window", defaultTrackWindowMin)
	if err != nil || windowMin < 1 || windowMin > 1440 {
		writeError(w, http.StatusBadRequest, "invalid window parameter, must be 1-1440 minutes")
		return
	}
	stepMin, err := intParam(r, "step", defaultTrackStepMin)
	if err != nil || stepMin < 1 || stepMin > windowMin {
		writeError(w, http.StatusBadRequest, "invalid step parameter")
		return
	}

	gt := s.tracker.GroundTrackAt(entry.Line1, entry.Line2, at,
		time.Duration(windowMin)*time.Minute, time.Duration(stepMin)*time.Minute)

	writeJSON(w, http.StatusOK, map[string]any{
		"norad_id": entry.NORADID,
		"t":        at.Format(time.RFC3339),
		"past":     segmentsJSON(gt.Past),
		"future":   segmentsJSON(gt.Future),
	})
}

// GET /api/v1/satellites/{id}/coverage?points=64
func (s *Server) handleSatelliteCoverage(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.satelliteEntry(w, r)
	if !ok {
		return
	}
	at, err := timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := intParam(r, "points", defaultCoveragePoints)
	if err != nil || points < 3 || points > 720 {
		writeError(w, http.StatusBadRequest, "invalid points parameter, must be 3-720")
		return
	}

	sp := s.tracker.PositionAt(entry.Line1, entry.Line2, at)
	if sp == (track.SubPoint{}) {
		writeError(w, http.StatusInternalServerError, "propagation failed")
		return
	}
	verts := track.CoverageCircle(sp.LatDeg, sp.LonDeg, sp.AltKm, points)

	writeJSON(w, http.StatusOK, map[string]any{
		"norad_id": entry.NORADID,
		"t":        at.Format(time.RFC3339),
		"subpoint": sp,
		"polygon":  verts,
	})
}

// GET /api/v1/satellites/{id}/look?lat=..&lon=..&alt_m=0
func (s *Server) handleSatelliteLook(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.satelliteEntry(w, r)
	if !ok {
		return
	}
	at, err := timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	obs, err := observerParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	la, ok := s.tracker.LookAnglesAt(entry.Line1, entry.Line2, obs, at)
	if !ok {
		writeError(w, http.StatusInternalServerError, "propagation failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"norad_id":      entry.NORADID,
		"t":             at.Format(time.RFC3339),
		"azimuth_deg":   la.AzimuthDeg,
		"elevation_deg": la.ElevationDeg,
		"range_km":      la.RangeKm,
		"visible":       la.ElevationDeg >= 0,
	})
}

// visibleSatellite is one row of the /api/v1/visible response.
type visibleSatellite struct {
	NORADID      int     `json:"norad_id"`
	Name         string  `json:"name,omitempty"`
	AzimuthDeg   float64 `json:"azimuth_deg"`
	ElevationDeg float64 `json:"elevation_deg"`
	RangeKm      float64 `json:"range_km"`
}

// GET /api/v1/visible?lat=..&lon=..&min_elevation=0
func (s *Server) handleVisible(w http.ResponseWriter, r *http.Request) {
	obs, err := observerParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	minElev, err := floatParam(r, "min_elevation", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	at, err := timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no element set loaded yet")
		return
	}

	visible := make([]visibleSatellite, 0, 32)
	for _, entry := range ds.Satellites {
		la, ok := s.tracker.LookAnglesAt(entry.Line1, entry.Line2, obs, at)
		if !ok || la.ElevationDeg < minElev {
			continue
		}
		visible = append(visible, visibleSatellite{
			NORADID:      entry.NORADID,
			Name:         entry.Name,
			AzimuthDeg:   la.AzimuthDeg,
			ElevationDeg: la.ElevationDeg,
			RangeKm:      la.RangeKm,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"t":        at.Format(time.RFC3339),
		"observer": obs,
		"count":    len(visible),
		"visible":  visible,
	})
}

// GET /api/v1/passes?lat=..&lon=..&hours=24&min_elevation=10&ids=25544,19548
func (s *Server) handlePasses(w http.ResponseWriter, r *http.Request) {
	obs, err := observerParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hours, err := floatParam(r, "hours", defaultPassHours)
	if err != nil || hours <= 0 || hours > maxPassHours {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid hours parameter, must be in (0, %g]", maxPassHours))
		return
	}
	minElev, err := floatParam(r, "min_elevation", defaultPassMinElev)
	if err != nil || minElev < 0 || minElev >= 90 {
		writeError(w, http.StatusBadRequest, "invalid min_elevation parameter, must be in [0, 90)")
		return
	}
	maxPasses, err := intParam(r, "max_passes", defaultMaxPasses)
	if err != nil || maxPasses < 1 || maxPasses > 100 {
		writeError(w, http.StatusBadRequest, "invalid max_passes parameter, must be 1-100")
		return
	}

	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no element set loaded yet")
		return
	}

	entries, err := selectEntries(ds, r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now().UTC()
	results := passes.Predict(r.Context(), passes.Request{
		Observer:     transform.NewObserverPosition(obs.LatDeg, obs.LonDeg, obs.AltM),
		Entries:      entries,
		Start:        start,
		HorizonHours: hours,
		MinElevation: minElev,
		MaxPasses:    maxPasses,
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"start":      start.Format(time.RFC3339),
		"hours":      hours,
		"observer":   obs,
		"satellites": results,
	})
}

// selectEntries resolves a comma-separated NORAD ID list against the dataset;
// an empty list means the whole catalog.
func selectEntries(ds *tle.TLEDataset, idsParam string) ([]tle.TLEEntry, error) {
	if idsParam == "" {
		return ds.Satellites, nil
	}
	var entries []tle.TLEEntry
	for _, field := range strings.Split(idsParam, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid ids parameter: %q", field)
		}
		entry, ok := ds.Find(id)
		if !ok {
			return nil, fmt.Errorf("satellite %d not in catalog", id)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GET /api/v1/terminator
func (s *Server) handleTerminator(w http.ResponseWriter, r *http.Request) {
	at, err := timeParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"t":      at.Format(time.RFC3339),
		"points": track.Terminator(at),
	})
}

// GET /api/v1/tle/metadata
func (s *Server) handleTLEMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusServiceUnavailable, "no element set loaded yet")
		return
	}
	writeJSON(w, http.StatusOK, ds.Metadata())
}

// POST /api/v1/tle/fetch
func (s *Server) handleTLEFetch(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not configured")
		return
	}
	if err := s.refresher.RefreshNow(r.Context()); err != nil {
		s.logger.Error("manual element refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "element refresh failed")
		return
	}
	ds := s.store.Get()
	writeJSON(w, http.StatusOK, ds.Metadata())
}

// GET /api/v1/snapshot/stats
func (s *Server) handleSnapshotStats(w http.ResponseWriter, r *http.Request) {
	if s.cache == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot cache not configured")
		return
	}
	writeJSON(w, http.StatusOK, s.cache.Stats())
}
