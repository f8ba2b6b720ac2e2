package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/satview/satview/internal/auth"
	"github.com/satview/satview/internal/snapshot"
	"github.com/satview/satview/internal/tle"
	"github.com/satview/satview/internal/track"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  30777-3 0  9991"
	issLine2 = "2 25544  51.6400 208.0000 0002000   0.0000   6.1500 15.54000000 10008"
	geoLine1 = "1 19548U 88091B   24100.50000000  .00000100  00000-0  00000+0 0  9995"
	geoLine2 = "2 19548   0.0500  95.0000 0002000 150.0000 210.0000  1.00270000 10000"
)

var issEpoch = time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testStore() *tle.Store {
	store := tle.NewStore()
	store.Set(tle.NewDataset("test", time.Now().UTC(), []tle.TLEEntry{
		{NORADID: 25544, Name: "ISS (ZARYA)", Epoch: issEpoch, Line1: issLine1, Line2: issLine2},
		{NORADID: 19548, Name: "TDRS 3", Epoch: issEpoch, Line1: geoLine1, Line2: geoLine2},
	}))
	return store
}

func testServer(store *tle.Store, authCfg auth.Config) *Server {
	cache := snapshot.NewCache(snapshot.Config{
		Step:        5 * time.Second,
		Horizon:     30 * time.Second,
		GracePeriod: 5 * time.Second,
		Buffer:      10 * time.Second,
	}, nil, store, testLogger())
	return NewServer(":0", Deps{Store: store, Cache: cache}, authCfg, testLogger())
}

func doRequest(s *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	s.HTTPServer().Handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\nbody: %s", err, w.Body.String())
	}
	return body
}

func TestHealthz(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	w := doRequest(s, "GET", "/healthz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok\n" {
		t.Errorf("body = %q, want %q", w.Body.String(), "ok\n")
	}
}

func TestReadyzTracksStore(t *testing.T) {
	empty := tle.NewStore()
	s := testServer(empty, auth.Config{})

	w := doRequest(s, "GET", "/readyz", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status with empty store = %d, want 503", w.Code)
	}

	empty.Set(tle.NewDataset("test", time.Now().UTC(), []tle.TLEEntry{
		{NORADID: 25544, Line1: issLine1, Line2: issLine2},
	}))
	w = doRequest(s, "GET", "/readyz", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status with populated store = %d, want 200", w.Code)
	}
}

func TestSatellitePosition(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	at := issEpoch.Add(10 * time.Minute).Format(time.RFC3339)

	w := doRequest(s, "GET", "/api/v1/satellites/25544/position?t="+at, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)

	if body["norad_id"].(float64) != 25544 {
		t.Errorf("norad_id = %v", body["norad_id"])
	}
	if body["geostationary"].(bool) {
		t.Error("ISS reported geostationary")
	}

	pos := body["position"].(map[string]any)
	alt := pos["alt_km"].(float64)
	if alt < 300 || alt > 500 {
		t.Errorf("alt_km = %v, not low-orbit", alt)
	}
	lon := pos["lon"].(float64)
	if lon < -180 || lon >= 180 {
		t.Errorf("lon = %v out of [-180, 180)", lon)
	}
}

func TestSatellitePositionGeostationaryFlag(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	at := issEpoch.Format(time.RFC3339)

	w := doRequest(s, "GET", "/api/v1/satellites/19548/position?t="+at, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if !body["geostationary"].(bool) {
		t.Error("geostationary satellite not flagged")
	}
}

func TestSatelliteNotFound(t *testing.T) {
	s := testServer(testStore(), auth.Config{})

	w := doRequest(s, "GET", "/api/v1/satellites/99999/position", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	w = doRequest(s, "GET", "/api/v1/satellites/notanumber/position", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status for non-numeric id = %d, want 400", w.Code)
	}
}

// A geostationary satellite's ground track stays near one longitude, so both
// windows come back as a single segment and the response is a flat point
// array rather than an array of segments.
func TestTrackFlattensSingleSegment(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	at := issEpoch.Format(time.RFC3339)

	w := doRequest(s, "GET", "/api/v1/satellites/19548/track?t="+at+"&window=30", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)

	future, ok := body["future"].([]any)
	if !ok || len(future) == 0 {
		t.Fatalf("future = %v, want non-empty array", body["future"])
	}
	first, ok := future[0].(map[string]any)
	if !ok {
		t.Fatalf("future[0] = %T, want a point object (flattened single segment)", future[0])
	}
	if _, ok := first["lat"]; !ok {
		t.Error("point missing lat field")
	}
}

func TestTrackRejectsBadWindow(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	for _, query := range []string{"window=0", "window=abc", "window=9999", "step=0", "step=200"} {
		w := doRequest(s, "GET", "/api/v1/satellites/25544/track?"+query, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", query, w.Code)
		}
	}
}

func TestCoverage(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	at := issEpoch.Add(10 * time.Minute).Format(time.RFC3339)

	w := doRequest(s, "GET", "/api/v1/satellites/25544/coverage?t="+at+"&points=36", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)

	polygon := body["polygon"].([]any)
	if len(polygon) != 37 {
		t.Errorf("polygon has %d vertices, want 37", len(polygon))
	}
	firstV := polygon[0].(map[string]any)
	lastV := polygon[len(polygon)-1].(map[string]any)
	if firstV["lat"] != lastV["lat"] || firstV["lon"] != lastV["lon"] {
		t.Error("polygon not closed")
	}
}

func TestLookAngles(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	at := issEpoch.Format(time.RFC3339)

	// Geostationary satellite at 95°E longitude slot seen from the sub-point.
	w := doRequest(s, "GET", "/api/v1/satellites/19548/look?t="+at+"&lat=0&lon=-96", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	for _, key := range []string{"azimuth_deg", "elevation_deg", "range_km", "visible"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %s", key)
		}
	}

	w = doRequest(s, "GET", "/api/v1/satellites/25544/look?t="+at, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing observer: status = %d, want 400", w.Code)
	}

	w = doRequest(s, "GET", "/api/v1/satellites/25544/look?t="+at+"&lat=95&lon=0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("lat out of range: status = %d, want 400", w.Code)
	}
}

func TestVisible(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	at := issEpoch.Format(time.RFC3339)

	w := doRequest(s, "GET", "/api/v1/visible?t="+at+"&lat=0&lon=0&min_elevation=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	count := int(body["count"].(float64))
	visible := body["visible"].([]any)
	if count != len(visible) {
		t.Errorf("count = %d but visible has %d entries", count, len(visible))
	}

	w = doRequest(s, "GET", "/api/v1/visible", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing observer: status = %d, want 400", w.Code)
	}
}

func TestTerminator(t *testing.T) {
	s := testServer(testStore(), auth.Config{})

	w := doRequest(s, "GET", "/api/v1/terminator?t=2024-06-20T12:00:00Z", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)

	points := body["points"].([]any)
	if len(points) < 1000 {
		t.Fatalf("terminator has %d points, expected thousands", len(points))
	}
	first := points[0].(map[string]any)
	last := points[len(points)-1].(map[string]any)
	if lat := first["lat"].(float64); lat != 90 && lat != -90 {
		t.Errorf("first point lat = %v, want a pole", lat)
	}
	if lat := last["lat"].(float64); lat != 90 && lat != -90 {
		t.Errorf("last point lat = %v, want a pole", lat)
	}
}

func TestTLEMetadata(t *testing.T) {
	s := testServer(testStore(), auth.Config{})

	w := doRequest(s, "GET", "/api/v1/tle/metadata", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["count"].(float64) != 2 {
		t.Errorf("count = %v, want 2", body["count"])
	}
	if body["source"] != "test" {
		t.Errorf("source = %v, want test", body["source"])
	}

	empty := testServer(tle.NewStore(), auth.Config{})
	w = doRequest(empty, "GET", "/api/v1/tle/metadata", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("empty store: status = %d, want 503", w.Code)
	}
}

func TestPositionsRequiresSnapshot(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	w := doRequest(s, "GET", "/api/v1/positions", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 with empty cache", w.Code)
	}
}

func TestSnapshotStats(t *testing.T) {
	s := testServer(testStore(), auth.Config{})
	w := doRequest(s, "GET", "/api/v1/snapshot/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if _, ok := body["entries"]; !ok {
		t.Error("stats missing entries field")
	}
}

func TestAuthProtectsMutatingEndpoints(t *testing.T) {
	cfg := auth.Config{Enabled: true, Token: "secret-token"}
	s := testServer(testStore(), cfg)

	w := doRequest(s, "POST", "/api/v1/tle/fetch", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	hdr := http.Header{"Authorization": []string{"Bearer wrong"}}
	w = doRequest(s, "POST", "/api/v1/tle/fetch", hdr)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}

	hdr = http.Header{"Authorization": []string{"Bearer secret-token"}}
	w = doRequest(s, "POST", "/api/v1/tle/fetch", hdr)
	if w.Code == http.StatusUnauthorized {
		t.Errorf("valid token rejected: status = %d", w.Code)
	}
}

func TestAuthExemptsReadOnlyGeometry(t *testing.T) {
	cfg := auth.Config{Enabled: true, Token: "secret-token"}
	s := testServer(testStore(), cfg)

	at := issEpoch.Format(time.RFC3339)
	for _, path := range []string{
		"/healthz",
		"/metrics",
		"/api/v1/terminator",
		"/api/v1/tle/metadata",
		"/api/v1/satellites/25544/position?t=" + at,
	} {
		w := doRequest(s, "GET", path, nil)
		if w.Code == http.StatusUnauthorized {
			t.Errorf("%s: got 401, want exempt from auth", path)
		}
	}
}

func TestSegmentsJSONEncoding(t *testing.T) {
	point := func(lat, lon float64) track.LatLon { return track.LatLon{Lat: lat, Lon: lon} }

	tests := []struct {
		name     string
		segments segmentsJSON
		want     string
	}{
		{"empty", nil, "[]"},
		{
			"single segment flattened",
			segmentsJSON{{point(1, 2), point(3, 4)}},
			`[{"lat":1,"lon":2},{"lat":3,"lon":4}]`,
		},
		{
			"multiple segments nested",
			segmentsJSON{{point(1, 2)}, {point(3, 4)}},
			`[[{"lat":1,"lon":2}],[{"lat":3,"lon":4}]]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.segments)
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.TrimSpace(string(data)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPassesValidation(t *testing.T) {
	s := testServer(testStore(), auth.Config{})

	tests := []struct {
		name  string
		query string
	}{
		{"missing observer", ""},
		{"hours too large", "?lat=27.5&lon=-82.5&hours=100"},
		{"negative min elevation", "?lat=27.5&lon=-82.5&min_elevation=-5"},
		{"unknown id", "?lat=27.5&lon=-82.5&ids=12345"},
		{"bad id", "?lat=27.5&lon=-82.5&ids=xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, "GET", "/api/v1/passes"+tt.query, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}
