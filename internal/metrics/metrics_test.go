package metrics

import (
	"fmt"
	"testing"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/positions", "/api/v1/positions"},
		{"/api/v1/visible", "/api/v1/visible"},
		{"/api/v1/passes", "/api/v1/passes"},
		{"/api/v1/terminator", "/api/v1/terminator"},
		{"/api/v1/tle/metadata", "/api/v1/tle/metadata"},
		{"/api/v1/tle/fetch", "/api/v1/tle/fetch"},
		{"/api/v1/snapshot/stats", "/api/v1/snapshot/stats"},
		{"/api/v1/stream/positions", "/api/v1/stream/positions"},

		// Per-satellite routes collapse the NORAD ID to one label.
		{"/api/v1/satellites/25544/position", "/api/v1/satellites/{norad_id}/position"},
		{"/api/v1/satellites/25544/track", "/api/v1/satellites/{norad_id}/track"},
		{"/api/v1/satellites/44713/coverage", "/api/v1/satellites/{norad_id}/coverage"},
		{"/api/v1/satellites/1/look", "/api/v1/satellites/{norad_id}/look"},

		// Not-quite routes and bot traffic collapse to "other".
		{"/api/v1/satellites/25544", "other"},
		{"/api/v1/satellites/abc/track", "other"},
		{"/api/v1/satellites/25544/orbit", "other"},
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizeRoute(tt.path); got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestRouteCardinality verifies that many distinct NORAD IDs produce exactly
// one route label.
func TestRouteCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for id := 1; id <= 100; id++ {
		seen[normalizeRoute(fmt.Sprintf("/api/v1/satellites/%d/track", id))] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label, got %d: %v", len(seen), seen)
	}
}
