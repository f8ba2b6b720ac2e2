package track

import (
	"math"
	"testing"
	"time"
)

// TestTerminatorClosure: the vertex list must start and end at the same pole
// so the curve closes into a polygon, with every interior vertex strictly
// between the poles.
func TestTerminatorClosure(t *testing.T) {
	at := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	points := Terminator(at)

	wantLen := int(terminatorSpanDeg/terminatorStepDeg) + 1 + 2
	if len(points) != wantLen {
		t.Fatalf("vertex count = %d, want %d", len(points), wantLen)
	}

	first, last := points[0], points[len(points)-1]
	if math.Abs(first.Lat) != 90 || math.Abs(last.Lat) != 90 {
		t.Fatalf("endpoint latitudes = %.2f, %.2f, want ±90", first.Lat, last.Lat)
	}
	if first.Lat != last.Lat {
		t.Errorf("endpoints at different poles: %.2f vs %.2f", first.Lat, last.Lat)
	}
	if first.Lon != -terminatorSpanDeg/2 {
		t.Errorf("first vertex longitude = %.2f, want %.2f", first.Lon, -terminatorSpanDeg/2)
	}
	if last.Lon != terminatorSpanDeg/2 {
		t.Errorf("last vertex longitude = %.2f, want %.2f", last.Lon, terminatorSpanDeg/2)
	}

	for _, p := range points[1 : len(points)-1] {
		if math.Abs(p.Lat) >= 90 {
			t.Fatalf("interior vertex at |lat| = %.4f, want < 90", math.Abs(p.Lat))
		}
	}
}

// TestTerminatorPoleBySeason: near the June solstice the Sun is north of the
// equator, so the night polygon closes over the south pole; near the December
// solstice over the north pole.
func TestTerminatorPoleBySeason(t *testing.T) {
	june := Terminator(time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC))
	if june[0].Lat != -90 {
		t.Errorf("June solstice pole = %.0f, want -90", june[0].Lat)
	}

	december := Terminator(time.Date(2024, 12, 21, 12, 0, 0, 0, time.UTC))
	if december[0].Lat != 90 {
		t.Errorf("December solstice pole = %.0f, want 90", december[0].Lat)
	}
}

// TestTerminatorSolsticeExtent: at a solstice the terminator reaches
// |lat| ≈ 90° − 23.44°. Check the extreme interior latitude lands near the
// polar circle.
func TestTerminatorSolsticeExtent(t *testing.T) {
	points := Terminator(time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC))

	var maxLat float64
	for _, p := range points[1 : len(points)-1] {
		if math.Abs(p.Lat) > maxLat {
			maxLat = math.Abs(p.Lat)
		}
	}
	if maxLat < 66 || maxLat > 68 {
		t.Errorf("extreme terminator latitude = %.2f°, want near 66.56°", maxLat)
	}
}

// TestTerminatorPeriodicity: latitudes 360° of longitude apart describe the
// same great circle and must agree. The overshoot region exists exactly so a
// renderer can re-centre the map, so the repeats have to line up.
func TestTerminatorPeriodicity(t *testing.T) {
	points := Terminator(time.Date(2024, 9, 1, 6, 30, 0, 0, time.UTC))
	interior := points[1 : len(points)-1]

	stride := int(math.Round(360 / terminatorStepDeg))
	for i := 0; i+stride < len(interior); i += 500 {
		a, b := interior[i], interior[i+stride]
		if math.Abs(a.Lat-b.Lat) > 1e-9 {
			t.Fatalf("lat at lon %.1f = %.6f, at lon %.1f = %.6f; want equal",
				a.Lon, a.Lat, b.Lon, b.Lat)
		}
	}
}

func TestWrap360(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{725, 5},
		{-725, 355},
	}
	for _, tt := range tests {
		if got := wrap360(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("wrap360(%.0f) = %.6f, want %.6f", tt.in, got, tt.want)
		}
	}
}
