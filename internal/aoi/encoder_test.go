package aoi

import (
	"encoding/json"
	"testing"
)

func TestEncodeScenario(t *testing.T) {
	p := Encode(ValidatedAOI{ID: "a", Frame: Frame{X: 10, Y: 10, Width: 200, Height: 200}})

	want := []Point{{10, 10, 0}, {210, 10, 1}, {210, 210, 2}, {10, 210, 3}}
	if p.ID != "a" {
		t.Errorf("Expected id a, got %s", p.ID)
	}
	if len(p.Points) != len(want) {
		t.Fatalf("Expected %d points, got %d", len(want), len(p.Points))
	}
	for i, pt := range p.Points {
		if pt != want[i] {
			t.Errorf("Point %d: expected %+v, got %+v", i, want[i], pt)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	for x := 0.0; x <= 400; x += 37 {
		for y := 0.0; y <= 300; y += 29 {
			for _, size := range [][2]float64{{70, 32}, {120.5, 64.25}, {400, 300}} {
				f := Frame{X: x, Y: y, Width: size[0], Height: size[1]}
				p := Encode(ValidatedAOI{ID: "r", Frame: f})

				if len(p.Points) != 4 {
					t.Fatalf("Expected 4 points, got %d", len(p.Points))
				}
				for i, pt := range p.Points {
					if pt.Index != i {
						t.Fatalf("Point %d has index %d", i, pt.Index)
					}
				}
				if got := p.Bounds(); got != f {
					t.Fatalf("Round trip mismatch: %v -> %v", f, got)
				}
			}
		}
	}
}

func TestEncodeAllEmpty(t *testing.T) {
	out := EncodeAll(nil)
	if out == nil || len(out) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", out)
	}
}

func TestPolygonJSON(t *testing.T) {
	p := Encode(ValidatedAOI{ID: "x1", Frame: Frame{X: 1, Y: 2, Width: 3, Height: 4}})
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"x1","points":[{"x":1,"y":2,"index":0},{"x":4,"y":2,"index":1},{"x":4,"y":6,"index":2},{"x":1,"y":6,"index":3}]}`
	if string(data) != want {
		t.Errorf("Unexpected JSON:\n%s\nwant\n%s", data, want)
	}
}
