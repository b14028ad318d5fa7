package aoi

import (
	"testing"

	"github.com/ivlev/attnmap/internal/apperr"
)

type recordingMarker struct {
	marks map[string][]Mark
}

func newRecordingMarker() *recordingMarker {
	return &recordingMarker{marks: map[string][]Mark{}}
}

func (m *recordingMarker) MarkShape(id string, mark Mark) {
	m.marks[id] = append(m.marks[id], mark)
}

func defaultValidator() *Validator {
	return NewValidator("AOI", 70, 32, "#3E21DEff")
}

var artboard = Frame{X: 0, Y: 0, Width: 800, Height: 600}

func rect(id string, x, y, w, h float64) MarkerShape {
	return MarkerShape{ID: id, Kind: KindRectangle, Name: "AOI", Frame: Frame{X: x, Y: y, Width: w, Height: h}}
}

func TestValidateAcceptsMarkerInsideArtboard(t *testing.T) {
	marker := newRecordingMarker()
	res := defaultValidator().Validate(artboard, []MarkerShape{rect("a", 10, 10, 200, 200)}, marker)

	if len(res.Accepted) != 1 || len(res.Rejected) != 0 {
		t.Fatalf("Expected 1 accepted, got %d accepted %d rejected", len(res.Accepted), len(res.Rejected))
	}
	got := res.Accepted[0]
	if got.ID != "a" || got.Frame != (Frame{10, 10, 200, 200}) {
		t.Errorf("Unexpected AOI %+v", got)
	}
	if got.Color != "#3E21DEff" {
		t.Errorf("Expected brand color fallback, got %s", got.Color)
	}

	marks := marker.marks["a"]
	if len(marks) != 1 || !marks[0].Hidden || marks[0].Name != "AOI" {
		t.Errorf("Accepted shape should be hidden once with its name kept, got %+v", marks)
	}
}

func TestValidateRules(t *testing.T) {
	tests := []struct {
		name   string
		shape  MarkerShape
		reason apperr.Kind
	}{
		{"below minimum", rect("s", 10, 10, 50, 20), apperr.TooSmall},
		{"narrow only", rect("s", 10, 10, 69, 100), apperr.TooSmall},
		{"short only", rect("s", 10, 10, 100, 31.5), apperr.TooSmall},
		{"small and outside", rect("s", -10, 590, 50, 20), apperr.TooSmall},
		{"left of artboard", rect("s", -1, 10, 100, 100), apperr.OutOfBounds},
		{"above artboard", rect("s", 10, -0.5, 100, 100), apperr.OutOfBounds},
		{"past right edge", rect("s", 750, 10, 70, 40), apperr.OutOfBounds},
		{"past bottom edge", rect("s", 10, 580, 100, 32), apperr.OutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker := newRecordingMarker()
			v := defaultValidator()
			res := v.Validate(artboard, []MarkerShape{tt.shape}, marker)

			if len(res.Accepted) != 0 {
				t.Fatalf("Expected rejection, got accepted %+v", res.Accepted)
			}
			if len(res.Rejected) != 1 || res.Rejected[0].Reason != tt.reason {
				t.Fatalf("Expected %v, got %+v", tt.reason, res.Rejected)
			}
			marks := marker.marks["s"]
			if len(marks) != 1 {
				t.Fatalf("Expected exactly one mark, got %d", len(marks))
			}
			if !marks[0].Hidden || marks[0].Name != v.DiagnosticName(tt.reason) {
				t.Errorf("Unexpected mark %+v", marks[0])
			}
		})
	}
}

func TestValidateEdgesAreInclusive(t *testing.T) {
	res := defaultValidator().Validate(artboard, []MarkerShape{
		rect("full", 0, 0, 800, 600),
		rect("min", 730, 568, 70, 32),
	}, nil)

	if len(res.Accepted) != 2 {
		t.Errorf("Expected both shapes accepted, got %+v", res)
	}
}

func TestValidateSilentlyExcludesNonMarkers(t *testing.T) {
	marker := newRecordingMarker()
	shapes := []MarkerShape{
		{ID: "oval", Kind: KindOther, Name: "AOI", Frame: Frame{10, 10, 200, 200}},
		{ID: "lower", Kind: KindRectangle, Name: "aoi", Frame: Frame{10, 10, 200, 200}},
		{ID: "spaced", Kind: KindRectangle, Name: "AOI ", Frame: Frame{10, 10, 200, 200}},
		{ID: "content", Kind: KindRectangle, Name: "Button", Frame: Frame{1, 1, 5, 5}},
	}

	res := defaultValidator().Validate(artboard, shapes, marker)

	if len(res.Accepted) != 0 || len(res.Rejected) != 0 {
		t.Errorf("Non-markers must be neither accepted nor rejected: %+v", res)
	}
	if len(marker.marks) != 0 {
		t.Errorf("Non-markers must not be marked: %+v", marker.marks)
	}
}

func TestValidateKeepsOrderAndFill(t *testing.T) {
	shapes := []MarkerShape{
		rect("first", 0, 0, 100, 100),
		rect("tiny", 0, 0, 10, 10),
		rect("second", 200, 200, 100, 100),
	}
	shapes[2].FillColor = "#ff0000ff"

	res := defaultValidator().Validate(artboard, shapes, nil)

	if len(res.Accepted) != 2 || res.Accepted[0].ID != "first" || res.Accepted[1].ID != "second" {
		t.Fatalf("Unexpected accepted order: %+v", res.Accepted)
	}
	if res.Accepted[1].Color != "#ff0000ff" {
		t.Errorf("Expected fill color kept, got %s", res.Accepted[1].Color)
	}
	if reasons := res.Reasons(); len(reasons) != 1 || reasons[0] != apperr.TooSmall {
		t.Errorf("Unexpected reasons %v", reasons)
	}
}

func TestValidateTooSmallNeverOutOfBounds(t *testing.T) {
	v := defaultValidator()
	for w := 0.0; w < 140; w += 7 {
		for h := 0.0; h < 64; h += 4 {
			if w >= 70 && h >= 32 {
				continue
			}
			for _, x := range []float64{-50, 10, 790} {
				res := v.Validate(artboard, []MarkerShape{rect("r", x, 10, w, h)}, nil)
				if len(res.Rejected) != 1 || res.Rejected[0].Reason != apperr.TooSmall {
					t.Fatalf("rect (%v,10,%v,%v) expected TooSmall, got %+v", x, w, h, res)
				}
			}
		}
	}
}

func TestDiagnosticName(t *testing.T) {
	v := defaultValidator()
	if got := v.DiagnosticName(apperr.TooSmall); got != "🚨 Too small (minimum 70x32)" {
		t.Errorf("Unexpected name %q", got)
	}
	if got := v.DiagnosticName(apperr.OutOfBounds); got != "🚨 Off the current Artboard" {
		t.Errorf("Unexpected name %q", got)
	}
}
