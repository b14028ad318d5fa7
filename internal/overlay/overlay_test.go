package overlay

import (
	"image"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#3E21DEff", color.NRGBA{R: 0x3e, G: 0x21, B: 0xde, A: 0xff}, false},
		{"#ff000080", color.NRGBA{R: 0xff, A: 0x80}, false},
		{"#00ff00", color.NRGBA{G: 0xff, A: 0xff}, false},
		{"00ff00", color.NRGBA{G: 0xff, A: 0xff}, false},
		{"#fff", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseColor(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestScoreLabel(t *testing.T) {
	for score, want := range map[float64]string{42: "42%", 42.5: "42.5%", 0: "0%", 100: "100%"} {
		if got := ScoreLabel(score); got != want {
			t.Errorf("ScoreLabel(%v) = %q, want %q", score, got, want)
		}
	}
}

func uniform(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestComposeScalesHeatmap(t *testing.T) {
	base := uniform(100, 80, color.White)
	heat := uniform(10, 8, color.RGBA{R: 255, A: 255})

	out, err := Composer{Opacity: 1}.Compose(base, heat, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 80 {
		t.Fatalf("Unexpected bounds %v", out.Bounds())
	}
	if got := out.RGBAAt(50, 40); got.R != 255 || got.G > 5 {
		t.Errorf("Expected red heatmap at center, got %+v", got)
	}

	half, _ := Composer{Opacity: 0.5}.Compose(base, heat, nil, "")
	if got := half.RGBAAt(50, 40); got.R != 255 || got.G < 100 || got.G > 150 {
		t.Errorf("Expected half-blended pixel, got %+v", got)
	}
}

func TestComposeDrawsBadges(t *testing.T) {
	base := uniform(200, 200, color.White)
	blue := color.NRGBA{B: 255, A: 255}
	region := Region{Rect: image.Rect(20, 20, 180, 180), Color: blue, Score: 42}

	out, err := Composer{Scale: 1}.Compose(base, nil, []Region{region}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(20, 120); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("Expected border at left edge, got %+v", got)
	}
	if got := out.RGBAAt(88, 50); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("Expected score box, got %+v", got)
	}
	inside := out.RGBAAt(120, 120)
	if inside.B != 255 || inside.R == 255 || inside.R < 200 {
		t.Errorf("Expected a light tint inside the area, got %+v", inside)
	}
	if got := out.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Pixel outside the area changed: %+v", got)
	}

	white := 0
	for y := 20; y < 52; y++ {
		for x := 20; x < 90; x++ {
			if c := out.RGBAAt(x, y); c.R == 255 && c.G == 255 {
				white++
			}
		}
	}
	if white == 0 {
		t.Error("Score label not drawn")
	}
}

func TestComposeStampsQRCode(t *testing.T) {
	base := uniform(300, 300, color.White)
	out, err := Composer{QRSize: 100}.Compose(base, nil, nil, "https://cdn.test/heatmaps/1.png")
	if err != nil {
		t.Fatal(err)
	}

	dark := 0
	for y := 192; y < 292; y++ {
		for x := 192; x < 292; x++ {
			if out.RGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Error("Expected QR modules in the bottom-right corner")
	}
	if out.RGBAAt(10, 10).R != 255 {
		t.Error("QR code drawn outside its corner")
	}
}
