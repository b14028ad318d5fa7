package mockservice

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/request"
	"github.com/ivlev/attnmap/internal/transport"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server, *transport.Client) {
	t.Helper()
	if opts.APIKey == "" {
		opts.APIKey = "good"
	}
	s := New(opts)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return s, srv, transport.NewClient(nil, 5*time.Second, nil)
}

func submit(t *testing.T, c *transport.Client, url, key string, polygons []aoi.Polygon, svg bool) *transport.Response {
	t.Helper()
	req, err := request.Build(testImage(t, 400, 300), polygons, request.Options{Platform: "sketch", Format: "png", IsTransparent: true, SVG: svg})
	if err != nil {
		t.Fatal(err)
	}
	form, err := req.Form()
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Submit(context.Background(), url+"/predict/", form, request.Header(key))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return resp
}

type predictBody struct {
	Code string `json:"code"`
	URL  string `json:"url"`
	SVG  string `json:"svg"`
	AOI  []struct {
		ID    string  `json:"id"`
		Score float64 `json:"score"`
	} `json:"aoi"`
}

func TestPredictScoresEveryArea(t *testing.T) {
	s, srv, c := startServer(t, Options{})
	polygons := aoi.EncodeAll([]aoi.ValidatedAOI{
		{ID: "a", Frame: aoi.Frame{X: 0, Y: 0, Width: 200, Height: 150}},
		{ID: "b", Frame: aoi.Frame{X: 300, Y: 200, Width: 100, Height: 100}},
	})

	resp := submit(t, c, srv.URL, "good", polygons, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var body predictBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatal(err)
	}
	if body.Code != "success" || body.URL == "" {
		t.Errorf("Unexpected body %s", resp.Body)
	}
	if len(body.AOI) != 2 || body.AOI[0].ID != "a" || body.AOI[1].ID != "b" {
		t.Fatalf("Expected scores for a and b, got %+v", body.AOI)
	}
	for _, e := range body.AOI {
		if e.Score < 0 || e.Score > 100 {
			t.Errorf("Score out of range: %+v", e)
		}
	}
	if body.AOI[0].Score <= body.AOI[1].Score {
		t.Errorf("Larger top-left area should score higher: %+v", body.AOI)
	}
	if s.Calls() != 1 {
		t.Errorf("Expected 1 call, got %d", s.Calls())
	}

	data, err := c.Fetch(context.Background(), body.URL)
	if err != nil {
		t.Fatalf("Fetch heatmap failed: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("Heatmap is not a PNG: %v", err)
	}
}

func TestPredictWithoutAOI(t *testing.T) {
	_, srv, c := startServer(t, Options{})
	resp := submit(t, c, srv.URL, "good", nil, true)

	var raw map[string]any
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["aoi"]; ok {
		t.Error("aoi must be omitted when none was sent")
	}
	if _, ok := raw["url"]; ok {
		t.Error("svg mode must not return a url")
	}
	if svg, _ := raw["svg"].(string); svg == "" {
		t.Error("Expected inline svg")
	}
}

func TestPredictStatuses(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		key  string
		want int
	}{
		{"bad token", Options{}, "bad", http.StatusUnauthorized},
		{"forced quota", Options{ForceStatus: http.StatusForbidden}, "good", http.StatusForbidden},
		{"forced maintenance", Options{ForceStatus: http.StatusServiceUnavailable}, "good", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv, c := startServer(t, tt.opts)
			if resp := submit(t, c, srv.URL, tt.key, nil, false); resp.StatusCode != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}

func TestPredictRejectsBadForm(t *testing.T) {
	_, srv, c := startServer(t, Options{})
	form := map[string][]string{"image": {"not-a-data-uri"}}
	resp, err := c.Submit(context.Background(), srv.URL+"/predict/", form, request.Header("good"))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestCreditsAndAssets(t *testing.T) {
	_, srv, c := startServer(t, Options{Credits: 12})

	resp, err := c.Get(context.Background(), srv.URL+"/credits", request.Header("good"))
	if err != nil {
		t.Fatal(err)
	}
	credits, err := transport.DecodeCredits(resp.Body)
	if err != nil || credits.Credits != 12 {
		t.Errorf("Expected 12 credits, got %+v %v", credits, err)
	}

	if _, err := c.Fetch(context.Background(), srv.URL+"/heatmaps/missing.png"); err == nil {
		t.Error("Expected error for unknown asset")
	}
}

func TestHeatmapSize(t *testing.T) {
	if got := heatmapSize(image.Pt(1024, 512)); got != image.Pt(256, 128) {
		t.Errorf("Unexpected size %v", got)
	}
	if got := heatmapSize(image.Pt(100, 50)); got != image.Pt(100, 50) {
		t.Errorf("Small images must keep their size, got %v", got)
	}
}
