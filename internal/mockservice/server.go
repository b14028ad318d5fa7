// Package mockservice is a local stand-in for the attention prediction
// service. It scores every submitted area and serves generated heatmaps.
package mockservice

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"math"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/request"
)

// maxHeatmapSide bounds generated heatmaps; clients scale them anyway.
const maxHeatmapSide = 256

type Options struct {
	APIKey string
	// ForceStatus makes /predict/ answer with this status when non-zero.
	ForceStatus int
	Credits     int
	Logger      *zap.Logger
}

type Server struct {
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	assets map[string][]byte
	calls  int
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Server{opts: opts, log: opts.Logger, assets: map[string][]byte{}}
}

// Calls is the number of prediction requests received.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(s.log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/heatmaps/:file", s.heatmap)

	api := r.Group("/", auth(s.opts.APIKey))
	{
		api.POST("/predict/", s.predict)
		api.GET("/credits", s.credits)
	}
	return r
}

type score struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

func (s *Server) predict(c *gin.Context) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.opts.ForceStatus != 0 {
		c.JSON(s.opts.ForceStatus, gin.H{"detail": http.StatusText(s.opts.ForceStatus)})
		return
	}

	img, err := decodeDataURI(c.PostForm(request.FieldImage))
	if err != nil {
		s.log.Warn("bad image field", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	size := img.Bounds().Size()

	var polygons []aoi.Polygon
	if raw, ok := c.GetPostForm(request.FieldAOI); ok {
		if err := json.Unmarshal([]byte(raw), &polygons); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid aoi: " + err.Error()})
			return
		}
	}

	sal := estimateSaliency(img)
	scores := make([]score, 0, len(polygons))
	for _, p := range polygons {
		scores = append(scores, score{ID: p.ID, Score: sal.share(frameRect(p.Bounds()))})
	}

	resp := gin.H{"code": "success"}
	if len(polygons) > 0 {
		resp["aoi"] = scores
	}
	if c.PostForm(request.FieldSVG) == "true" {
		resp["svg"] = heatmapSVG(size)
	} else {
		id := uuid.NewString()
		var buf bytes.Buffer
		if err := png.Encode(&buf, sal.heatmap()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		s.mu.Lock()
		s.assets[id] = buf.Bytes()
		s.mu.Unlock()
		resp["url"] = fmt.Sprintf("%s://%s/heatmaps/%s.png", scheme(c), c.Request.Host, id)
	}

	s.log.Debug("prediction served",
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
		zap.Int("aoi", len(polygons)))
	c.JSON(http.StatusOK, resp)
}

func (s *Server) credits(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"credits": s.opts.Credits})
}

func (s *Server) heatmap(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("file"), ".png")
	s.mu.Lock()
	data, ok := s.assets[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func scheme(c *gin.Context) string {
	if c.Request.TLS != nil {
		return "https"
	}
	return "http"
}

func decodeDataURI(uri string) (image.Image, error) {
	const marker = ";base64,"
	if !strings.HasPrefix(uri, "data:image/") {
		return nil, fmt.Errorf("image must be a data URI")
	}
	i := strings.Index(uri, marker)
	if i < 0 {
		return nil, fmt.Errorf("image must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(uri[i+len(marker):])
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func frameRect(f aoi.Frame) image.Rectangle {
	return image.Rect(
		int(math.Floor(f.X)),
		int(math.Floor(f.Y)),
		int(math.Ceil(f.MaxX())),
		int(math.Ceil(f.MaxY())),
	)
}

func heatmapSize(size image.Point) image.Point {
	w, h := size.X, size.Y
	if w > maxHeatmapSide || h > maxHeatmapSide {
		k := float64(maxHeatmapSide) / float64(max(w, h))
		w, h = max(1, int(float64(w)*k)), max(1, int(float64(h)*k))
	}
	return image.Pt(w, h)
}

func heatmapSVG(size image.Point) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+
		`<defs><radialGradient id="h"><stop offset="0" stop-color="red"/><stop offset="1" stop-color="blue" stop-opacity="0"/></radialGradient></defs>`+
		`<ellipse cx="%d" cy="%d" rx="%d" ry="%d" fill="url(#h)"/></svg>`,
		size.X, size.Y, size.X/2, size.Y/3, size.X/2, size.Y/3)
}
