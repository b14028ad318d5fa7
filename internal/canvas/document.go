package canvas

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/config"
	"github.com/ivlev/attnmap/internal/overlay"
	"github.com/ivlev/attnmap/internal/reconcile"
	"github.com/ivlev/attnmap/internal/source"
	"github.com/ivlev/attnmap/internal/system"
)

// Fetcher downloads overlay assets.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Options struct {
	OutputDir string
	// DPI is the page render density. Exports are always resampled to one
	// pixel per canvas unit, the coordinate space of the AOI polygons.
	DPI int
	QRCode    bool
	Opacity   float64
	Fetcher   Fetcher
	Logger    *zap.Logger
}

// export is the last raster produced for an artboard.
type export struct {
	img image.Image
}

type Document struct {
	mu      sync.Mutex
	path    string
	layout  *Layout
	raster  source.Raster
	opts    Options
	log     *zap.Logger
	exports map[string]export
}

// Open loads the layout at path and its raster source.
func Open(path string, opts Options) (*Document, error) {
	layout, err := ReadLayout(path)
	if err != nil {
		return nil, err
	}

	src := layout.Source
	if !filepath.IsAbs(src) {
		src = filepath.Join(filepath.Dir(path), src)
	}
	raster, err := source.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open source of %s: %w", path, err)
	}
	for _, ab := range layout.Artboards {
		if ab.Page >= raster.PageCount() {
			raster.Close()
			return nil, fmt.Errorf("artboard %q: page %d not in source (%d pages)", ab.ID, ab.Page, raster.PageCount())
		}
	}

	if opts.DPI <= 0 {
		opts.DPI = source.BaseDPI
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Document{
		path:    path,
		layout:  layout,
		raster:  raster,
		opts:    opts,
		log:     opts.Logger.With(zap.String("layout", filepath.Base(path))),
		exports: map[string]export{},
	}, nil
}

func (d *Document) Path() string { return d.path }

// Layout returns the live layout. Callers must not modify it while an
// invocation runs.
func (d *Document) Layout() *Layout { return d.layout }

// Save writes the layout back to its file.
func (d *Document) Save() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return WriteLayout(d.layout, d.path)
}

func (d *Document) Close() error {
	return d.raster.Close()
}

// Select replaces the current selection.
func (d *Document) Select(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layout.Selection = append([]string(nil), ids...)
}

func (d *Document) SelectedLayers() []aoi.Layer {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []aoi.Layer
	for _, id := range d.layout.Selection {
		if ab, ok := d.layout.artboard(id); ok {
			out = append(out, aoi.Layer{ID: ab.ID, Name: ab.Name, IsContainer: true, Frame: ab.Frame})
			continue
		}
		if l, ok := d.layout.layer(id); ok {
			out = append(out, aoi.Layer{ID: l.ID, Name: l.Name, Frame: l.Frame})
			continue
		}
		d.log.Warn("selected id not in layout", zap.String("id", id))
	}
	return out
}

// ListCandidateShapes returns the top-level layers of the artboard.
func (d *Document) ListCandidateShapes(container aoi.Layer) ([]aoi.MarkerShape, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ab, ok := d.layout.artboard(container.ID)
	if !ok {
		return nil, fmt.Errorf("artboard %q not found", container.ID)
	}
	shapes := make([]aoi.MarkerShape, 0, len(ab.Layers))
	for _, l := range ab.Layers {
		shapes = append(shapes, aoi.MarkerShape{
			ID:        l.ID,
			Kind:      l.Type.Kind(),
			Name:      l.Name,
			Frame:     l.Frame,
			FillColor: l.Fill,
		})
	}
	return shapes, nil
}

func (d *Document) MarkShape(id string, m aoi.Mark) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l, ok := d.layout.layer(id)
	if !ok {
		d.log.Warn("mark for unknown layer", zap.String("id", id))
		return
	}
	l.Hidden = m.Hidden
	l.Name = m.Name
}

// ExportToImage renders the artboard at the configured dpi and encodes it.
// quality is 0..1 and only applies to JPEG.
func (d *Document) ExportToImage(ctx context.Context, container aoi.Layer, format string, quality float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ex, err := d.render(container.ID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		err = png.Encode(&buf, ex.img)
	case "jpg", "jpeg", "":
		err = jpeg.Encode(&buf, ex.img, &jpeg.Options{Quality: jpegQuality(quality)})
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

func (d *Document) render(id string) (export, error) {
	d.mu.Lock()
	ab, ok := d.layout.artboard(id)
	if !ok {
		d.mu.Unlock()
		return export{}, fmt.Errorf("artboard %q not found", id)
	}
	page, frame := ab.Page, ab.Frame
	d.mu.Unlock()

	if frame.Width <= 0 || frame.Height <= 0 {
		return export{}, fmt.Errorf("artboard %q has an empty frame", id)
	}
	pageW, pageH, err := d.raster.PageSize(page)
	if err != nil {
		return export{}, err
	}
	dpi := system.ClampDPI(d.opts.DPI, pageW, pageH)
	img, err := d.raster.Render(page, dpi)
	if err != nil {
		return export{}, fmt.Errorf("render page %d: %w", page, err)
	}

	// the raster may not honour dpi, so measure its actual density
	b := img.Bounds()
	density := float64(b.Dx()) / pageW
	crop := image.Rect(
		b.Min.X+int(math.Round(frame.X*density)),
		b.Min.Y+int(math.Round(frame.Y*density)),
		b.Min.X+int(math.Round(frame.MaxX()*density)),
		b.Min.Y+int(math.Round(frame.MaxY()*density)),
	)

	out := image.NewRGBA(image.Rect(0, 0, pixels(frame.Width), pixels(frame.Height)))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(out, out.Bounds(), img, crop.Intersect(b), draw.Over, nil)

	ex := export{img: out}
	d.mu.Lock()
	d.exports[id] = ex
	d.mu.Unlock()

	d.log.Debug("artboard exported",
		zap.String("artboard", id),
		zap.Int("dpi", dpi),
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()))
	return ex, nil
}

func pixels(units float64) int {
	v := int(math.Round(units))
	if v < 1 {
		return 1
	}
	return v
}

// CreateOverlayGroup composes the heatmap over the last export of the
// artboard, writes it to the output directory and records the heatmap and
// AOI groups as locked layers.
func (d *Document) CreateOverlayGroup(ctx context.Context, container aoi.Layer, ov reconcile.Overlay, badges []reconcile.Badge) error {
	d.mu.Lock()
	ex, ok := d.exports[container.ID]
	d.mu.Unlock()
	if !ok {
		var err error
		if ex, err = d.render(container.ID); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(d.opts.OutputDir, 0755); err != nil {
		return err
	}
	base := filepath.Join(d.opts.OutputDir, container.ID+"_heatmap")

	var heat image.Image
	if ov.URL != "" {
		if d.opts.Fetcher == nil {
			return fmt.Errorf("no fetcher for overlay %s", ov.URL)
		}
		data, err := d.opts.Fetcher.Fetch(ctx, ov.URL)
		if err != nil {
			return fmt.Errorf("fetch overlay: %w", err)
		}
		if heat, err = overlay.DecodeImage(data); err != nil {
			return err
		}
	}

	regions := make([]overlay.Region, 0, len(badges))
	for _, b := range badges {
		c, err := overlay.ParseColor(b.Color)
		if err != nil {
			d.log.Warn("bad area color, using default", zap.String("aoi", b.ID), zap.Error(err))
			c, _ = overlay.ParseColor(config.DefaultColor)
		}
		regions = append(regions, overlay.Region{
			Rect: image.Rect(
				int(math.Round(b.Frame.X)),
				int(math.Round(b.Frame.Y)),
				int(math.Round(b.Frame.MaxX())),
				int(math.Round(b.Frame.MaxY())),
			),
			Color: c,
			Score: b.Score,
		})
	}

	composer := overlay.Composer{Opacity: d.opts.Opacity, Scale: 1}
	if d.opts.QRCode {
		size := ex.img.Bounds().Dx()
		if h := ex.img.Bounds().Dy(); h < size {
			size = h
		}
		composer.QRSize = size / 5
	}
	composed, err := composer.Compose(ex.img, heat, regions, ov.URL)
	if err != nil {
		return err
	}

	out := base + ".png"
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := png.Encode(f, composed); err != nil {
		f.Close()
		os.Remove(out)
		return fmt.Errorf("encode %s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(out)
		return err
	}
	if ov.SVG != "" {
		if err := os.WriteFile(base+".svg", []byte(ov.SVG), 0644); err != nil {
			os.Remove(out)
			return err
		}
	}

	d.appendOverlayLayers(container.ID, out, badges)
	d.log.Info("heatmap written", zap.String("artboard", container.ID), zap.String("path", out), zap.Int("badges", len(badges)))
	return nil
}

func (d *Document) appendOverlayLayers(id, imagePath string, badges []reconcile.Badge) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ab, ok := d.layout.artboard(id)
	if !ok {
		return
	}
	ab.Layers = append(ab.Layers, Layer{
		ID:     uuid.NewString(),
		Type:   TypeImage,
		Name:   fmt.Sprintf("Heatmap of %q Artboard", ab.Name),
		Frame:  aoi.Frame{Width: ab.Frame.Width, Height: ab.Frame.Height},
		Locked: true,
		Image:  imagePath,
	})
	for i, b := range badges {
		ab.Layers = append(ab.Layers, aoiGroup(i, b))
	}
}

func aoiGroup(index int, b reconcile.Badge) Layer {
	fill := b.Color
	if len(fill) == 7 || len(fill) == 9 {
		fill = fill[:7] + fmt.Sprintf("%02x", overlay.FillAlpha)
	}
	box := aoi.Frame{X: b.Frame.X, Y: b.Frame.Y, Width: overlay.ScoreBoxWidth, Height: overlay.ScoreBoxHeight}
	return Layer{
		ID:     uuid.NewString(),
		Type:   TypeGroup,
		Name:   fmt.Sprintf("AOI Group %d", index),
		Frame:  b.Frame,
		Locked: true,
		Layers: []Layer{
			{ID: uuid.NewString(), Type: TypeShape, Name: "Background", Frame: b.Frame, Fill: fill},
			{ID: uuid.NewString(), Type: TypeShape, Name: "Score Background", Frame: box, Fill: b.Color},
			{ID: uuid.NewString(), Type: TypeText, Name: overlay.ScoreLabel(b.Score), Frame: box},
		},
	}
}
