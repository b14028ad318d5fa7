// Package overlay composes the heatmap image: the prediction scaled over the
// exported artboard, one badge per scored area and an optional QR code
// linking to the hosted heatmap.
package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strconv"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Badge geometry in points.
const (
	BorderWidth    = 4
	FillAlpha      = 0x20
	ScoreBoxWidth  = 70
	ScoreBoxHeight = 32
	qrMargin       = 8
)

// Region is a scored area in pixel space of the composed image.
type Region struct {
	Rect  image.Rectangle
	Color color.NRGBA
	Score float64
}

type Composer struct {
	// Opacity of the heatmap layer, 0..1.
	Opacity float64
	// Scale is pixels per point; badge geometry grows with it.
	Scale float64
	// QRSize in pixels; 0 disables the QR code.
	QRSize int
}

// DecodeImage decodes a PNG or JPEG heatmap.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode heatmap: %w", err)
	}
	return img, nil
}

// ScoreLabel formats a score the way badges show it.
func ScoreLabel(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64) + "%"
}

// Compose draws onto a copy of base. heatmap may be nil and link may be
// empty.
func (c Composer) Compose(base, heatmap image.Image, regions []Region, link string) (*image.RGBA, error) {
	b := base.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), base, b.Min, draw.Src)

	if heatmap != nil {
		c.drawHeatmap(dst, heatmap)
	}
	for _, r := range regions {
		c.drawRegion(dst, r)
	}
	if link != "" && c.QRSize > 0 {
		if err := c.drawQR(dst, link); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (c Composer) drawHeatmap(dst *image.RGBA, heatmap image.Image) {
	scaled := image.NewRGBA(dst.Bounds())
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), heatmap, heatmap.Bounds(), draw.Src, nil)

	opacity := c.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), scaled, image.Point{}, mask, image.Point{}, draw.Over)
}

func (c Composer) drawRegion(dst *image.RGBA, r Region) {
	draw.Draw(dst, r.Rect, image.NewUniform(withAlpha(r.Color, FillAlpha)), image.Point{}, draw.Over)
	strokeRect(dst, r.Rect, c.px(BorderWidth), r.Color)

	box := image.Rect(r.Rect.Min.X, r.Rect.Min.Y, r.Rect.Min.X+c.px(ScoreBoxWidth), r.Rect.Min.Y+c.px(ScoreBoxHeight))
	draw.Draw(dst, box, image.NewUniform(r.Color), image.Point{}, draw.Over)
	drawCentered(dst, box, ScoreLabel(r.Score))
}

func (c Composer) drawQR(dst *image.RGBA, link string) error {
	q, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}
	img := q.Image(c.QRSize)
	size := img.Bounds().Size()
	at := dst.Bounds().Max.Sub(size).Sub(image.Pt(qrMargin, qrMargin))
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(size)}, img, img.Bounds().Min, draw.Src)
	return nil
}

func (c Composer) px(pt int) int {
	scale := c.Scale
	if scale <= 0 {
		scale = 1
	}
	v := int(float64(pt)*scale + 0.5)
	if v < 1 {
		v = 1
	}
	return v
}

// strokeRect draws a border of width w centred on the edge of r.
func strokeRect(dst draw.Image, r image.Rectangle, w int, col color.Color) {
	outer := r.Inset(-w / 2)
	inner := outer.Inset(w)
	src := image.NewUniform(col)
	for _, edge := range []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y),
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y),
	} {
		draw.Draw(dst, edge, src, image.Point{}, draw.Over)
	}
}

func drawCentered(dst draw.Image, box image.Rectangle, text string) {
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.White, Face: face}
	m := face.Metrics()
	x := box.Min.X + (box.Dx()-d.MeasureString(text).Ceil())/2
	y := box.Min.Y + (box.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2
	d.Dot = fixed.P(x, y)
	d.DrawString(text)
}
