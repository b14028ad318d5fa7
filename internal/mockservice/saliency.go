package mockservice

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// baseline keeps flat regions from getting zero attention.
const baseline = 0.05

// saliency is a per-pixel attention estimate on a downscaled copy of the
// submitted image: local contrast (Sobel gradient magnitude) spread with a
// box filter and normalised to 0..1.
type saliency struct {
	w, h  int
	k     float64 // downscale factor from the submitted image
	v     []float64
	sum   []float64 // summed-area table, (w+1)*(h+1)
	total float64
}

func estimateSaliency(img image.Image) *saliency {
	size := img.Bounds().Size()
	hs := heatmapSize(size)
	small := image.NewGray(image.Rect(0, 0, hs.X, hs.Y))
	draw.ApproxBiLinear.Scale(small, small.Bounds(), img, img.Bounds(), draw.Src, nil)

	s := &saliency{w: hs.X, h: hs.Y, k: float64(hs.X) / float64(max(1, size.X))}
	mag := sobel(small)
	radius := max(2, min(hs.X, hs.Y)/20)
	s.v = boxBlur(boxBlur(mag, hs.X, hs.Y, radius), hs.X, hs.Y, radius)

	peak := 0.0
	for _, x := range s.v {
		peak = math.Max(peak, x)
	}
	for i, x := range s.v {
		if peak > 0 {
			x /= peak
		}
		s.v[i] = baseline + (1-baseline)*x
	}
	s.sum = integral(s.v, s.w, s.h)
	s.total = s.sum[len(s.sum)-1]
	return s
}

// share is the percentage of attention falling in r, given in the
// coordinates of the submitted image.
func (s *saliency) share(r image.Rectangle) float64 {
	scaled := image.Rect(
		int(math.Floor(float64(r.Min.X)*s.k)),
		int(math.Floor(float64(r.Min.Y)*s.k)),
		int(math.Ceil(float64(r.Max.X)*s.k)),
		int(math.Ceil(float64(r.Max.Y)*s.k)),
	).Intersect(image.Rect(0, 0, s.w, s.h))
	if scaled.Empty() || s.total <= 0 {
		return 0
	}
	stride := s.w + 1
	at := func(x, y int) float64 { return s.sum[y*stride+x] }
	in := at(scaled.Max.X, scaled.Max.Y) - at(scaled.Min.X, scaled.Max.Y) -
		at(scaled.Max.X, scaled.Min.Y) + at(scaled.Min.X, scaled.Min.Y)
	v := math.Round(in/s.total*1000) / 10
	return math.Max(0, math.Min(100, v))
}

// heatmap colours the estimate from transparent blue to opaque red.
func (s *saliency) heatmap() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.w, s.h))
	for y := 0; y < s.h; y++ {
		for x := 0; x < s.w; x++ {
			heat := s.v[y*s.w+x]
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * heat),
				G: uint8(255 * (1 - math.Abs(2*heat-1))),
				B: uint8(255 * (1 - heat)),
				A: uint8(200 * heat),
			})
		}
	}
	return img
}

func sobel(gray *image.Gray) []float64 {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	out := make([]float64, w*h)
	px := func(x, y int) float64 {
		x = min(max(x, 0), w-1)
		y = min(max(y, 0), h-1)
		return float64(gray.Pix[y*gray.Stride+x])
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			out[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return out
}

func integral(v []float64, w, h int) []float64 {
	stride := w + 1
	sum := make([]float64, stride*(h+1))
	for y := 0; y < h; y++ {
		row := 0.0
		for x := 0; x < w; x++ {
			row += v[y*w+x]
			sum[(y+1)*stride+x+1] = sum[y*stride+x+1] + row
		}
	}
	return sum
}

// boxBlur averages every pixel over a (2r+1)² window clipped to the image.
func boxBlur(v []float64, w, h, r int) []float64 {
	sum := integral(v, w, h)
	stride := w + 1
	out := make([]float64, len(v))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-r), min(h, y+r+1)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-r), min(w, x+r+1)
			s := sum[y1*stride+x1] - sum[y0*stride+x1] - sum[y1*stride+x0] + sum[y0*stride+x0]
			out[y*w+x] = s / float64((x1-x0)*(y1-y0))
		}
	}
	return out
}
