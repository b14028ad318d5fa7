package aoi

import "math"

// Encode emits the clockwise polygon of a validated AOI starting at the
// top-left corner.
func Encode(a ValidatedAOI) Polygon {
	f := a.Frame
	return Polygon{
		ID: a.ID,
		Points: []Point{
			{X: f.X, Y: f.Y, Index: 0},
			{X: f.X + f.Width, Y: f.Y, Index: 1},
			{X: f.X + f.Width, Y: f.Y + f.Height, Index: 2},
			{X: f.X, Y: f.Y + f.Height, Index: 3},
		},
	}
}

// EncodeAll encodes in input order. An empty input yields an empty slice.
func EncodeAll(aois []ValidatedAOI) []Polygon {
	out := make([]Polygon, 0, len(aois))
	for _, a := range aois {
		out = append(out, Encode(a))
	}
	return out
}

// Bounds re-derives the bounding frame of a polygon.
func (p Polygon) Bounds() Frame {
	if len(p.Points) == 0 {
		return Frame{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range p.Points {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Frame{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
