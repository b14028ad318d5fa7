// Package aoi turns user-drawn marker rectangles into areas of interest:
// classification, size and bounds validation, and the polygon wire form.
package aoi

import "fmt"

// Frame is an axis-aligned rectangle in canvas units, relative to its container.
type Frame struct {
	X      float64 `yaml:"x" json:"x"`
	Y      float64 `yaml:"y" json:"y"`
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

func (f Frame) MaxX() float64 { return f.X + f.Width }
func (f Frame) MaxY() float64 { return f.Y + f.Height }

func (f Frame) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", f.X, f.Y, f.Width, f.Height)
}

// Layer is a selected node of the host document. Only container layers
// (artboards) can be the target of an invocation.
type Layer struct {
	ID          string
	Name        string
	IsContainer bool
	Frame       Frame
}

// ShapeKind is the closed set of shape variants the pipeline distinguishes.
type ShapeKind int

const (
	KindOther ShapeKind = iota
	KindRectangle
)

func (k ShapeKind) String() string {
	if k == KindRectangle {
		return "rectangle"
	}
	return "other"
}

// MarkerShape is a candidate region as reported by the host document.
type MarkerShape struct {
	ID        string
	Kind      ShapeKind
	Name      string
	Frame     Frame
	FillColor string // empty when the shape has no fill
}

// ValidatedAOI is a marker shape that passed every rule.
type ValidatedAOI struct {
	ID    string
	Frame Frame
	Color string
}

// Point is one polygon corner. Index records insertion order.
type Point struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Index int     `json:"index"`
}

// Polygon is the wire form of a validated AOI.
type Polygon struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
}

// Mark is the host-visible marking applied to a classified candidate.
type Mark struct {
	Hidden bool
	Name   string
}

// Marker applies marks to shapes in the host document. Calls are
// fire-and-forget.
type Marker interface {
	MarkShape(id string, m Mark)
}
