package aoi

import (
	"fmt"

	"github.com/ivlev/attnmap/internal/apperr"
)

// Rejection pairs a rejected shape with the first rule it failed.
type Rejection struct {
	Shape  MarkerShape
	Reason apperr.Kind
}

// Result is the outcome of validating one container's candidates.
type Result struct {
	Accepted []ValidatedAOI
	Rejected []Rejection
}

// Reasons returns the distinct rejection reasons in first-seen order.
func (r Result) Reasons() []apperr.Kind {
	var out []apperr.Kind
	seen := map[apperr.Kind]bool{}
	for _, rej := range r.Rejected {
		if !seen[rej.Reason] {
			seen[rej.Reason] = true
			out = append(out, rej.Reason)
		}
	}
	return out
}

// Validator classifies and filters marker shapes.
type Validator struct {
	Tag          string
	MinWidth     float64
	MinHeight    float64
	DefaultColor string
}

// NewValidator creates a validator for the given marker tag and minimum size.
func NewValidator(tag string, minWidth, minHeight float64, defaultColor string) *Validator {
	return &Validator{
		Tag:          tag,
		MinWidth:     minWidth,
		MinHeight:    minHeight,
		DefaultColor: defaultColor,
	}
}

// Validate checks every candidate against the container frame. Shapes that
// are not rectangles named exactly like the tag are ignored. Every classified
// candidate is marked hidden through marker exactly once; rejected ones are
// also renamed to a diagnostic label. A nil marker skips marking.
func (v *Validator) Validate(container Frame, shapes []MarkerShape, marker Marker) Result {
	var res Result

	for _, s := range shapes {
		if !v.classify(s) {
			continue
		}

		reason, ok := v.check(container, s.Frame)
		if !ok {
			res.Rejected = append(res.Rejected, Rejection{Shape: s, Reason: reason})
			if marker != nil {
				marker.MarkShape(s.ID, Mark{Hidden: true, Name: v.DiagnosticName(reason)})
			}
			continue
		}

		color := s.FillColor
		if color == "" {
			color = v.DefaultColor
		}
		res.Accepted = append(res.Accepted, ValidatedAOI{ID: s.ID, Frame: s.Frame, Color: color})
		if marker != nil {
			marker.MarkShape(s.ID, Mark{Hidden: true, Name: s.Name})
		}
	}

	return res
}

func (v *Validator) classify(s MarkerShape) bool {
	return s.Kind == KindRectangle && s.Name == v.Tag
}

// check applies the size rule before the bounds rule. NaN sizes count as too small.
func (v *Validator) check(container, f Frame) (apperr.Kind, bool) {
	if !(f.Width >= v.MinWidth) || !(f.Height >= v.MinHeight) {
		return apperr.TooSmall, false
	}
	if f.X < 0 || f.Y < 0 || f.MaxX() > container.Width || f.MaxY() > container.Height {
		return apperr.OutOfBounds, false
	}
	return apperr.Unknown, true
}

// DiagnosticName is the layer name given to a shape rejected for reason.
func (v *Validator) DiagnosticName(reason apperr.Kind) string {
	switch reason {
	case apperr.TooSmall:
		return fmt.Sprintf("🚨 Too small (minimum %gx%g)", v.MinWidth, v.MinHeight)
	case apperr.OutOfBounds:
		return "🚨 Off the current Artboard"
	default:
		return "🚨 " + reason.String()
	}
}
