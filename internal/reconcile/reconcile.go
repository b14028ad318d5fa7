// Package reconcile classifies prediction responses and maps per-region
// scores back onto the validated AOIs they were requested for.
package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/apperr"
	"github.com/ivlev/attnmap/internal/transport"
)

// SuccessCode is the sentinel value of the "code" field on success.
const SuccessCode = "success"

// Overlay is the asset returned by the service: a URL to a raster heatmap
// or inline SVG markup.
type Overlay struct {
	URL string
	SVG string
}

// Region is a validated AOI with its score, if the service returned one.
type Region struct {
	AOI      aoi.ValidatedAOI
	Score    float64
	HasScore bool
}

// Result is a renderable prediction.
type Result struct {
	StatusCode int
	Overlay    Overlay
	Regions    []Region
}

// Scores returns the resolved scores by AOI id. Nil when none resolved.
func (r *Result) Scores() map[string]float64 {
	var out map[string]float64
	for _, reg := range r.Regions {
		if !reg.HasScore {
			continue
		}
		if out == nil {
			out = map[string]float64{}
		}
		out[reg.AOI.ID] = reg.Score
	}
	return out
}

// Missing lists validated AOI ids the service returned no score for.
func (r *Result) Missing() []string {
	var out []string
	for _, reg := range r.Regions {
		if !reg.HasScore {
			out = append(out, reg.AOI.ID)
		}
	}
	return out
}

// Badge is a score label drawn over a resolved AOI.
type Badge struct {
	ID    string
	Frame aoi.Frame
	Color string
	Score float64
}

// Badges returns one badge per resolved region, in AOI order.
func (r *Result) Badges() []Badge {
	var out []Badge
	for _, reg := range r.Regions {
		if reg.HasScore {
			out = append(out, Badge{ID: reg.AOI.ID, Frame: reg.AOI.Frame, Color: reg.AOI.Color, Score: reg.Score})
		}
	}
	return out
}

type body struct {
	Code *string      `json:"code"`
	URL  string       `json:"url"`
	SVG  string       `json:"svg"`
	AOI  []scoreEntry `json:"aoi"`
}

type scoreEntry struct {
	ID    *string  `json:"id"`
	Score *float64 `json:"score"`
}

// ClassifyStatus maps a non-200 status to its terminal kind.
func ClassifyStatus(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest:
		return apperr.BadRequest
	case http.StatusUnauthorized:
		return apperr.InvalidCredentials
	case http.StatusPaymentRequired:
		return apperr.PaymentRequired
	case http.StatusForbidden:
		return apperr.QuotaExceeded
	case http.StatusServiceUnavailable:
		return apperr.ServiceUnavailable
	default:
		return apperr.UnknownServiceError
	}
}

// Reconcile classifies resp and attaches returned scores to validated.
// A validated AOI without a score is a gap, not an error; a score for an
// id outside validated fails with InconsistentServerState.
func Reconcile(resp *transport.Response, validated []aoi.ValidatedAOI) (*Result, error) {
	if resp == nil {
		return nil, apperr.New(apperr.MalformedResponse, "no response")
	}
	if resp.StatusCode != http.StatusOK {
		kind := ClassifyStatus(resp.StatusCode)
		return nil, apperr.New(kind, "service responded with status %d", resp.StatusCode)
	}

	var b body
	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	if err := dec.Decode(&b); err != nil {
		return nil, apperr.Wrap(apperr.MalformedResponse, fmt.Errorf("decode body: %w", err))
	}
	if b.Code == nil || *b.Code != SuccessCode {
		return nil, apperr.New(apperr.MalformedResponse, "missing success marker")
	}
	if b.URL == "" && b.SVG == "" {
		return nil, apperr.New(apperr.MalformedResponse, "response carries no overlay")
	}

	known := make(map[string]bool, len(validated))
	for _, v := range validated {
		known[v.ID] = true
	}

	scores := make(map[string]float64, len(b.AOI))
	for i, e := range b.AOI {
		if e.ID == nil || e.Score == nil {
			return nil, apperr.New(apperr.MalformedResponse, "aoi entry %d lacks id or score", i)
		}
		id, score := *e.ID, *e.Score
		if !known[id] {
			return nil, apperr.New(apperr.InconsistentServerState, "score returned for unknown aoi %q", id)
		}
		if _, dup := scores[id]; dup {
			return nil, apperr.New(apperr.InconsistentServerState, "aoi %q scored twice", id)
		}
		if math.IsNaN(score) || score < 0 || score > 100 {
			return nil, apperr.New(apperr.MalformedResponse, "score %v for aoi %q out of range", score, id)
		}
		scores[id] = score
	}

	res := &Result{
		StatusCode: resp.StatusCode,
		Overlay:    Overlay{URL: b.URL, SVG: b.SVG},
		Regions:    make([]Region, 0, len(validated)),
	}
	for _, v := range validated {
		score, ok := scores[v.ID]
		res.Regions = append(res.Regions, Region{AOI: v, Score: score, HasScore: ok})
	}
	return res, nil
}

// Renderer draws the overlay and badges onto the container.
type Renderer interface {
	CreateOverlayGroup(ctx context.Context, container aoi.Layer, overlay Overlay, badges []Badge) error
}

// Deliver hands a reconciled result to the renderer exactly once. Badges are
// passed only for AOIs with a resolved score.
func Deliver(ctx context.Context, r Renderer, container aoi.Layer, res *Result) error {
	if err := r.CreateOverlayGroup(ctx, container, res.Overlay, res.Badges()); err != nil {
		return apperr.Wrap(apperr.RenderUnavailable, err)
	}
	return nil
}
