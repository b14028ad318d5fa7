// Package request assembles the outbound prediction payload.
package request

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/apperr"
)

// Form field names on the wire.
const (
	FieldTransparent = "isTransparent"
	FieldPlatform    = "platform"
	FieldImage       = "image"
	FieldAOI         = "aoi"
	FieldSVG         = "svg"
)

// Options are the per-invocation flags copied into every request.
type Options struct {
	Platform      string
	Format        string // export format: jpg, jpeg or png
	IsTransparent bool
	SVG           bool
}

// PredictionRequest is built once per invocation and never mutated after
// submission. AOI is nil when no AOI was validated.
type PredictionRequest struct {
	ImageData     []byte
	MIMEType      string
	IsTransparent bool
	Platform      string
	AOI           []aoi.Polygon
	SVGRequested  bool
}

// Build assembles the request. The AOI field is left nil, not empty, when
// polygons is empty so that it is omitted on the wire.
func Build(image []byte, polygons []aoi.Polygon, opts Options) (*PredictionRequest, error) {
	if len(image) == 0 {
		return nil, apperr.New(apperr.ExportUnavailable, "export produced no image data")
	}

	req := &PredictionRequest{
		ImageData:     image,
		MIMEType:      MIMEType(opts.Format),
		IsTransparent: opts.IsTransparent,
		Platform:      opts.Platform,
		SVGRequested:  opts.SVG,
	}
	if len(polygons) > 0 {
		req.AOI = append([]aoi.Polygon(nil), polygons...)
	}
	return req, nil
}

// MIMEType maps an export format to the image MIME type of the data URI.
func MIMEType(format string) string {
	switch strings.ToLower(format) {
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// DataURI is the base64 image with its MIME prefix.
func (r *PredictionRequest) DataURI() string {
	return "data:" + r.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(r.ImageData)
}

// HasAOI reports whether the AOI field is sent.
func (r *PredictionRequest) HasAOI() bool {
	return r.AOI != nil
}

// Form encodes the request as form values.
func (r *PredictionRequest) Form() (url.Values, error) {
	form := url.Values{}
	form.Set(FieldTransparent, strconv.FormatBool(r.IsTransparent))
	form.Set(FieldPlatform, r.Platform)
	form.Set(FieldImage, r.DataURI())

	if r.HasAOI() {
		data, err := json.Marshal(r.AOI)
		if err != nil {
			return nil, fmt.Errorf("encode aoi: %w", err)
		}
		form.Set(FieldAOI, string(data))
	}
	if r.SVGRequested {
		form.Set(FieldSVG, "true")
	}
	return form, nil
}

// Header returns the request headers for apiKey.
func Header(apiKey string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Token "+apiKey)
	h.Set("Cache-Control", "no-cache")
	return h
}
