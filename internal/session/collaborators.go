package session

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/reconcile"
	"github.com/ivlev/attnmap/internal/transport"
)

// Document is the host document an invocation runs against.
type Document interface {
	SelectedLayers() []aoi.Layer
	ListCandidateShapes(container aoi.Layer) ([]aoi.MarkerShape, error)
	ExportToImage(ctx context.Context, container aoi.Layer, format string, quality float64) ([]byte, error)
	aoi.Marker
	reconcile.Renderer
}

// Transport submits the prediction form. It is called at most once per invocation.
type Transport interface {
	Submit(ctx context.Context, endpoint string, form url.Values, header http.Header) (*transport.Response, error)
}

// Notifier shows messages to the user.
type Notifier interface {
	Message(text string)
	Alert(title, body string)
}

// Prompter asks the user for an API key. current is empty for first-time users.
type Prompter interface {
	PromptAPIKey(current string) (string, error)
}

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
