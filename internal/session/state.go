package session

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/apperr"
	"github.com/ivlev/attnmap/internal/reconcile"
	"github.com/ivlev/attnmap/internal/request"
)

type State int32

const (
	Idle State = iota
	Validating
	Exporting
	Submitting
	AwaitingResponse
	Reconciling
	Rendered
	Failed
)

var stateNames = [...]string{"Idle", "Validating", "Exporting", "Submitting", "AwaitingResponse", "Reconciling", "Rendered", "Failed"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(?)"
}

func (s State) Terminal() bool {
	return s == Rendered || s == Failed
}

// Session is the state of one invocation. It lives from the moment the
// invocation claims the document until it reaches a terminal state.
type Session struct {
	ID        uuid.UUID
	Container aoi.Layer
	Validated []aoi.ValidatedAOI
	Rejected  []aoi.Rejection
	Request   *request.PredictionRequest

	state   atomic.Int32
	pending atomic.Bool

	timer          Timer
	timerCancelled atomic.Bool
	advisoryShown  atomic.Bool

	kind   apperr.Kind
	result *reconcile.Result
}

func newSession() *Session {
	return &Session{ID: uuid.New()}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) Pending() bool {
	return s.pending.Load()
}

// Outcome summarises a finished invocation.
type Outcome struct {
	SessionID     uuid.UUID
	State         State
	Kind          apperr.Kind
	Accepted      []aoi.ValidatedAOI
	Rejected      []aoi.Rejection
	AOISent       bool
	Scores        map[string]float64
	Missing       []string
	AdvisoryShown bool
}

func (s *Session) outcome() *Outcome {
	out := &Outcome{
		SessionID:     s.ID,
		State:         s.State(),
		Kind:          s.kind,
		Accepted:      s.Validated,
		Rejected:      s.Rejected,
		AOISent:       s.Request != nil && s.Request.HasAOI(),
		AdvisoryShown: s.advisoryShown.Load(),
	}
	if s.result != nil {
		out.Scores = s.result.Scores()
		out.Missing = s.result.Missing()
	}
	return out
}
