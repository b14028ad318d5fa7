// Package session runs one heatmap invocation end to end: validate, encode,
// export, submit, reconcile and render, with at most one invocation in
// flight per document.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ivlev/attnmap/internal/aoi"
	"github.com/ivlev/attnmap/internal/apperr"
	"github.com/ivlev/attnmap/internal/config"
	"github.com/ivlev/attnmap/internal/messages"
	"github.com/ivlev/attnmap/internal/reconcile"
	"github.com/ivlev/attnmap/internal/request"
	"github.com/ivlev/attnmap/internal/settings"
)

type Options struct {
	PredictURL    string
	Platform      string
	ExportFormat  string
	ExportQuality float64
	SVG           bool
	MarkerTag     string
	MinWidth      float64
	MinHeight     float64
	DefaultColor  string
	AdvisoryDelay time.Duration
}

// OptionsFromConfig copies the pipeline settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		PredictURL:    cfg.API.PredictURL,
		Platform:      cfg.API.Platform,
		ExportFormat:  cfg.Export.Format,
		ExportQuality: cfg.Export.Quality,
		SVG:           cfg.API.SVG,
		MarkerTag:     cfg.AOI.MarkerTag,
		MinWidth:      cfg.AOI.MinWidth,
		MinHeight:     cfg.AOI.MinHeight,
		DefaultColor:  cfg.AOI.DefaultColor,
		AdvisoryDelay: cfg.Session.AdvisoryDelay,
	}
}

type Deps struct {
	Document  Document
	Transport Transport
	Settings  settings.Store
	Notifier  Notifier
	Prompter  Prompter
	Logger    *zap.Logger
}

type Orchestrator struct {
	doc       Document
	transport Transport
	store     settings.Store
	notifier  Notifier
	prompter  Prompter
	log       *zap.Logger

	opts      Options
	validator *aoi.Validator
	afterFunc func(time.Duration, func()) Timer
	rand      *rand.Rand

	// slot holds the single in-flight session of this document.
	slot atomic.Pointer[Session]
}

func New(deps Deps, opts Options) *Orchestrator {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		doc:       deps.Document,
		transport: deps.Transport,
		store:     deps.Settings,
		notifier:  deps.Notifier,
		prompter:  deps.Prompter,
		log:       log,
		opts:      opts,
		validator: aoi.NewValidator(opts.MarkerTag, opts.MinWidth, opts.MinHeight, opts.DefaultColor),
		afterFunc: realAfterFunc,
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Pending reports the state of the in-flight invocation, if any.
func (o *Orchestrator) Pending() (State, bool) {
	s := o.slot.Load()
	if s == nil {
		return Idle, false
	}
	return s.State(), true
}

// Invoke runs one invocation. A trigger while another invocation is in
// flight is rejected with InvocationInFlight without touching the pending
// one. On failure the returned Outcome is in state Failed and the error
// carries the classified kind.
func (o *Orchestrator) Invoke(ctx context.Context) (*Outcome, error) {
	s := newSession()
	if !o.slot.CompareAndSwap(nil, s) {
		err := apperr.New(apperr.InvocationInFlight, "another invocation is pending")
		o.log.Warn("invocation rejected", zap.Error(err))
		o.alert(apperr.InvocationInFlight)
		return nil, err
	}
	defer o.slot.CompareAndSwap(s, nil)

	log := o.log.With(zap.String("session", s.ID.String()))
	s.pending.Store(true)
	err := o.run(ctx, s, log)
	s.pending.Store(false)

	if err != nil {
		o.fail(s, log, err)
		return s.outcome(), err
	}
	return s.outcome(), nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session, log *zap.Logger) error {
	container, err := o.target()
	if err != nil {
		return err
	}
	s.Container = container
	log = log.With(zap.String("artboard", container.ID))

	apiKey, err := EnsureAPIKey(ctx, o.store, o.prompter, o.notifier, o.opts.MarkerTag)
	if err != nil {
		return err
	}

	o.transition(s, log, Validating)
	shapes, err := o.doc.ListCandidateShapes(container)
	if err != nil {
		return apperr.Wrap(apperr.ExportUnavailable, fmt.Errorf("list shapes: %w", err))
	}
	res := o.validator.Validate(container.Frame, shapes, o.doc)
	s.Validated = res.Accepted
	s.Rejected = res.Rejected
	for _, rej := range res.Rejected {
		log.Info("marker rejected", zap.String("shape", rej.Shape.ID), zap.Stringer("reason", rej.Reason))
	}
	for _, reason := range res.Reasons() {
		o.message(messages.Rejection(reason, o.opts.MinWidth, o.opts.MinHeight))
	}
	if len(res.Accepted) == 0 {
		o.message(messages.NoAOI(o.opts.MarkerTag))
		o.message(messages.Tip(o.rand))
	}
	polygons := aoi.EncodeAll(res.Accepted)

	o.transition(s, log, Exporting)
	image, err := o.doc.ExportToImage(ctx, container, o.opts.ExportFormat, o.opts.ExportQuality)
	if err != nil {
		return apperr.Wrap(apperr.ExportUnavailable, err)
	}
	req, err := request.Build(image, polygons, request.Options{
		Platform:      o.opts.Platform,
		Format:        o.opts.ExportFormat,
		IsTransparent: true,
		SVG:           o.opts.SVG,
	})
	if err != nil {
		return err
	}
	s.Request = req

	o.transition(s, log, Submitting)
	form, err := req.Form()
	if err != nil {
		return apperr.Wrap(apperr.TransportFailure, err)
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.TransportFailure, err)
	}
	o.message(messages.Waiting)

	o.transition(s, log, AwaitingResponse)
	o.startAdvisory(s, log)
	// a submitted request is never cancelled; only its completion is acted on
	resp, err := o.transport.Submit(context.WithoutCancel(ctx), o.opts.PredictURL, form, request.Header(apiKey))
	o.stopAdvisory(s)
	if err != nil {
		return apperr.Wrap(apperr.TransportFailure, err)
	}

	o.transition(s, log, Reconciling)
	result, err := reconcile.Reconcile(resp, s.Validated)
	if err != nil {
		return err
	}
	if missing := result.Missing(); len(missing) > 0 {
		log.Warn("no score returned for some areas", zap.Strings("aoi", missing))
	}
	if err := reconcile.Deliver(ctx, o.doc, container, result); err != nil {
		return err
	}
	s.result = result

	o.transition(s, log, Rendered)
	o.afterSuccess(ctx, s, log)
	return nil
}

// target applies the entry guard on the current selection.
func (o *Orchestrator) target() (aoi.Layer, error) {
	if o.doc == nil {
		return aoi.Layer{}, apperr.New(apperr.NoSelection, "no document")
	}
	selected := o.doc.SelectedLayers()
	if len(selected) == 0 {
		return aoi.Layer{}, apperr.New(apperr.NoSelection, "nothing selected")
	}
	first := selected[0]
	if !first.IsContainer {
		return aoi.Layer{}, apperr.New(apperr.WrongSelectionType, "layer %q is not an artboard", first.Name)
	}
	return first, nil
}

func (o *Orchestrator) startAdvisory(s *Session, log *zap.Logger) {
	if o.opts.AdvisoryDelay <= 0 {
		return
	}
	s.timer = o.afterFunc(o.opts.AdvisoryDelay, func() {
		if s.timerCancelled.Load() {
			return
		}
		s.advisoryShown.Store(true)
		log.Info("prediction slower than usual", zap.Duration("after", o.opts.AdvisoryDelay))
		o.message(messages.LargeImage)
	})
}

func (o *Orchestrator) stopAdvisory(s *Session) {
	s.timerCancelled.Store(true)
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (o *Orchestrator) afterSuccess(ctx context.Context, s *Session, log *zap.Logger) {
	used, err := settings.Bool(ctx, o.store, settings.KeyAOIUsed)
	if err != nil {
		log.Warn("failed to read setting", zap.String("key", settings.KeyAOIUsed), zap.Error(err))
	}
	switch {
	case len(s.Validated) > 0 && !used:
		if err := o.store.Set(ctx, settings.KeyAOIUsed, "true"); err != nil {
			log.Warn("failed to write setting", zap.String("key", settings.KeyAOIUsed), zap.Error(err))
		}
	case len(s.Validated) == 0 && !used:
		o.message(messages.SuccessAOIPrompt)
	}
	o.message(messages.Success)
}

func (o *Orchestrator) fail(s *Session, log *zap.Logger, err error) {
	o.stopAdvisory(s)
	kind := apperr.KindOf(err)
	if kind == apperr.Unknown {
		kind = apperr.UnknownServiceError
	}
	s.kind = kind
	from := s.State()
	s.state.Store(int32(Failed))
	log.Error("invocation failed",
		zap.Stringer("kind", kind),
		zap.Stringer("from", from),
		zap.Error(err))
	o.alert(kind)
}

func (o *Orchestrator) transition(s *Session, log *zap.Logger, to State) {
	from := s.State()
	s.state.Store(int32(to))
	log.Debug("transition", zap.Stringer("from", from), zap.Stringer("to", to))
}

func (o *Orchestrator) message(text string) {
	if o.notifier != nil {
		o.notifier.Message(text)
	}
}

func (o *Orchestrator) alert(kind apperr.Kind) {
	if o.notifier != nil {
		a := messages.ForKind(kind)
		o.notifier.Alert(a.Title, a.Body)
	}
}
