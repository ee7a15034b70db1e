// Package engine runs the overlay pipeline over one document: curated
// authors are loaded, units are observed, signals looked up and overlays
// with zap triggers attached.
package engine

import (
	"context"
	"sync"

	"github.com/sw33tLie/valuestream/pkg/feed"
	"github.com/sw33tLie/valuestream/pkg/overlay"
	"github.com/sw33tLie/valuestream/pkg/platforms"
	"github.com/sw33tLie/valuestream/pkg/signal"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// SignalSource is what the engine reads from the service. *signal.Client
// satisfies it.
type SignalSource interface {
	CuratedAuthors(ctx context.Context) []string
	Lookup(ctx context.Context, contentURL string) *signal.State
}

type Config struct {
	Doc      *feed.Document
	Platform platforms.Platform
	Signals  SignalSource
	Payments overlay.Runner
	// Concurrency bounds in-flight signal lookups. Defaults to 5 if <= 0.
	Concurrency int
	Log         Logger // optional; nil = no logging
	// Alert receives failure messages from triggers. Optional.
	Alert func(contentURL, msg string)

	// OnOverlay is called after each successful attach, from worker
	// goroutines. Nil = no callback.
	OnOverlay func(d *Decorated)
}

// Decorated is a unit that received an overlay.
type Decorated struct {
	Unit    feed.Unit
	State   signal.State
	Overlay *overlay.Overlay
	Trigger *overlay.Trigger
}

type Engine struct {
	cfg      Config
	log      Logger
	authors  *feed.Curated
	observer *feed.Observer
	sem      chan struct{}

	mu        sync.Mutex
	decorated []*Decorated
}

func New(cfg Config) *Engine {
	e := &Engine{cfg: cfg, log: cfg.Log, authors: &feed.Curated{}}
	if e.log == nil {
		e.log = nopLogger{}
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	e.sem = make(chan struct{}, cfg.Concurrency)
	e.observer = feed.NewObserver(cfg.Doc, cfg.Platform, e.authors, e.handleUnit)
	return e
}

// Authors returns the session's curated author set.
func (e *Engine) Authors() *feed.Curated { return e.authors }

// Run loads the curated authors once, then observes the document until it
// closes or ctx ends. When the author list cannot be fetched nothing is
// decorated this session.
func (e *Engine) Run(ctx context.Context) error {
	e.authors.Load(ctx, e.cfg.Signals.CuratedAuthors)
	if n := e.authors.Current().Len(); n == 0 {
		e.log.Warnf("No curated authors loaded for %s, no overlays will be shown", e.cfg.Platform.Name())
	} else {
		e.log.Debugf("Loaded %d curated authors", n)
	}
	return e.observer.Run(ctx)
}

// Overlays returns the decorated units in attach order.
func (e *Engine) Overlays() []*Decorated {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Decorated(nil), e.decorated...)
}

// Find returns the decorated unit for a canonical content URL.
func (e *Engine) Find(contentURL string) *Decorated {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.decorated {
		if d.Unit.Identity.URL == contentURL {
			return d
		}
	}
	return nil
}

func (e *Engine) handleUnit(ctx context.Context, u feed.Unit) {
	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		e.observer.Release(u.Node)
		return
	}
	state := e.cfg.Signals.Lookup(ctx, u.Identity.URL)
	<-e.sem

	if state == nil {
		// Unknown is not zero: leave the unit for a later delivery.
		e.log.Debugf("Signal unavailable for %s, skipping", u.Identity.URL)
		e.observer.Release(u.Node)
		return
	}

	ov := overlay.Render(*state, u.Identity.URL)
	if !overlay.Attach(e.cfg.Doc, u.Node, ov) {
		e.observer.Release(u.Node)
		return
	}

	tr := overlay.NewTrigger(e.cfg.Doc, ov, e.cfg.Payments, u.Title)
	if e.cfg.Alert != nil {
		url := u.Identity.URL
		tr.Alert = func(msg string) { e.cfg.Alert(url, msg) }
	}
	d := &Decorated{Unit: u, State: *state, Overlay: ov, Trigger: tr}

	e.mu.Lock()
	e.decorated = append(e.decorated, d)
	e.mu.Unlock()
	e.observer.Release(u.Node)

	e.log.Debugf("Overlay attached to %s (%d zaps)", u.Identity.URL, state.ZapCount)
	if e.cfg.OnOverlay != nil {
		e.cfg.OnOverlay(d)
	}
}
