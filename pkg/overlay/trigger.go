package overlay

import (
	"context"
	"strconv"
	"sync"

	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/feed"
	"github.com/sw33tLie/valuestream/pkg/payment"
	"golang.org/x/net/html"
)

// Runner executes a payment run. *payment.Coordinator satisfies it.
type Runner interface {
	Run(ctx context.Context, req payment.Request) payment.Result
}

// Trigger is the zap button of one overlay. It allows a single run at a time.
type Trigger struct {
	doc    *feed.Document
	ov     *Overlay
	runner Runner
	title  string

	// Alert shows a failure to the user. Cancellations never reach it.
	Alert func(msg string)

	mu   sync.Mutex
	busy bool
}

func NewTrigger(doc *feed.Document, ov *Overlay, runner Runner, title string) *Trigger {
	return &Trigger{
		doc:    doc,
		ov:     ov,
		runner: runner,
		title:  title,
		Alert: func(msg string) {
			utils.Log.Warnf("[overlay] zap failed for %s: %s", ov.URL, msg)
		},
	}
}

// Activate runs one payment for the overlay's content. The button stays
// disabled until the run ends. It returns payment.ErrBusy while a run is in
// flight.
func (t *Trigger) Activate(ctx context.Context) (payment.Result, error) {
	t.mu.Lock()
	if t.busy {
		t.mu.Unlock()
		return payment.Result{}, payment.ErrBusy
	}
	t.busy = true
	var req payment.Request
	req.URL, req.Title = t.ov.URL, t.title
	if t.ov.ContentID != nil {
		id := *t.ov.ContentID
		req.ContentID = &id
	}
	t.mu.Unlock()

	t.render(func(b *html.Node) {
		setAttr(b, "disabled", "")
		setText(b, LABEL_BUSY)
	})

	res := t.runner.Run(ctx, req)

	t.mu.Lock()
	if res.ContentID != nil {
		id := *res.ContentID
		t.ov.ContentID = &id
	}
	t.busy = false
	t.mu.Unlock()

	t.render(func(b *html.Node) {
		removeAttr(b, "disabled")
		if res.ContentID != nil {
			setAttr(b, "data-content-id", strconv.FormatInt(*res.ContentID, 10))
		}
		switch res.State {
		case payment.Done:
			setText(b, LABEL_DONE)
		case payment.Cancelled:
			setText(b, LABEL_IDLE)
		default:
			setText(b, LABEL_FAILED)
		}
	})

	if msg := res.Message(); msg != "" && t.Alert != nil {
		t.Alert(msg)
	}
	return res, nil
}

// Label returns the current button text.
func (t *Trigger) Label() (s string) {
	t.doc.View(func(*html.Node) { s = text(t.ov.Button) })
	return s
}

// Disabled reports whether the button is disabled.
func (t *Trigger) Disabled() (d bool) {
	t.doc.View(func(*html.Node) { _, d = attr(t.ov.Button, "disabled") })
	return d
}

// ContentID returns the id the next run will use, nil while unregistered.
func (t *Trigger) ContentID() *int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ov.ContentID == nil {
		return nil
	}
	id := *t.ov.ContentID
	return &id
}

func (t *Trigger) render(fn func(button *html.Node)) {
	t.doc.Mutate(func(*html.Node) { fn(t.ov.Button) })
}
