package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/platforms"
	"golang.org/x/net/html"
)

// Unit is a qualifying content unit: identified, authored by a curated
// handle and not yet carrying an overlay.
type Unit struct {
	Node     *html.Node
	Identity platforms.Identity
	Title    string
}

// UnitHandler is called once per qualifying unit, on its own goroutine.
// Call Release when the unit could not be decorated so that a later
// delivery of the same node is considered again.
type UnitHandler func(ctx context.Context, u Unit)

// Observer discovers content units in a Document.
type Observer struct {
	doc      *Document
	platform platforms.Platform
	authors  *Curated
	handle   UnitHandler

	mu      sync.Mutex
	pending map[*html.Node]struct{}
	wg      sync.WaitGroup
}

func NewObserver(doc *Document, platform platforms.Platform, authors *Curated, handle UnitHandler) *Observer {
	return &Observer{
		doc:      doc,
		platform: platform,
		authors:  authors,
		handle:   handle,
		pending:  map[*html.Node]struct{}{},
	}
}

// Run scans the units already in the document, then follows node-added
// batches until the document closes or ctx ends. It returns after every
// handler it started has returned.
func (o *Observer) Run(ctx context.Context) error {
	sub := o.doc.Subscribe()
	defer sub.Unsubscribe()
	defer o.wg.Wait()

	var root *html.Node
	o.doc.View(func(r *html.Node) { root = r })
	o.Process(ctx, []*html.Node{root})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-sub.C:
			if !ok {
				return nil
			}
			o.Process(ctx, b.Added)
		}
	}
}

// Process classifies the given nodes and their descendants and dispatches
// qualifying units to the handler.
func (o *Observer) Process(ctx context.Context, nodes []*html.Node) {
	var units []Unit
	o.doc.View(func(*html.Node) {
		units = o.collect(nodes)
	})
	for _, u := range units {
		o.wg.Add(1)
		go func(u Unit) {
			defer o.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					utils.Log.Errorf("[feed] handler panic for %s: %v", u.Identity.URL, r)
					o.Release(u.Node)
				}
			}()
			o.handle(ctx, u)
		}(u)
	}
}

// Release forgets that a unit is being handled.
func (o *Observer) Release(n *html.Node) {
	o.mu.Lock()
	delete(o.pending, n)
	o.mu.Unlock()
}

// Wait blocks until all dispatched handlers have returned.
func (o *Observer) Wait() { o.wg.Wait() }

func (o *Observer) collect(nodes []*html.Node) []Unit {
	authors := o.authors.Current()
	seen := map[*html.Node]bool{}
	var out []Unit

	for _, n := range nodes {
		if n == nil || (n.Type != html.ElementNode && n.Type != html.DocumentNode) {
			continue
		}
		sel := goquery.NewDocumentFromNode(n).Selection
		candidates := sel.Filter(o.platform.UnitSelector()).AddSelection(sel.Find(o.platform.UnitSelector()))
		candidates.Each(func(_ int, s *goquery.Selection) {
			node := s.Get(0)
			if seen[node] {
				return
			}
			seen[node] = true
			if u, ok := o.classify(s, authors); ok && o.claim(node) {
				out = append(out, u)
			}
		})
	}
	return out
}

// classify applies the per-unit rules. A malformed unit is skipped, never
// allowed to break the batch.
func (o *Observer) classify(s *goquery.Selection, authors *AuthorSet) (u Unit, ok bool) {
	node := s.Get(0)
	defer func() {
		if r := recover(); r != nil {
			utils.Log.Debugf("[feed] skipping malformed unit: %v", fmt.Sprint(r))
			ok = false
		}
	}()

	if HasMarker(node) {
		return u, false
	}
	id, found := o.platform.Identify(s)
	if !found {
		utils.Log.Debugf("[feed] unit without permalink or handle")
		return u, false
	}
	if !authors.Has(id.Handle) {
		return u, false
	}
	return Unit{Node: node, Identity: id, Title: o.platform.Title(s)}, true
}

func (o *Observer) claim(n *html.Node) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.pending[n]; busy {
		return false
	}
	o.pending[n] = struct{}{}
	return true
}
