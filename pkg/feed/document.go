// Package feed models the host document and watches it for content units.
package feed

import (
	"io"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MARKER_ATTR flags a unit that already received an overlay. It is set once
// and never removed; dropping the node from the document drops the flag.
const MARKER_ATTR = "data-vs-overlay"

// Batch is one delivery of node-added events, in document order.
type Batch struct {
	Added []*html.Node
}

// Document is a host document shared between the code that mutates it and
// the observers watching it. All tree access goes through View and Mutate.
type Document struct {
	mu     sync.Mutex
	root   *html.Node
	subs   map[*Subscription]struct{}
	closed bool
}

func NewDocument(root *html.Node) *Document {
	return &Document{root: root, subs: map[*Subscription]struct{}{}}
}

// ParseDocument parses an HTML page into a Document.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return NewDocument(root), nil
}

// View runs fn with exclusive read access to the tree.
func (d *Document) View(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Mutate runs fn with exclusive write access to the tree. It does not
// publish events; use Append for changes observers must see.
func (d *Document) Mutate(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Append adds nodes under parent (the <body> when nil) and publishes them to
// every subscriber as one batch.
func (d *Document) Append(parent *html.Node, nodes ...*html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if parent == nil {
		parent = findBody(d.root)
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
		parent.AppendChild(n)
	}
	if d.closed || len(nodes) == 0 {
		return
	}
	b := Batch{Added: append([]*html.Node(nil), nodes...)}
	for s := range d.subs {
		s.push(b)
	}
}

// AppendHTML parses fragment as body content and appends the resulting
// nodes under parent (the <body> when nil).
func (d *Document) AppendHTML(parent *html.Node, fragment io.Reader) error {
	nodes, err := html.ParseFragment(fragment, &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	if err != nil {
		return err
	}
	d.Append(parent, nodes...)
	return nil
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// Subscribe starts a node-added stream. Batches published after the call are
// delivered in order. The stream ends on Unsubscribe or Close; restarting
// means subscribing again.
func (d *Document) Subscribe() *Subscription {
	s := newSubscription()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		s.finish()
		return s
	}
	d.subs[s] = struct{}{}
	s.detach = func() {
		d.mu.Lock()
		delete(d.subs, s)
		d.mu.Unlock()
	}
	return s
}

// Close ends the session: subscribers receive what is already queued and then
// see their stream closed.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for s := range d.subs {
		s.finish()
	}
	d.subs = map[*Subscription]struct{}{}
}

// HasMarker reports whether n carries the overlay marker. Callers must hold
// the document through View or Mutate.
func HasMarker(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == MARKER_ATTR {
			return true
		}
	}
	return false
}

// SetMarker flags n. Callers must hold the document through Mutate.
func SetMarker(n *html.Node) {
	if !HasMarker(n) {
		n.Attr = append(n.Attr, html.Attribute{Key: MARKER_ATTR, Val: "1"})
	}
}

func findBody(root *html.Node) *html.Node {
	var walk func(n *html.Node) *html.Node
	walk = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && n.Data == "body" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if b := walk(c); b != nil {
				return b
			}
		}
		return nil
	}
	if b := walk(root); b != nil {
		return b
	}
	return root
}
