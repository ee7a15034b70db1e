// Package overlay renders the signal badge and zap trigger injected into
// content units.
package overlay

import (
	"fmt"
	"strconv"

	"github.com/sw33tLie/valuestream/pkg/feed"
	"github.com/sw33tLie/valuestream/pkg/signal"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	HIGH_SIGNAL_THRESHOLD = 3
	HOST_TAG              = "vs-overlay"

	LABEL_IDLE   = "⚡ Zap"
	LABEL_BUSY   = "⚡ Zapping..."
	LABEL_DONE   = "⚡ Zapped!"
	LABEL_FAILED = "Failed"

	// STOP_PROPAGATION keeps clicks on the overlay away from host handlers.
	STOP_PROPAGATION = "event.stopPropagation();event.preventDefault();"
)

const style = `:host{all:initial;display:block;margin-top:8px}
.vs-box{display:flex;align-items:center;gap:8px;padding:6px 10px;border:1px solid #444;border-radius:8px;font:13px/1.4 system-ui,sans-serif;color:#ddd;background:#15181c}
.vs-box.high{border:2px solid #f7931a;box-shadow:0 0 6px #f7931a}
.vs-count{font-weight:600}
.vs-zap{cursor:pointer;border:0;border-radius:6px;padding:4px 10px;background:#f7931a;color:#000;font-weight:600}
.vs-zap[disabled]{opacity:.6;cursor:default}`

// Overlay is one rendered fragment. Host is the node appended to the unit;
// everything else lives under its closed shadow root.
type Overlay struct {
	Host      *html.Node
	Box       *html.Node
	Button    *html.Node
	ContentID *int64
	URL       string
	High      bool
	Count     string
}

// Emphasized reports whether zapCount deserves the high-signal style.
func Emphasized(zapCount int64) bool { return zapCount >= HIGH_SIGNAL_THRESHOLD }

// CountLabel is the badge text for zapCount, empty when nobody zapped yet.
func CountLabel(zapCount int64) string {
	if zapCount <= 0 {
		return ""
	}
	return fmt.Sprintf("⚡ %d Alpha-seeker(s)", zapCount)
}

// Render builds the overlay for a unit with the given signal.
func Render(state signal.State, contentURL string) *Overlay {
	ov := &Overlay{
		URL:   contentURL,
		High:  Emphasized(state.ZapCount),
		Count: CountLabel(state.ZapCount),
	}
	if state.ContentID != nil {
		id := *state.ContentID
		ov.ContentID = &id
	}

	ov.Host = element(HOST_TAG, 0, "onclick", STOP_PROPAGATION)
	tmpl := element("template", atom.Template, "shadowrootmode", "closed")
	ov.Host.AppendChild(tmpl)

	st := element("style", atom.Style)
	st.AppendChild(&html.Node{Type: html.TextNode, Data: style})
	tmpl.AppendChild(st)

	class := "vs-box"
	if ov.High {
		class += " high"
	}
	ov.Box = element("div", atom.Div, "class", class, "onclick", STOP_PROPAGATION)
	tmpl.AppendChild(ov.Box)

	if ov.Count != "" {
		count := element("span", atom.Span, "class", "vs-count")
		count.AppendChild(&html.Node{Type: html.TextNode, Data: ov.Count})
		ov.Box.AppendChild(count)
	}

	ov.Button = element("button", atom.Button,
		"type", "button",
		"class", "vs-zap",
		"data-url", contentURL,
		"onclick", STOP_PROPAGATION,
	)
	if ov.ContentID != nil {
		setAttr(ov.Button, "data-content-id", strconv.FormatInt(*ov.ContentID, 10))
	}
	ov.Button.AppendChild(&html.Node{Type: html.TextNode, Data: LABEL_IDLE})
	ov.Box.AppendChild(ov.Button)
	return ov
}

// Attach appends ov to unit unless the unit already carries an overlay.
// The marker is checked and set under the document lock, so concurrent
// calls for one unit attach exactly once.
func Attach(doc *feed.Document, unit *html.Node, ov *Overlay) bool {
	attached := false
	doc.Mutate(func(*html.Node) {
		if feed.HasMarker(unit) {
			return
		}
		feed.SetMarker(unit)
		unit.AppendChild(ov.Host)
		attached = true
	})
	return attached
}

func element(tag string, a atom.Atom, kv ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: a}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return n
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setText(n *html.Node, s string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

func text(n *html.Node) string {
	var s string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			s += c.Data
		}
	}
	return s
}
