// Package bridgetest provides an in-memory bridge.Port for tests.
package bridgetest

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/sw33tLie/valuestream/pkg/bridge"
)

// Handler produces the reply for one fetch message.
type Handler func(msg bridge.Message) bridge.Reply

// Port answers getOrigin with Origin and routes fetch messages by
// "METHOD /path" (query excluded). Unrouted fetches fail like a network
// error would.
type Port struct {
	mu     sync.Mutex
	origin string
	routes map[string]Handler
	calls  []bridge.Message
}

func New(origin string) *Port {
	return &Port{origin: origin, routes: map[string]Handler{}}
}

// SetOrigin changes the origin returned to later calls.
func (p *Port) SetOrigin(origin string) {
	p.mu.Lock()
	p.origin = origin
	p.mu.Unlock()
}

// Handle registers h for method and path.
func (p *Port) Handle(method, path string, h Handler) {
	p.mu.Lock()
	p.routes[strings.ToUpper(method)+" "+path] = h
	p.mu.Unlock()
}

// JSON registers a handler returning body as successful data.
func (p *Port) JSON(method, path, body string) {
	p.Handle(method, path, func(bridge.Message) bridge.Reply {
		return bridge.Reply{OK: true, Status: 200, Data: []byte(body)}
	})
}

// Fail registers a handler returning a transport failure.
func (p *Port) Fail(method, path string) {
	p.Handle(method, path, func(bridge.Message) bridge.Reply {
		return bridge.Reply{OK: false, Error: "connection refused"}
	})
}

func (p *Port) Send(ctx context.Context, msg bridge.Message) (bridge.Reply, error) {
	if err := ctx.Err(); err != nil {
		return bridge.Reply{}, err
	}
	p.mu.Lock()
	p.calls = append(p.calls, msg)
	origin := p.origin
	var h Handler
	if msg.Action == bridge.ActionFetch {
		if u, err := url.Parse(msg.URL); err == nil {
			h = p.routes[strings.ToUpper(msg.Method)+" "+u.Path]
		}
	}
	p.mu.Unlock()

	switch msg.Action {
	case bridge.ActionGetOrigin:
		return bridge.Reply{OK: true, Origin: origin}, nil
	case bridge.ActionFetch:
		if h == nil {
			return bridge.Reply{OK: false, Error: "no route for " + msg.Method + " " + msg.URL}, nil
		}
		return h(msg), nil
	}
	return bridge.Reply{OK: false, Error: "unknown action"}, nil
}

// Fetches returns the fetch messages seen so far, in arrival order.
func (p *Port) Fetches() []bridge.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []bridge.Message
	for _, m := range p.calls {
		if m.Action == bridge.ActionFetch {
			out = append(out, m)
		}
	}
	return out
}

// Count returns how many fetches hit path.
func (p *Port) Count(path string) int {
	n := 0
	for _, m := range p.Fetches() {
		if u, err := url.Parse(m.URL); err == nil && u.Path == path {
			n++
		}
	}
	return n
}
