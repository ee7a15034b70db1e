// Package signal is the typed client of the value-stream service. Every
// request travels through a bridge.Port; the package performs no network
// I/O of its own.
//
// Methods return nil, "" or false when the answer is unknown (transport
// failure, malformed body). Callers must read that as "try later", never as
// zero.
package signal

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/bridge"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	PATH_KOL_LIST     = "/api/value-stream/kol-list"
	PATH_SIGNAL_CHECK = "/api/value-stream/signal-check"
	PATH_SUBMIT       = "/api/value-stream/submit"
	PATH_INVOICE      = "/api/value-stream/invoice/"
	PATH_CONFIRM      = "/api/value-stream/confirm-zap"
)

// State is the crowd-payment signal recorded against a content URL.
type State struct {
	ContentID *int64 // nil until the content is registered remotely
	ZapCount  int64
	TotalSats int64
}

// Registered reports whether the content has a remote id.
func (s State) Registered() bool { return s.ContentID != nil }

// Registration is the outcome of a register call.
type Registration struct {
	ID int64
	// Existing is true when the URL had already been registered, possibly
	// by someone else. It is the normal idempotent path, not a failure.
	Existing bool
}

// Client talks to the service through port. The origin is asked from the
// gateway on every call so a changed origin applies without restart.
type Client struct {
	port bridge.Port
}

func NewClient(port bridge.Port) *Client {
	return &Client{port: port}
}

// Origin returns the origin currently configured on the gateway side.
func (c *Client) Origin(ctx context.Context) (string, bool) {
	r, err := c.port.Send(ctx, bridge.Message{Action: bridge.ActionGetOrigin})
	if err != nil || r.Origin == "" {
		utils.Log.Debugf("[signal] origin unavailable: %v", err)
		return "", false
	}
	return r.Origin, true
}

// do performs one call and returns its body. Error statuses are unknown
// answers even when the service explains them in JSON.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (gjson.Result, bool) {
	data, status, ok := c.fetch(ctx, method, path, body)
	if !ok {
		return gjson.Result{}, false
	}
	if status >= 400 {
		utils.Log.Debugf("[signal] %s %s: status %d: %s", method, path, status, utils.Truncate(data.Raw, 120))
		return gjson.Result{}, false
	}
	return data, true
}

// fetch relays one call. ok is false only when no JSON answer arrived.
func (c *Client) fetch(ctx context.Context, method, path string, body []byte) (gjson.Result, int, bool) {
	origin, ok := c.Origin(ctx)
	if !ok {
		return gjson.Result{}, 0, false
	}
	r, err := c.port.Send(ctx, bridge.FetchMessage(method, origin+path, body))
	if err != nil {
		utils.Log.Debugf("[signal] %s %s: %v", method, path, err)
		return gjson.Result{}, 0, false
	}
	if !r.OK {
		utils.Log.Debugf("[signal] %s %s: %s", method, path, r.Error)
		return gjson.Result{}, r.Status, false
	}
	return gjson.ParseBytes(r.Data), r.Status, true
}

// CuratedAuthors fetches the curated handle list, lowercased and stripped of
// a leading "@". nil means the list could not be loaded.
func (c *Client) CuratedAuthors(ctx context.Context) []string {
	data, ok := c.do(ctx, "GET", PATH_KOL_LIST, nil)
	if !ok {
		return nil
	}
	list := data.Get("handles")
	if !list.IsArray() {
		utils.Log.Debugf("[signal] kol-list without handles array")
		return nil
	}
	handles := make([]string, 0, len(list.Array()))
	for _, h := range list.Array() {
		if n := NormalizeHandle(h.String()); n != "" {
			handles = append(handles, n)
		}
	}
	return handles
}

// Lookup returns the signal for a canonical content URL.
func (c *Client) Lookup(ctx context.Context, contentURL string) *State {
	data, ok := c.do(ctx, "GET", PATH_SIGNAL_CHECK+"?url="+url.QueryEscape(contentURL), nil)
	if !ok || !data.IsObject() {
		return nil
	}
	s := &State{
		ZapCount:  nonNegative(data.Get("zap_count").Int()),
		TotalSats: nonNegative(data.Get("total_sats").Int()),
	}
	if id := data.Get("post_id"); id.Exists() && id.Type == gjson.Number {
		v := id.Int()
		s.ContentID = &v
	}
	return s
}

// Register submits a content URL. When the service reports the URL already
// exists it still returns its id, so every caller converges on one id.
func (c *Client) Register(ctx context.Context, contentURL, title string) *Registration {
	body, err := sjson.SetBytes([]byte(`{}`), "url", contentURL)
	if err == nil && title != "" {
		body, err = sjson.SetBytes(body, "title", title)
	}
	if err != nil {
		utils.Log.Warnf("[signal] building submit body: %v", err)
		return nil
	}

	// "Already exists" may come back as a 4xx that still names the id.
	data, status, ok := c.fetch(ctx, "POST", PATH_SUBMIT, body)
	if !ok || status >= 500 {
		return nil
	}
	id := data.Get("id")
	if !id.Exists() || id.Int() <= 0 {
		utils.Log.Debugf("[signal] submit returned no id: %s", utils.Truncate(data.Raw, 120))
		return nil
	}
	return &Registration{ID: id.Int(), Existing: !data.Get("success").Bool()}
}

// Invoice requests a payment instrument for contentID. "" means none was
// issued.
func (c *Client) Invoice(ctx context.Context, contentID, amountSats int64) string {
	body, err := sjson.SetBytes([]byte(`{}`), "amount_sats", amountSats)
	if err != nil {
		return ""
	}
	data, ok := c.do(ctx, "POST", PATH_INVOICE+strconv.FormatInt(contentID, 10), body)
	if !ok {
		return ""
	}
	return strings.TrimSpace(data.Get("invoice").String())
}

// Confirm reports a settled payment. The result is informational only.
func (c *Client) Confirm(ctx context.Context, contentID, amountSats int64, paymentHash string) bool {
	body := []byte(`{}`)
	var err error
	for _, kv := range []struct {
		k string
		v interface{}
	}{
		{"post_id", contentID},
		{"amount_sats", amountSats},
		{"payment_hash", paymentHash},
	} {
		if body, err = sjson.SetBytes(body, kv.k, kv.v); err != nil {
			return false
		}
	}
	_, ok := c.do(ctx, "POST", PATH_CONFIRM, body)
	return ok
}

// NormalizeHandle lowercases a handle and strips a leading "@".
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
