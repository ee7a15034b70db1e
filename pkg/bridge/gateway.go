package bridge

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/whttp"
	"github.com/tidwall/gjson"
)

// OriginSource yields the configured service origin.
type OriginSource interface {
	Get(ctx context.Context) (string, error)
}

// Gateway is the privileged side of the bridge. It holds no per-call state.
type Gateway struct {
	origins OriginSource
	client  *retryablehttp.Client
}

// NewGateway builds a gateway. A nil client gets whttp.NewClient defaults.
func NewGateway(origins OriginSource, client *retryablehttp.Client) *Gateway {
	if client == nil {
		client = whttp.NewClient(0)
	}
	return &Gateway{origins: origins, client: client}
}

// Handle answers one message. It never panics and never returns an error;
// every failure is described in the Reply.
func (g *Gateway) Handle(ctx context.Context, msg Message) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			utils.Log.Errorf("[bridge] panic while handling %s: %v", msg.Action, r)
			reply = Reply{OK: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	switch msg.Action {
	case ActionGetOrigin:
		origin, err := g.origins.Get(ctx)
		if err != nil {
			utils.Log.Warnf("[bridge] reading origin failed, using %s: %v", origin, err)
		}
		return Reply{OK: true, Origin: origin}
	case ActionFetch:
		return g.Relay(ctx, msg.URL, msg.Method, msg.Body)
	default:
		return Reply{OK: false, Error: "unknown action: " + msg.Action}
	}
}

// Relay performs one request and returns its JSON body. Transport errors
// and non-JSON bodies yield OK false. Any JSON body is returned as data,
// whatever the status code, so callers can read error payloads.
func (g *Gateway) Relay(ctx context.Context, url, method string, body []byte) Reply {
	if url == "" {
		return Reply{OK: false, Error: "missing url"}
	}
	if method == "" {
		method = http.MethodGet
	}

	utils.Log.Debugf("[bridge] %s %s", strings.ToUpper(method), url)
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		URL:    url,
		Method: method,
		Body:   string(body),
	}, g.client)
	if err != nil {
		utils.Log.Debugf("[bridge] %s failed: %v", url, err)
		return Reply{OK: false, Error: err.Error()}
	}

	if !gjson.Valid(res.BodyString) {
		return Reply{
			OK:     false,
			Status: res.StatusCode,
			Error:  fmt.Sprintf("non-JSON response (status %d): %s", res.StatusCode, utils.Truncate(res.BodyString, 80)),
		}
	}
	return Reply{OK: true, Status: res.StatusCode, Data: []byte(res.BodyString)}
}
