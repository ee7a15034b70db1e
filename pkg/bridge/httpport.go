package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/valuestream/pkg/whttp"
)

// BRIDGE_PATH is where a gateway server accepts messages.
const BRIDGE_PATH = "/bridge"

// HTTPPort reaches a gateway served over HTTP by another process.
type HTTPPort struct {
	endpoint string
	username string
	password string
	client   *retryablehttp.Client
}

// NewHTTPPort targets the gateway at base (e.g. http://127.0.0.1:7465).
func NewHTTPPort(base, username, password string, client *retryablehttp.Client) *HTTPPort {
	if client == nil {
		client = whttp.NewClient(0)
	}
	return &HTTPPort{
		endpoint: strings.TrimSuffix(base, "/") + BRIDGE_PATH,
		username: username,
		password: password,
		client:   client,
	}
}

func (p *HTTPPort) Send(ctx context.Context, msg Message) (Reply, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Reply{}, err
	}

	headers := []whttp.WHTTPHeader{{Name: "X-Bridge-Call", Value: uuid.NewString()}}
	if p.username != "" || p.password != "" {
		headers = append(headers, whttp.WHTTPHeader{Name: "Authorization", Value: basicAuth(p.username, p.password)})
	}

	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		URL:     p.endpoint,
		Method:  "POST",
		Body:    string(body),
		Headers: headers,
	}, p.client)
	if err != nil {
		return Reply{}, fmt.Errorf("gateway unreachable: %w", err)
	}
	if res.StatusCode != 200 {
		return Reply{}, fmt.Errorf("gateway returned status %d", res.StatusCode)
	}

	var reply Reply
	if err := json.Unmarshal([]byte(res.BodyString), &reply); err != nil {
		return Reply{}, fmt.Errorf("malformed gateway reply: %w", err)
	}
	return reply, nil
}
