package whttp

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	USER_AGENT      = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0 valuestream"
	DEFAULT_TIMEOUT = 30 * time.Second
)

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Body    string
	Headers []WHTTPHeader
}

type WHTTPRes struct {
	StatusCode  int
	ContentType string
	BodyString  string
}

// NewClient returns a client that never retries and never reuses
// connections. Every request is a single independent round trip.
func NewClient(timeout time.Duration) *retryablehttp.Client {
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.HTTPClient.Timeout = timeout
	client.HTTPClient.Transport = &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		DisableKeepAlives: true,
	}
	return client
}

// SendHTTPRequest performs wReq with client. A nil client gets a fresh
// NewClient.
func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	if client == nil {
		client = NewClient(0)
	}
	method := strings.ToUpper(wReq.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body interface{}
	if wReq.Body != "" {
		body = strings.NewReader(wReq.Body)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	// Set common headers
	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Connection", "close")
	if wReq.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		BodyString:  string(bodyBytes),
	}, nil
}
