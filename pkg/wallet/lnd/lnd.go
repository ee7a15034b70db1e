// Package lnd pays invoices through an LND node's REST interface.
package lnd

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/payment"
	"github.com/sw33tLie/valuestream/pkg/whttp"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	PATH_GETINFO = "/v1/getinfo"
	PATH_PAY     = "/v1/channels/transactions"

	MACAROON_HEADER = "Grpc-Metadata-macaroon"
)

var ErrNotConfigured = errors.New("lnd: rest url and macaroon are required")

type Config struct {
	URL      string // e.g. https://127.0.0.1:8080
	Macaroon string // hex encoded admin or invoice+offchain macaroon
	// Insecure skips certificate verification for self-signed node certs.
	Insecure bool
}

// Wallet implements payment.Wallet against one node.
type Wallet struct {
	base     string
	macaroon string
	client   *retryablehttp.Client
}

var _ payment.Wallet = (*Wallet)(nil)

func New(cfg Config) (*Wallet, error) {
	if cfg.URL == "" || cfg.Macaroon == "" {
		return nil, ErrNotConfigured
	}
	client := whttp.NewClient(0)
	// Payments wait for the network; the caller's context bounds them.
	client.HTTPClient.Timeout = 0
	if cfg.Insecure {
		if tr, ok := client.HTTPClient.Transport.(*http.Transport); ok {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		}
	}
	return &Wallet{
		base:     strings.TrimRight(cfg.URL, "/"),
		macaroon: cfg.Macaroon,
		client:   client,
	}, nil
}

// Enable checks that the node is reachable and the macaroon accepted.
func (w *Wallet) Enable(ctx context.Context) error {
	data, err := w.call(ctx, http.MethodGet, PATH_GETINFO, "")
	if err != nil {
		return err
	}
	utils.Log.Debugf("[lnd] using node %s (%s)", data.Get("alias").String(), utils.Truncate(data.Get("identity_pubkey").String(), 16))
	return nil
}

// SendPayment pays invoice synchronously and returns the settlement proof.
func (w *Wallet) SendPayment(ctx context.Context, invoice string) (payment.Settlement, error) {
	body, err := sjson.Set("", "payment_request", invoice)
	if err != nil {
		return payment.Settlement{}, err
	}
	data, err := w.call(ctx, http.MethodPost, PATH_PAY, body)
	if err != nil {
		return payment.Settlement{}, err
	}
	if msg := data.Get("payment_error").String(); msg != "" {
		return payment.Settlement{}, errors.New(msg)
	}

	s := payment.Settlement{
		Preimage:    b64ToHex(data.Get("payment_preimage").String()),
		PaymentHash: b64ToHex(data.Get("payment_hash").String()),
	}
	if s.Preimage == "" && s.PaymentHash == "" {
		return payment.Settlement{}, errors.New("lnd: payment returned no preimage")
	}
	return s, nil
}

func (w *Wallet) call(ctx context.Context, method, path, body string) (gjson.Result, error) {
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
		URL:     w.base + path,
		Method:  method,
		Body:    body,
		Headers: []whttp.WHTTPHeader{{Name: MACAROON_HEADER, Value: w.macaroon}},
	}, w.client)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("lnd %s: %w", path, err)
	}
	if !gjson.Valid(res.BodyString) {
		return gjson.Result{}, fmt.Errorf("lnd %s: status %d, non-JSON body", path, res.StatusCode)
	}
	data := gjson.Parse(res.BodyString)
	if res.StatusCode != http.StatusOK {
		msg := data.Get("message").String()
		if msg == "" {
			msg = data.Get("error").String()
		}
		return gjson.Result{}, fmt.Errorf("lnd %s: status %d: %s", path, res.StatusCode, msg)
	}
	return data, nil
}

// b64ToHex converts LND's base64 byte fields. Values that are already hex
// pass through.
func b64ToHex(s string) string {
	if s == "" {
		return ""
	}
	if _, err := hex.DecodeString(s); err == nil && len(s) == 64 {
		return strings.ToLower(s)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, err = base64.URLEncoding.DecodeString(s); err != nil {
			return ""
		}
	}
	return hex.EncodeToString(raw)
}
