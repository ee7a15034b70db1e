package lnd

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sw33tLie/valuestream/pkg/payment"
	"github.com/tidwall/gjson"
)

func node(t *testing.T, pay func(w http.ResponseWriter, invoice string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(MACAROON_HEADER) != "abcd" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":2,"message":"verification failed: signature mismatch"}`))
			return
		}
		switch r.URL.Path {
		case PATH_GETINFO:
			w.Write([]byte(`{"alias":"test-node","identity_pubkey":"02aa"}`))
		case PATH_PAY:
			body, _ := io.ReadAll(r.Body)
			pay(w, gjson.GetBytes(body, "payment_request").String())
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(Config{URL: "https://127.0.0.1:8080"}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSendPayment(t *testing.T) {
	preimage := make([]byte, 32)
	hash := []byte{0xde, 0xad, 0xbe, 0xef}
	srv := node(t, func(w http.ResponseWriter, invoice string) {
		if invoice != "lnbc1" {
			t.Errorf("unexpected invoice %q", invoice)
		}
		w.Write([]byte(`{"payment_error":"","payment_preimage":"` + base64.StdEncoding.EncodeToString(preimage) +
			`","payment_hash":"` + base64.StdEncoding.EncodeToString(hash) + `"}`))
	})

	w, err := New(Config{URL: srv.URL + "/", Macaroon: "abcd"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Enable(context.Background()); err != nil {
		t.Fatalf("enable: %v", err)
	}
	s, err := w.SendPayment(context.Background(), "lnbc1")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if s.PaymentHash != "deadbeef" || s.Preimage != strings.Repeat("00", 32) {
		t.Fatalf("unexpected settlement %+v", s)
	}
}

func TestPaymentErrorIsReported(t *testing.T) {
	srv := node(t, func(w http.ResponseWriter, _ string) {
		w.Write([]byte(`{"payment_error":"no_route"}`))
	})
	w, _ := New(Config{URL: srv.URL, Macaroon: "abcd"})
	_, err := w.SendPayment(context.Background(), "lnbc1")
	if err == nil || err.Error() != "no_route" {
		t.Fatalf("expected no_route, got %v", err)
	}
	if payment.IsCancellation(err) {
		t.Fatalf("routing failure is not a cancellation")
	}
}

func TestEnableRejectsBadMacaroon(t *testing.T) {
	srv := node(t, nil)
	w, _ := New(Config{URL: srv.URL, Macaroon: "ffff"})
	err := w.Enable(context.Background())
	if err == nil || !strings.Contains(err.Error(), "signature mismatch") {
		t.Fatalf("expected macaroon error, got %v", err)
	}
}

func TestB64ToHex(t *testing.T) {
	tests := map[string]string{
		"":                      "",
		"3q2+7w==":              "deadbeef",
		strings.Repeat("ab", 32): strings.Repeat("ab", 32),
		"!!":                    "",
	}
	for in, want := range tests {
		if got := b64ToHex(in); got != want {
			t.Errorf("b64ToHex(%q) = %q, want %q", in, got, want)
		}
	}
}
