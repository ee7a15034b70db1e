package signal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sw33tLie/valuestream/pkg/bridge"
	"github.com/sw33tLie/valuestream/pkg/bridge/bridgetest"
	"github.com/tidwall/gjson"
)

func TestLookup(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		body      string
		wantID    int64 // 0 = unregistered
		wantCount int64
		wantSats  int64
	}{
		{"registered", `{"post_id":7,"zap_count":4,"total_sats":4000}`, 7, 4, 4000},
		{"unregistered", `{}`, 0, 0, 0},
		{"negative counts clamp", `{"post_id":3,"zap_count":-1,"total_sats":-5}`, 3, 0, 0},
		{"null id", `{"post_id":null,"zap_count":1}`, 0, 1, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			port := bridgetest.New("https://svc.example")
			port.JSON("GET", PATH_SIGNAL_CHECK, tc.body)
			s := NewClient(port).Lookup(ctx, "https://x.com/alice/status/123")
			if s == nil {
				t.Fatalf("expected state")
			}
			if tc.wantID == 0 && s.Registered() {
				t.Fatalf("expected unregistered, got id %d", *s.ContentID)
			}
			if tc.wantID != 0 && (!s.Registered() || *s.ContentID != tc.wantID) {
				t.Fatalf("expected id %d, got %+v", tc.wantID, s)
			}
			if s.ZapCount != tc.wantCount || s.TotalSats != tc.wantSats {
				t.Fatalf("unexpected counts: %+v", s)
			}
		})
	}
}

func TestLookupEncodesURL(t *testing.T) {
	port := bridgetest.New("https://svc.example")
	port.JSON("GET", PATH_SIGNAL_CHECK, `{}`)
	NewClient(port).Lookup(context.Background(), "https://x.com/alice/status/123")

	f := port.Fetches()
	if len(f) != 1 {
		t.Fatalf("expected one fetch, got %d", len(f))
	}
	want := "https://svc.example/api/value-stream/signal-check?url=https%3A%2F%2Fx.com%2Falice%2Fstatus%2F123"
	if f[0].URL != want {
		t.Fatalf("unexpected url %q", f[0].URL)
	}
}

func TestUnknownIsNilNotZero(t *testing.T) {
	ctx := context.Background()
	port := bridgetest.New("https://svc.example")
	port.Fail("GET", PATH_SIGNAL_CHECK)
	port.JSON("GET", PATH_KOL_LIST, `{"nope":true}`)
	c := NewClient(port)

	if s := c.Lookup(ctx, "https://x.com/a/status/1"); s != nil {
		t.Fatalf("expected nil on transport failure, got %+v", s)
	}
	if h := c.CuratedAuthors(ctx); h != nil {
		t.Fatalf("expected nil for malformed list, got %v", h)
	}
	if r := c.Register(ctx, "https://x.com/a/status/1", ""); r != nil {
		t.Fatalf("expected nil for unrouted register, got %+v", r)
	}
	if inv := c.Invoice(ctx, 1, 1000); inv != "" {
		t.Fatalf("expected empty invoice, got %q", inv)
	}
	if c.Confirm(ctx, 1, 1000, "h") {
		t.Fatalf("expected confirm to report failure")
	}
}

func TestCuratedAuthorsNormalizes(t *testing.T) {
	port := bridgetest.New("https://svc.example")
	port.JSON("GET", PATH_KOL_LIST, `{"handles":["Alice","@Bob"," carol ",""]}`)
	got := NewClient(port).CuratedAuthors(context.Background())
	want := []string{"alice", "bob", "carol"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	port := bridgetest.New("https://svc.example")
	calls := 0
	port.Handle("POST", PATH_SUBMIT, func(msg bridge.Message) bridge.Reply {
		calls++
		if gjson.GetBytes(msg.Body, "url").String() != "https://x.com/alice/status/123" {
			t.Errorf("unexpected body %s", msg.Body)
		}
		if calls == 1 {
			return bridge.Reply{OK: true, Data: []byte(`{"success":true,"id":42}`)}
		}
		return bridge.Reply{OK: true, Status: 409, Data: []byte(`{"success":false,"id":42,"error":"exists"}`)}
	})
	c := NewClient(port)

	first := c.Register(ctx, "https://x.com/alice/status/123", "gm")
	second := c.Register(ctx, "https://x.com/alice/status/123", "")
	if first == nil || second == nil {
		t.Fatalf("expected both registrations to resolve: %+v %+v", first, second)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same id, got %d and %d", first.ID, second.ID)
	}
	if first.Existing || !second.Existing {
		t.Fatalf("unexpected existing flags: %+v %+v", first, second)
	}
}

func TestRegisterWithoutIDFails(t *testing.T) {
	port := bridgetest.New("https://svc.example")
	port.JSON("POST", PATH_SUBMIT, `{"success":false,"error":"invalid url"}`)
	if r := NewClient(port).Register(context.Background(), "u", ""); r != nil {
		t.Fatalf("expected nil, got %+v", r)
	}
}

func TestInvoiceAndConfirmBodies(t *testing.T) {
	ctx := context.Background()
	port := bridgetest.New("https://svc.example")
	port.Handle("POST", PATH_INVOICE+"42", func(msg bridge.Message) bridge.Reply {
		if gjson.GetBytes(msg.Body, "amount_sats").Int() != 1000 {
			t.Errorf("unexpected invoice body %s", msg.Body)
		}
		return bridge.Reply{OK: true, Data: []byte(`{"invoice":"lnbc10u1xyz"}`)}
	})
	port.Handle("POST", PATH_CONFIRM, func(msg bridge.Message) bridge.Reply {
		b := gjson.ParseBytes(msg.Body)
		if b.Get("post_id").Int() != 42 || b.Get("amount_sats").Int() != 1000 || b.Get("payment_hash").String() != "ph" {
			t.Errorf("unexpected confirm body %s", msg.Body)
		}
		return bridge.Reply{OK: true, Data: []byte(`{}`)}
	})
	c := NewClient(port)

	if inv := c.Invoice(ctx, 42, 1000); inv != "lnbc10u1xyz" {
		t.Fatalf("unexpected invoice %q", inv)
	}
	if !c.Confirm(ctx, 42, 1000, "ph") {
		t.Fatalf("expected confirm ok")
	}
}

func TestOriginResolvedPerCall(t *testing.T) {
	ctx := context.Background()
	port := bridgetest.New("https://one.example")
	port.JSON("GET", PATH_KOL_LIST, `{"handles":[]}`)
	c := NewClient(port)

	c.CuratedAuthors(ctx)
	port.SetOrigin("https://two.example")
	c.CuratedAuthors(ctx)

	f := port.Fetches()
	if len(f) != 2 || !strings.HasPrefix(f[0].URL, "https://one.example/") || !strings.HasPrefix(f[1].URL, "https://two.example/") {
		t.Fatalf("origin change not picked up: %+v", f)
	}
}

func TestNoOriginMeansNoFetch(t *testing.T) {
	port := bridgetest.New("")
	port.JSON("GET", PATH_KOL_LIST, `{"handles":["a"]}`)
	if h := NewClient(port).CuratedAuthors(context.Background()); h != nil {
		t.Fatalf("expected nil without origin")
	}
	if len(port.Fetches()) != 0 {
		t.Fatalf("expected no fetch without origin")
	}
}

type fixedOrigin string

func (o fixedOrigin) Get(context.Context) (string, error) { return string(o), nil }

func TestErrorStatusIsUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"database unavailable"}`))
	}))
	defer srv.Close()

	port := bridge.NewLocalPort(bridge.NewGateway(fixedOrigin(srv.URL), nil))
	defer port.Close()
	c := NewClient(port)
	ctx := context.Background()

	if s := c.Lookup(ctx, "https://x.com/alice/status/1"); s != nil {
		t.Fatalf("expected nil state for a 500, got %+v", s)
	}
	if h := c.CuratedAuthors(ctx); h != nil {
		t.Fatalf("expected nil authors for a 500, got %v", h)
	}
	if inv := c.Invoice(ctx, 42, 1000); inv != "" {
		t.Fatalf("expected no invoice for a 500, got %q", inv)
	}
	if c.Confirm(ctx, 42, 1000, "ph") {
		t.Fatalf("a 500 must not count as an acknowledgement")
	}
	if r := c.Register(ctx, "https://x.com/alice/status/1", ""); r != nil {
		t.Fatalf("expected nil registration for a 500, got %+v", r)
	}
}

func TestErrorStatusThroughPort(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", 500, `{"error":"boom"}`},
		{"not found", 404, `{"post_id":9,"zap_count":3}`},
		{"bad gateway empty object", 502, `{}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			port := bridgetest.New("https://svc.example")
			port.Handle("GET", PATH_SIGNAL_CHECK, func(bridge.Message) bridge.Reply {
				return bridge.Reply{OK: true, Status: tc.status, Data: []byte(tc.body)}
			})
			if s := NewClient(port).Lookup(context.Background(), "u"); s != nil {
				t.Fatalf("expected nil, got %+v", s)
			}
		})
	}
}

func TestRegisterServerErrorWithIDFails(t *testing.T) {
	port := bridgetest.New("https://svc.example")
	port.Handle("POST", PATH_SUBMIT, func(bridge.Message) bridge.Reply {
		return bridge.Reply{OK: true, Status: 503, Data: []byte(`{"success":false,"id":42}`)}
	})
	if r := NewClient(port).Register(context.Background(), "u", ""); r != nil {
		t.Fatalf("expected nil, got %+v", r)
	}
}
