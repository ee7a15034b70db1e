package prompt

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sw33tLie/valuestream/pkg/payment"
)

type paidWallet struct{ calls int }

func (p *paidWallet) Enable(context.Context) error { return nil }

func (p *paidWallet) SendPayment(context.Context, string) (payment.Settlement, error) {
	p.calls++
	return payment.Settlement{PaymentHash: "aa"}, nil
}

func TestPrompt(t *testing.T) {
	tests := []struct {
		input string
		pays  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tc := range tests {
		next := &paidWallet{}
		var out bytes.Buffer
		w := New(next, strings.NewReader(tc.input), &out)

		s, err := w.SendPayment(context.Background(), "lnbc1xyz")
		if tc.pays {
			if err != nil || s.PaymentHash != "aa" || next.calls != 1 {
				t.Errorf("%q: expected payment, got %v", tc.input, err)
			}
			continue
		}
		if !errors.Is(err, ErrRejected) || next.calls != 0 {
			t.Errorf("%q: expected rejection, got %v", tc.input, err)
		}
		if !payment.IsCancellation(err) {
			t.Errorf("%q: rejection must read as a cancellation", tc.input)
		}
		if !strings.Contains(out.String(), "lnbc1xyz") {
			t.Errorf("prompt does not show the invoice: %q", out.String())
		}
	}
}

func TestPromptAbortIsNotACancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, _ := io.Pipe()
	defer pr.Close()
	next := &paidWallet{}
	w := New(next, pr, io.Discard)

	_, err := w.SendPayment(ctx, "lnbc1xyz")
	if err == nil || next.calls != 0 {
		t.Fatalf("expected abort before payment, got %v", err)
	}
	if payment.IsCancellation(err) {
		t.Fatalf("an aborted context is not a user decline: %v", err)
	}
}
