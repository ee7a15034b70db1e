package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Settlement is the proof returned by a wallet after paying an instrument.
type Settlement struct {
	Preimage    string // hex
	PaymentHash string // hex
}

// Hash returns PaymentHash, deriving it from the preimage when the wallet
// only reported the latter.
func (s Settlement) Hash() string {
	if s.PaymentHash != "" {
		return strings.ToLower(s.PaymentHash)
	}
	raw, err := hex.DecodeString(s.Preimage)
	if err != nil || len(raw) == 0 {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Wallet is a user-controlled payment capability. SendPayment may block for
// as long as the user takes to approve; it is never given a deadline here.
type Wallet interface {
	Enable(ctx context.Context) error
	SendPayment(ctx context.Context, invoice string) (Settlement, error)
}

// WalletLocator finds the wallet capability available to a run.
type WalletLocator interface {
	Wallet(ctx context.Context) (Wallet, bool)
}

// LocatorFunc adapts a function to WalletLocator.
type LocatorFunc func(ctx context.Context) (Wallet, bool)

func (f LocatorFunc) Wallet(ctx context.Context) (Wallet, bool) { return f(ctx) }

// Direct is a wallet visible from the running context itself. A nil wallet
// is reported as absent.
func Direct(w Wallet) WalletLocator {
	return LocatorFunc(func(context.Context) (Wallet, bool) {
		return w, w != nil
	})
}

// Chain tries locators in order: typically the direct capability first and
// the embedding context second.
func Chain(locators ...WalletLocator) WalletLocator {
	return LocatorFunc(func(ctx context.Context) (Wallet, bool) {
		for _, l := range locators {
			if l == nil {
				continue
			}
			if w, ok := l.Wallet(ctx); ok && w != nil {
				return w, true
			}
		}
		return nil, false
	})
}
