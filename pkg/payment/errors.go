package payment

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/sw33tLie/valuestream/internal/utils"
)

var (
	// ErrNoWallet means no wallet capability is reachable from this context.
	ErrNoWallet = errors.New("no wallet available: install or configure a Lightning wallet")
	// ErrCancelled marks a payment the user declined in their wallet.
	ErrCancelled = errors.New("payment cancelled by user")
	// ErrBusy is returned when a run is already in progress for a trigger.
	ErrBusy = errors.New("payment already in progress")
)

// cancellationWords identify a deliberate user decline in the reason text
// of a wallet's own error. They are consulted only after the error chain
// has been checked for known causes.
var cancellationWords = []string{"cancel", "reject", "denied", "declined", "abort"}

// TransportError reports that a remote step could not be completed.
type TransportError struct {
	Op string // register | invoice | confirm
}

func (e *TransportError) Error() string {
	switch e.Op {
	case "register":
		return "could not register this post with the value-stream service"
	case "invoice":
		return "could not obtain an invoice from the value-stream service"
	}
	return fmt.Sprintf("value-stream service unavailable (%s)", e.Op)
}

// WalletError wraps a wallet failure that is not a user cancellation.
type WalletError struct {
	Err error
}

func (e *WalletError) Error() string { return "wallet error: " + e.Err.Error() }
func (e *WalletError) Unwrap() error { return e.Err }

// IsCancellation reports whether err is a user decline. ErrCancelled in the
// chain decides it; context and network failures never count, even when
// their text says "canceled" or "abort". Anything else falls back to the
// wording of the wallet's reason.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCancelled) {
		return true
	}
	if isTransportFailure(err) {
		return false
	}
	return utils.ContainsAnyFold(err.Error(), cancellationWords...)
}

func isTransportFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// classifyWalletErr maps a wallet error onto the taxonomy.
func classifyWalletErr(err error) error {
	if IsCancellation(err) {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return &WalletError{Err: err}
}
