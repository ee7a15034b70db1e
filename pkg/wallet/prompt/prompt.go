// Package prompt wraps a wallet with an interactive approval step, the
// terminal counterpart of a browser wallet's confirmation dialog.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/payment"
)

// ErrRejected is returned when the user answers anything but yes. It wraps
// payment.ErrCancelled.
var ErrRejected = fmt.Errorf("%w: rejected at the prompt", payment.ErrCancelled)

// Wallet asks before every payment and delegates to Next once approved.
type Wallet struct {
	Next payment.Wallet
	Out  io.Writer

	reader *bufio.Reader
}

func New(next payment.Wallet, in io.Reader, out io.Writer) *Wallet {
	return &Wallet{Next: next, Out: out, reader: bufio.NewReader(in)}
}

func (w *Wallet) Enable(ctx context.Context) error {
	return w.Next.Enable(ctx)
}

// SendPayment shows the invoice and waits for a y/N answer. There is no
// deadline other than ctx.
func (w *Wallet) SendPayment(ctx context.Context, invoice string) (payment.Settlement, error) {
	fmt.Fprintf(w.Out, "Pay invoice %s ? [y/N] ", utils.Truncate(invoice, 48))

	answer := make(chan string, 1)
	go func() {
		line, _ := w.reader.ReadString('\n')
		answer <- strings.ToLower(strings.TrimSpace(line))
	}()

	select {
	case <-ctx.Done():
		return payment.Settlement{}, fmt.Errorf("prompt aborted: %w", ctx.Err())
	case a := <-answer:
		if a != "y" && a != "yes" {
			return payment.Settlement{}, ErrRejected
		}
	}
	return w.Next.SendPayment(ctx, invoice)
}
