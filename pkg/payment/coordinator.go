// Package payment drives one crowd payment for a content unit:
// register the content, obtain an invoice, have the user's wallet settle it
// and tell the service about it.
package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sw33tLie/valuestream/internal/utils"
	"github.com/sw33tLie/valuestream/pkg/signal"
	"github.com/sw33tLie/valuestream/pkg/storage"
)

const (
	DEFAULT_AMOUNT_SATS = 1000
	CONFIRM_TIMEOUT     = 30 * time.Second
)

type State int

const (
	Idle State = iota
	Registering
	InvoiceRequested
	AwaitingWalletSettlement
	Confirming
	Done
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Registering:
		return "registering"
	case InvoiceRequested:
		return "invoice-requested"
	case AwaitingWalletSettlement:
		return "awaiting-wallet-settlement"
	case Confirming:
		return "confirming"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s == Done || s == Failed || s == Cancelled }

// Service is the subset of the signal client a run needs.
type Service interface {
	Register(ctx context.Context, contentURL, title string) *signal.Registration
	Invoice(ctx context.Context, contentID, amountSats int64) string
	Confirm(ctx context.Context, contentID, amountSats int64, paymentHash string) bool
}

// Journal records finished runs. *storage.DB satisfies it.
type Journal interface {
	LogZap(ctx context.Context, e storage.ZapEntry) error
}

// Request describes what to pay for.
type Request struct {
	ContentID *int64 // nil when not yet registered
	URL       string
	Title     string
}

// Result is the terminal outcome of one run.
type Result struct {
	RunID       string
	State       State
	ContentID   *int64
	AmountSats  int64
	PaymentHash string
	Err         error
}

// Message is the text to show the user, empty when nothing should be
// shown (success and deliberate cancellation).
func (r Result) Message() string {
	if r.State == Failed && r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

type Config struct {
	Service    Service
	Wallets    WalletLocator
	AmountSats int64   // defaults to DEFAULT_AMOUNT_SATS
	Journal    Journal // optional
	// OnState observes every transition of every run. Optional.
	OnState func(runID string, s State)
}

// Coordinator runs payments. Runs are independent of each other; guarding
// against overlapping runs for one trigger is the trigger's job.
type Coordinator struct {
	cfg Config
	bg  sync.WaitGroup
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.AmountSats <= 0 {
		cfg.AmountSats = DEFAULT_AMOUNT_SATS
	}
	if cfg.Wallets == nil {
		cfg.Wallets = Direct(nil)
	}
	return &Coordinator{cfg: cfg}
}

// AmountSats is the fixed amount each run pays.
func (c *Coordinator) AmountSats() int64 { return c.cfg.AmountSats }

// Run executes one payment. It always returns a terminal Result and never
// panics into the caller.
func (c *Coordinator) Run(ctx context.Context, req Request) (res Result) {
	res = Result{RunID: uuid.NewString(), AmountSats: c.cfg.AmountSats}
	if req.ContentID != nil {
		id := *req.ContentID
		res.ContentID = &id
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Log.Errorf("[payment] run %s panicked: %v", res.RunID, r)
			res.State, res.Err = Failed, errors.New("internal error")
		}
		c.transition(res.RunID, res.State)
		c.journal(ctx, req, res)
	}()

	// Precondition: without a wallet nothing is sent anywhere.
	wallet, ok := c.cfg.Wallets.Wallet(ctx)
	if !ok {
		res.State, res.Err = Failed, ErrNoWallet
		return res
	}

	if res.ContentID == nil {
		c.transition(res.RunID, Registering)
		reg := c.cfg.Service.Register(ctx, req.URL, req.Title)
		if reg == nil {
			res.State, res.Err = Failed, &TransportError{Op: "register"}
			return res
		}
		if reg.Existing {
			utils.Log.Debugf("[payment] %s already registered as %d", req.URL, reg.ID)
		}
		id := reg.ID
		res.ContentID = &id
	}

	c.transition(res.RunID, InvoiceRequested)
	if err := wallet.Enable(ctx); err != nil {
		return c.walletFailure(res, err)
	}
	invoice := c.cfg.Service.Invoice(ctx, *res.ContentID, c.cfg.AmountSats)
	if invoice == "" {
		res.State, res.Err = Failed, &TransportError{Op: "invoice"}
		return res
	}

	c.transition(res.RunID, AwaitingWalletSettlement)
	settlement, err := wallet.SendPayment(ctx, invoice)
	if err != nil {
		return c.walletFailure(res, err)
	}

	// The payment has left the wallet: the run is done whatever the
	// confirmation does.
	c.transition(res.RunID, Confirming)
	res.PaymentHash = settlement.Hash()
	c.confirm(ctx, res.RunID, *res.ContentID, res.PaymentHash)

	res.State = Done
	return res
}

// Wait blocks until pending confirmations have been sent.
func (c *Coordinator) Wait() { c.bg.Wait() }

func (c *Coordinator) walletFailure(res Result, err error) Result {
	err = classifyWalletErr(err)
	if errors.Is(err, ErrCancelled) {
		utils.Log.Debugf("[payment] run %s cancelled by user", res.RunID)
		res.State, res.Err = Cancelled, err
		return res
	}
	res.State, res.Err = Failed, err
	return res
}

func (c *Coordinator) confirm(ctx context.Context, runID string, contentID int64, hash string) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CONFIRM_TIMEOUT)
		defer cancel()
		if !c.cfg.Service.Confirm(cctx, contentID, c.cfg.AmountSats, hash) {
			utils.Log.Warnf("[payment] run %s: confirmation for post %d not acknowledged", runID, contentID)
		}
	}()
}

func (c *Coordinator) transition(runID string, s State) {
	utils.Log.Debugf("[payment] run %s -> %s", runID, s)
	if c.cfg.OnState != nil {
		c.cfg.OnState(runID, s)
	}
}

func (c *Coordinator) journal(ctx context.Context, req Request, res Result) {
	if c.cfg.Journal == nil {
		return
	}
	e := storage.ZapEntry{
		RunID:       res.RunID,
		ContentURL:  req.URL,
		AmountSats:  res.AmountSats,
		PaymentHash: res.PaymentHash,
		Message:     res.Message(),
	}
	if res.ContentID != nil {
		e.ContentID = *res.ContentID
	}
	switch res.State {
	case Done:
		e.Outcome = storage.OutcomeDone
	case Cancelled:
		e.Outcome = storage.OutcomeCancelled
	default:
		e.Outcome = storage.OutcomeFailed
	}
	if err := c.cfg.Journal.LogZap(context.WithoutCancel(ctx), e); err != nil {
		utils.Log.Warnf("[payment] could not record run %s: %v", res.RunID, err)
	}
}
