package storage

import "time"

// Outcomes recorded in zap_log.
const (
	OutcomeDone      = "done"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// ZapEntry is the audit record of one finished payment run.
type ZapEntry struct {
	RunID       string    `json:"run_id"`
	ContentURL  string    `json:"content_url"`
	ContentID   int64     `json:"content_id,omitempty"` // 0 when the run ended before registration
	AmountSats  int64     `json:"amount_sats"`
	Outcome     string    `json:"outcome"` // done | cancelled | failed
	PaymentHash string    `json:"payment_hash,omitempty"`
	Message     string    `json:"message,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
