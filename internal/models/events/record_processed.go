package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusApplied  = "applied"
	StatusRejected = "rejected"
)

// RecordProcessed is emitted once per record the ledger has seen, whether it
// changed an account or not.
type RecordProcessed struct {
	RunID         string           `json:"run_id"`
	Type          string           `json:"type"`
	ClientID      uint16           `json:"client_id"`
	TransactionID uint32           `json:"transaction_id"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Status        string           `json:"status"`
	Reason        string           `json:"reason,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}
