package models

import (
	"github.com/shopspring/decimal"
)

// Transaction is a deposit or withdrawal that moved funds on a client account.
// It is created once, on the first occurrence of its id, and never changes.
type Transaction struct {
	ID       uint32          // transaction id as supplied by the record source
	Type     RecordType      // TypeDeposit or TypeWithdrawal
	ClientID uint16          // owning client
	Amount   decimal.Decimal // positive magnitude of the original movement
}
