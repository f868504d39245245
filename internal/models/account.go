package models

import (
	"github.com/shopspring/decimal"
)

// Account holds the balances of one client.
//
// Available may go negative when a dispute targets funds that were already
// withdrawn. Held never does.
type Account struct {
	ClientID  uint16
	Available decimal.Decimal // usable for withdrawal
	Held      decimal.Decimal // frozen by open disputes
	Locked    bool            // set by a chargeback, never cleared
}

// NewAccount returns the zero state every client starts from.
func NewAccount(clientID uint16) Account {
	return Account{
		ClientID:  clientID,
		Available: decimal.Zero,
		Held:      decimal.Zero,
	}
}

// Total is always derived from Available and Held.
func (a Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}
