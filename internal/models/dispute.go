package models

// Dispute marks an open dispute on a transaction. HolderID is the client
// account whose funds were moved to held when the dispute was opened; resolve
// and chargeback act on that account.
type Dispute struct {
	TransactionID uint32
	HolderID      uint16
}
