package interfaces

import (
	"context"

	"github.com/sheikh-saqib/transaction-ledger/internal/models"
)

// AccountStore owns every account, transaction and dispute of the ledger.
type AccountStore interface {
	// Atomic runs fn as one unit of work. Changes made through tx are kept only
	// if fn returns nil; otherwise none of them are visible afterwards. Units of
	// work never interleave.
	Atomic(ctx context.Context, fn func(tx StoreTx) error) error

	// Accounts returns every account ordered by client id.
	Accounts(ctx context.Context) ([]models.Account, error)
}

// StoreTx is the view of the store inside a unit of work. Reads observe the
// writes made earlier in the same unit.
type StoreTx interface {
	GetAccount(ctx context.Context, clientID uint16) (models.Account, bool, error)
	GetOrCreateAccount(ctx context.Context, clientID uint16) (models.Account, error)
	SaveAccount(ctx context.Context, account models.Account) error

	GetTransaction(ctx context.Context, id uint32) (models.Transaction, bool, error)
	CreateTransaction(ctx context.Context, tx models.Transaction) error

	GetOpenDispute(ctx context.Context, txID uint32) (models.Dispute, bool, error)
	OpenDispute(ctx context.Context, dispute models.Dispute) error
	CloseDispute(ctx context.Context, txID uint32) error
}
