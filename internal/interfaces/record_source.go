package interfaces

import (
	"context"

	"github.com/sheikh-saqib/transaction-ledger/internal/models"
)

// RecordSource yields records in arrival order. Next returns io.EOF once the
// source is drained. Errors wrapping models.ErrMalformedRecord concern a single
// record and the source stays usable; any other error is fatal.
type RecordSource interface {
	Next(ctx context.Context) (models.Record, error)
}
