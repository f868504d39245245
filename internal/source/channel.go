package source

import (
	"context"
	"io"

	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
)

// Channel adapts a channel of records to a RecordSource. The source is drained
// once the channel is closed.
type Channel struct {
	ch <-chan models.Record
}

func NewChannel(ch <-chan models.Record) *Channel {
	return &Channel{ch: ch}
}

func (c *Channel) Next(ctx context.Context) (models.Record, error) {
	select {
	case <-ctx.Done():
		return models.Record{}, ctx.Err()
	case rec, ok := <-c.ch:
		if !ok {
			return models.Record{}, io.EOF
		}
		return rec, nil
	}
}

var _ interfaces.RecordSource = (*Channel)(nil)
