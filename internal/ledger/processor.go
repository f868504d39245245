package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/sheikh-saqib/transaction-ledger/internal/models/events"
	"go.uber.org/zap"
)

// Stats counts what happened to the records of one run.
type Stats struct {
	Applied   int
	Rejected  int
	Malformed int
}

// Processor drains a RecordSource into a Ledger, one record at a time.
type Processor struct {
	ledger    *Ledger
	logger    *zap.Logger
	publisher interfaces.EventPublisher // optional
	runID     string
	now       func() time.Time
}

// NewProcessor wires a processor. publisher may be nil, in which case no
// events are emitted.
func NewProcessor(l *Ledger, logger *zap.Logger, publisher interfaces.EventPublisher) *Processor {
	runID := uuid.NewString()
	return &Processor{
		ledger:    l,
		logger:    logger.With(zap.String("run_id", runID)),
		publisher: publisher,
		runID:     runID,
		now:       time.Now,
	}
}

// RunID identifies this processor in logs and events.
func (p *Processor) RunID() string {
	return p.runID
}

// Run consumes src until io.EOF. Malformed and rejected records are counted
// and skipped; only source and store failures stop the run.
func (p *Processor) Run(ctx context.Context, src interfaces.RecordSource) (Stats, error) {
	var stats Stats
	for {
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, models.ErrMalformedRecord) {
			stats.Malformed++
			p.logger.Warn("skipping malformed record", zap.Error(err))
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read record: %w", err)
		}

		err = p.ledger.Apply(ctx, rec)
		switch {
		case err == nil:
			stats.Applied++
			p.publish(ctx, rec, nil)
		case errors.Is(err, models.ErrMalformedRecord):
			stats.Malformed++
			p.logger.Warn("skipping malformed record", recordFields(rec, zap.Error(err))...)
		case errors.Is(err, ErrRejected):
			stats.Rejected++
			p.logger.Debug("record rejected", recordFields(rec, zap.Error(err))...)
			p.publish(ctx, rec, err)
		default:
			return stats, fmt.Errorf("apply %s tx %d: %w", rec.Type, rec.TxID, err)
		}
	}

	p.logger.Info("run complete",
		zap.Int("applied", stats.Applied),
		zap.Int("rejected", stats.Rejected),
		zap.Int("malformed", stats.Malformed),
	)
	return stats, nil
}

// publish never fails the run: the ledger state is already committed.
func (p *Processor) publish(ctx context.Context, rec models.Record, rejection error) {
	if p.publisher == nil {
		return
	}

	event := events.RecordProcessed{
		RunID:         p.runID,
		Type:          rec.Type.String(),
		ClientID:      rec.ClientID,
		TransactionID: rec.TxID,
		Status:        events.StatusApplied,
		OccurredAt:    p.now().UTC(),
	}
	// Report the amount exactly as the ledger applied it
	if rec.Type.MovesFunds() && rec.Amount.Valid {
		amount := p.ledger.truncate(rec.Amount.Decimal)
		event.Amount = &amount
	}
	if rejection != nil {
		event.Status = events.StatusRejected
		event.Reason = rejection.Error()
	}

	key := strconv.FormatUint(uint64(rec.ClientID), 10)
	if err := p.publisher.Publish(ctx, key, event); err != nil {
		p.logger.Warn("failed to publish record event", recordFields(rec, zap.Error(err))...)
	}
}

func recordFields(rec models.Record, extra ...zap.Field) []zap.Field {
	fields := []zap.Field{
		zap.String("type", rec.Type.String()),
		zap.Uint16("client", rec.ClientID),
		zap.Uint32("tx", rec.TxID),
	}
	return append(fields, extra...)
}
