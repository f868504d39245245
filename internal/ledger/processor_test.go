package ledger_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/ledger"
	lt "github.com/sheikh-saqib/transaction-ledger/internal/ledger/ledgertest"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/sheikh-saqib/transaction-ledger/internal/models/events"
	"github.com/sheikh-saqib/transaction-ledger/internal/source"
	"github.com/sheikh-saqib/transaction-ledger/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	key   string
	event events.RecordProcessed
}

type recordingPublisher struct {
	events []published
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, event any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{key: key, event: event.(events.RecordProcessed)})
	return nil
}

type brokenSource struct {
	err error
}

func (s brokenSource) Next(context.Context) (models.Record, error) {
	return models.Record{}, s.err
}

const scenarioCSV = `type,client,tx,amount
deposit,1,1,1.0
deposit,2,2,2.0
deposit,1,3,2.0
withdrawal,1,4,1.5
withdrawal,2,5,3.0
transfer,1,6,1.0
deposit,1,7
`

func newObservedProcessor(l *ledger.Ledger, publisher interfaces.EventPublisher) (*ledger.Processor, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return ledger.NewProcessor(l, zap.New(core), publisher), logs
}

func TestProcessorRun(t *testing.T) {
	l := newTestLedger()
	p, logs := newObservedProcessor(l, nil)

	stats, err := p.Run(context.Background(), source.NewCSV(strings.NewReader(scenarioCSV)))
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Applied: 4, Rejected: 1, Malformed: 2}, stats)

	lt.AssertBalance(t, lt.Balance{Available: "1.5", Held: "0"}, lt.RequireAccount(t, l, 1))
	lt.AssertBalance(t, lt.Balance{Available: "2.0", Held: "0"}, lt.RequireAccount(t, l, 2))

	assert.Equal(t, 1, logs.FilterMessage("record rejected").Len())
	assert.Equal(t, 2, logs.FilterMessage("skipping malformed record").Len())

	summary := logs.FilterMessage("run complete").All()
	require.Len(t, summary, 1)
	fields := summary[0].ContextMap()
	assert.Equal(t, int64(4), fields["applied"])
	assert.Equal(t, p.RunID(), fields["run_id"])
}

func TestProcessorPublishesEvents(t *testing.T) {
	l := newTestLedger()
	publisher := &recordingPublisher{}
	p, _ := newObservedProcessor(l, publisher)
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return at })

	_, err := p.Run(context.Background(), source.NewCSV(strings.NewReader(scenarioCSV)))
	require.NoError(t, err)

	// malformed records never reach the ledger, so they produce no event
	require.Len(t, publisher.events, 5)

	first := publisher.events[0]
	assert.Equal(t, "1", first.key)
	assert.Equal(t, events.StatusApplied, first.event.Status)
	assert.Equal(t, p.RunID(), first.event.RunID)
	assert.True(t, at.Equal(first.event.OccurredAt))
	require.NotNil(t, first.event.Amount)
	assert.Equal(t, "1", first.event.Amount.String())

	rejected := publisher.events[4]
	assert.Equal(t, "2", rejected.key)
	assert.Equal(t, events.StatusRejected, rejected.event.Status)
	assert.Equal(t, uint32(5), rejected.event.TransactionID)
	assert.Contains(t, rejected.event.Reason, "insufficient funds")
}

func TestProcessorPublishFailureDoesNotAbort(t *testing.T) {
	l := newTestLedger()
	p, logs := newObservedProcessor(l, &recordingPublisher{err: errors.New("broker down")})

	stats, err := p.Run(context.Background(), source.NewCSV(strings.NewReader(scenarioCSV)))
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Applied)
	assert.Equal(t, 5, logs.FilterMessage("failed to publish record event").Len())
	lt.AssertBalance(t, lt.Balance{Available: "1.5", Held: "0"}, lt.RequireAccount(t, l, 1))
}

func TestProcessorSourceFault(t *testing.T) {
	fault := errors.New("disk gone")
	p, logs := newObservedProcessor(newTestLedger(), nil)

	_, err := p.Run(context.Background(), brokenSource{err: fault})
	assert.ErrorIs(t, err, fault)
	assert.Zero(t, logs.FilterMessage("run complete").Len())
}

func TestProcessorStoreFault(t *testing.T) {
	fault := errors.New("connection reset")
	p, _ := newObservedProcessor(ledger.New(failingStore{err: fault}), nil)

	stats, err := p.Run(context.Background(), source.NewCSV(strings.NewReader(scenarioCSV)))
	assert.ErrorIs(t, err, fault)
	assert.Zero(t, stats.Applied)
}

func TestProcessorChannelSource(t *testing.T) {
	l := newTestLedger()
	p, _ := newObservedProcessor(l, nil)

	ch := make(chan models.Record)
	go func() {
		defer close(ch)
		for _, rec := range []models.Record{
			lt.Deposit(1, 1, "5.0"),
			lt.Dispute(1, 1),
			lt.Chargeback(1, 1),
			lt.Deposit(1, 6, "10.0"),
		} {
			ch <- rec
		}
	}()

	stats, err := p.Run(context.Background(), source.NewChannel(ch))
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Applied: 3, Rejected: 1}, stats)
	lt.AssertBalance(t, lt.Balance{Available: "0", Held: "0", Locked: true}, lt.RequireAccount(t, l, 1))
}

func TestProcessorEventAmountMatchesAppliedAmount(t *testing.T) {
	l := ledger.New(memory.NewMemoryAccountStore(), ledger.WithScale(4))
	publisher := &recordingPublisher{}
	p, _ := newObservedProcessor(l, publisher)

	input := "type,client,tx,amount\ndeposit,1,1,1.23456\nwithdrawal,1,2,0.00009\n"
	stats, err := p.Run(context.Background(), source.NewCSV(strings.NewReader(input)))
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Applied: 1, Rejected: 1}, stats)

	require.Len(t, publisher.events, 2)
	applied := lt.RequireAccount(t, l, 1).Available
	require.NotNil(t, publisher.events[0].event.Amount)
	assert.Equal(t, "1.2345", publisher.events[0].event.Amount.String())
	assert.True(t, publisher.events[0].event.Amount.Equal(applied))

	// the rejected withdrawal reports the amount the ledger refused
	require.NotNil(t, publisher.events[1].event.Amount)
	assert.True(t, publisher.events[1].event.Amount.IsZero())
	assert.Equal(t, events.StatusRejected, publisher.events[1].event.Status)
}
