// Package ledgertest holds the ledger behaviour every AccountStore must
// support, so that each storage implementation runs the same cases.
package ledgertest

import (
	"context"
	"errors"
	"testing"

	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/ledger"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreFactory returns an empty store owned by t.
type StoreFactory func(t *testing.T) interfaces.AccountStore

func amountRecord(typ models.RecordType, client uint16, tx uint32, amount string) models.Record {
	return models.Record{
		Type:     typ,
		ClientID: client,
		TxID:     tx,
		Amount:   decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}

func Deposit(client uint16, tx uint32, amount string) models.Record {
	return amountRecord(models.TypeDeposit, client, tx, amount)
}

func Withdrawal(client uint16, tx uint32, amount string) models.Record {
	return amountRecord(models.TypeWithdrawal, client, tx, amount)
}

func Dispute(client uint16, tx uint32) models.Record {
	return models.Record{Type: models.TypeDispute, ClientID: client, TxID: tx}
}

func Resolve(client uint16, tx uint32) models.Record {
	return models.Record{Type: models.TypeResolve, ClientID: client, TxID: tx}
}

func Chargeback(client uint16, tx uint32) models.Record {
	return models.Record{Type: models.TypeChargeback, ClientID: client, TxID: tx}
}

// ApplyAll applies every record, accepting rejections but not store faults.
func ApplyAll(t *testing.T, l *ledger.Ledger, recs ...models.Record) {
	t.Helper()
	for _, rec := range recs {
		err := l.Apply(context.Background(), rec)
		if err != nil && !errors.Is(err, ledger.ErrRejected) {
			require.NoError(t, err, "%s %d", rec.Type, rec.TxID)
		}
	}
}

func AccountsByClient(t *testing.T, l *ledger.Ledger) map[uint16]models.Account {
	t.Helper()
	accounts, err := l.Accounts(context.Background())
	require.NoError(t, err)

	out := make(map[uint16]models.Account, len(accounts))
	for _, a := range accounts {
		out[a.ClientID] = a
	}
	return out
}

func RequireAccount(t *testing.T, l *ledger.Ledger, client uint16) models.Account {
	t.Helper()
	a, ok := AccountsByClient(t, l)[client]
	require.True(t, ok, "client %d has no account", client)
	return a
}

// Balance is the expected state of one account, amounts as decimal strings.
type Balance struct {
	Available string
	Held      string
	Locked    bool
}

func AssertBalance(t *testing.T, want Balance, got models.Account) {
	t.Helper()
	available := decimal.RequireFromString(want.Available)
	held := decimal.RequireFromString(want.Held)

	assert.True(t, got.Available.Equal(available), "client %d available: want %s, got %s", got.ClientID, available, got.Available)
	assert.True(t, got.Held.Equal(held), "client %d held: want %s, got %s", got.ClientID, held, got.Held)
	assert.True(t, got.Total().Equal(available.Add(held)), "client %d total: got %s", got.ClientID, got.Total())
	assert.Equal(t, want.Locked, got.Locked, "client %d locked", got.ClientID)
}

// RunStoreContract runs the ledger cases against stores built by newStore.
// Each case gets its own store.
func RunStoreContract(t *testing.T, newStore StoreFactory) {
	t.Run("Scenarios", func(t *testing.T) { testScenarios(t, newStore) })
	t.Run("ResolveRestoresBalances", func(t *testing.T) { testResolveRestoresBalances(t, newStore) })
	t.Run("LockedAccountRejectsEverything", func(t *testing.T) { testLockedAccountRejectsEverything(t, newStore) })
	t.Run("RejectedRecordsLeaveNoTrace", func(t *testing.T) { testRejectedRecordsLeaveNoTrace(t, newStore) })
	t.Run("DisputeHoldsOnDisputingClient", func(t *testing.T) { testDisputeHoldsOnDisputingClient(t, newStore) })
	t.Run("WithdrawalRejections", func(t *testing.T) { testWithdrawalRejections(t, newStore) })
}

func testScenarios(t *testing.T, newStore StoreFactory) {
	tests := []struct {
		name    string
		records []models.Record
		want    map[uint16]Balance
	}{
		{
			name: "deposits and withdrawals",
			records: []models.Record{
				Deposit(1, 1, "1.0"),
				Deposit(2, 2, "2.0"),
				Deposit(1, 3, "2.0"),
				Withdrawal(1, 4, "1.5"),
				Withdrawal(2, 5, "3.0"),
			},
			want: map[uint16]Balance{
				1: {Available: "1.5", Held: "0"},
				2: {Available: "2.0", Held: "0"},
			},
		},
		{
			name: "dispute holds funds",
			records: []models.Record{
				Deposit(1, 1, "5.0"),
				Dispute(1, 1),
			},
			want: map[uint16]Balance{
				1: {Available: "0", Held: "5.0"},
			},
		},
		{
			name: "chargeback removes held funds and locks",
			records: []models.Record{
				Deposit(1, 1, "5.0"),
				Dispute(1, 1),
				Chargeback(1, 1),
				Deposit(1, 6, "10.0"),
			},
			want: map[uint16]Balance{
				1: {Available: "0", Held: "0", Locked: true},
			},
		},
		{
			name: "mixed clients with resolve and chargeback",
			records: []models.Record{
				Deposit(1, 0, "10.5563"),
				Deposit(1, 1, "2.1234"),
				Deposit(1, 2, "13.5"),
				Deposit(1, 3, "1.3"),
				Withdrawal(1, 4, "5.8367"),
				Deposit(2, 5, "10.5563"),
				Deposit(3, 6, "2.1234"),
				Deposit(2, 7, "13.5"),
				Deposit(3, 8, "1.3"),
				Withdrawal(2, 9, "5.8367"),
				Withdrawal(3, 10, "5.8367"),
				Withdrawal(1, 11, "5.8367"),
				Dispute(1, 3),
				Resolve(1, 3),
				Dispute(2, 5),
				Chargeback(2, 5),
				Dispute(3, 8),
			},
			want: map[uint16]Balance{
				1: {Available: "15.8063", Held: "0"},
				2: {Available: "7.6633", Held: "0", Locked: true},
				3: {Available: "2.1234", Held: "1.3"},
			},
		},
		{
			name: "dispute after withdrawal drives available negative",
			records: []models.Record{
				Deposit(1, 1, "10"),
				Withdrawal(1, 2, "8"),
				Dispute(1, 1),
			},
			want: map[uint16]Balance{
				1: {Available: "-8", Held: "10"},
			},
		},
		{
			name: "withdrawals are disputable like deposits",
			records: []models.Record{
				Deposit(1, 1, "10"),
				Withdrawal(1, 2, "4"),
				Dispute(1, 2),
			},
			want: map[uint16]Balance{
				1: {Available: "2", Held: "4"},
			},
		},
		{
			name: "reference before the transaction exists is ignored",
			records: []models.Record{
				Dispute(1, 7),
				Deposit(1, 7, "3"),
				Resolve(1, 7),
			},
			want: map[uint16]Balance{
				1: {Available: "3", Held: "0"},
			},
		},
		{
			name: "amounts are truncated to four decimals",
			records: []models.Record{
				Deposit(1, 1, "1.23456789"),
				Deposit(1, 2, "0.00009"),
			},
			want: map[uint16]Balance{
				1: {Available: "1.2345", Held: "0"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ledger.New(newStore(t))
			ApplyAll(t, l, tt.records...)

			got := AccountsByClient(t, l)
			require.Len(t, got, len(tt.want))
			for client, want := range tt.want {
				account, ok := got[client]
				require.True(t, ok, "client %d missing", client)
				AssertBalance(t, want, account)
			}
		})
	}
}

func testResolveRestoresBalances(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()
	l := ledger.New(newStore(t))
	ApplyAll(t, l,
		Deposit(1, 1, "7.25"),
		Deposit(1, 2, "1.1111"),
		Withdrawal(1, 3, "0.5"),
	)
	before := RequireAccount(t, l, 1)

	require.NoError(t, l.Apply(ctx, Dispute(1, 2)))
	AssertBalance(t, Balance{Available: "6.75", Held: "1.1111"}, RequireAccount(t, l, 1))
	require.NoError(t, l.Apply(ctx, Resolve(1, 2)))

	after := RequireAccount(t, l, 1)
	assert.True(t, before.Available.Equal(after.Available), "available %s != %s", before.Available, after.Available)
	assert.True(t, before.Held.Equal(after.Held), "held %s != %s", before.Held, after.Held)
	assert.False(t, after.Locked)

	// the dispute is closed, so it can be opened again
	assert.ErrorIs(t, l.Apply(ctx, Resolve(1, 2)), ledger.ErrNoOpenDispute)
	require.NoError(t, l.Apply(ctx, Dispute(1, 2)))
}

func testLockedAccountRejectsEverything(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()
	l := ledger.New(newStore(t))
	ApplyAll(t, l,
		Deposit(1, 1, "5"),
		Deposit(1, 2, "3"),
		Deposit(1, 3, "2"),
		Dispute(1, 3),
		Dispute(1, 1),
		Chargeback(1, 1),
	)
	locked := Balance{Available: "3", Held: "2", Locked: true}
	AssertBalance(t, locked, RequireAccount(t, l, 1))

	for _, rec := range []models.Record{
		Deposit(1, 10, "10"),
		Withdrawal(1, 11, "1"),
		Dispute(1, 2),
		Resolve(1, 3),
		Chargeback(1, 3),
	} {
		err := l.Apply(ctx, rec)
		assert.ErrorIs(t, err, ledger.ErrAccountLocked, "%s %d", rec.Type, rec.TxID)
	}
	AssertBalance(t, locked, RequireAccount(t, l, 1))

	// rejected records did not register their transaction ids
	require.NoError(t, l.Apply(ctx, Deposit(2, 10, "1")))
	require.NoError(t, l.Apply(ctx, Deposit(2, 11, "1")))

	// the locked client's rejected dispute on tx 2 left no open dispute behind
	require.NoError(t, l.Apply(ctx, Dispute(2, 2)))
	AssertBalance(t, Balance{Available: "-1", Held: "3"}, RequireAccount(t, l, 2))
	AssertBalance(t, locked, RequireAccount(t, l, 1))
}

func testRejectedRecordsLeaveNoTrace(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()
	l := ledger.New(newStore(t))

	err := l.Apply(ctx, Deposit(1, 1, "0"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
	err = l.Apply(ctx, Withdrawal(9, 2, "1"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	err = l.Apply(ctx, Dispute(3, 99))
	assert.ErrorIs(t, err, ledger.ErrUnknownTransaction)
	assert.Empty(t, AccountsByClient(t, l), "rejected records must not create accounts")

	require.NoError(t, l.Apply(ctx, Deposit(1, 1, "2")))

	// the account of client 2 is created before the duplicate is found
	err = l.Apply(ctx, Deposit(2, 1, "5"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction)
	assert.ErrorIs(t, err, ledger.ErrRejected)

	require.NoError(t, l.Apply(ctx, Dispute(1, 1)))
	err = l.Apply(ctx, Dispute(4, 1))
	assert.ErrorIs(t, err, ledger.ErrAlreadyDisputed)

	got := AccountsByClient(t, l)
	require.Len(t, got, 1)
	AssertBalance(t, Balance{Available: "0", Held: "2"}, got[1])
}

func testDisputeHoldsOnDisputingClient(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()
	l := ledger.New(newStore(t))
	ApplyAll(t, l, Deposit(1, 1, "5"))

	require.NoError(t, l.Apply(ctx, Dispute(2, 1)))
	AssertBalance(t, Balance{Available: "5", Held: "0"}, RequireAccount(t, l, 1))
	AssertBalance(t, Balance{Available: "-5", Held: "5"}, RequireAccount(t, l, 2))

	// the hold is released on the account that holds it, whoever resolves
	require.NoError(t, l.Apply(ctx, Resolve(1, 1)))
	AssertBalance(t, Balance{Available: "5", Held: "0"}, RequireAccount(t, l, 1))
	AssertBalance(t, Balance{Available: "0", Held: "0"}, RequireAccount(t, l, 2))
}

func testWithdrawalRejections(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()
	l := ledger.New(newStore(t))
	require.NoError(t, l.Apply(ctx, Deposit(1, 2, "3")))

	err := l.Apply(ctx, Withdrawal(1, 3, "3.0001"))
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	err = l.Apply(ctx, Withdrawal(1, 2, "1"))
	assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction)

	err = l.Apply(ctx, Withdrawal(1, 4, "0"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	AssertBalance(t, Balance{Available: "3", Held: "0"}, RequireAccount(t, l, 1))

	require.NoError(t, l.Apply(ctx, Withdrawal(1, 3, "3")))
	AssertBalance(t, Balance{Available: "0", Held: "0"}, RequireAccount(t, l, 1))
}
