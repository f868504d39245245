package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
)

// MemoryAccountStore is an in-memory implementation of interfaces.AccountStore.
// A single mutex is held for the whole of a unit of work, so units never
// interleave even with concurrent callers.
type MemoryAccountStore struct {
	mu           sync.Mutex                    // held for the whole of a unit of work
	accounts     map[uint16]models.Account     // accounts by client id
	transactions map[uint32]models.Transaction // deposits and withdrawals by transaction id
	disputes     map[uint32]models.Dispute     // open disputes by transaction id
}

// NewMemoryAccountStore creates an empty store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		accounts:     make(map[uint16]models.Account),     // initialize an empty account map
		transactions: make(map[uint32]models.Transaction), // initialize an empty transaction map
		disputes:     make(map[uint32]models.Dispute),     // no dispute is open yet
	}
}

// Atomic runs fn against a staging view. The staged writes are copied into the
// store only when fn succeeds.
func (m *MemoryAccountStore) Atomic(ctx context.Context, fn func(tx interfaces.StoreTx) error) error {
	// Do not start a unit of work for a canceled caller
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()         // lock the mutex to prevent concurrent units of work
	defer m.mu.Unlock() // unlock automatically when function exits (even if fn fails)

	// Writes go to empty overlays; reads fall through to the committed maps
	tx := &memoryTx{
		store:        m,
		accounts:     make(map[uint16]models.Account),
		transactions: make(map[uint32]models.Transaction),
		disputes:     make(map[uint32]disputeChange),
	}
	if err := fn(tx); err != nil {
		return err // drop the overlays: nothing reaches the store
	}
	tx.commit() // fn succeeded, publish every staged write at once
	return nil
}

// Accounts returns a copy of every account ordered by client id.
func (m *MemoryAccountStore) Accounts(ctx context.Context) ([]models.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()         // lock to prevent concurrent modification while reading
	defer m.mu.Unlock() // unlock automatically at the end

	// copy the accounts so callers cannot modify the store
	accounts := make([]models.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		accounts = append(accounts, a)
	}
	// map iteration order is random, the report wants client order
	slices.SortFunc(accounts, func(a, b models.Account) int {
		return cmp.Compare(a.ClientID, b.ClientID)
	})
	return accounts, nil
}

// disputeChange is a staged dispute write: open it or close it.
type disputeChange struct {
	dispute models.Dispute // the dispute as it was opened
	open    bool           // false once resolved or charged back
}

// memoryTx stages writes on top of the store. It is only used while the store
// mutex is held.
type memoryTx struct {
	store        *MemoryAccountStore           // committed state, read through
	accounts     map[uint16]models.Account     // staged account writes
	transactions map[uint32]models.Transaction // staged new transactions
	disputes     map[uint32]disputeChange      // staged opens and closes
}

func (t *memoryTx) GetAccount(_ context.Context, clientID uint16) (models.Account, bool, error) {
	if a, ok := t.accounts[clientID]; ok {
		return a, true, nil
	}
	a, ok := t.store.accounts[clientID]
	return a, ok, nil
}

func (t *memoryTx) GetOrCreateAccount(ctx context.Context, clientID uint16) (models.Account, error) {
	a, ok, err := t.GetAccount(ctx, clientID)
	if err != nil || ok {
		return a, err
	}
	// first sight of the client: a zero balance account, staged like any write
	a = models.NewAccount(clientID)
	t.accounts[clientID] = a
	return a, nil
}

func (t *memoryTx) SaveAccount(_ context.Context, account models.Account) error {
	t.accounts[account.ClientID] = account
	return nil
}

func (t *memoryTx) GetTransaction(_ context.Context, id uint32) (models.Transaction, bool, error) {
	if tr, ok := t.transactions[id]; ok {
		return tr, true, nil
	}
	tr, ok := t.store.transactions[id]
	return tr, ok, nil
}

func (t *memoryTx) CreateTransaction(ctx context.Context, tr models.Transaction) error {
	if _, exists, _ := t.GetTransaction(ctx, tr.ID); exists {
		return fmt.Errorf("transaction %d already stored", tr.ID)
	}
	t.transactions[tr.ID] = tr
	return nil
}

func (t *memoryTx) GetOpenDispute(_ context.Context, txID uint32) (models.Dispute, bool, error) {
	// a staged close hides a committed open dispute
	if c, ok := t.disputes[txID]; ok {
		return c.dispute, c.open, nil
	}
	d, ok := t.store.disputes[txID]
	return d, ok, nil
}

func (t *memoryTx) OpenDispute(ctx context.Context, d models.Dispute) error {
	if _, open, _ := t.GetOpenDispute(ctx, d.TransactionID); open {
		return fmt.Errorf("dispute on transaction %d already open", d.TransactionID)
	}
	t.disputes[d.TransactionID] = disputeChange{dispute: d, open: true}
	return nil
}

func (t *memoryTx) CloseDispute(_ context.Context, txID uint32) error {
	t.disputes[txID] = disputeChange{dispute: models.Dispute{TransactionID: txID}}
	return nil
}

// commit copies the staged writes into the store. The caller holds the store
// mutex.
func (t *memoryTx) commit() {
	for id, a := range t.accounts {
		t.store.accounts[id] = a
	}
	for id, tr := range t.transactions {
		t.store.transactions[id] = tr
	}
	for id, c := range t.disputes {
		if c.open {
			t.store.disputes[id] = c.dispute
		} else {
			delete(t.store.disputes, id) // closed disputes are forgotten
		}
	}
}

// Compile-time check: ensure MemoryAccountStore implements AccountStore interface
var _ interfaces.AccountStore = (*MemoryAccountStore)(nil)
