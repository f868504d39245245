package ledger

import (
	"context"
	"fmt"
	"sync"

	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultScale is the number of decimal places kept for amounts.
const DefaultScale int32 = 4

// Ledger applies records to client accounts.
// It holds a reference to the storage layer and a mutex serializing Apply.
type Ledger struct {
	store interfaces.AccountStore // any storage implementation: memory, postgres
	mu    sync.Mutex              // serializes Apply so records land in input order
	scale int32                   // decimal places kept for amounts
}

type Option func(*Ledger)

// WithScale sets how many decimal places of an input amount are kept. Extra
// digits are truncated.
func WithScale(scale int32) Option {
	return func(l *Ledger) {
		l.scale = scale
	}
}

// New creates a Ledger on top of any AccountStore implementation.
func New(store interfaces.AccountStore, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,        // the storage layer every record is applied to
		scale: DefaultScale, // may be overridden with WithScale
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply validates rec and applies it to the store as one unit of work.
//
// Errors wrapping ErrRejected or models.ErrMalformedRecord concern this record
// only and the store is unchanged. Any other error comes from the store.
//
// Apply is safe for concurrent use; calls are applied one at a time.
func (l *Ledger) Apply(ctx context.Context, rec models.Record) error {
	// Reject malformed records before touching the store
	if err := rec.Validate(); err != nil {
		return err
	}

	l.mu.Lock()         // one record at a time
	defer l.mu.Unlock() // released even if the store fails

	// Every handler runs inside a single unit of work: returning an error
	// discards everything it wrote
	return l.store.Atomic(ctx, func(tx interfaces.StoreTx) error {
		switch rec.Type {
		case models.TypeDeposit:
			return l.deposit(ctx, tx, rec)
		case models.TypeWithdrawal:
			return l.withdraw(ctx, tx, rec)
		case models.TypeDispute:
			return l.dispute(ctx, tx, rec)
		case models.TypeResolve:
			return l.resolve(ctx, tx, rec)
		case models.TypeChargeback:
			return l.chargeback(ctx, tx, rec)
		}
		return fmt.Errorf("%w: unknown type %q", models.ErrMalformedRecord, rec.Type)
	})
}

// Accounts returns the current snapshot of every account.
func (l *Ledger) Accounts(ctx context.Context) ([]models.Account, error) {
	return l.store.Accounts(ctx)
}

// truncate drops the digits beyond the ledger's scale.
func (l *Ledger) truncate(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(l.scale)
}

// amount returns the record amount as the ledger applies it. It must stay
// positive once truncated.
func (l *Ledger) amount(rec models.Record) (decimal.Decimal, error) {
	amount := l.truncate(rec.Amount.Decimal)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, rec.Amount.Decimal)
	}
	return amount, nil
}

func (l *Ledger) deposit(ctx context.Context, tx interfaces.StoreTx, rec models.Record) error {
	amount, err := l.amount(rec)
	if err != nil {
		return err
	}

	// A deposit opens the account on first sight of the client
	account, err := tx.GetOrCreateAccount(ctx, rec.ClientID)
	if err != nil {
		return err
	}
	if account.Locked {
		return fmt.Errorf("%w: client %d", ErrAccountLocked, rec.ClientID)
	}
	// Idempotency check: transaction ids are never reused
	if err := checkNewTransaction(ctx, tx, rec.TxID); err != nil {
		return err
	}

	// Credit the available funds and remember the transaction for disputes
	account.Available = account.Available.Add(amount)
	if err := tx.SaveAccount(ctx, account); err != nil {
		return err
	}
	return tx.CreateTransaction(ctx, models.Transaction{
		ID:       rec.TxID,
		Type:     models.TypeDeposit,
		ClientID: rec.ClientID,
		Amount:   amount,
	})
}

func (l *Ledger) withdraw(ctx context.Context, tx interfaces.StoreTx, rec models.Record) error {
	amount, err := l.amount(rec)
	if err != nil {
		return err
	}

	// Withdrawals never create an account
	account, exists, err := tx.GetAccount(ctx, rec.ClientID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: client %d has no account", ErrInsufficientFunds, rec.ClientID)
	}
	if account.Locked {
		return fmt.Errorf("%w: client %d", ErrAccountLocked, rec.ClientID)
	}
	if err := checkNewTransaction(ctx, tx, rec.TxID); err != nil {
		return err
	}
	// Only available funds can leave the account, held funds stay put
	if account.Available.LessThan(amount) {
		return fmt.Errorf("%w: available %s, requested %s", ErrInsufficientFunds, account.Available, amount)
	}

	// Debit the available funds
	account.Available = account.Available.Sub(amount)
	if err := tx.SaveAccount(ctx, account); err != nil {
		return err
	}
	return tx.CreateTransaction(ctx, models.Transaction{
		ID:       rec.TxID,
		Type:     models.TypeWithdrawal,
		ClientID: rec.ClientID,
		Amount:   amount,
	})
}

// dispute holds the disputed amount on the account of the client raising the
// dispute, which is not necessarily the owner of the transaction.
func (l *Ledger) dispute(ctx context.Context, tx interfaces.StoreTx, rec models.Record) error {
	// The disputed transaction must exist and not be under dispute already
	disputed, exists, err := tx.GetTransaction(ctx, rec.TxID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %d", ErrUnknownTransaction, rec.TxID)
	}
	if _, open, err := tx.GetOpenDispute(ctx, rec.TxID); err != nil {
		return err
	} else if open {
		return fmt.Errorf("%w: %d", ErrAlreadyDisputed, rec.TxID)
	}

	account, err := tx.GetOrCreateAccount(ctx, rec.ClientID)
	if err != nil {
		return err
	}
	if account.Locked {
		return fmt.Errorf("%w: client %d", ErrAccountLocked, rec.ClientID)
	}

	// Move the disputed amount from available to held; available may go negative
	account.Available = account.Available.Sub(disputed.Amount)
	account.Held = account.Held.Add(disputed.Amount)
	if err := tx.SaveAccount(ctx, account); err != nil {
		return err
	}
	// Record who holds the funds so resolve and chargeback act on that account
	return tx.OpenDispute(ctx, models.Dispute{
		TransactionID: rec.TxID,
		HolderID:      rec.ClientID,
	})
}

func (l *Ledger) resolve(ctx context.Context, tx interfaces.StoreTx, rec models.Record) error {
	account, disputed, err := openDispute(ctx, tx, rec.TxID)
	if err != nil {
		return err
	}

	// Release the held funds back to available
	account.Held = account.Held.Sub(disputed.Amount)
	account.Available = account.Available.Add(disputed.Amount)
	if err := tx.SaveAccount(ctx, account); err != nil {
		return err
	}
	return tx.CloseDispute(ctx, rec.TxID)
}

func (l *Ledger) chargeback(ctx context.Context, tx interfaces.StoreTx, rec models.Record) error {
	account, disputed, err := openDispute(ctx, tx, rec.TxID)
	if err != nil {
		return err
	}

	// The held funds leave the ledger and the account is frozen for good
	account.Held = account.Held.Sub(disputed.Amount)
	account.Locked = true
	if err := tx.SaveAccount(ctx, account); err != nil {
		return err
	}
	return tx.CloseDispute(ctx, rec.TxID)
}

// openDispute loads the open dispute on txID together with the account holding
// the funds and the disputed transaction.
func openDispute(ctx context.Context, tx interfaces.StoreTx, txID uint32) (models.Account, models.Transaction, error) {
	d, open, err := tx.GetOpenDispute(ctx, txID)
	if err != nil {
		return models.Account{}, models.Transaction{}, err
	}
	if !open {
		return models.Account{}, models.Transaction{}, fmt.Errorf("%w: %d", ErrNoOpenDispute, txID)
	}

	disputed, exists, err := tx.GetTransaction(ctx, txID)
	if err != nil {
		return models.Account{}, models.Transaction{}, err
	}
	if !exists {
		return models.Account{}, models.Transaction{}, fmt.Errorf("dispute on %d references a missing transaction", txID)
	}

	account, exists, err := tx.GetAccount(ctx, d.HolderID)
	if err != nil {
		return models.Account{}, models.Transaction{}, err
	}
	if !exists {
		return models.Account{}, models.Transaction{}, fmt.Errorf("dispute on %d references missing client %d", txID, d.HolderID)
	}
	if account.Locked {
		return models.Account{}, models.Transaction{}, fmt.Errorf("%w: client %d", ErrAccountLocked, d.HolderID)
	}
	return account, disputed, nil
}

// checkNewTransaction rejects a transaction id the ledger has already recorded.
func checkNewTransaction(ctx context.Context, tx interfaces.StoreTx, id uint32) error {
	_, exists, err := tx.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %d", ErrDuplicateTransaction, id)
	}
	return nil
}
