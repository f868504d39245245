package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"
	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
)

// Schema creates the clients, transactions and disputes tables if missing.
//
//go:embed schema.sql
var Schema string

type PostgresAccountStore struct {
	db *sql.DB
}

// Open connects to dsn with the lib/pq driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{
		db: db,
	}
}

// Migrate creates the tables. It is safe to run on every start.
func (p *PostgresAccountStore) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	return err
}

// Reset removes every row so a run starts from empty accounts.
func (p *PostgresAccountStore) Reset(ctx context.Context) error {
	query := fmt.Sprintf("TRUNCATE %s, %s, %s",
		pq.QuoteIdentifier("disputes"),
		pq.QuoteIdentifier("transactions"),
		pq.QuoteIdentifier("clients"),
	)
	_, err := p.db.ExecContext(ctx, query)
	return err
}

// Atomic runs fn inside a database transaction committed only if fn succeeds.
func (p *PostgresAccountStore) Atomic(ctx context.Context, fn func(tx interfaces.StoreTx) error) (err error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	if err = fn(&postgresTx{tx: dbTx}); err != nil {
		return err
	}
	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (p *PostgresAccountStore) Accounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, available, held, locked FROM clients ORDER BY id`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ClientID, &a.Available, &a.Held, &a.Locked); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) GetAccount(ctx context.Context, clientID uint16) (models.Account, bool, error) {
	const query = `SELECT id, available, held, locked FROM clients WHERE id = $1 FOR UPDATE`

	var a models.Account
	err := t.tx.QueryRowContext(ctx, query, clientID).Scan(&a.ClientID, &a.Available, &a.Held, &a.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, false, nil
	}
	if err != nil {
		return models.Account{}, false, err
	}
	return a, true, nil
}

func (t *postgresTx) GetOrCreateAccount(ctx context.Context, clientID uint16) (models.Account, error) {
	const query = `INSERT INTO clients (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`

	if _, err := t.tx.ExecContext(ctx, query, clientID); err != nil {
		return models.Account{}, err
	}
	a, exists, err := t.GetAccount(ctx, clientID)
	if err != nil {
		return models.Account{}, err
	}
	if !exists {
		return models.Account{}, fmt.Errorf("client %d missing after insert", clientID)
	}
	return a, nil
}

func (t *postgresTx) SaveAccount(ctx context.Context, a models.Account) error {
	const query = `INSERT INTO clients (id, available, held, locked) VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET available = EXCLUDED.available, held = EXCLUDED.held, locked = EXCLUDED.locked`

	_, err := t.tx.ExecContext(ctx, query, a.ClientID, a.Available, a.Held, a.Locked)
	return err
}

func (t *postgresTx) GetTransaction(ctx context.Context, id uint32) (models.Transaction, bool, error) {
	const query = `SELECT id, type, client_id, amount FROM transactions WHERE id = $1`

	var (
		tr  models.Transaction
		typ string
	)
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&tr.ID, &typ, &tr.ClientID, &tr.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, err
	}
	tr.Type = models.RecordType(typ)
	return tr, true, nil
}

func (t *postgresTx) CreateTransaction(ctx context.Context, tr models.Transaction) error {
	const query = `INSERT INTO transactions (id, type, client_id, amount) VALUES ($1, $2, $3, $4)`

	_, err := t.tx.ExecContext(ctx, query, tr.ID, tr.Type.String(), tr.ClientID, tr.Amount)
	return err
}

func (t *postgresTx) GetOpenDispute(ctx context.Context, txID uint32) (models.Dispute, bool, error) {
	const query = `SELECT transaction_id, client_id FROM disputes WHERE transaction_id = $1`

	var d models.Dispute
	err := t.tx.QueryRowContext(ctx, query, txID).Scan(&d.TransactionID, &d.HolderID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Dispute{}, false, nil
	}
	if err != nil {
		return models.Dispute{}, false, err
	}
	return d, true, nil
}

func (t *postgresTx) OpenDispute(ctx context.Context, d models.Dispute) error {
	const query = `INSERT INTO disputes (transaction_id, client_id) VALUES ($1, $2)`

	_, err := t.tx.ExecContext(ctx, query, d.TransactionID, d.HolderID)
	return err
}

func (t *postgresTx) CloseDispute(ctx context.Context, txID uint32) error {
	const query = `DELETE FROM disputes WHERE transaction_id = $1`

	_, err := t.tx.ExecContext(ctx, query, txID)
	return err
}

var _ interfaces.AccountStore = (*PostgresAccountStore)(nil)
