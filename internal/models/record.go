package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrMalformedRecord is wrapped by every error describing an input record that
// could not be turned into a Record.
var ErrMalformedRecord = errors.New("malformed record")

// RecordType is the kind of an input record.
type RecordType string

const (
	TypeDeposit    RecordType = "deposit"
	TypeWithdrawal RecordType = "withdrawal"
	TypeDispute    RecordType = "dispute"
	TypeResolve    RecordType = "resolve"
	TypeChargeback RecordType = "chargeback"
)

// ParseRecordType maps the textual type column to a RecordType.
func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(s); t {
	case TypeDeposit, TypeWithdrawal, TypeDispute, TypeResolve, TypeChargeback:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrMalformedRecord, s)
	}
}

// MovesFunds reports whether records of this type create a Transaction.
func (t RecordType) MovesFunds() bool {
	return t == TypeDeposit || t == TypeWithdrawal
}

func (t RecordType) String() string {
	return string(t)
}

// Record is one input line: an instruction for the ledger.
type Record struct {
	Type     RecordType
	ClientID uint16
	TxID     uint32
	Amount   decimal.NullDecimal // only meaningful for deposit and withdrawal
}

// Validate checks the fields required by the record type. It does not look at
// any ledger state.
func (r Record) Validate() error {
	if _, err := ParseRecordType(string(r.Type)); err != nil {
		return err
	}
	if !r.Type.MovesFunds() {
		return nil
	}
	if !r.Amount.Valid {
		return fmt.Errorf("%w: %s %d requires an amount", ErrMalformedRecord, r.Type, r.TxID)
	}
	if r.Amount.Decimal.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrMalformedRecord, r.Amount.Decimal)
	}
	return nil
}
