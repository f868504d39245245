package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecordType(t *testing.T) {
	for _, s := range []string{"deposit", "withdrawal", "dispute", "resolve", "chargeback"} {
		typ, err := ParseRecordType(s)
		require.NoError(t, err)
		assert.Equal(t, s, typ.String())
	}

	for _, s := range []string{"", "Deposit", "transfer"} {
		_, err := ParseRecordType(s)
		assert.ErrorIs(t, err, ErrMalformedRecord, "%q", s)
	}
}

func TestRecordValidate(t *testing.T) {
	amount := func(s string) decimal.NullDecimal {
		return decimal.NewNullDecimal(decimal.RequireFromString(s))
	}

	tests := []struct {
		name    string
		rec     Record
		wantErr bool
	}{
		{"deposit", Record{Type: TypeDeposit, Amount: amount("1.5")}, false},
		{"zero withdrawal is left to the ledger", Record{Type: TypeWithdrawal, Amount: amount("0")}, false},
		{"deposit without amount", Record{Type: TypeDeposit}, true},
		{"negative withdrawal", Record{Type: TypeWithdrawal, Amount: amount("-1")}, true},
		{"dispute ignores amount", Record{Type: TypeDispute, Amount: amount("-1")}, false},
		{"resolve", Record{Type: TypeResolve}, false},
		{"unknown type", Record{Type: "refund"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRecord)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAccountTotal(t *testing.T) {
	a := NewAccount(1)
	assert.True(t, a.Total().IsZero())
	assert.False(t, a.Locked)

	a.Available = decimal.RequireFromString("-2.5")
	a.Held = decimal.RequireFromString("4")
	assert.Equal(t, "1.5", a.Total().String())
}
