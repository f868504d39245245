package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readResult struct {
	records []models.Record
	errs    []*ParseError
}

func readAll(t *testing.T, input string) readResult {
	t.Helper()
	src := NewCSV(strings.NewReader(input))

	var res readResult
	for {
		rec, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return res
		}
		if err != nil {
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			require.ErrorIs(t, err, models.ErrMalformedRecord)
			res.errs = append(res.errs, perr)
			continue
		}
		res.records = append(res.records, rec)
	}
}

func assertRecord(t *testing.T, typ models.RecordType, client uint16, tx uint32, amount string, got models.Record) {
	t.Helper()
	assert.Equal(t, typ, got.Type)
	assert.Equal(t, client, got.ClientID)
	assert.Equal(t, tx, got.TxID)
	if amount == "" {
		assert.False(t, got.Amount.Valid, "tx %d should have no amount", tx)
		return
	}
	require.True(t, got.Amount.Valid, "tx %d should have an amount", tx)
	assert.Equal(t, amount, got.Amount.Decimal.String())
}

func TestCSVReadsRecords(t *testing.T) {
	input := `
type, client, tx, amount
deposit, 1, 1, 1.0
withdrawal, 1, 4, 1.5
dispute, 2, 5
resolve, 1, 1
chargeback, 1, 1`

	res := readAll(t, input)
	require.Empty(t, res.errs)
	require.Len(t, res.records, 5)

	assertRecord(t, models.TypeDeposit, 1, 1, "1", res.records[0])
	assertRecord(t, models.TypeWithdrawal, 1, 4, "1.5", res.records[1])
	assertRecord(t, models.TypeDispute, 2, 5, "", res.records[2])
	assertRecord(t, models.TypeResolve, 1, 1, "", res.records[3])
	assertRecord(t, models.TypeChargeback, 1, 1, "", res.records[4])
}

func TestCSVSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		"deposit,1,1,1.0",
		"bogus,1,2,1.0",
		"deposit,x,3,1.0",
		"deposit,1,4",
		"deposit,1,5,-2",
		"deposit,1,6,abc",
		"dispute,1,1,",
		"withdrawal,70000,7,1",
		"deposit,1",
		`deposit,1,8"x,1.0`,
		"resolve,1,1,not-a-number",
		"deposit , 3 , 9 , 2.5 ",
	}, "\n")

	res := readAll(t, input)

	require.Len(t, res.records, 4)
	assertRecord(t, models.TypeDeposit, 1, 1, "1", res.records[0])
	assertRecord(t, models.TypeDispute, 1, 1, "", res.records[1])
	assertRecord(t, models.TypeResolve, 1, 1, "", res.records[2])
	assertRecord(t, models.TypeDeposit, 3, 9, "2.5", res.records[3])

	var lines []int
	for _, e := range res.errs {
		lines = append(lines, e.Line)
	}
	assert.Equal(t, []int{3, 4, 5, 6, 7, 9, 10, 11}, lines)
}

func TestCSVQuoteErrorStaysOnItsLine(t *testing.T) {
	input := strings.Join([]string{
		"type,client,tx,amount",
		`deposit,1,1,"1.0`,
		"deposit,1,2,2.0",
		`"deposit",1,3,"3.0"`,
		"deposit,1,4,4.0",
	}, "\n")

	res := readAll(t, input)

	require.Len(t, res.errs, 1)
	assert.Equal(t, 2, res.errs[0].Line)

	require.Len(t, res.records, 3)
	assertRecord(t, models.TypeDeposit, 1, 2, "2", res.records[0])
	assertRecord(t, models.TypeDeposit, 1, 3, "3", res.records[1])
	assertRecord(t, models.TypeDeposit, 1, 4, "4", res.records[2])
}

func TestCSVCountsBlankLinesAndCRLF(t *testing.T) {
	input := "type,client,tx,amount\r\n\r\ndeposit,1,1,1.0\r\nbogus,1,2,1\r\n"

	res := readAll(t, input)

	require.Len(t, res.records, 1)
	assertRecord(t, models.TypeDeposit, 1, 1, "1", res.records[0])
	require.Len(t, res.errs, 1)
	assert.Equal(t, 4, res.errs[0].Line)
}

func TestCSVHeaderOnly(t *testing.T) {
	res := readAll(t, "type,client,tx,amount\n")
	assert.Empty(t, res.records)
	assert.Empty(t, res.errs)

	res = readAll(t, "")
	assert.Empty(t, res.records)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("device not ready")
}

func TestCSVReadFailureIsFatal(t *testing.T) {
	_, err := NewCSV(failingReader{}).Next(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrMalformedRecord)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestCSVStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSV(strings.NewReader("type,client,tx,amount\ndeposit,1,1,1\n")).Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
