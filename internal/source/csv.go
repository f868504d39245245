package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	interfaces "github.com/sheikh-saqib/transaction-ledger/internal/interfaces"
	"github.com/sheikh-saqib/transaction-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// ParseError reports a line of input that is not a valid record.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// CSV reads records from delimited text with the columns type, client, tx,
// amount. The first line is a header and is skipped. Fields are trimmed and the
// amount column may be left out for records that do not move funds.
//
// Each physical line is split on its own, so a quoting error never spills into
// the lines after it.
type CSV struct {
	r          *bufio.Reader
	line       int
	headerRead bool
}

func NewCSV(r io.Reader) *CSV {
	return &CSV{r: bufio.NewReader(r)}
}

// Next returns the next record in file order, io.EOF at the end of input, or a
// *ParseError wrapping models.ErrMalformedRecord for a line that cannot be used.
func (c *CSV) Next(ctx context.Context) (models.Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Record{}, err
		}

		text, err := c.r.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return models.Record{}, err
		}
		if text == "" {
			return models.Record{}, io.EOF
		}
		c.line++

		text = strings.TrimRight(text, "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		header := !c.headerRead
		c.headerRead = true
		if header {
			continue
		}

		fields, err := splitLine(text)
		if err != nil {
			return models.Record{}, &ParseError{
				Line: c.line,
				Err:  fmt.Errorf("%w: %v", models.ErrMalformedRecord, err),
			}
		}
		rec, err := parseRecord(fields)
		if err != nil {
			return models.Record{}, &ParseError{Line: c.line, Err: err}
		}
		return rec, nil
	}
}

// splitLine splits a single line into fields with the usual quoting rules.
func splitLine(line string) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	fields, err := cr.Read()
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return nil, perr.Err
	}
	return fields, err
}

func parseRecord(fields []string) (models.Record, error) {
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 {
		return models.Record{}, fmt.Errorf("%w: expected at least 3 fields, got %d", models.ErrMalformedRecord, len(fields))
	}

	typ, err := models.ParseRecordType(fields[0])
	if err != nil {
		return models.Record{}, err
	}
	client, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: client %q: %v", models.ErrMalformedRecord, fields[1], err)
	}
	tx, err := strconv.ParseUint(fields[2], 10, 32)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: tx %q: %v", models.ErrMalformedRecord, fields[2], err)
	}

	rec := models.Record{
		Type:     typ,
		ClientID: uint16(client),
		TxID:     uint32(tx),
	}
	if typ.MovesFunds() && len(fields) > 3 && fields[3] != "" {
		amount, err := decimal.NewFromString(fields[3])
		if err != nil {
			return models.Record{}, fmt.Errorf("%w: amount %q: %v", models.ErrMalformedRecord, fields[3], err)
		}
		rec.Amount = decimal.NewNullDecimal(amount)
	}
	if err := rec.Validate(); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

var _ interfaces.RecordSource = (*CSV)(nil)
