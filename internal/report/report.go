// Package report renders the final account snapshot.
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/sheikh-saqib/transaction-ledger/internal/models"
)

var header = []string{"client", "available", "held", "total", "locked"}

// Write emits one CSV line per account, in the order given, after a header.
// Amounts are printed with exactly scale decimal places.
func Write(w io.Writer, accounts []models.Account, scale int32) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range accounts {
		row := []string{
			strconv.FormatUint(uint64(a.ClientID), 10),
			a.Available.StringFixed(scale),
			a.Held.StringFixed(scale),
			a.Total().StringFixed(scale),
			strconv.FormatBool(a.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
