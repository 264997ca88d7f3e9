// Package report renders the final account table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/congo-pay/txengine/internal/ledger"
	"github.com/congo-pay/txengine/internal/money"
)

// Header is the column order of the CSV report.
var Header = []string{"client", "available", "held", "total", "locked"}

// Line is one client's row of the report, amounts already formatted.
type Line struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// Rows formats accounts in ascending client order.
func Rows(accounts map[uint16]ledger.Account) []Line {
	ids := make([]uint16, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	lines := make([]Line, 0, len(ids))
	for _, id := range ids {
		acct := accounts[id]
		lines = append(lines, Line{
			Client:    id,
			Available: money.Format(acct.Available),
			Held:      money.Format(acct.Held),
			Total:     money.Format(acct.Total()),
			Locked:    acct.Locked,
		})
	}
	return lines
}

// WriteCSV writes the report with a header row.
func WriteCSV(w io.Writer, accounts map[uint16]ledger.Account) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, line := range Rows(accounts) {
		record := []string{
			strconv.FormatUint(uint64(line.Client), 10),
			line.Available,
			line.Held,
			line.Total,
			strconv.FormatBool(line.Locked),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write client %d: %w", line.Client, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
