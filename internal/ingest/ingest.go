// Package ingest decodes delimited transaction records and feeds them to a
// ledger engine in stream order.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/congo-pay/txengine/internal/events"
	"github.com/congo-pay/txengine/internal/ledger"
	"github.com/congo-pay/txengine/internal/money"
)

var (
	// ErrSourceUnavailable is returned when the input cannot be opened. It is
	// the only failure that stops a pass, and it does so before any row.
	ErrSourceUnavailable = errors.New("transaction source unavailable")

	// ErrMalformedRow marks a row whose fields could not be decoded.
	ErrMalformedRow = errors.New("malformed row")
)

// Stats summarises one pass over a source.
type Stats struct {
	Rows     int
	Accepted int
	Rejected int
	Skipped  int
}

// Open opens a CSV file for Process.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return f, nil
}

// Process reads every data row of r and applies it to e. The first record is
// a header and is skipped. Rows whose fields do not decode are reported to
// sink as events.ExternalErr and skipped, and so are records the CSV reader
// cannot split; ledger rejections are reported by the engine itself. Only a
// failing reader or a cancelled ctx ends the pass early.
func Process(ctx context.Context, r io.Reader, e *ledger.Engine, sink events.Sink) (Stats, error) {
	if sink == nil {
		sink = events.Nop
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	var stats Stats
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		return stats, fmt.Errorf("read header: %w", err)
	}

	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			stats.Rows++
			stats.Skipped++
			sink.Record(events.ExternalErr(fmt.Sprintf("row %d: %v", index, err)))
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("read row %d: %w", index, err)
		}
		stats.Rows++

		row, err := Decode(record)
		if err != nil {
			stats.Skipped++
			sink.Record(events.ExternalErr(fmt.Sprintf("row %d: %v", index, err)))
			continue
		}

		if err := e.ApplyAt(index, row); err != nil {
			stats.Rejected++
			continue
		}
		stats.Accepted++
	}
}

// Decode turns one record of type, client, tx and optional amount into a
// ledger row. The type string is passed through untouched apart from trimming
// so unknown types reach the engine.
func Decode(record []string) (ledger.Row, error) {
	if len(record) < 3 {
		return ledger.Row{}, fmt.Errorf("%w: want at least 3 fields, got %d", ErrMalformedRow, len(record))
	}

	row := ledger.Row{Type: strings.TrimSpace(record[0])}

	client, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 16)
	if err != nil {
		return ledger.Row{}, fmt.Errorf("%w: client: %w", ErrMalformedRow, err)
	}
	row.Client = uint16(client)

	tx, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
	if err != nil {
		return ledger.Row{}, fmt.Errorf("%w: tx: %w", ErrMalformedRow, err)
	}
	row.TxID = uint32(tx)

	if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
		amount, err := money.Parse(record[3])
		if err != nil {
			return ledger.Row{}, fmt.Errorf("%w: amount: %w", ErrMalformedRow, err)
		}
		row.Amount = amount
		row.HasAmount = true
	}

	if ledger.TxType(row.Type).RequiresAmount() && !row.HasAmount {
		return ledger.Row{}, fmt.Errorf("%w: %s %d has no amount", ErrMalformedRow, row.Type, row.TxID)
	}

	return row, nil
}
