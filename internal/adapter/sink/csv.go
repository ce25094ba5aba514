// Package sink writes projection snapshots.
package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/iho/goaccounts/internal/domain"
)

// CSVWriter emits the final projection as client,available,held,total,locked
// rows with fixed-precision amounts.
type CSVWriter struct {
	writer    *csv.Writer
	precision int32
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer, precision int32) *CSVWriter {
	return &CSVWriter{writer: csv.NewWriter(w), precision: precision}
}

// WriteAccounts writes the header and one row per account in the order
// given.
func (s *CSVWriter) WriteAccounts(ctx context.Context, accounts []*domain.Account) error {
	if err := s.writer.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, acc := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}

		record := []string{
			strconv.FormatUint(uint64(acc.Client), 10),
			acc.Available.StringFixed(s.precision),
			acc.Held.StringFixed(s.precision),
			acc.Total().StringFixed(s.precision),
			strconv.FormatBool(acc.Locked),
		}

		if err := s.writer.Write(record); err != nil {
			return fmt.Errorf("write account %d: %w", acc.Client, err)
		}
	}

	s.writer.Flush()

	return s.writer.Error()
}
