// Package source reads command streams.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
)

// CSVSource yields commands from a CSV stream with columns
// type,client,tx,amount. A record that cannot be parsed surfaces as
// *domain.RecordError and the reader moves on to the next record;
// only underlying I/O failures end the stream early.
type CSVSource struct {
	reader    *csv.Reader
	precision int32
	line      int
}

// NewCSVSource wraps r. Amounts are truncated to precision fractional
// digits.
func NewCSVSource(r io.Reader, precision int32) *CSVSource {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	// dispute-family records may carry 3 fields, monetary records 4
	cr.FieldsPerRecord = -1

	return &CSVSource{reader: cr, precision: precision}
}

// Next returns the next command, io.EOF at end of stream.
func (s *CSVSource) Next(ctx context.Context) (domain.Command, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.Command{}, err
		}

		record, err := s.reader.Read()
		if errors.Is(err, io.EOF) {
			return domain.Command{}, io.EOF
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			s.line++
			return domain.Command{}, &domain.RecordError{Line: parseErr.Line, Err: err}
		}

		if err != nil {
			return domain.Command{}, err
		}

		s.line++

		if s.line == 1 && isHeader(record) {
			continue
		}

		cmd, err := s.parse(record)
		if err != nil {
			return domain.Command{}, &domain.RecordError{Line: s.line, Err: err}
		}

		return cmd, nil
	}
}

func (s *CSVSource) parse(record []string) (domain.Command, error) {
	if len(record) < 3 || len(record) > 4 {
		return domain.Command{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(record))
	}

	kind, err := domain.ParseCommandKind(record[0])
	if err != nil {
		return domain.Command{}, err
	}

	client, err := strconv.ParseUint(strings.TrimSpace(record[1]), 10, 16)
	if err != nil {
		return domain.Command{}, fmt.Errorf("client: %w", err)
	}

	tx, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
	if err != nil {
		return domain.Command{}, fmt.Errorf("tx: %w", err)
	}

	cmd := domain.Command{
		Kind:   kind,
		Client: domain.ClientID(client),
		Tx:     domain.TransactionID(tx),
	}

	// dispute-family records ignore the amount column; a missing or blank
	// amount on a monetary record parses as zero and is rejected downstream
	if kind.Monetary() && len(record) == 4 {
		raw := strings.TrimSpace(record[3])
		if raw != "" {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return domain.Command{}, fmt.Errorf("amount: %w", err)
			}
			cmd.Amount = amount.Truncate(s.precision)
		}
	}

	return cmd, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "type")
}
