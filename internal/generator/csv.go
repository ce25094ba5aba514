package generator

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
)

// WriteCSV drains src and renders each command as a CSV record with a
// header row, in the column order the stream reader expects.
// Dispute-family records carry a blank amount column.
func WriteCSV(ctx context.Context, w io.Writer, src usecase.CommandSource) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"type", "client", "tx", "amount"}); err != nil {
		return err
	}

	for {
		cmd, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}

		record := []string{
			string(cmd.Kind),
			strconv.FormatUint(uint64(cmd.Client), 10),
			strconv.FormatUint(uint64(cmd.Tx), 10),
			"",
		}

		if cmd.Kind.Monetary() {
			record[3] = cmd.Amount.StringFixed(domain.DefaultAmountPrecision)
		}

		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
