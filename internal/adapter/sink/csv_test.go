package sink

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCSVWriter_WriteAccounts(t *testing.T) {
	accounts := []*domain.Account{
		{Client: 1, Available: amt("1.5"), Held: amt("0")},
		{Client: 2, Available: amt("-40"), Held: amt("50.1234")},
		{Client: 3, Available: amt("2"), Held: amt("0"), Locked: true},
	}

	var buf strings.Builder
	w := NewCSVWriter(&buf, 4)

	if err := w.WriteAccounts(context.Background(), accounts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := strings.Join([]string{
		"client,available,held,total,locked",
		"1,1.5000,0.0000,1.5000,false",
		"2,-40.0000,50.1234,10.1234,false",
		"3,2.0000,0.0000,2.0000,true",
		"",
	}, "\n")

	if buf.String() != want {
		t.Errorf("unexpected output:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestCSVWriter_EmptyProjection(t *testing.T) {
	var buf strings.Builder
	w := NewCSVWriter(&buf, 4)

	if err := w.WriteAccounts(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf.String() != "client,available,held,total,locked\n" {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestCSVWriter_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf strings.Builder
	w := NewCSVWriter(&buf, 4)

	err := w.WriteAccounts(ctx, []*domain.Account{{Client: 1}})
	if err == nil {
		t.Fatal("expected context error")
	}
}
