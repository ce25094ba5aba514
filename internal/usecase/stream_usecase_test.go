package usecase_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
	"github.com/iho/goaccounts/internal/usecase/mocks"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func deposit(client domain.ClientID, tx domain.TransactionID, amount string) domain.Command {
	return domain.Command{Kind: domain.CommandDeposit, Client: client, Tx: tx, Amount: amt(amount)}
}

func withdrawal(client domain.ClientID, tx domain.TransactionID, amount string) domain.Command {
	return domain.Command{Kind: domain.CommandWithdrawal, Client: client, Tx: tx, Amount: amt(amount)}
}

func dispute(client domain.ClientID, tx domain.TransactionID) domain.Command {
	return domain.Command{Kind: domain.CommandDispute, Client: client, Tx: tx}
}

func resolve(client domain.ClientID, tx domain.TransactionID) domain.Command {
	return domain.Command{Kind: domain.CommandResolve, Client: client, Tx: tx}
}

func chargeback(client domain.ClientID, tx domain.TransactionID) domain.Command {
	return domain.Command{Kind: domain.CommandChargeback, Client: client, Tx: tx}
}

func newEngine(sink usecase.EventSink, opts usecase.StreamOptions) *usecase.StreamUseCase {
	return usecase.NewStreamUseCase(sink, mocks.NewSequenceIDGenerator(), nil, zerolog.Nop(), opts)
}

func TestStreamUseCase_Process(t *testing.T) {
	tests := []struct {
		name          string
		opts          usecase.StreamOptions
		commands      []domain.Command
		client        domain.ClientID
		wantAvailable string
		wantHeld      string
		wantLocked    bool
		wantRejected  int
		wantReasons   map[domain.RejectReason]int
	}{
		{
			name: "deposits and withdrawals settle",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "100.5"),
				withdrawal(1, 2, "40.25"),
			},
			client:        1,
			wantAvailable: "60.25",
			wantHeld:      "0",
		},
		{
			name: "over-withdrawal rejected and balance unchanged",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "50"),
				withdrawal(1, 2, "50.0001"),
			},
			client:        1,
			wantAvailable: "50",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonInsufficientFunds: 1},
		},
		{
			name: "dispute moves funds to held",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				deposit(1, 2, "5"),
				dispute(1, 1),
			},
			client:        1,
			wantAvailable: "5",
			wantHeld:      "10",
		},
		{
			name: "second dispute of same transaction rejected",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				dispute(1, 1),
				dispute(1, 1),
			},
			client:        1,
			wantAvailable: "0",
			wantHeld:      "10",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonAlreadyDisputed: 1},
		},
		{
			name: "resolve returns held funds",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				dispute(1, 1),
				resolve(1, 1),
			},
			client:        1,
			wantAvailable: "10",
			wantHeld:      "0",
		},
		{
			name: "resolved transaction can be disputed again",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				dispute(1, 1),
				resolve(1, 1),
				dispute(1, 1),
			},
			client:        1,
			wantAvailable: "0",
			wantHeld:      "10",
		},
		{
			name: "resolve of undisputed transaction rejected",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				resolve(1, 1),
			},
			client:        1,
			wantAvailable: "10",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonNotDisputed: 1},
		},
		{
			name: "dispute of unknown transaction rejected",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				dispute(1, 99),
			},
			client:        1,
			wantAvailable: "10",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonUnknownTransaction: 1},
		},
		{
			name: "dispute of another client's transaction rejected",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				dispute(2, 1),
			},
			client:        1,
			wantAvailable: "10",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonClientMismatch: 1},
		},
		{
			name: "chargeback removes held funds and locks the account",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				deposit(1, 2, "5"),
				dispute(1, 1),
				chargeback(1, 1),
			},
			client:        1,
			wantAvailable: "5",
			wantHeld:      "0",
			wantLocked:    true,
		},
		{
			name: "locked account rejects every later command",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				dispute(1, 1),
				chargeback(1, 1),
				deposit(1, 2, "5"),
				withdrawal(1, 3, "1"),
				dispute(1, 2),
			},
			client:        1,
			wantAvailable: "0",
			wantHeld:      "0",
			wantLocked:    true,
			wantRejected:  3,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonAccountLocked: 3},
		},
		{
			name: "duplicate transaction id rejected",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "10"),
				deposit(1, 1, "10"),
			},
			client:        1,
			wantAvailable: "10",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonDuplicateTransaction: 1},
		},
		{
			name: "zero amount deposit rejected",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "0"),
			},
			client:        1,
			wantAvailable: "0",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonNonPositiveAmount: 1},
		},
		{
			name: "withdrawal disputable by default",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "100"),
				withdrawal(1, 2, "40"),
				dispute(1, 2),
			},
			client:        1,
			wantAvailable: "20",
			wantHeld:      "40",
		},
		{
			name: "withdrawal dispute rejected when policy restricts to deposits",
			opts: usecase.StreamOptions{WithdrawalDisputes: false, EvictOnLock: true},
			commands: []domain.Command{
				deposit(1, 1, "100"),
				withdrawal(1, 2, "40"),
				dispute(1, 2),
			},
			client:        1,
			wantAvailable: "60",
			wantHeld:      "0",
			wantRejected:  1,
			wantReasons:   map[domain.RejectReason]int{domain.ReasonNotDisputable: 1},
		},
		{
			name: "dispute may drive available negative",
			opts: usecase.DefaultStreamOptions(),
			commands: []domain.Command{
				deposit(1, 1, "50"),
				withdrawal(1, 2, "40"),
				dispute(1, 1),
			},
			client:        1,
			wantAvailable: "-40",
			wantHeld:      "50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := mocks.NewRecordingSink()
			uc := newEngine(sink, tt.opts)

			report, err := uc.Process(context.Background(), mocks.NewScriptedSource(tt.commands...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if report.Commands != len(tt.commands) {
				t.Errorf("expected %d commands, got %d", len(tt.commands), report.Commands)
			}

			if report.Rejected != tt.wantRejected {
				t.Errorf("expected %d rejections, got %d", tt.wantRejected, report.Rejected)
			}

			for reason, want := range tt.wantReasons {
				if got := report.RejectedByReason[reason]; got != want {
					t.Errorf("expected %d rejections for %s, got %d", want, reason, got)
				}
			}

			acc, ok := uc.Store().Get(tt.client)
			if !ok {
				t.Fatalf("client %d missing from projection", tt.client)
			}

			if !acc.Available.Equal(amt(tt.wantAvailable)) {
				t.Errorf("expected available %s, got %s", tt.wantAvailable, acc.Available)
			}

			if !acc.Held.Equal(amt(tt.wantHeld)) {
				t.Errorf("expected held %s, got %s", tt.wantHeld, acc.Held)
			}

			if acc.Locked != tt.wantLocked {
				t.Errorf("expected locked=%v, got %v", tt.wantLocked, acc.Locked)
			}

			if got := len(sink.Events()); got != len(tt.commands) {
				t.Errorf("expected one event per command, got %d for %d commands", got, len(tt.commands))
			}
		})
	}
}

func TestStreamUseCase_ProcessMalformedRecordsSkipped(t *testing.T) {
	records := []struct {
		cmd domain.Command
		err error
	}{
		{cmd: deposit(1, 1, "10")},
		{err: &domain.RecordError{Line: 3, Err: errors.New("bad amount")}},
		{cmd: deposit(2, 2, "20")},
		{err: &domain.RecordError{Line: 5, Err: errors.New("unknown kind")}},
	}

	pos := 0
	source := &mocks.ScriptedSource{}
	source.NextFunc = func(ctx context.Context) (domain.Command, error) {
		if pos >= len(records) {
			return domain.Command{}, io.EOF
		}
		rec := records[pos]
		pos++
		if rec.err != nil {
			return domain.Command{}, rec.err
		}
		return rec.cmd, nil
	}

	uc := newEngine(mocks.NewRecordingSink(), usecase.DefaultStreamOptions())

	report, err := uc.Process(context.Background(), source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Malformed != 2 {
		t.Errorf("expected 2 malformed records, got %d", report.Malformed)
	}

	if report.Commands != 2 {
		t.Errorf("expected 2 commands, got %d", report.Commands)
	}

	if report.Accounts != 2 {
		t.Errorf("expected 2 accounts, got %d", report.Accounts)
	}
}

func TestStreamUseCase_ProcessFatalSourceError(t *testing.T) {
	fatal := errors.New("disk gone")

	source := &mocks.ScriptedSource{}
	source.NextFunc = func(ctx context.Context) (domain.Command, error) {
		return domain.Command{}, fatal
	}

	uc := newEngine(mocks.NewRecordingSink(), usecase.DefaultStreamOptions())

	_, err := uc.Process(context.Background(), source)
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal source error, got %v", err)
	}
}

func TestStreamUseCase_ProcessFatalSinkError(t *testing.T) {
	fatal := errors.New("sink closed")

	sink := mocks.NewRecordingSink()
	sink.AppendFunc = func(ctx context.Context, ev domain.Event) error {
		return fatal
	}

	uc := newEngine(sink, usecase.DefaultStreamOptions())

	_, err := uc.Process(context.Background(), mocks.NewScriptedSource(deposit(1, 1, "10")))
	if !errors.Is(err, fatal) {
		t.Errorf("expected fatal sink error, got %v", err)
	}
}

func TestStreamUseCase_ProcessContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := newEngine(mocks.NewRecordingSink(), usecase.DefaultStreamOptions())

	_, err := uc.Process(ctx, mocks.NewScriptedSource(deposit(1, 1, "10")))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStreamUseCase_LedgerEvictedWhenAccountLocks(t *testing.T) {
	commands := []domain.Command{
		deposit(1, 1, "10"),
		deposit(1, 2, "20"),
		deposit(1, 3, "30"),
		deposit(2, 4, "40"),
		dispute(1, 2),
		chargeback(1, 2),
	}

	uc := newEngine(mocks.NewRecordingSink(), usecase.DefaultStreamOptions())

	report, err := uc.Process(context.Background(), mocks.NewScriptedSource(commands...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// only client 2's single entry survives the lock
	if report.LedgerEntries != 1 {
		t.Errorf("expected 1 live ledger entry, got %d", report.LedgerEntries)
	}

	if report.LockedAccounts != 1 {
		t.Errorf("expected 1 locked account, got %d", report.LockedAccounts)
	}
}

func TestStreamUseCase_ConservationAcrossDisputeCycles(t *testing.T) {
	commands := []domain.Command{
		deposit(1, 1, "100"),
		deposit(1, 2, "50.5"),
		withdrawal(1, 3, "30"),
		dispute(1, 1),
		resolve(1, 1),
		dispute(1, 2),
		dispute(1, 1),
		resolve(1, 2),
		resolve(1, 1),
	}

	uc := newEngine(mocks.NewRecordingSink(), usecase.DefaultStreamOptions())

	if _, err := uc.Process(context.Background(), mocks.NewScriptedSource(commands...)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, _ := uc.Store().Get(1)

	// net deposits minus withdrawals, untouched by dispute cycling
	if !acc.Total().Equal(amt("120.5")) {
		t.Errorf("expected total 120.5, got %s", acc.Total())
	}

	if !acc.Held.IsZero() {
		t.Errorf("expected held 0 after all resolves, got %s", acc.Held)
	}
}

func TestStreamUseCase_ReplayReproducesProjection(t *testing.T) {
	commands := []domain.Command{
		deposit(1, 1, "10"),
		deposit(2, 2, "99.99"),
		withdrawal(1, 3, "4"),
		dispute(1, 1),
		chargeback(1, 1),
		withdrawal(1, 4, "1"),
		dispute(2, 99),
	}

	sink := mocks.NewRecordingSink()
	uc := newEngine(sink, usecase.DefaultStreamOptions())

	if _, err := uc.Process(context.Background(), mocks.NewScriptedSource(commands...)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	replay := usecase.NewReplayUseCase()

	report, err := replay.Verify(context.Background(), sink.Source(), uc.Store())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Deterministic() {
		t.Errorf("expected deterministic replay, diverged: %+v", report.Divergences)
	}

	if report.Events != len(commands) {
		t.Errorf("expected %d events replayed, got %d", len(commands), report.Events)
	}
}

func TestStreamUseCase_AppendsEveryEvent(t *testing.T) {
	ctrl := gomock.NewController(t)

	sink := mocks.NewMockEventSink(ctrl)
	sink.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	idGen := mocks.NewMockIDGenerator(ctrl)
	idGen.EXPECT().Generate().Return("01J0000000000000000000000").Times(3)

	uc := usecase.NewStreamUseCase(sink, idGen, nil, zerolog.Nop(), usecase.DefaultStreamOptions())

	commands := []domain.Command{
		deposit(1, 1, "10"),
		withdrawal(1, 2, "3"),
		withdrawal(1, 3, "100"), // rejected, still emitted
	}

	if _, err := uc.Process(context.Background(), mocks.NewScriptedSource(commands...)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
