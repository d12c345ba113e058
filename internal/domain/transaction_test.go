package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestTransaction(state TransactionState) *Transaction {
	tx := NewTransaction("REF-1", decimal.NewFromInt(100))
	tx.State = state
	return tx
}

func TestTransactionTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    TransactionState
		apply   func(*Transaction) error
		want    TransactionState
		wantErr bool
	}{
		{
			name:  "draft to pending",
			from:  StateDraft,
			apply: func(tx *Transaction) error { return tx.SetPending("processing") },
			want:  StatePending,
		},
		{
			name:  "draft to done",
			from:  StateDraft,
			apply: func(tx *Transaction) error { return tx.SetDone("confirmed") },
			want:  StateDone,
		},
		{
			name:  "pending to done",
			from:  StatePending,
			apply: func(tx *Transaction) error { return tx.SetDone("confirmed") },
			want:  StateDone,
		},
		{
			name:  "draft to canceled",
			from:  StateDraft,
			apply: func(tx *Transaction) error { return tx.SetCanceled("expired") },
			want:  StateCanceled,
		},
		{
			name:  "pending to error",
			from:  StatePending,
			apply: func(tx *Transaction) error { return tx.SetError("failed") },
			want:  StateError,
		},
		{
			name:    "done to canceled is illegal",
			from:    StateDone,
			apply:   func(tx *Transaction) error { return tx.SetCanceled("late expiry") },
			want:    StateDone,
			wantErr: true,
		},
		{
			name:    "canceled to done is illegal",
			from:    StateCanceled,
			apply:   func(tx *Transaction) error { return tx.SetDone("late confirm") },
			want:    StateCanceled,
			wantErr: true,
		},
		{
			name:    "error to pending is illegal",
			from:    StateError,
			apply:   func(tx *Transaction) error { return tx.SetPending("retry") },
			want:    StateError,
			wantErr: true,
		},
		{
			name:    "pending back to pending is a no-op",
			from:    StatePending,
			apply:   func(tx *Transaction) error { return tx.SetPending("again") },
			want:    StatePending,
			wantErr: false,
		},
		{
			name:    "done back to done is a no-op",
			from:    StateDone,
			apply:   func(tx *Transaction) error { return tx.SetDone("again") },
			want:    StateDone,
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := newTestTransaction(tt.from)
			err := tt.apply(tx)
			if (err != nil) != tt.wantErr {
				t.Errorf("transition error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("error = %v, want ErrIllegalTransition", err)
			}
			if tx.State != tt.want {
				t.Errorf("state = %v, want %v", tx.State, tt.want)
			}
		})
	}
}

func TestTransactionNoOpKeepsMessage(t *testing.T) {
	tx := newTestTransaction(StateDone)
	tx.StateMessage = "original"

	if err := tx.SetDone("replacement"); err != nil {
		t.Fatalf("SetDone() error = %v", err)
	}
	if tx.StateMessage != "original" {
		t.Errorf("StateMessage = %q, want %q", tx.StateMessage, "original")
	}
}

func TestSetPaymentInfo(t *testing.T) {
	tx := NewTransaction("REF-1", decimal.NewFromInt(100))

	amount := decimal.RequireFromString("18.52")
	rate := decimal.RequireFromString("5.40")
	if err := tx.SetPaymentInfo("OP-1", amount, rate, "00020126emv"); err != nil {
		t.Fatalf("SetPaymentInfo() error = %v", err)
	}

	if tx.OperationID != "OP-1" {
		t.Errorf("OperationID = %v, want OP-1", tx.OperationID)
	}
	if !tx.SettlementAmount.Equal(amount) {
		t.Errorf("SettlementAmount = %v, want %v", tx.SettlementAmount, amount)
	}
	if !tx.HasCharge() {
		t.Error("HasCharge() = false after SetPaymentInfo")
	}

	// Segunda tentativa deve falhar: campos preenchidos uma única vez
	if err := tx.SetPaymentInfo("OP-2", amount, rate, "outro"); err == nil {
		t.Error("SetPaymentInfo() second call should fail")
	}
	if tx.OperationID != "OP-1" {
		t.Errorf("OperationID overwritten to %v", tx.OperationID)
	}
}

func TestNewTransactionDefaults(t *testing.T) {
	tx := NewTransaction("REF-9", decimal.NewFromInt(50))

	if tx.State != StateDraft {
		t.Errorf("State = %v, want draft", tx.State)
	}
	if tx.ProviderCode != "kamipay" {
		t.Errorf("ProviderCode = %v, want kamipay", tx.ProviderCode)
	}
	if tx.Currency != "BRL" {
		t.Errorf("Currency = %v, want BRL", tx.Currency)
	}
	if tx.ID == "" {
		t.Error("ID must be generated")
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		state TransactionState
		want  bool
	}{
		{StateDraft, false},
		{StatePending, false},
		{StateDone, true},
		{StateCanceled, true},
		{StateError, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
