package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
)

func seedTx(t *testing.T, store *MemoryStore, reference string) *domain.Transaction {
	t.Helper()
	tx := domain.NewTransaction(reference, decimal.NewFromInt(100))
	if err := store.Create(context.Background(), tx); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tx
}

func TestMemoryStoreLookups(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tx := seedTx(t, store, "REF-1")
	if err := tx.SetPaymentInfo("OP-1", decimal.Zero, decimal.Zero, "emv"); err != nil {
		t.Fatalf("SetPaymentInfo() error = %v", err)
	}
	if err := store.SavePaymentInfo(ctx, tx); err != nil {
		t.Fatalf("SavePaymentInfo() error = %v", err)
	}

	byID, err := store.ByID(ctx, tx.ID)
	if err != nil || byID.Reference != "REF-1" {
		t.Errorf("ByID() = %v, %v", byID, err)
	}
	byOp, err := store.ByOperationID(ctx, "OP-1")
	if err != nil || byOp.ID != tx.ID {
		t.Errorf("ByOperationID() = %v, %v", byOp, err)
	}
	byRef, err := store.ByReference(ctx, "REF-1")
	if err != nil || byRef.ID != tx.ID {
		t.Errorf("ByReference() = %v, %v", byRef, err)
	}

	if _, err := store.ByID(ctx, "nope"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("ByID(desconhecido) error = %v, want ErrNotFound", err)
	}
	if _, err := store.ByOperationID(ctx, ""); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("ByOperationID(vazio) error = %v, want ErrNotFound", err)
	}
}

// SavePaymentInfo é preenche-uma-vez: um segundo preenchimento concorrente
// mantém a cobrança existente e recarrega a transação do chamador
func TestSavePaymentInfoKeepsFirstCharge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedTx(t, store, "REF-1")

	first, _ := store.ByID(ctx, seeded.ID)
	second, _ := store.ByID(ctx, seeded.ID)

	if err := first.SetPaymentInfo("OP-1", decimal.Zero, decimal.Zero, "emv-1"); err != nil {
		t.Fatalf("SetPaymentInfo() error = %v", err)
	}
	if err := store.SavePaymentInfo(ctx, first); err != nil {
		t.Fatalf("SavePaymentInfo() error = %v", err)
	}

	if err := second.SetPaymentInfo("OP-2", decimal.Zero, decimal.Zero, "emv-2"); err != nil {
		t.Fatalf("SetPaymentInfo() error = %v", err)
	}
	if err := store.SavePaymentInfo(ctx, second); err != nil {
		t.Fatalf("SavePaymentInfo() concorrente error = %v", err)
	}

	// O perdedor da corrida herda a cobrança já gravada
	if second.OperationID != "OP-1" {
		t.Errorf("operation_id do perdedor = %q, want OP-1", second.OperationID)
	}
	stored, _ := store.ByID(ctx, seeded.ID)
	if stored.OperationID != "OP-1" || stored.QRPayload != "emv-1" {
		t.Errorf("cobrança armazenada = %q/%q, want OP-1/emv-1", stored.OperationID, stored.QRPayload)
	}
}

// Uma transição que perde a corrida para um estado terminal vira no-op e o
// chamador enxerga o estado vencedor
func TestSaveStateLostRaceIsNoOp(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedTx(t, store, "REF-1")

	webhook, _ := store.ByID(ctx, seeded.ID)
	poll, _ := store.ByID(ctx, seeded.ID)

	if err := webhook.SetDone("confirmado"); err != nil {
		t.Fatalf("SetDone() error = %v", err)
	}
	if err := store.SaveState(ctx, webhook); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	// O poll ainda via draft e tenta cancelar
	if err := poll.SetCanceled("expirado"); err != nil {
		t.Fatalf("SetCanceled() error = %v", err)
	}
	if err := store.SaveState(ctx, poll); err != nil {
		t.Fatalf("SaveState() perdedor error = %v", err)
	}

	if poll.State != domain.StateDone {
		t.Errorf("estado do perdedor = %v, want done", poll.State)
	}
	stored, _ := store.ByID(ctx, seeded.ID)
	if stored.State != domain.StateDone {
		t.Errorf("estado armazenado = %v, want done", stored.State)
	}
}

func TestSaveStatePersistsProviderReference(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	seeded := seedTx(t, store, "REF-1")

	tx, _ := store.ByID(ctx, seeded.ID)
	tx.ProviderReference = "BTX-1"
	if err := tx.SetPending("processando"); err != nil {
		t.Fatalf("SetPending() error = %v", err)
	}
	if err := store.SaveState(ctx, tx); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	stored, _ := store.ByID(ctx, seeded.ID)
	if stored.ProviderReference != "BTX-1" {
		t.Errorf("provider_reference = %q, want BTX-1", stored.ProviderReference)
	}
	if stored.State != domain.StatePending {
		t.Errorf("state = %v, want pending", stored.State)
	}
}

func TestOrderStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.PutOrder(&domain.Order{ID: "o1", TransactionID: "t1", Name: "SO001", Status: domain.OrderStatusDraft})

	orders, err := store.ByTransaction(ctx, "t1")
	if err != nil || len(orders) != 1 {
		t.Fatalf("ByTransaction() = %v, %v", orders, err)
	}

	orders[0].Confirm()
	if err := store.SaveStatus(ctx, orders[0]); err != nil {
		t.Fatalf("SaveStatus() error = %v", err)
	}

	reloaded, _ := store.ByTransaction(ctx, "t1")
	if reloaded[0].Status != domain.OrderStatusConfirmed {
		t.Errorf("status = %v, want confirmed", reloaded[0].Status)
	}

	if err := store.SaveStatus(ctx, &domain.Order{ID: "nope", TransactionID: "t1"}); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("SaveStatus(desconhecido) error = %v, want ErrNotFound", err)
	}
}
