// Package domain contém as entidades de negócio do gateway KamiPay
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionState representa o estado de uma transação de pagamento
type TransactionState string

const (
	StateDraft    TransactionState = "draft"
	StatePending  TransactionState = "pending"
	StateDone     TransactionState = "done"
	StateCanceled TransactionState = "canceled"
	StateError    TransactionState = "error"
)

// ErrIllegalTransition indica uma tentativa de transição de estado inválida
var ErrIllegalTransition = errors.New("transação: transição de estado inválida")

// IsTerminal retorna true se o estado não admite mais transições
func (s TransactionState) IsTerminal() bool {
	return s == StateDone || s == StateCanceled || s == StateError
}

// Transaction representa uma tentativa de pagamento PIX via KamiPay
type Transaction struct {
	ID        string `json:"id"`
	Reference string `json:"reference"` // Referência única, imutável após criação

	ProviderCode string          `json:"provider_code"`
	Amount       decimal.Decimal `json:"amount"` // Valor em BRL
	Currency     string          `json:"currency"`

	// Campos preenchidos exatamente uma vez na criação da cobrança
	OperationID      string          `json:"operation_id,omitempty"`      // ID da cobrança na KamiPay
	SettlementAmount decimal.Decimal `json:"settlement_amount,omitempty"` // Valor em USDT
	ExchangeRate     decimal.Decimal `json:"exchange_rate,omitempty"`     // Taxa de conversão BRL/USDT
	QRPayload        string          `json:"qr_payload,omitempty"`        // Código EMV do QR

	// ProviderReference é o bank_txid informado nas notificações
	ProviderReference string `json:"provider_reference,omitempty"`

	State        TransactionState `json:"state"`
	StateMessage string           `json:"state_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTransaction cria uma nova transação em estado draft
func NewTransaction(reference string, amount decimal.Decimal) *Transaction {
	now := time.Now()
	return &Transaction{
		ID:           uuid.NewString(),
		Reference:    reference,
		ProviderCode: "kamipay",
		Amount:       amount,
		Currency:     "BRL",
		State:        StateDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasCharge retorna true se a cobrança já foi criada na KamiPay
func (t *Transaction) HasCharge() bool {
	return t.OperationID != ""
}

// SetPaymentInfo preenche os campos retornados pela criação da cobrança.
// Deve ser chamado no máximo uma vez por transação.
func (t *Transaction) SetPaymentInfo(operationID string, settlementAmount, rate decimal.Decimal, qrPayload string) error {
	if t.HasCharge() {
		return fmt.Errorf("transação %s já possui cobrança %s", t.Reference, t.OperationID)
	}
	t.OperationID = operationID
	t.SettlementAmount = settlementAmount
	t.ExchangeRate = rate
	t.QRPayload = qrPayload
	t.UpdatedAt = time.Now()
	return nil
}

// transition aplica uma transição validando as pré-condições do ciclo de vida.
// Transições são estritamente progressivas: nunca de volta para draft, e
// estados terminais não admitem saída. Reaplicar o estado atual é no-op,
// o que torna a reentrega de notificações idempotente.
func (t *Transaction) transition(target TransactionState, message string) error {
	if t.State == target {
		return nil
	}
	if t.State.IsTerminal() {
		return fmt.Errorf("%w: %s já está em %s", ErrIllegalTransition, t.Reference, t.State)
	}
	if target == StateDraft {
		return fmt.Errorf("%w: não é possível voltar para draft", ErrIllegalTransition)
	}
	if target == StatePending && t.State != StateDraft {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, t.State, target)
	}
	t.State = target
	t.StateMessage = message
	t.UpdatedAt = time.Now()
	return nil
}

// SetPending marca a transação como pendente (pagamento em processamento)
func (t *Transaction) SetPending(message string) error {
	return t.transition(StatePending, message)
}

// SetDone marca a transação como concluída
func (t *Transaction) SetDone(message string) error {
	return t.transition(StateDone, message)
}

// SetCanceled marca a transação como cancelada
func (t *Transaction) SetCanceled(message string) error {
	return t.transition(StateCanceled, message)
}

// SetError marca a transação como falha
func (t *Transaction) SetError(message string) error {
	return t.transition(StateError, message)
}
