// Package ports define as interfaces (portas) para adaptadores externos
// Seguindo o padrão Hexagonal Architecture / Ports & Adapters
package ports

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/comercio360/kamipay-gateway/internal/domain"
)

// ErrNotFound é retornado pelos stores quando o registro não existe
var ErrNotFound = errors.New("registro não encontrado")

// ──────────────────────────────────────────────
// KamiPay (provedor PIX) types
// ──────────────────────────────────────────────

// ChargeRequest representa uma requisição para criar cobrança PIX dinâmica
type ChargeRequest struct {
	WalletAddress     string          // Endereço USDT de destino
	Amount            decimal.Decimal // Valor em BRL
	ExternalReference string          // Referência da transação local
	ExpireSeconds     int             // Janela de expiração do QR (600s)
}

// ChargeResponse representa a resposta da criação de cobrança
type ChargeResponse struct {
	OperationID      string          // ID da operação na KamiPay
	SettlementAmount decimal.Decimal // Valor em USDT
	ExchangeRate     decimal.Decimal // Taxa BRL/USDT aplicada
	QRPayload        string          // Código EMV do QR
}

// StatusResponse representa o envelope da consulta de status
type StatusResponse struct {
	Status string                 // Status do envelope ("ok" | "error")
	Data   map[string]interface{} // Dados da operação, incluindo data["status"]
}

// ──────────────────────────────────────────────
// Provider interface
// ──────────────────────────────────────────────

// ChargeProvider define a interface para o provedor de cobranças KamiPay
type ChargeProvider interface {
	// CreateCharge cria uma cobrança PIX dinâmica e retorna os campos
	// necessários para popular a transação
	CreateCharge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error)

	// QueryStatus consulta o status de uma operação pelo operation_id
	QueryStatus(ctx context.Context, operationID string) (*StatusResponse, error)

	// PushEmulatorWebhook envia um evento sintético ao emulador da KamiPay
	// (disponível apenas em sandbox)
	PushEmulatorWebhook(ctx context.Context, event map[string]interface{}) error
}

// ──────────────────────────────────────────────
// Store interfaces (colaboradores do framework hospedeiro)
// ──────────────────────────────────────────────

// TransactionStore define a persistência de transações
type TransactionStore interface {
	// ByID busca uma transação pelo id local
	ByID(ctx context.Context, id string) (*domain.Transaction, error)

	// ByOperationID busca pela operação KamiPay (chave de correlação das notificações)
	ByOperationID(ctx context.Context, operationID string) (*domain.Transaction, error)

	// ByReference busca pela referência única da transação
	ByReference(ctx context.Context, reference string) (*domain.Transaction, error)

	// Create persiste uma nova transação
	Create(ctx context.Context, tx *domain.Transaction) error

	// SavePaymentInfo persiste os campos da cobrança criada
	// (operation_id, valores, taxa e código EMV)
	SavePaymentInfo(ctx context.Context, tx *domain.Transaction) error

	// SaveState persiste atomicamente estado, mensagem e provider_reference
	SaveState(ctx context.Context, tx *domain.Transaction) error
}

// ProviderStore define a persistência da configuração de provedores
type ProviderStore interface {
	// ByCode busca a configuração do provedor pelo código
	ByCode(ctx context.Context, code string) (*domain.ProviderConfig, error)
}

// OrderStore define a persistência de pedidos vinculados
type OrderStore interface {
	// ByTransaction lista os pedidos vinculados a uma transação
	ByTransaction(ctx context.Context, txID string) ([]*domain.Order, error)

	// SaveStatus persiste o status de um pedido
	SaveStatus(ctx context.Context, order *domain.Order) error
}
