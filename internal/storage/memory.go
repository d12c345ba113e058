// Package storage implementa os stores de transações, provedores e
// pedidos sobre MongoDB, além de uma variante em memória usada em
// desenvolvimento e nos testes.
package storage

import (
	"context"
	"sync"

	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
)

// MemoryStore mantém transações, provedores e pedidos em memória.
// Thread-safe; as transições de estado são validadas sob o mesmo lock,
// o que dá a atomicidade de leitura-modificação-escrita exigida quando
// webhook e poll correm em paralelo.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction // por id
	providers    map[string]*domain.ProviderConfig
	orders       map[string][]*domain.Order // por transaction id
}

// NewMemoryStore cria um novo store em memória
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[string]*domain.Transaction),
		providers:    make(map[string]*domain.ProviderConfig),
		orders:       make(map[string][]*domain.Order),
	}
}

// ByID busca uma transação pelo id local
func (s *MemoryStore) ByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// ByOperationID busca uma transação pela operação KamiPay
func (s *MemoryStore) ByOperationID(_ context.Context, operationID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.OperationID != "" && tx.OperationID == operationID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ports.ErrNotFound
}

// ByReference busca uma transação pela referência única
func (s *MemoryStore) ByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.Reference == reference {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, ports.ErrNotFound
}

// Create persiste uma nova transação
func (s *MemoryStore) Create(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tx
	s.transactions[tx.ID] = &cp
	return nil
}

// SavePaymentInfo persiste os campos da cobrança criada, uma única vez
func (s *MemoryStore) SavePaymentInfo(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.transactions[tx.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if stored.OperationID != "" {
		// Já preenchido por outra requisição concorrente: mantém o existente
		*tx = *stored
		return nil
	}
	stored.OperationID = tx.OperationID
	stored.SettlementAmount = tx.SettlementAmount
	stored.ExchangeRate = tx.ExchangeRate
	stored.QRPayload = tx.QRPayload
	stored.UpdatedAt = tx.UpdatedAt
	return nil
}

// SaveState persiste uma transição de estado. A legalidade da transição
// é revalidada contra o estado armazenado, sob lock; uma corrida perdida
// vira no-op (disciplina idempotente do reconciliador).
func (s *MemoryStore) SaveState(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.transactions[tx.ID]
	if !ok {
		return ports.ErrNotFound
	}
	if stored.State != tx.State {
		if stored.State.IsTerminal() {
			*tx = *stored
			return nil
		}
		stored.State = tx.State
		stored.StateMessage = tx.StateMessage
	}
	if tx.ProviderReference != "" {
		stored.ProviderReference = tx.ProviderReference
	}
	stored.UpdatedAt = tx.UpdatedAt
	return nil
}

// ByCode busca a configuração do provedor pelo código
func (s *MemoryStore) ByCode(_ context.Context, code string) (*domain.ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.providers[code]
	if !ok {
		return nil, ports.ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

// PutProvider registra a configuração de um provedor
func (s *MemoryStore) PutProvider(cfg *domain.ProviderConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.providers[cfg.Code] = &cp
}

// ByTransaction lista os pedidos vinculados a uma transação
func (s *MemoryStore) ByTransaction(_ context.Context, txID string) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Order
	for _, order := range s.orders[txID] {
		cp := *order
		out = append(out, &cp)
	}
	return out, nil
}

// SaveStatus persiste o status de um pedido
func (s *MemoryStore) SaveStatus(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.orders[order.TransactionID] {
		if stored.ID == order.ID {
			stored.Status = order.Status
			stored.UpdatedAt = order.UpdatedAt
			return nil
		}
	}
	return ports.ErrNotFound
}

// PutOrder vincula um pedido a uma transação
func (s *MemoryStore) PutOrder(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *order
	s.orders[order.TransactionID] = append(s.orders[order.TransactionID], &cp)
}

// Garante que MemoryStore implementa os ports
var (
	_ ports.TransactionStore = (*MemoryStore)(nil)
	_ ports.ProviderStore    = (*MemoryStore)(nil)
	_ ports.OrderStore       = (*MemoryStore)(nil)
)
