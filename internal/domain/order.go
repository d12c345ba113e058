package domain

import "time"

// OrderStatus representa o estado de um pedido vinculado à transação
type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

// Order representa um pedido de venda a ser confirmado quando o
// pagamento for concluído
type Order struct {
	ID            string      `json:"id"`
	TransactionID string      `json:"transaction_id"`
	Name          string      `json:"name"`
	Status        OrderStatus `json:"status"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// CanConfirm retorna true se o pedido ainda aguarda confirmação.
// Pedidos já confirmados ou cancelados não são tocados.
func (o *Order) CanConfirm() bool {
	return o.Status == OrderStatusDraft || o.Status == OrderStatusSent
}

// Confirm marca o pedido como confirmado
func (o *Order) Confirm() {
	o.Status = OrderStatusConfirmed
	o.UpdatedAt = time.Now()
}
