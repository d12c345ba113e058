// Package kamipay implementa o adaptador para a API PIX da KamiPay
package kamipay

import "encoding/json"

// TokenResponse representa a resposta do endpoint de autenticação
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// ChargeRequest representa a requisição de criação de cobrança PIX dinâmica B2B
type ChargeRequest struct {
	Address           string      `json:"address"` // Endereço USDT de destino
	Amount            json.Number `json:"amount"`  // Valor em BRL
	ExternalReference string      `json:"external_reference"`
	Expire            int         `json:"expire"` // Expiração em segundos
}

// ChargeResponse representa a resposta da criação de cobrança
type ChargeResponse struct {
	OperationID string      `json:"operation_id"`
	AmountUSDT  json.Number `json:"amount_usdt"`
	Rate        json.Number `json:"rate"`
	EMV         string      `json:"emv"` // Código copia-e-cola do QR
}

// StatusEnvelope representa o envelope retornado pela consulta de status
type StatusEnvelope struct {
	Status string                 `json:"status"` // "ok" | "error"
	Data   map[string]interface{} `json:"data,omitempty"`
}

// Notification representa o payload de um webhook KamiPay.
// O campo Data só está presente para os status processing e done.
type Notification struct {
	PixID     string            `json:"pix_id"`
	Status    string            `json:"status"`
	TxID      *string           `json:"tx_id"`
	Type      string            `json:"type,omitempty"` // "charge"
	Timestamp string            `json:"timestamp,omitempty"`
	Data      *NotificationData `json:"data,omitempty"`
}

// NotificationData carrega os detalhes bancários da operação
type NotificationData struct {
	BankTxID      string  `json:"bank_txid"`
	BankAccountNr string  `json:"bank_account_nr,omitempty"`
	InternalPixID string  `json:"internal_pix_id,omitempty"`
	AmountBRL     string  `json:"amount_brl,omitempty"` // API envia valores como string
	AmountUSDT    string  `json:"amount_usdt,omitempty"`
	AddressOut    string  `json:"address_out,omitempty"`
	Name          string  `json:"name,omitempty"`
	TxID          *string `json:"tx_id,omitempty"` // Hash on-chain, presente apenas em done
}

// Status possíveis nas notificações KamiPay
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusExpired    = "expired"
	StatusFailed     = "failed"
)

// APIError representa um erro retornado pela API KamiPay
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Error implementa a interface error
func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Detail != "" {
		return e.Detail
	}
	return "erro da API KamiPay"
}
