// Package handlers contém os handlers HTTP da aplicação
package handlers

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/comercio360/kamipay-gateway/internal/adapters/kamipay"
	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
	"github.com/comercio360/kamipay-gateway/internal/reconciler"
)

// SignatureHeader é o header que carrega a assinatura HMAC do webhook
const SignatureHeader = "X-Kamipay-Auth"

// WebhookHandler processa webhooks recebidos da KamiPay
type WebhookHandler struct {
	transactions ports.TransactionStore
	providers    ports.ProviderStore
	reconciler   *reconciler.Reconciler
}

// NewWebhookHandler cria um novo handler de webhooks
func NewWebhookHandler(transactions ports.TransactionStore, providers ports.ProviderStore, rec *reconciler.Reconciler) *WebhookHandler {
	return &WebhookHandler{
		transactions: transactions,
		providers:    providers,
		reconciler:   rec,
	}
}

// HandleKamipayWebhook processa notificações da KamiPay
// Endpoint: POST /payment/kamipay/webhook
func (h *WebhookHandler) HandleKamipayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Apenas POST é permitido
	if r.Method != http.MethodPost {
		http.Error(w, "Método não permitido", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("[Webhook] Erro ao ler body: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error", "message": "Failed to read request body",
		})
		return
	}
	defer r.Body.Close()

	// Log do webhook recebido (útil para correlacionar com os logs da KamiPay)
	log.Printf("[Webhook] Recebido: %s", string(body))

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		log.Printf("[Webhook] Notificação sem assinatura")
		writeJSON(w, http.StatusForbidden, map[string]string{
			"status": "error", "message": "Missing signature",
		})
		return
	}

	// A assinatura é recomputada sobre o payload como recebido, usando a
	// chave do provedor resolvido via pix_id → transação → provedor
	expected, cfg, err := h.expectedSignature(ctx, body)
	if err != nil {
		log.Printf("[Webhook] Não foi possível calcular a assinatura: %v", err)
		writeJSON(w, http.StatusForbidden, map[string]string{
			"status": "error", "message": "Invalid payload",
		})
		return
	}

	// Em sandbox a verificação é relaxada para aceitar fixtures de teste
	if !hmac.Equal([]byte(signature), []byte(expected)) && !cfg.IsSandbox() {
		log.Printf("[Webhook] Assinatura inválida")
		writeJSON(w, http.StatusForbidden, map[string]string{
			"status": "error", "message": "Invalid signature",
		})
		return
	}

	// Desembrulha envelope JSON-RPC se presente
	payload := unwrapJSONRPC(body)

	var notif kamipay.Notification
	if err := json.Unmarshal(payload, &notif); err != nil {
		log.Printf("[Webhook] Erro ao decodificar notificação: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error", "message": "Invalid notification payload",
		})
		return
	}

	tx, err := h.reconciler.ApplyNotification(ctx, "kamipay", &notif)
	if err != nil {
		log.Printf("[Webhook] Erro ao processar notificação: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error", "message": err.Error(),
		})
		return
	}

	log.Printf("[Webhook] Notificação processada para a transação %s (op %s)", tx.Reference, tx.OperationID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// expectedSignature resolve a chave de assinatura a partir do pix_id do
// payload e calcula a assinatura esperada. Sem transação correspondente
// não há como verificar: rejeita.
func (h *WebhookHandler) expectedSignature(ctx context.Context, body []byte) (string, *domain.ProviderConfig, error) {
	var probe struct {
		PixID string `json:"pix_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return "", nil, fmt.Errorf("%w: %v", kamipay.ErrAuthenticity, err)
	}
	if probe.PixID == "" {
		return "", nil, fmt.Errorf("%w: payload sem pix_id", kamipay.ErrAuthenticity)
	}

	tx, err := h.transactions.ByOperationID(ctx, probe.PixID)
	if err != nil {
		return "", nil, fmt.Errorf("%w: transação não encontrada para %s", kamipay.ErrAuthenticity, probe.PixID)
	}

	cfg, err := h.providers.ByCode(ctx, tx.ProviderCode)
	if err != nil || cfg.SignatureKey == "" {
		return "", nil, fmt.Errorf("%w: provedor sem chave de assinatura", kamipay.ErrAuthenticity)
	}

	expected, err := kamipay.ComputeSignature(cfg.SignatureKey, body)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", kamipay.ErrAuthenticity, err)
	}
	return expected, cfg, nil
}

// unwrapJSONRPC extrai params de um envelope JSON-RPC 2.0, se presente
func unwrapJSONRPC(body []byte) []byte {
	var envelope struct {
		JSONRPC string          `json:"jsonrpc"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if envelope.JSONRPC == "2.0" && len(envelope.Params) > 0 {
		return envelope.Params
	}
	return body
}

// writeJSON serializa uma resposta JSON com o status informado
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[HTTP] Erro ao serializar resposta: %v", err)
	}
}
