package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/comercio360/kamipay-gateway/internal/adapters/kamipay"
	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
	"github.com/comercio360/kamipay-gateway/internal/reconciler"
)

// PaymentStatusURL é a página genérica de status para onde os fluxos de
// navegador sempre redirecionam
const PaymentStatusURL = "/payment/status"

// PaymentHandler atende os fluxos de pagamento KamiPay: exibição do QR,
// consulta de status, poll local, retorno do checkout e console de teste
type PaymentHandler struct {
	transactions ports.TransactionStore
	providers    ports.ProviderStore
	provider     ports.ChargeProvider
	reconciler   *reconciler.Reconciler
}

// NewPaymentHandler cria um novo handler de pagamentos
func NewPaymentHandler(transactions ports.TransactionStore, providers ports.ProviderStore, provider ports.ChargeProvider, rec *reconciler.Reconciler) *PaymentHandler {
	return &PaymentHandler{
		transactions: transactions,
		providers:    providers,
		provider:     provider,
		reconciler:   rec,
	}
}

// kamipayTransaction carrega a transação do path e valida o provedor
func (h *PaymentHandler) kamipayTransaction(r *http.Request) (*domain.Transaction, error) {
	txID := mux.Vars(r)["tx_id"]
	tx, err := h.transactions.ByID(r.Context(), txID)
	if err != nil {
		return nil, err
	}
	if tx.ProviderCode != "kamipay" {
		return nil, ports.ErrNotFound
	}
	return tx, nil
}

// HandleQRDisplay exibe a página de pagamento com o QR code.
// Cria a cobrança na KamiPay se ainda não foi criada.
// Endpoint: GET /payment/kamipay/qr/{tx_id}
func (h *PaymentHandler) HandleQRDisplay(w http.ResponseWriter, r *http.Request) {
	tx, err := h.kamipayTransaction(r)
	if err != nil {
		log.Printf("[QR] Transação não encontrada: %v", err)
		http.NotFound(w, r)
		return
	}

	if err := h.reconciler.EnsureCharge(r.Context(), tx); err != nil {
		log.Printf("[QR] Erro ao criar cobrança para %s: %v", tx.Reference, err)
		http.Error(w, "Erro ao criar cobrança PIX", http.StatusInternalServerError)
		return
	}

	log.Printf("[QR] Exibindo QR para a transação %s", tx.Reference)

	values := qrPageValues{
		Title:            "PIX QR Code for Payment",
		TxID:             tx.ID,
		Reference:        tx.Reference,
		QRPayload:        tx.QRPayload,
		Amount:           tx.Amount.StringFixed(2),
		SettlementAmount: tx.SettlementAmount.String(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := qrPageTemplate.Execute(w, values); err != nil {
		log.Printf("[QR] Erro ao renderizar página: %v", err)
	}
}

// HandleStatusCheck consulta o status remoto de uma transação e aplica o
// resultado (caminho de poll autenticado do reconciliador).
// Endpoint: POST /payment/kamipay/status com body {"tx_id": "..."}
func (h *PaymentHandler) HandleStatusCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TxID string `json:"tx_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TxID == "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Missing transaction ID"})
		return
	}

	resp, err := h.reconciler.CheckStatus(r.Context(), body.TxID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{"error": "Transaction not found"})
			return
		}
		log.Printf("[Status] Erro ao consultar status: %v", err)
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": resp.Status,
		"data":   resp.Data,
	})
}

// HandlePoll retorna o estado local da transação, sem contatar a KamiPay.
// Endpoint: POST /payment/kamipay/poll/{tx_id}
func (h *PaymentHandler) HandlePoll(w http.ResponseWriter, r *http.Request) {
	tx, err := h.kamipayTransaction(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "Transaction not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"state":         string(tx.State),
		"state_message": tx.StateMessage,
	})
}

// HandleReturn trata o retorno do navegador após o checkout e sempre
// redireciona para a página genérica de status.
// Endpoint: GET /payment/kamipay/return
func (h *PaymentHandler) HandleReturn(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := reconciler.ReturnParams{
		Expired:   query.Get("expired") != "",
		Reference: query.Get("reference"),
	}

	log.Printf("[Return] Retorno do checkout: expired=%v reference=%q", params.Expired, params.Reference)

	if err := h.reconciler.HandleReturn(r.Context(), params); err != nil {
		// Falhas no recheck não bloqueiam o redirecionamento do usuário
		log.Printf("[Return] Erro ao reconciliar retorno: %v", err)
	}

	http.Redirect(w, r, PaymentStatusURL, http.StatusFound)
}

// HandleSimulateWebhook envia um evento sintético ao emulador da KamiPay.
// Disponível apenas para provedores em sandbox.
// Endpoint: POST /payment/kamipay/test/simulate_webhook
func (h *PaymentHandler) HandleSimulateWebhook(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OperationID string `json:"operation_id"`
		Status      string `json:"status"`
		AmountBRL   string `json:"amount_brl"`
		AmountUSDT  string `json:"amount_usdt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.OperationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing operation_id"})
		return
	}

	tx, err := h.transactions.ByOperationID(r.Context(), body.OperationID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Transaction not found"})
		return
	}

	cfg, err := h.providers.ByCode(r.Context(), tx.ProviderCode)
	if err != nil || !cfg.IsSandbox() {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error": "Test simulation is only available in test mode",
		})
		return
	}

	event := buildSimulatedEvent(body.OperationID, body.Status, body.AmountBRL, body.AmountUSDT)

	log.Printf("[Simulator] Enviando webhook simulado para a operação %s (status %s)", body.OperationID, body.Status)

	if err := h.provider.PushEmulatorWebhook(r.Context(), event); err != nil {
		log.Printf("[Simulator] Falha ao enviar simulação: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": fmt.Sprintf("Failed to simulate webhook: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// buildSimulatedEvent monta o payload sintético aceito pelo emulador.
// Os status processing e done carregam os detalhes bancários de teste.
func buildSimulatedEvent(operationID, status, amountBRL, amountUSDT string) map[string]interface{} {
	event := map[string]interface{}{
		"pix_id":    operationID,
		"status":    status,
		"tx_id":     nil,
		"type":      "charge",
		"timestamp": time.Now().UTC().Format("2006-01-02 15:04:05.000000-0700"),
	}

	if status == kamipay.StatusProcessing || status == kamipay.StatusDone {
		data := map[string]interface{}{
			"bank_txid":       "TEST-" + operationID,
			"bank_account_nr": "00360305-2218-8041045888",
			"internal_pix_id": "TEST-" + operationID,
			"amount_brl":      amountBRL, // API espera valores como string
			"amount_usdt":     amountUSDT,
			"address_out":     "0xca4xxxxxxxxxxxxxxx1f2fc",
			"name":            "Test User",
		}
		if status == kamipay.StatusDone {
			// Em done o hash on-chain acompanha o evento
			chainTx := fmt.Sprintf("0x%.8s2792b5deff9440b6xxxxxxxxxxxxxxxf0c25b47739cbc3a35b16", operationID)
			event["tx_id"] = chainTx
			data["tx_id"] = chainTx
		} else {
			data["tx_id"] = nil
		}
		event["data"] = data
	}

	return event
}

// HandleTestConsole exibe o console de teste de uma transação.
// Disponível apenas para provedores em sandbox.
// Endpoint: GET /payment/kamipay/test/console/{tx_id}
func (h *PaymentHandler) HandleTestConsole(w http.ResponseWriter, r *http.Request) {
	tx, err := h.kamipayTransaction(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	cfg, err := h.providers.ByCode(r.Context(), tx.ProviderCode)
	if err != nil || !cfg.IsSandbox() {
		http.NotFound(w, r)
		return
	}

	values := testConsoleValues{
		Title:            "PIX KamiPay Test Console",
		TxID:             tx.ID,
		Reference:        tx.Reference,
		OperationID:      tx.OperationID,
		Amount:           tx.Amount.StringFixed(2),
		SettlementAmount: tx.SettlementAmount.String(),
		State:            string(tx.State),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := testConsoleTemplate.Execute(w, values); err != nil {
		log.Printf("[Console] Erro ao renderizar página: %v", err)
	}
}

// HandlePaymentStatus exibe a página genérica de status de pagamento,
// destino de todos os redirecionamentos de navegador.
// Endpoint: GET /payment/status
func (h *PaymentHandler) HandlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPageTemplate.Execute(w, nil); err != nil {
		log.Printf("[Status] Erro ao renderizar página: %v", err)
	}
}

// HealthCheck endpoint para verificar se o servidor está funcionando
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "kamipay-gateway",
	})
}
