package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter registra as rotas do gateway KamiPay
func NewRouter(webhooks *WebhookHandler, payments *PaymentHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", HealthCheck).Methods(http.MethodGet)

	// Notificações do provedor (autenticadas por assinatura HMAC)
	router.HandleFunc("/payment/kamipay/webhook", webhooks.HandleKamipayWebhook).Methods(http.MethodPost)

	// Fluxos de pagamento
	router.HandleFunc("/payment/kamipay/qr/{tx_id}", payments.HandleQRDisplay).Methods(http.MethodGet)
	router.HandleFunc("/payment/kamipay/status", payments.HandleStatusCheck).Methods(http.MethodPost)
	router.HandleFunc("/payment/kamipay/poll/{tx_id}", payments.HandlePoll).Methods(http.MethodPost)
	router.HandleFunc("/payment/kamipay/return", payments.HandleReturn).Methods(http.MethodGet)
	router.HandleFunc("/payment/status", payments.HandlePaymentStatus).Methods(http.MethodGet)

	// Rotas de teste (restritas a provedores em sandbox)
	router.HandleFunc("/payment/kamipay/test/simulate_webhook", payments.HandleSimulateWebhook).Methods(http.MethodPost)
	router.HandleFunc("/payment/kamipay/test/console/{tx_id}", payments.HandleTestConsole).Methods(http.MethodGet)

	return router
}
