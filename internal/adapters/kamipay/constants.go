package kamipay

const (
	// Produção
	BaseURLProd = "https://api2.kamipay.io"

	// Sandbox/Homologação
	BaseURLSandbox = "https://devnakamotoapi2.kamipay.io"
)

// Endpoints da API KamiPay
const (
	AuthTokenPath       = "/auth/token"
	CreateChargePath    = "/v2/charge/create_dynamic_pix_b2b"
	TxStatusPath        = "/v2/status/tx_status"
	EmulatorWebhookPath = "/v1/emulator/push_webhook"
)

// ChargeExpireSeconds é a janela de expiração do QR dinâmico (10 minutos)
const ChargeExpireSeconds = 600
