package domain

import (
	"fmt"
	"time"
)

// Environment seleciona o ambiente da API KamiPay
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
)

// ProviderConfig armazena a configuração do provedor KamiPay.
// As credenciais (APIKey/APISecret) são usadas na troca por token de acesso;
// a SignatureKey autentica webhooks recebidos via HMAC-SHA256.
type ProviderConfig struct {
	Code          string      `json:"code"` // "kamipay"
	Environment   Environment `json:"environment"`
	APIKey        string      `json:"api_key"`
	APISecret     string      `json:"api_secret"`
	SignatureKey  string      `json:"signature_key"`
	WalletAddress string      `json:"wallet_address"` // Endereço USDT de liquidação

	// Cache do token de acesso (mutado apenas pelo TokenManager)
	AccessToken string    `json:"access_token,omitempty"`
	TokenExpiry time.Time `json:"token_expiry,omitempty"`
}

// IsSandbox retorna true se o provedor está em modo de teste.
// Em sandbox a validação de assinatura de webhooks é relaxada.
func (p *ProviderConfig) IsSandbox() bool {
	return p.Environment == EnvironmentSandbox
}

// Validate verifica se a configuração obrigatória está presente
func (p *ProviderConfig) Validate() error {
	if p.APIKey == "" {
		return fmt.Errorf("provedor %s: api_key é obrigatório", p.Code)
	}
	if p.APISecret == "" {
		return fmt.Errorf("provedor %s: api_secret é obrigatório", p.Code)
	}
	if p.SignatureKey == "" {
		return fmt.Errorf("provedor %s: signature_key é obrigatório", p.Code)
	}
	if p.WalletAddress == "" {
		return fmt.Errorf("provedor %s: wallet_address é obrigatório", p.Code)
	}
	return nil
}
