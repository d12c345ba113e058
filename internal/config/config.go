// Package config gerencia as configurações do aplicativo
// carregando variáveis de ambiente do arquivo .env
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config armazena todas as configurações da aplicação
type Config struct {
	// Servidor
	Port string
	Env  string

	// MongoDB (vazio = store em memória, apenas desenvolvimento)
	MongoURI      string
	MongoDatabase string

	// KamiPay
	Kamipay KamipayConfig
}

// KamipayConfig armazena configurações específicas da KamiPay
type KamipayConfig struct {
	APIKey        string
	APISecret     string
	SignatureKey  string
	WalletAddress string
	Sandbox       bool
}

// Load carrega as configurações do arquivo .env e variáveis de ambiente
// O arquivo .env é opcional - variáveis de ambiente têm prioridade
func Load() (*Config, error) {
	// Tenta carregar .env (ignora erro se não existir)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "kamipay_gateway"),
		Kamipay: KamipayConfig{
			APIKey:        getEnv("KAMIPAY_API_KEY", ""),
			APISecret:     getEnv("KAMIPAY_API_SECRET", ""),
			SignatureKey:  getEnv("KAMIPAY_SIGNATURE_KEY", ""),
			WalletAddress: getEnv("KAMIPAY_WALLET_ADDRESS", ""),
			Sandbox:       getEnvBool("KAMIPAY_SANDBOX", true),
		},
	}

	// Validação básica
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate verifica se as configurações obrigatórias estão presentes
func (c *Config) validate() error {
	if c.Kamipay.APIKey == "" {
		return fmt.Errorf("KAMIPAY_API_KEY é obrigatório")
	}
	if c.Kamipay.APISecret == "" {
		return fmt.Errorf("KAMIPAY_API_SECRET é obrigatório")
	}
	if c.Kamipay.SignatureKey == "" {
		return fmt.Errorf("KAMIPAY_SIGNATURE_KEY é obrigatório")
	}
	if c.Kamipay.WalletAddress == "" {
		return fmt.Errorf("KAMIPAY_WALLET_ADDRESS é obrigatório")
	}
	return nil
}

// IsDevelopment retorna true se estiver em ambiente de desenvolvimento
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction retorna true se estiver em ambiente de produção
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv obtém uma variável de ambiente ou retorna o valor padrão
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool obtém uma variável de ambiente como bool
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
