// Package main é o ponto de entrada do gateway de pagamentos KamiPay
package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/comercio360/kamipay-gateway/internal/adapters/kamipay"
	"github.com/comercio360/kamipay-gateway/internal/config"
	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/handlers"
	"github.com/comercio360/kamipay-gateway/internal/ports"
	"github.com/comercio360/kamipay-gateway/internal/reconciler"
	"github.com/comercio360/kamipay-gateway/internal/storage"
)

func main() {
	log.Println("Iniciando KamiPay Gateway...")

	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Erro ao carregar configurações: %v", err)
	}

	log.Printf("Ambiente: %s", cfg.Env)
	log.Printf("KamiPay Sandbox: %v", cfg.Kamipay.Sandbox)

	environment := domain.EnvironmentProduction
	if cfg.Kamipay.Sandbox {
		environment = domain.EnvironmentSandbox
	}

	providerCfg := &domain.ProviderConfig{
		Code:          "kamipay",
		Environment:   environment,
		APIKey:        cfg.Kamipay.APIKey,
		APISecret:     cfg.Kamipay.APISecret,
		SignatureKey:  cfg.Kamipay.SignatureKey,
		WalletAddress: cfg.Kamipay.WalletAddress,
	}
	if err := providerCfg.Validate(); err != nil {
		log.Fatalf("Configuração do provedor inválida: %v", err)
	}

	// Stores: MongoDB quando configurado, memória em desenvolvimento
	var (
		transactions ports.TransactionStore
		providers    ports.ProviderStore
		orders       ports.OrderStore
	)
	if cfg.MongoURI != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		client, err := storage.Connect(ctx, cfg.MongoURI)
		cancel()
		if err != nil {
			log.Fatalf("Erro ao conectar ao MongoDB: %v", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		}()
		log.Println("Conectado ao MongoDB")

		store := storage.NewMongoStore(client, cfg.MongoDatabase)
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		if err := store.EnsureIndexes(ctx); err != nil {
			log.Printf("Aviso: erro ao criar índices: %v", err)
		}
		if err := store.UpsertProvider(ctx, providerCfg); err != nil {
			log.Fatalf("Erro ao gravar configuração do provedor: %v", err)
		}
		cancel()

		transactions, providers, orders = store, store, store
	} else {
		if cfg.IsProduction() {
			log.Fatal("MONGO_URI é obrigatório em produção")
		}
		log.Println("Aviso: MONGO_URI não definido, usando store em memória")
		memory := storage.NewMemoryStore()
		memory.PutProvider(providerCfg)
		transactions, providers, orders = memory, memory, memory
	}

	// Cliente KamiPay e reconciliador de notificações
	client := kamipay.NewClient(providerCfg)
	log.Printf("Cliente KamiPay inicializado: %s", client.BaseURL())

	rec := reconciler.New(transactions, providers, orders, client)

	// Configura o router
	webhookHandler := handlers.NewWebhookHandler(transactions, providers, rec)
	paymentHandler := handlers.NewPaymentHandler(transactions, providers, client, rec)
	router := handlers.NewRouter(webhookHandler, paymentHandler)

	addr := ":" + cfg.Port
	log.Printf("Servidor rodando em http://localhost%s", addr)
	log.Printf("Webhook endpoint: http://localhost%s/payment/kamipay/webhook", addr)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Erro ao iniciar servidor: %v", err)
	}
}
