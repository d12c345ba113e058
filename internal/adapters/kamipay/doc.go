// Package kamipay implementa o adaptador para a API PIX da KamiPay.
//
// Este pacote implementa:
//   - Criação de cobranças PIX dinâmicas (QR/EMV) com liquidação em USDT
//   - Consulta de status de operações
//   - Verificação de assinatura de webhooks (HMAC-SHA256)
//   - Envio de eventos sintéticos ao emulador (sandbox)
//
// # Autenticação
//
// A API KamiPay usa um token de acesso obtido via troca de credenciais
// (API key/secret). O TokenManager cacheia o token por uma hora e renova
// automaticamente na expiração.
//
// # Início Rápido
//
// Criar o cliente a partir da configuração do provedor:
//
//	client := kamipay.NewClient(cfg)
//
// Criar uma cobrança PIX dinâmica:
//
//	resp, err := client.CreateCharge(ctx, &ports.ChargeRequest{
//	    WalletAddress:     cfg.WalletAddress,
//	    Amount:            decimal.NewFromFloat(150.00),
//	    ExternalReference: "PED-0042",
//	    ExpireSeconds:     kamipay.ChargeExpireSeconds,
//	})
//
// O pagador escaneia o QR (resp.QRPayload) no app do banco.
//
// # Assinatura de Webhooks
//
// A KamiPay assina cada notificação com HMAC-SHA256 sobre a
// re-serialização canônica do JSON (ordem de chaves preservada,
// separadores compactos, não-ASCII sem escape), enviada no header
// X-Kamipay-Auth:
//
//	ok, err := kamipay.VerifySignature(cfg.SignatureKey, body, signature)
//
// # Tratamento de Erros
//
// O pacote fornece erros sentinela para a taxonomia do módulo:
//
//	if kamipay.IsProviderUnavailable(err) {
//	    // API fora do ar ou timeout
//	}
//	if kamipay.IsAuthentication(err) {
//	    // Troca de credenciais falhou
//	}
package kamipay
