package kamipay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
)

// requestTimeout limita toda chamada à API KamiPay. Sem retry: uma
// tentativa por chamada, falha rápida.
const requestTimeout = 10 * time.Second

// Client implementa ports.ChargeProvider para a API KamiPay
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokenManager *TokenManager
}

// NewClient cria um novo cliente KamiPay a partir da configuração do
// provedor, selecionando o ambiente (produção ou sandbox) uma única vez
func NewClient(cfg *domain.ProviderConfig) *Client {
	baseURL := BaseURLProd
	if cfg.IsSandbox() {
		baseURL = BaseURLSandbox
	}

	httpClient := &http.Client{
		Timeout: requestTimeout,
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		tokenManager: NewTokenManager(cfg.APIKey, cfg.APISecret, baseURL, httpClient),
	}
}

// BaseURL retorna a URL base resolvida para o ambiente do provedor
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest executa uma requisição HTTP autenticada. GET envia
// queryParams; os demais métodos enviam payload JSON.
func (c *Client) doRequest(ctx context.Context, method, path string, queryParams url.Values, payload interface{}) ([]byte, error) {
	// Resolve um token válido antes de cada chamada
	token, err := c.tokenManager.GetToken()
	if err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(queryParams) > 0 {
		reqURL += "?" + queryParams.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("erro ao serializar payload: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, WrapRequestError(path, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, WrapRequestError(path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapRequestError(path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokenManager.Invalidate()
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" && apiErr.Detail == "" {
			apiErr.Message = fmt.Sprintf("status %d - %s", resp.StatusCode, string(respBody))
		}
		return nil, WrapRequestError(path, apiErr)
	}

	return respBody, nil
}

// CreateCharge cria uma cobrança PIX dinâmica B2B e retorna os campos
// necessários para popular a transação. A idempotência é garantida pelo
// chamador (só chama se operation_id ainda não foi definido).
func (c *Client) CreateCharge(ctx context.Context, req *ports.ChargeRequest) (*ports.ChargeResponse, error) {
	expire := req.ExpireSeconds
	if expire <= 0 {
		expire = ChargeExpireSeconds
	}

	payload := ChargeRequest{
		Address:           req.WalletAddress,
		Amount:            json.Number(req.Amount.String()),
		ExternalReference: req.ExternalReference,
		Expire:            expire,
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, CreateChargePath, nil, payload)
	if err != nil {
		return nil, err
	}

	var chargeResp ChargeResponse
	if err := json.Unmarshal(respBody, &chargeResp); err != nil {
		return nil, fmt.Errorf("erro ao decodificar resposta da cobrança: %w", err)
	}
	if chargeResp.OperationID == "" {
		return nil, fmt.Errorf("resposta da cobrança sem operation_id")
	}

	amountUSDT, err := decimal.NewFromString(chargeResp.AmountUSDT.String())
	if err != nil {
		return nil, fmt.Errorf("amount_usdt inválido %q: %w", chargeResp.AmountUSDT, err)
	}
	rate, err := decimal.NewFromString(chargeResp.Rate.String())
	if err != nil {
		return nil, fmt.Errorf("rate inválido %q: %w", chargeResp.Rate, err)
	}

	return &ports.ChargeResponse{
		OperationID:      chargeResp.OperationID,
		SettlementAmount: amountUSDT,
		ExchangeRate:     rate,
		QRPayload:        chargeResp.EMV,
	}, nil
}

// QueryStatus consulta o status de uma operação pelo operation_id
func (c *Client) QueryStatus(ctx context.Context, operationID string) (*ports.StatusResponse, error) {
	params := url.Values{}
	params.Set("target", "operation_id")
	params.Set("type", "charge")
	params.Set("id", operationID)
	params.Set("chain", "polygon")

	respBody, err := c.doRequest(ctx, http.MethodGet, TxStatusPath, params, nil)
	if err != nil {
		return nil, err
	}

	var envelope StatusEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("erro ao decodificar resposta de status: %w", err)
	}

	return &ports.StatusResponse{
		Status: envelope.Status,
		Data:   envelope.Data,
	}, nil
}

// PushEmulatorWebhook envia um evento sintético ao emulador da KamiPay.
// Disponível apenas para provedores em sandbox; o chamador faz essa checagem.
func (c *Client) PushEmulatorWebhook(ctx context.Context, event map[string]interface{}) error {
	_, err := c.doRequest(ctx, http.MethodPost, EmulatorWebhookPath, nil, event)
	return err
}

// Garante que Client implementa ChargeProvider
var _ ports.ChargeProvider = (*Client)(nil)
