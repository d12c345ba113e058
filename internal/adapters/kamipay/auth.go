package kamipay

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenTTL é a validade assumida do token de acesso. A API não informa
// a expiração, então usamos uma hora por segurança.
const tokenTTL = time.Hour

// TokenManager gerencia o token de acesso da KamiPay com refresh automático.
// É thread-safe e cacheia o token até a expiração. Um refresh duplicado
// ocasional é inofensivo: a troca de credenciais é idempotente.
type TokenManager struct {
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// NewTokenManager cria um novo gerenciador de tokens
func NewTokenManager(apiKey, apiSecret, baseURL string, httpClient *http.Client) *TokenManager {
	return &TokenManager{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// GetToken retorna um token válido, renovando se necessário.
// Enquanto now < expiry o token cacheado é reutilizado sem chamada de rede.
func (tm *TokenManager) GetToken() (string, error) {
	tm.mu.RLock()
	if tm.token != "" && time.Now().Before(tm.expiresAt) {
		token := tm.token
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	return tm.refresh()
}

// refresh troca as credenciais por um novo token de acesso
func (tm *TokenManager) refresh() (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	// Double-check: outra goroutine pode ter renovado enquanto esperávamos o lock
	if tm.token != "" && time.Now().Before(tm.expiresAt) {
		return tm.token, nil
	}

	authURL := tm.baseURL + AuthTokenPath

	form := url.Values{}
	form.Set("username", tm.apiKey)
	form.Set("password", tm.apiSecret)

	req, err := http.NewRequest(http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tm.httpClient.Do(req)
	if err != nil {
		// Sem retry: o chamador deve reacionar a operação
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr APIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error() != "erro da API KamiPay" {
			return "", fmt.Errorf("%w: %s", ErrAuthentication, apiErr.Error())
		}
		return "", fmt.Errorf("%w: status %d - %s", ErrAuthentication, resp.StatusCode, string(respBody))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(respBody, &tokenResp); err != nil {
		return "", fmt.Errorf("%w: resposta inválida: %v", ErrAuthentication, err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: resposta sem access_token", ErrAuthentication)
	}

	tm.token = tokenResp.AccessToken
	tm.expiresAt = time.Now().Add(tokenTTL)

	return tm.token, nil
}

// Invalidate força a renovação do token na próxima chamada.
// Útil quando recebemos erro 401.
func (tm *TokenManager) Invalidate() {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.token = ""
	tm.expiresAt = time.Time{}
}
