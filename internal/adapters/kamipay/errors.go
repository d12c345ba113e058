package kamipay

import (
	"errors"
	"fmt"
	"net/http"
)

// Erros sentinela para a taxonomia de falhas do módulo
var (
	// ErrAuthentication indica falha na troca de credenciais por token
	ErrAuthentication = errors.New("kamipay: falha de autenticação")

	// ErrProviderUnavailable indica falha de rede, timeout ou status não-2xx
	ErrProviderUnavailable = errors.New("kamipay: não foi possível conectar")

	// ErrAuthenticity indica assinatura de webhook ausente, inválida ou inverificável
	ErrAuthenticity = errors.New("kamipay: assinatura de notificação inválida")

	// ErrMalformedNotification indica notificação sem o campo de correlação (pix_id)
	ErrMalformedNotification = errors.New("kamipay: notificação sem operation_id")

	// ErrUnknownTransaction indica que nenhuma transação local corresponde ao operation_id
	ErrUnknownTransaction = errors.New("kamipay: transação não encontrada")
)

// IsAuthentication retorna true se o erro indica falha na troca de credenciais
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsProviderUnavailable retorna true se o erro indica indisponibilidade da API
func IsProviderUnavailable(err error) bool {
	if errors.Is(err, ErrProviderUnavailable) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}

// IsUnauthorized retorna true se a API rejeitou o token de acesso
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// WrapRequestError envolve uma falha de chamada à API preservando a mensagem
// original para os logs, conforme a política de propagação do módulo
func WrapRequestError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrProviderUnavailable, operation, err)
}
