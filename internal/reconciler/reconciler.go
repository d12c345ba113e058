// Package reconciler implementa a reconciliação de notificações KamiPay.
//
// As três fontes de eventos (webhook, consulta autenticada e retorno do
// checkout) convergem para ApplyNotification, o único ponto que muta o
// estado da transação. As transições são monotônicas e idempotentes:
// a reentrega de um evento encontra a transação já no estado alvo (no-op)
// ou em estado terminal (ignorada com log).
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/comercio360/kamipay-gateway/internal/adapters/kamipay"
	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
)

// Mensagens exibidas ao usuário final, conforme o status notificado
const (
	MsgProcessing    = "Your PIX payment has been received and is being processed."
	MsgDone          = "Your PIX payment has been confirmed."
	MsgExpired       = "Payment expired after 10 minutes."
	MsgQRExpired     = "Payment timeout - QR code expired"
	MsgFailed        = "Payment failed"
	MsgInvalidStatus = "Invalid payment status"
)

// Reconciler dirige a máquina de estados das transações a partir das
// notificações do provedor
type Reconciler struct {
	transactions ports.TransactionStore
	providers    ports.ProviderStore
	orders       ports.OrderStore
	provider     ports.ChargeProvider
}

// New cria um novo Reconciler
func New(transactions ports.TransactionStore, providers ports.ProviderStore, orders ports.OrderStore, provider ports.ChargeProvider) *Reconciler {
	return &Reconciler{
		transactions: transactions,
		providers:    providers,
		orders:       orders,
		provider:     provider,
	}
}

// ResolveTransaction localiza a transação alvo de uma notificação pelo
// operation_id (pix_id). Notificação sem pix_id é malformada; pix_id sem
// transação correspondente é desconhecido.
func (r *Reconciler) ResolveTransaction(ctx context.Context, operationID string) (*domain.Transaction, error) {
	if operationID == "" {
		return nil, fmt.Errorf("%w: payload sem pix_id", kamipay.ErrMalformedNotification)
	}

	tx, err := r.transactions.ByOperationID(ctx, operationID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, fmt.Errorf("%w: operation_id %s", kamipay.ErrUnknownTransaction, operationID)
		}
		return nil, err
	}
	return tx, nil
}

// ApplyNotification aplica uma notificação à transação correspondente.
// É idempotente: reentregas do mesmo evento não alteram o resultado.
func (r *Reconciler) ApplyNotification(ctx context.Context, providerCode string, notif *kamipay.Notification) (*domain.Transaction, error) {
	if providerCode != "kamipay" {
		return nil, fmt.Errorf("provedor não suportado: %s", providerCode)
	}

	tx, err := r.ResolveTransaction(ctx, notif.PixID)
	if err != nil {
		return nil, err
	}

	previous := tx.State
	previousRef := tx.ProviderReference

	var transitionErr error
	switch notif.Status {
	case kamipay.StatusProcessing:
		if notif.Data != nil && notif.Data.BankTxID != "" {
			tx.ProviderReference = notif.Data.BankTxID
		}
		transitionErr = tx.SetPending(MsgProcessing)
	case kamipay.StatusDone:
		if notif.Data != nil && notif.Data.BankTxID != "" {
			tx.ProviderReference = notif.Data.BankTxID
		}
		transitionErr = tx.SetDone(MsgDone)
	case kamipay.StatusExpired:
		transitionErr = tx.SetCanceled(MsgExpired)
	case kamipay.StatusFailed:
		transitionErr = tx.SetError(MsgFailed)
	default:
		// Status desconhecido nunca derruba o handler: marca a transação
		// como falha e segue (soft failure)
		log.Printf("[Reconciler] Notificação com status inválido %q para %s", notif.Status, tx.Reference)
		transitionErr = tx.SetError(MsgInvalidStatus)
	}

	if transitionErr != nil {
		if errors.Is(transitionErr, domain.ErrIllegalTransition) {
			// Reentrega tardia sobre transação terminal: ignora
			log.Printf("[Reconciler] Transição ignorada para %s: %v", tx.Reference, transitionErr)
			return tx, nil
		}
		return nil, transitionErr
	}

	if tx.State == previous && tx.ProviderReference == previousRef {
		// Nada mudou (reaplicação do estado atual sem novos dados)
		return tx, nil
	}

	if err := r.transactions.SaveState(ctx, tx); err != nil {
		return nil, err
	}

	log.Printf("[Reconciler] Transação %s (op %s): %s → %s", tx.Reference, tx.OperationID, previous, tx.State)

	if tx.State == domain.StateDone && previous != domain.StateDone {
		if err := r.finalize(ctx, tx); err != nil {
			// A transação já está done; falha na confirmação do pedido é
			// logada e não desfaz o pagamento
			log.Printf("[Reconciler] Erro ao confirmar pedidos de %s: %v", tx.Reference, err)
		}
	}

	return tx, nil
}

// finalize confirma os pedidos vinculados quando o pagamento é concluído.
// Somente pedidos em draft/sent são confirmados; os demais ficam intocados.
func (r *Reconciler) finalize(ctx context.Context, tx *domain.Transaction) error {
	if r.orders == nil {
		return nil
	}

	orders, err := r.orders.ByTransaction(ctx, tx.ID)
	if err != nil {
		return err
	}

	for _, order := range orders {
		if !order.CanConfirm() {
			continue
		}
		order.Confirm()
		if err := r.orders.SaveStatus(ctx, order); err != nil {
			return err
		}
		log.Printf("[Reconciler] Pedido %s confirmado pela transação %s", order.Name, tx.Reference)
	}
	return nil
}

// EnsureCharge cria a cobrança na KamiPay se ainda não existe.
// Idempotente por construção: se operation_id já está definido, o QR
// existente é reutilizado sem nova chamada remota.
func (r *Reconciler) EnsureCharge(ctx context.Context, tx *domain.Transaction) error {
	if tx.HasCharge() {
		return nil
	}

	cfg, err := r.providers.ByCode(ctx, tx.ProviderCode)
	if err != nil {
		return err
	}

	log.Printf("[Reconciler] Criando cobrança KamiPay para %s", tx.Reference)

	resp, err := r.provider.CreateCharge(ctx, &ports.ChargeRequest{
		WalletAddress:     cfg.WalletAddress,
		Amount:            tx.Amount,
		ExternalReference: tx.Reference,
		ExpireSeconds:     kamipay.ChargeExpireSeconds,
	})
	if err != nil {
		return err
	}

	if err := tx.SetPaymentInfo(resp.OperationID, resp.SettlementAmount, resp.ExchangeRate, resp.QRPayload); err != nil {
		return err
	}
	return r.transactions.SavePaymentInfo(ctx, tx)
}

// CheckStatus consulta o status remoto de uma transação e despacha o
// resultado como notificação sintética (caminho de poll autenticado).
// Não há verificação de assinatura: a chamada já é autenticada fim a fim.
func (r *Reconciler) CheckStatus(ctx context.Context, txID string) (*ports.StatusResponse, error) {
	tx, err := r.transactions.ByID(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.ProviderCode != "kamipay" {
		return nil, fmt.Errorf("provedor inválido para a transação %s", tx.Reference)
	}
	if !tx.HasCharge() {
		return nil, fmt.Errorf("transação %s sem operation_id", tx.Reference)
	}

	resp, err := r.provider.QueryStatus(ctx, tx.OperationID)
	if err != nil {
		return nil, err
	}

	if resp.Status == "ok" {
		status, _ := resp.Data["status"].(string)
		if status == "" {
			status = "error"
		}
		notif := &kamipay.Notification{
			PixID:  tx.OperationID,
			Status: status,
			Data:   notificationDataFromMap(resp.Data),
		}
		if _, err := r.ApplyNotification(ctx, "kamipay", notif); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// ReturnParams carrega os parâmetros do retorno do checkout hospedado
type ReturnParams struct {
	Expired   bool
	Reference string
}

// HandleReturn trata o retorno do navegador após o checkout.
// Um retorno de expiração sobre transação ainda em draft cancela
// diretamente, sem chamada remota; caso contrário, transações não
// terminais passam por uma consulta de status.
func (r *Reconciler) HandleReturn(ctx context.Context, params ReturnParams) error {
	if params.Expired {
		if params.Reference == "" {
			return nil
		}
		tx, err := r.transactions.ByReference(ctx, params.Reference)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return nil
			}
			return err
		}
		if tx.State != domain.StateDraft {
			return nil
		}
		log.Printf("[Reconciler] QR expirado, cancelando transação %s", tx.Reference)
		if err := tx.SetCanceled(MsgQRExpired); err != nil {
			return err
		}
		return r.transactions.SaveState(ctx, tx)
	}

	tx, err := r.transactions.ByReference(ctx, params.Reference)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			log.Printf("[Reconciler] Retorno sem transação para referência %q", params.Reference)
			return nil
		}
		return err
	}

	if tx.State == domain.StateDone || tx.State == domain.StateError {
		return nil
	}

	_, err = r.CheckStatus(ctx, tx.ID)
	return err
}

// notificationDataFromMap converte o mapa de dados da consulta de status
// para o tipo estruturado usado pelas notificações
func notificationDataFromMap(m map[string]interface{}) *kamipay.NotificationData {
	if len(m) == 0 {
		return nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var data kamipay.NotificationData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil
	}
	return &data
}
