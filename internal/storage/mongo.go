package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/comercio360/kamipay-gateway/internal/domain"
	"github.com/comercio360/kamipay-gateway/internal/ports"
)

// Connect inicializa a conexão com o MongoDB e verifica com ping
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, err
	}

	return client, nil
}

// MongoStore implementa os stores de transações, provedores e pedidos
// sobre coleções MongoDB
type MongoStore struct {
	transactions *mongo.Collection
	providers    *mongo.Collection
	orders       *mongo.Collection
}

// NewMongoStore cria um novo store apontando para o banco informado
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		transactions: db.Collection("transactions"),
		providers:    db.Collection("providers"),
		orders:       db.Collection("orders"),
	}
}

// EnsureIndexes cria os índices únicos de correlação
// (operation_id e reference)
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.transactions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "operation_id", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.M{"operation_id": bson.M{"$gt": ""}}),
		},
	})
	return err
}

// txDocument é a representação BSON da transação.
// Decimais são armazenados como string para preservar precisão.
type txDocument struct {
	ID                string    `bson:"_id"`
	Reference         string    `bson:"reference"`
	ProviderCode      string    `bson:"provider_code"`
	Amount            string    `bson:"amount"`
	Currency          string    `bson:"currency"`
	OperationID       string    `bson:"operation_id,omitempty"`
	SettlementAmount  string    `bson:"settlement_amount,omitempty"`
	ExchangeRate      string    `bson:"exchange_rate,omitempty"`
	QRPayload         string    `bson:"qr_payload,omitempty"`
	ProviderReference string    `bson:"provider_reference,omitempty"`
	State             string    `bson:"state"`
	StateMessage      string    `bson:"state_message,omitempty"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func toTxDocument(tx *domain.Transaction) *txDocument {
	doc := &txDocument{
		ID:                tx.ID,
		Reference:         tx.Reference,
		ProviderCode:      tx.ProviderCode,
		Amount:            tx.Amount.String(),
		Currency:          tx.Currency,
		OperationID:       tx.OperationID,
		QRPayload:         tx.QRPayload,
		ProviderReference: tx.ProviderReference,
		State:             string(tx.State),
		StateMessage:      tx.StateMessage,
		CreatedAt:         tx.CreatedAt,
		UpdatedAt:         tx.UpdatedAt,
	}
	if tx.OperationID != "" {
		doc.SettlementAmount = tx.SettlementAmount.String()
		doc.ExchangeRate = tx.ExchangeRate.String()
	}
	return doc
}

func (d *txDocument) toDomain() (*domain.Transaction, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("amount inválido na transação %s: %w", d.ID, err)
	}
	tx := &domain.Transaction{
		ID:                d.ID,
		Reference:         d.Reference,
		ProviderCode:      d.ProviderCode,
		Amount:            amount,
		Currency:          d.Currency,
		OperationID:       d.OperationID,
		QRPayload:         d.QRPayload,
		ProviderReference: d.ProviderReference,
		State:             domain.TransactionState(d.State),
		StateMessage:      d.StateMessage,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.SettlementAmount != "" {
		if tx.SettlementAmount, err = decimal.NewFromString(d.SettlementAmount); err != nil {
			return nil, fmt.Errorf("settlement_amount inválido na transação %s: %w", d.ID, err)
		}
	}
	if d.ExchangeRate != "" {
		if tx.ExchangeRate, err = decimal.NewFromString(d.ExchangeRate); err != nil {
			return nil, fmt.Errorf("exchange_rate inválido na transação %s: %w", d.ID, err)
		}
	}
	return tx, nil
}

func (s *MongoStore) findTransaction(ctx context.Context, filter bson.M) (*domain.Transaction, error) {
	var doc txDocument
	err := s.transactions.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return doc.toDomain()
}

// ByID busca uma transação pelo id local
func (s *MongoStore) ByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, bson.M{"_id": id})
}

// ByOperationID busca uma transação pela operação KamiPay
func (s *MongoStore) ByOperationID(ctx context.Context, operationID string) (*domain.Transaction, error) {
	if operationID == "" {
		return nil, ports.ErrNotFound
	}
	return s.findTransaction(ctx, bson.M{"operation_id": operationID})
}

// ByReference busca uma transação pela referência única
func (s *MongoStore) ByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, bson.M{"reference": reference})
}

// Create persiste uma nova transação
func (s *MongoStore) Create(ctx context.Context, tx *domain.Transaction) error {
	_, err := s.transactions.InsertOne(ctx, toTxDocument(tx))
	return err
}

// SavePaymentInfo persiste os campos da cobrança criada. O filtro exige
// operation_id ainda vazio, garantindo o preenchimento único mesmo sob
// requisições concorrentes.
func (s *MongoStore) SavePaymentInfo(ctx context.Context, tx *domain.Transaction) error {
	filter := bson.M{
		"_id": tx.ID,
		"$or": bson.A{
			bson.M{"operation_id": bson.M{"$exists": false}},
			bson.M{"operation_id": ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"operation_id":      tx.OperationID,
		"settlement_amount": tx.SettlementAmount.String(),
		"exchange_rate":     tx.ExchangeRate.String(),
		"qr_payload":        tx.QRPayload,
		"updated_at":        tx.UpdatedAt,
	}}

	res, err := s.transactions.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Outra requisição criou a cobrança primeiro: recarrega o registro
		stored, err := s.ByID(ctx, tx.ID)
		if err != nil {
			return err
		}
		*tx = *stored
	}
	return nil
}

// legalSources retorna os estados de origem válidos para uma transição.
// Transições são estritamente progressivas (ver domain.Transaction).
func legalSources(target domain.TransactionState) bson.A {
	switch target {
	case domain.StatePending:
		return bson.A{string(domain.StateDraft)}
	default:
		return bson.A{string(domain.StateDraft), string(domain.StatePending)}
	}
}

// SaveState persiste uma transição de estado em uma única atualização
// atômica. O filtro restringe os estados de origem legais: uma corrida
// perdida (webhook e poll simultâneos) simplesmente não casa o filtro e
// vira no-op, preservando a disciplina idempotente.
func (s *MongoStore) SaveState(ctx context.Context, tx *domain.Transaction) error {
	set := bson.M{
		"state":         string(tx.State),
		"state_message": tx.StateMessage,
		"updated_at":    tx.UpdatedAt,
	}
	if tx.ProviderReference != "" {
		set["provider_reference"] = tx.ProviderReference
	}

	filter := bson.M{
		"_id": tx.ID,
		"state": bson.M{"$in": append(legalSources(tx.State), string(tx.State))},
	}

	_, err := s.transactions.UpdateOne(ctx, filter, bson.M{"$set": set})
	return err
}

// providerDocument é a representação BSON da configuração do provedor
type providerDocument struct {
	Code          string    `bson:"_id"`
	Environment   string    `bson:"environment"`
	APIKey        string    `bson:"api_key"`
	APISecret     string    `bson:"api_secret"`
	SignatureKey  string    `bson:"signature_key"`
	WalletAddress string    `bson:"wallet_address"`
	AccessToken   string    `bson:"access_token,omitempty"`
	TokenExpiry   time.Time `bson:"token_expiry,omitempty"`
}

// ByCode busca a configuração do provedor pelo código
func (s *MongoStore) ByCode(ctx context.Context, code string) (*domain.ProviderConfig, error) {
	var doc providerDocument
	err := s.providers.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	return &domain.ProviderConfig{
		Code:          doc.Code,
		Environment:   domain.Environment(doc.Environment),
		APIKey:        doc.APIKey,
		APISecret:     doc.APISecret,
		SignatureKey:  doc.SignatureKey,
		WalletAddress: doc.WalletAddress,
		AccessToken:   doc.AccessToken,
		TokenExpiry:   doc.TokenExpiry,
	}, nil
}

// UpsertProvider grava a configuração do provedor (usado no bootstrap)
func (s *MongoStore) UpsertProvider(ctx context.Context, cfg *domain.ProviderConfig) error {
	doc := providerDocument{
		Code:          cfg.Code,
		Environment:   string(cfg.Environment),
		APIKey:        cfg.APIKey,
		APISecret:     cfg.APISecret,
		SignatureKey:  cfg.SignatureKey,
		WalletAddress: cfg.WalletAddress,
	}
	opts := options.Replace().SetUpsert(true)
	_, err := s.providers.ReplaceOne(ctx, bson.M{"_id": cfg.Code}, doc, opts)
	return err
}

// orderDocument é a representação BSON de um pedido vinculado
type orderDocument struct {
	ID            string    `bson:"_id"`
	TransactionID string    `bson:"transaction_id"`
	Name          string    `bson:"name"`
	Status        string    `bson:"status"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

// ByTransaction lista os pedidos vinculados a uma transação
func (s *MongoStore) ByTransaction(ctx context.Context, txID string) ([]*domain.Order, error) {
	cursor, err := s.orders.Find(ctx, bson.M{"transaction_id": txID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domain.Order
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, &domain.Order{
			ID:            doc.ID,
			TransactionID: doc.TransactionID,
			Name:          doc.Name,
			Status:        domain.OrderStatus(doc.Status),
			UpdatedAt:     doc.UpdatedAt,
		})
	}
	return out, cursor.Err()
}

// SaveStatus persiste o status de um pedido. Pedidos já confirmados ou
// cancelados não são sobrescritos.
func (s *MongoStore) SaveStatus(ctx context.Context, order *domain.Order) error {
	filter := bson.M{
		"_id":    order.ID,
		"status": bson.M{"$in": bson.A{string(domain.OrderStatusDraft), string(domain.OrderStatusSent)}},
	}
	update := bson.M{"$set": bson.M{
		"status":     string(order.Status),
		"updated_at": order.UpdatedAt,
	}}
	_, err := s.orders.UpdateOne(ctx, filter, update)
	return err
}

// Garante que MongoStore implementa os ports
var (
	_ ports.TransactionStore = (*MongoStore)(nil)
	_ ports.ProviderStore    = (*MongoStore)(nil)
	_ ports.OrderStore       = (*MongoStore)(nil)
)
