// Package services implementa o núcleo do livro-razão de frações: emissão e consumo de
// frações, livro de ofertas, execução de negociações e histórico de transações.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ferreirogomes/fracionado/metrics"
	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/storage"
)

// AssetDirectory é o cadastro de ativos, mantido fora do núcleo.
type AssetDirectory interface {
	GetAsset(ctx context.Context, id string) (models.Asset, bool, error)
}

// UserDirectory responde se um usuário existe e está ativo.
type UserDirectory interface {
	UserExistsAndActive(ctx context.Context, id string) (bool, error)
}

// Deps reúne as dependências compartilhadas pelos serviços do núcleo.
// Todos os serviços de um processo devem usar o mesmo DB e o mesmo AssetLocks;
// sem Locks, os serviços usam o conjunto único do processo.
type Deps struct {
	DB     *storage.DB
	Assets AssetDirectory
	Users  UserDirectory
	Locks  *AssetLocks
}

// Option ajusta logger, métricas e relógio de um serviço.
type Option func(*base)

// WithLogger define o logger do serviço.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics liga as métricas do serviço.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// WithClock substitui o relógio usado nos carimbos de tempo.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.clock = now
		}
	}
}

// processLocks serializa os serviços montados sem um AssetLocks explícito.
var processLocks = NewAssetLocks()

type base struct {
	Deps
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
}

func newBase(deps Deps, opts []Option) base {
	if deps.Locks == nil {
		deps.Locks = processLocks
	}
	if deps.Assets == nil && deps.DB != nil {
		deps.Assets = deps.DB
	}
	if deps.Users == nil && deps.DB != nil {
		deps.Users = deps.DB
	}
	b := base{Deps: deps, logger: slog.Default(), clock: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// now devolve o instante atual em UTC, na precisão de microssegundos que o banco guarda.
func (b base) now() time.Time {
	return b.clock().UTC().Truncate(time.Microsecond)
}

// requireActiveUser falha com ErrUserUnavailable se o usuário não existe ou está inativo.
func (b base) requireActiveUser(ctx context.Context, userID string) error {
	ok, err := b.Users.UserExistsAndActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("falha ao consultar usuário %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserUnavailable, userID)
	}
	return nil
}

// loadAsset busca o ativo no cadastro.
func (b base) loadAsset(ctx context.Context, assetID string) (models.Asset, error) {
	asset, found, err := b.Assets.GetAsset(ctx, assetID)
	if err != nil {
		return models.Asset{}, fmt.Errorf("falha ao consultar ativo %s: %w", assetID, err)
	}
	if !found {
		return models.Asset{}, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
	}
	return asset, nil
}

// withAssetLock executa fn numa transação, segurando o lock do ativo no processo e no banco.
func (b base) withAssetLock(ctx context.Context, assetID string, fn func(tx *storage.Tx) error) error {
	unlock, err := b.Locks.Lock(ctx, assetID)
	if err != nil {
		return err
	}
	defer unlock()

	return b.DB.InTx(ctx, func(tx *storage.Tx) error {
		if err := tx.LockAsset(ctx, assetID); err != nil {
			return err
		}
		return fn(tx)
	})
}

// appendEvent grava um evento de domínio na outbox, dentro da mesma transação.
func appendEvent(ctx context.Context, tx *storage.Tx, topic, key string, payload any, at time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("falha ao serializar evento %s: %w", topic, err)
	}
	return tx.InsertOutboxEvent(ctx, storage.OutboxEvent{
		ID:        newID(),
		Topic:     topic,
		Key:       key,
		Payload:   body,
		CreatedAt: at,
	})
}

// newID gera IDs ordenáveis pelo tempo (UUIDv7).
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}
