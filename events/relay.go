package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ferreirogomes/fracionado/metrics"
	"github.com/ferreirogomes/fracionado/storage"
)

// Message é um evento pronto para o broker.
type Message struct {
	ID    string
	Topic string
	Key   string
	Value []byte
}

// Publisher entrega mensagens ao broker. Publish só retorna nil se todas foram aceitas.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Outbox é a parte do armazenamento que o relay consome.
type Outbox interface {
	PendingOutboxEvents(ctx context.Context, limit int) ([]storage.OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, ids []string, at time.Time) error
}

// Relay lê eventos pendentes da outbox e os publica, marcando-os como enviados.
// A entrega é pelo menos uma vez: uma falha ao marcar faz o lote ser reenviado.
type Relay struct {
	outbox    Outbox
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// RelayOption ajusta o Relay.
type RelayOption func(*Relay)

// WithInterval define o intervalo entre varreduras.
func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize define quantos eventos são lidos por vez.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithRelayLogger define o logger do relay.
func WithRelayLogger(l *slog.Logger) RelayOption {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRelayMetrics liga as métricas de publicação.
func WithRelayMetrics(m *metrics.Metrics) RelayOption {
	return func(r *Relay) { r.metrics = m }
}

// NewRelay cria o relay.
func NewRelay(outbox Outbox, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run varre a outbox até ctx ser cancelado. Falhas são registradas e a varredura
// seguinte tenta de novo.
func (r *Relay) Run(ctx context.Context) {
	r.logger.Info("relay de eventos iniciado", "interval", r.interval, "batch_size", r.batchSize)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
			r.metrics.OutboxFailed()
			r.logger.Error("falha ao publicar eventos da outbox", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.Info("relay de eventos encerrado")
			return
		case <-ticker.C:
		}
	}
}

// Flush publica lotes até a outbox esvaziar e retorna quantos eventos foram enviados.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	sent := 0
	for {
		pending, err := r.outbox.PendingOutboxEvents(ctx, r.batchSize)
		if err != nil {
			return sent, err
		}
		if len(pending) == 0 {
			return sent, nil
		}

		msgs := make([]Message, len(pending))
		ids := make([]string, len(pending))
		for i, e := range pending {
			msgs[i] = Message{ID: e.ID, Topic: e.Topic, Key: e.Key, Value: e.Payload}
			ids[i] = e.ID
		}
		if err := r.publisher.Publish(ctx, msgs); err != nil {
			return sent, fmt.Errorf("falha ao publicar lote de %d eventos: %w", len(msgs), err)
		}
		if err := r.outbox.MarkOutboxSent(ctx, ids, time.Now().UTC().Truncate(time.Microsecond)); err != nil {
			return sent, err
		}
		sent += len(pending)
		r.metrics.OutboxPublished(len(pending))
		r.logger.Debug("eventos publicados", "count", len(pending))

		if len(pending) < r.batchSize {
			return sent, nil
		}
	}
}
