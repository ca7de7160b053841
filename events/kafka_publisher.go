package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig configura o publicador Kafka.
type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
	MaxAttempts int
}

// KafkaPublisher publica eventos da outbox no Kafka, usando o ativo como chave de partição.
type KafkaPublisher struct {
	writer *kafka.Writer
	prefix string
}

// NewKafkaPublisher cria o publicador. O tópico de cada mensagem é prefixo + tópico do evento.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("nenhum broker kafka configurado")
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
			MaxAttempts:            attempts,
			WriteBackoffMin:        100 * time.Millisecond,
			BatchTimeout:           10 * time.Millisecond,
		},
		prefix: cfg.TopicPrefix,
	}, nil
}

// Publish envia o lote de forma síncrona.
func (p *KafkaPublisher) Publish(ctx context.Context, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, len(msgs))
	for i, m := range msgs {
		out[i] = kafka.Message{
			Topic:   p.prefix + m.Topic,
			Key:     []byte(m.Key),
			Value:   m.Value,
			Headers: []kafka.Header{{Key: "event_id", Value: []byte(m.ID)}},
		}
	}
	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("falha ao enviar mensagens ao kafka: %w", err)
	}
	return nil
}

// Close encerra o writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
