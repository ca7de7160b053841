package storage

import (
	"context"
	"fmt"
	"time"
)

// OutboxEvent é um evento de domínio gravado na mesma transação da alteração que o originou.
type OutboxEvent struct {
	ID        string     `db:"id"`
	Topic     string     `db:"topic"`
	Key       string     `db:"event_key"`
	Payload   []byte     `db:"payload"`
	CreatedAt time.Time  `db:"created_at"`
	SentAt    *time.Time `db:"sent_at"`
}

// InsertOutboxEvent enfileira um evento para publicação.
func (q queries) InsertOutboxEvent(ctx context.Context, e OutboxEvent) error {
	_, err := q.exec(ctx, `
		INSERT INTO outbox_events (id, topic, event_key, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`, e.ID, e.Topic, e.Key, string(e.Payload), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao enfileirar evento: %w", err)
	}
	return nil
}

// PendingOutboxEvents devolve até limit eventos ainda não publicados, na ordem de criação.
func (q queries) PendingOutboxEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []OutboxEvent
	err := q.selectAll(ctx, &events, `
		SELECT id, topic, event_key, payload, created_at, sent_at
		FROM outbox_events
		WHERE sent_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar eventos pendentes: %w", err)
	}
	return events, nil
}

// MarkOutboxSent marca os eventos como publicados.
func (q queries) MarkOutboxSent(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlxIn(`UPDATE outbox_events SET sent_at = ? WHERE id IN (?)`, at, ids)
	if err != nil {
		return err
	}
	if _, err := q.exec(ctx, query, args...); err != nil {
		return fmt.Errorf("falha ao marcar eventos como publicados: %w", err)
	}
	return nil
}
