package events

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/logger"
	"github.com/ferreirogomes/fracionado/metrics"
	"github.com/ferreirogomes/fracionado/storage"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msgs []Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func newOutbox(t *testing.T, n int) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(storage.DriverSQLite, storage.SQLiteDSN(filepath.Join(t.TempDir(), "outbox.db")),
		storage.WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		require.NoError(t, db.InsertOutboxEvent(context.Background(), storage.OutboxEvent{
			ID:        fmt.Sprintf("evt-%02d", i),
			Topic:     TopicTradeExecuted,
			Key:       "asset-1",
			Payload:   []byte(fmt.Sprintf(`{"seq":%d}`, i)),
			CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
		}))
	}
	return db
}

func TestRelayFlushPublishesInBatches(t *testing.T) {
	db := newOutbox(t, 5)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(msgs []Message) bool { return len(msgs) == 2 })).Return(nil).Twice()
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(msgs []Message) bool { return len(msgs) == 1 })).Return(nil).Once()

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	relay := NewRelay(db, pub, WithBatchSize(2), WithRelayLogger(logger.Discard()), WithRelayMetrics(m))

	sent, err := relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, sent)
	assert.Equal(t, float64(5), testutil.ToFloat64(m.OutboxPublishedTotal))

	first := pub.Calls[0].Arguments.Get(1).([]Message)
	assert.Equal(t, "evt-00", first[0].ID)
	assert.Equal(t, TopicTradeExecuted, first[0].Topic)
	assert.Equal(t, "asset-1", first[0].Key)
	assert.JSONEq(t, `{"seq":0}`, string(first[0].Value))

	pending, err := db.PendingOutboxEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	sent, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)
	pub.AssertExpectations(t)
}

func TestRelayFlushKeepsEventsOnPublishFailure(t *testing.T) {
	db := newOutbox(t, 3)
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker indisponível")).Once()

	relay := NewRelay(db, pub, WithRelayLogger(logger.Discard()))
	sent, err := relay.Flush(context.Background())
	require.Error(t, err)
	assert.Zero(t, sent)

	pending, err := db.PendingOutboxEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3, "eventos continuam pendentes para a próxima rodada")

	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once()
	sent, err = relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	pub.AssertExpectations(t)
}

func TestRelayRunStopsWithContext(t *testing.T) {
	db := newOutbox(t, 1)
	pub := new(MockPublisher)
	published := make(chan struct{})
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once().Run(func(mock.Arguments) { close(published) })

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)
	relay := NewRelay(db, pub, WithInterval(10*time.Millisecond), WithRelayLogger(logger.Discard()), WithRelayMetrics(m))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	select {
	case <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("relay não publicou o evento pendente")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay não encerrou com o contexto")
	}
	assert.Zero(t, testutil.ToFloat64(m.OutboxFailuresTotal))
	pub.AssertExpectations(t)
}

func TestNewKafkaPublisherRequiresBrokers(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{})
	assert.Error(t, err)

	p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, TopicPrefix: "fracionado."})
	require.NoError(t, err)
	assert.Equal(t, "fracionado.", p.prefix)
	assert.NoError(t, p.Publish(context.Background(), nil))
	assert.NoError(t, p.Close())
}
