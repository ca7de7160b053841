// Package metrics expõe os indicadores Prometheus do livro-razão de frações.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fracionado"

// Metrics agrupa os coletores do serviço. Um *Metrics nil é válido e não registra nada.
type Metrics struct {
	TradesTotal          *prometheus.CounterVec
	TradeDuration        prometheus.Histogram
	TradeUnitsTotal      prometheus.Counter
	OffersCreatedTotal   *prometheus.CounterVec
	OutboxPublishedTotal prometheus.Counter
	OutboxFailuresTotal  prometheus.Counter
}

// New cria os coletores e os registra em reg. Com reg nil usa o registrador padrão.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Execuções de negociação por resultado",
		}, []string{"result"}),
		TradeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_duration_seconds",
			Help:      "Duração da execução de uma negociação",
			Buckets:   prometheus.DefBuckets,
		}),
		TradeUnitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_units_total",
			Help:      "Unidades transferidas em negociações confirmadas",
		}),
		OffersCreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offers_created_total",
			Help:      "Ofertas criadas por direção",
		}, []string{"direction"}),
		OutboxPublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Eventos da outbox publicados",
		}),
		OutboxFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_failures_total",
			Help:      "Falhas ao publicar eventos da outbox",
		}),
	}

	collectors := []prometheus.Collector{
		m.TradesTotal,
		m.TradeDuration,
		m.TradeUnitsTotal,
		m.OffersCreatedTotal,
		m.OutboxPublishedTotal,
		m.OutboxFailuresTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveTrade registra o resultado de uma execução.
func (m *Metrics) ObserveTrade(result string, seconds float64, units int64) {
	if m == nil {
		return
	}
	m.TradesTotal.WithLabelValues(result).Inc()
	m.TradeDuration.Observe(seconds)
	if units > 0 {
		m.TradeUnitsTotal.Add(float64(units))
	}
}

// OfferCreated conta uma oferta nova.
func (m *Metrics) OfferCreated(direction string) {
	if m == nil {
		return
	}
	m.OffersCreatedTotal.WithLabelValues(direction).Inc()
}

// OutboxPublished conta eventos publicados pelo relay.
func (m *Metrics) OutboxPublished(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OutboxPublishedTotal.Add(float64(n))
}

// OutboxFailed conta uma rodada de publicação que falhou.
func (m *Metrics) OutboxFailed() {
	if m == nil {
		return
	}
	m.OutboxFailuresTotal.Inc()
}
