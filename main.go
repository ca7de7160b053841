package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferreirogomes/fracionado/config"
	"github.com/ferreirogomes/fracionado/events"
	"github.com/ferreirogomes/fracionado/handlers"
	"github.com/ferreirogomes/fracionado/logger"
	"github.com/ferreirogomes/fracionado/metrics"
	"github.com/ferreirogomes/fracionado/services"
	"github.com/ferreirogomes/fracionado/storage"
)

// app reúne as peças montadas a partir da configuração.
type app struct {
	logger    *slog.Logger
	db        *storage.DB
	handler   http.Handler
	relay     *events.Relay // nil sem brokers configurados
	publisher *events.KafkaPublisher
}

func newApp(cfg config.Config, l *slog.Logger) (*app, error) {
	db, err := storage.NewDB(cfg.DBDriver, cfg.DSN(),
		storage.WithMaxRetries(cfg.TradeMaxRetries),
		storage.WithLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados e aplicar migrações: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("falha ao registrar métricas: %w", err)
	}

	deps := services.Deps{DB: db, Assets: db, Users: db, Locks: services.NewAssetLocks()}
	opts := []services.Option{services.WithLogger(l), services.WithMetrics(m)}
	fractions := services.NewFractionLedger(deps, opts...)
	offers := services.NewOfferBook(deps, opts...)
	ledger := services.NewTransactionLedger(deps, opts...)
	trading := services.NewTradingService(deps, fractions, offers, ledger, opts...)
	portfolio := services.NewPortfolioService(deps, opts...)

	hl := handlers.WithLogger(l)
	a := &app{
		logger: l,
		db:     db,
		handler: handlers.NewRouter(handlers.Routes{
			Assets:       handlers.NewAssetHandler(db, fractions, offers, hl),
			Users:        handlers.NewUserHandler(db, portfolio, hl),
			Offers:       handlers.NewOfferHandler(offers, trading, hl),
			Transactions: handlers.NewTransactionHandler(ledger, hl),
			Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			Logger:       l,
		}),
	}

	// O relay só roda com brokers configurados; sem eles os eventos ficam na outbox.
	if cfg.EventsEnabled() {
		a.publisher, err = events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:     cfg.KafkaBrokers,
			TopicPrefix: cfg.KafkaTopicPrefix,
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("falha ao inicializar publicador Kafka: %w", err)
		}
		a.relay = events.NewRelay(db, a.publisher,
			events.WithInterval(cfg.OutboxInterval),
			events.WithBatchSize(cfg.OutboxBatchSize),
			events.WithRelayLogger(l),
			events.WithRelayMetrics(m),
		)
	}
	return a, nil
}

// runRelay publica a outbox até ctx ser cancelado. Fecha done ao terminar.
func (a *app) runRelay(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	if a.relay == nil {
		a.logger.Warn("KAFKA_BROKERS vazio, relay de eventos desligado")
		return
	}
	a.relay.Run(ctx)
}

func (a *app) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}

	l, err := logger.New(cfg.Logger())
	if err != nil {
		log.Fatalf("Falha ao inicializar logger: %v", err)
	}

	a, err := newApp(cfg, l)
	if err != nil {
		log.Fatalf("Falha fatal ao iniciar: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relayDone := make(chan struct{})
	go a.runRelay(ctx, relayDone)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info("servidor HTTP iniciado", "addr", cfg.HTTPAddr, "driver", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("servidor HTTP encerrado com erro", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("encerrando servidor")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("falha ao encerrar servidor HTTP", "error", err)
	}
	<-relayDone
}
