// Package config carrega a configuração do serviço a partir de variáveis de ambiente.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ferreirogomes/fracionado/logger"
	"github.com/ferreirogomes/fracionado/storage"
)

// Config reúne as opções do processo.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"fracionado.db"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`

	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopicPrefix string        `env:"KAFKA_TOPIC_PREFIX" envDefault:"fracionado."`
	OutboxInterval   time.Duration `env:"OUTBOX_INTERVAL" envDefault:"1s"`
	OutboxBatchSize  int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	TradeMaxRetries int `env:"TRADE_MAX_RETRIES" envDefault:"3"`
}

// Load lê o ambiente e valida o resultado.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("falha ao ler variáveis de ambiente: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejeita combinações inválidas.
func (c *Config) Validate() error {
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	switch c.DBDriver {
	case storage.DriverPostgres, storage.DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER inválido: %q (use postgres ou sqlite)", c.DBDriver)
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL é obrigatório")
	}
	if c.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE deve ser positivo")
	}
	if c.OutboxInterval <= 0 {
		return fmt.Errorf("OUTBOX_INTERVAL deve ser positivo")
	}
	if c.TradeMaxRetries < 0 {
		return fmt.Errorf("TRADE_MAX_RETRIES não pode ser negativo")
	}
	return nil
}

// DSN devolve a string de conexão no formato do driver. Para SQLite, DATABASE_URL é o
// caminho do arquivo.
func (c Config) DSN() string {
	if c.DBDriver == storage.DriverSQLite && !strings.HasPrefix(c.DatabaseURL, "file:") {
		return storage.SQLiteDSN(c.DatabaseURL)
	}
	return c.DatabaseURL
}

// Logger devolve a configuração de log.
func (c Config) Logger() logger.Config {
	return logger.Config{Level: c.LogLevel, Format: c.LogFormat, FilePath: c.LogFile}
}

// EventsEnabled reporta se há brokers para o relay de eventos.
func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
