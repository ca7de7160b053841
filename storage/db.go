package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationFS embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultMaxRetries = 3
)

// ErrNotFound indica que a linha procurada não existe.
var ErrNotFound = errors.New("registro não encontrado")

// DB representa a conexão com o banco de dados do livro-razão.
type DB struct {
	*sqlx.DB
	queries
	maxRetries int
	logger     *slog.Logger
}

// Option ajusta o DB na criação.
type Option func(*DB)

// WithMaxRetries define quantas vezes uma unidade atômica é repetida em caso de conflito de concorrência.
func WithMaxRetries(n int) Option {
	return func(d *DB) {
		if n >= 0 {
			d.maxRetries = n
		}
	}
}

// WithLogger define o logger usado pela camada de armazenamento.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDB conecta-se ao banco (postgres ou sqlite) e executa as migrações.
func NewDB(driver, dataSourceName string, opts ...Option) (*DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("driver de banco não suportado: %q", driver)
	}

	db, err := sqlx.Connect(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite admite um único escritor; uma conexão evita SQLITE_BUSY entre transações.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("falha ao pingar o banco de dados: %w", err)
	}

	d := &DB{
		DB:         db,
		queries:    queries{ext: db, driver: driver},
		maxRetries: defaultMaxRetries,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger.Info("conexão com o banco de dados estabelecida", "driver", driver)

	if err := d.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("falha ao executar migrações: %w", err)
	}

	return d, nil
}

// SQLiteDSN monta o DSN usado pelo driver modernc para um arquivo local.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite"
}

// runMigrations executa as migrações usando sql-migrate.
func (d *DB) runMigrations() error {
	dialect := "postgres"
	if d.driver == DriverSQLite {
		dialect = "sqlite3"
	}
	migrations := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFS,
		Root:       "migrations/" + d.driver,
	}

	n, err := migrate.Exec(d.DB.DB, dialect, migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		d.logger.Info("migrações aplicadas", "count", n)
	} else {
		d.logger.Debug("nenhuma migração nova para aplicar")
	}
	return nil
}

// Driver retorna o nome do driver em uso.
func (d *DB) Driver() string {
	return d.driver
}

// Tx é uma unidade atômica aberta sobre o DB. Todas as leituras feitas por ela
// enxergam e bloqueiam as linhas que a transação vai alterar.
type Tx struct {
	*sqlx.Tx
	queries
}

// InTx executa fn dentro de uma transação. Qualquer erro desfaz todas as alterações.
// Conflitos de serialização reportados pelo banco repetem a unidade inteira;
// erros de negócio devolvidos por fn nunca são repetidos.
func (d *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = d.runTx(ctx, fn)
		if err == nil || !isRetryable(err) || attempt >= d.maxRetries {
			return err
		}
		d.logger.Warn("conflito de concorrência, repetindo transação", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff(attempt)):
		}
	}
}

func (d *DB) runTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	tx := &Tx{Tx: sqlTx, queries: queries{ext: sqlTx, driver: d.driver, inTx: true}}
	if err := fn(tx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("falha ao confirmar transação: %w", err)
	}
	committed = true
	return nil
}

// LockAsset serializa, entre processos, as unidades atômicas que tocam o mesmo ativo.
// No SQLite o banco já admite um único escritor e a chamada não faz nada.
func (tx *Tx) LockAsset(ctx context.Context, assetID string) error {
	if tx.driver != DriverPostgres {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, assetID); err != nil {
		return fmt.Errorf("falha ao bloquear ativo %s: %w", assetID, err)
	}
	return nil
}

const (
	baseRetryDelay = 10 * time.Millisecond
	maxRetryDelay  = 500 * time.Millisecond
)

// retryBackoff retorna baseRetryDelay * 2^attempt, limitado a maxRetryDelay.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		return baseRetryDelay
	}
	if attempt > 16 {
		return maxRetryDelay
	}
	delay := baseRetryDelay * time.Duration(1<<attempt)
	if delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// queries reúne as consultas compartilhadas por DB e Tx.
type queries struct {
	ext    sqlx.ExtContext
	driver string
	inTx   bool
}

// bind converte placeholders "?" para o formato do driver.
func (q queries) bind(query string) string {
	if q.driver == DriverPostgres {
		return sqlx.Rebind(sqlx.DOLLAR, query)
	}
	return query
}

// forUpdate devolve a cláusula de bloqueio de linha quando suportada.
func (q queries) forUpdate() string {
	if q.inTx && q.driver == DriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func (q queries) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, q.ext, dest, q.bind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (q queries) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, q.ext, dest, q.bind(query), args...)
}

func (q queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.ext.ExecContext(ctx, q.bind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// sqlxIn expande argumentos de lista em consultas "IN (?)".
func sqlxIn(query string, args ...any) (string, []any, error) {
	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, fmt.Errorf("falha ao expandir consulta: %w", err)
	}
	return expanded, expandedArgs, nil
}
