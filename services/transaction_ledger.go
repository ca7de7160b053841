package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"iter"
	"time"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/storage"
)

// TransactionLedger é a trilha de auditoria das negociações. Registros só são
// acrescentados, nunca alterados ou removidos.
type TransactionLedger struct {
	base
}

// NewTransactionLedger cria o livro de transações.
func NewTransactionLedger(deps Deps, opts ...Option) *TransactionLedger {
	return &TransactionLedger{base: newBase(deps, opts)}
}

// HistoryFilter seleciona transações. Campos vazios não filtram.
type HistoryFilter struct {
	UserID   string // comprador ou vendedor
	AssetID  string
	Type     models.TransactionType
	From     time.Time
	To       time.Time
	PageSize int
}

// HistoryPage é uma página do histórico, da transação mais nova para a mais antiga.
type HistoryPage struct {
	Transactions []models.Transaction `json:"transactions"`
	NextCursor   string               `json:"next_cursor,omitempty"`
}

const (
	defaultHistoryPageSize = 50
	maxHistoryPageSize     = 500
)

// record acrescenta a transação dentro da unidade atômica da negociação.
func (l *TransactionLedger) record(ctx context.Context, tx *storage.Tx, t models.Transaction) error {
	if t.Units < 1 {
		return ErrInvalidUnits
	}
	return tx.InsertTransaction(ctx, t)
}

// Get obtém uma transação pelo ID.
func (l *TransactionLedger) Get(ctx context.Context, id string) (models.Transaction, error) {
	t, found, err := l.DB.GetTransaction(ctx, id)
	if err != nil {
		return models.Transaction{}, err
	}
	if !found {
		return models.Transaction{}, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return t, nil
}

// HistoryPage devolve a página que começa logo depois de cursor. Cursor vazio começa
// pela transação mais nova.
func (l *TransactionLedger) HistoryPage(ctx context.Context, f HistoryFilter, cursor string) (HistoryPage, error) {
	if err := f.validate(); err != nil {
		return HistoryPage{}, err
	}
	size := f.PageSize
	if size < 1 {
		size = defaultHistoryPageSize
	}
	size = min(size, maxHistoryPageSize)

	q := storage.TransactionQuery{
		UserID:  f.UserID,
		AssetID: f.AssetID,
		Type:    f.Type,
		From:    f.From,
		To:      f.To,
		Limit:   size + 1,
	}
	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return HistoryPage{}, err
		}
		q.BeforeAt, q.BeforeID = c.At, c.ID
	}

	txs, err := l.DB.ListTransactions(ctx, q)
	if err != nil {
		return HistoryPage{}, err
	}
	page := HistoryPage{Transactions: txs}
	if len(txs) > size {
		page.Transactions = txs[:size]
		last := page.Transactions[size-1]
		page.NextCursor = encodeCursor(historyCursor{At: last.CreatedAt, ID: last.ID})
	}
	if page.Transactions == nil {
		page.Transactions = []models.Transaction{}
	}
	return page, nil
}

// HistoryFor devolve uma sequência preguiçosa e finita das transações que casam com o
// filtro, da mais nova para a mais antiga. As páginas são lidas sob demanda e cada
// iteração recomeça do início. Um erro encerra a sequência depois de entregue.
func (l *TransactionLedger) HistoryFor(ctx context.Context, f HistoryFilter) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		cursor := ""
		for {
			page, err := l.HistoryPage(ctx, f, cursor)
			if err != nil {
				yield(models.Transaction{}, err)
				return
			}
			for _, t := range page.Transactions {
				if !yield(t, nil) {
					return
				}
			}
			if page.NextCursor == "" {
				return
			}
			cursor = page.NextCursor
		}
	}
}

func (f HistoryFilter) validate() error {
	if f.Type != "" && f.Type != models.TransactionBuyFill && f.Type != models.TransactionSellFill {
		return fmt.Errorf("%w: tipo de transação desconhecido %q", ErrInvalidInput, f.Type)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return fmt.Errorf("%w: início do período depois do fim", ErrInvalidInput)
	}
	if f.PageSize < 0 {
		return fmt.Errorf("%w: tamanho de página negativo", ErrInvalidInput)
	}
	return nil
}

// historyCursor aponta para a última transação entregue; a próxima página começa depois dela.
type historyCursor struct {
	At time.Time `json:"t"`
	ID string    `json:"id"`
}

func encodeCursor(c historyCursor) string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (historyCursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return historyCursor{}, fmt.Errorf("%w: cursor malformado", ErrInvalidInput)
	}
	var c historyCursor
	if err := json.Unmarshal(b, &c); err != nil || c.At.IsZero() || c.ID == "" {
		return historyCursor{}, fmt.Errorf("%w: cursor malformado", ErrInvalidInput)
	}
	return c, nil
}
