package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ferreirogomes/fracionado/models"
)

// A tabela de transações é somente de inserção: não existe UPDATE nem DELETE aqui,
// e gatilhos no esquema rejeitam qualquer tentativa feita por fora.

const transactionColumns = `id, asset_id, offer_id, fraction_id, buyer_id, seller_id, units, unit_price, total_value, type, created_at`

// TransactionQuery filtra o histórico. A paginação é por chave (created_at, id) decrescente.
type TransactionQuery struct {
	UserID  string // comprador ou vendedor
	AssetID string
	Type    models.TransactionType
	From    time.Time
	To      time.Time

	// Before, quando preenchido, devolve apenas registros anteriores a (BeforeAt, BeforeID).
	BeforeAt time.Time
	BeforeID string

	Limit int
}

// InsertTransaction grava uma transação.
func (q queries) InsertTransaction(ctx context.Context, t models.Transaction) error {
	_, err := q.exec(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AssetID, t.OfferID, t.FractionID, t.BuyerID, t.SellerID, t.Units, t.UnitPrice, t.TotalValue, t.Type, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao registrar transação: %w", err)
	}
	return nil
}

// GetTransaction obtém uma transação pelo ID.
func (q queries) GetTransaction(ctx context.Context, id string) (models.Transaction, bool, error) {
	var t models.Transaction
	err := q.get(ctx, &t, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	if errors.Is(err, ErrNotFound) {
		return models.Transaction{}, false, nil
	}
	if err != nil {
		return models.Transaction{}, false, fmt.Errorf("falha ao buscar transação: %w", err)
	}
	return t, true, nil
}

// ListTransactions lista transações da mais nova para a mais antiga.
func (q queries) ListTransactions(ctx context.Context, f TransactionQuery) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != "" {
		where = append(where, "(buyer_id = ? OR seller_id = ?)")
		args = append(args, f.UserID, f.UserID)
	}
	if f.AssetID != "" {
		where = append(where, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.To)
	}
	if !f.BeforeAt.IsZero() {
		where = append(where, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.BeforeAt, f.BeforeAt, f.BeforeID)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	var txs []models.Transaction
	if err := q.selectAll(ctx, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("falha ao listar transações: %w", err)
	}
	return txs, nil
}
