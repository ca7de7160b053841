package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifica qual lado da oferta foi executado.
type TransactionType string

const (
	TransactionBuyFill  TransactionType = "buy-fill"
	TransactionSellFill TransactionType = "sell-fill"
)

// TransactionTypeFor retorna o tipo de transação gerado ao executar uma oferta da direção dada.
func TransactionTypeFor(d Direction) TransactionType {
	if d == DirectionBuy {
		return TransactionBuyFill
	}
	return TransactionSellFill
}

// Transaction é o registro imutável de uma negociação concluída.
type Transaction struct {
	ID         string          `json:"id" db:"id"`
	AssetID    string          `json:"asset_id" db:"asset_id"`
	OfferID    string          `json:"offer_id" db:"offer_id"`
	FractionID string          `json:"fraction_id" db:"fraction_id"` // Fração criada para o comprador
	BuyerID    string          `json:"buyer_id" db:"buyer_id"`
	SellerID   string          `json:"seller_id" db:"seller_id"`
	Units      int64           `json:"units" db:"units"`
	UnitPrice  decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value" db:"total_value"`
	Type       TransactionType `json:"type" db:"type"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
