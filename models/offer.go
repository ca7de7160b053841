package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction indica se a oferta é de compra ou de venda.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

// ParseDirection converte texto livre ("buy", "SELL", ...) em Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	}
	return "", fmt.Errorf("direção inválida: %q", s)
}

// Valid reporta se a direção é conhecida.
func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

// Offer representa uma intenção de compra ou venda de unidades de um ativo.
type Offer struct {
	ID             string          `json:"id" db:"id"`
	AssetID        string          `json:"asset_id" db:"asset_id"`
	CreatorID      string          `json:"creator_id" db:"creator_id"`
	Direction      Direction       `json:"direction" db:"direction"`
	Units          int64           `json:"units" db:"units"`                     // Quantidade pedida na criação
	RemainingUnits int64           `json:"remaining_units" db:"remaining_units"` // Ainda disponível para execução
	PricePerUnit   decimal.Decimal `json:"price_per_unit" db:"price_per_unit"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Parties resolve comprador e vendedor quando a contraparte aceita a oferta.
func (o Offer) Parties(counterpartyID string) (buyerID, sellerID string) {
	if o.Direction == DirectionBuy {
		return o.CreatorID, counterpartyID
	}
	return counterpartyID, o.CreatorID
}

// FilledUnits retorna quantas unidades já foram executadas.
func (o Offer) FilledUnits() int64 {
	return o.Units - o.RemainingUnits
}
