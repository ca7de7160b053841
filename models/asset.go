package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset representa um ativo real fracionado em unidades de propriedade.
// É mantido pelo cadastro de ativos; o núcleo de negociação apenas o lê.
type Asset struct {
	ID         string          `json:"id" db:"id"`
	Name       string          `json:"name" db:"name"`
	TotalUnit  int64           `json:"total_unit" db:"total_unit"` // Quantidade total de unidades emitidas
	UnitMin    int64           `json:"unit_min" db:"unit_min"`     // Menor fração negociável
	UnitMax    int64           `json:"unit_max" db:"unit_max"`     // Maior fração negociável
	TotalValue decimal.Decimal `json:"total_value" db:"total_value"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// UnitValue retorna o valor atual de uma unidade do ativo.
func (a Asset) UnitValue() decimal.Decimal {
	if a.TotalUnit <= 0 {
		return decimal.Zero
	}
	return a.TotalValue.Div(decimal.NewFromInt(a.TotalUnit))
}

// InBounds indica se a quantidade respeita os limites [UnitMin, UnitMax].
func (a Asset) InBounds(units int64) bool {
	return units >= a.UnitMin && units <= a.UnitMax
}
