package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fraction representa um bloco contíguo de unidades de um ativo pertencente a um usuário.
// Uma fração nunca muda de dono nem de quantidade: a troca de propriedade desativa a
// fração antiga e cria novas.
type Fraction struct {
	ID               string          `json:"id" db:"id"`
	AssetID          string          `json:"asset_id" db:"asset_id"`
	OwnerID          string          `json:"owner_id" db:"owner_id"`
	ParentFractionID *string         `json:"parent_fraction_id,omitempty" db:"parent_fraction_id"` // Fração da qual esta foi recortada
	Units            int64           `json:"units" db:"units"`
	ValuePerUnit     decimal.Decimal `json:"value_per_unit" db:"value_per_unit"`
	IsActive         bool            `json:"is_active" db:"is_active"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	DeactivatedAt    *time.Time      `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

// Value retorna o valor registrado da fração (unidades * valor unitário).
func (f Fraction) Value() decimal.Decimal {
	return f.ValuePerUnit.Mul(decimal.NewFromInt(f.Units))
}

// SumUnits soma as unidades de um conjunto de frações.
func SumUnits(fractions []Fraction) int64 {
	var total int64
	for _, f := range fractions {
		total += f.Units
	}
	return total
}
