package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ferreirogomes/fracionado/models"
)

// PortfolioService projeta as frações ativas de um usuário em posições por ativo.
type PortfolioService struct {
	base
}

// NewPortfolioService cria o agregador de carteira.
func NewPortfolioService(deps Deps, opts ...Option) *PortfolioService {
	return &PortfolioService{base: newBase(deps, opts)}
}

// Holding é a posição do usuário em um ativo.
type Holding struct {
	AssetID   string          `json:"asset_id"`
	AssetName string          `json:"asset_name"`
	Units     int64           `json:"units"`
	Fractions int             `json:"fractions"`
	CostBasis decimal.Decimal `json:"cost_basis"` // soma de unidades * valor unitário registrado
	Value     decimal.Decimal `json:"estimated_value"`
}

// Portfolio é a carteira consolidada do usuário.
type Portfolio struct {
	UserID     string          `json:"user_id"`
	Holdings   []Holding       `json:"holdings"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Holdings agrupa as frações ativas do usuário por ativo, com custo registrado e valor
// estimado pelo valor unitário atual do ativo.
func (s *PortfolioService) Holdings(ctx context.Context, userID string) (Portfolio, error) {
	if strings.TrimSpace(userID) == "" {
		return Portfolio{}, fmt.Errorf("%w: usuário é obrigatório", ErrInvalidInput)
	}
	fractions, err := s.DB.ActiveFractionsByOwner(ctx, userID)
	if err != nil {
		return Portfolio{}, err
	}

	p := Portfolio{UserID: userID, Holdings: []Holding{}, TotalCost: decimal.Zero, TotalValue: decimal.Zero}
	byAsset := make(map[string]int)
	unitValues := make(map[string]decimal.Decimal)
	for _, f := range fractions {
		i, ok := byAsset[f.AssetID]
		if !ok {
			asset, err := s.loadAsset(ctx, f.AssetID)
			if err != nil {
				return Portfolio{}, err
			}
			p.Holdings = append(p.Holdings, Holding{
				AssetID:   asset.ID,
				AssetName: asset.Name,
				CostBasis: decimal.Zero,
				Value:     decimal.Zero,
			})
			i = len(p.Holdings) - 1
			byAsset[f.AssetID] = i
			unitValues[f.AssetID] = asset.UnitValue()
		}
		h := &p.Holdings[i]
		h.Units += f.Units
		h.Fractions++
		h.CostBasis = h.CostBasis.Add(f.Value())
	}

	for i := range p.Holdings {
		h := &p.Holdings[i]
		h.Value = unitValues[h.AssetID].Mul(decimal.NewFromInt(h.Units))
		p.TotalCost = p.TotalCost.Add(h.CostBasis)
		p.TotalValue = p.TotalValue.Add(h.Value)
	}
	return p, nil
}

// Fractions lista as frações ativas do usuário, opcionalmente restritas a um ativo.
func (s *PortfolioService) Fractions(ctx context.Context, userID, assetID string) ([]models.Fraction, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: usuário é obrigatório", ErrInvalidInput)
	}
	if assetID != "" {
		return s.DB.ActiveFractions(ctx, userID, assetID)
	}
	return s.DB.ActiveFractionsByOwner(ctx, userID)
}
