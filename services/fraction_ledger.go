package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/storage"
)

// FractionLedger é a fonte de verdade sobre quem possui quantas unidades de cada ativo.
type FractionLedger struct {
	base
}

// NewFractionLedger cria o livro de frações.
func NewFractionLedger(deps Deps, opts ...Option) *FractionLedger {
	return &FractionLedger{base: newBase(deps, opts)}
}

// newFraction descreve uma fração a ser criada dentro de uma unidade atômica.
type newFraction struct {
	asset     models.Asset
	ownerID   string
	units     int64
	unitValue decimal.Decimal
	parentID  *string
	// remainder isenta a fração dos limites [unit_min, unit_max]: é sobra de uma divisão.
	remainder bool
}

// CreateFraction emite uma nova fração ativa (emissão do ativo ou ajuste administrativo).
// Falha se a quantidade estiver fora dos limites do ativo ou se a soma das frações ativas
// passar do total de unidades.
func (l *FractionLedger) CreateFraction(ctx context.Context, assetID, ownerID string, units int64, unitValue decimal.Decimal) (models.Fraction, error) {
	if strings.TrimSpace(assetID) == "" || strings.TrimSpace(ownerID) == "" {
		return models.Fraction{}, fmt.Errorf("%w: ativo e dono são obrigatórios", ErrInvalidInput)
	}
	if units < 1 {
		return models.Fraction{}, ErrInvalidUnits
	}
	if unitValue.IsNegative() {
		return models.Fraction{}, ErrInvalidPrice
	}
	if err := l.requireActiveUser(ctx, ownerID); err != nil {
		return models.Fraction{}, err
	}
	asset, err := l.loadAsset(ctx, assetID)
	if err != nil {
		return models.Fraction{}, err
	}

	var created models.Fraction
	err = l.withAssetLock(ctx, asset.ID, func(tx *storage.Tx) error {
		f, err := l.create(ctx, tx, newFraction{
			asset:     asset,
			ownerID:   ownerID,
			units:     units,
			unitValue: unitValue,
		}, l.now())
		if err != nil {
			return err
		}
		created = f
		return nil
	})
	if err != nil {
		return models.Fraction{}, err
	}

	l.logger.Info("fração emitida", "fraction_id", created.ID, "asset_id", asset.ID, "owner_id", ownerID, "units", units)
	return created, nil
}

// create grava a fração dentro de tx, verificando os invariantes do ativo contra o estado
// já alterado pela própria transação.
func (l *FractionLedger) create(ctx context.Context, tx *storage.Tx, nf newFraction, at time.Time) (models.Fraction, error) {
	if nf.units < 1 {
		return models.Fraction{}, ErrInvalidUnits
	}
	if !nf.remainder && !nf.asset.InBounds(nf.units) {
		return models.Fraction{}, constraintViolation("%d unidades fora dos limites [%d, %d] do ativo %s",
			nf.units, nf.asset.UnitMin, nf.asset.UnitMax, nf.asset.ID)
	}

	active, err := tx.SumActiveUnits(ctx, nf.asset.ID)
	if err != nil {
		return models.Fraction{}, err
	}
	if active+nf.units > nf.asset.TotalUnit {
		return models.Fraction{}, constraintViolation("%d unidades ativas mais %d excedem o total de %d do ativo %s",
			active, nf.units, nf.asset.TotalUnit, nf.asset.ID)
	}

	f := models.Fraction{
		ID:               newID(),
		AssetID:          nf.asset.ID,
		OwnerID:          nf.ownerID,
		ParentFractionID: nf.parentID,
		Units:            nf.units,
		ValuePerUnit:     nf.unitValue,
		IsActive:         true,
		CreatedAt:        at,
	}
	if err := tx.InsertFraction(ctx, f); err != nil {
		return models.Fraction{}, err
	}
	return f, nil
}

// DeactivateFraction desativa a fração. Não faz nada se ela já estiver inativa.
func (l *FractionLedger) DeactivateFraction(ctx context.Context, fractionID string) error {
	f, found, err := l.DB.GetFraction(ctx, fractionID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrFractionNotFound, fractionID)
	}
	if !f.IsActive {
		return nil
	}

	return l.withAssetLock(ctx, f.AssetID, func(tx *storage.Tx) error {
		_, err := l.deactivate(ctx, tx, fractionID, l.now())
		return err
	})
}

// deactivate desativa a fração dentro de tx e reporta se houve mudança.
func (l *FractionLedger) deactivate(ctx context.Context, tx *storage.Tx, fractionID string, at time.Time) (bool, error) {
	return tx.DeactivateFraction(ctx, fractionID, at)
}

// ActiveFractionsFor lista as frações ativas do dono no ativo, da mais antiga para a mais nova.
func (l *FractionLedger) ActiveFractionsFor(ctx context.Context, ownerID, assetID string) ([]models.Fraction, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(assetID) == "" {
		return nil, fmt.Errorf("%w: dono e ativo são obrigatórios", ErrInvalidInput)
	}
	return l.DB.ActiveFractions(ctx, ownerID, assetID)
}

// TotalActiveUnits soma as unidades ativas do ativo.
func (l *FractionLedger) TotalActiveUnits(ctx context.Context, assetID string) (int64, error) {
	if strings.TrimSpace(assetID) == "" {
		return 0, fmt.Errorf("%w: ativo é obrigatório", ErrInvalidInput)
	}
	return l.DB.SumActiveUnits(ctx, assetID)
}

// GetFraction obtém uma fração, ativa ou não.
func (l *FractionLedger) GetFraction(ctx context.Context, fractionID string) (models.Fraction, error) {
	f, found, err := l.DB.GetFraction(ctx, fractionID)
	if err != nil {
		return models.Fraction{}, err
	}
	if !found {
		return models.Fraction{}, fmt.Errorf("%w: %s", ErrFractionNotFound, fractionID)
	}
	return f, nil
}
