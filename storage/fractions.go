package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ferreirogomes/fracionado/models"
)

const fractionColumns = `id, asset_id, owner_id, parent_fraction_id, units, value_per_unit, is_active, created_at, deactivated_at`

// InsertFraction grava uma nova fração.
func (q queries) InsertFraction(ctx context.Context, f models.Fraction) error {
	_, err := q.exec(ctx, `
		INSERT INTO fractions (`+fractionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.AssetID, f.OwnerID, f.ParentFractionID, f.Units, f.ValuePerUnit, f.IsActive, f.CreatedAt, f.DeactivatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar fração: %w", err)
	}
	return nil
}

// GetFraction obtém uma fração pelo ID.
func (q queries) GetFraction(ctx context.Context, id string) (models.Fraction, bool, error) {
	var f models.Fraction
	err := q.get(ctx, &f, `SELECT `+fractionColumns+` FROM fractions WHERE id = ?`+q.forUpdate(), id)
	if errors.Is(err, ErrNotFound) {
		return models.Fraction{}, false, nil
	}
	if err != nil {
		return models.Fraction{}, false, fmt.Errorf("falha ao buscar fração: %w", err)
	}
	return f, true, nil
}

// DeactivateFraction marca a fração como inativa. Retorna false se ela já estava inativa.
func (q queries) DeactivateFraction(ctx context.Context, id string, at time.Time) (bool, error) {
	n, err := q.exec(ctx, `
		UPDATE fractions SET is_active = FALSE, deactivated_at = ?
		WHERE id = ? AND is_active = TRUE`, at, id)
	if err != nil {
		return false, fmt.Errorf("falha ao desativar fração: %w", err)
	}
	return n > 0, nil
}

// ActiveFractions lista as frações ativas de um dono em um ativo, da mais antiga para a mais nova.
func (q queries) ActiveFractions(ctx context.Context, ownerID, assetID string) ([]models.Fraction, error) {
	var fractions []models.Fraction
	err := q.selectAll(ctx, &fractions, `
		SELECT `+fractionColumns+` FROM fractions
		WHERE owner_id = ? AND asset_id = ? AND is_active = TRUE
		ORDER BY created_at ASC, id ASC`+q.forUpdate(), ownerID, assetID)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar frações ativas: %w", err)
	}
	return fractions, nil
}

// ActiveFractionsByOwner lista todas as frações ativas de um dono, agrupáveis por ativo.
func (q queries) ActiveFractionsByOwner(ctx context.Context, ownerID string) ([]models.Fraction, error) {
	var fractions []models.Fraction
	err := q.selectAll(ctx, &fractions, `
		SELECT `+fractionColumns+` FROM fractions
		WHERE owner_id = ? AND is_active = TRUE
		ORDER BY asset_id ASC, created_at ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar frações do usuário: %w", err)
	}
	return fractions, nil
}

// SumActiveUnits soma as unidades ativas de um ativo.
func (q queries) SumActiveUnits(ctx context.Context, assetID string) (int64, error) {
	var total int64
	err := q.get(ctx, &total, `
		SELECT COALESCE(SUM(units), 0) FROM fractions
		WHERE asset_id = ? AND is_active = TRUE`, assetID)
	if err != nil {
		return 0, fmt.Errorf("falha ao somar unidades ativas: %w", err)
	}
	return total, nil
}

// SumActiveUnitsByOwner soma as unidades ativas de um dono em um ativo.
func (q queries) SumActiveUnitsByOwner(ctx context.Context, ownerID, assetID string) (int64, error) {
	var total int64
	err := q.get(ctx, &total, `
		SELECT COALESCE(SUM(units), 0) FROM fractions
		WHERE owner_id = ? AND asset_id = ? AND is_active = TRUE`, ownerID, assetID)
	if err != nil {
		return 0, fmt.Errorf("falha ao somar unidades do dono: %w", err)
	}
	return total, nil
}
