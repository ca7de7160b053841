package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ferreirogomes/fracionado/models"
)

const offerColumns = `id, asset_id, creator_id, direction, units, remaining_units, price_per_unit, is_active, created_at, updated_at`

// OfferQuery filtra a listagem de ofertas. Campos vazios não filtram.
type OfferQuery struct {
	AssetID       string
	CreatorID     string
	Direction     models.Direction
	Active        *bool
	MinUnits      int64
	MaxUnits      int64
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// InsertOffer grava uma nova oferta.
func (q queries) InsertOffer(ctx context.Context, o models.Offer) error {
	_, err := q.exec(ctx, `
		INSERT INTO offers (`+offerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.AssetID, o.CreatorID, o.Direction, o.Units, o.RemainingUnits, o.PricePerUnit, o.IsActive, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar oferta: %w", err)
	}
	return nil
}

// GetOffer obtém uma oferta pelo ID. Dentro de uma Tx a linha fica bloqueada até o fim da unidade.
func (q queries) GetOffer(ctx context.Context, id string) (models.Offer, bool, error) {
	var o models.Offer
	err := q.get(ctx, &o, `SELECT `+offerColumns+` FROM offers WHERE id = ?`+q.forUpdate(), id)
	if errors.Is(err, ErrNotFound) {
		return models.Offer{}, false, nil
	}
	if err != nil {
		return models.Offer{}, false, fmt.Errorf("falha ao buscar oferta: %w", err)
	}
	return o, true, nil
}

// FindActiveOffer busca a oferta ativa de um criador para (ativo, direção).
func (q queries) FindActiveOffer(ctx context.Context, creatorID, assetID string, dir models.Direction) (models.Offer, bool, error) {
	var o models.Offer
	err := q.get(ctx, &o, `
		SELECT `+offerColumns+` FROM offers
		WHERE creator_id = ? AND asset_id = ? AND direction = ? AND is_active = TRUE`+q.forUpdate(),
		creatorID, assetID, dir)
	if errors.Is(err, ErrNotFound) {
		return models.Offer{}, false, nil
	}
	if err != nil {
		return models.Offer{}, false, fmt.Errorf("falha ao buscar oferta ativa: %w", err)
	}
	return o, true, nil
}

// UpdateOfferRemaining grava o novo saldo de unidades da oferta; com saldo zero ela é desativada.
func (q queries) UpdateOfferRemaining(ctx context.Context, id string, remaining int64, at time.Time) error {
	n, err := q.exec(ctx, `
		UPDATE offers SET remaining_units = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND is_active = TRUE`, remaining, remaining > 0, at, id)
	if err != nil {
		return fmt.Errorf("falha ao atualizar saldo da oferta: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateOffer desativa a oferta. Retorna false se ela já estava inativa.
func (q queries) DeactivateOffer(ctx context.Context, id string, at time.Time) (bool, error) {
	n, err := q.exec(ctx, `
		UPDATE offers SET is_active = FALSE, updated_at = ?
		WHERE id = ? AND is_active = TRUE`, at, id)
	if err != nil {
		return false, fmt.Errorf("falha ao desativar oferta: %w", err)
	}
	return n > 0, nil
}

// ListOffers lista ofertas segundo o filtro, das mais antigas para as mais novas.
func (q queries) ListOffers(ctx context.Context, f OfferQuery) ([]models.Offer, error) {
	var (
		where []string
		args  []any
	)
	if f.AssetID != "" {
		where = append(where, "asset_id = ?")
		args = append(args, f.AssetID)
	}
	if f.CreatorID != "" {
		where = append(where, "creator_id = ?")
		args = append(args, f.CreatorID)
	}
	if f.Direction != "" {
		where = append(where, "direction = ?")
		args = append(args, f.Direction)
	}
	if f.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, *f.Active)
	}
	if f.MinUnits > 0 {
		where = append(where, "remaining_units >= ?")
		args = append(args, f.MinUnits)
	}
	if f.MaxUnits > 0 {
		where = append(where, "remaining_units <= ?")
		args = append(args, f.MaxUnits)
	}
	if !f.CreatedAfter.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.CreatedAfter)
	}
	if !f.CreatedBefore.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.CreatedBefore)
	}

	query := `SELECT ` + offerColumns + ` FROM offers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	var offers []models.Offer
	if err := q.selectAll(ctx, &offers, query, args...); err != nil {
		return nil, fmt.Errorf("falha ao listar ofertas: %w", err)
	}
	return offers, nil
}
