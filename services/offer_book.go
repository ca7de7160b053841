package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ferreirogomes/fracionado/events"
	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/storage"
)

// OfferBook mantém as intenções de compra e venda, sem duplicidade e com lastro para vendas.
type OfferBook struct {
	base
}

// NewOfferBook cria o livro de ofertas.
func NewOfferBook(deps Deps, opts ...Option) *OfferBook {
	return &OfferBook{base: newBase(deps, opts)}
}

// CreateOffer abre uma oferta. Cada criador pode ter no máximo uma oferta ativa por
// (ativo, direção); ofertas de venda precisam estar cobertas por unidades ativas do criador.
func (b *OfferBook) CreateOffer(ctx context.Context, creatorID, assetID string, direction models.Direction, units int64, price decimal.Decimal) (models.Offer, error) {
	if strings.TrimSpace(creatorID) == "" || strings.TrimSpace(assetID) == "" {
		return models.Offer{}, fmt.Errorf("%w: criador e ativo são obrigatórios", ErrInvalidInput)
	}
	if !direction.Valid() {
		return models.Offer{}, ErrInvalidDirection
	}
	if units < 1 {
		return models.Offer{}, ErrInvalidUnits
	}
	if !price.IsPositive() {
		return models.Offer{}, ErrInvalidPrice
	}
	if err := b.requireActiveUser(ctx, creatorID); err != nil {
		return models.Offer{}, err
	}
	asset, err := b.loadAsset(ctx, assetID)
	if err != nil {
		return models.Offer{}, err
	}

	now := b.now()
	offer := models.Offer{
		ID:             newID(),
		AssetID:        asset.ID,
		CreatorID:      creatorID,
		Direction:      direction,
		Units:          units,
		RemainingUnits: units,
		PricePerUnit:   price,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = b.withAssetLock(ctx, asset.ID, func(tx *storage.Tx) error {
		_, exists, err := tx.FindActiveOffer(ctx, creatorID, asset.ID, direction)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateActiveOffer
		}

		if direction == models.DirectionSell {
			held, err := tx.SumActiveUnitsByOwner(ctx, creatorID, asset.ID)
			if err != nil {
				return err
			}
			if units > held {
				return fmt.Errorf("%w: pedido %d, disponível %d", ErrInsufficientHoldingForSellOffer, units, held)
			}
		}

		if err := tx.InsertOffer(ctx, offer); err != nil {
			if storage.IsUniqueViolation(err) {
				return ErrDuplicateActiveOffer
			}
			return err
		}
		return appendEvent(ctx, tx, events.TopicOfferCreated, asset.ID, events.OfferCreated{
			OfferID:      offer.ID,
			AssetID:      offer.AssetID,
			CreatorID:    offer.CreatorID,
			Direction:    string(offer.Direction),
			Units:        offer.Units,
			PricePerUnit: offer.PricePerUnit,
			CreatedAt:    offer.CreatedAt,
		}, now)
	})
	if err != nil {
		b.logger.Debug("oferta rejeitada", "creator_id", creatorID, "asset_id", assetID, "direction", direction, "error", err)
		return models.Offer{}, err
	}

	b.metrics.OfferCreated(string(direction))
	b.logger.Info("oferta criada", "offer_id", offer.ID, "asset_id", asset.ID, "direction", direction, "units", units, "price", price.String())
	return offer, nil
}

// GetOffer obtém uma oferta pelo ID.
func (b *OfferBook) GetOffer(ctx context.Context, offerID string) (models.Offer, error) {
	offer, found, err := b.DB.GetOffer(ctx, offerID)
	if err != nil {
		return models.Offer{}, err
	}
	if !found {
		return models.Offer{}, fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
	}
	return offer, nil
}

// DeactivateOffer retira a oferta do livro. Não faz nada se ela já estiver inativa.
func (b *OfferBook) DeactivateOffer(ctx context.Context, offerID string) error {
	offer, err := b.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if !offer.IsActive {
		return nil
	}
	return b.withAssetLock(ctx, offer.AssetID, func(tx *storage.Tx) error {
		_, err := b.close(ctx, tx, offerID, events.CloseReasonDeactivated, b.now())
		return err
	})
}

// CancelOffer encerra a oferta a pedido do seu criador.
func (b *OfferBook) CancelOffer(ctx context.Context, offerID, actorID string) (models.Offer, error) {
	offer, err := b.GetOffer(ctx, offerID)
	if err != nil {
		return models.Offer{}, err
	}
	if offer.CreatorID != actorID {
		return models.Offer{}, ErrNotOfferCreator
	}

	var cancelled models.Offer
	err = b.withAssetLock(ctx, offer.AssetID, func(tx *storage.Tx) error {
		closed, err := b.close(ctx, tx, offerID, events.CloseReasonCancelled, b.now())
		if err != nil {
			return err
		}
		if closed == nil {
			return ErrOfferInactive
		}
		cancelled = *closed
		return nil
	})
	if err != nil {
		return models.Offer{}, err
	}
	b.logger.Info("oferta cancelada", "offer_id", offerID, "actor_id", actorID)
	return cancelled, nil
}

// close desativa a oferta dentro de tx e publica o encerramento. Devolve nil se ela já
// estava inativa.
func (b *OfferBook) close(ctx context.Context, tx *storage.Tx, offerID, reason string, at time.Time) (*models.Offer, error) {
	offer, found, err := tx.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
	}
	changed, err := tx.DeactivateOffer(ctx, offerID, at)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	offer.IsActive = false
	offer.UpdatedAt = at
	if err := appendEvent(ctx, tx, events.TopicOfferClosed, offer.AssetID, events.OfferClosed{
		OfferID:        offer.ID,
		AssetID:        offer.AssetID,
		Reason:         reason,
		FilledUnits:    offer.FilledUnits(),
		RemainingUnits: offer.RemainingUnits,
		ClosedAt:       at,
	}, at); err != nil {
		return nil, err
	}
	return &offer, nil
}

// reduceRemaining abate unidades executadas do saldo da oferta. Com saldo zero a oferta é
// desativada; caso contrário continua ativa e negociável. Só roda dentro de uma negociação.
func (b *OfferBook) reduceRemaining(ctx context.Context, tx *storage.Tx, offer models.Offer, unitsFilled int64, at time.Time) (models.Offer, error) {
	if unitsFilled < 1 {
		return models.Offer{}, ErrInvalidUnits
	}
	if !offer.IsActive {
		return models.Offer{}, ErrOfferInactive
	}
	if unitsFilled > offer.RemainingUnits {
		return models.Offer{}, ErrUnitsExceedOfferRemainder
	}

	offer.RemainingUnits -= unitsFilled
	offer.IsActive = offer.RemainingUnits > 0
	offer.UpdatedAt = at
	if err := tx.UpdateOfferRemaining(ctx, offer.ID, offer.RemainingUnits, at); err != nil {
		return models.Offer{}, err
	}

	if !offer.IsActive {
		err := appendEvent(ctx, tx, events.TopicOfferClosed, offer.AssetID, events.OfferClosed{
			OfferID:     offer.ID,
			AssetID:     offer.AssetID,
			Reason:      events.CloseReasonFilled,
			FilledUnits: offer.FilledUnits(),
			ClosedAt:    at,
		}, at)
		if err != nil {
			return models.Offer{}, err
		}
	}
	return offer, nil
}

// ActiveOffersFor lista as ofertas ativas do ativo, das mais antigas para as mais novas.
func (b *OfferBook) ActiveOffersFor(ctx context.Context, assetID string) ([]models.Offer, error) {
	if strings.TrimSpace(assetID) == "" {
		return nil, fmt.Errorf("%w: ativo é obrigatório", ErrInvalidInput)
	}
	active := true
	return b.DB.ListOffers(ctx, storage.OfferQuery{AssetID: assetID, Active: &active})
}

// Book é a visão do livro de um ativo: compras do maior para o menor preço, vendas do
// menor para o maior, empates pela mais antiga.
type Book struct {
	AssetID string         `json:"asset_id"`
	Buys    []models.Offer `json:"buys"`
	Sells   []models.Offer `json:"sells"`
}

// BookFor monta o livro de ofertas ativas do ativo.
func (b *OfferBook) BookFor(ctx context.Context, assetID string) (Book, error) {
	offers, err := b.ActiveOffersFor(ctx, assetID)
	if err != nil {
		return Book{}, err
	}
	book := Book{AssetID: assetID, Buys: []models.Offer{}, Sells: []models.Offer{}}
	for _, o := range offers {
		if o.Direction == models.DirectionBuy {
			book.Buys = append(book.Buys, o)
		} else {
			book.Sells = append(book.Sells, o)
		}
	}
	slices.SortStableFunc(book.Buys, func(x, y models.Offer) int {
		return cmp.Or(y.PricePerUnit.Cmp(x.PricePerUnit), compareOldest(x, y))
	})
	slices.SortStableFunc(book.Sells, func(x, y models.Offer) int {
		return cmp.Or(x.PricePerUnit.Cmp(y.PricePerUnit), compareOldest(x, y))
	})
	return book, nil
}

// Campos de ordenação aceitos por FilterOffers.
const (
	SortByCreatedAt = "created_at"
	SortByPrice     = "price"
	SortByUnits     = "units"
)

// OfferFilter filtra e pagina a listagem de ofertas.
type OfferFilter struct {
	AssetID       string
	CreatorID     string
	Direction     models.Direction
	Active        *bool
	MinUnits      int64
	MaxUnits      int64
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	CreatedAfter  time.Time
	CreatedBefore time.Time
	SortBy        string
	Desc          bool
	Page          int
	PerPage       int
}

// OfferPage é uma página de ofertas.
type OfferPage struct {
	Offers  []models.Offer `json:"offers"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

const (
	defaultPerPage = 20
	maxPerPage     = 200
)

// FilterOffers lista ofertas segundo o filtro. Preço é filtrado e ordenado em memória,
// porque o SQLite guarda decimais como texto.
func (b *OfferBook) FilterOffers(ctx context.Context, f OfferFilter) (OfferPage, error) {
	if f.Direction != "" && !f.Direction.Valid() {
		return OfferPage{}, ErrInvalidDirection
	}
	if f.MinUnits < 0 || f.MaxUnits < 0 || (f.MaxUnits > 0 && f.MinUnits > f.MaxUnits) {
		return OfferPage{}, fmt.Errorf("%w: intervalo de unidades inválido", ErrInvalidInput)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return OfferPage{}, fmt.Errorf("%w: intervalo de preço inválido", ErrInvalidInput)
	}
	var sortKey func(x, y models.Offer) int
	switch f.SortBy {
	case "", SortByCreatedAt:
		sortKey = compareOldest
	case SortByPrice:
		sortKey = func(x, y models.Offer) int { return cmp.Or(x.PricePerUnit.Cmp(y.PricePerUnit), compareOldest(x, y)) }
	case SortByUnits:
		sortKey = func(x, y models.Offer) int { return cmp.Or(cmp.Compare(x.RemainingUnits, y.RemainingUnits), compareOldest(x, y)) }
	default:
		return OfferPage{}, fmt.Errorf("%w: ordenação desconhecida %q", ErrInvalidInput, f.SortBy)
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	perPage = min(perPage, maxPerPage)

	offers, err := b.DB.ListOffers(ctx, storage.OfferQuery{
		AssetID:       f.AssetID,
		CreatorID:     f.CreatorID,
		Direction:     f.Direction,
		Active:        f.Active,
		MinUnits:      f.MinUnits,
		MaxUnits:      f.MaxUnits,
		CreatedAfter:  f.CreatedAfter,
		CreatedBefore: f.CreatedBefore,
	})
	if err != nil {
		return OfferPage{}, err
	}

	offers = slices.DeleteFunc(offers, func(o models.Offer) bool {
		if f.MinPrice != nil && o.PricePerUnit.LessThan(*f.MinPrice) {
			return true
		}
		return f.MaxPrice != nil && o.PricePerUnit.GreaterThan(*f.MaxPrice)
	})
	slices.SortStableFunc(offers, func(x, y models.Offer) int {
		if f.Desc {
			return sortKey(y, x)
		}
		return sortKey(x, y)
	})

	out := OfferPage{Total: len(offers), Page: page, PerPage: perPage, Offers: []models.Offer{}}
	start := (page - 1) * perPage
	if start < len(offers) {
		out.Offers = offers[start:min(start+perPage, len(offers))]
	}
	return out, nil
}

func compareOldest(x, y models.Offer) int {
	return cmp.Or(x.CreatedAt.Compare(y.CreatedAt), strings.Compare(x.ID, y.ID))
}
