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

// TradingService executa negociações: casa uma oferta ativa com uma contraparte e move
// as unidades entre vendedor e comprador numa única unidade atômica.
type TradingService struct {
	base
	fractions *FractionLedger
	offers    *OfferBook
	ledger    *TransactionLedger
}

// NewTradingService cria o motor de execução sobre os três livros.
func NewTradingService(deps Deps, fractions *FractionLedger, offers *OfferBook, ledger *TransactionLedger, opts ...Option) *TradingService {
	return &TradingService{
		base:      newBase(deps, opts),
		fractions: fractions,
		offers:    offers,
		ledger:    ledger,
	}
}

// TradeResult descreve tudo o que uma negociação confirmada alterou.
type TradeResult struct {
	Transaction   models.Transaction `json:"transaction"`
	BuyerFraction models.Fraction    `json:"buyer_fraction"`
	Remainder     *models.Fraction   `json:"remainder,omitempty"`
	Consumed      []models.Fraction  `json:"consumed"`
	Offer         models.Offer       `json:"offer"`
}

// ExecuteTrade executa requestedUnits da oferta contra a contraparte.
//
// Em oferta de venda o criador vende e a contraparte compra; em oferta de compra a
// contraparte vende. As frações do vendedor são consumidas da mais antiga para a mais
// nova; a última, se consumida em parte, gera uma fração de sobra para o próprio vendedor.
// Todas as pré-condições são revalidadas sob o lock do ativo, e qualquer erro desfaz a
// unidade inteira.
func (s *TradingService) ExecuteTrade(ctx context.Context, offerID, counterpartyID string, requestedUnits int64) (*TradeResult, error) {
	started := time.Now()
	res, err := s.executeTrade(ctx, offerID, counterpartyID, requestedUnits)

	code := "ok"
	var units int64
	if err != nil {
		code = ErrorCode(err)
	} else {
		units = res.Transaction.Units
	}
	s.metrics.ObserveTrade(code, time.Since(started).Seconds(), units)

	switch {
	case err == nil:
		s.logger.Info("negociação executada",
			"transaction_id", res.Transaction.ID, "offer_id", offerID, "asset_id", res.Transaction.AssetID,
			"buyer_id", res.Transaction.BuyerID, "seller_id", res.Transaction.SellerID,
			"units", units, "unit_price", res.Transaction.UnitPrice.String())
	case code == CodeInternal:
		s.logger.Error("falha ao executar negociação", "offer_id", offerID, "counterparty_id", counterpartyID, "error", err)
	default:
		s.logger.Debug("negociação rejeitada", "offer_id", offerID, "counterparty_id", counterpartyID, "code", code, "error", err)
	}
	return res, err
}

func (s *TradingService) executeTrade(ctx context.Context, offerID, counterpartyID string, requestedUnits int64) (*TradeResult, error) {
	if strings.TrimSpace(offerID) == "" || strings.TrimSpace(counterpartyID) == "" {
		return nil, fmt.Errorf("%w: oferta e contraparte são obrigatórias", ErrInvalidInput)
	}
	if requestedUnits < 1 {
		return nil, ErrInvalidUnits
	}

	// Leitura prévia só para localizar o ativo e falhar cedo; tudo é relido sob o lock.
	offer, err := s.offers.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.CreatorID == counterpartyID {
		return nil, ErrSelfTradeRejected
	}
	if err := s.requireActiveUser(ctx, counterpartyID); err != nil {
		return nil, err
	}
	asset, err := s.loadAsset(ctx, offer.AssetID)
	if err != nil {
		return nil, err
	}

	var res *TradeResult
	err = s.withAssetLock(ctx, asset.ID, func(tx *storage.Tx) error {
		r, err := s.settle(ctx, tx, asset, offerID, counterpartyID, requestedUnits)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// settle revalida e aplica a negociação dentro de tx.
func (s *TradingService) settle(ctx context.Context, tx *storage.Tx, asset models.Asset, offerID, counterpartyID string, units int64) (*TradeResult, error) {
	offer, found, err := tx.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrOfferNotFound, offerID)
	}
	if !offer.IsActive {
		return nil, ErrOfferInactive
	}
	if offer.CreatorID == counterpartyID {
		return nil, ErrSelfTradeRejected
	}
	if units > offer.RemainingUnits {
		return nil, fmt.Errorf("%w: pedido %d, saldo %d", ErrUnitsExceedOfferRemainder, units, offer.RemainingUnits)
	}
	if !asset.InBounds(units) {
		return nil, constraintViolation("%d unidades fora dos limites [%d, %d] do ativo %s",
			units, asset.UnitMin, asset.UnitMax, asset.ID)
	}

	buyerID, sellerID := offer.Parties(counterpartyID)
	held, err := tx.ActiveFractions(ctx, sellerID, asset.ID)
	if err != nil {
		return nil, err
	}
	plan, err := planConsumption(held, units)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, f := range plan.consumed {
		changed, err := s.fractions.deactivate(ctx, tx, f.ID, now)
		if err != nil {
			return nil, err
		}
		if !changed {
			return nil, fmt.Errorf("fração %s desativada por outra operação durante a negociação", f.ID)
		}
	}

	res := &TradeResult{Consumed: make([]models.Fraction, len(plan.consumed))}
	for i, f := range plan.consumed {
		f.IsActive = false
		f.DeactivatedAt = &now
		res.Consumed[i] = f
	}

	if plan.remainder > 0 {
		partial := plan.consumed[len(plan.consumed)-1]
		rem, err := s.fractions.create(ctx, tx, newFraction{
			asset:     asset,
			ownerID:   sellerID,
			units:     plan.remainder,
			unitValue: partial.ValuePerUnit,
			parentID:  &partial.ID,
			remainder: true,
		}, now)
		if err != nil {
			return nil, err
		}
		res.Remainder = &rem
	}

	origin := plan.consumed[0].ID
	res.BuyerFraction, err = s.fractions.create(ctx, tx, newFraction{
		asset:     asset,
		ownerID:   buyerID,
		units:     units,
		unitValue: offer.PricePerUnit,
		parentID:  &origin,
	}, now)
	if err != nil {
		return nil, err
	}

	res.Transaction = models.Transaction{
		ID:         newID(),
		AssetID:    asset.ID,
		OfferID:    offer.ID,
		FractionID: res.BuyerFraction.ID,
		BuyerID:    buyerID,
		SellerID:   sellerID,
		Units:      units,
		UnitPrice:  offer.PricePerUnit,
		TotalValue: offer.PricePerUnit.Mul(decimal.NewFromInt(units)),
		Type:       models.TransactionTypeFor(offer.Direction),
		CreatedAt:  now,
	}
	if err := s.ledger.record(ctx, tx, res.Transaction); err != nil {
		return nil, err
	}

	res.Offer, err = s.offers.reduceRemaining(ctx, tx, offer, units, now)
	if err != nil {
		return nil, err
	}

	payload := events.TradeExecuted{
		TransactionID:       res.Transaction.ID,
		OfferID:             offer.ID,
		AssetID:             asset.ID,
		BuyerID:             buyerID,
		SellerID:            sellerID,
		Units:               units,
		UnitPrice:           res.Transaction.UnitPrice,
		TotalValue:          res.Transaction.TotalValue,
		BuyerFractionID:     res.BuyerFraction.ID,
		ConsumedFractions:   make([]string, len(plan.consumed)),
		OfferRemainingUnits: res.Offer.RemainingUnits,
		ExecutedAt:          now,
	}
	for i, f := range plan.consumed {
		payload.ConsumedFractions[i] = f.ID
	}
	if res.Remainder != nil {
		payload.RemainderFraction = res.Remainder.ID
	}
	if err := appendEvent(ctx, tx, events.TopicTradeExecuted, asset.ID, payload, now); err != nil {
		return nil, err
	}
	return res, nil
}

// consumption é o resultado do planejamento: as frações a desativar, na ordem, e quantas
// unidades sobram da última.
type consumption struct {
	consumed  []models.Fraction
	remainder int64
}

// planConsumption escolhe as frações que cobrem units, da mais antiga para a mais nova
// (empates pelo ID). Não toca o armazenamento.
func planConsumption(held []models.Fraction, units int64) (consumption, error) {
	if units < 1 {
		return consumption{}, ErrInvalidUnits
	}
	ordered := slices.Clone(held)
	slices.SortStableFunc(ordered, func(x, y models.Fraction) int {
		return cmp.Or(x.CreatedAt.Compare(y.CreatedAt), strings.Compare(x.ID, y.ID))
	})

	var plan consumption
	need := units
	for _, f := range ordered {
		if !f.IsActive || f.Units < 1 {
			continue
		}
		plan.consumed = append(plan.consumed, f)
		if f.Units >= need {
			plan.remainder = f.Units - need
			return plan, nil
		}
		need -= f.Units
	}
	return consumption{}, fmt.Errorf("%w: vendedor possui %d de %d unidades", ErrInsufficientUnits, models.SumUnits(plan.consumed), units)
}
