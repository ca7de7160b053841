// Package events define os eventos de domínio gravados na outbox e o relay que os publica.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tópicos lógicos. O publicador pode prefixá-los.
const (
	TopicTradeExecuted = "trade.executed"
	TopicOfferCreated  = "offer.created"
	TopicOfferClosed   = "offer.closed"
)

// Motivos de encerramento de uma oferta.
const (
	CloseReasonFilled      = "filled"
	CloseReasonCancelled   = "cancelled"
	CloseReasonDeactivated = "deactivated"
)

// TradeExecuted é publicado a cada negociação confirmada.
type TradeExecuted struct {
	TransactionID       string          `json:"transaction_id"`
	OfferID             string          `json:"offer_id"`
	AssetID             string          `json:"asset_id"`
	BuyerID             string          `json:"buyer_id"`
	SellerID            string          `json:"seller_id"`
	Units               int64           `json:"units"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	TotalValue          decimal.Decimal `json:"total_value"`
	BuyerFractionID     string          `json:"buyer_fraction_id"`
	ConsumedFractions   []string        `json:"consumed_fractions"`
	RemainderFraction   string          `json:"remainder_fraction,omitempty"`
	OfferRemainingUnits int64           `json:"offer_remaining_units"`
	ExecutedAt          time.Time       `json:"executed_at"`
}

// OfferCreated é publicado quando uma oferta entra no livro.
type OfferCreated struct {
	OfferID      string          `json:"offer_id"`
	AssetID      string          `json:"asset_id"`
	CreatorID    string          `json:"creator_id"`
	Direction    string          `json:"direction"`
	Units        int64           `json:"units"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OfferClosed é publicado quando uma oferta deixa de estar ativa.
type OfferClosed struct {
	OfferID        string    `json:"offer_id"`
	AssetID        string    `json:"asset_id"`
	Reason         string    `json:"reason"`
	FilledUnits    int64     `json:"filled_units"`
	RemainingUnits int64     `json:"remaining_units"`
	ClosedAt       time.Time `json:"closed_at"`
}
