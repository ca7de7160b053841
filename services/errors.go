package services

import (
	"errors"
	"fmt"
)

// Erros de validação: a entrada é rejeitada antes de qualquer acesso ao livro-razão.
var (
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrInvalidUnits     = fmt.Errorf("%w: a quantidade de unidades deve ser um inteiro positivo", ErrInvalidInput)
	ErrInvalidPrice     = fmt.Errorf("%w: o preço por unidade deve ser positivo", ErrInvalidInput)
	ErrInvalidDirection = fmt.Errorf("%w: a direção deve ser buy ou sell", ErrInvalidInput)
)

// Entidades ausentes ou indisponíveis.
var (
	ErrOfferNotFound       = errors.New("oferta não encontrada")
	ErrAssetNotFound       = errors.New("ativo não encontrado")
	ErrUserUnavailable     = errors.New("usuário inexistente ou inativo")
	ErrFractionNotFound    = errors.New("fração não encontrada")
	ErrTransactionNotFound = errors.New("transação não encontrada")
)

// Conflitos de estado, detectados na revalidação dentro da unidade atômica.
var (
	ErrOfferInactive                   = errors.New("oferta inativa")
	ErrSelfTradeRejected               = errors.New("negociação com a própria oferta não é permitida")
	ErrInsufficientUnits               = errors.New("unidades insuficientes")
	ErrUnitsExceedOfferRemainder       = fmt.Errorf("%w: quantidade excede o saldo da oferta", ErrInsufficientUnits)
	ErrDuplicateActiveOffer            = errors.New("já existe oferta ativa para este ativo e direção")
	ErrInsufficientHoldingForSellOffer = errors.New("unidades ativas insuficientes para a oferta de venda")
	ErrNotOfferCreator                 = errors.New("apenas o criador pode cancelar a oferta")
)

// ErrAssetConstraintViolation indica que a operação quebraria um invariante do ativo.
var ErrAssetConstraintViolation = errors.New("violação de restrição do ativo")

// Códigos estáveis devolvidos por ErrorCode.
const (
	CodeInvalidInput                    = "invalid_input"
	CodeInvalidUnits                    = "invalid_units"
	CodeInvalidPrice                    = "invalid_price"
	CodeInvalidDirection                = "invalid_direction"
	CodeOfferNotFound                   = "offer_not_found"
	CodeAssetNotFound                   = "asset_not_found"
	CodeUserUnavailable                 = "user_unavailable"
	CodeFractionNotFound                = "fraction_not_found"
	CodeTransactionNotFound             = "transaction_not_found"
	CodeOfferInactive                   = "offer_inactive"
	CodeSelfTradeRejected               = "self_trade_rejected"
	CodeUnitsExceedOfferRemainder       = "units_exceed_offer_remainder"
	CodeInsufficientUnits               = "insufficient_units"
	CodeDuplicateActiveOffer            = "duplicate_active_offer"
	CodeInsufficientHoldingForSellOffer = "insufficient_holding_for_sell_offer"
	CodeNotOfferCreator                 = "not_offer_creator"
	CodeAssetConstraintViolation        = "asset_constraint_violation"
	CodeInternal                        = "internal"
)

// A ordem importa: erros mais específicos antes dos que eles embrulham.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidUnits, CodeInvalidUnits},
	{ErrInvalidPrice, CodeInvalidPrice},
	{ErrInvalidDirection, CodeInvalidDirection},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrOfferNotFound, CodeOfferNotFound},
	{ErrAssetNotFound, CodeAssetNotFound},
	{ErrUserUnavailable, CodeUserUnavailable},
	{ErrFractionNotFound, CodeFractionNotFound},
	{ErrTransactionNotFound, CodeTransactionNotFound},
	{ErrOfferInactive, CodeOfferInactive},
	{ErrSelfTradeRejected, CodeSelfTradeRejected},
	{ErrUnitsExceedOfferRemainder, CodeUnitsExceedOfferRemainder},
	{ErrInsufficientUnits, CodeInsufficientUnits},
	{ErrDuplicateActiveOffer, CodeDuplicateActiveOffer},
	{ErrInsufficientHoldingForSellOffer, CodeInsufficientHoldingForSellOffer},
	{ErrNotOfferCreator, CodeNotOfferCreator},
	{ErrAssetConstraintViolation, CodeAssetConstraintViolation},
}

// ErrorCode devolve o código estável de err, ou "internal" para falhas de infraestrutura.
// Retorna "" para err nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

func constraintViolation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAssetConstraintViolation, fmt.Sprintf(format, args...))
}
