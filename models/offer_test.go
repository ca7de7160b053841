package models_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/models"
)

func TestParseDirection(t *testing.T) {
	d, err := models.ParseDirection(" SELL ")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionSell, d)

	d, err = models.ParseDirection("buy")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionBuy, d)

	_, err = models.ParseDirection("hold")
	assert.Error(t, err)
}

func TestOfferParties(t *testing.T) {
	sell := models.Offer{CreatorID: "vendedor", Direction: models.DirectionSell}
	buyer, seller := sell.Parties("comprador")
	assert.Equal(t, "comprador", buyer)
	assert.Equal(t, "vendedor", seller)

	buy := models.Offer{CreatorID: "comprador", Direction: models.DirectionBuy}
	buyer, seller = buy.Parties("vendedor")
	assert.Equal(t, "comprador", buyer)
	assert.Equal(t, "vendedor", seller)
}

func TestOfferFilledUnits(t *testing.T) {
	o := models.Offer{Units: 100, RemainingUnits: 75}
	assert.Equal(t, int64(25), o.FilledUnits())
	o.RemainingUnits = 0
	assert.Equal(t, int64(100), o.FilledUnits())
}

func TestSumUnits(t *testing.T) {
	assert.Zero(t, models.SumUnits(nil))
	assert.Equal(t, int64(60), models.SumUnits([]models.Fraction{{Units: 30}, {Units: 10}, {Units: 20}}))
}

func TestAssetUnitValueAndBounds(t *testing.T) {
	a := models.Asset{TotalUnit: 1000, UnitMin: 10, UnitMax: 500, TotalValue: decimal.NewFromInt(25000)}
	assert.True(t, a.UnitValue().Equal(decimal.NewFromInt(25)))
	assert.True(t, a.InBounds(10))
	assert.True(t, a.InBounds(500))
	assert.False(t, a.InBounds(9))
	assert.False(t, a.InBounds(501))

	assert.True(t, models.Asset{}.UnitValue().IsZero())
}

func TestTransactionTypeFor(t *testing.T) {
	assert.Equal(t, models.TransactionBuyFill, models.TransactionTypeFor(models.DirectionBuy))
	assert.Equal(t, models.TransactionSellFill, models.TransactionTypeFor(models.DirectionSell))
}
