package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

func TestPortfolioHoldings(t *testing.T) {
	f := newFixture(t)
	f.issue(seller, assetX, 100, "10")
	f.issue(buyer, assetS, 20, "40")
	offer := f.offer(seller, assetX, models.DirectionSell, 100, "12")
	_, err := f.trading.ExecuteTrade(f.ctx, offer.ID, buyer, 30)
	require.NoError(t, err)

	p, err := f.portfolio.Holdings(f.ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, buyer, p.UserID)
	require.Len(t, p.Holdings, 2)

	x, s := p.Holdings[0], p.Holdings[1]
	if x.AssetID != assetX {
		x, s = s, x
	}
	assert.Equal(t, "Galpão Norte", x.AssetName)
	assert.Equal(t, int64(30), x.Units)
	assert.Equal(t, 1, x.Fractions)
	assert.Equal(t, "360", x.CostBasis.String())
	assert.Equal(t, "300", x.Value.String(), "1000 unidades valem 10000")

	assert.Equal(t, int64(20), s.Units)
	assert.Equal(t, "800", s.CostBasis.String())
	assert.Equal(t, "1000", s.Value.String())

	assert.Equal(t, "1160", p.TotalCost.String())
	assert.Equal(t, "1300", p.TotalValue.String())

	sellerView, err := f.portfolio.Holdings(f.ctx, seller)
	require.NoError(t, err)
	require.Len(t, sellerView.Holdings, 1)
	assert.Equal(t, int64(70), sellerView.Holdings[0].Units)
	assert.Equal(t, "700", sellerView.Holdings[0].CostBasis.String())
}

func TestPortfolioEmptyAndFractions(t *testing.T) {
	f := newFixture(t)
	p, err := f.portfolio.Holdings(f.ctx, carol)
	require.NoError(t, err)
	assert.Empty(t, p.Holdings)
	assert.True(t, p.TotalValue.IsZero())

	_, err = f.portfolio.Holdings(f.ctx, "")
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	f.issue(carol, assetX, 10, "10")
	f.issue(carol, assetX, 15, "10")
	f.issue(carol, assetS, 5, "50")

	all, err := f.portfolio.Fractions(f.ctx, carol, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyX, err := f.portfolio.Fractions(f.ctx, carol, assetX)
	require.NoError(t, err)
	assert.Len(t, onlyX, 2)
	assert.Equal(t, int64(25), models.SumUnits(onlyX))
}
