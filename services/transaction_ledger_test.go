package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

// history executa sete negociações e devolve as transações na ordem de execução.
func history(t *testing.T, f *fixture) []models.Transaction {
	t.Helper()
	f.issue(seller, assetX, 100, "10")
	f.issue(seller, assetS, 50, "50")
	sell := f.offer(seller, assetX, models.DirectionSell, 100, "12")
	buy := f.offer(buyer, assetS, models.DirectionBuy, 30, "55")

	var out []models.Transaction
	trade := func(offerID, who string, units int64) {
		res, err := f.trading.ExecuteTrade(f.ctx, offerID, who, units)
		require.NoError(t, err)
		out = append(out, res.Transaction)
	}
	for range 4 {
		trade(sell.ID, buyer, 10)
	}
	trade(sell.ID, carol, 10)
	trade(sell.ID, carol, 10)
	trade(buy.ID, seller, 10)
	return out
}

func ids(txs []models.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

func TestHistoryPageNewestFirst(t *testing.T) {
	f := newFixture(t)
	txs := history(t, f)

	page, err := f.ledger.HistoryPage(f.ctx, services.HistoryFilter{PageSize: 3}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{txs[6].ID, txs[5].ID, txs[4].ID}, ids(page.Transactions))
	require.NotEmpty(t, page.NextCursor)

	page, err = f.ledger.HistoryPage(f.ctx, services.HistoryFilter{PageSize: 3}, page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{txs[3].ID, txs[2].ID, txs[1].ID}, ids(page.Transactions))

	page, err = f.ledger.HistoryPage(f.ctx, services.HistoryFilter{PageSize: 3}, page.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, []string{txs[0].ID}, ids(page.Transactions))
	assert.Empty(t, page.NextCursor)

	// página exata não deixa cursor para uma página vazia
	page, err = f.ledger.HistoryPage(f.ctx, services.HistoryFilter{PageSize: 7}, "")
	require.NoError(t, err)
	assert.Len(t, page.Transactions, 7)
	assert.Empty(t, page.NextCursor)
}

func TestHistoryFilters(t *testing.T) {
	f := newFixture(t)
	txs := history(t, f)

	tests := []struct {
		name   string
		filter services.HistoryFilter
		want   []string
	}{
		{"por participante", services.HistoryFilter{UserID: carol}, []string{txs[5].ID, txs[4].ID}},
		{"vendedor em todas", services.HistoryFilter{UserID: seller}, ids(reversed(txs))},
		{"por ativo", services.HistoryFilter{AssetID: assetS}, []string{txs[6].ID}},
		{"por tipo", services.HistoryFilter{Type: models.TransactionBuyFill}, []string{txs[6].ID}},
		{"ativo e participante", services.HistoryFilter{AssetID: assetX, UserID: buyer}, []string{txs[3].ID, txs[2].ID, txs[1].ID, txs[0].ID}},
		{"período", services.HistoryFilter{From: txs[1].CreatedAt, To: txs[3].CreatedAt}, []string{txs[3].ID, txs[2].ID, txs[1].ID}},
		{"sem resultado", services.HistoryFilter{UserID: inactive}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.ledger.HistoryPage(f.ctx, tt.filter, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Transactions))
		})
	}

	now := time.Now()
	for _, bad := range []services.HistoryFilter{
		{Type: "swap"},
		{From: now, To: now.Add(-time.Hour)},
		{PageSize: -1},
	} {
		_, err := f.ledger.HistoryPage(f.ctx, bad, "")
		assert.ErrorIs(t, err, services.ErrInvalidInput)
	}

	_, err := f.ledger.HistoryPage(f.ctx, services.HistoryFilter{}, "nao-e-cursor")
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestHistoryForIsLazyAndRestartable(t *testing.T) {
	f := newFixture(t)
	txs := history(t, f)
	filter := services.HistoryFilter{PageSize: 2}

	collect := func() []string {
		var out []string
		for tx, err := range f.ledger.HistoryFor(f.ctx, filter) {
			require.NoError(t, err)
			out = append(out, tx.ID)
		}
		return out
	}
	first := collect()
	assert.Equal(t, ids(reversed(txs)), first)
	assert.Equal(t, first, collect(), "cada iteração recomeça do início")

	var seen []string
	for tx, err := range f.ledger.HistoryFor(f.ctx, filter) {
		require.NoError(t, err)
		seen = append(seen, tx.ID)
		if len(seen) == 3 {
			break
		}
	}
	assert.Equal(t, first[:3], seen)

	var errs int
	for _, err := range f.ledger.HistoryFor(f.ctx, services.HistoryFilter{Type: "swap"}) {
		assert.ErrorIs(t, err, services.ErrInvalidInput)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestTransactionGet(t *testing.T) {
	f := newFixture(t)
	txs := history(t, f)

	got, err := f.ledger.Get(f.ctx, txs[6].ID)
	require.NoError(t, err)
	assert.Equal(t, seller, got.SellerID)
	assert.Equal(t, buyer, got.BuyerID)
	assert.Equal(t, models.TransactionBuyFill, got.Type)
	assert.Equal(t, "550", got.TotalValue.String())

	_, err = f.ledger.Get(f.ctx, "nao-existe")
	assert.ErrorIs(t, err, services.ErrTransactionNotFound)
}

func reversed(txs []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(txs))
	for i, tx := range txs {
		out[len(txs)-1-i] = tx
	}
	return out
}
