package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/config"
	"github.com/ferreirogomes/fracionado/logger"
	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
)

// startApp sobe a aplicação completa, configurada pelo ambiente, num servidor de teste.
func startApp(t *testing.T) (*app, string) {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "integration.db"))

	cfg, err := config.Load()
	require.NoError(t, err)
	a, err := newApp(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	srv := httptest.NewServer(a.handler)
	t.Cleanup(srv.Close)
	return a, srv.URL
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewBuffer(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestIntegration_IssueOfferAndTrade(t *testing.T) {
	a, baseURL := startApp(t)

	// --- 1. Usuários e ativo ---
	var seller, buyer models.User
	require.Equal(t, http.StatusCreated, postJSON(t, baseURL+"/users", map[string]string{"name": "Vera", "email": "vera@integration.com"}, &seller))
	require.Equal(t, http.StatusCreated, postJSON(t, baseURL+"/users", map[string]string{"name": "Caio", "email": "caio@integration.com"}, &buyer))

	var asset models.Asset
	require.Equal(t, http.StatusCreated, postJSON(t, baseURL+"/assets", map[string]any{
		"name": "Fazenda Boa Vista", "total_unit": 1000, "unit_min": 1, "unit_max": 500, "total_value": "250000",
	}, &asset))
	assert.NotEmpty(t, asset.ID)

	// --- 2. Emissão para o vendedor ---
	var issued models.Fraction
	require.Equal(t, http.StatusCreated, postJSON(t, baseURL+"/assets/"+asset.ID+"/fractions",
		map[string]any{"owner_id": seller.ID, "units": 100, "unit_value": "250"}, &issued))

	// --- 3. Oferta de venda e execução parcial ---
	var offer models.Offer
	require.Equal(t, http.StatusCreated, postJSON(t, baseURL+"/offers", map[string]any{
		"creator_id": seller.ID, "asset_id": asset.ID, "direction": "sell", "units": 100, "price_per_unit": "260",
	}, &offer))

	var res services.TradeResult
	require.Equal(t, http.StatusCreated, postJSON(t, baseURL+"/offers/"+offer.ID+"/execute",
		map[string]any{"counterparty_id": buyer.ID, "units": 25}, &res))
	assert.Equal(t, "6500", res.Transaction.TotalValue.String())
	assert.Equal(t, issued.ID, res.Consumed[0].ID)

	// --- 4. Leituras ---
	var page services.HistoryPage
	require.Equal(t, http.StatusOK, getJSON(t, baseURL+"/transactions?asset_id="+asset.ID, &page))
	require.Len(t, page.Transactions, 1)
	assert.Equal(t, buyer.ID, page.Transactions[0].BuyerID)

	var p services.Portfolio
	require.Equal(t, http.StatusOK, getJSON(t, baseURL+"/users/"+seller.ID+"/portfolio", &p))
	require.Len(t, p.Holdings, 1)
	assert.Equal(t, int64(75), p.Holdings[0].Units)

	// --- 5. Eventos aguardam na outbox sem relay configurado ---
	pending, err := a.db.PendingOutboxEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	done := make(chan struct{})
	go a.runRelay(context.Background(), done)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay desligado deveria retornar imediatamente")
	}

	// --- 6. Métricas ---
	resp, err := http.Get(baseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fracionado_trades_total{result="ok"} 1`)
	assert.Contains(t, string(body), `fracionado_offers_created_total{direction="sell"} 1`)
}

func TestNewAppRejectsUnreachableDatabase(t *testing.T) {
	cfg := config.Config{DBDriver: "postgres", DatabaseURL: "postgres://ninguem@127.0.0.1:1/nada?sslmode=disable&connect_timeout=1"}
	_, err := newApp(cfg, logger.Discard())
	assert.Error(t, err)
}
