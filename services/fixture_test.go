package services_test

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/logger"
	"github.com/ferreirogomes/fracionado/models"
	"github.com/ferreirogomes/fracionado/services"
	"github.com/ferreirogomes/fracionado/storage"
)

const (
	seller   = "seller"
	buyer    = "buyer"
	carol    = "carol"
	inactive = "inactive"
	assetX   = "asset-x"
	assetS   = "asset-small"
)

// fixture monta os serviços sobre um SQLite descartável com usuários e ativos semeados.
type fixture struct {
	t         *testing.T
	ctx       context.Context
	db        *storage.DB
	locks     *services.AssetLocks
	fractions *services.FractionLedger
	offers    *services.OfferBook
	ledger    *services.TransactionLedger
	trading   *services.TradingService
	portfolio *services.PortfolioService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewDB(storage.DriverSQLite, storage.SQLiteDSN(filepath.Join(t.TempDir(), "ledger.db")),
		storage.WithLogger(logger.Discard()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	epoch := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, u := range []models.User{
		{ID: seller, Name: "Vera", IsActive: true, CreatedAt: epoch},
		{ID: buyer, Name: "Caio", IsActive: true, CreatedAt: epoch},
		{ID: carol, Name: "Carol", IsActive: true, CreatedAt: epoch},
		{ID: inactive, Name: "Ivo", IsActive: false, CreatedAt: epoch},
	} {
		require.NoError(t, db.SaveUser(ctx, u))
	}
	for _, a := range []models.Asset{
		{ID: assetX, Name: "Galpão Norte", TotalUnit: 1000, UnitMin: 1, UnitMax: 500, TotalValue: decimal.NewFromInt(10000), CreatedAt: epoch},
		{ID: assetS, Name: "Sala Comercial", TotalUnit: 100, UnitMin: 5, UnitMax: 50, TotalValue: decimal.NewFromInt(5000), CreatedAt: epoch},
	} {
		require.NoError(t, db.SaveAsset(ctx, a))
	}

	// Relógio que avança 1ms por leitura: ordem de criação estável entre execuções.
	var tick atomic.Int64
	clock := func() time.Time { return epoch.Add(time.Duration(tick.Add(1)) * time.Millisecond) }
	opts := []services.Option{services.WithLogger(logger.Discard()), services.WithClock(clock)}

	deps := services.Deps{DB: db, Assets: db, Users: db, Locks: services.NewAssetLocks()}
	f := &fixture{t: t, ctx: ctx, db: db, locks: deps.Locks}
	f.fractions = services.NewFractionLedger(deps, opts...)
	f.offers = services.NewOfferBook(deps, opts...)
	f.ledger = services.NewTransactionLedger(deps, opts...)
	f.trading = services.NewTradingService(deps, f.fractions, f.offers, f.ledger, opts...)
	f.portfolio = services.NewPortfolioService(deps, opts...)
	return f
}

func (f *fixture) issue(owner, asset string, units int64, unitValue string) models.Fraction {
	f.t.Helper()
	fr, err := f.fractions.CreateFraction(f.ctx, asset, owner, units, decimal.RequireFromString(unitValue))
	require.NoError(f.t, err)
	return fr
}

func (f *fixture) offer(creator, asset string, dir models.Direction, units int64, price string) models.Offer {
	f.t.Helper()
	o, err := f.offers.CreateOffer(f.ctx, creator, asset, dir, units, decimal.RequireFromString(price))
	require.NoError(f.t, err)
	return o
}

func (f *fixture) active(owner, asset string) []models.Fraction {
	f.t.Helper()
	fr, err := f.fractions.ActiveFractionsFor(f.ctx, owner, asset)
	require.NoError(f.t, err)
	return fr
}

// snapshot lê todas as linhas das tabelas do livro-razão para comparação exata.
func (f *fixture) snapshot() map[string][]map[string]any {
	f.t.Helper()
	out := make(map[string][]map[string]any)
	for _, table := range []string{"fractions", "offers", "transactions", "outbox_events"} {
		rows, err := f.db.QueryxContext(f.ctx, "SELECT * FROM "+table+" ORDER BY id")
		require.NoError(f.t, err)
		for rows.Next() {
			row := make(map[string]any)
			require.NoError(f.t, rows.MapScan(row))
			for k, v := range row {
				switch x := v.(type) {
				case time.Time:
					row[k] = x.UTC().Format(time.RFC3339Nano)
				case []byte:
					row[k] = string(x)
				}
			}
			out[table] = append(out[table], row)
		}
		require.NoError(f.t, rows.Err())
		require.NoError(f.t, rows.Close())
	}
	return out
}

func (f *fixture) outboxTopics() []string {
	f.t.Helper()
	var topics []string
	require.NoError(f.t, f.db.SelectContext(f.ctx, &topics, "SELECT topic FROM outbox_events ORDER BY created_at, id"))
	return topics
}

// MockDirectory substitui os cadastros externos de ativos e usuários.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetAsset(ctx context.Context, id string) (models.Asset, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(models.Asset), args.Bool(1), args.Error(2)
}

func (m *MockDirectory) UserExistsAndActive(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
