package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferreirogomes/fracionado/models"
)

// newPostgresDB conecta ao Postgres de TEST_POSTGRES_URL; sem a variável o teste é pulado.
func newPostgresDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL não definido")
	}
	db, err := NewDB(DriverPostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresAdvisoryLockSerializesAsset(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	assetID := "pg-asset-" + uuid.NewString()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.InTx(ctx, func(tx *Tx) error {
				if err := tx.LockAsset(ctx, assetID); err != nil {
					return err
				}
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestPostgresLockedReadsAndUniqueOffer(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	assetID, owner := "pg-asset-"+uuid.NewString(), "pg-owner-"+uuid.NewString()

	fractionID := uuid.NewString()
	require.NoError(t, db.InsertFraction(ctx, models.Fraction{ID: fractionID, AssetID: assetID, OwnerID: owner,
		Units: 10, ValuePerUnit: decimal.NewFromInt(3), IsActive: true, CreatedAt: now}))

	err := db.InTx(ctx, func(tx *Tx) error {
		held, err := tx.ActiveFractions(ctx, owner, assetID)
		require.NoError(t, err)
		require.Len(t, held, 1)
		changed, err := tx.DeactivateFraction(ctx, held[0].ID, now)
		require.NoError(t, err)
		assert.True(t, changed)
		return nil
	})
	require.NoError(t, err)

	got, found, err := db.GetFraction(ctx, fractionID)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, got.IsActive)

	offer := models.Offer{ID: uuid.NewString(), AssetID: assetID, CreatorID: owner, Direction: models.DirectionBuy,
		Units: 5, RemainingUnits: 5, PricePerUnit: decimal.NewFromInt(2), IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.InsertOffer(ctx, offer))
	offer.ID = uuid.NewString()
	err = db.InsertOffer(ctx, offer)
	assert.True(t, IsUniqueViolation(err))
}
