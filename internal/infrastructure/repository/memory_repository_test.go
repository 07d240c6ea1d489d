package repository

import (
	"context"
	"testing"
	"time"

	"pixelift/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopCRUD(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	shop := &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com"}
	require.NoError(t, repo.CreateShop(ctx, shop))

	byDomain, err := repo.GetShopByDomain(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shop-1", byDomain.ID)
	assert.False(t, byDomain.CreatedAt.IsZero())

	byID, err := repo.GetShopByID(ctx, "shop-1")
	require.NoError(t, err)
	assert.Equal(t, "demo-store.myshopify.com", byID.Domain)

	_, err = repo.GetShopByDomain(ctx, "other.myshopify.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateShopDuplicateDomain(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateShop(ctx, &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com"}))
	err := repo.CreateShop(ctx, &domain.Shop{ID: "shop-2", Domain: "demo-store.myshopify.com"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateShopFields(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateShop(ctx, &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com"}))

	at := time.Now()
	require.NoError(t, repo.UpdateShopScanTime(ctx, "shop-1", at))
	require.NoError(t, repo.UpdateShopToken(ctx, "demo-store.myshopify.com", "ciphertext", "read_products"))
	require.NoError(t, repo.UpdateShopProStatus(ctx, "shop-1", true))

	shop, err := repo.GetShopByID(ctx, "shop-1")
	require.NoError(t, err)
	require.NotNil(t, shop.LastScanAt)
	assert.True(t, shop.LastScanAt.Equal(at))
	assert.Equal(t, "ciphertext", shop.AccessToken)
	assert.Equal(t, "read_products", shop.Scope)
	assert.True(t, shop.IsPro)
	assert.True(t, shop.Installed())

	assert.ErrorIs(t, repo.UpdateShopProStatus(ctx, "missing", true), domain.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateShopToken(ctx, "missing.myshopify.com", "x", "y"), domain.ErrNotFound)
}

func TestImageLogLifecycle(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateShop(ctx, &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com"}))

	log := &domain.ImageLog{
		ID:           "img-1",
		ShopID:       "shop-1",
		ImageURL:     "https://cdn.example.com/a.jpg",
		OriginalSize: 1_000_000,
		Status:       domain.StatusPending,
	}
	require.NoError(t, repo.CreateImageLog(ctx, log))

	size := int64(250_000)
	updated, err := repo.UpdateImageLogStatus(ctx, "img-1", domain.StatusOptimized, &size)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOptimized, updated.Status)
	require.NotNil(t, updated.OptimizedSize)
	assert.Equal(t, size, *updated.OptimizedSize)
	assert.NotNil(t, updated.OptimizedAt)

	// Leaving the optimized state clears size and timestamp together.
	reverted, err := repo.UpdateImageLogStatus(ctx, "img-1", domain.StatusReverted, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReverted, reverted.Status)
	assert.Nil(t, reverted.OptimizedSize)
	assert.Nil(t, reverted.OptimizedAt)

	_, err = repo.UpdateImageLogStatus(ctx, "img-1", domain.ImageStatus("bogus"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = repo.UpdateImageLogStatus(ctx, "missing", domain.StatusOptimized, &size)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetImageLogsByShopAndDelete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateShop(ctx, &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com"}))

	for _, id := range []string{"img-1", "img-2", "img-3"} {
		require.NoError(t, repo.CreateImageLog(ctx, &domain.ImageLog{
			ID:     id,
			ShopID: "shop-1",
			Status: domain.StatusPending,
		}))
	}

	logs, err := repo.GetImageLogsByShopID(ctx, "shop-1")
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	require.NoError(t, repo.SetImageLogSynced(ctx, "img-2", true))
	got, err := repo.GetImageLogByID(ctx, "img-2")
	require.NoError(t, err)
	assert.True(t, got.Synced)

	require.NoError(t, repo.DeleteImageLogsByShopID(ctx, "shop-1"))
	logs, err = repo.GetImageLogsByShopID(ctx, "shop-1")
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = repo.GetImageLogByID(ctx, "img-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateShop(ctx, &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com"}))

	first, err := repo.GetShopByID(ctx, "shop-1")
	require.NoError(t, err)
	first.IsPro = true

	second, err := repo.GetShopByID(ctx, "shop-1")
	require.NoError(t, err)
	assert.False(t, second.IsPro, "mutating a returned shop must not affect the store")
}
