package application

import (
	"context"
	"fmt"
	"testing"

	"pixelift/internal/domain"
	"pixelift/internal/infrastructure/repository"
	"pixelift/internal/infrastructure/shopify"
	"pixelift/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShopifyClient struct {
	catalog       *ports.Catalog
	fetchErr      error
	updatedImages []int64
	updateErr     error
	lastToken     string
}

func (f *fakeShopifyClient) FetchCatalog(_ context.Context, _ string, accessToken string) (*ports.Catalog, error) {
	f.lastToken = accessToken
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.catalog, nil
}

func (f *fakeShopifyClient) ExchangeToken(_ context.Context, _ string, code string) (*ports.TokenExchange, error) {
	return &ports.TokenExchange{AccessToken: "token-for-" + code, Scope: "read_products"}, nil
}

func (f *fakeShopifyClient) UpdateProductImage(_ context.Context, _ string, _ string, _ int64, imageID int64, _ string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedImages = append(f.updatedImages, imageID)
	return nil
}

type passthroughCrypt struct{}

func (passthroughCrypt) Encrypt(s string) (string, error) { return s, nil }
func (passthroughCrypt) Decrypt(s string) (string, error) { return s, nil }

func testCatalog() *ports.Catalog {
	return &ports.Catalog{
		Source: ports.CatalogSourceLive,
		Images: []ports.CatalogImage{
			{ShopifyAssetID: "gid://shopify/ProductImage/1", ShopifyProductID: 11, ImageURL: "https://cdn.example.com/a.jpg", ImageName: "a.jpg", Format: "JPG", OriginalSize: 800_000},
			{ShopifyAssetID: "gid://shopify/ProductImage/2", ShopifyProductID: 12, ImageURL: "https://cdn.example.com/b.png", ImageName: "b.png", Format: "PNG", OriginalSize: 2_000_000},
			{ShopifyAssetID: "gid://shopify/ProductImage/3", ShopifyProductID: 13, ImageURL: "https://cdn.example.com/c.jpg", ImageName: "c.jpg", Format: "JPG", OriginalSize: 100_000},
		},
	}
}

func newTestScanService(t *testing.T, client ports.ShopifyClient) (*ScanService, ports.Repository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	svc := NewScanService(repo, client, nil, passthroughCrypt{}, zerolog.Nop(), "")
	return svc, repo
}

func TestExtractDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"demo-store.myshopify.com", "demo-store.myshopify.com"},
		{"https://demo-store.myshopify.com", "demo-store.myshopify.com"},
		{"https://www.foo.myshopify.com/products/x", "foo.myshopify.com"},
		{"HTTP://WWW.EXAMPLE.COM", "example.com"},
		{"  example.com/path?q=1  ", "example.com"},
		{"www.example.com#top", "example.com"},
	}
	for _, tc := range cases {
		got, err := ExtractDomain(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestExtractDomainInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "https://"} {
		_, err := ExtractDomain(in)
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
}

func TestGradeFor(t *testing.T) {
	const mb = 1024 * 1024
	cases := []struct {
		count int
		bytes int64
		want  string
	}{
		{0, 0, "A"},
		{1, 1 * mb, "B"},
		{2, 5*mb - 1, "B"},
		{2, 5 * mb, "C"},
		{3, 3 * mb, "C"},
		{5, 10*mb - 1, "C"},
		{5, 10 * mb, "D"},
		{8, 12 * mb, "D"},
		{10, 20 * mb, "F"},
		{11, 1 * mb, "F"},
		{50, 200 * mb, "F"},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, GradeFor(tc.count, tc.bytes), "count=%d bytes=%d", tc.count, tc.bytes)
	}
}

func TestGradeForMonotonic(t *testing.T) {
	const mb = 1024 * 1024
	// Growing either input never improves the grade.
	order := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3, "F": 4}
	prev := 0
	for count := 0; count <= 12; count++ {
		g := order[GradeFor(count, int64(count)*2*mb)]
		require.GreaterOrEqual(t, g, prev)
		prev = g
	}
}

func TestScanCreatesShopAndGrades(t *testing.T) {
	client := &fakeShopifyClient{catalog: testCatalog()}
	svc, repo := newTestScanService(t, client)

	result, err := svc.Scan(context.Background(), "https://demo-store.myshopify.com")
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalImages)
	assert.Equal(t, 2, result.TotalHeavyImages)
	assert.Equal(t, int64(2_800_000), result.TotalHeavyBytes)
	assert.Equal(t, int64(2_100_000), result.PotentialSavedBytes)
	assert.Equal(t, "B", result.Grade)
	assert.Equal(t, "live", result.CatalogSource)

	// Flagged images come back heaviest first.
	require.Len(t, result.Images, 2)
	assert.Equal(t, int64(2_000_000), result.Images[0].OriginalSize)
	assert.Equal(t, int64(800_000), result.Images[1].OriginalSize)
	for _, img := range result.Images {
		assert.Equal(t, domain.StatusPending, img.Status)
	}

	shop, err := repo.GetShopByDomain(context.Background(), "demo-store.myshopify.com")
	require.NoError(t, err)
	assert.NotNil(t, shop.LastScanAt)
}

func TestScanReplacesPriorLogs(t *testing.T) {
	client := &fakeShopifyClient{catalog: testCatalog()}
	svc, repo := newTestScanService(t, client)
	ctx := context.Background()

	_, err := svc.Scan(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)
	_, err = svc.Scan(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)

	shop, err := repo.GetShopByDomain(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)
	logs, err := repo.GetImageLogsByShopID(ctx, shop.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 3, "rescan must replace rows, not append")
}

func TestScanUsesStoredToken(t *testing.T) {
	client := &fakeShopifyClient{catalog: testCatalog()}
	svc, repo := newTestScanService(t, client)
	ctx := context.Background()

	shop := &domain.Shop{ID: "shop-1", Domain: "demo-store.myshopify.com", AccessToken: "shpat_secret"}
	require.NoError(t, repo.CreateShop(ctx, shop))

	_, err := svc.Scan(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_secret", client.lastToken)
}

func TestScanDemoCatalogDeterministic(t *testing.T) {
	// Real client without any token: the fixed demo catalog is served, so two
	// scans of a never-installed shop grade identically.
	client := shopify.NewClient("", "", zerolog.Nop())
	repo := repository.NewMemoryRepository()
	svc := NewScanService(repo, client, nil, passthroughCrypt{}, zerolog.Nop(), "")

	first, err := svc.Scan(context.Background(), "demo-store.myshopify.com")
	require.NoError(t, err)
	second, err := svc.Scan(context.Background(), "demo-store.myshopify.com")
	require.NoError(t, err)

	assert.Equal(t, "mock", first.CatalogSource)
	assert.Equal(t, shopify.MockCatalogSize(), first.TotalImages)
	assert.Equal(t, first.Grade, second.Grade)
	assert.Equal(t, first.TotalHeavyImages, second.TotalHeavyImages)
	assert.Equal(t, first.TotalHeavyBytes, second.TotalHeavyBytes)
	assert.Equal(t, 5, first.TotalHeavyImages)
	assert.Equal(t, "C", first.Grade)
}

func TestScanPropagatesCatalogError(t *testing.T) {
	client := &fakeShopifyClient{fetchErr: fmt.Errorf("boom")}
	svc, _ := newTestScanService(t, client)

	_, err := svc.Scan(context.Background(), "demo-store.myshopify.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch catalog")
}
