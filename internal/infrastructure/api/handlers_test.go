package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pixelift/internal/application"
	"pixelift/internal/domain"
	"pixelift/internal/infrastructure/encryption"
	"pixelift/internal/infrastructure/noncestore"
	"pixelift/internal/infrastructure/repository"
	"pixelift/internal/ports"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubShopifyClient struct {
	catalog     *ports.Catalog
	exchangeErr error
}

func (s *stubShopifyClient) FetchCatalog(context.Context, string, string) (*ports.Catalog, error) {
	return s.catalog, nil
}

func (s *stubShopifyClient) ExchangeToken(_ context.Context, _ string, code string) (*ports.TokenExchange, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &ports.TokenExchange{AccessToken: "shpat_" + code, Scope: "read_products,write_products"}, nil
}

func (s *stubShopifyClient) UpdateProductImage(context.Context, string, string, int64, int64, string) error {
	return nil
}

type testEnv struct {
	handler *Handler
	repo    ports.Repository
	nonces  *noncestore.MemoryStore
	router  http.Handler
}

func newTestEnv(t *testing.T, webhookSecret string) *testEnv {
	t.Helper()

	repo := repository.NewMemoryRepository()
	nonces := noncestore.NewMemoryStore()
	crypt := encryption.NewNoop()
	client := &stubShopifyClient{catalog: &ports.Catalog{
		Source: ports.CatalogSourceLive,
		Images: []ports.CatalogImage{
			{ShopifyAssetID: "gid://shopify/ProductImage/1", ShopifyProductID: 11, ImageURL: "https://cdn.example.com/a.jpg", ImageName: "a.jpg", Format: "JPG", OriginalSize: 2_000_000},
			{ShopifyAssetID: "gid://shopify/ProductImage/2", ShopifyProductID: 12, ImageURL: "https://cdn.example.com/b.jpg", ImageName: "b.jpg", Format: "JPG", OriginalSize: 200_000},
		},
	}}

	logger := zerolog.Nop()
	h := NewHandler(Config{
		Repo:          repo,
		Scans:         application.NewScanService(repo, client, nil, crypt, logger, "shpat_fallback"),
		Images:        application.NewImageService(repo, client, nil, crypt, logger, "shpat_fallback"),
		Shopify:       client,
		Nonces:        nonces,
		Crypt:         crypt,
		Logger:        logger,
		APIKey:        "test-api-key",
		APISecret:     "",
		AppURL:        "https://pixelift.example.com",
		WebhookSecret: webhookSecret,
	})

	return &testEnv{handler: h, repo: repo, nonces: nonces, router: h.Routes()}
}

func (e *testEnv) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestScanEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodPost, "/scan", `{"url":"https://demo-store.myshopify.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["totalImages"])
	assert.Equal(t, float64(1), body["totalHeavyImages"])
	assert.Equal(t, "B", body["grade"])
}

func TestScanEndpointInvalidBody(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodPost, "/scan", `{not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScanEndpointEmptyURL(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodPost, "/scan", `{"url":""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShopInfoEndpoint(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodPost, "/scan", `{"url":"demo-store.myshopify.com"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/shop/info?shop=demo-store.myshopify.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "demo-store", body["name"])
	assert.Equal(t, float64(2), body["totalImages"])
	assert.Equal(t, float64(0), body["optimizedImages"])
}

func TestShopInfoAcceptsHeader(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(http.MethodPost, "/scan", `{"url":"demo-store.myshopify.com"}`, nil)

	rec := env.do(http.MethodGet, "/shop/info", "", map[string]string{
		"X-Shopify-Shop-Domain": "demo-store.myshopify.com",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShopInfoUnknownShop(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/shop/info?shop=ghost.myshopify.com", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, "/shop/info", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetShopEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(http.MethodPost, "/scan", `{"url":"demo-store.myshopify.com"}`, nil)

	rec := env.do(http.MethodGet, "/shops/demo-store.myshopify.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.NotNil(t, body["shop"])
	images, ok := body["images"].([]any)
	require.True(t, ok)
	assert.Len(t, images, 2)
}

func scannedImageID(t *testing.T, env *testEnv, status domain.ImageStatus) string {
	t.Helper()
	ctx := context.Background()
	shop, err := env.repo.GetShopByDomain(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)
	logs, err := env.repo.GetImageLogsByShopID(ctx, shop.ID)
	require.NoError(t, err)
	for _, log := range logs {
		if log.Status == status {
			return log.ID
		}
	}
	t.Fatalf("no image with status %s", status)
	return ""
}

func TestFixRevertSyncEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(http.MethodPost, "/scan", `{"url":"demo-store.myshopify.com"}`, nil)
	id := scannedImageID(t, env, domain.StatusPending)

	rec := env.do(http.MethodPost, "/images/"+id+"/fix", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "optimized", body["status"])
	assert.NotNil(t, body["optimizedSize"])

	// Fixing twice conflicts.
	rec = env.do(http.MethodPost, "/images/"+id+"/fix", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/images/"+id+"/sync", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["synced"])

	rec = env.do(http.MethodPost, "/images/"+id+"/revert", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "reverted", body["status"])
	assert.Nil(t, body["optimizedSize"])
}

func TestRevertPendingImage(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(http.MethodPost, "/scan", `{"url":"demo-store.myshopify.com"}`, nil)
	id := scannedImageID(t, env, domain.StatusPending)

	rec := env.do(http.MethodPost, "/images/"+id+"/revert", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImageEndpointsUnknownID(t *testing.T) {
	env := newTestEnv(t, "")
	for _, action := range []string{"fix", "revert", "sync"} {
		rec := env.do(http.MethodPost, "/images/missing/"+action, "", nil)
		assert.Equalf(t, http.StatusNotFound, rec.Code, "action %s", action)
	}
}

func TestBulkEndpoints(t *testing.T) {
	env := newTestEnv(t, "")
	env.do(http.MethodPost, "/scan", `{"url":"demo-store.myshopify.com"}`, nil)

	shop, err := env.repo.GetShopByDomain(context.Background(), "demo-store.myshopify.com")
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/shops/"+shop.ID+"/optimize-all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["optimized"])

	rec = env.do(http.MethodPost, "/shops/"+shop.ID+"/sync-all", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, float64(2), body["synced"])

	rec = env.do(http.MethodPost, "/shops/missing/optimize-all", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInstallRedirectsToAuthorize(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/shopify/install?shop=demo-store.myshopify.com", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	location := rec.Header().Get("Location")
	assert.Contains(t, location, "https://demo-store.myshopify.com/admin/oauth/authorize")
	assert.Contains(t, location, "client_id=test-api-key")
	assert.Contains(t, location, "state=")
}

func TestInstallRejectsBadShop(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/shopify/install", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/shopify/install?shop=evil.com", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackCompletesInstall(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	require.NoError(t, env.nonces.Put(ctx, "state-1", "demo-store.myshopify.com"))

	rec := env.do(http.MethodGet, "/shopify/callback?shop=demo-store.myshopify.com&code=abc&state=state-1", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "installed=true")

	shop, err := env.repo.GetShopByDomain(ctx, "demo-store.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "shpat_abc", shop.AccessToken)
	assert.Equal(t, "read_products,write_products", shop.Scope)
	assert.True(t, shop.Installed())
}

func TestCallbackRejectsBadState(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/shopify/callback?shop=demo-store.myshopify.com&code=abc&state=never-issued", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, err := env.repo.GetShopByDomain(context.Background(), "demo-store.myshopify.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCallbackRejectsShopMismatch(t *testing.T) {
	env := newTestEnv(t, "")
	require.NoError(t, env.nonces.Put(context.Background(), "state-1", "other.myshopify.com"))

	rec := env.do(http.MethodGet, "/shopify/callback?shop=demo-store.myshopify.com&code=abc&state=state-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackRejectsInvalidShop(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/shopify/callback?shop=evil.com&code=abc&state=s", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/shopify/callback?shop=demo-store.myshopify.com", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionEndpoint(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()

	rec := env.do(http.MethodGet, "/shopify/session?shop=demo-store.myshopify.com", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["installUrl"], "/api/shopify/install?shop=")

	require.NoError(t, env.nonces.Put(ctx, "state-1", "demo-store.myshopify.com"))
	env.do(http.MethodGet, "/shopify/callback?shop=demo-store.myshopify.com&code=abc&state=state-1", "", nil)

	rec = env.do(http.MethodGet, "/shopify/session?shop=demo-store.myshopify.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, true, body["installed"])
	assert.Equal(t, false, body["isPro"])
}

func TestPayPalEndpointsWithoutConfig(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/paypal/setup", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(http.MethodPost, "/paypal/order", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(http.MethodPost, "/paypal/order/ORDER-1/capture", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestComplianceWebhooksAlwaysAck(t *testing.T) {
	const secret = "whsec_test"
	env := newTestEnv(t, secret)

	payload := `{"shop_domain":"demo-store.myshopify.com"}`
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, path := range []string{
		"/webhooks/customers/data_request",
		"/webhooks/customers/redact",
		"/webhooks/shop/redact",
	} {
		rec := env.do(http.MethodPost, path, payload, map[string]string{
			"X-Shopify-Hmac-SHA256": signature,
			"X-Shopify-Topic":       "customers/data_request",
			"X-Shopify-Shop-Domain": "demo-store.myshopify.com",
		})
		require.Equalf(t, http.StatusOK, rec.Code, "path %s", path)
		body := decodeBody(t, rec)
		assert.Equal(t, "true", body["received"])
	}

	// A bad signature is logged but still acknowledged.
	rec := env.do(http.MethodPost, "/webhooks/shop/redact", payload, map[string]string{
		"X-Shopify-Hmac-SHA256": "bogus",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
