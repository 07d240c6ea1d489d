package ports

import "context"

// CatalogImage is one product image descriptor fetched from Shopify (or the
// mock catalog).
type CatalogImage struct {
	ShopifyAssetID   string
	ShopifyProductID int64
	ImageURL         string
	ImageName        string
	Format           string // "JPG" or "PNG"
	OriginalSize     int64  // estimated bytes
}

// CatalogSource records where a catalog came from, so callers can distinguish
// "no integration configured" from "integration call failed".
type CatalogSource string

const (
	CatalogSourceLive CatalogSource = "live"
	CatalogSourceMock CatalogSource = "mock"
)

// Catalog is the result of a catalog fetch. When Source is mock,
// FallbackReason explains why the live path was not used.
type Catalog struct {
	Images         []CatalogImage
	Source         CatalogSource
	FallbackReason string
}

// TokenExchange is the result of trading an OAuth code for an access token.
type TokenExchange struct {
	AccessToken string
	Scope       string
}

// ShopifyClient defines the interface for Admin API operations used by the
// scan and sync pipelines.
type ShopifyClient interface {
	// FetchCatalog lists product images for a shop. With an empty access
	// token, or on any upstream failure or empty result, it returns the
	// deterministic mock catalog with the reason recorded.
	FetchCatalog(ctx context.Context, shopDomain string, accessToken string) (*Catalog, error)

	// ExchangeToken trades an authorization code for an access token.
	ExchangeToken(ctx context.Context, shopDomain string, code string) (*TokenExchange, error)

	// UpdateProductImage pushes a new image src for a product image.
	UpdateProductImage(ctx context.Context, shopDomain string, accessToken string, productID int64, imageID int64, src string) error
}
