package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"pixelift/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

const (
	// productPageLimit is the fixed page size for the Admin products listing.
	productPageLimit = 50

	// sizeDensityScale tunes the width*height*bytes-per-pixel estimate down
	// to a plausible compressed file size. The estimate is a heuristic, not
	// a measurement of actual bytes.
	sizeDensityScale = 0.15
)

type client struct {
	apiKey    string
	apiSecret string
	app       goshopify.App
	logger    zerolog.Logger
}

// NewClient creates a new Shopify Admin API client adapter
func NewClient(apiKey, apiSecret string, logger zerolog.Logger) ports.ShopifyClient {
	app := goshopify.App{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
	}
	return &client{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		app:       app,
		logger:    logger,
	}
}

// FetchCatalog lists product images from the Admin API. Without a token, or
// on any upstream failure or empty result, it degrades to the deterministic
// mock catalog so the scan pipeline always has something to grade.
func (c *client) FetchCatalog(ctx context.Context, shopDomain string, accessToken string) (*ports.Catalog, error) {
	if accessToken == "" {
		c.logger.Info().Str("shop", shopDomain).Msg("No access token, serving mock catalog")
		return mockCatalog("no access token configured"), nil
	}

	sc, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		c.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Failed to create Shopify client, serving mock catalog")
		return mockCatalog(fmt.Sprintf("client init failed: %v", err)), nil
	}

	products, err := sc.Product.List(ctx, goshopify.ListOptions{Limit: productPageLimit})
	if err != nil {
		c.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Product listing failed, serving mock catalog")
		return mockCatalog(fmt.Sprintf("product listing failed: %v", err)), nil
	}

	var images []ports.CatalogImage
	for _, p := range products {
		for _, img := range p.Images {
			format := formatFromSrc(img.Src)
			images = append(images, ports.CatalogImage{
				ShopifyAssetID:   fmt.Sprintf("gid://shopify/ProductImage/%d", img.Id),
				ShopifyProductID: int64(p.Id),
				ImageURL:         img.Src,
				ImageName:        imageNameFromSrc(img.Src),
				Format:           format,
				OriginalSize:     EstimateImageSize(img.Width, img.Height, format),
			})
		}
	}

	if len(images) == 0 {
		c.logger.Info().Str("shop", shopDomain).Msg("Live catalog empty, serving mock catalog")
		return mockCatalog("live catalog empty"), nil
	}

	return &ports.Catalog{Images: images, Source: ports.CatalogSourceLive}, nil
}

// ExchangeToken trades an OAuth code for an access token. The go-shopify
// helper does not surface the granted scope, so this posts to the token
// endpoint directly.
func (c *client) ExchangeToken(ctx context.Context, shopDomain string, code string) (*ports.TokenExchange, error) {
	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to exchange token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	return &ports.TokenExchange{
		AccessToken: tokenResponse.AccessToken,
		Scope:       tokenResponse.Scope,
	}, nil
}

// UpdateProductImage pushes a new src for an existing product image
func (c *client) UpdateProductImage(ctx context.Context, shopDomain string, accessToken string, productID int64, imageID int64, src string) error {
	sc, err := goshopify.NewClient(c.app, shopDomain, accessToken)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	image := goshopify.Image{
		Id:        uint64(imageID),
		ProductId: uint64(productID),
		Src:       src,
	}
	if _, err := sc.Image.Update(ctx, uint64(productID), image); err != nil {
		return fmt.Errorf("failed to update product image: %w", err)
	}
	return nil
}

// EstimateImageSize estimates a compressed file size in bytes from pixel
// dimensions: 4 bytes/px for PNG, 3 for JPG, scaled by sizeDensityScale.
func EstimateImageSize(width, height int, format string) int64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	bytesPerPixel := 3.0
	if format == "PNG" {
		bytesPerPixel = 4.0
	}
	return int64(float64(width) * float64(height) * bytesPerPixel * sizeDensityScale)
}

func formatFromSrc(src string) string {
	u, err := url.Parse(src)
	p := src
	if err == nil {
		p = u.Path
	}
	if strings.EqualFold(path.Ext(p), ".png") {
		return "PNG"
	}
	return "JPG"
}

func imageNameFromSrc(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return path.Base(src)
	}
	return path.Base(u.Path)
}
