package shopify

import "pixelift/internal/ports"

// mockCatalogImages is the fixed demo catalog returned when no Shopify
// integration is available. Order and sizes are deterministic so repeated
// scans of the same demo shop grade identically.
var mockCatalogImages = []ports.CatalogImage{
	{ShopifyAssetID: "gid://shopify/ProductImage/1001", ShopifyProductID: 9001, ImageURL: "https://cdn.shopify.com/s/files/demo/hero-banner.jpg", ImageName: "hero-banner.jpg", Format: "JPG", OriginalSize: 2450000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1002", ShopifyProductID: 9002, ImageURL: "https://cdn.shopify.com/s/files/demo/product-red-dress.jpg", ImageName: "product-red-dress.jpg", Format: "JPG", OriginalSize: 1830000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1003", ShopifyProductID: 9003, ImageURL: "https://cdn.shopify.com/s/files/demo/product-blue-jacket.png", ImageName: "product-blue-jacket.png", Format: "PNG", OriginalSize: 1540000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1004", ShopifyProductID: 9004, ImageURL: "https://cdn.shopify.com/s/files/demo/lookbook-summer.jpg", ImageName: "lookbook-summer.jpg", Format: "JPG", OriginalSize: 980000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1005", ShopifyProductID: 9005, ImageURL: "https://cdn.shopify.com/s/files/demo/product-sneakers.png", ImageName: "product-sneakers.png", Format: "PNG", OriginalSize: 760000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1006", ShopifyProductID: 9006, ImageURL: "https://cdn.shopify.com/s/files/demo/logo-header.png", ImageName: "logo-header.png", Format: "PNG", OriginalSize: 340000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1007", ShopifyProductID: 9007, ImageURL: "https://cdn.shopify.com/s/files/demo/icon-cart.png", ImageName: "icon-cart.png", Format: "PNG", OriginalSize: 96000},
	{ShopifyAssetID: "gid://shopify/ProductImage/1008", ShopifyProductID: 9008, ImageURL: "https://cdn.shopify.com/s/files/demo/thumb-accessories.jpg", ImageName: "thumb-accessories.jpg", Format: "JPG", OriginalSize: 64000},
}

func mockCatalog(reason string) *ports.Catalog {
	images := make([]ports.CatalogImage, len(mockCatalogImages))
	copy(images, mockCatalogImages)
	return &ports.Catalog{
		Images:         images,
		Source:         ports.CatalogSourceMock,
		FallbackReason: reason,
	}
}

// MockCatalogSize is the number of entries in the demo catalog.
func MockCatalogSize() int {
	return len(mockCatalogImages)
}
