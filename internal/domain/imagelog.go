package domain

import (
	"strconv"
	"strings"
	"time"
)

// ImageStatus is the optimization lifecycle state of an image log row.
type ImageStatus string

const (
	StatusPending   ImageStatus = "pending"
	StatusOptimized ImageStatus = "optimized"
	StatusReverted  ImageStatus = "reverted"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s ImageStatus) bool {
	switch s {
	case StatusPending, StatusOptimized, StatusReverted:
		return true
	}
	return false
}

// ImageLog is a per-image record captured during a scan.
//
// Invariant: OptimizedSize and OptimizedAt are non-nil if and only if
// Status == StatusOptimized. Both are cleared when the row leaves that state.
type ImageLog struct {
	ID               string      `json:"id"`
	ShopID           string      `json:"shopId"`
	ShopifyAssetID   string      `json:"shopifyAssetId"`
	ShopifyProductID int64       `json:"shopifyProductId,omitempty"`
	ImageURL         string      `json:"imageUrl"`
	ImageName        string      `json:"imageName"`
	Format           string      `json:"format"` // "JPG" or "PNG"
	OriginalSize     int64       `json:"originalSize"`
	OptimizedSize    *int64      `json:"optimizedSize,omitempty"`
	Status           ImageStatus `json:"status"`
	Synced           bool        `json:"synced"`
	OriginalS3Key    *string     `json:"originalS3Key,omitempty"` // reserved for backup objects
	CreatedAt        time.Time   `json:"createdAt"`
	OptimizedAt      *time.Time  `json:"optimizedAt,omitempty"`
}

const assetIDPrefix = "gid://shopify/ProductImage/"

// AssetNumericID extracts the numeric image id from the Shopify global id.
// Returns false when the asset id does not follow the ProductImage gid form.
func (l *ImageLog) AssetNumericID() (int64, bool) {
	if !strings.HasPrefix(l.ShopifyAssetID, assetIDPrefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(l.ShopifyAssetID, assetIDPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// BytesSaved is the difference between original and optimized size, zero when
// the row is not optimized.
func (l *ImageLog) BytesSaved() int64 {
	if l.Status != StatusOptimized || l.OptimizedSize == nil {
		return 0
	}
	return l.OriginalSize - *l.OptimizedSize
}
