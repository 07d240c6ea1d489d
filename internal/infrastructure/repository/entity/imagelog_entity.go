package entity

import (
	"time"

	"pixelift/internal/domain"
)

// ImageLogDoc represents a per-image scan record in MongoDB
type ImageLogDoc struct {
	ID               string     `bson:"_id"`
	ShopID           string     `bson:"shopId"`
	ShopifyAssetID   string     `bson:"shopifyAssetId"`
	ShopifyProductID int64      `bson:"shopifyProductId,omitempty"`
	ImageURL         string     `bson:"imageUrl"`
	ImageName        string     `bson:"imageName"`
	Format           string     `bson:"format"`
	OriginalSize     int64      `bson:"originalSize"`
	OptimizedSize    *int64     `bson:"optimizedSize,omitempty"`
	Status           string     `bson:"status"`
	Synced           bool       `bson:"synced"`
	OriginalS3Key    *string    `bson:"originalS3Key,omitempty"`
	CreatedAt        time.Time  `bson:"createdAt"`
	OptimizedAt      *time.Time `bson:"optimizedAt,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *ImageLogDoc) ToDomain() *domain.ImageLog {
	return &domain.ImageLog{
		ID:               d.ID,
		ShopID:           d.ShopID,
		ShopifyAssetID:   d.ShopifyAssetID,
		ShopifyProductID: d.ShopifyProductID,
		ImageURL:         d.ImageURL,
		ImageName:        d.ImageName,
		Format:           d.Format,
		OriginalSize:     d.OriginalSize,
		OptimizedSize:    d.OptimizedSize,
		Status:           domain.ImageStatus(d.Status),
		Synced:           d.Synced,
		OriginalS3Key:    d.OriginalS3Key,
		CreatedAt:        d.CreatedAt,
		OptimizedAt:      d.OptimizedAt,
	}
}

// ImageLogDocFromDomain converts a domain entity to a MongoDB document
func ImageLogDocFromDomain(log *domain.ImageLog) *ImageLogDoc {
	return &ImageLogDoc{
		ID:               log.ID,
		ShopID:           log.ShopID,
		ShopifyAssetID:   log.ShopifyAssetID,
		ShopifyProductID: log.ShopifyProductID,
		ImageURL:         log.ImageURL,
		ImageName:        log.ImageName,
		Format:           log.Format,
		OriginalSize:     log.OriginalSize,
		OptimizedSize:    log.OptimizedSize,
		Status:           string(log.Status),
		Synced:           log.Synced,
		OriginalS3Key:    log.OriginalS3Key,
		CreatedAt:        log.CreatedAt,
		OptimizedAt:      log.OptimizedAt,
	}
}
