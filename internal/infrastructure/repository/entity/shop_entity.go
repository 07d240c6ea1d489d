package entity

import (
	"time"

	"pixelift/internal/domain"
)

// ShopDoc represents a shop in MongoDB
type ShopDoc struct {
	ID          string     `bson:"_id"`
	Domain      string     `bson:"domain"`
	AccessToken string     `bson:"accessToken"`
	Scope       string     `bson:"scope"`
	IsPro       bool       `bson:"isPro"`
	LastScanAt  *time.Time `bson:"lastScanAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *ShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		ID:          d.ID,
		Domain:      d.Domain,
		AccessToken: d.AccessToken,
		Scope:       d.Scope,
		IsPro:       d.IsPro,
		LastScanAt:  d.LastScanAt,
		CreatedAt:   d.CreatedAt,
	}
}

// ShopDocFromDomain converts a domain entity to a MongoDB document
func ShopDocFromDomain(shop *domain.Shop) *ShopDoc {
	return &ShopDoc{
		ID:          shop.ID,
		Domain:      shop.Domain,
		AccessToken: shop.AccessToken,
		Scope:       shop.Scope,
		IsPro:       shop.IsPro,
		LastScanAt:  shop.LastScanAt,
		CreatedAt:   shop.CreatedAt,
	}
}
