package ports

import (
	"context"
	"time"

	"pixelift/internal/domain"
)

// Repository defines the persistence contract for shops and image logs.
// Two conforming implementations exist: an in-memory map for demo mode and a
// MongoDB-backed one, selected at startup by configuration.
type Repository interface {
	// Shop operations
	CreateShop(ctx context.Context, shop *domain.Shop) error
	GetShopByDomain(ctx context.Context, shopDomain string) (*domain.Shop, error)
	GetShopByID(ctx context.Context, id string) (*domain.Shop, error)
	UpdateShopScanTime(ctx context.Context, id string, at time.Time) error
	UpdateShopToken(ctx context.Context, shopDomain string, accessToken string, scope string) error
	UpdateShopProStatus(ctx context.Context, id string, isPro bool) error

	// Image log operations
	CreateImageLog(ctx context.Context, log *domain.ImageLog) error
	GetImageLogByID(ctx context.Context, id string) (*domain.ImageLog, error)
	GetImageLogsByShopID(ctx context.Context, shopID string) ([]*domain.ImageLog, error)
	UpdateImageLogStatus(ctx context.Context, id string, status domain.ImageStatus, optimizedSize *int64) (*domain.ImageLog, error)
	SetImageLogSynced(ctx context.Context, id string, synced bool) error
	DeleteImageLogsByShopID(ctx context.Context, shopID string) error
}
