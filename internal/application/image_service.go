package application

import (
	"context"
	"fmt"
	"math"
	"strings"

	"pixelift/internal/domain"
	"pixelift/internal/ports"

	"github.com/rs/zerolog"
)

// FixRatio is the fixed recompression estimate applied when no real encoder
// is configured or the encoder fails.
const FixRatio = 0.25

// ImageService mutates image log status: fix, revert, sync, and their bulk
// forms.
type ImageService struct {
	repo          ports.Repository
	shopify       ports.ShopifyClient
	encoder       ports.ImageEncoder // nil in estimate-only mode
	crypt         ports.EncryptionService
	logger        zerolog.Logger
	fallbackToken string
}

// NewImageService creates a new image service
func NewImageService(
	repo ports.Repository,
	shopify ports.ShopifyClient,
	encoder ports.ImageEncoder,
	crypt ports.EncryptionService,
	logger zerolog.Logger,
	fallbackToken string,
) *ImageService {
	return &ImageService{
		repo:          repo,
		shopify:       shopify,
		encoder:       encoder,
		crypt:         crypt,
		logger:        logger,
		fallbackToken: fallbackToken,
	}
}

// Fix optimizes a single image. Rejects rows that are already optimized.
func (s *ImageService) Fix(ctx context.Context, id string) (*domain.ImageLog, error) {
	log, err := s.repo.GetImageLogByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if log.Status == domain.StatusOptimized {
		return nil, fmt.Errorf("image %s already optimized: %w", id, domain.ErrConflict)
	}

	optimizedSize := s.optimizedSizeFor(ctx, log)
	updated, err := s.repo.UpdateImageLogStatus(ctx, id, domain.StatusOptimized, &optimizedSize)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("image", id).
		Int64("originalSize", log.OriginalSize).
		Int64("optimizedSize", optimizedSize).
		Msg("Optimized image")

	return updated, nil
}

// optimizedSizeFor runs the real encoder when configured and falls back to
// the fixed-ratio estimate when encoding fails or produces larger output.
func (s *ImageService) optimizedSizeFor(ctx context.Context, log *domain.ImageLog) int64 {
	if s.encoder != nil {
		size, err := s.encoder.Optimize(ctx, log.ImageURL, log.OriginalSize)
		if err == nil {
			return size
		}
		s.logger.Warn().
			Err(err).
			Str("image", log.ID).
			Msg("Re-encoding failed, falling back to ratio estimate")
	}
	return int64(math.Round(float64(log.OriginalSize) * FixRatio))
}

// OptimizeAllResult summarizes a bulk fix run.
type OptimizeAllResult struct {
	Optimized  int   `json:"optimized"`
	BytesSaved int64 `json:"bytesSaved"`
}

// OptimizeAll fixes every pending image of a shop.
func (s *ImageService) OptimizeAll(ctx context.Context, shopID string) (*OptimizeAllResult, error) {
	if _, err := s.repo.GetShopByID(ctx, shopID); err != nil {
		return nil, err
	}
	logs, err := s.repo.GetImageLogsByShopID(ctx, shopID)
	if err != nil {
		return nil, err
	}

	result := &OptimizeAllResult{}
	for _, log := range logs {
		if log.Status != domain.StatusPending {
			continue
		}
		updated, err := s.Fix(ctx, log.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to optimize image %s: %w", log.ID, err)
		}
		result.Optimized++
		result.BytesSaved += updated.BytesSaved()
	}

	s.logger.Info().
		Str("shop", shopID).
		Int("optimized", result.Optimized).
		Int64("bytesSaved", result.BytesSaved).
		Msg("Bulk optimize completed")

	return result, nil
}

// Revert returns an optimized image to the reverted state, clearing the
// optimized size and timestamp.
func (s *ImageService) Revert(ctx context.Context, id string) (*domain.ImageLog, error) {
	log, err := s.repo.GetImageLogByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if log.Status != domain.StatusOptimized {
		return nil, fmt.Errorf("image %s is not optimized: %w", id, domain.ErrConflict)
	}

	updated, err := s.repo.UpdateImageLogStatus(ctx, id, domain.StatusReverted, nil)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("image", id).Msg("Reverted image")
	return updated, nil
}

// Sync pushes an optimized image back to the Shopify product-image endpoint.
// Best effort: a missing token, an unparsable asset id or an upstream
// failure degrade to marking the row synced locally (demo mode), so "synced"
// does not guarantee the upstream image changed.
func (s *ImageService) Sync(ctx context.Context, id string) (*domain.ImageLog, error) {
	log, err := s.repo.GetImageLogByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if log.Status != domain.StatusOptimized {
		return nil, fmt.Errorf("image %s is not optimized: %w", id, domain.ErrConflict)
	}

	shop, err := s.repo.GetShopByID(ctx, log.ShopID)
	if err != nil {
		return nil, err
	}

	if pushed, reason := s.pushUpstream(ctx, shop, log); !pushed {
		s.logger.Info().
			Str("image", id).
			Str("shop", shop.Domain).
			Str("reason", reason).
			Msg("Sync in demo mode, no upstream write")
	}

	if err := s.repo.SetImageLogSynced(ctx, id, true); err != nil {
		return nil, err
	}
	log.Synced = true
	return log, nil
}

func (s *ImageService) pushUpstream(ctx context.Context, shop *domain.Shop, log *domain.ImageLog) (bool, string) {
	token := s.fallbackToken
	if shop.AccessToken != "" {
		decrypted, err := s.crypt.Decrypt(shop.AccessToken)
		if err != nil {
			return false, fmt.Sprintf("token decrypt failed: %v", err)
		}
		token = decrypted
	}
	if token == "" {
		return false, "no access token"
	}

	imageID, ok := log.AssetNumericID()
	if !ok {
		return false, fmt.Sprintf("unparsable asset id %q", log.ShopifyAssetID)
	}
	if log.ShopifyProductID == 0 {
		return false, "missing product id"
	}

	err := s.shopify.UpdateProductImage(ctx, shop.Domain, token, log.ShopifyProductID, imageID, log.ImageURL)
	if err != nil {
		if isAuthError(err) {
			return false, fmt.Sprintf("authorization failed: %v", err)
		}
		return false, fmt.Sprintf("upstream write failed: %v", err)
	}
	return true, ""
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "401") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "forbidden")
}

// SyncAllResult summarizes a bulk sync run.
type SyncAllResult struct {
	Synced int `json:"synced"`
}

// SyncAll syncs every optimized, not-yet-synced image of a shop.
func (s *ImageService) SyncAll(ctx context.Context, shopID string) (*SyncAllResult, error) {
	if _, err := s.repo.GetShopByID(ctx, shopID); err != nil {
		return nil, err
	}
	logs, err := s.repo.GetImageLogsByShopID(ctx, shopID)
	if err != nil {
		return nil, err
	}

	result := &SyncAllResult{}
	for _, log := range logs {
		if log.Status != domain.StatusOptimized || log.Synced {
			continue
		}
		if _, err := s.Sync(ctx, log.ID); err != nil {
			return nil, fmt.Errorf("failed to sync image %s: %w", log.ID, err)
		}
		result.Synced++
	}

	s.logger.Info().Str("shop", shopID).Int("synced", result.Synced).Msg("Bulk sync completed")
	return result, nil
}
