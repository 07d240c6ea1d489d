package application

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"pixelift/internal/domain"
	"pixelift/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Canonical grading constants. Values that drifted between product
// iterations are pinned here.
const (
	// HeavyThresholdBytes classifies an image as heavy.
	HeavyThresholdBytes = 500 * 1024

	// SavingsRatio is the assumed size reduction for heavy images.
	SavingsRatio = 0.75

	// TransferBytesPerSecond converts saved bytes into saved load time.
	TransferBytesPerSecond = 1.5 * 1024 * 1024
)

// ScanService orchestrates the scan/grade pipeline: resolve shop, fetch the
// catalog, replace image rows, grade.
type ScanService struct {
	repo          ports.Repository
	shopify       ports.ShopifyClient
	vitals        ports.VitalsClient // nil when page-speed lookups are not configured
	crypt         ports.EncryptionService
	logger        zerolog.Logger
	fallbackToken string // process-wide SHOPIFY_ACCESS_TOKEN
}

// NewScanService creates a new scan service
func NewScanService(
	repo ports.Repository,
	shopify ports.ShopifyClient,
	vitals ports.VitalsClient,
	crypt ports.EncryptionService,
	logger zerolog.Logger,
	fallbackToken string,
) *ScanService {
	return &ScanService{
		repo:          repo,
		shopify:       shopify,
		vitals:        vitals,
		crypt:         crypt,
		logger:        logger,
		fallbackToken: fallbackToken,
	}
}

var schemeRe = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)

// ExtractDomain normalizes free-text input to a bare hostname: lower-case,
// scheme added if missing, parsed, leading www. stripped. On parse failure it
// falls back to stripping scheme/www. textually and cutting at the first
// path separator.
func ExtractDomain(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("empty url: %w", domain.ErrInvalidInput)
	}

	candidate := s
	if !schemeRe.MatchString(candidate) {
		candidate = "https://" + candidate
	}
	if u, err := url.Parse(candidate); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(u.Hostname(), "www."), nil
	}

	s = schemeRe.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "", fmt.Errorf("cannot extract domain from %q: %w", raw, domain.ErrInvalidInput)
	}
	return s, nil
}

// GradeFor maps heavy-image count and total heavy bytes to a letter grade.
// Monotonic: more heavy images or bytes never improves the grade.
func GradeFor(heavyCount int, heavyBytes int64) string {
	const mb = 1024 * 1024
	switch {
	case heavyCount == 0:
		return "A"
	case heavyCount <= 2 && heavyBytes < 5*mb:
		return "B"
	case heavyCount <= 5 && heavyBytes < 10*mb:
		return "C"
	case heavyCount <= 10 && heavyBytes < 20*mb:
		return "D"
	default:
		return "F"
	}
}

// Scan runs the full pipeline for a free-text URL or bare domain.
func (s *ScanService) Scan(ctx context.Context, rawURL string) (*domain.ScanResult, error) {
	shopDomain, err := ExtractDomain(rawURL)
	if err != nil {
		return nil, err
	}

	shop, err := s.getOrCreateShop(ctx, shopDomain)
	if err != nil {
		return nil, err
	}

	// Page-speed lookup runs alongside the catalog fetch; a failed lookup
	// only costs the vitals block.
	var vitalsCh chan *domain.WebVitals
	if s.vitals != nil {
		vitalsCh = make(chan *domain.WebVitals, 1)
		go func() {
			v, err := s.vitals.Fetch(ctx, "https://"+shopDomain)
			if err != nil {
				s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Page-speed lookup failed")
				vitalsCh <- nil
				return
			}
			vitalsCh <- v
		}()
	}

	accessToken, err := s.resolveAccessToken(shop)
	if err != nil {
		return nil, err
	}

	catalog, err := s.shopify.FetchCatalog(ctx, shopDomain, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if catalog.Source == ports.CatalogSourceMock && catalog.FallbackReason != "" {
		s.logger.Info().
			Str("shop", shopDomain).
			Str("reason", catalog.FallbackReason).
			Msg("Scan using mock catalog")
	}

	now := time.Now()
	if err := s.repo.UpdateShopScanTime(ctx, shop.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record scan time: %w", err)
	}
	shop.LastScanAt = &now

	// Full replace: prior rows are dropped, no incremental diffing.
	if err := s.repo.DeleteImageLogsByShopID(ctx, shop.ID); err != nil {
		return nil, fmt.Errorf("failed to clear image logs: %w", err)
	}

	logs := make([]*domain.ImageLog, 0, len(catalog.Images))
	for _, img := range catalog.Images {
		log := &domain.ImageLog{
			ID:               uuid.NewString(),
			ShopID:           shop.ID,
			ShopifyAssetID:   img.ShopifyAssetID,
			ShopifyProductID: img.ShopifyProductID,
			ImageURL:         img.ImageURL,
			ImageName:        img.ImageName,
			Format:           img.Format,
			OriginalSize:     img.OriginalSize,
			Status:           domain.StatusPending,
			CreatedAt:        now,
		}
		if err := s.repo.CreateImageLog(ctx, log); err != nil {
			return nil, fmt.Errorf("failed to create image log: %w", err)
		}
		logs = append(logs, log)
	}

	result := buildScanResult(shop, logs, string(catalog.Source))
	if vitalsCh != nil {
		result.Vitals = <-vitalsCh
	}

	s.logger.Info().
		Str("shop", shopDomain).
		Int("images", result.TotalImages).
		Int("heavy", result.TotalHeavyImages).
		Str("grade", result.Grade).
		Str("source", result.CatalogSource).
		Msg("Scan completed")

	return result, nil
}

func (s *ScanService) getOrCreateShop(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	shop, err := s.repo.GetShopByDomain(ctx, shopDomain)
	if err == nil {
		return shop, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("failed to look up shop: %w", err)
	}

	shop = &domain.Shop{
		ID:        uuid.NewString(),
		Domain:    shopDomain,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateShop(ctx, shop); err != nil {
		return nil, fmt.Errorf("failed to create shop: %w", err)
	}
	s.logger.Info().Str("shop", shopDomain).Msg("Created shop on first scan")
	return shop, nil
}

func (s *ScanService) resolveAccessToken(shop *domain.Shop) (string, error) {
	if shop.AccessToken == "" {
		return s.fallbackToken, nil
	}
	token, err := s.crypt.Decrypt(shop.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}
	return token, nil
}

func buildScanResult(shop *domain.Shop, logs []*domain.ImageLog, source string) *domain.ScanResult {
	var heavy []*domain.ImageLog
	var heavyBytes int64
	for _, log := range logs {
		if log.OriginalSize > HeavyThresholdBytes {
			heavy = append(heavy, log)
			heavyBytes += log.OriginalSize
		}
	}
	sort.Slice(heavy, func(i, j int) bool {
		return heavy[i].OriginalSize > heavy[j].OriginalSize
	})

	savedBytes := int64(math.Round(float64(heavyBytes) * SavingsRatio))

	return &domain.ScanResult{
		Shop:                shop,
		Images:              heavy,
		TotalImages:         len(logs),
		TotalHeavyImages:    len(heavy),
		TotalHeavyBytes:     heavyBytes,
		PotentialSavedBytes: savedBytes,
		PotentialTimeSaved:  float64(savedBytes) / TransferBytesPerSecond,
		Grade:               GradeFor(len(heavy), heavyBytes),
		CatalogSource:       source,
	}
}
