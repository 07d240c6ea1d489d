package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pixelift/internal/domain"
	"pixelift/internal/ports"
)

// MemoryRepository implements Repository with process-local maps. Demo mode
// only: everything is lost on restart.
type MemoryRepository struct {
	mu            sync.RWMutex
	shopsByID     map[string]*domain.Shop
	shopsByDomain map[string]string // domain -> shop id
	logs          map[string]*domain.ImageLog
	logIDsByShop  map[string][]string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() ports.Repository {
	return &MemoryRepository{
		shopsByID:     make(map[string]*domain.Shop),
		shopsByDomain: make(map[string]string),
		logs:          make(map[string]*domain.ImageLog),
		logIDsByShop:  make(map[string][]string),
	}
}

func cloneShop(s *domain.Shop) *domain.Shop {
	c := *s
	return &c
}

func cloneLog(l *domain.ImageLog) *domain.ImageLog {
	c := *l
	if l.OptimizedSize != nil {
		v := *l.OptimizedSize
		c.OptimizedSize = &v
	}
	if l.OptimizedAt != nil {
		v := *l.OptimizedAt
		c.OptimizedAt = &v
	}
	return &c
}

// CreateShop inserts a new shop, enforcing domain uniqueness
func (r *MemoryRepository) CreateShop(_ context.Context, shop *domain.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shopsByDomain[shop.Domain]; exists {
		return fmt.Errorf("shop domain %s already exists: %w", shop.Domain, domain.ErrConflict)
	}
	if shop.CreatedAt.IsZero() {
		shop.CreatedAt = time.Now()
	}
	r.shopsByID[shop.ID] = cloneShop(shop)
	r.shopsByDomain[shop.Domain] = shop.ID
	return nil
}

// GetShopByDomain retrieves a shop by its canonical domain
func (r *MemoryRepository) GetShopByDomain(_ context.Context, shopDomain string) (*domain.Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.shopsByDomain[shopDomain]
	if !ok {
		return nil, fmt.Errorf("shop %s: %w", shopDomain, domain.ErrNotFound)
	}
	return cloneShop(r.shopsByID[id]), nil
}

// GetShopByID retrieves a shop by id
func (r *MemoryRepository) GetShopByID(_ context.Context, id string) (*domain.Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shop, ok := r.shopsByID[id]
	if !ok {
		return nil, fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	return cloneShop(shop), nil
}

// UpdateShopScanTime stamps the last scan time
func (r *MemoryRepository) UpdateShopScanTime(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	shop, ok := r.shopsByID[id]
	if !ok {
		return fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	shop.LastScanAt = &at
	return nil
}

// UpdateShopToken stores the access token and scope after an OAuth callback
func (r *MemoryRepository) UpdateShopToken(_ context.Context, shopDomain string, accessToken string, scope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.shopsByDomain[shopDomain]
	if !ok {
		return fmt.Errorf("shop %s: %w", shopDomain, domain.ErrNotFound)
	}
	r.shopsByID[id].AccessToken = accessToken
	r.shopsByID[id].Scope = scope
	return nil
}

// UpdateShopProStatus flips the subscription flag
func (r *MemoryRepository) UpdateShopProStatus(_ context.Context, id string, isPro bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	shop, ok := r.shopsByID[id]
	if !ok {
		return fmt.Errorf("shop %s: %w", id, domain.ErrNotFound)
	}
	shop.IsPro = isPro
	return nil
}

// CreateImageLog inserts a new image log row
func (r *MemoryRepository) CreateImageLog(_ context.Context, log *domain.ImageLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	r.logs[log.ID] = cloneLog(log)
	r.logIDsByShop[log.ShopID] = append(r.logIDsByShop[log.ShopID], log.ID)
	return nil
}

// GetImageLogByID retrieves one image log row
func (r *MemoryRepository) GetImageLogByID(_ context.Context, id string) (*domain.ImageLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log, ok := r.logs[id]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	return cloneLog(log), nil
}

// GetImageLogsByShopID lists all image rows of one shop
func (r *MemoryRepository) GetImageLogsByShopID(_ context.Context, shopID string) ([]*domain.ImageLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []*domain.ImageLog
	for _, id := range r.logIDsByShop[shopID] {
		if log, ok := r.logs[id]; ok {
			logs = append(logs, cloneLog(log))
		}
	}
	return logs, nil
}

// UpdateImageLogStatus applies a status transition, keeping the
// optimizedSize/optimizedAt pair in lockstep with the optimized status.
func (r *MemoryRepository) UpdateImageLogStatus(_ context.Context, id string, status domain.ImageStatus, optimizedSize *int64) (*domain.ImageLog, error) {
	if !domain.ValidStatus(status) {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.logs[id]
	if !ok {
		return nil, fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}

	log.Status = status
	if status == domain.StatusOptimized {
		log.OptimizedSize = optimizedSize
		now := time.Now()
		log.OptimizedAt = &now
	} else {
		log.OptimizedSize = nil
		log.OptimizedAt = nil
	}
	return cloneLog(log), nil
}

// SetImageLogSynced flips the sync flag
func (r *MemoryRepository) SetImageLogSynced(_ context.Context, id string, synced bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log, ok := r.logs[id]
	if !ok {
		return fmt.Errorf("image %s: %w", id, domain.ErrNotFound)
	}
	log.Synced = synced
	return nil
}

// DeleteImageLogsByShopID removes all image rows of a shop
func (r *MemoryRepository) DeleteImageLogsByShopID(_ context.Context, shopID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.logIDsByShop[shopID] {
		delete(r.logs, id)
	}
	delete(r.logIDsByShop, shopID)
	return nil
}
