package application

import (
	"context"
	"fmt"

	"pixelift/internal/ports"

	"github.com/rs/zerolog"
)

// BillingService wraps the PayPal checkout flow for the Pro upsell.
type BillingService struct {
	payments ports.PaymentsClient
	repo     ports.Repository
	logger   zerolog.Logger
	price    string
	currency string
}

// NewBillingService creates a new billing service
func NewBillingService(
	payments ports.PaymentsClient,
	repo ports.Repository,
	logger zerolog.Logger,
	price string,
	currency string,
) *BillingService {
	return &BillingService{
		payments: payments,
		repo:     repo,
		logger:   logger,
		price:    price,
		currency: currency,
	}
}

// Setup describes the checkout configuration for the frontend.
type Setup struct {
	ClientID string `json:"clientId"`
	Mode     string `json:"mode"`
}

// GetSetup returns the client id and mode for the PayPal JS SDK.
func (s *BillingService) GetSetup() *Setup {
	return &Setup{
		ClientID: s.payments.ClientID(),
		Mode:     s.payments.Mode(),
	}
}

// CreateOrder creates a checkout order for the Pro plan.
func (s *BillingService) CreateOrder(ctx context.Context) (string, error) {
	orderID, err := s.payments.CreateOrder(ctx, s.price, s.currency)
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}
	return orderID, nil
}

// CaptureOrder captures an approved order. On COMPLETED, the shop (when
// provided) is upgraded to Pro.
func (s *BillingService) CaptureOrder(ctx context.Context, orderID string, shopDomain string) (string, error) {
	status, err := s.payments.CaptureOrder(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to capture order: %w", err)
	}

	if status == "COMPLETED" && shopDomain != "" {
		shop, err := s.repo.GetShopByDomain(ctx, shopDomain)
		if err != nil {
			s.logger.Warn().Err(err).Str("shop", shopDomain).Msg("Captured order for unknown shop")
			return status, nil
		}
		if err := s.repo.UpdateShopProStatus(ctx, shop.ID, true); err != nil {
			return "", fmt.Errorf("failed to upgrade shop: %w", err)
		}
		s.logger.Info().Str("shop", shopDomain).Str("orderID", orderID).Msg("Shop upgraded to Pro")
	}

	return status, nil
}
