package ports

import (
	"context"

	"pixelift/internal/domain"
)

// NonceStore keeps short-lived OAuth state nonces. Backed by Redis in
// multi-instance deployments and by a process-local map in demo mode.
type NonceStore interface {
	// Put stores a nonce for the given shop with the store's fixed TTL.
	Put(ctx context.Context, nonce string, shop string) error

	// Consume atomically reads and deletes a nonce. ok is false when the
	// nonce is unknown or expired.
	Consume(ctx context.Context, nonce string) (shop string, ok bool, err error)
}

// ImageEncoder recompresses an image and reports the resulting byte size.
type ImageEncoder interface {
	// Optimize downloads and re-encodes the image at imageURL. It returns an
	// error when the result would not be smaller than originalSize, so the
	// caller can fall back to the ratio estimate.
	Optimize(ctx context.Context, imageURL string, originalSize int64) (int64, error)
}

// EncryptionService encrypts access tokens before storage.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PaymentsClient wraps the PayPal checkout REST API.
type PaymentsClient interface {
	ClientID() string
	Mode() string
	CreateOrder(ctx context.Context, amount string, currency string) (orderID string, err error)
	CaptureOrder(ctx context.Context, orderID string) (status string, err error)
}

// VitalsClient fetches Core Web Vitals for a page via an external
// page-speed API.
type VitalsClient interface {
	Fetch(ctx context.Context, pageURL string) (*domain.WebVitals, error)
}
