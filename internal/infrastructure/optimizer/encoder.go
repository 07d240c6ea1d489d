package optimizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"pixelift/internal/ports"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	// jpegQuality is the fixed lossy quality for re-encoded images.
	jpegQuality = 75

	// maxDownloadBytes bounds how much image data is read from the CDN.
	maxDownloadBytes = 32 << 20
)

// Encoder downloads an image and re-encodes it as JPEG at a fixed quality,
// reporting the resulting byte size.
type Encoder struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewEncoder creates a real re-encoding optimizer
func NewEncoder(logger zerolog.Logger) *Encoder {
	return &Encoder{
		httpClient: http.DefaultClient,
		logger:     logger,
	}
}

var _ ports.ImageEncoder = (*Encoder)(nil)

// Optimize fetches imageURL, re-encodes it and returns the new size. It
// fails when the download or decode fails, or when the re-encoded output is
// not smaller than the original, so the caller falls back to the ratio
// estimate.
func (e *Encoder) Optimize(ctx context.Context, imageURL string, originalSize int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	img, err := imaging.Decode(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return 0, fmt.Errorf("failed to encode image: %w", err)
	}

	encoded := int64(buf.Len())
	if encoded >= originalSize {
		return 0, fmt.Errorf("re-encoded output (%d bytes) not smaller than original (%d bytes)", encoded, originalSize)
	}

	e.logger.Debug().
		Str("url", imageURL).
		Int64("originalSize", originalSize).
		Int64("encodedSize", encoded).
		Msg("Re-encoded image")

	return encoded, nil
}
