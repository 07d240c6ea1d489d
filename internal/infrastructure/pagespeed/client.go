package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pixelift/internal/domain"
	"pixelift/internal/ports"

	"github.com/rs/zerolog"
)

const defaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Client fetches Core Web Vitals from the PageSpeed Insights API. This is
// the one outbound call with a configured timeout.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a PageSpeed client with a 30 second timeout
func NewClient(apiKey string, logger zerolog.Logger) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// NewClientWithEndpoint is used by tests to point at a fake server.
func NewClientWithEndpoint(apiKey, endpoint string, logger zerolog.Logger) *Client {
	c := NewClient(apiKey, logger)
	c.endpoint = endpoint
	return c
}

var _ ports.VitalsClient = (*Client)(nil)

type psiResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance struct {
				Score float64 `json:"score"`
			} `json:"performance"`
		} `json:"categories"`
		Audits struct {
			LCP struct {
				NumericValue float64 `json:"numericValue"` // ms
			} `json:"largest-contentful-paint"`
			CLS struct {
				NumericValue float64 `json:"numericValue"`
			} `json:"cumulative-layout-shift"`
			INP struct {
				NumericValue float64 `json:"numericValue"` // ms
			} `json:"interaction-to-next-paint"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

// Fetch runs a PageSpeed lookup and classifies the vitals against the fixed
// LCP/CLS thresholds.
func (c *Client) Fetch(ctx context.Context, pageURL string) (*domain.WebVitals, error) {
	q := url.Values{}
	q.Set("url", pageURL)
	q.Set("category", "PERFORMANCE")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create pagespeed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pagespeed lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pagespeed endpoint returned status %d", resp.StatusCode)
	}

	var psi psiResponse
	if err := json.NewDecoder(resp.Body).Decode(&psi); err != nil {
		return nil, fmt.Errorf("failed to decode pagespeed response: %w", err)
	}

	lcpSeconds := psi.LighthouseResult.Audits.LCP.NumericValue / 1000
	cls := psi.LighthouseResult.Audits.CLS.NumericValue

	vitals := &domain.WebVitals{
		LCP:              lcpSeconds,
		INP:              psi.LighthouseResult.Audits.INP.NumericValue,
		CLS:              cls,
		PerformanceScore: int(psi.LighthouseResult.Categories.Performance.Score * 100),
		Status:           domain.ClassifyVitals(lcpSeconds, cls),
	}

	c.logger.Debug().
		Str("url", pageURL).
		Float64("lcp", vitals.LCP).
		Float64("cls", vitals.CLS).
		Str("status", vitals.Status).
		Msg("Fetched web vitals")

	return vitals, nil
}
