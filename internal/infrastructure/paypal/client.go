package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pixelift/internal/ports"

	"github.com/rs/zerolog"
)

const (
	sandboxBaseURL = "https://api-m.sandbox.paypal.com"
	liveBaseURL    = "https://api-m.paypal.com"
)

// Client is a minimal PayPal checkout REST client: client-credentials token,
// order create, order capture.
type Client struct {
	clientID     string
	clientSecret string
	mode         string // "sandbox" or "live"
	baseURL      string
	httpClient   *http.Client
	logger       zerolog.Logger
}

// NewClient creates a PayPal REST client for the given mode
func NewClient(clientID, clientSecret, mode string, logger zerolog.Logger) *Client {
	baseURL := sandboxBaseURL
	if mode == "live" {
		baseURL = liveBaseURL
	} else {
		mode = "sandbox"
	}
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		mode:         mode,
		baseURL:      baseURL,
		httpClient:   http.DefaultClient,
		logger:       logger,
	}
}

var _ ports.PaymentsClient = (*Client)(nil)

func (c *Client) ClientID() string { return c.clientID }
func (c *Client) Mode() string     { return c.mode }

func (c *Client) accessToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch paypal token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("failed to decode paypal token response: %w", err)
	}
	return tokenResponse.AccessToken, nil
}

// CreateOrder creates a CAPTURE-intent order for the given amount
func (c *Client) CreateOrder(ctx context.Context, amount string, currency string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{
			{"amount": map[string]string{"currency_code": currency, "value": amount}},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders", strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("failed to create order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to create paypal order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal order endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var orderResponse struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&orderResponse); err != nil {
		return "", fmt.Errorf("failed to decode paypal order response: %w", err)
	}

	c.logger.Info().Str("orderID", orderResponse.ID).Msg("Created PayPal order")
	return orderResponse.ID, nil
}

// CaptureOrder captures a previously approved order and returns its status
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v2/checkout/orders/"+orderID+"/capture", strings.NewReader("{}"))
	if err != nil {
		return "", fmt.Errorf("failed to create capture request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to capture paypal order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal capture endpoint returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var captureResponse struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&captureResponse); err != nil {
		return "", fmt.Errorf("failed to decode paypal capture response: %w", err)
	}

	c.logger.Info().Str("orderID", orderID).Str("status", captureResponse.Status).Msg("Captured PayPal order")
	return captureResponse.Status, nil
}
