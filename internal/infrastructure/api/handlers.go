package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"pixelift/internal/application"
	"pixelift/internal/domain"
	"pixelift/internal/infrastructure/shopify"
	"pixelift/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler exposes the HTTP JSON API.
type Handler struct {
	repo    ports.Repository
	scans   *application.ScanService
	images  *application.ImageService
	billing *application.BillingService // nil when PayPal is not configured
	shopify ports.ShopifyClient
	nonces  ports.NonceStore
	crypt   ports.EncryptionService
	vitals  ports.VitalsClient // nil when page-speed lookups are not configured
	logger  zerolog.Logger

	apiKey        string
	apiSecret     string
	appURL        string
	webhookSecret string
}

// Config carries the handler dependencies.
type Config struct {
	Repo    ports.Repository
	Scans   *application.ScanService
	Images  *application.ImageService
	Billing *application.BillingService
	Shopify ports.ShopifyClient
	Nonces  ports.NonceStore
	Crypt   ports.EncryptionService
	Vitals  ports.VitalsClient
	Logger  zerolog.Logger

	APIKey        string
	APISecret     string
	AppURL        string
	WebhookSecret string
}

// NewHandler creates the API handler
func NewHandler(cfg Config) *Handler {
	return &Handler{
		repo:          cfg.Repo,
		scans:         cfg.Scans,
		images:        cfg.Images,
		billing:       cfg.Billing,
		shopify:       cfg.Shopify,
		nonces:        cfg.Nonces,
		crypt:         cfg.Crypt,
		vitals:        cfg.Vitals,
		logger:        cfg.Logger,
		apiKey:        cfg.APIKey,
		apiSecret:     cfg.APISecret,
		appURL:        strings.TrimRight(cfg.AppURL, "/"),
		webhookSecret: cfg.WebhookSecret,
	}
}

// Routes mounts all /api routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/scan", h.handleScan)
	r.Get("/shop/info", h.handleShopInfo)
	r.Get("/shops/{domain}", h.handleGetShop)

	r.Post("/images/{id}/fix", h.handleFix)
	r.Post("/images/{id}/revert", h.handleRevert)
	r.Post("/images/{id}/sync", h.handleSync)
	r.Post("/shops/{shopID}/optimize-all", h.handleOptimizeAll)
	r.Post("/shops/{shopID}/sync-all", h.handleSyncAll)

	r.Get("/shopify/install", h.handleInstall)
	r.Get("/shopify/callback", h.handleCallback)
	r.Get("/shopify/session", h.handleSession)

	r.Get("/paypal/setup", h.handlePayPalSetup)
	r.Post("/paypal/order", h.handlePayPalCreateOrder)
	r.Post("/paypal/order/{orderID}/capture", h.handlePayPalCapture)

	r.Post("/webhooks/customers/data_request", h.handleComplianceWebhook)
	r.Post("/webhooks/customers/redact", h.handleComplianceWebhook)
	r.Post("/webhooks/shop/redact", h.handleComplianceWebhook)

	return r
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) respondMessage(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"message": msg})
}

// respondError maps domain sentinel errors to HTTP statuses; anything else
// is a logged 500 with a generic message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.respondMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConflict):
		h.respondMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondMessage(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		h.respondMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.respondMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.scans.Scan(r.Context(), body.URL)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// shopInfoResponse is the summary block shown on the dashboard.
type shopInfoResponse struct {
	Name            string            `json:"name"`
	Domain          string            `json:"domain"`
	IsPro           bool              `json:"isPro"`
	Installed       bool              `json:"installed"`
	LastScanAt      any               `json:"lastScanAt,omitempty"`
	TotalImages     int               `json:"totalImages"`
	OptimizedImages int               `json:"optimizedImages"`
	BytesSaved      int64             `json:"bytesSaved"`
	Vitals          *domain.WebVitals `json:"vitals,omitempty"`
}

func (h *Handler) handleShopInfo(w http.ResponseWriter, r *http.Request) {
	shopDomain := shopParam(r)
	if shopDomain == "" {
		h.respondMessage(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	shop, err := h.repo.GetShopByDomain(r.Context(), shopDomain)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	logs, err := h.repo.GetImageLogsByShopID(r.Context(), shop.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	info := shopInfoResponse{
		Name:      shopName(shop.Domain),
		Domain:    shop.Domain,
		IsPro:     shop.IsPro,
		Installed: shop.Installed(),
	}
	if shop.LastScanAt != nil {
		info.LastScanAt = shop.LastScanAt
	}
	for _, log := range logs {
		info.TotalImages++
		if log.Status == domain.StatusOptimized {
			info.OptimizedImages++
			info.BytesSaved += log.BytesSaved()
		}
	}

	if h.vitals != nil {
		vitals, err := h.vitals.Fetch(r.Context(), "https://"+shop.Domain)
		if err != nil {
			h.logger.Warn().Err(err).Str("shop", shop.Domain).Msg("Page-speed lookup failed")
		} else {
			info.Vitals = vitals
		}
	}

	h.respondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleGetShop(w http.ResponseWriter, r *http.Request) {
	shopDomain := chi.URLParam(r, "domain")

	shop, err := h.repo.GetShopByDomain(r.Context(), shopDomain)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	logs, err := h.repo.GetImageLogsByShopID(r.Context(), shop.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"shop":   shop,
		"images": logs,
	})
}

func (h *Handler) handleFix(w http.ResponseWriter, r *http.Request) {
	log, err := h.images.Fix(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, log)
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	log, err := h.images.Revert(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, log)
}

func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	log, err := h.images.Sync(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, log)
}

func (h *Handler) handleOptimizeAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.images.OptimizeAll(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.images.SyncAll(r.Context(), chi.URLParam(r, "shopID"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePayPalSetup(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.respondMessage(w, http.StatusInternalServerError, "paypal is not configured")
		return
	}
	h.respondJSON(w, http.StatusOK, h.billing.GetSetup())
}

func (h *Handler) handlePayPalCreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.respondMessage(w, http.StatusInternalServerError, "paypal is not configured")
		return
	}

	orderID, err := h.billing.CreateOrder(r.Context())
	if err != nil {
		// Payment failures are surfaced, not masked.
		h.logger.Error().Err(err).Msg("Failed to create PayPal order")
		h.respondMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"id": orderID})
}

func (h *Handler) handlePayPalCapture(w http.ResponseWriter, r *http.Request) {
	if h.billing == nil {
		h.respondMessage(w, http.StatusInternalServerError, "paypal is not configured")
		return
	}

	var body struct {
		Shop string `json:"shop"`
	}
	// Body is optional; without a shop only the capture happens.
	_ = json.NewDecoder(r.Body).Decode(&body)

	status, err := h.billing.CaptureOrder(r.Context(), chi.URLParam(r, "orderID"), body.Shop)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to capture PayPal order")
		h.respondMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleComplianceWebhook acks the mandatory GDPR topics. The signature is
// verified when a secret is configured and the outcome logged, but the
// response is always 200: these topics are acknowledgement-only.
func (h *Handler) handleComplianceWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondMessage(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	topic := r.Header.Get("X-Shopify-Topic")
	shop := r.Header.Get("X-Shopify-Shop-Domain")

	verified := false
	if h.webhookSecret != "" {
		verifier := shopify.NewWebhookVerifier(h.webhookSecret)
		if err := verifier.Verify(payload, r.Header.Get("X-Shopify-Hmac-SHA256")); err != nil {
			h.logger.Warn().Err(err).Str("topic", topic).Str("shop", shop).Msg("Webhook signature verification failed")
		} else {
			verified = true
		}
	}

	h.logger.Info().
		Str("topic", topic).
		Str("shop", shop).
		Str("path", r.URL.Path).
		Bool("verified", verified).
		Msg("Compliance webhook acknowledged")

	h.respondJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

func shopParam(r *http.Request) string {
	if shop := r.URL.Query().Get("shop"); shop != "" {
		return shop
	}
	return r.Header.Get("X-Shopify-Shop-Domain")
}

// shopName derives a display name from the domain's first label.
func shopName(shopDomain string) string {
	name, _, _ := strings.Cut(shopDomain, ".")
	return name
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
