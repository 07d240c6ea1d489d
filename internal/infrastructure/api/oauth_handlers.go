package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"pixelift/internal/domain"
	"pixelift/internal/infrastructure/shopify"

	"github.com/google/uuid"
)

const oauthScopes = "read_products,write_products,read_themes,write_themes"

// callbackMaxAge bounds how old the timestamp parameter on the OAuth
// callback may be.
const callbackMaxAge = 24 * time.Hour

// handleInstall begins the OAuth flow: validate the shop, mint a state
// nonce, redirect to the shop's authorize URL.
func (h *Handler) handleInstall(w http.ResponseWriter, r *http.Request) {
	shop := r.URL.Query().Get("shop")
	if shop == "" {
		h.respondMessage(w, http.StatusBadRequest, "shop parameter is required")
		return
	}
	if !shopify.ValidShopDomain(shop) {
		h.respondMessage(w, http.StatusBadRequest, "invalid shop domain")
		return
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		h.logger.Error().Err(err).Msg("Failed to generate state")
		h.respondMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	state := hex.EncodeToString(stateBytes)

	if err := h.nonces.Put(r.Context(), state, shop); err != nil {
		h.logger.Error().Err(err).Msg("Failed to store state nonce")
		h.respondMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	redirectURI := h.appURL + "/api/shopify/callback"
	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		h.apiKey,
		url.QueryEscape(oauthScopes),
		url.QueryEscape(redirectURI),
		state,
	)

	h.logger.Info().Str("shop", shop).Msg("Redirecting to Shopify authorize URL")
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback completes the OAuth flow: verify state, timestamp and HMAC,
// exchange the code, store the token, redirect back to the app.
//
// HMAC verification is skipped only when no API secret is configured, i.e.
// pure demo mode.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()

	shop := params.Get("shop")
	code := params.Get("code")
	state := params.Get("state")

	if shop == "" || code == "" || state == "" {
		h.respondMessage(w, http.StatusBadRequest, "missing required parameters")
		return
	}
	if !shopify.ValidShopDomain(shop) {
		h.respondMessage(w, http.StatusBadRequest, "invalid shop domain")
		return
	}

	storedShop, ok, err := h.nonces.Consume(ctx, state)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to consume state nonce")
		h.respondMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ok || storedShop != shop {
		h.respondMessage(w, http.StatusUnauthorized, "invalid or expired state")
		return
	}

	if !shopify.FreshTimestamp(params.Get("timestamp"), callbackMaxAge) {
		h.respondMessage(w, http.StatusUnauthorized, "stale request timestamp")
		return
	}
	if h.apiSecret != "" && !shopify.VerifyCallbackHMAC(params, h.apiSecret) {
		h.respondMessage(w, http.StatusUnauthorized, "invalid hmac")
		return
	}

	exchange, err := h.shopify.ExchangeToken(ctx, shop, code)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to exchange token")
		h.respondMessage(w, http.StatusInternalServerError, "failed to complete installation")
		return
	}

	encryptedToken, err := h.crypt.Encrypt(exchange.AccessToken)
	if err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to encrypt access token")
		h.respondMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := h.upsertShopToken(r, shop, encryptedToken, exchange.Scope); err != nil {
		h.logger.Error().Err(err).Str("shop", shop).Msg("Failed to store shop token")
		h.respondMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info().Str("shop", shop).Str("scope", exchange.Scope).Msg("OAuth installation completed")

	redirectURL := fmt.Sprintf("%s/?shop=%s&installed=true", h.appURL, url.QueryEscape(shop))
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h *Handler) upsertShopToken(r *http.Request, shop, encryptedToken, scope string) error {
	ctx := r.Context()

	_, err := h.repo.GetShopByDomain(ctx, shop)
	if err != nil {
		if !isNotFound(err) {
			return err
		}
		newShop := &domain.Shop{
			ID:        uuid.NewString(),
			Domain:    shop,
			CreatedAt: time.Now(),
		}
		if err := h.repo.CreateShop(ctx, newShop); err != nil {
			return err
		}
	}
	return h.repo.UpdateShopToken(ctx, shop, encryptedToken, scope)
}

// handleSession probes whether a shop has completed installation. Returns
// 401 with an install hint otherwise.
func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	shop := shopParam(r)
	if shop == "" {
		h.respondMessage(w, http.StatusBadRequest, "shop parameter is required")
		return
	}

	stored, err := h.repo.GetShopByDomain(r.Context(), shop)
	if err != nil && !isNotFound(err) {
		h.respondError(w, r, err)
		return
	}

	if stored == nil || !stored.Installed() {
		h.respondJSON(w, http.StatusUnauthorized, map[string]string{
			"message":    "shop is not installed",
			"installUrl": h.appURL + "/api/shopify/install?shop=" + url.QueryEscape(shop),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"shop":      stored.Domain,
		"isPro":     stored.IsPro,
		"installed": true,
	})
}
