package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/accountd/internal/account/service"
	"github.com/aussiebroadwan/accountd/pkg/httpx"
	"github.com/aussiebroadwan/accountd/pkg/slogx"
)

// TwoFAHandler handles TOTP enrollment and verification.
type TwoFAHandler struct {
	TwoFAService *service.TwoFAService
}

// HandleGenerate handles POST /v1/2fa/generate. The default response is the
// provisioning JSON (secret + otpauth URI); clients sending Accept: image/png
// get the QR code directly instead.
func (h *TwoFAHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.ErrInvalidToken.Write(w)
		return
	}

	prov, err := h.TwoFAService.Generate(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrTwoFAAlreadyEnabled) {
			httpx.ErrConflict.WithDescription("2FA is already enabled for this account").Write(w)
			return
		}
		log.Error("failed to generate 2FA secret", "user_id", userID, "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	log.Info("2FA secret provisioned", "user_id", userID)

	if strings.Contains(r.Header.Get("Accept"), "image/png") {
		httpx.NoCache(w)
		w.Header().Set("Content-Type", "image/png")
		if err := h.TwoFAService.RenderQRCode(w, prov.URI); err != nil {
			// Headers are already out; all we can do is log.
			log.Error("failed to stream QR code", "user_id", userID, "err", err)
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, prov)
}

// HandleEnable handles POST /v1/2fa/enable. A valid code flips the account
// into enforced-2FA mode; anything else leaves it untouched.
func (h *TwoFAHandler) HandleEnable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.ErrInvalidToken.Write(w)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}

	user, err := h.TwoFAService.Enable(ctx, userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			log.Warn("2FA enable rejected", "user_id", userID)
			httpx.ErrInvalidCode.Write(w)
		case errors.Is(err, service.ErrTwoFANotProvisioned):
			httpx.ErrInvalidRequest.WithDescription("No 2FA secret provisioned; generate one first").Write(w)
		case errors.Is(err, service.ErrTwoFAAlreadyEnabled):
			httpx.ErrConflict.WithDescription("2FA is already enabled for this account").Write(w)
		default:
			log.Error("failed to enable 2FA", "user_id", userID, "err", err)
			httpx.ErrServerError.Write(w)
		}
		return
	}

	log.Info("2FA enabled", "user_id", userID)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleVerify handles POST /v1/2fa/verify, a non-mutating code check.
func (h *TwoFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.ErrInvalidToken.Write(w)
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}

	ok, err := h.TwoFAService.VerifyCode(ctx, userID, req.Code)
	if err != nil {
		log.Error("failed to verify TOTP code", "user_id", userID, "err", err)
		httpx.ErrServerError.Write(w)
		return
	}
	if !ok {
		httpx.ErrInvalidCode.Write(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
