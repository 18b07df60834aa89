package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/accountd/internal/account/service"
	"github.com/aussiebroadwan/accountd/pkg/httpx"
	"github.com/aussiebroadwan/accountd/pkg/slogx"
)

// OTPHandler handles email verification codes.
type OTPHandler struct {
	OTPService  *service.OTPService
	UserService *service.UserService
}

// HandleSend handles POST /v1/otp/send. The response is 204 whether or not
// the address belongs to an account, so the endpoint cannot be used to probe
// for registered emails.
func (h *OTPHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}
	if !validEmail(req.Email) {
		httpx.ErrInvalidRequest.WithDescription("A valid email is required").Write(w)
		return
	}

	if _, err := h.OTPService.Issue(ctx, req.Email); err != nil {
		log.Error("failed to issue OTP code", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	log.Info("OTP code sent")
	w.WriteHeader(http.StatusNoContent)
}

// HandleVerify handles POST /v1/otp/verify. A matching code is consumed and
// the owning account (if any) gets its email marked verified. All rejection
// reasons collapse into the same 401.
func (h *OTPHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}
	if !validEmail(req.Email) || req.Code == "" {
		httpx.ErrInvalidRequest.WithDescription("Email and code are required").Write(w)
		return
	}

	ok, err := h.OTPService.Verify(ctx, req.Email, req.Code)
	if err != nil {
		log.Error("failed to verify OTP code", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}
	if !ok {
		log.Warn("OTP verification rejected")
		httpx.ErrInvalidCode.Write(w)
		return
	}

	// Codes can be issued for addresses without an account yet; MarkVerified
	// is a no-op for those, so any error here is a real storage failure.
	if err := h.UserService.MarkVerified(ctx, req.Email); err != nil {
		log.Error("failed to mark email verified", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	log.Info("email verified")
	w.WriteHeader(http.StatusNoContent)
}
