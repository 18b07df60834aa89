package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accountd/internal/account/service"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/httpx"
	"github.com/aussiebroadwan/accountd/pkg/slogx"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	AuthService *service.AuthService
	UserService *service.UserService
	OTPService  *service.OTPService
}

// HandleRegister handles POST /v1/auth/register. Self-service signups always
// get the author role; there is no way to request another role here.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}

	if !validEmail(req.Email) {
		httpx.ErrInvalidRequest.WithDescription("A valid email is required").Write(w)
		return
	}
	if len(req.Password) < minPasswordLength {
		httpx.ErrInvalidRequest.WithDescription("Password must be at least 8 characters").Write(w)
		return
	}

	user, err := h.UserService.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.ErrConflict.WithDescription("An account with this email already exists").Write(w)
			return
		}
		log.Error("failed to register user", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	// Kick off email verification. Delivery trouble must not fail the
	// signup; the user can request another code from /v1/otp/send.
	if _, err := h.OTPService.Issue(ctx, user.Email); err != nil {
		log.Warn("failed to send verification code after signup", "user_id", user.ID, "err", err)
	}

	log.Info("user registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleLogin handles POST /v1/auth/login. Accounts with 2FA enabled must
// also submit a current TOTP code.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}
	if req.Email == "" || req.Password == "" {
		httpx.ErrInvalidRequest.WithDescription("Email and password are required").Write(w)
		return
	}

	token, user, err := h.AuthService.Login(ctx, req.Email, req.Password, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTOTPRequired):
			httpx.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"error":             "totp_required",
				"error_description": "A TOTP code is required for this account",
			})
		case errors.Is(err, service.ErrInvalidCredentials):
			log.Warn("login failed", "email", req.Email)
			httpx.ErrInvalidCredentials.Write(w)
		default:
			log.Error("login error", "err", err)
			httpx.ErrServerError.Write(w)
		}
		return
	}

	log.Info("user logged in", "user_id", user.ID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"user":         toUserResponse(user),
	})
}
