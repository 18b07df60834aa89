package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/access"
	"github.com/aussiebroadwan/accountd/internal/account/domain"
	"github.com/aussiebroadwan/accountd/internal/account/service"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/httpx"
	"github.com/aussiebroadwan/accountd/pkg/slogx"
)

const minPasswordLength = 8

// userResponse is the public shape of a user record. Password hashes and TOTP
// secrets never leave the service.
type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Roles        []string  `json:"roles"`
	Verified     bool      `json:"verified"`
	TwoFAEnabled bool      `json:"twofa_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Roles:        u.Roles,
		Verified:     u.VerifiedAt != nil,
		TwoFAEnabled: u.TwoFAEnabled != nil,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func validEmail(address string) bool {
	if address == "" {
		return false
	}
	_, err := mail.ParseAddress(address)
	return err == nil
}

// UsersHandler handles the /v1/users endpoints.
type UsersHandler struct {
	UserService *service.UserService
}

// HandleList handles GET /v1/users with limit/offset query parameters.
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := h.UserService.List(ctx, domain.PageOptions{Limit: limit, Offset: offset})
	if err != nil {
		log.Error("failed to list users", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	out := domain.Page[userResponse]{
		Items:  make([]userResponse, 0, len(page.Items)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, u := range page.Items {
		out.Items = append(out.Items, toUserResponse(u))
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /v1/users, the admin path where the caller picks
// the role set.
func (h *UsersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Email    string   `json:"email"`
		Name     string   `json:"name"`
		Password string   `json:"password"`
		Roles    []string `json:"roles"`
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
	if len(req.Roles) == 0 {
		req.Roles = []string{domain.RoleAuthor}
	}

	user, err := h.UserService.Create(ctx, service.CreateUserParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			httpx.ErrConflict.WithDescription("An account with this email already exists").Write(w)
			return
		}
		log.Error("failed to create user", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	log.Info("user created", "user_id", user.ID, "roles", user.Roles)
	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleGet handles GET /v1/users/{id}.
func (h *UsersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.UserService.GetByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.ErrNotFound.Write(w)
			return
		}
		slogx.FromContext(ctx).Error("failed to load user", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleMe handles GET /v1/users/me.
func (h *UsersHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		httpx.ErrInvalidToken.Write(w)
		return
	}

	user, err := h.UserService.GetByID(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load user", "user_id", userID, "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdate handles PATCH /v1/users/{id}. Callers holding an own-scoped
// grant are pinned to their own record. A "roles" field in the payload is
// ignored on every path; role changes only happen through HandleSetRoles.
func (h *UsersHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}
	if req.Password != nil && len(*req.Password) < minPasswordLength {
		httpx.ErrInvalidRequest.WithDescription("Password must be at least 8 characters").Write(w)
		return
	}

	owner, apiErr := h.resolveOwner(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	user, err := h.UserService.EditOne(ctx, r.PathValue("id"), service.EditUserParams{
		Name:     req.Name,
		Password: req.Password,
	}, owner)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			httpx.ErrForbidden.Write(w)
		case errors.Is(err, store.ErrNotFound):
			httpx.ErrNotFound.Write(w)
		default:
			log.Error("failed to update user", "err", err)
			httpx.ErrServerError.Write(w)
		}
		return
	}

	log.Info("user updated", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleSetRoles handles PUT /v1/users/{id}/roles. Only callers whose grant
// covers any record may manage roles; an own-scoped grant is not enough even
// for the caller's own record.
func (h *UsersHandler) HandleSetRoles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if possessionFromContext(ctx) != access.PossessionAny {
		httpx.ErrForbidden.Write(w)
		return
	}

	var req struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.ErrInvalidRequest.WithDescription("Invalid JSON body").Write(w)
		return
	}
	if len(req.Roles) == 0 {
		httpx.ErrInvalidRequest.WithDescription("At least one role is required").Write(w)
		return
	}

	user, err := h.UserService.SetRoles(ctx, r.PathValue("id"), req.Roles)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.ErrNotFound.Write(w)
			return
		}
		log.Error("failed to set roles", "err", err)
		httpx.ErrServerError.Write(w)
		return
	}

	log.Info("user roles replaced", "user_id", user.ID, "roles", user.Roles)
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleDelete handles DELETE /v1/users/{id}.
func (h *UsersHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	owner, apiErr := h.resolveOwner(r)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}

	if err := h.UserService.DeleteOne(ctx, r.PathValue("id"), owner); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			httpx.ErrForbidden.Write(w)
		case errors.Is(err, store.ErrNotFound):
			httpx.ErrNotFound.Write(w)
		default:
			log.Error("failed to delete user", "err", err)
			httpx.ErrServerError.Write(w)
		}
		return
	}

	log.Info("user deleted", "user_id", r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// resolveOwner loads the acting user's record when the verdict was own-scoped.
// A nil owner means the caller may act on any record.
func (h *UsersHandler) resolveOwner(r *http.Request) (*domain.User, *httpx.APIError) {
	ctx := r.Context()

	if possessionFromContext(ctx) != access.PossessionOwn {
		return nil, nil
	}

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		return nil, httpx.ErrInvalidToken
	}

	acting, err := h.UserService.GetByID(ctx, userID)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to load acting user", "user_id", userID, "err", err)
		return nil, httpx.ErrServerError
	}
	return &acting, nil
}
