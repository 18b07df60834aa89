package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/accountd/internal/account/access"
	"github.com/aussiebroadwan/accountd/internal/account/service"
	"github.com/aussiebroadwan/accountd/internal/account/store"
	"github.com/aussiebroadwan/accountd/pkg/httpx"
	"github.com/aussiebroadwan/accountd/pkg/jwtx"
	"github.com/aussiebroadwan/accountd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.Verifier
	engine       *access.Engine
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store        store.Store
	AuthService  *service.AuthService
	UserService  *service.UserService
	TwoFAService *service.TwoFAService
	OTPService   *service.OTPService
}

func NewRouter(
	verifier *jwtx.Verifier,
	engine *access.Engine,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		engine:       engine,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerTwoFA()
	r.registerOTP()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

type ctxKey string

// ctxKeyPossession carries the access verdict's possession scope from the
// authorization middleware into the handler, which decides the own-vs-any
// branch per record.
const ctxKeyPossession ctxKey = "possession"

func possessionFromContext(ctx context.Context) access.Possession {
	if p, ok := ctx.Value(ctxKeyPossession).(access.Possession); ok {
		return p
	}
	return access.PossessionNone
}

// requirePermission gates a route on the grant table. Roles come from the
// verified token, so AuthnMiddleware must run first in the chain. The
// resulting possession scope is stashed in the context for the handler.
func (r *Router) requirePermission(action access.Action, resource access.Resource) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			verdict := r.engine.Can(httpx.RolesFromContext(ctx), action, resource)
			if !verdict.Granted {
				slogx.FromContext(ctx).Warn("permission denied",
					"user_id", httpx.UserIDFromContext(ctx),
					"action", string(action),
					"resource", string(resource),
				)
				httpx.ErrForbidden.Write(w)
				return
			}

			ctx = context.WithValue(ctx, ctxKeyPossession, verdict.Possession)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService, UserService: r.UserService, OTPService: r.OTPService}

	// POST /auth/register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /v1/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/login - strict rate limit by IP (authentication attempts)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	// GET /users - authenticated read, lenient rate limit by user
	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.verifier),
		r.requirePermission(access.ActionRead, access.ResourceUser),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	// POST /users - admin create, moderate rate limit by user
	securedCreate := httpx.Chain(http.HandlerFunc(h.HandleCreate),
		httpx.AuthnMiddleware(r.verifier),
		r.requirePermission(access.ActionCreate, access.ResourceUser),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	securedGet := httpx.Chain(http.HandlerFunc(h.HandleGet),
		httpx.AuthnMiddleware(r.verifier),
		r.requirePermission(access.ActionRead, access.ResourceUser),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	securedUpdate := httpx.Chain(http.HandlerFunc(h.HandleUpdate),
		httpx.AuthnMiddleware(r.verifier),
		r.requirePermission(access.ActionUpdate, access.ResourceUser),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	securedRoles := httpx.Chain(http.HandlerFunc(h.HandleSetRoles),
		httpx.AuthnMiddleware(r.verifier),
		r.requirePermission(access.ActionUpdate, access.ResourceUser),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	securedDelete := httpx.Chain(http.HandlerFunc(h.HandleDelete),
		httpx.AuthnMiddleware(r.verifier),
		r.requirePermission(access.ActionDelete, access.ResourceUser),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	// GET /users/me - needs only a valid token, no grant lookup
	securedMe := httpx.Chain(http.HandlerFunc(h.HandleMe),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("GET /v1/users", securedList)
	r.Mux.Handle("POST /v1/users", securedCreate)
	r.Mux.Handle("GET /v1/users/me", securedMe)
	r.Mux.Handle("GET /v1/users/{id}", securedGet)
	r.Mux.Handle("PATCH /v1/users/{id}", securedUpdate)
	r.Mux.Handle("PUT /v1/users/{id}/roles", securedRoles)
	r.Mux.Handle("DELETE /v1/users/{id}", securedDelete)
}

func (r *Router) registerTwoFA() {
	h := &TwoFAHandler{TwoFAService: r.TwoFAService}

	// POST /2fa/generate - moderate rate limit by user
	securedGenerate := httpx.Chain(http.HandlerFunc(h.HandleGenerate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)

	// POST /2fa/enable - strict rate limit by user (prevent brute force of TOTP codes)
	securedEnable := httpx.Chain(http.HandlerFunc(h.HandleEnable),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	// POST /2fa/verify - strict rate limit by user
	securedVerify := httpx.Chain(http.HandlerFunc(h.HandleVerify),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	r.Mux.Handle("POST /v1/2fa/generate", securedGenerate)
	r.Mux.Handle("POST /v1/2fa/enable", securedEnable)
	r.Mux.Handle("POST /v1/2fa/verify", securedVerify)
}

func (r *Router) registerOTP() {
	h := &OTPHandler{OTPService: r.OTPService, UserService: r.UserService}

	// POST /otp/send - strict rate limit by IP (sends mail to arbitrary addresses)
	r.Mux.Handle("POST /v1/otp/send",
		httpx.Chain(http.HandlerFunc(h.HandleSend),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /otp/verify - strict rate limit by IP (prevent brute force of codes)
	r.Mux.Handle("POST /v1/otp/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
