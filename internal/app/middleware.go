package app

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-erp/practice-ledger/internal/observability"
	"github.com/odyssey-erp/practice-ledger/internal/shared"
)

const (
	// HeaderActorID carries the authenticated user id set by the gateway.
	HeaderActorID = "X-Actor-ID"
	// HeaderActorPermissions carries the comma separated scopes of the user.
	HeaderActorPermissions = "X-Actor-Permissions"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
}

// MiddlewareStack installs the ledger middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.Config == nil || !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}
	limit := 120
	if cfg.Config != nil && cfg.Config.AppRateLimit > 0 {
		limit = cfg.Config.AppRateLimit
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		httprate.Limit(limit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		ActorMiddleware(cfg.Logger),
	}
	if cfg.Metrics != nil {
		middlewares = append(middlewares, func(next http.Handler) http.Handler {
			return cfg.Metrics.Middleware(next)
		})
	}
	return middlewares
}

// ActorMiddleware reads the caller identity forwarded by the gateway. Requests
// without a permissions header receive the default operator scopes.
func ActorMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id int64
			if raw := strings.TrimSpace(r.Header.Get(HeaderActorID)); raw != "" {
				parsed, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || parsed < 0 {
					if logger != nil {
						logger.Warn("invalid actor header", slog.String("value", raw))
					}
					http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
					return
				}
				id = parsed
			}
			scopes := shared.DefaultOperatorScopes()
			if _, ok := r.Header[http.CanonicalHeaderKey(HeaderActorPermissions)]; ok {
				scopes = strings.Split(r.Header.Get(HeaderActorPermissions), ",")
			}
			ctx := shared.ContextWithActor(r.Context(), shared.NewActor(id, scopes))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission rejects requests whose actor lacks perm. It must run after
// ActorMiddleware.
func RequirePermission(logger *slog.Logger, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !actor.Can(perm) {
				if logger != nil {
					logger.Warn("permission denied", slog.Int64("actor_id", actor.ID), slog.String("permission", perm))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
