package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/caroduarte/lumina-backend/api/responses"
	pkgAuth "github.com/caroduarte/lumina-backend/pkg/auth"
	"github.com/caroduarte/lumina-backend/pkg/auth/session"
	"github.com/caroduarte/lumina-backend/pkg/config"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

// Viewer resolves the Authorization header into a request-scoped viewer.
// JWTs and opaque broker session tokens are both accepted. Requests
// without credentials pass through as the anonymous viewer; requests
// with bad credentials are rejected.
func Viewer(cfg config.JWTConfig, sessions session.Resolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			viewer, err := resolveViewer(r, cfg, sessions, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithViewer(r.Context(), viewer)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    viewer.UserID.String(),
					"actor_role": string(viewer.Role),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveViewer(r *http.Request, cfg config.JWTConfig, sessions session.Resolver, token string) (types.Viewer, error) {
	if claims, err := pkgAuth.ParseAccessToken(cfg, token); err == nil {
		return types.Viewer{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
	}

	if sessions != nil {
		data, err := sessions.Resolve(r.Context(), token)
		if err == nil {
			return types.Viewer{UserID: data.UserID, Email: data.Email, Role: data.Role}, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return types.Viewer{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve session")
		}
	}
	return types.Viewer{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
}

// RequireAuth rejects anonymous requests.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ViewerFromContext(r.Context()).Authenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects requests from non-admin viewers.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer := ViewerFromContext(r.Context())
			if !viewer.Authenticated() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			if !viewer.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}
