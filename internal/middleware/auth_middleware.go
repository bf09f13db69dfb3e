package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/auth"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/internal/domain"
	"github.com/Kumar-Saurabh-Tiwari/pan-global-backend/pkg/response"
)

type contextKey string

const actorKey contextKey = "actor"

// UserLookup resolves the member behind a verified token
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// AuthMiddleware verifies the bearer token and resolves the caller's Actor
// once per request. Tokens for members that no longer exist are rejected.
func AuthMiddleware(jwtManager *auth.JWTManager, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.Unauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			user, err := users.GetUser(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					response.Unauthorized(w, "account no longer exists")
					return
				}
				response.InternalError(w, "failed to resolve account")
				return
			}

			if !user.Role.Valid() {
				response.Forbidden(w, "account role is not recognised")
				return
			}

			actor := user.Actor()
			if info := requestInfoFrom(r.Context()); info != nil {
				info.userID = actor.ID
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole rejects callers below the given role. It must run after AuthMiddleware.
func RequireRole(role domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := GetActor(r.Context())
			if !ok {
				response.Unauthorized(w, "authentication required")
				return
			}
			allowed := actor.IsAdmin() || (role == domain.RoleModerator && actor.CanModerate()) || role == domain.RoleUser
			if !allowed {
				response.Forbidden(w, string(role)+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetActor extracts the authenticated caller from context
func GetActor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Actor)
	return actor, ok
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	actor, ok := GetActor(ctx)
	return actor.ID, ok
}

// WithActor returns a context carrying actor, as AuthMiddleware would set it
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}
