package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"

	"manion_server/internal/common"
	"manion_server/internal/common/security"
	"manion_server/internal/domain/model"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticator requires a valid bearer token and places the caller's
// identity in the request context. Mount it after jwtauth.Verifier.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromToken(r)
		if user == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly rejects callers whose token does not carry the admin role. It
// must run after Authenticator.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if !user.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalUser extracts the caller's identity when a valid token is present
// and returns nil otherwise. Anonymous traffic is allowed on most routes, so
// handlers call this instead of requiring Authenticator.
func OptionalUser(r *http.Request) *model.User {
	if user := GetUserFromContext(r.Context()); user != nil {
		return user
	}
	return userFromToken(r)
}

func GetUserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(userContextKey).(*model.User)
	return user
}

func userFromToken(r *http.Request) *model.User {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return nil
	}
	id, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil
	}
	role, err := security.GetUserRoleFromClaims(claims)
	if err != nil {
		role = model.RoleUser
	}
	return &model.User{
		ID:    id,
		Email: security.GetStringClaim(claims, "email"),
		Name:  security.GetStringClaim(claims, "name"),
		Role:  role,
	}
}
