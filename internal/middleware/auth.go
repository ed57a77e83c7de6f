package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"winshirt-sync/internal/model"
	"winshirt-sync/pkg/apierror"
	"winshirt-sync/pkg/response"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// Authenticator resolves a session token to its data.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.TokenData, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Authenticator Authenticator
	// AdminKey is accepted in the X-Admin-Key header. Empty disables it.
	AdminKey string
}

// SessionToken extracts the session token from X-Token or a Bearer
// Authorization header.
func SessionToken(r *http.Request) string {
	if token := r.Header.Get("X-Token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// RequireAdmin admits requests carrying the admin key or a session token
// whose account has the admin role.
func RequireAdmin(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-Admin-Key"); key != "" {
				if cfg.AdminKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(cfg.AdminKey)) != 1 {
					response.Error(w, apierror.Unauthorized("Invalid admin key"))
					return
				}
				ctx := context.WithValue(r.Context(), TokenDataKey, &model.TokenData{Role: model.RoleAdmin})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := SessionToken(r)
			if token == "" || cfg.Authenticator == nil {
				response.Error(w, apierror.Unauthorized("Authentication required. Use X-Token or X-Admin-Key header."))
				return
			}

			data, err := cfg.Authenticator.Authenticate(r.Context(), token)
			if err != nil {
				response.Error(w, apierror.Unauthorized("Invalid or expired token"))
				return
			}
			if data.Role != model.RoleAdmin {
				response.Error(w, apierror.Forbidden("Admin role required"))
				return
			}

			ctx := context.WithValue(r.Context(), TokenDataKey, data)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
