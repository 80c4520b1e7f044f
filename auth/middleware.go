package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "teamchat/errors"
)

type contextKey string

const identityKey contextKey = "identity"

// BearerToken extracts the credential from the Authorization header,
// falling back to the "token" query parameter for websocket dialers
// that cannot set headers.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Middleware validates the bearer credential on every request and
// injects the verified identity into the request context. REST calls
// get no grace period: an expired token fails here even if the same
// token opened a still-live socket.
func Middleware(authenticator *TokenAuthenticator, onError func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := BearerToken(r)
			if tokenStr == "" {
				onError(w, apperrors.ErrUnauthorized)
				return
			}

			identity, err := authenticator.Verify(tokenStr)
			if err != nil {
				onError(w, apperrors.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom retrieves the verified identity placed by Middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
