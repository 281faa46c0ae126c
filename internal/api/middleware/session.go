package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/roomhost/internal/api/apierr"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/token"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Response headers carrying the renewed token
const (
	HeaderAuthorization  = "Authorization"
	HeaderTokenExpiresAt = "X-Token-Expires-At"
)

// SessionCookie is the cookie checked when no Authorization header is sent
const SessionCookie = "session"

// TokenRenewer verifies inbound tokens and issues their replacements
type TokenRenewer interface {
	Verify(raw string) (model.Identity, error)
	Renew(identity model.Identity) (token.Token, error)
}

// Session requires a valid token, then re-issues it with a fresh expiry on
// the response so active clients stay signed in.
func Session(tokens TokenRenewer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractToken(r)
			if raw == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			identity, err := tokens.Verify(raw)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			renewed, err := tokens.Renew(identity)
			if err != nil {
				apierr.WriteError(w, apierr.NewInternalError())
				return
			}
			w.Header().Set(HeaderAuthorization, renewed.Value)
			w.Header().Set(HeaderTokenExpiresAt, renewed.ExpiresAt.UTC().Format(time.RFC3339))

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken reads a raw or Bearer Authorization header, then the session cookie
func extractToken(r *http.Request) string {
	if header := strings.TrimSpace(r.Header.Get(HeaderAuthorization)); header != "" {
		if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest)
		}
		return header
	}

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}

	return ""
}

// GetIdentity returns the authenticated caller from the request context
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

// MustGetIdentity returns the authenticated caller or panics
func MustGetIdentity(ctx context.Context) model.Identity {
	identity, ok := GetIdentity(ctx)
	if !ok {
		panic("no identity in context - session middleware not applied?")
	}
	return identity
}

// WithIdentity returns a context carrying identity
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}
