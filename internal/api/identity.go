package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/libraryhub/library-server/internal/domain"
	domainerrors "github.com/libraryhub/library-server/internal/errors"
)

// Identity headers set by the trusted upstream gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserName = "X-User-Name"
	HeaderUserRole = "X-User-Role"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// identityKey is the context key for the caller's identity.
const identityKey ctxKey = "identity"

// identityFromHeaders reads the caller from the gateway headers.
// Any role other than admin is treated as member.
func identityFromHeaders(h http.Header) (domain.Identity, bool) {
	userID := strings.TrimSpace(h.Get(HeaderUserID))
	if userID == "" {
		return domain.Identity{}, false
	}

	role := domain.RoleMember
	if strings.EqualFold(strings.TrimSpace(h.Get(HeaderUserRole)), string(domain.RoleAdmin)) {
		role = domain.RoleAdmin
	}

	return domain.Identity{
		UserID: userID,
		Name:   strings.TrimSpace(h.Get(HeaderUserName)),
		Role:   role,
	}, true
}

// identityMiddleware stores the caller's identity in the request context.
// Requests without identity headers continue anonymously; handlers use
// GetIdentity or RequireAdmin to reject them.
func identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := identityFromHeaders(r.Header)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(setIdentity(r.Context(), identity)))
	})
}

func setIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// GetIdentity returns the caller's identity from context.
// Returns 401 error if the request carried no identity.
func GetIdentity(ctx context.Context) (domain.Identity, error) {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return domain.Identity{}, domainerrors.Unauthorized("Identity required")
	}
	return identity, nil
}

// RequireAdmin validates the caller is identified and has the admin role.
func RequireAdmin(ctx context.Context) (domain.Identity, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if !identity.IsAdmin() {
		return domain.Identity{}, domainerrors.Forbidden("Admin access required")
	}
	return identity, nil
}

// actingUser resolves whose account a lending request touches. Members may
// only act for themselves; admins may act for anyone.
func actingUser(identity domain.Identity, requestedID string) (string, error) {
	requestedID = strings.TrimSpace(requestedID)
	if requestedID == "" || requestedID == identity.UserID {
		return identity.UserID, nil
	}
	if !identity.IsAdmin() {
		return "", domainerrors.Forbidden("Cannot act on behalf of another user")
	}
	return requestedID, nil
}

// sseIdentity adapts the request identity for the SSE handler.
func sseIdentity(r *http.Request) (string, bool) {
	identity, _ := identityFromContext(r.Context())
	return identity.UserID, identity.IsAdmin()
}
